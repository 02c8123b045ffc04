// Package hposet implements term sets: validated, duplicate-free
// collections of ontology terms that describe a patient, a gene or a
// disease.
//
// Sets are values. Every transform returns a new Set and leaves the
// receiver untouched:
//
//	set, err := hposet.FromSerialized(ont, "252+1249+7")
//	if err != nil {
//		return err
//	}
//	core := set.RemoveModifier().ChildNodes()
//	fmt.Println(core.Serialize()) // "252+1249"
package hposet

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/orneryd/phenograph/pkg/ontology"
	"github.com/orneryd/phenograph/pkg/pool"
)

const separator = "+"

// Set is an immutable set of terms of one ontology.
type Set struct {
	ont *ontology.Ontology
	ids ontology.Group
}

// New builds a set from term ids. Unknown ids fail with ontology.ErrNotFound.
func New(ont *ontology.Ontology, ids ...ontology.TermID) (*Set, error) {
	if ont == nil {
		return nil, ontology.ErrNotInitialized
	}
	for _, id := range ids {
		if !ont.Contains(id) {
			return nil, fmt.Errorf("%w: term %s", ontology.ErrNotFound, id)
		}
	}
	return &Set{ont: ont, ids: ontology.NewGroup(ids...)}, nil
}

// FromGroup builds a set from a group of term ids.
func FromGroup(ont *ontology.Ontology, g ontology.Group) (*Set, error) {
	return New(ont, g.IDs()...)
}

// FromTerms builds a set from terms of ont.
func FromTerms(ont *ontology.Ontology, terms ...ontology.Term) (*Set, error) {
	ids := make([]ontology.TermID, len(terms))
	for i, t := range terms {
		ids[i] = t.ID()
	}
	return New(ont, ids...)
}

// FromQueries resolves every query with Ontology.TermByQuery.
func FromQueries(ont *ontology.Ontology, queries ...string) (*Set, error) {
	if ont == nil {
		return nil, ontology.ErrNotInitialized
	}
	ids := make([]ontology.TermID, 0, len(queries))
	for _, q := range queries {
		t, err := ont.TermByQuery(q)
		if err != nil {
			return nil, err
		}
		ids = append(ids, t.ID())
	}
	return New(ont, ids...)
}

// FromSerialized parses the "id+id+id" form produced by Serialize. The
// empty string is the empty set. Malformed ids fail with
// ontology.ErrInvalidInput, unknown ids with ontology.ErrNotFound.
func FromSerialized(ont *ontology.Ontology, s string) (*Set, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return New(ont)
	}
	parts := strings.Split(s, separator)
	ids := make([]ontology.TermID, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed term set %q", ontology.ErrInvalidInput, s)
		}
		ids = append(ids, ontology.TermID(n))
	}
	return New(ont, ids...)
}

// FromEntity builds the set of every term annotated to a gene or disease,
// including all ancestors of its direct terms.
func FromEntity(ont *ontology.Ontology, e ontology.Annotation) (*Set, error) {
	if ont == nil {
		return nil, ontology.ErrNotInitialized
	}
	var closure ontology.Group
	for id := range e.Terms().All() {
		anc, err := ont.Ancestors(id, true)
		if err != nil {
			return nil, err
		}
		closure = closure.Union(anc)
	}
	return &Set{ont: ont, ids: closure}, nil
}

// Ontology returns the ontology the set is validated against.
func (s *Set) Ontology() *ontology.Ontology { return s.ont }

// Len returns the number of members.
func (s *Set) Len() int { return s.ids.Len() }

// Contains reports whether id is a member.
func (s *Set) Contains(id ontology.TermID) bool { return s.ids.Contains(id) }

// IDs returns the members in ascending order.
func (s *Set) IDs() []ontology.TermID { return s.ids.IDs() }

// Group returns the members as a Group.
func (s *Set) Group() ontology.Group { return s.ids }

// Terms returns the member terms in ascending id order.
func (s *Set) Terms() []ontology.Term {
	out := make([]ontology.Term, 0, s.ids.Len())
	for id := range s.ids.All() {
		out = append(out, s.ont.MustTerm(id))
	}
	return out
}

// Serialize returns the canonical "id+id+id" form, ascending by id.
func (s *Set) Serialize() string {
	sb := pool.GetStringBuilder()
	defer pool.PutStringBuilder(sb)
	i := 0
	for id := range s.ids.All() {
		if i > 0 {
			sb.WriteString(separator)
		}
		sb.AppendUint(uint64(id))
		i++
	}
	return sb.String()
}

func (s *Set) String() string {
	return fmt.Sprintf("HPOSet(%s)", s.ids)
}

// Union returns the members of either set.
func (s *Set) Union(other *Set) *Set {
	return &Set{ont: s.ont, ids: s.ids.Union(other.ids)}
}

// ChildNodes keeps only the most specific members: a member is dropped
// when another member descends from it.
func (s *Set) ChildNodes() *Set {
	ids := s.ids.IDs()
	keep := make([]ontology.TermID, 0, len(ids))
	for _, candidate := range ids {
		specific := true
		for _, other := range ids {
			if other != candidate && s.ont.IsAncestor(candidate, other) {
				specific = false
				break
			}
		}
		if specific {
			keep = append(keep, candidate)
		}
	}
	return &Set{ont: s.ont, ids: ontology.NewGroup(keep...)}
}

// RemoveModifier keeps only members inside the Phenotypic abnormality
// subtree (the subtree root included).
func (s *Set) RemoveModifier() *Set {
	keep := make([]ontology.TermID, 0, s.ids.Len())
	for id := range s.ids.All() {
		if id == ontology.PhenotypicAbnormality || s.ont.IsAncestor(ontology.PhenotypicAbnormality, id) {
			keep = append(keep, id)
		}
	}
	return &Set{ont: s.ont, ids: ontology.NewGroup(keep...)}
}

// ReplaceObsolete swaps obsolete members for their replacement, following
// chains of obsolete replacements. Members whose chain ends without a live
// term are dropped.
func (s *Set) ReplaceObsolete() *Set {
	keep := make([]ontology.TermID, 0, s.ids.Len())
	for id := range s.ids.All() {
		if live, ok := s.resolve(id); ok {
			keep = append(keep, live)
		}
	}
	return &Set{ont: s.ont, ids: ontology.NewGroup(keep...)}
}

// Basic returns the set prepared for comparison: obsolete members replaced,
// modifiers removed, and only the most specific members kept.
func (s *Set) Basic() *Set {
	return s.ReplaceObsolete().RemoveModifier().ChildNodes()
}

// Phenotypes returns the live members inside Phenotypic abnormality,
// ancestors of other members included.
func (s *Set) Phenotypes() *Set {
	return s.ReplaceObsolete().RemoveModifier()
}

// Basic builds a set from ids and reduces it with Set.Basic.
func Basic(ont *ontology.Ontology, ids ...ontology.TermID) (*Set, error) {
	s, err := New(ont, ids...)
	if err != nil {
		return nil, err
	}
	return s.Basic(), nil
}

// Phenotypes builds a set from ids and reduces it with Set.Phenotypes.
func Phenotypes(ont *ontology.Ontology, ids ...ontology.TermID) (*Set, error) {
	s, err := New(ont, ids...)
	if err != nil {
		return nil, err
	}
	return s.Phenotypes(), nil
}

// Preset names a fixed chain of transforms applied to incoming sets.
type Preset uint8

const (
	PresetNone Preset = iota
	PresetBasic
	PresetPhenotypes
)

// ParsePreset maps "" or "none", "basic" and "pheno" to a preset.
func ParsePreset(name string) (Preset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return PresetNone, nil
	case "basic":
		return PresetBasic, nil
	case "pheno", "phenotypes":
		return PresetPhenotypes, nil
	default:
		return 0, fmt.Errorf("%w: unknown set preset %q", ontology.ErrInvalidInput, name)
	}
}

func (p Preset) String() string {
	switch p {
	case PresetNone:
		return "none"
	case PresetBasic:
		return "basic"
	case PresetPhenotypes:
		return "pheno"
	default:
		return fmt.Sprintf("Preset(%d)", uint8(p))
	}
}

// Apply returns s transformed by the preset.
func (p Preset) Apply(s *Set) *Set {
	switch p {
	case PresetBasic:
		return s.Basic()
	case PresetPhenotypes:
		return s.Phenotypes()
	default:
		return s
	}
}

func (s *Set) resolve(id ontology.TermID) (ontology.TermID, bool) {
	seen := make(map[ontology.TermID]struct{})
	for {
		term := s.ont.MustTerm(id)
		if !term.IsObsolete() {
			return id, true
		}
		if _, loop := seen[id]; loop {
			return 0, false
		}
		seen[id] = struct{}{}
		next, ok := term.ReplacedBy()
		if !ok {
			return 0, false
		}
		id = next
	}
}

// AllGenes returns the union of the annotation closures of all members.
func (s *Set) AllGenes() []ontology.Gene {
	return collect(s, ontology.Term.Genes, s.ont.Gene)
}

// OmimDiseases returns the union of the OMIM annotation closures of all members.
func (s *Set) OmimDiseases() []ontology.OmimDisease {
	return collect(s, ontology.Term.OmimDiseases, s.ont.OmimDisease)
}

// OrphaDiseases returns the union of the Orphanet annotation closures of all members.
func (s *Set) OrphaDiseases() []ontology.OrphaDisease {
	return collect(s, ontology.Term.OrphaDiseases, s.ont.OrphaDisease)
}

func collect[ID ~uint32, E any](s *Set, ids func(ontology.Term) []ID, lookup func(ID) (E, error)) []E {
	var all []ID
	for id := range s.ids.All() {
		all = append(all, ids(s.ont.MustTerm(id))...)
	}
	slices.Sort(all)
	all = slices.Compact(all)

	out := make([]E, 0, len(all))
	for _, id := range all {
		e, err := lookup(id)
		if err != nil {
			panic(fmt.Sprintf("hposet: annotation %d of the ontology does not resolve: %v", id, err))
		}
		out = append(out, e)
	}
	return out
}
