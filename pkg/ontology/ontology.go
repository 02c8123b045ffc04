// Package ontology holds the Human Phenotype Ontology term graph, its gene
// and disease annotations and the information content derived from them.
//
// An Ontology is built once (see Builder, package obo for text sources and
// package snapshot for the binary form) and is immutable afterwards, so a
// single *Ontology can be shared by any number of goroutines without locks.
//
// Terms form a directed acyclic graph rooted at HP:0000001. Every term
// carries the closure of its annotations: a gene annotated to a term is
// implicitly annotated to all of that term's ancestors.
//
// Example:
//
//	ont, err := builtin.Load()
//	if err != nil {
//		return err
//	}
//	term, err := ont.TermByQuery("Microcephaly")
//	if err != nil {
//		return err
//	}
//	fmt.Println(term.ID(), term.InformationContent().Omim)
package ontology

import (
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"
)

type termData struct {
	id         TermID
	name       string
	obsolete   bool
	replacedBy TermID
	parents    Group
	children   Group
	lineage    Group // inclusive ancestors
	categories Group

	genes []GeneID
	omim  []OmimDiseaseID
	orpha []OrphaDiseaseID
}

// Ontology is an immutable term graph with annotation closures and IC values.
type Ontology struct {
	version string
	terms   []termData // ascending by id
	index   map[TermID]int
	byName  map[string]int
	live    int

	ic    []InformationContent // parallel to terms
	genes *entityTable[Gene]
	omim  *entityTable[OmimDisease]
	orpha *entityTable[OrphaDisease]
}

func (o *Ontology) mustData(id TermID) *termData {
	i, ok := o.index[id]
	if !ok {
		panic(fmt.Sprintf("ontology: term %s is not part of the ontology", id))
	}
	return &o.terms[i]
}

func (o *Ontology) data(id TermID) (*termData, error) {
	if o == nil {
		return nil, ErrNotInitialized
	}
	i, ok := o.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: term %s", ErrNotFound, id)
	}
	return &o.terms[i], nil
}

func (o *Ontology) indexNames() {
	for pass := 0; pass < 2; pass++ {
		for i := range o.terms {
			td := &o.terms[i]
			if td.obsolete != (pass == 1) {
				continue
			}
			name := strings.ToLower(td.name)
			if _, taken := o.byName[name]; !taken {
				o.byName[name] = i
			}
		}
	}
}

// computeCategories marks the top-level branch(es) of every live term. Terms
// below Phenotypic abnormality are grouped by its children, all other terms
// by the children of the root.
func (o *Ontology) computeCategories() {
	_, hasPhenotypes := o.index[PhenotypicAbnormality]
	for i := range o.terms {
		td := &o.terms[i]
		if td.obsolete {
			continue
		}
		anchor := Root
		if hasPhenotypes && td.lineage.Contains(PhenotypicAbnormality) {
			anchor = PhenotypicAbnormality
		}
		var cats []TermID
		for a := range td.lineage.All() {
			if a != anchor && o.mustData(a).parents.Contains(anchor) {
				cats = append(cats, a)
			}
		}
		td.categories = groupFromSorted(cats)
	}
}

// computeClosures walks order in reverse so every child is complete before
// its parents merge it.
func (o *Ontology) computeClosures(order []TermID) {
	directGenes := make(map[TermID][]GeneID)
	for _, g := range o.genes.items {
		for t := range g.terms.All() {
			directGenes[t] = append(directGenes[t], g.id)
		}
	}
	directOmim := make(map[TermID][]OmimDiseaseID)
	for _, d := range o.omim.items {
		for t := range d.terms.All() {
			directOmim[t] = append(directOmim[t], d.id)
		}
	}
	directOrpha := make(map[TermID][]OrphaDiseaseID)
	for _, d := range o.orpha.items {
		for t := range d.terms.All() {
			directOrpha[t] = append(directOrpha[t], d.id)
		}
	}

	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		td := o.mustData(id)
		genes, omim, orpha := directGenes[id], directOmim[id], directOrpha[id]
		for c := range td.children.All() {
			child := o.mustData(c)
			genes = mergeSorted(genes, child.genes)
			omim = mergeSorted(omim, child.omim)
			orpha = mergeSorted(orpha, child.orpha)
		}
		td.genes, td.omim, td.orpha = genes, omim, orpha
	}

	for i := range o.terms {
		td := &o.terms[i]
		for _, g := range td.genes {
			o.genes.termCount[o.genes.byID[uint32(g)]]++
		}
		for _, d := range td.omim {
			o.omim.termCount[o.omim.byID[uint32(d)]]++
		}
		for _, d := range td.orpha {
			o.orpha.termCount[o.orpha.byID[uint32(d)]]++
		}
	}
}

func (o *Ontology) computeInformationContent() {
	totalGenes, totalOmim, totalOrpha := len(o.genes.items), len(o.omim.items), len(o.orpha.items)
	for i := range o.terms {
		td := &o.terms[i]
		o.ic[i] = InformationContent{
			Gene:  informationContent(len(td.genes), totalGenes),
			Omim:  informationContent(len(td.omim), totalOmim),
			Orpha: informationContent(len(td.orpha), totalOrpha),
		}
	}
}

// Version returns the data release the ontology was built from.
func (o *Ontology) Version() string { return o.version }

// Len returns the number of terms, obsolete terms included.
func (o *Ontology) Len() int { return len(o.terms) }

// Contains reports whether id is a term of the ontology.
func (o *Ontology) Contains(id TermID) bool {
	_, ok := o.index[id]
	return ok
}

// Term returns the term with id.
func (o *Ontology) Term(id TermID) (Term, error) {
	td, err := o.data(id)
	if err != nil {
		return Term{}, err
	}
	return Term{o: o, d: td}, nil
}

// MustTerm is like Term but panics if id is unknown. Use it only with ids
// that were obtained from the same ontology.
func (o *Ontology) MustTerm(id TermID) Term {
	return Term{o: o, d: o.mustData(id)}
}

// Terms iterates all terms in ascending id order. The sequence can be
// ranged over any number of times.
func (o *Ontology) Terms() iter.Seq[Term] {
	return func(yield func(Term) bool) {
		for i := range o.terms {
			if !yield(Term{o: o, d: &o.terms[i]}) {
				return
			}
		}
	}
}

// TermByName finds a term by its exact name, ignoring case. Live terms win
// over obsolete terms with the same name.
func (o *Ontology) TermByName(name string) (Term, error) {
	if o == nil {
		return Term{}, ErrNotInitialized
	}
	i, ok := o.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Term{}, fmt.Errorf("%w: term named %q", ErrNotFound, name)
	}
	return Term{o: o, d: &o.terms[i]}, nil
}

// TermByQuery resolves a bare number ("118"), a prefixed id ("HP:0000118")
// or a term name ("Phenotypic abnormality").
func (o *Ontology) TermByQuery(query string) (Term, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Term{}, fmt.Errorf("%w: empty term query", ErrInvalidInput)
	}
	if _, prefixed := cutTermPrefix(q); prefixed {
		id, err := ParseTermID(q)
		if err != nil {
			return Term{}, err
		}
		return o.Term(id)
	}
	if n, err := strconv.ParseUint(q, 10, 32); err == nil {
		return o.Term(TermID(n))
	}
	return o.TermByName(q)
}

// Search returns live terms whose name contains query, ignoring case, in
// ascending id order.
func (o *Ontology) Search(query string) []Term {
	q := strings.ToLower(strings.TrimSpace(query))
	if o == nil || q == "" {
		return nil
	}
	var out []Term
	for i := range o.terms {
		td := &o.terms[i]
		if !td.obsolete && strings.Contains(strings.ToLower(td.name), q) {
			out = append(out, Term{o: o, d: td})
		}
	}
	return out
}

// InformationContent returns the IC values of id.
func (o *Ontology) InformationContent(id TermID) (InformationContent, error) {
	if _, err := o.data(id); err != nil {
		return InformationContent{}, err
	}
	return o.ic[o.index[id]], nil
}

// ICOf returns the IC of id for kind. It panics if id is unknown.
func (o *Ontology) ICOf(id TermID, kind ICKind) float64 {
	i, ok := o.index[id]
	if !ok {
		panic(fmt.Sprintf("ontology: term %s is not part of the ontology", id))
	}
	return o.ic[i].Get(kind)
}

// Genes returns all genes in ascending id order.
func (o *Ontology) Genes() []Gene { return slices.Clone(o.genes.items) }

// OmimDiseases returns all OMIM diseases in ascending id order.
func (o *Ontology) OmimDiseases() []OmimDisease { return slices.Clone(o.omim.items) }

// OrphaDiseases returns all Orphanet diseases in ascending id order.
func (o *Ontology) OrphaDiseases() []OrphaDisease { return slices.Clone(o.orpha.items) }

// Gene looks up a gene by NCBI id.
func (o *Ontology) Gene(id GeneID) (Gene, error) {
	if o == nil {
		return Gene{}, ErrNotInitialized
	}
	g, ok := o.genes.get(uint32(id))
	if !ok {
		return Gene{}, fmt.Errorf("%w: gene %s", ErrNotFound, id)
	}
	return g, nil
}

// GeneBySymbol looks up a gene by symbol, ignoring case.
func (o *Ontology) GeneBySymbol(symbol string) (Gene, error) {
	if o == nil {
		return Gene{}, ErrNotInitialized
	}
	g, ok := o.genes.getByName(symbol)
	if !ok {
		return Gene{}, fmt.Errorf("%w: gene %q", ErrNotFound, symbol)
	}
	return g, nil
}

// OmimDisease looks up an OMIM disease by id.
func (o *Ontology) OmimDisease(id OmimDiseaseID) (OmimDisease, error) {
	if o == nil {
		return OmimDisease{}, ErrNotInitialized
	}
	d, ok := o.omim.get(uint32(id))
	if !ok {
		return OmimDisease{}, fmt.Errorf("%w: disease %s", ErrNotFound, id)
	}
	return d, nil
}

// OrphaDisease looks up an Orphanet disease by id.
func (o *Ontology) OrphaDisease(id OrphaDiseaseID) (OrphaDisease, error) {
	if o == nil {
		return OrphaDisease{}, ErrNotInitialized
	}
	d, ok := o.orpha.get(uint32(id))
	if !ok {
		return OrphaDisease{}, fmt.Errorf("%w: disease %s", ErrNotFound, id)
	}
	return d, nil
}

// Entity looks up an entity of any kind by numeric id.
func (o *Ontology) Entity(kind EntityKind, id uint32) (Annotation, error) {
	switch kind {
	case KindGene:
		return o.Gene(GeneID(id))
	case KindOmim:
		return o.OmimDisease(OmimDiseaseID(id))
	case KindOrpha:
		return o.OrphaDisease(OrphaDiseaseID(id))
	default:
		return nil, fmt.Errorf("%w: entity kind %s", ErrInvalidInput, kind)
	}
}

// EntityByName looks up an entity by gene symbol or disease name, ignoring case.
func (o *Ontology) EntityByName(kind EntityKind, name string) (Annotation, error) {
	if o == nil {
		return nil, ErrNotInitialized
	}
	var (
		e  Annotation
		ok bool
	)
	switch kind {
	case KindGene:
		e, ok = o.genes.getByName(name)
	case KindOmim:
		e, ok = o.omim.getByName(name)
	case KindOrpha:
		e, ok = o.orpha.getByName(name)
	default:
		return nil, fmt.Errorf("%w: entity kind %s", ErrInvalidInput, kind)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s entity %q", ErrNotFound, kind, name)
	}
	return e, nil
}

// EntityCount returns the number of entities of kind.
func (o *Ontology) EntityCount(kind EntityKind) int {
	switch kind {
	case KindGene:
		return len(o.genes.items)
	case KindOmim:
		return len(o.omim.items)
	case KindOrpha:
		return len(o.orpha.items)
	default:
		return 0
	}
}

// EntitiesForTerm returns the numeric ids of every entity of kind in the
// annotation closure of id, ascending.
func (o *Ontology) EntitiesForTerm(id TermID, kind EntityKind) ([]uint32, error) {
	td, err := o.data(id)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindGene:
		return toUint32(td.genes), nil
	case KindOmim:
		return toUint32(td.omim), nil
	case KindOrpha:
		return toUint32(td.orpha), nil
	default:
		return nil, fmt.Errorf("%w: entity kind %s", ErrInvalidInput, kind)
	}
}

// TermsForEntity returns the terms directly annotated to an entity.
func (o *Ontology) TermsForEntity(kind EntityKind, id uint32) (Group, error) {
	e, err := o.Entity(kind, id)
	if err != nil {
		return Group{}, err
	}
	return e.Terms(), nil
}

// EntityTermCount returns how many terms carry the entity in their
// annotation closure.
func (o *Ontology) EntityTermCount(kind EntityKind, id uint32) (int, error) {
	if o == nil {
		return 0, ErrNotInitialized
	}
	var (
		i  int
		ok bool
	)
	switch kind {
	case KindGene:
		i, ok = o.genes.byID[id]
		if ok {
			return o.genes.termCount[i], nil
		}
	case KindOmim:
		i, ok = o.omim.byID[id]
		if ok {
			return o.omim.termCount[i], nil
		}
	case KindOrpha:
		i, ok = o.orpha.byID[id]
		if ok {
			return o.orpha.termCount[i], nil
		}
	default:
		return 0, fmt.Errorf("%w: entity kind %s", ErrInvalidInput, kind)
	}
	return 0, fmt.Errorf("%w: %s entity %d", ErrNotFound, kind, id)
}

func toUint32[T ~uint32](ids []T) []uint32 {
	out := make([]uint32, len(ids))
	for i, id := range ids {
		out[i] = uint32(id)
	}
	return out
}
