package ontology

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// EntityKind selects one of the annotation entity families.
type EntityKind uint8

const (
	KindGene EntityKind = iota
	KindOmim
	KindOrpha
)

// String returns the lowercase kind name accepted by ParseEntityKind.
func (k EntityKind) String() string {
	switch k {
	case KindGene:
		return "gene"
	case KindOmim:
		return "omim"
	case KindOrpha:
		return "orpha"
	default:
		return fmt.Sprintf("EntityKind(%d)", uint8(k))
	}
}

// ParseEntityKind maps "gene", "omim" and "orpha" (case-insensitive) to a kind.
func ParseEntityKind(s string) (EntityKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gene":
		return KindGene, nil
	case "omim":
		return KindOmim, nil
	case "orpha":
		return KindOrpha, nil
	default:
		return 0, fmt.Errorf("%w: unknown entity kind %q", ErrInvalidInput, s)
	}
}

// Annotation is the capability shared by genes, OMIM diseases and Orphanet
// diseases. Identity, equality and ordering use only the numeric id.
type Annotation interface {
	Kind() EntityKind
	// NumericID is the id without its prefix.
	NumericID() uint32
	// Name is the gene symbol or the disease name.
	Name() string
	// Terms returns the directly annotated terms.
	Terms() Group
	fmt.Stringer
}

// Gene is an NCBI gene together with its directly annotated terms.
type Gene struct {
	id       GeneID
	symbol   string
	terms    Group
	diseases []OmimDiseaseID
}

func (g Gene) ID() GeneID        { return g.id }
func (g Gene) Kind() EntityKind  { return KindGene }
func (g Gene) NumericID() uint32 { return uint32(g.id) }
func (g Gene) Name() string      { return g.symbol }
func (g Gene) Symbol() string    { return g.symbol }
func (g Gene) Terms() Group      { return g.terms }
func (g Gene) String() string    { return g.id.String() + " " + g.symbol }

// OmimDiseases lists the OMIM diseases the gene source associates with the gene.
func (g Gene) OmimDiseases() []OmimDiseaseID { return slices.Clone(g.diseases) }

// OmimDisease is an OMIM disease together with its directly annotated terms.
type OmimDisease struct {
	id    OmimDiseaseID
	name  string
	terms Group
}

func (d OmimDisease) ID() OmimDiseaseID { return d.id }
func (d OmimDisease) Kind() EntityKind  { return KindOmim }
func (d OmimDisease) NumericID() uint32 { return uint32(d.id) }
func (d OmimDisease) Name() string      { return d.name }
func (d OmimDisease) Terms() Group      { return d.terms }
func (d OmimDisease) String() string    { return d.id.String() + " " + d.name }

// OrphaDisease is an Orphanet disease together with its directly annotated terms.
type OrphaDisease struct {
	id    OrphaDiseaseID
	name  string
	terms Group
}

func (d OrphaDisease) ID() OrphaDiseaseID { return d.id }
func (d OrphaDisease) Kind() EntityKind   { return KindOrpha }
func (d OrphaDisease) NumericID() uint32  { return uint32(d.id) }
func (d OrphaDisease) Name() string       { return d.name }
func (d OrphaDisease) Terms() Group       { return d.terms }
func (d OrphaDisease) String() string     { return d.id.String() + " " + d.name }

// entityTable stores one entity family sorted by id with a name index.
type entityTable[E Annotation] struct {
	items  []E
	byID   map[uint32]int
	byName map[string]int

	// termCount is the closure size per entity: the number of terms whose
	// annotation closure contains the entity.
	termCount []int
}

func newEntityTable[E Annotation](items []E) *entityTable[E] {
	slices.SortFunc(items, func(a, b E) int {
		return cmp.Compare(a.NumericID(), b.NumericID())
	})
	t := &entityTable[E]{
		items:     items,
		byID:      make(map[uint32]int, len(items)),
		byName:    make(map[string]int, len(items)),
		termCount: make([]int, len(items)),
	}
	for i, it := range items {
		t.byID[it.NumericID()] = i
		name := strings.ToLower(it.Name())
		if _, dup := t.byName[name]; !dup {
			t.byName[name] = i
		}
	}
	return t
}

func (t *entityTable[E]) get(id uint32) (E, bool) {
	i, ok := t.byID[id]
	if !ok {
		var zero E
		return zero, false
	}
	return t.items[i], true
}

func (t *entityTable[E]) getByName(name string) (E, bool) {
	i, ok := t.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		var zero E
		return zero, false
	}
	return t.items[i], true
}
