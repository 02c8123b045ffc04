package ontology

import "slices"

// Term is a read-only view of one ontology term. Two Terms are the same
// term when their IDs are equal.
type Term struct {
	o *Ontology
	d *termData
}

// IsValid reports whether t refers to a term (the zero Term does not).
func (t Term) IsValid() bool { return t.d != nil }

func (t Term) ID() TermID { return t.d.id }

func (t Term) Name() string { return t.d.name }

func (t Term) IsObsolete() bool { return t.d.obsolete }

// ReplacedBy returns the replacement of an obsolete term, if one is named.
func (t Term) ReplacedBy() (TermID, bool) {
	return t.d.replacedBy, t.d.replacedBy != 0
}

// Equal compares terms by id.
func (t Term) Equal(other Term) bool { return t.d.id == other.d.id }

// Ontology returns the ontology the term belongs to.
func (t Term) Ontology() *Ontology { return t.o }

// Parents returns the direct parents.
func (t Term) Parents() Group { return t.d.parents }

// Children returns the direct children.
func (t Term) Children() Group { return t.d.children }

// AllParents returns every ancestor, excluding the term itself.
func (t Term) AllParents() Group { return t.d.lineage.Without(t.d.id) }

// Ancestors returns every ancestor including the term itself.
func (t Term) Ancestors() Group { return t.d.lineage }

// Categories returns the top-level branches the term belongs to.
func (t Term) Categories() Group { return t.d.categories }

// IsModifier reports whether the term lies outside Phenotypic abnormality.
func (t Term) IsModifier() bool {
	return !t.d.obsolete && !t.d.lineage.Contains(PhenotypicAbnormality)
}

// ParentOf reports whether t is a direct parent of other.
func (t Term) ParentOf(other Term) bool { return other.d.parents.Contains(t.d.id) }

// ChildOf reports whether t is a direct child of other.
func (t Term) ChildOf(other Term) bool { return t.d.parents.Contains(other.d.id) }

// AncestorOf reports whether t is a strict ancestor of other.
func (t Term) AncestorOf(other Term) bool {
	return t.d.id != other.d.id && other.d.lineage.Contains(t.d.id)
}

// InformationContent returns the IC values of the term.
func (t Term) InformationContent() InformationContent {
	return t.o.ic[t.o.index[t.d.id]]
}

// Genes returns the genes in the annotation closure of the term.
func (t Term) Genes() []GeneID { return slices.Clone(t.d.genes) }

// OmimDiseases returns the OMIM diseases in the annotation closure of the term.
func (t Term) OmimDiseases() []OmimDiseaseID { return slices.Clone(t.d.omim) }

// OrphaDiseases returns the Orphanet diseases in the annotation closure of the term.
func (t Term) OrphaDiseases() []OrphaDiseaseID { return slices.Clone(t.d.orpha) }

// CommonAncestors returns the inclusive ancestors shared by t and other.
func (t Term) CommonAncestors(other Term) Group {
	return t.d.lineage.Intersect(other.d.lineage)
}

func (t Term) String() string {
	if t.d == nil {
		return "<nil term>"
	}
	return t.d.id.String() + " | " + t.d.name
}
