package ontology

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// RawTerm is a term as read from a source, before validation.
type RawTerm struct {
	ID         TermID
	Name       string
	Parents    []TermID
	Obsolete   bool
	ReplacedBy TermID // 0 when the source names no replacement
}

type rawEntity struct {
	name  string
	terms map[TermID]struct{}
}

// Builder collects terms and annotations and turns them into an immutable
// Ontology. Builders are not safe for concurrent use.
//
// Example:
//
//	b := ontology.NewBuilder()
//	b.SetVersion("2024-04-26")
//	_ = b.AddTerm(ontology.RawTerm{ID: 1, Name: "All"})
//	_ = b.AddTerm(ontology.RawTerm{ID: 118, Name: "Phenotypic abnormality", Parents: []ontology.TermID{1}})
//	b.AddEntity(ontology.KindGene, 4204, "MECP2")
//	_ = b.Annotate(ontology.KindGene, 4204, 118)
//	ont, err := b.Build()
type Builder struct {
	version      string
	terms        map[TermID]*RawTerm
	entities     [3]map[uint32]*rawEntity
	geneDiseases map[GeneID]map[OmimDiseaseID]struct{}
	logger       *slog.Logger
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	b := &Builder{
		terms:        make(map[TermID]*RawTerm),
		geneDiseases: make(map[GeneID]map[OmimDiseaseID]struct{}),
		logger:       slog.Default(),
	}
	for i := range b.entities {
		b.entities[i] = make(map[uint32]*rawEntity)
	}
	return b
}

// WithLogger sets the logger used for build diagnostics.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	if l != nil {
		b.logger = l
	}
	return b
}

// SetVersion records the data release, e.g. the hp.obo data-version.
func (b *Builder) SetVersion(v string) { b.version = v }

// AddTerm registers a term. Adding the same id twice is a construction error.
func (b *Builder) AddTerm(t RawTerm) error {
	if t.ID == 0 {
		return constructionErrorf("term id 0 is not valid")
	}
	if _, dup := b.terms[t.ID]; dup {
		return constructionErrorf("duplicate term %s", t.ID)
	}
	cp := t
	cp.Parents = slices.Clone(t.Parents)
	b.terms[t.ID] = &cp
	return nil
}

// AddEntity registers an entity. Registering a known id again keeps the
// first name.
func (b *Builder) AddEntity(kind EntityKind, id uint32, name string) {
	table := b.entities[kind]
	if _, ok := table[id]; ok {
		return
	}
	table[id] = &rawEntity{name: name, terms: make(map[TermID]struct{})}
}

// Annotate records that entity id of kind is directly annotated with term.
// The entity must have been added first; the term is checked at Build.
func (b *Builder) Annotate(kind EntityKind, id uint32, term TermID) error {
	e, ok := b.entities[kind][id]
	if !ok {
		return constructionErrorf("annotation for unknown %s entity %d", kind, id)
	}
	e.terms[term] = struct{}{}
	return nil
}

// LinkGeneDisease records a gene to OMIM disease association.
func (b *Builder) LinkGeneDisease(gene GeneID, disease OmimDiseaseID) {
	set, ok := b.geneDiseases[gene]
	if !ok {
		set = make(map[OmimDiseaseID]struct{})
		b.geneDiseases[gene] = set
	}
	set[disease] = struct{}{}
}

// Build validates the collected data and computes every derived structure:
// children, inclusive ancestors, categories, annotation closures and
// information content. On error no Ontology is returned.
func (b *Builder) Build() (*Ontology, error) {
	start := time.Now()

	ids := slices.Sorted(maps.Keys(b.terms))
	if err := b.validateTerms(ids); err != nil {
		return nil, err
	}
	if err := b.resolveAnnotations(); err != nil {
		return nil, err
	}

	order, err := b.topologicalOrder(ids)
	if err != nil {
		return nil, err
	}

	o := &Ontology{
		version: b.version,
		terms:   make([]termData, len(ids)),
		index:   make(map[TermID]int, len(ids)),
		byName:  make(map[string]int, len(ids)),
		ic:      make([]InformationContent, len(ids)),
	}
	for i, id := range ids {
		raw := b.terms[id]
		o.index[id] = i
		td := &o.terms[i]
		td.id = id
		td.name = raw.Name
		td.obsolete = raw.Obsolete
		if raw.Obsolete {
			td.replacedBy = raw.ReplacedBy
			td.lineage = groupFromSorted([]TermID{id})
			continue
		}
		td.parents = NewGroup(raw.Parents...)
		o.live++
	}
	o.indexNames()

	// Parents come before children in order.
	children := make(map[TermID][]TermID, len(ids))
	for _, id := range order {
		td := o.mustData(id)
		lineage := []TermID{id}
		for p := range td.parents.All() {
			lineage = mergeSorted(lineage, o.mustData(p).lineage.ids)
			children[p] = append(children[p], id)
		}
		td.lineage = groupFromSorted(lineage)
	}
	for id, kids := range children {
		o.mustData(id).children = NewGroup(kids...)
	}
	o.computeCategories()

	o.genes, o.omim, o.orpha = b.entityTables()
	o.computeClosures(order)
	o.computeInformationContent()

	b.logger.Debug("ontology built",
		"version", o.version,
		"terms", len(ids),
		"live_terms", o.live,
		"genes", len(o.genes.items),
		"omim_diseases", len(o.omim.items),
		"orpha_diseases", len(o.orpha.items),
		"elapsed", time.Since(start))
	return o, nil
}

func (b *Builder) validateTerms(ids []TermID) error {
	root, ok := b.terms[Root]
	if !ok {
		return constructionErrorf("root term %s is missing", Root)
	}
	if root.Obsolete || len(root.Parents) > 0 {
		return constructionErrorf("root term %s must be live and parentless", Root)
	}
	for _, id := range ids {
		t := b.terms[id]
		if t.Obsolete {
			if t.ReplacedBy != 0 {
				if _, ok := b.terms[t.ReplacedBy]; !ok {
					return constructionErrorf("term %s is replaced by unknown term %s", id, t.ReplacedBy)
				}
			}
			continue
		}
		if id != Root && len(t.Parents) == 0 {
			return constructionErrorf("term %s has no parents", id)
		}
		for _, p := range t.Parents {
			if p == id {
				return constructionErrorf("cycle detected: %s is its own parent", id)
			}
			parent, ok := b.terms[p]
			if !ok {
				return constructionErrorf("term %s references unknown parent %s", id, p)
			}
			if parent.Obsolete {
				return constructionErrorf("term %s references obsolete parent %s", id, p)
			}
		}
	}
	return nil
}

// resolveAnnotations moves annotations of obsolete terms onto their live
// replacement and drops those whose replacement chain ends without one.
// Annotations of unknown terms are a construction error.
func (b *Builder) resolveAnnotations() error {
	var remapped, dropped int
	for kind, table := range b.entities {
		for _, id := range slices.Sorted(maps.Keys(table)) {
			e := table[id]
			for _, term := range slices.Sorted(maps.Keys(e.terms)) {
				t, ok := b.terms[term]
				if !ok {
					return constructionErrorf("%s entity %d references unknown term %s", EntityKind(kind), id, term)
				}
				if !t.Obsolete {
					continue
				}
				delete(e.terms, term)
				live, ok := b.liveReplacement(term)
				if !ok {
					dropped++
					b.logger.Debug("dropping annotation to obsolete term",
						"kind", EntityKind(kind), "entity", id, "term", term)
					continue
				}
				e.terms[live] = struct{}{}
				remapped++
			}
		}
	}
	if remapped+dropped > 0 {
		b.logger.Info("annotations to obsolete terms", "remapped", remapped, "dropped", dropped)
	}
	return nil
}

// liveReplacement follows replaced_by links from an obsolete term.
func (b *Builder) liveReplacement(id TermID) (TermID, bool) {
	seen := make(map[TermID]struct{})
	for {
		t := b.terms[id]
		if !t.Obsolete {
			return id, true
		}
		if _, loop := seen[id]; loop || t.ReplacedBy == 0 {
			return 0, false
		}
		seen[id] = struct{}{}
		if _, ok := b.terms[t.ReplacedBy]; !ok {
			return 0, false
		}
		id = t.ReplacedBy
	}
}

// topologicalOrder sorts live terms so every parent precedes its children.
func (b *Builder) topologicalOrder(ids []TermID) ([]TermID, error) {
	g := simple.NewDirectedGraph()
	for _, id := range ids {
		if !b.terms[id].Obsolete {
			g.AddNode(simple.Node(int64(id)))
		}
	}
	for _, id := range ids {
		t := b.terms[id]
		if t.Obsolete {
			continue
		}
		for _, p := range t.Parents {
			if g.HasEdgeFromTo(int64(p), int64(id)) {
				continue
			}
			g.SetEdge(g.NewEdge(simple.Node(int64(p)), simple.Node(int64(id))))
		}
	}

	sorted, err := topo.Sort(g)
	if err != nil {
		var cycles topo.Unorderable
		if errors.As(err, &cycles) && len(cycles) > 0 {
			members := make([]TermID, 0, len(cycles[0]))
			for _, n := range cycles[0] {
				members = append(members, TermID(n.ID()))
			}
			return nil, constructionErrorf("cycle detected between %s", NewGroup(members...))
		}
		return nil, fmt.Errorf("%w: %v", ErrConstruction, err)
	}

	order := make([]TermID, len(sorted))
	for i, n := range sorted {
		order[i] = TermID(n.ID())
	}
	return order, nil
}

func (b *Builder) entityTables() (*entityTable[Gene], *entityTable[OmimDisease], *entityTable[OrphaDisease]) {
	genes := make([]Gene, 0, len(b.entities[KindGene]))
	for id, e := range b.entities[KindGene] {
		g := Gene{id: GeneID(id), symbol: e.name, terms: NewGroup(slices.Collect(maps.Keys(e.terms))...)}
		if links, ok := b.geneDiseases[GeneID(id)]; ok {
			g.diseases = slices.Sorted(maps.Keys(links))
		}
		genes = append(genes, g)
	}
	omim := make([]OmimDisease, 0, len(b.entities[KindOmim]))
	for id, e := range b.entities[KindOmim] {
		omim = append(omim, OmimDisease{id: OmimDiseaseID(id), name: e.name, terms: NewGroup(slices.Collect(maps.Keys(e.terms))...)})
	}
	orpha := make([]OrphaDisease, 0, len(b.entities[KindOrpha]))
	for id, e := range b.entities[KindOrpha] {
		orpha = append(orpha, OrphaDisease{id: OrphaDiseaseID(id), name: e.name, terms: NewGroup(slices.Collect(maps.Keys(e.terms))...)})
	}
	return newEntityTable(genes), newEntityTable(omim), newEntityTable(orpha)
}
