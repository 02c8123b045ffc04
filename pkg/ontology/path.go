package ontology

import (
	"fmt"
	"slices"
)

// Path is the result of a path query between two terms that meet at a
// common ancestor.
type Path struct {
	Distance       int      `json:"distance"`
	Terms          []TermID `json:"terms"`
	StepsUp        int      `json:"steps_up"`
	StepsDown      int      `json:"steps_down"`
	CommonAncestor TermID   `json:"common_ancestor"`
}

// Ancestors returns the ancestors of id, including id itself when inclusive
// is set.
func (o *Ontology) Ancestors(id TermID, inclusive bool) (Group, error) {
	td, err := o.data(id)
	if err != nil {
		return Group{}, err
	}
	if inclusive {
		return td.lineage, nil
	}
	return td.lineage.Without(id), nil
}

// Parents returns the direct parents of id.
func (o *Ontology) Parents(id TermID) (Group, error) {
	td, err := o.data(id)
	if err != nil {
		return Group{}, err
	}
	return td.parents, nil
}

// Children returns the direct children of id.
func (o *Ontology) Children(id TermID) (Group, error) {
	td, err := o.data(id)
	if err != nil {
		return Group{}, err
	}
	return td.children, nil
}

// IsAncestor reports whether ancestor is a strict ancestor of descendant.
// Unknown ids are never ancestors.
func (o *Ontology) IsAncestor(ancestor, descendant TermID) bool {
	if ancestor == descendant {
		return false
	}
	i, ok := o.index[descendant]
	if !ok {
		return false
	}
	return o.terms[i].lineage.Contains(ancestor)
}

// CommonAncestors returns the inclusive ancestors shared by a and b.
func (o *Ontology) CommonAncestors(a, b TermID) (Group, error) {
	ta, err := o.data(a)
	if err != nil {
		return Group{}, err
	}
	tb, err := o.data(b)
	if err != nil {
		return Group{}, err
	}
	return ta.lineage.Intersect(tb.lineage), nil
}

// upward walks parent edges breadth first from id. It returns the minimum
// number of edges to every inclusive ancestor and, for reconstruction, the
// node each ancestor was first reached from. Parents are visited in
// ascending id order.
func (o *Ontology) upward(id TermID) (map[TermID]int, map[TermID]TermID) {
	dist := map[TermID]int{id: 0}
	prev := make(map[TermID]TermID)
	queue := []TermID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for p := range o.mustData(cur).parents.All() {
			if _, seen := dist[p]; seen {
				continue
			}
			dist[p] = dist[cur] + 1
			prev[p] = cur
			queue = append(queue, p)
		}
	}
	return dist, prev
}

func chain(prev map[TermID]TermID, from, to TermID) []TermID {
	out := []TermID{to}
	for cur := to; cur != from; {
		cur = prev[cur]
		out = append(out, cur)
	}
	slices.Reverse(out)
	return out
}

// PathToAncestor returns the shortest chain of terms from id up to
// ancestor, both ends included. It fails with ErrNoPath when ancestor is not
// an ancestor of id.
func (o *Ontology) PathToAncestor(id, ancestor TermID) ([]TermID, error) {
	td, err := o.data(id)
	if err != nil {
		return nil, err
	}
	if _, err := o.data(ancestor); err != nil {
		return nil, err
	}
	if !td.lineage.Contains(ancestor) {
		return nil, fmt.Errorf("%w: %s is not an ancestor of %s", ErrNoPath, ancestor, id)
	}
	_, prev := o.upward(id)
	return chain(prev, id, ancestor), nil
}

// Distance returns the minimum number of edges between a and b along an
// ancestor-directed path. One of the terms must be an ancestor of the
// other, otherwise ErrNoPath is returned.
func (o *Ontology) Distance(a, b TermID) (int, error) {
	ta, err := o.data(a)
	if err != nil {
		return 0, err
	}
	tb, err := o.data(b)
	if err != nil {
		return 0, err
	}
	switch {
	case a == b:
		return 0, nil
	case ta.lineage.Contains(b):
		dist, _ := o.upward(a)
		return dist[b], nil
	case tb.lineage.Contains(a):
		dist, _ := o.upward(b)
		return dist[a], nil
	default:
		return 0, fmt.Errorf("%w: %s and %s are not ancestor related", ErrNoPath, a, b)
	}
}

// ShortestPathToRoot returns the number of edges on the shortest path from
// id to the root.
func (o *Ontology) ShortestPathToRoot(id TermID) (int, error) {
	td, err := o.data(id)
	if err != nil {
		return 0, err
	}
	if !td.lineage.Contains(Root) {
		return 0, fmt.Errorf("%w: %s does not reach the root", ErrNoPath, id)
	}
	dist, _ := o.upward(id)
	return dist[Root], nil
}

// PathBetween joins a and b through their nearest common ancestor: the one
// minimising the total number of edges, lowest id on ties. The returned
// terms run from a up to the common ancestor and down to b.
func (o *Ontology) PathBetween(a, b TermID) (Path, error) {
	ta, err := o.data(a)
	if err != nil {
		return Path{}, err
	}
	tb, err := o.data(b)
	if err != nil {
		return Path{}, err
	}
	common := ta.lineage.Intersect(tb.lineage)
	if common.IsEmpty() {
		return Path{}, fmt.Errorf("%w: %s and %s share no ancestor", ErrNoPath, a, b)
	}

	distA, prevA := o.upward(a)
	distB, prevB := o.upward(b)
	best, bestDist := TermID(0), -1
	for c := range common.All() {
		d := distA[c] + distB[c]
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}

	up := chain(prevA, a, best)
	down := chain(prevB, b, best)
	slices.Reverse(down)
	terms := append(up, down[1:]...)
	return Path{
		Distance:       bestDist,
		Terms:          terms,
		StepsUp:        distA[best],
		StepsDown:      distB[best],
		CommonAncestor: best,
	}, nil
}

// distanceBetween is the edge count of PathBetween without building the path.
func (o *Ontology) distanceBetween(a, b *termData) (int, bool) {
	common := a.lineage.Intersect(b.lineage)
	if common.IsEmpty() {
		return 0, false
	}
	distA, _ := o.upward(a.id)
	distB, _ := o.upward(b.id)
	best := -1
	for c := range common.All() {
		if d := distA[c] + distB[c]; best < 0 || d < best {
			best = d
		}
	}
	return best, true
}

// GraphDistance returns the edge count between two terms of the ontology
// through their nearest common ancestor, and false when they share none.
func (t Term) GraphDistance(other Term) (int, bool) {
	return t.o.distanceBetween(t.d, other.d)
}
