package ontology

import (
	"iter"
	"slices"
	"strings"
)

// Group is an immutable, sorted, duplicate-free set of term ids.
//
// Every operation that changes membership returns a new Group, so a Group
// handed out by the ontology can be shared between goroutines freely.
type Group struct {
	ids []TermID
}

// NewGroup builds a Group from ids in any order, dropping duplicates.
func NewGroup(ids ...TermID) Group {
	if len(ids) == 0 {
		return Group{}
	}
	cp := slices.Clone(ids)
	slices.Sort(cp)
	return Group{ids: slices.Compact(cp)}
}

// groupFromSorted wraps an already sorted, compacted slice without copying.
func groupFromSorted(ids []TermID) Group {
	return Group{ids: ids}
}

// Len returns the number of members.
func (g Group) Len() int { return len(g.ids) }

// IsEmpty reports whether the group has no members.
func (g Group) IsEmpty() bool { return len(g.ids) == 0 }

// Contains reports whether id is a member.
func (g Group) Contains(id TermID) bool {
	_, ok := slices.BinarySearch(g.ids, id)
	return ok
}

// IDs returns a copy of the members in ascending order.
func (g Group) IDs() []TermID {
	return slices.Clone(g.ids)
}

// All iterates the members in ascending order.
func (g Group) All() iter.Seq[TermID] {
	return func(yield func(TermID) bool) {
		for _, id := range g.ids {
			if !yield(id) {
				return
			}
		}
	}
}

// At returns the i-th smallest member.
func (g Group) At(i int) TermID { return g.ids[i] }

// With returns a new Group that also contains id.
func (g Group) With(id TermID) Group {
	pos, ok := slices.BinarySearch(g.ids, id)
	if ok {
		return g
	}
	out := make([]TermID, 0, len(g.ids)+1)
	out = append(out, g.ids[:pos]...)
	out = append(out, id)
	out = append(out, g.ids[pos:]...)
	return Group{ids: out}
}

// Without returns a new Group with id removed.
func (g Group) Without(id TermID) Group {
	pos, ok := slices.BinarySearch(g.ids, id)
	if !ok {
		return g
	}
	out := make([]TermID, 0, len(g.ids)-1)
	out = append(out, g.ids[:pos]...)
	out = append(out, g.ids[pos+1:]...)
	return Group{ids: out}
}

// Union returns the members of either group.
func (g Group) Union(other Group) Group {
	return Group{ids: mergeSorted(g.ids, other.ids)}
}

// Intersect returns the members of both groups.
func (g Group) Intersect(other Group) Group {
	a, b := g.ids, other.ids
	out := make([]TermID, 0, min(len(a), len(b)))
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return Group{ids: out}
}

// Equal reports whether both groups have identical membership.
func (g Group) Equal(other Group) bool {
	return slices.Equal(g.ids, other.ids)
}

// String renders the members as "HP:0000001, HP:0000118".
func (g Group) String() string {
	parts := make([]string, len(g.ids))
	for i, id := range g.ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}

// mergeSorted unions two ascending, duplicate-free slices.
func mergeSorted[T ~uint32](a, b []T) []T {
	if len(a) == 0 {
		return slices.Clone(b)
	}
	if len(b) == 0 {
		return slices.Clone(a)
	}
	out := make([]T, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
