// Package linkage clusters term sets hierarchically.
//
// The output follows the usual linkage matrix convention: inputs are
// clusters 0..N-1, and the i-th merge creates cluster N+i. Each record
// names the two merged clusters, their distance and the size of the new
// cluster, so it can be handed to any dendrogram tool.
package linkage

import (
	"context"
	"fmt"
	"strings"

	"github.com/orneryd/phenograph/pkg/hposet"
	"github.com/orneryd/phenograph/pkg/ontology"
	"github.com/orneryd/phenograph/pkg/pool"
	"github.com/orneryd/phenograph/pkg/similarity"
)

// Method decides how the distance of a merged cluster to the remaining
// clusters is derived.
type Method uint8

const (
	// Single uses the smallest member distance.
	Single Method = iota
	// Complete uses the largest member distance.
	Complete
	// Average uses the mean of all member distances.
	Average
	// Union merges the term sets of both clusters and scores the merged
	// set against every remaining cluster again.
	Union
)

// DefaultMethod is used when no method is named.
const DefaultMethod = Single

// ParseMethod maps "single", "complete", "average" or "union" to a Method.
// The empty string selects DefaultMethod.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "single":
		return Single, nil
	case "complete":
		return Complete, nil
	case "average":
		return Average, nil
	case "union":
		return Union, nil
	default:
		return 0, fmt.Errorf("%w: unknown linkage method %q", ontology.ErrInvalidInput, name)
	}
}

func (m Method) String() string {
	switch m {
	case Single:
		return "single"
	case Complete:
		return "complete"
	case Average:
		return "average"
	case Union:
		return "union"
	default:
		return fmt.Sprintf("Method(%d)", uint8(m))
	}
}

// Cluster is one merge step.
type Cluster struct {
	Left     int     `json:"left"`
	Right    int     `json:"right"`
	Distance float64 `json:"distance"`
	Size     int     `json:"size"`
}

// DistanceFunc returns the distance between two term sets.
type DistanceFunc func(a, b *hposet.Set) float64

// Options configures Linkage.
type Options struct {
	Method Method
	// Similarity derives the distance 1 - score when Distance is nil.
	Similarity *similarity.GroupSimilarity
	Distance   DistanceFunc
	// Workers bounds the parallel distance computations, 0 means one per CPU.
	Workers int
}

// OptionsFromNames resolves linkage, similarity, IC kind and combiner names.
func OptionsFromNames(method, simMethod, kind, combiner string) (Options, error) {
	m, err := ParseMethod(method)
	if err != nil {
		return Options{}, err
	}
	group, err := similarity.NewGroupByName(simMethod, kind, combiner)
	if err != nil {
		return Options{}, err
	}
	return Options{Method: m, Similarity: group}, nil
}

func (o Options) distance() (DistanceFunc, error) {
	if o.Distance != nil {
		return o.Distance, nil
	}
	if o.Similarity == nil {
		return nil, fmt.Errorf("%w: linkage needs a similarity or distance function", ontology.ErrInvalidInput)
	}
	group := o.Similarity
	return func(a, b *hposet.Set) float64 {
		return 1 - group.Score(a, b)
	}, nil
}

type pair struct{ i, j int }

// Linkage clusters sets and returns len(sets)-1 merges in merge order.
// Ties between equally close pairs go to the pair found first when
// scanning clusters in input order.
func Linkage(ctx context.Context, sets []*hposet.Set, opts Options) ([]Cluster, error) {
	distance, err := opts.distance()
	if err != nil {
		return nil, err
	}
	switch opts.Method {
	case Single, Complete, Average, Union:
	default:
		return nil, fmt.Errorf("%w: linkage method %s", ontology.ErrInvalidInput, opts.Method)
	}

	n := len(sets)
	if n < 2 {
		return []Cluster{}, nil
	}

	pairs := make([]pair, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, pair{i, j})
		}
	}
	values, err := pool.Map(ctx, "linkage.distances", pairs, opts.Workers, func(p pair) float64 {
		return distance(sets[p.i], sets[p.j])
	})
	if err != nil {
		return nil, err
	}

	// d is a symmetric n x n matrix indexed by slot. A merge keeps the
	// lower slot for the new cluster and retires the higher one.
	d := pool.GetFloat64Slice(n * n)
	defer pool.PutFloat64Slice(d)
	for idx, p := range pairs {
		d[p.i*n+p.j] = values[idx]
		d[p.j*n+p.i] = values[idx]
	}

	ids := make([]int, n)
	sizes := make([]int, n)
	active := make([]bool, n)
	members := make([]*hposet.Set, n)
	for i := range ids {
		ids[i], sizes[i], active[i], members[i] = i, 1, true, sets[i]
	}

	out := make([]Cluster, 0, n-1)
	for step := 0; step < n-1; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bi, bj := -1, -1
		var best float64
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if active[j] && (bi < 0 || d[i*n+j] < best) {
					bi, bj, best = i, j, d[i*n+j]
				}
			}
		}

		out = append(out, Cluster{
			Left:     min(ids[bi], ids[bj]),
			Right:    max(ids[bi], ids[bj]),
			Distance: best,
			Size:     sizes[bi] + sizes[bj],
		})

		var others []int
		for k := 0; k < n; k++ {
			if active[k] && k != bi && k != bj {
				others = append(others, k)
			}
		}

		switch opts.Method {
		case Single:
			for _, k := range others {
				set(d, n, bi, k, min(d[bi*n+k], d[bj*n+k]))
			}
		case Complete:
			for _, k := range others {
				set(d, n, bi, k, max(d[bi*n+k], d[bj*n+k]))
			}
		case Average:
			wi, wj := float64(sizes[bi]), float64(sizes[bj])
			for _, k := range others {
				set(d, n, bi, k, (wi*d[bi*n+k]+wj*d[bj*n+k])/(wi+wj))
			}
		case Union:
			merged := members[bi].Union(members[bj])
			updated, err := pool.Map(ctx, "linkage.union", others, opts.Workers, func(k int) float64 {
				return distance(merged, members[k])
			})
			if err != nil {
				return nil, err
			}
			for idx, k := range others {
				set(d, n, bi, k, updated[idx])
			}
			members[bi] = merged
		}

		sizes[bi] += sizes[bj]
		ids[bi] = n + step
		active[bj] = false
		members[bj] = nil
	}
	return out, nil
}

func set(d []float64, n, i, j int, v float64) {
	d[i*n+j] = v
	d[j*n+i] = v
}
