// Package enrichment finds genes or diseases that are over-represented in a
// term set, using a one-sided hypergeometric test.
//
// For a sample of n terms drawn from an ontology of N terms, an entity whose
// annotation closure covers K terms is expected to hit n*K/N of them. The
// p-value is the probability of hitting at least the observed k by chance.
package enrichment

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/orneryd/phenograph/pkg/hposet"
	"github.com/orneryd/phenograph/pkg/ontology"
	"github.com/orneryd/phenograph/pkg/pool"
)

// MethodHypergeom is the only implemented enrichment method.
const MethodHypergeom = "hypergeom"

// Result is the enrichment of one entity.
type Result struct {
	Entity ontology.Annotation `json:"entity"`
	// Count is the number of sample terms whose closure contains the entity.
	Count  int     `json:"count"`
	PValue float64 `json:"pvalue"`
	Fold   float64 `json:"enrichment"`
}

// Model runs enrichment for one entity kind against one ontology.
type Model struct {
	ont  *ontology.Ontology
	kind ontology.EntityKind
}

// NewModel returns a model for kind.
func NewModel(ont *ontology.Ontology, kind ontology.EntityKind) (*Model, error) {
	if ont == nil {
		return nil, ontology.ErrNotInitialized
	}
	switch kind {
	case ontology.KindGene, ontology.KindOmim, ontology.KindOrpha:
	default:
		return nil, fmt.Errorf("%w: entity kind %s", ontology.ErrInvalidInput, kind)
	}
	return &Model{ont: ont, kind: kind}, nil
}

// Kind returns the entity kind the model enriches.
func (m *Model) Kind() ontology.EntityKind { return m.kind }

// Enrichment runs method on set. The empty string selects "hypergeom"; any
// other name fails with ontology.ErrUnsupported.
func (m *Model) Enrichment(method string, set *hposet.Set) ([]Result, error) {
	if err := CheckMethod(method); err != nil {
		return nil, err
	}
	return m.Hypergeom(set), nil
}

// CheckMethod reports whether method names an implemented enrichment method.
func CheckMethod(method string) error {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "", MethodHypergeom:
		return nil
	default:
		return fmt.Errorf("%w: enrichment method %q", ontology.ErrUnsupported, method)
	}
}

// Hypergeom returns one result per entity annotated to at least one member
// of set, sorted by ascending p-value. Entities with equal p-values stay in
// ascending id order.
func (m *Model) Hypergeom(set *hposet.Set) []Result {
	counts := make(map[uint32]int)
	for id := range set.Group().All() {
		entities, err := m.ont.EntitiesForTerm(id, m.kind)
		if err != nil {
			panic(fmt.Sprintf("enrichment: set member %s does not resolve: %v", id, err))
		}
		for _, e := range entities {
			counts[e]++
		}
	}

	ids := make([]uint32, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	n, total := set.Len(), m.ont.Len()
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		entity, err := m.ont.Entity(m.kind, id)
		if err != nil {
			panic(fmt.Sprintf("enrichment: annotation %d does not resolve: %v", id, err))
		}
		population, err := m.ont.EntityTermCount(m.kind, id)
		if err != nil {
			panic(fmt.Sprintf("enrichment: annotation %d does not resolve: %v", id, err))
		}
		k := counts[id]
		results = append(results, Result{
			Entity: entity,
			Count:  k,
			PValue: HypergeomSurvival(k, n, population, total),
			Fold:   (float64(k) / float64(n)) / (float64(population) / float64(total)),
		})
	}
	slices.SortStableFunc(results, func(a, b Result) int {
		return cmp.Compare(a.PValue, b.PValue)
	})
	return results
}

// Batch enriches every set in parallel. Results are index-aligned with sets.
func Batch(ctx context.Context, m *Model, sets []*hposet.Set, workers int) ([][]Result, error) {
	return pool.Map(ctx, "enrichment."+m.kind.String(), sets, workers, m.Hypergeom)
}

// HypergeomSurvival returns P(X >= k) for X ~ Hypergeometric(N, K, n): the
// probability of drawing at least k successes in n draws without
// replacement from a population of N containing K successes.
func HypergeomSurvival(k, n, K, N int) float64 {
	lo := max(k, n-(N-K), 0)
	hi := min(n, K)
	if k <= max(0, n-(N-K)) {
		return 1
	}
	if lo > hi {
		return 0
	}

	denom := logChoose(N, n)
	terms := make([]float64, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		terms = append(terms, logChoose(K, i)+logChoose(N-K, n-i)-denom)
	}
	p := math.Exp(floats.LogSumExp(terms))
	return min(max(p, 0), 1)
}

func logChoose(n, k int) float64 {
	a, _ := math.Lgamma(float64(n + 1))
	b, _ := math.Lgamma(float64(k + 1))
	c, _ := math.Lgamma(float64(n - k + 1))
	return a - b - c
}
