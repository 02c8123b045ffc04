package similarity

import (
	"context"

	"github.com/orneryd/phenograph/pkg/hposet"
	"github.com/orneryd/phenograph/pkg/ontology"
	"github.com/orneryd/phenograph/pkg/pool"
)

// TermPair is one input of BatchSimilarity.
type TermPair struct {
	A, B ontology.Term
}

// SetPair is one input of BatchSetSimilarity.
type SetPair struct {
	A, B *hposet.Set
}

// ScoreMany compares term with every term of others in parallel. Results
// are index-aligned with others.
func (s *TermSimilarity) ScoreMany(ctx context.Context, term ontology.Term, others []ontology.Term, workers int) ([]float64, error) {
	return pool.Map(ctx, "similarity.terms", others, workers, func(other ontology.Term) float64 {
		return s.Score(term, other)
	})
}

// ScoreMany compares set with every set of others in parallel. Results are
// index-aligned with others.
func (g *GroupSimilarity) ScoreMany(ctx context.Context, set *hposet.Set, others []*hposet.Set, workers int) ([]float64, error) {
	return pool.Map(ctx, "similarity.sets", others, workers, func(other *hposet.Set) float64 {
		return g.Score(set, other)
	})
}

// BatchSimilarity scores every pair in parallel. Results are index-aligned
// with pairs.
func BatchSimilarity(ctx context.Context, s *TermSimilarity, pairs []TermPair, workers int) ([]float64, error) {
	return pool.Map(ctx, "similarity.term_pairs", pairs, workers, func(p TermPair) float64 {
		return s.Score(p.A, p.B)
	})
}

// BatchSetSimilarity scores every pair of sets in parallel. Results are
// index-aligned with pairs.
func BatchSetSimilarity(ctx context.Context, g *GroupSimilarity, pairs []SetPair, workers int) ([]float64, error) {
	return pool.Map(ctx, "similarity.set_pairs", pairs, workers, func(p SetPair) float64 {
		return g.Score(p.A, p.B)
	})
}
