package similarity

import (
	"fmt"
	"strings"

	"github.com/orneryd/phenograph/pkg/hposet"
	"github.com/orneryd/phenograph/pkg/ontology"
	"github.com/orneryd/phenograph/pkg/pool"
)

// Combiner reduces a set-by-set similarity matrix to one score.
type Combiner uint8

const (
	// FunSimAvg averages the mean row maximum and the mean column maximum.
	FunSimAvg Combiner = iota
	// FunSimMax is the largest value of the whole matrix.
	FunSimMax
	// BMA (best match average) is the mean row maximum. It is not
	// symmetric unless both sets are equal.
	BMA
)

// DefaultCombiner is used when no combiner is named.
const DefaultCombiner = FunSimAvg

// ParseCombiner maps "funSimAvg", "funSimMax" or "BMA" (case-insensitive)
// to a Combiner. The empty string selects DefaultCombiner.
func ParseCombiner(name string) (Combiner, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return DefaultCombiner, nil
	case "funsimavg":
		return FunSimAvg, nil
	case "funsimmax":
		return FunSimMax, nil
	case "bma":
		return BMA, nil
	default:
		return 0, fmt.Errorf("%w: unknown combiner %q", ontology.ErrInvalidInput, name)
	}
}

func (c Combiner) String() string {
	switch c {
	case FunSimAvg:
		return "funSimAvg"
	case FunSimMax:
		return "funSimMax"
	case BMA:
		return "BMA"
	default:
		return fmt.Sprintf("Combiner(%d)", uint8(c))
	}
}

// GroupSimilarity scores pairs of term sets.
type GroupSimilarity struct {
	term     *TermSimilarity
	combiner Combiner
}

// NewGroup returns a set scorer built on term and combiner.
func NewGroup(term *TermSimilarity, combiner Combiner) *GroupSimilarity {
	return &GroupSimilarity{term: term, combiner: combiner}
}

// NewGroupByName parses all three names, see ParseMethod, ParseCombiner and
// ontology.ParseICKind.
func NewGroupByName(method, kind, combiner string) (*GroupSimilarity, error) {
	term, err := NewByName(method, kind)
	if err != nil {
		return nil, err
	}
	c, err := ParseCombiner(combiner)
	if err != nil {
		return nil, err
	}
	return NewGroup(term, c), nil
}

func (g *GroupSimilarity) Term() *TermSimilarity { return g.term }
func (g *GroupSimilarity) Combiner() Combiner    { return g.combiner }

// Score compares two term sets. Comparisons involving an empty set score 0.
func (g *GroupSimilarity) Score(a, b *hposet.Set) float64 {
	rowsTerms, colsTerms := a.Terms(), b.Terms()
	rows, cols := len(rowsTerms), len(colsTerms)
	if rows == 0 || cols == 0 {
		return 0
	}

	m := pool.GetFloat64Slice(rows * cols)
	defer pool.PutFloat64Slice(m)
	for i, ta := range rowsTerms {
		for j, tb := range colsTerms {
			m[i*cols+j] = g.term.Score(ta, tb)
		}
	}
	return combine(g.combiner, m, rows, cols)
}

// combine reduces a row-major rows x cols matrix.
func combine(c Combiner, m []float64, rows, cols int) float64 {
	switch c {
	case FunSimAvg:
		return (meanRowMax(m, rows, cols) + meanColMax(m, rows, cols)) / 2
	case FunSimMax:
		best := m[0]
		for _, v := range m[1:] {
			best = max(best, v)
		}
		return best
	case BMA:
		return meanRowMax(m, rows, cols)
	default:
		panic(fmt.Sprintf("similarity: invalid combiner %d", c))
	}
}

func meanRowMax(m []float64, rows, cols int) float64 {
	var sum float64
	for i := 0; i < rows; i++ {
		row := m[i*cols : (i+1)*cols]
		best := row[0]
		for _, v := range row[1:] {
			best = max(best, v)
		}
		sum += best
	}
	return sum / float64(rows)
}

func meanColMax(m []float64, rows, cols int) float64 {
	var sum float64
	for j := 0; j < cols; j++ {
		best := m[j]
		for i := 1; i < rows; i++ {
			best = max(best, m[i*cols+j])
		}
		sum += best
	}
	return sum / float64(cols)
}
