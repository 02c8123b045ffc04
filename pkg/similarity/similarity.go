// Package similarity scores how alike two terms, or two term sets, are.
//
// Term similarity combines the information content (IC) of both terms with
// the IC of what they share in the ontology. Every algorithm is a pure
// function of (term a, term b, IC kind), so one TermSimilarity can be used
// from any number of goroutines.
//
// Example:
//
//	sim, err := similarity.NewByName("graphic", "omim")
//	if err != nil {
//		return err
//	}
//	score := sim.Score(ont.MustTerm(252), ont.MustTerm(1249))
//
// Set similarity builds the full member-by-member matrix and reduces it
// with a Combiner:
//
//	group := similarity.NewGroup(sim, similarity.FunSimAvg)
//	score := group.Score(patientA, patientB)
package similarity

import (
	"fmt"
	"math"
	"strings"

	"github.com/orneryd/phenograph/pkg/ontology"
)

// Method selects a term-term similarity algorithm.
type Method uint8

const (
	// Graphic divides the IC of all shared ancestors by the IC of all
	// ancestors of either term.
	Graphic Method = iota
	// Resnik is the IC of the most informative common ancestor (MICA).
	Resnik
	// Lin is 2*IC(MICA) / (IC(a)+IC(b)).
	Lin
	// JC is 1 / (1 + IC(a) + IC(b) - 2*IC(MICA)).
	JC
	// Relevance is Lin scaled by 1 - p(MICA), p being the annotation
	// frequency of the MICA.
	Relevance
	// InformationCoefficient is Lin scaled by 1 - 1/(1+IC(MICA)),
	// normalised so that a term compared with itself scores 1.
	InformationCoefficient
	// Distance is 1 / (1 + d), d being the number of edges between the
	// terms through their nearest common ancestor.
	Distance
)

// DefaultMethod is used when no method is named.
const DefaultMethod = Graphic

var methodNames = map[string]Method{
	"graphic": Graphic,
	"resnik":  Resnik,
	"lin":     Lin,
	"jc":      JC,
	"jc2":     JC,
	"rel":     Relevance,
	"ic":      InformationCoefficient,
	"dist":    Distance,
}

// ParseMethod maps an algorithm name to a Method. "jc" and "jc2" are the
// same algorithm. The empty string selects DefaultMethod.
func ParseMethod(name string) (Method, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return DefaultMethod, nil
	}
	m, ok := methodNames[key]
	if !ok {
		return 0, fmt.Errorf("%w: unknown similarity method %q", ontology.ErrInvalidInput, name)
	}
	return m, nil
}

func (m Method) String() string {
	switch m {
	case Graphic:
		return "graphic"
	case Resnik:
		return "resnik"
	case Lin:
		return "lin"
	case JC:
		return "jc"
	case Relevance:
		return "rel"
	case InformationCoefficient:
		return "ic"
	case Distance:
		return "dist"
	default:
		return fmt.Sprintf("Method(%d)", uint8(m))
	}
}

// TermSimilarity scores pairs of terms with one algorithm and IC kind.
type TermSimilarity struct {
	method Method
	kind   ontology.ICKind
}

// New returns a TermSimilarity for method and kind.
func New(method Method, kind ontology.ICKind) *TermSimilarity {
	return &TermSimilarity{method: method, kind: kind}
}

// NewByName parses method and kind names, see ParseMethod and
// ontology.ParseICKind.
func NewByName(method, kind string) (*TermSimilarity, error) {
	m, err := ParseMethod(method)
	if err != nil {
		return nil, err
	}
	k, err := ontology.ParseICKind(kind)
	if err != nil {
		return nil, err
	}
	return New(m, k), nil
}

func (s *TermSimilarity) Method() Method        { return s.method }
func (s *TermSimilarity) Kind() ontology.ICKind { return s.kind }

// Score returns the similarity of a and b. Both terms must come from the
// same ontology.
func (s *TermSimilarity) Score(a, b ontology.Term) float64 {
	switch s.method {
	case Graphic:
		return s.graphic(a, b)
	case Resnik:
		return s.resnik(a, b)
	case Lin:
		return s.lin(a, b)
	case JC:
		return s.jc(a, b)
	case Relevance:
		return s.relevance(a, b)
	case InformationCoefficient:
		return s.informationCoefficient(a, b)
	case Distance:
		return distance(a, b)
	default:
		panic(fmt.Sprintf("similarity: invalid method %d", s.method))
	}
}

func (s *TermSimilarity) ic(t ontology.Term) float64 {
	return t.InformationContent().Get(s.kind)
}

// resnik returns the IC of the most informative common ancestor.
func (s *TermSimilarity) resnik(a, b ontology.Term) float64 {
	ont := a.Ontology()
	best := 0.0
	for id := range a.CommonAncestors(b).All() {
		best = max(best, ont.ICOf(id, s.kind))
	}
	return best
}

// shared returns the IC of both terms and of their most informative common
// ancestor, capped at the smaller of the two. An unannotated descendant has
// IC 0 and can sit below an informative ancestor.
func (s *TermSimilarity) shared(a, b ontology.Term) (icA, icB, mica float64) {
	icA, icB = s.ic(a), s.ic(b)
	return icA, icB, min(s.resnik(a, b), icA, icB)
}

func (s *TermSimilarity) lin(a, b ontology.Term) float64 {
	icA, icB, mica := s.shared(a, b)
	if icA+icB == 0 {
		return 0
	}
	return 2 * mica / (icA + icB)
}

func (s *TermSimilarity) jc(a, b ontology.Term) float64 {
	icA, icB, mica := s.shared(a, b)
	return 1 / (1 + icA + icB - 2*mica)
}

func (s *TermSimilarity) relevance(a, b ontology.Term) float64 {
	icA, icB, mica := s.shared(a, b)
	if icA+icB == 0 {
		return 0
	}
	frequency := math.Exp(-mica)
	return 2 * mica / (icA + icB) * (1 - frequency)
}

func (s *TermSimilarity) informationCoefficient(a, b ontology.Term) float64 {
	icA, icB, mica := s.shared(a, b)
	if icA+icB == 0 || mica == 0 {
		return 0
	}
	lin := 2 * mica / (icA + icB)
	self := 1 - 1/(1+max(icA, icB))
	return lin * (1 - 1/(1+mica)) / self
}

func (s *TermSimilarity) graphic(a, b ontology.Term) float64 {
	ont := a.Ontology()
	ancA, ancB := a.Ancestors(), b.Ancestors()

	var shared, union float64
	for id := range ancA.Union(ancB).All() {
		v := ont.ICOf(id, s.kind)
		union += v
		if ancA.Contains(id) && ancB.Contains(id) {
			shared += v
		}
	}
	if union == 0 {
		return 0
	}
	return shared / union
}

func distance(a, b ontology.Term) float64 {
	d, ok := a.GraphDistance(b)
	if !ok {
		return 0
	}
	return 1 / (1 + float64(d))
}
