package hposet

import (
	"gonum.org/v1/gonum/floats"

	"github.com/orneryd/phenograph/pkg/ontology"
)

// ICSummary aggregates the information content of all members for one kind.
type ICSummary struct {
	Mean   float64   `json:"mean"`
	Total  float64   `json:"total"`
	Max    float64   `json:"max"`
	Values []float64 `json:"values"`
}

// InformationContent summarises member IC for kind. The empty set yields
// all zeros.
func (s *Set) InformationContent(kind ontology.ICKind) ICSummary {
	values := make([]float64, 0, s.ids.Len())
	for id := range s.ids.All() {
		values = append(values, s.ont.ICOf(id, kind))
	}
	if len(values) == 0 {
		return ICSummary{Values: values}
	}
	total := floats.Sum(values)
	return ICSummary{
		Mean:   total / float64(len(values)),
		Total:  total,
		Max:    floats.Max(values),
		Values: values,
	}
}
