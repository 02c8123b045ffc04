package ontology

import (
	"fmt"
	"math"
	"strings"
)

// ICKind selects which annotation background an information content value
// is computed against.
type ICKind uint8

const (
	ICOmim ICKind = iota
	ICOrpha
	ICGene
	// ICCustom holds caller supplied values, see Ontology.WithCustomIC.
	ICCustom
)

// DefaultICKind is used when callers do not name a kind.
const DefaultICKind = ICOmim

func (k ICKind) String() string {
	switch k {
	case ICOmim:
		return "omim"
	case ICOrpha:
		return "orpha"
	case ICGene:
		return "gene"
	case ICCustom:
		return "custom"
	default:
		return fmt.Sprintf("ICKind(%d)", uint8(k))
	}
}

// ParseICKind maps "omim", "orpha", "gene" and "custom" to a kind. The empty
// string selects DefaultICKind.
func ParseICKind(s string) (ICKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultICKind, nil
	case "omim":
		return ICOmim, nil
	case "orpha":
		return ICOrpha, nil
	case "gene":
		return ICGene, nil
	case "custom":
		return ICCustom, nil
	default:
		return 0, fmt.Errorf("%w: unknown information content kind %q", ErrInvalidInput, s)
	}
}

// InformationContent holds the per-kind IC values of a single term.
type InformationContent struct {
	Gene   float64 `json:"gene"`
	Omim   float64 `json:"omim"`
	Orpha  float64 `json:"orpha"`
	Custom float64 `json:"custom"`
}

// Get returns the value for kind.
func (ic InformationContent) Get(kind ICKind) float64 {
	switch kind {
	case ICGene:
		return ic.Gene
	case ICOmim:
		return ic.Omim
	case ICOrpha:
		return ic.Orpha
	case ICCustom:
		return ic.Custom
	default:
		panic(fmt.Sprintf("ontology: invalid IC kind %d", kind))
	}
}

// informationContent returns -ln(count/total), or 0 when either is zero.
func informationContent(count, total int) float64 {
	if count == 0 || total == 0 {
		return 0
	}
	return -math.Log(float64(count) / float64(total))
}

// WithCustomIC returns a handle that shares every structure with o except
// the IC table, where the custom slot of each listed term is replaced.
// Terms not listed keep a custom IC of 0. The receiver is left unchanged.
func (o *Ontology) WithCustomIC(values map[TermID]float64) (*Ontology, error) {
	if o == nil {
		return nil, ErrNotInitialized
	}
	ic := make([]InformationContent, len(o.ic))
	copy(ic, o.ic)
	for i := range ic {
		ic[i].Custom = 0
	}
	for id, v := range values {
		idx, ok := o.index[id]
		if !ok {
			return nil, fmt.Errorf("%w: term %s", ErrNotFound, id)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, fmt.Errorf("%w: custom information content %v for %s", ErrInvalidInput, v, id)
		}
		ic[idx].Custom = v
	}
	clone := *o
	clone.ic = ic
	return &clone, nil
}
