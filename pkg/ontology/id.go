package ontology

import (
	"fmt"
	"strconv"
	"strings"
)

// TermID is the numeric identity of an ontology term. HP:0000118 is TermID(118).
type TermID uint32

const (
	// Root is the single root term, HP:0000001 "All".
	Root TermID = 1
	// PhenotypicAbnormality roots the subtree of actual phenotypes. Terms
	// outside of it are modifiers (inheritance, onset, frequency, ...).
	PhenotypicAbnormality TermID = 118

	termPrefix = "HP:"
)

// String returns the zero-padded prefixed form, e.g. "HP:0000118".
func (id TermID) String() string {
	return fmt.Sprintf("%s%07d", termPrefix, uint32(id))
}

// ParseTermID parses a term id. The "HP:" prefix matches in any case and
// may be omitted, so "HP:0000118", "hp:0000118", "0000118" and "118" all
// name the same term.
func ParseTermID(s string) (TermID, error) {
	raw, _ := cutTermPrefix(strings.TrimSpace(s))
	if raw == "" {
		return 0, fmt.Errorf("%w: invalid term id %q", ErrInvalidInput, s)
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid term id %q", ErrInvalidInput, s)
	}
	return TermID(n), nil
}

// cutTermPrefix strips a leading "HP:" in any case.
func cutTermPrefix(s string) (string, bool) {
	if len(s) >= len(termPrefix) && strings.EqualFold(s[:len(termPrefix)], termPrefix) {
		return s[len(termPrefix):], true
	}
	return s, false
}

// GeneID is an NCBI gene id.
type GeneID uint32

func (id GeneID) String() string { return fmt.Sprintf("NCBIGene:%d", uint32(id)) }

// OmimDiseaseID is an OMIM disease id.
type OmimDiseaseID uint32

func (id OmimDiseaseID) String() string { return fmt.Sprintf("OMIM:%d", uint32(id)) }

// OrphaDiseaseID is an Orphanet disease id.
type OrphaDiseaseID uint32

func (id OrphaDiseaseID) String() string { return fmt.Sprintf("ORPHA:%d", uint32(id)) }

// ParsePrefixedID splits "OMIM:123456" into its prefix and numeric part.
func ParsePrefixedID(s string) (string, uint32, error) {
	prefix, num, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || prefix == "" {
		return "", 0, fmt.Errorf("%w: invalid prefixed id %q", ErrInvalidInput, s)
	}
	n, err := strconv.ParseUint(num, 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("%w: invalid prefixed id %q", ErrInvalidInput, s)
	}
	return prefix, uint32(n), nil
}
