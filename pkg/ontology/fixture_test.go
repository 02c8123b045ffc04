package ontology

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildFixture returns a small ontology:
//
//	1 All
//	├── 5 Mode of inheritance
//	│   └── 7 Autosomal recessive inheritance
//	└── 118 Phenotypic abnormality
//	    ├── 10 Abnormal limb      ── 20 Short finger
//	    └── 11 Abnormal skeleton
//	        (10, 11) ── 12 Abnormal bone ── 13 Short bone ── 14 Short femur
//
// 30 is obsolete and replaced by 14, 31 is obsolete without replacement.
func buildFixture(t testing.TB) *Ontology {
	t.Helper()
	b := NewBuilder()
	b.SetVersion("test-release")
	terms := []RawTerm{
		{ID: 1, Name: "All"},
		{ID: 5, Name: "Mode of inheritance", Parents: []TermID{1}},
		{ID: 7, Name: "Autosomal recessive inheritance", Parents: []TermID{5}},
		{ID: 118, Name: "Phenotypic abnormality", Parents: []TermID{1}},
		{ID: 10, Name: "Abnormal limb", Parents: []TermID{118}},
		{ID: 11, Name: "Abnormal skeleton", Parents: []TermID{118}},
		{ID: 12, Name: "Abnormal bone", Parents: []TermID{11, 10}},
		{ID: 13, Name: "Short bone", Parents: []TermID{12}},
		{ID: 14, Name: "Short femur", Parents: []TermID{13}},
		{ID: 20, Name: "Short finger", Parents: []TermID{10}},
		{ID: 30, Name: "obsolete Short thigh bone", Obsolete: true, ReplacedBy: 14},
		{ID: 31, Name: "obsolete Weird bone", Obsolete: true},
	}
	for _, term := range terms {
		require.NoError(t, b.AddTerm(term))
	}

	b.AddEntity(KindGene, 101, "GENEA")
	b.AddEntity(KindGene, 102, "GENEB")
	b.AddEntity(KindGene, 103, "GENEC")
	require.NoError(t, b.Annotate(KindGene, 101, 14))
	require.NoError(t, b.Annotate(KindGene, 102, 20))
	require.NoError(t, b.Annotate(KindGene, 103, 11))
	require.NoError(t, b.Annotate(KindGene, 103, 7))
	b.LinkGeneDisease(101, 1001)

	b.AddEntity(KindOmim, 1001, "Femur syndrome")
	b.AddEntity(KindOmim, 1002, "Finger syndrome")
	require.NoError(t, b.Annotate(KindOmim, 1001, 13))
	require.NoError(t, b.Annotate(KindOmim, 1002, 20))

	b.AddEntity(KindOrpha, 2001, "Bone disease")
	require.NoError(t, b.Annotate(KindOrpha, 2001, 12))

	ont, err := b.Build()
	require.NoError(t, err)
	return ont
}
