package hposet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/phenograph/pkg/builtin"
	"github.com/orneryd/phenograph/pkg/ontology"
)

func loadOntology(t *testing.T) *ontology.Ontology {
	t.Helper()
	ont, err := builtin.Load()
	require.NoError(t, err)
	return ont
}

func TestConstruction(t *testing.T) {
	ont := loadOntology(t)

	t.Run("from ids deduplicates", func(t *testing.T) {
		set, err := New(ont, 1249, 252, 1249)
		require.NoError(t, err)
		assert.Equal(t, 2, set.Len())
		assert.Equal(t, []ontology.TermID{252, 1249}, set.IDs())
	})

	t.Run("unknown id is rejected", func(t *testing.T) {
		_, err := New(ont, 252, 9999999)
		assert.ErrorIs(t, err, ontology.ErrNotFound)
	})

	t.Run("from queries", func(t *testing.T) {
		set, err := FromQueries(ont, "Microcephaly", "HP:0001249", "7")
		require.NoError(t, err)
		assert.Equal(t, []ontology.TermID{7, 252, 1249}, set.IDs())

		_, err = FromQueries(ont, "Not a phenotype")
		assert.ErrorIs(t, err, ontology.ErrNotFound)
	})

	t.Run("from entity expands to the term closure", func(t *testing.T) {
		gene, err := ont.GeneBySymbol("NKX2-5")
		require.NoError(t, err)
		set, err := FromEntity(ont, gene)
		require.NoError(t, err)
		assert.Equal(t, []ontology.TermID{1, 118, 1626, 1627, 1631, 30680}, set.IDs())
	})

	t.Run("nil ontology", func(t *testing.T) {
		_, err := New(nil, 1)
		assert.ErrorIs(t, err, ontology.ErrNotInitialized)
	})
}

func TestSerialization(t *testing.T) {
	ont := loadOntology(t)

	t.Run("canonical ascending form", func(t *testing.T) {
		set, err := FromSerialized(ont, "118+7")
		require.NoError(t, err)
		assert.Equal(t, 2, set.Len())
		assert.Equal(t, "7+118", set.Serialize())
	})

	t.Run("round trip", func(t *testing.T) {
		set, err := New(ont, 31936, 252, 1631, 316)
		require.NoError(t, err)
		again, err := FromSerialized(ont, set.Serialize())
		require.NoError(t, err)
		assert.True(t, set.Group().Equal(again.Group()))
	})

	t.Run("empty string is the empty set", func(t *testing.T) {
		set, err := FromSerialized(ont, "")
		require.NoError(t, err)
		assert.Equal(t, 0, set.Len())
		assert.Equal(t, "", set.Serialize())
	})

	t.Run("malformed", func(t *testing.T) {
		for _, s := range []string{"7++118", "7+abc", "HP:0000007+118", "+"} {
			_, err := FromSerialized(ont, s)
			assert.ErrorIs(t, err, ontology.ErrInvalidInput, s)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := FromSerialized(ont, "7+8888888")
		assert.ErrorIs(t, err, ontology.ErrNotFound)
	})
}

func TestChildNodes(t *testing.T) {
	ont := loadOntology(t)

	set, err := New(ont, 118, 707, 1250, 12638, 252, 1631)
	require.NoError(t, err)
	children := set.ChildNodes()
	assert.Equal(t, []ontology.TermID{252, 1250, 1631}, children.IDs())

	// No survivor is an ancestor of another survivor
	for _, a := range children.IDs() {
		for _, b := range children.IDs() {
			assert.False(t, ont.IsAncestor(a, b), "%s is an ancestor of %s", a, b)
		}
	}

	// Receiver is unchanged
	assert.Equal(t, 6, set.Len())

	// Idempotent
	assert.Equal(t, children.IDs(), children.ChildNodes().IDs())
}

func TestRemoveModifier(t *testing.T) {
	ont := loadOntology(t)

	set, err := New(ont, 6, 7, 3577, 118, 252, 1250)
	require.NoError(t, err)
	assert.Equal(t, []ontology.TermID{118, 252, 1250}, set.RemoveModifier().IDs())

	set, err = FromSerialized(ont, "7+118")
	require.NoError(t, err)
	assert.Equal(t, "118", set.RemoveModifier().Serialize())
}

func TestReplaceObsolete(t *testing.T) {
	ont := loadOntology(t)

	// 100543 -> 100544 (obsolete) -> 1249; 284 has no replacement
	set, err := New(ont, 100543, 284, 252)
	require.NoError(t, err)
	replaced := set.ReplaceObsolete()
	assert.Equal(t, []ontology.TermID{252, 1249}, replaced.IDs())

	for _, term := range replaced.Terms() {
		assert.False(t, term.IsObsolete())
	}
}

func TestBasic(t *testing.T) {
	ont := loadOntology(t)

	// 100543 resolves to 1249, 284 has no replacement, 7 is a modifier,
	// 118 and 707 are ancestors of other members.
	ids := []ontology.TermID{100543, 284, 7, 118, 707, 1250, 252}
	set, err := Basic(ont, ids...)
	require.NoError(t, err)
	assert.Equal(t, []ontology.TermID{252, 1249, 1250}, set.IDs())
	assert.Equal(t, set.IDs(), set.Basic().IDs())

	full, err := New(ont, ids...)
	require.NoError(t, err)
	assert.Equal(t, set.IDs(), full.Basic().IDs())
	assert.Equal(t, 7, full.Len())

	_, err = Basic(ont, 9999999)
	assert.ErrorIs(t, err, ontology.ErrNotFound)
}

func TestPhenotypes(t *testing.T) {
	ont := loadOntology(t)

	set, err := Phenotypes(ont, 100543, 284, 7, 118, 707, 1250, 252)
	require.NoError(t, err)
	assert.Equal(t, []ontology.TermID{118, 252, 707, 1249, 1250}, set.IDs())
	for _, term := range set.Terms() {
		assert.False(t, term.IsObsolete())
		assert.False(t, term.IsModifier())
	}
}

func TestPreset(t *testing.T) {
	ont := loadOntology(t)
	set, err := New(ont, 100543, 7, 118, 1250)
	require.NoError(t, err)

	tests := []struct {
		name string
		want []ontology.TermID
	}{
		{"", []ontology.TermID{7, 118, 1250, 100543}},
		{"none", []ontology.TermID{7, 118, 1250, 100543}},
		{"Basic", []ontology.TermID{1249, 1250}},
		{"pheno", []ontology.TermID{118, 1249, 1250}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePreset(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Apply(set).IDs())
		})
	}

	_, err = ParsePreset("strict")
	assert.ErrorIs(t, err, ontology.ErrInvalidInput)
	assert.Equal(t, "basic", PresetBasic.String())
}

func TestAnnotations(t *testing.T) {
	ont := loadOntology(t)

	set, err := New(ont, 1631, 7)
	require.NoError(t, err)

	var symbols []string
	for _, g := range set.AllGenes() {
		symbols = append(symbols, g.Symbol())
	}
	// Ascending by NCBI id: NKX2-5 (1482), TBX5 (6910), ASPM (259266)
	assert.Equal(t, []string{"NKX2-5", "TBX5", "ASPM"}, symbols)

	var omim []ontology.OmimDiseaseID
	for _, d := range set.OmimDiseases() {
		omim = append(omim, d.ID())
	}
	assert.Equal(t, []ontology.OmimDiseaseID{142900, 608716}, omim)

	orpha := set.OrphaDiseases()
	require.Len(t, orpha, 1)
	assert.Equal(t, ontology.OrphaDiseaseID(392), orpha[0].ID())
}

func TestInformationContent(t *testing.T) {
	ont := loadOntology(t)

	set, err := New(ont, 1631, 1)
	require.NoError(t, err)
	summary := set.InformationContent(ontology.ICGene)
	ic1631 := ont.ICOf(1631, ontology.ICGene)
	assert.InDelta(t, ic1631, summary.Max, 1e-12)
	assert.InDelta(t, ic1631, summary.Total, 1e-12)
	assert.InDelta(t, ic1631/2, summary.Mean, 1e-12)
	assert.Len(t, summary.Values, 2)

	empty, err := New(ont)
	require.NoError(t, err)
	assert.Equal(t, 0.0, empty.InformationContent(ontology.ICOmim).Max)
}
