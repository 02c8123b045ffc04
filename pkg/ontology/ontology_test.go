package ontology

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	ont := buildFixture(t)

	t.Run("by id", func(t *testing.T) {
		term, err := ont.Term(14)
		require.NoError(t, err)
		assert.Equal(t, "Short femur", term.Name())
		assert.Equal(t, "HP:0000014 | Short femur", term.String())

		_, err = ont.Term(999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("by query", func(t *testing.T) {
		for _, q := range []string{"14", "HP:0000014", "hp:0000014", "Short femur", "short FEMUR"} {
			term, err := ont.TermByQuery(q)
			require.NoError(t, err, q)
			assert.Equal(t, TermID(14), term.ID(), q)
		}

		_, err := ont.TermByQuery("HP:nope")
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = ont.TermByQuery("hp:nope")
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = ont.TermByQuery("Long femur")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = ont.TermByQuery("  ")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("search", func(t *testing.T) {
		var ids []TermID
		for _, term := range ont.Search("short") {
			ids = append(ids, term.ID())
		}
		// obsolete 30 "obsolete Short thigh bone" is excluded
		assert.Equal(t, []TermID{13, 14, 20}, ids)
		assert.Empty(t, ont.Search(""))
	})

	t.Run("all terms is restartable", func(t *testing.T) {
		first := slices.Collect(ont.Terms())
		second := slices.Collect(ont.Terms())
		assert.Len(t, first, ont.Len())
		assert.Equal(t, len(first), len(second))
		assert.Equal(t, TermID(1), first[0].ID())
	})

	t.Run("obsolete terms", func(t *testing.T) {
		term := ont.MustTerm(30)
		assert.True(t, term.IsObsolete())
		repl, ok := term.ReplacedBy()
		assert.True(t, ok)
		assert.Equal(t, TermID(14), repl)

		_, ok = ont.MustTerm(31).ReplacedBy()
		assert.False(t, ok)
	})

	t.Run("modifiers", func(t *testing.T) {
		assert.True(t, ont.MustTerm(7).IsModifier())
		assert.False(t, ont.MustTerm(14).IsModifier())
	})

	t.Run("nil ontology", func(t *testing.T) {
		var nilOnt *Ontology
		_, err := nilOnt.Term(1)
		assert.ErrorIs(t, err, ErrNotInitialized)
		_, err = nilOnt.TermByName("All")
		assert.ErrorIs(t, err, ErrNotInitialized)
		_, err = nilOnt.Gene(1)
		assert.ErrorIs(t, err, ErrNotInitialized)
	})
}

func TestEntities(t *testing.T) {
	ont := buildFixture(t)

	genes := ont.Genes()
	require.Len(t, genes, 3)
	assert.Equal(t, GeneID(101), genes[0].ID())
	assert.Equal(t, 3, ont.EntityCount(KindGene))
	assert.Equal(t, 2, ont.EntityCount(KindOmim))
	assert.Equal(t, 1, ont.EntityCount(KindOrpha))

	g, err := ont.GeneBySymbol("genec")
	require.NoError(t, err)
	assert.Equal(t, GeneID(103), g.ID())
	assert.Equal(t, []TermID{7, 11}, g.Terms().IDs())

	e, err := ont.EntityByName(KindOmim, "Finger syndrome")
	require.NoError(t, err)
	assert.Equal(t, uint32(1002), e.NumericID())
	assert.Equal(t, KindOmim, e.Kind())

	e, err = ont.Entity(KindOrpha, 2001)
	require.NoError(t, err)
	assert.Equal(t, "Bone disease", e.Name())

	_, err = ont.Entity(KindOrpha, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = ont.EntityByName(KindGene, "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)

	ids, err := ont.EntitiesForTerm(12, KindGene)
	require.NoError(t, err)
	assert.Equal(t, []uint32{101}, ids)

	terms, err := ont.TermsForEntity(KindOmim, 1001)
	require.NoError(t, err)
	assert.Equal(t, []TermID{13}, terms.IDs())
}

func TestParseKinds(t *testing.T) {
	kind, err := ParseICKind("")
	require.NoError(t, err)
	assert.Equal(t, ICOmim, kind)

	kind, err = ParseICKind("Gene")
	require.NoError(t, err)
	assert.Equal(t, ICGene, kind)

	_, err = ParseICKind("mouse")
	assert.ErrorIs(t, err, ErrInvalidInput)

	ek, err := ParseEntityKind("orpha")
	require.NoError(t, err)
	assert.Equal(t, KindOrpha, ek)
	_, err = ParseEntityKind("decipher")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
