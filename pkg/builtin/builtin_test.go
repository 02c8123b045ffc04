package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/phenograph/pkg/ontology"
)

func TestLoad(t *testing.T) {
	ont, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "2024-04-26", ont.Version())
	assert.Equal(t, 40, ont.Len())
	assert.Equal(t, 8, ont.EntityCount(ontology.KindGene))
	assert.Equal(t, 6, ont.EntityCount(ontology.KindOmim))
	assert.Equal(t, 3, ont.EntityCount(ontology.KindOrpha))

	again, err := Load()
	require.NoError(t, err)
	assert.Same(t, ont, again, "builtin ontology is built once")
}

func TestBuiltinScenarios(t *testing.T) {
	ont, err := Load()
	require.NoError(t, err)

	t.Run("root has no ancestors", func(t *testing.T) {
		d, err := ont.ShortestPathToRoot(ontology.Root)
		require.NoError(t, err)
		assert.Equal(t, 0, d)
		parents, err := ont.Ancestors(ontology.Root, false)
		require.NoError(t, err)
		assert.True(t, parents.IsEmpty())
	})

	t.Run("eight edges to root", func(t *testing.T) {
		term, err := ont.TermByQuery("Delayed ability to walk")
		require.NoError(t, err)
		d, err := ont.ShortestPathToRoot(term.ID())
		require.NoError(t, err)
		assert.Equal(t, 8, d)
	})

	t.Run("root carries no information", func(t *testing.T) {
		ic, err := ont.InformationContent(ontology.Root)
		require.NoError(t, err)
		assert.Equal(t, ontology.InformationContent{}, ic)
	})

	t.Run("NOT rows and other databases are skipped", func(t *testing.T) {
		d, err := ont.OmimDisease(142900)
		require.NoError(t, err)
		assert.False(t, d.Terms().Contains(252))
		_, err = ont.EntityByName(ontology.KindOmim, "Wolf-Hirschhorn syndrome")
		assert.ErrorIs(t, err, ontology.ErrNotFound)
	})

	t.Run("gene disease links", func(t *testing.T) {
		g, err := ont.GeneBySymbol("MECP2")
		require.NoError(t, err)
		assert.Equal(t, []ontology.OmimDiseaseID{312750}, g.OmimDiseases())

		cdkl5, err := ont.GeneBySymbol("CDKL5")
		require.NoError(t, err)
		assert.Empty(t, cdkl5.OmimDiseases(), "only OMIM links are kept")
	})

	t.Run("multiple inheritance", func(t *testing.T) {
		term, err := ont.TermByQuery("HP:0000316")
		require.NoError(t, err)
		assert.Equal(t, []ontology.TermID{271, 478}, term.Parents().IDs())
		assert.Equal(t, []ontology.TermID{152, 478}, term.Categories().IDs())
	})
}
