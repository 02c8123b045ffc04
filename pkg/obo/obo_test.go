package obo

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/phenograph/pkg/ontology"
)

const testOBO = `format-version: 1.2
data-version: hp/releases/2024-01-01
ontology: hp

[Term]
id: HP:0000001
name: All

[Term]
id: HP:0000118
name: Phenotypic abnormality
is_a: HP:0000001 ! All

[Term]
id: HP:0000007
name: Autosomal recessive inheritance
is_a: HP:0000001 ! All

[Term]
id: HP:0000152
name: Abnormality of head or neck
def: "An abnormality of head and neck." [HPO:probinson]
synonym: "Head and neck abnormality" EXACT layperson []
is_a: HP:0000118 ! Phenotypic abnormality

[Term]
id: HP:0000252
name: Microcephaly
is_a: HP:0000152 ! Abnormality of head or neck

[Term]
id: HP:0000284
name: obsolete Abnormality of the ocular region
is_obsolete: true
replaced_by: HP:0000252

[Typedef]
id: part_of
name: part of
`

const testGenes = "ncbi_gene_id\tgene_symbol\thpo_id\thpo_name\tfrequency\tdisease_id\n" +
	"259266\tASPM\tHP:0000252\tMicrocephaly\t-\tOMIM:608716\n" +
	"259266\tASPM\tHP:0000007\tAutosomal recessive inheritance\t-\tOMIM:608716\n" +
	"4204\tMECP2\tHP:0000152\tAbnormality of head or neck\t-\tORPHA:778\n"

const testTransitiveGenes = "hpo_id\thpo_name\tncbi_gene_id\tgene_symbol\tdisease_id\n" +
	"HP:0000252\tMicrocephaly\t259266\tASPM\tOMIM:608716\n" +
	"HP:0000152\tAbnormality of head or neck\t259266\tASPM\tOMIM:608716\n"

const testDiseases = "#description: test\n" +
	"database_id\tdisease_name\tqualifier\thpo_id\treference\n" +
	"OMIM:608716\tMicrocephaly 5\t\tHP:0000252\tPMID:1\n" +
	"OMIM:608716\tMicrocephaly 5\tNOT\tHP:0000152\tPMID:1\n" +
	"ORPHA:2512\tPrimary microcephaly\t\tHP:0000252\tORPHA:2512\n" +
	"DECIPHER:18\tSomething\t\tHP:0000252\tDECIPHER:18\n"

func testFS() fstest.MapFS {
	return fstest.MapFS{
		OntologyFile:       {Data: []byte(testOBO)},
		GeneFile:           {Data: []byte(testGenes)},
		TransitiveGeneFile: {Data: []byte(testTransitiveGenes)},
		DiseaseFile:        {Data: []byte(testDiseases)},
	}
}

func TestLoad(t *testing.T) {
	ont, err := Load(context.Background(), testFS(), "testdata", Options{})
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01", ont.Version())
	assert.Equal(t, 6, ont.Len())

	micro, err := ont.TermByName("Microcephaly")
	require.NoError(t, err)
	assert.Equal(t, []ontology.TermID{152}, micro.Parents().IDs())

	obsolete, err := ont.Term(284)
	require.NoError(t, err)
	assert.True(t, obsolete.IsObsolete())
	repl, ok := obsolete.ReplacedBy()
	assert.True(t, ok)
	assert.Equal(t, ontology.TermID(252), repl)

	aspm, err := ont.GeneBySymbol("ASPM")
	require.NoError(t, err)
	assert.Equal(t, []ontology.TermID{7, 252}, aspm.Terms().IDs())
	assert.Equal(t, []ontology.OmimDiseaseID{608716}, aspm.OmimDiseases())

	d, err := ont.OmimDisease(608716)
	require.NoError(t, err)
	assert.Equal(t, "Microcephaly 5", d.Name())
	assert.Equal(t, []ontology.TermID{252}, d.Terms().IDs(), "NOT rows are skipped")

	assert.Equal(t, 1, ont.EntityCount(ontology.KindOrpha))
	assert.Equal(t, 1, ont.EntityCount(ontology.KindOmim), "DECIPHER rows are skipped")
}

func TestLoadTransitive(t *testing.T) {
	ont, err := Load(context.Background(), testFS(), "testdata", Options{Transitive: true})
	require.NoError(t, err)

	aspm, err := ont.GeneBySymbol("ASPM")
	require.NoError(t, err)
	assert.Equal(t, []ontology.TermID{152, 252}, aspm.Terms().IDs())
	_, err = ont.GeneBySymbol("MECP2")
	assert.ErrorIs(t, err, ontology.ErrNotFound, "only the transitive file is read")
}

func TestLoadMissingFile(t *testing.T) {
	for _, name := range []string{OntologyFile, GeneFile, DiseaseFile} {
		t.Run(name, func(t *testing.T) {
			fsys := testFS()
			delete(fsys, name)

			_, err := Load(context.Background(), fsys, "testdata", Options{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ontology.ErrConstruction)
			assert.ErrorIs(t, err, fs.ErrNotExist)

			var fe *ontology.FileError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, filepath.Join("testdata", name), fe.Path)
		})
	}
}

func TestLoadDirMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadDir(context.Background(), dir, Options{})
	assert.ErrorIs(t, err, ontology.ErrConstruction)
	assert.Contains(t, err.Error(), filepath.Join(dir, OntologyFile))
}

func TestLoadMalformed(t *testing.T) {
	t.Run("bad is_a reports the line", func(t *testing.T) {
		fsys := testFS()
		fsys[OntologyFile] = &fstest.MapFile{Data: []byte(strings.Replace(testOBO, "is_a: HP:0000152", "is_a: HP:XYZ", 1))}
		_, err := Load(context.Background(), fsys, "testdata", Options{})
		var fe *ontology.FileError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, 29, fe.Line)
		assert.ErrorIs(t, err, ontology.ErrInvalidInput)
	})

	t.Run("duplicate term", func(t *testing.T) {
		fsys := testFS()
		dup := testOBO + "\n[Term]\nid: HP:0000252\nname: Microcephaly again\nis_a: HP:0000118\n"
		fsys[OntologyFile] = &fstest.MapFile{Data: []byte(dup)}
		_, err := Load(context.Background(), fsys, "testdata", Options{})
		assert.ErrorIs(t, err, ontology.ErrConstruction)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("annotation to unknown term", func(t *testing.T) {
		fsys := testFS()
		fsys[GeneFile] = &fstest.MapFile{Data: []byte(testGenes + "1\tX\tHP:9999999\tNope\t-\t-\n")}
		_, err := Load(context.Background(), fsys, "testdata", Options{})
		assert.ErrorIs(t, err, ontology.ErrConstruction)
	})

	t.Run("short row", func(t *testing.T) {
		fsys := testFS()
		fsys[DiseaseFile] = &fstest.MapFile{Data: []byte(testDiseases + "OMIM:1\tBroken\n")}
		_, err := Load(context.Background(), fsys, "testdata", Options{})
		var fe *ontology.FileError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, 7, fe.Line)
	})
}
