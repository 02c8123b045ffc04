package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/phenograph/pkg/builtin"
	"github.com/orneryd/phenograph/pkg/ontology"
)

func TestRoundTrip(t *testing.T) {
	ont, err := builtin.Load()
	require.NoError(t, err)

	data, err := Encode(ont)
	require.NoError(t, err)
	assert.Equal(t, magic, string(data[:4]))

	decoded, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, ont.Version(), decoded.Version())
	assert.Equal(t, ont.Len(), decoded.Len())
	for term := range ont.Terms() {
		other, err := decoded.Term(term.ID())
		require.NoError(t, err)
		assert.Equal(t, term.Name(), other.Name())
		assert.Equal(t, term.IsObsolete(), other.IsObsolete())
		assert.True(t, term.Parents().Equal(other.Parents()))
		assert.Equal(t, term.Genes(), other.Genes())
		assert.Equal(t, term.InformationContent(), other.InformationContent())
	}
	assert.Equal(t, ont.Genes(), decoded.Genes())
	assert.Equal(t, ont.OmimDiseases(), decoded.OmimDiseases())
	assert.Equal(t, ont.OrphaDiseases(), decoded.OrphaDiseases())

	again, err := Encode(decoded)
	require.NoError(t, err)
	assert.Equal(t, data, again, "encoding is deterministic")
}

func TestDecodeCorrupt(t *testing.T) {
	ont, err := builtin.Load()
	require.NoError(t, err)
	data, err := Encode(ont)
	require.NoError(t, err)

	t.Run("flipped byte", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[len(bad)/2] ^= 0xff
		_, err := Decode(bad)
		assert.ErrorIs(t, err, ErrCorrupt)
		assert.ErrorIs(t, err, ontology.ErrConstruction)
	})

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte("XXXX"), data[4:]...)
		_, err := Decode(bad)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := Decode([]byte("PHG1"))
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestFiles(t *testing.T) {
	ont, err := builtin.Load()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "hpo.snapshot")
	require.NoError(t, WriteFile(path, ont))

	loaded, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ont.Len(), loaded.Len())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	sum, err := Checksum(data)
	require.NoError(t, err)
	assert.Len(t, sum, 64)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.snapshot"))
	var fe *ontology.FileError
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe.Path, "missing.snapshot")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEncodeNil(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, ontology.ErrNotInitialized)
}
