package linkage

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/phenograph/pkg/builtin"
	"github.com/orneryd/phenograph/pkg/hposet"
	"github.com/orneryd/phenograph/pkg/ontology"
)

// sizeDistance makes distances depend only on set sizes, which keeps the
// expected merges easy to follow.
func sizeDistance(a, b *hposet.Set) float64 {
	return math.Abs(float64(a.Len() - b.Len()))
}

// fourSets returns disjoint sets of sizes 1, 2, 4 and 8.
func fourSets(t *testing.T) []*hposet.Set {
	t.Helper()
	ont, err := builtin.Load()
	require.NoError(t, err)
	groups := [][]ontology.TermID{
		{1263},
		{1270, 1249},
		{252, 1631, 1250, 7},
		{1626, 30680, 1627, 1629, 478, 316, 271, 234},
	}
	sets := make([]*hposet.Set, len(groups))
	for i, g := range groups {
		sets[i], err = hposet.New(ont, g...)
		require.NoError(t, err)
	}
	return sets
}

func TestParseMethod(t *testing.T) {
	for name, want := range map[string]Method{"": Single, "single": Single, "Complete": Complete, "average": Average, "union": Union} {
		got, err := ParseMethod(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMethod("ward")
	assert.ErrorIs(t, err, ontology.ErrInvalidInput)

	_, err = OptionsFromNames("single", "graphic", "omim", "nope")
	assert.ErrorIs(t, err, ontology.ErrInvalidInput)
}

func TestLinkageMethods(t *testing.T) {
	ctx := context.Background()
	sets := fourSets(t)

	tests := []struct {
		method Method
		want   []Cluster
	}{
		{Single, []Cluster{{0, 1, 1, 2}, {2, 4, 2, 3}, {3, 5, 4, 4}}},
		{Complete, []Cluster{{0, 1, 1, 2}, {2, 4, 3, 3}, {3, 5, 7, 4}}},
		{Average, []Cluster{{0, 1, 1, 2}, {2, 4, 2.5, 3}, {3, 5, 17.0 / 3.0, 4}}},
		// merged sets have 3, then 7 terms
		{Union, []Cluster{{0, 1, 1, 2}, {2, 4, 1, 3}, {3, 5, 1, 4}}},
	}
	for _, tt := range tests {
		t.Run(tt.method.String(), func(t *testing.T) {
			got, err := Linkage(ctx, sets, Options{Method: tt.method, Distance: sizeDistance, Workers: 2})
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].Left, got[i].Left, "merge %d", i)
				assert.Equal(t, tt.want[i].Right, got[i].Right, "merge %d", i)
				assert.InDelta(t, tt.want[i].Distance, got[i].Distance, 1e-12, "merge %d", i)
				assert.Equal(t, tt.want[i].Size, got[i].Size, "merge %d", i)
			}
		})
	}
}

func TestLinkageSmallInputs(t *testing.T) {
	ctx := context.Background()
	sets := fourSets(t)
	opts := Options{Distance: sizeDistance}

	got, err := Linkage(ctx, nil, opts)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Linkage(ctx, sets[:1], opts)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Linkage(ctx, sets[:2], opts)
	require.NoError(t, err)
	assert.Equal(t, []Cluster{{Left: 0, Right: 1, Distance: 1, Size: 2}}, got)
}

func TestLinkageTieBreak(t *testing.T) {
	sets := fourSets(t)
	constant := func(a, b *hposet.Set) float64 { return 0.5 }

	got, err := Linkage(context.Background(), sets, Options{Distance: constant})
	require.NoError(t, err)
	// first pair in input order wins each round
	assert.Equal(t, []Cluster{
		{Left: 0, Right: 1, Distance: 0.5, Size: 2},
		{Left: 2, Right: 4, Distance: 0.5, Size: 3},
		{Left: 3, Right: 5, Distance: 0.5, Size: 4},
	}, got)
}

func TestLinkageWithSimilarity(t *testing.T) {
	ont, err := builtin.Load()
	require.NoError(t, err)

	var sets []*hposet.Set
	for _, d := range ont.OmimDiseases() {
		set, err := hposet.New(ont, d.Terms().IDs()...)
		require.NoError(t, err)
		sets = append(sets, set)
	}
	n := len(sets)

	for _, name := range []string{"single", "complete", "average", "union"} {
		t.Run(name, func(t *testing.T) {
			opts, err := OptionsFromNames(name, "graphic", "omim", "funSimAvg")
			require.NoError(t, err)
			got, err := Linkage(context.Background(), sets, opts)
			require.NoError(t, err)
			require.Len(t, got, n-1)

			used := make(map[int]bool)
			for i, c := range got {
				assert.Less(t, c.Left, c.Right)
				assert.Less(t, c.Right, n+i, "only existing clusters are merged")
				assert.False(t, used[c.Left])
				assert.False(t, used[c.Right])
				used[c.Left], used[c.Right] = true, true
				assert.GreaterOrEqual(t, c.Distance, 0.0)
				assert.LessOrEqual(t, c.Distance, 1.0)
			}
			assert.Equal(t, n, got[n-2].Size)
		})
	}
}

func TestLinkageErrors(t *testing.T) {
	sets := fourSets(t)

	_, err := Linkage(context.Background(), sets, Options{})
	assert.ErrorIs(t, err, ontology.ErrInvalidInput)

	_, err = Linkage(context.Background(), sets, Options{Method: Method(42), Distance: sizeDistance})
	assert.ErrorIs(t, err, ontology.ErrInvalidInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Linkage(ctx, sets, Options{Distance: sizeDistance})
	assert.ErrorIs(t, err, context.Canceled)
}
