package marketpoll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededCatalog(t *testing.T, u *AssetUniverse, seed string) *SeedCatalog {
	t.Helper()
	catalog := ParseSeedCSV(seed, u)
	require.Empty(t, catalog.Errors)
	return catalog
}

func TestCanonicalPairKey(t *testing.T) {
	assert.Equal(t, CanonicalPairKey("a", "b"), CanonicalPairKey("b", "a"))
	assert.Equal(t, "a||b", CanonicalPairKey("b", "a"))
	assert.Equal(t,
		CanonicalPairKey("Abra|M+Machop|F", "Moltres|G"),
		CanonicalPairKey("Moltres|G", "Abra|M+Machop|F"))
}

func TestBundleKey(t *testing.T) {
	assert.Equal(t, "Abra|M+Machop|F", BundleKey([]string{"Machop|F", "Abra|M", "Machop|F"}))
}

func TestBuildBundle(t *testing.T) {
	u := testUniverse(t)
	catalog := seededCatalog(t, u, "Abra|M,100k-200k\nMachop|M,50k-80k\nAbra|F,100k-200k\n")

	t.Run("ranges sum elementwise", func(t *testing.T) {
		b, ok := BuildBundle([]string{"Abra|M", "Machop|M"}, catalog, u)
		require.True(t, ok)
		assert.Equal(t, 150_000.0, b.MinX)
		assert.Equal(t, 280_000.0, b.MaxX)
		assert.Equal(t, 215_000.0, b.MidX)
		idx, _ := TierForMidX(215_000)
		assert.Equal(t, idx, b.TierIndex)
	})

	t.Run("uniform gender kept, mixed cleared", func(t *testing.T) {
		same, ok := BuildBundle([]string{"Abra|M", "Machop|M"}, catalog, u)
		require.True(t, ok)
		assert.Equal(t, "M", same.Gender)

		mixed, ok := BuildBundle([]string{"Abra|M", "Abra|F"}, catalog, u)
		require.True(t, ok)
		assert.Empty(t, mixed.Gender)
	})

	t.Run("members dedupe and sort into the key", func(t *testing.T) {
		b, ok := BuildBundle([]string{"Machop|M", "Abra|M", "Machop|M"}, catalog, u)
		require.True(t, ok)
		assert.Equal(t, "Abra|M+Machop|M", b.Key)
		assert.Equal(t, []string{"Abra|M", "Machop|M"}, b.AssetKeys)
	})

	t.Run("unseeded member fails", func(t *testing.T) {
		_, ok := BuildBundle([]string{"Machop|F"}, catalog, u)
		assert.False(t, ok)
	})
}
