package marketpoll

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

func matchUniverse(t *testing.T) *AssetUniverse {
	t.Helper()
	genderCSV := []byte(`Abra,M/F
Machop,M/F
Gastly,M/F
Eevee,M/F
Magnemite,?
`)
	evo := EvolutionData{BaseByName: map[string]string{}}
	return BuildAssetUniverse(genderCSV, evo)
}

func noExclusions() Exclusions {
	return Exclusions{
		OpenPairKeys:  map[string]struct{}{},
		CooldownUntil: map[string]int64{},
		NowMs:         1_000_000,
	}
}

func TestSelectCandidatePair(t *testing.T) {
	u := matchUniverse(t)

	t.Run("tier distance above one never pairs", func(t *testing.T) {
		catalog := seededCatalog(t, u, "Abra|M,1.5k\nMachop|M,2m\n")
		got := SelectCandidatePair(catalog, u, noExclusions(), DefaultMatchupConfig(), testRNG())
		assert.Nil(t, got)
	})

	t.Run("adjacent tiers need range overlap", func(t *testing.T) {
		// t7 vs t8 without numeric overlap.
		catalog := seededCatalog(t, u, "Abra|M,600k-700k\nMachop|M,1.2m-1.4m\n")
		got := SelectCandidatePair(catalog, u, noExclusions(), DefaultMatchupConfig(), testRNG())
		assert.Nil(t, got)

		// t7 vs t8 with overlap qualifies.
		catalog = seededCatalog(t, u, "Abra|M,900k-1.1m\nMachop|M,700k-950k\n")
		got = SelectCandidatePair(catalog, u, noExclusions(), DefaultMatchupConfig(), testRNG())
		require.NotNil(t, got)
		assert.Equal(t, CanonicalPairKey("Abra|M", "Machop|M"), got.PairKey)
	})

	t.Run("open pairs are excluded", func(t *testing.T) {
		catalog := seededCatalog(t, u, "Abra|M,100k\nMachop|M,110k\n")
		excl := noExclusions()
		excl.OpenPairKeys[CanonicalPairKey("Abra|M", "Machop|M")] = struct{}{}
		got := SelectCandidatePair(catalog, u, excl, DefaultMatchupConfig(), testRNG())
		assert.Nil(t, got)
	})

	t.Run("cooldowns exclude until expiry", func(t *testing.T) {
		catalog := seededCatalog(t, u, "Abra|M,100k\nMachop|M,110k\n")
		pairKey := CanonicalPairKey("Abra|M", "Machop|M")

		excl := noExclusions()
		excl.CooldownUntil[pairKey] = excl.NowMs + 1
		assert.Nil(t, SelectCandidatePair(catalog, u, excl, DefaultMatchupConfig(), testRNG()))

		excl.CooldownUntil[pairKey] = excl.NowMs - 1
		assert.NotNil(t, SelectCandidatePair(catalog, u, excl, DefaultMatchupConfig(), testRNG()))
	})

	t.Run("same-gender bucket preferred", func(t *testing.T) {
		catalog := seededCatalog(t, u, "Abra|M,100k\nMachop|M,110k\nGastly|F,105k\n")
		cfg := DefaultMatchupConfig()
		for i := 0; i < 20; i++ {
			got := SelectCandidatePair(catalog, u, noExclusions(), cfg, rand.New(rand.NewSource(int64(i))))
			require.NotNil(t, got)
			assert.Equal(t, "M", got.Left.Gender)
			assert.Equal(t, "M", got.Right.Gender)
			assert.False(t, got.UsedFallbackGender)
		}
	})

	t.Run("mixed fallback flagged", func(t *testing.T) {
		catalog := seededCatalog(t, u, "Abra|M,100k\nGastly|F,105k\n")
		got := SelectCandidatePair(catalog, u, noExclusions(), DefaultMatchupConfig(), testRNG())
		require.NotNil(t, got)
		assert.True(t, got.UsedFallbackGender)
	})
}

func TestSelectCandidateMatchup(t *testing.T) {
	u := matchUniverse(t)
	seed := "Abra|M,100k-120k\nMachop|M,95k-115k\nGastly|M,105k-125k\nEevee|M,90k-110k\n"

	t.Run("sides are disjoint and bounded", func(t *testing.T) {
		catalog := seededCatalog(t, u, seed)
		cfg := DefaultMatchupConfig()
		for i := 0; i < 50; i++ {
			got := SelectCandidateMatchup(catalog, u, noExclusions(), cfg, rand.New(rand.NewSource(int64(i))))
			require.NotNil(t, got)
			assert.LessOrEqual(t, len(got.Left.AssetKeys), cfg.MaxSideSize)
			assert.LessOrEqual(t, len(got.Right.AssetKeys), cfg.MaxSideSize)
			for _, lk := range got.Left.AssetKeys {
				assert.NotContains(t, got.Right.AssetKeys, lk)
			}
			assert.Equal(t, CanonicalPairKey(got.Left.Key, got.Right.Key), got.PairKey)
		}
	})

	t.Run("matchup modes restrict shapes", func(t *testing.T) {
		catalog := seededCatalog(t, u, seed)
		cfg := DefaultMatchupConfig()
		cfg.MatchupModes = []string{"1v1"}
		for i := 0; i < 20; i++ {
			got := SelectCandidateMatchup(catalog, u, noExclusions(), cfg, rand.New(rand.NewSource(int64(i))))
			require.NotNil(t, got)
			assert.Len(t, got.Left.AssetKeys, 1)
			assert.Len(t, got.Right.AssetKeys, 1)
		}
	})

	t.Run("side size options cap at one", func(t *testing.T) {
		catalog := seededCatalog(t, u, seed)
		cfg := DefaultMatchupConfig()
		cfg.SideSizeOptions = []int{1}
		got := SelectCandidateMatchup(catalog, u, noExclusions(), cfg, testRNG())
		require.NotNil(t, got)
		assert.Len(t, got.Left.AssetKeys, 1)
		assert.Len(t, got.Right.AssetKeys, 1)
	})

	t.Run("strict gender pass first, fallback flagged", func(t *testing.T) {
		catalog := seededCatalog(t, u, "Abra|M,100k-120k\nGastly|F,105k-125k\n")
		cfg := DefaultMatchupConfig()
		cfg.SideSizeOptions = []int{1}
		got := SelectCandidateMatchup(catalog, u, noExclusions(), cfg, testRNG())
		require.NotNil(t, got)
		assert.True(t, got.UsedFallbackGender)
	})

	t.Run("exhausted budget returns nil", func(t *testing.T) {
		catalog := seededCatalog(t, u, "Abra|M,1.5k\nMachop|M,2m\n")
		got := SelectCandidateMatchup(catalog, u, noExclusions(), DefaultMatchupConfig(), testRNG())
		assert.Nil(t, got)
	})

	t.Run("open and cooled pairs never selected", func(t *testing.T) {
		catalog := seededCatalog(t, u, "Abra|M,100k-120k\nMachop|M,95k-115k\n")
		pairKey := CanonicalPairKey("Abra|M", "Machop|M")

		excl := noExclusions()
		excl.OpenPairKeys[pairKey] = struct{}{}
		cfg := DefaultMatchupConfig()
		cfg.SideSizeOptions = []int{1}
		assert.Nil(t, SelectCandidateMatchup(catalog, u, excl, cfg, testRNG()))

		excl = noExclusions()
		excl.CooldownUntil[pairKey] = excl.NowMs + 60_000
		assert.Nil(t, SelectCandidateMatchup(catalog, u, excl, cfg, testRNG()))
	})
}
