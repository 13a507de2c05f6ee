package marketpoll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRateToken(t *testing.T) {
	tests := []struct {
		token     string
		fallback  float64
		want      float64
		needsUnit bool
		wantErr   bool
	}{
		{token: "950kx", want: 950_000},
		{token: "1.3mx", want: 1_300_000},
		{token: "1.3MX", want: 1_300_000},
		{token: "42x", want: 42},
		{token: "5k", want: 5_000},
		{token: "2m", want: 2_000_000},
		{token: "7", needsUnit: true, want: 7},
		{token: "7", fallback: 1_000, want: 7_000},
		{token: "", wantErr: true},
		{token: "abc", wantErr: true},
		{token: "x", wantErr: true},
		{token: "nan", wantErr: true},
		{token: "inf", wantErr: true},
		{token: "infinity", wantErr: true},
		{token: "-inf", wantErr: true},
		{token: "1e999", wantErr: true},
		{token: "nank", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, needsUnit, err := ParseRateToken(tt.token, tt.fallback)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.needsUnit, needsUnit)
		})
	}
}

func TestParseSeedRange(t *testing.T) {
	t.Run("both units", func(t *testing.T) {
		rng, err := ParseSeedRange("950kx-1.3mx")
		require.NoError(t, err)
		assert.Equal(t, 950_000.0, rng.MinX)
		assert.Equal(t, 1_300_000.0, rng.MaxX)
		assert.Equal(t, 1_125_000.0, rng.MidX)
	})

	t.Run("unit inherited from right", func(t *testing.T) {
		rng, err := ParseSeedRange("1.2-1.6mx")
		require.NoError(t, err)
		assert.Equal(t, 1_200_000.0, rng.MinX)
		assert.Equal(t, 1_600_000.0, rng.MaxX)
	})

	t.Run("unit inherited from left", func(t *testing.T) {
		rng, err := ParseSeedRange("800k-950")
		require.NoError(t, err)
		assert.Equal(t, 800_000.0, rng.MinX)
		assert.Equal(t, 950_000.0, rng.MaxX)
	})

	t.Run("both unitless default to raw x", func(t *testing.T) {
		rng, err := ParseSeedRange("500-900")
		require.NoError(t, err)
		assert.Equal(t, 500.0, rng.MinX)
		assert.Equal(t, 900.0, rng.MaxX)
	})

	t.Run("point range", func(t *testing.T) {
		rng, err := ParseSeedRange("250k")
		require.NoError(t, err)
		assert.Equal(t, rng.MinX, rng.MaxX)
		assert.Equal(t, 250_000.0, rng.MidX)
	})

	t.Run("min above max rejected", func(t *testing.T) {
		_, err := ParseSeedRange("2m-1m")
		require.Error(t, err)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, err := ParseSeedRange("cheap-ish")
		require.Error(t, err)
	})

	t.Run("non-finite amounts rejected", func(t *testing.T) {
		for _, raw := range []string{"nan", "inf", "nan-5k", "100k-inf"} {
			_, err := ParseSeedRange(raw)
			require.Error(t, err, raw)
		}
	})

	t.Run("tier consistent with midpoint", func(t *testing.T) {
		for _, raw := range []string{"500", "3k", "10k", "80kx", "120k-240k", "300kx", "750k", "1m-1.4mx", "1.7m", "2.5mx", "9mx"} {
			rng, err := ParseSeedRange(raw)
			require.NoError(t, err, raw)
			idx, tier := TierForMidX(rng.MidX)
			assert.Equal(t, idx, rng.TierIndex, raw)
			assert.Equal(t, tier.ID, rng.TierID, raw)
		}
	})
}

func TestTierForMidX(t *testing.T) {
	t.Run("table is ordered and contiguous", func(t *testing.T) {
		for i := 1; i < len(Tiers); i++ {
			assert.Equal(t, Tiers[i-1].MaxX, Tiers[i].MinX, "band %d", i)
		}
		assert.Zero(t, Tiers[len(Tiers)-1].MaxX, "last band must be unbounded")
	})

	t.Run("huge values land in the last tier", func(t *testing.T) {
		idx, tier := TierForMidX(1e12)
		assert.Equal(t, len(Tiers)-1, idx)
		assert.Equal(t, "t11", tier.ID)
	})

	t.Run("boundary belongs to the upper band", func(t *testing.T) {
		idx, _ := TierForMidX(1_000_000)
		assert.Equal(t, 7, idx)
	})
}
