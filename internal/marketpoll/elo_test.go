package marketpoll

import (
	"math"
	"testing"

	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEloFromVotes(t *testing.T) {
	t.Run("vote floor leaves scores untouched", func(t *testing.T) {
		out := ApplyEloFromVotes(1500, 1480, 2, 1, 5)
		assert.False(t, out.AffectsScore)
		assert.Equal(t, 1500.0, out.Left)
		assert.Equal(t, 1480.0, out.Right)
		assert.Equal(t, domain.ResultLeft, out.Result)
	})

	t.Run("winner gains, loser drops", func(t *testing.T) {
		out := ApplyEloFromVotes(1500, 1500, 8, 3, 5)
		require.True(t, out.AffectsScore)
		assert.Greater(t, out.Left, 1500.0)
		assert.Less(t, out.Right, 1500.0)
		assert.Equal(t, domain.ResultLeft, out.Result)
	})

	t.Run("equal votes tie", func(t *testing.T) {
		out := ApplyEloFromVotes(1500, 1600, 6, 6, 5)
		require.True(t, out.AffectsScore)
		assert.Equal(t, domain.ResultTie, out.Result)
		// The underdog still gains on a tie against a stronger rating.
		assert.Greater(t, out.Left, 1500.0)
		assert.Less(t, out.Right, 1600.0)
	})

	t.Run("K scales with volume and caps at twice base", func(t *testing.T) {
		small := ApplyEloFromVotes(1500, 1500, 4, 1, 5)
		big := ApplyEloFromVotes(1500, 1500, 80, 20, 5)
		require.True(t, small.AffectsScore)
		require.True(t, big.AffectsScore)
		// Same 80/20 share, more votes, bigger swing.
		assert.Greater(t, big.Left-1500, small.Left-1500)
		// 100 votes hits the 2x cap: K=48, delta = 48*(0.8-0.5).
		assert.InDelta(t, 14.4, big.Left-1500, 0.0001)
	})

	t.Run("minVotes below one still requires a vote", func(t *testing.T) {
		out := ApplyEloFromVotes(1500, 1500, 0, 0, 0)
		assert.False(t, out.AffectsScore)
		assert.Equal(t, domain.ResultTie, out.Result)
	})

	t.Run("deltas round to 4 decimals", func(t *testing.T) {
		out := ApplyEloFromVotes(1500, 1437, 7, 4, 5)
		require.True(t, out.AffectsScore)
		assert.Equal(t, out.Left, round4(out.Left))
		assert.Equal(t, out.Right, round4(out.Right))
	})
}

func TestTeamRating(t *testing.T) {
	t.Run("singleton is identity", func(t *testing.T) {
		assert.InDelta(t, 1500, teamRating([]float64{1500}), 1e-9)
	})

	t.Run("strong member dominates a weak one", func(t *testing.T) {
		team := teamRating([]float64{1800, 1000})
		assert.Greater(t, team, 1800.0)
		avg := (1800.0 + 1000.0) / 2
		assert.Greater(t, team-avg, 100.0)
	})
}

func TestApplyEloFromVotesBundles(t *testing.T) {
	t.Run("insufficient votes pass members through", func(t *testing.T) {
		out := ApplyEloFromVotesBundles([]float64{1500, 1520}, []float64{1510}, 2, 1, 5)
		assert.False(t, out.AffectsScore)
		assert.Equal(t, []float64{1500, 1520}, out.Left)
		assert.Equal(t, []float64{1510}, out.Right)
	})

	t.Run("higher-rated teammate absorbs more of the gain", func(t *testing.T) {
		out := ApplyEloFromVotesBundles([]float64{1500, 1520}, []float64{1510}, 12, 5, 5)
		require.True(t, out.AffectsScore)
		assert.Equal(t, domain.ResultLeft, out.Result)

		gainLow := out.Left[0] - 1500
		gainHigh := out.Left[1] - 1520
		assert.Greater(t, gainLow, 0.0)
		assert.Greater(t, gainHigh, 0.0)
		assert.Greater(t, gainHigh, gainLow)

		assert.Less(t, out.Right[0], 1510.0)
	})

	t.Run("team delta is fully distributed", func(t *testing.T) {
		left := []float64{1450, 1600}
		right := []float64{1500}
		out := ApplyEloFromVotesBundles(left, right, 9, 2, 5)
		require.True(t, out.AffectsScore)

		teamBefore := teamRating(left)
		scalar := ApplyEloFromVotes(teamBefore, teamRating(right), 9, 2, 5)
		distributed := (out.Left[0] - left[0]) + (out.Left[1] - left[1])
		assert.InDelta(t, scalar.Left-teamBefore, distributed, 0.001)
	})

	t.Run("loss drops the higher-rated teammate harder", func(t *testing.T) {
		out := ApplyEloFromVotesBundles([]float64{1400, 1700}, []float64{1550}, 3, 10, 5)
		require.True(t, out.AffectsScore)
		dropLow := 1400 - out.Left[0]
		dropHigh := 1700 - out.Left[1]
		assert.Greater(t, dropHigh, dropLow)
		assert.Greater(t, math.Abs(dropHigh), math.Abs(dropLow))
	})
}
