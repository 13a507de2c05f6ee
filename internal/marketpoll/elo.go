package marketpoll

import (
	"math"

	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/constants"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/domain"
)

// EloOutcome is the result of applying one poll's tallies to a pair of
// ratings. Result reflects raw vote counts only; AffectsScore is false
// when the vote floor was not met.
type EloOutcome struct {
	Left         float64
	Right        float64
	Result       string
	AffectsScore bool
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func resultFromVotes(votesLeft, votesRight int) string {
	switch {
	case votesLeft > votesRight:
		return domain.ResultLeft
	case votesRight > votesLeft:
		return domain.ResultRight
	default:
		return domain.ResultTie
	}
}

// ApplyEloFromVotes runs a logistic Elo update on two scalar ratings.
// K scales with vote volume, sqrt(total/5) capped at 2x base, so thin
// samples move ratings less.
func ApplyEloFromVotes(left, right float64, votesLeft, votesRight, minVotes int) EloOutcome {
	total := votesLeft + votesRight
	floor := minVotes
	if floor < 1 {
		floor = 1
	}

	out := EloOutcome{Left: left, Right: right, Result: resultFromVotes(votesLeft, votesRight)}
	if total < floor {
		return out
	}

	expectedLeft := 1 / (1 + math.Pow(10, (right-left)/400))
	expectedRight := 1 - expectedLeft
	actualLeft := float64(votesLeft) / float64(total)
	actualRight := 1 - actualLeft

	k := constants.EloBaseK * math.Min(2, math.Sqrt(float64(total)/5))

	out.Left = round4(left + k*(actualLeft-expectedLeft))
	out.Right = round4(right + k*(actualRight-expectedRight))
	out.AffectsScore = true
	return out
}

// BundleEloOutcome carries per-member updated ratings for both sides.
type BundleEloOutcome struct {
	Left         []float64
	Right        []float64
	Result       string
	AffectsScore bool
}

// teamRating collapses member ratings into one effective strength via
// log-sum-exp in Elo space: 400*log10(sum 10^(r/400)). A strong member
// dominates a weak teammate instead of averaging with it.
func teamRating(ratings []float64) float64 {
	var sum float64
	for _, r := range ratings {
		sum += math.Pow(10, r/400)
	}
	return 400 * math.Log10(sum)
}

// ApplyEloFromVotesBundles generalizes the scalar update to N-vs-M
// sides. The team delta is distributed to members proportionally to
// their share of the team's pre-update quantal weight, so higher-rated
// members absorb more of a win or loss.
func ApplyEloFromVotesBundles(left, right []float64, votesLeft, votesRight, minVotes int) BundleEloOutcome {
	out := BundleEloOutcome{
		Left:  append([]float64(nil), left...),
		Right: append([]float64(nil), right...),
	}

	teamLeft := teamRating(left)
	teamRight := teamRating(right)
	scalar := ApplyEloFromVotes(teamLeft, teamRight, votesLeft, votesRight, minVotes)
	out.Result = scalar.Result
	out.AffectsScore = scalar.AffectsScore
	if !scalar.AffectsScore {
		return out
	}

	distribute(out.Left, scalar.Left-teamLeft)
	distribute(out.Right, scalar.Right-teamRight)
	return out
}

func distribute(ratings []float64, teamDelta float64) {
	var sum float64
	weights := make([]float64, len(ratings))
	for i, r := range ratings {
		weights[i] = math.Pow(10, r/400)
		sum += weights[i]
	}
	if sum == 0 {
		return
	}
	for i := range ratings {
		share := weights[i] / sum
		ratings[i] = round4(ratings[i] + teamDelta*share)
	}
}
