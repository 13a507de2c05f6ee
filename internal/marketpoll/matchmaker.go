package marketpoll

import (
	"fmt"
	"math/rand"

	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/constants"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/domain"
)

// MatchupConfig tunes candidate selection. The zero value is not
// usable; call DefaultMatchupConfig.
type MatchupConfig struct {
	PreferSameGender bool
	MaxSideSize      int
	SideSizeOptions  []int
	// MatchupModes restricts accepted shapes, e.g. ["1v1"] or ["2v2"].
	// Empty means any shape the side-size options allow.
	MatchupModes []string
	MaxAttempts  int
}

func DefaultMatchupConfig() MatchupConfig {
	return MatchupConfig{
		PreferSameGender: true,
		MaxSideSize:      constants.MaxSideSize,
		SideSizeOptions:  []int{1, 2},
		MaxAttempts:      constants.MatchmakerBudget,
	}
}

// Matchup is a selected candidate pairing. UsedFallbackGender reports
// that the gender-relaxed pass produced it.
type Matchup struct {
	Left               domain.Bundle
	Right              domain.Bundle
	PairKey            string
	UsedFallbackGender bool
}

// Exclusions carries the pairs the matchmaker must not return: pairs
// with a currently open poll and pairs still cooling down.
type Exclusions struct {
	OpenPairKeys  map[string]struct{}
	CooldownUntil map[string]int64
	NowMs         int64
}

func (e Exclusions) blocked(pairKey string) bool {
	if _, open := e.OpenPairKeys[pairKey]; open {
		return true
	}
	if until, ok := e.CooldownUntil[pairKey]; ok && until > e.NowMs {
		return true
	}
	return false
}

// rangesOverlap is the adjacency fairness rule: tier-adjacent sides
// must share part of their numeric range.
func rangesOverlap(a, b domain.Bundle) bool {
	lo := a.MinX
	if b.MinX > lo {
		lo = b.MinX
	}
	hi := a.MaxX
	if b.MaxX < hi {
		hi = b.MaxX
	}
	return hi > lo
}

func compatible(a, b domain.Bundle) bool {
	dist := TierDistance(a.TierIndex, b.TierIndex)
	if dist > 1 {
		return false
	}
	if dist == 1 && !rangesOverlap(a, b) {
		return false
	}
	return true
}

// SelectCandidatePair is the simple 1v1 selector: enumerate unordered
// seeded pairs, filter, bucket by gender, sample uniformly. Returns nil
// when nothing qualifies.
func SelectCandidatePair(catalog *SeedCatalog, universe *AssetUniverse, excl Exclusions, cfg MatchupConfig, rng *rand.Rand) *Matchup {
	var sameGender, mixed []Matchup

	rows := catalog.Rows
	for i := 0; i < len(rows); i++ {
		for j := i + 1; j < len(rows); j++ {
			left, okL := BuildBundle([]string{rows[i].AssetKey}, catalog, universe)
			right, okR := BuildBundle([]string{rows[j].AssetKey}, catalog, universe)
			if !okL || !okR {
				continue
			}
			if !compatible(left, right) {
				continue
			}
			pairKey := CanonicalPairKey(left.Key, right.Key)
			if excl.blocked(pairKey) {
				continue
			}

			m := Matchup{Left: left, Right: right, PairKey: pairKey}
			if left.Gender != "" && left.Gender == right.Gender {
				sameGender = append(sameGender, m)
			} else {
				mixed = append(mixed, m)
			}
		}
	}

	if cfg.PreferSameGender && len(sameGender) > 0 {
		return &sameGender[rng.Intn(len(sameGender))]
	}

	pool := append(sameGender, mixed...)
	if len(pool) == 0 {
		return nil
	}
	picked := pool[rng.Intn(len(pool))]
	if cfg.PreferSameGender {
		picked.UsedFallbackGender = true
	}
	return &picked
}

// SelectCandidateMatchup is the production selector: bounded rejection
// sampling over bundle shapes, with a strict same-gender pass first
// when preferred, then a relaxed pass. Nil means no candidate within
// the attempt budget; callers skip the cycle rather than fail.
func SelectCandidateMatchup(catalog *SeedCatalog, universe *AssetUniverse, excl Exclusions, cfg MatchupConfig, rng *rand.Rand) *Matchup {
	keys := make([]string, 0, len(catalog.Rows))
	for _, row := range catalog.Rows {
		keys = append(keys, row.AssetKey)
	}
	if len(keys) < 2 {
		return nil
	}

	sizes := sideSizes(cfg)
	if len(sizes) == 0 {
		return nil
	}

	passes := []bool{false}
	if cfg.PreferSameGender {
		passes = []bool{true, false}
	}

	for _, strictGender := range passes {
		for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
			leftSize := sizes[rng.Intn(len(sizes))]
			rightSize := sizes[rng.Intn(len(sizes))]
			if !modeAllowed(cfg.MatchupModes, leftSize, rightSize) {
				continue
			}
			if leftSize+rightSize > len(keys) {
				continue
			}

			picked := sampleDistinct(keys, leftSize+rightSize, rng)
			left, okL := BuildBundle(picked[:leftSize], catalog, universe)
			right, okR := BuildBundle(picked[leftSize:], catalog, universe)
			if !okL || !okR {
				continue
			}
			if left.Key == right.Key {
				continue
			}
			if strictGender && (left.Gender == "" || left.Gender != right.Gender) {
				continue
			}
			if !compatible(left, right) {
				continue
			}

			pairKey := CanonicalPairKey(left.Key, right.Key)
			if excl.blocked(pairKey) {
				continue
			}

			return &Matchup{
				Left:               left,
				Right:              right,
				PairKey:            pairKey,
				UsedFallbackGender: cfg.PreferSameGender && !strictGender,
			}
		}
	}

	return nil
}

func sideSizes(cfg MatchupConfig) []int {
	var sizes []int
	for _, s := range cfg.SideSizeOptions {
		if s >= 1 && s <= cfg.MaxSideSize {
			sizes = append(sizes, s)
		}
	}
	return sizes
}

func modeAllowed(modes []string, leftSize, rightSize int) bool {
	if len(modes) == 0 {
		return true
	}
	shape := fmt.Sprintf("%dv%d", leftSize, rightSize)
	flipped := fmt.Sprintf("%dv%d", rightSize, leftSize)
	for _, m := range modes {
		if m == shape || m == flipped {
			return true
		}
	}
	return false
}

// sampleDistinct draws n distinct keys via a partial Fisher-Yates over
// a copy of the key slice.
func sampleDistinct(keys []string, n int, rng *rand.Rand) []string {
	pool := make([]string, len(keys))
	copy(pool, keys)
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
