package marketpoll

import (
	"sort"
	"strings"

	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/domain"
)

// BundleKey canonicalizes a member key set: dedupe, sort, join with "+".
func BundleKey(assetKeys []string) string {
	uniq := dedupeSorted(assetKeys)
	return strings.Join(uniq, "+")
}

func dedupeSorted(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// BuildBundle assembles one matchup side from seeded assets. Range
// fields sum elementwise over members; the tier comes from the combined
// MidX; gender is set only when all members share one. Returns false
// when any member is unseeded or unknown.
func BuildBundle(assetKeys []string, catalog *SeedCatalog, universe *AssetUniverse) (domain.Bundle, bool) {
	uniq := dedupeSorted(assetKeys)
	if len(uniq) == 0 {
		return domain.Bundle{}, false
	}

	var minX, maxX float64
	gender := ""
	uniform := true

	for i, key := range uniq {
		row, ok := catalog.RowsByKey[key]
		if !ok {
			return domain.Bundle{}, false
		}
		asset, ok := universe.AllByKey[key]
		if !ok {
			return domain.Bundle{}, false
		}
		minX += row.Range.MinX
		maxX += row.Range.MaxX
		if i == 0 {
			gender = asset.Gender
		} else if asset.Gender != gender {
			uniform = false
		}
	}
	if !uniform {
		gender = ""
	}

	midX := (minX + maxX) / 2
	idx, _ := TierForMidX(midX)

	return domain.Bundle{
		AssetKeys: uniq,
		Key:       strings.Join(uniq, "+"),
		MinX:      minX,
		MaxX:      maxX,
		MidX:      midX,
		TierIndex: idx,
		Gender:    gender,
	}, true
}

// CanonicalPairKey is the order-independent identifier for a matchup:
// the two bundle keys sorted lexicographically, joined with "||".
func CanonicalPairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "||" + b
}
