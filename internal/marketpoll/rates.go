package marketpoll

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/domain"
)

// rateToken is one parsed wealth token such as "950kx" or "1.3m".
// Multiplier is meaningful only when HasUnit is true.
type rateToken struct {
	Amount     float64
	Multiplier float64
	HasUnit    bool
}

var unitMultipliers = []struct {
	suffix string
	mult   float64
}{
	{"kx", 1_000},
	{"mx", 1_000_000},
	{"k", 1_000},
	{"m", 1_000_000},
	{"x", 1},
}

func parseRateToken(token string) (rateToken, error) {
	raw := strings.ToLower(strings.TrimSpace(token))
	if raw == "" {
		return rateToken{}, fmt.Errorf("empty rate token")
	}

	tok := rateToken{Multiplier: 1}
	for _, u := range unitMultipliers {
		if strings.HasSuffix(raw, u.suffix) {
			tok.HasUnit = true
			tok.Multiplier = u.mult
			raw = strings.TrimSuffix(raw, u.suffix)
			break
		}
	}

	amount, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	// ParseFloat accepts "nan", "inf" and overflow forms; none of them
	// are a wealth amount.
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return rateToken{}, fmt.Errorf("invalid rate token %q", token)
	}
	if amount < 0 {
		return rateToken{}, fmt.Errorf("negative rate token %q", token)
	}

	tok.Amount = amount
	return tok, nil
}

// ParseRateToken parses a single wealth token into raw x units.
// fallbackMultiplier resolves a missing unit; pass 0 for none, in which
// case needsUnit reports that the caller must supply one.
func ParseRateToken(token string, fallbackMultiplier float64) (value float64, needsUnit bool, err error) {
	tok, err := parseRateToken(token)
	if err != nil {
		return 0, false, err
	}
	if !tok.HasUnit {
		if fallbackMultiplier > 0 {
			return tok.Amount * fallbackMultiplier, false, nil
		}
		return tok.Amount, true, nil
	}
	return tok.Amount * tok.Multiplier, false, nil
}

// ParseSeedRange parses an operator-entered range such as "950kx-1.3mx"
// or a point value like "250k". When exactly one side omits its unit it
// inherits the other side's; when both omit units they are raw x.
func ParseSeedRange(raw string) (domain.SeedRange, error) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) > 2 {
		return domain.SeedRange{}, fmt.Errorf("invalid seed range %q: expected at most one dash", raw)
	}

	lo, err := parseRateToken(parts[0])
	if err != nil {
		return domain.SeedRange{}, err
	}

	hi := lo
	if len(parts) == 2 {
		hi, err = parseRateToken(parts[1])
		if err != nil {
			return domain.SeedRange{}, err
		}
		if lo.HasUnit != hi.HasUnit {
			if lo.HasUnit {
				hi.Multiplier = lo.Multiplier
			} else {
				lo.Multiplier = hi.Multiplier
			}
		}
	}

	minX := lo.Amount * lo.Multiplier
	maxX := hi.Amount * hi.Multiplier
	if minX > maxX {
		return domain.SeedRange{}, fmt.Errorf("invalid seed range %q: min exceeds max", raw)
	}

	midX := (minX + maxX) / 2
	idx, tier := TierForMidX(midX)

	return domain.SeedRange{
		MinX:      minX,
		MaxX:      maxX,
		MidX:      midX,
		TierIndex: idx,
		TierID:    tier.ID,
		TierLabel: tier.Label,
	}, nil
}
