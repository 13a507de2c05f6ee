package marketpoll

// Tier is a wealth band used to keep matchups roughly comparable.
// MaxX == 0 marks the last, unbounded band.
type Tier struct {
	ID    string
	Label string
	MinX  float64
	MaxX  float64
}

// Tiers is ordered low to high; TierForMidX depends on that order.
var Tiers = []Tier{
	{ID: "t1", Label: "under 1k", MinX: 0, MaxX: 1_000},
	{ID: "t2", Label: "1k-5k", MinX: 1_000, MaxX: 5_000},
	{ID: "t3", Label: "5k-25k", MinX: 5_000, MaxX: 25_000},
	{ID: "t4", Label: "25k-100k", MinX: 25_000, MaxX: 100_000},
	{ID: "t5", Label: "100k-250k", MinX: 100_000, MaxX: 250_000},
	{ID: "t6", Label: "250k-500k", MinX: 250_000, MaxX: 500_000},
	{ID: "t7", Label: "500k-1m", MinX: 500_000, MaxX: 1_000_000},
	{ID: "t8", Label: "1m-1.5m", MinX: 1_000_000, MaxX: 1_500_000},
	{ID: "t9", Label: "1.5m-2m", MinX: 1_500_000, MaxX: 2_000_000},
	{ID: "t10", Label: "2m-3m", MinX: 2_000_000, MaxX: 3_000_000},
	{ID: "t11", Label: "3m+", MinX: 3_000_000, MaxX: 0},
}

// TierForMidX returns the first tier whose [MinX, MaxX) band contains
// mid. The last tier has no upper bound, so the scan never fails.
func TierForMidX(mid float64) (int, Tier) {
	for i, t := range Tiers {
		if t.MaxX <= 0 {
			return i, t
		}
		if mid >= t.MinX && mid < t.MaxX {
			return i, t
		}
	}
	last := len(Tiers) - 1
	return last, Tiers[last]
}

// TierDistance is the absolute index distance between two tiers.
func TierDistance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
