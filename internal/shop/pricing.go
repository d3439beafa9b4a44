package shop

import (
	"math"

	"github.com/roach88/idle/internal/catalog"
)

// UpgradeCost returns the price of buying the upgrade at level, i.e. of
// going from level to level+1.
//
// The price comes from the last tier whose FromLevel is at or below level:
// floor(BaseCost * Growth^(level-FromLevel)). Each tier re-bases the curve,
// so the price jumps at a tier boundary instead of continuing the previous
// exponent.
func UpgradeCost(level int, tiers []catalog.Tier) int64 {
	if len(tiers) == 0 || level < 0 {
		return 0
	}
	t := tiers[0]
	for _, candidate := range tiers[1:] {
		if candidate.FromLevel > level {
			break
		}
		t = candidate
	}
	v := float64(t.BaseCost) * math.Pow(t.Growth, float64(level-t.FromLevel))
	// 1e-9 absorbs float error on prices that are exact integers.
	return int64(math.Floor(v + 1e-9))
}
