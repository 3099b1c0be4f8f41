package system

import (
	"math"
	"math/rand"

	"github.com/milk9111/guardpost/common"
	"github.com/milk9111/guardpost/ecs/component"
)

// CalculateAccuracy is a guard's chance to hit. Accuracy falls from
// CloseAccuracy at point blank to FloorAccuracy at twice the shooting range,
// loses a capped penalty for target speed, and is scaled by the weapon's own
// accuracy.
func CalculateAccuracy(distance, shootingRange, targetSpeed, weaponAccuracy float64, m component.AccuracyModel) float64 {
	t := 1.0
	if shootingRange > 0 {
		t = common.Clamp01(distance / (2 * shootingRange))
	}
	base := common.Lerp(m.CloseAccuracy, m.FloorAccuracy, t)
	penalty := math.Min(math.Max(targetSpeed, 0)*m.PenaltyPerSpeed, m.MaxMovementPenalty)
	return common.Clamp01((base - penalty) * weaponAccuracy)
}

// RollHit draws against hit probability p.
func RollHit(p float64, rng *rand.Rand) bool {
	return rng.Float64() < p
}
