package system

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/common"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
)

// InDetectionCone reports whether target lies within rangeLimit of pos on the
// ground plane and within half of angle (degrees) of forward.
func InDetectionCone(pos, forward, target mgl64.Vec3, rangeLimit, angle float64) bool {
	to := common.Flatten(target.Sub(pos))
	dist := to.Len()
	if dist > rangeLimit {
		return false
	}
	if dist < 1e-9 {
		return true
	}
	return common.AngleBetween(common.Flatten(forward), to) <= angle/2
}

// Perceive runs the full detection check of a guard against a target: cone,
// then an obstacle ray from eye height. Without a spatial provider the ray is
// skipped.
func Perceive(spatial SpatialQuery, guard ecs.Entity, t *component.Transform, tuning component.GuardTuning, target mgl64.Vec3) bool {
	if t == nil {
		return false
	}
	if !InDetectionCone(t.Position, t.Forward(), target, tuning.DetectionRange, tuning.DetectionAngle) {
		return false
	}
	if spatial == nil {
		return true
	}
	eye := common.Up.Mul(tuning.EyeHeight)
	_, blocked := spatial.Raycast(t.Position.Add(eye), target.Add(eye), common.SightMask, guard)
	return !blocked
}
