package system

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/common"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
)

// SpatialQuery answers line-of-sight, overlap and layer questions about the
// world's colliders.
type SpatialQuery interface {
	Raycast(from, to mgl64.Vec3, mask common.Layer, ignore ecs.Entity) (ecs.RaycastHit, bool)
	OverlapSphere(center mgl64.Vec3, radius float64, mask common.Layer) []ecs.OverlapHit
	LayerOf(e ecs.Entity) (common.Layer, bool)
	SetLayer(e ecs.Entity, layer common.Layer)
}

// WeaponPhysics simulates weapons lying in the world.
type WeaponPhysics interface {
	// Release hands a weapon to the simulation with an initial impulse.
	Release(e ecs.Entity, pos, impulse mgl64.Vec3, radius float64)
	// Attach takes a weapon out of the simulation.
	Attach(e ecs.Entity)
	IsResting(e ecs.Entity) bool
}

// Navigator moves agents over the navigable surface.
type Navigator interface {
	SetDestination(w *ecs.World, e ecs.Entity, target mgl64.Vec3) bool
	PathPending(w *ecs.World, e ecs.Entity) bool
	RemainingDistance(w *ecs.World, e ecs.Entity) float64
	Stop(w *ecs.World, e ecs.Entity)
	Resume(w *ecs.World, e ecs.Entity)
	SetSpeed(w *ecs.World, e ecs.Entity, speed float64)
	SamplePosition(near mgl64.Vec3, radius float64) (mgl64.Vec3, bool)
}

// ImpactSink receives fire-and-forget visual and audio effects.
type ImpactSink interface {
	SpawnImpact(w *ecs.World, point, normal mgl64.Vec3, surface component.Surface)
	PlaySound(name string, at mgl64.Vec3)
}

// Lifecycle destroys entities after a delay.
type Lifecycle interface {
	DestroyAfter(w *ecs.World, e ecs.Entity, seconds float64)
}

// DamageReceiver routes damage to whatever tracks the target's health.
type DamageReceiver interface {
	ApplyDamage(w *ecs.World, target ecs.Entity, amount float64, melee bool, source mgl64.Vec3) bool
}

// Teleport moves an entity's transform and its physics body together.
func Teleport(w *ecs.World, e ecs.Entity, pos mgl64.Vec3) {
	if t, ok := ecs.Get(w, e, component.TransformComponent.Kind()); ok {
		t.Position = pos
	}
	if pw := w.PhysicsWorld(); pw != nil {
		pw.SetPosition(e, pos)
	}
}

func position(w *ecs.World, e ecs.Entity) (mgl64.Vec3, bool) {
	t, ok := ecs.Get(w, e, component.TransformComponent.Kind())
	if !ok {
		return mgl64.Vec3{}, false
	}
	return t.Position, true
}

func factionOf(w *ecs.World, e ecs.Entity) component.Faction {
	f, ok := ecs.Get(w, e, component.FactionComponent.Kind())
	if !ok {
		return component.FactionNone
	}
	return *f
}
