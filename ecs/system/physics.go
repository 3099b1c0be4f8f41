package system

import (
	"github.com/milk9111/guardpost/common"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
)

// PhysicsSystem keeps the world's transforms and the physics world in step:
// actors push their transforms into kinematic bodies before the step, and
// loose weapons read their simulated positions back after it.
type PhysicsSystem struct{}

func NewPhysicsSystem() *PhysicsSystem {
	return &PhysicsSystem{}
}

func (ps *PhysicsSystem) Update(w *ecs.World) {
	if ps == nil || w == nil {
		return
	}
	pw := w.PhysicsWorld()
	if pw == nil {
		return
	}

	RegisterColliders(w)

	dynamic := make(map[ecs.Entity]struct{})
	for _, e := range pw.Dynamic() {
		dynamic[e] = struct{}{}
	}

	ps.syncEntities(w, dynamic)
	pw.Step(w.DeltaTime())
	ps.syncTransforms(w, dynamic)
}

// RegisterColliders creates physics objects for every collider the physics
// world does not know yet. Held weapons stay out of the simulation.
func RegisterColliders(w *ecs.World) {
	pw := w.PhysicsWorld()
	if pw == nil {
		return
	}
	ecs.ForEach2(w, component.ColliderComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, c *component.Collider, t *component.Transform) {
		if pw.Has(e) {
			return
		}
		switch {
		case c.Static:
			pw.AddObstacle(e, t.Position, c.HalfExtents, c.Layer)
		case c.Layer == common.LayerWeapon:
			if wp, ok := ecs.Get(w, e, component.WeaponComponent.Kind()); ok && wp.Owner != 0 {
				return
			}
			pw.AddLooseWeapon(e, t.Position, c.Radius)
		default:
			pw.AddActor(e, t.Position, c.Radius, c.Layer)
		}
	})
}

func (ps *PhysicsSystem) syncEntities(w *ecs.World, dynamic map[ecs.Entity]struct{}) {
	pw := w.PhysicsWorld()
	ecs.ForEach(w, component.TransformComponent.Kind(), func(e ecs.Entity, t *component.Transform) {
		if _, ok := dynamic[e]; ok {
			return
		}
		pw.SetPosition(e, t.Position)
	})
}

func (ps *PhysicsSystem) syncTransforms(w *ecs.World, dynamic map[ecs.Entity]struct{}) {
	pw := w.PhysicsWorld()
	for e := range dynamic {
		transform, ok := ecs.Get(w, e, component.TransformComponent.Kind())
		if !ok {
			continue
		}
		if pos, ok := pw.Position(e); ok {
			transform.Position = pos
		}
	}
}
