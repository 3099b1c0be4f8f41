package system

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/common"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
)

// meleeArc is the full cone, in degrees, a melee swing covers.
const meleeArc = 90.0

// CombatSystem routes damage to the right owner: guards react through their
// controller, everything else only loses health.
type CombatSystem struct {
	Health *HealthSystem
	Guards *GuardSystem
}

func NewCombatSystem(health *HealthSystem, guards *GuardSystem) *CombatSystem {
	return &CombatSystem{Health: health, Guards: guards}
}

// ApplyDamage implements DamageReceiver.
func (s *CombatSystem) ApplyDamage(w *ecs.World, target ecs.Entity, amount float64, melee bool, source mgl64.Vec3) bool {
	if s.Guards != nil && ecs.Has(w, target, component.GuardComponent.Kind()) {
		return s.Guards.TakeDamage(w, target, amount, melee, source)
	}
	if s.Health == nil {
		return false
	}
	return s.Health.Damage(w, target, amount).Applied
}

// MeleeTargets returns the living actors inside attacker's swing, nearest
// first.
func MeleeTargets(w *ecs.World, attacker ecs.Entity, reach float64) []ecs.Entity {
	at, ok := ecs.Get(w, attacker, component.TransformComponent.Kind())
	if !ok {
		return nil
	}
	type candidate struct {
		e    ecs.Entity
		dist float64
	}
	var hits []candidate
	ecs.ForEach2(w, component.HealthComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, h *component.Health, t *component.Transform) {
		if e == attacker || h.Dead {
			return
		}
		if !InDetectionCone(at.Position, at.Forward(), t.Position, reach, meleeArc) {
			return
		}
		hits = append(hits, candidate{e: e, dist: common.Flatten(t.Position.Sub(at.Position)).Len()})
	})
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].dist == hits[j].dist {
			return hits[i].e < hits[j].e
		}
		return hits[i].dist < hits[j].dist
	})
	out := make([]ecs.Entity, len(hits))
	for i, h := range hits {
		out[i] = h.e
	}
	return out
}
