package system

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/common"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
)

// TakeDamage applies a hit to guard e. Melee hits that leave the guard alive
// knock it down; ranged hits stun it and push it away from source. Returns
// false when the hit had no effect.
func (s *GuardSystem) TakeDamage(w *ecs.World, e ecs.Entity, amount float64, melee bool, source mgl64.Vec3) bool {
	g, ok := ecs.Get(w, e, component.GuardComponent.Kind())
	if !ok || g.State == component.GuardDead {
		return false
	}
	t, ok := ecs.Get(w, e, component.TransformComponent.Kind())
	if !ok {
		return false
	}
	if g.Data == nil {
		s.enter(w, e, g, t)
	}

	change := s.Health.Damage(w, e, amount)
	if !change.Applied {
		return false
	}
	s.log.Debug().Uint64("guard", uint64(e)).Float64("health", change.Current).Bool("melee", melee).Msg("guard: damaged")

	if change.Current <= 0 {
		s.Die(w, e)
		return true
	}

	if melee {
		s.fire(w, e, g, t, component.EventKnockedDown)
		return true
	}

	g.StunTimer = g.Tuning.StunMin + s.rng.Float64()*(g.Tuning.StunMax-g.Tuning.StunMin)
	s.knockback(w, e, g, t, source)
	if g.Idle() {
		g.LastKnown = source
		g.HasLastKnown = true
		s.react(w, e, g, t)
	}

	if s.Possession.IsArmed(w, e) && g.DropRollTimer <= 0 {
		g.DropRollTimer = g.Tuning.DropRollCooldown
		if RollHit(g.Tuning.DropWeaponChance, s.rng) {
			s.Possession.Drop(w, e)
		}
	}

	armed := s.Possession.IsArmed(w, e)
	healthy := change.Current >= g.Tuning.LowHealthThreshold
	switch {
	case !armed && !healthy:
		if g.State != component.GuardKnockedDown {
			s.fire(w, e, g, t, component.EventFlee)
		}
	case !armed:
		if g.State == component.GuardChasing || g.State == component.GuardKnockedDown {
			break
		}
		if _, ok := s.Possession.NearestAvailable(w, t.Position, g.Tuning.WideWeaponSearchRadius); ok {
			s.fire(w, e, g, t, component.EventSeekWeapon)
		}
	case !healthy:
		if g.State == component.GuardChasing && change.Previous >= g.Tuning.LowHealthThreshold {
			s.fire(w, e, g, t, component.EventFlee)
		}
	}
	return true
}

// knockback slides the guard away from source unless an obstacle is in the
// way.
func (s *GuardSystem) knockback(w *ecs.World, e ecs.Entity, g *component.Guard, t *component.Transform, source mgl64.Vec3) {
	if g.Tuning.KnockbackDistance <= 0 {
		return
	}
	dir := common.SafeNormalize(common.Flatten(t.Position.Sub(source)), t.Forward().Mul(-1))
	dest := t.Position.Add(dir.Mul(g.Tuning.KnockbackDistance))
	if s.Spatial != nil {
		edge := dest.Add(dir.Mul(g.Tuning.Radius))
		if _, blocked := s.Spatial.Raycast(t.Position, edge, common.LayerObstacle|common.LayerDefault, e); blocked {
			return
		}
	}
	Teleport(w, e, dest)
}

// Die puts guard e down for good. It is safe to call more than once.
func (s *GuardSystem) Die(w *ecs.World, e ecs.Entity) {
	g, ok := ecs.Get(w, e, component.GuardComponent.Kind())
	if !ok || g.State == component.GuardDead {
		return
	}
	t, ok := ecs.Get(w, e, component.TransformComponent.Kind())
	if !ok {
		return
	}

	s.Possession.Drop(w, e)
	s.fire(w, e, g, t, component.EventDied)
	if g.State != component.GuardDead {
		// a table without a died edge still has to put the guard down
		s.transition(w, e, g, t, component.GuardDead, component.EventDied)
	}
	g.Detected = false
	g.StunTimer = 0

	if s.Spatial != nil {
		s.Spatial.SetLayer(e, common.LayerInert)
	}
	if d, ok := g.Data.(*component.DeadData); ok && s.Lifecycle != nil {
		s.Lifecycle.DestroyAfter(w, e, g.Tuning.RagdollDelay)
		d.RemovalScheduled = true
	}
	s.log.Info().Uint64("guard", uint64(e)).Msg("guard: died")
}

// Recover stands a knocked down guard back up.
func (s *GuardSystem) Recover(w *ecs.World, e ecs.Entity) bool {
	g, ok := ecs.Get(w, e, component.GuardComponent.Kind())
	if !ok || g.State != component.GuardKnockedDown {
		return false
	}
	return s.Fire(w, e, component.EventRecovered)
}
