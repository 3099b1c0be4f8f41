package system

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/common"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
	"github.com/rs/zerolog"
)

// PlayerSystem keeps the player's aim and measured speed current and turns
// trigger and melee input into attacks.
type PlayerSystem struct {
	Entity     ecs.Entity
	Possession *PossessionSystem
	Resolver   *Resolver
	Damage     DamageReceiver

	log zerolog.Logger
}

func NewPlayerSystem(e ecs.Entity, possession *PossessionSystem, resolver *Resolver, damage DamageReceiver) *PlayerSystem {
	return &PlayerSystem{
		Entity:     e,
		Possession: possession,
		Resolver:   resolver,
		Damage:     damage,
		log:        zerolog.Nop(),
	}
}

func (p *PlayerSystem) SetLogger(l zerolog.Logger) {
	p.log = l
}

func (p *PlayerSystem) Update(w *ecs.World) {
	if w == nil {
		return
	}
	dt := w.DeltaTime()

	ecs.ForEach2(w, component.PlayerComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, pc *component.Player, t *component.Transform) {
		if pc.KnockedDown > 0 {
			pc.KnockedDown = math.Max(0, pc.KnockedDown-dt)
		}

		if pc.Tracked && dt > 0 {
			pc.Speed = flatDistance(t.Position, pc.LastPosition) / dt
		} else {
			pc.Speed = 0
		}
		pc.LastPosition = t.Position
		pc.Tracked = true

		pc.Aim = t.Forward()
		if pc.HasAimTarget {
			pc.Aim = common.SafeNormalize(common.Flatten(pc.AimTarget.Sub(t.Position)), t.Forward())
			t.Yaw = common.YawOf(pc.Aim)
		}
	})
}

// canAct reports whether the player is alive and on its feet.
func (p *PlayerSystem) canAct(w *ecs.World) (*component.Player, *component.Transform, bool) {
	pc, ok := ecs.Get(w, p.Entity, component.PlayerComponent.Kind())
	if !ok || pc.IsKnockedDown() {
		return nil, nil, false
	}
	t, ok := ecs.Get(w, p.Entity, component.TransformComponent.Kind())
	if !ok {
		return nil, nil, false
	}
	if h, ok := ecs.Get(w, p.Entity, component.HealthComponent.Kind()); ok && h.Dead {
		return nil, nil, false
	}
	return pc, t, true
}

// Shoot fires the held weapon along the current aim. Automatic weapons fire
// while the trigger is held; others only on the press.
func (p *PlayerSystem) Shoot(w *ecs.World, triggerHeld, triggerPressed bool) (ShotResult, bool) {
	pc, t, ok := p.canAct(w)
	if !ok || p.Resolver == nil || p.Possession == nil {
		return ShotResult{}, false
	}
	pc.TriggerHeld = triggerHeld
	weapon, ok := p.Possession.Held(w, p.Entity)
	if !ok {
		return ShotResult{}, false
	}
	wp, ok := ecs.Get(w, weapon, component.WeaponComponent.Kind())
	if !ok {
		return ShotResult{}, false
	}
	pulled := triggerPressed
	if wp.Profile.Automatic {
		pulled = triggerHeld || triggerPressed
	}
	if !pulled {
		return ShotResult{}, false
	}

	eye := common.Up.Mul(pc.Tuning.EyeHeight)
	origin := t.Position.Add(eye)
	aim := pc.Aim
	if aim.Len() < 1e-9 {
		aim = t.Forward()
	}
	target := origin.Add(aim.Mul(wp.Profile.Range))
	if pc.HasAimTarget {
		target = mgl64.Vec3{pc.AimTarget.X(), origin.Y(), pc.AimTarget.Z()}
	}
	return p.Resolver.TryShoot(w, ShotRequest{
		Shooter: p.Entity,
		Weapon:  weapon,
		Profile: wp.Profile,
		Origin:  origin,
		Target:  target,
	}, false)
}

// Melee strikes target if it is within reach.
func (p *PlayerSystem) Melee(w *ecs.World, target ecs.Entity) bool {
	pc, t, ok := p.canAct(w)
	if !ok || p.Damage == nil || target == p.Entity {
		return false
	}
	pos, ok := position(w, target)
	if !ok || flatDistance(t.Position, pos) > pc.Tuning.MeleeRange {
		return false
	}
	t.Face(pos)
	if !p.Damage.ApplyDamage(w, target, pc.Tuning.MeleeDamage, true, t.Position) {
		return false
	}
	w.Emit(ecs.Event{Type: EventMeleeHit, Entity: p.Entity, Data: MeleeHit{
		Attacker: p.Entity, Target: target, Damage: pc.Tuning.MeleeDamage,
	}})
	return true
}

// MeleeNearest strikes the closest actor in front of the player.
func (p *PlayerSystem) MeleeNearest(w *ecs.World) (ecs.Entity, bool) {
	pc, _, ok := p.canAct(w)
	if !ok {
		return 0, false
	}
	for _, target := range MeleeTargets(w, p.Entity, pc.Tuning.MeleeRange) {
		if p.Melee(w, target) {
			return target, true
		}
	}
	return 0, false
}
