package system

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/common"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
	"github.com/rs/zerolog"
)

var (
	ErrNoWeapon       = errors.New("possession: weapon does not exist")
	ErrWeaponOwned    = errors.New("possession: weapon already has an owner")
	ErrPickupCooldown = errors.New("possession: pickup cooldown active")
	ErrWeaponMoving   = errors.New("possession: weapon still in motion")
	ErrNoHolder       = errors.New("possession: actor cannot hold a weapon")
)

const (
	defaultPickupCooldown = 1.0
	dropImpulse           = 3.0
	weaponRadius          = 0.2
	handHeight            = 1.0
	handReach             = 0.5
)

// PossessionSystem tracks which actor holds which weapon. A weapon has at most
// one owner, and an actor is armed exactly when its slot names a weapon that
// names it back.
type PossessionSystem struct {
	Spatial SpatialQuery
	Physics WeaponPhysics

	PickupCooldown float64

	log zerolog.Logger
}

func NewPossessionSystem(spatial SpatialQuery, physics WeaponPhysics) *PossessionSystem {
	return &PossessionSystem{
		Spatial:        spatial,
		Physics:        physics,
		PickupCooldown: defaultPickupCooldown,
		log:            zerolog.Nop(),
	}
}

func (s *PossessionSystem) SetLogger(l zerolog.Logger) {
	s.log = l
}

// Equip gives weapon to actor, taking it from any previous holder and
// dropping whatever actor carried before.
func (s *PossessionSystem) Equip(w *ecs.World, actor, weapon ecs.Entity) error {
	wp, ok := ecs.Get(w, weapon, component.WeaponComponent.Kind())
	if !ok {
		return ErrNoWeapon
	}
	if !ecs.IsAlive(w, actor) {
		return ErrNoHolder
	}
	slot, ok := ecs.Get(w, actor, component.WeaponSlotComponent.Kind())
	if !ok {
		slot = &component.WeaponSlot{}
		if err := ecs.Add(w, actor, component.WeaponSlotComponent.Kind(), slot); err != nil {
			return err
		}
	}
	if ecs.Entity(wp.Owner) == actor && ecs.Entity(slot.Weapon) == weapon {
		return nil
	}

	previous := ecs.Entity(wp.Owner)
	if previous.Valid() && previous != actor {
		if prevSlot, ok := ecs.Get(w, previous, component.WeaponSlotComponent.Kind()); ok && ecs.Entity(prevSlot.Weapon) == weapon {
			prevSlot.Weapon = 0
		}
		s.log.Debug().Uint64("weapon", uint64(weapon)).Uint64("from", uint64(previous)).Msg("possession: disarmed previous holder")
	}

	if held := ecs.Entity(slot.Weapon); held.Valid() && held != weapon {
		if _, ok := s.Drop(w, actor); !ok {
			slot.Weapon = 0
		}
	}

	wp.Owner = uint64(actor)
	slot.Weapon = uint64(weapon)
	if s.Physics != nil {
		s.Physics.Attach(weapon)
	}
	s.followOwner(w, weapon, actor)

	w.Emit(ecs.Event{Type: EventWeaponEquipped, Entity: actor, Data: WeaponTransfer{
		Weapon: weapon, Actor: actor, Previous: previous,
	}})
	return nil
}

// Drop releases actor's weapon into the world with a small toss.
func (s *PossessionSystem) Drop(w *ecs.World, actor ecs.Entity) (ecs.Entity, bool) {
	slot, ok := ecs.Get(w, actor, component.WeaponSlotComponent.Kind())
	if !ok || slot.Weapon == 0 {
		return 0, false
	}
	weapon := ecs.Entity(slot.Weapon)
	slot.Weapon = 0

	wp, ok := ecs.Get(w, weapon, component.WeaponComponent.Kind())
	if !ok {
		return 0, false
	}
	if ecs.Entity(wp.Owner) != actor {
		// stale slot; the weapon already belongs to someone else
		return 0, false
	}
	wp.Owner = 0
	wp.LastHolder = uint64(actor)
	wp.PickupCooldown = s.PickupCooldown

	forward := mgl64.Vec3{0, 0, 1}
	pos := mgl64.Vec3{}
	if t, ok := ecs.Get(w, actor, component.TransformComponent.Kind()); ok {
		forward = t.Forward()
		pos = t.Position
	}
	release := pos.Add(forward.Mul(handReach)).Add(common.Up.Mul(handHeight))
	if t, ok := ecs.Get(w, weapon, component.TransformComponent.Kind()); ok {
		t.Position = release
	}
	if s.Physics != nil {
		impulse := forward.Add(common.Up).Mul(dropImpulse)
		s.Physics.Release(weapon, release, impulse, weaponRadius)
	}

	w.Emit(ecs.Event{Type: EventWeaponDropped, Entity: actor, Data: WeaponTransfer{
		Weapon: weapon, Previous: actor,
	}})
	return weapon, true
}

// Pickup is Equip restricted to free, settled weapons that actor did not
// just drop.
func (s *PossessionSystem) Pickup(w *ecs.World, actor, weapon ecs.Entity) error {
	wp, ok := ecs.Get(w, weapon, component.WeaponComponent.Kind())
	if !ok {
		return ErrNoWeapon
	}
	if owner := ecs.Entity(wp.Owner); owner.Valid() {
		if owner == actor {
			return nil
		}
		return ErrWeaponOwned
	}
	if ecs.Entity(wp.LastHolder) == actor && wp.PickupCooldown > 0 {
		return ErrPickupCooldown
	}
	if s.Physics != nil && !s.Physics.IsResting(weapon) {
		return ErrWeaponMoving
	}
	return s.Equip(w, actor, weapon)
}

func (s *PossessionSystem) IsArmed(w *ecs.World, actor ecs.Entity) bool {
	_, ok := s.Held(w, actor)
	return ok
}

// Held returns the weapon actor is armed with.
func (s *PossessionSystem) Held(w *ecs.World, actor ecs.Entity) (ecs.Entity, bool) {
	slot, ok := ecs.Get(w, actor, component.WeaponSlotComponent.Kind())
	if !ok || slot.Weapon == 0 {
		return 0, false
	}
	weapon := ecs.Entity(slot.Weapon)
	wp, ok := ecs.Get(w, weapon, component.WeaponComponent.Kind())
	if !ok || ecs.Entity(wp.Owner) != actor {
		return 0, false
	}
	return weapon, true
}

// NearestAvailable finds the closest ownerless weapon within radius of from.
func (s *PossessionSystem) NearestAvailable(w *ecs.World, from mgl64.Vec3, radius float64) (ecs.Entity, bool) {
	if s.Spatial != nil {
		for _, hit := range s.Spatial.OverlapSphere(from, radius, common.LayerWeapon) {
			wp, ok := ecs.Get(w, hit.Entity, component.WeaponComponent.Kind())
			if ok && wp.Owner == 0 {
				return hit.Entity, true
			}
		}
		return 0, false
	}

	s.log.Debug().Msg("possession: no spatial provider, scanning registry")
	best, bestDist := ecs.Entity(0), math.Inf(1)
	ecs.ForEach2(w, component.WeaponComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, wp *component.Weapon, t *component.Transform) {
		if wp.Owner != 0 {
			return
		}
		d := common.Flatten(t.Position.Sub(from)).Len()
		if d <= radius && (d < bestDist || (d == bestDist && e < best)) {
			best, bestDist = e, d
		}
	})
	return best, best.Valid()
}

// Update decays weapon cooldowns and keeps held weapons at their owner.
func (s *PossessionSystem) Update(w *ecs.World) {
	dt := w.DeltaTime()
	ecs.ForEach(w, component.WeaponComponent.Kind(), func(e ecs.Entity, wp *component.Weapon) {
		if wp.PickupCooldown > 0 {
			wp.PickupCooldown = math.Max(0, wp.PickupCooldown-dt)
		}
		if wp.FireCooldown > 0 {
			wp.FireCooldown = math.Max(0, wp.FireCooldown-dt)
		}
		if owner := ecs.Entity(wp.Owner); owner.Valid() {
			if !ecs.IsAlive(w, owner) {
				wp.Owner = 0
				return
			}
			s.followOwner(w, e, owner)
		}
	})
}

func (s *PossessionSystem) followOwner(w *ecs.World, weapon, owner ecs.Entity) {
	wt, ok := ecs.Get(w, weapon, component.TransformComponent.Kind())
	if !ok {
		return
	}
	ot, ok := ecs.Get(w, owner, component.TransformComponent.Kind())
	if !ok {
		return
	}
	wt.Position = ot.Position.Add(common.Up.Mul(handHeight))
	wt.Yaw = ot.Yaw
}
