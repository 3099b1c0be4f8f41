package system

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
)

// World event types.
const (
	EventDamaged        = "damaged"
	EventHealed         = "healed"
	EventHealthChanged  = "health_changed"
	EventDied           = "died"
	EventRespawned      = "respawned"
	EventShotFired      = "shot_fired"
	EventMeleeHit       = "melee_hit"
	EventStateChanged   = "state_changed"
	EventAlertRaised    = "alert_raised"
	EventWeaponEquipped = "weapon_equipped"
	EventWeaponDropped  = "weapon_dropped"
	EventPlayerKnocked  = "player_knocked_down"
)

// HealthChange reports the outcome of a health mutation.
type HealthChange struct {
	Applied  bool
	Previous float64
	Current  float64
	Max      float64
	Amount   float64
	Died     bool
}

type ShotFired struct {
	Shooter ecs.Entity
	Weapon  ecs.Entity
	Result  ShotResult
}

type MeleeHit struct {
	Attacker    ecs.Entity
	Target      ecs.Entity
	Damage      float64
	KnockedDown bool
}

type StateChanged struct {
	From  component.GuardState
	To    component.GuardState
	Event component.GuardEvent
}

type AlertRaised struct {
	Position mgl64.Vec3
	Notified []ecs.Entity
}

type WeaponTransfer struct {
	Weapon   ecs.Entity
	Actor    ecs.Entity
	Previous ecs.Entity
}
