package component

import "github.com/go-gl/mathgl/mgl64"

// PlayerTuning is the player's data-driven configuration.
type PlayerTuning struct {
	MaxHealth               float64      `yaml:"max_health"`
	InvulnerabilityDuration float64      `yaml:"invulnerability_duration"`
	Regeneration            Regeneration `yaml:"regeneration"`
	MeleeDamage             float64      `yaml:"melee_damage"`
	MeleeRange              float64      `yaml:"melee_range"`
	Radius                  float64      `yaml:"radius"`
	EyeHeight               float64      `yaml:"eye_height"`
}

func DefaultPlayerTuning() PlayerTuning {
	return PlayerTuning{
		MaxHealth:    100,
		Regeneration: Regeneration{Delay: 5, Rate: 1},
		MeleeDamage:  20,
		MeleeRange:   2,
		Radius:       0.5,
		EyeHeight:    1,
	}
}

// Player is the player agent's runtime state.
type Player struct {
	Tuning PlayerTuning

	// AimTarget is the world point the pointer rests on.
	AimTarget    mgl64.Vec3
	HasAimTarget bool
	// Aim is the last derived ground-plane aim direction.
	Aim mgl64.Vec3

	// Speed is measured from the position change over the previous tick.
	Speed        float64
	LastPosition mgl64.Vec3
	Tracked      bool

	// KnockedDown is the time left on the ground after a guard's melee hit.
	KnockedDown float64

	TriggerHeld bool
}

func (p *Player) IsKnockedDown() bool {
	return p != nil && p.KnockedDown > 0
}

var PlayerComponent = NewComponent[Player]()
