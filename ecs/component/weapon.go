package component

import (
	"errors"
	"fmt"
)

var ErrInvalidWeaponProfile = errors.New("weapon: invalid profile")

// WeaponProfile holds the static combat stats of a weapon.
type WeaponProfile struct {
	Name string `yaml:"name"`
	// Damage dealt per hit.
	Damage float64 `yaml:"damage"`
	// FireRate is the minimum number of seconds between two shots.
	FireRate float64 `yaml:"fire_rate"`
	// Accuracy in [0,1]; 1 fires exactly where aimed.
	Accuracy  float64 `yaml:"accuracy"`
	Automatic bool    `yaml:"automatic"`
	Range     float64 `yaml:"range"`
	// SpreadAngle is the maximum deviation in degrees at accuracy 0.
	SpreadAngle float64 `yaml:"spread_angle"`
	ShootSound  string  `yaml:"shoot_sound"`
}

func DefaultWeaponProfile() WeaponProfile {
	return WeaponProfile{
		Name:        "pistol",
		Damage:      10,
		FireRate:    0.5,
		Accuracy:    0.95,
		Automatic:   false,
		Range:       50,
		SpreadAngle: 2,
		ShootSound:  "shoot",
	}
}

// Validate clamps accuracy into [0,1] and rejects negative stats.
func (p *WeaponProfile) Validate() error {
	if p.Damage < 0 || p.FireRate < 0 || p.Range < 0 || p.SpreadAngle < 0 {
		return fmt.Errorf("%w: %q has a negative stat", ErrInvalidWeaponProfile, p.Name)
	}
	if p.Accuracy < 0 {
		p.Accuracy = 0
	}
	if p.Accuracy > 1 {
		p.Accuracy = 1
	}
	return nil
}

// Weapon is a weapon instance in the world. Owner and LastHolder are entity
// ids (0 = none).
type Weapon struct {
	Profile    WeaponProfile
	Owner      uint64
	LastHolder uint64

	// PickupCooldown blocks LastHolder from taking the weapon back right after
	// dropping it.
	PickupCooldown float64
	// FireCooldown is the time left before the weapon may fire again.
	FireCooldown float64
}

// WeaponSlot is the single weapon an actor can carry.
type WeaponSlot struct {
	Weapon uint64
}

var WeaponComponent = NewComponent[Weapon]()
var WeaponSlotComponent = NewComponent[WeaponSlot]()
