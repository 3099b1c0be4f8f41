package prefabs

import (
	"errors"
	"fmt"

	"github.com/milk9111/guardpost/ecs/component"
	"gopkg.in/yaml.v3"
)

var ErrUnknownWeapon = errors.New("prefabs: unknown weapon profile")

// LoadSpec decodes a YAML prefab into a zero T.
func LoadSpec[T any](filename string) (T, error) {
	var zero T
	spec, err := LoadSpecInto(filename, zero)
	if err != nil {
		return zero, err
	}
	return spec, nil
}

// LoadSpecInto decodes a YAML prefab over base, so keys the file omits keep
// base's values.
func LoadSpecInto[T any](filename string, base T) (T, error) {
	data, err := Load(filename)
	if err != nil {
		return base, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	spec := base
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return base, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

type GuardSpec struct {
	Name   string                `yaml:"name"`
	Weapon string                `yaml:"weapon"`
	Tuning component.GuardTuning `yaml:"tuning"`
}

// LoadGuardSpec reads guard.yaml on top of the built-in tuning.
func LoadGuardSpec() (*GuardSpec, error) {
	spec, err := LoadSpecInto("guard.yaml", GuardSpec{Name: "guard", Tuning: component.DefaultGuardTuning()})
	if err != nil {
		return nil, err
	}
	return &spec, nil
}

type PlayerSpec struct {
	Name   string                 `yaml:"name"`
	Weapon string                 `yaml:"weapon"`
	Tuning component.PlayerTuning `yaml:"tuning"`
}

func LoadPlayerSpec() (*PlayerSpec, error) {
	spec, err := LoadSpecInto("player.yaml", PlayerSpec{Name: "player", Tuning: component.DefaultPlayerTuning()})
	if err != nil {
		return nil, err
	}
	return &spec, nil
}

type WeaponsSpec struct {
	Weapons []component.WeaponProfile `yaml:"weapons"`
}

// Profile returns the validated profile called name. Fields the file leaves
// out fall back to the default profile.
func (s *WeaponsSpec) Profile(name string) (component.WeaponProfile, error) {
	for _, p := range s.Weapons {
		if p.Name != name {
			continue
		}
		if err := p.Validate(); err != nil {
			return component.WeaponProfile{}, fmt.Errorf("prefabs: weapon %q: %w", name, err)
		}
		return p, nil
	}
	return component.WeaponProfile{}, fmt.Errorf("%w: %q", ErrUnknownWeapon, name)
}

// UnmarshalYAML fills omitted profile fields from the default profile.
func (s *WeaponsSpec) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Weapons []yaml.Node `yaml:"weapons"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	s.Weapons = make([]component.WeaponProfile, 0, len(raw.Weapons))
	for i := range raw.Weapons {
		p := component.DefaultWeaponProfile()
		if err := raw.Weapons[i].Decode(&p); err != nil {
			return err
		}
		s.Weapons = append(s.Weapons, p)
	}
	return nil
}

func LoadWeaponsSpec() (*WeaponsSpec, error) {
	spec, err := LoadSpec[WeaponsSpec]("weapons.yaml")
	if err != nil {
		return nil, err
	}
	return &spec, nil
}
