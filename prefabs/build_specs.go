package prefabs

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

// Point is a ground-plane position written as [x, z].
type Point [2]float64

func (p Point) Vec3() mgl64.Vec3 {
	return mgl64.Vec3{p[0], 0, p[1]}
}

type BoundsSpec struct {
	Min Point `yaml:"min"`
	Max Point `yaml:"max"`
}

type ObstacleSpec struct {
	Center Point `yaml:"center"`
	// Size is the full footprint [width along x, depth along z].
	Size    Point  `yaml:"size"`
	Surface string `yaml:"surface"`
}

type ActorSpec struct {
	Name     string  `yaml:"name"`
	Position Point   `yaml:"position"`
	Yaw      float64 `yaml:"yaw"`
	// Weapon names a profile from weapons.yaml; empty means unarmed unless
	// the archetype provides one. "none" forces unarmed.
	Weapon string `yaml:"weapon"`
	Health float64 `yaml:"health"`
}

type GuardPlacementSpec struct {
	ActorSpec `yaml:",inline"`
	Waypoints []Point `yaml:"waypoints"`
	Patrol    bool    `yaml:"patrol"`
	// Overrides replaces individual tuning keys for this guard only.
	Overrides map[string]any `yaml:"overrides"`
}

type WeaponPlacementSpec struct {
	Profile  string `yaml:"profile"`
	Position Point  `yaml:"position"`
}

// ScenarioSpec is a complete headless encounter.
type ScenarioSpec struct {
	Name      string                `yaml:"name"`
	Bounds    BoundsSpec            `yaml:"bounds"`
	CellSize  float64               `yaml:"cell_size"`
	Ticks     int                   `yaml:"ticks"`
	AlertMode string                `yaml:"alert_mode"`
	Script    string                `yaml:"script"`
	Player    ActorSpec             `yaml:"player"`
	Guards    []GuardPlacementSpec  `yaml:"guards"`
	Obstacles []ObstacleSpec        `yaml:"obstacles"`
	Weapons   []WeaponPlacementSpec `yaml:"weapons"`
}

func LoadScenario(name string) (*ScenarioSpec, error) {
	file := name
	if !strings.HasSuffix(file, ".yaml") {
		file += ".yaml"
	}
	if !strings.Contains(file, "/") {
		file = path.Join("scenarios", file)
	}
	spec, err := LoadSpec[ScenarioSpec](file)
	if err != nil {
		return nil, err
	}
	if spec.Name == "" {
		spec.Name = strings.TrimSuffix(path.Base(file), ".yaml")
	}
	if spec.Bounds.Max[0] <= spec.Bounds.Min[0] || spec.Bounds.Max[1] <= spec.Bounds.Min[1] {
		return nil, fmt.Errorf("prefabs: scenario %s: empty bounds", spec.Name)
	}
	return &spec, nil
}

// Scenarios lists the embedded scenario names.
func Scenarios() ([]string, error) {
	entries, err := fs.ReadDir(PrefabsFS, "scenarios")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isSpecFile(e.Name()) {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(out)
	return out, nil
}

// DecodeComponentSpec converts a loosely typed YAML value into T.
func DecodeComponentSpec[T any](raw any) (T, error) {
	var zero T
	if raw == nil {
		return zero, nil
	}
	return ApplyOverrides(zero, raw)
}

// ApplyOverrides decodes raw on top of base, leaving absent keys untouched.
func ApplyOverrides[T any](base T, raw any) (T, error) {
	if raw == nil {
		return base, nil
	}
	b, err := yaml.Marshal(raw)
	if err != nil {
		return base, err
	}
	out := base
	if err := yaml.Unmarshal(b, &out); err != nil {
		return base, err
	}
	return out, nil
}
