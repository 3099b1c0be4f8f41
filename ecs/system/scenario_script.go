package system

import (
	"fmt"
	"sort"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
	"github.com/milk9111/guardpost/prefabs"
	"github.com/rs/zerolog"
)

const scenarioDispatchScript = `
if __phase == "tick" {
	tick(__engine, __state)
}
`

// ScriptSystem drives a headless run from a tengo script: the script moves
// and aims the player, pulls the trigger and pokes guards from outside
// (interrogation, forced damage). The script defines tick(engine, state);
// state is a map that survives between ticks.
type ScriptSystem struct {
	Player *PlayerSystem
	Guards *GuardSystem
	// Names maps scenario names to entities for the script's lookups.
	Names map[string]ecs.Entity

	path     string
	compiled *tengo.Compiled
	state    *tengo.Map
	failed   bool
	log      zerolog.Logger
}

// LoadScriptSystem compiles the embedded or on-disk script at path.
func LoadScriptSystem(path string) (*ScriptSystem, error) {
	src, err := prefabs.LoadScript(path)
	if err != nil {
		return nil, fmt.Errorf("script: load %s: %w", path, err)
	}
	return NewScriptSystem(path, src)
}

func NewScriptSystem(path string, src []byte) (*ScriptSystem, error) {
	full := string(src) + "\n" + scenarioDispatchScript
	script := tengo.NewScript([]byte(full))
	_ = script.Add("__phase", "")
	_ = script.Add("__engine", map[string]any{})
	_ = script.Add("__state", map[string]any{})
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("script: compile %s: %w", path, err)
	}
	return &ScriptSystem{
		Names:    map[string]ecs.Entity{},
		path:     path,
		compiled: compiled,
		state:    &tengo.Map{Value: map[string]tengo.Object{}},
		log:      zerolog.Nop(),
	}, nil
}

func (s *ScriptSystem) SetLogger(l zerolog.Logger) {
	s.log = l
}

// Reload recompiles the script from its source path. The state map is kept,
// and a script disabled by an error runs again.
func (s *ScriptSystem) Reload() error {
	src, err := prefabs.LoadScript(s.path)
	if err != nil {
		return fmt.Errorf("script: load %s: %w", s.path, err)
	}
	next, err := NewScriptSystem(s.path, src)
	if err != nil {
		return err
	}
	s.compiled = next.compiled
	s.failed = false
	s.log.Info().Str("script", s.path).Msg("script: reloaded")
	return nil
}

// Path is the script's prefab path.
func (s *ScriptSystem) Path() string {
	return s.path
}

func (s *ScriptSystem) Update(w *ecs.World) {
	if s == nil || s.compiled == nil || s.failed {
		return
	}
	if err := s.run("tick", s.engine(w)); err != nil {
		s.fail(err)
	}
}

func (s *ScriptSystem) fail(err error) {
	s.failed = true
	s.log.Error().Err(err).Str("script", s.path).Msg("script: disabled after error")
}

func (s *ScriptSystem) run(phase string, engine *tengo.ImmutableMap) error {
	if err := s.compiled.Set("__phase", phase); err != nil {
		return err
	}
	if err := s.compiled.Set("__engine", engine); err != nil {
		return err
	}
	if err := s.compiled.Set("__state", s.state); err != nil {
		return err
	}
	return s.compiled.Run()
}

func (s *ScriptSystem) entity(obj tengo.Object) (ecs.Entity, bool) {
	name := strings.TrimSpace(objectAsString(obj))
	e, ok := s.Names[name]
	return e, ok
}

func (s *ScriptSystem) engine(w *ecs.World) *tengo.ImmutableMap {
	values := map[string]tengo.Object{}
	fn := func(name string, f tengo.CallableFunc) {
		values[name] = &tengo.UserFunction{Name: name, Value: f}
	}

	fn("elapsed", func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.Float{Value: w.Elapsed()}, nil
	})
	fn("ticks", func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.Int{Value: int64(w.Ticks())}, nil
	})
	fn("log", func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, 0, len(args))
		for _, a := range args {
			parts = append(parts, objectAsString(a))
		}
		s.log.Info().Str("script", s.path).Msg(strings.Join(parts, " "))
		return tengo.UndefinedValue, nil
	})

	fn("position", func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return tengo.UndefinedValue, nil
		}
		e, ok := s.entity(args[0])
		if !ok {
			return tengo.UndefinedValue, nil
		}
		pos, ok := position(w, e)
		if !ok {
			return tengo.UndefinedValue, nil
		}
		return vecObject(pos), nil
	})
	fn("move", func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 3 {
			return tengo.FalseValue, nil
		}
		e, ok := s.entity(args[0])
		if !ok {
			return tengo.FalseValue, nil
		}
		x, _ := tengo.ToFloat64(args[1])
		z, _ := tengo.ToFloat64(args[2])
		Teleport(w, e, mgl64.Vec3{x, 0, z})
		return tengo.TrueValue, nil
	})
	fn("aim", func(args ...tengo.Object) (tengo.Object, error) {
		if s.Player == nil || len(args) < 2 {
			return tengo.FalseValue, nil
		}
		pc, ok := ecs.Get(w, s.Player.Entity, component.PlayerComponent.Kind())
		if !ok {
			return tengo.FalseValue, nil
		}
		x, _ := tengo.ToFloat64(args[0])
		z, _ := tengo.ToFloat64(args[1])
		pc.AimTarget = mgl64.Vec3{x, 0, z}
		pc.HasAimTarget = true
		return tengo.TrueValue, nil
	})
	fn("shoot", func(args ...tengo.Object) (tengo.Object, error) {
		if s.Player == nil {
			return tengo.FalseValue, nil
		}
		held := len(args) > 0 && !args[0].IsFalsy()
		pressed := len(args) < 2 || !args[1].IsFalsy()
		result, fired := s.Player.Shoot(w, held, pressed)
		if !fired {
			return tengo.FalseValue, nil
		}
		return &tengo.String{Value: result.Outcome.String()}, nil
	})
	fn("melee", func(args ...tengo.Object) (tengo.Object, error) {
		if s.Player == nil {
			return tengo.FalseValue, nil
		}
		if len(args) > 0 {
			e, ok := s.entity(args[0])
			if !ok {
				return tengo.FalseValue, nil
			}
			return boolObject(s.Player.Melee(w, e)), nil
		}
		_, hit := s.Player.MeleeNearest(w)
		return boolObject(hit), nil
	})

	fn("guard_state", func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return tengo.UndefinedValue, nil
		}
		e, ok := s.entity(args[0])
		if !ok {
			return tengo.UndefinedValue, nil
		}
		g, ok := ecs.Get(w, e, component.GuardComponent.Kind())
		if !ok {
			return tengo.UndefinedValue, nil
		}
		return &tengo.String{Value: string(g.State)}, nil
	})
	fn("health", func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return tengo.UndefinedValue, nil
		}
		e, ok := s.entity(args[0])
		if !ok {
			return tengo.UndefinedValue, nil
		}
		h, ok := ecs.Get(w, e, component.HealthComponent.Kind())
		if !ok {
			return tengo.UndefinedValue, nil
		}
		return &tengo.Float{Value: h.Current}, nil
	})
	recoverGuard := func(args ...tengo.Object) (tengo.Object, error) {
		if s.Guards == nil || len(args) < 1 {
			return tengo.FalseValue, nil
		}
		e, ok := s.entity(args[0])
		if !ok {
			return tengo.FalseValue, nil
		}
		return boolObject(s.Guards.Recover(w, e)), nil
	}
	fn("recover", recoverGuard)
	fn("interrogate", recoverGuard)
	fn("damage", func(args ...tengo.Object) (tengo.Object, error) {
		if s.Guards == nil || len(args) < 2 {
			return tengo.FalseValue, nil
		}
		e, ok := s.entity(args[0])
		if !ok {
			return tengo.FalseValue, nil
		}
		amount, _ := tengo.ToFloat64(args[1])
		melee := len(args) > 2 && !args[2].IsFalsy()
		source := mgl64.Vec3{}
		if s.Player != nil {
			source, _ = position(w, s.Player.Entity)
		}
		return boolObject(s.Guards.TakeDamage(w, e, amount, melee, source)), nil
	})
	fn("names", func(args ...tengo.Object) (tengo.Object, error) {
		keys := make([]string, 0, len(s.Names))
		for k := range s.Names {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]tengo.Object, 0, len(keys))
		for _, k := range keys {
			out = append(out, &tengo.String{Value: k})
		}
		return &tengo.Array{Value: out}, nil
	})

	return &tengo.ImmutableMap{Value: values}
}

func vecObject(v mgl64.Vec3) tengo.Object {
	return &tengo.Array{Value: []tengo.Object{&tengo.Float{Value: v.X()}, &tengo.Float{Value: v.Z()}}}
}

func boolObject(v bool) tengo.Object {
	if v {
		return tengo.TrueValue
	}
	return tengo.FalseValue
}

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}
	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	default:
		return strings.Trim(v.String(), "\"")
	}
}
