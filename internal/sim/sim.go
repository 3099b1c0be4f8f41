// Package sim assembles a playable world from a scenario and steps it.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/guardpost/common"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
	"github.com/milk9111/guardpost/ecs/entity"
	"github.com/milk9111/guardpost/ecs/system"
	"github.com/milk9111/guardpost/prefabs"
	"github.com/rs/zerolog"
)

var ErrUnknownAlertMode = errors.New("sim: unknown alert mode")

// Options tune how a scenario is run. Zero values pick the defaults.
type Options struct {
	Seed      int64
	DeltaTime float64
	// AlertMode overrides the scenario's alert mode when set.
	AlertMode string
	// FSM overrides the built-in guard transition table.
	FSM *system.GuardFSM
	// NoScript skips the scenario's script.
	NoScript bool
	Logger   *zerolog.Logger
}

type guardEntry struct {
	name      string
	entity    ecs.Entity
	overrides map[string]any
}

// Sim is one running scenario.
type Sim struct {
	World  *ecs.World
	Spec   *prefabs.ScenarioSpec
	Player ecs.Entity
	// Names maps every named actor of the scenario to its entity.
	Names map[string]ecs.Entity

	Health     *system.HealthSystem
	Possession *system.PossessionSystem
	Combat     *system.CombatSystem
	Resolver   *system.Resolver
	Guards     *system.GuardSystem
	Nav        *system.NavSystem
	Physics    *system.PhysicsSystem
	Audio      *system.AudioSystem
	Impacts    *system.ImpactSystem
	TTL        *system.TTLSystem
	PlayerCtl  *system.PlayerSystem
	Script     *system.ScriptSystem

	// BeforeStep runs ahead of every tick stepped by Run.
	BeforeStep func()

	guards []guardEntry
	dt     float64
	log    zerolog.Logger
}

// Load reads the named scenario and builds it.
func Load(name string, opts Options) (*Sim, error) {
	spec, err := prefabs.LoadScenario(name)
	if err != nil {
		return nil, err
	}
	return New(spec, opts)
}

// ParseAlertMode maps a config string onto an alert mode. Empty means direct.
func ParseAlertMode(s string) (system.AlertMode, error) {
	switch s {
	case "", "direct":
		return system.AlertDirect, nil
	case "queued":
		return system.AlertQueued, nil
	}
	return system.AlertDirect, fmt.Errorf("%w: %q", ErrUnknownAlertMode, s)
}

// New builds the world described by spec.
func New(spec *prefabs.ScenarioSpec, opts Options) (*Sim, error) {
	if spec == nil {
		return nil, errors.New("sim: nil scenario")
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	log = log.With().Str("scenario", spec.Name).Logger()

	mode := spec.AlertMode
	if opts.AlertMode != "" {
		mode = opts.AlertMode
	}
	alertMode, err := ParseAlertMode(mode)
	if err != nil {
		return nil, err
	}
	dt := opts.DeltaTime
	if dt <= 0 {
		dt = common.DefaultDeltaTime
	}
	seed := opts.Seed
	if seed == 0 {
		seed = 1
	}

	guardSpec, err := prefabs.LoadGuardSpec()
	if err != nil {
		return nil, err
	}
	playerSpec, err := prefabs.LoadPlayerSpec()
	if err != nil {
		return nil, err
	}
	weapons, err := prefabs.LoadWeaponsSpec()
	if err != nil {
		return nil, err
	}

	w := ecs.NewWorld()
	pw := ecs.NewPhysicsWorld()
	pw.SetLogger(log.With().Str("component", "physics").Logger())
	w.SetPhysicsWorld(pw)

	s := &Sim{
		World: w,
		Spec:  spec,
		Names: make(map[string]ecs.Entity),
		dt:    dt,
		log:   log,
	}

	lo, hi := spec.Bounds.Min.Vec3(), spec.Bounds.Max.Vec3()
	if _, err := entity.NewLevelBounds(w, lo, hi, spec.CellSize); err != nil {
		return nil, err
	}
	for i, o := range spec.Obstacles {
		if _, err := entity.NewObstacle(w, o.Center.Vec3(), o.Size.Vec3(), component.Surface(o.Surface)); err != nil {
			return nil, fmt.Errorf("sim: obstacle %d: %w", i, err)
		}
	}
	system.RegisterColliders(w)

	grid := system.NewNavGrid(
		cp.BB{L: lo.X(), B: lo.Z(), R: hi.X(), T: hi.Z()},
		spec.CellSize,
		guardSpec.Tuning.Radius,
		pw.Obstacles(common.LayerObstacle),
	)

	rng := rand.New(rand.NewSource(seed))
	s.Health = system.NewHealthSystem()
	s.TTL = system.NewTTLSystem()
	s.Audio = system.NewAudioSystem()
	s.Impacts = system.NewImpactSystem(s.Audio, s.TTL)
	s.Possession = system.NewPossessionSystem(pw, pw)
	s.Combat = system.NewCombatSystem(s.Health, nil)
	s.Resolver = system.NewResolver(pw, s.Impacts, s.Combat, rng)
	s.Nav = system.NewNavSystem(grid)
	s.Physics = system.NewPhysicsSystem()
	s.Guards = system.NewGuardSystem(system.GuardDeps{
		FSM:        opts.FSM,
		Health:     s.Health,
		Possession: s.Possession,
		Resolver:   s.Resolver,
		Spatial:    pw,
		Nav:        s.Nav,
		Lifecycle:  s.TTL,
		Rand:       rng,
	})
	s.Guards.AlertMode = alertMode
	s.Combat.Guards = s.Guards
	s.setLoggers()

	if err := s.spawnPlayer(spec.Player, playerSpec, weapons); err != nil {
		return nil, err
	}
	for _, g := range spec.Guards {
		if err := s.spawnGuard(g, guardSpec, weapons); err != nil {
			return nil, err
		}
	}
	for i, wp := range spec.Weapons {
		profile, err := weapons.Profile(wp.Profile)
		if err != nil {
			return nil, fmt.Errorf("sim: weapon %d: %w", i, err)
		}
		if _, err := entity.NewWeapon(w, profile, wp.Position.Vec3()); err != nil {
			return nil, err
		}
	}
	system.RegisterColliders(w)

	s.Guards.Player = s.Player
	s.PlayerCtl = system.NewPlayerSystem(s.Player, s.Possession, s.Resolver, s.Combat)
	s.PlayerCtl.SetLogger(s.component("player"))

	if spec.Script != "" && !opts.NoScript {
		script, err := system.LoadScriptSystem(spec.Script)
		if err != nil {
			return nil, err
		}
		script.Player = s.PlayerCtl
		script.Guards = s.Guards
		script.Names = s.Names
		script.SetLogger(s.component("script"))
		s.Script = script
		w.AddSystem(script)
	}

	w.AddSystem(s.PlayerCtl)
	w.AddSystem(s.Guards)
	w.AddSystem(s.Nav)
	w.AddSystem(s.Possession)
	w.AddSystem(s.Health)
	w.AddSystem(s.Physics)
	w.AddSystem(s.Audio)
	w.AddSystem(s.TTL)

	log.Info().
		Int("guards", len(s.guards)).
		Int("obstacles", len(spec.Obstacles)).
		Str("alert_mode", mode).
		Int64("seed", seed).
		Msg("sim: scenario built")
	return s, nil
}

func (s *Sim) component(name string) zerolog.Logger {
	return s.log.With().Str("component", name).Logger()
}

func (s *Sim) setLoggers() {
	s.Health.SetLogger(s.component("health"))
	s.Audio.SetLogger(s.component("audio"))
	s.Impacts.SetLogger(s.component("impacts"))
	s.TTL.SetLogger(s.component("ttl"))
	s.Possession.SetLogger(s.component("possession"))
	s.Resolver.SetLogger(s.component("resolver"))
	s.Nav.SetLogger(s.component("nav"))
	s.Guards.SetLogger(s.component("guards"))
}

func (s *Sim) spawnPlayer(a prefabs.ActorSpec, archetype *prefabs.PlayerSpec, weapons *prefabs.WeaponsSpec) error {
	tuning := archetype.Tuning
	if a.Health > 0 {
		tuning.MaxHealth = a.Health
	}
	e, err := entity.NewPlayerAt(s.World, tuning, a.Position.Vec3(), a.Yaw)
	if err != nil {
		return err
	}
	s.Player = e
	name := a.Name
	if name == "" {
		name = "player"
	}
	s.Names[name] = e
	return s.arm(e, a.Weapon, archetype.Weapon, weapons)
}

func (s *Sim) spawnGuard(g prefabs.GuardPlacementSpec, archetype *prefabs.GuardSpec, weapons *prefabs.WeaponsSpec) error {
	tuning, err := prefabs.ApplyOverrides(archetype.Tuning, g.Overrides)
	if err != nil {
		return fmt.Errorf("sim: guard %s overrides: %w", g.Name, err)
	}
	waypoints := make([]mgl64.Vec3, 0, len(g.Waypoints))
	for _, p := range g.Waypoints {
		waypoints = append(waypoints, p.Vec3())
	}
	e, err := entity.NewGuard(s.World, entity.GuardConfig{
		Tuning:    tuning,
		Position:  g.Position.Vec3(),
		Yaw:       g.Yaw,
		Waypoints: waypoints,
		Patrol:    g.Patrol,
		Health:    g.Health,
	})
	if err != nil {
		return err
	}
	name := g.Name
	if name == "" {
		name = fmt.Sprintf("guard%d", len(s.guards)+1)
	}
	if _, dup := s.Names[name]; dup {
		return fmt.Errorf("sim: duplicate actor name %q", name)
	}
	s.Names[name] = e
	s.guards = append(s.guards, guardEntry{name: name, entity: e, overrides: g.Overrides})
	return s.arm(e, g.Weapon, archetype.Weapon, weapons)
}

// arm gives actor the named weapon, falling back to the archetype's. "none"
// leaves the actor unarmed.
func (s *Sim) arm(actor ecs.Entity, name, fallback string, weapons *prefabs.WeaponsSpec) error {
	if name == "" {
		name = fallback
	}
	if name == "" || name == "none" {
		return nil
	}
	profile, err := weapons.Profile(name)
	if err != nil {
		return err
	}
	_, err = entity.NewHeldWeapon(s.World, profile, actor)
	return err
}

// Step advances the world by one tick.
func (s *Sim) Step() {
	s.World.Update(s.dt)
}

// Run steps until ticks have run, ctx is done, or the fight is over. It
// returns the number of ticks stepped.
func (s *Sim) Run(ctx context.Context, ticks int) int {
	n := 0
	for ticks <= 0 || n < ticks {
		if err := ctx.Err(); err != nil {
			break
		}
		if s.BeforeStep != nil {
			s.BeforeStep()
		}
		s.Step()
		n++
		if s.Over() {
			break
		}
	}
	return n
}

// Over reports whether the player or every guard is dead.
func (s *Sim) Over() bool {
	if h, ok := ecs.Get(s.World, s.Player, component.HealthComponent.Kind()); !ok || h.Dead {
		return true
	}
	for _, g := range s.guards {
		if guard, ok := ecs.Get(s.World, g.entity, component.GuardComponent.Kind()); ok && guard.State != component.GuardDead {
			return false
		}
	}
	return len(s.guards) > 0
}

// Guard returns the entity of the named guard.
func (s *Sim) Guard(name string) (ecs.Entity, bool) {
	for _, g := range s.guards {
		if g.name == name {
			return g.entity, true
		}
	}
	return 0, false
}

// GuardNames lists the guards in scenario order.
func (s *Sim) GuardNames() []string {
	out := make([]string, 0, len(s.guards))
	for _, g := range s.guards {
		out = append(out, g.name)
	}
	return out
}

// ApplyGuardTuning replaces every living guard's tuning with base plus the
// guard's own overrides.
func (s *Sim) ApplyGuardTuning(base component.GuardTuning) error {
	for _, g := range s.guards {
		guard, ok := ecs.Get(s.World, g.entity, component.GuardComponent.Kind())
		if !ok {
			continue
		}
		tuning, err := prefabs.ApplyOverrides(base, g.overrides)
		if err != nil {
			return fmt.Errorf("sim: guard %s overrides: %w", g.name, err)
		}
		guard.Tuning = tuning
	}
	s.log.Info().Int("guards", len(s.guards)).Msg("sim: guard tuning reloaded")
	return nil
}

// GuardReport is the final state of one guard.
type GuardReport struct {
	Name    string
	State   component.GuardState
	Health  float64
	Armed   bool
	Removed bool
}

// Report summarises the world at the end of a run.
type Report struct {
	Scenario     string
	Ticks        int
	Elapsed      float64
	PlayerHealth float64
	PlayerDead   bool
	PlayerArmed  bool
	Guards       []GuardReport
}

func (s *Sim) Report() Report {
	r := Report{
		Scenario: s.Spec.Name,
		Ticks:    s.World.Ticks(),
		Elapsed:  s.World.Elapsed(),
	}
	if h, ok := ecs.Get(s.World, s.Player, component.HealthComponent.Kind()); ok {
		r.PlayerHealth = h.Current
		r.PlayerDead = h.Dead
	} else {
		r.PlayerDead = true
	}
	r.PlayerArmed = s.Possession.IsArmed(s.World, s.Player)

	for _, g := range s.guards {
		gr := GuardReport{Name: g.name, State: component.GuardDead}
		guard, ok := ecs.Get(s.World, g.entity, component.GuardComponent.Kind())
		if !ok {
			gr.Removed = true
			r.Guards = append(r.Guards, gr)
			continue
		}
		gr.State = guard.State
		if h, ok := ecs.Get(s.World, g.entity, component.HealthComponent.Kind()); ok {
			gr.Health = h.Current
		}
		gr.Armed = s.Possession.IsArmed(s.World, g.entity)
		r.Guards = append(r.Guards, gr)
	}
	sort.SliceStable(r.Guards, func(i, j int) bool { return r.Guards[i].Name < r.Guards[j].Name })
	return r
}
