package system

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
	"github.com/milk9111/guardpost/ecs/entity"
	"github.com/stretchr/testify/require"
)

const testDT = 1.0 / 60.0

// harness is a small world wired the way a scenario is, without a nav grid.
type harness struct {
	t  *testing.T
	w  *ecs.World
	pw *ecs.PhysicsWorld

	health     *HealthSystem
	possession *PossessionSystem
	combat     *CombatSystem
	resolver   *Resolver
	guards     *GuardSystem
	nav        *NavSystem
	audio      *AudioSystem
	impacts    *ImpactSystem
	ttl        *TTLSystem

	player ecs.Entity
	events []ecs.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	w := ecs.NewWorld()
	pw := ecs.NewPhysicsWorld()
	w.SetPhysicsWorld(pw)

	h := &harness{t: t, w: w, pw: pw}
	rng := rand.New(rand.NewSource(7))
	h.health = NewHealthSystem()
	h.ttl = NewTTLSystem()
	h.audio = NewAudioSystem()
	h.impacts = NewImpactSystem(h.audio, h.ttl)
	h.possession = NewPossessionSystem(pw, pw)
	h.combat = NewCombatSystem(h.health, nil)
	h.resolver = NewResolver(pw, h.impacts, h.combat, rng)
	h.nav = NewNavSystem(nil)
	h.guards = NewGuardSystem(GuardDeps{
		Health:     h.health,
		Possession: h.possession,
		Resolver:   h.resolver,
		Spatial:    pw,
		Nav:        h.nav,
		Lifecycle:  h.ttl,
		Rand:       rng,
	})
	h.combat.Guards = h.guards

	w.AddSystem(h.guards)
	w.AddSystem(h.nav)
	w.AddSystem(h.possession)
	w.AddSystem(h.health)
	w.AddSystem(NewPhysicsSystem())
	w.AddSystem(h.audio)
	w.AddSystem(h.ttl)
	w.Subscribe(func(evt ecs.Event) { h.events = append(h.events, evt) })
	return h
}

func (h *harness) addPlayer(pos mgl64.Vec3, armed bool) ecs.Entity {
	h.t.Helper()
	e, err := entity.NewPlayerAt(h.w, component.DefaultPlayerTuning(), pos, 0)
	require.NoError(h.t, err)
	if armed {
		_, err := entity.NewHeldWeapon(h.w, component.DefaultWeaponProfile(), e)
		require.NoError(h.t, err)
	}
	h.player = e
	h.guards.Player = e
	RegisterColliders(h.w)
	return e
}

// addGuard places a vigilant guard. tune may adjust the default tuning; the
// weapon drop roll is disabled unless tune turns it back on.
func (h *harness) addGuard(pos mgl64.Vec3, yaw float64, armed bool, tune func(*component.GuardTuning)) ecs.Entity {
	h.t.Helper()
	tuning := component.DefaultGuardTuning()
	tuning.DropWeaponChance = 0
	if tune != nil {
		tune(&tuning)
	}
	e, err := entity.NewGuard(h.w, entity.GuardConfig{Tuning: tuning, Position: pos, Yaw: yaw})
	require.NoError(h.t, err)
	if armed {
		_, err := entity.NewHeldWeapon(h.w, component.DefaultWeaponProfile(), e)
		require.NoError(h.t, err)
	}
	RegisterColliders(h.w)
	return e
}

func (h *harness) addWeapon(pos mgl64.Vec3) ecs.Entity {
	h.t.Helper()
	e, err := entity.NewWeapon(h.w, component.DefaultWeaponProfile(), pos)
	require.NoError(h.t, err)
	RegisterColliders(h.w)
	return e
}

func (h *harness) addObstacle(center, size mgl64.Vec3) ecs.Entity {
	h.t.Helper()
	e, err := entity.NewObstacle(h.w, center, size, component.SurfaceStone)
	require.NoError(h.t, err)
	RegisterColliders(h.w)
	return e
}

func (h *harness) step(n int) {
	for i := 0; i < n; i++ {
		h.w.Update(testDT)
	}
}

func (h *harness) guard(e ecs.Entity) *component.Guard {
	h.t.Helper()
	g, ok := ecs.Get(h.w, e, component.GuardComponent.Kind())
	require.True(h.t, ok, "entity %s has no guard", e)
	return g
}

func (h *harness) healthOf(e ecs.Entity) *component.Health {
	h.t.Helper()
	hp, ok := ecs.Get(h.w, e, component.HealthComponent.Kind())
	require.True(h.t, ok, "entity %s has no health", e)
	return hp
}

// count flushes pending events and counts those of type typ matching keep.
func (h *harness) count(typ string, keep func(ecs.Event) bool) int {
	h.w.FlushEvents()
	n := 0
	for _, evt := range h.events {
		if evt.Type == typ && (keep == nil || keep(evt)) {
			n++
		}
	}
	return n
}

func enteredState(state component.GuardState) func(ecs.Event) bool {
	return func(evt ecs.Event) bool {
		sc, ok := evt.Data.(StateChanged)
		return ok && sc.To == state
	}
}
