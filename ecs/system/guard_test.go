package system

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/common"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
	"github.com/milk9111/guardpost/ecs/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChooseReaction(t *testing.T) {
	cases := []struct {
		name                         string
		armed, healthy, weaponNearby bool
		want                         component.GuardEvent
	}{
		{"armed_healthy", true, true, false, component.EventEngage},
		{"armed_healthy_weapon_nearby", true, true, true, component.EventEngage},
		{"armed_wounded", true, false, false, component.EventFlee},
		{"unarmed_weapon_nearby", false, true, true, component.EventSeekWeapon},
		{"unarmed_wounded_weapon_nearby", false, false, true, component.EventSeekWeapon},
		{"unarmed_no_weapon", false, true, false, component.EventFlee},
		{"unarmed_wounded_no_weapon", false, false, false, component.EventFlee},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ChooseReaction(c.armed, c.healthy, c.weaponNearby))
		})
	}
}

func TestTransitionToCurrentStateIsNoop(t *testing.T) {
	h := newHarness(t)
	g := h.addGuard(mgl64.Vec3{}, 0, true, nil)

	require.True(t, h.guards.Transition(h.w, g, component.GuardChasing))
	data := h.guard(g).Data
	require.IsType(t, &component.ChasingData{}, data)

	assert.False(t, h.guards.Transition(h.w, g, component.GuardChasing))
	assert.Same(t, data, h.guard(g).Data, "state data is not rebuilt")
	assert.Equal(t, 1, h.count(EventStateChanged, enteredState(component.GuardChasing)))
}

func TestFireIgnoresEventsWithoutTransition(t *testing.T) {
	h := newHarness(t)
	g := h.addGuard(mgl64.Vec3{}, 0, true, nil)

	require.True(t, h.guards.Fire(h.w, g, component.EventKnockedDown))
	assert.False(t, h.guards.Fire(h.w, g, component.EventEngage))
	assert.False(t, h.guards.Fire(h.w, g, component.EventAlerted))
	assert.Equal(t, component.GuardKnockedDown, h.guard(g).State)
}

func TestRangedHitOnVigilantGuardLeavesItFleeing(t *testing.T) {
	h := newHarness(t)
	h.addPlayer(mgl64.Vec3{0, 0, 5}, false)
	g := h.addGuard(mgl64.Vec3{}, 0, true, nil)

	require.True(t, h.guards.TakeDamage(h.w, g, 80, false, mgl64.Vec3{0, 0, 5}))

	guard := h.guard(g)
	assert.InDelta(t, 20, h.healthOf(g).Current, 1e-9)
	assert.Greater(t, guard.StunTimer, 0.0)
	assert.Equal(t, component.GuardFleeing, guard.State)
	assert.True(t, h.possession.IsArmed(h.w, g), "drop chance is zero")

	pos, _ := position(h.w, g)
	assert.InDelta(t, -0.5, pos.Z(), 1e-9, "knocked back away from the shooter")
}

func TestChasingGuardFleesWhenHealthCrossesThreshold(t *testing.T) {
	cases := []struct {
		name   string
		health float64
		damage float64
		want   component.GuardState
	}{
		{"crosses_threshold", 40, 20, component.GuardFleeing},
		{"stays_healthy", 80, 20, component.GuardChasing},
		{"already_wounded", 25, 5, component.GuardChasing},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := newHarness(t)
			g := h.addGuard(mgl64.Vec3{}, 0, true, nil)
			h.healthOf(g).Current = c.health
			require.True(t, h.guards.Transition(h.w, g, component.GuardChasing))

			require.True(t, h.guards.TakeDamage(h.w, g, c.damage, false, mgl64.Vec3{0, 0, 5}))
			assert.Equal(t, c.want, h.guard(g).State)
		})
	}
}

func TestUnarmedGuardRecoversNearbyWeapon(t *testing.T) {
	h := newHarness(t)
	h.addPlayer(mgl64.Vec3{0, 0, 5}, false)
	g := h.addGuard(mgl64.Vec3{}, 0, false, nil)
	weapon := h.addWeapon(mgl64.Vec3{0, 0, -2})

	h.step(1)
	require.Equal(t, component.GuardRecoveringWeapon, h.guard(g).State)
	assert.Equal(t, uint64(weapon), h.guard(g).Data.(*component.RecoveringWeaponData).Target)

	h.step(180)
	held, ok := h.possession.Held(h.w, g)
	require.True(t, ok)
	assert.Equal(t, weapon, held)
	assert.Equal(t, component.GuardChasing, h.guard(g).State, "armed again, the guard engages the player")
	assert.Equal(t, 1, h.count(EventWeaponEquipped, nil))
}

func TestRecoveringGuardWrenchesWeaponFromPlayer(t *testing.T) {
	h := newHarness(t)
	p := h.addPlayer(mgl64.Vec3{0, 0, -4}, false)
	g := h.addGuard(mgl64.Vec3{}, 0, false, func(tu *component.GuardTuning) {
		tu.DetectionRange = 0
	})
	weapon := h.addWeapon(mgl64.Vec3{0, 0, -3})

	require.True(t, h.guards.Fire(h.w, g, component.EventSeekWeapon))
	h.step(1)
	require.Equal(t, component.GuardRecoveringWeapon, h.guard(g).State)
	require.Equal(t, uint64(weapon), h.guard(g).Data.(*component.RecoveringWeaponData).Target)

	require.NoError(t, h.possession.Equip(h.w, p, weapon))
	require.True(t, h.possession.IsArmed(h.w, p))

	h.step(240)
	assert.False(t, h.possession.IsArmed(h.w, p))
	held, ok := h.possession.Held(h.w, g)
	require.True(t, ok)
	assert.Equal(t, weapon, held)
	assert.Equal(t, 1, h.count(EventWeaponEquipped, func(evt ecs.Event) bool {
		tr := evt.Data.(WeaponTransfer)
		return tr.Actor == g && tr.Previous == p
	}))
}

func TestPlayerDeathFreezesWeaponRecovery(t *testing.T) {
	h := newHarness(t)
	p := h.addPlayer(mgl64.Vec3{0, 0, 20}, false)
	g := h.addGuard(mgl64.Vec3{}, 0, false, func(tu *component.GuardTuning) {
		tu.DetectionRange = 0
	})
	h.addWeapon(mgl64.Vec3{0, 0, -3})

	require.True(t, h.guards.Fire(h.w, g, component.EventSeekWeapon))
	h.step(1)
	require.Equal(t, component.GuardRecoveringWeapon, h.guard(g).State)

	require.True(t, h.health.Damage(h.w, p, 1000).Died)
	h.step(240)
	assert.False(t, h.possession.IsArmed(h.w, g))
	assert.Equal(t, component.GuardRecoveringWeapon, h.guard(g).State)
	assert.Zero(t, h.count(EventWeaponEquipped, nil))
}

func TestUnarmedGuardWithoutWeaponFlees(t *testing.T) {
	h := newHarness(t)
	h.addPlayer(mgl64.Vec3{0, 0, 5}, false)
	g := h.addGuard(mgl64.Vec3{}, 0, false, nil)

	h.step(1)
	assert.Equal(t, component.GuardFleeing, h.guard(g).State)
}

func TestRecoveringGuardGivesUpWhenWeaponIsGone(t *testing.T) {
	h := newHarness(t)
	g := h.addGuard(mgl64.Vec3{}, 0, false, nil)
	weapon := h.addWeapon(mgl64.Vec3{0, 0, -3})

	require.True(t, h.guards.Fire(h.w, g, component.EventSeekWeapon))
	h.step(1)
	require.Equal(t, component.GuardRecoveringWeapon, h.guard(g).State)

	require.True(t, ecs.DestroyEntity(h.w, weapon))
	h.step(1)
	assert.Equal(t, component.GuardVigilant, h.guard(g).State)
	assert.Equal(t, 1, h.count(EventStateChanged, func(evt ecs.Event) bool {
		sc := evt.Data.(StateChanged)
		return sc.Event == component.EventWeaponUnavailable
	}))
}

func TestAlertPropagation(t *testing.T) {
	cases := []struct {
		name      string
		mode      AlertMode
		peerArmed bool
		peerHP    float64
		// ticks after which the peer is checked, and the state expected then
		ticks []int
		want  []component.GuardState
	}{
		{"direct", AlertDirect, true, 100, []int{1}, []component.GuardState{component.GuardChasing}},
		{"queued", AlertQueued, true, 100, []int{1, 1}, []component.GuardState{component.GuardVigilant, component.GuardChasing}},
		{"unarmed_peer_ignores", AlertDirect, false, 100, []int{1, 1}, []component.GuardState{component.GuardVigilant, component.GuardVigilant}},
		{"wounded_peer_ignores", AlertDirect, true, 20, []int{1}, []component.GuardState{component.GuardVigilant}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := newHarness(t)
			h.guards.AlertMode = c.mode
			player := mgl64.Vec3{0, 0, 5}
			h.addPlayer(player, false)
			a := h.addGuard(mgl64.Vec3{}, 0, true, nil)
			b := h.addGuard(mgl64.Vec3{5, 0, -5}, math.Pi, c.peerArmed, nil)
			h.healthOf(b).Current = c.peerHP

			for i, n := range c.ticks {
				h.step(n)
				assert.Equal(t, c.want[i], h.guard(b).State, "after step %d", i)
			}
			assert.Equal(t, component.GuardChasing, h.guard(a).State)
			assert.False(t, h.guard(b).Detected, "the peer never saw the player itself")

			if h.guard(b).State == component.GuardChasing {
				assert.Equal(t, player, h.guard(b).LastKnown)
				assert.True(t, h.guard(b).Data.(*component.ChasingData).Alerted)
			}
			assert.Equal(t, 1, h.count(EventAlertRaised, nil))
		})
	}
}

func TestAlertedGuardSearchesAfterReachingLastKnownPosition(t *testing.T) {
	h := newHarness(t)
	h.addPlayer(mgl64.Vec3{0, 0, 5}, false)
	h.addGuard(mgl64.Vec3{}, 0, true, nil)
	b := h.addGuard(mgl64.Vec3{12, 0, -5}, math.Pi, true, nil)

	h.step(1)
	require.Equal(t, component.GuardChasing, h.guard(b).State)

	// the player slips away before b arrives
	Teleport(h.w, h.player, mgl64.Vec3{-30, 0, -30})
	h.step(600)
	assert.NotEqual(t, component.GuardChasing, h.guard(b).State)
	assert.Equal(t, 1, h.count(EventStateChanged, func(evt ecs.Event) bool {
		sc := evt.Data.(StateChanged)
		return evt.Entity == b && sc.From == component.GuardChasing && sc.To == component.GuardSearching
	}))
}

func TestZeroAccuracyGuardNeverHurtsPlayer(t *testing.T) {
	h := newHarness(t)
	p := h.addPlayer(mgl64.Vec3{0, 0, 8}, false)
	h.addGuard(mgl64.Vec3{}, 0, true, func(tn *component.GuardTuning) {
		tn.Accuracy = component.AccuracyModel{}
	})

	h.step(300)

	assert.InDelta(t, 100, h.healthOf(p).Current, 1e-9)
	shots := h.count(EventShotFired, nil)
	require.Greater(t, shots, 1)
	assert.Equal(t, shots, h.count(EventShotFired, func(evt ecs.Event) bool {
		sf := evt.Data.(ShotFired)
		return sf.Result.ForcedMiss && !sf.Result.Damaged
	}))
}

func TestGuardDeath(t *testing.T) {
	h := newHarness(t)
	g := h.addGuard(mgl64.Vec3{}, 0, true, func(tn *component.GuardTuning) {
		tn.RagdollDelay = 0.1
	})

	require.True(t, h.guards.TakeDamage(h.w, g, 100, false, mgl64.Vec3{0, 0, 5}))

	guard := h.guard(g)
	assert.Equal(t, component.GuardDead, guard.State)
	assert.True(t, guard.Data.(*component.DeadData).RemovalScheduled)
	assert.False(t, h.possession.IsArmed(h.w, g))
	layer, ok := h.pw.LayerOf(g)
	require.True(t, ok)
	assert.Equal(t, common.LayerInert, layer)

	assert.False(t, h.guards.TakeDamage(h.w, g, 10, false, mgl64.Vec3{}), "the dead take no damage")
	h.guards.Die(h.w, g)

	assert.Equal(t, 1, h.count(EventWeaponDropped, nil))
	assert.Equal(t, 1, h.count(EventDied, nil))
	assert.Equal(t, 1, h.count(EventStateChanged, enteredState(component.GuardDead)))

	h.step(10)
	assert.False(t, ecs.IsAlive(h.w, g), "body removed after the ragdoll delay")
	assert.False(t, h.pw.Has(g))
}

func TestGuardNoticesDeathFromOutsideDamage(t *testing.T) {
	h := newHarness(t)
	g := h.addGuard(mgl64.Vec3{}, 0, true, nil)

	change := h.health.Damage(h.w, g, 500)
	require.True(t, change.Died)
	h.step(1)

	assert.Equal(t, component.GuardDead, h.guard(g).State)
	assert.Equal(t, 1, h.count(EventWeaponDropped, nil))
}

func TestMeleeKnockdownAndRecovery(t *testing.T) {
	h := newHarness(t)
	h.addPlayer(mgl64.Vec3{0, 0, 5}, false)
	g := h.addGuard(mgl64.Vec3{}, 0, true, nil)

	require.True(t, h.guards.TakeDamage(h.w, g, 20, true, mgl64.Vec3{0, 0, 1}))
	require.Equal(t, component.GuardKnockedDown, h.guard(g).State)
	assert.Zero(t, h.guard(g).StunTimer)

	h.step(30)
	assert.Equal(t, component.GuardKnockedDown, h.guard(g).State, "no automatic recovery by default")
	assert.False(t, h.guard(g).Detected, "a downed guard perceives nothing")

	require.True(t, h.guards.Recover(h.w, g))
	assert.Equal(t, component.GuardVigilant, h.guard(g).State)
	assert.False(t, h.guards.Recover(h.w, g))

	h.step(1)
	assert.Equal(t, component.GuardChasing, h.guard(g).State)
}

func TestKnockdownAutoRecover(t *testing.T) {
	h := newHarness(t)
	g := h.addGuard(mgl64.Vec3{}, 0, true, func(tn *component.GuardTuning) {
		tn.KnockdownAutoRecover = 0.5
	})

	require.True(t, h.guards.TakeDamage(h.w, g, 20, true, mgl64.Vec3{0, 0, 1}))
	h.step(20)
	assert.Equal(t, component.GuardKnockedDown, h.guard(g).State)
	h.step(20)
	assert.Equal(t, component.GuardVigilant, h.guard(g).State)
}

func TestGuardMeleeKnocksPlayerDown(t *testing.T) {
	h := newHarness(t)
	p := h.addPlayer(mgl64.Vec3{0, 0, 1.5}, false)
	h.addGuard(mgl64.Vec3{}, 0, true, func(tn *component.GuardTuning) {
		tn.MeleeKnockdownChance = 1
	})

	h.step(1)

	assert.InDelta(t, 85, h.healthOf(p).Current, 1e-9)
	pc, ok := ecs.Get(h.w, p, component.PlayerComponent.Kind())
	require.True(t, ok)
	assert.True(t, pc.IsKnockedDown())
	assert.Equal(t, 1, h.count(EventMeleeHit, nil))
	assert.Equal(t, 1, h.count(EventPlayerKnocked, nil))
	assert.Zero(t, h.count(EventShotFired, nil), "melee range wins over shooting")
}

func TestPatrolAdvancesWaypoints(t *testing.T) {
	h := newHarness(t)
	g, err := entityGuard(h, component.DefaultGuardTuning(), []mgl64.Vec3{{0, 0, 0}, {4, 0, 0}})
	require.NoError(t, err)

	h.step(1)
	require.Equal(t, component.GuardPatrolling, h.guard(g).State)
	assert.Equal(t, 0, h.guard(g).WaypointIndex)

	h.step(150)
	assert.Equal(t, 1, h.guard(g).WaypointIndex, "moves on after the wait")
	pos, _ := position(h.w, g)
	assert.Greater(t, pos.X(), 0.0)
}

func TestVigilantScanVisitsEveryHeading(t *testing.T) {
	h := newHarness(t)
	g := h.addGuard(mgl64.Vec3{}, 0.3, true, nil)

	visited := map[int]bool{}
	for i := 0; i < 900; i++ {
		h.step(1)
		yaw := ecsTransform(t, h, g).Yaw
		for k := 0; k < 4; k++ {
			if math.Abs(common.NormalizeAngle(yaw-(0.3+float64(k)*math.Pi/2))) < 1e-3 {
				visited[k] = true
			}
		}
	}
	assert.Len(t, visited, 4)
}

func TestSearchExpiresToHome(t *testing.T) {
	h := newHarness(t)
	g := h.addGuard(mgl64.Vec3{}, 0, true, func(tn *component.GuardTuning) {
		tn.SearchDuration = 1
	})

	require.True(t, h.guards.Transition(h.w, g, component.GuardSearching))
	h.step(30)
	assert.Equal(t, component.GuardSearching, h.guard(g).State)
	h.step(40)
	assert.Equal(t, component.GuardVigilant, h.guard(g).State)
}

func TestFleeingGuardFarFromPlayerIsSafe(t *testing.T) {
	h := newHarness(t)
	h.addPlayer(mgl64.Vec3{0, 0, -30}, false)
	g := h.addGuard(mgl64.Vec3{}, 0, false, nil)

	require.True(t, h.guards.Transition(h.w, g, component.GuardFleeing))
	h.step(1)
	assert.Equal(t, component.GuardVigilant, h.guard(g).State)
}

func TestPlayerDeathSendsGuardsHome(t *testing.T) {
	h := newHarness(t)
	p := h.addPlayer(mgl64.Vec3{0, 0, 5}, false)
	g := h.addGuard(mgl64.Vec3{}, 0, true, nil)

	h.step(1)
	require.Equal(t, component.GuardChasing, h.guard(g).State)

	require.True(t, h.health.Damage(h.w, p, 1000).Died)
	h.step(1)
	assert.Equal(t, component.GuardVigilant, h.guard(g).State)
	assert.False(t, h.guard(g).Detected)
}

func entityGuard(h *harness, tuning component.GuardTuning, waypoints []mgl64.Vec3) (ecs.Entity, error) {
	e, err := entity.NewGuard(h.w, entity.GuardConfig{Tuning: tuning, Waypoints: waypoints, Patrol: true})
	if err != nil {
		return 0, err
	}
	RegisterColliders(h.w)
	return e, nil
}

func ecsTransform(t *testing.T, h *harness, e ecs.Entity) *component.Transform {
	t.Helper()
	tr, ok := ecs.Get(h.w, e, component.TransformComponent.Kind())
	require.True(t, ok)
	return tr
}
