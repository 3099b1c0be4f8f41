package system

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeleeTargets(t *testing.T) {
	w := ecs.NewWorld()
	place := func(pos mgl64.Vec3, dead bool) ecs.Entity {
		e := ecs.CreateEntity(w)
		require.NoError(t, ecs.Add(w, e, component.TransformComponent.Kind(), &component.Transform{Position: pos}))
		h := component.NewHealth(10)
		h.Dead = dead
		require.NoError(t, ecs.Add(w, e, component.HealthComponent.Kind(), h))
		return e
	}
	attacker := place(mgl64.Vec3{}, false)
	far := place(mgl64.Vec3{0, 0, 1.5}, false)
	near := place(mgl64.Vec3{0.2, 0, 1}, false)
	place(mgl64.Vec3{1.5, 0, 0}, false)
	place(mgl64.Vec3{0, 0, -1}, false)
	place(mgl64.Vec3{0, 0, 0.5}, true)
	place(mgl64.Vec3{0, 0, 3}, false)

	assert.Equal(t, []ecs.Entity{near, far}, MeleeTargets(w, attacker, 2))
	assert.Nil(t, MeleeTargets(w, ecs.CreateEntity(w), 2), "attacker without a transform")
}

func TestCombatRoutesDamage(t *testing.T) {
	h := newHarness(t)
	p := h.addPlayer(mgl64.Vec3{}, false)
	g := h.addGuard(mgl64.Vec3{0, 0, 3}, 0, true, nil)

	require.True(t, h.combat.ApplyDamage(h.w, g, 10, true, mgl64.Vec3{}))
	assert.Equal(t, component.GuardKnockedDown, h.guard(g).State, "guards react through their controller")

	require.True(t, h.combat.ApplyDamage(h.w, p, 10, false, mgl64.Vec3{0, 0, 3}))
	assert.InDelta(t, 90, h.healthOf(p).Current, 1e-9)

	bare := NewCombatSystem(nil, nil)
	assert.False(t, bare.ApplyDamage(h.w, p, 10, false, mgl64.Vec3{}))
}
