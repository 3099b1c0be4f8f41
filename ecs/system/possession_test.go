package system

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertOwnership checks that every armed actor's weapon names it back and
// that no weapon is claimed by two slots.
func assertOwnership(t *testing.T, w *ecs.World) {
	t.Helper()
	claimed := map[uint64]ecs.Entity{}
	ecs.ForEach(w, component.WeaponSlotComponent.Kind(), func(e ecs.Entity, slot *component.WeaponSlot) {
		if slot.Weapon == 0 {
			return
		}
		prev, dup := claimed[slot.Weapon]
		assert.False(t, dup, "weapon %d claimed by %s and %s", slot.Weapon, prev, e)
		claimed[slot.Weapon] = e
		wp, ok := ecs.Get(w, ecs.Entity(slot.Weapon), component.WeaponComponent.Kind())
		require.True(t, ok)
		assert.Equal(t, uint64(e), wp.Owner)
	})
}

func weaponOf(t *testing.T, w *ecs.World, e ecs.Entity) *component.Weapon {
	t.Helper()
	wp, ok := ecs.Get(w, e, component.WeaponComponent.Kind())
	require.True(t, ok)
	return wp
}

func TestEquipFreeWeapon(t *testing.T) {
	h := newHarness(t)
	p := h.addPlayer(mgl64.Vec3{}, false)
	weapon := h.addWeapon(mgl64.Vec3{0, 0, 1})

	require.NoError(t, h.possession.Equip(h.w, p, weapon))
	held, ok := h.possession.Held(h.w, p)
	require.True(t, ok)
	assert.Equal(t, weapon, held)
	assert.False(t, h.pw.Has(weapon), "held weapons leave the simulation")
	assertOwnership(t, h.w)

	require.NoError(t, h.possession.Equip(h.w, p, weapon), "equipping twice is a no-op")
	assert.Equal(t, 1, h.count(EventWeaponEquipped, nil))
}

func TestEquipTakesWeaponFromHolder(t *testing.T) {
	h := newHarness(t)
	p := h.addPlayer(mgl64.Vec3{}, false)
	g := h.addGuard(mgl64.Vec3{0, 0, 3}, 0, true, nil)
	weapon, ok := h.possession.Held(h.w, g)
	require.True(t, ok)

	require.NoError(t, h.possession.Equip(h.w, p, weapon))

	assert.False(t, h.possession.IsArmed(h.w, g))
	assert.True(t, h.possession.IsArmed(h.w, p))
	assertOwnership(t, h.w)
	assert.Equal(t, 1, h.count(EventWeaponEquipped, func(evt ecs.Event) bool {
		return evt.Data.(WeaponTransfer).Previous == g
	}))
}

func TestEquipDropsCurrentWeapon(t *testing.T) {
	h := newHarness(t)
	p := h.addPlayer(mgl64.Vec3{}, true)
	first, _ := h.possession.Held(h.w, p)
	second := h.addWeapon(mgl64.Vec3{1, 0, 0})

	require.NoError(t, h.possession.Equip(h.w, p, second))

	held, _ := h.possession.Held(h.w, p)
	assert.Equal(t, second, held)
	assert.Zero(t, weaponOf(t, h.w, first).Owner)
	assert.Equal(t, 1, h.count(EventWeaponDropped, nil))
	assertOwnership(t, h.w)
}

func TestEquipErrors(t *testing.T) {
	h := newHarness(t)
	p := h.addPlayer(mgl64.Vec3{}, false)
	weapon := h.addWeapon(mgl64.Vec3{})

	assert.ErrorIs(t, h.possession.Equip(h.w, p, ecs.CreateEntity(h.w)), ErrNoWeapon)

	gone := ecs.CreateEntity(h.w)
	require.True(t, ecs.DestroyEntity(h.w, gone))
	assert.ErrorIs(t, h.possession.Equip(h.w, gone, weapon), ErrNoHolder)
}

func TestDrop(t *testing.T) {
	h := newHarness(t)
	p := h.addPlayer(mgl64.Vec3{}, true)
	weapon, _ := h.possession.Held(h.w, p)

	dropped, ok := h.possession.Drop(h.w, p)
	require.True(t, ok)
	assert.Equal(t, weapon, dropped)

	wp := weaponOf(t, h.w, weapon)
	assert.Zero(t, wp.Owner)
	assert.Equal(t, uint64(p), wp.LastHolder)
	assert.InDelta(t, 1, wp.PickupCooldown, 1e-9)
	assert.True(t, h.pw.Has(weapon))
	assert.False(t, h.pw.IsResting(weapon), "a fresh drop is still in the air")

	_, ok = h.possession.Drop(h.w, p)
	assert.False(t, ok, "nothing left to drop")
	assertOwnership(t, h.w)
}

func TestPickupRules(t *testing.T) {
	h := newHarness(t)
	p := h.addPlayer(mgl64.Vec3{}, true)
	g := h.addGuard(mgl64.Vec3{3, 0, 0}, 0, false, nil)
	h.guards.Player = 0
	weapon, _ := h.possession.Held(h.w, p)

	assert.ErrorIs(t, h.possession.Pickup(h.w, g, weapon), ErrWeaponOwned)
	assert.NoError(t, h.possession.Pickup(h.w, p, weapon), "picking up your own weapon is a no-op")
	assert.ErrorIs(t, h.possession.Pickup(h.w, g, ecs.CreateEntity(h.w)), ErrNoWeapon)

	_, ok := h.possession.Drop(h.w, p)
	require.True(t, ok)
	assert.ErrorIs(t, h.possession.Pickup(h.w, p, weapon), ErrPickupCooldown)
	assert.ErrorIs(t, h.possession.Pickup(h.w, g, weapon), ErrWeaponMoving)

	h.step(180)
	require.True(t, h.pw.IsResting(weapon))
	assert.Zero(t, weaponOf(t, h.w, weapon).PickupCooldown)
	require.NoError(t, h.possession.Pickup(h.w, g, weapon))
	assert.True(t, h.possession.IsArmed(h.w, g))
	assertOwnership(t, h.w)
}

func TestNearestAvailable(t *testing.T) {
	h := newHarness(t)
	p := h.addPlayer(mgl64.Vec3{}, true)
	near := h.addWeapon(mgl64.Vec3{2, 0, 0})
	h.addWeapon(mgl64.Vec3{5, 0, 0})
	held, _ := h.possession.Held(h.w, p)

	got, ok := h.possession.NearestAvailable(h.w, mgl64.Vec3{}, 10)
	require.True(t, ok)
	assert.Equal(t, near, got)
	assert.NotEqual(t, held, got, "owned weapons are not available")

	_, ok = h.possession.NearestAvailable(h.w, mgl64.Vec3{}, 1)
	assert.False(t, ok)

	// the registry scan used without a spatial provider agrees
	scan := NewPossessionSystem(nil, nil)
	got, ok = scan.NearestAvailable(h.w, mgl64.Vec3{}, 10)
	require.True(t, ok)
	assert.Equal(t, near, got)
}

func TestHeldWeaponFollowsOwner(t *testing.T) {
	h := newHarness(t)
	p := h.addPlayer(mgl64.Vec3{}, true)
	weapon, _ := h.possession.Held(h.w, p)

	Teleport(h.w, p, mgl64.Vec3{4, 0, 2})
	h.step(1)
	pos, _ := position(h.w, weapon)
	assert.Equal(t, mgl64.Vec3{4, 1, 2}, pos)

	require.True(t, ecs.DestroyEntity(h.w, p))
	h.step(1)
	assert.Zero(t, weaponOf(t, h.w, weapon).Owner, "a destroyed owner lets go")
}
