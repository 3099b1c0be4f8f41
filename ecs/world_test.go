package ecs

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/common"
	"github.com/milk9111/guardpost/ecs/component"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSparseWorldEntityLifecycle(t *testing.T) {
	cases := []struct {
		name         string
		create       int
		destroyIndex int // -1 = none
	}{
		{"single", 1, 0},
		{"three_create_destroy_middle", 3, 1},
		{"none_destroy", 2, -1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := NewWorld()
			ents := make([]Entity, 0, c.create)
			for i := 0; i < c.create; i++ {
				ents = append(ents, CreateEntity(w))
			}
			require.Len(t, Entities(w), c.create)
			if c.destroyIndex >= 0 {
				require.True(t, DestroyEntity(w, ents[c.destroyIndex]))
				assert.False(t, IsAlive(w, ents[c.destroyIndex]))
				assert.False(t, DestroyEntity(w, ents[c.destroyIndex]), "second destroy is a no-op")
				assert.Len(t, Entities(w), c.create-1)
			}
		})
	}
}

func TestRecycledEntityGetsNewGeneration(t *testing.T) {
	w := NewWorld()
	h := component.NewComponent[int]()

	old := CreateEntity(w)
	require.NoError(t, Add(w, old, h.Kind(), intPtr(1)))
	require.True(t, DestroyEntity(w, old))

	fresh := CreateEntity(w)
	assert.Equal(t, old.id(), fresh.id())
	assert.NotEqual(t, old, fresh)
	assert.False(t, Has(w, fresh, h.Kind()), "components do not survive recycling")
	assert.ErrorIs(t, Add(w, old, h.Kind(), intPtr(2)), component.ErrEntityNotAlive)
}

func intPtr(i int) *int {
	return &i
}

func stringPtr(s string) *string {
	return &s
}

func float64Ptr(f float64) *float64 {
	return &f
}

func TestSparseWorldComponentsAndQueries(t *testing.T) {
	w := NewWorld()

	h1 := component.NewComponent[int]()
	h2 := component.NewComponent[string]()
	h3 := component.NewComponent[float64]()

	e1 := CreateEntity(w)
	e2 := CreateEntity(w)

	tests := []struct {
		name     string
		setup    func() error
		check    func(t *testing.T)
		teardown func() bool
	}{
		{
			name:  "add_int_to_e1",
			setup: func() error { return Add(w, e1, h1.Kind(), intPtr(10)) },
			check: func(t *testing.T) {
				v, ok := Get(w, e1, h1.Kind())
				require.True(t, ok)
				assert.Equal(t, 10, *v)
			},
			teardown: func() bool { return Remove(w, e1, h1.Kind()) },
		},
		{
			name: "add_str_to_e1_and_e2",
			setup: func() error {
				if err := Add(w, e1, h2.Kind(), stringPtr("a")); err != nil {
					return err
				}
				return Add(w, e2, h2.Kind(), stringPtr("b"))
			},
			check: func(t *testing.T) {
				assert.True(t, Has(w, e1, h2.Kind()))
				assert.True(t, Has(w, e2, h2.Kind()))
				assert.Equal(t, 2, Count(w, h2.Kind()))
			},
			teardown: func() bool { return Remove(w, e1, h2.Kind()) },
		},
		{
			name:  "add_float_and_remove",
			setup: func() error { return Add(w, e1, h3.Kind(), float64Ptr(1.23)) },
			check: func(t *testing.T) {
				_, ok := Get(w, e1, h3.Kind())
				assert.True(t, ok)
			},
			teardown: func() bool { return Remove(w, e1, h3.Kind()) },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, tc.setup())
			tc.check(t)
			require.True(t, tc.teardown(), "teardown failed for %s", tc.name)
		})
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	w := NewWorld()
	e := CreateEntity(w)

	assert.ErrorIs(t, Add(w, e, component.ComponentKind[int]{}, intPtr(1)), component.ErrInvalidComponentKind)
	assert.ErrorIs(t, Add[int](w, e, component.NewComponentKind[int](), nil), component.ErrNilComponent)
}

func TestForEach(t *testing.T) {
	w := NewWorld()
	h := component.NewComponent[int]()

	e1 := CreateEntity(w)
	e2 := CreateEntity(w)
	e3 := CreateEntity(w)

	require.NoError(t, Add(w, e1, h.Kind(), intPtr(1)))
	require.NoError(t, Add(w, e3, h.Kind(), intPtr(3)))

	var ents []Entity
	ForEach(w, h.Kind(), func(e Entity, _ *int) { ents = append(ents, e) })

	assert.ElementsMatch(t, []Entity{e1, e3}, ents)
	assert.NotContains(t, ents, e2)
}

func TestForEachToleratesDestroyDuringIteration(t *testing.T) {
	w := NewWorld()
	h := component.NewComponent[int]()
	e1 := CreateEntity(w)
	e2 := CreateEntity(w)
	require.NoError(t, Add(w, e1, h.Kind(), intPtr(1)))
	require.NoError(t, Add(w, e2, h.Kind(), intPtr(2)))

	visited := 0
	ForEach(w, h.Kind(), func(e Entity, _ *int) {
		visited++
		DestroyEntity(w, e1)
		DestroyEntity(w, e2)
	})
	assert.Equal(t, 1, visited)
	assert.Zero(t, Count(w, h.Kind()))
}

func TestForEachN(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T)
	}{
		{
			name: "intersection",
			run: func(t *testing.T) {
				w := NewWorld()
				e1 := CreateEntity(w)
				e2 := CreateEntity(w)
				e3 := CreateEntity(w)

				ka := component.NewComponentKind[int]()
				kb := component.NewComponentKind[int]()
				kc := component.NewComponentKind[int]()

				require.NoError(t, Add(w, e1, ka, intPtr(1)))
				require.NoError(t, Add(w, e2, ka, intPtr(2)))
				require.NoError(t, Add(w, e2, kb, intPtr(3)))
				require.NoError(t, Add(w, e2, kc, intPtr(5)))
				require.NoError(t, Add(w, e3, kb, intPtr(4)))

				var res []Entity
				ForEach3(w, ka, kb, kc, func(e Entity, a *int, b *int, c *int) {
					res = append(res, e)
					assert.Equal(t, 10, *a+*b+*c)
				})
				assert.Equal(t, []Entity{e2}, res)

				res = nil
				ForEach2(w, ka, kb, func(e Entity, _ *int, _ *int) { res = append(res, e) })
				assert.Equal(t, []Entity{e2}, res)
			},
		},
		{
			name: "no_common",
			run: func(t *testing.T) {
				w := NewWorld()
				e1 := CreateEntity(w)
				e2 := CreateEntity(w)

				ka := component.NewComponentKind[int]()
				kb := component.NewComponentKind[int]()
				kc := component.NewComponentKind[int]()
				kd := component.NewComponentKind[int]()

				require.NoError(t, Add(w, e1, ka, intPtr(1)))
				require.NoError(t, Add(w, e2, kb, intPtr(2)))
				require.NoError(t, Add(w, e2, kc, intPtr(2)))
				require.NoError(t, Add(w, e2, kd, intPtr(2)))

				var res []Entity
				ForEach4(w, ka, kb, kc, kd, func(e Entity, _ *int, _ *int, _ *int, _ *int) { res = append(res, e) })
				assert.Empty(t, res)
			},
		},
		{
			name: "missing_store_returns_nil",
			run: func(t *testing.T) {
				w := NewWorld()
				e := CreateEntity(w)

				ka := component.NewComponentKind[int]()
				kb := component.NewComponentKind[int]()
				kc := component.NewComponentKind[int]()
				kd := component.NewComponentKind[int]()

				require.NoError(t, Add(w, e, ka, intPtr(1)))

				var res []Entity
				ForEach4(w, ka, kb, kc, kd, func(e Entity, _ *int, _ *int, _ *int, _ *int) { res = append(res, e) })
				assert.Empty(t, res)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, tc.run)
	}
}

type countingSystem struct {
	calls int
	dt    float64
}

func (s *countingSystem) Update(w *World) {
	s.calls++
	s.dt = w.DeltaTime()
	w.Emit(Event{Type: "tick"})
}

func TestUpdateRunsSystemsAndDeliversEvents(t *testing.T) {
	w := NewWorld()
	sys := &countingSystem{}
	w.AddSystem(sys)

	var got []Event
	w.Subscribe(func(evt Event) { got = append(got, evt) })

	w.Update(0.5)
	w.Update(0.25)

	assert.Equal(t, 2, sys.calls)
	assert.Equal(t, 0.25, sys.dt)
	assert.InDelta(t, 0.75, w.Elapsed(), 1e-9)
	assert.Equal(t, 2, w.Ticks())
	assert.Len(t, got, 2)
	assert.Zero(t, w.Events().Len())
}

func TestPhysicsWorldQueries(t *testing.T) {
	w := NewWorld()
	pw := NewPhysicsWorld()
	w.SetPhysicsWorld(pw)

	wall := CreateEntity(w)
	pw.AddObstacle(wall, mgl64.Vec3{0, 0, 5}, mgl64.Vec3{2, 0, 0.5}, common.LayerObstacle)
	shooter := CreateEntity(w)
	pw.AddActor(shooter, mgl64.Vec3{0, 1, 0}, 0.5, common.LayerGuard)
	target := CreateEntity(w)
	pw.AddActor(target, mgl64.Vec3{5, 1, 0}, 0.5, common.LayerPlayer)

	t.Run("ray_hits_wall_and_skips_caller", func(t *testing.T) {
		hit, ok := pw.Raycast(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 1, 10}, common.ShootableMask, shooter)
		require.True(t, ok)
		assert.Equal(t, wall, hit.Entity)
		assert.Equal(t, common.LayerObstacle, hit.Layer)
		assert.InDelta(t, 4.5, hit.Point.Z(), 1e-6)
		assert.InDelta(t, 1, hit.Point.Y(), 1e-6)
	})

	t.Run("ray_respects_mask", func(t *testing.T) {
		_, ok := pw.Raycast(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 1, 10}, common.LayerPlayer, shooter)
		assert.False(t, ok)
	})

	t.Run("overlap_finds_actor", func(t *testing.T) {
		hits := pw.OverlapSphere(mgl64.Vec3{4, 0, 0}, 1, common.LayerPlayer)
		require.Len(t, hits, 1)
		assert.Equal(t, target, hits[0].Entity)
	})

	t.Run("moved_actor_is_found_at_new_position", func(t *testing.T) {
		pw.SetPosition(target, mgl64.Vec3{-5, 1, 0})
		assert.Empty(t, pw.OverlapSphere(mgl64.Vec3{4, 0, 0}, 1, common.LayerPlayer))
		assert.Len(t, pw.OverlapSphere(mgl64.Vec3{-5, 0, 0}, 1, common.LayerPlayer), 1)
	})

	t.Run("inert_layer_is_invisible", func(t *testing.T) {
		pw.SetLayer(target, common.LayerInert)
		assert.Empty(t, pw.OverlapSphere(mgl64.Vec3{-5, 0, 0}, 1, common.LayerPlayer))
	})

	t.Run("destroy_removes_body", func(t *testing.T) {
		require.True(t, DestroyEntity(w, wall))
		_, ok := pw.Raycast(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 1, 10}, common.ShootableMask, shooter)
		assert.False(t, ok)
	})
}

func TestOverlapSphereRadius(t *testing.T) {
	w := NewWorld()
	pw := NewPhysicsWorld()
	w.SetPhysicsWorld(pw)

	near := CreateEntity(w)
	pw.AddActor(near, mgl64.Vec3{1, 1, 0}, 0.5, common.LayerPlayer)
	edge := CreateEntity(w)
	pw.AddActor(edge, mgl64.Vec3{0, 1, 2.5}, 0.5, common.LayerPlayer)
	// bounding box overlaps the query box but the circle is 2.33 away
	corner := CreateEntity(w)
	pw.AddActor(corner, mgl64.Vec3{2, 1, 2}, 0.5, common.LayerPlayer)
	far := CreateEntity(w)
	pw.AddActor(far, mgl64.Vec3{-9, 1, 0}, 0.5, common.LayerPlayer)

	cases := []struct {
		name   string
		radius float64
		want   []Entity
	}{
		{"tight", 0.6, []Entity{near}},
		{"cuts_corner", 2, []Entity{near, edge}},
		{"wide", 2.5, []Entity{near, edge, corner}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			hits := pw.OverlapSphere(mgl64.Vec3{}, c.radius, common.LayerPlayer)
			got := make([]Entity, 0, len(hits))
			for _, h := range hits {
				got = append(got, h.Entity)
				assert.LessOrEqual(t, h.Distance, c.radius)
			}
			assert.Equal(t, c.want, got)
		})
	}

	t.Run("teleported_actor_without_step", func(t *testing.T) {
		pw.SetPosition(far, mgl64.Vec3{0, 1, -0.8})
		hits := pw.OverlapSphere(mgl64.Vec3{}, 0.6, common.LayerPlayer)
		require.Len(t, hits, 2)
		assert.Equal(t, far, hits[0].Entity)
		assert.InDelta(t, 0.3, hits[0].Distance, 1e-6)
	})
}

func TestReleasedWeaponComesToRest(t *testing.T) {
	pw := NewPhysicsWorld()
	w := NewWorld()
	weapon := CreateEntity(w)

	pw.Release(weapon, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 3, 3}, 0.2)
	require.False(t, pw.IsResting(weapon))

	for i := 0; i < 600; i++ {
		pw.Step(common.DefaultDeltaTime)
	}
	assert.True(t, pw.IsResting(weapon))
	pos, ok := pw.Position(weapon)
	require.True(t, ok)
	assert.Greater(t, pos.Z(), 0.0)
	assert.Zero(t, pos.Y())

	pw.Attach(weapon)
	assert.True(t, pw.IsResting(weapon))
	_, ok = pw.Position(weapon)
	assert.False(t, ok)
}

func TestEntityString(t *testing.T) {
	assert.Equal(t, "none", Entity(0).String())
	assert.Equal(t, "4.1", makeEntity(4, 1).String())
	assert.False(t, Entity(0).Valid())
	assert.True(t, makeEntity(4, 1).Valid())
}
