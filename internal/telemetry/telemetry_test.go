package telemetry

import (
	"testing"

	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
	"github.com/milk9111/guardpost/ecs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestRecorder_Handle(t *testing.T) {
	rec, err := New(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	events := []ecs.Event{
		{Type: system.EventShotFired, Data: system.ShotFired{Result: system.ShotResult{Outcome: system.ShotHitActor, Damaged: true}}},
		{Type: system.EventShotFired, Data: system.ShotFired{Result: system.ShotResult{Outcome: system.ShotHitActor, ForcedMiss: true}}},
		{Type: system.EventShotFired, Data: system.ShotFired{Result: system.ShotResult{Outcome: system.ShotMissed}}},
		{Type: system.EventDamaged, Data: system.HealthChange{Applied: true, Previous: 100, Current: 20}},
		{Type: system.EventMeleeHit, Data: system.MeleeHit{KnockedDown: true}},
		{Type: system.EventStateChanged, Data: system.StateChanged{From: component.GuardVigilant, To: component.GuardChasing, Event: component.EventEngage}},
		{Type: system.EventAlertRaised, Data: system.AlertRaised{}},
		{Type: system.EventDied, Data: system.HealthChange{Died: true}},
		{Type: system.EventWeaponDropped, Data: system.WeaponTransfer{}},
		{Type: system.EventWeaponEquipped, Data: system.WeaponTransfer{}},
		{Type: system.EventImpact},
		{Type: "unrelated"},
		{Type: system.EventShotFired, Data: "not a shot"},
	}
	for _, evt := range events {
		rec.Handle(evt)
	}

	got := rec.Tally()
	assert.Equal(t, 3, got.Shots)
	assert.Equal(t, 1, got.Hits)
	assert.Equal(t, 2, got.Misses)
	assert.InDelta(t, 80, got.Damage, 1e-9)
	assert.Equal(t, 1, got.MeleeHits)
	assert.Equal(t, 1, got.Knockdowns)
	assert.Equal(t, 1, got.Transitions)
	assert.Equal(t, 1, got.Alerts)
	assert.Equal(t, 1, got.Deaths)
	assert.Equal(t, 1, got.Drops)
	assert.Equal(t, 1, got.Pickups)
	assert.Equal(t, 1, got.Impacts)
}

func TestRecorder_SubscribedToWorld(t *testing.T) {
	rec, err := New(nil)
	require.NoError(t, err)

	w := ecs.NewWorld()
	w.Subscribe(rec.Handle)
	w.Emit(ecs.Event{Type: system.EventAlertRaised})
	w.Emit(ecs.Event{Type: system.EventAlertRaised})

	assert.Equal(t, 0, rec.Tally().Alerts)
	w.FlushEvents()
	assert.Equal(t, 2, rec.Tally().Alerts)
}
