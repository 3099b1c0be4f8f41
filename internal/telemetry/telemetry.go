// Package telemetry turns world events into OpenTelemetry counters and keeps
// a local tally for the end-of-run report.
package telemetry

import (
	"context"
	"fmt"

	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/system"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/milk9111/guardpost/internal/telemetry"

// Tally is the running count of what happened in a simulation.
type Tally struct {
	Shots       int
	Hits        int
	Misses      int
	Damage      float64
	MeleeHits   int
	Knockdowns  int
	Transitions int
	Alerts      int
	Deaths      int
	Pickups     int
	Drops       int
	Impacts     int
}

// Recorder counts events. The zero value is not usable; call New.
type Recorder struct {
	ctx context.Context

	shots       metric.Int64Counter
	damage      metric.Float64Counter
	melee       metric.Int64Counter
	transitions metric.Int64Counter
	alerts      metric.Int64Counter
	deaths      metric.Int64Counter
	weapons     metric.Int64Counter

	tally Tally
}

// New creates the instruments on meter, or on the global meter provider when
// meter is nil.
func New(meter metric.Meter) (*Recorder, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	r := &Recorder{ctx: context.Background()}

	var err error
	if r.shots, err = meter.Int64Counter("guardpost.shots",
		metric.WithDescription("Shots fired by outcome")); err != nil {
		return nil, fmt.Errorf("telemetry: shots counter: %w", err)
	}
	if r.damage, err = meter.Float64Counter("guardpost.damage",
		metric.WithDescription("Health removed by hits")); err != nil {
		return nil, fmt.Errorf("telemetry: damage counter: %w", err)
	}
	if r.melee, err = meter.Int64Counter("guardpost.melee_hits",
		metric.WithDescription("Melee strikes that landed")); err != nil {
		return nil, fmt.Errorf("telemetry: melee counter: %w", err)
	}
	if r.transitions, err = meter.Int64Counter("guardpost.guard.transitions",
		metric.WithDescription("Guard state changes by target state")); err != nil {
		return nil, fmt.Errorf("telemetry: transitions counter: %w", err)
	}
	if r.alerts, err = meter.Int64Counter("guardpost.guard.alerts",
		metric.WithDescription("Alerts raised by guards")); err != nil {
		return nil, fmt.Errorf("telemetry: alerts counter: %w", err)
	}
	if r.deaths, err = meter.Int64Counter("guardpost.deaths",
		metric.WithDescription("Actors killed")); err != nil {
		return nil, fmt.Errorf("telemetry: deaths counter: %w", err)
	}
	if r.weapons, err = meter.Int64Counter("guardpost.weapon.transfers",
		metric.WithDescription("Weapon pickups and drops")); err != nil {
		return nil, fmt.Errorf("telemetry: weapons counter: %w", err)
	}
	return r, nil
}

// Handle records one world event. It is meant to be passed to
// ecs.World.Subscribe.
func (r *Recorder) Handle(evt ecs.Event) {
	switch evt.Type {
	case system.EventShotFired:
		shot, ok := evt.Data.(system.ShotFired)
		if !ok {
			return
		}
		r.tally.Shots++
		if shot.Result.Outcome == system.ShotHitActor && shot.Result.Damaged {
			r.tally.Hits++
		} else {
			r.tally.Misses++
		}
		r.shots.Add(r.ctx, 1, metric.WithAttributes(
			attribute.String("outcome", shot.Result.Outcome.String()),
			attribute.Bool("forced_miss", shot.Result.ForcedMiss),
		))
	case system.EventDamaged:
		change, ok := evt.Data.(system.HealthChange)
		if !ok {
			return
		}
		removed := change.Previous - change.Current
		r.tally.Damage += removed
		r.damage.Add(r.ctx, removed)
	case system.EventMeleeHit:
		hit, ok := evt.Data.(system.MeleeHit)
		if !ok {
			return
		}
		r.tally.MeleeHits++
		if hit.KnockedDown {
			r.tally.Knockdowns++
		}
		r.melee.Add(r.ctx, 1, metric.WithAttributes(attribute.Bool("knocked_down", hit.KnockedDown)))
	case system.EventStateChanged:
		change, ok := evt.Data.(system.StateChanged)
		if !ok {
			return
		}
		r.tally.Transitions++
		r.transitions.Add(r.ctx, 1, metric.WithAttributes(
			attribute.String("to", string(change.To)),
			attribute.String("event", string(change.Event)),
		))
	case system.EventAlertRaised:
		r.tally.Alerts++
		r.alerts.Add(r.ctx, 1)
	case system.EventDied:
		r.tally.Deaths++
		r.deaths.Add(r.ctx, 1)
	case system.EventWeaponEquipped:
		r.tally.Pickups++
		r.weapons.Add(r.ctx, 1, metric.WithAttributes(attribute.String("kind", "equip")))
	case system.EventWeaponDropped:
		r.tally.Drops++
		r.weapons.Add(r.ctx, 1, metric.WithAttributes(attribute.String("kind", "drop")))
	case system.EventImpact:
		r.tally.Impacts++
	}
}

// Tally returns a copy of the counts so far.
func (r *Recorder) Tally() Tally {
	return r.tally
}
