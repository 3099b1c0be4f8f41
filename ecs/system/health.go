package system

import (
	"math"

	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
	"github.com/rs/zerolog"
)

// HealthSystem owns every mutation of component.Health. It is used the same
// way for the player and for guards.
type HealthSystem struct {
	log zerolog.Logger
}

func NewHealthSystem() *HealthSystem {
	return &HealthSystem{log: zerolog.Nop()}
}

func (s *HealthSystem) SetLogger(l zerolog.Logger) {
	s.log = l
}

// Damage subtracts amount from e's health. It does nothing to dead or
// invulnerable actors.
func (s *HealthSystem) Damage(w *ecs.World, e ecs.Entity, amount float64) HealthChange {
	h, ok := ecs.Get(w, e, component.HealthComponent.Kind())
	if !ok {
		s.log.Debug().Uint64("entity", uint64(e)).Msg("health: damage on actor without health")
		return HealthChange{}
	}
	change := HealthChange{Previous: h.Current, Current: h.Current, Max: h.Max, Amount: amount}
	if h.Dead || h.Invulnerable() || amount <= 0 {
		return change
	}

	h.Current = clampHealth(h.Current-amount, h.Max)
	h.RegenTimer = 0
	if h.InvulnerabilityDuration > 0 {
		h.InvulnerableTimer = h.InvulnerabilityDuration
	}
	change.Applied = true
	change.Current = h.Current

	w.Emit(ecs.Event{Type: EventDamaged, Entity: e, Data: change})
	w.Emit(ecs.Event{Type: EventHealthChanged, Entity: e, Data: change})

	if h.Current <= 0 && !h.Dead {
		h.Dead = true
		change.Died = true
		s.log.Info().Uint64("entity", uint64(e)).Msg("health: actor died")
		w.Emit(ecs.Event{Type: EventDied, Entity: e, Data: change})
	}
	return change
}

// Heal adds amount up to Max. Events fire only if health actually rose.
func (s *HealthSystem) Heal(w *ecs.World, e ecs.Entity, amount float64) HealthChange {
	h, ok := ecs.Get(w, e, component.HealthComponent.Kind())
	if !ok {
		return HealthChange{}
	}
	change := HealthChange{Previous: h.Current, Current: h.Current, Max: h.Max, Amount: amount}
	if h.Dead || amount <= 0 {
		return change
	}
	h.Current = clampHealth(h.Current+amount, h.Max)
	change.Current = h.Current
	if h.Current > change.Previous {
		change.Applied = true
		w.Emit(ecs.Event{Type: EventHealed, Entity: e, Data: change})
		w.Emit(ecs.Event{Type: EventHealthChanged, Entity: e, Data: change})
	}
	return change
}

func (s *HealthSystem) HealToFull(w *ecs.World, e ecs.Entity) HealthChange {
	h, ok := ecs.Get(w, e, component.HealthComponent.Kind())
	if !ok {
		return HealthChange{}
	}
	return s.Heal(w, e, h.Max-h.Current)
}

// SetMaxHealth changes the maximum and pulls current health down if needed.
func (s *HealthSystem) SetMaxHealth(w *ecs.World, e ecs.Entity, max float64) {
	h, ok := ecs.Get(w, e, component.HealthComponent.Kind())
	if !ok {
		return
	}
	if max <= 0 {
		max = 1
	}
	prev := h.Current
	h.Max = max
	h.Current = clampHealth(h.Current, h.Max)
	if h.Current != prev {
		w.Emit(ecs.Event{Type: EventHealthChanged, Entity: e, Data: HealthChange{
			Applied: true, Previous: prev, Current: h.Current, Max: h.Max,
		}})
	}
}

// Respawn restores full health and clears death and timers.
func (s *HealthSystem) Respawn(w *ecs.World, e ecs.Entity) {
	h, ok := ecs.Get(w, e, component.HealthComponent.Kind())
	if !ok {
		return
	}
	prev := h.Current
	h.Current = h.Max
	h.Dead = false
	h.InvulnerableTimer = 0
	h.RegenTimer = 0
	w.Emit(ecs.Event{Type: EventRespawned, Entity: e, Data: HealthChange{
		Applied: true, Previous: prev, Current: h.Current, Max: h.Max,
	}})
}

func (s *HealthSystem) Percentage(w *ecs.World, e ecs.Entity) float64 {
	h, ok := ecs.Get(w, e, component.HealthComponent.Kind())
	if !ok {
		return 0
	}
	return h.Percentage()
}

// IsDead reports whether e has died. Actors without health are never dead.
func (s *HealthSystem) IsDead(w *ecs.World, e ecs.Entity) bool {
	h, ok := ecs.Get(w, e, component.HealthComponent.Kind())
	return ok && h.Dead
}

// Update decays invulnerability windows and applies regeneration.
func (s *HealthSystem) Update(w *ecs.World) {
	dt := w.DeltaTime()
	if dt <= 0 {
		return
	}
	ecs.ForEach(w, component.HealthComponent.Kind(), func(e ecs.Entity, h *component.Health) {
		if h.InvulnerableTimer > 0 {
			h.InvulnerableTimer = math.Max(0, h.InvulnerableTimer-dt)
		}
		if !h.Regen.Enabled || h.Dead || h.Current >= h.Max {
			return
		}
		h.RegenTimer += dt
		if h.RegenTimer >= h.Regen.Delay {
			s.Heal(w, e, h.Regen.Rate*dt)
		}
	})
}

func clampHealth(v, max float64) float64 {
	return math.Min(math.Max(v, 0), max)
}
