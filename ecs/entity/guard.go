package entity

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/common"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
)

// GuardConfig places one guard. A zero Health uses Tuning.MaxHealth.
type GuardConfig struct {
	Tuning    component.GuardTuning
	Position  mgl64.Vec3
	Yaw       float64
	Waypoints []mgl64.Vec3
	Patrol    bool
	Health    float64
}

func NewGuard(w *ecs.World, cfg GuardConfig) (ecs.Entity, error) {
	entity := ecs.CreateEntity(w)

	if err := ecs.Add(w, entity, component.TransformComponent.Kind(), &component.Transform{
		Position: cfg.Position,
		Yaw:      cfg.Yaw,
	}); err != nil {
		return 0, fmt.Errorf("guard: add transform: %w", err)
	}

	faction := component.FactionGuard
	if err := ecs.Add(w, entity, component.FactionComponent.Kind(), &faction); err != nil {
		return 0, fmt.Errorf("guard: add faction: %w", err)
	}

	health := component.NewHealth(cfg.Tuning.MaxHealth)
	if cfg.Health > 0 && cfg.Health < health.Max {
		health.Current = cfg.Health
	}
	if err := ecs.Add(w, entity, component.HealthComponent.Kind(), health); err != nil {
		return 0, fmt.Errorf("guard: add health: %w", err)
	}

	guard := &component.Guard{
		Tuning:          cfg.Tuning,
		Post:            cfg.Position,
		PostYaw:         cfg.Yaw,
		Waypoints:       append([]mgl64.Vec3(nil), cfg.Waypoints...),
		StartPatrolling: cfg.Patrol,
	}
	guard.State = guard.HomeState()
	if err := ecs.Add(w, entity, component.GuardComponent.Kind(), guard); err != nil {
		return 0, fmt.Errorf("guard: add guard: %w", err)
	}

	if err := ecs.Add(w, entity, component.WeaponSlotComponent.Kind(), &component.WeaponSlot{}); err != nil {
		return 0, fmt.Errorf("guard: add weapon slot: %w", err)
	}

	if err := ecs.Add(w, entity, component.NavAgentComponent.Kind(), &component.NavAgent{
		Speed:   cfg.Tuning.PatrolSpeed,
		Stopped: true,
	}); err != nil {
		return 0, fmt.Errorf("guard: add nav agent: %w", err)
	}

	surface := component.SurfaceFlesh
	if err := ecs.Add(w, entity, component.SurfaceComponent.Kind(), &surface); err != nil {
		return 0, fmt.Errorf("guard: add surface: %w", err)
	}

	radius := cfg.Tuning.Radius
	if radius <= 0 {
		radius = 0.5
	}
	if err := ecs.Add(w, entity, component.ColliderComponent.Kind(), &component.Collider{
		Layer:  common.LayerGuard,
		Radius: radius,
	}); err != nil {
		return 0, fmt.Errorf("guard: add collider: %w", err)
	}

	return entity, nil
}
