package entity

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/common"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
)

func NewPlayer(w *ecs.World, tuning component.PlayerTuning) (ecs.Entity, error) {
	return NewPlayerAt(w, tuning, mgl64.Vec3{}, 0)
}

func NewPlayerAt(w *ecs.World, tuning component.PlayerTuning, pos mgl64.Vec3, yaw float64) (ecs.Entity, error) {
	entity := ecs.CreateEntity(w)

	if err := ecs.Add(w, entity, component.TransformComponent.Kind(), &component.Transform{Position: pos, Yaw: yaw}); err != nil {
		return 0, fmt.Errorf("player: add transform: %w", err)
	}

	faction := component.FactionPlayer
	if err := ecs.Add(w, entity, component.FactionComponent.Kind(), &faction); err != nil {
		return 0, fmt.Errorf("player: add faction: %w", err)
	}

	health := component.NewHealth(tuning.MaxHealth)
	health.InvulnerabilityDuration = tuning.InvulnerabilityDuration
	health.Regen = tuning.Regeneration
	if err := ecs.Add(w, entity, component.HealthComponent.Kind(), health); err != nil {
		return 0, fmt.Errorf("player: add health: %w", err)
	}

	if err := ecs.Add(w, entity, component.PlayerComponent.Kind(), &component.Player{
		Tuning:       tuning,
		Aim:          common.Forward(yaw),
		LastPosition: pos,
	}); err != nil {
		return 0, fmt.Errorf("player: add player: %w", err)
	}

	if err := ecs.Add(w, entity, component.WeaponSlotComponent.Kind(), &component.WeaponSlot{}); err != nil {
		return 0, fmt.Errorf("player: add weapon slot: %w", err)
	}

	surface := component.SurfaceFlesh
	if err := ecs.Add(w, entity, component.SurfaceComponent.Kind(), &surface); err != nil {
		return 0, fmt.Errorf("player: add surface: %w", err)
	}

	radius := tuning.Radius
	if radius <= 0 {
		radius = 0.5
	}
	if err := ecs.Add(w, entity, component.ColliderComponent.Kind(), &component.Collider{
		Layer:  common.LayerPlayer,
		Radius: radius,
	}); err != nil {
		return 0, fmt.Errorf("player: add collider: %w", err)
	}

	return entity, nil
}
