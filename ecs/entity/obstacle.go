package entity

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/common"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
)

// NewObstacle creates a static box of the given full size centred on center.
func NewObstacle(w *ecs.World, center, size mgl64.Vec3, surface component.Surface) (ecs.Entity, error) {
	entity := ecs.CreateEntity(w)

	if err := ecs.Add(w, entity, component.TransformComponent.Kind(), &component.Transform{Position: center}); err != nil {
		return 0, fmt.Errorf("obstacle: add transform: %w", err)
	}
	if surface == "" {
		surface = component.SurfaceStone
	}
	if err := ecs.Add(w, entity, component.SurfaceComponent.Kind(), &surface); err != nil {
		return 0, fmt.Errorf("obstacle: add surface: %w", err)
	}
	if err := ecs.Add(w, entity, component.ColliderComponent.Kind(), &component.Collider{
		Layer:       common.LayerObstacle,
		HalfExtents: size.Mul(0.5),
		Static:      true,
	}); err != nil {
		return 0, fmt.Errorf("obstacle: add collider: %w", err)
	}
	return entity, nil
}
