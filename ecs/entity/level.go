package entity

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
)

// NewLevelBounds records the walkable area of the level.
func NewLevelBounds(w *ecs.World, min, max mgl64.Vec3, cellSize float64) (ecs.Entity, error) {
	if max.X() <= min.X() || max.Z() <= min.Z() {
		return 0, fmt.Errorf("level: empty bounds %v..%v", min, max)
	}
	entity := ecs.CreateEntity(w)
	if err := ecs.Add(w, entity, component.LevelBoundsComponent.Kind(), &component.LevelBounds{
		Min:      min,
		Max:      max,
		CellSize: cellSize,
	}); err != nil {
		return 0, fmt.Errorf("level: add bounds: %w", err)
	}
	return entity, nil
}
