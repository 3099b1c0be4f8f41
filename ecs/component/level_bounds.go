package component

import "github.com/go-gl/mathgl/mgl64"

// LevelBounds is the walkable rectangle of the ground plane. CellSize is the
// navigation grid resolution.
type LevelBounds struct {
	Min      mgl64.Vec3
	Max      mgl64.Vec3
	CellSize float64
}

var LevelBoundsComponent = NewComponent[LevelBounds]()
