package component

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/common"
)

// Collider declares the physics shape of an entity. Actors and weapons are
// circles of Radius; obstacles are boxes of HalfExtents on the ground plane.
type Collider struct {
	Layer       common.Layer
	Radius      float64
	HalfExtents mgl64.Vec3
	Static      bool
}

var ColliderComponent = NewComponent[Collider]()
