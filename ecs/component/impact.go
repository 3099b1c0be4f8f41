package component

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
)

// Impact is a short-lived bullet impact marker.
type Impact struct {
	Point   mgl64.Vec3
	Normal  mgl64.Vec3
	Surface Surface
	Tint    color.RGBA
}

var ImpactComponent = NewComponent[Impact]()
