package component

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/common"
)

// Transform is an entity's position and facing. Yaw is in radians around the
// up axis, 0 facing +Z.
type Transform struct {
	Position mgl64.Vec3
	Yaw      float64
}

func (t *Transform) Forward() mgl64.Vec3 {
	return common.Forward(t.Yaw)
}

// Face turns the transform toward a point on the ground plane.
func (t *Transform) Face(target mgl64.Vec3) {
	dir := common.Flatten(target.Sub(t.Position))
	if dir.Len() < 1e-9 {
		return
	}
	t.Yaw = common.YawOf(dir)
}

var TransformComponent = NewComponent[Transform]()
