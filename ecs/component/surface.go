package component

// Surface is the material category reported for bullet impacts.
type Surface string

const (
	SurfaceDefault Surface = "default"
	SurfaceFlesh   Surface = "flesh"
	SurfaceStone   Surface = "stone"
	SurfaceMetal   Surface = "metal"
)

// SurfaceComponent overrides the layer-derived surface of a collider.
var SurfaceComponent = NewComponent[Surface]()
