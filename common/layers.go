package common

// Layer is a collision category bit.
type Layer uint

const (
	LayerDefault Layer = 1 << iota
	LayerObstacle
	LayerPlayer
	LayerGuard
	LayerWeapon
	// LayerInert holds colliders that no query should see, such as dead guards.
	LayerInert
)

const (
	// ShootableMask is what a bullet can strike.
	ShootableMask = LayerDefault | LayerObstacle | LayerPlayer | LayerGuard
	// SightMask is what blocks line of sight.
	SightMask = LayerObstacle
	AllLayers = ^Layer(0)
)

// DefaultDeltaTime is the fixed simulation step in seconds.
const DefaultDeltaTime = 1.0 / 60.0

func (l Layer) String() string {
	switch l {
	case LayerDefault:
		return "default"
	case LayerObstacle:
		return "obstacle"
	case LayerPlayer:
		return "player"
	case LayerGuard:
		return "guard"
	case LayerWeapon:
		return "weapon"
	case LayerInert:
		return "inert"
	}
	return "mixed"
}
