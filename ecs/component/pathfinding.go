package component

import "github.com/go-gl/mathgl/mgl64"

// NavAgent is an entity steered along grid paths by the navigation system.
type NavAgent struct {
	Speed       float64
	Stopped     bool
	Destination mgl64.Vec3
	HasPath     bool
	// Pending is set while a requested path has not been planned yet.
	Pending bool
	Path    []mgl64.Vec3
	// Next indexes the path corner the agent is walking toward.
	Next int
}

var NavAgentComponent = NewComponent[NavAgent]()
