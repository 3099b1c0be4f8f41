package system

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/common"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
	"github.com/rs/zerolog"
)

const (
	// destinations closer than this to the current one keep the planned path
	repathTolerance = 0.25
	cornerEpsilon   = 1e-3
)

// NavSystem plans grid paths for NavAgents and walks them along. Without a
// grid agents head straight for their destination.
type NavSystem struct {
	Grid *NavGrid

	log zerolog.Logger
}

func NewNavSystem(grid *NavGrid) *NavSystem {
	return &NavSystem{Grid: grid, log: zerolog.Nop()}
}

func (s *NavSystem) SetLogger(l zerolog.Logger) {
	s.log = l
}

func (s *NavSystem) SetDestination(w *ecs.World, e ecs.Entity, target mgl64.Vec3) bool {
	agent, ok := ecs.Get(w, e, component.NavAgentComponent.Kind())
	if !ok {
		return false
	}
	t, ok := ecs.Get(w, e, component.TransformComponent.Kind())
	if !ok {
		return false
	}
	if agent.HasPath && flatDistance(agent.Destination, target) < repathTolerance {
		return true
	}

	path := []mgl64.Vec3{{target.X(), 0, target.Z()}}
	if s.Grid != nil {
		planned, ok := s.Grid.Path(t.Position, target)
		if !ok {
			s.log.Debug().Uint64("entity", uint64(e)).Msg("nav: no path")
			agent.HasPath = false
			agent.Path = nil
			return false
		}
		path = planned
	}
	agent.Destination = target
	agent.Path = path
	agent.Next = 0
	agent.HasPath = true
	agent.Pending = false
	return true
}

// PathPending reports whether a requested path has not been planned yet.
func (s *NavSystem) PathPending(w *ecs.World, e ecs.Entity) bool {
	agent, ok := ecs.Get(w, e, component.NavAgentComponent.Kind())
	return ok && agent.Pending
}

func (s *NavSystem) RemainingDistance(w *ecs.World, e ecs.Entity) float64 {
	agent, ok := ecs.Get(w, e, component.NavAgentComponent.Kind())
	if !ok || !agent.HasPath {
		return 0
	}
	t, ok := ecs.Get(w, e, component.TransformComponent.Kind())
	if !ok {
		return 0
	}
	total := 0.0
	prev := t.Position
	for _, p := range agent.Path[agent.Next:] {
		total += flatDistance(prev, p)
		prev = p
	}
	return total
}

func (s *NavSystem) Stop(w *ecs.World, e ecs.Entity) {
	if agent, ok := ecs.Get(w, e, component.NavAgentComponent.Kind()); ok {
		agent.Stopped = true
	}
}

func (s *NavSystem) Resume(w *ecs.World, e ecs.Entity) {
	if agent, ok := ecs.Get(w, e, component.NavAgentComponent.Kind()); ok {
		agent.Stopped = false
	}
}

func (s *NavSystem) SetSpeed(w *ecs.World, e ecs.Entity, speed float64) {
	if agent, ok := ecs.Get(w, e, component.NavAgentComponent.Kind()); ok {
		agent.Speed = math.Max(speed, 0)
	}
}

func (s *NavSystem) SamplePosition(near mgl64.Vec3, radius float64) (mgl64.Vec3, bool) {
	if s.Grid == nil {
		return near, true
	}
	return s.Grid.Nearest(near, radius)
}

// Update walks every moving agent toward its next path corner and turns it
// to face the direction of travel.
func (s *NavSystem) Update(w *ecs.World) {
	dt := w.DeltaTime()
	ecs.ForEach2(w, component.NavAgentComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, agent *component.NavAgent, t *component.Transform) {
		if agent.Stopped || !agent.HasPath || agent.Speed <= 0 {
			return
		}
		budget := agent.Speed * dt
		for budget > 0 && agent.Next < len(agent.Path) {
			corner := agent.Path[agent.Next]
			to := common.Flatten(corner.Sub(t.Position))
			dist := to.Len()
			if dist <= cornerEpsilon {
				agent.Next++
				continue
			}
			t.Yaw = common.YawOf(to)
			if dist <= budget {
				t.Position = mgl64.Vec3{corner.X(), t.Position.Y(), corner.Z()}
				budget -= dist
				agent.Next++
				continue
			}
			t.Position = t.Position.Add(to.Mul(budget / dist))
			budget = 0
		}
		if agent.Next >= len(agent.Path) {
			agent.HasPath = false
			agent.Path = nil
		}
	})
}
