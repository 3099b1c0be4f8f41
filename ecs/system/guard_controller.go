package system

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/common"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
	"github.com/rs/zerolog"
)

// AlertMode selects when peers hear an alert.
type AlertMode uint8

const (
	// AlertDirect notifies peers inside the raising guard's tick.
	AlertDirect AlertMode = iota
	// AlertQueued holds alerts until the start of the next guard tick, so the
	// outcome does not depend on the order guards are updated in.
	AlertQueued
)

type pendingAlert struct {
	from ecs.Entity
	pos  mgl64.Vec3
}

// target is the player as one guard tick sees it.
type target struct {
	entity ecs.Entity
	pos    mgl64.Vec3
	speed  float64
	ok     bool
	dead   bool
}

// GuardDeps are the collaborators a GuardSystem drives. Health and Possession
// are required; everything else degrades to a logged no-op when missing.
type GuardDeps struct {
	FSM        *GuardFSM
	Health     *HealthSystem
	Possession *PossessionSystem
	Resolver   *Resolver
	Spatial    SpatialQuery
	Nav        Navigator
	Lifecycle  Lifecycle
	Rand       *rand.Rand
}

// GuardSystem runs every guard's perception and state machine once per tick.
type GuardSystem struct {
	FSM        *GuardFSM
	Health     *HealthSystem
	Possession *PossessionSystem
	Resolver   *Resolver
	Spatial    SpatialQuery
	Nav        Navigator
	Lifecycle  Lifecycle

	// Player is the entity guards look for. Zero disables perception.
	Player    ecs.Entity
	AlertMode AlertMode

	rng     *rand.Rand
	log     zerolog.Logger
	pending []pendingAlert
}

func NewGuardSystem(deps GuardDeps) *GuardSystem {
	fsm := deps.FSM
	if fsm == nil {
		fsm = DefaultGuardFSM()
	}
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &GuardSystem{
		FSM:        fsm,
		Health:     deps.Health,
		Possession: deps.Possession,
		Resolver:   deps.Resolver,
		Spatial:    deps.Spatial,
		Nav:        deps.Nav,
		Lifecycle:  deps.Lifecycle,
		rng:        rng,
		log:        zerolog.Nop(),
	}
}

func (s *GuardSystem) SetLogger(l zerolog.Logger) {
	s.log = l
}

// SetFSM swaps the transition table, for example after a hot reload.
// Guards keep their current state.
func (s *GuardSystem) SetFSM(fsm *GuardFSM) {
	if fsm != nil {
		s.FSM = fsm
	}
}

func (s *GuardSystem) Update(w *ecs.World) {
	if w == nil {
		return
	}
	dt := w.DeltaTime()
	s.drainAlerts(w)
	player := s.target(w)

	ecs.ForEach2(w, component.GuardComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, g *component.Guard, t *component.Transform) {
		s.tick(w, e, g, t, player, dt)
	})
}

func (s *GuardSystem) target(w *ecs.World) target {
	p := target{entity: s.Player}
	if !s.Player.Valid() || !ecs.IsAlive(w, s.Player) {
		return p
	}
	t, ok := ecs.Get(w, s.Player, component.TransformComponent.Kind())
	if !ok {
		return p
	}
	p.pos = t.Position
	p.ok = true
	if pc, ok := ecs.Get(w, s.Player, component.PlayerComponent.Kind()); ok {
		p.speed = pc.Speed
	}
	if h, ok := ecs.Get(w, s.Player, component.HealthComponent.Kind()); ok {
		p.dead = h.Dead
	}
	return p
}

func (s *GuardSystem) tick(w *ecs.World, e ecs.Entity, g *component.Guard, t *component.Transform, player target, dt float64) {
	if g.Data == nil {
		s.enter(w, e, g, t)
	}
	decay(&g.ShootTimer, dt)
	decay(&g.MeleeTimer, dt)
	decay(&g.DropRollTimer, dt)
	decay(&g.StunTimer, dt)

	if g.State != component.GuardDead {
		if h, ok := ecs.Get(w, e, component.HealthComponent.Kind()); ok && h.Dead {
			s.Die(w, e)
			return
		}
	}

	if player.dead {
		switch g.State {
		case component.GuardChasing, component.GuardSearching, component.GuardFleeing:
			s.fire(w, e, g, t, component.EventPlayerDied)
		}
		g.Detected = false
	}

	if g.State == component.GuardDead || g.StunTimer > 0 {
		return
	}

	if player.ok && !player.dead && g.State != component.GuardKnockedDown {
		seen := Perceive(s.Spatial, e, t, g.Tuning, player.pos)
		rising := seen && !g.Detected
		g.Detected = seen
		if seen {
			g.LastKnown = player.pos
			g.HasLastKnown = true
		}
		if rising {
			s.react(w, e, g, t)
		}
	} else if !player.ok {
		g.Detected = false
	}

	if player.dead && !idleState(g.State) {
		s.navStop(w, e)
		return
	}
	s.updateState(w, e, g, t, player, dt)
}

// idleState reports whether a state keeps running once the player is dead.
func idleState(st component.GuardState) bool {
	switch st {
	case component.GuardVigilant, component.GuardPatrolling, component.GuardKnockedDown:
		return true
	}
	return false
}

// ChooseReaction picks how a guard answers the sight of the player.
func ChooseReaction(armed, healthy, weaponNearby bool) component.GuardEvent {
	switch {
	case !armed && weaponNearby:
		return component.EventSeekWeapon
	case !armed, !healthy:
		return component.EventFlee
	}
	return component.EventEngage
}

// react answers a detection or a hit from an idle stance.
func (s *GuardSystem) react(w *ecs.World, e ecs.Entity, g *component.Guard, t *component.Transform) {
	if g.State == component.GuardKnockedDown || g.State == component.GuardDead {
		return
	}
	armed := s.Possession.IsArmed(w, e)
	weaponNearby := false
	if !armed {
		_, weaponNearby = s.Possession.NearestAvailable(w, t.Position, g.Tuning.WideWeaponSearchRadius)
	}
	ev := ChooseReaction(armed, s.healthy(w, e, g), weaponNearby)
	s.log.Debug().Uint64("guard", uint64(e)).Str("reaction", string(ev)).Msg("guard: reacting")
	s.fire(w, e, g, t, ev)
	if ev == component.EventEngage {
		s.raiseAlert(w, e, g.LastKnown)
	}
}

func (s *GuardSystem) healthy(w *ecs.World, e ecs.Entity, g *component.Guard) bool {
	h, ok := ecs.Get(w, e, component.HealthComponent.Kind())
	if !ok {
		return true
	}
	return h.Current >= g.Tuning.LowHealthThreshold
}

// Transition moves guard e into state to and runs the state's entry action.
// Asking for the current state does nothing.
func (s *GuardSystem) Transition(w *ecs.World, e ecs.Entity, to component.GuardState) bool {
	g, ok := ecs.Get(w, e, component.GuardComponent.Kind())
	if !ok {
		return false
	}
	t, ok := ecs.Get(w, e, component.TransformComponent.Kind())
	if !ok {
		return false
	}
	return s.transition(w, e, g, t, to, "")
}

// Fire feeds ev to guard e's state machine.
func (s *GuardSystem) Fire(w *ecs.World, e ecs.Entity, ev component.GuardEvent) bool {
	g, ok := ecs.Get(w, e, component.GuardComponent.Kind())
	if !ok {
		return false
	}
	t, ok := ecs.Get(w, e, component.TransformComponent.Kind())
	if !ok {
		return false
	}
	return s.fire(w, e, g, t, ev)
}

func (s *GuardSystem) fire(w *ecs.World, e ecs.Entity, g *component.Guard, t *component.Transform, ev component.GuardEvent) bool {
	next, ok := s.FSM.Next(g.State, ev, g.HomeState())
	if !ok {
		s.log.Debug().Uint64("guard", uint64(e)).Str("state", string(g.State)).Str("event", string(ev)).Msg("guard: event ignored")
		return false
	}
	return s.transition(w, e, g, t, next, ev)
}

func (s *GuardSystem) transition(w *ecs.World, e ecs.Entity, g *component.Guard, t *component.Transform, to component.GuardState, ev component.GuardEvent) bool {
	if to == g.State && g.Data != nil {
		return false
	}
	from := g.State
	g.State = to
	s.enter(w, e, g, t)

	s.log.Debug().Uint64("guard", uint64(e)).Str("from", string(from)).Str("to", string(to)).Msg("guard: state changed")
	w.Emit(ecs.Event{Type: EventStateChanged, Entity: e, Data: StateChanged{From: from, To: to, Event: ev}})
	return true
}

func newStateData(state component.GuardState) component.GuardStateData {
	switch state {
	case component.GuardPatrolling:
		return &component.PatrollingData{}
	case component.GuardChasing:
		return &component.ChasingData{}
	case component.GuardSearching:
		return &component.SearchingData{}
	case component.GuardFleeing:
		return &component.FleeingData{}
	case component.GuardRecoveringWeapon:
		return &component.RecoveringWeaponData{}
	case component.GuardKnockedDown:
		return &component.KnockedDownData{}
	case component.GuardDead:
		return &component.DeadData{}
	}
	return &component.VigilantData{}
}

// enter resets the per-state data and runs the entry action of g.State.
func (s *GuardSystem) enter(w *ecs.World, e ecs.Entity, g *component.Guard, t *component.Transform) {
	if g.State == "" {
		g.State = g.HomeState()
	}
	g.Data = newStateData(g.State)
	tn := g.Tuning

	switch d := g.Data.(type) {
	case *component.VigilantData:
		s.navSpeed(w, e, tn.PatrolSpeed)
		d.AtPost = flatDistance(t.Position, g.Post) <= tn.PostReachDistance
		if d.AtPost || !s.navigate(w, e, g.Post) {
			d.AtPost = true
			s.navStop(w, e)
		}
	case *component.PatrollingData:
		s.navSpeed(w, e, tn.PatrolSpeed)
		if len(g.Waypoints) > 0 {
			g.WaypointIndex %= len(g.Waypoints)
			d.Moving = s.navigate(w, e, g.Waypoints[g.WaypointIndex])
		}
	case *component.ChasingData:
		s.navSpeed(w, e, tn.ChaseSpeed)
		s.navResume(w, e)
	case *component.SearchingData:
		s.navSpeed(w, e, tn.PatrolSpeed)
		d.Phase = component.SearchApproach
	case *component.FleeingData:
		s.navSpeed(w, e, tn.FleeSpeed)
		s.navResume(w, e)
	case *component.RecoveringWeaponData:
		s.navSpeed(w, e, tn.PatrolSpeed)
		s.navResume(w, e)
	case *component.KnockedDownData, *component.DeadData:
		s.navStop(w, e)
	}
}

// raiseAlert tells nearby guards where the player was seen.
func (s *GuardSystem) raiseAlert(w *ecs.World, from ecs.Entity, pos mgl64.Vec3) {
	if s.AlertMode == AlertQueued {
		s.pending = append(s.pending, pendingAlert{from: from, pos: pos})
		return
	}
	s.deliverAlert(w, from, pos)
}

func (s *GuardSystem) drainAlerts(w *ecs.World) {
	if len(s.pending) == 0 {
		return
	}
	pending := s.pending
	s.pending = nil
	for _, a := range pending {
		if !ecs.IsAlive(w, a.from) {
			continue
		}
		s.deliverAlert(w, a.from, a.pos)
	}
}

func (s *GuardSystem) deliverAlert(w *ecs.World, from ecs.Entity, pos mgl64.Vec3) {
	origin, ok := position(w, from)
	if !ok {
		return
	}
	g, ok := ecs.Get(w, from, component.GuardComponent.Kind())
	if !ok {
		return
	}

	var notified []ecs.Entity
	for _, peer := range s.guardsNear(w, origin, g.Tuning.AlertRange) {
		if peer == from {
			continue
		}
		if s.OnAlerted(w, peer, pos) {
			notified = append(notified, peer)
		}
	}
	s.log.Info().Uint64("guard", uint64(from)).Int("notified", len(notified)).Msg("guard: alert raised")
	w.Emit(ecs.Event{Type: EventAlertRaised, Entity: from, Data: AlertRaised{Position: pos, Notified: notified}})
}

func (s *GuardSystem) guardsNear(w *ecs.World, center mgl64.Vec3, radius float64) []ecs.Entity {
	var out []ecs.Entity
	if s.Spatial != nil {
		for _, hit := range s.Spatial.OverlapSphere(center, radius, common.LayerGuard) {
			if ecs.Has(w, hit.Entity, component.GuardComponent.Kind()) {
				out = append(out, hit.Entity)
			}
		}
		return out
	}
	ecs.ForEach2(w, component.GuardComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, _ *component.Guard, t *component.Transform) {
		if flatDistance(t.Position, center) <= radius {
			out = append(out, e)
		}
	})
	return out
}

// OnAlerted hands guard e a peer's sighting. Only idle or searching guards
// that are armed and healthy join the chase.
func (s *GuardSystem) OnAlerted(w *ecs.World, e ecs.Entity, pos mgl64.Vec3) bool {
	g, ok := ecs.Get(w, e, component.GuardComponent.Kind())
	if !ok {
		return false
	}
	t, ok := ecs.Get(w, e, component.TransformComponent.Kind())
	if !ok {
		return false
	}
	switch g.State {
	case component.GuardVigilant, component.GuardPatrolling, component.GuardSearching:
	default:
		return false
	}
	if !s.Possession.IsArmed(w, e) || !s.healthy(w, e, g) {
		return false
	}

	g.LastKnown = pos
	g.HasLastKnown = true
	if !s.fire(w, e, g, t, component.EventAlerted) {
		return false
	}
	if d, ok := g.Data.(*component.ChasingData); ok {
		d.Alerted = true
	}
	s.navigate(w, e, pos)
	return true
}

func (s *GuardSystem) navigate(w *ecs.World, e ecs.Entity, dest mgl64.Vec3) bool {
	if s.Nav == nil {
		return false
	}
	if !s.Nav.SetDestination(w, e, dest) {
		return false
	}
	s.Nav.Resume(w, e)
	return true
}

func (s *GuardSystem) navStop(w *ecs.World, e ecs.Entity) {
	if s.Nav != nil {
		s.Nav.Stop(w, e)
	}
}

func (s *GuardSystem) navResume(w *ecs.World, e ecs.Entity) {
	if s.Nav != nil {
		s.Nav.Resume(w, e)
	}
}

func (s *GuardSystem) navSpeed(w *ecs.World, e ecs.Entity, speed float64) {
	if s.Nav != nil {
		s.Nav.SetSpeed(w, e, speed)
	}
}

func decay(v *float64, dt float64) {
	if *v > 0 {
		*v = math.Max(0, *v-dt)
	}
}

func flatDistance(a, b mgl64.Vec3) float64 {
	return common.Flatten(a.Sub(b)).Len()
}
