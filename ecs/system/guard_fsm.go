package system

import (
	"fmt"

	"github.com/milk9111/guardpost/ecs/component"
	"github.com/milk9111/guardpost/prefabs"
)

// homeState is the transition target that resolves to a guard's own resting
// state (patrolling or vigilant).
const homeState component.GuardState = "home"

var knownStates = map[component.GuardState]bool{
	component.GuardVigilant:         true,
	component.GuardPatrolling:       true,
	component.GuardChasing:          true,
	component.GuardSearching:        true,
	component.GuardFleeing:          true,
	component.GuardRecoveringWeapon: true,
	component.GuardKnockedDown:      true,
	component.GuardDead:             true,
}

var knownEvents = map[component.GuardEvent]bool{
	component.EventEngage:            true,
	component.EventAlerted:           true,
	component.EventSeekWeapon:        true,
	component.EventFlee:              true,
	component.EventLostSight:         true,
	component.EventSearchExpired:     true,
	component.EventPlayerDied:        true,
	component.EventWeaponRecovered:   true,
	component.EventWeaponUnavailable: true,
	component.EventSafe:              true,
	component.EventKnockedDown:       true,
	component.EventRecovered:         true,
	component.EventDied:              true,
}

// GuardFSM is the guard transition table. It holds no per-guard state, so one
// instance serves every guard.
type GuardFSM struct {
	Transitions map[component.GuardState]map[component.GuardEvent]component.GuardState
}

// Next is the pure transition function. home substitutes the "home" target.
// ok is false when the event has no transition from the given state.
func (f *GuardFSM) Next(from component.GuardState, ev component.GuardEvent, home component.GuardState) (component.GuardState, bool) {
	if f == nil {
		return from, false
	}
	to, ok := f.Transitions[from][ev]
	if !ok {
		return from, false
	}
	if to == homeState {
		return home, true
	}
	return to, true
}

// RawGuardFSM is the YAML form of the table: from -> event -> to.
type RawGuardFSM struct {
	Transitions map[string]map[string]string `yaml:"transitions"`
}

func CompileGuardFSM(raw RawGuardFSM) (*GuardFSM, error) {
	if len(raw.Transitions) == 0 {
		return nil, fmt.Errorf("guard fsm: no transitions")
	}
	out := &GuardFSM{Transitions: map[component.GuardState]map[component.GuardEvent]component.GuardState{}}
	for from, evs := range raw.Transitions {
		fromID := component.GuardState(from)
		if !knownStates[fromID] {
			return nil, fmt.Errorf("guard fsm: unknown state %q", from)
		}
		out.Transitions[fromID] = map[component.GuardEvent]component.GuardState{}
		for ev, to := range evs {
			evID := component.GuardEvent(ev)
			if !knownEvents[evID] {
				return nil, fmt.Errorf("guard fsm: unknown event %q in state %q", ev, from)
			}
			toID := component.GuardState(to)
			if toID != homeState && !knownStates[toID] {
				return nil, fmt.Errorf("guard fsm: unknown target %q for %s.%s", to, from, ev)
			}
			out.Transitions[fromID][evID] = toID
		}
	}
	return out, nil
}

// LoadGuardFSM compiles a transition table from a prefab file.
func LoadGuardFSM(path string) (*GuardFSM, error) {
	raw, err := prefabs.LoadSpec[RawGuardFSM](path)
	if err != nil {
		return nil, err
	}
	return CompileGuardFSM(raw)
}

func DefaultGuardFSM() *GuardFSM {
	type tr = map[component.GuardEvent]component.GuardState
	idle := func() tr {
		return tr{
			component.EventEngage:      component.GuardChasing,
			component.EventAlerted:     component.GuardChasing,
			component.EventSeekWeapon:  component.GuardRecoveringWeapon,
			component.EventFlee:        component.GuardFleeing,
			component.EventKnockedDown: component.GuardKnockedDown,
			component.EventDied:        component.GuardDead,
		}
	}
	return &GuardFSM{
		Transitions: map[component.GuardState]tr{
			component.GuardVigilant:   idle(),
			component.GuardPatrolling: idle(),
			component.GuardChasing: {
				component.EventSeekWeapon:  component.GuardRecoveringWeapon,
				component.EventFlee:        component.GuardFleeing,
				component.EventLostSight:   component.GuardSearching,
				component.EventPlayerDied:  homeState,
				component.EventKnockedDown: component.GuardKnockedDown,
				component.EventDied:        component.GuardDead,
			},
			component.GuardSearching: {
				component.EventEngage:        component.GuardChasing,
				component.EventAlerted:       component.GuardChasing,
				component.EventSeekWeapon:    component.GuardRecoveringWeapon,
				component.EventFlee:          component.GuardFleeing,
				component.EventSearchExpired: homeState,
				component.EventPlayerDied:    homeState,
				component.EventKnockedDown:   component.GuardKnockedDown,
				component.EventDied:          component.GuardDead,
			},
			component.GuardFleeing: {
				component.EventEngage:      component.GuardChasing,
				component.EventSeekWeapon:  component.GuardRecoveringWeapon,
				component.EventSafe:        homeState,
				component.EventPlayerDied:  homeState,
				component.EventKnockedDown: component.GuardKnockedDown,
				component.EventDied:        component.GuardDead,
			},
			component.GuardRecoveringWeapon: {
				component.EventEngage:            component.GuardChasing,
				component.EventFlee:              component.GuardFleeing,
				component.EventWeaponRecovered:   homeState,
				component.EventWeaponUnavailable: homeState,
				component.EventKnockedDown:       component.GuardKnockedDown,
				component.EventDied:              component.GuardDead,
			},
			component.GuardKnockedDown: {
				component.EventRecovered: homeState,
				component.EventDied:      component.GuardDead,
			},
			component.GuardDead: {},
		},
	}
}
