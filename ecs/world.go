package ecs

import "github.com/milk9111/guardpost/ecs/component"

// World owns entities, components, system order and the event queue.
type World struct {
	entities  entityStore
	stores    map[component.ComponentID]store
	scheduler *Scheduler
	events    EventQueue

	subscribers  []func(Event)
	destroyHooks []func(Entity)

	dt      float64
	elapsed float64
	ticks   int

	physicsWorld *PhysicsWorld
}

// NewWorld creates an empty ECS world.
func NewWorld() *World {
	return &World{
		stores:    make(map[component.ComponentID]store),
		scheduler: NewScheduler(),
	}
}

// CreateEntity allocates a new entity.
func CreateEntity(w *World) Entity {
	return w.entities.create()
}

// DestroyEntity removes an entity and all of its components. Destroy hooks run
// before the components are dropped so they can still read them.
func DestroyEntity(w *World, e Entity) bool {
	if w == nil || !w.entities.isAlive(e) {
		return false
	}
	for _, hook := range w.destroyHooks {
		hook(e)
	}
	for _, s := range w.stores {
		s.remove(e)
	}
	return w.entities.destroy(e)
}

// IsAlive reports whether an entity handle is valid.
func IsAlive(w *World, e Entity) bool {
	if w == nil {
		return false
	}
	return w.entities.isAlive(e)
}

// Entities returns every live entity.
func Entities(w *World) []Entity {
	if w == nil {
		return nil
	}
	out := make([]Entity, 0, w.entities.count)
	w.entities.each(func(e Entity) { out = append(out, e) })
	return out
}

// AddSystem appends a system to the update order.
func (w *World) AddSystem(s System) {
	if w == nil || s == nil {
		return
	}
	w.scheduler.Add(s)
}

// Subscribe registers fn to receive every event after the systems of a tick
// have run.
func (w *World) Subscribe(fn func(Event)) {
	if w == nil || fn == nil {
		return
	}
	w.subscribers = append(w.subscribers, fn)
}

// OnDestroy registers fn to run whenever an entity is destroyed.
func (w *World) OnDestroy(fn func(Entity)) {
	if w == nil || fn == nil {
		return
	}
	w.destroyHooks = append(w.destroyHooks, fn)
}

// Update runs all systems once with a tick length of dt seconds, then
// delivers the tick's events to subscribers.
func (w *World) Update(dt float64) {
	if w == nil {
		return
	}
	w.dt = dt
	w.elapsed += dt
	w.ticks++
	w.scheduler.Update(w)
	w.FlushEvents()
}

// FlushEvents delivers queued events to subscribers and clears the queue.
func (w *World) FlushEvents() {
	for _, evt := range w.events.Drain() {
		for _, sub := range w.subscribers {
			sub(evt)
		}
	}
}

// Emit queues an event for delivery at the end of the tick.
func (w *World) Emit(evt Event) {
	if w == nil {
		return
	}
	w.events.Push(evt)
}

// Events returns the world event queue.
func (w *World) Events() *EventQueue {
	if w == nil {
		return nil
	}
	return &w.events
}

// DeltaTime is the length of the current tick in seconds.
func (w *World) DeltaTime() float64 {
	if w == nil {
		return 0
	}
	return w.dt
}

// Elapsed is the simulated time since the world was created.
func (w *World) Elapsed() float64 {
	if w == nil {
		return 0
	}
	return w.elapsed
}

// Ticks is the number of completed Update calls.
func (w *World) Ticks() int {
	if w == nil {
		return 0
	}
	return w.ticks
}

// SetPhysicsWorld attaches a physics world to this ECS world.
func (w *World) SetPhysicsWorld(pw *PhysicsWorld) {
	if w == nil {
		return
	}
	w.physicsWorld = pw
	if pw != nil {
		w.OnDestroy(pw.RemoveEntity)
	}
}

// PhysicsWorld returns the attached physics world, if any.
func (w *World) PhysicsWorld() *PhysicsWorld {
	if w == nil {
		return nil
	}
	return w.physicsWorld
}
