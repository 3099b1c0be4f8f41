package ecs

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/guardpost/common"
	"github.com/rs/zerolog"
)

const (
	// fraction of a dropped weapon's ground speed that survives one second
	weaponDampingPerSecond = 0.05
	weaponGravity          = 9.81
	restSpeed              = 0.05
)

// RaycastHit describes the first collider struck by a segment query.
type RaycastHit struct {
	Entity   Entity
	Point    mgl64.Vec3
	Normal   mgl64.Vec3
	Layer    common.Layer
	Distance float64
}

// OverlapHit is one collider found by an overlap query.
type OverlapHit struct {
	Entity   Entity
	Layer    common.Layer
	Distance float64
}

type physicsBody struct {
	body   *cp.Body
	shape  *cp.Shape
	layer  common.Layer
	radius float64
	static bool

	// dropped weapons simulate their own height above the ground plane
	dynamic       bool
	inSpace       bool
	height        float64
	verticalSpeed float64
}

// PhysicsWorld owns the Chipmunk space. The 3D ground plane XZ maps onto the
// space's XY; heights are carried alongside for eye-level rays and falling
// weapons.
type PhysicsWorld struct {
	space  *cp.Space
	log    zerolog.Logger
	bodies map[Entity]*physicsBody

	shapeToEntity map[*cp.Shape]Entity
}

// NewPhysicsWorld creates an empty top-down physics world.
func NewPhysicsWorld() *PhysicsWorld {
	space := cp.NewSpace()
	space.Iterations = 20
	space.SetGravity(cp.Vector{})

	return &PhysicsWorld{
		space:         space,
		log:           zerolog.Nop(),
		bodies:        make(map[Entity]*physicsBody),
		shapeToEntity: make(map[*cp.Shape]Entity),
	}
}

func (pw *PhysicsWorld) SetLogger(l zerolog.Logger) {
	if pw == nil {
		return
	}
	pw.log = l
}

// Space returns the underlying Chipmunk space.
func (pw *PhysicsWorld) Space() *cp.Space {
	if pw == nil {
		return nil
	}
	return pw.space
}

func toCP(v mgl64.Vec3) cp.Vector {
	return cp.Vector{X: v.X(), Y: v.Z()}
}

func fromCP(v cp.Vector, height float64) mgl64.Vec3 {
	return mgl64.Vec3{v.X, height, v.Y}
}

func shapeFilter(e Entity, layer common.Layer) cp.ShapeFilter {
	mask := uint(cp.ALL_CATEGORIES)
	if layer == common.LayerWeapon {
		// loose weapons bounce off walls but are not shoved around by actors
		mask = uint(common.LayerObstacle | common.LayerDefault | common.LayerWeapon)
	}
	// the entity id doubles as the group so queries can skip their caller
	return cp.NewShapeFilter(uint(e.id()), uint(layer), mask)
}

// AddObstacle registers a static box covering center +/- half on the ground
// plane.
func (pw *PhysicsWorld) AddObstacle(e Entity, center, half mgl64.Vec3, layer common.Layer) {
	if pw == nil || pw.space == nil {
		return
	}
	bb := cp.BB{
		L: center.X() - half.X(),
		B: center.Z() - half.Z(),
		R: center.X() + half.X(),
		T: center.Z() + half.Z(),
	}
	shape := cp.NewBox2(pw.space.StaticBody, bb, 0)
	shape.SetFriction(0.8)
	shape.SetFilter(shapeFilter(e, layer))
	pw.space.AddShape(shape)

	pw.bodies[e] = &physicsBody{shape: shape, layer: layer, static: true, inSpace: true}
	pw.shapeToEntity[shape] = e
}

// AddActor registers a kinematic circle for an entity that moves itself.
func (pw *PhysicsWorld) AddActor(e Entity, pos mgl64.Vec3, radius float64, layer common.Layer) {
	if pw == nil || pw.space == nil {
		return
	}
	body := cp.NewKinematicBody()
	body.SetPosition(toCP(pos))
	shape := cp.NewCircle(body, radius, cp.Vector{})
	shape.SetFilter(shapeFilter(e, layer))
	pw.space.AddBody(body)
	pw.space.AddShape(shape)

	pw.bodies[e] = &physicsBody{body: body, shape: shape, layer: layer, radius: radius, height: pos.Y(), inSpace: true}
	pw.shapeToEntity[shape] = e
}

// AddLooseWeapon registers a weapon lying on the ground. It takes part in
// the simulation until Attach is called.
func (pw *PhysicsWorld) AddLooseWeapon(e Entity, pos mgl64.Vec3, radius float64) {
	pw.Release(e, pos, mgl64.Vec3{}, radius)
}

// Release turns e into a dynamic weapon body at pos and applies impulse.
// The vertical part of the impulse lifts the weapon off the ground plane.
func (pw *PhysicsWorld) Release(e Entity, pos, impulse mgl64.Vec3, radius float64) {
	if pw == nil || pw.space == nil {
		return
	}
	pw.detach(e)

	mass := 1.0
	body := cp.NewBody(mass, cp.MomentForCircle(mass, 0, radius, cp.Vector{}))
	body.SetPosition(toCP(pos))
	body.SetVelocityUpdateFunc(func(b *cp.Body, _ cp.Vector, _ float64, dt float64) {
		cp.BodyUpdateVelocity(b, cp.Vector{}, math.Pow(weaponDampingPerSecond, dt), dt)
	})
	body.SetVelocity(impulse.X()/mass, impulse.Z()/mass)

	shape := cp.NewCircle(body, radius, cp.Vector{})
	shape.SetFriction(0.6)
	shape.SetFilter(shapeFilter(e, common.LayerWeapon))
	pw.space.AddBody(body)
	pw.space.AddShape(shape)

	pw.bodies[e] = &physicsBody{
		body:          body,
		shape:         shape,
		layer:         common.LayerWeapon,
		radius:        radius,
		dynamic:       true,
		inSpace:       true,
		height:        math.Max(pos.Y(), 0),
		verticalSpeed: impulse.Y() / mass,
	}
	pw.shapeToEntity[shape] = e
}

// Attach removes e from the simulation, as when a weapon is picked up.
func (pw *PhysicsWorld) Attach(e Entity) {
	if pw == nil {
		return
	}
	pw.detach(e)
}

func (pw *PhysicsWorld) detach(e Entity) {
	pb, ok := pw.bodies[e]
	if !ok {
		return
	}
	if pb.inSpace {
		pw.space.RemoveShape(pb.shape)
		if pb.body != nil && !pb.static {
			pw.space.RemoveBody(pb.body)
		}
	}
	delete(pw.shapeToEntity, pb.shape)
	delete(pw.bodies, e)
}

// RemoveEntity drops every physics object owned by e.
func (pw *PhysicsWorld) RemoveEntity(e Entity) {
	if pw == nil {
		return
	}
	pw.detach(e)
}

// Has reports whether e owns a physics object.
func (pw *PhysicsWorld) Has(e Entity) bool {
	if pw == nil {
		return false
	}
	_, ok := pw.bodies[e]
	return ok
}

// IsResting reports whether e has stopped moving. Entities without a
// simulated body are always at rest.
func (pw *PhysicsWorld) IsResting(e Entity) bool {
	if pw == nil {
		return true
	}
	pb, ok := pw.bodies[e]
	if !ok || !pb.dynamic {
		return true
	}
	return pb.height <= 0 && pb.verticalSpeed == 0 && pb.body.Velocity().Length() < restSpeed
}

// SetPosition moves a kinematic actor.
func (pw *PhysicsWorld) SetPosition(e Entity, pos mgl64.Vec3) {
	if pw == nil {
		return
	}
	pb, ok := pw.bodies[e]
	if !ok || pb.static || pb.body == nil {
		return
	}
	pb.body.SetPosition(toCP(pos))
	pb.height = pos.Y()
	pb.body.EachShape(func(sh *cp.Shape) { sh.CacheBB() })
	// the broadphase only refreshes leaves on Step; reinsert so queries
	// before the next step see the new position.
	if pb.inSpace {
		pw.space.RemoveShape(pb.shape)
		pw.space.AddShape(pb.shape)
	}
}

// Position returns the simulated position of e.
func (pw *PhysicsWorld) Position(e Entity) (mgl64.Vec3, bool) {
	if pw == nil {
		return mgl64.Vec3{}, false
	}
	pb, ok := pw.bodies[e]
	if !ok || pb.body == nil || pb.static {
		return mgl64.Vec3{}, false
	}
	return fromCP(pb.body.Position(), pb.height), true
}

// Dynamic lists the entities whose bodies are simulated.
func (pw *PhysicsWorld) Dynamic() []Entity {
	if pw == nil {
		return nil
	}
	out := make([]Entity, 0, len(pw.bodies))
	for e, pb := range pw.bodies {
		if pb.dynamic {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SetLayer moves e to another collision category.
func (pw *PhysicsWorld) SetLayer(e Entity, layer common.Layer) {
	if pw == nil {
		return
	}
	pb, ok := pw.bodies[e]
	if !ok {
		return
	}
	pb.layer = layer
	pb.shape.SetFilter(shapeFilter(e, layer))
	pw.log.Debug().Uint64("entity", uint64(e)).Stringer("layer", layer).Msg("physics: layer changed")
}

// LayerOf returns the collision category of e.
func (pw *PhysicsWorld) LayerOf(e Entity) (common.Layer, bool) {
	if pw == nil {
		return 0, false
	}
	pb, ok := pw.bodies[e]
	if !ok {
		return 0, false
	}
	return pb.layer, true
}

// Raycast returns the first collider in mask on the segment from..to,
// skipping ignore. Heights are interpolated along the segment.
func (pw *PhysicsWorld) Raycast(from, to mgl64.Vec3, mask common.Layer, ignore Entity) (RaycastHit, bool) {
	if pw == nil || pw.space == nil {
		return RaycastHit{}, false
	}
	filter := cp.NewShapeFilter(uint(ignore.id()), cp.ALL_CATEGORIES, uint(mask))
	info := pw.space.SegmentQueryFirst(toCP(from), toCP(to), 0, filter)
	if info.Shape == nil {
		return RaycastHit{}, false
	}
	e, ok := pw.shapeToEntity[info.Shape]
	if !ok {
		return RaycastHit{}, false
	}
	height := common.Lerp(from.Y(), to.Y(), info.Alpha)
	point := fromCP(info.Point, height)
	return RaycastHit{
		Entity:   e,
		Point:    point,
		Normal:   fromCP(info.Normal, 0),
		Layer:    pw.bodies[e].layer,
		Distance: point.Sub(from).Len(),
	}, true
}

// OverlapSphere returns every collider in mask within radius of center,
// nearest first.
func (pw *PhysicsWorld) OverlapSphere(center mgl64.Vec3, radius float64, mask common.Layer) []OverlapHit {
	if pw == nil || pw.space == nil {
		return nil
	}
	var hits []OverlapHit
	filter := cp.NewShapeFilter(cp.NO_GROUP, cp.ALL_CATEGORIES, uint(mask))
	at := toCP(center)
	pw.space.BBQuery(cp.NewBBForCircle(at, radius), filter, func(shape *cp.Shape, _ interface{}) {
		e, ok := pw.shapeToEntity[shape]
		if !ok {
			return
		}
		d := shape.PointQuery(at).Distance
		if d > radius {
			return
		}
		hits = append(hits, OverlapHit{Entity: e, Layer: pw.bodies[e].layer, Distance: math.Max(d, 0)})
	}, nil)
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance == hits[j].Distance {
			return hits[i].Entity < hits[j].Entity
		}
		return hits[i].Distance < hits[j].Distance
	})
	return hits
}

// Obstacles returns the ground-plane bounds of every static collider in mask.
func (pw *PhysicsWorld) Obstacles(mask common.Layer) []cp.BB {
	if pw == nil {
		return nil
	}
	ents := make([]Entity, 0, len(pw.bodies))
	for e, pb := range pw.bodies {
		if pb.static && pb.layer&mask != 0 {
			ents = append(ents, e)
		}
	}
	sort.Slice(ents, func(i, j int) bool { return ents[i] < ents[j] })
	out := make([]cp.BB, 0, len(ents))
	for _, e := range ents {
		out = append(out, pw.bodies[e].shape.BB())
	}
	return out
}

// Step advances the simulation by dt seconds.
func (pw *PhysicsWorld) Step(dt float64) {
	if pw == nil || pw.space == nil || dt <= 0 {
		return
	}
	for _, pb := range pw.bodies {
		if !pb.dynamic || (pb.height <= 0 && pb.verticalSpeed == 0) {
			continue
		}
		pb.verticalSpeed -= weaponGravity * dt
		pb.height += pb.verticalSpeed * dt
		if pb.height <= 0 {
			pb.height = 0
			pb.verticalSpeed = 0
		}
	}
	pw.space.Step(dt)
}
