package system

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/common"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
	"github.com/rs/zerolog"
)

const (
	missYawSpread   = 45.0
	missPitchSpread = 22.5
)

type ShotOutcome uint8

const (
	ShotMissed ShotOutcome = iota
	ShotHitEnvironment
	ShotHitActor
)

func (o ShotOutcome) String() string {
	switch o {
	case ShotHitEnvironment:
		return "hit_environment"
	case ShotHitActor:
		return "hit_actor"
	}
	return "missed"
}

// ShotRequest describes one trigger pull. Weapon is optional; when set its
// fire-rate clock gates TryShoot.
type ShotRequest struct {
	Shooter ecs.Entity
	Weapon  ecs.Entity
	Profile component.WeaponProfile
	Origin  mgl64.Vec3
	Target  mgl64.Vec3
}

type ShotResult struct {
	Outcome    ShotOutcome
	Point      mgl64.Vec3
	Normal     mgl64.Vec3
	Target     ecs.Entity
	Surface    component.Surface
	Damaged    bool
	ForcedMiss bool
	Direction  mgl64.Vec3
}

// Resolver turns shots into hit-tests, impact effects and damage.
type Resolver struct {
	Spatial SpatialQuery
	Impacts ImpactSink
	Damage  DamageReceiver

	rng *rand.Rand
	log zerolog.Logger
}

func NewResolver(spatial SpatialQuery, impacts ImpactSink, damage DamageReceiver, rng *rand.Rand) *Resolver {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Resolver{
		Spatial: spatial,
		Impacts: impacts,
		Damage:  damage,
		rng:     rng,
		log:     zerolog.Nop(),
	}
}

func (r *Resolver) SetLogger(l zerolog.Logger) {
	r.log = l
}

// TryShoot fires unless the weapon's fire-rate clock is still running, in
// which case it returns false and changes nothing.
func (r *Resolver) TryShoot(w *ecs.World, req ShotRequest, forceMiss bool) (ShotResult, bool) {
	if req.Weapon.Valid() {
		wp, ok := ecs.Get(w, req.Weapon, component.WeaponComponent.Kind())
		if !ok {
			return ShotResult{}, false
		}
		if wp.FireCooldown > 0 {
			return ShotResult{}, false
		}
		wp.FireCooldown = wp.Profile.FireRate
	}
	if forceMiss {
		return r.FireMiss(w, req), true
	}
	return r.Fire(w, req), true
}

// Fire resolves an aimed shot. Spread grows as accuracy drops and is zero at
// accuracy 1.
func (r *Resolver) Fire(w *ecs.World, req ShotRequest) ShotResult {
	dir := r.aim(w, req)
	spread := (1 - common.Clamp01(req.Profile.Accuracy)) * req.Profile.SpreadAngle
	if spread > 0 {
		dir = rotateYaw(dir, r.uniform(spread))
	}
	return r.resolve(w, req, dir, false)
}

// FireMiss resolves a shot that is meant to miss: it is thrown wide and never
// deals damage, even if it strikes an actor by accident.
func (r *Resolver) FireMiss(w *ecs.World, req ShotRequest) ShotResult {
	dir := r.aim(w, req)
	dir = rotatePitch(rotateYaw(dir, r.uniform(missYawSpread)), r.uniform(missPitchSpread))
	return r.resolve(w, req, dir, true)
}

func (r *Resolver) aim(w *ecs.World, req ShotRequest) mgl64.Vec3 {
	fallback := mgl64.Vec3{0, 0, 1}
	if t, ok := ecs.Get(w, req.Shooter, component.TransformComponent.Kind()); ok {
		fallback = t.Forward()
	}
	return common.SafeNormalize(req.Target.Sub(req.Origin), fallback)
}

func (r *Resolver) uniform(limit float64) float64 {
	return (r.rng.Float64()*2 - 1) * limit
}

func (r *Resolver) resolve(w *ecs.World, req ShotRequest, dir mgl64.Vec3, forcedMiss bool) ShotResult {
	result := ShotResult{Outcome: ShotMissed, ForcedMiss: forcedMiss, Direction: dir}

	if r.Impacts != nil && req.Profile.ShootSound != "" {
		r.Impacts.PlaySound(req.Profile.ShootSound, req.Origin)
	}

	if r.Spatial == nil {
		r.log.Debug().Uint64("shooter", uint64(req.Shooter)).Msg("resolver: no spatial provider, shot skipped")
		r.emit(w, req, result)
		return result
	}

	end := req.Origin.Add(dir.Mul(req.Profile.Range))
	hit, ok := r.Spatial.Raycast(req.Origin, end, common.ShootableMask, req.Shooter)
	if !ok {
		r.emit(w, req, result)
		return result
	}

	result.Point = hit.Point
	result.Normal = hit.Normal
	result.Target = hit.Entity
	result.Surface = SurfaceOf(w, hit.Entity, hit.Layer)
	result.Outcome = ShotHitEnvironment
	if r.Impacts != nil {
		r.Impacts.SpawnImpact(w, hit.Point, hit.Normal, result.Surface)
	}

	if ecs.Has(w, hit.Entity, component.HealthComponent.Kind()) {
		result.Outcome = ShotHitActor
		if !forcedMiss && r.Damage != nil {
			result.Damaged = r.Damage.ApplyDamage(w, hit.Entity, req.Profile.Damage, false, req.Origin)
		}
	}

	r.emit(w, req, result)
	return result
}

func (r *Resolver) emit(w *ecs.World, req ShotRequest, result ShotResult) {
	w.Emit(ecs.Event{Type: EventShotFired, Entity: req.Shooter, Data: ShotFired{
		Shooter: req.Shooter,
		Weapon:  req.Weapon,
		Result:  result,
	}})
}

// SurfaceOf classifies a struck collider. An explicit Surface component wins
// over the layer.
func SurfaceOf(w *ecs.World, e ecs.Entity, layer common.Layer) component.Surface {
	if s, ok := ecs.Get(w, e, component.SurfaceComponent.Kind()); ok {
		return *s
	}
	switch layer {
	case common.LayerPlayer, common.LayerGuard:
		return component.SurfaceFlesh
	case common.LayerObstacle:
		return component.SurfaceStone
	case common.LayerWeapon:
		return component.SurfaceMetal
	}
	return component.SurfaceDefault
}

func rotateYaw(dir mgl64.Vec3, degrees float64) mgl64.Vec3 {
	return mgl64.QuatRotate(mgl64.DegToRad(degrees), common.Up).Rotate(dir)
}

func rotatePitch(dir mgl64.Vec3, degrees float64) mgl64.Vec3 {
	right := dir.Cross(common.Up)
	if right.Len() < 1e-9 {
		return dir
	}
	return mgl64.QuatRotate(mgl64.DegToRad(degrees), right.Normalize()).Rotate(dir)
}
