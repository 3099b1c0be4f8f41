package system

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/common"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
)

func (s *GuardSystem) updateState(w *ecs.World, e ecs.Entity, g *component.Guard, t *component.Transform, player target, dt float64) {
	switch d := g.Data.(type) {
	case *component.VigilantData:
		s.updateVigilant(w, e, g, t, d, dt)
	case *component.PatrollingData:
		s.updatePatrolling(w, e, g, t, d, dt)
	case *component.ChasingData:
		s.updateChasing(w, e, g, t, d, player)
	case *component.SearchingData:
		s.updateSearching(w, e, g, t, d, dt)
	case *component.FleeingData:
		s.updateFleeing(w, e, g, t, d, player, dt)
	case *component.RecoveringWeaponData:
		s.updateRecovering(w, e, g, t, d)
	case *component.KnockedDownData:
		d.Elapsed += dt
		s.navStop(w, e)
		if g.Tuning.KnockdownAutoRecover > 0 && d.Elapsed >= g.Tuning.KnockdownAutoRecover {
			s.fire(w, e, g, t, component.EventRecovered)
		}
	}
}

func (s *GuardSystem) updateVigilant(w *ecs.World, e ecs.Entity, g *component.Guard, t *component.Transform, d *component.VigilantData, dt float64) {
	if !d.AtPost {
		if flatDistance(t.Position, g.Post) > g.Tuning.PostReachDistance {
			return
		}
		d.AtPost = true
		s.navStop(w, e)
	}
	s.scan(g, t, &d.Scan, g.PostYaw, dt)
}

// scan sweeps the guard's facing through front, right, back and left of base
// in a shuffled order, dwelling at each heading before moving on.
func (s *GuardSystem) scan(g *component.Guard, t *component.Transform, c *component.ScanCycle, base, dt float64) {
	if len(c.Order) == 0 || c.Index >= len(c.Order) {
		c.Order = s.rng.Perm(4)
		c.Index = 0
		c.Dwell = 0
	}
	heading := base + float64(c.Order[c.Index])*math.Pi/2
	t.Yaw = common.RotateTowards(t.Yaw, heading, mgl64.DegToRad(g.Tuning.ScanTurnRate)*dt)
	if math.Abs(common.NormalizeAngle(t.Yaw-heading)) > 1e-3 {
		return
	}
	c.Dwell += dt
	if c.Dwell >= g.Tuning.ScanDwell {
		c.Index++
		c.Dwell = 0
	}
}

func (s *GuardSystem) updatePatrolling(w *ecs.World, e ecs.Entity, g *component.Guard, t *component.Transform, d *component.PatrollingData, dt float64) {
	n := len(g.Waypoints)
	if n == 0 {
		return
	}
	g.WaypointIndex %= n

	if d.Waiting {
		d.WaitLeft -= dt
		if d.WaitLeft > 0 {
			return
		}
		d.Waiting = false
		g.WaypointIndex = (g.WaypointIndex + 1) % n
		d.Moving = s.navigate(w, e, g.Waypoints[g.WaypointIndex])
		return
	}

	if !d.Moving {
		if d.Moving = s.navigate(w, e, g.Waypoints[g.WaypointIndex]); !d.Moving {
			// unreachable waypoint: wait here, then try the next one
			s.log.Debug().Uint64("guard", uint64(e)).Int("waypoint", g.WaypointIndex).Msg("guard: waypoint unreachable")
			d.Waiting = true
			d.WaitLeft = g.Tuning.WaypointWaitTime
		}
		return
	}

	if flatDistance(t.Position, g.Waypoints[g.WaypointIndex]) <= g.Tuning.WaypointReachDistance {
		d.Moving = false
		d.Waiting = true
		d.WaitLeft = g.Tuning.WaypointWaitTime
	}
}

func (s *GuardSystem) updateChasing(w *ecs.World, e ecs.Entity, g *component.Guard, t *component.Transform, d *component.ChasingData, player target) {
	if !s.Possession.IsArmed(w, e) {
		_, nearby := s.Possession.NearestAvailable(w, t.Position, g.Tuning.WideWeaponSearchRadius)
		if nearby {
			s.fire(w, e, g, t, component.EventSeekWeapon)
		} else {
			s.fire(w, e, g, t, component.EventFlee)
		}
		return
	}

	if !g.Detected || !player.ok {
		if d.Alerted && g.HasLastKnown && flatDistance(t.Position, g.LastKnown) > g.Tuning.LastKnownReachDistance {
			if s.Nav == nil || s.Nav.PathPending(w, e) || s.navigate(w, e, g.LastKnown) {
				return
			}
		}
		s.recordPost(g)
		s.fire(w, e, g, t, component.EventLostSight)
		return
	}
	d.Alerted = false

	dist := flatDistance(t.Position, player.pos)
	switch {
	case dist <= g.Tuning.MeleeRange:
		s.navStop(w, e)
		t.Face(player.pos)
		s.melee(w, e, g, player)
	case dist <= g.Tuning.ShootingRange:
		s.navStop(w, e)
		t.Face(player.pos)
		s.shoot(w, e, g, t, player, dist)
	default:
		s.navigate(w, e, player.pos)
	}
}

// recordPost updates where a patrolling guard returns once it stands down.
func (s *GuardSystem) recordPost(g *component.Guard) {
	if g.Patrols() {
		g.Post = g.Waypoints[g.WaypointIndex%len(g.Waypoints)]
	}
}

func (s *GuardSystem) melee(w *ecs.World, e ecs.Entity, g *component.Guard, player target) {
	if g.MeleeTimer > 0 {
		return
	}
	g.MeleeTimer = g.Tuning.MeleeCooldown

	change := s.Health.Damage(w, player.entity, g.Tuning.MeleeDamage)
	knocked := false
	if change.Applied && !change.Died && RollHit(g.Tuning.MeleeKnockdownChance, s.rng) {
		if pc, ok := ecs.Get(w, player.entity, component.PlayerComponent.Kind()); ok {
			pc.KnockedDown = g.Tuning.PlayerKnockdownDuration
			knocked = true
			w.Emit(ecs.Event{Type: EventPlayerKnocked, Entity: player.entity})
		}
	}
	w.Emit(ecs.Event{Type: EventMeleeHit, Entity: e, Data: MeleeHit{
		Attacker: e, Target: player.entity, Damage: change.Previous - change.Current, KnockedDown: knocked,
	}})
}

func (s *GuardSystem) shoot(w *ecs.World, e ecs.Entity, g *component.Guard, t *component.Transform, player target, dist float64) {
	if g.ShootTimer > 0 || s.Resolver == nil {
		return
	}
	weapon, ok := s.Possession.Held(w, e)
	if !ok {
		return
	}
	wp, ok := ecs.Get(w, weapon, component.WeaponComponent.Kind())
	if !ok {
		return
	}

	p := CalculateAccuracy(dist, g.Tuning.ShootingRange, player.speed, wp.Profile.Accuracy, g.Tuning.Accuracy)
	hit := RollHit(p, s.rng)
	eye := common.Up.Mul(g.Tuning.EyeHeight)
	req := ShotRequest{
		Shooter: e,
		Weapon:  weapon,
		Profile: wp.Profile,
		Origin:  t.Position.Add(eye),
		Target:  player.pos.Add(eye),
	}
	if _, fired := s.Resolver.TryShoot(w, req, !hit); fired {
		g.ShootTimer = math.Max(g.Tuning.ShootingCooldown, wp.Profile.FireRate)
	}
}

func (s *GuardSystem) updateSearching(w *ecs.World, e ecs.Entity, g *component.Guard, t *component.Transform, d *component.SearchingData, dt float64) {
	d.Elapsed += dt
	if g.Detected {
		s.react(w, e, g, t)
		return
	}
	if d.Elapsed >= g.Tuning.SearchDuration {
		s.fire(w, e, g, t, component.EventSearchExpired)
		return
	}

	switch d.Phase {
	case component.SearchApproach:
		reached := !g.HasLastKnown || flatDistance(t.Position, g.LastKnown) <= g.Tuning.LastKnownReachDistance
		if !reached && !d.Approaching {
			d.Approaching = s.navigate(w, e, g.LastKnown)
			reached = !d.Approaching
		}
		if reached {
			s.navStop(w, e)
			d.Phase = component.SearchScan
			d.PhaseTime = 0
			d.ScanBase = t.Yaw
			d.Scan = component.ScanCycle{}
		}
	case component.SearchScan:
		d.PhaseTime += dt
		s.scan(g, t, &d.Scan, d.ScanBase, dt)
		s.creep(w, e, g, t, dt)
		if d.PhaseTime >= g.Tuning.SearchScanDuration {
			d.Phase = component.SearchWander
			d.PhaseTime = 0
			d.Origin = t.Position
			d.HasWander = false
		}
	case component.SearchWander:
		d.PhaseTime += dt
		if !d.HasWander || flatDistance(t.Position, d.Wander) <= g.Tuning.WaypointReachDistance {
			s.pickWanderPoint(w, e, g, d)
		}
	}
}

// creep edges the guard forward while it scans, unless something blocks it.
func (s *GuardSystem) creep(w *ecs.World, e ecs.Entity, g *component.Guard, t *component.Transform, dt float64) {
	if g.Tuning.CreepSpeed <= 0 {
		return
	}
	step := t.Forward().Mul(g.Tuning.CreepSpeed * dt)
	if s.Spatial != nil {
		ahead := t.Position.Add(t.Forward().Mul(g.Tuning.CreepSpeed*dt + g.Tuning.Radius))
		if _, blocked := s.Spatial.Raycast(t.Position, ahead, common.LayerObstacle|common.LayerDefault, e); blocked {
			return
		}
	}
	Teleport(w, e, t.Position.Add(step))
}

func (s *GuardSystem) pickWanderPoint(w *ecs.World, e ecs.Entity, g *component.Guard, d *component.SearchingData) {
	d.HasWander = false
	if s.Nav == nil {
		return
	}
	r := g.Tuning.RandomSearchRange
	for i := 0; i < g.Tuning.RandomSearchAttempts; i++ {
		angle := s.rng.Float64() * 2 * math.Pi
		dist := math.Sqrt(s.rng.Float64()) * r
		candidate := d.Origin.Add(mgl64.Vec3{math.Cos(angle) * dist, 0, math.Sin(angle) * dist})
		p, ok := s.Nav.SamplePosition(candidate, r)
		if !ok {
			continue
		}
		if s.navigate(w, e, p) {
			d.Wander = p
			d.HasWander = true
			return
		}
	}
	s.log.Debug().Uint64("guard", uint64(e)).Msg("guard: no wander point found")
}

func (s *GuardSystem) updateFleeing(w *ecs.World, e ecs.Entity, g *component.Guard, t *component.Transform, d *component.FleeingData, player target, dt float64) {
	if !player.ok || flatDistance(t.Position, player.pos) > 2*g.Tuning.DetectionRange {
		s.fire(w, e, g, t, component.EventSafe)
		return
	}
	if s.Possession.IsArmed(w, e) && s.healthy(w, e, g) {
		if g.Detected {
			s.react(w, e, g, t)
		} else {
			s.fire(w, e, g, t, component.EventSafe)
		}
		return
	}

	d.ReplanIn -= dt
	if d.ReplanIn > 0 {
		return
	}
	d.ReplanIn = g.Tuning.FleeReplanInterval
	away := common.SafeNormalize(common.Flatten(t.Position.Sub(player.pos)), t.Forward().Mul(-1))
	retreat := t.Position.Add(away.Mul(g.Tuning.FleeDistance))
	if s.Nav == nil {
		return
	}
	p, ok := s.Nav.SamplePosition(retreat, g.Tuning.FleeDistance)
	if !ok || !s.navigate(w, e, p) {
		s.log.Debug().Uint64("guard", uint64(e)).Msg("guard: no retreat point")
		return
	}
	d.Target = p
	d.HasPoint = true
}

func (s *GuardSystem) updateRecovering(w *ecs.World, e ecs.Entity, g *component.Guard, t *component.Transform, d *component.RecoveringWeaponData) {
	if s.Possession.IsArmed(w, e) {
		s.finishRecovery(w, e, g, t)
		return
	}

	weapon := ecs.Entity(d.Target)
	if weapon.Valid() {
		wp, ok := ecs.Get(w, weapon, component.WeaponComponent.Kind())
		if !ok || (wp.Owner != 0 && ecs.Entity(wp.Owner) != s.Player) {
			weapon = 0
		}
	}
	if !weapon.Valid() {
		found, ok := s.Possession.NearestAvailable(w, t.Position, g.Tuning.WeaponSearchRadius)
		if !ok {
			found, ok = s.Possession.NearestAvailable(w, t.Position, g.Tuning.WideWeaponSearchRadius)
		}
		if !ok {
			if !s.healthy(w, e, g) {
				s.fire(w, e, g, t, component.EventFlee)
			} else {
				s.fire(w, e, g, t, component.EventWeaponUnavailable)
			}
			return
		}
		weapon = found
	}
	d.Target = uint64(weapon)

	wpos, ok := position(w, weapon)
	if !ok {
		d.Target = 0
		return
	}
	if flatDistance(t.Position, wpos) > g.Tuning.PickupDistance {
		s.navigate(w, e, wpos)
		return
	}

	s.navStop(w, e)
	err := s.take(w, e, weapon)
	switch {
	case err == nil:
		s.finishRecovery(w, e, g, t)
	case errors.Is(err, ErrPickupCooldown), errors.Is(err, ErrWeaponMoving):
		// try again next tick
	default:
		s.log.Debug().Err(err).Uint64("guard", uint64(e)).Msg("guard: pickup failed")
		d.Target = 0
	}
}

// take picks weapon up, wrenching it from the player if they hold it.
func (s *GuardSystem) take(w *ecs.World, e, weapon ecs.Entity) error {
	wp, ok := ecs.Get(w, weapon, component.WeaponComponent.Kind())
	if !ok {
		return ErrNoWeapon
	}
	if owner := ecs.Entity(wp.Owner); owner.Valid() && owner == s.Player {
		return s.Possession.Equip(w, e, weapon)
	}
	return s.Possession.Pickup(w, e, weapon)
}

func (s *GuardSystem) finishRecovery(w *ecs.World, e ecs.Entity, g *component.Guard, t *component.Transform) {
	if g.Detected {
		s.react(w, e, g, t)
		return
	}
	s.fire(w, e, g, t, component.EventWeaponRecovered)
}
