package component

import "github.com/go-gl/mathgl/mgl64"

// GuardTuning carries every guard behaviour constant. Distances are in world
// units, times in seconds and angles in degrees.
type GuardTuning struct {
	DetectionRange float64 `yaml:"detection_range"`
	DetectionAngle float64 `yaml:"detection_angle"`
	EyeHeight      float64 `yaml:"eye_height"`
	Radius         float64 `yaml:"radius"`

	MeleeRange              float64 `yaml:"melee_range"`
	MeleeDamage             float64 `yaml:"melee_damage"`
	MeleeCooldown           float64 `yaml:"melee_cooldown"`
	MeleeKnockdownChance    float64 `yaml:"melee_knockdown_chance"`
	PlayerKnockdownDuration float64 `yaml:"player_knockdown_duration"`
	ShootingRange           float64 `yaml:"shooting_range"`
	ShootingCooldown        float64 `yaml:"shooting_cooldown"`

	MaxHealth          float64 `yaml:"max_health"`
	LowHealthThreshold float64 `yaml:"low_health_threshold"`
	DropWeaponChance   float64 `yaml:"drop_weapon_chance"`
	DropRollCooldown   float64 `yaml:"drop_roll_cooldown"`

	AlertRange float64 `yaml:"alert_range"`

	PatrolSpeed float64 `yaml:"patrol_speed"`
	ChaseSpeed  float64 `yaml:"chase_speed"`
	FleeSpeed   float64 `yaml:"flee_speed"`
	CreepSpeed  float64 `yaml:"creep_speed"`

	ScanTurnRate           float64 `yaml:"scan_turn_rate"`
	ScanDwell              float64 `yaml:"scan_dwell"`
	SearchScanDuration     float64 `yaml:"search_scan_duration"`
	RandomSearchRange      float64 `yaml:"random_search_range"`
	RandomSearchAttempts   int     `yaml:"random_search_attempts"`
	SearchDuration         float64 `yaml:"search_duration"`
	LastKnownReachDistance float64 `yaml:"last_known_reach_distance"`
	PostReachDistance      float64 `yaml:"post_reach_distance"`

	WaypointWaitTime      float64 `yaml:"waypoint_wait_time"`
	WaypointReachDistance float64 `yaml:"waypoint_reach_distance"`

	FleeDistance       float64 `yaml:"flee_distance"`
	FleeReplanInterval float64 `yaml:"flee_replan_interval"`

	PickupDistance         float64 `yaml:"pickup_distance"`
	WeaponSearchRadius     float64 `yaml:"weapon_search_radius"`
	WideWeaponSearchRadius float64 `yaml:"wide_weapon_search_radius"`

	StunMin           float64 `yaml:"stun_min"`
	StunMax           float64 `yaml:"stun_max"`
	KnockbackDistance float64 `yaml:"knockback_distance"`
	// KnockdownAutoRecover stands a knocked down guard back up after this
	// many seconds. Zero leaves recovery to an external trigger.
	KnockdownAutoRecover float64 `yaml:"knockdown_auto_recover"`
	RagdollDelay         float64 `yaml:"ragdoll_delay"`

	Accuracy AccuracyModel `yaml:"accuracy"`
}

// AccuracyModel shapes a guard's hit probability.
type AccuracyModel struct {
	CloseAccuracy      float64 `yaml:"close_accuracy"`
	FloorAccuracy      float64 `yaml:"floor_accuracy"`
	PenaltyPerSpeed    float64 `yaml:"penalty_per_speed"`
	MaxMovementPenalty float64 `yaml:"max_movement_penalty"`
}

func DefaultAccuracyModel() AccuracyModel {
	return AccuracyModel{
		CloseAccuracy:      0.9,
		FloorAccuracy:      0.2,
		PenaltyPerSpeed:    0.05,
		MaxMovementPenalty: 0.4,
	}
}

func DefaultGuardTuning() GuardTuning {
	return GuardTuning{
		DetectionRange: 10,
		DetectionAngle: 90,
		EyeHeight:      1,
		Radius:         0.5,

		MeleeRange:              2,
		MeleeDamage:             15,
		MeleeCooldown:           1.5,
		MeleeKnockdownChance:    0.5,
		PlayerKnockdownDuration: 1.5,
		ShootingRange:           15,
		ShootingCooldown:        1,

		MaxHealth:          100,
		LowHealthThreshold: 30,
		DropWeaponChance:   0.3,
		DropRollCooldown:   0.5,

		AlertRange: 20,

		PatrolSpeed: 3,
		ChaseSpeed:  6,
		FleeSpeed:   7,
		CreepSpeed:  1,

		ScanTurnRate:           90,
		ScanDwell:              0.75,
		SearchScanDuration:     3,
		RandomSearchRange:      10,
		RandomSearchAttempts:   5,
		SearchDuration:         10,
		LastKnownReachDistance: 2,
		PostReachDistance:      0.5,

		WaypointWaitTime:      2,
		WaypointReachDistance: 1,

		FleeDistance:       10,
		FleeReplanInterval: 1,

		PickupDistance:         1,
		WeaponSearchRadius:     8,
		WideWeaponSearchRadius: 25,

		StunMin:           0.4,
		StunMax:           0.9,
		KnockbackDistance: 0.5,
		RagdollDelay:      5,

		Accuracy: DefaultAccuracyModel(),
	}
}

// GuardState is a guard behaviour state.
type GuardState string

const (
	GuardVigilant         GuardState = "vigilant"
	GuardPatrolling       GuardState = "patrolling"
	GuardChasing          GuardState = "chasing"
	GuardSearching        GuardState = "searching"
	GuardFleeing          GuardState = "fleeing"
	GuardRecoveringWeapon GuardState = "recovering_weapon"
	GuardKnockedDown      GuardState = "knocked_down"
	GuardDead             GuardState = "dead"
)

// GuardEvent drives a transition in the guard FSM.
type GuardEvent string

const (
	EventEngage            GuardEvent = "engage"
	EventAlerted           GuardEvent = "alerted"
	EventSeekWeapon        GuardEvent = "seek_weapon"
	EventFlee              GuardEvent = "flee"
	EventLostSight         GuardEvent = "lost_sight"
	EventSearchExpired     GuardEvent = "search_expired"
	EventPlayerDied        GuardEvent = "player_died"
	EventWeaponRecovered   GuardEvent = "weapon_recovered"
	EventWeaponUnavailable GuardEvent = "weapon_unavailable"
	EventSafe              GuardEvent = "safe"
	EventKnockedDown       GuardEvent = "knocked_down"
	EventRecovered         GuardEvent = "recovered"
	EventDied              GuardEvent = "died"
)

// ScanCycle is the look-around of a stationary or searching guard: it faces
// each of a shuffled sequence of directions for a dwell period.
type ScanCycle struct {
	Order []int
	Index int
	Dwell float64
}

// GuardStateData is the per-state record of a guard. A fresh record is built
// whenever a state is entered.
type GuardStateData interface {
	State() GuardState
}

type VigilantData struct {
	AtPost bool
	Scan   ScanCycle
}

type PatrollingData struct {
	Waiting  bool
	WaitLeft float64
	Moving   bool
}

type ChasingData struct {
	// Alerted is set when a peer's alert, not the guard's own sight, started
	// the chase. The guard then heads for the alert position before searching.
	Alerted bool
}

type SearchPhase uint8

const (
	SearchApproach SearchPhase = iota
	SearchScan
	SearchWander
)

type SearchingData struct {
	Phase       SearchPhase
	Elapsed     float64
	PhaseTime   float64
	Approaching bool

	Scan     ScanCycle
	ScanBase float64

	Origin    mgl64.Vec3
	Wander    mgl64.Vec3
	HasWander bool
}

type FleeingData struct {
	ReplanIn float64
	Target   mgl64.Vec3
	HasPoint bool
}

type RecoveringWeaponData struct {
	Target uint64
}

type KnockedDownData struct {
	Elapsed float64
}

type DeadData struct {
	RemovalScheduled bool
}

func (VigilantData) State() GuardState         { return GuardVigilant }
func (PatrollingData) State() GuardState       { return GuardPatrolling }
func (ChasingData) State() GuardState          { return GuardChasing }
func (SearchingData) State() GuardState        { return GuardSearching }
func (FleeingData) State() GuardState          { return GuardFleeing }
func (RecoveringWeaponData) State() GuardState { return GuardRecoveringWeapon }
func (KnockedDownData) State() GuardState      { return GuardKnockedDown }
func (DeadData) State() GuardState             { return GuardDead }

// Guard is the runtime record of a guard agent.
type Guard struct {
	Tuning GuardTuning

	State GuardState
	Data  GuardStateData

	// Post is where the guard returns after abandoning pursuit. PostYaw is the
	// spawn orientation the scan directions are relative to.
	Post    mgl64.Vec3
	PostYaw float64

	Waypoints       []mgl64.Vec3
	WaypointIndex   int
	StartPatrolling bool

	Detected     bool
	LastKnown    mgl64.Vec3
	HasLastKnown bool

	StunTimer     float64
	DropRollTimer float64
	ShootTimer    float64
	MeleeTimer    float64
}

// Patrols reports whether the guard has a patrol route to return to.
func (g *Guard) Patrols() bool {
	return g != nil && g.StartPatrolling && len(g.Waypoints) > 0
}

// HomeState is the state a guard returns to when it stands down.
func (g *Guard) HomeState() GuardState {
	if g.Patrols() {
		return GuardPatrolling
	}
	return GuardVigilant
}

// Idle reports whether the guard is not engaged with the player.
func (g *Guard) Idle() bool {
	return g.State == GuardVigilant || g.State == GuardPatrolling
}

var GuardComponent = NewComponent[Guard]()
