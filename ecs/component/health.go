package component

// Regeneration restores health over time once the actor has gone Delay
// seconds without taking damage.
type Regeneration struct {
	Enabled bool    `yaml:"enabled"`
	Delay   float64 `yaml:"delay"`
	Rate    float64 `yaml:"rate"`
}

// Health is a reusable health record for any actor that can take damage.
// Current always stays within [0, Max].
type Health struct {
	Current float64
	Max     float64
	Dead    bool

	// InvulnerabilityDuration is the window after a hit during which further
	// damage is ignored. Zero disables it.
	InvulnerabilityDuration float64
	InvulnerableTimer       float64

	Regen      Regeneration
	RegenTimer float64
}

// NewHealth creates a Health record with current initialized to max.
func NewHealth(max float64) *Health {
	if max <= 0 {
		max = 1
	}
	return &Health{Current: max, Max: max}
}

func (h *Health) IsAlive() bool {
	return h != nil && !h.Dead && h.Current > 0
}

func (h *Health) Invulnerable() bool {
	return h != nil && h.InvulnerableTimer > 0
}

// Percentage returns Current/Max in [0,1].
func (h *Health) Percentage() float64 {
	if h == nil || h.Max <= 0 {
		return 0
	}
	return h.Current / h.Max
}

var HealthComponent = NewComponent[Health]()
