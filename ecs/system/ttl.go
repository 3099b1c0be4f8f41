package system

import (
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
	"github.com/rs/zerolog"
)

// TTLSystem counts down TTL components and destroys entities when the TTL
// reaches zero.
type TTLSystem struct {
	log zerolog.Logger
}

func NewTTLSystem() *TTLSystem {
	return &TTLSystem{log: zerolog.Nop()}
}

func (s *TTLSystem) SetLogger(l zerolog.Logger) {
	s.log = l
}

// DestroyAfter schedules e for removal. A shorter existing countdown wins.
func (s *TTLSystem) DestroyAfter(w *ecs.World, e ecs.Entity, seconds float64) {
	if ttl, ok := ecs.Get(w, e, component.TTLComponent.Kind()); ok {
		if seconds < ttl.Seconds {
			ttl.Seconds = seconds
		}
		return
	}
	if err := ecs.Add(w, e, component.TTLComponent.Kind(), &component.TTL{Seconds: seconds}); err != nil {
		s.log.Debug().Err(err).Uint64("entity", uint64(e)).Msg("ttl: schedule failed")
	}
}

func (s *TTLSystem) Update(w *ecs.World) {
	if w == nil {
		return
	}
	dt := w.DeltaTime()

	ecs.ForEach(w, component.TTLComponent.Kind(), func(e ecs.Entity, ttl *component.TTL) {
		if ttl == nil {
			return
		}
		ttl.Seconds -= dt
		if ttl.Seconds > 0 {
			return
		}

		// TTL expired: destroy the entity
		ecs.DestroyEntity(w, e)
	})
}
