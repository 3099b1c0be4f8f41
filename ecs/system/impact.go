package system

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/ecs"
	"github.com/milk9111/guardpost/ecs/component"
	"github.com/rs/zerolog"
	"golang.org/x/image/colornames"
)

const (
	EventImpact = "impact"

	impactLifetime = 1.0
)

var surfaceTints = map[component.Surface]color.RGBA{
	component.SurfaceDefault: colornames.Lightgray,
	component.SurfaceFlesh:   colornames.Crimson,
	component.SurfaceStone:   colornames.Slategray,
	component.SurfaceMetal:   colornames.Gold,
}

// SurfaceTint is the marker colour for impacts on s.
func SurfaceTint(s component.Surface) color.RGBA {
	if c, ok := surfaceTints[s]; ok {
		return c
	}
	return colornames.White
}

// ImpactSystem spawns short-lived impact markers and forwards sounds to the
// audio system.
type ImpactSystem struct {
	Audio    *AudioSystem
	Lifetime float64

	ttl *TTLSystem
	log zerolog.Logger
}

func NewImpactSystem(audio *AudioSystem, ttl *TTLSystem) *ImpactSystem {
	return &ImpactSystem{Audio: audio, Lifetime: impactLifetime, ttl: ttl, log: zerolog.Nop()}
}

func (s *ImpactSystem) SetLogger(l zerolog.Logger) {
	s.log = l
}

func (s *ImpactSystem) SpawnImpact(w *ecs.World, point, normal mgl64.Vec3, surface component.Surface) {
	e := ecs.CreateEntity(w)
	impact := &component.Impact{Point: point, Normal: normal, Surface: surface, Tint: SurfaceTint(surface)}
	if err := ecs.Add(w, e, component.ImpactComponent.Kind(), impact); err != nil {
		s.log.Warn().Err(err).Msg("impact: spawn failed")
		return
	}
	if s.ttl != nil {
		s.ttl.DestroyAfter(w, e, s.Lifetime)
	} else {
		if err := ecs.Add(w, e, component.TTLComponent.Kind(), &component.TTL{Seconds: s.Lifetime}); err != nil {
			s.log.Debug().Err(err).Uint64("entity", uint64(e)).Msg("impact: ttl failed")
		}
	}
	w.Emit(ecs.Event{Type: EventImpact, Entity: e, Data: *impact})
}

func (s *ImpactSystem) PlaySound(name string, at mgl64.Vec3) {
	if s.Audio != nil {
		s.Audio.PlaySound(name, at)
	}
}
