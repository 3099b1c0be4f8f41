package system

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/guardpost/ecs"
	"github.com/rs/zerolog"
)

const EventSoundPlayed = "sound_played"

// SoundCue is one request to play a named sound at a world position.
type SoundCue struct {
	Name string
	At   mgl64.Vec3
}

// AudioSystem collects sound cues during a tick and publishes them as
// events. There is no mixer; a front end subscribes to the events.
type AudioSystem struct {
	pending []SoundCue
	log     zerolog.Logger
}

func NewAudioSystem() *AudioSystem {
	return &AudioSystem{log: zerolog.Nop()}
}

func (a *AudioSystem) SetLogger(l zerolog.Logger) {
	a.log = l
}

func (a *AudioSystem) PlaySound(name string, at mgl64.Vec3) {
	if name == "" {
		return
	}
	a.pending = append(a.pending, SoundCue{Name: name, At: at})
}

func (a *AudioSystem) Update(w *ecs.World) {
	for _, cue := range a.pending {
		a.log.Trace().Str("sound", cue.Name).Msg("audio: play")
		w.Emit(ecs.Event{Type: EventSoundPlayed, Data: cue})
	}
	a.pending = a.pending[:0]
}
