package component

// Faction tags an actor as the player or a guard.
type Faction uint8

const (
	FactionNone Faction = iota
	FactionPlayer
	FactionGuard
)

func (f Faction) String() string {
	switch f {
	case FactionPlayer:
		return "player"
	case FactionGuard:
		return "guard"
	}
	return "none"
}

var FactionComponent = NewComponent[Faction]()
