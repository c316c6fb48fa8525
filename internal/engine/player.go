package engine

// PlayerID identifies a seated player. IDs are minted per game and never reused.
type PlayerID int

// Nobody is the zero PlayerID, used for "no owner" and "no previous actor".
const Nobody PlayerID = 0

// Identity is the external name bound to a connection. It survives resets,
// while PlayerIDs are minted fresh for every game.
type Identity string

// Player holds one player's state.
type Player struct {
	ID       PlayerID `json:"id"`
	Identity Identity `json:"identity"`
	Cash     int      `json:"cash"`
	Position int      `json:"position"` // ring index of the current tile
	Rank     int      `json:"rank"`     // turn order at game start
	Alive    bool     `json:"alive"`
}

func NewPlayer(id PlayerID, identity Identity, rank, cash int) *Player {
	return &Player{
		ID:       id,
		Identity: identity,
		Cash:     cash,
		Rank:     rank,
		Alive:    true,
	}
}

// InDebt reports whether the player's balance is negative.
func (p *Player) InDebt() bool {
	return p.Cash < 0
}
