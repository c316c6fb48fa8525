package engine

import "fmt"

// TileID identifies a tile for the lifetime of the session.
type TileID int

// NoGroup marks tiles that belong to no ownable group.
const NoGroup = -1

// Tier is the development level of an ownable tile.
type Tier int

const (
	TierNone  Tier = iota // unowned
	TierOwned             // bought, no buildings
	TierHouse
	TierHotel
)

var tierNames = map[Tier]string{
	TierNone:  "None",
	TierOwned: "Owned",
	TierHouse: "House",
	TierHotel: "Hotel",
}

func (t Tier) String() string {
	if s, ok := tierNames[t]; ok {
		return s
	}
	return "Unknown"
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	for tier, name := range tierNames {
		if name == string(b) {
			*t = tier
			return nil
		}
	}
	return fmt.Errorf("unknown tier %q", b)
}

// Tile is one space on the board ring.
type Tile struct {
	ID          TileID   `json:"id"`
	Index       int      `json:"index"`
	Group       int      `json:"group"`
	Corner      bool     `json:"corner,omitempty"`
	Chance      bool     `json:"chance,omitempty"`
	Probability float64  `json:"probability"`
	Tier        Tier     `json:"tier"`
	Owner       PlayerID `json:"owner,omitempty"`
	Cost        int      `json:"cost"`

	// Position on the unit polygon, for clients that draw the board.
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Ownable reports whether the tile can ever be bought.
func (t *Tile) Ownable() bool {
	return !t.Corner && !t.Chance
}

// Owned reports whether some player holds the tile.
func (t *Tile) Owned() bool {
	return t.Owner != Nobody
}

func (t *Tile) release() {
	t.Tier = TierNone
	t.Owner = Nobody
}
