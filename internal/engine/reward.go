package engine

import (
	"math"
	"sort"
)

// ValuationMultiplier weights an owned tile's cost in net worth, before the
// tile's landing probability is added on.
const ValuationMultiplier = 1.5

// MinRewardDenominator keeps the reward finite when opponents are broke.
const MinRewardDenominator = 1

// TileValue is a tile's contribution to its owner's net worth.
func TileValue(t *Tile) int {
	return int(math.Ceil((ValuationMultiplier + t.Probability) * float64(t.Cost)))
}

// NetWorth is cash plus the probability-weighted value of owned tiles.
func (s *Session) NetWorth(p *Player) int {
	worth := p.Cash
	for _, t := range s.OwnedBy(p.ID) {
		worth += TileValue(t)
	}
	return worth
}

// Reward is the player's net worth relative to all other alive players.
func (s *Session) Reward(p *Player) float64 {
	others := 0
	for _, o := range s.Players {
		if o.ID != p.ID {
			others += s.NetWorth(o)
		}
	}
	if others < MinRewardDenominator {
		others = MinRewardDenominator
	}
	return float64(s.NetWorth(p)) / float64(others)
}

// Standing is one line of a finished game's results.
type Standing struct {
	Identity Identity `json:"identity"`
	Player   PlayerID `json:"player"`
	Cash     int      `json:"cash"`
	NetWorth int      `json:"net_worth"`
	Tiles    int      `json:"tiles"`
	Alive    bool     `json:"alive"`
}

// Outcome summarises a finished game.
type Outcome struct {
	Game      int        `json:"game"`
	Reason    EndReason  `json:"reason"`
	Winner    Identity   `json:"winner,omitempty"`
	Turns     int        `json:"turns"`
	Standings []Standing `json:"standings"`
}

// standings ranks alive players by net worth, then bankrupt ones with the
// last to go out first.
func (s *Session) standings(bankrupt []Identity) []Standing {
	out := make([]Standing, 0, len(s.Players)+len(bankrupt))
	for _, p := range s.Players {
		out = append(out, Standing{
			Identity: p.Identity,
			Player:   p.ID,
			Cash:     p.Cash,
			NetWorth: s.NetWorth(p),
			Tiles:    len(s.OwnedBy(p.ID)),
			Alive:    true,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NetWorth > out[j].NetWorth
	})
	for i := len(bankrupt) - 1; i >= 0; i-- {
		out = append(out, Standing{Identity: bankrupt[i]})
	}
	return out
}
