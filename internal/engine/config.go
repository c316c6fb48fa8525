package engine

import "fmt"

// GameConfig holds configuration for creating a new session.
type GameConfig struct {
	Corners int // polygon vertices; every edge starts with a corner tile
	Squares int // tiles on the ring, a multiple of Corners

	StartingCash   int
	PassStartBonus int // granted when a move wraps past tile 0
	TileBaseCost   int // cost of group 0
	TileCostStep   int // added per group id

	StalemateTurns int // turn ceiling that ends a game without a winner
	MinPlayers     int

	BankruptReward float64
	VictoryReward  float64

	SamplesPerSquare int // Monte Carlo steps per tile
	SampleRestart    int // the walk restarts at tile 0 this often
}

func DefaultConfig() GameConfig {
	return GameConfig{
		Corners:          4,
		Squares:          40,
		StartingCash:     1000,
		PassStartBonus:   200,
		TileBaseCost:     60,
		TileCostStep:     20,
		StalemateTurns:   100,
		MinPlayers:       2,
		BankruptReward:   -1,
		VictoryReward:    10,
		SamplesPerSquare: 300,
		SampleRestart:    30,
	}
}

// Validate checks values the engine cannot run without. Board shape is
// checked separately by the generator.
func (c GameConfig) Validate() error {
	switch {
	case c.StalemateTurns <= 0:
		return fmt.Errorf("stalemate turns must be positive, got %d", c.StalemateTurns)
	case c.MinPlayers < 2:
		return fmt.Errorf("min players must be at least 2, got %d", c.MinPlayers)
	case c.SamplesPerSquare <= 0:
		return fmt.Errorf("samples per square must be positive, got %d", c.SamplesPerSquare)
	case c.SampleRestart <= 0:
		return fmt.Errorf("sample restart must be positive, got %d", c.SampleRestart)
	case c.TileBaseCost < 0 || c.TileCostStep < 0:
		return fmt.Errorf("tile costs must not be negative")
	}
	return nil
}
