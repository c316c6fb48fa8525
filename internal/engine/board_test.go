package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monai/internal/engine"
)

func boardConfig(corners, squares int) engine.GameConfig {
	cfg := engine.DefaultConfig()
	cfg.Corners = corners
	cfg.Squares = squares
	return cfg
}

func TestGenerateLayout(t *testing.T) {
	tests := []struct {
		corners, squares int
		ownable          int
	}{
		{4, 40, 24},
		{3, 18, 9},
		{6, 36, 18},
		{5, 50, 30},
	}
	for _, tt := range tests {
		bg := engine.NewBoardGenerator(boardConfig(tt.corners, tt.squares))
		tiles, err := bg.GenerateLayout()
		require.NoError(t, err, "%d/%d", tt.corners, tt.squares)
		require.Len(t, tiles, tt.squares)

		seen := map[engine.TileID]bool{}
		corners, ownable := 0, 0
		groups := map[int]int{}
		for i, tile := range tiles {
			assert.Equal(t, i, tile.Index)
			assert.False(t, seen[tile.ID], "duplicate id %d", tile.ID)
			seen[tile.ID] = true
			assert.Equal(t, engine.TierNone, tile.Tier)
			if tile.Corner {
				corners++
			}
			if tile.Ownable() {
				ownable++
				groups[tile.Group]++
				assert.Equal(t, 60+20*tile.Group, tile.Cost)
			} else {
				assert.Equal(t, engine.NoGroup, tile.Group)
			}
		}
		assert.Equal(t, tt.corners, corners)
		assert.Equal(t, tt.ownable, ownable)
		for g, n := range groups {
			assert.Equal(t, engine.GroupSize, n, "group %d", g)
		}
		assert.True(t, tiles[0].Corner)
		assert.InDelta(t, 1.0, tiles[0].X, 1e-9)
	}
}

func TestCheckBoardRejects(t *testing.T) {
	tests := []struct {
		name             string
		corners, squares int
	}{
		{"too few corners", 2, 40},
		{"uneven edges", 4, 41},
		{"partial group", 4, 20},
		{"no squares", 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, engine.CheckBoard(tt.corners, tt.squares), engine.ErrInvalidBoard)
		})
	}
}

func TestTileIDsSurviveRegeneration(t *testing.T) {
	bg := engine.NewBoardGenerator(engine.DefaultConfig())
	first, err := bg.GenerateLayout()
	require.NoError(t, err)
	second, err := bg.GenerateLayout()
	require.NoError(t, err)
	assert.Equal(t, first[len(first)-1].ID+1, second[0].ID)
}

func TestLandingProbabilitySums(t *testing.T) {
	bg := engine.NewBoardGenerator(engine.DefaultConfig())
	tiles, err := bg.Generate(engine.NewDice(42))
	require.NoError(t, err)

	sum := 0.0
	for _, tile := range tiles {
		assert.GreaterOrEqual(t, tile.Probability, 0.0)
		sum += tile.Probability
	}
	assert.GreaterOrEqual(t, sum, 0.95)
	assert.LessOrEqual(t, sum, 1.05)
}

func TestLandingProbabilityRestarts(t *testing.T) {
	bg := engine.NewBoardGenerator(engine.DefaultConfig())
	tiles, err := bg.Generate(engine.NewFixedRolls(2))
	require.NoError(t, err)

	// Each 30-step run visits 2, 4, ... 38, 0, 2, ... 20 and then restarts.
	assert.InDelta(t, 2.0/30, tiles[2].Probability, 1e-9)
	assert.InDelta(t, 1.0/30, tiles[22].Probability, 1e-9)
	assert.InDelta(t, 1.0/30, tiles[0].Probability, 1e-9)
	for i := 1; i < len(tiles); i += 2 {
		assert.Zero(t, tiles[i].Probability, "tile %d", i)
	}
}

func TestSaleRefund(t *testing.T) {
	tests := []struct{ cost, want int }{
		{60, 48},
		{80, 64},
		{1, 1},
		{7, 6},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, engine.SaleRefund(tt.cost), "cost %d", tt.cost)
	}
}
