package engine

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidBoard = errors.New("invalid board configuration")

// GroupSize is the number of ownable tiles sharing a group id.
const GroupSize = 3

// BoardGenerator lays out tiles and estimates how often each is landed on.
// Tile ids come from one counter per generator, so they stay unique across
// every board a session builds.
type BoardGenerator struct {
	corners  int
	squares  int
	baseCost int
	costStep int

	samplesPerSquare int
	sampleRestart    int

	lastID TileID
}

func NewBoardGenerator(cfg GameConfig) *BoardGenerator {
	return &BoardGenerator{
		corners:          cfg.Corners,
		squares:          cfg.Squares,
		baseCost:         cfg.TileBaseCost,
		costStep:         cfg.TileCostStep,
		samplesPerSquare: cfg.SamplesPerSquare,
		sampleRestart:    cfg.SampleRestart,
	}
}

// CheckBoard reports whether corners and squares describe a board whose
// ownable tiles split into whole groups.
func CheckBoard(corners, squares int) error {
	if corners < 3 {
		return fmt.Errorf("%w: need at least 3 corners, got %d", ErrInvalidBoard, corners)
	}
	if squares <= 0 || squares%corners != 0 {
		return fmt.Errorf("%w: %d squares do not divide evenly across %d corners", ErrInvalidBoard, squares, corners)
	}
	ownable := corners * ownablePerEdge(squares/corners)
	if ownable%GroupSize != 0 {
		return fmt.Errorf("%w: %d ownable tiles do not form groups of %d", ErrInvalidBoard, ownable, GroupSize)
	}
	return nil
}

func ownablePerEdge(perEdge int) int {
	n := 0
	for off := 1; off < perEdge; off++ {
		if off%3 != 1 {
			n++
		}
	}
	return n
}

// Generate builds a fresh board and fills in landing probabilities.
func (bg *BoardGenerator) Generate(r Roller) ([]*Tile, error) {
	tiles, err := bg.GenerateLayout()
	if err != nil {
		return nil, err
	}
	bg.EstimateLandingProbability(tiles, r)
	return tiles, nil
}

// GenerateLayout places the tiles around a regular polygon of unit
// circumradius. Offset 0 on every edge is a corner, offsets 1, 4, 7, ... are
// chance tiles, and everything else is ownable, grouped in runs of three.
func (bg *BoardGenerator) GenerateLayout() ([]*Tile, error) {
	if err := CheckBoard(bg.corners, bg.squares); err != nil {
		return nil, err
	}

	perEdge := bg.squares / bg.corners
	step := 2 * math.Pi / float64(bg.corners)
	tiles := make([]*Tile, 0, bg.squares)
	ownable := 0

	for edge := 0; edge < bg.corners; edge++ {
		x0, y0 := math.Cos(step*float64(edge)), math.Sin(step*float64(edge))
		x1, y1 := math.Cos(step*float64(edge+1)), math.Sin(step*float64(edge+1))

		for off := 0; off < perEdge; off++ {
			f := float64(off) / float64(perEdge)
			bg.lastID++
			t := &Tile{
				ID:    bg.lastID,
				Index: len(tiles),
				Group: NoGroup,
				X:     x0 + (x1-x0)*f,
				Y:     y0 + (y1-y0)*f,
			}
			switch {
			case off == 0:
				t.Corner = true
			case off%3 == 1:
				t.Chance = true
			default:
				t.Group = ownable / GroupSize
				t.Cost = bg.baseCost + bg.costStep*t.Group
				ownable++
			}
			tiles = append(tiles, t)
		}
	}
	return tiles, nil
}

// EstimateLandingProbability walks a cursor around the ring squares*samples
// times, restarting at tile 0 every sampleRestart steps to mimic many short
// games, and stores each tile's share of landings.
func (bg *BoardGenerator) EstimateLandingProbability(tiles []*Tile, r Roller) {
	n := len(tiles)
	if n == 0 {
		return
	}
	runs := n * bg.samplesPerSquare
	counts := make([]int, n)
	cursor := 0
	for step := 0; step < runs; step++ {
		if step%bg.sampleRestart == 0 {
			cursor = 0
		}
		cursor = (cursor + r.Roll()) % n
		counts[cursor]++
	}
	for i, t := range tiles {
		t.Probability = float64(counts[i]) / float64(runs)
	}
}
