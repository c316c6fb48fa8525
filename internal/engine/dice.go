package engine

import "golang.org/x/exp/rand"

const (
	MinRoll = 2
	MaxRoll = 12
)

// Roller produces movement values in [MinRoll, MaxRoll].
type Roller interface {
	Roll() int
}

// Dice is a seeded uniform roller.
type Dice struct {
	rng *rand.Rand
}

func NewDice(seed uint64) *Dice {
	return &Dice{rng: rand.New(rand.NewSource(seed))}
}

func (d *Dice) Roll() int {
	return MinRoll + d.rng.Intn(MaxRoll-MinRoll+1)
}

// FixedRolls replays a script of rolls, cycling when exhausted. Useful for
// deterministic games.
type FixedRolls struct {
	rolls []int
	next  int
}

func NewFixedRolls(rolls ...int) *FixedRolls {
	return &FixedRolls{rolls: rolls}
}

func (f *FixedRolls) Roll() int {
	if len(f.rolls) == 0 {
		return MinRoll
	}
	r := f.rolls[f.next%len(f.rolls)]
	f.next++
	return r
}
