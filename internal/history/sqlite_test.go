package history

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monai/internal/engine"
)

func TestRecordAndRecent(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "sub", "games.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	s.Record("main", engine.Outcome{
		Game:   1,
		Reason: engine.EndBankruptcy,
		Winner: "ann",
		Turns:  37,
		Standings: []engine.Standing{
			{Identity: "ann", Player: 1, Cash: 1400, NetWorth: 1700, Tiles: 3, Alive: true},
			{Identity: "bob"},
		},
	})
	s.Record("main", engine.Outcome{Game: 2, Reason: engine.EndStalemate, Turns: 100})

	games, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, games, 2)

	assert.Equal(t, 2, games[0].Number)
	assert.Equal(t, engine.EndStalemate, games[0].Reason)
	assert.Empty(t, games[0].Winner)

	first := games[1]
	assert.Equal(t, "main", first.Room)
	assert.Equal(t, engine.Identity("ann"), first.Winner)
	assert.Equal(t, 37, first.Turns)
	require.Len(t, first.Standings, 2)
	assert.Equal(t, 1700, first.Standings[0].NetWorth)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.FinishedAt.IsZero())

	limited, err := s.Recent(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestReopenKeepsGames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.db")
	s, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	s.Record("r1", engine.Outcome{Game: 1, Reason: engine.EndForfeit, Winner: "cat"})
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	s, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()
	games, err := s.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "r1", games[0].Room)
}

func TestNilStore(t *testing.T) {
	var s *Store
	s.Record("main", engine.Outcome{Game: 1})
	games, err := s.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, games)
	require.NoError(t, s.Close())
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open("", zerolog.Nop())
	require.Error(t, err)
}

func TestRecordRacingClose(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "games.db"), zerolog.Nop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(room int) {
			defer wg.Done()
			for g := 0; g < 200; g++ {
				s.Record("room", engine.Outcome{Game: room*1000 + g, Reason: engine.EndStalemate})
			}
		}(i)
	}
	require.NoError(t, s.Close())
	wg.Wait()

	assert.NotPanics(t, func() { s.Record("late", engine.Outcome{Game: 1}) })
	_, err = s.Recent(context.Background(), 1)
	require.ErrorIs(t, err, ErrClosed)
}
