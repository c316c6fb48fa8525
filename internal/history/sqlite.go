package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"monai/internal/engine"
)

// ErrClosed is returned by Recent after Close.
var ErrClosed = errors.New("history closed")

// Game is one finished game as stored in the log.
type Game struct {
	ID         string            `json:"id"`
	Room       string            `json:"room"`
	Number     int               `json:"game"`
	Reason     engine.EndReason  `json:"reason"`
	Winner     engine.Identity   `json:"winner,omitempty"`
	Turns      int               `json:"turns"`
	Standings  []engine.Standing `json:"standings"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Store writes finished games to SQLite from a single writer goroutine so
// that hubs never block on disk. A nil *Store is valid and records nothing.
type Store struct {
	db  *sql.DB
	log zerolog.Logger

	ch chan req
	wg sync.WaitGroup

	// mu guards sends on ch against Close.
	mu     sync.RWMutex
	closed bool
}

type reqKind int

const (
	reqGame reqKind = iota + 1
	reqBarrier
)

type req struct {
	kind reqKind
	game Game
	done chan struct{}
}

func Open(path string, log zerolog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db:  db,
		log: log.With().Str("component", "history").Logger(),
		ch:  make(chan req, 1024),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS games (
			id TEXT PRIMARY KEY,
			room TEXT NOT NULL,
			game INTEGER NOT NULL,
			reason TEXT NOT NULL,
			winner TEXT,
			turns INTEGER NOT NULL,
			standings_json TEXT NOT NULL,
			finished_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_games_finished ON games(finished_at);`,
		`CREATE INDEX IF NOT EXISTS idx_games_room ON games(room, game);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	s.wg.Wait()
	return s.db.Close()
}

// Record queues a finished game. It drops the row when the queue is full.
func (s *Store) Record(room string, o engine.Outcome) {
	if s == nil {
		return
	}
	g := Game{
		ID:         uuid.NewString(),
		Room:       room,
		Number:     o.Game,
		Reason:     o.Reason,
		Winner:     o.Winner,
		Turns:      o.Turns,
		Standings:  o.Standings,
		FinishedAt: time.Now().UTC(),
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- req{kind: reqGame, game: g}:
	default:
		s.log.Warn().Str("room", room).Int("game", o.Game).Msg("history queue full, dropping game")
	}
}

// Recent returns up to limit games, newest first, after every game queued
// so far has been written.
func (s *Store) Recent(ctx context.Context, limit int) ([]Game, error) {
	if s == nil {
		return nil, nil
	}
	done := make(chan struct{})
	if err := s.send(ctx, req{kind: reqBarrier, done: done}); err != nil {
		return nil, err
	}
	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room, game, reason, winner, turns, standings_json, finished_at
		 FROM games ORDER BY finished_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Game
	for rows.Next() {
		var (
			g         Game
			reason    string
			winner    sql.NullString
			standings string
			finished  string
		)
		if err := rows.Scan(&g.ID, &g.Room, &g.Number, &reason, &winner, &g.Turns, &standings, &finished); err != nil {
			return nil, err
		}
		g.Reason = engine.EndReason(reason)
		g.Winner = engine.Identity(winner.String)
		if err := json.Unmarshal([]byte(standings), &g.Standings); err != nil {
			return nil, fmt.Errorf("game %s standings: %w", g.ID, err)
		}
		if g.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("game %s finished_at: %w", g.ID, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) send(ctx context.Context, r req) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.ch <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) loop() {
	insertGame, err := s.db.Prepare(`INSERT OR REPLACE INTO games(id,room,game,reason,winner,turns,standings_json,finished_at) VALUES(?,?,?,?,?,?,?,?)`)
	if err != nil {
		s.log.Error().Err(err).Msg("prepare insert")
	}
	defer func() {
		if insertGame != nil {
			_ = insertGame.Close()
		}
	}()

	for r := range s.ch {
		switch r.kind {
		case reqBarrier:
			close(r.done)

		case reqGame:
			if insertGame == nil {
				continue
			}
			g := r.game
			standings, _ := json.Marshal(g.Standings)
			var winner interface{}
			if g.Winner != "" {
				winner = string(g.Winner)
			}
			if _, err := insertGame.Exec(
				g.ID,
				g.Room,
				g.Number,
				string(g.Reason),
				winner,
				g.Turns,
				string(standings),
				g.FinishedAt.Format(time.RFC3339Nano),
			); err != nil {
				s.log.Error().Err(err).Str("game_id", g.ID).Msg("insert game")
			}
		}
	}
}
