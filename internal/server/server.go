package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"monai/internal/config"
	"monai/internal/engine"
	"monai/internal/history"
)

// Options configures a Server.
type Options struct {
	Config  config.Config
	History *history.Store // nil disables the game log
	Log     zerolog.Logger

	// Rolls supplies each new room's dice and Monte Carlo sampler. Nil
	// seeds them from Config.Game.Seed.
	Rolls func(room string) (dice, sampler engine.Roller)
}

// Server ties together HTTP serving and WebSocket handling.
type Server struct {
	handlers *Handlers
	log      zerolog.Logger
	http     *http.Server
}

// New builds the server and opens the configured default room.
func New(opts Options) (*Server, error) {
	handlers, err := NewHandlers(opts)
	if err != nil {
		return nil, err
	}
	if _, err := handlers.OpenRoom(opts.Config.Server.Room); err != nil {
		return nil, err
	}
	s := &Server{
		handlers: handlers,
		log:      opts.Log,
	}
	s.http = &http.Server{
		Addr:              opts.Config.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/rooms", s.handlers.HandleRooms)
	mux.HandleFunc("/api/qr", s.handlers.HandleQR)
	mux.HandleFunc("/api/history", s.handlers.HandleHistory)
	mux.HandleFunc("/healthz", s.handlers.HandleHealth)
	mux.HandleFunc("/ws", s.handlers.HandleWS)
	return mux
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("monai server starting")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and stops every room.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.handlers.Close()
	return err
}
