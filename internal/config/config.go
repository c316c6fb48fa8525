package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"monai/internal/engine"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MONAI_"

type Config struct {
	Server  Server  `yaml:"server"`
	Game    Game    `yaml:"game"`
	History History `yaml:"history"`
	Log     Log     `yaml:"log"`
}

type Server struct {
	Addr        string        `yaml:"addr"`
	Room        string        `yaml:"room"`        // code of the room created at startup
	PublicURL   string        `yaml:"public_url"`  // base for QR join links; request host when empty
	MaxPlayers  int           `yaml:"max_players"` // per room, 0 for no limit
	TurnTimeout time.Duration `yaml:"turn_timeout"`
	RateLimit   float64       `yaml:"rate_limit"` // inbound messages per second per connection
	RateBurst   int           `yaml:"rate_burst"`
}

type Game struct {
	Seed             uint64  `yaml:"seed"` // 0 picks one from the clock
	Corners          int     `yaml:"corners"`
	Squares          int     `yaml:"squares"`
	StartingCash     int     `yaml:"starting_cash"`
	PassStartBonus   int     `yaml:"pass_start_bonus"`
	TileBaseCost     int     `yaml:"tile_base_cost"`
	TileCostStep     int     `yaml:"tile_cost_step"`
	StalemateTurns   int     `yaml:"stalemate_turns"`
	MinPlayers       int     `yaml:"min_players"`
	BankruptReward   float64 `yaml:"bankrupt_reward"`
	VictoryReward    float64 `yaml:"victory_reward"`
	SamplesPerSquare int     `yaml:"samples_per_square"`
	SampleRestart    int     `yaml:"sample_restart"`
}

type History struct {
	Path string `yaml:"path"` // empty disables the game log
}

type Log struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

func Default() Config {
	g := engine.DefaultConfig()
	return Config{
		Server: Server{
			Addr:       ":8080",
			Room:       "main",
			MaxPlayers: 8,
			RateLimit:  20,
			RateBurst:  40,
		},
		Game: Game{
			Corners:          g.Corners,
			Squares:          g.Squares,
			StartingCash:     g.StartingCash,
			PassStartBonus:   g.PassStartBonus,
			TileBaseCost:     g.TileBaseCost,
			TileCostStep:     g.TileCostStep,
			StalemateTurns:   g.StalemateTurns,
			MinPlayers:       g.MinPlayers,
			BankruptReward:   g.BankruptReward,
			VictoryReward:    g.VictoryReward,
			SamplesPerSquare: g.SamplesPerSquare,
			SampleRestart:    g.SampleRestart,
		},
		Log: Log{Level: "info", Console: true},
	}
}

// Load layers defaults, the YAML file at path (skipped when empty), a .env
// file in the working directory if present, and MONAI_* variables.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return c, err
		}
		if err := yaml.Unmarshal(raw, &c); err != nil {
			return c, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return c, fmt.Errorf(".env: %w", err)
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return c, err
	}
	if err := c.Engine().Validate(); err != nil {
		return c, err
	}
	return c, engine.CheckBoard(c.Game.Corners, c.Game.Squares)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
		return nil
	}

	str("ADDR", &c.Server.Addr)
	str("ROOM", &c.Server.Room)
	str("PUBLIC_URL", &c.Server.PublicURL)
	str("HISTORY_PATH", &c.History.Path)
	str("LOG_LEVEL", &c.Log.Level)

	for key, dst := range map[string]*int{
		"MAX_PLAYERS":     &c.Server.MaxPlayers,
		"CORNERS":         &c.Game.Corners,
		"SQUARES":         &c.Game.Squares,
		"STARTING_CASH":   &c.Game.StartingCash,
		"STALEMATE_TURNS": &c.Game.StalemateTurns,
		"MIN_PLAYERS":     &c.Game.MinPlayers,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}

	if v, ok := lookup(EnvPrefix + "SEED"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sSEED: %w", EnvPrefix, err)
		}
		c.Game.Seed = n
	}
	if v, ok := lookup(EnvPrefix + "TURN_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTURN_TIMEOUT: %w", EnvPrefix, err)
		}
		c.Server.TurnTimeout = d
	}
	return nil
}

// Engine converts the game section into the engine's config.
func (c Config) Engine() engine.GameConfig {
	g := c.Game
	return engine.GameConfig{
		Corners:          g.Corners,
		Squares:          g.Squares,
		StartingCash:     g.StartingCash,
		PassStartBonus:   g.PassStartBonus,
		TileBaseCost:     g.TileBaseCost,
		TileCostStep:     g.TileCostStep,
		StalemateTurns:   g.StalemateTurns,
		MinPlayers:       g.MinPlayers,
		BankruptReward:   g.BankruptReward,
		VictoryReward:    g.VictoryReward,
		SamplesPerSquare: g.SamplesPerSquare,
		SampleRestart:    g.SampleRestart,
	}
}
