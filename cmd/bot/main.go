package main

import (
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"monai/internal/protocol"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/ws", "ws url")
		name  = flag.String("name", "bot", "display name")
		room  = flag.String("room", "main", "room code")
		seed  = flag.Uint64("seed", 0, "policy seed, 0 for the clock")
		games = flag.Int("games", 0, "stop after this many games, 0 for never")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.StampMicro}).
		With().Timestamp().Str("bot", *name).Logger()

	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}
	b := &bot{name: *name, rng: rand.New(rand.NewSource(*seed)), log: logger}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("dial")
	}
	defer conn.Close()

	join := protocol.MustEnvelope(protocol.MsgJoin, protocol.JoinMsg{DisplayName: *name, RoomCode: *room})
	if err := conn.WriteJSON(join); err != nil {
		logger.Fatal().Err(err).Msg("send join")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	for {
		var env protocol.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			logger.Info().Err(err).Msg("connection closed")
			return
		}
		for _, out := range b.handle(env) {
			if err := conn.WriteJSON(out); err != nil {
				logger.Error().Err(err).Msg("write")
				return
			}
		}
		if *games > 0 && b.finished >= *games {
			logger.Info().Int("games", b.finished).Float64("reward", b.total).Msg("done")
			return
		}
	}
}
