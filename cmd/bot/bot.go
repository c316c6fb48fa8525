package main

import (
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"monai/internal/engine"
	"monai/internal/protocol"
)

// bot plays uniformly at random among the legal actions of each turn.
type bot struct {
	name string
	rng  *rand.Rand
	log  zerolog.Logger

	player   engine.PlayerID
	total    float64
	finished int
}

// handle reacts to one server message and returns the replies to send.
func (b *bot) handle(env protocol.Envelope) []protocol.Envelope {
	switch env.Type {
	case protocol.MsgLobbyUpdate:
		// Covers the first join and a room that fell back to the lobby,
		// which forgets every ready flag.
		var lu protocol.LobbyUpdate
		if env.Decode(&lu) != nil || lu.Phase != engine.PhaseLobby.String() {
			return nil
		}
		for _, p := range lu.Players {
			if p.Name == b.name && !p.Ready {
				return []protocol.Envelope{protocol.MustEnvelope(protocol.MsgReady, nil)}
			}
		}

	case protocol.MsgSendPlayer:
		var sp engine.SendPlayer
		if env.Decode(&sp) == nil {
			b.player = sp.AssignedIdentity
			b.log.Info().Int("player", int(sp.AssignedIdentity)).Msg("seated")
		}

	case protocol.MsgBeginTurn:
		var bt engine.BeginTurn
		if err := env.Decode(&bt); err != nil {
			b.log.Warn().Err(err).Msg("bad begin_turn")
			return nil
		}
		return b.play(bt)

	case protocol.MsgIssueReward:
		var r engine.IssueReward
		if env.Decode(&r) == nil {
			b.total += r.Reward
		}

	case protocol.MsgEndGame:
		var end engine.EndGame
		if env.Decode(&end) == nil {
			b.finished++
			b.log.Info().
				Str("reason", string(end.Reason)).
				Str("winner", string(end.Outcome.Winner)).
				Int("turns", end.Outcome.Turns).
				Float64("reward", b.total).
				Msg("game over")
		}
		return []protocol.Envelope{protocol.MustEnvelope(protocol.MsgReady, nil)}

	case protocol.MsgError:
		var e protocol.ErrorMsg
		if env.Decode(&e) == nil {
			b.log.Warn().Str("error", e.Message).Msg("server error")
		}
	}
	return nil
}

// play picks one legal choice and always finishes the turn.
func (b *bot) play(bt engine.BeginTurn) []protocol.Envelope {
	endTurn := protocol.MustEnvelope(protocol.MsgEndTurn, nil)
	if len(bt.AvailableActions) == 0 {
		return []protocol.Envelope{endTurn}
	}
	switch bt.AvailableActions[b.rng.Intn(len(bt.AvailableActions))] {
	case engine.ChoicePurchase:
		return []protocol.Envelope{protocol.MustEnvelope(protocol.MsgBuy, nil), endTurn}
	case engine.ChoiceSell:
		if len(bt.Sellable) > 0 {
			tile := bt.Sellable[b.rng.Intn(len(bt.Sellable))]
			sell := protocol.MustEnvelope(protocol.MsgSell, protocol.SellMsg{TileID: int(tile)})
			return []protocol.Envelope{sell, endTurn}
		}
	}
	return []protocol.Envelope{endTurn}
}
