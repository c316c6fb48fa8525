package server

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"monai/internal/engine"
	"monai/internal/history"
	"monai/internal/lobby"
	"monai/internal/protocol"
)

// Hub owns one room: its connections, its lobby and the game session. Every
// session call happens on the Run goroutine.
type Hub struct {
	mu          sync.Mutex
	code        string
	lobby       *lobby.Lobby
	session     *engine.Session
	validator   *protocol.Validator
	history     *history.Store
	log         zerolog.Logger
	turnTimeout time.Duration

	clients map[*Client]bool
	byName  map[engine.Identity]*Client

	register   chan registration
	unregister chan *Client
	incoming   chan IncomingMessage
	quit       chan struct{}
	stopOnce   sync.Once

	timer     *time.Timer
	timeoutC  <-chan time.Time
	timedTurn int
}

type registration struct {
	client *Client
	reply  chan error
}

// HubOptions carries what a hub needs besides its room code.
type HubOptions struct {
	Session     *engine.Session
	Lobby       *lobby.Lobby
	Validator   *protocol.Validator
	History     *history.Store
	Log         zerolog.Logger
	TurnTimeout time.Duration
}

func NewHub(code string, opts HubOptions) *Hub {
	return &Hub{
		code:        code,
		lobby:       opts.Lobby,
		session:     opts.Session,
		validator:   opts.Validator,
		history:     opts.History,
		log:         opts.Log.With().Str("room", code).Logger(),
		turnTimeout: opts.TurnTimeout,
		clients:     make(map[*Client]bool),
		byName:      make(map[engine.Identity]*Client),
		register:    make(chan registration),
		unregister:  make(chan *Client),
		incoming:    make(chan IncomingMessage, 256),
		quit:        make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case reg := <-h.register:
			reg.reply <- h.handleJoin(reg.client)

		case client := <-h.unregister:
			h.handleLeave(client)

		case msg := <-h.incoming:
			h.handleMessage(msg)

		case <-h.timeoutC:
			h.handleTurnTimeout()

		case <-h.quit:
			if h.timer != nil {
				h.timer.Stop()
			}
			return
		}
		h.armTurnTimer()
	}
}

// Stop ends the Run loop. Connections notice when their pumps fail.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Join registers a client that completed the handshake. A non-nil error
// means the client was refused and its send channel is closed.
func (h *Hub) Join(c *Client) error {
	reply := make(chan error, 1)
	select {
	case h.register <- registration{client: c, reply: reply}:
	case <-h.quit:
		close(c.send)
		return fmt.Errorf("room %s is closed", h.code)
	}
	return <-reply
}

// ClientCount is safe to call from any goroutine.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) handleJoin(c *Client) error {
	refuse := func(err error) error {
		c.SendError(err.Error())
		close(c.send)
		c.log.Info().Err(err).Msg("join refused")
		return err
	}
	if err := h.lobby.Join(string(c.Name)); err != nil {
		return refuse(err)
	}
	if err := h.session.Seat(c.Name); err != nil {
		h.lobby.Leave(string(c.Name))
		return refuse(err)
	}

	h.mu.Lock()
	h.clients[c] = true
	h.byName[c.Name] = c
	h.mu.Unlock()

	c.log.Info().Str("phase", h.session.Phase.String()).Msg("joined")
	c.SendEnvelope(protocol.MustEnvelope(protocol.MsgJoined, protocol.Joined{
		Room:        h.code,
		DisplayName: string(c.Name),
		Connection:  c.ID,
		Waiting:     h.session.Phase != engine.PhaseLobby,
	}))
	h.sendLobbyUpdate()
	if h.session.Phase != engine.PhaseLobby {
		h.sendStateToClient(c)
	}
	return nil
}

func (h *Hub) handleLeave(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		delete(h.byName, c.Name)
		close(c.send)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	c.log.Info().Msg("left")
	h.lobby.Leave(string(c.Name))
	prev := h.session.Phase
	events, err := h.session.Leave(c.Name)
	if errors.Is(err, engine.ErrUnknownPlayer) {
		err = nil
	}
	h.apply(nil, prev, events, err)
	h.maybeStart()
}

func (h *Hub) handleMessage(msg IncomingMessage) {
	c := msg.Client
	h.mu.Lock()
	ok := h.clients[c]
	h.mu.Unlock()
	if !ok {
		return
	}

	if err := h.validator.Validate(msg.Envelope); err != nil {
		c.SendError(err.Error())
		return
	}

	switch msg.Envelope.Type {
	case protocol.MsgJoin:
		c.SendError("already joined")
	case protocol.MsgReady:
		h.handleReady(c)
	default:
		h.handleGameAction(msg)
	}
}

// handleReady marks lobby readiness before the first game and acknowledges
// the reset handshake afterwards.
func (h *Hub) handleReady(c *Client) {
	if h.session.Phase == engine.PhaseLobby {
		h.lobby.SetReady(string(c.Name), true)
		h.sendLobbyUpdate()
		h.maybeStart()
		return
	}
	prev := h.session.Phase
	events, err := h.session.Apply(c.Name, engine.Action{Type: engine.ActionReady})
	h.apply(c, prev, events, err)
}

func (h *Hub) maybeStart() {
	if h.session.Phase != engine.PhaseLobby || !h.lobby.CanStart() {
		return
	}
	events, err := h.session.Start()
	if errors.Is(err, engine.ErrNotEnoughPlayers) {
		return
	}
	h.log.Info().Int("players", len(h.lobby.GetPlayers())).Msg("starting game")
	h.apply(nil, engine.PhaseLobby, events, err)
}

func (h *Hub) handleGameAction(msg IncomingMessage) {
	action, err := parseAction(msg.Envelope)
	if err != nil {
		msg.Client.SendError(err.Error())
		return
	}
	prev := h.session.Phase
	events, err := h.session.Apply(msg.Client.Name, action)
	h.apply(msg.Client, prev, events, err)
}

func (h *Hub) handleTurnTimeout() {
	h.timeoutC = nil
	cur := h.session.CurrentPlayer()
	if cur == nil || h.session.Phase != engine.PhaseActionWindow {
		return
	}
	h.log.Info().Str("player", string(cur.Identity)).Int("turn", h.session.Turn.Count).Msg("turn timed out")
	events, err := h.session.Apply(cur.Identity, engine.Action{Type: engine.ActionEndTurn})
	h.apply(nil, engine.PhaseActionWindow, events, err)
}

// armTurnTimer restarts the turn clock whenever a new turn opens.
func (h *Hub) armTurnTimer() {
	if h.turnTimeout <= 0 {
		return
	}
	if h.session.Phase != engine.PhaseActionWindow {
		if h.timer != nil {
			h.timer.Stop()
		}
		h.timeoutC = nil
		h.timedTurn = 0
		return
	}
	if h.timeoutC != nil && h.timedTurn == h.session.Turn.Count {
		return
	}
	if h.timer == nil {
		h.timer = time.NewTimer(h.turnTimeout)
	} else {
		h.timer.Reset(h.turnTimeout)
	}
	h.timeoutC = h.timer.C
	h.timedTurn = h.session.Turn.Count
}

// apply reports err to the requester or, if the session is corrupted,
// aborts the game. Events are dispatched either way. prev is the phase
// before the session call; falling back to the lobby clears ready flags.
func (h *Hub) apply(from *Client, prev engine.GamePhase, events []engine.Event, err error) {
	if err != nil {
		if errors.Is(err, engine.ErrCorrupted) {
			h.log.Error().Err(err).Int("game", h.session.Game).Msg("aborting game")
			events = append(events, h.session.Abort()...)
		} else if from != nil {
			from.log.Debug().Err(err).Msg("request rejected")
			from.SendError(err.Error())
			return
		} else {
			h.log.Warn().Err(err).Msg("session error")
		}
	}
	if len(events) > 0 {
		h.broadcastEvents(events)
	}
	if h.session.Phase == engine.PhaseLobby && prev != engine.PhaseLobby {
		h.log.Info().Msg("back to lobby")
		h.lobby.ClearReady()
		h.sendLobbyUpdate()
	}
	if len(events) > 0 {
		h.broadcastState()
	}
}

// broadcastEvents routes targeted events to one player and the rest to all.
func (h *Hub) broadcastEvents(events []engine.Event) {
	for _, ev := range events {
		if ev.Type == engine.EventEndGame {
			h.recordGame(ev)
		}
		env := envelopeFor(ev)
		if ev.To == "" {
			h.broadcastAll(env)
			continue
		}
		h.mu.Lock()
		c := h.byName[ev.To]
		h.mu.Unlock()
		if c != nil {
			c.SendEnvelope(env)
		}
	}
}

func (h *Hub) recordGame(ev engine.Event) {
	end, ok := ev.Data.(engine.EndGame)
	if !ok {
		return
	}
	o := end.Outcome
	h.log.Info().
		Int("game", o.Game).
		Str("reason", string(o.Reason)).
		Str("winner", string(o.Winner)).
		Int("turns", o.Turns).
		Msg("game over")
	h.history.Record(h.code, o)
}

// envelopeFor gives protocol events their own message type and wraps the
// rest as generic events.
func envelopeFor(ev engine.Event) protocol.Envelope {
	switch ev.Type {
	case engine.EventBeginTurn, engine.EventSendPlayer, engine.EventStartGame,
		engine.EventEndGame, engine.EventIssueReward:
		return protocol.MustEnvelope(string(ev.Type), ev.Data)
	}
	return protocol.MustEnvelope(protocol.MsgEvent, ev)
}

func (h *Hub) broadcastState() {
	env := protocol.MustEnvelope(protocol.MsgGameState, h.session.PublicView())
	h.broadcastAll(env)
}

func (h *Hub) sendStateToClient(c *Client) {
	c.SendEnvelope(protocol.MustEnvelope(protocol.MsgGameState, h.session.PublicView()))
}

func (h *Hub) sendLobbyUpdate() {
	players := h.lobby.GetPlayers()
	lps := make([]protocol.LobbyPlayer, len(players))
	for i, p := range players {
		lps[i] = protocol.LobbyPlayer{Name: p.Name, Ready: p.Ready}
	}
	h.broadcastAll(protocol.MustEnvelope(protocol.MsgLobbyUpdate, protocol.LobbyUpdate{
		Room:    h.code,
		Phase:   h.session.Phase.String(),
		Players: lps,
	}))
}

func (h *Hub) broadcastAll(env protocol.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.SendEnvelope(env)
	}
}

func parseAction(env protocol.Envelope) (engine.Action, error) {
	action := engine.Action{Type: engine.ActionType(env.Type)}
	switch env.Type {
	case protocol.MsgSell:
		var sell protocol.SellMsg
		if err := env.Decode(&sell); err != nil {
			return engine.Action{}, err
		}
		action.TileID = engine.TileID(sell.TileID)
	case protocol.MsgBuy, protocol.MsgEndTurn, protocol.MsgForfeit:
	default:
		return engine.Action{}, fmt.Errorf("%w: %q", engine.ErrInvalidAction, env.Type)
	}
	return action, nil
}
