package engine

import "fmt"

// Seat queues an identity for the next game.
func (s *Session) Seat(who Identity) error {
	if s.Seated(who) {
		return fmt.Errorf("%w: %s", ErrDuplicateIdentity, who)
	}
	s.Bankrupt = append(s.Bankrupt, who)
	if s.Phase == PhaseResetting {
		// Nothing to tear down on the client side.
		s.placeholders[who] = true
	}
	return nil
}

// Seated reports whether the identity is playing or waiting.
func (s *Session) Seated(who Identity) bool {
	return s.PlayerByIdentity(who) != nil || indexOf(s.Bankrupt, who) >= 0
}

// Start begins the first game once enough identities are queued.
func (s *Session) Start() ([]Event, error) {
	if s.Phase != PhaseLobby {
		return nil, ErrWrongPhase
	}
	if len(s.Bankrupt) < s.Config.MinPlayers {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughPlayers, len(s.Bankrupt), s.Config.MinPlayers)
	}
	return s.beginGame()
}

// Forfeit takes an alive player out of the game. Their tiles go back to the
// bank and the identity waits for the next game without a reward.
func (s *Session) Forfeit(who Identity) ([]Event, error) {
	return s.drop(who, true)
}

// Leave is Forfeit for a connection that is gone: the identity is also
// forgotten, including any pending reset ack.
func (s *Session) Leave(who Identity) ([]Event, error) {
	if i := indexOf(s.Bankrupt, who); i >= 0 {
		s.Bankrupt = append(s.Bankrupt[:i], s.Bankrupt[i+1:]...)
		if s.Phase == PhaseResetting {
			delete(s.placeholders, who)
			return s.maybeFinishReset()
		}
		return nil, nil
	}
	return s.drop(who, false)
}

func (s *Session) drop(who Identity, requeue bool) ([]Event, error) {
	p := s.PlayerByIdentity(who)
	if p == nil {
		return nil, fmt.Errorf("%w: %s is not playing", ErrUnknownPlayer, who)
	}
	wasCurrent := s.Phase == PhaseActionWindow && s.CurrentPlayer() == p

	released := s.releaseAll(p.ID)
	s.removeFromRing(p)
	if requeue {
		s.Bankrupt = append(s.Bankrupt, who)
	}
	events := []Event{
		{Type: EventForfeit, Player: who, Data: map[string]interface{}{
			"released": released,
		}},
	}

	switch len(s.Players) {
	case 0:
		return append(events, s.endGame(EndForfeit, "")...), nil
	case 1:
		survivor := s.Players[0]
		events = append(events, s.rewardEvent(survivor, s.Config.VictoryReward, true))
		return append(events, s.endGame(EndForfeit, survivor.Identity)...), nil
	}

	if wasCurrent {
		s.Phase = PhaseIdle
		more, err := s.Advance(Nobody)
		return append(events, more...), err
	}
	return events, nil
}

// bankrupt releases the player's tiles and queues them for the next game.
// over reports whether the game ended because one player is left.
func (s *Session) bankrupt(p *Player) (events []Event, over bool) {
	released := s.releaseAll(p.ID)
	s.removeFromRing(p)
	s.Bankrupt = append(s.Bankrupt, p.Identity)
	s.eliminated = append(s.eliminated, p.Identity)

	events = append(events,
		Event{Type: EventBankrupt, Player: p.Identity, Data: map[string]interface{}{
			"cash": p.Cash, "released": released,
		}},
		s.rewardEvent(p, s.Config.BankruptReward, true),
	)

	if len(s.Players) == 1 {
		survivor := s.Players[0]
		events = append(events, s.rewardEvent(survivor, s.Config.VictoryReward, true))
		return append(events, s.endGame(EndBankruptcy, survivor.Identity)...), true
	}
	return events, false
}

// Abort ends a game whose state can no longer be trusted and starts the
// reset path.
func (s *Session) Abort() []Event {
	switch s.Phase {
	case PhaseLobby, PhaseResetting:
		return nil
	}
	return s.endGame(EndCorrupted, "")
}

func (s *Session) endGame(reason EndReason, winner Identity) []Event {
	s.Phase = PhaseGameOver
	outcome := Outcome{
		Game:      s.Game,
		Reason:    reason,
		Winner:    winner,
		Turns:     s.Turn.Count,
		Standings: s.standings(s.eliminated),
	}
	events := []Event{
		{Type: EventEndGame, Data: EndGame{Reason: reason, Outcome: outcome}},
	}
	return append(events, s.startReset()...)
}

// startReset tears down the board and players. Every identity still in the
// game joins the queue and must acknowledge before the next board exists.
func (s *Session) startReset() []Event {
	for _, p := range s.Players {
		p.Alive = false
		s.Bankrupt = append(s.Bankrupt, p.Identity)
	}
	s.Tiles = nil
	s.tileIndex = nil
	s.Players = nil
	s.eliminated = nil
	s.Turn = TurnState{Current: -1}

	s.placeholders = make(map[Identity]bool, len(s.Bankrupt))
	for _, who := range s.Bankrupt {
		s.placeholders[who] = false
	}
	if len(s.placeholders) == 0 {
		s.placeholders = nil
		s.Phase = PhaseLobby
		return []Event{phaseEvent(PhaseLobby)}
	}
	s.Phase = PhaseResetting
	return []Event{
		{Type: EventResetStarted, Data: map[string]interface{}{
			"awaiting": s.Pending(),
		}},
	}
}

// Ack records a Ready from a placeholder during reset.
func (s *Session) Ack(who Identity) ([]Event, error) {
	if s.Phase != PhaseResetting {
		return nil, ErrWrongPhase
	}
	if _, ok := s.placeholders[who]; !ok {
		return nil, fmt.Errorf("%w: %s has no placeholder", ErrUnknownPlayer, who)
	}
	s.placeholders[who] = true
	return s.maybeFinishReset()
}

// Pending lists identities whose reset ack has not arrived yet.
func (s *Session) Pending() []Identity {
	var out []Identity
	for _, who := range s.Bankrupt {
		if acked, ok := s.placeholders[who]; ok && !acked {
			out = append(out, who)
		}
	}
	return out
}

func (s *Session) maybeFinishReset() ([]Event, error) {
	for _, acked := range s.placeholders {
		if !acked {
			return nil, nil
		}
	}
	s.placeholders = nil
	if len(s.Bankrupt) < s.Config.MinPlayers {
		s.Phase = PhaseLobby
		return []Event{phaseEvent(PhaseLobby)}, nil
	}
	return s.beginGame()
}

// beginGame generates a board, mints a player for every queued identity in
// queue order and plays the forced first advance.
func (s *Session) beginGame() ([]Event, error) {
	tiles, err := s.generator.Generate(s.sampler)
	if err != nil {
		return nil, err
	}
	s.Tiles = tiles
	s.tileIndex = make(map[TileID]int, len(tiles))
	for i, t := range tiles {
		s.tileIndex[t.ID] = i
	}

	var events []Event
	s.Players = make([]*Player, 0, len(s.Bankrupt))
	for rank, who := range s.Bankrupt {
		s.lastPlayerID++
		p := NewPlayer(s.lastPlayerID, who, rank, s.Config.StartingCash)
		s.Players = append(s.Players, p)
		events = append(events, Event{
			Type:   EventSendPlayer,
			To:     who,
			Player: who,
			Data:   SendPlayer{AssignedIdentity: p.ID, Identity: who},
		})
	}
	s.Bankrupt = nil
	s.eliminated = nil
	s.placeholders = nil
	s.Turn = TurnState{Current: -1}
	s.Game++
	s.Phase = PhaseIdle

	events = append(events, Event{Type: EventStartGame, Data: StartGame{
		Game:    s.Game,
		Corners: s.Config.Corners,
		Tiles:   s.Tiles,
		Players: s.playerViews(),
	}})
	more, err := s.Advance(Nobody)
	return append(events, more...), err
}

func phaseEvent(p GamePhase) Event {
	return Event{Type: EventPhaseChange, Data: map[string]interface{}{"phase": p.String()}}
}

func indexOf(ids []Identity, who Identity) int {
	for i, id := range ids {
		if id == who {
			return i
		}
	}
	return -1
}
