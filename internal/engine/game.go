package engine

import (
	"errors"
	"fmt"
)

var (
	ErrNotYourTurn       = errors.New("not your turn")
	ErrInvalidAction     = errors.New("invalid action")
	ErrWrongPhase        = errors.New("wrong phase for this action")
	ErrNotPurchasable    = errors.New("tile cannot be purchased")
	ErrNotOwner          = errors.New("tile is not yours")
	ErrUnknownTile       = errors.New("unknown tile")
	ErrUnknownPlayer     = errors.New("unknown player")
	ErrDuplicateIdentity = errors.New("identity already seated")
	ErrNotEnoughPlayers  = errors.New("not enough players")

	// ErrCorrupted marks a broken internal invariant. The session must be
	// aborted and reset when an operation returns it.
	ErrCorrupted = errors.New("session state corrupted")
)

// TurnState tracks whose turn it is.
type TurnState struct {
	Current   int      `json:"current"` // index into Players, -1 before the first turn
	Count     int      `json:"count"`   // turns started this game
	LastActor PlayerID `json:"last_actor,omitempty"`
}

// Session holds the entire state of one room's games. It is not safe for
// concurrent use; the owner serialises every call.
type Session struct {
	Config GameConfig `json:"-"`

	Tiles   []*Tile   `json:"tiles"`
	Players []*Player `json:"players"` // alive ring, in turn order

	// Identities waiting for the next game: bankrupt this game, joined
	// mid-game, or carried over by a reset.
	Bankrupt []Identity `json:"bankrupt"`

	Turn  TurnState `json:"turn"`
	Phase GamePhase `json:"phase"`
	Game  int       `json:"game"` // games started so far

	placeholders map[Identity]bool // reset acks, keyed by identity
	eliminated   []Identity        // bankrupt during the current game, in order

	generator    *BoardGenerator
	dice         Roller
	sampler      Roller
	lastPlayerID PlayerID
	tileIndex    map[TileID]int
}

// NewSession creates an empty session in the lobby. dice drives real turns;
// sampler only feeds the landing probability estimate.
func NewSession(cfg GameConfig, dice, sampler Roller) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := CheckBoard(cfg.Corners, cfg.Squares); err != nil {
		return nil, err
	}
	return &Session{
		Config:    cfg,
		Turn:      TurnState{Current: -1},
		Phase:     PhaseLobby,
		generator: NewBoardGenerator(cfg),
		dice:      dice,
		sampler:   sampler,
	}, nil
}

// Apply is the single entry point for player requests.
func (s *Session) Apply(who Identity, action Action) ([]Event, error) {
	switch action.Type {
	case ActionReady:
		return s.Ack(who)
	case ActionForfeit:
		return s.Forfeit(who)
	}

	if s.Phase != PhaseActionWindow {
		return nil, ErrWrongPhase
	}
	cur := s.CurrentPlayer()
	if cur == nil {
		return nil, fmt.Errorf("%w: no current player in %s", ErrCorrupted, s.Phase)
	}
	if cur.Identity != who {
		return nil, ErrNotYourTurn
	}

	switch action.Type {
	case ActionBuy:
		return s.applyBuy(cur)
	case ActionSell:
		return s.applySell(cur, action.TileID)
	case ActionEndTurn:
		return s.applyEndTurn(cur)
	default:
		return nil, ErrInvalidAction
	}
}

func (s *Session) applyBuy(p *Player) ([]Event, error) {
	if !s.canPurchase(p) {
		return nil, ErrNotPurchasable
	}
	t := s.Tiles[p.Position]
	if err := s.Purchase(t.ID, p.ID); err != nil {
		return nil, err
	}
	return []Event{
		{Type: EventPurchased, Player: p.Identity, Data: map[string]interface{}{
			"tile": t.ID, "cost": t.Cost, "cash": p.Cash,
		}},
	}, nil
}

func (s *Session) applySell(p *Player, id TileID) ([]Event, error) {
	t, ok := s.Tile(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTile, id)
	}
	if t.Owner != p.ID {
		return nil, ErrNotOwner
	}
	if err := s.Sell(t.ID, p.ID); err != nil {
		return nil, err
	}
	return []Event{
		{Type: EventSold, Player: p.Identity, Data: map[string]interface{}{
			"tile": t.ID, "refund": SaleRefund(t.Cost), "cash": p.Cash,
		}},
	}, nil
}

func (s *Session) applyEndTurn(p *Player) ([]Event, error) {
	events := []Event{
		{Type: EventTurnEnd, Player: p.Identity, Data: map[string]interface{}{
			"turn": s.Turn.Count,
		}},
	}
	s.Turn.LastActor = p.ID
	s.Phase = PhaseRewardBroadcast
	more, err := s.Advance(p.ID)
	return append(events, more...), err
}

// Advance runs one turn transition. prev is the player who just finished
// acting, or Nobody for the forced first advance. The previous actor is
// rewarded or bankrupted before the turn moves on.
func (s *Session) Advance(prev PlayerID) ([]Event, error) {
	if s.Phase != PhaseIdle && s.Phase != PhaseRewardBroadcast {
		return nil, fmt.Errorf("%w: cannot advance from %s", ErrWrongPhase, s.Phase)
	}

	var events []Event
	if prev != Nobody {
		p, err := s.player(prev)
		if err != nil {
			return nil, err
		}
		if p.InDebt() {
			evs, over := s.bankrupt(p)
			events = append(events, evs...)
			if over {
				return events, nil
			}
		} else {
			events = append(events, s.rewardEvent(p, s.Reward(p), false))
		}
	}

	if s.Turn.Count >= s.Config.StalemateTurns {
		return append(events, s.endGame(EndStalemate, "")...), nil
	}
	if len(s.Players) == 0 {
		return events, fmt.Errorf("%w: no players to advance to", ErrCorrupted)
	}

	s.Phase = PhaseRollAndMove
	cur := s.advanceCursor()
	s.Turn.Count++
	moved, err := s.move(cur, s.dice.Roll())
	if err != nil {
		return events, err
	}
	events = append(events, moved...)

	s.Phase = PhaseLandResolution
	landed, err := s.resolveLanding(cur)
	if err != nil {
		return events, err
	}
	events = append(events, landed...)

	s.Phase = PhaseActionWindow
	events = append(events, Event{
		Type:   EventBeginTurn,
		To:     cur.Identity,
		Player: cur.Identity,
		Data:   s.beginTurn(cur),
	})
	return events, nil
}

func (s *Session) move(p *Player, roll int) ([]Event, error) {
	n := len(s.Tiles)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty board", ErrCorrupted)
	}
	if p.Position < 0 || p.Position >= n {
		return nil, fmt.Errorf("%w: player %d off the board at %d", ErrCorrupted, p.ID, p.Position)
	}
	from := p.Position
	p.Position = (from + roll) % n

	events := []Event{
		{Type: EventRolled, Player: p.Identity, Data: map[string]interface{}{
			"roll": roll, "from": from, "to": p.Position,
		}},
	}
	if from+roll >= n {
		s.PassStart(p)
		events = append(events, Event{Type: EventPassedStart, Player: p.Identity, Data: map[string]interface{}{
			"bonus": s.Config.PassStartBonus, "cash": p.Cash,
		}})
	}
	return events, nil
}

func (s *Session) resolveLanding(p *Player) ([]Event, error) {
	t := s.Tiles[p.Position]
	paid, err := s.Rent(t.ID, p.ID)
	if err != nil || !paid {
		return nil, err
	}
	owner, err := s.player(t.Owner)
	if err != nil {
		return nil, err
	}
	return []Event{
		{Type: EventRentPaid, Player: p.Identity, Data: map[string]interface{}{
			"tile": t.ID, "owner": owner.Identity, "amount": t.Cost,
		}},
	}, nil
}

// LegalActions is the action set offered to p at the start of their turn.
func (s *Session) LegalActions(p *Player) []Choice {
	choices := []Choice{ChoiceNone}
	if len(s.OwnedBy(p.ID)) > 0 {
		choices = append(choices, ChoiceSell)
	}
	if s.canPurchase(p) {
		choices = append(choices, ChoicePurchase)
	}
	return choices
}

func (s *Session) canPurchase(p *Player) bool {
	if p.InDebt() || p.Position < 0 || p.Position >= len(s.Tiles) {
		return false
	}
	t := s.Tiles[p.Position]
	return t.Tier == TierNone && t.Ownable()
}

func (s *Session) beginTurn(p *Player) BeginTurn {
	owned := s.OwnedBy(p.ID)
	sellable := make([]TileID, len(owned))
	for i, t := range owned {
		sellable[i] = t.ID
	}
	return BeginTurn{
		AvailableActions: s.LegalActions(p),
		Position:         p.Position,
		Tile:             s.Tiles[p.Position].ID,
		Cash:             p.Cash,
		Sellable:         sellable,
		Turn:             s.Turn.Count,
	}
}

func (s *Session) rewardEvent(p *Player, reward float64, terminal bool) Event {
	return Event{
		Type:   EventIssueReward,
		To:     p.Identity,
		Player: p.Identity,
		Data:   IssueReward{Reward: reward, Terminal: terminal},
	}
}

// advanceCursor moves the turn to the next alive player in ring order.
func (s *Session) advanceCursor() *Player {
	n := len(s.Players)
	s.Turn.Current = ((s.Turn.Current+1)%n + n) % n
	return s.Players[s.Turn.Current]
}

// removeFromRing drops p from the alive ring, keeping the cursor so that
// the next advance lands on whoever followed the current player.
func (s *Session) removeFromRing(p *Player) {
	for i, q := range s.Players {
		if q.ID != p.ID {
			continue
		}
		s.Players = append(s.Players[:i], s.Players[i+1:]...)
		if i <= s.Turn.Current {
			s.Turn.Current--
		}
		break
	}
	p.Alive = false
}

// CurrentPlayer returns the player whose turn it is, or nil outside a turn.
func (s *Session) CurrentPlayer() *Player {
	switch s.Phase {
	case PhaseRollAndMove, PhaseLandResolution, PhaseActionWindow:
	default:
		return nil
	}
	if s.Turn.Current < 0 || s.Turn.Current >= len(s.Players) {
		return nil
	}
	return s.Players[s.Turn.Current]
}

// PlayerByIdentity finds an alive player by identity.
func (s *Session) PlayerByIdentity(who Identity) *Player {
	for _, p := range s.Players {
		if p.Identity == who {
			return p
		}
	}
	return nil
}

// Tile looks up a tile by id for callers outside the engine.
func (s *Session) Tile(id TileID) (*Tile, bool) {
	i, ok := s.tileIndex[id]
	if !ok {
		return nil, false
	}
	return s.Tiles[i], true
}

func (s *Session) tile(id TileID) (*Tile, error) {
	i, ok := s.tileIndex[id]
	if !ok || i >= len(s.Tiles) || s.Tiles[i].ID != id {
		return nil, fmt.Errorf("%w: tile %d not on the board", ErrCorrupted, id)
	}
	return s.Tiles[i], nil
}

func (s *Session) player(id PlayerID) (*Player, error) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: player %d is not alive", ErrCorrupted, id)
}
