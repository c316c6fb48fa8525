package engine

// Choice is one entry of the legal action set offered at the start of a turn.
type Choice string

const (
	ChoiceNone     Choice = "none"
	ChoiceSell     Choice = "sell"
	ChoicePurchase Choice = "purchase"
)

// ActionType identifies player requests sent to Session.Apply.
type ActionType string

const (
	ActionBuy     ActionType = "buy_ownable"
	ActionSell    ActionType = "sell_ownable" // needs TileID
	ActionEndTurn ActionType = "end_turn"
	ActionForfeit ActionType = "forfeit"
	ActionReady   ActionType = "ready"
)

// Action is a player's request.
type Action struct {
	Type   ActionType `json:"type"`
	TileID TileID     `json:"tile_id,omitempty"`
}

// EventType identifies events emitted by the engine.
type EventType string

const (
	// Protocol events, delivered under their own message type.
	EventBeginTurn   EventType = "begin_turn"
	EventSendPlayer  EventType = "send_player"
	EventStartGame   EventType = "start_game"
	EventEndGame     EventType = "end_game"
	EventIssueReward EventType = "issue_reward"

	// Informational events.
	EventRolled       EventType = "rolled"
	EventPassedStart  EventType = "passed_start"
	EventRentPaid     EventType = "rent_paid"
	EventPurchased    EventType = "purchased"
	EventSold         EventType = "sold"
	EventBankrupt     EventType = "bankrupt"
	EventForfeit      EventType = "forfeit"
	EventTurnEnd      EventType = "turn_end"
	EventPhaseChange  EventType = "phase_change"
	EventResetStarted EventType = "reset_started"
)

// Event is emitted by the engine after state changes. To names the single
// recipient; an empty To means every connection in the room.
type Event struct {
	Type   EventType   `json:"type"`
	To     Identity    `json:"-"`
	Player Identity    `json:"player,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

// BeginTurn is sent only to the player whose turn starts.
type BeginTurn struct {
	AvailableActions []Choice `json:"available_actions"`
	Position         int      `json:"position"`
	Tile             TileID   `json:"tile"`
	Cash             int      `json:"cash"`
	Sellable         []TileID `json:"sellable"`
	Turn             int      `json:"turn"`
}

// SendPlayer tells a connection which player it controls in the new game.
type SendPlayer struct {
	AssignedIdentity PlayerID `json:"assigned_identity"`
	Identity         Identity `json:"identity"`
}

// StartGame carries the freshly generated board.
type StartGame struct {
	Game    int          `json:"game"`
	Corners int          `json:"corners"`
	Tiles   []*Tile      `json:"tiles"`
	Players []PlayerView `json:"players"`
}

// IssueReward is sent to the player whose turn just ended.
type IssueReward struct {
	Reward   float64 `json:"reward"`
	Terminal bool    `json:"terminal,omitempty"`
}

// EndReason says why a game stopped.
type EndReason string

const (
	EndBankruptcy EndReason = "bankruptcy"
	EndStalemate  EndReason = "stalemate"
	EndForfeit    EndReason = "forfeit"
	EndCorrupted  EndReason = "corrupted"
)

// EndGame is broadcast once per finished game.
type EndGame struct {
	Reason  EndReason `json:"reason"`
	Outcome Outcome   `json:"outcome"`
}
