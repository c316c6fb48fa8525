package protocol

// Message types: Server → Client
const (
	MsgBeginTurn   = "begin_turn"
	MsgSendPlayer  = "send_player"
	MsgStartGame   = "start_game"
	MsgEndGame     = "end_game"
	MsgIssueReward = "issue_reward"
	MsgLobbyUpdate = "lobby_update"
	MsgGameState   = "game_state"
	MsgJoined      = "joined"
	MsgError       = "error"
	MsgEvent       = "event"
)

// Message types: Client → Server
const (
	MsgJoin  = "join"
	MsgReady = "ready"
	// In-game actions use the same names as engine ActionType
	MsgForfeit = "forfeit"
	MsgBuy     = "buy_ownable"
	MsgSell    = "sell_ownable"
	MsgEndTurn = "end_turn"
)

// JoinMsg is the handshake; it must be the first message on a connection.
type JoinMsg struct {
	DisplayName string `json:"display_name"`
	RoomCode    string `json:"room_code"`
}

// SellMsg names the tile a player wants to sell back to the bank.
type SellMsg struct {
	TileID int `json:"tile_id"`
}

// Joined confirms a handshake.
type Joined struct {
	Room        string `json:"room"`
	DisplayName string `json:"display_name"`
	Connection  string `json:"connection"`
	Waiting     bool   `json:"waiting"` // seated for the next game
}

// LobbyUpdate is sent to all clients when lobby state changes.
type LobbyUpdate struct {
	Room    string        `json:"room"`
	Phase   string        `json:"phase"`
	Players []LobbyPlayer `json:"players"`
}

type LobbyPlayer struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

// ErrorMsg is sent to a client on error.
type ErrorMsg struct {
	Message string `json:"message"`
}
