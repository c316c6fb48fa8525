package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monai/internal/config"
	"monai/internal/engine"
	"monai/internal/history"
	"monai/internal/protocol"
	"monai/internal/server"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Room = "main"
	if mutate != nil {
		mutate(&cfg)
	}
	store, err := history.Open(filepath.Join(t.TempDir(), "games.db"), zerolog.Nop())
	require.NoError(t, err)

	srv, err := server.New(server.Options{
		Config:  cfg,
		History: store,
		Log:     zerolog.Nop(),
		Rolls: func(string) (engine.Roller, engine.Roller) {
			return engine.NewFixedRolls(2), engine.NewDice(1)
		},
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = store.Close()
	})
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(protocol.MustEnvelope(typ, payload)))
}

// readUntil skips envelopes until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) protocol.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var env protocol.Envelope
		require.NoError(t, conn.ReadJSON(&env), "waiting for %s", typ)
		if env.Type == typ {
			return env
		}
	}
}

func join(t *testing.T, ts *httptest.Server, name string) *websocket.Conn {
	t.Helper()
	conn := dial(t, ts)
	send(t, conn, protocol.MsgJoin, protocol.JoinMsg{DisplayName: name, RoomCode: "main"})
	var joined protocol.Joined
	require.NoError(t, readUntil(t, conn, protocol.MsgJoined).Decode(&joined))
	assert.Equal(t, name, joined.DisplayName)
	assert.NotEmpty(t, joined.Connection)
	return conn
}

func TestHandshakeRejections(t *testing.T) {
	ts := newTestServer(t, nil)
	join(t, ts, "ann")

	tests := []struct {
		name    string
		payload protocol.JoinMsg
		typ     string
		want    string
	}{
		{"duplicate name", protocol.JoinMsg{DisplayName: "ann", RoomCode: "main"}, protocol.MsgJoin, "already taken"},
		{"unknown room", protocol.JoinMsg{DisplayName: "bob", RoomCode: "nope"}, protocol.MsgJoin, "unknown room"},
		{"not a join", protocol.JoinMsg{}, protocol.MsgEndTurn, "must be join"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dial(t, ts)
			send(t, conn, tt.typ, tt.payload)

			var msg protocol.ErrorMsg
			require.NoError(t, readUntil(t, conn, protocol.MsgError).Decode(&msg))
			assert.Contains(t, msg.Message, tt.want)

			_, _, err := conn.ReadMessage()
			require.Error(t, err, "connection should be closed")
		})
	}
}

func TestRoomMismatch(t *testing.T) {
	ts := newTestServer(t, nil)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?room=other"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	send(t, conn, protocol.MsgJoin, protocol.JoinMsg{DisplayName: "ann", RoomCode: "main"})
	var msg protocol.ErrorMsg
	require.NoError(t, readUntil(t, conn, protocol.MsgError).Decode(&msg))
	assert.Contains(t, msg.Message, "does not match")
}

func TestGameOverWebSocket(t *testing.T) {
	ts := newTestServer(t, nil)
	ann := join(t, ts, "ann")
	bob := join(t, ts, "bob")

	send(t, ann, protocol.MsgReady, nil)
	send(t, bob, protocol.MsgReady, nil)

	var sp engine.SendPlayer
	require.NoError(t, readUntil(t, ann, protocol.MsgSendPlayer).Decode(&sp))
	assert.Equal(t, engine.Identity("ann"), sp.Identity)
	assert.NotZero(t, sp.AssignedIdentity)

	var start engine.StartGame
	require.NoError(t, readUntil(t, bob, protocol.MsgStartGame).Decode(&start))
	assert.Len(t, start.Tiles, 40)
	assert.Len(t, start.Players, 2)

	var bt engine.BeginTurn
	require.NoError(t, readUntil(t, ann, protocol.MsgBeginTurn).Decode(&bt))
	assert.Equal(t, 2, bt.Position)
	assert.Contains(t, bt.AvailableActions, engine.ChoicePurchase)

	// bob acting out of turn gets an error and nothing else changes
	send(t, bob, protocol.MsgEndTurn, nil)
	var msg protocol.ErrorMsg
	require.NoError(t, readUntil(t, bob, protocol.MsgError).Decode(&msg))
	assert.Equal(t, engine.ErrNotYourTurn.Error(), msg.Message)

	send(t, ann, protocol.MsgBuy, nil)
	send(t, ann, protocol.MsgEndTurn, nil)

	var reward engine.IssueReward
	require.NoError(t, readUntil(t, ann, protocol.MsgIssueReward).Decode(&reward))
	assert.Greater(t, reward.Reward, 0.0)
	assert.False(t, reward.Terminal)

	require.NoError(t, readUntil(t, bob, protocol.MsgBeginTurn).Decode(&bt))
	assert.Equal(t, 2, bt.Position)
	assert.Equal(t, 1000-start.Tiles[2].Cost, bt.Cash)

	send(t, bob, protocol.MsgForfeit, nil)
	var end engine.EndGame
	require.NoError(t, readUntil(t, bob, protocol.MsgEndGame).Decode(&end))
	assert.Equal(t, engine.EndForfeit, end.Reason)
	assert.Equal(t, engine.Identity("ann"), end.Outcome.Winner)

	res, err := http.Get(ts.URL + "/api/history")
	require.NoError(t, err)
	defer res.Body.Close()
	var games []history.Game
	require.NoError(t, json.NewDecoder(res.Body).Decode(&games))
	require.Len(t, games, 1)
	assert.Equal(t, "main", games[0].Room)
	assert.Equal(t, engine.Identity("ann"), games[0].Winner)
}

func TestInvalidPayloadRejected(t *testing.T) {
	ts := newTestServer(t, nil)
	ann := join(t, ts, "ann")

	send(t, ann, protocol.MsgSell, map[string]interface{}{"tile_id": "seven"})
	var msg protocol.ErrorMsg
	require.NoError(t, readUntil(t, ann, protocol.MsgError).Decode(&msg))
	assert.Contains(t, msg.Message, protocol.ErrInvalidPayload.Error())

	send(t, ann, "mortgage", nil)
	require.NoError(t, readUntil(t, ann, protocol.MsgError).Decode(&msg))
	assert.Contains(t, msg.Message, protocol.ErrUnknownMessage.Error())
}

func TestTurnTimeout(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.Server.TurnTimeout = 50 * time.Millisecond
	})
	ann := join(t, ts, "ann")
	bob := join(t, ts, "bob")
	send(t, ann, protocol.MsgReady, nil)
	send(t, bob, protocol.MsgReady, nil)

	readUntil(t, ann, protocol.MsgBeginTurn)
	// ann never acts; the hub ends ann's turn
	readUntil(t, ann, protocol.MsgIssueReward)
	readUntil(t, bob, protocol.MsgBeginTurn)
}

func TestDisconnectForfeits(t *testing.T) {
	ts := newTestServer(t, nil)
	ann := join(t, ts, "ann")
	bob := join(t, ts, "bob")
	send(t, ann, protocol.MsgReady, nil)
	send(t, bob, protocol.MsgReady, nil)
	readUntil(t, bob, protocol.MsgStartGame)

	require.NoError(t, ann.Close())

	var end engine.EndGame
	require.NoError(t, readUntil(t, bob, protocol.MsgEndGame).Decode(&end))
	assert.Equal(t, engine.Identity("bob"), end.Outcome.Winner)

	// the name is free again
	join(t, ts, "ann")
}

func TestFallbackToLobbyClearsReady(t *testing.T) {
	ts := newTestServer(t, nil)
	ann := join(t, ts, "ann")
	bob := join(t, ts, "bob")
	send(t, ann, protocol.MsgReady, nil)
	send(t, bob, protocol.MsgReady, nil)
	readUntil(t, ann, protocol.MsgStartGame)

	send(t, bob, protocol.MsgForfeit, nil)
	readUntil(t, ann, protocol.MsgEndGame)

	// ann acknowledges the reset, bob goes away: one player is too few
	send(t, ann, protocol.MsgReady, nil)
	require.NoError(t, bob.Close())

	var update protocol.LobbyUpdate
	for update.Phase != engine.PhaseLobby.String() {
		require.NoError(t, readUntil(t, ann, protocol.MsgLobbyUpdate).Decode(&update))
	}
	require.Len(t, update.Players, 1)
	assert.Equal(t, "ann", update.Players[0].Name)
	assert.False(t, update.Players[0].Ready)

	// a newcomer alone must not restart the game with ann's stale flag
	cat := join(t, ts, "cat")
	require.NoError(t, readUntil(t, cat, protocol.MsgLobbyUpdate).Decode(&update))
	require.Len(t, update.Players, 2)
	for _, p := range update.Players {
		assert.False(t, p.Ready, p.Name)
	}

	send(t, cat, protocol.MsgReady, nil)
	send(t, ann, protocol.MsgReady, nil)
	var start engine.StartGame
	require.NoError(t, readUntil(t, cat, protocol.MsgStartGame).Decode(&start))
	assert.Len(t, start.Players, 2)
}

func TestHTTPEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	res, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, "ok", string(body))

	res, err = http.Post(ts.URL+"/api/rooms", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var room struct {
		Room    string `json:"room"`
		JoinURL string `json:"join_url"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&room))
	res.Body.Close()
	assert.NotEmpty(t, room.Room)
	assert.Contains(t, room.JoinURL, "room="+room.Room)

	res, err = http.Get(ts.URL + "/api/rooms")
	require.NoError(t, err)
	var rooms []struct {
		Room string `json:"room"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&rooms))
	res.Body.Close()
	assert.Len(t, rooms, 2)

	res, err = http.Get(ts.URL + "/api/qr?room=" + room.Room)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, "image/png", res.Header.Get("Content-Type"))

	res, err = http.Get(ts.URL + "/api/qr?room=missing")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, err = http.Get(ts.URL + "/api/history?limit=abc")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
