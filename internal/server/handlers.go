package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"monai/internal/engine"
	"monai/internal/history"
	"monai/internal/lobby"
	"monai/internal/protocol"
	qr "monai/internal/qrcode"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var (
	errUnknownRoom  = errors.New("unknown room code")
	errRoomMismatch = errors.New("room code does not match")
	errNotHandshake = errors.New("first message must be join")
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	mu        sync.Mutex
	opts      Options
	LobbyMgr  *lobby.Manager
	hubs      map[string]*Hub
	validator *protocol.Validator
}

func NewHandlers(opts Options) (*Handlers, error) {
	v, err := protocol.NewValidator()
	if err != nil {
		return nil, err
	}
	if opts.Rolls == nil {
		opts.Rolls = seededRolls(opts.Config.Game.Seed)
	}
	return &Handlers{
		opts:      opts,
		LobbyMgr:  lobby.NewManager(opts.Config.Game.MinPlayers, opts.Config.Server.MaxPlayers),
		hubs:      make(map[string]*Hub),
		validator: v,
	}, nil
}

// seededRolls derives per-room dice from one base seed. A zero seed picks
// one from the clock.
func seededRolls(seed uint64) func(string) (engine.Roller, engine.Roller) {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	var mu sync.Mutex
	n := uint64(0)
	return func(string) (engine.Roller, engine.Roller) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return engine.NewDice(seed + 2*n), engine.NewDice(seed + 2*n + 1)
	}
}

// OpenRoom creates the room with the given code and starts its hub. An
// empty code asks for a generated one.
func (h *Handlers) OpenRoom(code string) (*Hub, error) {
	var lob *lobby.Lobby
	if code == "" {
		code = h.LobbyMgr.Create()
		lob = h.LobbyMgr.Get(code)
	} else {
		var created bool
		lob, created = h.LobbyMgr.Ensure(code)
		if !created {
			return h.Hub(code), nil
		}
	}

	dice, sampler := h.opts.Rolls(code)
	session, err := engine.NewSession(h.opts.Config.Engine(), dice, sampler)
	if err != nil {
		return nil, fmt.Errorf("room %s: %w", code, err)
	}
	hub := NewHub(code, HubOptions{
		Session:     session,
		Lobby:       lob,
		Validator:   h.validator,
		History:     h.opts.History,
		Log:         h.opts.Log,
		TurnTimeout: h.opts.Config.Server.TurnTimeout,
	})

	h.mu.Lock()
	h.hubs[code] = hub
	h.mu.Unlock()

	go hub.Run()
	h.opts.Log.Info().Str("room", code).Msg("room opened")
	return hub, nil
}

func (h *Handlers) Hub(code string) *Hub {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hubs[code]
}

// Close stops every hub.
func (h *Handlers) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, hub := range h.hubs {
		hub.Stop()
	}
}

type roomInfo struct {
	Room    string `json:"room"`
	Clients int    `json:"clients"`
	JoinURL string `json:"join_url"`
}

// HandleRooms lists rooms on GET and opens a new one on POST.
func (h *Handlers) HandleRooms(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var out []roomInfo
		for _, code := range h.LobbyMgr.Codes() {
			info := roomInfo{Room: code, JoinURL: h.joinURL(r, code)}
			if hub := h.Hub(code); hub != nil {
				info.Clients = hub.ClientCount()
			}
			out = append(out, info)
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		hub, err := h.OpenRoom("")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, roomInfo{Room: hub.code, JoinURL: h.joinURL(r, hub.code)})
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleQR generates a QR code PNG for joining the room.
func (h *Handlers) HandleQR(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("room")
	if code == "" {
		http.Error(w, "missing room parameter", http.StatusBadRequest)
		return
	}
	if h.Hub(code) == nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	png, err := qr.Generate(h.joinURL(r, code))
	if err != nil {
		http.Error(w, "QR generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// HandleHistory returns recent finished games.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	games, err := h.opts.History.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if games == nil {
		games = []history.Game{}
	}
	writeJSON(w, http.StatusOK, games)
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

// HandleWS upgrades the connection and waits for the join handshake before
// handing the client to its room.
func (h *Handlers) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.opts.Log.Warn().Err(err).Msg("ws upgrade error")
		return
	}

	join, err := h.readHandshake(conn)
	if err != nil {
		h.opts.Log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("handshake rejected")
		rejectConn(conn, err)
		return
	}
	if want := r.URL.Query().Get("room"); want != "" && want != join.RoomCode {
		rejectConn(conn, fmt.Errorf("%w: %s", errRoomMismatch, join.RoomCode))
		return
	}
	hub := h.Hub(join.RoomCode)
	if hub == nil {
		rejectConn(conn, fmt.Errorf("%w: %s", errUnknownRoom, join.RoomCode))
		return
	}

	var limiter *rate.Limiter
	if cfg := h.opts.Config.Server; cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}
	client := NewClient(hub, conn, engine.Identity(join.DisplayName), limiter)
	go client.WritePump()
	if err := hub.Join(client); err != nil {
		return
	}
	go client.ReadPump()
}

func (h *Handlers) readHandshake(conn *websocket.Conn) (protocol.JoinMsg, error) {
	var join protocol.JoinMsg
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(handshakeWait))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return join, err
	}
	conn.SetReadDeadline(time.Time{})

	env, err := protocol.Parse(data)
	if err != nil {
		return join, err
	}
	if env.Type != protocol.MsgJoin {
		return join, errNotHandshake
	}
	if err := h.validator.Validate(env); err != nil {
		return join, err
	}
	return join, env.Decode(&join)
}

func rejectConn(conn *websocket.Conn, err error) {
	defer conn.Close()
	data, _ := json.Marshal(protocol.MustEnvelope(protocol.MsgError, protocol.ErrorMsg{Message: err.Error()}))
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if conn.WriteMessage(websocket.TextMessage, data) != nil {
		return
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
}

func (h *Handlers) joinURL(r *http.Request, code string) string {
	base := h.opts.Config.Server.PublicURL
	if base == "" {
		scheme := "ws"
		if r.TLS != nil {
			scheme = "wss"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/ws?room=" + url.QueryEscape(code)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
