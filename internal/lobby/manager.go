package lobby

import (
	"crypto/rand"
	"encoding/hex"
	"sort"
	"sync"
)

// Manager manages the lobbies of every room, keyed by room code.
type Manager struct {
	mu         sync.Mutex
	lobbies    map[string]*Lobby
	minPlayers int
	maxPlayers int
}

func NewManager(minPlayers, maxPlayers int) *Manager {
	return &Manager{
		lobbies:    make(map[string]*Lobby),
		minPlayers: minPlayers,
		maxPlayers: maxPlayers,
	}
}

// Create creates a new lobby and returns its code.
func (m *Manager) Create() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	code := generateCode()
	for m.lobbies[code] != nil {
		code = generateCode()
	}
	m.lobbies[code] = NewLobby(code, m.minPlayers, m.maxPlayers)
	return code
}

// Ensure returns the lobby for code, creating it if needed. It reports
// whether the lobby is new.
func (m *Manager) Ensure(code string) (*Lobby, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.lobbies[code]; ok {
		return l, false
	}
	l := NewLobby(code, m.minPlayers, m.maxPlayers)
	m.lobbies[code] = l
	return l, true
}

// Get returns a lobby by code.
func (m *Manager) Get(code string) *Lobby {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lobbies[code]
}

// Codes lists every room code in sorted order.
func (m *Manager) Codes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.lobbies))
	for code := range m.lobbies {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func generateCode() string {
	b := make([]byte, 3)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
