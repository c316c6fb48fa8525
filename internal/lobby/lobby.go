package lobby

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrDuplicateName = errors.New("display name already taken")
	ErrRoomFull      = errors.New("room is full")
	ErrEmptyName     = errors.New("display name is empty")
)

// PlayerInfo holds lobby-level player information.
type PlayerInfo struct {
	Name  string
	Ready bool
}

// Lobby is the roster of display names connected to one room.
type Lobby struct {
	mu         sync.Mutex
	Code       string
	Players    []*PlayerInfo
	MaxPlayers int
	MinPlayers int
}

// NewLobby creates a new lobby.
func NewLobby(code string, minPlayers, maxPlayers int) *Lobby {
	return &Lobby{
		Code:       code,
		MaxPlayers: maxPlayers,
		MinPlayers: minPlayers,
	}
}

// Join adds a display name to the room. Names are unique per room.
func (l *Lobby) Join(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if name == "" {
		return ErrEmptyName
	}
	if l.MaxPlayers > 0 && len(l.Players) >= l.MaxPlayers {
		return fmt.Errorf("%w: %d players", ErrRoomFull, l.MaxPlayers)
	}
	for _, p := range l.Players {
		if p.Name == name {
			return fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
	}
	l.Players = append(l.Players, &PlayerInfo{Name: name})
	return nil
}

// Leave removes a player from the lobby.
func (l *Lobby) Leave(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, p := range l.Players {
		if p.Name == name {
			l.Players = append(l.Players[:i], l.Players[i+1:]...)
			return
		}
	}
}

// SetReady sets a player's ready state.
func (l *Lobby) SetReady(name string, ready bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range l.Players {
		if p.Name == name {
			p.Ready = ready
			return
		}
	}
}

// CanStart returns true if enough players are ready.
func (l *Lobby) CanStart() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.Players) < l.MinPlayers {
		return false
	}
	for _, p := range l.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// ClearReady resets every ready flag, for when a room falls back to the lobby.
func (l *Lobby) ClearReady() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range l.Players {
		p.Ready = false
	}
}

// GetPlayers returns a copy of the player list.
func (l *Lobby) GetPlayers() []PlayerInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]PlayerInfo, len(l.Players))
	for i, p := range l.Players {
		out[i] = *p
	}
	return out
}
