package engine

// PlayerView is the public summary of one player.
type PlayerView struct {
	ID       PlayerID `json:"id"`
	Identity Identity `json:"identity"`
	Cash     int      `json:"cash"`
	Position int      `json:"position"`
	NetWorth int      `json:"net_worth"`
	Tiles    []TileID `json:"tiles"`
}

// PublicViewData is the game state every connection may see.
type PublicViewData struct {
	Phase   string       `json:"phase"`
	Game    int          `json:"game"`
	Turn    int          `json:"turn"`
	Current Identity     `json:"current,omitempty"`
	Players []PlayerView `json:"players"`
	Tiles   []*Tile      `json:"tiles,omitempty"`
	Waiting []Identity   `json:"waiting,omitempty"`
	Pending []Identity   `json:"pending,omitempty"` // reset acks still missing
}

func (s *Session) PublicView() PublicViewData {
	pv := PublicViewData{
		Phase:   s.Phase.String(),
		Game:    s.Game,
		Turn:    s.Turn.Count,
		Players: s.playerViews(),
		Tiles:   s.Tiles,
		Waiting: append([]Identity(nil), s.Bankrupt...),
	}
	if p := s.CurrentPlayer(); p != nil {
		pv.Current = p.Identity
	}
	if s.Phase == PhaseResetting {
		pv.Pending = s.Pending()
	}
	return pv
}

func (s *Session) playerViews() []PlayerView {
	out := make([]PlayerView, 0, len(s.Players))
	for _, p := range s.Players {
		owned := s.OwnedBy(p.ID)
		ids := make([]TileID, len(owned))
		for i, t := range owned {
			ids[i] = t.ID
		}
		out = append(out, PlayerView{
			ID:       p.ID,
			Identity: p.Identity,
			Cash:     p.Cash,
			Position: p.Position,
			NetWorth: s.NetWorth(p),
			Tiles:    ids,
		})
	}
	return out
}
