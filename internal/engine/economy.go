package engine

import "fmt"

// SaleRefund is what a seller gets back: 80% of cost, rounded up.
func SaleRefund(cost int) int {
	return (cost*4 + 4) / 5
}

// Purchase debits buyer and hands them an unowned ownable tile. Cash may go
// negative.
func (s *Session) Purchase(tileID TileID, buyerID PlayerID) error {
	t, err := s.tile(tileID)
	if err != nil {
		return err
	}
	buyer, err := s.player(buyerID)
	if err != nil {
		return err
	}
	if !t.Ownable() || t.Tier != TierNone {
		return fmt.Errorf("%w: tile %d", ErrNotPurchasable, t.ID)
	}
	buyer.Cash -= t.Cost
	t.Tier = TierOwned
	t.Owner = buyer.ID
	return nil
}

// Sell returns a tile to the bank and refunds its seller.
func (s *Session) Sell(tileID TileID, sellerID PlayerID) error {
	t, err := s.tile(tileID)
	if err != nil {
		return err
	}
	seller, err := s.player(sellerID)
	if err != nil {
		return err
	}
	if t.Owner != seller.ID {
		return fmt.Errorf("%w: tile %d", ErrNotOwner, t.ID)
	}
	seller.Cash += SaleRefund(t.Cost)
	t.release()
	return nil
}

// Rent charges occupant the tile's cost and pays it to the owner. It is a
// no-op on unowned tiles and on the occupant's own tiles.
func (s *Session) Rent(tileID TileID, occupantID PlayerID) (paid bool, err error) {
	t, err := s.tile(tileID)
	if err != nil {
		return false, err
	}
	occupant, err := s.player(occupantID)
	if err != nil {
		return false, err
	}
	if t.Tier == TierNone || t.Owner == occupant.ID {
		return false, nil
	}
	owner, err := s.player(t.Owner)
	if err != nil {
		return false, fmt.Errorf("owner of tile %d: %w", t.ID, err)
	}
	occupant.Cash -= t.Cost
	owner.Cash += t.Cost
	return true, nil
}

// PassStart grants the lap bonus.
func (s *Session) PassStart(p *Player) {
	p.Cash += s.Config.PassStartBonus
}

// OwnedBy lists the tiles held by a player, in ring order.
func (s *Session) OwnedBy(id PlayerID) []*Tile {
	var out []*Tile
	for _, t := range s.Tiles {
		if t.Owner == id {
			out = append(out, t)
		}
	}
	return out
}

// releaseAll hands every tile the player holds back to the bank.
func (s *Session) releaseAll(id PlayerID) []TileID {
	var released []TileID
	for _, t := range s.OwnedBy(id) {
		t.release()
		released = append(released, t.ID)
	}
	return released
}
