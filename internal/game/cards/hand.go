package cards

// Hand is the ordered collection of cards held by the seekers.
type Hand []Card

// Find returns the index of the card with id, or -1.
func (h Hand) Find(id string) int {
	for i, c := range h {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Contains reports whether every id is in the hand.
func (h Hand) Contains(ids ...string) bool {
	for _, id := range ids {
		if h.Find(id) < 0 {
			return false
		}
	}
	return true
}

// Remove takes the card with id out of the hand.
func (h *Hand) Remove(id string) (Card, bool) {
	idx := h.Find(id)
	if idx < 0 {
		return Card{}, false
	}
	c := (*h)[idx]
	*h = append((*h)[:idx:idx], (*h)[idx+1:]...)
	return c, true
}

// RemoveAt takes the card at index i out of the hand.
func (h *Hand) RemoveAt(i int) Card {
	c := (*h)[i]
	*h = append((*h)[:i:i], (*h)[i+1:]...)
	return c
}

// Clone returns an independent copy.
func (h Hand) Clone() Hand {
	if h == nil {
		return nil
	}
	out := make(Hand, len(h))
	copy(out, h)
	return out
}

// DiscardPile is append-only.
type DiscardPile []DiscardEntry

// Clone returns an independent copy.
func (p DiscardPile) Clone() DiscardPile {
	if p == nil {
		return nil
	}
	out := make(DiscardPile, len(p))
	for i, e := range p {
		out[i] = e
		if e.Nodes != nil {
			out[i].Nodes = append([]string(nil), e.Nodes...)
		}
		if e.Dropped != nil {
			out[i].Dropped = append([]Card(nil), e.Dropped...)
		}
	}
	return out
}
