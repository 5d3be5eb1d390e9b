package ledger

import (
	"sort"
	"time"
)

// PricePoint is one entry of a commodity's price history: the price of one
// unit of the commodity at a given moment, denominated in another commodity.
type PricePoint struct {
	When  time.Time
	Price Amount
}

// priceHistory is the ordered price record shared through a commodity base.
// Entries are unique per timestamp; lastLookup remembers when a quote
// subscriber was last consulted.
type priceHistory struct {
	prices     []PricePoint
	lastLookup time.Time
}

// search returns the index of the first entry at or after when.
func (h *priceHistory) search(when time.Time) int {
	return sort.Search(len(h.prices), func(i int) bool {
		return !h.prices[i].When.Before(when)
	})
}

func (h *priceHistory) add(when time.Time, price Amount) {
	i := h.search(when)
	if i < len(h.prices) && h.prices[i].When.Equal(when) {
		h.prices[i].Price = price
		return
	}
	h.prices = append(h.prices, PricePoint{})
	copy(h.prices[i+1:], h.prices[i:])
	h.prices[i] = PricePoint{When: when, Price: price}
}

func (h *priceHistory) remove(when time.Time) bool {
	i := h.search(when)
	if i == len(h.prices) || !h.prices[i].When.Equal(when) {
		return false
	}
	h.prices = append(h.prices[:i], h.prices[i+1:]...)
	return true
}

// at returns the price with the greatest timestamp not after when; a zero
// when asks for the latest entry.
func (h *priceHistory) at(when time.Time) (Amount, bool) {
	if h == nil || len(h.prices) == 0 {
		return Amount{}, false
	}
	if when.IsZero() {
		return h.prices[len(h.prices)-1].Price, true
	}
	i := h.search(when)
	if i < len(h.prices) && h.prices[i].When.Equal(when) {
		return h.prices[i].Price, true
	}
	if i == 0 {
		return Amount{}, false
	}
	return h.prices[i-1].Price, true
}

// AddPrice records the price of one unit of the commodity at the given
// moment. A second price at the same moment replaces the first.
func (c *Commodity) AddPrice(when time.Time, price Amount) {
	if c.base.history == nil {
		c.base.history = &priceHistory{}
	}
	c.base.history.add(when, price)
	log.Debug().Str("symbol", c.Symbol()).Time("when", when).
		Str("price", price.String()).Msg("price recorded")
}

// RemovePrice deletes the history entry at the given moment, reporting
// whether one existed.
func (c *Commodity) RemovePrice(when time.Time) bool {
	if c.base.history == nil {
		return false
	}
	return c.base.history.remove(when)
}

// Prices returns a copy of the recorded history in timestamp order.
func (c *Commodity) Prices() []PricePoint {
	if c.base.history == nil {
		return nil
	}
	return append([]PricePoint(nil), c.base.history.prices...)
}

// Value returns the price of one unit of the commodity at the given moment:
// the history entry with the greatest timestamp not after when, or the
// latest entry when when is zero. When the history has no answer the pool's
// quote subscribers are consulted once, the answer (if any) is recorded into
// the history, and the lookup time is remembered. Commodities flagged
// [StyleNoMarket] never trigger quote lookups.
//
// The second return is false when no price is known.
func (c *Commodity) Value(when time.Time) (Amount, bool) {
	if p, ok := c.base.history.at(when); ok {
		return p, true
	}
	if c.base.flags&StyleNoMarket != 0 {
		return Amount{}, false
	}
	if c.base.history == nil {
		c.base.history = &priceHistory{}
	}
	h := c.base.history
	now := time.Now()
	price := c.pool.getQuote(c, when, now, h.lastLookup)
	h.lastLookup = now
	if price == nil {
		return Amount{}, false
	}
	at := when
	if at.IsZero() {
		at = now
	}
	h.add(at, *price)
	return *price, true
}
