package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestCommodity_PriceHistory(t *testing.T) {
	p := NewPool()
	aapl := p.FindOrCreate("AAPL")
	aapl.AddFlags(StyleNoMarket) // no quote fallback in this test

	aapl.AddPrice(day(10), mustAmount(t, p, "$10.00"))
	aapl.AddPrice(day(20), mustAmount(t, p, "$20.00"))
	aapl.AddPrice(day(15), mustAmount(t, p, "$15.00"))

	prices := aapl.Prices()
	require.Len(t, prices, 3)
	assert.True(t, prices[0].When.Before(prices[1].When))
	assert.True(t, prices[1].When.Before(prices[2].When))

	// greatest entry at-or-before the requested moment
	v, ok := aapl.Value(day(16))
	require.True(t, ok)
	assert.Equal(t, "$15.00", v.String())

	// exact hit
	v, ok = aapl.Value(day(20))
	require.True(t, ok)
	assert.Equal(t, "$20.00", v.String())

	// before the first entry there is no answer
	_, ok = aapl.Value(day(5))
	assert.False(t, ok)

	// zero moment means the latest entry
	v, ok = aapl.Value(time.Time{})
	require.True(t, ok)
	assert.Equal(t, "$20.00", v.String())

	// last write wins on duplicate timestamps
	aapl.AddPrice(day(15), mustAmount(t, p, "$16.00"))
	v, ok = aapl.Value(day(16))
	require.True(t, ok)
	assert.Equal(t, "$16.00", v.String())
	assert.Len(t, aapl.Prices(), 3)

	assert.True(t, aapl.RemovePrice(day(15)))
	assert.False(t, aapl.RemovePrice(day(15)))
	assert.Len(t, aapl.Prices(), 2)
}

func TestCommodity_QuoteFallback(t *testing.T) {
	p := NewPool()
	calls := 0
	p.OnQuote(func(c *Commodity, date, moment, last time.Time) *Amount {
		calls++
		if c.BaseSymbol() != "AAPL" {
			return nil
		}
		price := mustAmount(t, p, "$20.00")
		return &price
	})

	aapl := p.FindOrCreate("AAPL")
	v, ok := aapl.Value(day(10))
	require.True(t, ok)
	assert.Equal(t, "$20.00", v.String())
	assert.Equal(t, 1, calls, "the subscriber is consulted exactly once per miss")

	// the answer was recorded; the next lookup hits the history
	v, ok = aapl.Value(day(10))
	require.True(t, ok)
	assert.Equal(t, "$20.00", v.String())
	assert.Equal(t, 1, calls)
}

func TestCommodity_QuoteSubscriberOrder(t *testing.T) {
	p := NewPool()
	first := mustAmount(t, p, "$1.00")
	second := mustAmount(t, p, "$2.00")

	p.OnQuote(func(*Commodity, time.Time, time.Time, time.Time) *Amount { return nil })
	p.OnQuote(func(*Commodity, time.Time, time.Time, time.Time) *Amount { return &first })
	p.OnQuote(func(*Commodity, time.Time, time.Time, time.Time) *Amount { return &second })

	v, ok := p.FindOrCreate("XYZ").Value(time.Time{})
	require.True(t, ok)
	assert.Equal(t, "$1.00", v.String(), "the first non-nil answer wins")
}

func TestCommodity_NoMarket(t *testing.T) {
	p := NewPool()
	calls := 0
	p.OnQuote(func(*Commodity, time.Time, time.Time, time.Time) *Amount {
		calls++
		return nil
	})

	c := p.FindOrCreate("GIFT")
	c.AddFlags(StyleNoMarket)
	_, ok := c.Value(time.Time{})
	assert.False(t, ok)
	assert.Zero(t, calls, "no-market commodities never trigger lookups")
}

func TestAmount_Value(t *testing.T) {
	p := NewPool()
	mustAmount(t, p, "$0.01") // teach $ a precision of 2
	aapl := p.FindOrCreate("AAPL")
	aapl.AddFlags(StyleNoMarket)
	aapl.AddPrice(day(10), mustAmount(t, p, "$20"))

	a := mustAmount(t, p, "10 AAPL")
	v, ok := a.Value(day(10))
	require.True(t, ok)
	assert.Equal(t, "$200.00", v.String())
	assert.Same(t, p.Find("$"), v.Commodity(), "the result is in the price's commodity")

	// no price known for an unrelated commodity
	b := mustAmount(t, p, "3 XYZ")
	b.Commodity().AddFlags(StyleNoMarket)
	_, ok = b.Value(time.Time{})
	assert.False(t, ok)

	// the null amount has no value
	var null Amount
	_, ok = null.Value(time.Time{})
	assert.False(t, ok)
}
