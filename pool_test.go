package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_New(t *testing.T) {
	p := NewPool()

	require.NotNil(t, p.NullCommodity())
	assert.Equal(t, uint32(0), p.NullCommodity().Ident())
	assert.True(t, p.NullCommodity().IsNull())
	assert.Nil(t, p.DefaultCommodity())
}

func TestPool_CreateFind(t *testing.T) {
	p := NewPool()

	usd, err := p.Create("$")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), usd.Ident())
	assert.Equal(t, "$", usd.Symbol())
	assert.Same(t, usd, p.Find("$"))
	assert.Same(t, usd, p.FindByIdent(1))

	eur, err := p.Create("EUR")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), eur.Ident())

	_, err = p.Create("$")
	assert.ErrorIs(t, err, ErrDuplicateSymbol)

	assert.Nil(t, p.Find("GBP"))
	assert.Nil(t, p.FindByIdent(99))
}

func TestPool_FindOrCreate(t *testing.T) {
	p := NewPool()

	a := p.FindOrCreate("AAPL")
	b := p.FindOrCreate("AAPL")
	assert.Same(t, a, b)
	assert.Len(t, p.byIdent, 2) // null + AAPL
}

func TestPool_QuotedSymbol(t *testing.T) {
	p := NewPool()

	c := p.FindOrCreate("DE 0001")
	assert.Equal(t, "DE 0001", c.BaseSymbol())
	assert.Equal(t, `"DE 0001"`, c.Symbol())
	assert.True(t, SymbolNeedsQuotes("DE 0001"))
	assert.False(t, SymbolNeedsQuotes("EUR"))
	assert.True(t, SymbolNeedsQuotes("X2"))
	assert.True(t, SymbolNeedsQuotes("A@B"))
}

func TestPool_Annotated(t *testing.T) {
	p := NewPool()
	price := mustAmount(t, p, "$20.00")
	details := Annotation{Price: &price}

	ann, err := p.FindOrCreateAnnotated("AAPL", details)
	require.NoError(t, err)
	assert.True(t, ann.Annotated())

	plain := p.Find("AAPL")
	require.NotNil(t, plain, "the plain commodity is interned first")
	assert.Same(t, plain, ann.Referent())
	assert.Same(t, plain.base, ann.base, "annotated variants share the base")

	// interning is idempotent for equal annotations
	price2 := mustAmount(t, p, "$20.00")
	again, err := p.FindOrCreateAnnotated("AAPL", Annotation{Price: &price2})
	require.NoError(t, err)
	assert.Same(t, ann, again)

	// distinct annotations intern distinct handles
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	other, err := p.FindOrCreateAnnotated("AAPL", Annotation{Price: &price, Date: date})
	require.NoError(t, err)
	assert.NotSame(t, ann, other)
	assert.False(t, ann.Equal(other))

	// metadata changes through one handle are visible through the other
	plain.SetPrecision(4)
	assert.Equal(t, 4, ann.Precision())

	_, err = p.FindOrCreateAnnotated("AAPL", Annotation{})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestPool_AnnotatedEquality(t *testing.T) {
	p := NewPool()
	price := mustAmount(t, p, "$20.00")

	a, err := p.FindOrCreateAnnotated("AAPL", Annotation{Price: &price})
	require.NoError(t, err)
	plain := p.Find("AAPL")

	assert.False(t, a.Equal(plain), "annotated never equals plain")
	assert.False(t, plain.Equal(a))
	assert.True(t, a.Equal(a))
	assert.True(t, plain.Equal(plain))
}

func TestPool_StripAnnotations(t *testing.T) {
	p := NewPool()
	a := mustAmount(t, p, "10 AAPL {$20.00} [2024-03-01] (lot-a)")

	stripped, err := a.StripAnnotationsKeeping(false, false, false)
	require.NoError(t, err)
	assert.False(t, stripped.Annotated())
	assert.Same(t, p.Find("AAPL"), stripped.Commodity())

	priceOnly, err := a.StripAnnotationsKeeping(true, false, false)
	require.NoError(t, err)
	require.True(t, priceOnly.Annotated())
	d := priceOnly.Annotation()
	assert.NotNil(t, d.Price)
	assert.True(t, d.Date.IsZero())
	assert.Empty(t, d.Tag)

	// stripping is idempotent for a fixed subset
	priceOnly2, err := priceOnly.StripAnnotationsKeeping(true, false, false)
	require.NoError(t, err)
	assert.Same(t, priceOnly.Commodity(), priceOnly2.Commodity())
	assert.True(t, priceOnly.Equal(priceOnly2))
}

func TestPool_DefaultPoolLifecycle(t *testing.T) {
	Initialize()
	defer Shutdown()

	require.NotNil(t, DefaultPool)
	a, err := ParseAmount("$1.50")
	require.NoError(t, err)
	assert.Equal(t, "$1.50", a.String())

	e, err := Exact("$1.505")
	require.NoError(t, err)
	assert.Equal(t, "$1.505", e.String())

	Shutdown()
	require.Nil(t, DefaultPool)
	_, err = ParseAmount("$1.50")
	assert.ErrorIs(t, err, ErrInvalidState)
}
