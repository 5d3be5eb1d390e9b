package ledger

import (
	"strings"
	"unicode"
)

// Style is the bitset of display conventions learned for a commodity.
// The bit assignments are part of the serialized form and must not change.
type Style uint16

const (
	// StyleSuffixed marks a commodity printed after the number ("100 EUR").
	StyleSuffixed Style = 0x0001
	// StyleSeparated marks whitespace between number and commodity.
	StyleSeparated Style = 0x0002
	// StyleEuropean marks "," as the decimal mark and "." as thousands mark.
	StyleEuropean Style = 0x0004
	// StyleThousands marks that thousands separators were observed.
	StyleThousands Style = 0x0008
	// StyleNoMarket suppresses automatic quote lookups for the commodity.
	StyleNoMarket Style = 0x0010
	// StyleBuiltin marks a commodity installed by the host rather than
	// learned from input.
	StyleBuiltin Style = 0x0020
)

// commodityBase is the metadata shared by a commodity and all of its
// annotated variants. It is owned by the pool and mutated by parse paths as
// further occurrences of the symbol refine precision and style.
type commodityBase struct {
	symbol    string
	precision int
	flags     Style
	name      string
	note      string
	history   *priceHistory
	smaller   *Amount
	larger    *Amount
}

// Commodity is a handle to an interned unit label: a currency, a stock
// ticker, a time unit. Handles are created only by a [Pool] and remain valid
// for the pool's lifetime. The display metadata lives in a base shared with
// every annotated variant of the same symbol, so widening the display
// precision of "$" is visible through "$ {lot}" handles too.
//
// An annotated commodity additionally carries lot details and a referent:
// the plain commodity sharing its base. See [Commodity.Annotated].
type Commodity struct {
	base            *commodityBase
	pool            *Pool
	ident           uint32
	qualifiedSymbol string
	mappingKey      string

	// non-nil only for annotated variants
	details  *Annotation
	referent *Commodity
}

// reserved punctuation that forces a symbol into quoted form.
const quotedSymbolRunes = ".,;:?!-+*/^&|=<>{}[]()@"

// SymbolNeedsQuotes reports whether a symbol must be written in double
// quotes to parse unambiguously: any digit, whitespace, or reserved
// punctuation triggers quoting.
func SymbolNeedsQuotes(symbol string) bool {
	return strings.ContainsFunc(symbol, func(r rune) bool {
		return unicode.IsDigit(r) || unicode.IsSpace(r) ||
			strings.ContainsRune(quotedSymbolRunes, r)
	})
}

// Ident returns the commodity's unique identifier within its pool.
// Identifiers are dense and monotonic; the null commodity is always 0.
func (c *Commodity) Ident() uint32 {
	return c.ident
}

// Pool returns the owning pool.
func (c *Commodity) Pool() *Pool {
	return c.pool
}

// IsNull reports whether c is its pool's null commodity, the anonymous
// commodity carried by plain numeric amounts.
func (c *Commodity) IsNull() bool {
	return c == nil || c == c.pool.null
}

// BaseSymbol returns the symbol as interned, without quoting.
func (c *Commodity) BaseSymbol() string {
	return c.base.symbol
}

// Symbol returns the display symbol: the quoted form when the base symbol
// needs quotes, the base symbol otherwise.
func (c *Commodity) Symbol() string {
	if c.qualifiedSymbol != "" {
		return c.qualifiedSymbol
	}
	return c.base.symbol
}

// MappingKey returns the string under which the commodity is indexed in its
// pool. For plain commodities this is the base symbol; for annotated ones it
// is the canonical symbol-plus-annotation rendering.
func (c *Commodity) MappingKey() string {
	if c.mappingKey != "" {
		return c.mappingKey
	}
	return c.base.symbol
}

// Precision returns the display precision: the number of fractional digits
// printed for amounts of this commodity.
func (c *Commodity) Precision() int {
	return c.base.precision
}

// SetPrecision sets the display precision on the shared base.
func (c *Commodity) SetPrecision(prec int) {
	c.base.precision = prec
}

// StyleFlags returns the commodity's display style bits.
func (c *Commodity) StyleFlags() Style {
	return c.base.flags
}

// SetStyleFlags replaces the style bits on the shared base.
func (c *Commodity) SetStyleFlags(flags Style) {
	c.base.flags = flags
}

// AddFlags ORs the given style bits into the shared base.
func (c *Commodity) AddFlags(flags Style) {
	c.base.flags |= flags
}

// DropFlags clears the given style bits on the shared base.
func (c *Commodity) DropFlags(flags Style) {
	c.base.flags &^= flags
}

// Name returns the commodity's long name, if one was set.
func (c *Commodity) Name() string {
	return c.base.name
}

// SetName sets the long name on the shared base.
func (c *Commodity) SetName(name string) {
	c.base.name = name
}

// Note returns the free-form note, if one was set.
func (c *Commodity) Note() string {
	return c.base.note
}

// SetNote sets the free-form note on the shared base.
func (c *Commodity) SetNote(note string) {
	c.base.note = note
}

// Smaller returns the amount linking this unit to the next smaller scale
// (for minutes, "60s"), or nil when the commodity does not scale down.
func (c *Commodity) Smaller() *Amount {
	return c.base.smaller
}

// SetSmaller installs the link to the next smaller scale.
func (c *Commodity) SetSmaller(a *Amount) {
	c.base.smaller = a
}

// Larger returns the amount linking this unit to the next larger scale
// (for seconds, "60m"), or nil when the commodity does not scale up.
func (c *Commodity) Larger() *Amount {
	return c.base.larger
}

// SetLarger installs the link to the next larger scale.
func (c *Commodity) SetLarger(a *Amount) {
	c.base.larger = a
}

// Annotated reports whether c is an annotated variant carrying lot details.
func (c *Commodity) Annotated() bool {
	return c.details != nil
}

// Details returns the lot annotation. For a plain commodity it is empty.
func (c *Commodity) Details() Annotation {
	if c.details == nil {
		return Annotation{}
	}
	return *c.details
}

// Referent returns the plain commodity sharing this variant's base. For a
// plain commodity, Referent returns the commodity itself.
func (c *Commodity) Referent() *Commodity {
	if c.referent != nil {
		return c.referent
	}
	return c
}

// Equal reports commodity identity as the arithmetic paths see it: two
// plain commodities are equal iff they share a base; two annotated ones iff
// their referents are equal and their annotations are equal. An annotated
// commodity is never equal to a plain one, even over the same base.
func (c *Commodity) Equal(o *Commodity) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.Annotated() != o.Annotated() {
		return false
	}
	if c.Annotated() {
		return c.referent.Equal(o.referent) && c.details.Equal(*o.details)
	}
	return c.base == o.base
}

// Valid reports whether the handle satisfies its structural invariants.
func (c *Commodity) Valid() bool {
	if c == nil || c.base == nil || c.pool == nil {
		return false
	}
	if c.Annotated() {
		return c.referent != nil && c.referent.base == c.base && !c.details.IsZero()
	}
	return c.referent == nil
}

// String returns the display symbol.
func (c *Commodity) String() string {
	return c.Symbol()
}
