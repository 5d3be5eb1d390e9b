package ledger

import (
	"fmt"
	"time"
)

// QuoteFunc is a quote-lookup subscriber. It is asked for the price of one
// unit of the commodity: date is the moment the caller wants a valuation for
// (zero means "now"), moment is the wall-clock time of the lookup, and last
// is the time of the previous lookup for this commodity (zero when none).
// A nil result means the subscriber has no quote; the pool then asks the
// next subscriber in registration order.
//
// The callback may block; the pool neither cancels nor times it out.
type QuoteFunc func(c *Commodity, date, moment, last time.Time) *Amount

// Pool owns every commodity handle it hands out, plain and annotated alike.
// Commodities are interned twice over: by dense numeric identifier and by
// mapping key. All creation goes through the pool; handles stay valid until
// the pool is dropped.
//
// A pool and everything referring to it belong to a single logical owner.
// Distinct pools may be used concurrently from distinct goroutines; sharing
// one pool across goroutines is outside the contract.
type Pool struct {
	byIdent []*Commodity
	byKey   map[string]*Commodity
	null    *Commodity
	def     *Commodity
	quotes  []QuoteFunc
}

// NewPool constructs an empty pool holding only the null commodity, the
// anonymous commodity of plain numeric amounts, at identifier 0.
func NewPool() *Pool {
	p := &Pool{byKey: make(map[string]*Commodity)}
	p.null = p.intern(&Commodity{
		base: &commodityBase{flags: StyleBuiltin | StyleNoMarket},
		pool: p,
	})
	return p
}

// intern assigns the next identifier and inserts into both indices.
func (p *Pool) intern(c *Commodity) *Commodity {
	c.ident = uint32(len(p.byIdent))
	p.byIdent = append(p.byIdent, c)
	p.byKey[c.MappingKey()] = c
	log.Debug().Str("symbol", c.Symbol()).Uint32("ident", c.ident).
		Bool("annotated", c.Annotated()).Msg("commodity interned")
	return c
}

// NullCommodity returns the pool's sentinel for "no commodity".
func (p *Pool) NullCommodity() *Commodity {
	return p.null
}

// DefaultCommodity returns the host-selected default commodity, or nil.
func (p *Pool) DefaultCommodity() *Commodity {
	return p.def
}

// SetDefaultCommodity selects the commodity adopted by contexts that need
// one when an amount carries none. It may be nil.
func (p *Pool) SetDefaultCommodity(c *Commodity) {
	p.def = c
}

// Create interns a fresh commodity for symbol.
//
// Create returns an error if the symbol is already interned.
func (p *Pool) Create(symbol string) (*Commodity, error) {
	if _, ok := p.byKey[symbol]; ok {
		return nil, fmt.Errorf("creating commodity %q: %w", symbol, ErrDuplicateSymbol)
	}
	c := &Commodity{
		base: &commodityBase{symbol: symbol},
		pool: p,
	}
	if SymbolNeedsQuotes(symbol) {
		c.qualifiedSymbol = `"` + symbol + `"`
	}
	return p.intern(c), nil
}

// Find returns the commodity interned under the given mapping key, or nil.
func (p *Pool) Find(symbol string) *Commodity {
	return p.byKey[symbol]
}

// FindByIdent returns the commodity with the given identifier, or nil.
func (p *Pool) FindByIdent(ident uint32) *Commodity {
	if int(ident) >= len(p.byIdent) {
		return nil
	}
	return p.byIdent[ident]
}

// FindOrCreate returns the commodity for symbol, interning it on first use.
func (p *Pool) FindOrCreate(symbol string) *Commodity {
	if c, ok := p.byKey[symbol]; ok {
		return c
	}
	c, err := p.Create(symbol)
	if err != nil {
		// The symbol was checked above; creation cannot fail.
		panic(err)
	}
	return c
}

// annotatedMappingKey renders the canonical pool index key for an annotated
// variant: the base symbol followed by the annotation with price, date and
// tag in fixed order.
func annotatedMappingKey(base string, details Annotation) string {
	return base + details.String()
}

// CreateAnnotated interns an annotated variant of symbol, interning the
// plain commodity first when absent.
//
// CreateAnnotated returns an error if the same symbol-and-annotation pair is
// already interned, or if the annotation is empty.
func (p *Pool) CreateAnnotated(symbol string, details Annotation) (*Commodity, error) {
	if details.IsZero() {
		return nil, fmt.Errorf("annotating commodity %q: empty annotation: %w", symbol, ErrInvalidState)
	}
	plain := p.FindOrCreate(symbol)
	return p.createAnnotatedOf(plain, details)
}

func (p *Pool) createAnnotatedOf(plain *Commodity, details Annotation) (*Commodity, error) {
	key := annotatedMappingKey(plain.BaseSymbol(), details)
	if _, ok := p.byKey[key]; ok {
		return nil, fmt.Errorf("creating commodity %q: %w", key, ErrDuplicateSymbol)
	}
	d := details
	c := &Commodity{
		base:            plain.base,
		pool:            p,
		qualifiedSymbol: plain.qualifiedSymbol,
		mappingKey:      key,
		details:         &d,
		referent:        plain,
	}
	return p.intern(c), nil
}

// FindAnnotated returns the annotated variant for the symbol-and-annotation
// pair, or nil.
func (p *Pool) FindAnnotated(symbol string, details Annotation) *Commodity {
	return p.byKey[annotatedMappingKey(symbol, details)]
}

// FindOrCreateAnnotated returns the annotated variant for the pair,
// interning plain commodity and variant as needed. Equal annotations always
// resolve to the same handle.
//
// FindOrCreateAnnotated returns an error if the annotation is empty.
func (p *Pool) FindOrCreateAnnotated(symbol string, details Annotation) (*Commodity, error) {
	if details.IsZero() {
		return nil, fmt.Errorf("annotating commodity %q: empty annotation: %w", symbol, ErrInvalidState)
	}
	plain := p.FindOrCreate(symbol)
	return p.findOrCreateAnnotatedOf(plain, details)
}

func (p *Pool) findOrCreateAnnotatedOf(plain *Commodity, details Annotation) (*Commodity, error) {
	if c, ok := p.byKey[annotatedMappingKey(plain.BaseSymbol(), details)]; ok {
		return c, nil
	}
	return p.createAnnotatedOf(plain, details)
}

// ParseAmount parses an amount against this pool. See [ParseAmount] and
// [ParseFlags] for the accepted forms and the commodity migration the parse
// performs.
func (p *Pool) ParseAmount(s string, flags ParseFlags) (Amount, error) {
	var a Amount
	if err := a.parse(p, s, flags); err != nil {
		return Amount{}, err
	}
	return a, nil
}

// OnQuote appends a quote-lookup subscriber. Subscribers are consulted in
// registration order; the first non-nil answer wins. Registration is part of
// pool construction and is not serialized with the pool.
func (p *Pool) OnQuote(f QuoteFunc) {
	p.quotes = append(p.quotes, f)
}

// getQuote dispatches to the subscriber list, returning the first non-nil
// quote, or nil when no subscriber answers.
func (p *Pool) getQuote(c *Commodity, date, moment, last time.Time) *Amount {
	for _, f := range p.quotes {
		if a := f(c, date, moment, last); a != nil {
			log.Debug().Str("symbol", c.Symbol()).Time("date", date).
				Str("price", a.String()).Msg("quote answered")
			return a
		}
	}
	return nil
}

// Process-wide defaults. DefaultPool backs the pool-less Parse entry points;
// the keep toggles select which lot details survive [Amount.StripAnnotations]
// when the caller does not say; KeepBase inhibits the display-time unreduce
// of scaling commodities; FullStrings switches [Amount.String] to full
// internal precision.
//
// Hosts that prefer explicit context can ignore DefaultPool and thread a
// *Pool through their code. The toggles are read by amounts of every pool:
// the keep toggles also decide compatibility in Add, Sub and Cmp.
var (
	DefaultPool *Pool

	KeepPrice   bool
	KeepDate    bool
	KeepTag     bool
	KeepBase    bool
	FullStrings bool
)

// Initialize readies the amount subsystem: it installs a fresh DefaultPool.
// Hosts call it once at startup.
func Initialize() {
	DefaultPool = NewPool()
}

// Shutdown releases the DefaultPool. Amounts referring to it must not be
// used afterwards.
func Shutdown() {
	DefaultPool = nil
}
