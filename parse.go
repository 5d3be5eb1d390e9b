package ledger

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// ParseFlags alter how [Pool.ParseAmount] observes what it reads.
type ParseFlags uint8

const (
	// ParseNoMigrate leaves the commodity's display metadata untouched:
	// observed precision and style are not recorded.
	ParseNoMigrate ParseFlags = 0x01
	// ParseNoReduce suppresses the automatic [Amount.Reduce] of the result.
	ParseNoReduce ParseFlags = 0x02

	// parseNoWiden records observed style flags but not the observed
	// precision. Conversion definitions like "1.0m" use it so the written
	// precision does not become the unit's display precision.
	parseNoWiden ParseFlags = 0x80
)

// ParseAmount parses an amount such as "$100.00", "1.000,00 EUR" or
// "10 AAPL {$20.00} [2024-03-01] (lot)" against the [DefaultPool],
// interning the commodity and teaching it the observed display style.
// See [Pool.ParseAmount] for parsing against an explicit pool.
//
// ParseAmount returns an error if the DefaultPool is not initialized or the
// input is malformed.
func ParseAmount(s string) (Amount, error) {
	if DefaultPool == nil {
		return Amount{}, fmt.Errorf("parsing %q: no default pool: %w", s, ErrInvalidState)
	}
	return DefaultPool.ParseAmount(s, 0)
}

// Exact parses like [ParseAmount] but with [ParseNoMigrate], and marks the
// result to print at full internal precision: Exact("$100.005") prints as
// "$100.005" even while "$" displays two digits.
func Exact(s string) (Amount, error) {
	if DefaultPool == nil {
		return Amount{}, fmt.Errorf("parsing %q: no default pool: %w", s, ErrInvalidState)
	}
	return DefaultPool.ParseExact(s)
}

// ParseExact parses like [Pool.ParseAmount] with [ParseNoMigrate] and marks
// the result to print at full internal precision.
func (p *Pool) ParseExact(s string) (Amount, error) {
	a, err := p.ParseAmount(s, ParseNoMigrate)
	if err != nil {
		return Amount{}, err
	}
	return a.Unround(), nil
}

// ParseConversion records a scaling relationship between two commodities
// against the DefaultPool. See [Pool.ParseConversion].
func ParseConversion(larger, smaller string) error {
	if DefaultPool == nil {
		return fmt.Errorf("parsing conversion: no default pool: %w", ErrInvalidState)
	}
	return DefaultPool.ParseConversion(larger, smaller)
}

// ParseConversion records a scaling relationship between two commodities,
// e.g. ParseConversion("1.0h", "60m"): the larger unit's commodity learns
// its smaller link and the smaller unit's commodity the corresponding
// larger link, enabling [Amount.Reduce] and [Amount.Unreduce]. The larger
// commodity also inherits the smaller one's style flags and is marked
// [StyleNoMarket].
func (p *Pool) ParseConversion(larger, smaller string) error {
	lg, err := p.ParseAmount(larger, ParseNoReduce|parseNoWiden)
	if err != nil {
		return fmt.Errorf("parsing conversion %q: %w", larger, err)
	}
	sm, err := p.ParseAmount(smaller, ParseNoReduce|parseNoWiden)
	if err != nil {
		return fmt.Errorf("parsing conversion %q: %w", smaller, err)
	}
	lg = lg.Mul(sm.Number())
	if lc := lg.Commodity(); lc != nil {
		lc.SetSmaller(&sm)
		var smFlags Style
		if sc := sm.Commodity(); sc != nil {
			smFlags = sc.StyleFlags()
		}
		lc.AddFlags(smFlags | StyleNoMarket)
	}
	if sc := sm.Commodity(); sc != nil {
		sc.SetLarger(&lg)
	}
	return nil
}

// scanner is a minimal cursor over the input string.
type scanner struct {
	s string
	i int
}

func (sc *scanner) eof() bool {
	return sc.i >= len(sc.s)
}

func (sc *scanner) peek() rune {
	if sc.eof() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(sc.s[sc.i:])
	return r
}

func (sc *scanner) next() rune {
	r, n := utf8.DecodeRuneInString(sc.s[sc.i:])
	sc.i += n
	return r
}

// skipSpace advances past whitespace, reporting whether any was consumed.
func (sc *scanner) skipSpace() bool {
	seen := false
	for !sc.eof() && unicode.IsSpace(sc.peek()) {
		sc.next()
		seen = true
	}
	return seen
}

func isBareSymbolRune(r rune) bool {
	return !unicode.IsDigit(r) && !unicode.IsSpace(r) &&
		!strings.ContainsRune(quotedSymbolRunes, r)
}

// scanSymbol reads a quoted or bare commodity symbol. The returned symbol
// is unquoted; an empty string means no symbol was present.
func (sc *scanner) scanSymbol() (string, error) {
	if sc.peek() == '"' {
		sc.next()
		start := sc.i
		for !sc.eof() && sc.peek() != '"' {
			sc.next()
		}
		if sc.eof() {
			return "", fmt.Errorf("unterminated quoted symbol: %w", ErrParse)
		}
		sym := sc.s[start:sc.i]
		sc.next()
		if sym == "" {
			return "", fmt.Errorf("empty quoted symbol: %w", ErrParse)
		}
		return sym, nil
	}
	start := sc.i
	for !sc.eof() && isBareSymbolRune(sc.peek()) {
		sc.next()
	}
	return sc.s[start:sc.i], nil
}

// quantity is the result of scanning a number token.
type quantity struct {
	intpart  string // integer digits, separators stripped
	fracpart string // fractional digits
	style    Style  // European/thousands bits observed
}

// scanQuantity reads digits possibly interleaved with "." and "," marks and
// decides which mark is the decimal point: when both appear, the one
// occurring last; a lone "." is a decimal point; a lone "," is a thousands
// mark when followed by exactly three digits, a decimal point otherwise.
func (sc *scanner) scanQuantity() (quantity, error) {
	start := sc.i
	for !sc.eof() {
		r := sc.peek()
		if unicode.IsDigit(r) || r == '.' || r == ',' {
			sc.next()
			continue
		}
		break
	}
	raw := sc.s[start:sc.i]
	if raw == "" {
		return quantity{}, fmt.Errorf("expected a quantity: %w", ErrParse)
	}
	if !strings.ContainsAny(raw, "0123456789") {
		return quantity{}, fmt.Errorf("quantity %q has no digits: %w", raw, ErrParse)
	}

	lastDot := strings.LastIndexByte(raw, '.')
	lastComma := strings.LastIndexByte(raw, ',')
	decimal := byte(0)
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			decimal = '.'
		} else {
			decimal = ','
		}
	case lastDot >= 0:
		if strings.Count(raw, ".") == 1 {
			decimal = '.'
		}
	case lastComma >= 0:
		if strings.Count(raw, ",") == 1 && len(raw)-lastComma-1 != 3 {
			decimal = ','
		}
	}

	var q quantity
	body := raw
	if decimal != 0 {
		at := strings.LastIndexByte(raw, decimal)
		body = raw[:at]
		q.fracpart = raw[at+1:]
		if strings.ContainsAny(q.fracpart, ".,") {
			return quantity{}, fmt.Errorf("quantity %q: misplaced separator: %w", raw, ErrParse)
		}
		if decimal == ',' {
			q.style |= StyleEuropean
		}
	}
	if decimal != 0 && strings.ContainsRune(body, rune(decimal)) {
		return quantity{}, fmt.Errorf("quantity %q: repeated decimal mark: %w", raw, ErrParse)
	}
	if strings.ContainsAny(body, ".,") {
		q.style |= StyleThousands
		if strings.ContainsRune(body, '.') {
			// dots as grouping marks imply the European style even
			// when no decimal mark was seen
			q.style |= StyleEuropean
		}
		body = strings.Map(func(r rune) rune {
			if r == '.' || r == ',' {
				return -1
			}
			return r
		}, body)
	}
	q.intpart = body
	return q, nil
}

// scanAnnotation reads the optional "{price} [date] (tag)" suffix in any
// order. Each component may appear at most once.
func (sc *scanner) scanAnnotation(p *Pool) (Annotation, error) {
	var details Annotation
	for {
		sc.skipSpace()
		switch sc.peek() {
		case '{':
			if details.Price != nil {
				return Annotation{}, fmt.Errorf("duplicate lot price: %w", ErrParse)
			}
			sc.next()
			end := strings.IndexByte(sc.s[sc.i:], '}')
			if end < 0 {
				return Annotation{}, fmt.Errorf("unterminated lot price: %w", ErrParse)
			}
			price, err := p.ParseAmount(strings.TrimSpace(sc.s[sc.i:sc.i+end]), ParseNoMigrate)
			if err != nil {
				return Annotation{}, fmt.Errorf("lot price: %w", err)
			}
			sc.i += end + 1
			details.Price = &price
		case '[':
			if !details.Date.IsZero() {
				return Annotation{}, fmt.Errorf("duplicate lot date: %w", ErrParse)
			}
			sc.next()
			end := strings.IndexByte(sc.s[sc.i:], ']')
			if end < 0 {
				return Annotation{}, fmt.Errorf("unterminated lot date: %w", ErrParse)
			}
			text := strings.TrimSpace(sc.s[sc.i : sc.i+end])
			date, err := parseAnnotationDate(text)
			if err != nil {
				return Annotation{}, err
			}
			sc.i += end + 1
			details.Date = date
		case '(':
			if details.Tag != "" {
				return Annotation{}, fmt.Errorf("duplicate lot tag: %w", ErrParse)
			}
			sc.next()
			end := strings.IndexByte(sc.s[sc.i:], ')')
			if end < 0 {
				return Annotation{}, fmt.Errorf("unterminated lot tag: %w", ErrParse)
			}
			details.Tag = strings.TrimSpace(sc.s[sc.i : sc.i+end])
			sc.i += end + 1
		default:
			return details, nil
		}
	}
}

func parseAnnotationDate(text string) (time.Time, error) {
	for _, layout := range []string{annotationDateLayout, "2006/01/02"} {
		if d, err := time.Parse(layout, text); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("lot date %q: %w", text, ErrParse)
}

// parse reads one amount from s, interning its commodity in p and, unless
// ParseNoMigrate is set, teaching the commodity the observed display style:
// the display precision widens to the observed fractional digits and the
// observed style bits are ORed in.
func (a *Amount) parse(p *Pool, s string, flags ParseFlags) error {
	sc := &scanner{s: s}
	sc.skipSpace()
	if sc.eof() {
		return fmt.Errorf("parsing empty amount: %w", ErrParse)
	}

	neg := false
	if r := sc.peek(); r == '-' || r == '+' {
		neg = r == '-'
		sc.next()
		sc.skipSpace()
	}

	var (
		symbol string
		q      quantity
		style  Style
		err    error
	)
	if r := sc.peek(); unicode.IsDigit(r) || r == '.' || r == ',' {
		// number first, commodity (if any) suffixed
		q, err = sc.scanQuantity()
		if err != nil {
			return fmt.Errorf("parsing %q: %w", s, err)
		}
		separated := sc.skipSpace()
		if r := sc.peek(); r == '"' || isBareSymbolRune(r) {
			symbol, err = sc.scanSymbol()
			if err != nil {
				return fmt.Errorf("parsing %q: %w", s, err)
			}
		}
		if symbol != "" {
			style |= StyleSuffixed
			if separated {
				style |= StyleSeparated
			}
		}
	} else {
		symbol, err = sc.scanSymbol()
		if err != nil {
			return fmt.Errorf("parsing %q: %w", s, err)
		}
		if symbol == "" {
			return fmt.Errorf("parsing %q: expected a quantity or commodity: %w", s, ErrParse)
		}
		separated := sc.skipSpace()
		if r := sc.peek(); !neg && (r == '-' || r == '+') {
			neg = r == '-'
			sc.next()
			sc.skipSpace()
		}
		q, err = sc.scanQuantity()
		if err != nil {
			return fmt.Errorf("parsing %q: %w", s, err)
		}
		if separated {
			style |= StyleSeparated
		}
	}
	style |= q.style

	details, err := sc.scanAnnotation(p)
	if err != nil {
		return fmt.Errorf("parsing %q: %w", s, err)
	}
	sc.skipSpace()
	if !sc.eof() {
		return fmt.Errorf("parsing %q: trailing input %q: %w", s, sc.s[sc.i:], ErrParse)
	}
	if symbol == "" && !details.IsZero() {
		return fmt.Errorf("parsing %q: annotation without commodity: %w", s, ErrParse)
	}

	qty, err := bigintFromDigits(q.intpart, q.fracpart, neg)
	if err != nil {
		return fmt.Errorf("parsing %q: %w", s, err)
	}

	var comm *Commodity
	if symbol != "" {
		comm = p.FindOrCreate(symbol)
		if flags&ParseNoMigrate == 0 {
			if prec := len(q.fracpart); prec > comm.Precision() && flags&parseNoWiden == 0 {
				log.Debug().Str("symbol", symbol).
					Int("from", comm.Precision()).Int("to", prec).
					Msg("display precision widened")
				comm.SetPrecision(prec)
			}
			comm.AddFlags(style)
		}
		if !details.IsZero() {
			comm, err = p.findOrCreateAnnotatedOf(comm, details)
			if err != nil {
				return fmt.Errorf("parsing %q: %w", s, err)
			}
		}
	}

	a.qty = qty
	a.comm = comm
	a.keepPrec = false
	if flags&ParseNoReduce == 0 {
		*a = a.Reduce()
	}
	return nil
}
