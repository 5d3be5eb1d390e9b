package ledger

import (
	"errors"
	"testing"
	"time"
)

func TestParseAmount_Styles(t *testing.T) {
	tests := []struct {
		in        string
		symbol    string
		flags     Style
		precision int
		quantity  string
	}{
		{"$100.00", "$", 0, 2, "100.00"},
		{"-$100.00", "$", 0, 2, "-100.00"},
		{"$-100.00", "$", 0, 2, "-100.00"},
		{"$ 100.00", "$", StyleSeparated, 2, "100.00"},
		{"100.00 EUR", "EUR", StyleSuffixed | StyleSeparated, 2, "100.00"},
		{"100.00EUR", "EUR", StyleSuffixed, 2, "100.00"},
		{"1,000.50 USD", "USD", StyleSuffixed | StyleSeparated | StyleThousands, 2, "1000.50"},
		{"1.000,00 EUR", "EUR", StyleSuffixed | StyleSeparated | StyleEuropean | StyleThousands, 2, "1000.00"},
		{"1.000.000,5 EUR", "EUR", StyleSuffixed | StyleSeparated | StyleEuropean | StyleThousands, 1, "1000000.5"},
		{"1,5 EUR", "EUR", StyleSuffixed | StyleSeparated | StyleEuropean, 1, "1.5"},
		{"1,000", "", StyleThousands, 0, "1000"},
		{"10 AAPL", "AAPL", StyleSuffixed | StyleSeparated, 0, "10"},
		{`5 "DE 0001"`, "DE 0001", StyleSuffixed | StyleSeparated, 0, "5"},
		{".50", "", 0, 2, "0.50"},
		{"+42", "", 0, 0, "42"},
	}
	for _, tt := range tests {
		p := NewPool()
		a, err := p.ParseAmount(tt.in, 0)
		if err != nil {
			t.Errorf("ParseAmount(%q) failed: %v", tt.in, err)
			continue
		}
		if got := a.Number().FullString(); got != tt.quantity {
			t.Errorf("ParseAmount(%q) quantity = %q, want %q", tt.in, got, tt.quantity)
		}
		c := a.Commodity()
		if tt.symbol == "" {
			if c != nil {
				t.Errorf("ParseAmount(%q) commodity = %v, want none", tt.in, c)
			}
			continue
		}
		if c == nil || c.BaseSymbol() != tt.symbol {
			t.Errorf("ParseAmount(%q) commodity = %v, want %q", tt.in, c, tt.symbol)
			continue
		}
		if got := c.StyleFlags(); got != tt.flags {
			t.Errorf("ParseAmount(%q) flags = %#04x, want %#04x", tt.in, got, tt.flags)
		}
		if got := c.Precision(); got != tt.precision {
			t.Errorf("ParseAmount(%q) precision = %d, want %d", tt.in, got, tt.precision)
		}
	}
}

func TestParseAmount_Errors(t *testing.T) {
	p := NewPool()
	tests := []string{
		"",
		"   ",
		"$",
		"abc",
		"$1.2.3.4,5,6",
		"1 EUR extra",
		"10 AAPL {$20",
		"10 AAPL [2024-13-99]",
		"10 {$20}",
		`"EUR 100`,
	}
	for _, in := range tests {
		if _, err := p.ParseAmount(in, 0); !errors.Is(err, ErrParse) {
			t.Errorf("ParseAmount(%q) = %v, want ErrParse", in, err)
		}
	}
}

func TestParseAmount_Migration(t *testing.T) {
	p := NewPool()

	mustAmount(t, p, "$100.00")
	usd := p.Find("$")
	if usd == nil {
		t.Fatal("$ was not interned")
	}
	if usd.Precision() != 2 {
		t.Errorf("precision after $100.00 = %d, want 2", usd.Precision())
	}

	// further parses widen, never narrow
	mustAmount(t, p, "$1.12345")
	if usd.Precision() != 5 {
		t.Errorf("precision after $1.12345 = %d, want 5", usd.Precision())
	}
	mustAmount(t, p, "$9")
	if usd.Precision() != 5 {
		t.Errorf("precision after $9 = %d, want 5", usd.Precision())
	}
}

func TestParseAmount_NoMigrate(t *testing.T) {
	p := NewPool()
	mustAmount(t, p, "$100.00")
	usd := p.Find("$")

	if _, err := p.ParseAmount("$1.12345", ParseNoMigrate); err != nil {
		t.Fatal(err)
	}
	if usd.Precision() != 2 {
		t.Errorf("NO_MIGRATE widened precision to %d", usd.Precision())
	}
	if usd.StyleFlags()&StyleSeparated != 0 {
		t.Errorf("NO_MIGRATE recorded style flags")
	}
}

func TestExact(t *testing.T) {
	p := NewPool()
	mustAmount(t, p, "$100.00")

	a, err := p.ParseExact("$100.005")
	if err != nil {
		t.Fatal(err)
	}
	if got := a.String(); got != "$100.005" {
		t.Errorf("exact String() = %q, want %q", got, "$100.005")
	}
	if p.Find("$").Precision() != 2 {
		t.Errorf("exact parse widened the display precision")
	}

	// the same string parsed without migration still displays rounded
	b, err := p.ParseAmount("$100.005", ParseNoMigrate)
	if err != nil {
		t.Fatal(err)
	}
	if got := b.String(); got != "$100.01" {
		t.Errorf("String() = %q, want %q", got, "$100.01")
	}

	// a migrating parse widens the display precision to three digits
	mustAmount(t, p, "$100.005")
	if got := p.Find("$").Precision(); got != 3 {
		t.Errorf("precision after migrating parse = %d, want 3", got)
	}
}

func TestParseAmount_Annotations(t *testing.T) {
	p := NewPool()
	a := mustAmount(t, p, "10 AAPL {$20.00} [2024-03-01] (lot-a)")

	if !a.Annotated() {
		t.Fatal("amount is not annotated")
	}
	d := a.Annotation()
	if d.Price == nil || d.Price.FullString() != "$20.00" {
		t.Errorf("price = %v, want $20.00", d.Price)
	}
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !d.Date.Equal(want) {
		t.Errorf("date = %v, want %v", d.Date, want)
	}
	if d.Tag != "lot-a" {
		t.Errorf("tag = %q, want %q", d.Tag, "lot-a")
	}

	// annotation components may come in any order
	b := mustAmount(t, p, "10 AAPL (lot-a) {$20.00} [2024/03/01]")
	if !b.Commodity().Equal(a.Commodity()) {
		t.Errorf("equal annotations resolved to distinct commodities")
	}
	if a.Commodity() != b.Commodity() {
		t.Errorf("equal annotations resolved to distinct handles")
	}

	// the annotated variant is distinct from the plain commodity
	plain := mustAmount(t, p, "10 AAPL")
	if plain.Commodity().Equal(a.Commodity()) {
		t.Errorf("annotated commodity equals its plain referent")
	}
	if a.Commodity().Referent() != plain.Commodity() {
		t.Errorf("referent is not the plain commodity")
	}
}

func TestParseAmount_AnnotatedAddition(t *testing.T) {
	p := NewPool()
	plain := mustAmount(t, p, "10 AAPL")
	lot := mustAmount(t, p, "10 AAPL {$20}")

	KeepPrice = false
	sum, err := plain.Add(lot)
	if err != nil {
		t.Fatalf("10 AAPL + 10 AAPL {$20} failed: %v", err)
	}
	if got := sum.String(); got != "20 AAPL" {
		t.Errorf("sum = %q, want %q", got, "20 AAPL")
	}

	KeepPrice = true
	defer func() { KeepPrice = false }()
	if _, err := plain.Add(lot); !errors.Is(err, ErrIncompatibleCommodities) {
		t.Errorf("keep_price sum = %v, want ErrIncompatibleCommodities", err)
	}
}

func TestParseConversion(t *testing.T) {
	p := NewPool()
	if err := p.ParseConversion("1.0m", "60s"); err != nil {
		t.Fatal(err)
	}

	m := p.Find("m")
	s := p.Find("s")
	if m == nil || s == nil {
		t.Fatal("conversion did not intern both commodities")
	}
	if m.Smaller() == nil || m.Smaller().Commodity() != s {
		t.Errorf("m.Smaller() = %v, want an amount in s", m.Smaller())
	}
	if s.Larger() == nil || s.Larger().Commodity() != m {
		t.Errorf("s.Larger() = %v, want an amount in m", s.Larger())
	}
	if m.StyleFlags()&StyleNoMarket == 0 {
		t.Errorf("scaling commodity is not flagged no-market")
	}

	secs, err := p.ParseAmount("60s", ParseNoReduce)
	if err != nil {
		t.Fatal(err)
	}
	if got := secs.Unreduce().String(); got != "1m" {
		t.Errorf("60s unreduced = %q, want %q", got, "1m")
	}
}

func TestParseAmount_RoundTrip(t *testing.T) {
	inputs := []string{
		"$100.00",
		"-$5.25",
		"1.000,00 EUR",
		"1,000.50 USD",
		"10 AAPL",
		"10 AAPL {$20.00} [2024-03-01] (lot-a)",
		"0.5",
	}
	for _, in := range inputs {
		p := NewPool()
		a, err := p.ParseAmount(in, 0)
		if err != nil {
			t.Errorf("ParseAmount(%q) failed: %v", in, err)
			continue
		}
		b, err := p.ParseAmount(a.String(), 0)
		if err != nil {
			t.Errorf("reparse of %q (printed %q) failed: %v", in, a.String(), err)
			continue
		}
		if !a.Equal(b) {
			t.Errorf("round trip of %q: %v != %v", in, a, b)
		}
	}
}
