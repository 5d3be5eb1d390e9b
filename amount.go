package ledger

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// Amount is an infinite-precision commoditized quantity: an exact decimal
// value coupled to an optional [Commodity] handle. Arithmetic never rounds;
// rounding happens only when a value is displayed, at its commodity's
// display precision.
//
// The zero Amount is the null amount: it has no value and no commodity and
// acts as the additive identity when combined with any other amount.
type Amount struct {
	qty  *bigint
	comm *Commodity

	// keepPrec suppresses display rounding for this amount only; see
	// [Amount.Unround] and [Exact].
	keepPrec bool
}

// NewAmount converts an integer to an uncommoditized amount of precision 0.
func NewAmount(v int64) Amount {
	return Amount{qty: bigintFromInt64(v)}
}

// NewAmountFloat64 converts a float to an uncommoditized amount carrying the
// minimum precision that exactly represents the value's shortest decimal
// form.
//
// NewAmountFloat64 returns an error if the float is NaN or infinite.
func NewAmountFloat64(v float64) (Amount, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Amount{}, fmt.Errorf("converting float %v: %w", v, ErrNotConvertible)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intpart, fracpart, _ := strings.Cut(s, ".")
	q, err := bigintFromDigits(intpart, fracpart, neg)
	if err != nil {
		return Amount{}, fmt.Errorf("converting float %v: %w", v, err)
	}
	return Amount{qty: q}, nil
}

// MustParseAmount is like [ParseAmount] but panics if the string cannot be
// parsed. It simplifies safe initialization of variables holding amounts.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(fmt.Sprintf("ParseAmount(%q) failed: %v", s, err))
	}
	return a
}

// IsNull reports whether the amount has no value and no commodity, as a
// freshly declared Amount does.
func (a Amount) IsNull() bool {
	return a.qty == nil && !a.HasCommodity()
}

// HasCommodity reports whether the amount carries a commodity other than
// its pool's null commodity.
func (a Amount) HasCommodity() bool {
	return a.effComm() != nil
}

// effComm maps the pool's null commodity to nil so both spellings of "no
// commodity" behave identically.
func (a Amount) effComm() *Commodity {
	if a.comm == nil || a.comm.IsNull() {
		return nil
	}
	return a.comm
}

// Commodity returns the amount's commodity handle, or nil when it has none.
func (a Amount) Commodity() *Commodity {
	return a.effComm()
}

// SetCommodity returns a copy of the amount carrying the given commodity.
// Unlike parsing, it does not observe the amount to refine the commodity's
// display metadata.
func (a Amount) SetCommodity(c *Commodity) Amount {
	a.comm = c
	return a
}

// ClearCommodity returns a copy of the amount with no commodity.
func (a Amount) ClearCommodity() Amount {
	a.comm = nil
	return a
}

// Number returns the bare numeric portion of the amount: the same quantity
// with the commodity stripped.
func (a Amount) Number() Amount {
	if !a.HasCommodity() {
		return a
	}
	a.comm = nil
	return a
}

// combine resolves the commodity of an addition, subtraction or comparison
// result. Amounts with no commodity adopt the other operand's; otherwise
// the commodities must be equal, directly or after the lot details not
// selected by the process-wide keep toggles are stripped.
func combine(a, b Amount) (*Commodity, error) {
	ca, cb := a.effComm(), b.effComm()
	switch {
	case ca == nil:
		return cb, nil
	case cb == nil:
		return ca, nil
	case ca.Equal(cb):
		return ca, nil
	}
	sa, err := stripCommodity(ca, KeepPrice, KeepDate, KeepTag)
	if err != nil {
		return nil, err
	}
	sb, err := stripCommodity(cb, KeepPrice, KeepDate, KeepTag)
	if err != nil {
		return nil, err
	}
	if !sa.Equal(sb) {
		return nil, fmt.Errorf("%w: %v and %v", ErrIncompatibleCommodities, ca, cb)
	}
	return sa, nil
}

// stripCommodity reduces an annotated commodity to the variant retaining
// only the requested details, or to its plain referent when none remain.
func stripCommodity(c *Commodity, keepPrice, keepDate, keepTag bool) (*Commodity, error) {
	if !c.Annotated() {
		return c, nil
	}
	kept := c.Details().keep(keepPrice, keepDate, keepTag)
	if kept.IsZero() {
		return c.Referent(), nil
	}
	return c.pool.findOrCreateAnnotatedOf(c.Referent(), kept)
}

// Add returns the exact sum of a and b. A null operand acts as the additive
// identity: the result is a copy of the other operand.
//
// Add returns an error if the amounts carry distinct non-null commodities,
// after the keep-toggle annotation stripping described at
// [Amount.StripAnnotations].
func (a Amount) Add(b Amount) (Amount, error) {
	c, err := a.add(b)
	if err != nil {
		return Amount{}, fmt.Errorf("computing [%v + %v]: %w", a, b, err)
	}
	return c, nil
}

func (a Amount) add(b Amount) (Amount, error) {
	if a.qty == nil {
		return b, nil
	}
	if b.qty == nil {
		return a, nil
	}
	comm, err := combine(a, b)
	if err != nil {
		return Amount{}, err
	}
	return Amount{qty: a.qty.add(b.qty), comm: comm, keepPrec: a.keepPrec}, nil
}

// Sub returns the exact difference of a and b. A null operand acts as the
// additive identity.
//
// Sub returns an error if the amounts carry distinct non-null commodities.
func (a Amount) Sub(b Amount) (Amount, error) {
	c, err := a.sub(b)
	if err != nil {
		return Amount{}, fmt.Errorf("computing [%v - %v]: %w", a, b, err)
	}
	return c, nil
}

func (a Amount) sub(b Amount) (Amount, error) {
	if b.qty == nil {
		return a, nil
	}
	if a.qty == nil {
		return b.Neg(), nil
	}
	comm, err := combine(a, b)
	if err != nil {
		return Amount{}, err
	}
	return Amount{qty: a.qty.sub(b.qty), comm: comm, keepPrec: a.keepPrec}, nil
}

// Mul returns the exact product of a and b. The result carries the left
// operand's commodity; the right operand's commodity is discarded, except
// that a left operand with no commodity adopts the right one's. The
// result's internal precision is the sum of the operand precisions. A null
// operand makes the result a copy of the other operand.
func (a Amount) Mul(b Amount) Amount {
	if a.qty == nil {
		return b
	}
	if b.qty == nil {
		return a
	}
	comm := a.effComm()
	if comm == nil {
		comm = b.effComm()
	}
	return Amount{qty: a.qty.mul(b.qty), comm: comm, keepPrec: a.keepPrec}
}

// Quo returns the quotient of a and b with the same commodity rule as
// [Amount.Mul]. The result always carries 6 fractional digits past the
// combined operand precision, truncated toward zero, even when the quotient
// is exact. A null dividend makes the result a copy of the
// divisor.
//
// Quo returns an error if the divisor is zero or null.
func (a Amount) Quo(b Amount) (Amount, error) {
	c, err := a.quo(b)
	if err != nil {
		return Amount{}, fmt.Errorf("computing [%v / %v]: %w", a, b, err)
	}
	return c, nil
}

func (a Amount) quo(b Amount) (Amount, error) {
	if b.qty == nil {
		return Amount{}, ErrDivideByZero
	}
	if a.qty == nil {
		return b, nil
	}
	qty, err := a.qty.quo(b.qty)
	if err != nil {
		return Amount{}, err
	}
	comm := a.effComm()
	if comm == nil {
		comm = b.effComm()
	}
	return Amount{qty: qty, comm: comm, keepPrec: a.keepPrec}, nil
}

// Neg returns the amount with the opposite sign.
func (a Amount) Neg() Amount {
	if a.qty == nil {
		return a
	}
	return Amount{qty: a.qty.neg(), comm: a.comm, keepPrec: a.keepPrec}
}

// Abs returns the absolute value of the amount.
func (a Amount) Abs() Amount {
	if a.Sign() < 0 {
		return a.Neg()
	}
	return a
}

// Sign returns -1, 0 or +1 depending on the amount's exact internal value.
// To test the display value instead, use a.Round().Sign().
func (a Amount) Sign() int {
	if a.qty == nil {
		return 0
	}
	return a.qty.sign()
}

// IsZero reports whether the amount's display value is zero: $0.0001 is
// zero once rounded to the two display digits of "$".
// See also [Amount.IsRealZero].
func (a Amount) IsZero() bool {
	if a.qty == nil {
		return true
	}
	if c := a.effComm(); c != nil && !a.keepPrec {
		return a.qty.roundAway(c.Precision()).isZero()
	}
	return a.qty.isZero()
}

// IsRealZero reports whether the amount's exact internal value is zero.
func (a Amount) IsRealZero() bool {
	return a.qty == nil || a.qty.isZero()
}

// Cmp compares the exact values of a and b and returns -1, 0 or +1. A null
// operand compares as zero.
//
// Cmp returns an error if the amounts carry distinct non-null commodities.
func (a Amount) Cmp(b Amount) (int, error) {
	if _, err := combine(a, b); err != nil {
		return 0, fmt.Errorf("comparing [%v] and [%v]: %w", a, b, err)
	}
	return a.cmpQty(b), nil
}

func (a Amount) cmpQty(b Amount) int {
	x, y := a.qty, b.qty
	if x == nil {
		x = bigintFromInt64(0)
	}
	if y == nil {
		y = bigintFromInt64(0)
	}
	return x.cmp(y)
}

// Equal reports whether the amounts have equal commodities and equal exact
// values. An amount with no commodity compares by value alone, as in
// [Amount.Cmp], so $0.00 equals 0. Unlike Cmp it never fails: amounts of
// distinct non-null commodities are simply unequal, so Amount works as a
// map or set member.
func (a Amount) Equal(b Amount) bool {
	ca, cb := a.effComm(), b.effComm()
	if ca != nil && cb != nil && !ca.Equal(cb) {
		return false
	}
	return a.cmpQty(b) == 0
}

// Round returns the amount rounded to its commodity's display precision,
// half away from zero. An amount with no commodity is returned unchanged.
// See also [Amount.RoundTo].
func (a Amount) Round() Amount {
	c := a.effComm()
	if c == nil {
		return a
	}
	return a.RoundTo(c.Precision())
}

// RoundTo returns the amount rescaled to the given precision: widening pads
// with zeros, narrowing rounds half away from zero. The result's display is
// no longer suppressed by a previous [Amount.Unround].
func (a Amount) RoundTo(prec int) Amount {
	if a.qty == nil {
		return a
	}
	return Amount{qty: a.qty.roundAway(prec), comm: a.comm}
}

// Unround returns a copy that always prints at full internal precision,
// even though its commodity normally rounds on display. Only this amount is
// affected; the commodity's display precision is untouched.
func (a Amount) Unround() Amount {
	a.keepPrec = true
	return a
}

// Reduce converts the amount to its most basic scaling unit: an amount of
// "1h" reduces to "3600s" when the hour and minute commodities carry
// smaller links. Amounts of commodities without a smaller link are returned
// unchanged. See [ParseConversion].
func (a Amount) Reduce() Amount {
	if a.qty == nil {
		return a
	}
	for {
		c := a.effComm()
		if c == nil || c.Smaller() == nil {
			return a
		}
		sm := c.Smaller()
		a.qty = a.qty.mul(sm.qty)
		a.comm = sm.comm
	}
}

// Unreduce converts the amount to the most compact scaling unit in which
// its magnitude stays at or above one: "3600s" unreduces to "1h", "3599s"
// only as far as minutes. See [ParseConversion].
func (a Amount) Unreduce() Amount {
	if a.qty == nil {
		return a
	}
	one := bigintFromInt64(1)
	for {
		c := a.effComm()
		if c == nil || c.Larger() == nil {
			return a
		}
		lg := c.Larger()
		qty, err := a.qty.quo(lg.qty)
		if err != nil || qty.abs().cmp(one) < 0 {
			return a
		}
		a.qty = qty
		a.comm = lg.comm
	}
}

// Value returns the amount's worth at the given moment, in the commodity
// its price is quoted in: 10 AAPL with a recorded price of $20 yields
// $200.00. A zero moment asks for the latest known price. The price comes
// from the commodity's history, falling back to the pool's quote
// subscribers as described at [Commodity.Value].
//
// The second return is false when no price is known or the amount has no
// commodity.
func (a Amount) Value(when time.Time) (Amount, bool) {
	c := a.effComm()
	if c == nil || a.qty == nil {
		return Amount{}, false
	}
	price, ok := c.Value(when)
	if !ok {
		return Amount{}, false
	}
	return price.Mul(a.Number()), true
}

// Int64 converts an integral amount to an int64.
//
// Int64 returns an error if the value has a non-zero fractional part
// (precision loss) or does not fit in an int64.
func (a Amount) Int64() (int64, error) {
	if a.qty == nil {
		return 0, nil
	}
	v, err := a.qty.int64()
	if err != nil {
		return 0, fmt.Errorf("converting %v to integer: %w", a, err)
	}
	return v, nil
}

// Float64 converts the amount to the nearest float64. Precision is very
// likely to be lost; the loss is silent.
func (a Amount) Float64() float64 {
	if a.qty == nil {
		return 0
	}
	return a.qty.float64()
}

// Annotate returns the amount with its commodity replaced by the annotated
// variant carrying the given details, interned through the pool so equal
// annotations share one handle. Annotating with an empty annotation is a
// no-op. Annotating an already annotated amount re-annotates its referent.
//
// Annotate returns an error if the amount has no commodity.
func (a Amount) Annotate(details Annotation) (Amount, error) {
	if details.IsZero() {
		return a, nil
	}
	c := a.effComm()
	if c == nil {
		return Amount{}, fmt.Errorf("annotating %v: no commodity: %w", a, ErrInvalidState)
	}
	ann, err := c.pool.findOrCreateAnnotatedOf(c.Referent(), details)
	if err != nil {
		return Amount{}, err
	}
	a.comm = ann
	return a, nil
}

// Annotated reports whether the amount's commodity carries lot details.
func (a Amount) Annotated() bool {
	c := a.effComm()
	return c != nil && c.Annotated()
}

// Annotation returns the lot details of the amount's commodity; it is
// empty for un-annotated amounts.
func (a Amount) Annotation() Annotation {
	c := a.effComm()
	if c == nil {
		return Annotation{}
	}
	return c.Details()
}

// StripAnnotations returns the amount with only the lot details selected by
// the process-wide KeepPrice, KeepDate and KeepTag toggles retained; when
// nothing remains the plain referent commodity is used.
// See also [Amount.StripAnnotationsKeeping].
func (a Amount) StripAnnotations() (Amount, error) {
	return a.StripAnnotationsKeeping(KeepPrice, KeepDate, KeepTag)
}

// StripAnnotationsKeeping returns the amount with only the requested lot
// details retained; when nothing remains the plain referent commodity is
// used. Un-annotated amounts are returned unchanged.
func (a Amount) StripAnnotationsKeeping(keepPrice, keepDate, keepTag bool) (Amount, error) {
	c := a.effComm()
	if c == nil || !c.Annotated() {
		return a, nil
	}
	s, err := stripCommodity(c, keepPrice, keepDate, keepTag)
	if err != nil {
		return Amount{}, fmt.Errorf("stripping annotations of %v: %w", a, err)
	}
	a.comm = s
	return a, nil
}

// String implements [fmt.Stringer]: the display-rounded value in the
// commodity's learned style. When the process-wide FullStrings toggle is
// set, the full internal precision is shown instead.
func (a Amount) String() string {
	var b strings.Builder
	_ = a.print(&b, false, FullStrings)
	return b.String()
}

// FullString returns the value at full internal precision, with commodity.
func (a Amount) FullString() string {
	var b strings.Builder
	_ = a.print(&b, false, true)
	return b.String()
}

// QuantityString returns the display-rounded value without its commodity;
// grouping and precision still follow the commodity's style.
func (a Amount) QuantityString() string {
	var b strings.Builder
	_ = a.print(&b, true, false)
	return b.String()
}

// Print writes the amount to w: display-rounded unless fullPrecision is set
// or the amount is unrounded, and without the commodity symbol when
// omitCommodity is set.
func (a Amount) Print(w io.Writer, omitCommodity, fullPrecision bool) error {
	return a.print(w, omitCommodity, fullPrecision)
}

// Dump writes the display value surrounded by a debugging marker.
func (a Amount) Dump(w io.Writer) error {
	if _, err := io.WriteString(w, "AMOUNT("); err != nil {
		return err
	}
	if err := a.print(w, false, false); err != nil {
		return err
	}
	_, err := io.WriteString(w, ")")
	return err
}

// Valid reports whether the amount satisfies its structural invariants:
// a missing quantity implies a missing commodity, and a present commodity
// resolves through a live pool.
func (a Amount) Valid() bool {
	if a.qty == nil {
		return a.comm == nil
	}
	if a.comm != nil && !a.comm.Valid() {
		return false
	}
	return a.qty.prec >= 0
}
