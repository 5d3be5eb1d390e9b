package ledger

import "errors"

// Errors reported by the amount kernel.
// Errors of arithmetic, parsing, conversion and pool operations wrap one of
// these sentinels, so callers can discriminate with [errors.Is] regardless of
// the added context. Failures of the underlying reader or writer in the
// serialization functions are returned wrapped as they are.
var (
	// ErrParse indicates malformed numeric or annotation syntax.
	ErrParse = errors.New("invalid amount syntax")

	// ErrIncompatibleCommodities indicates addition, subtraction or ordered
	// comparison of amounts denominated in distinct non-null commodities.
	// Equality checks are the intentional exception: they report false
	// instead of failing, so amounts can live in maps and sets.
	ErrIncompatibleCommodities = errors.New("incompatible commodities")

	// ErrDivideByZero indicates division by a zero or null divisor.
	ErrDivideByZero = errors.New("divide by zero")

	// ErrPrecisionLoss indicates an integer conversion of a non-integral value.
	ErrPrecisionLoss = errors.New("precision loss")

	// ErrNotConvertible indicates a value outside the target type's range.
	ErrNotConvertible = errors.New("value not convertible")

	// ErrUnknownCommodity indicates deserialized data referencing a commodity
	// identifier the pool does not contain.
	ErrUnknownCommodity = errors.New("unknown commodity")

	// ErrDuplicateSymbol indicates an attempt to create a commodity whose
	// symbol is already interned in the pool.
	ErrDuplicateSymbol = errors.New("duplicate commodity symbol")

	// ErrInvalidState indicates a violated internal invariant.
	ErrInvalidState = errors.New("invalid state")
)
