/*
Package ledger implements the numeric core of a double-entry accounting
engine: infinite-precision commoditized amounts and the pool that interns
the commodities they are denominated in.

# Representation

The package consists of three main types: Amount, Commodity and Pool.
An Amount couples an exact decimal quantity — an arbitrary-precision
numerator with an explicit decimal scale — to an optional Commodity handle.
Commodities are created only by a Pool, which interns them by symbol and by
a dense numeric identifier, and which owns the shared display metadata every
handle points at.

# Learning display conventions

Amounts do not require commodities to be predeclared. Parsing "$100.00"
interns "$", teaches it a display precision of two digits and the
symbol-before-number style, and every later "$" amount prints the same way.
Parsing "1.000,00 EUR" likewise records the European separator style, the
thousands grouping and the suffixed, space-separated symbol. Arithmetic is
always exact; rounding happens only on display, at the commodity's learned
precision.

# Annotations

A commodity may be annotated with lot details: the price it was acquired
at, the acquisition date and a free-form tag, written
"10 AAPL {$20.00} [2024-03-01] (lot)". Annotated variants share the plain
commodity's display metadata but compare distinct from it; the process-wide
KeepPrice, KeepDate and KeepTag toggles decide which details survive when
amounts are combined or stripped.

# Prices

Each commodity carries an ordered price history. Commodity.Value answers
historical valuation queries from the history, falling back to the pool's
registered quote subscribers; the quotedb subpackage provides a
sqlite-backed subscriber. Amount.Value applies the found price, yielding an
amount in the price's commodity.

# Scaling commodities

ParseConversion("1.0h", "60m") links units of time (or any scaled units)
so Amount.Reduce and Amount.Unreduce can move between "1h", "60m" and
"3600s" representations.

# Serialization

Amounts serialize to a compact binary format whose commodity references are
pool identifiers; Pool.Write and ReadPool snapshot the pool itself so the
identifiers survive a round trip.

# Errors

Errors of arithmetic, parsing and pool operations wrap the package's
sentinel errors (ErrParse, ErrIncompatibleCommodities, ErrDivideByZero,
...), so callers discriminate with errors.Is; reader and writer failures
during serialization are passed through wrapped. Equality checks are the one deliberate exception: amounts
of different commodities compare unequal instead of failing.
*/
package ledger
