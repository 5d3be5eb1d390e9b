// Package quotedb provides a durable, sqlite-backed store of commodity
// quotes that plugs into a ledger pool as a quote subscriber.
package quotedb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/kennym/ledger"
)

const schema = `
CREATE TABLE IF NOT EXISTS quotes (
	symbol TEXT NOT NULL,
	at     INTEGER NOT NULL,
	price  TEXT NOT NULL,
	PRIMARY KEY (symbol, at)
);
`

// DB is a store of historical quotes keyed by commodity symbol and moment.
// Prices are persisted in their textual amount form and parsed back against
// the pool that asks for them.
type DB struct {
	conn *sql.DB
	log  zerolog.Logger
}

// Open opens (creating if needed) the quote store at path. Use ":memory:"
// for an ephemeral store.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening quote store: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening quote store: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating quote schema: %w", err)
	}
	return &DB{conn: conn, log: zerolog.Nop()}, nil
}

// SetLogger installs a logger for the store's debug events.
func (d *DB) SetLogger(l zerolog.Logger) {
	d.log = l
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Record stores the price of one unit of symbol at the given moment. The
// price is stored at full internal precision; a second record at the same
// moment replaces the first.
func (d *DB) Record(symbol string, at time.Time, price ledger.Amount) error {
	_, err := d.conn.Exec(
		`INSERT INTO quotes (symbol, at, price) VALUES (?, ?, ?)
		 ON CONFLICT (symbol, at) DO UPDATE SET price = excluded.price`,
		symbol, at.UTC().Unix(), price.FullString(),
	)
	if err != nil {
		return fmt.Errorf("recording quote for %q: %w", symbol, err)
	}
	d.log.Debug().Str("symbol", symbol).Time("at", at).
		Str("price", price.FullString()).Msg("quote recorded")
	return nil
}

// Lookup returns the stored price for symbol with the greatest moment not
// after at (any moment when at is zero). The returned text is the amount in
// its stored form; the second return is false when nothing matches.
func (d *DB) Lookup(symbol string, at time.Time) (string, bool, error) {
	query := `SELECT price FROM quotes WHERE symbol = ? ORDER BY at DESC LIMIT 1`
	args := []any{symbol}
	if !at.IsZero() {
		query = `SELECT price FROM quotes WHERE symbol = ? AND at <= ? ORDER BY at DESC LIMIT 1`
		args = append(args, at.UTC().Unix())
	}
	var price string
	err := d.conn.QueryRow(query, args...).Scan(&price)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("looking up quote for %q: %w", symbol, err)
	}
	return price, true, nil
}

// Source adapts the store to the pool's quote-subscriber signature:
//
//	db, _ := quotedb.Open("quotes.db")
//	pool.OnQuote(db.Source(pool))
//
// Stored prices are parsed against the given pool without disturbing the
// display metadata of their commodities. Lookup failures answer "no quote"
// so the pool can consult the next subscriber.
func (d *DB) Source(pool *ledger.Pool) ledger.QuoteFunc {
	return func(c *ledger.Commodity, date, _, _ time.Time) *ledger.Amount {
		text, ok, err := d.Lookup(c.BaseSymbol(), date)
		if err != nil {
			d.log.Warn().Err(err).Str("symbol", c.BaseSymbol()).Msg("quote lookup failed")
			return nil
		}
		if !ok {
			return nil
		}
		price, err := pool.ParseAmount(text, ledger.ParseNoMigrate)
		if err != nil {
			d.log.Warn().Err(err).Str("symbol", c.BaseSymbol()).
				Str("price", text).Msg("stored quote unparseable")
			return nil
		}
		return &price
	}
}
