package ledger

import "github.com/rs/zerolog"

// log is the package logger. It is a no-op unless the host opts in with
// [SetLogger]; the kernel only emits debug-level events (commodity
// interning, precision migration, price recording, quote dispatch).
var log = zerolog.Nop()

// SetLogger installs a logger for the package's debug events.
func SetLogger(l zerolog.Logger) {
	log = l
}
