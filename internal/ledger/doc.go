// Package ledger persists import run history in a SQLite database under the
// log directory. Each completed or failed run becomes one row; the history
// command reads them back newest first.
package ledger
