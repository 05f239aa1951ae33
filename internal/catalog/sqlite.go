package catalog

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	// Registers the "sqlite3" driver name with database/sql. go-sqlite3 is a
	// pure Go, CGo-free SQLite engine (compiled to wasm, run with wazero), so
	// the catalog has no C toolchain dependency at build time.
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Gateway is a typed wrapper over the relational store. The store is assumed
// single-writer (see SPEC_FULL.md §7), so every mutating method takes writeMu
// before starting its transaction; concurrent reads are unrestricted.
type Gateway struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// Open opens (and if necessary creates) the SQLite database at dsn and
// applies the catalog schema. dsn is whatever was read from DATABASE_URL.
func Open(dsn string) (*Gateway, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %q: %w", dsn, err)
	}

	// The embedded engine does not support concurrent writer connections; cap
	// the pool at one so database/sql itself serializes statements instead of
	// returning SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}

	return &Gateway{db: db}, nil
}

// Close releases the underlying database handle.
func (g *Gateway) Close() error {
	return g.db.Close()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// ncruces/go-sqlite3 surfaces SQLite result codes through *sqlite3.Error,
	// whose Error() text embeds the primary/extended code name. Matching on
	// the message avoids importing the driver's internal error type just for
	// a constraint check.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
