// ChannelDB archives raw channel reads taken from the scanner.
// Only the CLI writes to it; the scanner session itself keeps no state on disk.
package channeldb

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/NotCoffee418/dbmigrator"
	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

type Archive struct {
	db *sql.DB
}

// Open opens (or creates) the archive at path and applies migrations.
func Open(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open channel db: %w", err)
	}
	// Verify connection
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping channel db: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	// Apply migrations
	dbmigrator.SetDatabaseType(dbmigrator.SQLite)
	<-dbmigrator.MigrateUpCh(
		db,
		migrationFS,
		"migrations",
	)

	log.Debug().Str("path", path).Msg("Channel archive opened")
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}
