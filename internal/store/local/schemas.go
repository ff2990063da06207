// Package local holds the collections kept in the embedded object database.
package local

import (
	"context"

	"github.com/MrSnakeDoc/tracker/internal/config"
	"github.com/MrSnakeDoc/tracker/internal/objectdb"
)

const (
	// JokeStore is the joke collection, keyed by the remote joke id.
	JokeStore = "jokeData"
	// PendingStore queues data waiting for background sync.
	PendingStore = "pendingData"
)

// JokesSchema is the joke database. Page and worker sides both derive it
// from the same config so they always open the same file at the same version.
func JokesSchema(cfg *config.Config) objectdb.Schema {
	return objectdb.Schema{
		Name:    cfg.JokesDBName,
		Version: cfg.JokesDBVersion,
		Stores:  []objectdb.StoreSpec{{Name: JokeStore, KeyPath: "id"}},
	}
}

// SyncSchema is the background sync database.
func SyncSchema(cfg *config.Config) objectdb.Schema {
	return objectdb.Schema{
		Name:    cfg.SyncDBName,
		Version: cfg.SyncDBVersion,
		Stores:  []objectdb.StoreSpec{{Name: PendingStore, KeyPath: "id", AutoIncrement: true}},
	}
}

// Options maps config onto objectdb options.
func Options(cfg *config.Config) objectdb.Options {
	return objectdb.Options{
		Dir:         cfg.DataDir,
		Driver:      cfg.DBDriver,
		BusyTimeout: cfg.DBBusyTimeout,
	}
}

// OpenJokes opens the joke database with the configured open timeout.
func OpenJokes(ctx context.Context, cfg *config.Config) (*objectdb.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.DBOpenTimeout)
	defer cancel()
	return objectdb.Open(ctx, Options(cfg), JokesSchema(cfg))
}

// OpenSync opens the background sync database with the configured open timeout.
func OpenSync(ctx context.Context, cfg *config.Config) (*objectdb.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.DBOpenTimeout)
	defer cancel()
	return objectdb.Open(ctx, Options(cfg), SyncSchema(cfg))
}
