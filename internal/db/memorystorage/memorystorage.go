// Package memorystorage provides an in-memory storage used when neither a
// database DSN nor a file path is configured, and by tests.
package memorystorage

import (
	"context"

	"github.com/patric-chuzhbe/shrtnr/internal/db/jsondb"
	"github.com/patric-chuzhbe/shrtnr/internal/models"
	"github.com/patric-chuzhbe/shrtnr/internal/user"
)

// MemoryStorage reuses the jsondb cache without the file persistence.
type MemoryStorage struct {
	*jsondb.JSONDB
}

// New returns an empty in-memory storage.
func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Cache: jsondb.CacheStruct{
				Users:      map[string]*user.User{},
				NextUserID: 1,
				Links:      map[string]*models.Link{},
			},
		},
	}, nil
}

// Close discards nothing; there is no backing file.
func (theStorage *MemoryStorage) Close() error {
	return nil
}

// Ping always succeeds for the in-memory storage.
func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
