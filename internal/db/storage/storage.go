// Package storage declares the persistence contract consumed by the
// application core. Uniqueness of usernames and short codes is enforced by
// the implementations atomically (unique constraint plus insert-or-ignore),
// never by callers checking first.
package storage

import (
	"context"
	"errors"

	"github.com/patric-chuzhbe/shrtnr/internal/models"
	"github.com/patric-chuzhbe/shrtnr/internal/user"
)

// ErrUserExists is returned by CreateUser when the username is taken.
// The stored password hash of the existing account is left untouched.
var ErrUserExists = errors.New("user already exists")

// Storage persists users and links.
type Storage interface {
	// CreateUser inserts a new account and returns the assigned ID.
	// Fails with ErrUserExists on a duplicate username.
	CreateUser(ctx context.Context, username, passwordHash string) (int64, error)

	// FindUserByUsername returns the account and whether it exists.
	FindUserByUsername(ctx context.Context, username string) (*user.User, bool, error)

	// InsertLink reserves link.Code atomically. It reports false without
	// error when the code already exists (insert-or-ignore).
	InsertLink(ctx context.Context, link *models.Link) (bool, error)

	// FindLinkByCode returns the link and whether it exists.
	FindLinkByCode(ctx context.Context, code string) (*models.Link, bool, error)

	// FindUserLinks returns all links owned by the user.
	FindUserLinks(ctx context.Context, ownerID int64) ([]models.Link, error)

	Ping(ctx context.Context) error

	Close() error
}
