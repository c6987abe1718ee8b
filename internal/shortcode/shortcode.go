// Package shortcode decides and reserves the identifier for a new link.
// Reservation is a compare-and-insert at the storage layer: the storage's
// insert-or-ignore plus a unique constraint closes the race window between
// concurrent shorten requests, so no check-then-insert pattern appears here.
package shortcode

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"

	"github.com/patric-chuzhbe/shrtnr/internal/models"
)

// AutoCodeLength is the number of fingerprint characters used for
// auto-generated codes.
const AutoCodeLength = 6

// ErrCodeTaken is returned when the requested or derived code is already
// reserved for a different long URL.
var ErrCodeTaken = errors.New("short code already taken")

// ErrInvalidCode is returned when an explicit code violates the 6-10
// printable ASCII characters rule.
var ErrInvalidCode = errors.New("short code must be 6 to 10 printable characters")

var codePattern = regexp.MustCompile(`^[\x21-\x7e]{6,10}$`)

type linkKeeper interface {
	// InsertLink reserves the code atomically, reporting false when the code
	// already exists.
	InsertLink(ctx context.Context, link *models.Link) (bool, error)
	FindLinkByCode(ctx context.Context, code string) (*models.Link, bool, error)
}

// Allocator assigns or accepts unique codes for long URLs.
type Allocator struct {
	db linkKeeper
}

// New creates an Allocator over the given link storage.
func New(db linkKeeper) *Allocator {
	return &Allocator{db: db}
}

// Allocate reserves a code for longURL owned by ownerID and returns it.
//
// With an explicit requestedCode the literal code is reserved; a taken code
// fails with ErrCodeTaken, never auto-suffixed. Without one the candidate is
// a fixed-length prefix of the URL's md5 fingerprint, deterministic per
// longURL: re-shortening the identical URL returns the existing code, while
// a fingerprint collision with a different URL surfaces as ErrCodeTaken
// instead of silently aliasing the caller to someone else's link.
func (a *Allocator) Allocate(
	ctx context.Context,
	longURL string,
	requestedCode string,
	ownerID int64,
) (string, error) {
	if requestedCode != "" {
		return a.reserveExplicit(ctx, longURL, requestedCode, ownerID)
	}
	return a.reserveDerived(ctx, longURL, ownerID)
}

func (a *Allocator) reserveExplicit(
	ctx context.Context,
	longURL string,
	code string,
	ownerID int64,
) (string, error) {
	if !codePattern.MatchString(code) {
		return "", ErrInvalidCode
	}

	inserted, err := a.db.InsertLink(ctx, &models.Link{
		Code:    code,
		LongURL: longURL,
		OwnerID: ownerID,
	})
	if err != nil {
		return "", fmt.Errorf("reserving explicit code: %w", err)
	}
	if !inserted {
		return "", ErrCodeTaken
	}

	return code, nil
}

func (a *Allocator) reserveDerived(
	ctx context.Context,
	longURL string,
	ownerID int64,
) (string, error) {
	code := Fingerprint(longURL)

	inserted, err := a.db.InsertLink(ctx, &models.Link{
		Code:    code,
		LongURL: longURL,
		OwnerID: ownerID,
	})
	if err != nil {
		return "", fmt.Errorf("reserving derived code: %w", err)
	}
	if inserted {
		return code, nil
	}

	existing, found, err := a.db.FindLinkByCode(ctx, code)
	if err != nil {
		return "", fmt.Errorf("loading existing code: %w", err)
	}
	// The row may vanish between the no-op insert and the lookup only through
	// administrative deletion; treat it as taken and let the caller retry.
	if !found || existing.LongURL != longURL {
		return "", ErrCodeTaken
	}

	return code, nil
}

// Fingerprint derives the deterministic auto-code candidate for a long URL.
func Fingerprint(longURL string) string {
	sum := md5.Sum([]byte(longURL))
	return hex.EncodeToString(sum[:])[:AutoCodeLength]
}
