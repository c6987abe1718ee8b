// Package user defines the account model shared by the storage, session
// and router layers.
package user

// User represents a registered account.
// The ID is assigned by the storage layer; the record is never mutated
// after creation.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
}
