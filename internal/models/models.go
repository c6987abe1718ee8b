// Package models contains the request/response DTOs of the HTTP API and the
// link model shared between the allocator and the storage layer.
package models

// Link maps a short code to a long URL. The code is globally unique and the
// record is never mutated after creation. Every link has an owner.
type Link struct {
	Code    string
	LongURL string
	OwnerID int64
}

// CreateUserRequest is the body of POST /create-user.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required,min=1,max=128"`
}

// CreateUserResponse confirms the created account.
type CreateUserResponse struct {
	Username string `json:"username"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password" validate:"required"`
	Persistent bool   `json:"persistent"`
}

// TokenResponse carries a freshly issued access token.
type TokenResponse struct {
	Token string `json:"token"`
}

// ShortenRequest is the body of POST /shorten-link. Code is optional; when
// present it must be 6 to 10 printable ASCII characters.
type ShortenRequest struct {
	URL  string `json:"url" validate:"required"`
	Code string `json:"code" validate:"omitempty,min=6,max=10,printascii"`
}

// ShortenResponse carries the allocated short code.
type ShortenResponse struct {
	ShortURL string `json:"short_url"`
}

// UserLink is one entry of the GET /get-user-links response.
type UserLink struct {
	ShortURL string `json:"short_url"`
	LongURL  string `json:"long_url"`
}

// MessageResponse is used for plain confirmations such as logout.
type MessageResponse struct {
	Message string `json:"message"`
}

const (
	// StorageTypeUnknown marks an unresolvable storage configuration.
	StorageTypeUnknown = iota
	// StorageTypePostgresql selects the pooled PostgreSQL storage.
	StorageTypePostgresql
	// StorageTypeFile selects the JSON file storage.
	StorageTypeFile
	// StorageTypeMemory selects the in-memory storage.
	StorageTypeMemory
)
