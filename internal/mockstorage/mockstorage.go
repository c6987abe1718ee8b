// Package mockstorage provides a testify-based mock implementation of the
// storage interface. It is used for unit testing HTTP handlers by simulating
// storage behavior.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/shrtnr/internal/models"
	"github.com/patric-chuzhbe/shrtnr/internal/user"
)

// StorageMock is a testify mock implementing storage.Storage.
type StorageMock struct {
	mock.Mock
}

// CreateUser mocks user creation.
func (m *StorageMock) CreateUser(ctx context.Context, username, passwordHash string) (int64, error) {
	args := m.Called(ctx, username, passwordHash)
	return args.Get(0).(int64), args.Error(1)
}

// FindUserByUsername mocks the account lookup.
func (m *StorageMock) FindUserByUsername(ctx context.Context, username string) (*user.User, bool, error) {
	args := m.Called(ctx, username)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

// InsertLink mocks the insert-or-ignore reservation.
func (m *StorageMock) InsertLink(ctx context.Context, link *models.Link) (bool, error) {
	args := m.Called(ctx, link)
	return args.Bool(0), args.Error(1)
}

// FindLinkByCode mocks the link lookup.
func (m *StorageMock) FindLinkByCode(ctx context.Context, code string) (*models.Link, bool, error) {
	args := m.Called(ctx, code)
	link, _ := args.Get(0).(*models.Link)
	return link, args.Bool(1), args.Error(2)
}

// FindUserLinks mocks listing a user's links.
func (m *StorageMock) FindUserLinks(ctx context.Context, ownerID int64) ([]models.Link, error) {
	args := m.Called(ctx, ownerID)
	links, _ := args.Get(0).([]models.Link)
	return links, args.Error(1)
}

// Ping mocks the health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks resource release.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
