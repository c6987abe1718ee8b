// Package jsondb implements the storage interface on top of a single JSON
// file. State is kept in memory behind a mutex and flushed on Close. It is
// meant for development and file-based deployments, not for heavy load.
package jsondb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/patric-chuzhbe/shrtnr/internal/db/storage"
	"github.com/patric-chuzhbe/shrtnr/internal/models"
	"github.com/patric-chuzhbe/shrtnr/internal/user"
)

// JSONDB is a file-backed storage for users and links.
type JSONDB struct {
	fileName string
	mu       sync.Mutex
	Cache    CacheStruct
}

// CacheStruct is the persisted shape of the database file.
type CacheStruct struct {
	Users      map[string]*user.User
	NextUserID int64
	Links      map[string]*models.Link
}

// New loads the database file, creating and initializing it when absent.
func New(fileName string) (*JSONDB, error) {
	db := JSONDB{
		fileName: fileName,
		Cache:    CacheStruct{},
	}

	err := parseJSONFile(db.fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := initDBFile(fileName); err != nil {
			return nil, err
		}
		if err := parseJSONFile(db.fileName, &db.Cache); err != nil {
			return nil, err
		}
	}

	if db.Cache.Users == nil {
		db.Cache.Users = map[string]*user.User{}
	}
	if db.Cache.Links == nil {
		db.Cache.Links = map[string]*models.Link{}
	}
	if db.Cache.NextUserID == 0 {
		db.Cache.NextUserID = 1
	}

	return &db, nil
}

// CreateUser inserts the account unless the username is taken.
func (db *JSONDB) CreateUser(ctx context.Context, username, passwordHash string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.Cache.Users[username]; exists {
		return 0, storage.ErrUserExists
	}

	userID := db.Cache.NextUserID
	db.Cache.NextUserID++
	db.Cache.Users[username] = &user.User{
		ID:           userID,
		Username:     username,
		PasswordHash: passwordHash,
	}

	return userID, nil
}

// FindUserByUsername returns the account and whether it exists.
func (db *JSONDB) FindUserByUsername(ctx context.Context, username string) (*user.User, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	usr, found := db.Cache.Users[username]
	if !found {
		return nil, false, nil
	}

	copied := *usr
	return &copied, true, nil
}

// InsertLink reserves the code, reporting false when it is already taken.
// The check and the write happen under one lock, so concurrent inserts of the
// same code produce exactly one winner.
func (db *JSONDB) InsertLink(ctx context.Context, link *models.Link) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.Cache.Links[link.Code]; exists {
		return false, nil
	}

	copied := *link
	db.Cache.Links[link.Code] = &copied

	return true, nil
}

// FindLinkByCode returns the link and whether it exists.
func (db *JSONDB) FindLinkByCode(ctx context.Context, code string) (*models.Link, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	link, found := db.Cache.Links[code]
	if !found {
		return nil, false, nil
	}

	copied := *link
	return &copied, true, nil
}

// FindUserLinks returns the user's links ordered by code.
func (db *JSONDB) FindUserLinks(ctx context.Context, ownerID int64) ([]models.Link, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := []models.Link{}
	for _, link := range db.Cache.Links {
		if link.OwnerID == ownerID {
			result = append(result, *link)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Code < result[j].Code
	})

	return result, nil
}

// Ping always succeeds for the file storage.
func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close flushes the cache to the database file.
func (db *JSONDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return writeToJSONFile(db.fileName, db.Cache)
}

func initDBFile(fileName string) error {
	dbFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(dbFile, `{
	"Users": {},
	"NextUserID": 1,
	"Links": {}
}`)
	if err != nil {
		return err
	}
	return dbFile.Close()
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %s", err)
	}

	file, err2 := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err2 != nil {
		return fmt.Errorf("error opening file: %s", err2)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %s", err)
	}

	return nil
}

func parseJSONFile(fileName string, cacheMap *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	return decoder.Decode(cacheMap)
}
