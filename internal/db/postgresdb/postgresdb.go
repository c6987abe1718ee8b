// Package postgresdb provides the PostgreSQL-backed implementation of the
// storage interface. It runs over a database/sql connection pool (the pgx
// stdlib driver), so store operations are not serialized process-wide;
// uniqueness of usernames and codes is enforced by constraints plus
// INSERT ... ON CONFLICT DO NOTHING.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/patric-chuzhbe/shrtnr/internal/db/storage"
	"github.com/patric-chuzhbe/shrtnr/internal/models"
	"github.com/patric-chuzhbe/shrtnr/internal/user"
)

// PostgresDB is a PostgreSQL-backed storage for users and links.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables dropping all public tables before running
// migrations. It is intended for test setups only.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New opens the connection pool, runs goose migrations from migrationsDir
// and returns the configured storage.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("resetting database before migrations: %w", err)
		}
	}

	if err := goose.SetDialect("postgres"); err != nil {
		database.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(result.database, migrationsDir); err != nil {
		database.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	return result, nil
}

// CreateUser inserts the account and returns its ID. A duplicate username is
// detected by the ON CONFLICT no-op returning zero rows, not by a prior read.
func (db *PostgresDB) CreateUser(ctx context.Context, username, passwordHash string) (int64, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			INSERT INTO users (username, password_hash)
				VALUES ($1, $2)
				ON CONFLICT (username) DO NOTHING
				RETURNING id
		`,
		username,
		passwordHash,
	)

	var userID int64
	err := row.Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, storage.ErrUserExists
		}
		return 0, err
	}

	return userID, nil
}

// FindUserByUsername fetches the account by its case-sensitive username.
func (db *PostgresDB) FindUserByUsername(ctx context.Context, username string) (*user.User, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, username, password_hash FROM users WHERE username = $1`,
		username,
	)

	usr := &user.User{}
	err := row.Scan(&usr.ID, &usr.Username, &usr.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return usr, true, nil
}

// InsertLink reserves the code via insert-or-ignore, reporting whether this
// call won the reservation.
func (db *PostgresDB) InsertLink(ctx context.Context, link *models.Link) (bool, error) {
	result, err := db.database.ExecContext(
		ctx,
		`
			INSERT INTO links (code, long_url, owner_id)
				VALUES ($1, $2, $3)
				ON CONFLICT (code) DO NOTHING
		`,
		link.Code,
		link.LongURL,
		link.OwnerID,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// FindLinkByCode fetches the link reserved under the given code.
func (db *PostgresDB) FindLinkByCode(ctx context.Context, code string) (*models.Link, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT code, long_url, owner_id FROM links WHERE code = $1`,
		code,
	)

	link := &models.Link{}
	err := row.Scan(&link.Code, &link.LongURL, &link.OwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return link, true, nil
}

// FindUserLinks returns every link owned by the user, newest first.
func (db *PostgresDB) FindUserLinks(ctx context.Context, ownerID int64) ([]models.Link, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT code, long_url, owner_id FROM links WHERE owner_id = $1 ORDER BY id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.Link{}
	for rows.Next() {
		var link models.Link
		if err := rows.Scan(&link.Code, &link.LongURL, &link.OwnerID); err != nil {
			return nil, err
		}
		result = append(result, link)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Ping verifies connectivity within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the connection pool.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf("dropping public tables: %w", err)
	}

	return nil
}
