// Package app initializes and runs the main application service.
// It configures logging, storage, the token and session services, and
// routing, and handles graceful shutdown.
package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patric-chuzhbe/shrtnr/internal/apperror"
	"github.com/patric-chuzhbe/shrtnr/internal/auth"
	"github.com/patric-chuzhbe/shrtnr/internal/config"
	"github.com/patric-chuzhbe/shrtnr/internal/db/jsondb"
	"github.com/patric-chuzhbe/shrtnr/internal/db/memorystorage"
	"github.com/patric-chuzhbe/shrtnr/internal/db/postgresdb"
	"github.com/patric-chuzhbe/shrtnr/internal/db/storage"
	"github.com/patric-chuzhbe/shrtnr/internal/hasher"
	"github.com/patric-chuzhbe/shrtnr/internal/ipchecker"
	"github.com/patric-chuzhbe/shrtnr/internal/logger"
	"github.com/patric-chuzhbe/shrtnr/internal/metrics"
	"github.com/patric-chuzhbe/shrtnr/internal/models"
	"github.com/patric-chuzhbe/shrtnr/internal/router"
	"github.com/patric-chuzhbe/shrtnr/internal/session"
	"github.com/patric-chuzhbe/shrtnr/internal/shortcode"
	"github.com/patric-chuzhbe/shrtnr/internal/token"
)

// App encapsulates the configuration, HTTP handler and storage backend
// needed to run the link shortener service.
type App struct {
	cfg         *config.Config
	db          storage.Storage
	httpHandler http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing the logger
// - selecting and setting up storage
// - building the token, session and allocation services
// - setting up the router and middleware
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	keyProvider, err := getKeyProvider(app.cfg)
	if err != nil {
		return nil, err
	}

	tokens := token.New(keyProvider)
	passwordHasher := hasher.NewBcrypt(app.cfg.BcryptCost)
	sessions := session.New(
		app.db,
		passwordHasher,
		tokens,
		app.cfg.AccessTokenTTL,
		app.cfg.RefreshTokenTTL,
	)
	allocator := shortcode.New(app.db)

	checker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}
	collector := metrics.NewCollector()

	app.httpHandler = router.New(
		app.db,
		sessions,
		auth.New(tokens, rejectUnauthenticated),
		allocator,
		passwordHasher,
		router.Options{
			ShortURLBase:      app.cfg.ShortURLBase,
			CORSAllowedOrigin: app.cfg.CORSAllowedOrigin,
			StaticFilesDir:    app.cfg.StaticFilesDir,
			MetricsHandler:    collector.Handler(),
			MetricsMiddleware: collector.Middleware,
			TrustedOnly:       checker.RequireTrusted,
		},
	)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Saving database and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

// rejectUnauthenticated is the guard's failure callback. Every cause collapses
// to the same 401 envelope; details stay in the logs.
func rejectUnauthenticated(response http.ResponseWriter, request *http.Request, err error) {
	router.WriteError(response, request, apperror.NewAuth(err))
}

// getKeyProvider selects the signing key source: a configured base64 secret
// when present, otherwise an ephemeral per-process key.
func getKeyProvider(cfg *config.Config) (token.KeyProvider, error) {
	if cfg.JWTSigningSecretKey == "" {
		logger.Log.Warnln("no JWT signing secret configured; tokens will not survive a restart")
		return token.NewEphemeralKeyProvider(), nil
	}

	key, err := base64.URLEncoding.DecodeString(cfg.JWTSigningSecretKey)
	if err != nil {
		return nil, fmt.Errorf("decoding JWT signing secret: %w", err)
	}

	return token.NewStaticKeyProvider(key)
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			cfg.MigrationsDir,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}
