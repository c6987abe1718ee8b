// Package config loads the service configuration. Precedence, lowest to
// highest: built-in defaults, command-line flags, a .env file, environment
// variables. The resulting values are validated before use.
package config

import (
	"flag"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the service.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	ShortURLBase        string        `env:"BASE_URL" validate:"url"`
	LogLevel            string        `env:"LOG_LEVEL" validate:"loglevel"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" validate:"omitempty,filepath"`
	DatabaseDSN         string        `env:"DATABASE_DSN"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT"`
	MigrationsDir       string        `env:"MIGRATIONS_DIR"`
	JWTSigningSecretKey string        `env:"JWT_SIGNING_SECRET_KEY"`
	AccessTokenTTL      time.Duration `env:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL     time.Duration `env:"REFRESH_TOKEN_TTL"`
	CORSAllowedOrigin   string        `env:"CORS_ALLOWED_ORIGIN"`
	StaticFilesDir      string        `env:"STATIC_FILES_DIR"`
	TrustedSubnet       string        `env:"TRUSTED_SUBNET"`
	BcryptCost          int           `env:"BCRYPT_COST"`
}

var defaultConfig = Config{
	RunAddr:             ":8080",
	ShortURLBase:        "http://localhost:8080",
	LogLevel:            "info",
	DBConnectionTimeout: 10 * time.Second,
	MigrationsDir:       "migrations",
	AccessTokenTTL:      time.Hour,
	RefreshTokenTTL:     30 * 24 * time.Hour,
	CORSAllowedOrigin:   "*",
	StaticFilesDir:      "./public/www",
	BcryptCost:          10,
}

// InitOption configures the New call.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing disables command-line flag registration; tests use
// it because the testing package owns the flag set.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds the configuration from defaults, flags, .env and environment.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	values := defaultConfig

	if !options.disableFlagsParsing {
		flag.StringVar(&values.RunAddr, "a", values.RunAddr, "address and port to run server")
		flag.StringVar(&values.ShortURLBase, "b", values.ShortURLBase, "base address of the resulting shortened URL")
		flag.StringVar(&values.LogLevel, "l", values.LogLevel, "logger level")
		flag.StringVar(&values.DBFileName, "f", values.DBFileName, "JSON file name with database")
		flag.StringVar(&values.DatabaseDSN, "d", values.DatabaseDSN, "a string with the database connection details")
		flag.StringVar(&values.MigrationsDir, "m", values.MigrationsDir, "directory with goose SQL migrations")
		flag.StringVar(&values.StaticFilesDir, "s", values.StaticFilesDir, "directory with static frontend files")
		flag.StringVar(&values.TrustedSubnet, "t", values.TrustedSubnet, "trusted subnet in CIDR notation for operational endpoints")
		flag.Parse()
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	var valuesFromEnv Config
	if err := env.Parse(&valuesFromEnv); err != nil {
		return nil, err
	}
	applyOverrides(&values, &valuesFromEnv)

	if err := validate(&values); err != nil {
		return nil, err
	}

	return &values, nil
}

func applyOverrides(values, overrides *Config) {
	if overrides.RunAddr != "" {
		values.RunAddr = overrides.RunAddr
	}
	if overrides.ShortURLBase != "" {
		values.ShortURLBase = overrides.ShortURLBase
	}
	if overrides.LogLevel != "" {
		values.LogLevel = overrides.LogLevel
	}
	if overrides.DBFileName != "" {
		values.DBFileName = overrides.DBFileName
	}
	if overrides.DatabaseDSN != "" {
		values.DatabaseDSN = overrides.DatabaseDSN
	}
	if overrides.DBConnectionTimeout != 0 {
		values.DBConnectionTimeout = overrides.DBConnectionTimeout
	}
	if overrides.MigrationsDir != "" {
		values.MigrationsDir = overrides.MigrationsDir
	}
	if overrides.JWTSigningSecretKey != "" {
		values.JWTSigningSecretKey = overrides.JWTSigningSecretKey
	}
	if overrides.AccessTokenTTL != 0 {
		values.AccessTokenTTL = overrides.AccessTokenTTL
	}
	if overrides.RefreshTokenTTL != 0 {
		values.RefreshTokenTTL = overrides.RefreshTokenTTL
	}
	if overrides.CORSAllowedOrigin != "" {
		values.CORSAllowedOrigin = overrides.CORSAllowedOrigin
	}
	if overrides.StaticFilesDir != "" {
		values.StaticFilesDir = overrides.StaticFilesDir
	}
	if overrides.TrustedSubnet != "" {
		values.TrustedSubnet = overrides.TrustedSubnet
	}
	if overrides.BcryptCost != 0 {
		values.BcryptCost = overrides.BcryptCost
	}
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	allowedLogLevels := map[string]bool{
		"debug":   true,
		"info":    true,
		"warning": true,
		"error":   true,
		"fatal":   true,
	}

	return allowedLogLevels[fieldLevel.Field().String()]
}

func validate(values *Config) error {
	validate := validator.New()

	if err := validate.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return err
	}

	if err := validate.RegisterValidation("filepath", validateFilePath); err != nil {
		return err
	}

	return validate.Struct(values)
}
