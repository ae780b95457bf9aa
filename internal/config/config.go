package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the server settings read from the environment.
type Config struct {
	Addr            string        `env:"HR_ADDR" envDefault:":8080"`
	SessionTTL      time.Duration `env:"HR_SESSION_TTL" envDefault:"1h"`
	JanitorInterval time.Duration `env:"HR_JANITOR_INTERVAL" envDefault:"10m"`
	SpinInterval    time.Duration `env:"HR_SPIN_INTERVAL" envDefault:"80ms"`
	SpinDuration    time.Duration `env:"HR_SPIN_DURATION" envDefault:"2s"`
	DefaultPrize    string        `env:"HR_DEFAULT_PRIZE" envDefault:"特獎"`
	MaxUploadBytes  int64         `env:"HR_MAX_UPLOAD_BYTES" envDefault:"1048576"`
	CORSOrigins     []string      `env:"HR_CORS_ORIGINS" envSeparator:","`
	Verbose         bool          `env:"HR_VERBOSE" envDefault:"false"`
	SecureCookies   bool          `env:"HR_SECURE_COOKIES" envDefault:"false"`
}

// Load reads an optional .env file from each of files, then parses the
// environment. Missing .env files are not an error.
func Load(files ...string) (Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	switch {
	case c.SpinInterval <= 0:
		return errors.New("HR_SPIN_INTERVAL must be positive")
	case c.SpinDuration < c.SpinInterval:
		return errors.New("HR_SPIN_DURATION must not be shorter than HR_SPIN_INTERVAL")
	case c.SessionTTL <= 0:
		return errors.New("HR_SESSION_TTL must be positive")
	case c.JanitorInterval <= 0:
		return errors.New("HR_JANITOR_INTERVAL must be positive")
	case c.MaxUploadBytes <= 0:
		return errors.New("HR_MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}
