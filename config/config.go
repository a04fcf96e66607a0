// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package config loads process settings from the environment.
//
// Values come from the process environment, optionally seeded from a .env
// file. Variables already set in the environment win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/poiesic/uniterare/ai"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreBadger   = "badger"
)

// Config holds everything a process needs to reach the store and the generator.
type Config struct {
	// Store selects the backend: postgres, sqlite or badger.
	Store string `envconfig:"STORE" default:"postgres"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBName     string `envconfig:"DB_NAME" default:"rare_diseases"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"SQLITE_PATH" default:"diseases.db"`
	BadgerPath string `envconfig:"BADGER_PATH" default:"diseases.badger"`

	APIKey    string        `envconfig:"GROQ_API_KEY"`
	AIHost    string        `envconfig:"AI_HOST" default:"https://api.groq.com/openai/v1"`
	AIModel   string        `envconfig:"AI_MODEL" default:"deepseek-r1-distill-llama-70b"`
	AITimeout time.Duration `envconfig:"AI_TIMEOUT" default:"120s"`

	MaxWorkers  int           `envconfig:"MAX_WORKERS" default:"8"`
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" default:"1"`
	RetryDelay  time.Duration `envconfig:"RETRY_DELAY" default:"2s"`
}

// Load reads the given .env files (".env" when none are named), then the
// environment. Missing .env files are not an error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that have no usable fallback.
func (c *Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DBHost == "" || c.DBName == "" {
			return errors.New("config: DB_HOST and DB_NAME are required for the postgres store")
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return errors.New("config: SQLITE_PATH is required for the sqlite store")
		}
	case StoreBadger:
		if c.BadgerPath == "" {
			return errors.New("config: BADGER_PATH is required for the badger store")
		}
	default:
		return fmt.Errorf("config: unknown STORE %q (want postgres, sqlite or badger)", c.Store)
	}
	if c.MaxWorkers < 1 {
		return errors.New("config: MAX_WORKERS must be at least 1")
	}
	if c.MaxAttempts < 1 {
		return errors.New("config: MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// DSN returns the lib/pq connection URL for the postgres store.
func (c *Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.DBHost, c.DBPort),
		Path:   "/" + c.DBName,
	}
	if c.DBPassword != "" {
		u.User = url.UserPassword(c.DBUser, c.DBPassword)
	} else if c.DBUser != "" {
		u.User = url.User(c.DBUser)
	}
	if c.DBSSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.DBSSLMode}}.Encode()
	}
	return u.String()
}

// MaskedDSN returns DSN with the password replaced, for logging.
func (c *Config) MaskedDSN() string {
	u, err := url.Parse(c.DSN())
	if err != nil {
		return "[invalid dsn]"
	}
	return u.Redacted()
}

// AIConfig builds the generator configuration.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithHost(c.AIHost),
		ai.WithAPIKey(c.APIKey),
		ai.WithModel(c.AIModel),
		ai.WithTimeout(c.AITimeout),
	)
}
