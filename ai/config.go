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

package ai

import (
	"errors"
	"strings"
	"time"
)

const (
	// DefaultHost is Groq's OpenAI-compatible endpoint.
	DefaultHost = "https://api.groq.com/openai/v1"

	// DefaultModel is the reasoning model the descriptions were written with.
	DefaultModel = "deepseek-r1-distill-llama-70b"
)

// Config holds configuration for the text generation service.
type Config struct {
	// Host is the base URL for the OpenAI-compatible chat completion API.
	// Example: "https://api.groq.com/openai/v1", "http://localhost:11434/v1"
	Host string

	// APIKey is the bearer token sent with each request.
	// Empty is allowed for local servers that don't check it.
	APIKey string

	// Model is the model identifier to generate with.
	Model string

	// Temperature is the sampling temperature. Default: 0.6
	Temperature float64

	// MaxTokens caps the length of each completion. Default: 1048
	MaxTokens int

	// TopP is the nucleus sampling parameter. Default: 0.95
	TopP float64

	// Timeout bounds a single generation call. Default: 120s
	Timeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithHost sets the generation service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithModel sets the model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = t
	}
}

// WithMaxTokens sets the completion token limit.
func WithMaxTokens(n int) ConfigOption {
	return func(c *Config) {
		c.MaxTokens = n
	}
}

// WithTopP sets the nucleus sampling parameter.
func WithTopP(p float64) ConfigOption {
	return func(c *Config) {
		c.TopP = p
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = d
	}
}

// DefaultConfig returns a Config with the sampling parameters used for the
// disease reference descriptions.
func DefaultConfig() *Config {
	return &Config{
		Host:        DefaultHost,
		Model:       DefaultModel,
		Temperature: 0.6,
		MaxTokens:   1048,
		TopP:        0.95,
		Timeout:     120 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithAPIKey(os.Getenv("GROQ_API_KEY")),
//	    WithTimeout(30*time.Second),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// Trailing slashes are dropped and a bare host gets the /v1 suffix that
// OpenAI-compatible servers expect.
func (c *Config) Normalize() {
	c.Host = strings.TrimSpace(c.Host)
	c.Model = strings.TrimSpace(c.Model)
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.Host == "" {
		return
	}
	c.Host = strings.TrimRight(c.Host, "/")
	if !strings.HasSuffix(c.Host, "/v1") {
		c.Host = c.Host + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Host == "" {
		return errors.New("ai config: Host is required")
	}
	if c.Model == "" {
		return errors.New("ai config: Model is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("ai config: Temperature must be between 0 and 2")
	}
	if c.MaxTokens <= 0 {
		return errors.New("ai config: MaxTokens must be greater than 0")
	}
	if c.TopP <= 0 || c.TopP > 1 {
		return errors.New("ai config: TopP must be in (0, 1]")
	}
	if c.Timeout <= 0 {
		return errors.New("ai config: Timeout must be greater than 0")
	}
	return nil
}
