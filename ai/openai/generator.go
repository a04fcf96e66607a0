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

package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/uniterare/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generator implements ai.Generator using an OpenAI-compatible chat API.
type Generator struct {
	client      llms.Model
	model       string
	temperature float64
	maxTokens   int
	topP        float64
	timeout     time.Duration
	logger      *slog.Logger
}

// newGenerator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newGenerator(config *ai.Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Local OpenAI-compatible servers accept any token, but the client refuses an empty one
	token := config.APIKey
	if token == "" {
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(token),
		openai.WithModel(config.Model),
		openai.WithHTTPClient(newSamplingClient(http.DefaultClient, config.TopP)),
	)
	if err != nil {
		return nil, err
	}

	return &Generator{
		client:      client,
		model:       config.Model,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		topP:        config.TopP,
		timeout:     config.Timeout,
		logger:      slog.Default().With("component", "openai-generator"),
	}, nil
}

// NewGenerator creates a new generator using the provided configuration.
//
// Returns ai.Generator interface to enforce abstraction.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config)
}

// Generate sends prompt as a single user message and returns the raw completion.
// Each call is bounded by the configured timeout on top of ctx.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = scrubPrompt(prompt)
	if prompt == "" {
		return "", ai.ErrEmptyPrompt
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(prompt),
			},
		},
	}

	start := time.Now()
	response, err := g.client.GenerateContent(ctx, content,
		llms.WithTemperature(g.temperature),
		llms.WithMaxTokens(g.maxTokens),
		llms.WithTopP(g.topP),
	)
	if err != nil {
		g.logger.Debug("generation failed", "model", g.model, "elapsed", time.Since(start), "err", err)
		return "", fmt.Errorf("generate with %s: %w", g.model, err)
	}

	if len(response.Choices) < 1 || response.Choices[0].Content == "" {
		g.logger.Debug("no content returned from model", "model", g.model)
		return "", ai.ErrEmptyResponse
	}

	choice := response.Choices[0]
	g.logger.Debug("generated content",
		"model", g.model,
		"length", len(choice.Content),
		"stop_reason", choice.StopReason,
		"elapsed", time.Since(start))

	return choice.Content, nil
}
