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


package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/poiesic/uniterare/storage"
)

// DefaultLimit is the number of suggestions returned when the caller asks for none.
const DefaultLimit = 10

// Suggester looks up record names matching a partial query.
type Suggester struct {
	repository storage.RecordRepository
	limit      int
	logger     *slog.Logger
}

// Option configures a Suggester.
type Option func(*Suggester) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Suggester) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithDefaultLimit sets the limit used when Suggest is called with limit <= 0.
func WithDefaultLimit(limit int) Option {
	return func(s *Suggester) error {
		if limit > 0 {
			s.limit = limit
		}
		return nil
	}
}

// NewSuggester creates a new suggester.
func NewSuggester(repository storage.RecordRepository, opts ...Option) (*Suggester, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}

	s := &Suggester{
		repository: repository,
		limit:      DefaultLimit,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Suggest returns up to limit distinct names containing query, ignoring case.
// Names starting with the query come first; ties keep alphabetical order.
// A limit <= 0 selects the default.
func (s *Suggester) Suggest(ctx context.Context, query string, limit int) ([]string, error) {
	query = normalizeQuery(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = s.limit
	}

	names, err := s.repository.SuggestNames(ctx, query, limit)
	if err != nil {
		s.logger.Error("error querying for name suggestions", "query", query, "err", err)
		return nil, err
	}

	sort.SliceStable(names, func(i, j int) bool {
		return startsWithFold(names[i], query) && !startsWithFold(names[j], query)
	})

	s.logger.Debug("suggested names", "query", query, "count", len(names))
	if names == nil {
		names = []string{}
	}
	return names, nil
}
