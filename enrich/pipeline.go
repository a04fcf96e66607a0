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


package enrich

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/poiesic/uniterare/ai"
	"github.com/poiesic/uniterare/core"
	"github.com/poiesic/uniterare/retry"
	"github.com/poiesic/uniterare/storage"
)

// DefaultPoolSize is the number of records processed concurrently.
const DefaultPoolSize = 8

// CompletionLine is printed after the last per-record line of a run.
const CompletionLine = "All done."

// Pipeline enriches pending records. Records are processed on an ants pool;
// each worker generates, cleans and stores one record end to end.
type Pipeline struct {
	repository storage.RecordRepository
	generator  ai.Generator
	pool       *ants.Pool
	poolSize   int
	prompt     PromptBuilder
	retry      retry.Policy
	out        io.Writer
	progress   io.Writer
	every      int
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets how many records are processed at once.
// Default is DefaultPoolSize, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if p.pool != nil {
			p.pool.Release()
		}
		p.pool = pool
		p.poolSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "enrich")
		return nil
	}
}

// WithOutput sets where outcome lines are written.
// Default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) error {
		if w == nil {
			w = io.Discard
		}
		p.out = w
		return nil
	}
}

// WithProgress prints a progress line to w every `every` records.
// Progress is off by default.
func WithProgress(w io.Writer, every int) Option {
	return func(p *Pipeline) error {
		p.progress = w
		p.every = every
		return nil
	}
}

// WithMaxAttempts sets how many times the generator is called for a record
// before it is reported as failed. Default is 1.
func WithMaxAttempts(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			return retry.ErrInvalidMaxAttempts
		}
		p.retry.MaxAttempts = n
		return nil
	}
}

// WithRetryDelay sets the backoff before the second generator attempt.
// It doubles on every further attempt, capped at one minute.
func WithRetryDelay(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d < 0 {
			d = 0
		}
		p.retry.BaseDelay = d
		return nil
	}
}

// WithPromptBuilder replaces BuildPrompt.
func WithPromptBuilder(build PromptBuilder) Option {
	return func(p *Pipeline) error {
		if build != nil {
			p.prompt = build
		}
		return nil
	}
}

// NewPipeline creates a pipeline over repository and generator.
func NewPipeline(repository storage.RecordRepository, generator ai.Generator, opts ...Option) (*Pipeline, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	pool, err := ants.NewPool(DefaultPoolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		repository: repository,
		generator:  generator,
		pool:       pool,
		poolSize:   DefaultPoolSize,
		prompt:     BuildPrompt,
		retry: retry.Policy{
			MaxAttempts: 1,
			BaseDelay:   2 * time.Second,
			MaxDelay:    time.Minute,
			Retryable:   retry.NotCanceled,
		},
		out:    os.Stdout,
		logger: slog.Default().With("component", "enrich"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// PoolSize returns the configured number of workers.
func (p *Pipeline) PoolSize() int {
	return p.poolSize
}

// Summary describes a finished run.
type Summary struct {
	RunID   string
	Total   int
	Stored  int
	Failed  int
	Elapsed time.Duration
	// Results holds one entry per fetched record, in completion order.
	Results []core.GenerationResult
}

func (s *Summary) add(result core.GenerationResult) {
	s.Results = append(s.Results, result)
	if result.Status == core.StatusSuccess {
		s.Stored++
	} else {
		s.Failed++
	}
}

// Run enriches every record that is pending when it starts.
//
// One line per record is written to the output as soon as the record
// finishes, followed by CompletionLine. Only a failure to fetch the pending
// set is returned as an error; per-record failures are reported in the
// summary and leave the record pending.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: uuid.NewString()}
	logger := p.logger.With("run_id", summary.RunID)

	records, err := p.repository.FetchPending(ctx)
	if err != nil {
		runsTotal.WithLabelValues("aborted").Inc()
		logger.Error("failed to fetch pending records", "err", err)
		return nil, fmt.Errorf("%w: fetch pending: %w", ErrStore, err)
	}
	summary.Total = len(records)
	summary.Results = make([]core.GenerationResult, 0, len(records))
	logger.Info("starting enrichment", "pending", len(records), "workers", p.poolSize)

	var tracker *ProgressTracker
	if p.progress != nil {
		tracker = NewProgressTracker(p.progress, len(records), p.every)
		tracker.Start()
	}

	// Buffered to the batch size so no worker blocks on a slow reader.
	results := make(chan core.GenerationResult, len(records))
	go p.feed(ctx, records, results)

	for range records {
		result := <-results
		summary.add(result)
		recordsProcessed.WithLabelValues(result.Status.String()).Inc()
		if tracker != nil {
			tracker.Observe(result.Status)
		}
		if result.Status != core.StatusSuccess {
			logger.Warn("record failed", "id", result.RecordId, "name", result.Name, "err", result.Err)
		}
		fmt.Fprintln(p.out, result.String())
	}
	fmt.Fprintln(p.out, CompletionLine)

	if tracker != nil {
		tracker.Finish()
	}
	summary.Elapsed = time.Since(start)
	runsTotal.WithLabelValues("completed").Inc()
	logger.Info("enrichment finished",
		"total", summary.Total,
		"stored", summary.Stored,
		"failed", summary.Failed,
		"elapsed", summary.Elapsed)
	return summary, nil
}

// feed submits every record exactly once. Submit blocks while all workers
// are busy, which bounds the number of in-flight generator calls.
func (p *Pipeline) feed(ctx context.Context, records []*core.Record, results chan<- core.GenerationResult) {
	for _, record := range records {
		err := p.pool.Submit(func() {
			results <- p.process(ctx, record)
		})
		if err != nil {
			results <- failed(record, StageSubmit, err)
		}
	}
}

// Describe returns the description of the record named name, generating
// and storing one first if the record is still pending. It runs on the
// caller's goroutine. Unknown names yield storage.ErrNotFound.
func (p *Pipeline) Describe(ctx context.Context, name string) (string, error) {
	record, err := p.repository.FindByName(ctx, name)
	if err != nil {
		return "", fmt.Errorf("describe %q: %w", name, err)
	}
	if !record.IsPending() {
		return record.Description, nil
	}

	result := p.process(ctx, record)
	recordsProcessed.WithLabelValues(result.Status.String()).Inc()
	if result.Status != core.StatusSuccess {
		return "", result.Err
	}
	return result.Content, nil
}

// process runs the per-record flow, stopping at the first failing stage.
// A panic in the generator or the store fails only this record.
func (p *Pipeline) process(ctx context.Context, record *core.Record) (result core.GenerationResult) {
	stage := StageGenerate
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("recovered panic", "id", record.Id, "name", record.Name, "stage", stage, "panic", r)
			result = failed(record, stage, fmt.Errorf("%w: %v", ErrPanic, r))
		}
	}()

	request := newRequest(p.prompt, record)

	raw, err := p.generate(ctx, request)
	if err != nil {
		return failed(record, StageGenerate, err)
	}

	content := ai.StripReasoning(raw)
	if content == "" {
		return failed(record, StageGenerate, ai.ErrEmptyResponse)
	}

	stage = StagePersist
	if err := p.persist(ctx, record.Id, content); err != nil {
		return failed(record, StagePersist, err)
	}

	p.logger.Debug("stored description", "id", record.Id, "name", record.Name, "length", len(content))
	return core.GenerationResult{
		RecordId: record.Id,
		Name:     record.Name,
		Status:   core.StatusSuccess,
		Content:  content,
	}
}

func (p *Pipeline) generate(ctx context.Context, request core.GenerationRequest) (string, error) {
	var raw string
	err := p.retry.Do(ctx, func(ctx context.Context) error {
		generationsInFlight.Inc()
		defer generationsInFlight.Dec()
		timer := prometheus.NewTimer(generationDuration)
		defer timer.ObserveDuration()

		out, err := p.generator.Generate(ctx, request.Prompt)
		if err != nil {
			return err
		}
		raw = out
		return nil
	})
	return raw, err
}

// persist holds a session only for the duration of the write.
func (p *Pipeline) persist(ctx context.Context, id core.ID, content string) error {
	session, err := p.repository.OpenSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			p.logger.Warn("failed to close session", "id", id, "err", closeErr)
		}
	}()
	return session.UpdateDescription(ctx, id, content)
}

func failed(record *core.Record, stage string, err error) core.GenerationResult {
	recordFailures.WithLabelValues(stage).Inc()
	return core.GenerationResult{
		RecordId: record.Id,
		Name:     record.Name,
		Status:   core.StatusFailure,
		Err:      &StageError{Stage: stage, Err: err},
	}
}

// Release frees the worker pool. The pipeline must not be used afterwards.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
