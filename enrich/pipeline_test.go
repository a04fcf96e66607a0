package enrich

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/uniterare/ai"
	"github.com/poiesic/uniterare/ai/mock"
	"github.com/poiesic/uniterare/core"
	"github.com/poiesic/uniterare/retry"
	"github.com/poiesic/uniterare/storage"
	badgerstore "github.com/poiesic/uniterare/storage/badger"
	"github.com/poiesic/uniterare/storage/sqlstore"
)

func setupBadger(t *testing.T, names ...string) *badgerstore.RecordRepository {
	t.Helper()
	repo, backend, err := badgerstore.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})

	if len(names) > 0 {
		records := make([]*core.Record, len(names))
		for i, name := range names {
			records[i] = &core.Record{Name: name}
		}
		_, err = repo.AddRecords(context.Background(), records...)
		require.NoError(t, err)
	}
	return repo
}

func setupSQLite(t *testing.T) *sqlstore.Repository {
	t.Helper()
	ctx := context.Background()
	repo, err := sqlstore.OpenSQLite(ctx, filepath.Join(t.TempDir(), "diseases.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.EnsureSchema(ctx))
	return repo
}

func newTestPipeline(t *testing.T, repo storage.RecordRepository, gen ai.Generator, opts ...Option) (*Pipeline, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	opts = append([]Option{WithOutput(&out)}, opts...)
	p, err := NewPipeline(repo, gen, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p, &out
}

func outputLines(out *bytes.Buffer) []string {
	return strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
}

func TestNewPipeline_Validation(t *testing.T) {
	repo := setupBadger(t)
	gen := mock.NewMockGenerator()

	_, err := NewPipeline(nil, gen)
	assert.ErrorIs(t, err, ErrRepositoryRequired)

	_, err = NewPipeline(repo, nil)
	assert.ErrorIs(t, err, ErrGeneratorRequired)

	_, err = NewPipeline(repo, gen, WithMaxAttempts(0))
	assert.ErrorIs(t, err, retry.ErrInvalidMaxAttempts)

	p, err := NewPipeline(repo, gen)
	require.NoError(t, err)
	defer p.Release()
	assert.Equal(t, DefaultPoolSize, p.PoolSize())

	p2, err := NewPipeline(repo, gen, WithPoolSize(0))
	require.NoError(t, err)
	defer p2.Release()
	assert.Equal(t, 1, p2.PoolSize())
}

func TestRun_FabryAndGaucher(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()
	_, err := repo.DB().ExecContext(ctx,
		`INSERT INTO diseases (id, disease, description) VALUES (1, 'Fabry Disease', ''), (2, 'Gaucher Disease', NULL)`)
	require.NoError(t, err)

	gen := mock.NewMockGenerator().WithGenerateFunc(func(ctx context.Context, prompt string) (string, error) {
		if strings.HasPrefix(prompt, "Fabry Disease:") {
			return "<think>reasoning</think>Long description A", nil
		}
		return "", context.DeadlineExceeded
	})

	p, out := newTestPipeline(t, repo, gen, WithPoolSize(2))
	summary, err := p.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Stored)
	assert.Equal(t, 1, summary.Failed)
	assert.NotEmpty(t, summary.RunID)

	fabry, err := repo.GetRecord(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Long description A", fabry.Description)

	gaucher, err := repo.GetRecord(ctx, 2)
	require.NoError(t, err)
	assert.True(t, gaucher.IsPending())

	lines := outputLines(out)
	require.Len(t, lines, 3)
	assert.ElementsMatch(t, []string{
		"Stored: Fabry Disease",
		"Failed: Gaucher Disease — generate: " + context.DeadlineExceeded.Error(),
	}, lines[:2])
	assert.Equal(t, CompletionLine, lines[2])

	for _, result := range summary.Results {
		if result.RecordId == 2 {
			assert.ErrorIs(t, result.Err, ErrGeneration)
			assert.ErrorIs(t, result.Err, context.DeadlineExceeded)
			assert.NotErrorIs(t, result.Err, ErrPersist)
		}
	}

	pending, err := repo.FetchPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, core.ID(2), pending[0].Id)
}

func TestRun_StripsReasoningAndStores(t *testing.T) {
	repo := setupBadger(t, "Fabry disease", "Gaucher disease", "Pompe disease")
	gen := mock.NewMockGenerator()
	ctx := context.Background()

	p, out := newTestPipeline(t, repo, gen)
	summary, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Stored)
	assert.Equal(t, 3, gen.CallCount())

	record, err := repo.FindByName(ctx, "pompe disease")
	require.NoError(t, err)
	assert.Equal(t, BuildPrompt(record), record.Description)
	assert.NotContains(t, record.Description, ai.ReasoningOpen)

	assert.Contains(t, out.String(), "Stored: Pompe disease\n")
	assert.True(t, strings.HasSuffix(out.String(), CompletionLine+"\n"))

	// A second run finds nothing left to do.
	out.Reset()
	summary, err = p.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.Equal(t, 3, gen.CallCount())
	assert.Equal(t, CompletionLine+"\n", out.String())
}

func TestRun_ConcurrencyBound(t *testing.T) {
	const poolSize = 3
	var names []string
	for i := 0; i < 24; i++ {
		names = append(names, fmt.Sprintf("Disease %02d", i))
	}
	repo := setupBadger(t, names...)
	gen := mock.NewMockGenerator().WithDelay(15 * time.Millisecond)

	p, _ := newTestPipeline(t, repo, gen, WithPoolSize(poolSize))
	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 24, summary.Stored)
	assert.Equal(t, 24, gen.CallCount())
	assert.LessOrEqual(t, gen.MaxInFlight(), poolSize)
	assert.Greater(t, gen.MaxInFlight(), 0)
}

func TestRun_PartitionCompleteness(t *testing.T) {
	var names []string
	for i := 0; i < 40; i++ {
		names = append(names, fmt.Sprintf("Syndrome %02d", i))
	}
	repo := setupBadger(t, names...)
	ctx := context.Background()

	fetched, err := repo.FetchPending(ctx)
	require.NoError(t, err)
	want := make(map[core.ID]bool, len(fetched))
	for _, r := range fetched {
		want[r.Id] = true
	}

	// Every third record fails.
	var mu sync.Mutex
	calls := 0
	gen := mock.NewMockGenerator().WithGenerateFunc(func(ctx context.Context, prompt string) (string, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n%3 == 0 {
			return "", errors.New("rate limited")
		}
		return "text for " + prompt, nil
	})

	p, out := newTestPipeline(t, repo, gen, WithPoolSize(5))
	summary, err := p.Run(ctx)
	require.NoError(t, err)

	got := make(map[core.ID]int, len(summary.Results))
	for _, result := range summary.Results {
		got[result.RecordId]++
	}
	require.Len(t, got, len(want))
	for id, n := range got {
		assert.True(t, want[id], "unexpected id %d", id)
		assert.Equal(t, 1, n, "id %d reported more than once", id)
	}
	assert.Equal(t, summary.Total, summary.Stored+summary.Failed)
	assert.Len(t, outputLines(out), len(want)+1)

	// Pending invariant: exactly the failed records are still pending.
	pending, err := repo.FetchPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, summary.Failed)
	failedIDs := make(map[core.ID]bool)
	for _, result := range summary.Results {
		if result.Status == core.StatusFailure {
			failedIDs[result.RecordId] = true
		}
	}
	for _, r := range pending {
		assert.True(t, failedIDs[r.Id])
	}
}

// flakyRepository fails writes for one record id.
type flakyRepository struct {
	storage.RecordRepository
	failID   core.ID
	panicID  core.ID
	fetchErr error
	sessions int
	mu       sync.Mutex
}

func (r *flakyRepository) FetchPending(ctx context.Context) ([]*core.Record, error) {
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	return r.RecordRepository.FetchPending(ctx)
}

func (r *flakyRepository) OpenSession(ctx context.Context) (storage.Session, error) {
	r.mu.Lock()
	r.sessions++
	r.mu.Unlock()
	s, err := r.RecordRepository.OpenSession(ctx)
	if err != nil {
		return nil, err
	}
	return &flakySession{Session: s, failID: r.failID, panicID: r.panicID}, nil
}

type flakySession struct {
	storage.Session
	failID  core.ID
	panicID core.ID
}

func (s *flakySession) UpdateDescription(ctx context.Context, id core.ID, description string) error {
	if s.panicID != 0 && id == s.panicID {
		panic("connection reset mid-write")
	}
	if id == s.failID {
		return errors.New("disk full")
	}
	return s.Session.UpdateDescription(ctx, id, description)
}

func TestRun_PersistFailureLeavesRecordPending(t *testing.T) {
	base := setupBadger(t, "Fabry disease", "Gaucher disease")
	ctx := context.Background()
	gaucher, err := base.FindByName(ctx, "Gaucher disease")
	require.NoError(t, err)

	repo := &flakyRepository{RecordRepository: base, failID: gaucher.Id}
	p, out := newTestPipeline(t, repo, mock.NewMockGenerator())
	summary, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Stored)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, repo.sessions)

	assert.Contains(t, out.String(), "Failed: Gaucher disease — persist: disk full\n")

	for _, result := range summary.Results {
		if result.RecordId == gaucher.Id {
			assert.ErrorIs(t, result.Err, ErrPersist)
			assert.NotErrorIs(t, result.Err, ErrGeneration)
			var stageErr *StageError
			require.ErrorAs(t, result.Err, &stageErr)
			assert.Equal(t, StagePersist, stageErr.Stage)
		}
	}

	got, err := base.GetRecord(ctx, gaucher.Id)
	require.NoError(t, err)
	assert.True(t, got.IsPending())
}

// runWithin fails the test instead of hanging if Run never returns.
func runWithin(t *testing.T, p *Pipeline, d time.Duration) *Summary {
	t.Helper()
	type outcome struct {
		summary *Summary
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		summary, err := p.Run(context.Background())
		done <- outcome{summary, err}
	}()
	select {
	case o := <-done:
		require.NoError(t, o.err)
		return o.summary
	case <-time.After(d):
		t.Fatalf("Run did not return within %s", d)
		return nil
	}
}

func TestRun_GeneratorPanicFailsOnlyThatRecord(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()
	_, err := repo.DB().ExecContext(ctx,
		`INSERT INTO diseases (id, disease, description) VALUES (1, 'Fabry Disease', ''), (2, 'Gaucher Disease', NULL)`)
	require.NoError(t, err)

	gen := mock.NewMockGenerator().WithGenerateFunc(func(ctx context.Context, prompt string) (string, error) {
		if strings.HasPrefix(prompt, "Gaucher Disease:") {
			panic("nil response body")
		}
		return "Long description A", nil
	})

	p, out := newTestPipeline(t, repo, gen, WithPoolSize(2))
	summary := runWithin(t, p, 5*time.Second)

	assert.Equal(t, 1, summary.Stored)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, out.String(), "Stored: Fabry Disease\n")
	assert.Contains(t, out.String(), "Failed: Gaucher Disease — generate: panic: nil response body\n")
	assert.True(t, strings.HasSuffix(out.String(), CompletionLine+"\n"))

	for _, result := range summary.Results {
		if result.RecordId == 2 {
			assert.ErrorIs(t, result.Err, ErrGeneration)
			assert.ErrorIs(t, result.Err, ErrPanic)
		}
	}

	fabry, err := repo.GetRecord(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Long description A", fabry.Description)

	gaucher, err := repo.GetRecord(ctx, 2)
	require.NoError(t, err)
	assert.True(t, gaucher.IsPending())
}

func TestRun_SessionPanicFailsOnlyThatRecord(t *testing.T) {
	base := setupBadger(t, "Fabry disease", "Gaucher disease")
	ctx := context.Background()
	gaucher, err := base.FindByName(ctx, "Gaucher disease")
	require.NoError(t, err)

	repo := &flakyRepository{RecordRepository: base, panicID: gaucher.Id}
	p, out := newTestPipeline(t, repo, mock.NewMockGenerator(), WithPoolSize(1))
	summary := runWithin(t, p, 5*time.Second)

	assert.Equal(t, 1, summary.Stored)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, out.String(), "Failed: Gaucher disease — persist: panic: connection reset mid-write\n")
	assert.Equal(t, CompletionLine, outputLines(out)[2])

	for _, result := range summary.Results {
		if result.RecordId == gaucher.Id {
			assert.ErrorIs(t, result.Err, ErrPersist)
		}
	}

	got, err := base.GetRecord(ctx, gaucher.Id)
	require.NoError(t, err)
	assert.True(t, got.IsPending())
}

func TestRun_FetchFailureIsFatal(t *testing.T) {
	base := setupBadger(t, "Fabry disease")
	repo := &flakyRepository{RecordRepository: base, fetchErr: errors.New("connection refused")}
	gen := mock.NewMockGenerator()

	p, out := newTestPipeline(t, repo, gen)
	summary, err := p.Run(context.Background())
	assert.Nil(t, summary)
	assert.ErrorIs(t, err, ErrStore)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Zero(t, gen.CallCount())
	assert.Empty(t, out.String())
}

func TestRun_EmptyAfterStripIsGenerationFailure(t *testing.T) {
	repo := setupBadger(t, "Fabry disease")
	gen := mock.NewMockGenerator().WithGenerateFunc(func(ctx context.Context, prompt string) (string, error) {
		return "<think>only thoughts</think>\n  ", nil
	})

	p, _ := newTestPipeline(t, repo, gen)
	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.ErrorIs(t, summary.Results[0].Err, ErrGeneration)
	assert.ErrorIs(t, summary.Results[0].Err, ai.ErrEmptyResponse)

	pending, err := repo.FetchPending(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestRun_RetriesGenerator(t *testing.T) {
	repo := setupBadger(t, "Fabry disease")
	var mu sync.Mutex
	attempts := 0
	gen := mock.NewMockGenerator().WithGenerateFunc(func(ctx context.Context, prompt string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return "", errors.New("503 service unavailable")
		}
		return "Recovered", nil
	})

	p, _ := newTestPipeline(t, repo, gen, WithMaxAttempts(3), WithRetryDelay(time.Millisecond))
	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Stored)
	assert.Equal(t, 3, gen.CallCount())
}

func TestRun_NoRetryByDefault(t *testing.T) {
	repo := setupBadger(t, "Fabry disease")
	gen := mock.NewMockGenerator().WithGenerateFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("503 service unavailable")
	})

	p, _ := newTestPipeline(t, repo, gen)
	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, gen.CallCount())
}

func TestRun_Progress(t *testing.T) {
	repo := setupBadger(t, "A syndrome", "B syndrome", "C syndrome", "D syndrome")
	var progress bytes.Buffer

	p, _ := newTestPipeline(t, repo, mock.NewMockGenerator(), WithProgress(&progress, 2))
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, progress.String(), "Progress: 2/4")
	assert.Contains(t, progress.String(), "Progress: 4/4 (100.0%) stored=4 failed=0")
}

func TestRun_CustomPrompt(t *testing.T) {
	repo := setupBadger(t, "Fabry disease")
	gen := mock.NewMockGenerator()

	p, _ := newTestPipeline(t, repo, gen, WithPromptBuilder(func(r *core.Record) string {
		return "Describe " + r.Name
	}))
	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Describe Fabry disease"}, gen.Prompts())
}

func TestDescribe(t *testing.T) {
	repo := setupBadger(t, "Fabry disease", "Gaucher disease")
	ctx := context.Background()
	fabry, err := repo.FindByName(ctx, "Fabry disease")
	require.NoError(t, err)
	require.NoError(t, repo.UpdateDescription(ctx, fabry.Id, "Already known."))

	gen := mock.NewMockGenerator().WithGenerateFunc(func(ctx context.Context, prompt string) (string, error) {
		return "<think>hmm</think> Fresh text ", nil
	})
	p, out := newTestPipeline(t, repo, gen)

	desc, err := p.Describe(ctx, "FABRY DISEASE")
	require.NoError(t, err)
	assert.Equal(t, "Already known.", desc)
	assert.Zero(t, gen.CallCount())

	desc, err = p.Describe(ctx, "gaucher disease")
	require.NoError(t, err)
	assert.Equal(t, "Fresh text", desc)
	assert.Equal(t, 1, gen.CallCount())

	stored, err := repo.FindByName(ctx, "Gaucher disease")
	require.NoError(t, err)
	assert.Equal(t, "Fresh text", stored.Description)

	_, err = p.Describe(ctx, "Pompe disease")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Empty(t, out.String())
}

func TestDescribe_GenerationFailure(t *testing.T) {
	repo := setupBadger(t, "Fabry disease")
	gen := mock.NewMockGenerator().WithGenerateFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("invalid api key")
	})
	p, _ := newTestPipeline(t, repo, gen)

	_, err := p.Describe(context.Background(), "Fabry disease")
	assert.ErrorIs(t, err, ErrGeneration)
	assert.EqualError(t, err, "generate: invalid api key")
}
