package retrain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"material-service/internal/extract"
)

func TestBuildFeedbackSpans(t *testing.T) {
	text := "me arruma fita isolante em rolo"
	fb, err := BuildFeedback(text, []Correction{
		{Value: "rolo", Label: extract.LabelUnit},
		{Value: "fita isolante", Label: "descricao"},
		{Value: "", Label: extract.LabelFamily},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, fb.ID)
	assert.Equal(t, []extract.Span{
		{Start: 10, End: 23, Label: extract.LabelDescription},
		{Start: 27, End: 31, Label: extract.LabelUnit},
	}, fb.Entities)
}

func TestBuildFeedbackRuneOffsets(t *testing.T) {
	fb, err := BuildFeedback("conexão de pvc", []Correction{{Value: "de pvc", Label: extract.LabelDescription}})
	require.NoError(t, err)
	require.Len(t, fb.Entities, 1)
	assert.Equal(t, 8, fb.Entities[0].Start)
	assert.Equal(t, 14, fb.Entities[0].End)
}

func TestBuildFeedbackFirstOccurrence(t *testing.T) {
	fb, err := BuildFeedback("pc de pc", []Correction{{Value: "pc", Label: extract.LabelUnit}})
	require.NoError(t, err)
	assert.Equal(t, 0, fb.Entities[0].Start)
}

func TestBuildFeedbackMissingEntity(t *testing.T) {
	_, err := BuildFeedback("parafuso m8", []Correction{
		{Value: "parafuso", Label: extract.LabelDescription},
		{Value: "KG", Label: extract.LabelUnit},
	})
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestFeedbackStoreAppendPendingConsume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "feedback.jsonl")
	s := NewFeedbackStore(path)

	pending, n, err := s.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Zero(t, n)

	for _, text := range []string{"um", "dois"} {
		fb, err := BuildFeedback(text, []Correction{{Value: text, Label: extract.LabelDescription}})
		require.NoError(t, err)
		require.NoError(t, s.Append(fb))
	}
	pending, n, err = s.Pending()
	require.NoError(t, err)
	require.Equal(t, 2, n)
	assert.Equal(t, "um", pending[0].Text)

	// пример, пришедший во время обучения, переживает Consume
	late, err := BuildFeedback("tres", []Correction{{Value: "tres", Label: extract.LabelDescription}})
	require.NoError(t, err)
	require.NoError(t, s.Append(late))
	require.NoError(t, s.Consume(n))

	pending, n, err = s.Pending()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, "tres", pending[0].Text)
}

func TestFeedbackStoreSkipsBrokenLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{broken\n{\"texto\":\"ok\",\"entidades\":[[0,2,\"DESCRICAO\"]]}\n"), 0o644))

	pending, n, err := NewFeedbackStore(path).Pending()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, pending, 1)
	assert.Equal(t, "ok", pending[0].Text)
}

func TestCoordinatorRejectPolicy(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	c := NewCoordinator(context.Background(), PolicyReject, func(ctx context.Context) error {
		calls.Add(1)
		<-release
		return nil
	}, zerolog.Nop())

	assert.Equal(t, Started, c.TryStart())
	assert.True(t, c.Running())
	assert.Equal(t, AlreadyRunning, c.TryStart())
	assert.Equal(t, AlreadyRunning, c.TryStart())

	close(release)
	c.Wait()
	assert.False(t, c.Running())
	assert.Equal(t, int32(1), calls.Load())

	assert.Equal(t, Started, c.TryStart())
	c.Wait()
	runs, lastErr := c.Stats()
	assert.Equal(t, 2, runs)
	assert.NoError(t, lastErr)
}

func TestCoordinatorQueuePolicyCoalesces(t *testing.T) {
	gate := make(chan struct{})
	var calls atomic.Int32
	c := NewCoordinator(context.Background(), PolicyQueue, func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			<-gate
		}
		return nil
	}, zerolog.Nop())

	assert.Equal(t, Started, c.TryStart())
	assert.Equal(t, Queued, c.TryStart())
	assert.Equal(t, Queued, c.TryStart())
	close(gate)
	c.Wait()

	assert.Equal(t, int32(2), calls.Load())
	assert.False(t, c.Running())
}

func TestCoordinatorRecordsError(t *testing.T) {
	boom := errors.New("boom")
	c := NewCoordinator(context.Background(), PolicyReject, func(context.Context) error { return boom }, zerolog.Nop())
	c.TryStart()
	c.Wait()
	_, lastErr := c.Stats()
	assert.ErrorIs(t, lastErr, boom)
}

func TestCoordinatorTryStartDoesNotBlock(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	c := NewCoordinator(context.Background(), PolicyReject, func(context.Context) error {
		<-block
		return nil
	}, zerolog.Nop())
	c.TryStart()

	done := make(chan StartResult, 1)
	go func() { done <- c.TryStart() }()
	select {
	case r := <-done:
		assert.Equal(t, AlreadyRunning, r)
	case <-time.After(time.Second):
		t.Fatal("TryStart blocked")
	}
}

func TestJobRetrainsAndPublishes(t *testing.T) {
	dir := t.TempDir()
	store := NewFeedbackStore(filepath.Join(dir, "feedback.jsonl"))
	mgr := extract.NewManager(extract.NewRuleExtractor())
	job := NewJob(store, mgr, filepath.Join(dir, "extractor.json"), zerolog.Nop())

	// пустой журнал - ничего не делаем
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 0, mgr.Current().Version)

	fb, err := BuildFeedback("me arruma fita isolante em rolo", []Correction{
		{Value: "fita isolante", Label: extract.LabelDescription},
		{Value: "rolo", Label: extract.LabelUnit},
	})
	require.NoError(t, err)
	require.NoError(t, store.Append(fb))

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, mgr.Current().Version)
	assert.Equal(t, "ROLO", mgr.Extract("me arruma fita isolante em rolo")[extract.LabelUnit])

	saved, err := extract.LoadRuleExtractor(filepath.Join(dir, "extractor.json"))
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Version)

	_, n, err := store.Pending()
	require.NoError(t, err)
	assert.Zero(t, n)
}
