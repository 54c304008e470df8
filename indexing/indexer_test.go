package indexing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"spexregister/models"
	"spexregister/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu       sync.Mutex
	spexare  []models.Spexare
	calls    int
	err      error
	block    chan struct{}
	released chan struct{}
}

func (s *fakeSource) Batch(ctx context.Context, afterID int64, limit int) ([]models.Spexare, error) {
	if s.block != nil {
		select {
		case s.released <- struct{}{}:
		default:
		}
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	if s.err != nil {
		return nil, s.err
	}

	batch := make([]models.Spexare, 0, limit)
	for _, sp := range s.spexare {
		if sp.ID > afterID && len(batch) < limit {
			batch = append(batch, sp)
		}
	}
	return batch, nil
}

func people(ids ...int64) []models.Spexare {
	out := make([]models.Spexare, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Spexare{ID: id, FirstName: "Spexare", LastName: "Anka"})
	}
	return out
}

// counterValue sums every series of a counter family
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range f.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
		return sum
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

func newIndex(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemOnly()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRunIndexesAllBatches(t *testing.T) {
	index := newIndex(t)
	source := &fakeSource{spexare: people(1, 2, 3, 4, 5)}
	reg := prometheus.NewRegistry()
	indexer := New(source, index, WithBatchSize(2), WithRegisterer(reg))
	defer indexer.Stop()

	result, err := indexer.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Indexed)
	assert.Equal(t, 0, result.Deleted)
	assert.False(t, result.Skipped)
	assert.Equal(t, 3, source.calls)

	count, err := index.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)

	assert.Equal(t, float64(5), counterValue(t, reg, "spexregister_indexer_documents_total"))
	assert.Equal(t, float64(1), counterValue(t, reg, "spexregister_indexer_runs_total"))

	stats := indexer.Statistics()
	assert.Equal(t, StatusIdle, stats.Status)
	assert.Equal(t, int64(5), stats.DocumentsIndexed)
}

func TestRunSkipsPopulatedIndexUnlessForced(t *testing.T) {
	index := newIndex(t)
	require.NoError(t, index.Index(context.Background(), people(1)...))

	source := &fakeSource{spexare: people(1, 2)}
	indexer := New(source, index)
	defer indexer.Stop()

	result, err := indexer.Run(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, 0, source.calls)

	result, err = indexer.Run(context.Background(), true)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 2, result.Indexed)
}

func TestRunRemovesStaleDocuments(t *testing.T) {
	index := newIndex(t)
	require.NoError(t, index.Index(context.Background(), people(1, 2, 3)...))

	indexer := New(&fakeSource{spexare: people(2, 3, 4)}, index)
	defer indexer.Stop()

	result, err := indexer.Run(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Indexed)
	assert.Equal(t, 1, result.Deleted)

	ids, err := index.IDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{2, 3, 4}, ids)
}

func TestRunSourceFailure(t *testing.T) {
	index := newIndex(t)
	indexer := New(&fakeSource{err: errors.New("database down")}, index)
	defer indexer.Stop()

	_, err := indexer.Run(context.Background(), true)
	assert.ErrorContains(t, err, "database down")

	stats := indexer.Statistics()
	assert.Equal(t, StatusFailed, stats.Status)
	assert.Equal(t, 1, stats.ErrorCount)
	assert.Contains(t, stats.LastError, "database down")
}

func TestTriggerRejectsConcurrentRuns(t *testing.T) {
	index := newIndex(t)
	source := &fakeSource{
		spexare:  people(1, 2),
		block:    make(chan struct{}),
		released: make(chan struct{}, 1),
	}
	indexer := New(source, index)
	defer indexer.Stop()

	require.NoError(t, indexer.Trigger(true))

	select {
	case <-source.released:
	case <-time.After(5 * time.Second):
		t.Fatal("triggered run did not start")
	}

	assert.True(t, indexer.Running())
	assert.ErrorIs(t, indexer.Trigger(true), ErrAlreadyRunning)
	_, err := indexer.Run(context.Background(), true)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(source.block)
	assert.Eventually(t, func() bool { return !indexer.Running() }, 5*time.Second, 10*time.Millisecond)

	count, err := index.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestStopCancelsTriggeredRun(t *testing.T) {
	index := newIndex(t)
	source := &fakeSource{
		spexare:  people(1),
		block:    make(chan struct{}),
		released: make(chan struct{}, 1),
	}
	indexer := New(source, index)

	require.NoError(t, indexer.Trigger(true))
	<-source.released

	done := make(chan struct{})
	go func() {
		indexer.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stop did not return")
	}
	assert.False(t, indexer.Running())
}

func TestScheduleRejectsInvalidSpec(t *testing.T) {
	indexer := New(&fakeSource{}, newIndex(t))
	defer indexer.Stop()

	assert.Error(t, indexer.Schedule("not a cron spec"))
	assert.NoError(t, indexer.Schedule("0 3 * * *"))
}

type fetchingSource struct {
	fakeSource
}

func (s *fetchingSource) Fetch(_ context.Context, ids []int64) ([]models.Spexare, error) {
	var out []models.Spexare
	for _, sp := range s.spexare {
		for _, id := range ids {
			if sp.ID == id {
				out = append(out, sp)
			}
		}
	}
	return out, nil
}

func TestUpdateIndexesAndRemoves(t *testing.T) {
	index := newIndex(t)
	require.NoError(t, index.Index(context.Background(), people(1, 2)...))

	changed := people(1, 3)
	changed[0].NickName = "Ankan"
	source := &fetchingSource{fakeSource{spexare: changed}}

	indexer := New(source, index)
	defer indexer.Stop()

	result, err := indexer.Update(context.Background(), 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Indexed)
	assert.Equal(t, 1, result.Deleted)

	ids, err := index.IDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 3}, ids)

	sp, err := index.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "Ankan", sp.NickName)
}

func TestUpdateRequiresFetcher(t *testing.T) {
	indexer := New(&fakeSource{}, newIndex(t))
	defer indexer.Stop()

	_, err := indexer.Update(context.Background(), 1)
	assert.ErrorIs(t, err, ErrFetchUnsupported)

	result, err := indexer.Update(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Indexed)
}
