package indexing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"spexregister/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyRunning is returned when a run is requested while another is in progress
	ErrAlreadyRunning = errors.New("indexing already running")
	// ErrFetchUnsupported is returned by Update when the source cannot read single spexare
	ErrFetchUnsupported = errors.New("source does not support fetching by id")
)

// Entity is the name of the indexed entity, as used by the admin endpoint
const Entity = "spexare"

const defaultBatchSize = 1000

// Source reads spexare from the registry in id order
type Source interface {
	// Batch returns up to limit spexare with an id greater than afterID
	Batch(ctx context.Context, afterID int64, limit int) ([]models.Spexare, error)
}

// Fetcher is implemented by sources that can read spexare by id
type Fetcher interface {
	// Fetch returns the spexare with the given ids that still exist
	Fetch(ctx context.Context, ids []int64) ([]models.Spexare, error)
}

// Index is the search index being rebuilt
type Index interface {
	Index(ctx context.Context, spexare ...models.Spexare) error
	Delete(ctx context.Context, ids ...int64) error
	IDs(ctx context.Context) ([]int64, error)
	DocCount() (uint64, error)
}

// Status represents the current state of the indexer
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusFailed  Status = "failed"
)

// Result describes a finished run
type Result struct {
	Indexed  int           `json:"indexed"`
	Deleted  int           `json:"deleted"`
	Skipped  bool          `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// Statistics contains indexing statistics
type Statistics struct {
	Status           Status    `json:"status"`
	LastRunAt        time.Time `json:"last_run_at,omitempty"`
	DocumentsIndexed int64     `json:"documents_indexed"`
	DocumentsDeleted int64     `json:"documents_deleted"`
	LastError        string    `json:"last_error,omitempty"`
	ErrorCount       int       `json:"error_count"`
}

// Option configures an Indexer
type Option func(*Indexer)

// WithBatchSize sets how many spexare are read and indexed at a time
func WithBatchSize(size int) Option {
	return func(i *Indexer) {
		if size > 0 {
			i.batchSize = size
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(i *Indexer) {
		i.logger = logger
	}
}

// WithRegisterer registers the indexer metrics
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(i *Indexer) {
		i.registerer = reg
	}
}

// Indexer (re)builds the search index from a Source. At most one run is
// active at a time.
type Indexer struct {
	source     Source
	index      Index
	batchSize  int
	logger     *zap.Logger
	registerer prometheus.Registerer
	metrics    *metrics

	running atomic.Bool
	stats   struct {
		sync.RWMutex
		lastRunAt        time.Time
		documentsIndexed int64
		documentsDeleted int64
		lastError        string
		errorCount       int
	}

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// New creates an indexer
func New(source Source, index Index, opts ...Option) *Indexer {
	i := &Indexer{
		source:    source,
		index:     index,
		batchSize: defaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.metrics = newMetrics(i.registerer)
	i.ctx, i.cancel = context.WithCancel(context.Background())
	return i
}

// Run indexes every spexare of the source and removes the ones no longer
// present. Unless force is set, a run against a non-empty index is skipped.
func (i *Indexer) Run(ctx context.Context, force bool) (Result, error) {
	if !i.running.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyRunning
	}
	defer i.running.Store(false)

	return i.run(ctx, force)
}

// Trigger starts a run in the background
func (i *Indexer) Trigger(force bool) error {
	if !i.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		defer i.running.Store(false)

		if _, err := i.run(i.ctx, force); err != nil {
			i.logger.Error("Triggered indexing failed", zap.Error(err))
		}
	}()

	return nil
}

// Update brings the given spexare up to date: the ones the source still has
// are indexed, the others removed. It may run next to a full run.
func (i *Indexer) Update(ctx context.Context, ids ...int64) (Result, error) {
	var result Result
	if len(ids) == 0 {
		return result, nil
	}

	fetcher, ok := i.source.(Fetcher)
	if !ok {
		return result, ErrFetchUnsupported
	}

	start := time.Now()
	fetched, err := fetcher.Fetch(ctx, ids)
	if err != nil {
		return result, fmt.Errorf("failed to fetch changed spexare: %w", err)
	}

	if err := i.index.Index(ctx, fetched...); err != nil {
		return result, fmt.Errorf("failed to index changed spexare: %w", err)
	}
	result.Indexed = len(fetched)

	present := make(map[int64]struct{}, len(fetched))
	for _, sp := range fetched {
		present[sp.ID] = struct{}{}
	}
	var removed []int64
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		if err := i.index.Delete(ctx, removed...); err != nil {
			return result, fmt.Errorf("failed to remove deleted spexare: %w", err)
		}
		result.Deleted = len(removed)
	}
	result.Duration = time.Since(start)

	i.metrics.documents.WithLabelValues("indexed").Add(float64(result.Indexed))
	i.metrics.documents.WithLabelValues("deleted").Add(float64(result.Deleted))

	i.stats.Lock()
	i.stats.documentsIndexed += int64(result.Indexed)
	i.stats.documentsDeleted += int64(result.Deleted)
	i.stats.Unlock()

	i.logger.Debug("Applied changes",
		zap.Int("indexed", result.Indexed),
		zap.Int("deleted", result.Deleted),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// Running returns true while a run is in progress
func (i *Indexer) Running() bool {
	return i.running.Load()
}

// Schedule runs a forced full index on the given cron schedule
func (i *Indexer) Schedule(spec string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cron == nil {
		i.cron = cron.New()
	}

	_, err := i.cron.AddFunc(spec, func() {
		if _, err := i.Run(i.ctx, true); err != nil {
			if errors.Is(err, ErrAlreadyRunning) {
				i.logger.Info("Skipping scheduled indexing, already running")
				return
			}
			i.logger.Error("Scheduled indexing failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	i.cron.Start()
	i.logger.Info("Scheduled full indexing", zap.String("schedule", spec))
	return nil
}

// Stop cancels running work and waits for it to finish
func (i *Indexer) Stop() {
	i.cancel()

	i.mu.Lock()
	if i.cron != nil {
		<-i.cron.Stop().Done()
	}
	i.mu.Unlock()

	i.wg.Wait()
}

// Statistics returns the current statistics
func (i *Indexer) Statistics() Statistics {
	i.stats.RLock()
	defer i.stats.RUnlock()

	status := StatusIdle
	if i.Running() {
		status = StatusRunning
	} else if i.stats.lastError != "" {
		status = StatusFailed
	}

	return Statistics{
		Status:           status,
		LastRunAt:        i.stats.lastRunAt,
		DocumentsIndexed: i.stats.documentsIndexed,
		DocumentsDeleted: i.stats.documentsDeleted,
		LastError:        i.stats.lastError,
		ErrorCount:       i.stats.errorCount,
	}
}

func (i *Indexer) run(ctx context.Context, force bool) (Result, error) {
	start := time.Now()
	i.metrics.running.Set(1)
	defer i.metrics.running.Set(0)

	result, err := i.sync(ctx, force)
	result.Duration = time.Since(start)
	i.metrics.runDuration.Observe(result.Duration.Seconds())

	i.stats.Lock()
	i.stats.lastRunAt = start
	i.stats.documentsIndexed += int64(result.Indexed)
	i.stats.documentsDeleted += int64(result.Deleted)
	if err != nil {
		i.stats.lastError = err.Error()
		i.stats.errorCount++
	} else {
		i.stats.lastError = ""
	}
	i.stats.Unlock()

	switch {
	case err != nil:
		i.metrics.runs.WithLabelValues("failed").Inc()
		i.logger.Error("Indexing failed",
			zap.Int("indexed", result.Indexed),
			zap.Duration("duration", result.Duration),
			zap.Error(err))
	case result.Skipped:
		i.metrics.runs.WithLabelValues("skipped").Inc()
		i.logger.Info("Index already populated, skipping indexing")
	default:
		i.metrics.runs.WithLabelValues("completed").Inc()
		i.metrics.lastSuccessTime.SetToCurrentTime()
		i.logger.Info("Indexing completed",
			zap.Int("indexed", result.Indexed),
			zap.Int("deleted", result.Deleted),
			zap.Duration("duration", result.Duration))
	}

	return result, err
}

func (i *Indexer) sync(ctx context.Context, force bool) (Result, error) {
	var result Result

	if !force {
		count, err := i.index.DocCount()
		if err != nil {
			return result, fmt.Errorf("failed to count documents: %w", err)
		}
		if count > 0 {
			result.Skipped = true
			return result, nil
		}
	}

	i.logger.Info("Starting indexing", zap.Bool("force", force))

	existing, err := i.index.IDs(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list indexed documents: %w", err)
	}
	stale := make(map[int64]struct{}, len(existing))
	for _, id := range existing {
		stale[id] = struct{}{}
	}

	var afterID int64
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		batch, err := i.source.Batch(ctx, afterID, i.batchSize)
		if err != nil {
			return result, fmt.Errorf("failed to read batch after %d: %w", afterID, err)
		}
		if len(batch) == 0 {
			break
		}

		if err := i.index.Index(ctx, batch...); err != nil {
			return result, fmt.Errorf("failed to index batch after %d: %w", afterID, err)
		}

		previous := afterID
		for _, sp := range batch {
			delete(stale, sp.ID)
			if sp.ID > afterID {
				afterID = sp.ID
			}
		}
		if afterID == previous {
			return result, fmt.Errorf("source returned no id after %d", previous)
		}
		result.Indexed += len(batch)
		i.metrics.documents.WithLabelValues("indexed").Add(float64(len(batch)))

		i.logger.Debug("Indexed batch",
			zap.Int("batch_size", len(batch)),
			zap.Int("total", result.Indexed),
			zap.Int64("last_id", afterID))

		if len(batch) < i.batchSize {
			break
		}
	}

	if len(stale) > 0 {
		ids := make([]int64, 0, len(stale))
		for id := range stale {
			ids = append(ids, id)
		}
		if err := i.index.Delete(ctx, ids...); err != nil {
			return result, fmt.Errorf("failed to remove stale documents: %w", err)
		}
		result.Deleted = len(ids)
		i.metrics.documents.WithLabelValues("deleted").Add(float64(len(ids)))
	}

	return result, nil
}
