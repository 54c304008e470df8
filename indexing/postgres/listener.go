package postgres

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Notification is the pg_notify payload sent by the change trigger
type Notification struct {
	Op string `json:"op"` // INSERT, UPDATE, DELETE
	ID int64  `json:"id"`
}

// ChangeFunc receives the ids of changed spexare, deduplicated and sorted
type ChangeFunc func(ctx context.Context, ids []int64) error

// Listener handles LISTEN/NOTIFY based index updates
type Listener struct {
	pool     *pgxpool.Pool
	config   *Config
	logger   *zap.Logger
	onChange ChangeFunc

	// Batching
	batchMu      sync.Mutex
	pending      map[int64]struct{}
	flush        chan struct{}
	batchTimeout time.Duration
	batchSize    int

	// Control
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewListener creates a new Listener
func NewListener(pool *pgxpool.Pool, config *Config, logger *zap.Logger, onChange ChangeFunc) *Listener {
	return &Listener{
		pool:         pool,
		config:       config,
		logger:       logger,
		onChange:     onChange,
		pending:      make(map[int64]struct{}),
		flush:        make(chan struct{}, 1),
		batchTimeout: 500 * time.Millisecond,
		batchSize:    100,
	}
}

// Start begins listening for notifications
func (l *Listener) Start(ctx context.Context) error {
	if l.config.NotifyChannel == "" {
		return fmt.Errorf("notify channel is required")
	}

	ctx, l.cancel = context.WithCancel(ctx)

	conn, err := l.listen(ctx)
	if err != nil {
		l.cancel()
		return err
	}

	l.logger.Info("Listening for notifications",
		zap.String("channel", l.config.NotifyChannel))

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.listenLoop(ctx, conn)
	}()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.batchProcessor(ctx)
	}()

	return nil
}

// Stop stops the listener. Pending changes are processed first.
func (l *Listener) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	l.wg.Wait()
}

// listen acquires a dedicated connection and subscribes to the channel
func (l *Listener) listen(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	channel := pgx.Identifier{l.config.NotifyChannel}.Sanitize()
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to LISTEN on channel %s: %w", channel, err)
	}

	return conn, nil
}

// listenLoop waits for notifications, reconnecting when the connection breaks
func (l *Listener) listenLoop(ctx context.Context, conn *pgxpool.Conn) {
	defer func() {
		if conn != nil {
			conn.Release()
		}
	}()

	for {
		if conn == nil {
			var err error
			if conn, err = l.listen(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to resubscribe", zap.Error(err))
				if !sleep(ctx, time.Second) {
					return
				}
				continue
			}
			l.logger.Warn("Resubscribed to notifications, changes made while disconnected are picked up by the next full index",
				zap.String("channel", l.config.NotifyChannel))
		}

		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return // Context cancelled
			}
			l.logger.Error("Error waiting for notification", zap.Error(err))
			// Drop the connection so it is not returned to the pool in a listening state
			_ = conn.Hijack().Close(context.Background())
			conn = nil
			continue
		}

		l.handle(notification.Payload)
	}
}

// handle parses a payload and adds it to the pending batch
func (l *Listener) handle(payload string) {
	var n Notification
	if err := sonic.UnmarshalString(payload, &n); err != nil || n.ID < 1 {
		l.logger.Warn("Failed to parse notification payload",
			zap.String("payload", payload),
			zap.Error(err))
		return
	}

	l.batchMu.Lock()
	l.pending[n.ID] = struct{}{}
	full := len(l.pending) >= l.batchSize
	l.batchMu.Unlock()

	// If batch is full, process immediately
	if full {
		select {
		case l.flush <- struct{}{}:
		default:
		}
	}
}

// batchProcessor periodically processes pending batches
func (l *Listener) batchProcessor(ctx context.Context) {
	ticker := time.NewTicker(l.batchTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Process any remaining items
			l.process(context.Background())
			return
		case <-ticker.C:
			l.process(ctx)
		case <-l.flush:
			l.process(ctx)
		}
	}
}

// process hands the pending ids to the callback
func (l *Listener) process(ctx context.Context) {
	ids := l.take()
	if len(ids) == 0 {
		return
	}

	if err := l.onChange(ctx, ids); err != nil {
		l.logger.Error("Failed to process notifications",
			zap.Int("count", len(ids)),
			zap.Error(err))
	}
}

func (l *Listener) take() []int64 {
	l.batchMu.Lock()
	defer l.batchMu.Unlock()

	if len(l.pending) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(l.pending))
	for id := range l.pending {
		ids = append(ids, id)
	}
	clear(l.pending)

	slices.Sort(ids)
	return ids
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
