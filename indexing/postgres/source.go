package postgres

import (
	"context"
	"fmt"

	"spexregister/models"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Querier runs queries. *pgxpool.Pool satisfies it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Source reads spexare documents from a table by keyset pagination on the id
type Source struct {
	db     Querier
	config *Config
	logger *zap.Logger

	batchQuery string
	fetchQuery string
}

// NewSource creates a source reading from the configured table
func NewSource(db Querier, cfg *Config, logger *zap.Logger) *Source {
	cfg = cfg.WithDefaults()
	return &Source{
		db:     db,
		config: cfg,
		logger: logger,

		batchQuery: batchQuery(cfg),
		fetchQuery: fetchQuery(cfg),
	}
}

func batchQuery(cfg *Config) string {
	id := pgx.Identifier{cfg.IDColumn}.Sanitize()
	document := pgx.Identifier{cfg.DocumentColumn}.Sanitize()
	return fmt.Sprintf(
		"SELECT %s, %s FROM %s WHERE %s > $1 ORDER BY %s LIMIT $2",
		id, document, cfg.FullTableName(), id, id)
}

func fetchQuery(cfg *Config) string {
	id := pgx.Identifier{cfg.IDColumn}.Sanitize()
	document := pgx.Identifier{cfg.DocumentColumn}.Sanitize()
	return fmt.Sprintf(
		"SELECT %s, %s FROM %s WHERE %s = ANY($1) ORDER BY %s",
		id, document, cfg.FullTableName(), id, id)
}

// Batch returns up to limit spexare with an id greater than afterID.
// Rows whose document cannot be decoded are logged and skipped.
func (s *Source) Batch(ctx context.Context, afterID int64, limit int) ([]models.Spexare, error) {
	rows, err := s.db.Query(ctx, s.batchQuery, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return s.collect(rows, limit)
}

// Fetch returns the spexare with the given ids. Ids without a row are
// absent from the result.
func (s *Source) Fetch(ctx context.Context, ids []int64) ([]models.Spexare, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx, s.fetchQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return s.collect(rows, len(ids))
}

func (s *Source) collect(rows pgx.Rows, capacity int) ([]models.Spexare, error) {
	defer rows.Close()

	batch := make([]models.Spexare, 0, capacity)
	for rows.Next() {
		var id int64
		var document []byte
		if err := rows.Scan(&id, &document); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		sp, err := decodeSpexare(id, document)
		if err != nil {
			s.logger.Warn("Skipping undecodable spexare",
				zap.Int64("id", id),
				zap.Error(err))
			continue
		}
		batch = append(batch, sp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return batch, nil
}

// decodeSpexare decodes a json document. The id column wins over any id in
// the document.
func decodeSpexare(id int64, document []byte) (models.Spexare, error) {
	var sp models.Spexare
	if len(document) > 0 {
		if err := sonic.Unmarshal(document, &sp); err != nil {
			return models.Spexare{}, err
		}
	}
	sp.ID = id
	return sp, nil
}
