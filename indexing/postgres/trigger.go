package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Execer runs statements. *pgxpool.Pool satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const triggerPrefix = "spexregister_notify_"

// InstallNotifyTrigger creates the trigger that announces changed rows of the
// source table on the notify channel. The table must be a base table.
func InstallNotifyTrigger(ctx context.Context, db Execer, cfg *Config) error {
	cfg = cfg.WithDefaults()
	if cfg.NotifyChannel == "" {
		return fmt.Errorf("notify channel is required")
	}

	function, trigger := notifyTriggerSQL(cfg)
	if _, err := db.Exec(ctx, function); err != nil {
		return fmt.Errorf("failed to create notify function: %w", err)
	}
	if _, err := db.Exec(ctx, trigger); err != nil {
		return fmt.Errorf("failed to create notify trigger: %w", err)
	}
	return nil
}

// DropNotifyTrigger removes the trigger and its function
func DropNotifyTrigger(ctx context.Context, db Execer, cfg *Config) error {
	cfg = cfg.WithDefaults()
	funcName, triggerName := notifyNames(cfg)

	if _, err := db.Exec(ctx, fmt.Sprintf(`DROP TRIGGER IF EXISTS %s ON %s`, triggerName, cfg.FullTableName())); err != nil {
		return fmt.Errorf("failed to drop notify trigger: %w", err)
	}
	if _, err := db.Exec(ctx, fmt.Sprintf(`DROP FUNCTION IF EXISTS %s()`, funcName)); err != nil {
		return fmt.Errorf("failed to drop notify function: %w", err)
	}
	return nil
}

func notifyNames(cfg *Config) (funcName, triggerName string) {
	name := triggerPrefix + cfg.Table
	return pgx.Identifier{cfg.Schema, name}.Sanitize(), pgx.Identifier{name}.Sanitize()
}

// notifyTriggerSQL returns the statements creating the trigger function and
// the trigger. Payloads are {"op": TG_OP, "id": <id>}.
func notifyTriggerSQL(cfg *Config) (function, trigger string) {
	funcName, triggerName := notifyNames(cfg)
	id := pgx.Identifier{cfg.IDColumn}.Sanitize()

	function = fmt.Sprintf(`
		CREATE OR REPLACE FUNCTION %s()
		RETURNS TRIGGER AS $$
		BEGIN
			PERFORM pg_notify(%s,
				json_build_object(
					'op', TG_OP,
					'id', CASE WHEN TG_OP = 'DELETE' THEN OLD.%s ELSE NEW.%s END
				)::TEXT
			);
			RETURN NULL;
		END;
		$$ LANGUAGE plpgsql`, funcName, quoteLiteral(cfg.NotifyChannel), id, id)

	trigger = fmt.Sprintf(`
		CREATE OR REPLACE TRIGGER %s
		AFTER INSERT OR UPDATE OR DELETE ON %s
		FOR EACH ROW EXECUTE FUNCTION %s()`, triggerName, cfg.FullTableName(), funcName)

	return function, trigger
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
