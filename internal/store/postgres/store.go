package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tempohq/tempo/internal/domain"
)

type Store struct {
	pool  *pgxpool.Pool
	tasks *TaskRepo
	rules *RuleRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:  pool,
		tasks: NewTaskRepo(pool),
		rules: NewRuleRepo(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Tasks() domain.TaskRepository { return s.tasks }
func (s *Store) Rules() domain.RuleRepository { return s.rules }

// Migrate creates the schema when absent. Safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id               uuid PRIMARY KEY,
	title            text NOT NULL,
	description      text,
	status           text NOT NULL,
	priority         text NOT NULL,
	context          text NOT NULL,
	tags             text[] NOT NULL DEFAULT '{}',
	due_date         timestamptz,
	time_estimate    integer NOT NULL DEFAULT 0,
	time_spent       integer NOT NULL DEFAULT 0,
	recurrence       jsonb,
	parent_id        uuid,
	dependencies     uuid[] NOT NULL DEFAULT '{}',
	completed_at     timestamptz,
	deleted_at       timestamptz,
	created_at       timestamptz NOT NULL,
	updated_at       timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS tasks_status_idx ON tasks (status);
CREATE INDEX IF NOT EXISTS tasks_parent_idx ON tasks (parent_id);
CREATE INDEX IF NOT EXISTS tasks_due_idx ON tasks (due_date);

CREATE TABLE IF NOT EXISTS automation_rules (
	id               uuid PRIMARY KEY,
	name             text NOT NULL,
	description      text,
	enabled          boolean NOT NULL,
	trigger_def      jsonb NOT NULL,
	conditions       jsonb NOT NULL,
	actions          jsonb NOT NULL,
	priority         integer NOT NULL DEFAULT 0,
	execution_count  integer NOT NULL DEFAULT 0,
	last_executed_at timestamptz,
	created_at       timestamptz NOT NULL,
	updated_at       timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS automation_rules_enabled_idx ON automation_rules (enabled);
`

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres.Store.Migrate: %w", err)
	}

	return nil
}
