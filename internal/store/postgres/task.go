package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tempohq/tempo/internal/domain"
)

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

const taskColumns = `id, title, description, status, priority, context, tags, due_date,
	time_estimate, time_spent, recurrence, parent_id, dependencies,
	completed_at, deleted_at, created_at, updated_at`

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	recurrence, err := marshalRecurrence(t.Recurrence)
	if err != nil {
		return fmt.Errorf("taskRepo.Create: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		t.ID, t.Title, t.Description, t.Status, t.Priority, t.Context,
		t.Tags, t.DueDate, t.TimeEstimate, t.TimeSpent, recurrence,
		t.ParentID, t.Dependencies, t.CompletedAt, t.DeletedAt,
		t.CreatedAt, t.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("taskRepo.Create: %w", domain.ErrDuplicateTask)
	}
	if err != nil {
		return fmt.Errorf("taskRepo.Create: %w", err)
	}

	return nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)

	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("taskRepo.GetByID: %w", domain.ErrTaskNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("taskRepo.GetByID: %w", err)
	}

	return t, nil
}

func (r *TaskRepo) List(ctx context.Context, f domain.TaskFilter) ([]*domain.Task, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.IncludeDeleted {
		where = append(where, "deleted_at IS NULL")
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(f.Status))
	}
	if f.Priority != "" {
		where = append(where, "priority = "+arg(f.Priority))
	}
	if f.Context != "" {
		where = append(where, "context = "+arg(f.Context))
	}
	if f.ParentID != nil {
		where = append(where, "parent_id = "+arg(*f.ParentID))
	}
	if f.DueAfter != nil {
		where = append(where, "due_date >= "+arg(*f.DueAfter))
	}
	if f.DueBefore != nil {
		where = append(where, "due_date <= "+arg(*f.DueBefore))
	}
	if f.DueOrOverdue {
		where = append(where, "due_date <= "+arg(endOfDay(time.Now())))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id LIMIT 1000"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.List: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		t, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("taskRepo.List: scan: %w", scanErr)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("taskRepo.List: rows: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepo) Update(ctx context.Context, t *domain.Task) error {
	recurrence, err := marshalRecurrence(t.Recurrence)
	if err != nil {
		return fmt.Errorf("taskRepo.Update: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET title = $1, description = $2, status = $3, priority = $4,
		        context = $5, tags = $6, due_date = $7, time_estimate = $8,
		        time_spent = $9, recurrence = $10, parent_id = $11,
		        dependencies = $12, completed_at = $13, deleted_at = $14,
		        updated_at = $15
		 WHERE id = $16`,
		t.Title, t.Description, t.Status, t.Priority, t.Context, t.Tags,
		t.DueDate, t.TimeEstimate, t.TimeSpent, recurrence, t.ParentID,
		t.Dependencies, t.CompletedAt, t.DeletedAt, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("taskRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("taskRepo.Update: %w", domain.ErrTaskNotFound)
	}

	return nil
}

func (r *TaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("taskRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("taskRepo.Delete: %w", domain.ErrTaskNotFound)
	}

	return nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		t          domain.Task
		recurrence []byte
	)
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Context,
		&t.Tags, &t.DueDate, &t.TimeEstimate, &t.TimeSpent, &recurrence,
		&t.ParentID, &t.Dependencies, &t.CompletedAt, &t.DeletedAt,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(recurrence) > 0 {
		var rec domain.Recurrence
		if err := json.Unmarshal(recurrence, &rec); err != nil {
			return nil, fmt.Errorf("recurrence: %w", err)
		}
		t.Recurrence = &rec
	}

	return &t, nil
}

func marshalRecurrence(rec *domain.Recurrence) ([]byte, error) {
	if rec == nil {
		return nil, nil
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("recurrence: %w", err)
	}
	return b, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func endOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), now.Location())
}
