package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tempohq/tempo/internal/domain"
)

type RuleRepo struct {
	pool *pgxpool.Pool
}

func NewRuleRepo(pool *pgxpool.Pool) *RuleRepo {
	return &RuleRepo{pool: pool}
}

const ruleColumns = `id, name, description, enabled, trigger_def, conditions, actions,
	priority, execution_count, last_executed_at, created_at, updated_at`

func (r *RuleRepo) Create(ctx context.Context, rule *domain.AutomationRule) error {
	trig, conds, actions, err := marshalRuleParts(rule)
	if err != nil {
		return fmt.Errorf("ruleRepo.Create: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO automation_rules (`+ruleColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rule.ID, rule.Name, rule.Description, rule.Enabled, trig, conds,
		actions, rule.Priority, rule.ExecutionCount, rule.LastExecutedAt,
		rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ruleRepo.Create: %w", err)
	}

	return nil
}

func (r *RuleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AutomationRule, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM automation_rules WHERE id = $1`, id)

	rule, err := scanRule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ruleRepo.GetByID: %w", domain.ErrRuleNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ruleRepo.GetByID: %w", err)
	}

	return rule, nil
}

func (r *RuleRepo) List(ctx context.Context) ([]*domain.AutomationRule, error) {
	return r.list(ctx, "ruleRepo.List",
		`SELECT `+ruleColumns+` FROM automation_rules
		 ORDER BY priority DESC, created_at LIMIT 1000`)
}

func (r *RuleRepo) ListEnabled(ctx context.Context) ([]*domain.AutomationRule, error) {
	return r.list(ctx, "ruleRepo.ListEnabled",
		`SELECT `+ruleColumns+` FROM automation_rules WHERE enabled
		 ORDER BY priority DESC, created_at LIMIT 1000`)
}

func (r *RuleRepo) list(ctx context.Context, caller, query string) ([]*domain.AutomationRule, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", caller, err)
	}
	defer rows.Close()

	var rules []*domain.AutomationRule
	for rows.Next() {
		rule, scanErr := scanRule(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, scanErr)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return rules, nil
}

func (r *RuleRepo) Update(ctx context.Context, rule *domain.AutomationRule) error {
	trig, conds, actions, err := marshalRuleParts(rule)
	if err != nil {
		return fmt.Errorf("ruleRepo.Update: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE automation_rules SET name = $1, description = $2, enabled = $3,
		        trigger_def = $4, conditions = $5, actions = $6, priority = $7,
		        execution_count = $8, last_executed_at = $9, updated_at = $10
		 WHERE id = $11`,
		rule.Name, rule.Description, rule.Enabled, trig, conds, actions,
		rule.Priority, rule.ExecutionCount, rule.LastExecutedAt,
		rule.UpdatedAt, rule.ID,
	)
	if err != nil {
		return fmt.Errorf("ruleRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ruleRepo.Update: %w", domain.ErrRuleNotFound)
	}

	return nil
}

func (r *RuleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM automation_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ruleRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ruleRepo.Delete: %w", domain.ErrRuleNotFound)
	}

	return nil
}

func scanRule(row pgx.Row) (*domain.AutomationRule, error) {
	var (
		rule    domain.AutomationRule
		trig    []byte
		conds   []byte
		actions []byte
	)
	err := row.Scan(
		&rule.ID, &rule.Name, &rule.Description, &rule.Enabled, &trig,
		&conds, &actions, &rule.Priority, &rule.ExecutionCount,
		&rule.LastExecutedAt, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(trig, &rule.Trigger); err != nil {
		return nil, fmt.Errorf("trigger: %w", err)
	}
	if err := json.Unmarshal(conds, &rule.Conditions); err != nil {
		return nil, fmt.Errorf("conditions: %w", err)
	}
	if err := json.Unmarshal(actions, &rule.Actions); err != nil {
		return nil, fmt.Errorf("actions: %w", err)
	}

	return &rule, nil
}

func marshalRuleParts(rule *domain.AutomationRule) (trig, conds, actions []byte, err error) {
	trig, err = json.Marshal(rule.Trigger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("trigger: %w", err)
	}
	conds, err = json.Marshal(rule.Conditions)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("conditions: %w", err)
	}
	actions, err = json.Marshal(rule.Actions)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("actions: %w", err)
	}

	return trig, conds, actions, nil
}
