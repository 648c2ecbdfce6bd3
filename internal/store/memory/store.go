// Package memory provides map-backed repositories. It is the default
// backend for self-hosted single-binary runs without PostgreSQL and the
// backend used by tests.
package memory

import (
	"github.com/tempohq/tempo/internal/domain"
)

type Store struct {
	tasks *TaskRepo
	rules *RuleRepo
}

func New() *Store {
	return &Store{
		tasks: NewTaskRepo(),
		rules: NewRuleRepo(),
	}
}

func (s *Store) Close() {}

func (s *Store) Tasks() domain.TaskRepository { return s.tasks }
func (s *Store) Rules() domain.RuleRepository { return s.rules }
