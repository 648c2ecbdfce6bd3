package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tempohq/tempo/internal/domain"
)

// AddDependency records that taskID depends on dependsOnID. The edge is
// simulated and checked against the combined dependency+parentage graph
// before anything is persisted; on rejection no state changes.
func (s *Store) AddDependency(ctx context.Context, taskID, dependsOnID uuid.UUID) (*domain.Task, error) {
	if taskID == dependsOnID {
		return nil, fmt.Errorf("task.Store.AddDependency: self dependency: %w", domain.ErrCircularDependency)
	}

	t, err := s.getLive(ctx, "task.Store.AddDependency", taskID)
	if err != nil {
		return nil, err
	}
	dep, err := s.getLive(ctx, "task.Store.AddDependency", dependsOnID)
	if err != nil {
		return nil, err
	}

	if t.HasDependency(dependsOnID) {
		return t, nil
	}

	// A task may not depend on its own parent, nor a parent on its
	// child: the two relations must never connect the same pair.
	if t.ParentID != nil && *t.ParentID == dependsOnID {
		return nil, fmt.Errorf("task.Store.AddDependency: depends on own parent: %w", domain.ErrCircularDependency)
	}
	if dep.ParentID != nil && *dep.ParentID == taskID {
		return nil, fmt.Errorf("task.Store.AddDependency: depends on own subtask: %w", domain.ErrCircularDependency)
	}

	cyclic, err := s.wouldCycle(ctx, taskID, dependsOnID)
	if err != nil {
		return nil, fmt.Errorf("task.Store.AddDependency: %w", err)
	}
	if cyclic {
		return nil, fmt.Errorf("task.Store.AddDependency: %w", domain.ErrCircularDependency)
	}

	t.Dependencies = append(t.Dependencies, dependsOnID)
	t.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("task.Store.AddDependency: %w", err)
	}

	s.emit(ctx, domain.EventTaskUpdated, t)

	return t, nil
}

// RemoveDependency drops dependsOnID from the task's dependency set.
// Removing an edge that is not present is a no-op.
func (s *Store) RemoveDependency(ctx context.Context, taskID, dependsOnID uuid.UUID) (*domain.Task, error) {
	t, err := s.getLive(ctx, "task.Store.RemoveDependency", taskID)
	if err != nil {
		return nil, err
	}
	if !t.HasDependency(dependsOnID) {
		return t, nil
	}

	deps := make([]uuid.UUID, 0, len(t.Dependencies)-1)
	for _, d := range t.Dependencies {
		if d != dependsOnID {
			deps = append(deps, d)
		}
	}
	t.Dependencies = deps
	t.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("task.Store.RemoveDependency: %w", err)
	}

	s.emit(ctx, domain.EventTaskUpdated, t)

	return t, nil
}

// AddSubtask makes childID a subtask of parentID.
func (s *Store) AddSubtask(ctx context.Context, childID, parentID uuid.UUID) (*domain.Task, error) {
	return s.setParent(ctx, "task.Store.AddSubtask", childID, &parentID)
}

// RemoveSubtask detaches childID from its parent.
func (s *Store) RemoveSubtask(ctx context.Context, childID uuid.UUID) (*domain.Task, error) {
	return s.setParent(ctx, "task.Store.RemoveSubtask", childID, nil)
}

// MoveSubtask reassigns childID to a new parent, or detaches it when
// newParentID is nil.
func (s *Store) MoveSubtask(ctx context.Context, childID uuid.UUID, newParentID *uuid.UUID) (*domain.Task, error) {
	return s.setParent(ctx, "task.Store.MoveSubtask", childID, newParentID)
}

func (s *Store) setParent(ctx context.Context, caller string, childID uuid.UUID, parentID *uuid.UUID) (*domain.Task, error) {
	child, err := s.getLive(ctx, caller, childID)
	if err != nil {
		return nil, err
	}

	if parentID == nil {
		if child.ParentID == nil {
			return child, nil
		}
		child.ParentID = nil
		child.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, child); err != nil {
			return nil, fmt.Errorf("%s: %w", caller, err)
		}
		s.emit(ctx, domain.EventTaskUpdated, child)

		return child, nil
	}

	if *parentID == childID {
		return nil, fmt.Errorf("%s: self parent: %w", caller, domain.ErrCircularDependency)
	}

	parent, err := s.getLive(ctx, caller, *parentID)
	if err != nil {
		return nil, err
	}

	if child.ParentID != nil && *child.ParentID == *parentID {
		return child, nil
	}

	// The prospective parent may not be a dependency of the child or
	// vice versa: cross-graph conflicts are rejected outright.
	if child.HasDependency(*parentID) {
		return nil, fmt.Errorf("%s: parent is a dependency of child: %w", caller, domain.ErrCircularDependency)
	}
	if parent.HasDependency(childID) {
		return nil, fmt.Errorf("%s: child is a dependency of parent: %w", caller, domain.ErrCircularDependency)
	}

	cyclic, err := s.wouldCycle(ctx, childID, *parentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", caller, err)
	}
	if cyclic {
		return nil, fmt.Errorf("%s: %w", caller, domain.ErrCircularDependency)
	}

	child.ParentID = parentID
	child.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, child); err != nil {
		return nil, fmt.Errorf("%s: %w", caller, err)
	}

	s.emit(ctx, domain.EventTaskUpdated, child)

	return child, nil
}

// wouldCycle simulates the edge sourceID->targetID and reports whether
// it would close a cycle. It walks depth-first from targetID over the
// union of dependency edges and parent links; reaching sourceID means
// the new edge completes a loop. Dangling references (hard-deleted
// dependencies) are skipped.
func (s *Store) wouldCycle(ctx context.Context, sourceID, targetID uuid.UUID) (bool, error) {
	visited := make(map[uuid.UUID]struct{})
	stack := []uuid.UUID{targetID}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if id == sourceID {
			return true, nil
		}
		if _, ok := visited[id]; ok {
			continue
		}
		visited[id] = struct{}{}

		t, err := s.repo.GetByID(ctx, id)
		if errors.Is(err, domain.ErrTaskNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}

		stack = append(stack, t.Dependencies...)
		if t.ParentID != nil {
			stack = append(stack, *t.ParentID)
		}
	}

	return false, nil
}
