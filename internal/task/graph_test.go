package task_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempohq/tempo/internal/domain"
)

// ---------------------------------------------------------------------------
// Dependencies
// ---------------------------------------------------------------------------

func TestAddDependency(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("edge recorded once", func(t *testing.T) {
		t.Parallel()

		s, _ := newStore()
		a := mustCreate(s, "a")
		b := mustCreate(s, "b")

		updated, err := s.AddDependency(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{b.ID}, updated.Dependencies)

		// Re-adding the same edge is a no-op.
		again, err := s.AddDependency(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{b.ID}, again.Dependencies)
	})

	t.Run("self dependency rejected", func(t *testing.T) {
		t.Parallel()

		s, _ := newStore()
		a := mustCreate(s, "a")

		_, err := s.AddDependency(ctx, a.ID, a.ID)
		assert.ErrorIs(t, err, domain.ErrCircularDependency)
	})

	t.Run("two-node cycle rejected with state unchanged", func(t *testing.T) {
		t.Parallel()

		s, _ := newStore()
		a := mustCreate(s, "a")
		b := mustCreate(s, "b")

		_, err := s.AddDependency(ctx, a.ID, b.ID)
		require.NoError(t, err)

		_, err = s.AddDependency(ctx, b.ID, a.ID)
		assert.ErrorIs(t, err, domain.ErrCircularDependency)

		// Neither side's dependency set changed.
		gotA, err := s.Get(ctx, a.ID, false)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{b.ID}, gotA.Dependencies)

		gotB, err := s.Get(ctx, b.ID, false)
		require.NoError(t, err)
		assert.Empty(t, gotB.Dependencies)
	})

	t.Run("transitive cycle rejected", func(t *testing.T) {
		t.Parallel()

		s, _ := newStore()
		a := mustCreate(s, "a")
		b := mustCreate(s, "b")
		c := mustCreate(s, "c")

		_, err := s.AddDependency(ctx, a.ID, b.ID)
		require.NoError(t, err)
		_, err = s.AddDependency(ctx, b.ID, c.ID)
		require.NoError(t, err)

		_, err = s.AddDependency(ctx, c.ID, a.ID)
		assert.ErrorIs(t, err, domain.ErrCircularDependency)
	})

	t.Run("cycle through parent link rejected", func(t *testing.T) {
		t.Parallel()

		s, _ := newStore()
		parent := mustCreate(s, "parent")
		child := mustCreate(s, "child")
		other := mustCreate(s, "other")

		_, err := s.AddSubtask(ctx, child.ID, parent.ID)
		require.NoError(t, err)
		_, err = s.AddDependency(ctx, parent.ID, other.ID)
		require.NoError(t, err)

		// other -> child would loop: other -> child -> parent -> other.
		_, err = s.AddDependency(ctx, other.ID, child.ID)
		assert.ErrorIs(t, err, domain.ErrCircularDependency)
	})

	t.Run("direct parent conflicts rejected", func(t *testing.T) {
		t.Parallel()

		s, _ := newStore()
		parent := mustCreate(s, "parent")
		child := mustCreate(s, "child")

		_, err := s.AddSubtask(ctx, child.ID, parent.ID)
		require.NoError(t, err)

		_, err = s.AddDependency(ctx, child.ID, parent.ID)
		assert.ErrorIs(t, err, domain.ErrCircularDependency)

		_, err = s.AddDependency(ctx, parent.ID, child.ID)
		assert.ErrorIs(t, err, domain.ErrCircularDependency)
	})

	t.Run("sibling dependencies allowed", func(t *testing.T) {
		t.Parallel()

		s, _ := newStore()
		parent := mustCreate(s, "parent")
		first := mustCreate(s, "first")
		second := mustCreate(s, "second")

		_, err := s.AddSubtask(ctx, first.ID, parent.ID)
		require.NoError(t, err)
		_, err = s.AddSubtask(ctx, second.ID, parent.ID)
		require.NoError(t, err)

		_, err = s.AddDependency(ctx, second.ID, first.ID)
		assert.NoError(t, err)
	})

	t.Run("dangling reference tolerated", func(t *testing.T) {
		t.Parallel()

		s, _ := newStore()
		a := mustCreate(s, "a")
		b := mustCreate(s, "b")
		c := mustCreate(s, "c")

		_, err := s.AddDependency(ctx, a.ID, b.ID)
		require.NoError(t, err)
		require.NoError(t, s.HardDelete(ctx, b.ID))

		// The traversal skips the hole left by b.
		_, err = s.AddDependency(ctx, c.ID, a.ID)
		assert.NoError(t, err)
	})

	t.Run("deleted endpoints rejected", func(t *testing.T) {
		t.Parallel()

		s, _ := newStore()
		a := mustCreate(s, "a")
		b := mustCreate(s, "b")
		_, err := s.SoftDelete(ctx, b.ID)
		require.NoError(t, err)

		_, err = s.AddDependency(ctx, a.ID, b.ID)
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})
}

func TestRemoveDependency(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newStore()
	a := mustCreate(s, "a")
	b := mustCreate(s, "b")

	_, err := s.AddDependency(ctx, a.ID, b.ID)
	require.NoError(t, err)

	updated, err := s.RemoveDependency(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.Dependencies)

	// Removing an absent edge is a no-op.
	updated, err = s.RemoveDependency(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.Dependencies)

	// The reverse edge is now legal.
	_, err = s.AddDependency(ctx, b.ID, a.ID)
	assert.NoError(t, err)
}

// ---------------------------------------------------------------------------
// Subtasks
// ---------------------------------------------------------------------------

func TestSubtasks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("attach, move, detach", func(t *testing.T) {
		t.Parallel()

		s, _ := newStore()
		p1 := mustCreate(s, "project one")
		p2 := mustCreate(s, "project two")
		child := mustCreate(s, "step")

		attached, err := s.AddSubtask(ctx, child.ID, p1.ID)
		require.NoError(t, err)
		require.NotNil(t, attached.ParentID)
		assert.Equal(t, p1.ID, *attached.ParentID)

		moved, err := s.MoveSubtask(ctx, child.ID, &p2.ID)
		require.NoError(t, err)
		require.NotNil(t, moved.ParentID)
		assert.Equal(t, p2.ID, *moved.ParentID)

		detached, err := s.RemoveSubtask(ctx, child.ID)
		require.NoError(t, err)
		assert.Nil(t, detached.ParentID)

		// Detaching twice is a no-op.
		detached, err = s.RemoveSubtask(ctx, child.ID)
		require.NoError(t, err)
		assert.Nil(t, detached.ParentID)
	})

	t.Run("self parent rejected", func(t *testing.T) {
		t.Parallel()

		s, _ := newStore()
		a := mustCreate(s, "a")

		_, err := s.AddSubtask(ctx, a.ID, a.ID)
		assert.ErrorIs(t, err, domain.ErrCircularDependency)
	})

	t.Run("parent loop rejected", func(t *testing.T) {
		t.Parallel()

		s, _ := newStore()
		a := mustCreate(s, "a")
		b := mustCreate(s, "b")
		c := mustCreate(s, "c")

		_, err := s.AddSubtask(ctx, b.ID, a.ID)
		require.NoError(t, err)
		_, err = s.AddSubtask(ctx, c.ID, b.ID)
		require.NoError(t, err)

		// a under c closes a -> b -> c -> a.
		_, err = s.AddSubtask(ctx, a.ID, c.ID)
		assert.ErrorIs(t, err, domain.ErrCircularDependency)
	})

	t.Run("cross-relation conflict rejected", func(t *testing.T) {
		t.Parallel()

		s, _ := newStore()
		a := mustCreate(s, "a")
		b := mustCreate(s, "b")

		_, err := s.AddDependency(ctx, a.ID, b.ID)
		require.NoError(t, err)

		// a already depends on b, so b cannot become a's parent and
		// a cannot become b's parent.
		_, err = s.AddSubtask(ctx, a.ID, b.ID)
		assert.ErrorIs(t, err, domain.ErrCircularDependency)

		_, err = s.AddSubtask(ctx, b.ID, a.ID)
		assert.ErrorIs(t, err, domain.ErrCircularDependency)
	})

	t.Run("reattaching same parent is a no-op", func(t *testing.T) {
		t.Parallel()

		s, rec := newStore()
		parent := mustCreate(s, "p")
		child := mustCreate(s, "c")

		_, err := s.AddSubtask(ctx, child.ID, parent.ID)
		require.NoError(t, err)
		before := len(rec.events)

		_, err = s.AddSubtask(ctx, child.ID, parent.ID)
		require.NoError(t, err)
		assert.Equal(t, before, len(rec.events))
	})
}
