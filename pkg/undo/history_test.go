package undo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreseekdev/mdpad/pkg/ot"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }
func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

func TestPushThenUndoRestoresDocument(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	m := New(clock, 0, 100*time.Millisecond)

	doc := "Hello"
	op := ot.NewBuilder().Retain(5).Insert(" World").Build()
	newDoc, err := op.Apply(doc)
	require.NoError(t, err)

	m.Push(op, op.Invert(doc))
	assert.True(t, m.CanUndo())

	err = m.Undo(func(inv *ot.Operation) error {
		restored, aerr := inv.Apply(newDoc)
		require.NoError(t, aerr)
		assert.Equal(t, doc, restored)
		return nil
	})
	require.NoError(t, err)
}

func TestUndoEmptyStackReturnsError(t *testing.T) {
	m := New(nil, 0, time.Second)
	err := m.Undo(func(*ot.Operation) error { return nil })
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestRedoEmptyStackReturnsError(t *testing.T) {
	m := New(nil, 0, time.Second)
	err := m.Redo(func(*ot.Operation) error { return nil })
	assert.ErrorIs(t, err, ErrNothingToRedo)
}

func TestConsecutiveInsertsWithinWindowGroup(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	m := New(clock, 0, 100*time.Millisecond)

	doc := ""
	for _, ch := range []string{"a", "b", "c"} {
		op := ot.NewBuilder().Retain(len([]rune(doc))).Insert(ch).Build()
		newDoc, err := op.Apply(doc)
		require.NoError(t, err)
		m.Push(op, op.Invert(doc))
		doc = newDoc
		clock.advance(10 * time.Millisecond)
	}

	assert.Equal(t, 1, m.UndoDepth())
}

func TestGroupBreaksAfterInterval(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	m := New(clock, 0, 10*time.Millisecond)

	doc := ""
	op1 := ot.NewBuilder().Insert("a").Build()
	doc, _ = op1.Apply(doc)
	m.Push(op1, op1.Invert(""))

	clock.advance(time.Second)

	op2 := ot.NewBuilder().Retain(1).Insert("b").Build()
	pre := doc
	doc, _ = op2.Apply(doc)
	m.Push(op2, op2.Invert(pre))

	assert.Equal(t, 2, m.UndoDepth())
}

func TestMaxSizeEvictsOldest(t *testing.T) {
	m := New(&fakeClock{now: time.Unix(0, 0)}, 1, 0)

	op1 := ot.NewBuilder().Insert("a").Build()
	m.Push(op1, op1.Invert(""))
	op2 := ot.NewBuilder().Delete(1).Build()
	m.Push(op2, op2.Invert("a"))

	assert.Equal(t, 1, m.UndoDepth())
}

func TestBreakGroupForcesNewEntry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	m := New(clock, 0, time.Hour)

	op1 := ot.NewBuilder().Insert("a").Build()
	m.Push(op1, op1.Invert(""))
	m.BreakGroup()
	op2 := ot.NewBuilder().Retain(1).Insert("b").Build()
	m.Push(op2, op2.Invert("a"))

	assert.Equal(t, 2, m.UndoDepth())
}

func TestTransformAgainstRemoteKeepsHistoryApplicable(t *testing.T) {
	m := New(nil, 0, time.Second)

	local := ot.NewBuilder().Retain(5).Insert("!").Build()
	m.Push(local, local.Invert("Hello"))

	remote := ot.NewBuilder().Retain(3).Insert("XX").Retain(3).Build()
	require.NoError(t, m.TransformAgainst(remote))
	assert.Equal(t, 1, m.UndoDepth())
}

func TestClearEmptiesBothStacks(t *testing.T) {
	m := New(nil, 0, time.Second)
	op := ot.NewBuilder().Insert("a").Build()
	m.Push(op, op.Invert(""))
	m.Clear()
	assert.False(t, m.CanUndo())
	assert.False(t, m.CanRedo())
}
