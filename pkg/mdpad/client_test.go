package mdpad

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient builds a Client pre-loaded with a document and marked
// connected, bypassing Connect/transport.Dial so primitives can be
// exercised without a live socket.
func newTestClient(t *testing.T, doc string, perm Permission) *Client {
	t.Helper()
	c := New(Config{TrackUndo: true, UndoGroupInterval: 50 * time.Millisecond})
	c.oc.Reset(doc, 0)
	c.connected = true
	c.permission = perm
	return c
}

func TestInsertAppliesLocally(t *testing.T) {
	c := newTestClient(t, "Hello World", PermissionFreely)
	require.NoError(t, c.Insert(5, ","))
	assert.Equal(t, "Hello, World", c.GetDocument())
}

func TestDeleteAppliesLocally(t *testing.T) {
	c := newTestClient(t, "Hello World", PermissionFreely)
	require.NoError(t, c.Delete(5, 6))
	assert.Equal(t, "Hello", c.GetDocument())
}

func TestPermissionDeniedDoesNotMutate(t *testing.T) {
	c := newTestClient(t, "Hello", PermissionLocked)
	err := c.Insert(0, "X")
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, "Hello", c.GetDocument())
}

func TestNotConnectedWithoutReconnectRejectsEdits(t *testing.T) {
	c := newTestClient(t, "Hello", PermissionFreely)
	c.connected = false
	err := c.Insert(0, "X")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestGetLineAndGetLines(t *testing.T) {
	c := newTestClient(t, "one\ntwo\nthree", PermissionFreely)
	line, err := c.GetLine(1)
	require.NoError(t, err)
	assert.Equal(t, "two", line)

	lines, err := c.GetLines(0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, lines)
}

func TestBatchComposesIntoOneSubmission(t *testing.T) {
	c := newTestClient(t, "Hello World", PermissionFreely)
	require.NoError(t, c.StartBatch())
	require.NoError(t, c.Insert(5, ","))
	require.NoError(t, c.Insert(12, "!"))
	require.NoError(t, c.EndBatch())

	assert.Equal(t, "Hello, World!", c.GetDocument())
	assert.Equal(t, 1, c.undo.history.UndoDepth())
}

func TestCancelBatchRollsBack(t *testing.T) {
	c := newTestClient(t, "Hello World", PermissionFreely)
	require.NoError(t, c.StartBatch())
	require.NoError(t, c.Insert(0, "XX"))
	require.NoError(t, c.CancelBatch())

	assert.Equal(t, "Hello World", c.GetDocument())
	assert.Equal(t, 0, c.undo.history.UndoDepth())
}

func TestUndoRedo(t *testing.T) {
	c := newTestClient(t, "Hello", PermissionFreely)
	require.NoError(t, c.Insert(5, " World"))
	assert.Equal(t, "Hello World", c.GetDocument())

	require.NoError(t, c.Undo())
	assert.Equal(t, "Hello", c.GetDocument())

	require.NoError(t, c.Redo())
	assert.Equal(t, "Hello World", c.GetDocument())
}

func TestUndoGroupingMergesRapidEdits(t *testing.T) {
	c := newTestClient(t, "", PermissionFreely)
	require.NoError(t, c.Insert(0, "a"))
	require.NoError(t, c.Insert(1, "b"))
	require.NoError(t, c.Insert(2, "c"))

	assert.Equal(t, 1, c.undo.history.UndoDepth())
	require.NoError(t, c.Undo())
	assert.Equal(t, "", c.GetDocument())
}

func TestReplaceRegexThroughClient(t *testing.T) {
	c := newTestClient(t, "foo bar foo", PermissionFreely)
	require.NoError(t, c.ReplaceAllRegex("foo", "X"))
	assert.Equal(t, "X bar X", c.GetDocument())
}

func TestCanEditMatrix(t *testing.T) {
	assert.True(t, canEdit(PermissionFreely, false, false))
	assert.False(t, canEdit(PermissionEditable, false, false))
	assert.True(t, canEdit(PermissionEditable, true, false))
	assert.False(t, canEdit(PermissionLocked, true, false))
	assert.True(t, canEdit(PermissionLocked, true, true))
	assert.False(t, canEdit(PermissionPrivate, true, false))
	assert.True(t, canEdit(PermissionPrivate, true, true))
}
