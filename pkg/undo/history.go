// Package undo implements the batch/undo/redo history sitting on top of
// pkg/ot's algebra: it records the inverse of every submitted operation,
// groups adjacent compatible edits within a time window into one undo
// step, and replays (or transforms) that history as remote operations
// arrive.
//
// Grounded on the teacher's pkg/ot/undo_manager.go (itself modeled on
// ot.js's UndoManager), generalized from shape-only grouping to the
// spec's HistoryEntry{inverse, at, groupKey} with an explicit
// undoGroupInterval.
package undo

import (
	"errors"
	"time"

	"github.com/coreseekdev/mdpad/pkg/ot"
)

// ErrNothingToUndo is returned by Undo when the undo stack is empty.
var ErrNothingToUndo = errors.New("undo: history is empty")

// ErrNothingToRedo is returned by Redo when the redo stack is empty.
var ErrNothingToRedo = errors.New("undo: redo history is empty")

// mode tracks whether a Push arrived as a side effect of Undo or Redo
// itself, so the entry lands on the opposite stack without being grouped.
type mode int

const (
	modeNormal mode = iota
	modeUndoing
	modeRedoing
)

// HistoryEntry is one undoable step: the operation that undoes a prior
// edit, when it was recorded, and an opaque key two adjacent entries must
// share to be eligible for grouping.
type HistoryEntry struct {
	Inverse  *ot.Operation
	At       time.Time
	GroupKey string
}

// Manager owns the undo and redo stacks for a single document.
//
// Manager is not safe for concurrent use; callers serialize access the
// same way pkg/otclient.Client requires (see pkg/mdpad's dispatch loop).
type Manager struct {
	clock             Clock
	maxSize           int
	groupInterval     time.Duration
	mode              mode
	suppressNextGroup bool

	undoStack []HistoryEntry
	redoStack []HistoryEntry
}

// New creates a Manager. maxSize bounds each stack (0 means unlimited);
// groupInterval is the window within which compatible consecutive edits
// merge into a single undo step.
func New(clock Clock, maxSize int, groupInterval time.Duration) *Manager {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Manager{
		clock:         clock,
		maxSize:       maxSize,
		groupInterval: groupInterval,
	}
}

// Push records inverse as undoing the operation just submitted. forward is
// the operation that was actually applied (used only to compute the
// grouping key); inverse is what Undo will eventually submit.
//
// New pushes clear the redo stack, except when Push is called as a side
// effect from inside Undo or Redo's callback (see Undo/Redo).
func (m *Manager) Push(forward, inverse *ot.Operation) {
	switch m.mode {
	case modeUndoing:
		m.redoStack = append(m.redoStack, HistoryEntry{Inverse: inverse, At: m.clock.Now(), GroupKey: groupKey(forward)})
		return
	case modeRedoing:
		m.undoStack = append(m.undoStack, HistoryEntry{Inverse: inverse, At: m.clock.Now(), GroupKey: groupKey(forward)})
		return
	}

	now := m.clock.Now()
	key := groupKey(forward)

	if !m.suppressNextGroup && len(m.undoStack) > 0 {
		top := m.undoStack[len(m.undoStack)-1]
		if top.GroupKey == key && now.Sub(top.At) <= m.groupInterval {
			if composed, err := ot.Compose(inverse, top.Inverse); err == nil {
				m.undoStack[len(m.undoStack)-1] = HistoryEntry{Inverse: composed, At: now, GroupKey: key}
				m.redoStack = m.redoStack[:0]
				m.suppressNextGroup = false
				return
			}
		}
	}

	m.undoStack = append(m.undoStack, HistoryEntry{Inverse: inverse, At: now, GroupKey: key})
	if m.maxSize > 0 && len(m.undoStack) > m.maxSize {
		m.undoStack = m.undoStack[1:]
	}
	m.redoStack = m.redoStack[:0]
	m.suppressNextGroup = false
}

// BreakGroup forces the next Push to start a new undo step regardless of
// timing or kind, e.g. after a batch boundary or an explicit cursor jump.
func (m *Manager) BreakGroup() { m.suppressNextGroup = true }

// CanUndo reports whether Undo has anything to pop.
func (m *Manager) CanUndo() bool { return len(m.undoStack) > 0 }

// CanRedo reports whether Redo has anything to pop.
func (m *Manager) CanRedo() bool { return len(m.redoStack) > 0 }

// Undo pops the most recent undo entry and hands its inverse to submit,
// which is expected to run the inverse through the normal local-edit path
// (so it stays correct under concurrent remote edits, per spec.md §4.7)
// and return any error from that path. The redo entry comes from the Push
// that path makes: entries pushed via Push while submit runs land on the
// redo stack instead of clearing it.
func (m *Manager) Undo(submit func(op *ot.Operation) error) error {
	if len(m.undoStack) == 0 {
		return ErrNothingToUndo
	}
	entry := m.undoStack[len(m.undoStack)-1]
	m.undoStack = m.undoStack[:len(m.undoStack)-1]

	m.mode = modeUndoing
	err := submit(entry.Inverse)
	m.mode = modeNormal
	return err
}

// Redo pops the most recent redo entry and hands it to submit, mirroring
// Undo.
func (m *Manager) Redo(submit func(op *ot.Operation) error) error {
	if len(m.redoStack) == 0 {
		return ErrNothingToRedo
	}
	entry := m.redoStack[len(m.redoStack)-1]
	m.redoStack = m.redoStack[:len(m.redoStack)-1]

	m.mode = modeRedoing
	err := submit(entry.Inverse)
	m.mode = modeNormal
	return err
}

// TransformAgainst rewrites every pending undo/redo entry against a remote
// operation that was just applied to the replica, so history stays valid
// for a document that has since moved under concurrent edits (property 9).
// Call this before applying the remote operation's effects are observed by
// future undo/redo calls.
func (m *Manager) TransformAgainst(remote *ot.Operation) error {
	var err error
	m.undoStack, remote, err = transformEntries(m.undoStack, remote)
	if err != nil {
		return err
	}
	m.redoStack, _, err = transformEntries(m.redoStack, remote)
	return err
}

// transformEntries transforms a stack (oldest first) against op, newest
// entry first, threading the progressively transformed op backward
// through the stack the same way pkg/ot/undo_manager.go's transformStack
// did.
func transformEntries(stack []HistoryEntry, op *ot.Operation) ([]HistoryEntry, *ot.Operation, error) {
	out := make([]HistoryEntry, 0, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		entryPrime, opPrime, err := ot.Transform(stack[i].Inverse, op)
		if err != nil {
			return nil, nil, err
		}
		if !entryPrime.IsNoop() {
			out = append(out, HistoryEntry{Inverse: entryPrime, At: stack[i].At, GroupKey: stack[i].GroupKey})
		}
		op = opPrime
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, op, nil
}

// UndoDepth reports how many undo entries are pending.
func (m *Manager) UndoDepth() int { return len(m.undoStack) }

// RedoDepth reports how many redo entries are pending.
func (m *Manager) RedoDepth() int { return len(m.redoStack) }

// Clear empties both stacks, e.g. when the document is replaced wholesale
// by a reconnect snapshot.
func (m *Manager) Clear() {
	m.undoStack = m.undoStack[:0]
	m.redoStack = m.redoStack[:0]
}

// groupKey classifies an operation by the kind of its first insert or
// delete component ("insert" or "delete"), or "retain"/"noop" when it has
// neither. Positions are not compared: two inserts anywhere in the
// document share a key, so Push merges on kind and timing alone.
func groupKey(op *ot.Operation) string {
	if op == nil || op.IsNoop() {
		return "noop"
	}
	ops := op.Ops()
	for _, o := range ops {
		switch o.(type) {
		case ot.InsertOp:
			return "insert"
		case ot.DeleteOp:
			return "delete"
		}
	}
	return "retain"
}
