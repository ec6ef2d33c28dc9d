package mdpad

import (
	"github.com/coreseekdev/mdpad/pkg/ot"
	"github.com/coreseekdev/mdpad/pkg/undo"
)

// undoManager wraps pkg/undo.Manager with the TrackUndo on/off switch
// spec.md §6's configuration surface exposes; when disabled, push is a
// no-op and Undo/Redo always report ErrNothingToUndo/Redo.
type undoManager struct {
	enabled bool
	history *undo.Manager
}

func newUndoManager(cfg Config) *undoManager {
	enabled := cfg.TrackUndo
	return &undoManager{
		enabled: enabled,
		history: undo.New(undo.SystemClock{}, cfg.UndoMaxSize, cfg.UndoGroupInterval),
	}
}

// push records the inverse of a just-applied operation against the
// replica it was applied to.
func (u *undoManager) push(op *ot.Operation, preEditDoc string) {
	if !u.enabled {
		return
	}
	u.history.Push(op, op.Invert(preEditDoc))
}
