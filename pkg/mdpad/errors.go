package mdpad

import "errors"

// Errors named by spec.md §7's taxonomy. MalformedOperation,
// OperationLengthMismatch and InvariantViolated are surfaced indirectly
// through pkg/ot and pkg/otclient's own sentinels (wrapped where useful);
// the rest are native to this package.
var (
	ErrOutOfBounds       = errors.New("mdpad: position out of bounds")
	ErrPermissionDenied  = errors.New("mdpad: permission denied")
	ErrNotConnected      = errors.New("mdpad: not connected")
	ErrOperationTimeout  = errors.New("mdpad: operation acknowledgment timed out")
	ErrOperationDropped  = errors.New("mdpad: queued operation dropped, could not apply to reconnect snapshot")
	ErrBatchInProgress   = errors.New("mdpad: a batch is already in progress")
	ErrNoBatchInProgress = errors.New("mdpad: no batch is in progress")
)
