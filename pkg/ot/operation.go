package ot

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by the operation algebra. Each corresponds to a taxonomy
// entry in the synchronization protocol's error model.
var (
	// ErrInvalidBaseLength is returned by Apply when the operation's base
	// length does not equal the length (in runes) of the string it is
	// applied to.
	ErrInvalidBaseLength = errors.New("ot: operation base length does not match string length")
	// ErrIncompatibleLengths is returned by Compose and Transform when the
	// two operations' lengths are not compatible for the requested algebra
	// operation.
	ErrIncompatibleLengths = errors.New("ot: incompatible operation lengths")
	// ErrCannotUndo is returned when trying to undo but the undo stack is empty.
	ErrCannotUndo = errors.New("ot: cannot undo, history is empty")
	// ErrCannotRedo is returned when trying to redo but the redo stack is empty.
	ErrCannotRedo = errors.New("ot: cannot redo, history is empty")
	// ErrMalformedOperation is returned by FromJSON for wire data that is
	// not a flat array of integers/floats and strings.
	ErrMalformedOperation = errors.New("ot: malformed operation")
)

// Operation is an immutable sequence of retain/insert/delete components
// transforming a string of length BaseLength into one of length
// TargetLength. The zero value is not valid; construct with a Builder or
// FromJSON.
//
// The structure and algebra mirror ot.js's TextOperation.
type Operation struct {
	ops          []Op
	baseLength   int
	targetLength int
}

// Ops returns a copy of the operation's components, in order.
func (op *Operation) Ops() []Op {
	out := make([]Op, len(op.ops))
	copy(out, op.ops)
	return out
}

// BaseLength is the rune length of strings this operation can Apply to.
func (op *Operation) BaseLength() int { return op.baseLength }

// TargetLength is the rune length of the string Apply produces.
func (op *Operation) TargetLength() int { return op.targetLength }

// IsNoop reports whether applying this operation leaves the string
// unchanged: either it has no components, or its only component is a
// single Retain spanning the whole string.
func (op *Operation) IsNoop() bool {
	if len(op.ops) == 0 {
		return true
	}
	if len(op.ops) == 1 && IsRetain(op.ops[0]) {
		return true
	}
	return false
}

// Equals reports whether two operations have the same component sequence.
func (op *Operation) Equals(other *Operation) bool {
	if other == nil {
		return false
	}
	if op.baseLength != other.baseLength || op.targetLength != other.targetLength {
		return false
	}
	if len(op.ops) != len(other.ops) {
		return false
	}
	for i := range op.ops {
		if op.ops[i] != other.ops[i] {
			return false
		}
	}
	return true
}

// String renders the operation as a comma-separated list of components,
// for logging and test failure messages.
func (op *Operation) String() string {
	parts := make([]string, len(op.ops))
	for i, o := range op.ops {
		parts[i] = o.String()
	}
	return strings.Join(parts, ", ")
}

// Apply runs the operation against str, which must have exactly BaseLength
// runes, and returns the resulting string.
//
// Positions are Go rune (Unicode codepoint) counts. The teacher's
// ApplyToDocument remapped positions through UTF-16 code units for JS wire
// compatibility but measured baseLength against a byte length, so the two
// diverged on any non-ASCII text; this client counts runes end to end
// instead of reproducing that (see DESIGN.md).
func (op *Operation) Apply(str string) (string, error) {
	runes := []rune(str)
	if op.baseLength != len(runes) {
		return "", fmt.Errorf("%w: expected %d runes, got %d", ErrInvalidBaseLength, op.baseLength, len(runes))
	}

	var b strings.Builder
	b.Grow(op.targetLength)
	pos := 0
	for _, o := range op.ops {
		switch v := o.(type) {
		case RetainOp:
			end := pos + int(v)
			if end > len(runes) {
				return "", fmt.Errorf("%w: retain runs past end of string", ErrInvalidBaseLength)
			}
			b.WriteString(string(runes[pos:end]))
			pos = end
		case InsertOp:
			b.WriteString(string(v))
		case DeleteOp:
			pos += int(v)
			if pos > len(runes) {
				return "", fmt.Errorf("%w: delete runs past end of string", ErrInvalidBaseLength)
			}
		}
	}
	if pos != len(runes) {
		return "", fmt.Errorf("%w: operation did not cover the whole string", ErrInvalidBaseLength)
	}
	return b.String(), nil
}

// Invert builds the operation that undoes this one, given the string it
// was applied to (pre-edit). Applying op to str then Invert(str) to the
// result recovers str.
func (op *Operation) Invert(str string) *Operation {
	runes := []rune(str)
	inverse := NewBuilder()
	pos := 0

	for _, o := range op.ops {
		switch v := o.(type) {
		case RetainOp:
			inverse.Retain(int(v))
			pos += int(v)
		case InsertOp:
			inverse.Delete(v.Length())
		case DeleteOp:
			end := pos + int(v)
			inverse.Insert(string(runes[pos:end]))
			pos = end
		}
	}

	return inverse.Build()
}

// ToJSON converts the operation to ot.js-compatible wire form: positive
// ints are retains, strings are inserts, negative ints are deletes.
func (op *Operation) ToJSON() []interface{} {
	result := make([]interface{}, len(op.ops))
	for i, o := range op.ops {
		switch v := o.(type) {
		case RetainOp:
			result[i] = int(v)
		case InsertOp:
			result[i] = string(v)
		case DeleteOp:
			result[i] = -int(v)
		}
	}
	return result
}

// FromJSON parses the wire form produced by ToJSON.
func FromJSON(raw []interface{}) (*Operation, error) {
	b := NewBuilder()

	for _, elem := range raw {
		switch v := elem.(type) {
		case int:
			switch {
			case v > 0:
				b.Retain(v)
			case v < 0:
				b.Delete(-v)
			default:
				return nil, fmt.Errorf("%w: zero-length retain/delete entry", ErrMalformedOperation)
			}
		case float64:
			n := int(v)
			switch {
			case n > 0:
				b.Retain(n)
			case n < 0:
				b.Delete(-n)
			default:
				return nil, fmt.Errorf("%w: zero-length retain/delete entry", ErrMalformedOperation)
			}
		case string:
			b.Insert(v)
		default:
			return nil, fmt.Errorf("%w: unexpected element type %T", ErrMalformedOperation, elem)
		}
	}

	return b.Build(), nil
}

// ShouldBeComposedWith reports whether other looks like the direct
// continuation of this operation — a single insert immediately after this
// one's, or a single delete adjacent to (or at) this one's position. It is
// a standalone adjacency test; pkg/undo groups edits by groupKey and timing
// and does not call it.
func (op *Operation) ShouldBeComposedWith(other *Operation) bool {
	if op.IsNoop() || other.IsNoop() {
		return true
	}

	startA, simpleA := simpleOp(op)
	startB, simpleB := simpleOp(other)
	if simpleA == nil || simpleB == nil {
		return false
	}

	if IsInsert(simpleA) && IsInsert(simpleB) {
		return startA+simpleA.Length() == startB
	}
	if IsDelete(simpleA) && IsDelete(simpleB) {
		// Either forward-deleting (startB == startA, the cursor stays put)
		// or backspacing (startB + len == startA, the cursor moves left)
		// describes a contiguous run.
		return startB == startA || startB+simpleB.Length() == startA
	}
	return false
}

// simpleOp extracts the one "interesting" (insert/delete) component from an
// operation shaped like [retain?, insert-or-delete, retain?], along with
// its start offset. Returns a nil component for anything else.
func simpleOp(op *Operation) (start int, result Op) {
	ops := op.ops
	switch len(ops) {
	case 1:
		if r, ok := ops[0].(RetainOp); ok {
			return int(r), nil
		}
		return 0, ops[0]
	case 2:
		if r, ok := ops[0].(RetainOp); ok {
			return int(r), ops[1]
		}
		if _, ok := ops[1].(RetainOp); ok {
			return 0, ops[0]
		}
	case 3:
		if r0, ok := ops[0].(RetainOp); ok {
			if _, ok := ops[2].(RetainOp); ok {
				return int(r0), ops[1]
			}
		}
	}
	return 0, nil
}
