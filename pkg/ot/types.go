// Package ot implements the text-operation algebra that keeps a local
// Markdown replica consistent with a collaborative editing server: apply,
// compose and transform over sequences of retain/insert/delete components.
//
// Positions are Go rune (Unicode codepoint) counts throughout, not bytes
// and not UTF-16 code units — see DESIGN.md for why.
package ot

import "fmt"

// OperationType identifies the kind of a single operation component.
type OperationType int

const (
	// OpRetain copies n runes from the base string unchanged.
	OpRetain OperationType = iota
	// OpInsert inserts new text at the current cursor.
	OpInsert
	// OpDelete removes n runes at the current cursor.
	OpDelete
)

// Op is satisfied by RetainOp, InsertOp and DeleteOp. Operation holds a
// single slice of these, dispatching on concrete type in Apply, Compose
// and Transform.
type Op interface {
	Type() OperationType
	// Length is the number of runes this component consumes from the base
	// (Retain, Delete) or produces in the target (Insert).
	Length() int
	String() string
}

// RetainOp retains n runes without modification.
type RetainOp int

func (o RetainOp) Type() OperationType { return OpRetain }
func (o RetainOp) Length() int         { return int(o) }
func (o RetainOp) String() string      { return fmt.Sprintf("retain %d", int(o)) }

// InsertOp inserts text at the current position.
type InsertOp string

func (o InsertOp) Type() OperationType { return OpInsert }
func (o InsertOp) Length() int         { return len([]rune(string(o))) }
func (o InsertOp) String() string      { return fmt.Sprintf("insert %q", string(o)) }

// DeleteOp removes n runes at the current position. Stored as a positive
// count; ToJSON negates it for the wire form.
type DeleteOp int

func (o DeleteOp) Type() OperationType { return OpDelete }
func (o DeleteOp) Length() int         { return int(o) }
func (o DeleteOp) String() string      { return fmt.Sprintf("delete %d", int(o)) }

// IsRetain, IsInsert and IsDelete are convenience type tests used
// throughout compose/transform so call sites can avoid repeating the same
// three-way type switch.
func IsRetain(op Op) bool { return op.Type() == OpRetain }
func IsInsert(op Op) bool { return op.Type() == OpInsert }
func IsDelete(op Op) bool { return op.Type() == OpDelete }
