package ot

import "fmt"

// Transform takes two operations, a and b, that were both derived from the
// same base document (i.e. applied concurrently), and produces a' and b'
// such that:
//
//	Apply(Apply(s, a), b') == Apply(Apply(s, b), a')
//
// so that two sites holding opposite orderings of the same two edits still
// converge. Insertions at the same position favor a, i.e. a's inserted
// text ends up to the left of b's — callers that need a specific
// tie-break priority (e.g. "local wins") arrange which operand is a.
//
// Ported from ot.js's TextOperation.prototype.transform, generalized to
// this package's positive DeleteOp storage.
func Transform(a, b *Operation) (aPrime, bPrime *Operation, err error) {
	if a.baseLength != b.baseLength {
		return nil, nil, fmt.Errorf("%w: both operations must share a base length, got %d and %d",
			ErrIncompatibleLengths, a.baseLength, b.baseLength)
	}

	rA := NewBuilder()
	rB := NewBuilder()
	ops1, ops2 := a.ops, b.ops
	i1, i2 := 0, 0

	next1 := func() Op {
		if i1 >= len(ops1) {
			return nil
		}
		op := ops1[i1]
		i1++
		return op
	}
	next2 := func() Op {
		if i2 >= len(ops2) {
			return nil
		}
		op := ops2[i2]
		i2++
		return op
	}

	op1, op2 := next1(), next2()

	for {
		if op1 == nil && op2 == nil {
			break
		}

		if op1 != nil && IsInsert(op1) {
			rA.Insert(string(op1.(InsertOp)))
			rB.Retain(op1.Length())
			op1 = next1()
			continue
		}
		if op2 != nil && IsInsert(op2) {
			rA.Retain(op2.Length())
			rB.Insert(string(op2.(InsertOp)))
			op2 = next2()
			continue
		}

		if op1 == nil {
			return nil, nil, fmt.Errorf("%w: first operation is too short", ErrIncompatibleLengths)
		}
		if op2 == nil {
			return nil, nil, fmt.Errorf("%w: second operation is too short", ErrIncompatibleLengths)
		}

		switch {
		case IsRetain(op1) && IsRetain(op2):
			n1, n2 := op1.Length(), op2.Length()
			m := min(n1, n2)
			rA.Retain(m)
			rB.Retain(m)
			switch {
			case n1 > n2:
				op1, op2 = RetainOp(n1-n2), next2()
			case n1 < n2:
				op1, op2 = next1(), RetainOp(n2-n1)
			default:
				op1, op2 = next1(), next2()
			}

		case IsDelete(op1) && IsDelete(op2):
			// Both sides delete the same span; neither prime needs to
			// repeat it.
			n1, n2 := op1.Length(), op2.Length()
			switch {
			case n1 > n2:
				op1, op2 = DeleteOp(n1-n2), next2()
			case n1 < n2:
				op1, op2 = next1(), DeleteOp(n2-n1)
			default:
				op1, op2 = next1(), next2()
			}

		case IsDelete(op1) && IsRetain(op2):
			n1, n2 := op1.Length(), op2.Length()
			m := min(n1, n2)
			rA.Delete(m)
			switch {
			case n1 > n2:
				op1, op2 = DeleteOp(n1-n2), next2()
			case n1 < n2:
				op1, op2 = next1(), RetainOp(n2-n1)
			default:
				op1, op2 = next1(), next2()
			}

		case IsRetain(op1) && IsDelete(op2):
			n1, n2 := op1.Length(), op2.Length()
			m := min(n1, n2)
			rB.Delete(m)
			switch {
			case n1 > n2:
				op1, op2 = RetainOp(n1-n2), next2()
			case n1 < n2:
				op1, op2 = next1(), DeleteOp(n2-n1)
			default:
				op1, op2 = next1(), next2()
			}

		default:
			return nil, nil, fmt.Errorf("%w: invalid operation pair during transform", ErrIncompatibleLengths)
		}
	}

	return rA.Build(), rB.Build(), nil
}
