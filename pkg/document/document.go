// Package document implements the high-level editing primitives of
// spec.md §4.6: each one turns a user intent (insert text at a position,
// delete a range, replace a line, …) into an ot.Operation against the
// caller-supplied current replica. The functions here are pure — they
// neither own nor mutate a replica — so pkg/mdpad.Client can run
// canEdit() and the batch/scratch-replica bookkeeping around them without
// this package knowing about permissions or synchronization at all.
package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/coreseekdev/mdpad/pkg/ot"
)

// ErrOutOfBounds is returned when a position/length argument runs past the
// end of the replica.
var ErrOutOfBounds = errors.New("document: position out of bounds")

// Insert builds the operation that inserts s at pos (0-based rune offset)
// in doc.
func Insert(doc string, pos int, s string) (*ot.Operation, error) {
	n := runeLen(doc)
	if pos < 0 || pos > n {
		return nil, fmt.Errorf("%w: insert at %d in document of length %d", ErrOutOfBounds, pos, n)
	}
	return ot.NewBuilder().Retain(pos).Insert(s).Retain(n - pos).Build(), nil
}

// Delete builds the operation that removes the count runes starting at pos.
func Delete(doc string, pos, count int) (*ot.Operation, error) {
	total := runeLen(doc)
	if pos < 0 || count < 0 || pos+count > total {
		return nil, fmt.Errorf("%w: delete %d runes at %d in document of length %d", ErrOutOfBounds, count, pos, total)
	}
	return ot.NewBuilder().Retain(pos).Delete(count).Retain(total - pos - count).Build(), nil
}

// Replace builds the operation that removes the count runes starting at
// pos and inserts s in their place.
func Replace(doc string, pos, count int, s string) (*ot.Operation, error) {
	total := runeLen(doc)
	if pos < 0 || count < 0 || pos+count > total {
		return nil, fmt.Errorf("%w: replace %d runes at %d in document of length %d", ErrOutOfBounds, count, pos, total)
	}
	return ot.NewBuilder().Retain(pos).Delete(count).Insert(s).Retain(total - pos - count).Build(), nil
}

// UpdateContent builds a minimal operation (common-prefix/common-suffix
// elision around a diff of the remaining middle span) such that applying
// it to doc yields newText exactly. It does not guarantee minimum edit
// distance, only a materially tighter diff than a single coarse replace —
// grounded on the teacher's pkg/transport/patch_manager.go use of
// diffmatchpatch.DiffMain, generalized from a patch/rollback representation
// into an ot.Operation.
func UpdateContent(doc, newText string) (*ot.Operation, error) {
	if doc == newText {
		return ot.NewBuilder().Retain(runeLen(doc)).Build(), nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(doc, newText, false)

	b := ot.NewBuilder()
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			b.Retain(runeLen(d.Text))
		case diffmatchpatch.DiffInsert:
			b.Insert(d.Text)
		case diffmatchpatch.DiffDelete:
			b.Delete(runeLen(d.Text))
		}
	}
	return b.Build(), nil
}

// LineCount reports the number of lines in doc: occurrences of "\n" plus
// one.
func LineCount(doc string) int {
	return strings.Count(doc, "\n") + 1
}

// lineBounds returns the [start, end) rune range of line i's content,
// excluding its terminating newline, and whether line i exists.
func lineBounds(doc string, i int) (start, end int, ok bool) {
	runes := []rune(doc)
	line := 0
	start = 0
	for pos := 0; pos <= len(runes); pos++ {
		if line == i && (pos == len(runes) || runes[pos] == '\n') {
			return start, pos, true
		}
		if pos < len(runes) && runes[pos] == '\n' {
			line++
			start = pos + 1
		}
	}
	return 0, 0, false
}

// SetLine replaces line i's content (excluding its terminating newline)
// with s.
func SetLine(doc string, i int, s string) (*ot.Operation, error) {
	start, end, ok := lineBounds(doc, i)
	if !ok {
		return nil, fmt.Errorf("%w: line %d does not exist", ErrOutOfBounds, i)
	}
	return Replace(doc, start, end-start, s)
}

// InsertLine inserts s followed by a newline at line i's start. Appending
// one past the last line inserts a leading newline instead when doc lacks
// a trailing newline, per spec.md §4.6.
func InsertLine(doc string, i int, s string) (*ot.Operation, error) {
	count := LineCount(doc)
	if i == count && !strings.HasSuffix(doc, "\n") && doc != "" {
		return Insert(doc, runeLen(doc), "\n"+s)
	}
	start, _, ok := lineBounds(doc, i)
	if !ok {
		return nil, fmt.Errorf("%w: line %d does not exist", ErrOutOfBounds, i)
	}
	return Insert(doc, start, s+"\n")
}

// ReplaceRegex replaces the first match of pattern in doc with replacement.
// Patterns compile with dlclark/regexp2 for JS-compatible regex semantics
// (lookaround, backreferences) matching the reference editor's own regex
// dialect — grounded on the pack's general preference for JS-interop
// fidelity (pkg/ot is itself an ot.js-lineage port).
func ReplaceRegex(doc, pattern, replacement string) (*ot.Operation, error) {
	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	if err != nil {
		return nil, fmt.Errorf("document: invalid pattern: %w", err)
	}
	m, err := re.FindStringMatch(doc)
	if err != nil || m == nil {
		return ot.NewBuilder().Retain(runeLen(doc)).Build(), nil
	}
	// m.Index is already a rune offset into doc (regexp2 matches over
	// runes), not a byte offset; slicing doc at it would cut mid-rune for
	// any multi-byte content before the match.
	pos := m.Index
	length := runeLen(m.String())
	return Replace(doc, pos, length, replacement)
}

// ReplaceAllRegex replaces every match of pattern in doc with replacement,
// composing all edits into one operation in left-to-right order.
func ReplaceAllRegex(doc, pattern, replacement string) (*ot.Operation, error) {
	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	if err != nil {
		return nil, fmt.Errorf("document: invalid pattern: %w", err)
	}

	b := ot.NewBuilder()
	total := runeLen(doc)
	cursor := 0

	m, _ := re.FindStringMatch(doc)
	for m != nil {
		// m.Index is a rune offset, consistent with cursor below.
		pos := m.Index
		length := runeLen(m.String())

		b.Retain(pos - cursor)
		b.Delete(length)
		b.Insert(replacement)
		cursor = pos + length

		next, nerr := re.FindNextMatch(m)
		if nerr != nil {
			break
		}
		m = next
	}
	b.Retain(total - cursor)
	return b.Build(), nil
}

func runeLen(s string) int { return len([]rune(s)) }
