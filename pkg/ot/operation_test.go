package ot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderCanonicalForm(t *testing.T) {
	op := NewBuilder().
		Retain(2).
		Retain(3).
		Insert("a").
		Insert("b").
		Delete(1).
		Delete(2).
		Build()

	require.Len(t, op.Ops(), 3)
	assert.Equal(t, RetainOp(5), op.Ops()[0])
	assert.Equal(t, InsertOp("ab"), op.Ops()[1])
	assert.Equal(t, DeleteOp(3), op.Ops()[2])
}

func TestBuilderSwapsDeleteBeforeInsert(t *testing.T) {
	op := NewBuilder().Retain(1).Delete(2).Insert("x").Build()

	require.Len(t, op.Ops(), 3)
	assert.Equal(t, RetainOp(1), op.Ops()[0])
	assert.Equal(t, InsertOp("x"), op.Ops()[1])
	assert.Equal(t, DeleteOp(2), op.Ops()[2])
}

func TestBuilderElidesZeroLength(t *testing.T) {
	op := NewBuilder().Retain(0).Insert("").Delete(0).Retain(3).Build()
	assert.Len(t, op.Ops(), 1)
	assert.True(t, op.IsNoop())
}

func TestApply(t *testing.T) {
	op := NewBuilder().Retain(6).Insert("Go ").Delete(5).Build()
	out, err := op.Apply("Hello World")
	require.NoError(t, err)
	assert.Equal(t, "Hello Go ", out)
}

func TestApplyRejectsLengthMismatch(t *testing.T) {
	op := NewBuilder().Retain(5).Build()
	_, err := op.Apply("abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidBaseLength)
}

func TestApplyRunesNotBytes(t *testing.T) {
	// "café" has 4 runes but 5 bytes; the algebra must count runes.
	op := NewBuilder().Retain(4).Insert("!").Build()
	out, err := op.Apply("café")
	require.NoError(t, err)
	assert.Equal(t, "café!", out)
}

// Property 1: apply(compose(a, b), x) == apply(b, apply(a, x)).
func TestComposeMatchesSequentialApply(t *testing.T) {
	x := "Hello World"
	a := NewBuilder().Retain(6).Insert("Go ").Retain(5).Build()
	b := NewBuilder().Delete(3).Retain(a.TargetLength()-3).Build()

	composed, err := Compose(a, b)
	require.NoError(t, err)

	viaCompose, err := composed.Apply(x)
	require.NoError(t, err)

	intermediate, err := a.Apply(x)
	require.NoError(t, err)
	viaSequence, err := b.Apply(intermediate)
	require.NoError(t, err)

	assert.Equal(t, viaSequence, viaCompose)
}

// Property 2: compose is associative.
func TestComposeAssociative(t *testing.T) {
	a := NewBuilder().Insert("abc").Build()
	b := NewBuilder().Retain(1).Delete(1).Retain(1).Build()
	c := NewBuilder().Retain(1).Insert("X").Retain(1).Build()

	ab, err := Compose(a, b)
	require.NoError(t, err)
	left, err := Compose(ab, c)
	require.NoError(t, err)

	bc, err := Compose(b, c)
	require.NoError(t, err)
	right, err := Compose(a, bc)
	require.NoError(t, err)

	assert.True(t, left.Equals(right))
}

// Property 3: compose(a, b') == compose(b, a') where (a', b') = transform(a, b).
func TestTransformConverges(t *testing.T) {
	base := "hello"
	a := NewBuilder().Retain(5).Insert(" world").Build()
	b := NewBuilder().Insert("say ").Retain(5).Build()

	aPrime, bPrime, err := Transform(a, b)
	require.NoError(t, err)

	left, err := Compose(a, bPrime)
	require.NoError(t, err)
	right, err := Compose(b, aPrime)
	require.NoError(t, err)

	assert.True(t, left.Equals(right))

	viaA, err := a.Apply(base)
	require.NoError(t, err)
	viaAThenBPrime, err := bPrime.Apply(viaA)
	require.NoError(t, err)

	viaB, err := b.Apply(base)
	require.NoError(t, err)
	viaBThenAPrime, err := aPrime.Apply(viaB)
	require.NoError(t, err)

	assert.Equal(t, viaAThenBPrime, viaBThenAPrime)
}

// Property 4: transforming identity against b reproduces b on one side and
// collapses to a same-length identity on the other — a' (run after b) is a
// pure retain at b's target length, and b' (run after the identity, which
// changed nothing) is exactly b.
func TestTransformIdentity(t *testing.T) {
	base := "hello"
	identity := NewBuilder().Retain(len([]rune(base))).Build()
	b := NewBuilder().Retain(2).Insert("XY").Retain(3).Build()

	aPrime, bPrime, err := Transform(identity, b)
	require.NoError(t, err)

	assert.True(t, aPrime.Equals(NewBuilder().Retain(b.TargetLength()).Build()))
	assert.True(t, bPrime.Equals(b))
}

// Property 5: fromJSON(toJSON(op)) == op for canonical op.
func TestJSONRoundTrip(t *testing.T) {
	op := NewBuilder().Retain(2).Insert("Hello").Delete(3).Build()
	raw := op.ToJSON()
	assert.Equal(t, []interface{}{2, "Hello", -3}, raw)

	back, err := FromJSON(raw)
	require.NoError(t, err)
	assert.True(t, op.Equals(back))
}

func TestFromJSONRejectsMalformed(t *testing.T) {
	_, err := FromJSON([]interface{}{2, 3.5, true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedOperation)
}

func TestInsertThenDeleteInverts(t *testing.T) {
	original := "abcdef"
	op := NewBuilder().Retain(2).Delete(2).Insert("XY").Retain(2).Build()
	result, err := op.Apply(original)
	require.NoError(t, err)
	assert.Equal(t, "abXYef", result)

	inverse := op.Invert(original)
	restored, err := inverse.Apply(result)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestShouldBeComposedWithConsecutiveInserts(t *testing.T) {
	a := NewBuilder().Retain(3).Insert("a").Retain(2).Build()
	b := NewBuilder().Retain(4).Insert("b").Retain(1).Build()
	assert.True(t, a.ShouldBeComposedWith(b))
}

func TestShouldBeComposedWithBackspacing(t *testing.T) {
	a := NewBuilder().Retain(4).Delete(1).Build()
	b := NewBuilder().Retain(3).Delete(1).Build()
	assert.True(t, a.ShouldBeComposedWith(b))
}
