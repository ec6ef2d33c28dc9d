package reconnect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Property 10: delays form a non-decreasing geometric sequence capped at maxDelay.
func TestNextDelayGeometricCapped(t *testing.T) {
	c := New(Config{
		Enabled:       true,
		MaxAttempts:   3,
		InitialDelay:  1000 * time.Millisecond,
		MaxDelay:      4000 * time.Millisecond,
		BackoffFactor: 2,
	}, nil)

	assert.Equal(t, 1000*time.Millisecond, c.NextDelay(1))
	assert.Equal(t, 2000*time.Millisecond, c.NextDelay(2))
	assert.Equal(t, 4000*time.Millisecond, c.NextDelay(3))
	// Would be 8000ms uncapped; must clamp to maxDelay.
	assert.Equal(t, 4000*time.Millisecond, c.NextDelay(4))
}

type fakeClock struct {
	delays []time.Duration
	fire   chan time.Time
}

func (f *fakeClock) Now() time.Time { return time.Time{} }
func (f *fakeClock) After(d time.Duration) <-chan time.Time {
	f.delays = append(f.delays, d)
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func TestScheduleEmitsEventsInOrderUntilSuccess(t *testing.T) {
	fc := &fakeClock{}
	c := New(Config{
		Enabled:       true,
		MaxAttempts:   3,
		InitialDelay:  10 * time.Millisecond,
		MaxDelay:      100 * time.Millisecond,
		BackoffFactor: 2,
	}, fc)

	var kinds []EventKind
	calls := 0
	c.Schedule(func() error {
		calls++
		if calls < 2 {
			return assertErr
		}
		return nil
	}, func(e Event) {
		kinds = append(kinds, e.Kind)
	})

	assert.Equal(t, []EventKind{EventScheduled, EventAttempting, EventError, EventScheduled, EventAttempting, EventSuccess}, kinds)
	assert.Equal(t, 0, c.Attempt())
}

func TestScheduleEmitsFailedAfterMaxAttempts(t *testing.T) {
	fc := &fakeClock{}
	c := New(Config{
		Enabled:       true,
		MaxAttempts:   2,
		InitialDelay:  10 * time.Millisecond,
		MaxDelay:      100 * time.Millisecond,
		BackoffFactor: 2,
	}, fc)

	var kinds []EventKind
	c.Schedule(func() error {
		return assertErr
	}, func(e Event) {
		kinds = append(kinds, e.Kind)
	})

	assert.Equal(t, EventFailed, kinds[len(kinds)-1])
	assert.Equal(t, 2, c.Attempt())
}

var assertErr = &testError{"dial failed"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
