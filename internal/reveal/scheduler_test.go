package reveal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerPacing(t *testing.T) {
	t.Run("IdlesAtBaseStep", func(t *testing.T) {
		var last string
		s := NewScheduler(2, 10, func(visible string) { last = visible })
		s.SetTarget("hello")

		s.Tick()
		assert.Equal(t, "he", last)
		s.Tick()
		assert.Equal(t, "hell", last)
		s.Tick()
		assert.Equal(t, "hello", last)
		s.Tick()
		assert.Equal(t, "hello", last, "no callback once fully revealed")
	})

	t.Run("StepGrowsWithBacklog", func(t *testing.T) {
		s := NewScheduler(2, 10, nil)
		s.SetTarget(strings.Repeat("x", 1000))

		s.Tick()
		// ceil(1000/10) = 100 > baseStep
		assert.Equal(t, 100, s.Revealed())
	})

	t.Run("BacklogClearsWithinCatchupWindow", func(t *testing.T) {
		const window = 7
		s := NewScheduler(1, window, nil)
		s.SetTarget(strings.Repeat("x", 5000))

		for i := 0; i < window; i++ {
			s.Tick()
		}
		assert.Equal(t, s.TargetLen(), s.Revealed())
	})

	t.Run("GrowthReArmsCatchupDeadline", func(t *testing.T) {
		const window = 5
		s := NewScheduler(1, window, nil)
		s.SetTarget(strings.Repeat("x", 300))
		s.Tick()
		s.Tick()

		// A late flood restarts the clock: everything outstanding must be
		// visible within window ticks of the last append.
		s.Append(strings.Repeat("y", 4000))
		for i := 0; i < window; i++ {
			s.Tick()
		}
		assert.Equal(t, s.TargetLen(), s.Revealed())
	})

	t.Run("RevealedIsMonotonicAndBounded", func(t *testing.T) {
		s := NewScheduler(3, 5, nil)
		s.SetTarget("first part")

		previous := 0
		for i := 0; i < 50; i++ {
			if i == 2 {
				s.Append(" and a much longer continuation arriving late")
			}
			s.Tick()
			revealed := s.Revealed()
			assert.GreaterOrEqual(t, revealed, previous)
			assert.LessOrEqual(t, revealed, s.TargetLen())
			previous = revealed
		}
		assert.Equal(t, s.TargetLen(), s.Revealed())
	})

	t.Run("MultibyteTextCountsRunes", func(t *testing.T) {
		var last string
		s := NewScheduler(1, 100, func(visible string) { last = visible })
		s.SetTarget("привет")

		s.Tick()
		assert.Equal(t, "п", last)
		for i := 0; i < 5; i++ {
			s.Tick()
		}
		assert.Equal(t, "привет", last)
	})
}

func TestSchedulerFinalize(t *testing.T) {
	t.Run("ImmediateWhenIdle", func(t *testing.T) {
		s := NewScheduler(2, 10, nil)
		s.SetTarget("ok")
		s.Tick()
		require.Equal(t, 2, s.Revealed())

		called := false
		s.Finalize(func() { called = true })
		assert.True(t, called)
	})

	t.Run("QueuedBehindInFlightReveal", func(t *testing.T) {
		s := NewScheduler(1, 1000, nil)
		s.SetTarget("abcd")
		s.Tick()

		called := false
		s.Finalize(func() { called = true })
		assert.False(t, called, "finalize must wait for the reveal to finish")

		for s.Revealed() < s.TargetLen()-1 {
			s.Tick()
			assert.False(t, called)
		}
		s.Tick()
		assert.True(t, called)
	})

	t.Run("TargetSwitchResetsProgressAndDropsFinalize", func(t *testing.T) {
		s := NewScheduler(1, 1000, nil)
		s.SetTarget("first")
		s.Tick()

		called := false
		s.Finalize(func() { called = true })

		s.SetTarget("second")
		assert.Equal(t, 0, s.Revealed())

		for i := 0; i < 20; i++ {
			s.Tick()
		}
		assert.False(t, called, "finalize queued for the old target must not fire")
	})
}
