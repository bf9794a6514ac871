package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrollment/internal/chaos/chaostest"
	"enrollment/internal/chaos/identity"
	"enrollment/internal/chaos/target"
)

func newFlaky(t *testing.T) *chaostest.Flaky {
	return chaostest.NewFlaky(target.NewInProcess(chaostest.Service(t, chaostest.Courses(1, 1))))
}

func TestCheck(t *testing.T) {
	flaky := newFlaky(t)
	probe := NewProbe(flaky, identity.NewRegistry(1), time.Second)

	sample := probe.Check(context.Background())
	assert.True(t, sample.Healthy)
	assert.Empty(t, sample.Error())
	assert.EqualValues(t, 2, flaky.Calls.Load(), "health endpoint then a search")

	flaky.Failing.Store(true)
	sample = probe.Check(context.Background())
	assert.False(t, sample.Healthy)
	assert.ErrorIs(t, sample.Err, chaostest.ErrInjected)
}

func TestWaitForRecovery(t *testing.T) {
	t.Run("recovers once the target heals", func(t *testing.T) {
		flaky := newFlaky(t)
		flaky.Failing.Store(true)
		probe := NewProbe(flaky, identity.NewRegistry(2), time.Second)

		go func() {
			time.Sleep(30 * time.Millisecond)
			flaky.Failing.Store(false)
		}()

		sample, err := probe.WaitForRecovery(context.Background(), time.Second, 10*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, sample.Healthy)
	})

	t.Run("gives up after the timeout", func(t *testing.T) {
		flaky := newFlaky(t)
		flaky.Failing.Store(true)
		probe := NewProbe(flaky, identity.NewRegistry(3), time.Second)

		start := time.Now()
		sample, err := probe.WaitForRecovery(context.Background(), 50*time.Millisecond, 10*time.Millisecond)
		assert.ErrorIs(t, err, ErrNotRecovered)
		assert.False(t, sample.Healthy)
		assert.Less(t, time.Since(start), time.Second)
		assert.Greater(t, flaky.Calls.Load(), int64(1), "polled more than once")
	})
}
