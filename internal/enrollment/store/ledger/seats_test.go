package ledger

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"enrollment/internal/enrollment/models"
)

func TestSeatsTryReserve(t *testing.T) {
	t.Run("fills to capacity then refuses", func(t *testing.T) {
		seats := NewSeats(models.Course{Key: "c1", Capacity: 2})
		assert.True(t, seats.TryReserve("alice"))
		assert.True(t, seats.TryReserve("bob"))
		assert.False(t, seats.TryReserve("carol"))
		assert.Equal(t, 2, seats.Occupied())
	})

	t.Run("starts from seeded occupancy", func(t *testing.T) {
		seats := NewSeats(models.Course{Key: "c1", Capacity: 3, Occupied: 2})
		assert.True(t, seats.TryReserve("alice"))
		assert.False(t, seats.TryReserve("bob"))
	})

	t.Run("repeating a holder takes no second seat", func(t *testing.T) {
		seats := NewSeats(models.Course{Key: "c1", Capacity: 2})
		assert.True(t, seats.TryReserve("alice"))
		assert.True(t, seats.TryReserve("alice"))
		assert.Equal(t, 1, seats.Occupied())
		assert.True(t, seats.Holds("alice"))
	})

	t.Run("a holder keeps its seat when the course is full", func(t *testing.T) {
		seats := NewSeats(models.Course{Key: "c1", Capacity: 1})
		assert.True(t, seats.TryReserve("alice"))
		assert.True(t, seats.TryReserve("alice"))
		assert.False(t, seats.TryReserve("bob"))
	})

	t.Run("exactly one of many racers takes the last seat", func(t *testing.T) {
		seats := NewSeats(models.Course{Key: "c1", Capacity: 5, Occupied: 4})
		const racers = 64

		var wg sync.WaitGroup
		var winners atomic.Int32
		for i := range racers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if seats.TryReserve(fmt.Sprintf("s%d", i)) {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), winners.Load())
		assert.Equal(t, 5, seats.Occupied())
	})
}

func TestSeatsRelease(t *testing.T) {
	t.Run("gives a seat back", func(t *testing.T) {
		seats := NewSeats(models.Course{Key: "c1", Capacity: 1})
		assert.True(t, seats.TryReserve("alice"))
		assert.True(t, seats.Release("alice"))
		assert.Equal(t, 0, seats.Occupied())
		assert.True(t, seats.TryReserve("bob"))
	})

	t.Run("second release is a no-op", func(t *testing.T) {
		seats := NewSeats(models.Course{Key: "c1", Capacity: 2})
		seats.TryReserve("alice")
		seats.TryReserve("bob")
		assert.True(t, seats.Release("alice"))
		assert.False(t, seats.Release("alice"))
		assert.Equal(t, 1, seats.Occupied(), "bob keeps the other seat")
	})

	t.Run("holder without a seat releases nothing", func(t *testing.T) {
		seats := NewSeats(models.Course{Key: "c1", Capacity: 1, Occupied: 1})
		assert.False(t, seats.Release("alice"))
		assert.Equal(t, 1, seats.Occupied())
	})

	t.Run("interleaved reserve and release stay within bounds", func(t *testing.T) {
		seats := NewSeats(models.Course{Key: "c1", Capacity: 10})
		var wg sync.WaitGroup
		for i := range 200 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				holder := fmt.Sprintf("s%d", i)
				if seats.TryReserve(holder) {
					seats.Release(holder)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 0, seats.Occupied())
	})
}

func TestSeatsSnapshot(t *testing.T) {
	seats := NewSeats(models.Course{Key: "c1", Name: "Networks", Capacity: 4})
	seats.TryReserve("alice")

	snap := seats.Snapshot()
	assert.Equal(t, "Networks", snap.Name)
	assert.Equal(t, 1, snap.Occupied)

	snap.Occupied = 99
	assert.Equal(t, 1, seats.Occupied(), "snapshot must not alias the counter")
}
