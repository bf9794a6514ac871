package registration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"enrollment/internal/enrollment/models"
	"enrollment/pkg/platform/sentinel"
	"enrollment/pkg/requestcontext"
)

type InMemoryRegistrationSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryRegistrationSuite(t *testing.T) {
	suite.Run(t, new(InMemoryRegistrationSuite))
}

func (s *InMemoryRegistrationSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *InMemoryRegistrationSuite) TestTransitionToApplied() {
	s.Run("absent pair is created", func() {
		transition, err := s.store.TransitionToApplied(s.ctx, "alice", "c1")
		s.Require().NoError(err)
		s.Equal(models.TransitionCreated, transition)

		record, err := s.store.Get(s.ctx, "alice", "c1")
		s.Require().NoError(err)
		s.Equal(models.StatusApplied, record.Status)
		s.Equal(s.now, record.UpdatedAt)
	})

	s.Run("applied pair is unchanged", func() {
		transition, err := s.store.TransitionToApplied(s.ctx, "alice", "c1")
		s.Require().NoError(err)
		s.Equal(models.TransitionAlreadyApplied, transition)
	})

	s.Run("cancelled pair is reactivated with the same id", func() {
		before, err := s.store.Get(s.ctx, "alice", "c1")
		s.Require().NoError(err)
		_, err = s.store.TransitionToCancelled(s.ctx, "alice", "c1")
		s.Require().NoError(err)

		transition, err := s.store.TransitionToApplied(s.ctx, "alice", "c1")
		s.Require().NoError(err)
		s.Equal(models.TransitionReactivated, transition)

		after, err := s.store.Get(s.ctx, "alice", "c1")
		s.Require().NoError(err)
		s.Equal(before.ID, after.ID)
		s.Equal(models.StatusApplied, after.Status)
	})
}

func (s *InMemoryRegistrationSuite) TestTransitionToCancelled() {
	s.Run("absent pair is not found", func() {
		transition, err := s.store.TransitionToCancelled(s.ctx, "bob", "c1")
		s.Require().NoError(err)
		s.Equal(models.TransitionNotFound, transition)
	})

	s.Run("applied pair is cancelled", func() {
		_, err := s.store.TransitionToApplied(s.ctx, "bob", "c1")
		s.Require().NoError(err)

		transition, err := s.store.TransitionToCancelled(s.ctx, "bob", "c1")
		s.Require().NoError(err)
		s.Equal(models.TransitionCancelled, transition)
	})

	s.Run("cancelled pair is not applied", func() {
		transition, err := s.store.TransitionToCancelled(s.ctx, "bob", "c1")
		s.Require().NoError(err)
		s.Equal(models.TransitionNotApplied, transition)
	})
}

func (s *InMemoryRegistrationSuite) TestRevert() {
	s.Run("created record is removed", func() {
		transition, err := s.store.TransitionToApplied(s.ctx, "carol", "c1")
		s.Require().NoError(err)
		s.Require().NoError(s.store.Revert(s.ctx, "carol", "c1", transition))

		_, err = s.store.Get(s.ctx, "carol", "c1")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("reactivated record goes back to cancelled", func() {
		_, err := s.store.TransitionToApplied(s.ctx, "dave", "c1")
		s.Require().NoError(err)
		_, err = s.store.TransitionToCancelled(s.ctx, "dave", "c1")
		s.Require().NoError(err)
		transition, err := s.store.TransitionToApplied(s.ctx, "dave", "c1")
		s.Require().NoError(err)

		s.Require().NoError(s.store.Revert(s.ctx, "dave", "c1", transition))
		record, err := s.store.Get(s.ctx, "dave", "c1")
		s.Require().NoError(err)
		s.Equal(models.StatusCancelled, record.Status)
	})

	s.Run("unknown transition falls back to cancelled", func() {
		_, err := s.store.TransitionToApplied(s.ctx, "erin", "c1")
		s.Require().NoError(err)

		s.Require().NoError(s.store.Revert(s.ctx, "erin", "c1", ""))
		record, err := s.store.Get(s.ctx, "erin", "c1")
		s.Require().NoError(err)
		s.Equal(models.StatusCancelled, record.Status)
	})

	s.Run("second revert is a no-op", func() {
		s.NoError(s.store.Revert(s.ctx, "carol", "c1", models.TransitionCreated))
	})

	s.Run("already applied cannot be reverted", func() {
		_, err := s.store.TransitionToApplied(s.ctx, "frank", "c1")
		s.Require().NoError(err)
		err = s.store.Revert(s.ctx, "frank", "c1", models.TransitionAlreadyApplied)
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})
}

func (s *InMemoryRegistrationSuite) TestQueries() {
	for _, course := range []string{"c2", "c1", "c3"} {
		_, err := s.store.TransitionToApplied(s.ctx, "gina", course)
		s.Require().NoError(err)
	}
	_, err := s.store.TransitionToApplied(s.ctx, "hank", "c1")
	s.Require().NoError(err)
	_, err = s.store.TransitionToCancelled(s.ctx, "gina", "c3")
	s.Require().NoError(err)

	s.Run("list by student is ordered by course", func() {
		records, err := s.store.ListByStudent(s.ctx, "gina")
		s.Require().NoError(err)
		s.Require().Len(records, 3)
		s.Equal("c1", records[0].CourseKey)
		s.Equal("c3", records[2].CourseKey)
	})

	s.Run("count applied ignores cancelled", func() {
		count, err := s.store.CountApplied(s.ctx, "c1")
		s.Require().NoError(err)
		s.Equal(2, count)

		count, err = s.store.CountApplied(s.ctx, "c3")
		s.Require().NoError(err)
		s.Equal(0, count)
	})

	s.Run("returned records are copies", func() {
		record, err := s.store.Get(s.ctx, "hank", "c1")
		s.Require().NoError(err)
		record.Status = models.StatusCancelled

		again, err := s.store.Get(s.ctx, "hank", "c1")
		s.Require().NoError(err)
		s.Equal(models.StatusApplied, again.Status)
	})
}

// TestConcurrentApplySamePair checks that racing applies for one pair create
// exactly one record.
func (s *InMemoryRegistrationSuite) TestConcurrentApplySamePair() {
	const goroutines = 32
	var wg sync.WaitGroup
	var created atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			transition, err := s.store.TransitionToApplied(s.ctx, "ivy", "c1")
			s.NoError(err)
			if transition == models.TransitionCreated {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), created.Load())
	count, err := s.store.CountApplied(s.ctx, "c1")
	s.Require().NoError(err)
	s.Equal(1, count)
}
