package service

//go:generate mockgen -source=../ports/ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"enrollment/internal/enrollment/metrics"
	"enrollment/internal/enrollment/models"
	"enrollment/internal/enrollment/store/journal"
	"enrollment/internal/enrollment/store/ledger"
	"enrollment/internal/enrollment/store/registration"
	"enrollment/pkg/platform/sentinel"
)

type ServiceSuite struct {
	suite.Suite
	ctx           context.Context
	ledger        *ledger.InMemoryStore
	registrations *registration.InMemoryStore
	journal       *journal.InMemoryStore
	metrics       *metrics.Metrics
	service       *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.ledger = ledger.NewInMemoryStore()
	s.registrations = registration.NewInMemoryStore()
	s.journal = journal.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())

	svc, err := New(s.ledger, s.registrations, s.journal,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ServiceSuite) seed(key string, capacity int) {
	s.Require().NoError(s.service.SeedCourses(s.ctx, []*models.Course{{
		Key:        key,
		Name:       "Course " + key,
		Department: "CS",
		Credits:    3,
		Capacity:   capacity,
	}}))
}

func (s *ServiceSuite) occupied(key string) int {
	course, err := s.ledger.Get(s.ctx, key)
	s.Require().NoError(err)
	return course.Occupied
}

func (s *ServiceSuite) requireInvariants() {
	report, err := s.service.AuditAll(s.ctx)
	s.Require().NoError(err)
	s.Require().False(report.Violated(), report.String())
	s.Require().NoError(report.Err())
}

func (s *ServiceSuite) TestNew() {
	s.Run("requires every store", func() {
		_, err := New(nil, s.registrations, s.journal)
		s.Error(err)
		_, err = New(s.ledger, nil, s.journal)
		s.Error(err)
		_, err = New(s.ledger, s.registrations, nil)
		s.Error(err)
	})
}

func (s *ServiceSuite) TestApply() {
	s.seed("net-101", 2)

	s.Run("first apply is accepted and takes a seat", func() {
		decision, err := s.service.Apply(s.ctx, "alice", "net-101")
		s.Require().NoError(err)
		s.True(decision.IsAccepted())
		s.Equal("application completed", decision.Message())
		s.Equal(1, s.occupied("net-101"))
	})

	s.Run("repeat apply is rejected without touching the ledger", func() {
		decision, err := s.service.Apply(s.ctx, "alice", "net-101")
		s.Require().NoError(err)
		s.Equal(models.OutcomeRejected, decision.Outcome)
		s.Equal(models.ReasonAlreadyApplied, decision.Reason)
		s.Equal(1, s.occupied("net-101"))
	})

	s.Run("full course rejects and leaves no registration", func() {
		_, err := s.service.Apply(s.ctx, "bob", "net-101")
		s.Require().NoError(err)

		decision, err := s.service.Apply(s.ctx, "carol", "net-101")
		s.Require().NoError(err)
		s.Equal(models.ReasonCourseFull, decision.Reason)
		s.Equal("course full", decision.Message())

		_, err = s.registrations.Get(s.ctx, "carol", "net-101")
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.Equal(2, s.occupied("net-101"))
	})

	s.Run("unknown course is rejected", func() {
		decision, err := s.service.Apply(s.ctx, "alice", "missing")
		s.Require().NoError(err)
		s.Equal(models.ReasonCourseNotFound, decision.Reason)
	})

	s.Run("missing identifiers are invalid input", func() {
		_, err := s.service.Apply(s.ctx, "", "net-101")
		s.ErrorIs(err, sentinel.ErrInvalidInput)
		_, err = s.service.Apply(s.ctx, "alice", " ")
		s.ErrorIs(err, sentinel.ErrInvalidInput)
	})

	s.requireInvariants()
	pending, err := s.journal.Pending(s.ctx)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *ServiceSuite) TestCancel() {
	s.seed("db-201", 1)

	s.Run("never applied is not found", func() {
		decision, err := s.service.Cancel(s.ctx, "alice", "db-201")
		s.Require().NoError(err)
		s.Equal(models.ReasonNotFound, decision.Reason)
	})

	s.Run("applied registration is cancelled and frees the seat", func() {
		_, err := s.service.Apply(s.ctx, "alice", "db-201")
		s.Require().NoError(err)
		s.Require().Equal(1, s.occupied("db-201"))

		decision, err := s.service.Cancel(s.ctx, "alice", "db-201")
		s.Require().NoError(err)
		s.True(decision.IsAccepted())
		s.Equal("cancellation completed", decision.Message())
		s.Equal(0, s.occupied("db-201"))
	})

	s.Run("second cancel is not applied", func() {
		decision, err := s.service.Cancel(s.ctx, "alice", "db-201")
		s.Require().NoError(err)
		s.Equal(models.ReasonNotApplied, decision.Reason)
		s.Equal(0, s.occupied("db-201"))
	})

	s.Run("freed seat goes to the next student", func() {
		decision, err := s.service.Apply(s.ctx, "bob", "db-201")
		s.Require().NoError(err)
		s.True(decision.IsAccepted())
	})

	s.Run("reapply after cancel reactivates the same record", func() {
		before, err := s.registrations.Get(s.ctx, "alice", "db-201")
		s.Require().NoError(err)

		// Course is full: the reactivation is reverted back to Cancelled.
		decision, err := s.service.Apply(s.ctx, "alice", "db-201")
		s.Require().NoError(err)
		s.Equal(models.ReasonCourseFull, decision.Reason)

		after, err := s.registrations.Get(s.ctx, "alice", "db-201")
		s.Require().NoError(err)
		s.Equal(before.ID, after.ID)
		s.Equal(models.StatusCancelled, after.Status)

		_, err = s.service.Cancel(s.ctx, "bob", "db-201")
		s.Require().NoError(err)
		decision, err = s.service.Apply(s.ctx, "alice", "db-201")
		s.Require().NoError(err)
		s.True(decision.IsAccepted())
	})

	s.Run("unknown course is rejected", func() {
		decision, err := s.service.Cancel(s.ctx, "alice", "missing")
		s.Require().NoError(err)
		s.Equal(models.ReasonCourseNotFound, decision.Reason)
	})

	s.requireInvariants()
}

// TestLastSeatRace races more students than seats at one course.
func (s *ServiceSuite) TestLastSeatRace() {
	const capacity = 10
	const students = 50
	s.seed("os-301", capacity)

	var wg sync.WaitGroup
	var accepted, full atomic.Int32
	for i := range students {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := s.service.Apply(s.ctx, fmt.Sprintf("student-%d", i), "os-301")
			s.NoError(err)
			switch {
			case decision.IsAccepted():
				accepted.Add(1)
			case decision.Reason == models.ReasonCourseFull:
				full.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(capacity), accepted.Load())
	s.Equal(int32(students-capacity), full.Load())
	s.Equal(capacity, s.occupied("os-301"))

	applied, err := s.registrations.CountApplied(s.ctx, "os-301")
	s.Require().NoError(err)
	s.Equal(capacity, applied)

	s.Equal(float64(capacity), testutil.ToFloat64(s.metrics.Decisions.WithLabelValues("apply", "accepted", "")))
	s.Equal(float64(students-capacity), testutil.ToFloat64(s.metrics.Compensations))
}

// TestConcurrentMix runs applies and cancels from many students across
// several courses and checks the ledger agrees with the registrations after.
func (s *ServiceSuite) TestConcurrentMix() {
	courses := []string{"c1", "c2", "c3"}
	for _, c := range courses {
		s.seed(c, 4)
	}

	var wg sync.WaitGroup
	for i := range 24 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(uint64(i), 7))
			student := fmt.Sprintf("student-%d", i%8)
			for range 30 {
				course := courses[rng.IntN(len(courses))]
				var err error
				if rng.Float64() < 0.4 {
					_, err = s.service.Cancel(s.ctx, student, course)
				} else {
					_, err = s.service.Apply(s.ctx, student, course)
				}
				s.NoError(err)
			}
		}()
	}
	wg.Wait()

	s.requireInvariants()
	for _, c := range courses {
		s.LessOrEqual(s.occupied(c), 4)
	}
}

// TestSameStudentApplyCancelRace interleaves one student's own apply and
// cancel on one course.
func (s *ServiceSuite) TestSameStudentApplyCancelRace() {
	s.seed("c1", 1)

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = s.service.Apply(s.ctx, "alice", "c1")
			} else {
				_, err = s.service.Cancel(s.ctx, "alice", "c1")
			}
			s.NoError(err)
		}()
	}
	wg.Wait()

	s.requireInvariants()
}

func (s *ServiceSuite) TestApplyFirstAvailable() {
	s.seed("full", 1)
	s.seed("open", 1)
	_, err := s.service.Apply(s.ctx, "bob", "full")
	s.Require().NoError(err)

	s.Run("walks candidates until one accepts", func() {
		result, err := s.service.ApplyFirstAvailable(s.ctx, "alice", []string{"missing", "full", "open"})
		s.Require().NoError(err)
		s.False(result.Exhausted())
		s.Require().Len(result.Attempts, 3)
		s.Equal(models.ReasonCourseNotFound, result.Attempts[0].Reason)
		s.Equal(models.ReasonCourseFull, result.Attempts[1].Reason)
		s.Equal("open", result.Accepted.Intent.CourseKey)
	})

	s.Run("exhausted when nothing accepts", func() {
		result, err := s.service.ApplyFirstAvailable(s.ctx, "carol", []string{"full", "open"})
		s.Require().NoError(err)
		s.True(result.Exhausted())
		s.Len(result.Attempts, 2)
	})

	s.Run("blank and repeated candidates are tried once", func() {
		result, err := s.service.ApplyFirstAvailable(s.ctx, "dave", []string{" full", "full ", ""})
		s.Require().NoError(err)
		s.True(result.Exhausted())
		s.Len(result.Attempts, 1)
	})

	s.Run("empty candidate list is invalid", func() {
		_, err := s.service.ApplyFirstAvailable(s.ctx, "carol", nil)
		s.ErrorIs(err, sentinel.ErrInvalidInput)

		_, err = s.service.ApplyFirstAvailable(s.ctx, "carol", []string{" ", ""})
		s.ErrorIs(err, sentinel.ErrInvalidInput)
	})
}

func (s *ServiceSuite) TestAudit() {
	s.seed("c1", 2)
	_, err := s.service.Apply(s.ctx, "alice", "c1")
	s.Require().NoError(err)

	s.Run("consistent course has no violations", func() {
		report, err := s.service.Audit(s.ctx, "c1")
		s.Require().NoError(err)
		s.Require().Len(report.Courses, 1)
		s.Equal(1, report.Courses[0].Occupied)
		s.Equal(1, report.Courses[0].Applied)
		s.False(report.Violated())
	})

	s.Run("drift is reported", func() {
		// A seat taken behind the service's back.
		_, err := s.ledger.TryReserve(s.ctx, "c1", "mallory")
		s.Require().NoError(err)

		report, err := s.service.AuditAll(s.ctx)
		s.Require().NoError(err)
		s.True(report.Violated())
		s.ErrorIs(report.Err(), sentinel.ErrInvariantViolation)
	})

	s.Run("unknown course is not found", func() {
		_, err := s.service.Audit(s.ctx, "missing")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ServiceSuite) TestCatalog() {
	require.NoError(s.T(), s.service.SeedCourses(s.ctx, []*models.Course{
		{Key: "net-101", Name: "Computer Networks", Department: "CS", Credits: 3, Capacity: 5},
		{Key: "alg-102", Name: "Algorithms", Department: "CS", Credits: 4, Capacity: 5},
		{Key: "eco-201", Name: "Microeconomics", Department: "Economics", Credits: 3, Capacity: 5},
		{Key: "sem-001", Name: "Seminar", Credits: 1, Capacity: 5},
	}))

	s.Run("dropdown options are distinct and sorted", func() {
		opts, err := s.service.DropdownOptions(s.ctx)
		s.Require().NoError(err)
		s.Equal([]int{1, 3, 4}, opts.Credits)
		s.Equal([]string{"CS", "Economics"}, opts.Departments)
	})

	s.Run("search combines filters", func() {
		found, err := s.service.SearchCourses(s.ctx, models.CourseFilter{Credits: 3, Department: "CS"})
		s.Require().NoError(err)
		s.Require().Len(found, 1)
		s.Equal("net-101", found[0].Key)

		found, err = s.service.SearchCourses(s.ctx, models.CourseFilter{Name: "ECONOM"})
		s.Require().NoError(err)
		s.Require().Len(found, 1)
		s.Equal("eco-201", found[0].Key)

		found, err = s.service.SearchCourses(s.ctx, models.CourseFilter{})
		s.Require().NoError(err)
		s.Len(found, 4)
	})

	s.Run("applied courses list only Applied registrations", func() {
		_, err := s.service.Apply(s.ctx, "alice", "net-101")
		s.Require().NoError(err)
		_, err = s.service.Apply(s.ctx, "alice", "alg-102")
		s.Require().NoError(err)
		_, err = s.service.Cancel(s.ctx, "alice", "alg-102")
		s.Require().NoError(err)

		courses, err := s.service.AppliedCourses(s.ctx, "alice")
		s.Require().NoError(err)
		s.Require().Len(courses, 1)
		s.Equal("net-101", courses[0].Key)
		s.Equal(1, courses[0].Occupied)
	})

	s.Run("health answers", func() {
		s.NoError(s.service.Health(s.ctx))
	})
}
