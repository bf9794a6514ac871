package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"enrollment/internal/enrollment/metrics"
	"enrollment/internal/enrollment/models"
	"enrollment/internal/enrollment/ports"
	"enrollment/pkg/platform/sentinel"
	"enrollment/pkg/platform/shardlock"
	strs "enrollment/pkg/platform/strings"
	"enrollment/pkg/requestcontext"
)

// Type aliases for shared interfaces.
type (
	Ledger        = ports.SeatLedger
	Registrations = ports.RegistrationStore
	Journal       = ports.Journal
	Publisher     = ports.DecisionPublisher
)

const (
	tracerName = "enrollment/admission"

	defaultRetryInitial    = 10 * time.Millisecond
	defaultRetryMaxElapsed = 2 * time.Second
)

// Service is the admission controller. It keeps the seat ledger and the
// registration set in agreement: a registration is Applied exactly when it
// holds a seat, except inside an intent that is still being decided.
//
// Every intent for a (student, course) pair runs under that pair's lock, so a
// student's own apply and cancel never interleave. Different pairs only meet
// at the ledger, whose TryReserve is linearizable per course. The ledger keys
// seats by student, so a repeated reserve or release for the pair is a no-op.
type Service struct {
	ledger        Ledger
	registrations Registrations
	journal       Journal
	publisher     Publisher
	metrics       *metrics.Metrics
	logger        *slog.Logger
	tracer        trace.Tracer
	pairs         *shardlock.Locker

	retryInitial    time.Duration
	retryMaxElapsed time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPublisher forwards every decision to publisher.
func WithPublisher(publisher Publisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithRetry bounds the backoff used for compensating reverts and seat releases.
func WithRetry(initial, maxElapsed time.Duration) Option {
	return func(s *Service) {
		if initial > 0 {
			s.retryInitial = initial
		}
		if maxElapsed > 0 {
			s.retryMaxElapsed = maxElapsed
		}
	}
}

func New(ledger Ledger, registrations Registrations, journal Journal, opts ...Option) (*Service, error) {
	if ledger == nil {
		return nil, fmt.Errorf("seat ledger is required")
	}
	if registrations == nil {
		return nil, fmt.Errorf("registration store is required")
	}
	if journal == nil {
		return nil, fmt.Errorf("admission journal is required")
	}

	svc := &Service{
		ledger:          ledger,
		registrations:   registrations,
		journal:         journal,
		logger:          slog.New(slog.DiscardHandler),
		tracer:          otel.Tracer(tracerName),
		pairs:           shardlock.New(shardlock.DefaultShards),
		retryInitial:    defaultRetryInitial,
		retryMaxElapsed: defaultRetryMaxElapsed,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Apply admits the student to the course if a seat is free.
//
// Rejections (already applied, course full, unknown course) are returned as
// decisions with a nil error. An error means the outcome could not be
// decided; no seat is held and no registration is left Applied for it.
func (s *Service) Apply(ctx context.Context, studentID, courseKey string) (*models.Decision, error) {
	return s.decide(ctx, models.Apply(studentID, courseKey), s.apply)
}

// Cancel withdraws the student's registration and gives the seat back.
func (s *Service) Cancel(ctx context.Context, studentID, courseKey string) (*models.Decision, error) {
	return s.decide(ctx, models.Cancel(studentID, courseKey), s.cancel)
}

// ApplyFirstAvailable applies to candidates in order and stops at the first
// acceptance. Blank and repeated keys are dropped first. Every attempt is
// recorded. An error stops the walk and returns the attempts made so far.
func (s *Service) ApplyFirstAvailable(ctx context.Context, studentID string, candidates []string) (*models.FallbackResult, error) {
	candidates = strs.DedupeAndTrim(candidates)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("candidate courses: %w", sentinel.ErrInvalidInput)
	}
	result := &models.FallbackResult{}
	for _, courseKey := range candidates {
		decision, err := s.Apply(ctx, studentID, courseKey)
		if err != nil {
			return result, err
		}
		result.Attempts = append(result.Attempts, decision)
		if decision.IsAccepted() {
			result.Accepted = decision
			return result, nil
		}
	}
	return result, nil
}

type decideFunc func(ctx context.Context, intent models.Intent) (*models.Decision, error)

func (s *Service) decide(ctx context.Context, intent models.Intent, fn decideFunc) (*models.Decision, error) {
	if err := validateIntent(intent); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "admission."+string(intent.Kind), trace.WithAttributes(
		attribute.String("student_id", intent.StudentID),
		attribute.String("course_key", intent.CourseKey),
	))
	defer span.End()
	start := time.Now()

	decision, err := s.underPairLock(ctx, intent, fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "admission failed")
		s.logger.ErrorContext(ctx, "admission failed",
			"intent", intent.Kind,
			"student_id", intent.StudentID,
			"course_key", intent.CourseKey,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("outcome", string(decision.Outcome)),
		attribute.String("reason", string(decision.Reason)),
	)
	if s.metrics != nil {
		s.metrics.ObserveDecision(decision, time.Since(start))
	}
	ports.LogDecision(ctx, s.logger, s.publisher, decision)
	return decision, nil
}

func (s *Service) underPairLock(ctx context.Context, intent models.Intent, fn decideFunc) (*models.Decision, error) {
	unlock, err := s.pairs.Lock(ctx, shardlock.PairKey(intent.StudentID, intent.CourseKey))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", intent, err)
	}
	defer unlock()

	if err := s.settlePair(ctx, intent.StudentID, intent.CourseKey); err != nil {
		return nil, err
	}
	return fn(ctx, intent)
}

func (s *Service) apply(ctx context.Context, intent models.Intent) (*models.Decision, error) {
	found, err := s.courseExists(ctx, intent.CourseKey)
	if err != nil {
		return nil, err
	}
	if !found {
		return models.Rejected(intent, models.ReasonCourseNotFound), nil
	}

	status, err := s.currentStatus(ctx, intent)
	if err != nil {
		return nil, err
	}
	if status == models.StatusApplied {
		return models.Rejected(intent, models.ReasonAlreadyApplied), nil
	}

	entry := models.NewJournalEntry(models.StageReserving, intent.StudentID, intent.CourseKey, requestcontext.Now(ctx))
	if err := s.journal.Append(ctx, entry); err != nil {
		return nil, unavailable("journal apply", err)
	}

	transition, err := s.registrations.TransitionToApplied(ctx, intent.StudentID, intent.CourseKey)
	if err != nil {
		// The record was absent or Cancelled before the attempt, so putting
		// it back to not-Applied is safe whether or not the write landed.
		entry.Stage = models.StageCompensate
		if cerr := s.compensate(ctx, entry); cerr != nil {
			return nil, unavailable("transition to applied", errors.Join(err, cerr))
		}
		return nil, unavailable("transition to applied", err)
	}
	if !transition.Mutated() {
		s.resolve(ctx, entry)
		return models.Rejected(intent, models.ReasonAlreadyApplied), nil
	}

	reserved, err := s.ledger.TryReserve(ctx, intent.CourseKey, intent.StudentID)
	if err == nil && reserved {
		s.resolve(ctx, entry)
		return models.Accepted(intent), nil
	}

	// A reserve that failed may still have committed; compensate drops the
	// pair's seat as well as its registration.
	entry.Stage = models.StageCompensate
	entry.Transition = transition
	if cerr := s.compensate(ctx, entry); cerr != nil {
		return nil, unavailable("compensate registration", errors.Join(err, cerr))
	}
	if err != nil {
		return nil, unavailable("reserve seat", err)
	}
	return models.Rejected(intent, models.ReasonCourseFull), nil
}

func (s *Service) cancel(ctx context.Context, intent models.Intent) (*models.Decision, error) {
	found, err := s.courseExists(ctx, intent.CourseKey)
	if err != nil {
		return nil, err
	}
	if !found {
		return models.Rejected(intent, models.ReasonCourseNotFound), nil
	}

	status, err := s.currentStatus(ctx, intent)
	if err != nil {
		return nil, err
	}
	switch status {
	case "":
		return models.Rejected(intent, models.ReasonNotFound), nil
	case models.StatusCancelled:
		return models.Rejected(intent, models.ReasonNotApplied), nil
	}

	entry := models.NewJournalEntry(models.StageCancelling, intent.StudentID, intent.CourseKey, requestcontext.Now(ctx))
	if err := s.journal.Append(ctx, entry); err != nil {
		return nil, unavailable("journal cancel", err)
	}

	transition, err := s.registrations.TransitionToCancelled(ctx, intent.StudentID, intent.CourseKey)
	if err != nil {
		// Whether the flip landed is unknown; settle it from the stored state.
		// repair parks the entry itself if it cannot finish.
		if serr := s.repair(ctx, entry); serr != nil {
			err = errors.Join(err, serr)
		}
		return nil, unavailable("transition to cancelled", err)
	}
	switch transition {
	case models.TransitionNotFound:
		s.resolve(ctx, entry)
		return models.Rejected(intent, models.ReasonNotFound), nil
	case models.TransitionNotApplied:
		s.resolve(ctx, entry)
		return models.Rejected(intent, models.ReasonNotApplied), nil
	}

	entry.Stage = models.StageRelease
	if err := s.journal.Update(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "failed to journal seat release", "entry_id", entry.ID, "error", err)
	}
	if err := s.release(ctx, entry); err != nil {
		// The cancel is committed. The seat stays owed until the reconciler
		// or the pair's next intent releases it.
		s.logger.WarnContext(ctx, "seat release deferred",
			"student_id", intent.StudentID,
			"course_key", intent.CourseKey,
			"entry_id", entry.ID,
			"error", err,
		)
	}
	return models.Accepted(intent), nil
}

func (s *Service) courseExists(ctx context.Context, courseKey string) (bool, error) {
	if _, err := s.ledger.Get(ctx, courseKey); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, unavailable("load course", err)
	}
	return true, nil
}

// currentStatus returns the pair's status, or "" when no record exists.
func (s *Service) currentStatus(ctx context.Context, intent models.Intent) (models.RegistrationStatus, error) {
	record, err := s.registrations.Get(ctx, intent.StudentID, intent.CourseKey)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", nil
		}
		return "", unavailable("load registration", err)
	}
	return record.Status, nil
}

func validateIntent(intent models.Intent) error {
	if strings.TrimSpace(intent.StudentID) == "" {
		return fmt.Errorf("student id is required: %w", sentinel.ErrInvalidInput)
	}
	if strings.TrimSpace(intent.CourseKey) == "" {
		return fmt.Errorf("course key is required: %w", sentinel.ErrInvalidInput)
	}
	return nil
}

// unavailable marks an infrastructure failure while keeping the cause in the chain.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
}
