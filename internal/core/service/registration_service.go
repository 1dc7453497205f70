package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
	"github.com/coursereg/registration-system/internal/pkg/metrics"
)

const (
	msgRegistered = "Successfully registered for the course"
	msgRestored   = "Course registration restored successfully"
)

type registrationService struct {
	ledger  ports.RegistrationRepository
	audit   ports.AuditPublisher
	history ports.AuditRepository
	idem    ports.IdempotencyStore
	catalog ports.CourseListCache
	tracer  trace.Tracer
	log     zerolog.Logger
}

// RegistrationOption configures optional collaborators of the ledger service.
type RegistrationOption func(*registrationService)

// WithAudit publishes ledger transitions to p and serves history from r.
func WithAudit(p ports.AuditPublisher, r ports.AuditRepository) RegistrationOption {
	return func(s *registrationService) {
		if p != nil {
			s.audit = p
		}
		s.history = r
	}
}

// WithIdempotency enables Idempotency-Key replay for Register.
func WithIdempotency(store ports.IdempotencyStore) RegistrationOption {
	return func(s *registrationService) { s.idem = store }
}

// WithCatalogCache invalidates the course list cache after ledger changes.
func WithCatalogCache(cache ports.CourseListCache) RegistrationOption {
	return func(s *registrationService) { s.catalog = cache }
}

// WithTracer sets the tracer used for ledger spans.
func WithTracer(t trace.Tracer) RegistrationOption {
	return func(s *registrationService) {
		if t != nil {
			s.tracer = t
		}
	}
}

// NewRegistrationService returns the ledger use cases.
func NewRegistrationService(ledger ports.RegistrationRepository, log zerolog.Logger, opts ...RegistrationOption) ports.RegistrationService {
	s := &registrationService{
		ledger: ledger,
		audit:  discardAudit{},
		tracer: noop.NewTracerProvider().Tracer("ledger"),
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register enrolls the requester in a course. The capacity check, the
// duplicate check and the write all happen under the course lock:
//  1. course must exist
//  2. active count must be below max_students
//  3. an active row for the pair is rejected
//  4. a dropped row for the pair is flipped back, keeping its id
//  5. otherwise a new row is inserted
func (s *registrationService) Register(ctx context.Context, in ports.RegisterCourseInput) (*ports.RegistrationResult, error) {
	studentID := in.Requester.UserID
	ctx, span := s.tracer.Start(ctx, "ledger.register", trace.WithAttributes(
		attribute.Int64("course.id", in.CourseID),
		attribute.Int64("student.id", studentID),
	))
	defer span.End()

	if in.CourseID <= 0 {
		return nil, domain.NewValidationError("course_id is required")
	}

	// A key reused for another course must not replay the first course's result.
	scope := strconv.FormatInt(studentID, 10) + ":" + strconv.FormatInt(in.CourseID, 10)
	if replay := s.replay(ctx, scope, in.IdempotencyKey); replay != nil {
		span.SetAttributes(attribute.Bool("idempotency.replayed", true))
		return replay, nil
	}

	var (
		result *ports.RegistrationResult
		action domain.LedgerAction
	)
	start := time.Now()
	err := s.ledger.WithCourseLock(ctx, in.CourseID, func(ctx context.Context, tx ports.CourseTx, course *domain.Course) error {
		active, err := tx.CountActive(ctx)
		if err != nil {
			return fmt.Errorf("count active: %w", err)
		}
		if active >= course.MaxStudents {
			return domain.ErrCourseFull
		}

		existing, err := tx.FindByStudent(ctx, studentID)
		switch {
		case err == nil && existing.Status == domain.StatusRegistered:
			return domain.ErrAlreadyRegistered
		case err == nil:
			reg, err := tx.SetStatus(ctx, existing.ID, domain.StatusRegistered)
			if err != nil {
				return fmt.Errorf("restore registration: %w", err)
			}
			result = newResult(reg, msgRestored, true)
			action = domain.ActionRestored
		case errors.Is(err, domain.ErrRegistrationNotFound):
			reg, err := tx.Insert(ctx, studentID)
			if err != nil {
				return fmt.Errorf("insert registration: %w", err)
			}
			result = newResult(reg, msgRegistered, false)
			action = domain.ActionRegistered
		default:
			return fmt.Errorf("find registration: %w", err)
		}
		return nil
	})
	metrics.LedgerLockDuration.WithLabelValues("register").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RegistrationAttemptsTotal.WithLabelValues(registerOutcome(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("register: %w", err)
	}

	metrics.RegistrationAttemptsTotal.WithLabelValues(string(action)).Inc()
	span.SetAttributes(attribute.Int64("registration.id", result.RegistrationID), attribute.String("ledger.action", string(action)))

	s.publish(result.RegistrationID, studentID, in.CourseID, action, domain.StatusRegistered, in.Requester)
	s.invalidate()
	s.remember(ctx, scope, in.IdempotencyKey, result)

	s.log.Info().
		Int64("registration_id", result.RegistrationID).
		Int64("student_id", studentID).
		Int64("course_id", in.CourseID).
		Str("action", string(action)).
		Msg("registration recorded")

	return result, nil
}

// Drop moves a registration to dropped. Dropping an already dropped row is
// a no-op.
func (s *registrationService) Drop(ctx context.Context, registrationID int64, requester domain.Identity) error {
	ctx, span := s.tracer.Start(ctx, "ledger.drop", trace.WithAttributes(attribute.Int64("registration.id", registrationID)))
	defer span.End()

	reg, err := s.ledger.FindByID(ctx, registrationID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("drop: %w", err)
	}
	if !requester.CanActFor(reg.StudentID) {
		return domain.ErrForbidden
	}
	if reg.Status == domain.StatusDropped {
		return nil
	}

	if _, err := s.ledger.SetStatus(ctx, registrationID, domain.StatusDropped); err != nil {
		span.RecordError(err)
		return fmt.Errorf("drop: %w", err)
	}

	metrics.DropsTotal.WithLabelValues(requester.Role).Inc()
	s.publish(reg.ID, reg.StudentID, reg.CourseID, domain.ActionDropped, domain.StatusDropped, requester)
	s.invalidate()

	s.log.Info().
		Int64("registration_id", reg.ID).
		Int64("actor_id", requester.UserID).
		Msg("registration dropped")
	return nil
}

// SetStatus is the admin override for a ledger row. Re-activating a row
// goes through the same capacity check as Register.
func (s *registrationService) SetStatus(ctx context.Context, registrationID int64, status domain.RegistrationStatus, requester domain.Identity) (*domain.Registration, error) {
	if !requester.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if !status.Valid() {
		return nil, domain.NewValidationError("status must be one of: registered dropped")
	}

	ctx, span := s.tracer.Start(ctx, "ledger.set_status", trace.WithAttributes(
		attribute.Int64("registration.id", registrationID),
		attribute.String("registration.status", string(status)),
	))
	defer span.End()

	reg, err := s.ledger.FindByID(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("set status: %w", err)
	}
	if reg.Status == status {
		return reg, nil
	}

	var updated *domain.Registration
	if status == domain.StatusDropped {
		updated, err = s.ledger.SetStatus(ctx, registrationID, status)
	} else {
		start := time.Now()
		err = s.ledger.WithCourseLock(ctx, reg.CourseID, func(ctx context.Context, tx ports.CourseTx, course *domain.Course) error {
			current, err := tx.FindByStudent(ctx, reg.StudentID)
			if err != nil {
				return err
			}
			if current.Status == domain.StatusRegistered {
				updated = current
				return nil
			}
			active, err := tx.CountActive(ctx)
			if err != nil {
				return fmt.Errorf("count active: %w", err)
			}
			if active >= course.MaxStudents {
				return domain.ErrCourseFull
			}
			updated, err = tx.SetStatus(ctx, current.ID, domain.StatusRegistered)
			return err
		})
		metrics.LedgerLockDuration.WithLabelValues("set_status").Observe(time.Since(start).Seconds())
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("set status: %w", err)
	}

	s.publish(reg.ID, reg.StudentID, reg.CourseID, domain.ActionStatusChanged, status, requester)
	s.invalidate()
	return updated, nil
}

func (s *registrationService) ListForStudent(ctx context.Context, studentID int64, requester domain.Identity) ([]*domain.RegistrationView, error) {
	if !requester.CanActFor(studentID) {
		return nil, domain.ErrForbidden
	}
	views, err := s.ledger.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list student registrations: %w", err)
	}
	return views, nil
}

func (s *registrationService) ListAll(ctx context.Context, requester domain.Identity, limit int) ([]*domain.RegistrationView, error) {
	if !requester.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	views, err := s.ledger.ListAll(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return views, nil
}

// History returns the audit trail of a registration, oldest first.
func (s *registrationService) History(ctx context.Context, registrationID int64, requester domain.Identity) ([]*domain.RegistrationEvent, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.history", trace.WithAttributes(attribute.Int64("registration.id", registrationID)))
	defer span.End()

	reg, err := s.ledger.FindByID(ctx, registrationID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("history: %w", err)
	}
	if !requester.CanActFor(reg.StudentID) {
		return nil, domain.ErrForbidden
	}
	if s.history == nil {
		return []*domain.RegistrationEvent{}, nil
	}
	events, err := s.history.ListByRegistration(ctx, registrationID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("history: %w", err)
	}
	return events, nil
}

// replay returns a stored result for key, or nil. Store failures are logged
// and the request proceeds.
func (s *registrationService) replay(ctx context.Context, scope, key string) *ports.RegistrationResult {
	if key == "" || s.idem == nil {
		return nil
	}

	stored, found, err := s.idem.Lookup(ctx, scope, key)
	switch {
	case err != nil:
		metrics.IdempotencyLookupsTotal.WithLabelValues("error").Inc()
		s.log.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency lookup failed, processing anyway")
		return nil
	case !found:
		metrics.IdempotencyLookupsTotal.WithLabelValues("miss").Inc()
		return nil
	}

	metrics.IdempotencyLookupsTotal.WithLabelValues("hit").Inc()
	metrics.RegistrationAttemptsTotal.WithLabelValues("replayed").Inc()
	stored.Replayed = true
	return stored
}

func (s *registrationService) remember(ctx context.Context, scope, key string, result *ports.RegistrationResult) {
	if key == "" || s.idem == nil {
		return
	}
	if err := s.idem.Save(ctx, scope, key, result); err != nil {
		s.log.Warn().Err(err).Str("idempotency_key", key).Msg("failed to store idempotency result")
	}
}

func (s *registrationService) publish(regID, studentID, courseID int64, action domain.LedgerAction, status domain.RegistrationStatus, actor domain.Identity) {
	s.audit.Publish(domain.RegistrationEvent{
		RegistrationID: regID,
		StudentID:      studentID,
		CourseID:       courseID,
		Action:         action,
		Status:         status,
		ActorID:        actor.UserID,
		ActorRole:      actor.Role,
		OccurredAt:     time.Now().UTC(),
	})
}

func (s *registrationService) invalidate() {
	if s.catalog != nil {
		s.catalog.Invalidate()
	}
}

func newResult(reg *domain.Registration, msg string, restored bool) *ports.RegistrationResult {
	return &ports.RegistrationResult{
		RegistrationID: reg.ID,
		CourseID:       reg.CourseID,
		Status:         string(reg.Status),
		Message:        msg,
		Restored:       restored,
	}
}

func registerOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrCourseFull):
		return "course_full"
	case errors.Is(err, domain.ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, domain.ErrCourseNotFound):
		return "course_not_found"
	default:
		return "error"
	}
}

type discardAudit struct{}

func (discardAudit) Publish(domain.RegistrationEvent) {}
