package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courtcal/models"
	"courtcal/services/events"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("courtcal/services/booking")

// RequestBooking validates req, then runs check-then-reserve until the reserve succeeds
// against unchanged scope versions, a conflict is found, or the attempts run out.
func (o *Orchestrator) RequestBooking(ctx context.Context, req BookingRequest) (*models.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.Request", trace.WithAttributes(
		attribute.StringSlice("booking.subjects", req.SubjectIDs),
		attribute.String("booking.resource", req.ResourceID),
	))
	defer span.End()

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	now := o.now()
	resource, err := o.loadResource(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if resource != nil {
		if err := checkRules(*resource, req.Interval, now, o.location()); err != nil {
			return nil, err
		}
	}

	if req.IdempotencyKey != "" && o.Idempotency != nil {
		if id, found, err := o.Idempotency.Lookup(ctx, req.IdempotencyKey); err != nil {
			o.Logger.Warn("Idempotency lookup failed", zap.String("key", req.IdempotencyKey), zap.Error(err))
		} else if found {
			o.Logger.Info("Replaying booking for idempotency key", zap.String("key", req.IdempotencyKey), zap.String("bookingID", id))
			return o.Repo.GetBooking(ctx, id)
		}
	}

	status := models.BookingConfirmed
	if resource != nil && resource.Rules.RequiresApproval {
		status = models.BookingPending
	}
	b := &models.Booking{
		ID:            uuid.New().String(),
		ResourceID:    req.ResourceID,
		SubjectIDs:    dedupe(req.SubjectIDs),
		Interval:      req.Interval,
		BufferMinutes: req.BufferMinutes,
		Owner:         req.Owner,
		Title:         req.Title,
		Metadata:      req.Metadata,
		Status:        status,
		StatusHistory: []models.StatusChange{{To: status, At: now, By: req.Owner}},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := o.reserve(ctx, b, resource); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("booking.id", b.ID))
	o.Logger.Info("Booking reserved",
		zap.String("bookingID", b.ID),
		zap.Strings("subjectIDs", b.SubjectIDs),
		zap.String("resourceID", b.ResourceID),
		zap.Time("start", b.Interval.Start),
		zap.Time("end", b.Interval.End),
		zap.String("status", string(b.Status)))

	if req.IdempotencyKey != "" && o.Idempotency != nil {
		if err := o.Idempotency.Remember(ctx, req.IdempotencyKey, b.ID); err != nil {
			o.Logger.Warn("Failed to record idempotency key", zap.String("key", req.IdempotencyKey), zap.Error(err))
		}
	}
	o.afterWrite(ctx, *b, eventForStatus(b.Status))
	return b, nil
}

// reserve retries reserveOnce while it loses version races.
func (o *Orchestrator) reserve(ctx context.Context, b *models.Booking, resource *models.BookableResource) error {
	attempts := o.maxAttempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		err := o.reserveOnce(ctx, b, resource, nil, 0)
		if !errors.Is(err, models.ErrConcurrencyConflict) {
			return err
		}
		o.Logger.Debug("Reserve lost a version race, retrying",
			zap.String("bookingID", b.ID), zap.Int("attempt", attempt), zap.Error(err))
	}
	return o.exhausted(b.ID, attempts)
}

// reserveOnce is one check-then-reserve pass. Scope versions are read before the busy sets,
// so any booking that lands in between bumps a version and fails the conditional write.
func (o *Orchestrator) reserveOnce(ctx context.Context, b *models.Booking, resource *models.BookableResource, supersedes *models.Booking, supersedesVersion int64) error {
	exclude := ""
	if supersedes != nil {
		exclude = supersedes.ID
	}
	versions, err := o.Repo.ScopeVersions(ctx, b.Scopes())
	if err != nil {
		return fmt.Errorf("failed to read scope versions: %w", err)
	}
	conflicts, err := o.detect(ctx, b.Interval, b.SubjectIDs, b.BufferMinutes, resource, exclude)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return &models.ConflictError{Reason: "requested interval is not available", Conflicts: conflicts}
	}
	err = o.Repo.Reserve(ctx, models.Reservation{
		Booking:           b,
		Versions:          versions,
		Supersedes:        supersedes,
		SupersedesVersion: supersedesVersion,
	})
	if err != nil && !errors.Is(err, models.ErrConcurrencyConflict) {
		return fmt.Errorf("failed to reserve booking: %w", err)
	}
	return err
}

// exhausted reports persistent version races as a conflict: someone else got there first.
func (o *Orchestrator) exhausted(bookingID string, attempts int) error {
	o.Logger.Warn("Reserve attempts exhausted", zap.String("bookingID", bookingID), zap.Int("attempts", attempts))
	return &models.ConflictError{
		Reason:    fmt.Sprintf("interval was taken concurrently; gave up after %d attempts", attempts),
		Conflicts: []models.Conflict{},
	}
}

func (o *Orchestrator) detect(ctx context.Context, iv models.TimeInterval, subjectIDs []string, bufferMinutes int, resource *models.BookableResource, exclude string) ([]models.Conflict, error) {
	res, err := o.Detector.CheckConflicts(ctx, iv, subjectIDs, bufferMinutes, exclude)
	if err != nil {
		return nil, err
	}
	conflicts := res.Conflicts
	if resource != nil {
		rres, err := o.Detector.CheckResourceCapacity(ctx, iv, *resource, exclude)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, rres.Conflicts...)
	}
	return conflicts, nil
}

// CancelBooking moves a booking to cancelled. Cancelling a cancelled booking returns it
// unchanged.
func (o *Orchestrator) CancelBooking(ctx context.Context, id, cancelledBy, reason string) (*models.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.Cancel", trace.WithAttributes(attribute.String("booking.id", id)))
	defer span.End()

	b, err := o.updateStatus(ctx, id, models.BookingCancelled, cancelledBy, reason)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return b, nil
}

// TransitionBooking applies approve, start, complete and no-show changes. Rescheduling goes
// through RescheduleBooking because it creates a booking.
func (o *Orchestrator) TransitionBooking(ctx context.Context, id string, to models.BookingStatus, actor, reason string) (*models.Booking, error) {
	if to == models.BookingRescheduled {
		return nil, models.NewValidationError("status", "use reschedule to move a booking")
	}
	if to == "" {
		return nil, models.NewValidationError("status", "is required")
	}
	return o.updateStatus(ctx, id, to, actor, reason)
}

func (o *Orchestrator) updateStatus(ctx context.Context, id string, to models.BookingStatus, actor, reason string) (*models.Booking, error) {
	var lastErr error
	for attempt := 1; attempt <= o.maxAttempts(); attempt++ {
		current, err := o.Repo.GetBooking(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status == to {
			return current, nil
		}
		next, err := Transition(*current, to, actor, reason, o.now())
		if err != nil {
			return nil, err
		}
		if err := o.Repo.UpdateBooking(ctx, &next, current.Version); err != nil {
			if errors.Is(err, models.ErrConcurrencyConflict) {
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("failed to update booking %s: %w", id, err)
		}
		o.Logger.Info("Booking status changed",
			zap.String("bookingID", id),
			zap.String("from", string(current.Status)),
			zap.String("to", string(to)),
			zap.String("by", actor))
		o.afterWrite(ctx, next, eventForStatus(to))
		return &next, nil
	}
	return nil, fmt.Errorf("booking %s changed concurrently: %w", id, lastErr)
}

// RescheduleBooking replaces a confirmed booking with one on newInterval. The new interval is
// checked with the old booking excluded; the old booking moves to rescheduled in the same
// atomic write that inserts the new one.
func (o *Orchestrator) RescheduleBooking(ctx context.Context, id string, newInterval models.TimeInterval, changedBy string) (*models.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.Reschedule", trace.WithAttributes(attribute.String("booking.id", id)))
	defer span.End()

	if err := newInterval.Validate(); err != nil {
		return nil, err
	}
	attempts := o.maxAttempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		old, err := o.Repo.GetBooking(ctx, id)
		if err != nil {
			return nil, err
		}
		now := o.now()
		superseded, err := Transition(*old, models.BookingRescheduled, changedBy, "rescheduled", now)
		if err != nil {
			return nil, err
		}
		resource, err := o.loadResource(ctx, old.ResourceID)
		if err != nil {
			return nil, err
		}
		if resource != nil {
			if err := checkRules(*resource, newInterval, now, o.location()); err != nil {
				return nil, err
			}
		}

		replacement := old.Clone()
		replacement.ID = uuid.New().String()
		replacement.Interval = newInterval
		replacement.Status = models.BookingConfirmed
		replacement.StatusHistory = []models.StatusChange{{
			To: models.BookingConfirmed, At: now, By: changedBy, Reason: "rescheduled from " + old.ID,
		}}
		replacement.RescheduledFrom = old.ID
		replacement.RescheduledTo = ""
		replacement.Version = 0
		replacement.CreatedAt = now
		replacement.UpdatedAt = now
		superseded.RescheduledTo = replacement.ID

		err = o.reserveOnce(ctx, &replacement, resource, &superseded, old.Version)
		if errors.Is(err, models.ErrConcurrencyConflict) {
			continue
		}
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		o.Logger.Info("Booking rescheduled",
			zap.String("fromBookingID", old.ID),
			zap.String("toBookingID", replacement.ID),
			zap.Time("start", newInterval.Start))
		o.invalidate(ctx, *old)
		o.afterWrite(ctx, replacement, models.EventBookingRescheduled)
		return &replacement, nil
	}
	return nil, o.exhausted(id, attempts)
}

func (o *Orchestrator) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return o.Repo.GetBooking(ctx, id)
}

func (o *Orchestrator) ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	if filter.SubjectID == "" && filter.ResourceID == "" {
		return nil, models.NewValidationError("subjectId", "subjectId or resourceId is required")
	}
	if err := filter.Window.Validate(); err != nil {
		return nil, err
	}
	return o.Repo.ListBookings(ctx, filter)
}

func (o *Orchestrator) loadResource(ctx context.Context, id string) (*models.BookableResource, error) {
	if id == "" {
		return nil, nil
	}
	return o.Resources.GetResource(ctx, id)
}

func (o *Orchestrator) afterWrite(ctx context.Context, b models.Booking, eventType string) {
	o.invalidate(ctx, b)
	if o.Publisher == nil {
		return
	}
	evt := events.NewEvent(eventType, b.ID, map[string]any{
		"status":     string(b.Status),
		"subjectIds": b.SubjectIDs,
		"resourceId": b.ResourceID,
		"start":      b.Interval.Start.UTC().Format(time.RFC3339),
		"end":        b.Interval.End.UTC().Format(time.RFC3339),
		"owner":      b.Owner,
	}, o.now())
	if b.RescheduledFrom != "" {
		evt.Payload["rescheduledFrom"] = b.RescheduledFrom
	}
	if err := o.Publisher.Publish(ctx, evt); err != nil {
		o.Logger.Warn("Failed to publish booking event", zap.String("type", eventType), zap.String("bookingID", b.ID), zap.Error(err))
	}
}

func (o *Orchestrator) invalidate(ctx context.Context, b models.Booking) {
	if o.SlotCache == nil {
		return
	}
	ids := append([]string{}, b.SubjectIDs...)
	if b.ResourceID != "" {
		ids = append(ids, b.ResourceID)
	}
	if err := o.SlotCache.Invalidate(ctx, ids...); err != nil {
		o.Logger.Warn("Failed to invalidate slot cache", zap.String("bookingID", b.ID), zap.Error(err))
	}
}

func eventForStatus(status models.BookingStatus) string {
	switch status {
	case models.BookingConfirmed:
		return models.EventBookingConfirmed
	case models.BookingPending:
		return models.EventBookingPending
	case models.BookingCancelled:
		return models.EventBookingCancelled
	}
	return models.EventBookingStatusChanged
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func (o *Orchestrator) maxAttempts() int {
	if o.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return o.MaxAttempts
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func (o *Orchestrator) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}
