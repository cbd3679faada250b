package deadline

import (
	"context"
	"errors"
	"slices"
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

const maxUpdateAttempts = 3

var tracer = otel.Tracer("courtcal/services/deadline")

func (s *DefaultDeadlineService) CalculateDeadline(ctx context.Context, basis models.DeadlineBasis) (time.Time, error) {
	_, span := tracer.Start(ctx, "deadline.Calculate", trace.WithAttributes(
		attribute.Int("deadline.days", basis.Days),
		attribute.String("deadline.mode", string(basis.Mode)),
	))
	defer span.End()

	due, err := Calculate(basis, s.Holidays)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return time.Time{}, err
	}
	return due, nil
}

func (s *DefaultDeadlineService) CreateDeadline(ctx context.Context, req CreateRequest) (*models.Deadline, error) {
	ctx, span := tracer.Start(ctx, "deadline.Create")
	defer span.End()

	verr := &models.ValidationError{}
	if req.Title == "" {
		verr.Add("title", "is required")
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if !req.Priority.Valid() {
		verr.Add("priority", "must be low, medium, high or critical")
	}
	for _, n := range req.ReminderDaysBefore {
		if n < 0 {
			verr.Add("reminderDaysBefore", "must not be negative")
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	due, err := Calculate(req.Basis, s.Holidays)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &models.Deadline{
		ID:                 uuid.New().String(),
		Title:              req.Title,
		Reference:          req.Reference,
		Basis:              req.Basis,
		DueDate:            due,
		Priority:           req.Priority,
		BlockedBy:          slices.Clone(req.BlockedBy),
		ReminderDaysBefore: slices.Clone(req.ReminderDaysBefore),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if d.Basis.Mode == "" {
		d.Basis.Mode = models.CountBusinessDays
	}
	if err := s.Repo.CreateDeadline(ctx, d); err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.Logger.Error("Failed to create deadline", zap.String("title", d.Title), zap.Error(err))
		return nil, err
	}
	span.SetAttributes(attribute.String("deadline.id", d.ID))
	s.Logger.Info("Deadline created", zap.String("deadlineID", d.ID), zap.Time("dueDate", d.DueDate))

	s.scheduleReminders(ctx, *d)
	s.publish(ctx, models.EventDeadlineCreated, *d)
	out := WithStatus(*d, now, s.location())
	return &out, nil
}

func (s *DefaultDeadlineService) GetDeadline(ctx context.Context, id string) (*models.Deadline, error) {
	d, err := s.Repo.GetDeadline(ctx, id)
	if err != nil {
		return nil, err
	}
	out := WithStatus(*d, s.now(), s.location())
	return &out, nil
}

func (s *DefaultDeadlineService) ExtendDeadline(ctx context.Context, id string, newDueDate time.Time, reason, grantedBy string) (*models.Deadline, error) {
	ctx, span := tracer.Start(ctx, "deadline.Extend", trace.WithAttributes(attribute.String("deadline.id", id)))
	defer span.End()

	if newDueDate.IsZero() {
		return nil, models.NewValidationError("newDueDate", "is required")
	}
	updated, changed, err := s.mutate(ctx, id, func(d models.Deadline, now time.Time) (models.Deadline, bool, error) {
		next, err := Extend(d, newDueDate, reason, grantedBy, now)
		return next, err == nil, err
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if changed {
		s.Logger.Info("Deadline extended",
			zap.String("deadlineID", id),
			zap.Time("newDueDate", updated.DueDate),
			zap.String("grantedBy", grantedBy))
		s.scheduleReminders(ctx, *updated)
		s.publish(ctx, models.EventDeadlineExtended, *updated)
	}
	return updated, nil
}

func (s *DefaultDeadlineService) CompleteDeadline(ctx context.Context, id, completedBy string) (*models.Deadline, error) {
	updated, changed, err := s.mutate(ctx, id, func(d models.Deadline, now time.Time) (models.Deadline, bool, error) {
		next, err := Complete(d, completedBy, now)
		return next, !d.Completed, err
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(ctx, models.EventDeadlineCompleted, *updated)
	}
	return updated, nil
}

func (s *DefaultDeadlineService) CancelDeadline(ctx context.Context, id, cancelledBy string) (*models.Deadline, error) {
	updated, changed, err := s.mutate(ctx, id, func(d models.Deadline, now time.Time) (models.Deadline, bool, error) {
		next, err := Cancel(d, cancelledBy, now)
		return next, !d.Cancelled, err
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(ctx, models.EventDeadlineCancelled, *updated)
	}
	return updated, nil
}

// SweepDueToday publishes a due-today event for every open deadline due on the current
// local date and returns how many were found.
func (s *DefaultDeadlineService) SweepDueToday(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "deadline.SweepDueToday")
	defer span.End()

	now := s.now().In(s.location())
	start := civilDate(now)
	due, err := s.Repo.ListDueBetween(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	for _, d := range due {
		s.publish(ctx, models.EventDeadlineDueToday, d)
	}
	span.SetAttributes(attribute.Int("deadline.due_today", len(due)))
	s.Logger.Info("Deadline sweep finished", zap.Int("dueToday", len(due)))
	return len(due), nil
}

// mutate applies fn to the stored deadline and writes it back with a version check,
// re-reading on a concurrent update.
func (s *DefaultDeadlineService) mutate(ctx context.Context, id string, fn func(models.Deadline, time.Time) (models.Deadline, bool, error)) (*models.Deadline, bool, error) {
	var lastErr error
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		current, err := s.Repo.GetDeadline(ctx, id)
		if err != nil {
			return nil, false, err
		}
		now := s.now()
		next, changed, err := fn(*current, now)
		if err != nil {
			return nil, false, err
		}
		if !changed {
			out := WithStatus(*current, now, s.location())
			return &out, false, nil
		}
		if err := s.Repo.UpdateDeadline(ctx, &next, current.Version); err != nil {
			if errors.Is(err, models.ErrConcurrencyConflict) {
				s.Logger.Debug("Deadline version conflict, retrying", zap.String("deadlineID", id), zap.Int("attempt", attempt))
				lastErr = err
				continue
			}
			return nil, false, err
		}
		out := WithStatus(next, now, s.location())
		return &out, true, nil
	}
	return nil, false, lastErr
}

func (s *DefaultDeadlineService) scheduleReminders(ctx context.Context, d models.Deadline) {
	if s.Reminders == nil || len(d.ReminderDaysBefore) == 0 {
		return
	}
	now := s.now()
	due := d.DueDate.In(s.location())
	for _, n := range d.ReminderDaysBefore {
		day := civilDate(due).AddDate(0, 0, -n)
		fireAt := time.Date(day.Year(), day.Month(), day.Day(), s.ReminderHour, 0, 0, 0, s.location())
		if fireAt.Before(now) {
			continue
		}
		payload := models.DeadlineReminderPayload{DeadlineID: d.ID, Title: d.Title, DueDate: d.DueDate, DaysBefore: n}
		if err := s.Reminders.ScheduleDeadlineReminder(ctx, payload, fireAt); err != nil {
			s.Logger.Warn("Failed to schedule deadline reminder", zap.String("deadlineID", d.ID), zap.Int("daysBefore", n), zap.Error(err))
		}
	}
}

func (s *DefaultDeadlineService) publish(ctx context.Context, eventType string, d models.Deadline) {
	if s.Publisher == nil {
		return
	}
	evt := events.NewEvent(eventType, d.ID, map[string]any{
		"title":     d.Title,
		"reference": d.Reference,
		"dueDate":   d.DueDate.Format(models.DateLayout),
		"priority":  string(d.Priority),
	}, s.now())
	if err := s.Publisher.Publish(ctx, evt); err != nil {
		s.Logger.Warn("Failed to publish deadline event", zap.String("type", eventType), zap.String("deadlineID", d.ID), zap.Error(err))
	}
}

func (s *DefaultDeadlineService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *DefaultDeadlineService) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}
