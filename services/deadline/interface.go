package deadline

import (
	"context"
	"fmt"
	"time"

	"courtcal/models"
	"courtcal/services/events"

	"go.uber.org/zap"
)

// Repository persists deadlines. UpdateDeadline succeeds only when the stored version
// equals expectedVersion.
type Repository interface {
	CreateDeadline(ctx context.Context, d *models.Deadline) error
	GetDeadline(ctx context.Context, id string) (*models.Deadline, error)
	UpdateDeadline(ctx context.Context, d *models.Deadline, expectedVersion int64) error
	ListDueBetween(ctx context.Context, from, to time.Time) ([]models.Deadline, error)
}

// ReminderScheduler delivers a reminder payload at fireAt.
type ReminderScheduler interface {
	ScheduleDeadlineReminder(ctx context.Context, payload models.DeadlineReminderPayload, fireAt time.Time) error
}

type DeadlineService interface {
	CalculateDeadline(ctx context.Context, basis models.DeadlineBasis) (time.Time, error)
	CreateDeadline(ctx context.Context, req CreateRequest) (*models.Deadline, error)
	GetDeadline(ctx context.Context, id string) (*models.Deadline, error)
	ExtendDeadline(ctx context.Context, id string, newDueDate time.Time, reason, grantedBy string) (*models.Deadline, error)
	CompleteDeadline(ctx context.Context, id, completedBy string) (*models.Deadline, error)
	CancelDeadline(ctx context.Context, id, cancelledBy string) (*models.Deadline, error)
	SweepDueToday(ctx context.Context) (int, error)
}

// CreateRequest describes a deadline to compute and store.
type CreateRequest struct {
	Title              string                  `json:"title" binding:"required"`
	Reference          string                  `json:"reference,omitempty"`
	Basis              models.DeadlineBasis    `json:"basis"`
	Priority           models.DeadlinePriority `json:"priority"`
	BlockedBy          []string                `json:"blockedBy,omitempty"`
	ReminderDaysBefore []int                   `json:"reminderDaysBefore,omitempty"`
}

// DefaultDeadlineService is the production implementation.
type DefaultDeadlineService struct {
	Repo      Repository
	Holidays  HolidaySet
	Publisher events.Publisher
	Reminders ReminderScheduler
	Location  *time.Location
	// ReminderHour is the local hour reminders fire at.
	ReminderHour int
	Now          func() time.Time
	Logger       *zap.Logger
}

func NewDefaultDeadlineService(repo Repository, holidays HolidaySet, publisher events.Publisher, reminders ReminderScheduler, loc *time.Location, logger *zap.Logger) (*DefaultDeadlineService, error) {
	if repo == nil || logger == nil {
		return nil, fmt.Errorf("deadline service initialization error: repository and logger are required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if holidays == nil {
		holidays = HolidaySet{}
	}
	return &DefaultDeadlineService{
		Repo:         repo,
		Holidays:     holidays,
		Publisher:    publisher,
		Reminders:    reminders,
		Location:     loc,
		ReminderHour: 8,
		Now:          time.Now,
		Logger:       logger,
	}, nil
}
