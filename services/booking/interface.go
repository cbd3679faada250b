package booking

import (
	"context"
	"fmt"
	"time"

	"courtcal/models"
	"courtcal/services/events"
	"courtcal/services/scheduling"

	"go.uber.org/zap"
)

// DefaultMaxAttempts bounds the check-then-reserve loop.
const DefaultMaxAttempts = 3

// Repository is the booking persistence the orchestrator needs. Reserve writes a booking
// only if every scope ledger still holds the version read before conflict detection.
type Repository interface {
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	ScopeVersions(ctx context.Context, scopes []string) (map[string]int64, error)
	Reserve(ctx context.Context, r models.Reservation) error
	UpdateBooking(ctx context.Context, b *models.Booking, expectedVersion int64) error
}

type ResourceReader interface {
	GetResource(ctx context.Context, id string) (*models.BookableResource, error)
}

// IdempotencyStore remembers which booking a client key produced.
type IdempotencyStore interface {
	Lookup(ctx context.Context, key string) (bookingID string, found bool, err error)
	Remember(ctx context.Context, key, bookingID string) error
}

type BookingService interface {
	RequestBooking(ctx context.Context, req BookingRequest) (*models.Booking, error)
	CancelBooking(ctx context.Context, id, cancelledBy, reason string) (*models.Booking, error)
	RescheduleBooking(ctx context.Context, id string, newInterval models.TimeInterval, changedBy string) (*models.Booking, error)
	TransitionBooking(ctx context.Context, id string, to models.BookingStatus, actor, reason string) (*models.Booking, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
}

// BookingRequest asks for an interval for a set of subjects and, optionally, a resource.
type BookingRequest struct {
	Interval       models.TimeInterval `json:"interval"`
	SubjectIDs     []string            `json:"subjectIds"`
	ResourceID     string              `json:"resourceId,omitempty"`
	BufferMinutes  int                 `json:"bufferMinutes,omitempty"`
	Owner          string              `json:"owner"`
	Title          string              `json:"title,omitempty"`
	Metadata       map[string]string   `json:"metadata,omitempty"`
	IdempotencyKey string              `json:"-"`
}

// Orchestrator is the production BookingService.
type Orchestrator struct {
	Repo        Repository
	Resources   ResourceReader
	Detector    *scheduling.Detector
	Publisher   events.Publisher
	SlotCache   scheduling.SlotCache
	Idempotency IdempotencyStore
	MaxAttempts int
	Location    *time.Location
	Now         func() time.Time
	Logger      *zap.Logger
}

func NewOrchestrator(repo Repository, resources ResourceReader, detector *scheduling.Detector, publisher events.Publisher, logger *zap.Logger) (*Orchestrator, error) {
	if repo == nil || resources == nil || detector == nil || logger == nil {
		return nil, fmt.Errorf("booking orchestrator initialization error: one or more dependencies are nil")
	}
	return &Orchestrator{
		Repo:        repo,
		Resources:   resources,
		Detector:    detector,
		Publisher:   publisher,
		MaxAttempts: DefaultMaxAttempts,
		Location:    time.UTC,
		Now:         time.Now,
		Logger:      logger,
	}, nil
}
