package availability

import (
	"context"
	"fmt"
	"time"

	"courtcal/models"
	"courtcal/services/events"
	"courtcal/services/scheduling"

	"go.uber.org/zap"
)

// Repository stores availability blocks. CancelBlock is idempotent.
type Repository interface {
	CreateBlock(ctx context.Context, block *models.AvailabilityBlock) error
	GetBlock(ctx context.Context, id string) (*models.AvailabilityBlock, error)
	CancelBlock(ctx context.Context, id, cancelledBy string, at time.Time) (*models.AvailabilityBlock, error)
	ListBlocks(ctx context.Context, subjectID string, window models.TimeInterval) ([]models.AvailabilityBlock, error)
}

type ResourceReader interface {
	GetResource(ctx context.Context, id string) (*models.BookableResource, error)
}

// AvailabilityService answers availability questions and manages blocks.
type AvailabilityService interface {
	CreateBlock(ctx context.Context, req BlockRequest) (*models.AvailabilityBlock, error)
	CancelBlock(ctx context.Context, id, cancelledBy string) (*models.AvailabilityBlock, error)
	GetBlock(ctx context.Context, id string) (*models.AvailabilityBlock, error)
	ListBlocks(ctx context.Context, subjectID string, window models.TimeInterval) ([]models.AvailabilityBlock, error)
	CheckAvailability(ctx context.Context, subjectID string, start, end time.Time) (models.ConflictResult, error)
	FindAvailableSlots(ctx context.Context, req models.SlotsRequest) ([]models.AvailableInterval, error)
	FindResourceSlots(ctx context.Context, resourceID, date string, durationMinutes int) ([]models.AvailableInterval, error)
}

// BlockRequest creates a one-off or recurring block.
type BlockRequest struct {
	SubjectID  string                    `json:"subjectId" binding:"required"`
	Interval   models.TimeInterval       `json:"interval"`
	Kind       models.BlockKind          `json:"kind" binding:"required"`
	Recurrence *models.RecurrencePattern `json:"recurrence,omitempty"`
	Reason     string                    `json:"reason,omitempty"`
	Reference  string                    `json:"reference,omitempty"`
	CreatedBy  string                    `json:"createdBy,omitempty"`
}

// DefaultAvailabilityService is the production implementation.
type DefaultAvailabilityService struct {
	Repo         Repository
	Resources    ResourceReader
	Detector     *scheduling.Detector
	Slots        *scheduling.SlotFinder
	SlotCache    scheduling.SlotCache
	Publisher    events.Publisher
	DefaultHours models.WeeklyHours
	Location     *time.Location
	Now          func() time.Time
	Logger       *zap.Logger
}

func NewDefaultAvailabilityService(repo Repository, resources ResourceReader, detector *scheduling.Detector, slots *scheduling.SlotFinder, logger *zap.Logger) (*DefaultAvailabilityService, error) {
	if repo == nil || detector == nil || slots == nil || logger == nil {
		return nil, fmt.Errorf("availability service initialization error: one or more dependencies are nil")
	}
	return &DefaultAvailabilityService{
		Repo:         repo,
		Resources:    resources,
		Detector:     detector,
		Slots:        slots,
		DefaultHours: models.StandardWeek(9*60, 17*60),
		Location:     time.UTC,
		Now:          time.Now,
		Logger:       logger,
	}, nil
}
