package availability

import (
	"context"
	"time"

	"courtcal/models"
	"courtcal/services/events"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *DefaultAvailabilityService) CreateBlock(ctx context.Context, req BlockRequest) (*models.AvailabilityBlock, error) {
	now := s.now()
	block := &models.AvailabilityBlock{
		ID:         uuid.New().String(),
		SubjectID:  req.SubjectID,
		Interval:   req.Interval,
		Kind:       req.Kind,
		Recurrence: req.Recurrence,
		Status:     models.BlockActive,
		Reason:     req.Reason,
		Reference:  req.Reference,
		CreatedBy:  req.CreatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if block.Recurrence != nil && block.Recurrence.EffectiveFrom.IsZero() {
		block.Recurrence.EffectiveFrom = block.Interval.Start
	}
	if err := block.Validate(); err != nil {
		return nil, err
	}
	if err := s.Repo.CreateBlock(ctx, block); err != nil {
		s.Logger.Error("Failed to create availability block", zap.String("subjectID", block.SubjectID), zap.Error(err))
		return nil, err
	}
	s.Logger.Info("Availability block created",
		zap.String("blockID", block.ID),
		zap.String("subjectID", block.SubjectID),
		zap.String("kind", string(block.Kind)),
		zap.Bool("recurring", block.Recurring()))

	s.invalidate(ctx, block.SubjectID)
	s.publish(ctx, models.EventBlockCreated, *block)
	block.Status = block.EffectiveStatus(now)
	return block, nil
}

// CancelBlock cancels a block; cancelling twice returns the cancelled block.
func (s *DefaultAvailabilityService) CancelBlock(ctx context.Context, id, cancelledBy string) (*models.AvailabilityBlock, error) {
	current, err := s.Repo.GetBlock(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == models.BlockCancelled {
		return current, nil
	}
	block, err := s.Repo.CancelBlock(ctx, id, cancelledBy, s.now())
	if err != nil {
		return nil, err
	}
	s.Logger.Info("Availability block cancelled", zap.String("blockID", id), zap.String("cancelledBy", cancelledBy))
	s.invalidate(ctx, block.SubjectID)
	s.publish(ctx, models.EventBlockCancelled, *block)
	return block, nil
}

func (s *DefaultAvailabilityService) GetBlock(ctx context.Context, id string) (*models.AvailabilityBlock, error) {
	block, err := s.Repo.GetBlock(ctx, id)
	if err != nil {
		return nil, err
	}
	block.Status = block.EffectiveStatus(s.now())
	return block, nil
}

// ListBlocks returns every block of subjectID that may touch window, with derived status.
func (s *DefaultAvailabilityService) ListBlocks(ctx context.Context, subjectID string, window models.TimeInterval) ([]models.AvailabilityBlock, error) {
	if subjectID == "" {
		return nil, models.NewValidationError("subjectId", "is required")
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	blocks, err := s.Repo.ListBlocks(ctx, subjectID, window)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range blocks {
		blocks[i].Status = blocks[i].EffectiveStatus(now)
	}
	return blocks, nil
}

func (s *DefaultAvailabilityService) invalidate(ctx context.Context, subjectID string) {
	if s.SlotCache == nil {
		return
	}
	if err := s.SlotCache.Invalidate(ctx, subjectID); err != nil {
		s.Logger.Warn("Failed to invalidate slot cache", zap.String("subjectID", subjectID), zap.Error(err))
	}
}

func (s *DefaultAvailabilityService) publish(ctx context.Context, eventType string, block models.AvailabilityBlock) {
	if s.Publisher == nil {
		return
	}
	evt := events.NewEvent(eventType, block.ID, map[string]any{
		"subjectId": block.SubjectID,
		"kind":      string(block.Kind),
		"start":     block.Interval.Start.UTC().Format(time.RFC3339),
		"end":       block.Interval.End.UTC().Format(time.RFC3339),
		"recurring": block.Recurring(),
	}, s.now())
	if err := s.Publisher.Publish(ctx, evt); err != nil {
		s.Logger.Warn("Failed to publish availability event", zap.String("type", eventType), zap.String("blockID", block.ID), zap.Error(err))
	}
}

func (s *DefaultAvailabilityService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *DefaultAvailabilityService) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}
