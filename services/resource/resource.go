package resource

import (
	"context"
	"fmt"
	"time"

	"courtcal/models"

	"go.uber.org/zap"
)

type Repository interface {
	UpsertResource(ctx context.Context, r *models.BookableResource) error
	GetResource(ctx context.Context, id string) (*models.BookableResource, error)
	ListResources(ctx context.Context) ([]models.BookableResource, error)
}

// ResourceService administers bookable resources.
type ResourceService interface {
	UpsertResource(ctx context.Context, r models.BookableResource) (*models.BookableResource, error)
	GetResource(ctx context.Context, id string) (*models.BookableResource, error)
	ListResources(ctx context.Context) ([]models.BookableResource, error)
	SeedResources(ctx context.Context, seeds []models.BookableResource) (int, error)
}

// DefaultResourceService is a concrete implementation.
type DefaultResourceService struct {
	Repo   Repository
	Now    func() time.Time
	Logger *zap.Logger
}

func NewDefaultResourceService(repo Repository, logger *zap.Logger) (*DefaultResourceService, error) {
	if repo == nil || logger == nil {
		return nil, fmt.Errorf("resource service initialization error: repository or logger is nil")
	}
	return &DefaultResourceService{Repo: repo, Now: time.Now, Logger: logger}, nil
}

func (s *DefaultResourceService) UpsertResource(ctx context.Context, r models.BookableResource) (*models.BookableResource, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	if err := s.Repo.UpsertResource(ctx, &r); err != nil {
		s.Logger.Error("Failed to save resource", zap.String("resourceID", r.ID), zap.Error(err))
		return nil, err
	}
	s.Logger.Info("Resource saved",
		zap.String("resourceID", r.ID),
		zap.String("kind", string(r.Kind)),
		zap.Int("capacity", r.EffectiveCapacity()),
		zap.Int64("version", r.Version))
	return &r, nil
}

func (s *DefaultResourceService) GetResource(ctx context.Context, id string) (*models.BookableResource, error) {
	if id == "" {
		return nil, models.NewValidationError("id", "is required")
	}
	return s.Repo.GetResource(ctx, id)
}

func (s *DefaultResourceService) ListResources(ctx context.Context) ([]models.BookableResource, error) {
	return s.Repo.ListResources(ctx)
}

// SeedResources stores configured resources that do not exist yet. Existing resources are
// left alone so administrator edits survive restarts.
func (s *DefaultResourceService) SeedResources(ctx context.Context, seeds []models.BookableResource) (int, error) {
	created := 0
	for _, seed := range seeds {
		_, err := s.Repo.GetResource(ctx, seed.ID)
		if err == nil {
			continue
		}
		if !models.IsNotFound(err) {
			return created, fmt.Errorf("failed to check resource %s: %w", seed.ID, err)
		}
		if _, err := s.UpsertResource(ctx, seed); err != nil {
			return created, fmt.Errorf("failed to seed resource %s: %w", seed.ID, err)
		}
		created++
	}
	if created > 0 {
		s.Logger.Info("Seeded resources", zap.Int("count", created))
	}
	return created, nil
}

func (s *DefaultResourceService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
