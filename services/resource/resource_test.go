package resource

import (
	"context"
	"testing"
	"time"

	"courtcal/database/repository/memory"
	"courtcal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) *DefaultResourceService {
	t.Helper()
	svc, err := NewDefaultResourceService(memory.NewStore(), zap.NewNop())
	require.NoError(t, err)
	svc.Now = func() time.Time { return time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC) }
	return svc
}

func courtroom(id string) models.BookableResource {
	return models.BookableResource{
		ID: id, Name: "Courtroom " + id, Kind: models.ResourceCourtroom, Capacity: 1, Active: true,
		OperatingHours: models.StandardWeek(8*60, 18*60),
	}
}

func TestUpsertResourceVersionsAndTimestamps(t *testing.T) {
	svc := newService(t)
	first, err := svc.UpsertResource(context.Background(), courtroom("4"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Version)
	assert.False(t, first.CreatedAt.IsZero())

	updated := courtroom("4")
	updated.Capacity = 3
	second, err := svc.UpsertResource(context.Background(), updated)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Version)

	got, err := svc.GetResource(context.Background(), "4")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Capacity)
}

func TestUpsertResourceValidates(t *testing.T) {
	svc := newService(t)
	bad := courtroom("4")
	bad.Name = ""
	bad.Rules.MinDurationMinutes = 120
	bad.Rules.MaxDurationMinutes = 60
	_, err := svc.UpsertResource(context.Background(), bad)
	require.True(t, models.IsValidation(err))

	_, err = svc.GetResource(context.Background(), "4")
	assert.True(t, models.IsNotFound(err))
	_, err = svc.GetResource(context.Background(), "")
	assert.True(t, models.IsValidation(err))
}

func TestSeedResourcesKeepsExisting(t *testing.T) {
	svc := newService(t)
	edited := courtroom("4")
	edited.Capacity = 5
	_, err := svc.UpsertResource(context.Background(), edited)
	require.NoError(t, err)

	n, err := svc.SeedResources(context.Background(), []models.BookableResource{courtroom("4"), courtroom("5")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := svc.ListResources(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 5, all[0].Capacity)
	assert.Equal(t, "5", all[1].ID)

	_, err = svc.SeedResources(context.Background(), []models.BookableResource{{ID: "bad"}})
	assert.Error(t, err)
}
