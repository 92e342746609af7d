package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/accident-dashboard/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) (*Repository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "accidents.db")
	repo, err := NewRepository(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo, path
}

func sampleRecords() []domain.Record {
	return []domain.Record{
		{
			Row: 2, IncidentDatetime: "2019-01-01 08:30:00", VehicleType: "car",
			Province: "กรุงเทพมหานคร", ProvinceEN: "Bangkok", Route: "Rama IV",
			WeatherCondition: "clear", AccidentType: "rear-end", PresumedCause: "speeding",
			Injuries: 2, Fatalities: 0, VehiclesInvolved: 2, Latitude: 13.72, Longitude: 100.52,
		},
		{
			Row: 3, IncidentDatetime: "bad", VehicleType: "bus", Province: "ภูเก็ต",
			WeatherCondition: "fog", AccidentType: "head-on", PresumedCause: "sleepy",
			Injuries: 12, Fatalities: 2, VehiclesInvolved: 2,
		},
	}
}

func TestRepository_EmptyDatabase(t *testing.T) {
	repo, _ := newTestRepository(t)

	records, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRepository_RoundTrip(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	want := sampleRecords()
	require.NoError(t, repo.ReplaceAll(ctx, want))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestRepository_ReplaceAllReplaces(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.ReplaceAll(ctx, sampleRecords()))
	require.NoError(t, repo.ReplaceAll(ctx, sampleRecords()[:1]))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "car", got[0].VehicleType)
}

func TestRepository_ReplaceAllRollsBack(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.ReplaceAll(ctx, sampleRecords()))

	bad := sampleRecords()
	bad[1].Injuries = -1
	err := repo.ReplaceAll(ctx, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert row 3")

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2, "failed replace must leave previous contents")
}

func TestRepository_ReopenKeepsData(t *testing.T) {
	repo, path := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.ReplaceAll(ctx, sampleRecords()))
	require.NoError(t, repo.Close())

	reopened, err := NewRepository(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer reopened.Close() //nolint:errcheck // test

	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
