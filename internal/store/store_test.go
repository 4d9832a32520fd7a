package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datallboy/modfetch/internal/domain"
	"github.com/datallboy/modfetch/internal/infra/config"
)

func testStore(t *testing.T) *PersistentStore {
	t.Helper()

	s, err := NewPersistentStore(config.StoreConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "data", "modfetch.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	started := time.Now().UTC().Truncate(time.Millisecond)
	run := &domain.Run{
		ID:          domain.NewID(),
		Manifest:    "Test List",
		Status:      domain.RunRunning,
		StartedAt:   started,
		Total:       3,
		Automatable: 2,
		Manual:      1,
	}
	require.NoError(t, s.CreateRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunRunning, got.Status)
	assert.Equal(t, started, got.StartedAt)
	assert.Nil(t, got.FinishedAt)
	assert.Empty(t, got.Results)

	finished := started.Add(time.Minute)
	run.Status = domain.RunCompleted
	run.FinishedAt = &finished
	run.Results = []domain.RunResult{
		{RequestID: "a", Name: "mod.7z", Source: domain.KindHTTP, Outcome: domain.OutcomeSuccess, Locator: "https://x/mod.7z", Path: "/dl/mod.7z", Size: 100, Attempts: 1},
		{RequestID: "b", Name: "Skyrim.esm", Source: domain.KindGameFile, Outcome: domain.OutcomeValidationFailed, Locator: "game:Skyrim/Data/Skyrim.esm", Attempts: 1, Check: "sha256", Message: "sha256 mismatch"},
		{RequestID: "c", Name: "patch.zip", Source: domain.KindManual, Outcome: domain.OutcomeManual, Locator: "manual", Message: "download it"},
	}
	run.Tally()
	require.NoError(t, s.FinishRun(ctx, run))

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, got.Status)
	require.NotNil(t, got.FinishedAt)
	assert.Equal(t, finished, *got.FinishedAt)
	assert.Equal(t, 1, got.Succeeded)
	assert.Equal(t, 1, got.Failed)
	assert.EqualValues(t, 100, got.Bytes)
	assert.Equal(t, run.Results, got.Results)

	// finishing twice replaces results
	run.Results = run.Results[:1]
	require.NoError(t, s.FinishRun(ctx, run))
	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, got.Results, 1)
}

func TestGetRun_NotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.FinishRun(context.Background(), &domain.Run{ID: "missing", StartedAt: time.Now()})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRuns(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := range 3 {
		require.NoError(t, s.CreateRun(ctx, &domain.Run{
			ID:        domain.NewID(),
			Manifest:  string(rune('a' + i)),
			Status:    domain.RunRunning,
			StartedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].Manifest)
	assert.Equal(t, "b", runs[1].Manifest)

	runs, err = s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestNewPersistentStore_UnknownDriver(t *testing.T) {
	_, err := NewPersistentStore(config.StoreConfig{Driver: "mongo"})
	assert.Error(t, err)
}
