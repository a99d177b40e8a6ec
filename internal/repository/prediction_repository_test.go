package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"traffic-predictor-go/internal/config"
	"traffic-predictor-go/internal/database"
	"traffic-predictor-go/internal/model"
)

func newSQLiteHistory(t *testing.T) PredictionRepository {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "history.db")

	// драйвер modernc "sqlite" уже зарегистрирован training_recorder.go
	db, err := database.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), config.DatabaseConfig{MaxOpenConns: 1})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewPredictionRepository(db)
}

func TestPredictionRepositoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteHistory(t)

	p := 0.82
	label := 1
	record := &model.PredictionRecord{
		ID:          uuid.NewString(),
		Model:       "incident",
		Status:      "success",
		Prediction:  1,
		Probability: &p,
		Label:       &label,
		Explanation: "Incident probability: 82.00% (Likely)\nLate-night hours",
		FormData:    `{"Speed":"120"}`,
	}
	require.NoError(t, repo.Create(ctx, record))
	assert.False(t, record.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "incident", got.Model)
	require.NotNil(t, got.Probability)
	assert.InDelta(t, 0.82, *got.Probability, 1e-9)
	require.NotNil(t, got.Label)
	assert.Equal(t, 1, *got.Label)
	assert.Equal(t, record.Explanation, got.Explanation)
	assert.Equal(t, `{"Speed":"120"}`, got.FormData)
}

func TestPredictionRepositoryGetUnknown(t *testing.T) {
	repo := newSQLiteHistory(t)

	_, err := repo.GetByID(context.Background(), "missing-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPredictionRepositoryListPaging(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteHistory(t)

	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	ids := make([]string, 3)
	for i := range ids {
		ids[i] = uuid.NewString()
		require.NoError(t, repo.Create(ctx, &model.PredictionRecord{
			ID:        ids[i],
			Model:     "density",
			Status:    "success",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	first, total, err := repo.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, first, 2)
	assert.Equal(t, ids[2], first[0].ID)
	assert.Equal(t, ids[1], first[1].ID)

	second, total, err := repo.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, second, 1)
	assert.Equal(t, ids[0], second[0].ID)
}
