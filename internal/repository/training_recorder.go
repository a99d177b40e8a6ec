package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// TrainingSample строка признаков с полученным прогнозом для последующего дообучения
type TrainingSample struct {
	ID          string    `db:"id"`
	Model       string    `db:"model"`
	Features    string    `db:"features"` // JSON строки признаков
	Prediction  float64   `db:"prediction"`
	Probability *float64  `db:"probability"`
	RecordedAt  time.Time `db:"recorded_at"`
}

// TrainingRecorder сохраняет выборку для дообучения моделей
type TrainingRecorder interface {
	Record(ctx context.Context, sample TrainingSample) error
}

// SQLTrainingRecorder пишет выборку в таблицу training_samples (postgres или sqlite)
type SQLTrainingRecorder struct {
	db *sqlx.DB
}

const trainingSchema = `
	CREATE TABLE IF NOT EXISTS training_samples (
		id          VARCHAR(36) PRIMARY KEY,
		model       VARCHAR(32) NOT NULL,
		features    TEXT NOT NULL,
		prediction  DOUBLE PRECISION NOT NULL,
		probability DOUBLE PRECISION,
		recorded_at TIMESTAMP NOT NULL
	)`

// OpenTrainingRecorder подключается к базе и создает таблицу при необходимости
func OpenTrainingRecorder(ctx context.Context, driver, dsn string) (*SQLTrainingRecorder, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to training database: %w", err)
	}

	recorder := NewSQLTrainingRecorder(db)
	if err := recorder.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return recorder, nil
}

// NewSQLTrainingRecorder создает рекордер поверх готового подключения
func NewSQLTrainingRecorder(db *sqlx.DB) *SQLTrainingRecorder {
	return &SQLTrainingRecorder{db: db}
}

// EnsureSchema создает таблицу training_samples
func (r *SQLTrainingRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, trainingSchema); err != nil {
		return fmt.Errorf("failed to create training_samples table: %w", err)
	}
	return nil
}

// Record добавляет строку выборки
func (r *SQLTrainingRecorder) Record(ctx context.Context, sample TrainingSample) error {
	const query = `
		INSERT INTO training_samples (id, model, features, prediction, probability, recorded_at)
		VALUES (:id, :model, :features, :prediction, :probability, :recorded_at)`

	if _, err := r.db.NamedExecContext(ctx, query, sample); err != nil {
		return fmt.Errorf("failed to record training sample: %w", err)
	}
	return nil
}

// Close закрывает подключение
func (r *SQLTrainingRecorder) Close() error {
	return r.db.Close()
}

// NoopTrainingRecorder используется, когда сохранение выборки отключено
type NoopTrainingRecorder struct{}

func (NoopTrainingRecorder) Record(context.Context, TrainingSample) error {
	return nil
}
