package repository

import (
	"context"
	"errors"
	"fmt"

	"traffic-predictor-go/internal/model"

	"gorm.io/gorm"
)

var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")
	// ErrHistoryDisabled история прогнозов не настроена
	ErrHistoryDisabled = errors.New("prediction history is disabled")
)

// PredictionRepository интерфейс для работы с историей прогнозов
type PredictionRepository interface {
	Create(ctx context.Context, record *model.PredictionRecord) error
	GetByID(ctx context.Context, id string) (*model.PredictionRecord, error)
	List(ctx context.Context, page, pageSize int) ([]*model.PredictionRecord, int64, error)
}

// predictionRepository реализация PredictionRepository
type predictionRepository struct {
	db *gorm.DB
}

// NewPredictionRepository создает новый instance PredictionRepository
func NewPredictionRepository(db *gorm.DB) PredictionRepository {
	return &predictionRepository{
		db: db,
	}
}

// Create сохраняет прогноз в базе данных
func (r *predictionRepository) Create(ctx context.Context, record *model.PredictionRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create prediction: %w", err)
	}
	return nil
}

// GetByID получает прогноз по ID
func (r *predictionRepository) GetByID(ctx context.Context, id string) (*model.PredictionRecord, error) {
	var record model.PredictionRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("prediction with id %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	return &record, nil
}

// List получает список прогнозов с пагинацией
func (r *predictionRepository) List(ctx context.Context, page, pageSize int) ([]*model.PredictionRecord, int64, error) {
	var records []*model.PredictionRecord
	var total int64

	db := r.db.WithContext(ctx)

	// Подсчитываем общее количество
	if err := db.Model(&model.PredictionRecord{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count predictions: %w", err)
	}

	// Получаем прогнозы с пагинацией
	offset := (page - 1) * pageSize
	err := db.Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list predictions: %w", err)
	}

	return records, total, nil
}

// noopPredictionRepository используется, когда история отключена
type noopPredictionRepository struct{}

// NewNoopPredictionRepository создает репозиторий, который ничего не сохраняет
func NewNoopPredictionRepository() PredictionRepository {
	return noopPredictionRepository{}
}

func (noopPredictionRepository) Create(context.Context, *model.PredictionRecord) error {
	return nil
}

func (noopPredictionRepository) GetByID(context.Context, string) (*model.PredictionRecord, error) {
	return nil, ErrHistoryDisabled
}

func (noopPredictionRepository) List(context.Context, int, int) ([]*model.PredictionRecord, int64, error) {
	return nil, 0, ErrHistoryDisabled
}
