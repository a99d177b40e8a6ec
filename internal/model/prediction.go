package model

import (
	"time"

	"gorm.io/gorm"
)

// PredictionRecord запись истории прогнозов в базе данных
type PredictionRecord struct {
	ID          string   `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Model       string   `gorm:"type:varchar(32);not null;index" json:"model"`
	Status      string   `gorm:"type:varchar(16);not null" json:"status"`
	ErrorKind   string   `gorm:"type:varchar(16)" json:"error_kind,omitempty"`
	Message     string   `gorm:"type:text" json:"message,omitempty"`
	Prediction  float64  `gorm:"not null;default:0" json:"prediction"`
	Probability *float64 `json:"probability,omitempty"`
	Label       *int     `json:"label,omitempty"`

	// Пояснение хранится построчно через перевод строки
	Explanation string `gorm:"type:text" json:"explanation"`
	// Исходные значения формы в JSON
	FormData string `gorm:"type:text" json:"form_data"`

	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName указывает имя таблицы для PredictionRecord
func (PredictionRecord) TableName() string {
	return "predictions"
}
