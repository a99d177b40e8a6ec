package service

import (
	"traffic-predictor-go/internal/model"
	"traffic-predictor-go/pkg/models"
)

// Статусы результата прогноза
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrorKind категория ошибки прогноза, по ней слой представления выбирает ответ
type ErrorKind string

const (
	ErrorKindInput    ErrorKind = "input"    // пользователь прислал некорректные данные
	ErrorKindModel    ErrorKind = "model"    // модель недоступна или сломана
	ErrorKindInternal ErrorKind = "internal" // все остальное
)

// PredictionResult результат одного прогноза: успех или типизированная ошибка
type PredictionResult struct {
	ID          string            `json:"id"`
	Model       models.ModelKind  `json:"model"`
	Status      string            `json:"status"`
	ErrorKind   ErrorKind         `json:"error_kind,omitempty"`
	Message     string            `json:"message,omitempty"`
	Prediction  float64           `json:"prediction"`
	Probability *float64          `json:"probability,omitempty"`
	Label       *int              `json:"label,omitempty"`
	LabelText   string            `json:"label_text,omitempty"`
	Explanation []string          `json:"explanation,omitempty"`
	Form        map[string]string `json:"form"` // значения формы в том виде, в каком их прислали
}

// Success сообщает, завершился ли прогноз успешно
func (r *PredictionResult) Success() bool {
	return r.Status == StatusSuccess
}

// ListPredictionsResponse ответ со списком прогнозов
type ListPredictionsResponse struct {
	Predictions []*model.PredictionRecord `json:"predictions"`
	Total       int64                     `json:"total"`
	Page        int                       `json:"page"`
	Size        int                       `json:"size"`
}
