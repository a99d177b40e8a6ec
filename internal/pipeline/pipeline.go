// Package pipeline загружает обученные пайплайны и хранит их на время жизни процесса.
package pipeline

import (
	"context"
	"errors"

	"traffic-predictor-go/pkg/models"
)

// SchemaVersion текущая версия контракта между артефактом модели и записью признаков
const SchemaVersion = "1"

// Kind тип оценщика внутри пайплайна
type Kind string

const (
	KindRegressor  Kind = "regressor"
	KindClassifier Kind = "classifier"
)

var (
	// ErrSchemaMismatch артефакт не соответствует ожидаемой схеме записи
	ErrSchemaMismatch = errors.New("model schema mismatch")
	// ErrUnknownCategory значение категории не встречалось при обучении
	ErrUnknownCategory = errors.New("unknown category")
	// ErrModelUnavailable пайплайн не удалось загрузить
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrNotClassifier predict_proba вызван у регрессора
	ErrNotClassifier = errors.New("pipeline is not a classifier")
	// ErrInference внешний сервис инференса вернул ошибку
	ErrInference = errors.New("inference failed")
)

// Pipeline непрозрачный обученный пайплайн: запись признаков -> прогноз
type Pipeline interface {
	Name() string
	Kind() Kind
	// Predict возвращает значение регрессии или метку класса
	Predict(ctx context.Context, row models.Row) (float64, error)
	// PredictProba возвращает вероятности классов [p0, p1]
	PredictProba(ctx context.Context, row models.Row) ([]float64, error)
}
