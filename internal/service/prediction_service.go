package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"traffic-predictor-go/internal/explain"
	"traffic-predictor-go/internal/features"
	"traffic-predictor-go/internal/model"
	"traffic-predictor-go/internal/pipeline"
	"traffic-predictor-go/internal/repository"
	"traffic-predictor-go/pkg/models"
)

// ModelProvider выдает загруженные пайплайны
type ModelProvider interface {
	Get(ctx context.Context, kind models.ModelKind) (pipeline.Pipeline, error)
}

// PredictionService сервис прогнозов: форма -> запись признаков -> пайплайн -> пояснение
type PredictionService struct {
	models   ModelProvider
	history  repository.PredictionRepository
	recorder repository.TrainingRecorder
	logger   *logrus.Logger
}

// NewPredictionService создает новый сервис прогнозов
func NewPredictionService(
	models ModelProvider,
	history repository.PredictionRepository,
	recorder repository.TrainingRecorder,
	logger *logrus.Logger,
) *PredictionService {
	return &PredictionService{
		models:   models,
		history:  history,
		recorder: recorder,
		logger:   logger,
	}
}

// PredictDensity прогноз плотности трафика с пояснением
func (s *PredictionService) PredictDensity(ctx context.Context, form url.Values) *PredictionResult {
	result := newResult(models.KindDensity, form)

	f, err := features.BuildDensity(form)
	if err != nil {
		return s.fail(ctx, result, err)
	}
	row := f.Row()

	p, err := s.models.Get(ctx, models.KindDensity)
	if err != nil {
		return s.fail(ctx, result, err)
	}

	value, err := p.Predict(ctx, row)
	if err == nil {
		err = checkFinite(value)
	}
	if err != nil {
		return s.fail(ctx, result, err)
	}

	result.Prediction = value
	result.Explanation = explain.Density(f, value)
	return s.succeed(ctx, result, row)
}

// PredictIncident прогноз вероятности инцидента с пояснением
func (s *PredictionService) PredictIncident(ctx context.Context, form url.Values) *PredictionResult {
	result := newResult(models.KindIncident, form)

	f, err := features.BuildIncident(form)
	if err != nil {
		return s.fail(ctx, result, err)
	}
	row := f.Row()

	p, err := s.models.Get(ctx, models.KindIncident)
	if err != nil {
		return s.fail(ctx, result, err)
	}

	proba, err := p.PredictProba(ctx, row)
	if err != nil {
		return s.fail(ctx, result, err)
	}
	if len(proba) != 2 {
		return s.fail(ctx, result, fmt.Errorf("%w: expected 2 class probabilities, got %d", pipeline.ErrInference, len(proba)))
	}

	probability := proba[1]
	if err := checkFinite(probability); err != nil {
		return s.fail(ctx, result, err)
	}
	label := explain.IncidentLabel(probability)

	result.Prediction = float64(label)
	result.Probability = &probability
	result.Label = &label
	result.LabelText = explain.LabelText(label)
	result.Explanation = explain.Incident(f, probability, label)
	return s.succeed(ctx, result, row)
}

// PredictLegacy прогноз единственной моделью первой версии, без пояснений
func (s *PredictionService) PredictLegacy(ctx context.Context, form url.Values) *PredictionResult {
	result := newResult(models.KindLegacy, form)

	f, err := features.BuildDensity(form)
	if err != nil {
		return s.fail(ctx, result, err)
	}
	row := f.Row()

	p, err := s.models.Get(ctx, models.KindLegacy)
	if err != nil {
		return s.fail(ctx, result, err)
	}

	value, err := p.Predict(ctx, row)
	if err == nil {
		err = checkFinite(value)
	}
	if err != nil {
		return s.fail(ctx, result, err)
	}

	result.Prediction = value
	return s.succeed(ctx, result, row)
}

// ListPredictions возвращает историю прогнозов с пагинацией
func (s *PredictionService) ListPredictions(ctx context.Context, page, size int) (*ListPredictionsResponse, error) {
	records, total, err := s.history.List(ctx, page, size)
	if err != nil {
		return nil, err
	}
	return &ListPredictionsResponse{Predictions: records, Total: total, Page: page, Size: size}, nil
}

// GetPrediction возвращает прогноз из истории по ID
func (s *PredictionService) GetPrediction(ctx context.Context, id string) (*model.PredictionRecord, error) {
	return s.history.GetByID(ctx, id)
}

// ClassifyError относит ошибку прогноза к одной из категорий
func ClassifyError(err error) ErrorKind {
	var fieldErr *features.FieldError
	switch {
	case errors.As(err, &fieldErr), errors.Is(err, pipeline.ErrUnknownCategory):
		return ErrorKindInput
	case errors.Is(err, pipeline.ErrModelUnavailable),
		errors.Is(err, pipeline.ErrSchemaMismatch),
		errors.Is(err, pipeline.ErrInference):
		return ErrorKindModel
	}
	return ErrorKindInternal
}

// checkFinite отбрасывает NaN и бесконечности, которые нельзя показать или сериализовать в JSON
func checkFinite(x float64) error {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return fmt.Errorf("%w: model returned non-finite value %v", pipeline.ErrInference, x)
	}
	return nil
}

func newResult(kind models.ModelKind, form url.Values) *PredictionResult {
	raw := make(map[string]string, len(form))
	for key := range form {
		raw[key] = form.Get(key)
	}
	return &PredictionResult{
		ID:    uuid.NewString(),
		Model: kind,
		Form:  raw,
	}
}

func (s *PredictionService) fail(ctx context.Context, result *PredictionResult, err error) *PredictionResult {
	result.Status = StatusError
	result.ErrorKind = ClassifyError(err)
	result.Message = err.Error()

	entry := s.logger.WithFields(logrus.Fields{
		"prediction_id": result.ID,
		"model":         result.Model,
		"error_kind":    result.ErrorKind,
	}).WithError(err)
	if result.ErrorKind == ErrorKindInput {
		entry.Warn("Некорректные данные формы прогноза")
	} else {
		entry.Error("Ошибка прогноза")
	}

	s.saveHistory(ctx, result)
	return result
}

func (s *PredictionService) succeed(ctx context.Context, result *PredictionResult, row models.Row) *PredictionResult {
	result.Status = StatusSuccess

	s.logger.WithFields(logrus.Fields{
		"prediction_id": result.ID,
		"model":         result.Model,
		"prediction":    result.Prediction,
	}).Info("Прогноз выполнен")

	s.saveHistory(ctx, result)
	s.recordSample(ctx, result, row)
	return result
}

// saveHistory сохраняет результат в истории; ошибки только логируются
func (s *PredictionService) saveHistory(ctx context.Context, result *PredictionResult) {
	formData, err := json.Marshal(result.Form)
	if err != nil {
		s.logger.WithError(err).Warn("Не удалось сериализовать форму для истории")
		formData = []byte("{}")
	}

	record := &model.PredictionRecord{
		ID:          result.ID,
		Model:       string(result.Model),
		Status:      result.Status,
		ErrorKind:   string(result.ErrorKind),
		Message:     result.Message,
		Prediction:  result.Prediction,
		Probability: result.Probability,
		Label:       result.Label,
		Explanation: strings.Join(result.Explanation, "\n"),
		FormData:    string(formData),
	}
	if err := s.history.Create(ctx, record); err != nil {
		s.logger.WithError(err).Errorf("Не удалось сохранить прогноз %s в истории", result.ID)
	}
}

// recordSample сохраняет строку признаков для дообучения
func (s *PredictionService) recordSample(ctx context.Context, result *PredictionResult, row models.Row) {
	encoded, err := json.Marshal(row)
	if err != nil {
		s.logger.WithError(err).Warn("Не удалось сериализовать строку признаков")
		return
	}

	sample := repository.TrainingSample{
		ID:          result.ID,
		Model:       string(result.Model),
		Features:    string(encoded),
		Prediction:  result.Prediction,
		Probability: result.Probability,
		RecordedAt:  time.Now().UTC(),
	}
	if err := s.recorder.Record(ctx, sample); err != nil {
		s.logger.WithError(err).Errorf("Не удалось сохранить выборку для прогноза %s", result.ID)
	}
}
