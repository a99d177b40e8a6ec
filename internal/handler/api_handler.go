package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"traffic-predictor-go/internal/model"
	"traffic-predictor-go/internal/pipeline"
	"traffic-predictor-go/internal/repository"
	"traffic-predictor-go/internal/service"
	"traffic-predictor-go/pkg/models"
)

// History история прогнозов
type History interface {
	ListPredictions(ctx context.Context, page, size int) (*service.ListPredictionsResponse, error)
	GetPrediction(ctx context.Context, id string) (*model.PredictionRecord, error)
}

// ModelStatus состояние слотов моделей
type ModelStatus interface {
	Status() []pipeline.SlotStatus
}

// InferenceHealth проверка внешнего сервиса инференса
type InferenceHealth interface {
	CheckHealth(ctx context.Context) (*models.HealthResponse, error)
}

// APIHandler JSON API
type APIHandler struct {
	predictor Predictor
	history   History
	models    ModelStatus
	inference InferenceHealth // nil для файлового бэкенда
	logger    *logrus.Logger
}

// NewAPIHandler создает новый экземпляр APIHandler
func NewAPIHandler(predictor Predictor, history History, models ModelStatus, inference InferenceHealth, logger *logrus.Logger) *APIHandler {
	return &APIHandler{
		predictor: predictor,
		history:   history,
		models:    models,
		inference: inference,
		logger:    logger,
	}
}

// RegisterRoutes регистрирует маршруты API
func (h *APIHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.GET("/health", h.CheckHealth)
		api.POST("/predict/density", h.predict(h.predictor.PredictDensity))
		api.POST("/predict/incident", h.predict(h.predictor.PredictIncident))
		api.GET("/predictions", h.ListPredictions)
		api.GET("/predictions/:id", h.GetPrediction)
	}
}

// CheckHealth проверяет состояние моделей и сервиса инференса
func (h *APIHandler) CheckHealth(c *gin.Context) {
	statuses := h.models.Status()
	healthy := true
	for _, s := range statuses {
		if !s.Loaded {
			healthy = false
		}
	}

	body := gin.H{"models": statuses}

	if h.inference != nil {
		resp, err := h.inference.CheckHealth(c.Request.Context())
		if err != nil {
			h.logger.WithError(err).Error("Сервис инференса недоступен")
			healthy = false
			body["inference"] = gin.H{"status": "unavailable", "error": err.Error()}
		} else {
			body["inference"] = resp
		}
	}

	if !healthy {
		body["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}

	body["status"] = "healthy"
	c.JSON(http.StatusOK, body)
}

// predict JSON вариант формы: объект строк с теми же именами полей
func (h *APIHandler) predict(fn predictFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var fields map[string]string
		if err := c.ShouldBindJSON(&fields); err != nil {
			h.logger.WithError(err).Warn("Ошибка парсинга JSON запроса прогноза")
			c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON object of strings"})
			return
		}

		form := make(url.Values, len(fields))
		for key, value := range fields {
			form.Set(key, value)
		}

		result := fn(c.Request.Context(), form)
		c.JSON(StatusFor(result), result)
	}
}

// ListPredictions возвращает историю прогнозов с пагинацией
func (h *APIHandler) ListPredictions(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	size, err := strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil || size < 1 || size > 100 {
		size = 10
	}

	response, err := h.history.ListPredictions(c.Request.Context(), page, size)
	if err != nil {
		h.historyError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetPrediction возвращает прогноз по ID
func (h *APIHandler) GetPrediction(c *gin.Context) {
	record, err := h.history.GetPrediction(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.historyError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *APIHandler) historyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrHistoryDisabled):
		c.JSON(http.StatusNotFound, gin.H{"error": "prediction history is disabled"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "prediction not found"})
	default:
		h.logger.WithError(err).Error("Ошибка чтения истории прогнозов")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read prediction history"})
	}
}
