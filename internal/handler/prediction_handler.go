package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"traffic-predictor-go/internal/middleware"
	"traffic-predictor-go/internal/service"
)

// Predictor выполняет прогнозы по значениям формы
type Predictor interface {
	PredictDensity(ctx context.Context, form url.Values) *service.PredictionResult
	PredictIncident(ctx context.Context, form url.Values) *service.PredictionResult
	PredictLegacy(ctx context.Context, form url.Values) *service.PredictionResult
}

type predictFunc func(ctx context.Context, form url.Values) *service.PredictionResult

// PredictionHandler формы прогнозов
type PredictionHandler struct {
	predictor Predictor
	session   *Session
	logger    *logrus.Logger
}

// NewPredictionHandler создает новый экземпляр PredictionHandler
func NewPredictionHandler(predictor Predictor, session *Session, logger *logrus.Logger) *PredictionHandler {
	return &PredictionHandler{predictor: predictor, session: session, logger: logger}
}

// RegisterRoutes регистрирует маршруты форм прогноза
func (h *PredictionHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/predict/density", h.form("density.html", "Traffic Density"))
	router.POST("/predict/density", h.submit("density.html", "Traffic Density", h.predictor.PredictDensity))
	router.GET("/predict/incident", h.form("incident.html", "Incident Risk"))
	router.POST("/predict/incident", h.submit("incident.html", "Incident Risk", h.predictor.PredictIncident))

	legacy := router.Group("/predict")
	legacy.Use(middleware.LoginRequired(h.session.authn, h.session.tokens, h.logger))
	{
		legacy.GET("", h.form("predict.html", "Quick Predict"))
		legacy.POST("", h.submit("predict.html", "Quick Predict", h.predictor.PredictLegacy))
	}
}

// form пустая форма без прогноза
func (h *PredictionHandler) form(tmpl, title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, tmpl, h.session.page(c, title))
	}
}

// submit выполняет прогноз и рендерит результат или ошибку вместе с присланными значениями
func (h *PredictionHandler) submit(tmpl, title string, predict predictFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := c.Request.ParseForm(); err != nil {
			h.logger.WithError(err).Warn("Ошибка парсинга формы прогноза")
		}

		result := predict(c.Request.Context(), c.Request.PostForm)

		p := h.session.page(c, title)
		p.Form = result.Form
		p.Result = result
		c.HTML(StatusFor(result), tmpl, p)
	}
}

// StatusFor HTTP статус для результата прогноза
func StatusFor(result *service.PredictionResult) int {
	if result.Success() {
		return http.StatusOK
	}
	switch result.ErrorKind {
	case service.ErrorKindInput:
		return http.StatusBadRequest
	case service.ErrorKindModel:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
