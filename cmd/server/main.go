package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"traffic-predictor-go/internal/auth"
	"traffic-predictor-go/internal/client"
	"traffic-predictor-go/internal/config"
	"traffic-predictor-go/internal/database"
	"traffic-predictor-go/internal/handler"
	"traffic-predictor-go/internal/health"
	"traffic-predictor-go/internal/middleware"
	"traffic-predictor-go/internal/pipeline"
	"traffic-predictor-go/internal/repository"
	"traffic-predictor-go/internal/service"
	"traffic-predictor-go/internal/web"
	"traffic-predictor-go/pkg/models"
)

func main() {
	// Инициализируем логгер
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.LoadConfig()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logger.Warnf("Неизвестный уровень логирования %q, используется info", cfg.Logging.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Некорректная конфигурация: %v", err)
	}

	logger.Info("Запуск Traffic Predictor")

	ctx := context.Background()
	kinds := []models.ModelKind{models.KindDensity, models.KindIncident, models.KindLegacy}

	// Модели
	store := pipeline.NewStore(logger)
	var inference handler.InferenceHealth

	switch cfg.Models.Backend {
	case config.BackendRemote:
		apiClient := client.NewInferenceAPIClient(cfg.InferenceAPI.BaseURL, cfg.InferenceTimeout(), logger)
		inference = apiClient
		store.Register(models.KindDensity, pipeline.RemoteLoader(apiClient, string(models.KindDensity), pipeline.KindRegressor))
		store.Register(models.KindIncident, pipeline.RemoteLoader(apiClient, string(models.KindIncident), pipeline.KindClassifier))
		store.Register(models.KindLegacy, pipeline.RemoteLoader(apiClient, string(models.KindLegacy), pipeline.KindRegressor))
		logger.Infof("Модели обслуживает сервис инференса %s", cfg.InferenceAPI.BaseURL)
	case config.BackendFile:
		store.Register(models.KindDensity, pipeline.FileLoader(cfg.ModelPath(cfg.Models.DensityFile), pipeline.KindRegressor, models.DensityColumns))
		store.Register(models.KindIncident, pipeline.FileLoader(cfg.ModelPath(cfg.Models.IncidentFile), pipeline.KindClassifier, models.IncidentColumns))
		store.Register(models.KindLegacy, pipeline.FileLoader(cfg.ModelPath(cfg.Models.LegacyFile), pipeline.KindRegressor, models.DensityColumns))
		logger.Infof("Модели загружаются из каталога %s", cfg.Models.Dir)
	default:
		logger.Fatalf("Неизвестный бэкенд моделей: %s", cfg.Models.Backend)
	}

	grpcServer := health.NewGRPCServer(kinds, logger)
	store.OnStatusChange(grpcServer.SetModelStatus)

	if err := store.Warm(ctx); err != nil {
		logger.WithError(err).Warn("Не все модели загружены при старте, загрузка повторится при первом запросе")
	}

	// История прогнозов
	history := repository.NewNoopPredictionRepository()
	if cfg.Database.Enabled {
		logger.Info("Подключение к базе данных...")
		if err := database.Connect(cfg.Database, logger); err != nil {
			logger.Fatalf("Ошибка подключения к базе данных: %v", err)
		}
		if err := database.Migrate(); err != nil {
			logger.Fatalf("Ошибка выполнения миграций: %v", err)
		}
		if err := database.HealthCheck(); err != nil {
			logger.Fatalf("База данных недоступна: %v", err)
		}
		history = repository.NewPredictionRepository(database.DB)
		logger.Info("История прогнозов включена")
	}

	// Выборка для дообучения
	var recorder repository.TrainingRecorder = repository.NoopTrainingRecorder{}
	var sqlRecorder *repository.SQLTrainingRecorder
	if cfg.Training.Enabled {
		sqlRecorder, err = repository.OpenTrainingRecorder(ctx, cfg.Training.Driver, cfg.Training.DSN)
		if err != nil {
			logger.Fatalf("Ошибка подключения к базе выборки: %v", err)
		}
		recorder = sqlRecorder
		logger.Infof("Сохранение выборки для дообучения включено (%s)", cfg.Training.Driver)
	}

	// Авторизация
	authn := auth.NewAuthenticator(cfg.Auth.Username, cfg.Auth.PasswordHash)
	if !authn.Enabled() {
		logger.Warn("AUTH_PASSWORD_HASH не задан: вход отключен, /predict открыт для всех")
	}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.SessionTTL())

	predictionService := service.NewPredictionService(store, history, recorder, logger)

	// Настраиваем Gin router
	production := cfg.Server.Environment == "production"
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Logger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	tmpl, err := web.Templates()
	if err != nil {
		logger.Fatalf("Ошибка загрузки шаблонов: %v", err)
	}
	router.SetHTMLTemplate(tmpl)
	router.StaticFS("/static", web.Static())

	session := handler.NewSession(authn, tokens, production)
	handler.NewPageHandler(session, logger).RegisterRoutes(router)
	handler.NewPredictionHandler(predictionService, session, logger).RegisterRoutes(router)
	handler.NewAPIHandler(predictionService, predictionService, store, inference, logger).RegisterRoutes(router)

	// Запускаем серверы
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Infof("HTTP сервер запущен на %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Ошибка запуска сервера: %v", err)
		}
	}()

	if cfg.GRPC.HealthPort > 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.GRPC.HealthPort))
		if err != nil {
			logger.Fatalf("Ошибка открытия порта gRPC health: %v", err)
		}
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				logger.Errorf("gRPC health сервер остановлен с ошибкой: %v", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Остановка сервера...")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Ошибка остановки HTTP сервера: %v", err)
	}
	grpcServer.Stop()

	if sqlRecorder != nil {
		if err := sqlRecorder.Close(); err != nil {
			logger.Errorf("Ошибка закрытия базы выборки: %v", err)
		}
	}
	if err := database.Close(); err != nil {
		logger.Errorf("Ошибка закрытия базы данных: %v", err)
	}

	logger.Info("Сервер остановлен")
}
