package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"traffic-predictor-go/internal/config"
	"traffic-predictor-go/internal/model"
)

// DB подключение к базе истории прогнозов, nil пока история отключена
var DB *gorm.DB

// Open открывает gorm поверх диалекта и применяет настройки пула из конфигурации
func Open(dialector gorm.Dialector, cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger()})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

// AutoMigrate создает таблицу истории прогнозов
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.PredictionRecord{}); err != nil {
		return fmt.Errorf("failed to migrate predictions table: %w", err)
	}
	return nil
}

// Connect подключается к PostgreSQL истории прогнозов
func Connect(cfg config.DatabaseConfig, appLogger *logrus.Logger) error {
	db, err := Open(postgres.Open(cfg.DSN()), cfg)
	if err != nil {
		return err
	}
	DB = db

	appLogger.WithFields(logrus.Fields{
		"host":           cfg.Host,
		"database":       cfg.Database,
		"max_open_conns": cfg.MaxOpenConns,
	}).Info("История прогнозов подключена к PostgreSQL")
	return nil
}

// Migrate выполняет миграции для глобального подключения
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("history database is not connected")
	}
	return AutoMigrate(DB)
}

// Close закрывает соединение с базой данных
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HealthCheck пингует базу истории
func HealthCheck() error {
	if DB == nil {
		return fmt.Errorf("history database is not connected")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// newGormLogger логгер GORM: ошибки запросов и так возвращаются вызывающему коду
func newGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
