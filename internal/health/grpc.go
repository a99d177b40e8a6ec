// Package health отдает готовность моделей по стандартному протоколу grpc.health.v1.
package health

import (
	"net"
	"sync"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"traffic-predictor-go/pkg/models"
)

// GRPCServer gRPC сервер с сервисом Health
type GRPCServer struct {
	server *grpc.Server
	health *health.Server
	logger *logrus.Logger

	mu     sync.Mutex
	loaded map[models.ModelKind]bool
}

// NewGRPCServer создает сервер. Все перечисленные слоты стартуют в NOT_SERVING.
func NewGRPCServer(kinds []models.ModelKind, logger *logrus.Logger) *GRPCServer {
	s := &GRPCServer{
		server: grpc.NewServer(),
		health: health.NewServer(),
		logger: logger,
		loaded: make(map[models.ModelKind]bool, len(kinds)),
	}
	healthpb.RegisterHealthServer(s.server, s.health)

	for _, kind := range kinds {
		s.loaded[kind] = false
		s.health.SetServingStatus(string(kind), healthpb.HealthCheckResponse_NOT_SERVING)
	}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// SetModelStatus обновляет статус слота и общий статус сервера
func (s *GRPCServer) SetModelStatus(kind models.ModelKind, loaded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded[kind] = loaded
	s.health.SetServingStatus(string(kind), servingStatus(loaded))

	all := true
	for _, ok := range s.loaded {
		if !ok {
			all = false
			break
		}
	}
	s.health.SetServingStatus("", servingStatus(all))
}

// Serve обслуживает соединения до вызова Stop
func (s *GRPCServer) Serve(lis net.Listener) error {
	s.logger.Infof("gRPC health сервер запущен на %s", lis.Addr())
	return s.server.Serve(lis)
}

// Stop переводит все сервисы в NOT_SERVING и останавливает сервер
func (s *GRPCServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}

func servingStatus(ok bool) healthpb.HealthCheckResponse_ServingStatus {
	if ok {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
