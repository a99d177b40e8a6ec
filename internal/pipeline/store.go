package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"traffic-predictor-go/pkg/models"
)

// Loader получает готовый пайплайн для слота
type Loader func(ctx context.Context) (Pipeline, error)

// SlotStatus состояние слота модели
type SlotStatus struct {
	Kind   models.ModelKind `json:"kind"`
	Name   string           `json:"name,omitempty"`
	Loaded bool             `json:"loaded"`
	Error  string           `json:"error,omitempty"`
}

type slot struct {
	mu       sync.Mutex
	loader   Loader
	pipeline Pipeline
	lastErr  error
}

// Store хранит пайплайны на время жизни процесса.
// Успешная загрузка кэшируется навсегда, неудачная повторяется при следующем обращении.
type Store struct {
	slots     map[models.ModelKind]*slot
	listeners []func(kind models.ModelKind, loaded bool)
	logger    *logrus.Logger
}

// NewStore создает пустое хранилище моделей
func NewStore(logger *logrus.Logger) *Store {
	return &Store{
		slots:  make(map[models.ModelKind]*slot),
		logger: logger,
	}
}

// Register задает загрузчик для слота. Вызывается до начала обслуживания запросов.
func (s *Store) Register(kind models.ModelKind, loader Loader) {
	s.slots[kind] = &slot{loader: loader}
}

// OnStatusChange подписывает функцию на результат каждой попытки загрузки
func (s *Store) OnStatusChange(fn func(kind models.ModelKind, loaded bool)) {
	s.listeners = append(s.listeners, fn)
}

// Warm загружает все зарегистрированные слоты
func (s *Store) Warm(ctx context.Context) error {
	var errs []error
	for _, kind := range s.kinds() {
		if _, err := s.Get(ctx, kind); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Get возвращает пайплайн слота, при необходимости загружая его
func (s *Store) Get(ctx context.Context, kind models.ModelKind) (Pipeline, error) {
	sl, ok := s.slots[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no model registered for %s", ErrModelUnavailable, kind)
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.pipeline != nil {
		return sl.pipeline, nil
	}

	s.logger.Infof("Загружаем модель %s", kind)
	p, err := sl.loader(ctx)
	if err != nil {
		sl.lastErr = err
		s.logger.WithError(err).Errorf("Не удалось загрузить модель %s", kind)
		s.notify(kind, false)
		return nil, fmt.Errorf("%w: %s: %v", ErrModelUnavailable, kind, err)
	}

	sl.pipeline = p
	sl.lastErr = nil
	s.logger.Infof("Модель %s загружена (%s, %s)", kind, p.Name(), p.Kind())
	s.notify(kind, true)
	return p, nil
}

// Status возвращает состояние всех слотов
func (s *Store) Status() []SlotStatus {
	statuses := make([]SlotStatus, 0, len(s.slots))
	for _, kind := range s.kinds() {
		sl := s.slots[kind]
		sl.mu.Lock()
		st := SlotStatus{Kind: kind, Loaded: sl.pipeline != nil}
		if sl.pipeline != nil {
			st.Name = sl.pipeline.Name()
		}
		if sl.lastErr != nil {
			st.Error = sl.lastErr.Error()
		}
		sl.mu.Unlock()
		statuses = append(statuses, st)
	}
	return statuses
}

func (s *Store) kinds() []models.ModelKind {
	kinds := make([]models.ModelKind, 0, len(s.slots))
	for kind := range s.slots {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (s *Store) notify(kind models.ModelKind, loaded bool) {
	for _, fn := range s.listeners {
		fn(kind, loaded)
	}
}

// FileLoader загрузчик артефакта с диска
func FileLoader(path string, kind Kind, columns []string) Loader {
	return func(_ context.Context) (Pipeline, error) {
		return LoadFile(path, kind, columns)
	}
}
