package models

// InferenceRequest тело запроса к внешнему сервису инференса
type InferenceRequest struct {
	Records []Row `json:"records"` // Строки признаков (сейчас всегда одна)
}

// InferenceResponse определяет структуру ответа от Python сервиса инференса
type InferenceResponse struct {
	Status        string    `json:"status"`                  // Статус выполнения (success/error)
	Message       string    `json:"message"`                 // Сообщение
	Prediction    float64   `json:"prediction"`              // Результат predict
	Probabilities []float64 `json:"probabilities,omitempty"` // Результат predict_proba, только для классификатора
}

// HealthResponse представляет ответ проверки здоровья сервиса
type HealthResponse struct {
	Status      string `json:"status"`       // Статус сервиса (healthy/unhealthy)
	ModelLoaded bool   `json:"model_loaded"` // Загружены ли модели
	Version     string `json:"version"`      // Версия сервиса
}
