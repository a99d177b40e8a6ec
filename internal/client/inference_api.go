package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"traffic-predictor-go/pkg/models"
)

// InferenceAPIClient клиент для Python сервиса, который исполняет сериализованные пайплайны
type InferenceAPIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewInferenceAPIClient создает новый клиент для сервиса инференса
func NewInferenceAPIClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *InferenceAPIClient {
	return &InferenceAPIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Predict отправляет одну строку признаков на инференс модели
func (c *InferenceAPIClient) Predict(ctx context.Context, model string, row models.Row) (*models.InferenceResponse, error) {
	body, err := json.Marshal(models.InferenceRequest{Records: []models.Row{row}})
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	endpoint := fmt.Sprintf("%s/predict/%s", c.baseURL, url.PathEscape(model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debugf("Отправка POST запроса на %s", endpoint)

	var apiResponse models.InferenceResponse
	if err := c.do(req, &apiResponse); err != nil {
		return nil, err
	}

	c.logger.Debugf("Получен ответ от сервиса инференса для модели %s: %s", model, apiResponse.Status)
	return &apiResponse, nil
}

// CheckHealth проверяет состояние сервиса инференса
func (c *InferenceAPIClient) CheckHealth(ctx context.Context) (*models.HealthResponse, error) {
	c.logger.Debug("Проверка здоровья сервиса инференса")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}

	var healthResponse models.HealthResponse
	if err := c.do(req, &healthResponse); err != nil {
		return nil, err
	}
	return &healthResponse, nil
}

func (c *InferenceAPIClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка отправки HTTP запроса: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("сервис инференса вернул ошибку: статус %d, тело: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("ошибка парсинга JSON ответа: %w", err)
	}
	return nil
}
