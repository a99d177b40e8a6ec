package pipeline

import (
	"context"
	"fmt"

	"traffic-predictor-go/pkg/models"
)

// InferenceClient внешний сервис, который держит сериализованные пайплайны
type InferenceClient interface {
	Predict(ctx context.Context, model string, row models.Row) (*models.InferenceResponse, error)
	CheckHealth(ctx context.Context) (*models.HealthResponse, error)
}

// RemotePipeline пайплайн, исполняемый внешним сервисом инференса
type RemotePipeline struct {
	client InferenceClient
	model  string
	kind   Kind
}

// NewRemotePipeline создает пайплайн поверх клиента инференса
func NewRemotePipeline(client InferenceClient, model string, kind Kind) *RemotePipeline {
	return &RemotePipeline{client: client, model: model, kind: kind}
}

func (p *RemotePipeline) Name() string { return p.model }

func (p *RemotePipeline) Kind() Kind { return p.kind }

func (p *RemotePipeline) Predict(ctx context.Context, row models.Row) (float64, error) {
	resp, err := p.infer(ctx, row)
	if err != nil {
		return 0, err
	}
	return resp.Prediction, nil
}

func (p *RemotePipeline) PredictProba(ctx context.Context, row models.Row) ([]float64, error) {
	if p.kind != KindClassifier {
		return nil, ErrNotClassifier
	}
	resp, err := p.infer(ctx, row)
	if err != nil {
		return nil, err
	}
	if len(resp.Probabilities) != 2 {
		return nil, fmt.Errorf("%w: expected 2 class probabilities, got %d", ErrInference, len(resp.Probabilities))
	}
	return resp.Probabilities, nil
}

func (p *RemotePipeline) infer(ctx context.Context, row models.Row) (*models.InferenceResponse, error) {
	resp, err := p.client.Predict(ctx, p.model, row)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("%w: %s", ErrInference, resp.Message)
	}
	return resp, nil
}

// RemoteLoader загрузчик, который проверяет готовность сервиса инференса
func RemoteLoader(client InferenceClient, model string, kind Kind) Loader {
	return func(ctx context.Context) (Pipeline, error) {
		health, err := client.CheckHealth(ctx)
		if err != nil {
			return nil, fmt.Errorf("inference service unavailable: %w", err)
		}
		if !health.ModelLoaded {
			return nil, fmt.Errorf("inference service has no models loaded (status %s)", health.Status)
		}
		return NewRemotePipeline(client, model, kind), nil
	}
}
