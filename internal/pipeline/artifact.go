package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"traffic-predictor-go/pkg/models"
)

// Типы кодировщиков категориальных колонок
const (
	EncoderOneHot = "onehot"
	EncoderLabel  = "label"
)

// Artifact сериализованный линейный пайплайн: кодировщики, скейлер и оценщик
type Artifact struct {
	SchemaVersion string                 `json:"schema_version"`
	Name          string                 `json:"name"`
	Kind          Kind                   `json:"kind"`
	Columns       []string               `json:"columns"`
	Encoders      map[string]Encoder     `json:"encoders"`
	Scaler        map[string]ScaleParams `json:"scaler"`
	Weights       map[string]float64     `json:"weights"`
	Intercept     float64                `json:"intercept"`
	Threshold     float64                `json:"threshold,omitempty"`
}

// Encoder кодировщик категориальной колонки
type Encoder struct {
	Type       string   `json:"type"`
	Categories []string `json:"categories"`
}

// ScaleParams параметры стандартизации числовой колонки
type ScaleParams struct {
	Mean  float64 `json:"mean"`
	Scale float64 `json:"scale"`
}

// LinearPipeline пайплайн, восстановленный из Artifact
type LinearPipeline struct {
	artifact Artifact
	index    map[string]map[string]int // колонка -> категория -> позиция
}

// LoadFile читает артефакт с диска и проверяет его по схеме слота
func LoadFile(path string, kind Kind, columns []string) (*LinearPipeline, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer file.Close()

	p, err := Decode(file, kind, columns)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", path, err)
	}
	return p, nil
}

// Decode разбирает артефакт и проверяет контракт схемы
func Decode(r io.Reader, kind Kind, columns []string) (*LinearPipeline, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact: %w", err)
	}
	return New(a, kind, columns)
}

// New проверяет артефакт и строит по нему пайплайн
func New(a Artifact, kind Kind, columns []string) (*LinearPipeline, error) {
	if a.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: schema version %q, expected %q", ErrSchemaMismatch, a.SchemaVersion, SchemaVersion)
	}
	if a.Kind != kind {
		return nil, fmt.Errorf("%w: artifact is a %s, expected %s", ErrSchemaMismatch, a.Kind, kind)
	}
	if len(a.Columns) == 0 {
		return nil, fmt.Errorf("%w: artifact has no columns", ErrSchemaMismatch)
	}

	allowed := make(map[string]bool, len(columns))
	for _, c := range columns {
		allowed[c] = true
	}
	own := make(map[string]bool, len(a.Columns))
	for _, c := range a.Columns {
		if !allowed[c] {
			return nil, fmt.Errorf("%w: unexpected column %q", ErrSchemaMismatch, c)
		}
		own[c] = true
	}

	index := make(map[string]map[string]int, len(a.Encoders))
	for col, enc := range a.Encoders {
		if !own[col] {
			return nil, fmt.Errorf("%w: encoder for unknown column %q", ErrSchemaMismatch, col)
		}
		if enc.Type != EncoderOneHot && enc.Type != EncoderLabel {
			return nil, fmt.Errorf("%w: unsupported encoder %q for column %q", ErrSchemaMismatch, enc.Type, col)
		}
		if len(enc.Categories) == 0 {
			return nil, fmt.Errorf("%w: encoder for column %q has no categories", ErrSchemaMismatch, col)
		}
		index[col] = make(map[string]int, len(enc.Categories))
		for i, cat := range enc.Categories {
			index[col][cat] = i
		}
	}
	for col := range a.Scaler {
		if !own[col] {
			return nil, fmt.Errorf("%w: scaler for unknown column %q", ErrSchemaMismatch, col)
		}
	}

	if a.Kind == KindClassifier && a.Threshold == 0 {
		a.Threshold = 0.5
	}

	return &LinearPipeline{artifact: a, index: index}, nil
}

func (p *LinearPipeline) Name() string { return p.artifact.Name }

func (p *LinearPipeline) Kind() Kind { return p.artifact.Kind }

// Predict для регрессора возвращает значение, для классификатора метку 0/1
func (p *LinearPipeline) Predict(_ context.Context, row models.Row) (float64, error) {
	z, err := p.decision(row)
	if err != nil {
		return 0, err
	}
	if p.artifact.Kind == KindClassifier {
		if sigmoid(z) >= p.artifact.Threshold {
			return 1, nil
		}
		return 0, nil
	}
	return z, nil
}

// PredictProba возвращает [p0, p1] логистической модели
func (p *LinearPipeline) PredictProba(_ context.Context, row models.Row) ([]float64, error) {
	if p.artifact.Kind != KindClassifier {
		return nil, ErrNotClassifier
	}
	z, err := p.decision(row)
	if err != nil {
		return nil, err
	}
	p1 := sigmoid(z)
	return []float64{1 - p1, p1}, nil
}

// decision линейная комбинация закодированных и стандартизованных признаков
func (p *LinearPipeline) decision(row models.Row) (float64, error) {
	a := p.artifact
	z := a.Intercept

	for _, col := range a.Columns {
		value, ok := row[col]
		if !ok {
			return 0, fmt.Errorf("%w: column %q missing from record", ErrSchemaMismatch, col)
		}

		enc, categorical := a.Encoders[col]
		if !categorical {
			x, err := toFloat(value)
			if err != nil {
				return 0, fmt.Errorf("column %q: %w", col, err)
			}
			z += a.Weights[col] * p.scale(col, x)
			continue
		}

		category := fmt.Sprint(value)
		pos, known := p.index[col][category]
		switch enc.Type {
		case EncoderOneHot:
			// неизвестная категория кодируется нулями
			if known {
				z += a.Weights[col+"="+category]
			}
		case EncoderLabel:
			if !known {
				return 0, fmt.Errorf("%w: %q in column %q", ErrUnknownCategory, category, col)
			}
			z += a.Weights[col] * p.scale(col, float64(pos))
		}
	}

	return z, nil
}

func (p *LinearPipeline) scale(col string, x float64) float64 {
	params, ok := p.artifact.Scaler[col]
	if !ok {
		return x
	}
	scale := params.Scale
	if scale == 0 {
		scale = 1
	}
	return (x - params.Mean) / scale
}

func toFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseFloat(v, 64)
	}
	return 0, fmt.Errorf("unsupported value type %T", value)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
