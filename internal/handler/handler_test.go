package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"traffic-predictor-go/internal/auth"
	"traffic-predictor-go/internal/middleware"
	"traffic-predictor-go/internal/pipeline"
	"traffic-predictor-go/internal/repository"
	"traffic-predictor-go/internal/service"
	"traffic-predictor-go/internal/web"
	"traffic-predictor-go/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubClassifier struct {
	probability float64
}

func (s *stubClassifier) Name() string        { return "stub_incident" }
func (s *stubClassifier) Kind() pipeline.Kind { return pipeline.KindClassifier }

func (s *stubClassifier) Predict(context.Context, models.Row) (float64, error) {
	if s.probability >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

func (s *stubClassifier) PredictProba(context.Context, models.Row) ([]float64, error) {
	return []float64{1 - s.probability, s.probability}, nil
}

type testEnv struct {
	router *gin.Engine
	tokens *auth.TokenManager
}

type envOptions struct {
	incident pipeline.Loader
	password string
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	logger, _ := test.NewNullLogger()

	if opts.incident == nil {
		opts.incident = func(context.Context) (pipeline.Pipeline, error) {
			return &stubClassifier{probability: 0.82}, nil
		}
	}

	store := pipeline.NewStore(logger)
	store.Register(models.KindDensity, pipeline.FileLoader("../../models/traffic_density_pipeline.json", pipeline.KindRegressor, models.DensityColumns))
	store.Register(models.KindIncident, opts.incident)
	store.Register(models.KindLegacy, pipeline.FileLoader("../../models/traffic_model.json", pipeline.KindRegressor, models.DensityColumns))

	svc := service.NewPredictionService(store, repository.NewNoopPredictionRepository(), repository.NoopTrainingRecorder{}, logger)

	hash := ""
	if opts.password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(opts.password), bcrypt.MinCost)
		require.NoError(t, err)
		hash = string(h)
	}
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	session := NewSession(auth.NewAuthenticator("admin", hash), tokens, false)

	tmpl, err := web.Templates()
	require.NoError(t, err)

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	NewPageHandler(session, logger).RegisterRoutes(r)
	NewPredictionHandler(svc, session, logger).RegisterRoutes(r)
	NewAPIHandler(svc, svc, store, nil, logger).RegisterRoutes(r)

	return &testEnv{router: r, tokens: tokens}
}

func (e *testEnv) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) postJSON(path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(data)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func densityScenario() url.Values {
	return url.Values{
		"City":                  {"Neo Tokyo"},
		"Weather":               {"Rainy"},
		"Speed":                 {"30"},
		"Hour Of Day":           {"8"},
		"Is Peak Hour":          {"on"},
		"Random Event Occurred": {"1"},
		"Economic Condition":    {"Recession"},
		"Energy Consumption":    {"5.0"},
	}
}

func TestStaticPages(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	for _, path := range []string{"/", "/about", "/login", "/predict/density", "/predict/incident"} {
		w := env.get(path)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), "<html", path)
	}
}

func TestDensityFormScenario(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	w := env.postForm("/predict/density", densityScenario())
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Equal(t, 7, strings.Count(body, "<li>"))
	assert.Contains(t, body, "Estimated density: ")
	assert.Contains(t, body, "Rainy weather slows traffic down")
	assert.Contains(t, body, `value="Neo Tokyo"`)
}

func TestDensityAPIScenarioOrder(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	fields := map[string]string{}
	for key := range densityScenario() {
		fields[key] = densityScenario().Get(key)
	}

	w := env.postJSON("/api/v1/predict/density", fields)
	require.Equal(t, http.StatusOK, w.Code)

	var result service.PredictionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Explanation, 7)

	assert.Regexp(t, `^Estimated density: -?\d+\.\d{4} \(`, result.Explanation[0])
	prefixes := []string{"Peak hour", "A random event", "Rainy weather", "Low average speed", "Hour 8", "Recession"}
	for i, prefix := range prefixes {
		assert.True(t, strings.HasPrefix(result.Explanation[i+1], prefix), result.Explanation[i+1])
	}
}

func TestIncidentFormScenario(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	w := env.postForm("/predict/incident", url.Values{
		"Speed":        {"120"},
		"Hour Of Day":  {"3"},
		"Weather":      {"Clear"},
		"Is Peak Hour": {"off"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "Incident probability: 82.00% (Likely)")
	assert.Contains(t, body, "High speed (120.0 km/h)")
	assert.Contains(t, body, "Late-night hours")
	assert.NotContains(t, body, "Peak hour exposure")
	assert.NotContains(t, body, "weather increases accident risk")
	assert.Equal(t, 3, strings.Count(body, "<li>"))
}

func TestMalformedNumberEchoesForm(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	form := densityScenario()
	form.Set("Speed", "abc")

	w := env.postForm("/predict/density", form)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `class="error"`)
	assert.Contains(t, body, "<td>Speed</td><td>abc</td>")
	assert.Contains(t, body, "<td>City</td><td>Neo Tokyo</td>")
	assert.Contains(t, body, "<td>Energy Consumption</td><td>5.0</td>")
}

func TestNonFiniteNumbersAreInputErrors(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	for _, value := range []string{"NaN", "Inf", "+Inf"} {
		t.Run(value, func(t *testing.T) {
			w := env.postJSON("/api/v1/predict/density", map[string]string{"Speed": value})
			require.Equal(t, http.StatusBadRequest, w.Code)

			var result service.PredictionResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
			assert.Equal(t, service.ErrorKindInput, result.ErrorKind)
			assert.Equal(t, value, result.Form["Speed"])

			w = env.postJSON("/api/v1/predict/incident", map[string]string{"Speed": value})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotContains(t, w.Body.String(), "km/h")

			w = env.postForm("/predict/density", url.Values{"Speed": {value}})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "<td>Speed</td><td>"+value+"</td>")
			assert.NotContains(t, w.Body.String(), "Estimated density")
		})
	}
}

func TestModelUnavailableRendersErrorView(t *testing.T) {
	env := newTestEnv(t, envOptions{
		incident: func(context.Context) (pipeline.Pipeline, error) {
			return nil, errors.New("open models/incident_pipeline.json: no such file or directory")
		},
	})

	w := env.postForm("/predict/incident", url.Values{"Speed": {"50"}})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "no such file or directory")

	w = env.get("/api/v1/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	// первое обращение загружает модели
	env.postForm("/predict/density", densityScenario())
	env.postForm("/predict/incident", url.Values{"Speed": {"50"}})
	env.postForm("/predict", densityScenario())

	w := env.get("/api/v1/health")
	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string                `json:"status"`
		Models []pipeline.SlotStatus `json:"models"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Len(t, body.Models, 3)
}

func TestLegacyPredictOpenWithoutLogin(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	form := densityScenario()
	form.Set("Vehicle Type", "Car")
	form.Set("Day Of Week", "Monday")

	w := env.postForm("/predict", form)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Prediction: <strong>")
}

func TestLegacyPredictUnknownCategory(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	form := densityScenario()
	form.Set("Vehicle Type", "Hoverboard")
	form.Set("Day Of Week", "Monday")

	w := env.postForm("/predict", form)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Hoverboard")
}

func TestLegacyPredictRequiresLogin(t *testing.T) {
	env := newTestEnv(t, envOptions{password: "secret"})

	w := env.get("/predict")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=%2Fpredict", w.Header().Get("Location"))

	w = env.postForm("/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password.")

	w = env.postForm("/login", url.Values{"username": {"admin"}, "password": {"secret"}, "next": {"/predict"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/predict", w.Header().Get("Location"))

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	w = env.get("/predict", session)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Log out admin")
}

func TestLoginRejectsExternalNext(t *testing.T) {
	env := newTestEnv(t, envOptions{password: "secret"})

	w := env.postForm("/login", url.Values{"username": {"admin"}, "password": {"secret"}, "next": {"//evil.example"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/predict", w.Header().Get("Location"))
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, envOptions{password: "secret"})

	w := env.postForm("/logout", url.Values{})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.SessionCookie+"=;")
}

func TestAPIPredictRejectsBadJSON(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	w := env.postJSON("/api/v1/predict/incident", []int{1, 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryDisabled(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	assert.Equal(t, http.StatusNotFound, env.get("/api/v1/predictions").Code)
	assert.Equal(t, http.StatusNotFound, env.get("/api/v1/predictions/some-id").Code)
}

func TestStatusFor(t *testing.T) {
	cases := map[service.ErrorKind]int{
		service.ErrorKindInput:    http.StatusBadRequest,
		service.ErrorKindModel:    http.StatusServiceUnavailable,
		service.ErrorKindInternal: http.StatusInternalServerError,
	}
	for kind, want := range cases {
		t.Run(fmt.Sprint(kind), func(t *testing.T) {
			assert.Equal(t, want, StatusFor(&service.PredictionResult{Status: service.StatusError, ErrorKind: kind}))
		})
	}
	assert.Equal(t, http.StatusOK, StatusFor(&service.PredictionResult{Status: service.StatusSuccess}))
}
