package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"traffic-predictor-go/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter(t *testing.T, authn *auth.Authenticator, tokens *auth.TokenManager) *gin.Engine {
	t.Helper()
	logger, _ := test.NewNullLogger()

	r := gin.New()
	r.GET("/predict", LoginRequired(authn, tokens, logger), func(c *gin.Context) {
		c.String(http.StatusOK, "hello "+c.GetString(UserKey))
	})
	return r
}

func enabledAuth(t *testing.T) *auth.Authenticator {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	return auth.NewAuthenticator("admin", string(h))
}

func TestLoginRequiredRedirects(t *testing.T) {
	r := protectedRouter(t, enabledAuth(t), auth.NewTokenManager("k", time.Hour))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/predict?x=1", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=%2Fpredict%3Fx%3D1", w.Header().Get("Location"))
}

func TestLoginRequiredAcceptsSession(t *testing.T) {
	tokens := auth.NewTokenManager("k", time.Hour)
	r := protectedRouter(t, enabledAuth(t), tokens)

	token, _, err := tokens.Issue("admin")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/predict", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello admin", w.Body.String())
}

func TestLoginRequiredRejectsForgedSession(t *testing.T) {
	r := protectedRouter(t, enabledAuth(t), auth.NewTokenManager("k", time.Hour))

	forged, _, err := auth.NewTokenManager("attacker", time.Hour).Issue("admin")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/predict", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: forged})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
}

func TestLoginRequiredDisabled(t *testing.T) {
	r := protectedRouter(t, auth.NewAuthenticator("admin", ""), auth.NewTokenManager("k", time.Hour))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/predict", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoggerAndCORS(t *testing.T) {
	logger, hook := test.NewNullLogger()

	r := gin.New()
	r.Use(Logger(logger), CORS())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "/ping", hook.LastEntry().Data["path"])
	assert.Equal(t, http.StatusOK, hook.LastEntry().Data["status"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
