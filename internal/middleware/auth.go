package middleware

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"traffic-predictor-go/internal/auth"
)

// SessionCookie имя cookie с токеном сессии
const SessionCookie = "session"

// UserKey ключ контекста gin с именем вошедшего пользователя
const UserKey = "user"

// LoginRequired пропускает запрос только с действительной сессией,
// иначе перенаправляет на страницу входа. При выключенном входе пропускает всех.
func LoginRequired(authn *auth.Authenticator, tokens *auth.TokenManager, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authn.Enabled() {
			c.Next()
			return
		}

		user, err := SessionUser(c, tokens)
		if err == nil {
			c.Set(UserKey, user)
			c.Next()
			return
		}

		logger.WithError(err).Debugf("Нет действительной сессии для %s", c.Request.URL.Path)
		c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

// SessionUser возвращает пользователя из cookie сессии
func SessionUser(c *gin.Context, tokens *auth.TokenManager) (string, error) {
	token, err := c.Cookie(SessionCookie)
	if err != nil {
		return "", auth.ErrInvalidToken
	}
	return tokens.Parse(token)
}
