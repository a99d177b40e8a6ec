package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"traffic-predictor-go/internal/auth"
	"traffic-predictor-go/internal/middleware"
	"traffic-predictor-go/internal/web"
)

const defaultNext = "/predict"

// Session общая для веб-страниц информация о входе
type Session struct {
	authn        *auth.Authenticator
	tokens       *auth.TokenManager
	secureCookie bool
}

// NewSession создает описание сессий веб-интерфейса
func NewSession(authn *auth.Authenticator, tokens *auth.TokenManager, secureCookie bool) *Session {
	return &Session{authn: authn, tokens: tokens, secureCookie: secureCookie}
}

// page собирает базовые данные страницы
func (s *Session) page(c *gin.Context, title string) web.Page {
	p := web.Page{
		Title:        title,
		LoginEnabled: s.authn.Enabled(),
		Form:         map[string]string{},
	}
	if user := c.GetString(middleware.UserKey); user != "" {
		p.User = user
	} else if s.authn.Enabled() {
		if user, err := middleware.SessionUser(c, s.tokens); err == nil {
			p.User = user
		}
	}
	return p
}

// PageHandler статические страницы и вход
type PageHandler struct {
	session *Session
	logger  *logrus.Logger
}

// NewPageHandler создает новый экземпляр PageHandler
func NewPageHandler(session *Session, logger *logrus.Logger) *PageHandler {
	return &PageHandler{session: session, logger: logger}
}

// RegisterRoutes регистрирует маршруты страниц
func (h *PageHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.Index)
	router.GET("/about", h.About)
	router.GET("/login", h.LoginForm)
	router.POST("/login", h.Login)
	router.POST("/logout", h.Logout)
}

// Index главная страница
func (h *PageHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", h.session.page(c, "Traffic Predictor"))
}

// About страница о проекте
func (h *PageHandler) About(c *gin.Context) {
	c.HTML(http.StatusOK, "about.html", h.session.page(c, "About"))
}

// LoginForm форма входа
func (h *PageHandler) LoginForm(c *gin.Context) {
	p := h.session.page(c, "Log in")
	p.Next = safeNext(c.Query("next"))
	c.HTML(http.StatusOK, "login.html", p)
}

// Login проверяет учетные данные и выдает cookie сессии
func (h *PageHandler) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	next := safeNext(c.PostForm("next"))

	p := h.session.page(c, "Log in")
	p.Next = next
	p.Form["username"] = username

	if !h.session.authn.Enabled() {
		p.Error = "Login is not configured on this server."
		c.HTML(http.StatusNotFound, "login.html", p)
		return
	}

	if !h.session.authn.Verify(username, c.PostForm("password")) {
		h.logger.WithField("username", username).Warn("Неудачная попытка входа")
		p.Error = "Invalid username or password."
		c.HTML(http.StatusUnauthorized, "login.html", p)
		return
	}

	token, _, err := h.session.tokens.Issue(username)
	if err != nil {
		h.logger.WithError(err).Error("Ошибка выпуска токена сессии")
		p.Error = "Could not start a session, please try again."
		c.HTML(http.StatusInternalServerError, "login.html", p)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, int(h.session.tokens.TTL().Seconds()), "/", "", h.session.secureCookie, true)

	h.logger.WithField("username", username).Info("Пользователь вошел")
	c.Redirect(http.StatusFound, next)
}

// Logout удаляет cookie сессии
func (h *PageHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.session.secureCookie, true)
	c.Redirect(http.StatusFound, "/")
}

// safeNext допускает только локальные пути для перенаправления после входа
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return defaultNext
	}
	return next
}
