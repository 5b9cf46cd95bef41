package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"seochat/internal/app"
	"seochat/internal/transport/http/middleware"
	"seochat/internal/transport/http/response"
)

type CookieConfig struct {
	Name   string
	Secure bool
}

type UserHandler struct {
	identity *app.IdentityService
	sessions *app.SessionService
	cookie   CookieConfig
	metrics  *AuthMetrics
}

type RegisterUserRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
	Email    string `form:"email" json:"email" binding:"required"`
	Website  string `form:"website" json:"website"`
}

// LoginRequest accepts the identifier as login, username or email.
type LoginRequest struct {
	Login    string `form:"login" json:"login"`
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password" binding:"required"`
}

type GenerateEmbedRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
}

func NewUserHandler(identity *app.IdentityService, sessions *app.SessionService, cookie CookieConfig, metrics *AuthMetrics) *UserHandler {
	return &UserHandler{
		identity: identity,
		sessions: sessions,
		cookie:   cookie,
		metrics:  metrics,
	}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, app.ErrInvalidInput)
		return
	}

	result, err := h.identity.Register(c.Request.Context(), app.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Website:  req.Website,
	})
	h.metrics.observe("register", err)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"embed_key": result.EmbedKey})
}

func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, app.ErrInvalidCredential)
		return
	}
	login := firstNonEmpty(req.Login, req.Username, req.Email)

	result, err := h.sessions.Login(c.Request.Context(), login, req.Password)
	h.metrics.observe("login", err)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookie(c, result.SessionID, int(h.sessions.TTL().Seconds()))
	response.OK(c, gin.H{"username": result.User.Username})
}

// Logout always succeeds; the cookie is cleared even without a session.
func (h *UserHandler) Logout(c *gin.Context) {
	if sessionID, err := c.Cookie(h.cookie.Name); err == nil && sessionID != "" {
		if err := h.sessions.Revoke(c.Request.Context(), sessionID); err != nil {
			h.metrics.observe("logout", err)
			response.Error(c, err)
			return
		}
	}
	h.metrics.observe("logout", nil)
	h.setSessionCookie(c, "", -1)
	response.OK(c, nil)
}

func (h *UserHandler) Me(c *gin.Context) {
	profile, ok := middleware.GetProfile(c)
	if !ok {
		response.Error(c, app.ErrSessionInvalid)
		return
	}
	response.OK(c, gin.H{
		"username":     profile.Username,
		"company_name": profile.CompanyName,
		"website":      profile.Website,
	})
}

func (h *UserHandler) GenerateEmbed(c *gin.Context) {
	var req GenerateEmbedRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, app.ErrInvalidInput)
		return
	}

	embed, err := h.identity.GenerateEmbed(c.Request.Context(), req.Username)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"embed_key": embed.EmbedKey, "snippet": embed.Snippet})
}

func (h *UserHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, maxAge, "/", "", h.cookie.Secure, true)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
