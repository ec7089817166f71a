package handlers

import (
	"net/http"

	"busticket/internal/auth"
	"busticket/internal/services"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type profileRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// POST /api/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req services.RegisterInput
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Auth.Register(c.Request.Context(), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"message": "registration successful", "user": u})
}

// POST /api/auth/register_operator
func (h *Handler) RegisterOperator(c *gin.Context) {
	var req services.RegisterOperatorInput
	if !bindJSON(c, &req) {
		return
	}
	u, op, err := h.Auth.RegisterOperator(c.Request.Context(), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{
		"message":  "operator registered; awaiting verification",
		"user":     u,
		"operator": op,
	})
}

// POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password, services.ClientInfo{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if h.CookieName != "" {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.CookieName, res.Token, int(h.Auth.Issuer.TTL().Seconds()), "/", "", h.SecureCookie, true)
	}
	respondOK(c, http.StatusOK, gin.H{"token": res.Token, "expires_at": res.ExpiresAt, "user": res.User})
}

// POST /api/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	if err := h.Auth.Logout(c.Request.Context(), auth.ExtractToken(c.Request, h.CookieName)); err != nil {
		RespondDomainError(c, err)
		return
	}
	if h.CookieName != "" {
		c.SetCookie(h.CookieName, "", -1, "/", "", h.SecureCookie, true)
	}
	respondOK(c, http.StatusOK, gin.H{"message": "logged out"})
}

// GET /api/auth/me
func (h *Handler) Me(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	u, op, err := h.Auth.Me(c.Request.Context(), int64(rc.UserID))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	payload := gin.H{"user": u}
	if op != nil {
		payload["operator"] = op
	}
	respondOK(c, http.StatusOK, payload)
}

// PUT /api/auth/profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	var req profileRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Auth.UpdateProfile(c.Request.Context(), int64(rc.UserID), req.Name, req.Phone)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"user": u})
}

// POST /api/auth/change_password
func (h *Handler) ChangePassword(c *gin.Context) {
	rc, ok := caller(c)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	token := auth.ExtractToken(c.Request, h.CookieName)
	if err := h.Auth.ChangePassword(c.Request.Context(), int64(rc.UserID), token, req.CurrentPassword, req.NewPassword); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "password changed; other sessions signed out"})
}
