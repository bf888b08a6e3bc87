package handlers

import (
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/vehicle-logbook/internal/auth"
	"github.com/ukydev/vehicle-logbook/internal/models"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login exchanges operator credentials for a token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if !decodeRequest(w, r, &loginReq) {
		return
	}

	op, err := h.authService.Authenticate(loginReq.Username, loginReq.Password)
	if err != nil {
		log.WithField("username", loginReq.Username).Warn("Failed login")
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, exp, err := h.authService.GenerateToken(op)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: exp,
		Operator:  *op,
	})
}
