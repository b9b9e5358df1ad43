package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/username/optifolio/src/config"
	"github.com/username/optifolio/src/logger"
	"github.com/username/optifolio/src/model"
	"github.com/username/optifolio/src/security"
	"github.com/username/optifolio/src/security/validation"
	"github.com/username/optifolio/src/utils"
)

type UserHandler struct {
	db          *sql.DB
	authService *security.AuthService
}

func NewUserHandler(db *sql.DB, authService *security.AuthService) *UserHandler {
	return &UserHandler{db: db, authService: authService}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Username = validation.SanitizeUserInput(req.Username)
	req.Email = validation.SanitizeUserInput(req.Email)
	if req.Username == "" || req.Email == "" || len(req.Password) < 8 {
		utils.SendJSONError(w, "Username, email and a password of at least 8 characters are required", http.StatusBadRequest)
		return
	}

	hashed, err := h.authService.HashPassword(req.Password)
	if err != nil {
		logger.L.Error("Failed to hash password", "error", err)
		utils.SendJSONError(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hashed,
	}
	if err := user.CreateUser(h.db); err != nil {
		logger.L.Warn("User registration failed", "username", req.Username, "error", err)
		utils.SendJSONError(w, "Username or email already taken", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":       user.ID,
		"username": user.Username,
	})
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByUsername(h.db, validation.SanitizeUserInput(req.Username))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			utils.SendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
			return
		}
		logger.L.Error("Failed to look up user", "error", err)
		utils.SendJSONError(w, "Login failed", http.StatusInternalServerError)
		return
	}
	if err := h.authService.CompareHashAndPassword(user.Password, req.Password); err != nil {
		utils.SendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	accessToken, err := h.authService.GenerateToken(user.ID)
	if err != nil {
		logger.L.Error("Failed to generate access token", "error", err)
		utils.SendJSONError(w, "Login failed", http.StatusInternalServerError)
		return
	}
	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		logger.L.Error("Failed to generate refresh token", "error", err)
		utils.SendJSONError(w, "Login failed", http.StatusInternalServerError)
		return
	}

	session := &model.Session{
		UserID:       user.ID,
		Token:        accessToken,
		RefreshToken: refreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		ExpiresAt:    time.Now().Add(config.Cfg.RefreshTokenExpiry),
	}
	if err := session.CreateSession(h.db); err != nil {
		logger.L.Error("Failed to create session", "error", err)
		utils.SendJSONError(w, "Login failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		utils.SendJSONError(w, "refresh_token is required", http.StatusBadRequest)
		return
	}

	session, err := model.GetSessionByRefreshToken(h.db, req.RefreshToken)
	if err != nil {
		utils.SendJSONError(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}
	if session.IsBlocked || time.Now().After(session.ExpiresAt) {
		utils.SendJSONError(w, "Session expired", http.StatusUnauthorized)
		return
	}

	accessToken, err := h.authService.GenerateToken(session.UserID)
	if err != nil {
		logger.L.Error("Failed to generate access token on refresh", "error", err)
		utils.SendJSONError(w, "Token refresh failed", http.StatusInternalServerError)
		return
	}
	if err := model.UpdateSessionToken(h.db, session.ID, accessToken); err != nil {
		logger.L.Error("Failed to update session token", "error", err)
		utils.SendJSONError(w, "Token refresh failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: req.RefreshToken,
	})
}

func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := security.ExtractBearerToken(r.Header.Get("Authorization"))
	if err != nil {
		utils.SendJSONError(w, "Authorization header required", http.StatusUnauthorized)
		return
	}
	if err := model.DeleteSessionByToken(h.db, token); err != nil {
		logger.L.Error("Failed to delete session", "error", err)
		utils.SendJSONError(w, "Logout failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
