package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/baharkarakas/checkflow/internal/api/httpx"
	"github.com/baharkarakas/checkflow/internal/api/validate"
	"github.com/baharkarakas/checkflow/internal/auth"
	"github.com/baharkarakas/checkflow/internal/middleware"
	"github.com/baharkarakas/checkflow/internal/models"
	repo "github.com/baharkarakas/checkflow/internal/repository"
	"github.com/baharkarakas/checkflow/internal/services"
)

type AuthHandler struct {
	TM      *auth.TokenManager
	Parties *services.PartyService
}

func NewAuthHandler(tm *auth.TokenManager, parties *services.PartyService) *AuthHandler {
	return &AuthHandler{TM: tm, Parties: parties}
}

type credentialsReq struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type tokenResp struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"` // seconds
	Party        *models.User `json:"party,omitempty"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if !decode(w, r, &req) {
		return
	}
	u, err := h.Parties.Register(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, services.ErrUsernameTaken):
		httpx.WriteError(w, http.StatusConflict, "username_taken", err.Error(), nil)
		return
	case err != nil:
		slog.Error("register", "err", err)
		httpx.WriteInternal(w)
		return
	}
	h.writeTokens(w, http.StatusCreated, u)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if !decode(w, r, &req) {
		return
	}
	u, err := h.Parties.Login(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil)
		return
	case err != nil:
		slog.Error("login", "err", err)
		httpx.WriteInternal(w)
		return
	}
	h.writeTokens(w, http.StatusOK, u)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if !decode(w, r, &req) {
		return
	}
	claims, isRefresh, err := h.TM.ParseAny(req.RefreshToken)
	if err != nil || !isRefresh {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token", nil)
		return
	}
	h.writeTokens(w, http.StatusOK, models.User{ID: claims.PartyID, Username: claims.Username})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PartyFrom(r.Context())
	u, err := h.Parties.Get(r.Context(), p.ID)
	if errors.Is(err, repo.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "party not found", nil)
		return
	}
	if err != nil {
		slog.Error("me", "err", err)
		httpx.WriteInternal(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func (h *AuthHandler) writeTokens(w http.ResponseWriter, status int, u models.User) {
	access, refresh, exp, err := h.TM.GeneratePair(u.ID, u.Username)
	if err != nil {
		slog.Error("token generation", "err", err)
		httpx.WriteInternal(w)
		return
	}
	resp := tokenResp{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(time.Until(exp).Truncate(time.Second).Seconds()),
	}
	if !u.CreatedAt.IsZero() {
		resp.Party = &u
	}
	httpx.WriteJSON(w, status, resp)
}

// decode writes the 400 itself and reports whether the handler may go on.
func decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	err := validate.DecodeJSON(r, dest)
	if err == nil {
		return true
	}
	var errs validate.Errs
	if errors.As(err, &errs) {
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", "validation failed", errs)
		return false
	}
	httpx.WriteError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
	return false
}
