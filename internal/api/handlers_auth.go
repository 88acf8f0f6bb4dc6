package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/localhook/localhook/internal/auth"
	"github.com/localhook/localhook/internal/relay"
)

type AuthHandler struct {
	auth      *auth.Service
	origin    string
	cookieAge int
}

func NewAuthHandler(authSvc *auth.Service, origin string, cookieAge int) *AuthHandler {
	return &AuthHandler{auth: authSvc, origin: origin, cookieAge: cookieAge}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string        `json:"token"`
	User  auth.UserInfo `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	token, user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     relay.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   h.cookieAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Token: token,
		User:  auth.UserInfo{ID: user.ID, Email: user.Email, IsAdmin: user.IsAdmin},
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := relay.SessionToken(r)
	if token != "" {
		if err := h.auth.Logout(r.Context(), token); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     relay.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) RevokeOthers(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.auth.RevokeOthers(r.Context(), user.ID, relay.SessionToken(r)); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type registerRequest struct {
	InviteToken string `json:"invite_token"`
	Password    string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.InviteToken == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invite_token and password are required")
		return
	}

	user, err := h.auth.RedeemInvite(r.Context(), req.InviteToken, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInviteInvalid):
			writeError(w, http.StatusBadRequest, "invite token invalid or expired")
		case errors.Is(err, auth.ErrEmailTaken):
			writeError(w, http.StatusConflict, "email already registered")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type createInviteRequest struct {
	Email string `json:"email"`
}

type inviteResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Link  string `json:"link"`
}

func (h *AuthHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !user.IsAdmin {
		writeError(w, http.StatusForbidden, "admin only")
		return
	}

	var req createInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	inv, err := h.auth.CreateInvite(r.Context(), user.ID, req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, inviteResponse{
		Token: inv.Token,
		Email: inv.Email,
		Link:  fmt.Sprintf("%s/?invite_token=%s", h.origin, inv.Token),
	})
}

func (h *AuthHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	invs, err := h.auth.ListInvites(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]inviteResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, inviteResponse{
			Token: inv.Token,
			Email: inv.Email,
			Link:  fmt.Sprintf("%s/?invite_token=%s", h.origin, inv.Token),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
