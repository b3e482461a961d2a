package web

import (
	"net/http"

	"github.com/vsinha/stockroom/pkg/infrastructure/auth"
	"github.com/vsinha/stockroom/pkg/interfaces/web/middleware"
	"github.com/vsinha/stockroom/pkg/interfaces/web/response"
	"go.uber.org/zap"
)

type registerRequest struct {
	Email           string `json:"email"`
	FullName        string `json:"full_name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.svc.Auth.Register(r.Context(), req.Email, req.FullName, req.Password, req.ConfirmPassword)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created(w, user)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	session, err := h.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, session)
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())
	if err := h.svc.Auth.Logout(r.Context(), claims); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())
	user, err := h.svc.Auth.CurrentUser(r.Context(), claims)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, user)
}

// events upgrades to the live event feed. Browsers cannot set headers on a
// websocket handshake, so the token may also come from ?token=.
func (h *handler) events(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		var found bool
		if token, found = middleware.BearerToken(r); !found {
			response.Unauthorized(w, "missing bearer token")
			return
		}
	}
	claims, err := h.svc.Auth.Authenticate(r.Context(), token)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	// Upgrade writes its own HTTP error on failure
	if err := h.upgrader.Serve(w, r, claims.UserID); err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
	}
}
