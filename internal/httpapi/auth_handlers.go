package httpapi

import (
	"net/http"
	"time"

	"invizible.art/internal/audit"
	"invizible.art/internal/auth"
)

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req, a.maxBody); err != nil {
		a.handleError(w, r, err)
		return
	}

	res, err := a.auth.Login(r.Context(), req.Name, req.Password, r.UserAgent())
	if err != nil {
		_ = audit.LogEvent(r.Context(), "auth.login.rejected", map[string]any{"name": req.Name})
		a.handleError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"principal_id": res.Principal.ID,
		"expires_at":   res.ExpiresAt.Format(time.RFC3339),
	})
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	rc := auth.FromContext(r.Context())
	if err := a.auth.Logout(r.Context(), rc.Token); err != nil {
		a.handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	writeJSON(w, http.StatusOK, p.Sanitized())
}
