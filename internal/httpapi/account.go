package httpapi

import (
	"net/http"
	"time"

	"github.com/MrEthical07/webAuth"
)

type profileResponse struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name,omitempty"`
	Role             string    `json:"role"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	CreatedAt        time.Time `json:"created_at"`
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request, s webAuth.Session) {
	u, err := h.engine.Profile(r.Context(), s)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Role:             u.Role.String(),
		TwoFactorEnabled: u.TwoFactorEnabled,
		CreatedAt:        u.CreatedAt,
	})
}

type totpSetupResponse struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
}

// setupTOTP returns a fresh secret. Nothing is stored until it is confirmed.
func (h *Handler) setupTOTP(w http.ResponseWriter, r *http.Request, s webAuth.Session) {
	enrollment, err := h.engine.BeginTOTPEnrollment(r.Context(), s.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totpSetupResponse{Secret: enrollment.Secret, URI: enrollment.URI})
}

type totpConfirmRequest struct {
	Secret string `json:"secret"`
	Code   string `json:"code"`
}

func (h *Handler) confirmTOTP(w http.ResponseWriter, r *http.Request, s webAuth.Session) {
	var req totpConfirmRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.engine.ConfirmTOTPEnrollment(r.Context(), s.UserID, req.Secret, req.Code); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) disableTOTP(w http.ResponseWriter, r *http.Request, s webAuth.Session) {
	if err := h.engine.DisableTOTP(r.Context(), s.UserID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
