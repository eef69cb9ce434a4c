package httpapi

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/webAuth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	var (
		res *webAuth.LoginResult
		err error
	)
	if req.TOTPCode != "" {
		res, err = h.engine.LoginWithTOTP(r.Context(), req.Email, req.Password, req.TOTPCode)
	} else {
		res, err = h.engine.Login(r.Context(), req.Email, req.Password)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.startSession(w, http.StatusOK, res)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.engine.Register(r.Context(), webAuth.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.startSession(w, http.StatusCreated, res)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Logout(r.Context(), h.engine.SessionToken(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	http.SetCookie(w, h.engine.ExpiredSessionCookie())
	w.WriteHeader(http.StatusNoContent)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// forgotPassword answers 202 whether or not the email is registered.
func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	token, err := h.engine.RequestPasswordReset(r.Context(), req.Email)
	switch {
	case errors.Is(err, webAuth.ErrUserNotFound):
	case err != nil:
		h.fail(w, r, err)
		return
	case h.notifier != nil:
		if err := h.notifier.NotifyPasswordReset(r.Context(), req.Email, token); err != nil {
			h.logger.ErrorContext(r.Context(), "reset notification failed", "err", err)
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "if the account exists, a reset link has been sent",
	})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.engine.ConfirmPasswordReset(r.Context(), req.Token, req.Password); err != nil {
		h.fail(w, r, err)
		return
	}
	http.SetCookie(w, h.engine.ExpiredSessionCookie())
	w.WriteHeader(http.StatusNoContent)
}
