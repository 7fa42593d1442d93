// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package web

import (
	"net/http"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/observability"
	"github.com/inkwell/inkwell/pkg/errutil"
)

const (
	resetRequestPath = "/reset_password"
	msgInvalidToken  = "That is an invalid or expired token"
)

func (s *Server) handleResetRequestForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageResetRequest, &pageData{Title: "Reset Password", Form: newForm(r)})
}

// handleResetRequest answers the same way whether or not the email is
// registered.
func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	f := newForm(r, "email")
	if f.Value("email") == "" {
		f.fail("email", "This field is required.")
		s.metrics.PasswordReset(observability.StageRequest, observability.ResultInvalid)
		s.render(w, r, http.StatusUnprocessableEntity, pageResetRequest, &pageData{Title: "Reset Password", Form: f})
		return
	}

	if err := s.resets.RequestReset(r.Context(), f.Value("email")); err != nil {
		s.metrics.PasswordReset(observability.StageRequest, observability.ResultError)
		errutil.LogError(s.logger, "password reset request failed", err)
		s.render(w, r, http.StatusServiceUnavailable, pageResetRequest, &pageData{
			Title:   "Reset Password",
			Form:    f,
			Flashes: []Flash{{Category: flashDanger, Message: "We could not send the email right now. Please try again later."}},
		})
		return
	}

	s.metrics.PasswordReset(observability.StageRequest, observability.ResultSuccess)
	s.addFlash(w, r, flashInfo, "An email has been sent with instructions to reset your password.")
	http.Redirect(w, r, auth.DefaultLoginPath, http.StatusSeeOther)
}

func (s *Server) handleResetTokenForm(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if _, err := s.resets.ValidateToken(r.Context(), token); err != nil {
		s.rejectToken(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, pageResetToken, &pageData{Title: "Reset Password", Form: newForm(r), Token: token})
}

func (s *Server) handleResetToken(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	f := newForm(r)
	password := r.PostFormValue("password")
	if password != "" && r.PostFormValue("confirm_password") != password {
		f.fail("confirm_password", msgMismatch)
		s.metrics.PasswordReset(observability.StageReset, observability.ResultInvalid)
		s.render(w, r, http.StatusUnprocessableEntity, pageResetToken, &pageData{Title: "Reset Password", Form: f, Token: token})
		return
	}

	user, err := s.resets.ResetPassword(r.Context(), token, password)
	if err != nil {
		if errutil.Code(err) == "RESET_TOKEN_INVALID" {
			s.rejectToken(w, r, err)
			return
		}
		if applyFieldError(f, err) {
			s.metrics.PasswordReset(observability.StageReset, observability.ResultInvalid)
			s.render(w, r, http.StatusUnprocessableEntity, pageResetToken, &pageData{Title: "Reset Password", Form: f, Token: token})
			return
		}
		s.metrics.PasswordReset(observability.StageReset, observability.ResultError)
		s.serverError(w, r, err)
		return
	}

	s.metrics.PasswordReset(observability.StageReset, observability.ResultSuccess)
	s.logger.InfoContext(r.Context(), "password reset", "user_id", user.ID)
	s.addFlash(w, r, flashSuccess, "Your password has been updated! You are now able to log in")
	http.Redirect(w, r, auth.DefaultLoginPath, http.StatusSeeOther)
}

// rejectToken sends the browser back to the request form. Storage failures
// while checking the token are server errors.
func (s *Server) rejectToken(w http.ResponseWriter, r *http.Request, err error) {
	if errutil.Code(err) != "RESET_TOKEN_INVALID" {
		s.serverError(w, r, err)
		return
	}
	s.metrics.PasswordReset(observability.StageReset, observability.ResultInvalid)
	s.addFlash(w, r, flashWarning, msgInvalidToken)
	http.Redirect(w, r, resetRequestPath, http.StatusFound)
}
