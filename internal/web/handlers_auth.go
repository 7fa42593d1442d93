// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/observability"
	"github.com/inkwell/inkwell/pkg/errutil"
)

const (
	msgLoginFailed = "Login Unsuccessful. Please check email and password"
	msgMismatch    = "Field must be equal to password."
)

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageRegister, &pageData{Title: "Register", Form: newForm(r)})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	f := newForm(r, "username", "email")
	password := r.PostFormValue("password")
	if password == "" {
		f.fail("password", "This field is required.")
	}
	if r.PostFormValue("confirm_password") != password {
		f.fail("confirm_password", msgMismatch)
	}
	if !f.valid() {
		s.metrics.Registration(observability.ResultInvalid)
		s.render(w, r, http.StatusUnprocessableEntity, pageRegister, &pageData{Title: "Register", Form: f})
		return
	}

	user, err := s.auth.Register(r.Context(), f.Value("username"), f.Value("email"), password)
	if err != nil {
		if applyFieldError(f, err) {
			result := observability.ResultInvalid
			if errors.Is(err, auth.ErrUniqueViolation) {
				result = observability.ResultTaken
			}
			s.metrics.Registration(result)
			s.render(w, r, http.StatusUnprocessableEntity, pageRegister, &pageData{Title: "Register", Form: f})
			return
		}
		s.metrics.Registration(observability.ResultError)
		s.serverError(w, r, err)
		return
	}

	s.metrics.Registration(observability.ResultSuccess)
	s.logger.InfoContext(r.Context(), "user registered", "user_id", user.ID)
	s.addFlash(w, r, flashSuccess, "Your account has been created! You are now able to log in")
	http.Redirect(w, r, auth.DefaultLoginPath, http.StatusSeeOther)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageLogin, &pageData{
		Title: "Login",
		Form:  newForm(r),
		Next:  r.URL.Query().Get(auth.NextParam),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	f := newForm(r, "email")
	next := r.FormValue(auth.NextParam)
	fail := func(status int, msg string) {
		s.render(w, r, status, pageLogin, &pageData{
			Title:   "Login",
			Form:    f,
			Next:    next,
			Flashes: []Flash{{Category: flashDanger, Message: msg}},
		})
	}

	user, err := s.auth.Authenticate(r.Context(), f.Value("email"), r.PostFormValue("password"))
	if err != nil {
		switch errutil.Code(err) {
		case "AUTH_INVALID_CREDENTIALS":
			if errors.Is(err, auth.ErrAccountLocked) {
				s.metrics.Login(observability.ResultLocked)
			} else {
				s.metrics.Login(observability.ResultFailure)
			}
			fail(http.StatusUnauthorized, msgLoginFailed)
		default:
			s.metrics.Login(observability.ResultError)
			s.serverError(w, r, err)
		}
		return
	}

	remember := isChecked(r.PostFormValue("remember"))
	session, token, err := s.auth.Login(r.Context(), user, remember, auth.ClientInfo{
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	})
	if err != nil {
		s.metrics.Login(observability.ResultError)
		s.serverError(w, r, err)
		return
	}

	s.metrics.Login(observability.ResultSuccess)
	s.setSessionCookie(w, token, session)
	http.Redirect(w, r, s.gate.SafeNext(next), http.StatusSeeOther)
}

// handleLogout ends the session when there is one. It is not guarded: an
// anonymous logout is a redirect home.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := s.auth.Logout(r.Context(), token); err != nil {
			errutil.LogError(s.logger, "logout failed", err)
		}
		s.clearSessionCookie(w)
	}
	http.Redirect(w, r, auth.DefaultHomePath, http.StatusFound)
}

func isChecked(v string) bool {
	switch v {
	case "y", "on", "true", "1":
		return true
	default:
		return false
	}
}
