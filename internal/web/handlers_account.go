// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package web

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/inkwell/inkwell/internal/auth"
)

func (s *Server) handleAccountForm(w http.ResponseWriter, r *http.Request) {
	user := identityFrom(r.Context())
	f := newForm(r)
	f.Values["username"] = user.Username
	f.Values["email"] = user.Email
	s.render(w, r, http.StatusOK, pageAccount, &pageData{Title: "Account", Form: f})
}

func (s *Server) handleAccountUpdate(w http.ResponseWriter, r *http.Request) {
	user := identityFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		switch {
		case errors.Is(err, http.ErrNotMultipart):
			if err := r.ParseForm(); err != nil {
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}
		default:
			f := newForm(r)
			f.Values["username"] = user.Username
			f.Values["email"] = user.Email
			if !applyFieldError(f, err) {
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}
			s.render(w, r, http.StatusRequestEntityTooLarge, pageAccount, &pageData{Title: "Account", Form: f})
			return
		}
	}
	if r.MultipartForm != nil {
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				s.logger.WarnContext(r.Context(), "failed to remove multipart temp files", "error", err)
			}
		}()
	}

	f := newForm(r, "username", "email")
	upd := auth.ProfileUpdate{Username: f.Value("username"), Email: f.Value("email")}

	if r.MultipartForm != nil {
		file, header, err := r.FormFile("picture")
		switch {
		case err == nil:
			defer closeFile(file)
			upd.Picture = &auth.Picture{Filename: header.Filename, Content: file}
		case errors.Is(err, http.ErrMissingFile):
		default:
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
	}

	if _, err := s.accounts.UpdateProfile(r.Context(), user, upd); err != nil {
		if applyFieldError(f, err) {
			s.render(w, r, http.StatusUnprocessableEntity, pageAccount, &pageData{Title: "Account", Form: f})
			return
		}
		s.serverError(w, r, err)
		return
	}

	s.logger.InfoContext(r.Context(), "account updated", "user_id", user.ID, "picture", upd.Picture != nil)
	s.addFlash(w, r, flashSuccess, "Your account has been updated!")
	http.Redirect(w, r, "/account", http.StatusSeeOther)
}

func closeFile(f multipart.File) {
	_ = f.Close()
}
