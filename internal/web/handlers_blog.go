// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/inkwell/inkwell/internal/avatar"
	"github.com/inkwell/inkwell/internal/blog"
	"github.com/inkwell/inkwell/pkg/errutil"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || number < 1 {
		number = 1
	}

	page, err := s.blog.List(r.Context(), number)
	if err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			s.errorPage(w, r, http.StatusNotFound)
			return
		}
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, pageHome, &pageData{Page: page})
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageAbout, &pageData{Title: "About"})
}

func (s *Server) handleNewPostForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageCreatePost, &pageData{Title: "New Post", Form: newForm(r)})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	f := newForm(r, "title", "content")
	user := identityFrom(r.Context())

	_, err := s.blog.Create(r.Context(), user.ID, f.Value("title"), f.Value("content"))
	if err != nil {
		if applyFieldError(f, err) {
			s.render(w, r, http.StatusUnprocessableEntity, pageCreatePost, &pageData{Title: "New Post", Form: f})
			return
		}
		s.serverError(w, r, err)
		return
	}

	s.addFlash(w, r, flashSuccess, "Your post has been created!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleViewPost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		s.errorPage(w, r, http.StatusNotFound)
		return
	}

	post, err := s.blog.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			s.errorPage(w, r, http.StatusNotFound)
			return
		}
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, pagePost, &pageData{Title: post.Title, Post: post})
}

func (s *Server) handleAvatar(w http.ResponseWriter, r *http.Request) {
	rc, info, err := s.avatars.Open(r.Context(), r.PathValue("name"))
	if err != nil {
		if errors.Is(err, avatar.ErrBlobNotFound) {
			http.NotFound(w, r)
			return
		}
		s.serverError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", info.ContentType)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.DebugContext(r.Context(), "avatar write interrupted",
			"name", r.PathValue("name"), "code", errutil.Code(err), "error", err)
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.errorPage(w, r, http.StatusNotFound)
}
