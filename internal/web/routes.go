// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package web

import "net/http"

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /home", s.handleHome)
	mux.HandleFunc("GET /about", s.handleAbout)

	mux.Handle("GET /register", s.requireGuest(s.handleRegisterForm))
	mux.Handle("POST /register", s.requireGuest(s.handleRegister))
	mux.Handle("GET /login", s.requireGuest(s.handleLoginForm))
	mux.Handle("POST /login", s.requireGuest(s.handleLogin))
	mux.HandleFunc("GET /logout", s.handleLogout)

	mux.Handle("GET /account", s.requireIdentity(s.handleAccountForm))
	mux.Handle("POST /account", s.requireIdentity(s.handleAccountUpdate))

	mux.Handle("GET /post/new", s.requireIdentity(s.handleNewPostForm))
	mux.Handle("POST /post/new", s.requireIdentity(s.handleCreatePost))
	mux.HandleFunc("GET /post/{id}", s.handleViewPost)

	mux.HandleFunc("GET /avatars/{name}", s.handleAvatar)

	mux.Handle("GET /reset_password", s.requireGuest(s.handleResetRequestForm))
	mux.Handle("POST /reset_password", s.requireGuest(s.handleResetRequest))
	mux.Handle("GET /reset_password/{token}", s.requireGuest(s.handleResetTokenForm))
	mux.Handle("POST /reset_password/{token}", s.requireGuest(s.handleResetToken))

	mux.HandleFunc("/", s.handleNotFound)

	return mux
}

// requireIdentity runs next only for an authenticated request; anonymous
// requests are sent to the login page with the current URI as next.
func (s *Server) requireIdentity(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := s.gate.RequireIdentity(identityFrom(r.Context()), r.URL.RequestURI())
		if !decision.Allow {
			s.addFlash(w, r, flashInfo, "Please log in to access this page.")
			http.Redirect(w, r, decision.RedirectTo, http.StatusFound)
			return
		}
		next(w, r)
	})
}

// requireGuest runs next only for an anonymous request.
func (s *Server) requireGuest(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := s.gate.RequireGuest(identityFrom(r.Context()))
		if !decision.Allow {
			http.Redirect(w, r, decision.RedirectTo, http.StatusFound)
			return
		}
		next(w, r)
	})
}
