// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package web

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/inkwell/inkwell/internal/auth"
)

// SessionCookieName is the cookie holding the session token.
const SessionCookieName = "inkwell_session"

// identityFrom returns the authenticated user of the request, or nil.
func identityFrom(ctx context.Context) *auth.User {
	user, _ := ctx.Value(identityKey).(*auth.User)
	return user
}

func sessionToken(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// setSessionCookie stores token for the browser. Only a remembered session
// outlives the browser session.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string, session *auth.WebSession) {
	c := &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if session.Remember {
		c.Expires = session.ExpiresAt
		c.MaxAge = int(session.ExpiresAt.Sub(session.CreatedAt) / time.Second)
	}
	http.SetCookie(w, c)
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// clientIP returns the remote host of the request without its port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
