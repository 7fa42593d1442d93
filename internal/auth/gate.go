// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"net/url"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Default gate settings.
const (
	DefaultLoginPath = "/login"
	DefaultHomePath  = "/"
	NextParam        = "next"
)

// Decision is the outcome of a Gate check. When Allow is false the caller
// must redirect to RedirectTo instead of running the handler.
type Decision struct {
	Allow      bool
	RedirectTo string
}

// Gate decides whether a request may proceed given the current identity.
type Gate struct {
	loginPath string
	homePath  string
	allowlist []glob.Glob
}

// NewGate creates a Gate. nextAllowlist holds glob patterns ('/' separated)
// that a post-login redirect target must match; empty means "/**".
func NewGate(loginPath string, nextAllowlist []string) (*Gate, error) {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	if len(nextAllowlist) == 0 {
		nextAllowlist = []string{"/**"}
	}

	g := &Gate{loginPath: loginPath, homePath: DefaultHomePath}
	for _, pattern := range nextAllowlist {
		compiled, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, oops.Code("GATE_INVALID_PATTERN").With("pattern", pattern).Wrap(err)
		}
		g.allowlist = append(g.allowlist, compiled)
	}
	return g, nil
}

// RequireIdentity allows authenticated requests. Anonymous requests are sent
// to the login page carrying requestURI as the next destination.
func (g *Gate) RequireIdentity(identity *User, requestURI string) Decision {
	if identity != nil {
		return Decision{Allow: true}
	}
	return Decision{RedirectTo: g.LoginURL(requestURI)}
}

// RequireGuest allows anonymous requests and sends authenticated ones home.
func (g *Gate) RequireGuest(identity *User) Decision {
	if identity == nil {
		return Decision{Allow: true}
	}
	return Decision{RedirectTo: g.homePath}
}

// LoginURL returns the login path with next attached when it is safe.
func (g *Gate) LoginURL(next string) string {
	if next == "" || g.SafeNext(next) != next {
		return g.loginPath
	}
	return g.loginPath + "?" + NextParam + "=" + url.QueryEscape(next)
}

// SafeNext returns next if it is a local path matching the allowlist,
// otherwise the home path.
func (g *Gate) SafeNext(next string) string {
	if !isLocalPath(next) {
		return g.homePath
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return g.homePath
	}
	for _, pattern := range g.allowlist {
		if pattern.Match(u.Path) {
			return next
		}
	}
	return g.homePath
}

// isLocalPath rejects absolute URLs, scheme-relative URLs and anything with
// control characters or backslashes that browsers may normalize to "//".
func isLocalPath(p string) bool {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
		return false
	}
	for _, r := range p {
		if r < 0x20 || r == 0x7f || r == '\\' {
			return false
		}
	}
	return true
}
