// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package web

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/blog"
	"github.com/inkwell/inkwell/pkg/errutil"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/base.layout.html"

// Page template names.
const (
	pageHome         = "home"
	pageAbout        = "about"
	pageRegister     = "register"
	pageLogin        = "login"
	pageAccount      = "account"
	pageCreatePost   = "create_post"
	pagePost         = "post"
	pageResetRequest = "reset_request"
	pageResetToken   = "reset_token"
	pageError        = "error"
)

var templateFuncs = template.FuncMap{
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	},
	"avatarURL": avatarURL,
	"pageURL": func(path string, n int) string {
		return path + "?page=" + strconv.Itoa(n)
	},
	"paragraphs": func(s string) []string {
		return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	},
}

// form holds submitted values and per-field errors for re-rendering.
type form struct {
	Values map[string]string
	Errors map[string]string
}

func newForm(r *http.Request, fields ...string) *form {
	f := &form{Values: map[string]string{}, Errors: map[string]string{}}
	for _, name := range fields {
		f.Values[name] = r.PostFormValue(name)
	}
	return f
}

// Value returns the submitted value of a field.
func (f *form) Value(name string) string {
	if f == nil {
		return ""
	}
	return f.Values[name]
}

// Error returns the error of a field.
func (f *form) Error(name string) string {
	if f == nil {
		return ""
	}
	return f.Errors[name]
}

func (f *form) fail(name, msg string) {
	f.Errors[name] = msg
}

func (f *form) valid() bool {
	return len(f.Errors) == 0
}

// pageData is handed to every template. Flashes set by a handler are shown
// after any carried over from a redirect.
type pageData struct {
	Title    string
	Path     string
	Identity *auth.User
	Flashes  []Flash
	Form     *form
	Page     *blog.Page
	Post     *blog.PostView
	Next     string
	Token    string
	Status   int
	Message  string
}

func parsePages() (map[string]*template.Template, error) {
	files, err := fs.Glob(templateFS, "templates/*.page.html")
	if err != nil {
		return nil, oops.Code("WEB_TEMPLATE_FAILED").Wrap(err)
	}
	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(strings.TrimPrefix(file, "templates/"), ".page.html")
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, layoutFile, file)
		if err != nil {
			return nil, oops.Code("WEB_TEMPLATE_FAILED").With("template", file).Wrap(err)
		}
		pages[name] = t
	}
	return pages, nil
}

// render executes a page into a buffer first so a template failure never
// leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data *pageData) {
	if data == nil {
		data = &pageData{}
	}
	data.Path = r.URL.Path
	data.Identity = identityFrom(r.Context())
	data.Flashes = append(s.popFlashes(w, r), data.Flashes...)

	t, ok := s.pages[page]
	if !ok {
		s.serverError(w, r, oops.Code("WEB_TEMPLATE_MISSING").With("page", page).Errorf("no such page"))
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		s.serverError(w, r, oops.Code("WEB_RENDER_FAILED").With("page", page).Wrap(err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// serverError logs err and answers 500 without rendering templates.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	errutil.LogError(s.logger.With("request_id", RequestID(r.Context())), "request failed", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// unavailable logs err and answers 503 so clients retry instead of treating
// the failure as a logout.
func (s *Server) unavailable(w http.ResponseWriter, r *http.Request, err error) {
	errutil.LogError(s.logger.With("request_id", RequestID(r.Context())), "session lookup failed", err)
	w.Header().Set("Retry-After", "5")
	http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
}

// errorPage renders the error template with status.
func (s *Server) errorPage(w http.ResponseWriter, r *http.Request, status int) {
	s.render(w, r, status, pageError, &pageData{
		Title:   http.StatusText(status),
		Status:  status,
		Message: errorMessages[status],
	})
}

func avatarURL(name string) string {
	if name == "" {
		name = auth.DefaultImageFile
	}
	return "/avatars/" + url.PathEscape(name)
}
