// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package web_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/prometheus/client_golang/prometheus"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/auth/authtest"
	"github.com/inkwell/inkwell/internal/avatar"
	"github.com/inkwell/inkwell/internal/blog"
	"github.com/inkwell/inkwell/internal/blog/blogtest"
	"github.com/inkwell/inkwell/internal/mail"
	"github.com/inkwell/inkwell/internal/observability"
	"github.com/inkwell/inkwell/internal/web"
)

func TestWeb(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Web Flow Suite")
}

// fastParams keeps argon2id cheap across the many logins in this suite.
var fastParams = auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32}

const testSecret = "0123456789abcdef0123456789abcdef"

// outbox records mail instead of sending it.
type outbox struct {
	mu   sync.Mutex
	msgs []mail.Message
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *outbox) Messages() []mail.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]mail.Message(nil), o.msgs...)
}

var resetLinkRegex = regexp.MustCompile(`/reset_password/(\S+)`)

// env is one fully wired server with in-memory stores.
type env struct {
	users    *authtest.UserStore
	sessions *authtest.SessionStore
	clock    *authtest.Clock
	auth     *auth.Service
	blog     *blog.Service
	mail     *outbox
	metrics  *observability.Metrics
	server   *httptest.Server
	client   *http.Client
}

func newEnv() *env {
	e := &env{
		users:    authtest.NewUserStore(),
		sessions: authtest.NewSessionStore(),
		clock:    authtest.NewClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		mail:     &outbox{},
	}
	logger := slog.New(slog.NewTextHandler(GinkgoWriter, nil))

	hasher := auth.NewMultiHasher(auth.NewArgon2idHasherWithParams(fastParams))
	var err error
	e.auth, err = auth.NewAuthService(e.users, e.sessions, hasher,
		auth.WithClock(e.clock.Now), auth.WithLogger(logger))
	Expect(err).NotTo(HaveOccurred())

	e.blog, err = blog.NewService(blogtest.NewPostStore(e.users),
		blog.WithClock(e.clock.Now), blog.WithLogger(logger))
	Expect(err).NotTo(HaveOccurred())

	blobs, err := avatar.NewFSStore(GinkgoT().TempDir())
	Expect(err).NotTo(HaveOccurred())
	avatars, err := avatar.NewService(blobs, avatar.WithLogger(logger))
	Expect(err).NotTo(HaveOccurred())

	accounts, err := auth.NewAccountService(e.users, avatars, logger)
	Expect(err).NotTo(HaveOccurred())

	tokens, err := auth.NewResetTokenService([]byte(testSecret))
	Expect(err).NotTo(HaveOccurred())
	mailer, err := mail.NewResetMailer(e.mail, "noreply@inkwell.test", "http://inkwell.test")
	Expect(err).NotTo(HaveOccurred())
	resets, err := auth.NewPasswordResetService(e.users, tokens, hasher, e.auth, mailer, logger)
	Expect(err).NotTo(HaveOccurred())

	gate, err := auth.NewGate(auth.DefaultLoginPath, nil)
	Expect(err).NotTo(HaveOccurred())

	e.metrics = observability.NewMetrics(prometheus.NewRegistry())

	srv, err := web.NewServer(web.Config{}, web.Deps{
		Auth:     e.auth,
		Accounts: accounts,
		Resets:   resets,
		Gate:     gate,
		Blog:     e.blog,
		Avatars:  avatars,
		Metrics:  e.metrics,
		Logger:   logger,
	})
	Expect(err).NotTo(HaveOccurred())

	e.server = httptest.NewServer(srv.Handler())
	jar, err := cookiejar.New(nil)
	Expect(err).NotTo(HaveOccurred())
	e.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	DeferCleanup(func() {
		e.client.CloseIdleConnections()
		e.server.Close()
	})
	return e
}

// response is a fully read HTTP response.
type response struct {
	*http.Response
	Body string
}

func (e *env) do(req *http.Request) response {
	GinkgoHelper()
	resp, err := e.client.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return response{Response: resp, Body: string(body)}
}

func (e *env) get(path string) response {
	GinkgoHelper()
	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	Expect(err).NotTo(HaveOccurred())
	return e.do(req)
}

func (e *env) post(path string, values url.Values) response {
	GinkgoHelper()
	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, strings.NewReader(values.Encode()))
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

func (e *env) postMultipart(path string, fields map[string]string, fileField, fileName string, content []byte) response {
	GinkgoHelper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		Expect(mw.WriteField(k, v)).To(Succeed())
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		Expect(err).NotTo(HaveOccurred())
		_, err = fw.Write(content)
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(mw.Close()).To(Succeed())

	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, &buf)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req)
}

func (e *env) register(username, email, password string) response {
	GinkgoHelper()
	return e.post("/register", url.Values{
		"username":         {username},
		"email":            {email},
		"password":         {password},
		"confirm_password": {password},
	})
}

func (e *env) login(email, password string, extra url.Values) response {
	GinkgoHelper()
	values := url.Values{"email": {email}, "password": {password}}
	for k, v := range extra {
		values[k] = v
	}
	return e.post("/login", values)
}

// signIn registers and logs in alice.
func (e *env) signIn() {
	GinkgoHelper()
	Expect(e.register("alice", "alice@example.com", "pw123").StatusCode).To(Equal(http.StatusSeeOther))
	Expect(e.login("alice@example.com", "pw123", nil).StatusCode).To(Equal(http.StatusSeeOther))
}

func (e *env) logout() {
	GinkgoHelper()
	Expect(e.get("/logout").StatusCode).To(Equal(http.StatusFound))
}

func (e *env) lastResetToken() string {
	GinkgoHelper()
	msgs := e.mail.Messages()
	Expect(msgs).NotTo(BeEmpty())
	m := resetLinkRegex.FindStringSubmatch(msgs[len(msgs)-1].Body)
	Expect(m).To(HaveLen(2))
	return m[1]
}

func sessionCookie(resp response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == web.SessionCookieName {
			return c
		}
	}
	return nil
}

func pngBytes(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
