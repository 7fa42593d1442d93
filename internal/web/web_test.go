// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package web_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/web"
)

var _ = Describe("Registration", func() {
	var e *env

	BeforeEach(func() {
		e = newEnv()
	})

	It("creates the account and sends the user to the login page", func() {
		resp := e.register("alice", "alice@example.com", "pw123")
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
		Expect(resp.Header.Get("Location")).To(Equal("/login"))
		Expect(e.users.Len()).To(Equal(1))

		page := e.get("/login")
		Expect(page.Body).To(ContainSubstring("Your account has been created!"))

		again := e.get("/login")
		Expect(again.Body).NotTo(ContainSubstring("Your account has been created!"))
		Expect(testutil.ToFloat64(e.metrics.RegistrationsTotal.WithLabelValues("success"))).To(Equal(1.0))
	})

	It("rejects a taken email and keeps the existing record", func() {
		Expect(e.register("alice", "alice@example.com", "pw123").StatusCode).To(Equal(http.StatusSeeOther))

		resp := e.register("bob", "alice@example.com", "pw456")
		Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
		Expect(resp.Body).To(ContainSubstring("That email is taken"))
		Expect(e.users.Len()).To(Equal(1))

		stored, err := e.users.GetByEmail(context.Background(), "alice@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Username).To(Equal("alice"))
		Expect(testutil.ToFloat64(e.metrics.RegistrationsTotal.WithLabelValues("taken"))).To(Equal(1.0))
	})

	It("rejects a taken username", func() {
		Expect(e.register("alice", "alice@example.com", "pw123").StatusCode).To(Equal(http.StatusSeeOther))

		resp := e.register("alice", "other@example.com", "pw456")
		Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
		Expect(resp.Body).To(ContainSubstring("That username is taken"))
	})

	It("rejects a mismatched confirmation without creating the user", func() {
		resp := e.post("/register", url.Values{
			"username":         {"alice"},
			"email":            {"alice@example.com"},
			"password":         {"pw123"},
			"confirm_password": {"pw124"},
		})
		Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
		Expect(resp.Body).To(ContainSubstring("Field must be equal to password."))
		Expect(e.users.Len()).To(Equal(0))
	})

	It("rejects an invalid email", func() {
		resp := e.register("alice", "not-an-email", "pw123")
		Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
		Expect(resp.Body).To(ContainSubstring("Invalid email address."))
	})
})

var _ = Describe("Login and logout", func() {
	var e *env

	BeforeEach(func() {
		e = newEnv()
		Expect(e.register("alice", "alice@example.com", "pw123").StatusCode).To(Equal(http.StatusSeeOther))
	})

	It("binds a browser-session cookie on success", func() {
		resp := e.login("alice@example.com", "pw123", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
		Expect(resp.Header.Get("Location")).To(Equal("/"))

		c := sessionCookie(resp)
		Expect(c).NotTo(BeNil())
		Expect(c.HttpOnly).To(BeTrue())
		Expect(c.SameSite).To(Equal(http.SameSiteLaxMode))
		Expect(c.MaxAge).To(BeZero())
		Expect(c.Expires.IsZero()).To(BeTrue())
		Expect(e.sessions.Len()).To(Equal(1))

		account := e.get("/account")
		Expect(account.StatusCode).To(Equal(http.StatusOK))
		Expect(account.Body).To(ContainSubstring("alice@example.com"))
		Expect(testutil.ToFloat64(e.metrics.LoginsTotal.WithLabelValues("success"))).To(Equal(1.0))
	})

	It("persists the cookie when remember is checked", func() {
		resp := e.login("alice@example.com", "pw123", url.Values{"remember": {"y"}})
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))

		c := sessionCookie(resp)
		Expect(c).NotTo(BeNil())
		Expect(c.MaxAge).To(Equal(int(auth.DefaultRememberTTL / time.Second)))
	})

	It("rejects a wrong password without creating a session", func() {
		resp := e.login("alice@example.com", "wrong", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(resp.Body).To(ContainSubstring("Login Unsuccessful"))
		Expect(sessionCookie(resp)).To(BeNil())
		Expect(e.sessions.Len()).To(Equal(0))
		Expect(testutil.ToFloat64(e.metrics.LoginsTotal.WithLabelValues("failure"))).To(Equal(1.0))
	})

	It("answers an unknown email exactly like a wrong password", func() {
		resp := e.login("nobody@example.com", "pw123", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(resp.Body).To(ContainSubstring("Login Unsuccessful"))
	})

	It("locks the account after repeated failures without revealing the password check", func() {
		for range auth.LockoutThreshold {
			Expect(e.login("alice@example.com", "wrong", nil).StatusCode).To(Equal(http.StatusUnauthorized))
		}
		locked := e.login("alice@example.com", "pw123", nil)
		wrong := e.login("alice@example.com", "wrong", nil)
		Expect(locked.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(wrong.StatusCode).To(Equal(locked.StatusCode))
		Expect(locked.Body).To(ContainSubstring("Login Unsuccessful"))
		Expect(wrong.Body).To(Equal(locked.Body))
		Expect(sessionCookie(locked)).To(BeNil())
		Expect(e.sessions.Len()).To(Equal(0))
		Expect(testutil.ToFloat64(e.metrics.LoginsTotal.WithLabelValues("locked"))).To(Equal(2.0))

		e.clock.Advance(auth.LockoutDuration + time.Second)
		Expect(e.login("alice@example.com", "pw123", nil).StatusCode).To(Equal(http.StatusSeeOther))
	})

	It("ends the session on logout", func() {
		Expect(e.login("alice@example.com", "pw123", nil).StatusCode).To(Equal(http.StatusSeeOther))

		resp := e.get("/logout")
		Expect(resp.StatusCode).To(Equal(http.StatusFound))
		Expect(resp.Header.Get("Location")).To(Equal("/"))
		Expect(e.sessions.Len()).To(Equal(0))

		account := e.get("/account")
		Expect(account.StatusCode).To(Equal(http.StatusFound))
		Expect(account.Header.Get("Location")).To(Equal("/login?next=%2Faccount"))
	})

	It("keeps the session cookie when the session store is down", func() {
		Expect(e.login("alice@example.com", "pw123", nil).StatusCode).To(Equal(http.StatusSeeOther))

		e.sessions.FailLookups(auth.StorageError("get session by token hash", errors.New("connection refused")))
		resp := e.get("/account")
		Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		Expect(resp.Header.Get("Retry-After")).NotTo(BeEmpty())
		Expect(sessionCookie(resp)).To(BeNil())
		Expect(e.sessions.Len()).To(Equal(1))

		e.sessions.FailLookups(nil)
		Expect(e.get("/account").StatusCode).To(Equal(http.StatusOK))
	})

	It("drops the identity once the session expires", func() {
		Expect(e.login("alice@example.com", "pw123", nil).StatusCode).To(Equal(http.StatusSeeOther))
		e.clock.Advance(auth.DefaultSessionTTL)

		resp := e.get("/account")
		Expect(resp.StatusCode).To(Equal(http.StatusFound))
		Expect(e.sessions.Len()).To(Equal(0))
	})
})

var _ = Describe("Gate", func() {
	var e *env

	BeforeEach(func() {
		e = newEnv()
	})

	It("sends anonymous users to login with the requested URI", func() {
		resp := e.get("/account?tab=1")
		Expect(resp.StatusCode).To(Equal(http.StatusFound))
		Expect(resp.Header.Get("Location")).To(Equal("/login?next=%2Faccount%3Ftab%3D1"))

		login := e.get(resp.Header.Get("Location"))
		Expect(login.Body).To(ContainSubstring("Please log in to access this page."))
		Expect(login.Body).To(ContainSubstring(`name="next" value="/account?tab=1"`))
	})

	It("follows a local next after login", func() {
		Expect(e.register("alice", "alice@example.com", "pw123").StatusCode).To(Equal(http.StatusSeeOther))

		resp := e.login("alice@example.com", "pw123", url.Values{"next": {"/account?tab=1"}})
		Expect(resp.Header.Get("Location")).To(Equal("/account?tab=1"))
	})

	DescribeTable("ignores an unsafe next",
		func(next string) {
			Expect(e.register("alice", "alice@example.com", "pw123").StatusCode).To(Equal(http.StatusSeeOther))

			resp := e.login("alice@example.com", "pw123", url.Values{"next": {next}})
			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
			Expect(resp.Header.Get("Location")).To(Equal("/"))
		},
		Entry("scheme-relative", "//evil.com"),
		Entry("absolute", "https://evil.com/account"),
		Entry("backslash", `/\evil.com`),
	)

	DescribeTable("sends authenticated users away from guest pages",
		func(path string) {
			e.signIn()
			resp := e.get(path)
			Expect(resp.StatusCode).To(Equal(http.StatusFound))
			Expect(resp.Header.Get("Location")).To(Equal("/"))
		},
		Entry("login", "/login"),
		Entry("register", "/register"),
		Entry("reset request", "/reset_password"),
		Entry("reset token", "/reset_password/anything"),
	)
})

var _ = Describe("Posts", func() {
	var e *env

	BeforeEach(func() {
		e = newEnv()
	})

	It("creates and shows a post", func() {
		e.signIn()

		resp := e.post("/post/new", url.Values{"title": {"First"}, "content": {"Hello <world>"}})
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
		Expect(resp.Header.Get("Location")).To(Equal("/"))

		home := e.get("/")
		Expect(home.StatusCode).To(Equal(http.StatusOK))
		Expect(home.Body).To(ContainSubstring("Your post has been created!"))
		Expect(home.Body).To(ContainSubstring("First"))

		view := e.get("/post/1")
		Expect(view.StatusCode).To(Equal(http.StatusOK))
		Expect(view.Body).To(ContainSubstring("Hello &lt;world&gt;"))
		Expect(view.Body).To(ContainSubstring("alice"))
	})

	It("rejects an empty title", func() {
		e.signIn()

		resp := e.post("/post/new", url.Values{"title": {"  "}, "content": {"body"}})
		Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
		Expect(resp.Body).To(ContainSubstring("Title must be"))
	})

	It("requires an identity to post", func() {
		resp := e.post("/post/new", url.Values{"title": {"x"}, "content": {"y"}})
		Expect(resp.StatusCode).To(Equal(http.StatusFound))
		Expect(resp.Header.Get("Location")).To(Equal("/login?next=%2Fpost%2Fnew"))
	})

	DescribeTable("answers 404 for missing posts",
		func(path string) {
			Expect(e.get(path).StatusCode).To(Equal(http.StatusNotFound))
		},
		Entry("unknown id", "/post/999"),
		Entry("non-numeric id", "/post/abc"),
		Entry("zero id", "/post/0"),
		Entry("unknown route", "/nowhere"),
	)

	It("pages the listing five at a time, newest first", func() {
		e.signIn()
		user, err := e.users.GetByEmail(context.Background(), "alice@example.com")
		Expect(err).NotTo(HaveOccurred())
		for i := 1; i <= 6; i++ {
			_, err := e.blog.Create(context.Background(), user.ID, fmt.Sprintf("Post %d", i), "content")
			Expect(err).NotTo(HaveOccurred())
			e.clock.Advance(time.Minute)
		}

		first := e.get("/home")
		Expect(first.StatusCode).To(Equal(http.StatusOK))
		Expect(first.Body).To(ContainSubstring("Post 6"))
		Expect(first.Body).To(ContainSubstring("Post 2"))
		Expect(first.Body).NotTo(ContainSubstring("Post 1"))
		Expect(strings.Index(first.Body, "Post 6")).To(BeNumerically("<", strings.Index(first.Body, "Post 5")))

		second := e.get("/?page=2")
		Expect(second.StatusCode).To(Equal(http.StatusOK))
		Expect(second.Body).To(ContainSubstring("Post 1"))
		Expect(second.Body).NotTo(ContainSubstring("Post 2"))

		Expect(e.get("/?page=3").StatusCode).To(Equal(http.StatusNotFound))
		Expect(e.get("/?page=junk").StatusCode).To(Equal(http.StatusOK))
	})

	It("serves an empty front page", func() {
		resp := e.get("/")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Body).To(ContainSubstring("No posts yet."))
	})

	It("serves the about page", func() {
		resp := e.get("/about")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Body).To(ContainSubstring("About Page"))
	})
})

var _ = Describe("Account", func() {
	var e *env

	BeforeEach(func() {
		e = newEnv()
		e.signIn()
	})

	It("updates the profile and thumbnails the picture", func() {
		resp := e.postMultipart("/account",
			map[string]string{"username": "alice2", "email": "alice2@example.com"},
			"picture", "me.png", pngBytes(640, 480))
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
		Expect(resp.Header.Get("Location")).To(Equal("/account"))

		user, err := e.users.GetByEmail(context.Background(), "alice2@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(user.Username).To(Equal("alice2"))
		Expect(user.ImageFile).To(MatchRegexp(`^[0-9a-f]{16}\.png$`))

		page := e.get("/account")
		Expect(page.Body).To(ContainSubstring("Your account has been updated!"))
		Expect(page.Body).To(ContainSubstring("/avatars/" + user.ImageFile))

		img := e.get("/avatars/" + user.ImageFile)
		Expect(img.StatusCode).To(Equal(http.StatusOK))
		Expect(img.Header.Get("Content-Type")).To(Equal("image/png"))
		cfg, format, err := image.DecodeConfig(bytes.NewReader([]byte(img.Body)))
		Expect(err).NotTo(HaveOccurred())
		Expect(format).To(Equal("png"))
		Expect(cfg.Width).To(Equal(125))
		Expect(cfg.Height).To(Equal(94))
	})

	It("accepts an update without a picture", func() {
		resp := e.post("/account", url.Values{"username": {"alice"}, "email": {"new@example.com"}})
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))

		user, err := e.users.GetByEmail(context.Background(), "new@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(user.ImageFile).To(Equal(auth.DefaultImageFile))
	})

	It("rejects an unsupported picture type", func() {
		resp := e.postMultipart("/account",
			map[string]string{"username": "alice", "email": "alice@example.com"},
			"picture", "me.gif", []byte("GIF89a"))
		Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
		Expect(resp.Body).To(ContainSubstring("approved extension"))
	})

	It("rejects an email owned by someone else", func() {
		e.logout()
		Expect(e.register("bob", "bob@example.com", "pw456").StatusCode).To(Equal(http.StatusSeeOther))
		Expect(e.login("alice@example.com", "pw123", nil).StatusCode).To(Equal(http.StatusSeeOther))

		resp := e.post("/account", url.Values{"username": {"alice"}, "email": {"bob@example.com"}})
		Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
		Expect(resp.Body).To(ContainSubstring("That email is taken"))
	})

	It("serves the shared default avatar", func() {
		resp := e.get("/avatars/" + auth.DefaultImageFile)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(Equal("image/jpeg"))
	})

	It("does not serve names outside the avatar namespace", func() {
		Expect(e.get("/avatars/secret.txt").StatusCode).To(Equal(http.StatusNotFound))
		Expect(e.get("/avatars/0123456789abcdef.png").StatusCode).To(Equal(http.StatusNotFound))
	})
})

var _ = Describe("Password reset", func() {
	var e *env

	BeforeEach(func() {
		e = newEnv()
		Expect(e.register("alice", "alice@example.com", "pw123").StatusCode).To(Equal(http.StatusSeeOther))
	})

	It("mails a link that sets a new password and ends old sessions", func() {
		Expect(e.login("alice@example.com", "pw123", nil).StatusCode).To(Equal(http.StatusSeeOther))
		Expect(e.sessions.Len()).To(Equal(1))
		e.logout()
		Expect(e.login("alice@example.com", "pw123", nil).StatusCode).To(Equal(http.StatusSeeOther))
		// Keep the session but browse anonymously.
		e.client.Jar.SetCookies(mustURL(e.server.URL), []*http.Cookie{{Name: web.SessionCookieName, Value: "", MaxAge: -1}})

		resp := e.post("/reset_password", url.Values{"email": {"alice@example.com"}})
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
		Expect(resp.Header.Get("Location")).To(Equal("/login"))

		msgs := e.mail.Messages()
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].To).To(Equal([]string{"alice@example.com"}))
		Expect(msgs[0].Body).To(ContainSubstring("http://inkwell.test/reset_password/"))
		token := e.lastResetToken()

		form := e.get("/reset_password/" + token)
		Expect(form.StatusCode).To(Equal(http.StatusOK))

		done := e.post("/reset_password/"+token, url.Values{"password": {"fresh"}, "confirm_password": {"fresh"}})
		Expect(done.StatusCode).To(Equal(http.StatusSeeOther))
		Expect(done.Header.Get("Location")).To(Equal("/login"))
		Expect(e.sessions.Len()).To(Equal(0))

		Expect(e.login("alice@example.com", "pw123", nil).StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(e.login("alice@example.com", "fresh", nil).StatusCode).To(Equal(http.StatusSeeOther))
		Expect(testutil.ToFloat64(e.metrics.PasswordResetsTotal.WithLabelValues("reset", "success"))).To(Equal(1.0))
	})

	It("lifts a login lockout", func() {
		for range auth.LockoutThreshold {
			Expect(e.login("alice@example.com", "wrong", nil).StatusCode).To(Equal(http.StatusUnauthorized))
		}
		Expect(e.login("alice@example.com", "pw123", nil).StatusCode).To(Equal(http.StatusUnauthorized))

		Expect(e.post("/reset_password", url.Values{"email": {"alice@example.com"}}).StatusCode).To(Equal(http.StatusSeeOther))
		token := e.lastResetToken()
		done := e.post("/reset_password/"+token, url.Values{"password": {"fresh"}, "confirm_password": {"fresh"}})
		Expect(done.StatusCode).To(Equal(http.StatusSeeOther))

		Expect(e.login("alice@example.com", "fresh", nil).StatusCode).To(Equal(http.StatusSeeOther))
	})

	It("answers an unknown email the same way without sending mail", func() {
		resp := e.post("/reset_password", url.Values{"email": {"nobody@example.com"}})
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
		Expect(resp.Header.Get("Location")).To(Equal("/login"))
		Expect(e.mail.Messages()).To(BeEmpty())
	})

	It("sends an invalid token back to the request form", func() {
		resp := e.get("/reset_password/not-a-token")
		Expect(resp.StatusCode).To(Equal(http.StatusFound))
		Expect(resp.Header.Get("Location")).To(Equal("/reset_password"))

		form := e.get("/reset_password")
		Expect(form.Body).To(ContainSubstring("That is an invalid or expired token"))
	})

	It("rejects a mismatched confirmation", func() {
		Expect(e.post("/reset_password", url.Values{"email": {"alice@example.com"}}).StatusCode).To(Equal(http.StatusSeeOther))
		token := e.lastResetToken()

		resp := e.post("/reset_password/"+token, url.Values{"password": {"a"}, "confirm_password": {"b"}})
		Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
		Expect(e.login("alice@example.com", "pw123", nil).StatusCode).To(Equal(http.StatusSeeOther))
	})
})

var _ = Describe("Request ids", func() {
	var e *env

	BeforeEach(func() {
		e = newEnv()
	})

	It("echoes a valid incoming id", func() {
		id := uuid.NewString()
		req, err := http.NewRequest(http.MethodGet, e.server.URL+"/about", nil)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set(web.RequestIDHeader, id)

		resp := e.do(req)
		Expect(resp.Header.Get(web.RequestIDHeader)).To(Equal(id))
	})

	It("assigns a version 7 id otherwise", func() {
		resp := e.get("/about")
		id, err := uuid.Parse(resp.Header.Get(web.RequestIDHeader))
		Expect(err).NotTo(HaveOccurred())
		Expect(id.Version()).To(Equal(uuid.Version(7)))
	})

	It("counts requests by route pattern", func() {
		e.get("/post/999")
		Expect(testutil.ToFloat64(e.metrics.HTTPRequestsTotal.WithLabelValues("GET /post/{id}", "404"))).To(Equal(1.0))
	})
})

func mustURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}
