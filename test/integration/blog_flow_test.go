// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

//go:build integration

package integration_test

import (
	"fmt"
	"net/http"
	"net/url"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/inkwell/inkwell/internal/store"
)

var _ = Describe("Schema", func() {
	It("is fully migrated", func() {
		m, err := store.NewMigrator(env.connStr)
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = m.Close() }()

		st, err := m.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Dirty).To(BeFalse())
		Expect(st.Version).To(BeEquivalentTo(3))
		Expect(st.Applied).To(HaveLen(3))
		Expect(st.Pending).To(BeEmpty())
	})
})

var _ = Describe("Blog flow", Ordered, func() {
	var b *browser

	BeforeAll(func() {
		b = newBrowser()
	})

	It("registers an account", func() {
		resp := b.post("/register", url.Values{
			"username":         {"carol"},
			"email":            {"Carol@Example.com"},
			"password":         {"first-pass"},
			"confirm_password": {"first-pass"},
		})
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
		Expect(resp.Header.Get("Location")).To(Equal("/login"))
	})

	It("rejects a duplicate email regardless of case", func() {
		resp := b.post("/register", url.Values{
			"username":         {"carol2"},
			"email":            {"carol@example.com"},
			"password":         {"pw"},
			"confirm_password": {"pw"},
		})
		Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
		Expect(resp.Body).To(ContainSubstring("That email is taken."))
	})

	It("logs in and publishes posts", func() {
		resp := b.post("/login", url.Values{"email": {"carol@example.com"}, "password": {"first-pass"}})
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))

		for i := 1; i <= 6; i++ {
			resp = b.post("/post/new", url.Values{
				"title":   {fmt.Sprintf("Entry %d", i)},
				"content": {"Written against postgres."},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
		}

		home := b.get("/")
		Expect(home.StatusCode).To(Equal(http.StatusOK))
		Expect(home.Body).To(ContainSubstring("Entry 6"))
		Expect(home.Body).NotTo(ContainSubstring("Entry 1<"))

		page2 := b.get("/?page=2")
		Expect(page2.Body).To(ContainSubstring("Entry 1"))
	})

	It("resets the password and revokes the old session", func() {
		guest := newBrowser()
		resp := guest.post("/reset_password", url.Values{"email": {"carol@example.com"}})
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))

		token := env.outbox.lastResetToken()
		resp = guest.post("/reset_password/"+token, url.Values{
			"password":         {"second-pass"},
			"confirm_password": {"second-pass"},
		})
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))

		Expect(b.get("/account").StatusCode).To(Equal(http.StatusFound))

		bad := guest.post("/login", url.Values{"email": {"carol@example.com"}, "password": {"first-pass"}})
		Expect(bad.StatusCode).To(Equal(http.StatusUnauthorized))
		good := guest.post("/login", url.Values{"email": {"carol@example.com"}, "password": {"second-pass"}})
		Expect(good.StatusCode).To(Equal(http.StatusSeeOther))
	})

	It("sweeps nothing while sessions are live", func() {
		n, err := env.auth.DeleteExpiredSessions(env.ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
	})
})
