package strapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/winstonacademy/crm-gateway/internal"
)

func TestStrapi(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Strapi Client Suite")
}

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient(Config{
		BaseURL:        server.URL,
		RequestTimeout: 5 * time.Second,
	}, slog.Default())
	return client, server
}

var _ = ginkgo.Describe("Client", func() {
	ginkgo.Describe("Login", func() {
		ginkgo.It("should return the jwt and raw user on success", func() {
			client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gomega.Expect(r.Method).To(gomega.Equal(http.MethodPost))
				gomega.Expect(r.URL.Path).To(gomega.Equal("/api/auth/local"))

				var req map[string]string
				gomega.Expect(json.NewDecoder(r.Body).Decode(&req)).To(gomega.Succeed())
				gomega.Expect(req["identifier"]).To(gomega.Equal("jdoe@winston.edu"))

				json.NewEncoder(w).Encode(map[string]any{
					"jwt":  "token-123",
					"user": map[string]any{"id": 7, "email": "jdoe@winston.edu"},
				})
			}))
			defer server.Close()

			jwt, user, err := client.Login(context.Background(), "jdoe@winston.edu", "pw")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(jwt).To(gomega.Equal("token-123"))
			gomega.Expect(user).To(gomega.HaveKeyWithValue("email", "jdoe@winston.edu"))
		})

		ginkgo.It("should reject a success body without a jwt", func() {
			client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"user": map[string]any{"id": 7}})
			}))
			defer server.Close()

			_, _, err := client.Login(context.Background(), "jdoe@winston.edu", "pw")

			gomega.Expect(errors.Is(err, internal.ErrLoginFailed)).To(gomega.BeTrue())
		})

		ginkgo.DescribeTable("error body shapes",
			func(body string) {
				client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusBadRequest)
					w.Write([]byte(body))
				}))
				defer server.Close()

				_, _, err := client.Login(context.Background(), "jdoe@winston.edu", "pw")

				gomega.Expect(errors.Is(err, internal.ErrAccountBlocked)).To(gomega.BeTrue())
			},
			ginkgo.Entry("nested error envelope", `{"error":{"message":"Your account has been blocked by an administrator"}}`),
			ginkgo.Entry("flat message", `{"message":"Your account has been blocked by an administrator"}`),
			ginkgo.Entry("raw text body", `account blocked`),
		)

		ginkgo.It("should map an unconfirmed email", func() {
			client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":{"message":"Your account email is not confirmed"}}`))
			}))
			defer server.Close()

			_, _, err := client.Login(context.Background(), "jdoe@winston.edu", "pw")

			gomega.Expect(errors.Is(err, internal.ErrEmailUnconfirmed)).To(gomega.BeTrue())
		})

		ginkgo.It("should map bad credentials", func() {
			client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":{"message":"Invalid identifier or password"}}`))
			}))
			defer server.Close()

			_, _, err := client.Login(context.Background(), "jdoe@winston.edu", "wrong")

			gomega.Expect(errors.Is(err, internal.ErrInvalidCredentials)).To(gomega.BeTrue())
		})

		ginkgo.It("should fall back to invalid credentials on a bare 400", func() {
			client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			}))
			defer server.Close()

			_, _, err := client.Login(context.Background(), "jdoe@winston.edu", "wrong")

			gomega.Expect(errors.Is(err, internal.ErrInvalidCredentials)).To(gomega.BeTrue())
		})

		ginkgo.It("should report an unreachable backend distinctly", func() {
			client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			server.Close()

			_, _, err := client.Login(context.Background(), "jdoe@winston.edu", "pw")

			gomega.Expect(errors.Is(err, internal.ErrUpstreamUnavailable)).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("GetUser", func() {
		ginkgo.It("should fetch the populated profile with the bearer token", func() {
			client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gomega.Expect(r.URL.Path).To(gomega.Equal("/api/users/7"))
				gomega.Expect(r.URL.Query().Get("populate")).To(gomega.Equal("*"))
				gomega.Expect(r.Header.Get("Authorization")).To(gomega.Equal("Bearer token-123"))

				json.NewEncoder(w).Encode(map[string]any{"id": 7, "username": "jdoe"})
			}))
			defer server.Close()

			user, err := client.GetUser(context.Background(), "token-123", 7)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(user).To(gomega.HaveKeyWithValue("username", "jdoe"))
		})

		ginkgo.It("should unwrap a data envelope", func() {
			client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"data": map[string]any{"id": 7, "username": "jdoe"},
				})
			}))
			defer server.Close()

			user, err := client.GetUser(context.Background(), "token-123", 7)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(user).To(gomega.HaveKeyWithValue("username", "jdoe"))
		})

		ginkgo.It("should surface a 401 as the unauthorized sentinel", func() {
			client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer server.Close()

			_, err := client.GetUser(context.Background(), "stale-token", 7)

			gomega.Expect(errors.Is(err, internal.ErrUnauthorized)).To(gomega.BeTrue())
		})

		ginkgo.It("should report other failures as upstream errors", func() {
			client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer server.Close()

			_, err := client.GetUser(context.Background(), "token-123", 7)

			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(errors.Is(err, internal.ErrUnauthorized)).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("content API", func() {
		ginkgo.It("should forward the query string on list", func() {
			client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gomega.Expect(r.URL.Path).To(gomega.Equal("/api/students"))
				gomega.Expect(r.URL.Query().Get("pagination[page]")).To(gomega.Equal("2"))
				gomega.Expect(r.Header.Get("Authorization")).To(gomega.Equal("Bearer token-123"))

				w.Write([]byte(`{"data":[],"meta":{}}`))
			}))
			defer server.Close()

			query := url.Values{}
			query.Set("pagination[page]", "2")
			body, err := client.ListDocuments(context.Background(), "token-123", "students", query)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(string(body)).To(gomega.ContainSubstring(`"data"`))
		})

		ginkgo.It("should wrap create payloads in the data envelope", func() {
			client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gomega.Expect(r.Method).To(gomega.Equal(http.MethodPost))

				var req struct {
					Data map[string]any `json:"data"`
				}
				gomega.Expect(json.NewDecoder(r.Body).Decode(&req)).To(gomega.Succeed())
				gomega.Expect(req.Data).To(gomega.HaveKeyWithValue("name", "Lee Academy"))

				w.Write([]byte(`{"data":{"id":1}}`))
			}))
			defer server.Close()

			_, err := client.CreateDocument(context.Background(), "token-123", "agencies", json.RawMessage(`{"name":"Lee Academy"}`))

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
		})

		ginkgo.It("should map a 403 onto the forbidden sentinel", func() {
			client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			}))
			defer server.Close()

			_, err := client.GetDocument(context.Background(), "token-123", "users", "1")

			gomega.Expect(errors.Is(err, internal.ErrForbidden)).To(gomega.BeTrue())
		})
	})
})
