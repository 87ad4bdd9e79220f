package localstore

import (
	"path/filepath"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestLocalStore(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Local Store Suite")
}

var _ = ginkgo.Describe("SQLiteStore", func() {
	var store *SQLiteStore

	ginkgo.BeforeEach(func() {
		path := filepath.Join(ginkgo.GinkgoT().TempDir(), "session.db")
		var err error
		store, err = Open(path)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
	})

	ginkgo.AfterEach(func() {
		gomega.Expect(store.Close()).To(gomega.Succeed())
	})

	ginkgo.It("should report absence for unknown keys", func() {
		_, ok, err := store.Get("missing")

		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(ok).To(gomega.BeFalse())
	})

	ginkgo.It("should round-trip a value", func() {
		gomega.Expect(store.Set("real_backend_token", "token-123")).To(gomega.Succeed())

		value, ok, err := store.Get("real_backend_token")

		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(value).To(gomega.Equal("token-123"))
	})

	ginkgo.It("should overwrite on repeated set", func() {
		gomega.Expect(store.Set("key", "first")).To(gomega.Succeed())
		gomega.Expect(store.Set("key", "second")).To(gomega.Succeed())

		value, _, err := store.Get("key")

		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(value).To(gomega.Equal("second"))
	})

	ginkgo.It("should delete without erroring on repeat", func() {
		gomega.Expect(store.Set("key", "value")).To(gomega.Succeed())
		gomega.Expect(store.Delete("key")).To(gomega.Succeed())
		gomega.Expect(store.Delete("key")).To(gomega.Succeed())

		_, ok, err := store.Get("key")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(ok).To(gomega.BeFalse())
	})
})

var _ = ginkgo.Describe("MemoryStore", func() {
	ginkgo.It("should behave like the sqlite store", func() {
		store := NewMemoryStore()

		gomega.Expect(store.Set("key", "value")).To(gomega.Succeed())
		value, ok, err := store.Get("key")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(value).To(gomega.Equal("value"))

		gomega.Expect(store.Delete("key")).To(gomega.Succeed())
		_, ok, _ = store.Get("key")
		gomega.Expect(ok).To(gomega.BeFalse())
	})
})
