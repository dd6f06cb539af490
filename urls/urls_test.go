package urls_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Sholola-Gbolahan/esmerald"
	"github.com/Sholola-Gbolahan/esmerald/urls"
)

type pingResp struct {
	Message string `json:"message"`
}

func ping(_ context.Context, _ *esmerald.Void) (*pingResp, error) {
	return &pingResp{Message: "pong"}, nil
}

var _ = Describe("Registry", func() {
	var reg *urls.Registry

	BeforeEach(func() {
		reg = urls.NewRegistry()
	})

	Describe("Include", func() {
		It("returns the default pattern when none is named", func() {
			routes := []esmerald.Route{esmerald.Get("/ping", ping)}
			reg.RegisterDefault("accounts.routes", routes)

			got, err := reg.Include("accounts.routes")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0].Path()).To(Equal("/ping"))
		})

		It("treats an empty pattern name as the default", func() {
			reg.RegisterDefault("accounts/routes", []esmerald.Route{esmerald.Get("/ping", ping)})

			got, err := reg.Include("accounts/routes", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
		})

		It("returns a named pattern", func() {
			reg.RegisterDefault("accounts.routes", []esmerald.Route{esmerald.Get("/a", ping)})
			reg.Register("accounts.routes", "admin_urls", []esmerald.Route{
				esmerald.Get("/b", ping),
				esmerald.Get("/c", ping),
			})

			got, err := reg.Include("accounts.routes", "admin_urls")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(2))
			Expect(got[1].Path()).To(Equal("/c"))
		})

		It("accepts slices of concrete route types", func() {
			reg.RegisterDefault("accounts.routes", []*esmerald.Gateway{esmerald.Get("/ping", ping)})

			got, err := reg.Include("accounts.routes")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
		})

		It("returns a copy of the registered list", func() {
			routes := []esmerald.Route{esmerald.Get("/ping", ping)}
			reg.RegisterDefault("accounts.routes", routes)

			got, err := reg.Include("accounts.routes")
			Expect(err).NotTo(HaveOccurred())
			got[0] = esmerald.Get("/other", ping)
			Expect(routes[0].Path()).To(Equal("/ping"))
		})

		DescribeTable("accepts module names",
			func(namespace string) {
				reg.RegisterDefault(namespace, []esmerald.Route{esmerald.Get("/ping", ping)})

				got, err := reg.Include(namespace)
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(HaveLen(1))
			},
			Entry("single segment", "routes"),
			Entry("dotted", "accounts.api.routes"),
			Entry("slashed", "accounts/routes"),
		)

		DescribeTable("rejects malformed namespaces",
			func(namespace string) {
				_, err := reg.Include(namespace)
				Expect(err).To(MatchError(esmerald.ErrImproperlyConfigured))
				Expect(err.Error()).To(ContainSubstring("The value should be a string with the format <module>.<file>"))
			},
			Entry("empty", ""),
			Entry("trailing dot", "accounts."),
			Entry("leading slash", "/accounts"),
			Entry("empty segment", "accounts..routes"),
			Entry("whitespace", "accounts. routes"),
		)

		It("reports a missing pattern", func() {
			reg.RegisterDefault("accounts.routes", []esmerald.Route{esmerald.Get("/ping", ping)})

			_, err := reg.Include("accounts.routes", "nope")
			Expect(err).To(MatchError(esmerald.ErrImproperlyConfigured))
			Expect(err.Error()).To(ContainSubstring(
				"There is no pattern nope found in accounts.routes. Are you sure you configured it correctly?"))
		})

		It("reports an unknown namespace", func() {
			_, err := reg.Include("billing.routes")
			Expect(err).To(MatchError(ContainSubstring("There is no pattern route_patterns found in billing.routes")))
		})

		It("treats an empty list as missing", func() {
			reg.RegisterDefault("accounts.routes", []esmerald.Route{})

			_, err := reg.Include("accounts.routes")
			Expect(err).To(MatchError(ContainSubstring("There is no pattern route_patterns")))
		})

		It("rejects values that are not route lists", func() {
			reg.RegisterDefault("accounts.routes", "not routes")

			_, err := reg.Include("accounts.routes")
			Expect(err).To(MatchError(esmerald.ErrImproperlyConfigured))
			Expect(err.Error()).To(ContainSubstring("should be a list and not string"))
		})

		It("rejects slices of other types", func() {
			reg.RegisterDefault("accounts.routes", []string{"/ping"})

			_, err := reg.Include("accounts.routes")
			Expect(err).To(MatchError(ContainSubstring("should be a list and not []string")))
		})
	})

	Describe("MustInclude", func() {
		It("panics on a missing pattern", func() {
			Expect(func() { reg.MustInclude("accounts.routes") }).To(Panic())
		})
	})

	Describe("Namespaces", func() {
		It("lists registered namespaces in order", func() {
			reg.RegisterDefault("b.routes", []esmerald.Route{esmerald.Get("/b", ping)})
			reg.RegisterDefault("a.routes", []esmerald.Route{esmerald.Get("/a", ping)})
			Expect(reg.Namespaces()).To(Equal([]string{"a.routes", "b.routes"}))
		})
	})

	Describe("mounting", func() {
		It("serves included routes under an include prefix", func() {
			reg.RegisterDefault("accounts.routes", []esmerald.Route{esmerald.Get("/ping", ping)})

			r := esmerald.New()
			Expect(r.Add(esmerald.NewInclude("/accounts", reg.MustInclude("accounts.routes")))).To(Succeed())

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts/ping", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"pong"`))

			spec := r.Spec()
			Expect(spec.Paths).To(HaveKey("/accounts/ping"))
		})
	})
})

var _ = Describe("default registry", func() {
	It("is shared by the package functions", func() {
		urls.Register("shared.routes", "extra", []esmerald.Route{esmerald.Get("/x", ping)})

		got, err := urls.Include("shared.routes", "extra")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(1))
		Expect(urls.Default().Namespaces()).To(ContainElement("shared.routes"))
		Expect(urls.MustInclude("shared.routes", "extra")).To(HaveLen(1))
	})
})
