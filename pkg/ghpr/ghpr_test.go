package ghpr_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/codescoutco/codescout/pkg/ghpr"
)

func TestGHPR(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "GHPR Suite")
}

var _ = Describe("ParsePRURL", func() {
	It("parses a well-formed PR URL", func() {
		ref, err := ghpr.ParsePRURL("https://github.com/acme/widgets/pull/42")
		Expect(err).NotTo(HaveOccurred())
		Expect(ref.Owner).To(Equal("acme"))
		Expect(ref.Repo).To(Equal("widgets"))
		Expect(ref.Number).To(Equal(42))
	})

	It("derives the clone URL and local directory", func() {
		ref, err := ghpr.ParsePRURL("https://github.com/acme/widgets/pull/7")
		Expect(err).NotTo(HaveOccurred())
		Expect(ref.CloneURL()).To(Equal("https://github.com/acme/widgets.git"))
		Expect(ref.LocalDir()).To(Equal("acme_widgets"))
	})

	DescribeTable("rejects malformed references",
		func(url string) {
			_, err := ghpr.ParsePRURL(url)
			Expect(err).To(MatchError(ghpr.ErrInvalidReference))
		},
		Entry("not a URL", "acme/widgets#42"),
		Entry("missing PR number", "https://github.com/acme/widgets/pull/"),
		Entry("non-numeric PR number", "https://github.com/acme/widgets/pull/abc"),
		Entry("issue URL", "https://github.com/acme/widgets/issues/42"),
		Entry("wrong host", "https://gitlab.com/acme/widgets/pull/42"),
		Entry("empty string", ""),
	)
})
