package strategy_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/raymyers/ralph-mips/pkg/asm"
	"github.com/raymyers/ralph-mips/pkg/strategy"
)

var _ = Describe("Scheme", func() {
	It("should parse every supported name", func() {
		for _, name := range strategy.SchemeNames() {
			s, err := strategy.ParseScheme(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.String()).To(Equal(name))
		}
	})

	It("should reject unknown names", func() {
		_, err := strategy.ParseScheme("linear")
		Expect(err).To(MatchError(strategy.ErrUnknownScheme))
	})

	It("should print out of range schemes numerically", func() {
		Expect(strategy.Scheme(7).String()).To(Equal("Scheme(7)"))
	})
})

var _ = Describe("New", func() {
	var out *asm.Builder

	BeforeEach(func() {
		out = asm.NewBuilder()
	})

	It("should construct the strategy for each scheme", func() {
		s, err := strategy.New(strategy.SchemeNaive, out, 8)
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeAssignableToTypeOf(&strategy.Naive{}))

		s, err = strategy.New(strategy.SchemeIntra, out, 8)
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeAssignableToTypeOf(&strategy.IntraBlock{}))

		s, err = strategy.New(strategy.SchemeGlobal, out, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeAssignableToTypeOf(&strategy.Global{}))
	})

	It("should reject register budgets outside the saved register file", func() {
		_, err := strategy.New(strategy.SchemeGlobal, out, 0)
		Expect(err).To(MatchError(strategy.ErrInvalidRegisters))
		_, err = strategy.New(strategy.SchemeIntra, out, 9)
		Expect(err).To(MatchError(strategy.ErrInvalidRegisters))
	})

	It("should reject unknown schemes", func() {
		_, err := strategy.New(strategy.Scheme(5), out, 8)
		Expect(err).To(MatchError(strategy.ErrUnknownScheme))
	})
})
