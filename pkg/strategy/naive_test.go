package strategy_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/raymyers/ralph-mips/pkg/asm"
	"github.com/raymyers/ralph-mips/pkg/cfg"
	"github.com/raymyers/ralph-mips/pkg/ir"
	"github.com/raymyers/ralph-mips/pkg/strategy"
)

var _ = Describe("Naive", func() {
	var (
		out *asm.Builder
		n   *strategy.Naive
		fn  *cfg.Function
	)

	BeforeEach(func() {
		out = asm.NewBuilder()
		n = strategy.NewNaive(out)
		fn = build("main", []string{"a", "b"}, []string{"f"},
			ir.New(ir.Add, "a", "b", "a"),
			ir.New(ir.Return),
		)
		n.Process(cfg.NewProgram(fn), fn)
	})

	It("should size the frame from both declaration lists", func() {
		Expect(n.NumVariables()).To(Equal(3))
	})

	It("should load integers and floats from their slots", func() {
		Expect(n.RegisterFor("b", asm.T1)).To(Equal(asm.T1))
		Expect(n.RegisterFor("f", asm.F0)).To(Equal(asm.F0))
		Expect(rendered(out)).To(Equal([]string{
			"lw, $t1, 4($sp) # load from b",
			"l.s, $f0, 8($sp) # load from f",
		}))
	})

	It("should materialize immediates before storing them", func() {
		n.Store("5", "b")
		n.Store("1.5", "f")
		n.Store(asm.V0, "a")
		Expect(rendered(out)).To(Equal([]string{
			"li, $t0, 5",
			"sw, $t0, 4($sp) # store to b",
			"li.s, $f0, 1.5",
			"s.s, $f0, 8($sp) # store to f",
			"sw, $v0, 0($sp) # store to a",
		}))
	})

	It("should load, add and store for add a, b, a", func() {
		x := n.RegisterFor("a", asm.T0)
		y := n.RegisterFor("b", asm.T1)
		n.ComputeAndStore("add", "a", x, y)
		Expect(rendered(out)).To(Equal([]string{
			"lw, $t0, 0($sp) # load from a",
			"lw, $t1, 4($sp) # load from b",
			"add, $t2, $t0, $t1",
			"sw, $t2, 0($sp) # store to a",
		}))
	})

	It("should compute floats in the float scratch register", func() {
		n.ComputeAndStore("mul.s", "f", asm.F0, asm.F2)
		Expect(rendered(out)).To(Equal([]string{
			"mul.s, $f4, $f0, $f2",
			"s.s, $f4, 8($sp) # store to f",
		}))
	})

	It("should emit nothing at block and call boundaries", func() {
		n.EnterFunction()
		n.EnterBlock(fn.Entry())
		n.Spill(fn.Entry(), 0)
		n.Unspill(fn.Entry(), 0)
		n.ExitBlock(fn.Entry())
		Expect(out.Len()).To(Equal(0))
	})

	It("should panic with a SlotError for an undeclared variable", func() {
		Expect(func() {
			n.RegisterFor("zz", asm.T0)
		}).To(PanicWith(BeAssignableToTypeOf(&strategy.SlotError{})))
		Expect((&strategy.SlotError{Function: "main", Variable: "zz"}).Error()).
			To(Equal(`main: variable "zz" is not declared`))
	})

	It("should address globals by symbol", func() {
		main := build("main", []string{"g"}, nil,
			ir.New(ir.Assign, "g", "1"),
			ir.New(ir.Return),
		)
		other := build("other", []string{"g"}, nil,
			ir.New(ir.Return, "g"),
		)
		n.Process(cfg.NewProgram(main, other), main)

		n.RegisterFor("g", asm.T0)
		n.Store(asm.T0, "g")
		Expect(rendered(out)).To(Equal([]string{
			"lw, $t0, g # load from g",
			"sw, $t0, g # store to g",
		}))
	})
})
