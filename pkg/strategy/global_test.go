package strategy_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/raymyers/ralph-mips/pkg/asm"
	"github.com/raymyers/ralph-mips/pkg/cfg"
	"github.com/raymyers/ralph-mips/pkg/ir"
	"github.com/raymyers/ralph-mips/pkg/strategy"
)

var _ = Describe("Global", func() {
	var out *asm.Builder

	BeforeEach(func() {
		out = asm.NewBuilder()
	})

	Context("values live across a call", func() {
		var (
			g  *strategy.Global
			fn *cfg.Function
		)

		BeforeEach(func() {
			fn = build("main", []string{"x", "y"}, nil,
				ir.New(ir.Assign, "x", "1"),
				ir.New(ir.Assign, "y", "2"),
				ir.New(ir.Call, "f", "x"),
				ir.New(ir.Add, "x", "y", "y"),
				ir.New(ir.Return, "y"),
			)
			g = strategy.NewGlobal(out, 8)
			g.Process(cfg.NewProgram(fn), fn)
		})

		It("should report the coloring on function entry", func() {
			g.EnterFunction()
			Expect(rendered(out)).To(Equal([]string{
				"# enter main",
				"# variable x assigned register $s1",
				"# variable y assigned register $s0",
			}))
		})

		It("should store and reload around the call", func() {
			g.Spill(fn.Blocks[0], 2)
			g.Unspill(fn.Blocks[0], 2)
			Expect(rendered(out)).To(Equal([]string{
				"# spilling for jal",
				"sw, $s1, 0($sp) # store to x",
				"sw, $s0, 4($sp) # store to y",
				"# unspilling",
				"lw, $s1, 0($sp) # load from x",
				"lw, $s0, 4($sp) # load from y",
			}))
		})

		It("should use the colored register directly", func() {
			Expect(g.RegisterFor("y", asm.T0)).To(Equal("$s0"))
			Expect(out.Len()).To(Equal(0))

			Expect(g.RegisterFor("x", asm.A0)).To(Equal(asm.A0))
			g.Store("5", "x")
			g.Store(asm.V0, "y")
			g.ComputeAndStore("add", "y", "$s1", "$s0")
			Expect(rendered(out)).To(Equal([]string{
				"move, $a0, $s1 # move of x to fn arg/ret",
				"li, $s1, 5 # store to x",
				"move, $s0, $v0 # store to y",
				"add, $s0, $s1, $s0",
			}))
		})

		It("should emit nothing at block boundaries", func() {
			g.EnterBlock(fn.Entry())
			g.ExitBlock(fn.Entry())
			Expect(out.Len()).To(Equal(0))
			Expect(g.NumVariables()).To(Equal(2))
		})
	})

	It("should not save the result of a call", func() {
		fn := build("main", []string{"x", "r"}, nil,
			ir.New(ir.Assign, "x", "1"),
			ir.New(ir.Callr, "r", "f", "x"),
			ir.New(ir.Add, "r", "x", "x"),
			ir.New(ir.Return, "x"),
		)
		g := strategy.NewGlobal(out, 8)
		g.Process(cfg.NewProgram(fn), fn)

		g.Spill(fn.Blocks[0], 1)
		Expect(rendered(out)).To(Equal([]string{
			"# spilling for jal",
			"sw, $s0, 0($sp) # store to x",
		}))
	})

	It("should fall back to memory for spilled webs", func() {
		fn := build("main", []string{"x", "y"}, nil,
			ir.New(ir.Assign, "x", "1"),
			ir.New(ir.Assign, "y", "2"),
			ir.New(ir.Add, "x", "y", "y"),
			ir.New(ir.Return, "y"),
		)
		g := strategy.NewGlobal(out, 1)
		g.Process(cfg.NewProgram(fn), fn)

		g.EnterFunction()
		Expect(g.RegisterFor("x", asm.T0)).To(Equal(asm.T0))
		Expect(rendered(out)).To(Equal([]string{
			"# enter main",
			"# variable x is spilled!",
			"# variable y assigned register $s0",
			"lw, $t0, 0($sp) # load from x",
		}))
		Expect(g.Allocation().Spilled.Sorted()).To(Equal([]string{"x"}))
	})

	It("should keep globals in memory", func() {
		main := build("main", []string{"g", "t"}, nil,
			ir.New(ir.Assign, "t", "g"),
			ir.New(ir.Add, "t", "1", "g"),
			ir.New(ir.Return),
		)
		other := build("other", nil, nil,
			ir.New(ir.Return, "g"),
		)
		g := strategy.NewGlobal(out, 8)
		g.Process(cfg.NewProgram(main, other), main)

		Expect(g.RegisterFor("g", asm.T0)).To(Equal(asm.T0))
		g.Store(asm.T0, "g")
		Expect(rendered(out)).To(Equal([]string{
			"lw, $t0, g # load from g",
			"sw, $t0, g # store to g",
		}))
	})
})
