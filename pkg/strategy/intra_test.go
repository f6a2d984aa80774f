package strategy_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/raymyers/ralph-mips/pkg/asm"
	"github.com/raymyers/ralph-mips/pkg/cfg"
	"github.com/raymyers/ralph-mips/pkg/ir"
	"github.com/raymyers/ralph-mips/pkg/strategy"
)

var _ = Describe("IntraBlock", func() {
	var out *asm.Builder

	BeforeEach(func() {
		out = asm.NewBuilder()
	})

	Context("single block", func() {
		var (
			s  *strategy.IntraBlock
			fn *cfg.Function
		)

		BeforeEach(func() {
			// a is read three times, b and c once
			fn = build("main", []string{"a", "b", "c", "d"}, nil,
				ir.New(ir.Add, "a", "a", "b"),
				ir.New(ir.Add, "a", "b", "c"),
				ir.New(ir.Return, "c"),
			)
			s = strategy.NewIntraBlock(out, 2)
			s.Process(cfg.NewProgram(fn), fn)
		})

		It("should rank the working set by use count then name", func() {
			Expect(s.WorkingSet(fn.Entry())).To(Equal([]string{"a", "b"}))
		})

		It("should load the working set once at block entry", func() {
			s.EnterBlock(fn.Entry())
			Expect(rendered(out)).To(Equal([]string{
				"# start of block - loading into registers",
				"# variable a is assigned register $s0",
				"lw, $s0, 0($sp) # load from a",
				"# variable b is assigned register $s1",
				"lw, $s1, 4($sp) # load from b",
			}))

			Expect(s.RegisterFor("a", asm.T0)).To(Equal("$s0"))
			Expect(s.RegisterFor("a", asm.T1)).To(Equal("$s0"))
			Expect(s.RegisterFor("a", asm.T0)).To(Equal("$s0"))
			Expect(out.Len()).To(Equal(0))
		})

		It("should move into argument and return registers", func() {
			s.EnterBlock(fn.Entry())
			rendered(out)
			Expect(s.RegisterFor("a", asm.V0)).To(Equal(asm.V0))
			Expect(rendered(out)).To(Equal([]string{
				"move, $v0, $s0 # move of a to fn arg/ret",
			}))
		})

		It("should fall back to memory outside the working set", func() {
			s.EnterBlock(fn.Entry())
			rendered(out)
			Expect(s.RegisterFor("c", asm.T0)).To(Equal(asm.T0))
			s.ComputeAndStore("add", "c", "$s0", "$s1")
			Expect(rendered(out)).To(Equal([]string{
				"lw, $t0, 8($sp) # load from c",
				"add, $t2, $s0, $s1",
				"sw, $t2, 8($sp) # store to c",
			}))
		})

		It("should compute and store into a working set register", func() {
			s.EnterBlock(fn.Entry())
			rendered(out)
			s.ComputeAndStore("add", "b", "$s0", "$s0")
			s.Store("7", "a")
			s.Store(asm.T0, "b")
			Expect(rendered(out)).To(Equal([]string{
				"add, $s1, $s0, $s0",
				"li, $s0, 7",
				"move, $s1, $t0",
			}))
		})
	})

	Context("block exit", func() {
		var (
			s  *strategy.IntraBlock
			fn *cfg.Function
		)

		BeforeEach(func() {
			// B0 defines a and b; only a is read by a successor
			fn = build("main", []string{"a", "b"}, nil,
				ir.New(ir.Assign, "a", "1"),
				ir.New(ir.Add, "a", "b", "b"),
				ir.New(ir.Breq, "a", "0", "L"),
				ir.New(ir.Return, "0"),
				labeled("L", ir.New(ir.Return, "a")),
			)
			s = strategy.NewIntraBlock(out, 8)
			s.Process(cfg.NewProgram(fn), fn)
			s.EnterBlock(fn.Entry())
			rendered(out)
		})

		It("should store back only modified live-out variables", func() {
			s.ExitBlock(fn.Entry())
			Expect(rendered(out)).To(Equal([]string{
				"# begin spilling",
				"sw, $s0, 0($sp) # store to a",
				"# end of block",
			}))
		})

		It("should write memory once the block has been committed", func() {
			s.ExitBlock(fn.Entry())
			rendered(out)
			s.Store(asm.V0, "a")
			Expect(s.RegisterFor("a", asm.T0)).To(Equal(asm.T0))
			Expect(rendered(out)).To(Equal([]string{
				"sw, $v0, 0($sp) # store to a",
				"lw, $t0, 0($sp) # load from a",
			}))
		})

		It("should still read registers after commit", func() {
			s.ExitBlock(fn.Entry())
			rendered(out)
			Expect(s.RegisterFor("b", asm.T1)).To(Equal("$s1"))
			Expect(out.Len()).To(Equal(0))
		})

		It("should start each block with a fresh working set", func() {
			s.ExitBlock(fn.Entry())
			s.EnterBlock(fn.Blocks[2])
			Expect(s.WorkingSet(fn.Blocks[2])).To(Equal([]string{"a"}))
			Expect(s.RegisterFor("b", asm.T1)).To(Equal(asm.T1))
		})
	})

	It("should keep floats and globals out of the working set", func() {
		main := build("main", []string{"i", "g"}, []string{"f"},
			ir.New(ir.Add, "f", "f", "f"),
			ir.New(ir.Add, "g", "g", "g"),
			ir.New(ir.Add, "i", "i", "i"),
			ir.New(ir.Return),
		)
		other := build("other", nil, nil,
			ir.New(ir.Assign, "g", "1"),
			ir.New(ir.Return),
		)
		s := strategy.NewIntraBlock(out, 8)
		s.Process(cfg.NewProgram(main, other), main)
		Expect(s.WorkingSet(main.Entry())).To(Equal([]string{"i"}))
	})

	It("should keep arrays out of the working set", func() {
		main := build("main", []string{"A", "i"}, nil,
			ir.New(ir.ArrayStore, "A", "i", "1"),
			ir.New(ir.ArrayStore, "A", "i", "2"),
			ir.New(ir.ArrayLoad, "i", "A", "i"),
			ir.New(ir.Return),
		)
		s := strategy.NewIntraBlock(out, 8)
		s.Process(cfg.NewProgram(main), main)
		Expect(s.WorkingSet(main.Entry())).To(Equal([]string{"i"}))
	})
})
