// Package codegen lowers IR functions to MIPS assembly.
// Every variable access goes through the selected allocation strategy, which
// decides whether the value lives in a saved register or in memory.
package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/raymyers/ralph-mips/pkg/asm"
	"github.com/raymyers/ralph-mips/pkg/cfg"
	"github.com/raymyers/ralph-mips/pkg/ir"
	"github.com/raymyers/ralph-mips/pkg/strategy"
)

// Syscall codes of the print builtins
var syscalls = map[string]int{
	"printi": 1,
	"printf": 2,
}

// Context holds the state of one compilation run
type Context struct {
	Program  *cfg.Program
	Strategy strategy.Strategy
	Out      *asm.Builder
}

// NewContext creates a run context whose strategy writes into a fresh
// builder
func NewContext(prog *cfg.Program, scheme strategy.Scheme, k int) (*Context, error) {
	out := asm.NewBuilder()
	s, err := strategy.New(scheme, out, k)
	if err != nil {
		return nil, err
	}
	return &Context{Program: prog, Strategy: s, Out: out}, nil
}

// Generate lowers every function of prog in program order
func Generate(prog *cfg.Program, scheme strategy.Scheme, k int) (*asm.Program, error) {
	ctx, err := NewContext(prog, scheme, k)
	if err != nil {
		return nil, err
	}

	result := &asm.Program{
		Globals:   prog.GlobalInts(),
		Functions: make([]asm.Function, 0, len(prog.Functions)),
	}
	for _, a := range prog.Arrays() {
		result.Arrays = append(result.Arrays, asm.Space{Name: a.Name, Words: a.Words})
	}
	for _, fn := range prog.Functions {
		f, err := ctx.GenerateFunction(fn)
		if err != nil {
			return nil, err
		}
		result.Functions = append(result.Functions, f)
	}
	return result, nil
}

// GenerateFunction lowers one function. A variable with no stack slot is
// reported as a *strategy.SlotError.
func (c *Context) GenerateFunction(fn *cfg.Function) (f asm.Function, err error) {
	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(*strategy.SlotError)
			if !ok {
				panic(r)
			}
			c.Out.Reset()
			err = fmt.Errorf("generate %s: %w", fn.Name, se)
		}
	}()

	c.Strategy.Process(c.Program, fn)
	g := &funcGen{
		Context: c,
		fn:      fn,
		frame:   cfg.WordSize * (c.Strategy.NumVariables() + 1),
	}

	c.Strategy.EnterFunction()
	g.prologue()
	for b := fn.Entry(); b != nil; b = fn.Block(b.After) {
		if err := g.block(b); err != nil {
			c.Out.Reset()
			return asm.Function{}, fmt.Errorf("generate %s: %w", fn.Name, err)
		}
	}
	return c.Out.Finish(fn.Name), nil
}

// funcGen holds state while lowering one function
type funcGen struct {
	*Context
	fn *cfg.Function
	// frame is the frame size in bytes: one word per variable plus $ra
	frame int
}

func (g *funcGen) raSlot() string {
	return asm.StackSlot(g.frame - cfg.WordSize)
}

// prologue allocates the frame, saves $ra and copies the parameters out of
// the argument registers, which any call would clobber
func (g *funcGen) prologue() {
	g.Out.Instr("addiu", asm.SP, asm.SP, strconv.Itoa(-g.frame))
	g.Out.Instr("sw", asm.RA, g.raSlot())
	for i, p := range g.fn.Params {
		g.Strategy.Store(asm.Arg(i), p)
	}
}

func (g *funcGen) block(b *cfg.Block) error {
	// The function's own name labels its entry and is printed with it
	if b.Label != "" && b.Label != g.fn.Name {
		g.Out.Label(b.Label)
	}
	g.Strategy.EnterBlock(b)
	for i := b.Start; i < b.End; i++ {
		if g.fn.Code[i].IsTerminal() {
			// Commit the block before control leaves it
			g.Strategy.ExitBlock(b)
		}
		if err := g.instruction(b, i); err != nil {
			return err
		}
	}
	if !g.fn.Code[b.Last()].IsTerminal() {
		g.Strategy.ExitBlock(b)
	}
	return nil
}

func (g *funcGen) instruction(b *cfg.Block, i int) error {
	ins := g.fn.Code[i]
	switch {
	case ins.Op == ir.Assign:
		if ins.Args[2] != "" {
			return g.arrayInit(ins)
		}
		g.assign(ins)
	case ins.Op.IsArith():
		g.arith(ins)
	case ins.Op == ir.Goto:
		g.Out.Instr("j", ins.Args[0])
	case ins.Op.IsBranch():
		g.branch(ins)
	case ins.Op == ir.Return:
		g.ret(ins)
	case ins.IsCall():
		g.callInstr(b, i, ins)
	case ins.Op == ir.ArrayStore:
		g.arrayStore(ins)
	case ins.Op == ir.ArrayLoad:
		g.arrayLoad(ins)
	default:
		return fmt.Errorf("cannot lower %v", ins.Op)
	}
	return nil
}

// isIntVar reports whether v is read as an integer variable
func (g *funcGen) isIntVar(v string) bool {
	return g.fn.IsInt(v) || g.Program.IsGlobal(v)
}

func isFloatLiteral(s string) bool {
	return strings.Contains(s, ".")
}

// intOperand returns a register holding v, loading an immediate with li
func (g *funcGen) intOperand(v, scratch string) string {
	if g.isIntVar(v) {
		return g.Strategy.RegisterFor(v, scratch)
	}
	g.Out.Instr("li", scratch, v)
	return scratch
}

func (g *funcGen) assign(ins ir.Instruction) {
	dest, src := ins.Args[0], ins.Args[1]
	var loc string
	switch {
	case g.isIntVar(src):
		loc = g.Strategy.RegisterFor(src, asm.T0)
	case g.fn.IsFloat(src):
		loc = g.Strategy.RegisterFor(src, asm.F0)
	default:
		loc = src
	}
	g.Strategy.Store(loc, dest)
}

// arrayInit lowers "assign arr, n, v": n words at arr are set to v
func (g *funcGen) arrayInit(ins ir.Instruction) error {
	arr, length, val := ins.Args[0], ins.Args[1], ins.Args[2]
	n, err := strconv.Atoi(length)
	if err != nil {
		return fmt.Errorf("array %s: bad length %q", arr, length)
	}
	g.Out.Instr("la", asm.T0, arr)
	v := g.intOperand(val, asm.T1)
	for k := 0; k < n; k++ {
		g.Out.Instr("sw", v, asm.Addr(cfg.WordSize*k, asm.T0))
	}
	return nil
}

var arithOps = map[ir.Op]string{
	ir.Add:  "add",
	ir.Sub:  "sub",
	ir.Mult: "mul",
	ir.Div:  "div",
	ir.And:  "and",
	ir.Or:   "or",
}

func (g *funcGen) arith(ins ir.Instruction) {
	x, y, dest := ins.Args[0], ins.Args[1], ins.Args[2]
	isFloat := false

	var a string
	switch {
	case g.isIntVar(x):
		a = g.Strategy.RegisterFor(x, asm.T0)
	case g.fn.IsFloat(x):
		a = g.Strategy.RegisterFor(x, asm.F0)
		isFloat = true
	case isFloatLiteral(x):
		g.Out.Instr("li.s", asm.F0, x)
		a = asm.F0
		isFloat = true
	default:
		// The first operand must be a register
		g.Out.Instr("li", asm.T0, x)
		a = asm.T0
	}

	var b string
	switch {
	case g.isIntVar(y):
		b = g.Strategy.RegisterFor(y, asm.T1)
	case g.fn.IsFloat(y):
		b = g.Strategy.RegisterFor(y, asm.F2)
		isFloat = true
	case isFloatLiteral(y):
		// Float operations take no immediate operand
		g.Out.Instr("li.s", asm.F2, y)
		b = asm.F2
		isFloat = true
	default:
		b = y
	}

	op := arithOps[ins.Op]
	if isFloat {
		op += ".s"
	}
	g.Strategy.ComputeAndStore(op, dest, a, b)
}

var branchOps = map[ir.Op]struct{ mnemonic, rel string }{
	ir.Breq:  {"beq", "=="},
	ir.Brneq: {"bne", "!="},
	ir.Brlt:  {"blt", "<"},
	ir.Brgt:  {"bgt", ">"},
	ir.Brgeq: {"bge", ">="},
	ir.Brleq: {"ble", "<="},
}

func (g *funcGen) branch(ins ir.Instruction) {
	x, y, label := ins.Args[0], ins.Args[1], ins.Args[2]
	a := g.intOperand(x, asm.T0)
	b := y
	if g.isIntVar(y) {
		b = g.Strategy.RegisterFor(y, asm.T1)
	}
	op := branchOps[ins.Op]
	g.Out.Commented(fmt.Sprintf("if (%s %s %s) goto %s", x, op.rel, y, label), op.mnemonic, a, b, label)
}

func (g *funcGen) ret(ins ir.Instruction) {
	if v := ins.Args[0]; v != "" {
		switch {
		case g.isIntVar(v):
			g.Strategy.RegisterFor(v, asm.V0)
		case g.fn.IsFloat(v):
			g.Strategy.RegisterFor(v, asm.F0)
		default:
			g.Out.Instr("li", asm.V0, v)
		}
	}
	g.Out.Instr("lw", asm.RA, g.raSlot())
	g.Out.Instr("addiu", asm.SP, asm.SP, strconv.Itoa(g.frame))
	g.Out.Instr("jr", asm.RA)
}

// callInstr lowers call and callr; callr stores the result into its first
// operand
func (g *funcGen) callInstr(b *cfg.Block, i int, ins ir.Instruction) {
	if ins.Op == ir.Callr {
		g.call(b, i, ins.Args[1], ins.Args[2], "")
		g.storeResult(ins.Args[0])
		return
	}
	g.call(b, i, ins.Args[0], ins.Args[1], ins.Args[2])
}

// call passes up to two arguments in $a0/$a1 ($f12 for printf) and either
// issues the print syscall or jumps to the callee
func (g *funcGen) call(b *cfg.Block, i int, name string, args ...string) {
	isFloat := name == "printf"
	for n, arg := range args {
		if arg == "" {
			continue
		}
		reg := asm.Arg(n)
		if isFloat {
			reg = asm.F12
		}
		g.argument(arg, reg, isFloat)
	}

	if code, ok := syscalls[name]; ok {
		g.Out.Instr("li", asm.V0, strconv.Itoa(code))
		g.Out.Commented(name, "syscall")
		return
	}
	g.Strategy.Spill(b, i)
	g.Out.Instr("jal", name)
	g.Strategy.Unspill(b, i)
}

func (g *funcGen) argument(arg, reg string, isFloat bool) {
	switch {
	case g.fn.IsVar(arg) || g.Program.IsGlobal(arg):
		g.Strategy.RegisterFor(arg, reg)
	case isFloat:
		g.Out.Instr("li.s", reg, arg)
	default:
		g.Out.Instr("li", reg, arg)
	}
}

// storeResult copies a call's return value into dest
func (g *funcGen) storeResult(dest string) {
	if g.fn.IsFloat(dest) {
		g.Strategy.Store(asm.F0, dest)
		return
	}
	g.Strategy.Store(asm.V0, dest)
}

// elementAddr leaves the address of arr[idx] in $t0, using scratch for the
// scaled index
func (g *funcGen) elementAddr(arr, idx, scratch string) {
	i := g.intOperand(idx, scratch)
	g.Out.Instr("sll", scratch, i, "2")
	g.Out.Instr("la", asm.T0, arr)
	g.Out.Instr("add", asm.T0, asm.T0, scratch)
}

// arrayStore lowers "array_store arr, idx, v": arr[idx] = v
func (g *funcGen) arrayStore(ins ir.Instruction) {
	arr, idx, val := ins.Args[0], ins.Args[1], ins.Args[2]
	g.Out.Comment("start array store")
	v := g.intOperand(val, asm.T1)
	g.elementAddr(arr, idx, asm.T2)
	g.Out.Instr("sw", v, asm.Addr(0, asm.T0))
	g.Out.Comment("end array store")
}

// arrayLoad lowers "array_load x, arr, idx": x = arr[idx]
func (g *funcGen) arrayLoad(ins ir.Instruction) {
	dest, arr, idx := ins.Args[0], ins.Args[1], ins.Args[2]
	g.Out.Comment("start array load")
	g.elementAddr(arr, idx, asm.T1)
	g.Out.Instr("lw", asm.T1, asm.Addr(0, asm.T0))
	g.Strategy.Store(asm.T1, dest)
	g.Out.Comment("end array load")
}
