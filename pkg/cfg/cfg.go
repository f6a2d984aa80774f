// Package cfg partitions a function's flat instruction stream into basic blocks
// and links them into a control flow graph.
//
// Blocks live in an arena owned by the function and refer to each other by
// BlockID, so back edges and loops never form reference cycles. Instructions
// live in a per-function arena (Function.Code) and are referred to by index.
package cfg

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/raymyers/ralph-mips/pkg/ir"
)

// WordSize is the width in bytes of every stack slot
const WordSize = 4

// BlockID indexes Function.Blocks
type BlockID int

// NoBlock marks a missing block reference
const NoBlock BlockID = -1

// ErrUndefinedLabel is returned when a jump or branch targets a label that no
// block carries
var ErrUndefinedLabel = errors.New("instruction targeting nonexistent label")

// Block is a basic block: the instructions Code[Start:End] of its function
type Block struct {
	ID    BlockID
	Label string // label of the first instruction, if any
	Start int    // index of the first instruction in Function.Code
	End   int    // one past the last instruction
	After BlockID
	Succs []BlockID
	Preds []BlockID
}

// Len returns the number of instructions in the block
func (b *Block) Len() int {
	return b.End - b.Start
}

// Last returns the index of the block's final instruction
func (b *Block) Last() int {
	return b.End - 1
}

// Function is one IR function together with its CFG
type Function struct {
	Name   string
	Params []string // integer parameters, in order
	Ints   []string // integer variables; fixes the first stack slots
	Floats []string // float variables; slotted after the integers
	// Arrays maps array names to their length in words. Build adds arrays
	// that are used without a sized declaration.
	Arrays map[string]int
	Code   []ir.Instruction
	Blocks []*Block // Blocks[0] is the entry block
}

// Entry returns the entry block, or nil for a function without instructions
func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// Block returns the block with the given id, or nil for NoBlock
func (f *Function) Block(id BlockID) *Block {
	if id == NoBlock {
		return nil
	}
	return f.Blocks[id]
}

// Instructions returns the instructions of block b
func (f *Function) Instructions(b *Block) []ir.Instruction {
	return f.Code[b.Start:b.End]
}

// IsInt reports whether v is declared in the int-list
func (f *Function) IsInt(v string) bool {
	return slices.Contains(f.Ints, v)
}

// IsFloat reports whether v is declared in the float-list
func (f *Function) IsFloat(v string) bool {
	return slices.Contains(f.Floats, v)
}

// IsVar reports whether v is a declared variable of either type
func (f *Function) IsVar(v string) bool {
	return f.IsInt(v) || f.IsFloat(v)
}

// IsArray reports whether v names an array
func (f *Function) IsArray(v string) bool {
	_, ok := f.Arrays[v]
	return ok
}

// NumVariables is the number of stack slots the declared variables occupy
func (f *Function) NumVariables() int {
	return len(f.Ints) + len(f.Floats)
}

// Slot returns the byte offset from $sp of v's stack slot.
// Integers come first, then floats, one word each.
func (f *Function) Slot(v string) (offset int, isFloat bool, ok bool) {
	if idx := slices.Index(f.Ints, v); idx >= 0 {
		return WordSize * idx, false, true
	}
	if idx := slices.Index(f.Floats, v); idx >= 0 {
		return WordSize*len(f.Ints) + WordSize*idx, true, true
	}
	return 0, false, false
}

// References reports whether v appears as an operand anywhere in the function
func (f *Function) References(v string) bool {
	for _, ins := range f.Code {
		if ins.References(v) {
			return true
		}
	}
	return false
}

// Build partitions f.Code into basic blocks and links the CFG.
// A new block starts at every labelled instruction and after every terminal
// instruction. Each block's successors are its After block unless its last
// instruction is a return or goto, plus the block carrying its jump target.
func Build(f *Function) error {
	f.Blocks = nil
	collectArrays(f)
	if len(f.Code) == 0 {
		return nil
	}

	var cur *Block
	newBlock := false
	for i, ins := range f.Code {
		if cur == nil || ins.HasLabel() || newBlock {
			next := &Block{ID: BlockID(len(f.Blocks)), Label: ins.Label, Start: i, After: NoBlock}
			if cur != nil {
				cur.End = i
				cur.After = next.ID
			}
			f.Blocks = append(f.Blocks, next)
			cur = next
			newBlock = false
		}
		if ins.IsTerminal() {
			newBlock = true
		}
	}
	cur.End = len(f.Code)

	for _, b := range f.Blocks {
		last := f.Code[b.Last()]
		if last.FallsThrough() && b.After != NoBlock {
			link(f, b.ID, b.After)
		}

		target, ok := last.Target()
		if !ok {
			continue
		}
		to := f.findBlock(target)
		if to == NoBlock {
			return fmt.Errorf("%s: %w %s", f.Name, ErrUndefinedLabel, target)
		}
		link(f, b.ID, to)
	}

	slog.Debug("built cfg", "function", f.Name, "blocks", len(f.Blocks), "instructions", len(f.Code))
	return nil
}

// collectArrays records every operand used as an array base. The length of
// an undeclared array comes from its initializing assign, or is one word.
func collectArrays(f *Function) {
	for _, ins := range f.Code {
		var name string
		n := 1
		switch {
		case ins.Op == ir.ArrayStore:
			name = ins.Args[0]
		case ins.Op == ir.ArrayLoad:
			name = ins.Args[1]
		case ins.Op == ir.Assign && ins.Args[2] != "":
			name = ins.Args[0]
			if l, err := strconv.Atoi(ins.Args[1]); err == nil && l > 0 {
				n = l
			}
		default:
			continue
		}
		if f.Arrays == nil {
			f.Arrays = make(map[string]int)
		}
		f.Arrays[name] = max(f.Arrays[name], n)
	}
}

func link(f *Function, from, to BlockID) {
	if slices.Contains(f.Blocks[from].Succs, to) {
		return
	}
	f.Blocks[from].Succs = append(f.Blocks[from].Succs, to)
	f.Blocks[to].Preds = append(f.Blocks[to].Preds, from)
}

func (f *Function) findBlock(label string) BlockID {
	if label == "" {
		return NoBlock
	}
	for _, b := range f.Blocks {
		if b.Label == label {
			return b.ID
		}
	}
	return NoBlock
}

// Program is the ordered list of functions being compiled
type Program struct {
	Functions []*Function

	// refs counts, per operand name, the functions referencing it
	refs map[string]int
}

// NewProgram creates a program and indexes the names each function references
func NewProgram(fns ...*Function) *Program {
	p := &Program{Functions: fns, refs: make(map[string]int)}
	for _, f := range fns {
		seen := make(map[string]bool)
		for _, ins := range f.Code {
			for _, a := range ins.Args {
				if a != "" && !seen[a] {
					seen[a] = true
					p.refs[a]++
				}
			}
		}
	}
	return p
}

// IsGlobal reports whether v is shared between functions: it is not a literal
// and more than one function references it
func (p *Program) IsGlobal(v string) bool {
	if v == "" || ir.IsImmediate(v) {
		return false
	}
	return p.refs[v] > 1
}

func (p *Program) isArray(v string) bool {
	for _, f := range p.Functions {
		if f.IsArray(v) {
			return true
		}
	}
	return false
}

// GlobalInts returns the global integer variables in declaration order,
// without duplicates. Arrays are listed by Arrays instead.
func (p *Program) GlobalInts() []string {
	var out []string
	for _, f := range p.Functions {
		for _, v := range f.Ints {
			if p.IsGlobal(v) && !p.isArray(v) && !slices.Contains(out, v) {
				out = append(out, v)
			}
		}
	}
	return out
}

// Array is the static storage of one array symbol
type Array struct {
	Name  string
	Words int
}

// Arrays returns every array of the program in order of first declaration.
// An array name used by several functions is one symbol sized for the
// largest use.
func (p *Program) Arrays() []Array {
	var out []Array
	index := make(map[string]int)
	for _, f := range p.Functions {
		names := make([]string, 0, len(f.Arrays))
		for _, v := range f.Ints {
			if f.IsArray(v) {
				names = append(names, v)
			}
		}
		var undeclared []string
		for v := range f.Arrays {
			if !f.IsInt(v) {
				undeclared = append(undeclared, v)
			}
		}
		slices.Sort(undeclared)
		for _, v := range append(names, undeclared...) {
			n := f.Arrays[v]
			if i, ok := index[v]; ok {
				out[i].Words = max(out[i].Words, n)
				continue
			}
			index[v] = len(out)
			out = append(out, Array{Name: v, Words: n})
		}
	}
	return out
}
