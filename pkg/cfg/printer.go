package cfg

import (
	"fmt"
	"io"
	"strings"
)

// Printer dumps functions and their control flow graphs in a readable form
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new CFG printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram dumps every function in program order
func (p *Printer) PrintProgram(prog *Program) {
	for i, f := range prog.Functions {
		if i > 0 {
			fmt.Fprintln(p.w)
		}
		p.PrintFunction(f)
	}
}

// PrintFunction dumps one function's declarations and blocks
func (p *Printer) PrintFunction(f *Function) {
	fmt.Fprintf(p.w, "function %s(%s)\n", f.Name, strings.Join(f.Params, ", "))
	fmt.Fprintf(p.w, "  int-list: %s\n", strings.Join(f.Ints, ", "))
	fmt.Fprintf(p.w, "  float-list: %s\n", strings.Join(f.Floats, ", "))
	for _, b := range f.Blocks {
		p.printBlock(f, b)
	}
}

func (p *Printer) printBlock(f *Function, b *Block) {
	name := fmt.Sprintf("B%d", b.ID)
	if b.Label != "" {
		name += " (" + b.Label + ")"
	}
	fmt.Fprintf(p.w, "  %s:\n", name)
	for i, ins := range f.Instructions(b) {
		fmt.Fprintf(p.w, "    %3d  %s\n", b.Start+i, ins)
	}
	fmt.Fprintf(p.w, "    succs: %s\n", blockList(b.Succs))
	fmt.Fprintf(p.w, "    preds: %s\n", blockList(b.Preds))
}

func blockList(ids []BlockID) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("B%d", id)
	}
	return strings.Join(parts, " ")
}
