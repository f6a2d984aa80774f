package asm

import (
	"fmt"
	"io"
)

// Printer outputs MIPS assembly in SPIM syntax
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new assembly printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram outputs an entire program
func (p *Printer) PrintProgram(prog *Program) {
	// One zero-initialized word per global and one block per array, only
	// when there are any
	if len(prog.Globals) > 0 || len(prog.Arrays) > 0 {
		fmt.Fprintf(p.w, ".data\n")
		for _, g := range prog.Globals {
			p.printGlobal(g)
		}
		for _, a := range prog.Arrays {
			fmt.Fprintf(p.w, "%s: .space %d\n", a.Name, WordSize*a.Words)
		}
	}

	fmt.Fprintf(p.w, ".text\n")
	for _, f := range prog.Functions {
		p.PrintFunction(f)
	}
}

func (p *Printer) printGlobal(name string) {
	fmt.Fprintf(p.w, "%s: .word 0\n", name)
}

// PrintFunction outputs the function label followed by its lines
func (p *Printer) PrintFunction(f Function) {
	fmt.Fprintf(p.w, "%s:\n", f.Name)
	for _, l := range f.Lines {
		p.printLine(l)
	}
}

func (p *Printer) printLine(l Line) {
	fmt.Fprintln(p.w, l.String())
}
