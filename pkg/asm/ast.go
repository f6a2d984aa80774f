// Package asm defines the MIPS assembly representation.
// This is the final output of the compiler: one Line per emitted label,
// instruction or comment, grouped by function.
package asm

import (
	"fmt"
	"strings"
)

// Registers used by the lowering and the allocation strategies
const (
	SP  = "$sp"
	RA  = "$ra"
	V0  = "$v0"
	A0  = "$a0"
	A1  = "$a1"
	F12 = "$f12" // float argument for the print syscall

	// Integer scratch registers
	T0 = "$t0"
	T1 = "$t1"
	T2 = "$t2"

	// Float scratch registers
	F0 = "$f0"
	F2 = "$f2"
	F4 = "$f4"
)

// NumSaved is the size of the $s register file used for allocation
const NumSaved = 8

// WordSize is the width in bytes of a data word
const WordSize = 4

// Saved returns the name of allocatable register $s<i>
func Saved(i int) string {
	return fmt.Sprintf("$s%d", i)
}

// Arg returns the name of argument register $a<i>
func Arg(i int) string {
	return fmt.Sprintf("$a%d", i)
}

// Addr returns the base-plus-offset address operand "offset(base)"
func Addr(offset int, base string) string {
	return fmt.Sprintf("%d(%s)", offset, base)
}

// StackSlot returns the $sp-relative address of a byte offset
func StackSlot(offset int) string {
	return Addr(offset, SP)
}

// IsRegister reports whether a location names a hardware register
func IsRegister(loc string) bool {
	return strings.HasPrefix(loc, "$")
}

// IsArgOrReturn reports whether r is an argument or return-value register
func IsArgOrReturn(r string) bool {
	return strings.HasPrefix(r, "$a") || strings.HasPrefix(r, "$v")
}

// Line is one line of output: a label, an instruction with an optional
// trailing comment, or a comment on its own.
type Line struct {
	Label   string
	Op      string
	Args    []string
	Comment string
}

// IsLabel returns true for a label line
func (l Line) IsLabel() bool {
	return l.Label != ""
}

// IsComment returns true for a comment-only line
func (l Line) IsComment() bool {
	return l.Label == "" && l.Op == "" && l.Comment != ""
}

// String renders the line as "op, a1, a2 # comment"
func (l Line) String() string {
	if l.IsLabel() {
		return l.Label + ":"
	}
	if l.Op == "" {
		return "# " + l.Comment
	}
	var sb strings.Builder
	sb.WriteString(l.Op)
	for _, a := range l.Args {
		sb.WriteString(", ")
		sb.WriteString(a)
	}
	if l.Comment != "" {
		sb.WriteString(" # ")
		sb.WriteString(l.Comment)
	}
	return sb.String()
}

// Function is the lowered body of one function
type Function struct {
	Name  string
	Lines []Line
}

// Space is a zero-filled data block of Words words
type Space struct {
	Name  string
	Words int
}

// Program is a complete assembly program
type Program struct {
	// Globals are the word-sized symbols of the data section
	Globals []string
	// Arrays are the data-section blocks reserved with .space
	Arrays    []Space
	Functions []Function
}
