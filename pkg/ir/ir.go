// Package ir defines the three-address intermediate representation consumed by
// the backend. Each instruction is an opcode plus up to three string operands;
// whether an operand names a variable, an immediate or a label depends on the
// opcode's shape.
package ir

import (
	"errors"
	"fmt"
	"strings"
)

// Op is an IR operation tag
type Op int

const (
	Assign Op = iota
	Add
	Sub
	Mult
	Div
	And
	Or
	Goto
	Breq
	Brneq
	Brlt
	Brgt
	Brgeq
	Brleq
	Return
	Call
	Callr
	ArrayStore
	ArrayLoad
)

var opNames = [...]string{
	Assign:     "assign",
	Add:        "add",
	Sub:        "sub",
	Mult:       "mult",
	Div:        "div",
	And:        "and",
	Or:         "or",
	Goto:       "goto",
	Breq:       "breq",
	Brneq:      "brneq",
	Brlt:       "brlt",
	Brgt:       "brgt",
	Brgeq:      "brgeq",
	Brleq:      "brleq",
	Return:     "return",
	Call:       "call",
	Callr:      "callr",
	ArrayStore: "array_store",
	ArrayLoad:  "array_load",
}

func (op Op) String() string {
	if op < 0 || int(op) >= len(opNames) {
		return fmt.Sprintf("Op(%d)", int(op))
	}
	return opNames[op]
}

// ErrUnknownOp is returned when an opcode token is not part of the IR
var ErrUnknownOp = errors.New("unrecognized op")

// ParseOp maps an opcode token to its Op
func ParseOp(s string) (Op, error) {
	for i, name := range opNames {
		if s == name {
			return Op(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOp, s)
}

// IsArith reports whether op is a binary arithmetic or logical operation
func (op Op) IsArith() bool {
	switch op {
	case Add, Sub, Mult, Div, And, Or:
		return true
	}
	return false
}

// IsBranch reports whether op is a conditional branch
func (op Op) IsBranch() bool {
	switch op {
	case Breq, Brneq, Brlt, Brgt, Brgeq, Brleq:
		return true
	}
	return false
}

// Instruction is a single IR operation.
// Operands that an opcode does not take are empty strings.
type Instruction struct {
	Op    Op
	Args  [3]string
	Label string // non-empty when the instruction is a jump target
}

// New builds an instruction from an opcode and its operands
func New(op Op, args ...string) Instruction {
	ins := Instruction{Op: op}
	copy(ins.Args[:], args)
	return ins
}

// Arg returns operand i (1-based, matching the textual form)
func (i Instruction) Arg(n int) string {
	return i.Args[n-1]
}

// HasLabel returns true if this instruction is a jump target
func (i Instruction) HasLabel() bool {
	return i.Label != ""
}

// Target returns the label this instruction jumps to, if it is a jump or branch
func (i Instruction) Target() (string, bool) {
	switch {
	case i.Op == Goto:
		return i.Args[0], true
	case i.Op.IsBranch():
		return i.Args[2], true
	}
	return "", false
}

// IsTerminal reports whether the instruction ends a basic block.
// Calls end a block so that a strategy can save and restore state around them.
func (i Instruction) IsTerminal() bool {
	switch {
	case i.Op.IsBranch():
		return true
	case i.Op == Return, i.Op == Goto, i.Op == Call, i.Op == Callr:
		return true
	}
	return false
}

// FallsThrough reports whether control can reach the lexically next block
func (i Instruction) FallsThrough() bool {
	return i.Op != Return && i.Op != Goto
}

// IsCall returns true for call and call-with-result
func (i Instruction) IsCall() bool {
	return i.Op == Call || i.Op == Callr
}

// Defs returns the operands this instruction assigns.
// The caller decides which of them are variables.
func (i Instruction) Defs() []string {
	switch {
	case i.Op == Assign, i.Op == Callr, i.Op == ArrayLoad:
		return nonEmpty(i.Args[0])
	case i.Op.IsArith():
		return nonEmpty(i.Args[2])
	}
	return nil
}

// Uses returns the operands this instruction reads, one entry per
// occurrence.
func (i Instruction) Uses() []string {
	switch {
	case i.Op == Assign:
		// assign x, y  or the array-initializing assign x, n, v
		return nonEmpty(i.Args[1], i.Args[2])
	case i.Op.IsArith():
		return nonEmpty(i.Args[0], i.Args[1])
	case i.Op.IsBranch():
		return nonEmpty(i.Args[0], i.Args[1])
	case i.Op == Return:
		return nonEmpty(i.Args[0])
	case i.Op == Call:
		return nonEmpty(i.Args[1], i.Args[2])
	case i.Op == Callr:
		return nonEmpty(i.Args[2])
	case i.Op == ArrayStore:
		return nonEmpty(i.Args[0], i.Args[1], i.Args[2])
	case i.Op == ArrayLoad:
		return nonEmpty(i.Args[1], i.Args[2])
	}
	return nil
}

// References reports whether name appears as any operand
func (i Instruction) References(name string) bool {
	return i.Args[0] == name || i.Args[1] == name || i.Args[2] == name
}

func nonEmpty(args ...string) []string {
	var out []string
	for _, a := range args {
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// String renders the instruction in its textual IR form
func (i Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(i.Op.String())
	n := len(i.Args)
	for n > 0 && i.Args[n-1] == "" {
		n--
	}
	for _, a := range i.Args[:n] {
		sb.WriteString(", ")
		sb.WriteString(a)
	}
	return sb.String()
}

// ParseInstruction parses one instruction line of the form
// "opcode, operand, operand, operand". Trailing operands may be omitted.
func ParseInstruction(line string) (Instruction, error) {
	fields := strings.SplitN(line, ",", 5)
	for len(fields) < 4 {
		fields = append(fields, "")
	}
	op, err := ParseOp(strip(fields[0]))
	if err != nil {
		return Instruction{}, err
	}
	return New(op, strip(fields[1]), strip(fields[2]), strip(fields[3])), nil
}

// strip trims spaces, tabs and stray commas from both ends
func strip(s string) string {
	return strings.Trim(s, " \t,\r")
}

// IsImmediate reports whether an operand is a literal rather than a name
func IsImmediate(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return c == '$' || (c >= '0' && c <= '9') || c == '-' || c == '.'
}
