// Package strategy decides where each variable lives while a function is
// lowered. A Strategy answers location queries from the lowering and emits
// the loads, stores and moves its placement requires.
//
// Three schemes are provided:
//   - Naive keeps every variable in its stack slot and loads it on each use
//   - IntraBlock gives the most-used variables of each basic block a
//     register for the duration of the block
//   - Global colors an interference graph of webs over the whole function
//
// Whenever a scheme has no register for a variable it falls back to the
// Naive behavior.
package strategy

import (
	"errors"
	"fmt"

	"github.com/raymyers/ralph-mips/pkg/asm"
	"github.com/raymyers/ralph-mips/pkg/cfg"
)

// Emitter is the sink strategies write instructions into
type Emitter interface {
	Instr(op string, args ...string)
	Commented(comment, op string, args ...string)
	Comment(text string)
}

// Strategy is a register allocation scheme.
// Process must be called for each function before any other method.
type Strategy interface {
	// Process rebuilds the per-function state. It does not modify fn.
	Process(prog *cfg.Program, fn *cfg.Function)
	// NumVariables is the number of stack slots the function needs
	NumVariables() int

	EnterFunction()
	EnterBlock(b *cfg.Block)
	ExitBlock(b *cfg.Block)

	// Spill and Unspill surround a call at instruction index instr
	Spill(b *cfg.Block, instr int)
	Unspill(b *cfg.Block, instr int)

	// RegisterFor returns a register holding variable's value, loading it
	// into suggested when it has no register of its own
	RegisterFor(variable, suggested string) string
	// Store writes src (a register or an immediate) to variable
	Store(src, variable string)
	// ComputeAndStore emits "op dest, a, b" and writes the result to dest
	ComputeAndStore(op, dest, a, b string)
}

// Scheme selects an allocation strategy
type Scheme int

const (
	SchemeNaive Scheme = iota
	SchemeIntra
	SchemeGlobal
)

var schemeNames = [...]string{
	SchemeNaive:  "naive",
	SchemeIntra:  "intra",
	SchemeGlobal: "global",
}

func (s Scheme) String() string {
	if s < 0 || int(s) >= len(schemeNames) {
		return fmt.Sprintf("Scheme(%d)", int(s))
	}
	return schemeNames[s]
}

// ErrUnknownScheme is returned for a scheme name outside naive, intra, global
var ErrUnknownScheme = errors.New("unknown allocation scheme")

// ErrInvalidRegisters is returned for a register budget outside 1..8
var ErrInvalidRegisters = errors.New("invalid register count")

// ParseScheme maps a scheme name to its Scheme
func ParseScheme(name string) (Scheme, error) {
	for i, n := range schemeNames {
		if n == name {
			return Scheme(i), nil
		}
	}
	return 0, fmt.Errorf("%w %q (supported: naive, intra, global)", ErrUnknownScheme, name)
}

// SchemeNames returns the accepted scheme names
func SchemeNames() []string {
	return schemeNames[:]
}

// New constructs the strategy for scheme, writing into out and allocating
// from the first k saved registers
func New(scheme Scheme, out Emitter, k int) (Strategy, error) {
	if k < 1 || k > asm.NumSaved {
		return nil, fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidRegisters, k, asm.NumSaved)
	}
	switch scheme {
	case SchemeNaive:
		return NewNaive(out), nil
	case SchemeIntra:
		return NewIntraBlock(out, k), nil
	case SchemeGlobal:
		return NewGlobal(out, k), nil
	}
	return nil, fmt.Errorf("%w %v", ErrUnknownScheme, scheme)
}

// SlotError reports a variable that has no stack slot: it is neither
// declared in the function nor global. Well-formed IR never produces one,
// so it is raised with panic.
type SlotError struct {
	Function string
	Variable string
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("%s: variable %q is not declared", e.Function, e.Variable)
}
