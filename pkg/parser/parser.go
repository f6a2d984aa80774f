// Package parser reads the line-oriented IR text format into functions with
// their control-flow graphs built.
//
// A function looks like
//
//	#start_function main
//	int main()
//	int-list: a, b
//	float-list:
//	    assign, a, 1
//	loop:
//	    add, a, b, a
//	    brlt, a, 10, loop
//	    return, a
//	#end_function
//
// Lines whose opcode is not part of the IR are skipped.
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/raymyers/ralph-mips/pkg/cfg"
	"github.com/raymyers/ralph-mips/pkg/ir"
)

const (
	startMarker = "#start_function"
	endMarker   = "#end_function"
	intList     = "int-list:"
	floatList   = "float-list:"
)

// ErrSyntax is returned for IR that cannot be read at all
var ErrSyntax = errors.New("syntax error")

// Parser parses IR text into a cfg.Program
type Parser struct {
	sc      *bufio.Scanner
	line    int
	skipped []string

	fn    *cfg.Function // function being read, nil between functions
	label string        // label waiting for the next instruction
}

// New creates a new Parser reading from r
func New(r io.Reader) *Parser {
	return &Parser{sc: bufio.NewScanner(r)}
}

// Skipped returns the lines that were ignored because their opcode is not
// part of the IR, as "line N: text"
func (p *Parser) Skipped() []string {
	return p.skipped
}

func (p *Parser) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %w: %s", p.line, ErrSyntax, fmt.Sprintf(format, args...))
}

func (p *Parser) next() (string, bool) {
	if !p.sc.Scan() {
		return "", false
	}
	p.line++
	return strings.TrimRight(p.sc.Text(), "\r"), true
}

// ParseProgram reads every function and builds its CFG
func (p *Parser) ParseProgram() (*cfg.Program, error) {
	var fns []*cfg.Function
	for {
		line, ok := p.next()
		if !ok {
			break
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, startMarker):
			if p.fn != nil {
				return nil, p.errorf("function %s is not terminated", p.fn.Name)
			}
			if err := p.startFunction(strings.TrimSpace(trimmed[len(startMarker):])); err != nil {
				return nil, err
			}
		case strings.HasPrefix(trimmed, endMarker):
			fn, err := p.endFunction()
			if err != nil {
				return nil, err
			}
			fns = append(fns, fn)
		case strings.HasPrefix(trimmed, intList):
			if err := p.declare(false, trimmed[len(intList):]); err != nil {
				return nil, err
			}
		case strings.HasPrefix(trimmed, floatList):
			if err := p.declare(true, trimmed[len(floatList):]); err != nil {
				return nil, err
			}
		case strings.HasSuffix(trimmed, ":"):
			if p.label != "" {
				slog.Debug("label replaced", "line", p.line, "old", p.label)
			}
			p.label = strings.TrimSpace(strings.TrimSuffix(trimmed, ":"))
		default:
			if err := p.instruction(trimmed); err != nil {
				return nil, err
			}
		}
	}
	if err := p.sc.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if p.fn != nil {
		return nil, p.errorf("function %s is not terminated", p.fn.Name)
	}
	return cfg.NewProgram(fns...), nil
}

func (p *Parser) startFunction(name string) error {
	if name == "" {
		return p.errorf("missing function name")
	}
	sig, ok := p.next()
	if !ok {
		return p.errorf("missing signature for %s", name)
	}
	params, err := parseSignature(sig)
	if err != nil {
		return p.errorf("%s: %v", name, err)
	}
	p.fn = &cfg.Function{Name: name, Params: params}
	p.label = ""
	return nil
}

// parseSignature extracts the parameter names of
// "returnType name(paramType paramName, ...)"
func parseSignature(sig string) ([]string, error) {
	open := strings.IndexByte(sig, '(')
	closing := strings.LastIndexByte(sig, ')')
	if open < 0 || closing < open {
		return nil, fmt.Errorf("bad signature %q", sig)
	}
	var params []string
	for _, decl := range strings.Split(sig[open+1:closing], ",") {
		fields := strings.Fields(decl)
		if len(fields) == 0 {
			continue
		}
		params = append(params, fields[len(fields)-1])
	}
	return params, nil
}

// declare appends a comma-separated declaration list to the function's
// integer or float variables
func (p *Parser) declare(floats bool, names string) error {
	if p.fn == nil {
		return p.errorf("declaration outside a function")
	}
	list := &p.fn.Ints
	if floats {
		list = &p.fn.Floats
	}
	for _, n := range strings.Split(names, ",") {
		n = strings.TrimSpace(n)
		// Array declarations carry their size: A[10]
		if i := strings.IndexByte(n, '['); i > 0 {
			size, err := strconv.Atoi(strings.TrimSuffix(n[i+1:], "]"))
			if err != nil || size < 1 {
				return p.errorf("bad array size in %q", n)
			}
			n = n[:i]
			if p.fn.Arrays == nil {
				p.fn.Arrays = make(map[string]int)
			}
			p.fn.Arrays[n] = size
		}
		if n != "" {
			*list = append(*list, n)
		}
	}
	return nil
}

func (p *Parser) instruction(line string) error {
	ins, err := ir.ParseInstruction(line)
	if errors.Is(err, ir.ErrUnknownOp) {
		slog.Debug("skipping line", "line", p.line, "text", line, "err", err)
		p.skipped = append(p.skipped, fmt.Sprintf("line %d: %s", p.line, line))
		return nil
	}
	if err != nil {
		return p.errorf("%v", err)
	}
	if p.fn == nil {
		return p.errorf("instruction outside a function: %s", line)
	}
	ins.Label = p.label
	p.label = ""
	p.fn.Code = append(p.fn.Code, ins)
	return nil
}

func (p *Parser) endFunction() (*cfg.Function, error) {
	if p.fn == nil {
		return nil, p.errorf("%s without %s", endMarker, startMarker)
	}
	fn := p.fn
	p.fn = nil
	p.label = ""
	if err := cfg.Build(fn); err != nil {
		return nil, fmt.Errorf("line %d: %w", p.line, err)
	}
	return fn, nil
}

// Parse reads a whole IR program from r
func Parse(r io.Reader) (*cfg.Program, []string, error) {
	p := New(r)
	prog, err := p.ParseProgram()
	return prog, p.Skipped(), err
}
