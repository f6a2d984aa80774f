// Package report renders allocation and liveness results as tables for the
// --dalloc and --dlive dumps.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/raymyers/ralph-mips/pkg/asm"
	"github.com/raymyers/ralph-mips/pkg/cfg"
	"github.com/raymyers/ralph-mips/pkg/regalloc"
)

func varList(s regalloc.VarSet) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s.Sorted(), " ")
}

func varType(fn *cfg.Function, v string) string {
	if fn.IsFloat(v) {
		return "float"
	}
	return "int"
}

// Allocation writes one row per declared variable: its web, interference
// degree and final location
func Allocation(w io.Writer, prog *cfg.Program, fn *cfg.Function, alloc *regalloc.Allocation) {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("Allocation: %s (K=%d)", fn.Name, alloc.K))
	t.AppendHeader(table.Row{"Variable", "Type", "Web size", "Degree", "Location"})

	for _, v := range append(append([]string{}, fn.Ints...), fn.Floats...) {
		typ := varType(fn, v)
		if prog.IsGlobal(v) {
			t.AppendRow(table.Row{v, typ, "-", "-", v + " (global)"})
			continue
		}
		if fn.IsArray(v) {
			t.AppendRow(table.Row{v, "int[]", "-", "-", v + " (array)"})
			continue
		}
		offset, _, _ := fn.Slot(v)
		web, ok := alloc.Webs[v]
		if !ok {
			t.AppendRow(table.Row{v, typ, 0, "-", asm.StackSlot(offset)})
			continue
		}
		loc := asm.StackSlot(offset) + " (spilled)"
		if web.Colored() {
			loc = asm.Saved(web.Color)
		}
		t.AppendRow(table.Row{v, typ, len(web.Instrs), alloc.Graph.Degree(v), loc})
	}
	fmt.Fprintln(w, t.Render())
}

// Liveness writes the live-out set of every instruction
func Liveness(w io.Writer, fn *cfg.Function, live *regalloc.LivenessInfo) {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("Liveness: %s (%d passes)", fn.Name, live.Passes))
	t.AppendHeader(table.Row{"#", "Block", "Instruction", "Live out"})

	for _, b := range fn.Blocks {
		for i := b.Start; i < b.End; i++ {
			ins := fn.Code[i]
			text := ins.String()
			if ins.HasLabel() {
				text = ins.Label + ": " + text
			}
			t.AppendRow(table.Row{i, fmt.Sprintf("B%d", b.ID), text, varList(live.LiveOut[i])})
		}
	}
	fmt.Fprintln(w, t.Render())
}

// BlockLiveness writes the aggregated def, use and live-out sets of every
// block
func BlockLiveness(w io.Writer, fn *cfg.Function, bl *regalloc.BlockLiveness) {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("Block liveness: %s (%d passes)", fn.Name, bl.Passes))
	t.AppendHeader(table.Row{"Block", "Label", "Uses", "Defs", "Live out"})

	for _, b := range fn.Blocks {
		label := b.Label
		if label == "" {
			label = "-"
		}
		t.AppendRow(table.Row{fmt.Sprintf("B%d", b.ID), label, varList(bl.Use[b.ID]), varList(bl.Def[b.ID]), varList(bl.LiveOut[b.ID])})
	}
	fmt.Fprintln(w, t.Render())
}
