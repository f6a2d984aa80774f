package asm

// Builder accumulates the lines of one function in emission order
type Builder struct {
	lines []Line
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Instr emits an instruction
func (b *Builder) Instr(op string, args ...string) {
	b.lines = append(b.lines, Line{Op: op, Args: args})
}

// Commented emits an instruction with a trailing comment
func (b *Builder) Commented(comment, op string, args ...string) {
	b.lines = append(b.lines, Line{Op: op, Args: args, Comment: comment})
}

// Comment emits a comment on its own line
func (b *Builder) Comment(text string) {
	b.lines = append(b.lines, Line{Comment: text})
}

// Label emits a label line
func (b *Builder) Label(name string) {
	b.lines = append(b.lines, Line{Label: name})
}

// Lines returns the lines emitted so far
func (b *Builder) Lines() []Line {
	return b.lines
}

// Len returns the number of lines emitted so far
func (b *Builder) Len() int {
	return len(b.lines)
}

// Reset discards every emitted line
func (b *Builder) Reset() {
	b.lines = nil
}

// Finish returns the emitted lines as a function and resets the builder
func (b *Builder) Finish(name string) Function {
	f := Function{Name: name, Lines: b.lines}
	b.lines = nil
	return f
}
