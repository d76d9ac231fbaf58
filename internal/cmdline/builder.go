// Package cmdline builds argument lists in which optional flags appear only
// when they carry a value.
package cmdline

import (
	"strconv"

	"github.com/kballard/go-shellquote"
	"github.com/me/visiumflow/pkg/model"
)

// Builder accumulates an argument list.
type Builder struct {
	args []string
}

// New starts an argument list with the program name and any fixed arguments.
func New(name string, args ...string) *Builder {
	return &Builder{args: append([]string{name}, args...)}
}

// Arg appends positional arguments.
func (b *Builder) Arg(args ...string) *Builder {
	b.args = append(b.args, args...)
	return b
}

// Flag appends a flag and its value.
func (b *Builder) Flag(name, value string) *Builder {
	b.args = append(b.args, name, value)
	return b
}

// Int appends a flag with an integer value.
func (b *Builder) Int(name string, value int) *Builder {
	return b.Flag(name, strconv.Itoa(value))
}

// Opt appends a flag only when value is present.
func (b *Builder) Opt(name string, value model.Optional[string]) *Builder {
	if v, ok := value.Get(); ok {
		b.args = append(b.args, name, v)
	}
	return b
}

// Bool appends a bare flag when cond is true.
func (b *Builder) Bool(name string, cond bool) *Builder {
	if cond {
		b.args = append(b.args, name)
	}
	return b
}

// Name returns the program name.
func (b *Builder) Name() string {
	return b.args[0]
}

// Args returns the arguments after the program name.
func (b *Builder) Args() []string {
	return append([]string(nil), b.args[1:]...)
}

// Shell renders the argument vector as a single shell-quoted line.
func (b *Builder) Shell() string {
	return shellquote.Join(b.args...)
}
