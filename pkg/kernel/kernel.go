// Package kernel defines the evaluation collaborator behind the kind front
// door: something that turns a source form into a value.
//
// The Starlark implementation lives in the starlark subpackage.
package kernel

import "context"

// Kernel evaluates source forms against persistent state. Implementations
// need not be safe for concurrent use.
type Kernel interface {
	Eval(ctx context.Context, form string) (any, error)
}

// Splitter splits a source file into top-level forms in source order.
type Splitter interface {
	Forms(src string) ([]string, error)
}

// Binding is the handle a kernel returns for a form that defines or assigns
// a name instead of producing a value. It is displayed by itself.
type Binding struct {
	Name string
}

// Reference returns the bound name.
func (b Binding) Reference() string { return b.Name }

func (b Binding) String() string { return "<binding " + b.Name + ">" }
