package engine

import (
	"fmt"
	"io"
	"strings"
)

// RenderOptions controls tree rendering.
type RenderOptions struct {
	// Timing adds "in N ms" to every line.
	Timing bool

	// Indent is the per-level indentation. Default: two spaces.
	Indent string
}

// Render writes the executed tree, one action per line:
//
//	UpdateRequest in 12 ms: ok
//	  ValidateOperation in 3 ms: ok
//
// Without timing the "in N ms" part is omitted, which keeps output stable for
// golden comparison.
func (n *Node) Render(w io.Writer, opts RenderOptions) error {
	if opts.Indent == "" {
		opts.Indent = "  "
	}
	return n.render(w, opts, 0)
}

func (n *Node) render(w io.Writer, opts RenderOptions, depth int) error {
	if n == nil {
		return nil
	}
	line := strings.Repeat(opts.Indent, depth) + n.Name
	if opts.Timing {
		line += fmt.Sprintf(" in %d ms", n.Elapsed.Milliseconds())
	}
	if n.Result != nil {
		line += ": " + n.Result.String()
	} else {
		line += ": aborted"
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := c.render(w, opts, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// String renders the tree without timing.
func (n *Node) String() string {
	var b strings.Builder
	_ = n.Render(&b, RenderOptions{})
	return b.String()
}

// Names returns the action names of the tree in pre-order.
func (n *Node) Names() []string {
	if n == nil {
		return nil
	}
	out := []string{n.Name}
	for _, c := range n.Children {
		out = append(out, c.Names()...)
	}
	return out
}

// ChildNames returns the names of the direct children.
func (n *Node) ChildNames() []string {
	if n == nil {
		return nil
	}
	out := make([]string, len(n.Children))
	for i, c := range n.Children {
		out[i] = c.Name
	}
	return out
}
