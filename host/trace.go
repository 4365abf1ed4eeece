package host

import (
	"fmt"

	"github.com/xlab/treeprint"
)

// traceNode records one frame of the call tree.
type traceNode struct {
	contract string
	kind     string
	method   string
	code     string
	children []*traceNode
	budget   uint64
	gasUsed  uint64
	static   bool
	settled  bool
	success  bool
}

func (n *traceNode) child(contract string) *traceNode {
	c := &traceNode{contract: contract}
	n.children = append(n.children, c)
	return c
}

func (n *traceNode) label() string {
	s := n.contract
	if n.kind != "" {
		s += " [" + n.kind + "]"
	}
	if n.method != "" {
		s += " " + n.method
	}
	if n.static {
		s += " static"
	}
	s += fmt.Sprintf(" gas=%d/%d", n.gasUsed, n.budget)
	switch {
	case !n.settled:
		s += " pending"
	case n.success:
		s += " ok"
	default:
		s += " failed " + n.code
	}
	return s
}

func (n *traceNode) addTo(tree treeprint.Tree) {
	for _, c := range n.children {
		if len(c.children) == 0 {
			tree.AddNode(c.label())
			continue
		}
		c.addTo(tree.AddBranch(c.label()))
	}
}

// render draws the tree rooted at n.
func (n *traceNode) render() string {
	if n == nil {
		return ""
	}
	tree := treeprint.NewWithRoot(n.label())
	n.addTo(tree)
	return tree.String()
}
