package tracing

import (
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/bindtrace/activity"
)

// A BindNode is a bind with the binds it triggered.
type BindNode struct {
	Record   BindRecord  `json:"record"`
	Children []*BindNode `json:"children,omitempty"`
}

// BuildForest reassembles the nesting of binds.
//
// Binds are grouped into chains by their root activity. Within a chain the
// events come from one thread and are strictly nested, so a bind is the
// child of the innermost bind of its chain that was still open when it
// started. Records whose root is missing become roots themselves.
func BuildForest(records []BindRecord) []*BindNode {
	sorted := make([]BindRecord, len(records))
	copy(sorted, records)
	SortByStart(sorted)

	known := make(map[activity.ID]bool, len(sorted))
	for _, rec := range sorted {
		known[rec.ActivityID] = true
	}

	var roots []*BindNode
	stacks := make(map[activity.ID][]*BindNode)

	for _, rec := range sorted {
		node := &BindNode{Record: rec}

		root := rec.RootID()
		if root == rec.ActivityID || !known[root] {
			roots = append(roots, node)
			stacks[rec.ActivityID] = []*BindNode{node}

			continue
		}

		stack := stacks[root]
		for len(stack) > 1 && stack[len(stack)-1].Record.StopSeq < rec.StartSeq {
			stack = stack[:len(stack)-1]
		}

		parent := stack[len(stack)-1]
		parent.Children = append(parent.Children, node)
		stacks[root] = append(stack, node)
	}

	return roots
}

// Walk visits the node and its descendants depth first.
func (n *BindNode) Walk(visit func(node *BindNode, depth int)) {
	n.walk(visit, 0)
}

func (n *BindNode) walk(visit func(node *BindNode, depth int), depth int) {
	visit(n, depth)

	for _, c := range n.Children {
		c.walk(visit, depth+1)
	}
}

// PrintForest writes the forest as an indented tree.
func PrintForest(w io.Writer, forest []*BindNode) error {
	for _, root := range forest {
		var err error

		root.Walk(func(node *BindNode, depth int) {
			if err != nil {
				return
			}

			_, err = fmt.Fprintf(w, "%s%s\n",
				strings.Repeat("  ", depth), describe(node.Record))
		})

		if err != nil {
			return err
		}
	}

	return nil
}

func describe(rec BindRecord) string {
	outcome := "FAILED"

	switch {
	case !rec.Completed:
		outcome = "INCOMPLETE"
	case rec.Success:
		outcome = "OK " + rec.ResultPath
	}

	return fmt.Sprintf("%s [%s] @%s: %s",
		rec.Name, rec.EntryPoint, rec.ContextLabel, outcome)
}
