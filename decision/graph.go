// Package decision flattens the engine's search tree into a node/edge graph
// and describes the candidate moves of its last decision.
package decision

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/brensch/broadside/api"
)

// Node is one graph vertex. ID is the pre-order index of the tree node.
type Node struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// Edge links a parent to a child by ID.
type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Layout holds the hierarchical layout hints handed to the graph widget.
type Layout struct {
	Hierarchical    bool   `json:"hierarchical"`
	Direction       string `json:"direction"`
	SortMethod      string `json:"sort_method"`
	LevelSeparation int    `json:"level_separation"`
	NodeSpacing     int    `json:"node_spacing"`
	Physics         bool   `json:"physics"`
	NodeShape       string `json:"node_shape"`
}

// DefaultLayout is a top-down tree with physics off.
func DefaultLayout() Layout {
	return Layout{
		Hierarchical:    true,
		Direction:       "UD",
		SortMethod:      "directed",
		LevelSeparation: 100,
		NodeSpacing:     100,
		Physics:         false,
		NodeShape:       "ellipse",
	}
}

// Graph is the flat form of a search tree.
type Graph struct {
	Nodes  []Node `json:"nodes"`
	Edges  []Edge `json:"edges"`
	Layout Layout `json:"layout"`
}

// Label renders the node caption: action, visits and wins on three lines.
func Label(n *api.TreeNode) string {
	return n.Action.String() + "\nV=" + strconv.Itoa(n.Visits) + "\nW=" + strconv.Itoa(n.Wins)
}

// FromTree numbers every node in pre-order and emits one edge per
// parent/child pair. A nil root gives an empty graph.
func FromTree(root *api.TreeNode) Graph {
	g := Graph{Nodes: []Node{}, Edges: []Edge{}, Layout: DefaultLayout()}
	if root == nil {
		return g
	}
	var walk func(n *api.TreeNode, parent int)
	walk = func(n *api.TreeNode, parent int) {
		id := len(g.Nodes)
		g.Nodes = append(g.Nodes, Node{ID: id, Label: Label(n)})
		if parent >= 0 {
			g.Edges = append(g.Edges, Edge{From: parent, To: id})
		}
		for _, c := range n.Children {
			if c == nil {
				continue
			}
			walk(c, id)
		}
	}
	walk(root, -1)
	return g
}

// Children returns the IDs reachable from id in edge order.
func (g Graph) Children(id int) []int {
	var out []int
	for _, e := range g.Edges {
		if e.From == id {
			out = append(out, e.To)
		}
	}
	return out
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// WriteDOT writes the graph in Graphviz dot syntax.
func (g Graph) WriteDOT(w io.Writer) error {
	rank := "TB"
	if g.Layout.Direction == "LR" {
		rank = "LR"
	}
	if _, err := fmt.Fprintf(w, "digraph search {\n  rankdir=%s;\n  node [shape=%s];\n", rank, g.Layout.NodeShape); err != nil {
		return err
	}
	for _, n := range g.Nodes {
		label := dotEscaper.Replace(n.Label)
		if _, err := fmt.Fprintf(w, "  n%d [label=\"%s\"];\n", n.ID, label); err != nil {
			return err
		}
	}
	for _, e := range g.Edges {
		if _, err := fmt.Fprintf(w, "  n%d -> n%d;\n", e.From, e.To); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "}\n")
	return err
}
