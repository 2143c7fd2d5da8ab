// Package render draws trained trees with graphviz.
package render

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/YuminosukeSato/decisionforest/core/forest"
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

// ParseFormat maps a file extension or format name to a graphviz format.
func ParseFormat(name string) (graphviz.Format, error) {
	switch strings.TrimPrefix(strings.ToLower(name), ".") {
	case "svg":
		return graphviz.SVG, nil
	case "png":
		return graphviz.PNG, nil
	case "jpg", "jpeg":
		return graphviz.JPG, nil
	case "dot", "gv":
		return graphviz.XDOT, nil
	default:
		return "", errors.NewValidationError("format", "must be svg, png, jpg or dot", name)
	}
}

// Label returns the text drawn for a node: the weak learner and threshold of
// a split followed by the node statistics. Values implementing fmt.Stringer
// print through String.
func Label[F forest.WeakLearner, S forest.Aggregator[S]](n forest.Node[F, S]) string {
	stats := fmt.Sprint(n.Statistics)
	if !n.IsSplit() {
		return stats
	}
	return fmt.Sprintf("%v >= %.4g\n%s", n.Learner, n.Threshold, stats)
}

// DrawTree builds a graph of the non-null nodes of tree. The caller closes
// both returned values.
func DrawTree[F forest.WeakLearner, S forest.Aggregator[S]](tree *forest.Tree[F, S]) (*graphviz.Graphviz, *cgraph.Graph, error) {
	gv, err := graphviz.New(context.Background())
	if err != nil {
		return nil, nil, errors.Wrap(err, "render: create graphviz")
	}
	graph, err := gv.Graph()
	if err != nil {
		_ = gv.Close()
		return nil, nil, errors.Wrap(err, "render: create graph")
	}
	if err := draw(graph, tree, 0, nil); err != nil {
		_ = graph.Close()
		_ = gv.Close()
		return nil, nil, err
	}
	return gv, graph, nil
}

func draw[F forest.WeakLearner, S forest.Aggregator[S]](g *cgraph.Graph, tree *forest.Tree[F, S], index int, parent *cgraph.Node) error {
	n := tree.Node(index)
	if n.IsNull() {
		return nil
	}
	node, err := g.CreateNodeByName(fmt.Sprint(index))
	if err != nil {
		return errors.Wrapf(err, "render: create node %d", index)
	}
	if parent != nil {
		if _, err := g.CreateEdgeByName("", parent, node); err != nil {
			return errors.Wrapf(err, "render: create edge to node %d", index)
		}
	}

	node.Set("label", Label(n))
	if !n.IsSplit() {
		node.Set("shape", "box")
		return nil
	}
	if err := draw(g, tree, 2*index+1, node); err != nil {
		return err
	}
	return draw(g, tree, 2*index+2, node)
}

// Render writes tree to w in format.
func Render[F forest.WeakLearner, S forest.Aggregator[S]](tree *forest.Tree[F, S], format graphviz.Format, w io.Writer) error {
	if tree.Node(0).IsNull() {
		return errors.NewValueError("render.Render", "tree has no root")
	}
	gv, graph, err := DrawTree(tree)
	if err != nil {
		return err
	}
	defer func() {
		_ = graph.Close()
		_ = gv.Close()
	}()
	if err := gv.Render(context.Background(), graph, format, w); err != nil {
		return errors.Wrap(err, "render: write graph")
	}
	return nil
}
