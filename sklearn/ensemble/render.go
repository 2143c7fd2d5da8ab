package ensemble

import (
	"io"

	"github.com/goccy/go-graphviz"

	"github.com/YuminosukeSato/decisionforest/core/forest"
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
	"github.com/YuminosukeSato/decisionforest/pkg/render"
)

func drawTree[F forest.WeakLearner, S forest.Aggregator[S]](f *forest.Forest[F, S], tree int, format graphviz.Format, w io.Writer) error {
	if tree < 0 || tree >= f.TreeCount() {
		return errors.NewValidationError("tree", "must index a trained tree", tree)
	}
	return render.Render(f.Tree(tree), format, w)
}
