// Package decisionforest is a generic decision forest engine for Go, with
// classification, regression and density estimators built on top of it.
//
// The engine in core/forest grows binary decision trees from three
// task-supplied pieces: a weak learner that maps a point to a scalar
// response, an aggregator that summarizes the points reaching a node, and a
// training context that scores candidate splits by information gain. Trees
// are stored as implicit heaps and forests persist in a compact binary
// format.
//
// # Installation
//
//	go get github.com/YuminosukeSato/decisionforest
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/decisionforest/sklearn/ensemble"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    X := mat.NewDense(4, 1, []float64{1, 2, 8, 9})
//	    y := []float64{0, 0, 1, 1}
//
//	    clf := ensemble.NewRandomForestClassifier(ensemble.WithTrees(10))
//	    if err := clf.Fit(X, y); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    pred, err := clf.Predict(mat.NewDense(2, 1, []float64{1.5, 8.5}))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("Predictions:", pred)
//	}
//
// # Packages
//
//   - core/forest: trees, forests, sequential and parallel tree trainers, persistence
//   - core/parallel: fixed worker pool used by the parallel trainer
//   - core/model: estimator interfaces, fitted state, atomic file persistence
//   - dataset: dense point collections loaded from TSV or .npy files
//   - features: axis-aligned and linear weak learners
//   - stats: class histograms and Gaussian aggregators
//   - sklearn/ensemble: RandomForestClassifier, RandomForestRegressor, DensityForest
//   - metrics: accuracy, log loss, MSE, MAE, R²
//   - pkg/errors, pkg/log, pkg/telemetry: errors, structured logging, Prometheus metrics
//   - pkg/render: graphviz pictures of single trees
//   - cmd/sherwood: command line trainer, predictor and tree renderer
//
// # Performance
//
// ParallelTreeTrainer splits the split search of every node across a fixed
// pool of workers. With a fixed seed and worker count it produces the same
// tree on every run.
package decisionforest
