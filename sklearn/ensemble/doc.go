// Package ensemble provides decision forest estimators for classification,
// regression and density estimation on gonum matrices.
//
// Each estimator trains a forest.Forest with a task-specific training
// context: class histograms with entropy gain for classification, target
// Gaussians for regression and d-dimensional Gaussians for density
// estimation.
//
//	clf := ensemble.NewRandomForestClassifier(
//		ensemble.WithTrees(100),
//		ensemble.WithMaxDepth(8),
//		ensemble.WithRandomState(42),
//	)
//	if err := clf.Fit(X, y); err != nil {
//		return err
//	}
//	proba, err := clf.PredictProba(XTest)
package ensemble

import "github.com/YuminosukeSato/decisionforest/core/model"

var (
	_ model.Classifier       = (*RandomForestClassifier)(nil)
	_ model.Regressor        = (*RandomForestRegressor)(nil)
	_ model.DensityEstimator = (*DensityForest)(nil)
	_ model.Persistable      = (*RandomForestClassifier)(nil)
	_ model.Persistable      = (*RandomForestRegressor)(nil)
	_ model.Persistable      = (*DensityForest)(nil)
)
