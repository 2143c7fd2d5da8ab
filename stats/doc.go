// Package stats provides the statistics aggregators used by the training
// contexts: a class histogram for classification, a one-dimensional target
// Gaussian or a least squares line for regression and a d-dimensional Gaussian for density
// estimation. Each satisfies forest.Aggregator and reads points from a
// *dataset.Collection.
package stats
