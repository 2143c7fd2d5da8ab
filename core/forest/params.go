package forest

import (
	"fmt"

	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

// TrainingParameters controls tree growth. The mapstructure tags let the
// command line load them from a config file through viper.
type TrainingParameters struct {
	// NumberOfTrees is the number of independently trained trees in a forest.
	NumberOfTrees int `mapstructure:"trees"`

	// NumberOfCandidateFeatures is the number of random weak learners tried
	// at each node.
	NumberOfCandidateFeatures int `mapstructure:"features"`

	// NumberOfCandidateThresholdsPerFeature is the number of thresholds
	// sampled for each candidate weak learner.
	NumberOfCandidateThresholdsPerFeature int `mapstructure:"thresholds"`

	// MaxDecisionLevels is the maximum tree depth D. A tree has 2^(D+1)-1
	// node slots and D must be in [0, MaxDepth].
	MaxDecisionLevels int `mapstructure:"depth"`

	// Verbose adds one DEBUG progress record per node to the per-tree INFO record.
	Verbose bool `mapstructure:"verbose"`
}

// DefaultTrainingParameters returns the defaults used by the command line.
func DefaultTrainingParameters() TrainingParameters {
	return TrainingParameters{
		NumberOfTrees:                         10,
		NumberOfCandidateFeatures:             10,
		NumberOfCandidateThresholdsPerFeature: 10,
		MaxDecisionLevels:                     10,
	}
}

// Validate reports the first invalid parameter as a *errors.ValidationError.
func (p TrainingParameters) Validate() error {
	if p.NumberOfTrees < 1 {
		return errors.NewValidationError("NumberOfTrees", "must be at least 1", p.NumberOfTrees)
	}
	if p.NumberOfCandidateFeatures < 1 {
		return errors.NewValidationError("NumberOfCandidateFeatures", "must be at least 1", p.NumberOfCandidateFeatures)
	}
	if p.NumberOfCandidateThresholdsPerFeature < 1 {
		return errors.NewValidationError("NumberOfCandidateThresholdsPerFeature", "must be at least 1",
			p.NumberOfCandidateThresholdsPerFeature)
	}
	if p.MaxDecisionLevels < 0 || p.MaxDecisionLevels > MaxDepth {
		return errors.NewValidationError("MaxDecisionLevels", fmt.Sprintf("must be in [0, %d]", MaxDepth),
			p.MaxDecisionLevels)
	}
	return nil
}
