package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "training failed",
			err:     fmt.Errorf("test error"),
			wantMsg: "forest: Fit: training failed: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			err:     nil,
			wantMsg: "forest: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("MaxDecisionLevels", "must be in [0, 19]", 25)

	want := "forest: validation failed for parameter 'MaxDecisionLevels': must be in [0, 19] (got: 25)"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var valErr *ValidationError
	if !As(err, &valErr) {
		t.Fatal("Error should be castable to *ValidationError")
	}
	if valErr.ParamName != "MaxDecisionLevels" {
		t.Errorf("ParamName = %v", valErr.ParamName)
	}
}

func TestNewStructureError(t *testing.T) {
	err := NewStructureError("Tree.Validate", 5, "non-leaf node at maximum depth")

	want := "forest: Tree.Validate: invalid tree at node 5: non-leaf node at maximum depth"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	if !Is(err, ErrInvalidTree) {
		t.Error("StructureError should match ErrInvalidTree")
	}

	empty := NewStructureError("Tree.Validate", -1, "empty tree")
	if empty.Error() != "forest: Tree.Validate: invalid tree: empty tree" {
		t.Errorf("Error() = %v", empty.Error())
	}
}

func TestNewFormatError(t *testing.T) {
	err := NewFormatError("unsupported version 3.1", nil)
	if !Is(err, ErrUnsupportedFormat) {
		t.Error("FormatError should match ErrUnsupportedFormat")
	}

	cause := fmt.Errorf("unexpected EOF")
	wrapped := NewFormatError("reading tree count", cause)
	if !Is(wrapped, cause) {
		t.Error("FormatError should unwrap to its cause")
	}
	if !Is(wrapped, ErrUnsupportedFormat) {
		t.Error("FormatError with cause should still match ErrUnsupportedFormat")
	}
	if !strings.Contains(wrapped.Error(), "reading tree count: unexpected EOF") {
		t.Errorf("unexpected message %q", wrapped.Error())
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("RandomForestClassifier", "Predict")

	want := "forest: RandomForestClassifier: this model is not fitted yet. Call Fit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestEmptyNodeWarning(t *testing.T) {
	var got error
	SetWarningHandler(func(w error) { got = w })
	defer SetWarningHandler(nil)

	Warn(NewEmptyNodeWarning(6, 2))

	if got == nil {
		t.Fatal("warning handler was not called")
	}
	if got.Error() != "node 6 at depth 2 received no training points and was finalized as a leaf" {
		t.Errorf("unexpected warning %q", got.Error())
	}
}

func TestCheckScalar(t *testing.T) {
	if err := CheckScalar("gain", 0.5, 0); err != nil {
		t.Errorf("finite value should pass: %v", err)
	}

	err := CheckScalar("gain", math.NaN(), 3)
	var numErr *NumericalInstabilityError
	if !As(err, &numErr) {
		t.Fatalf("expected NumericalInstabilityError, got %T", err)
	}
	if numErr.Iteration != 3 {
		t.Errorf("Iteration = %d, want 3", numErr.Iteration)
	}
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Fit", 10, 0)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}

	expectedMsg := "in Fit: expected 10, got 0"
	if !strings.Contains(wrapped.Error(), expectedMsg) {
		t.Errorf("Expected wrapped error to contain %q", expectedMsg)
	}
}
