package linear

import (
	"math"
	"testing"
)

func TestPredictAndClassify(t *testing.T) {
	w := Weights{Bias: -1, Coefficients: []float64{2, 0.5}}
	if err := w.Validate(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := Predict(w, []float64{0.5, 0})
	if math.Abs(p-0.5) > 1e-12 {
		t.Fatalf("expected 0.5, got %v", p)
	}
	if Classify(p, DefaultThreshold) != 1 {
		t.Fatal("expected positive class at threshold")
	}
	if Classify(Predict(w, []float64{-3, 0}), DefaultThreshold) != 0 {
		t.Fatal("expected negative class")
	}
}

func TestValidateRejectsShapeMismatch(t *testing.T) {
	w := Weights{Coefficients: []float64{1, math.NaN()}}
	if err := w.Validate(3); err == nil {
		t.Fatal("expected length mismatch error")
	}
	if err := w.Validate(2); err == nil {
		t.Fatal("expected non-finite coefficient error")
	}
}
