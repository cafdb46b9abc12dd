package linear

import (
	"fmt"
	"math"
)

// Weights of a fitted logistic model.
type Weights struct {
	Bias         float64   `json:"bias"`
	Coefficients []float64 `json:"coefficients"`
}

// DefaultThreshold separates the positive class from the negative one.
const DefaultThreshold = 0.5

func (w Weights) Validate(featureCount int) error {
	if len(w.Coefficients) != featureCount {
		return fmt.Errorf("model has %d coefficients, expected %d", len(w.Coefficients), featureCount)
	}
	for i, c := range w.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("coefficient %d is not finite", i)
		}
	}
	return nil
}

func Predict(weights Weights, sample []float64) float64 {
	return sigmoid(dot(weights.Coefficients, sample) + weights.Bias)
}

func Classify(probability, threshold float64) int {
	if probability >= threshold {
		return 1
	}
	return 0
}

func dot(weights []float64, sample []float64) float64 {
	var sum float64
	for i := 0; i < len(weights); i++ {
		sum += weights[i] * sample[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
