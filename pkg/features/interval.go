package features

import (
	"fmt"
	"math"

	"github.com/synaptica-ai/icu-features/pkg/common/errs"
)

// Unit selects the horizon of the stay that bins partition.
type Unit string

const (
	Hour   Unit = "hour"
	Minute Unit = "minute"
)

// StayHours is the length of every stay in the challenge data.
const StayHours = 48

func Horizon(unit Unit) (float64, error) {
	switch unit {
	case Hour:
		return StayHours, nil
	case Minute:
		return StayHours * 60, nil
	}
	return 0, fmt.Errorf("unknown interval unit %q", unit)
}

// Bins lists the ceilings of the right-closed bins of the given width.
func Bins(width float64, unit Unit) ([]float64, error) {
	n, err := binCount(width, unit)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i+1) * width
	}
	return out, nil
}

func binCount(width float64, unit Unit) (int, error) {
	horizon, err := Horizon(unit)
	if err != nil {
		return 0, err
	}
	if !(width > 0) {
		return 0, fmt.Errorf("interval width must be positive, got %v", width)
	}
	n := int(horizon / width)
	if n < 1 {
		return 0, fmt.Errorf("interval width %v exceeds horizon %v", width, horizon)
	}
	return n, nil
}

// Assign maps v to the ceiling of its bin: floor < v <= ceiling. Zero belongs
// to the first bin. Values outside [0, last ceiling] are rejected, never clamped.
func Assign(v, width float64, unit Unit) (float64, error) {
	n, err := binCount(width, unit)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return width, nil
	}
	if math.IsNaN(v) || v < 0 {
		return 0, fmt.Errorf("%w: %v", errs.ErrOutOfHorizon, v)
	}
	k := int(math.Ceil(v / width))
	if v > float64(k)*width {
		k++
	}
	if k > 1 && v <= float64(k-1)*width {
		k--
	}
	if k > n {
		return 0, fmt.Errorf("%w: %v beyond last bin %v", errs.ErrOutOfHorizon, v, float64(n)*width)
	}
	return float64(k) * width, nil
}
