// Package analysis compares observed roll samples against a die's
// theoretical uniform model.
package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/cory-johannsen/polydie/internal/game/dice"
)

// ErrEmptySample is returned when Summarize is given no values.
var ErrEmptySample = errors.New("analysis: sample must not be empty")

// Summary holds descriptive statistics for a sample and a Pearson
// chi-square goodness-of-fit test against the uniform model.
type Summary struct {
	Count            int
	Mean             float64
	StdDev           float64
	Min              float64
	Max              float64
	Median           float64
	ExpectedMean     float64
	MeanError        float64
	ChiSquare        float64
	DegreesOfFreedom int
	PValue           float64
	// Frequencies counts each rolled face; faces never rolled are absent.
	Frequencies      map[int]int
}

// Uniform reports whether the sample is consistent with a fair die at
// significance level alpha.
func (s Summary) Uniform(alpha float64) bool {
	return s.PValue >= alpha
}

// Summarize computes descriptive statistics for values and tests them against
// d's uniform face distribution.
//
// Precondition: every value must be a face of d.
// Postcondition: Returns a Summary, ErrEmptySample, or an error matching
// dice.ErrValue when a value is not a face of d.
func Summarize(d dice.Die, values []int) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, ErrEmptySample
	}

	freq := make(map[int]int)
	data := make(stats.Float64Data, len(values))
	for i, v := range values {
		if !d.Contains(v) {
			return Summary{}, fmt.Errorf("analysis: value %d is not a face of %s: %w", v, d, dice.ErrValue)
		}
		freq[v]++
		data[i] = float64(v)
	}

	s := Summary{
		Count:        len(values),
		ExpectedMean: d.Mean(1),
		Frequencies:  freq,
	}

	var err error
	if s.Mean, err = stats.Mean(data); err != nil {
		return Summary{}, fmt.Errorf("analysis: mean: %w", err)
	}
	if s.StdDev, err = stats.StandardDeviation(data); err != nil {
		return Summary{}, fmt.Errorf("analysis: standard deviation: %w", err)
	}
	if s.Min, err = stats.Min(data); err != nil {
		return Summary{}, fmt.Errorf("analysis: min: %w", err)
	}
	if s.Max, err = stats.Max(data); err != nil {
		return Summary{}, fmt.Errorf("analysis: max: %w", err)
	}
	if s.Median, err = stats.Median(data); err != nil {
		return Summary{}, fmt.Errorf("analysis: median: %w", err)
	}
	s.MeanError = math.Abs(s.Mean - s.ExpectedMean)

	faces := d.EffectiveFaceCount()
	s.DegreesOfFreedom = faces - 1
	if s.DegreesOfFreedom == 0 {
		// One rollable face: every sample is trivially uniform.
		s.PValue = 1
		return s, nil
	}

	expected := float64(len(values)) * d.Probability()
	for _, observed := range freq {
		diff := float64(observed) - expected
		s.ChiSquare += diff * diff / expected
	}
	// Each unrolled face contributes (0 - expected)^2 / expected.
	s.ChiSquare += float64(faces-len(freq)) * expected
	chi := distuv.ChiSquared{K: float64(s.DegreesOfFreedom)}
	s.PValue = 1 - chi.CDF(s.ChiSquare)
	return s, nil
}
