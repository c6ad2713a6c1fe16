package bench

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// TimingRecord is one block of the results log.
type TimingRecord struct {
	RunID       string
	Timestamp   string
	Case        string
	Size        int
	Repetitions int
	Samples     []int64
	Mean        float64
}

// NewTimingRecord builds a record and computes its mean.
func NewTimingRecord(runID, timestamp, name string, size, repetitions int, samples []int64) TimingRecord {
	return TimingRecord{
		RunID:       runID,
		Timestamp:   timestamp,
		Case:        name,
		Size:        size,
		Repetitions: repetitions,
		Samples:     samples,
		Mean:        Mean(samples, repetitions),
	}
}

// Mean returns the sum of samples divided by the repetition count.
//
// It returns NaN when there are no samples or the repetition count is not
// positive.
func Mean(samples []int64, repetitions int) float64 {
	if len(samples) == 0 || repetitions <= 0 {
		return math.NaN()
	}
	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = float64(s)
	}
	return floats.Sum(values) / float64(repetitions)
}
