package kafka

import (
	"encoding/json"
	"fmt"
	"math"

	"fbench/internal/domain/bench"
)

type recordEnvelope struct {
	RunID       string   `json:"run_id,omitempty"`
	Case        string   `json:"case"`
	Size        int      `json:"size"`
	Repetitions int      `json:"repetitions"`
	Mean        *float64 `json:"mean,omitempty"`
	Samples     []int64  `json:"samples"`
	Timestamp   string   `json:"timestamp"`
}

func recordKey(record bench.TimingRecord) string {
	return fmt.Sprintf("%s/%d", record.Case, record.Size)
}

func encodeRecord(record bench.TimingRecord) ([]byte, error) {
	payload, err := json.Marshal(makeRecordEnvelope(record))
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return payload, nil
}

func makeRecordEnvelope(record bench.TimingRecord) recordEnvelope {
	// JSON has no NaN; a record without samples carries no mean.
	var mean *float64
	if !math.IsNaN(record.Mean) && !math.IsInf(record.Mean, 0) {
		m := record.Mean
		mean = &m
	}

	samples := record.Samples
	if samples == nil {
		samples = []int64{}
	}

	return recordEnvelope{
		RunID:       record.RunID,
		Case:        record.Case,
		Size:        record.Size,
		Repetitions: record.Repetitions,
		Mean:        mean,
		Samples:     samples,
		Timestamp:   record.Timestamp,
	}
}
