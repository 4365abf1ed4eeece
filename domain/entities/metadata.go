package entities

import (
	"time"
)

// RunMetadata contains execution metadata for a transaction.
type RunMetadata struct {
	// StartTime is when the root frame was pushed.
	StartTime time.Time `json:"start_time"`

	// EndTime is when the root frame settled.
	EndTime time.Time `json:"end_time"`

	// Frames is the number of frames pushed during the transaction.
	Frames int `json:"frames"`

	// MaxDepth is the deepest frame reached.
	MaxDepth int `json:"max_depth"`

	// Duration is the total execution time.
	Duration time.Duration `json:"duration_ns"`
}

// NewRunMetadata creates a new RunMetadata with the given start and end times.
func NewRunMetadata(start, end time.Time) *RunMetadata {
	return &RunMetadata{
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
	}
}

// WithFrames records frame statistics and returns the same RunMetadata.
func (m *RunMetadata) WithFrames(frames, maxDepth int) *RunMetadata {
	m.Frames = frames
	m.MaxDepth = maxDepth
	return m
}
