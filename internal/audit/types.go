package audit

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// IdentifierGenerator produces unique cycle identifiers.
type IdentifierGenerator func() string

// PipelineSettings tune a single audit cycle.
type PipelineSettings struct {
	RequestTimeout    time.Duration
	EvidenceFileLimit int
	Focus             Focus
}
