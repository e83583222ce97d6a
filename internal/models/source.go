package models

import "time"

// SourceStatus describes one upstream fetch attempt for a run.
type SourceStatus struct {
	Source       string        `json:"source"`
	Category     Category      `json:"category"`
	HTTPStatus   int           `json:"http_status,omitempty"`
	Features     int           `json:"features"`
	WithGeometry int           `json:"with_geometry"`
	Cached       bool          `json:"cached"`
	Duration     time.Duration `json:"duration_ns"`
	Error        string        `json:"error,omitempty"`
}

func (s SourceStatus) OK() bool {
	return s.Error == ""
}
