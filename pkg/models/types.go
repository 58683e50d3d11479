package models

import (
	"time"
)

// RunStatus represents the status of an evaluation run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// ParseRunStatus maps a status name to a RunStatus
func ParseRunStatus(s string) (RunStatus, bool) {
	switch RunStatus(s) {
	case RunStatusPending, RunStatusRunning, RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return RunStatus(s), true
	}
	return "", false
}

// Terminal reports whether no further transitions are allowed
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// Run represents one asynchronous policy evaluation
type Run struct {
	ID           string            `json:"id"`
	Status       RunStatus         `json:"status"`
	Label        string            `json:"label,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	StartedAt    time.Time         `json:"started_at,omitempty"`
	EndedAt      time.Time         `json:"ended_at,omitempty"`
	Duration     time.Duration     `json:"duration,omitempty"`
	EvaluationID string            `json:"evaluation_id,omitempty"`
	Error        string            `json:"error,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// MetricPoint represents a single value of a trajectory at a time step
type MetricPoint struct {
	Step   int               `json:"step"`
	Name   string            `json:"name"`
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels,omitempty"`
}

// Aggregation represents aggregated statistics for a metric
type Aggregation struct {
	Count  int64   `json:"count"`
	Sum    float64 `json:"sum"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	P01    float64 `json:"p01"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
}
