// Package storage persists evaluated policies so that the service can list
// and filter them after the run that produced them is gone.
package storage

import (
	"context"
	"time"

	"github.com/msdbook/msdsim/internal/fishery"
)

// VersionedRecord tags persisted payloads with their layout versions.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// EvaluationRecord is one archived fitness evaluation.
type EvaluationRecord struct {
	VersionedRecord
	ID           string             `json:"id"`
	RunID        string             `json:"run_id,omitempty"`
	Label        string             `json:"label,omitempty"`
	Vars         []float64          `json:"vars"`
	Params       fishery.Params     `json:"params"`
	NRBF         int                `json:"n_rbf"`
	Realizations int                `json:"realizations"`
	Steps        int                `json:"steps"`
	Seed         int64              `json:"seed"`
	Objectives   fishery.Objectives `json:"objectives"`
	CreatedAt    time.Time          `json:"created_at"`
}

// Store persists evaluation records.
type Store interface {
	Init(ctx context.Context) error
	SaveEvaluation(ctx context.Context, record EvaluationRecord) error
	GetEvaluation(ctx context.Context, id string) (EvaluationRecord, bool, error)
	// ListEvaluations returns records oldest first; limit <= 0 means all.
	ListEvaluations(ctx context.Context, limit int) ([]EvaluationRecord, error)
	Close() error
}
