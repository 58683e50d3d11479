package storage

import (
	"time"

	"github.com/msdbook/msdsim/internal/fishery"
)

func sampleRecord(id string, created time.Time) EvaluationRecord {
	return Stamp(EvaluationRecord{
		ID:           id,
		RunID:        "run-1",
		Label:        "moderate",
		Vars:         []float64{0.2, 0.5, 1.0, 0.8, 0.3, 1.0},
		Params:       fishery.DefaultParams(),
		NRBF:         2,
		Realizations: 100,
		Steps:        100,
		Seed:         42,
		Objectives: fishery.Objectives{
			NegNPV:          -1962.18,
			PreyDeficit:     0.39,
			NegWorstHarvest: -337.4,
			HarvestVariance: 21191.9,
		},
		CreatedAt: created,
	})
}
