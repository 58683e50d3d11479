package simd

import (
	"context"
	"testing"
	"time"

	"github.com/msdbook/msdsim/internal/fishery"
	"github.com/msdbook/msdsim/internal/storage"
	"github.com/msdbook/msdsim/pkg/config"
	"github.com/msdbook/msdsim/pkg/models"
)

const tol = 1e-9

var moderateVars = []float64{0.2, 0.5, 1.0, 0.8, 0.3, 1.0}

// Hand-computed objectives of moderateVars in noiselessParams over one
// realization of three steps.
const (
	moderateNegNPV      = -1962.184377119749
	moderatePreyDeficit = 0.3934871358100175
)

func noiselessParams() *fishery.Params {
	return &fishery.Params{
		Strategy: fishery.StrategyPreviousPrey,
		A:        0.005,
		B:        0.5,
		C:        0.5,
		D:        0.1,
		H:        0.1,
		K:        2000,
		M:        0.7,
	}
}

func moderateInput() EvaluationInput {
	return EvaluationInput{
		Label:        "moderate",
		Vars:         append([]float64(nil), moderateVars...),
		Params:       noiselessParams(),
		Realizations: 1,
		Steps:        3,
	}
}

// overflowInput is well formed, but its prey growth rate overflows the
// harvest variance within three steps.
func overflowInput() EvaluationInput {
	in := moderateInput()
	in.Label = "overflow"
	in.Params.B = 1e200
	return in
}

func requireEmptyArchive(t *testing.T, archive storage.Store) {
	t.Helper()
	records, err := archive.ListEvaluations(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListEvaluations error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected nothing archived, got %d records", len(records))
	}
}

func testDefaults() config.EvaluationConfig {
	return config.EvaluationConfig{
		Realizations: 5,
		Steps:        10,
		NRBF:         2,
		Seed:         42,
		Workers:      2,
	}
}

func newMemoryArchive(t *testing.T) *storage.MemoryStore {
	t.Helper()
	archive := storage.NewMemoryStore()
	if err := archive.Init(context.Background()); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	return archive
}

type testService struct {
	store     *RunStore
	archive   *storage.MemoryStore
	evaluator *Evaluator
	executor  *RunExecutor
}

func newTestService(t *testing.T) *testService {
	t.Helper()
	store := NewRunStore()
	archive := newMemoryArchive(t)
	evaluator := NewEvaluator(testDefaults(), archive)
	executor := NewRunExecutor(store, evaluator)
	t.Cleanup(executor.Wait)
	return &testService{store: store, archive: archive, evaluator: evaluator, executor: executor}
}

func waitForStatus(t *testing.T, store *RunStore, runID string, want models.RunStatus) *RunRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, ok := store.Get(runID)
		if !ok {
			t.Fatalf("run %s not found", runID)
		}
		if rec.Run.Status == want {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	rec, _ := store.Get(runID)
	t.Fatalf("run %s did not reach %s, last status %s", runID, want, rec.Run.Status)
	return nil
}

func almostEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}
