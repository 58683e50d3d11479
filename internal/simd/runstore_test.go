package simd

import (
	"errors"
	"testing"
	"time"

	"github.com/msdbook/msdsim/internal/fishery"
	"github.com/msdbook/msdsim/pkg/models"
)

func TestRunStoreCreateAndGet(t *testing.T) {
	store := NewRunStore()

	rec, err := store.Create("", &RunInput{EvaluationInput: moderateInput()})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if rec.Run.ID == "" {
		t.Fatalf("expected generated run id")
	}
	if rec.Run.Status != models.RunStatusPending {
		t.Fatalf("expected status pending, got %v", rec.Run.Status)
	}
	if rec.Run.Label != "moderate" {
		t.Fatalf("expected label from input, got %q", rec.Run.Label)
	}
	if rec.Run.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}

	got, ok := store.Get(rec.Run.ID)
	if !ok {
		t.Fatalf("expected run to exist")
	}
	if got.Run.ID != rec.Run.ID {
		t.Fatalf("expected same run id")
	}
}

func TestRunStoreCreateRejects(t *testing.T) {
	store := NewRunStore()
	if _, err := store.Create("run-1", &RunInput{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		id    string
		input *RunInput
	}{
		{name: "duplicate", id: "run-1", input: &RunInput{}},
		{name: "slash", id: "a/b", input: &RunInput{}},
		{name: "space", id: "a b", input: &RunInput{}},
		{name: "nil input", id: "run-2", input: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Create(tt.id, tt.input); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestRunStoreSetStatusSetsTimestamps(t *testing.T) {
	store := NewRunStore()
	if _, err := store.Create("run-1", &RunInput{}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	rec, err := store.SetStatus("run-1", models.RunStatusRunning, "")
	if err != nil {
		t.Fatalf("SetStatus running error: %v", err)
	}
	if rec.Run.StartedAt.IsZero() {
		t.Fatalf("expected started_at set")
	}
	if !rec.Run.EndedAt.IsZero() {
		t.Fatalf("did not expect ended_at set for running")
	}

	rec, err = store.SetStatus("run-1", models.RunStatusFailed, "boom")
	if err != nil {
		t.Fatalf("SetStatus failed error: %v", err)
	}
	if rec.Run.EndedAt.IsZero() {
		t.Fatalf("expected ended_at set")
	}
	if rec.Run.Error != "boom" {
		t.Fatalf("expected error message, got %q", rec.Run.Error)
	}
}

func TestRunStoreTerminalStatusIsFinal(t *testing.T) {
	store := NewRunStore()
	if _, err := store.Create("run-1", &RunInput{}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := store.SetStatus("run-1", models.RunStatusCancelled, ""); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}

	_, err := store.SetStatus("run-1", models.RunStatusFailed, "late")
	if !errors.Is(err, ErrRunTerminal) {
		t.Fatalf("expected ErrRunTerminal, got %v", err)
	}

	rec, completed, err := store.Complete("run-1", &fishery.Evaluation{}, "eval-1")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if completed {
		t.Fatalf("expected cancelled run not to complete")
	}
	if rec.Run.Status != models.RunStatusCancelled || rec.Evaluation != nil {
		t.Fatalf("expected cancelled run without evaluation, got %+v", rec.Run)
	}
}

func TestRunStoreSetStatusUnknownRun(t *testing.T) {
	store := NewRunStore()
	_, err := store.SetStatus("missing", models.RunStatusRunning, "")
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunStoreGetReturnsSnapshot(t *testing.T) {
	store := NewRunStore()
	rec, err := store.Create("run-1", &RunInput{})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	rec.Run.Status = models.RunStatusCompleted

	got, _ := store.Get("run-1")
	if got.Run.Status != models.RunStatusPending {
		t.Fatalf("expected stored status to be unaffected, got %s", got.Run.Status)
	}
}

func TestRunStoreListFiltered(t *testing.T) {
	store := NewRunStore()
	for _, id := range []string{"run-a", "run-b", "run-c", "run-d"} {
		if _, err := store.Create(id, &RunInput{}); err != nil {
			t.Fatalf("Create error: %v", err)
		}
		time.Sleep(time.Millisecond)
	}
	if _, err := store.SetStatus("run-b", models.RunStatusRunning, ""); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	if _, err := store.SetStatus("run-d", models.RunStatusRunning, ""); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}

	all := store.List(10)
	if len(all) != 4 || all[0].Run.ID != "run-d" || all[3].Run.ID != "run-a" {
		t.Fatalf("expected newest first, got %v", runIDs(all))
	}

	page := store.ListFiltered(2, 1, "")
	if ids := runIDs(page); len(ids) != 2 || ids[0] != "run-c" || ids[1] != "run-b" {
		t.Fatalf("unexpected page: %v", ids)
	}

	running := store.ListFiltered(10, 0, models.RunStatusRunning)
	if ids := runIDs(running); len(ids) != 2 || ids[0] != "run-d" || ids[1] != "run-b" {
		t.Fatalf("unexpected running runs: %v", ids)
	}

	if got := store.ListFiltered(10, 10, ""); len(got) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(got))
	}
}

func TestRunStoreCollector(t *testing.T) {
	store := NewRunStore()
	if _, err := store.Create("run-1", &RunInput{}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, ok := store.GetCollector("run-1"); ok {
		t.Fatalf("expected no collector before execution")
	}
	if err := store.SetCollector("missing", nil); err == nil {
		t.Fatalf("expected error for unknown run")
	}
}

func runIDs(recs []*RunRecord) []string {
	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.Run.ID
	}
	return ids
}
