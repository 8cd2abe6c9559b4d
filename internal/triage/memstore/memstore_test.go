package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/mediguard/internal/triage"
)

func testDecision(id string) *triage.Decision {
	return &triage.Decision{
		ID:        id,
		PatientID: "P-" + id,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Vitals: triage.VitalSigns{
			BPSystolic: 120, BPDiastolic: 80, HeartRate: 72,
			Temperature: 36.8, SpO2: 98, PainScore: 2,
		},
		Symptoms:    "mild sore throat",
		Class:       triage.ClassNonUrgent,
		Confidence:  0.91,
		Explanation: "Stable vital signs",
	}
}

func TestStore_AppendAndGet(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	if err := s.Append(ctx, testDecision("d-1")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, ok, err := s.Get(ctx, "d-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected decision to be found")
	}
	if got.PatientID != "P-d-1" {
		t.Errorf("PatientID = %q, want %q", got.PatientID, "P-d-1")
	}
	if got.Class != triage.ClassNonUrgent {
		t.Errorf("Class = %q, want %q", got.Class, triage.ClassNonUrgent)
	}
	if got.Override.WasOverridden {
		t.Error("WasOverridden = true, want false")
	}
}

func TestStore_GetMissing(t *testing.T) {
	t.Parallel()

	s := New()
	_, ok, err := s.Get(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing ID")
	}
}

func TestStore_AppendRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	if err := s.Append(ctx, testDecision("d-dup")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	second := testDecision("d-dup")
	second.Class = triage.ClassEmergent
	if err := s.Append(ctx, second); err == nil {
		t.Fatal("expected error appending duplicate ID")
	}

	got, _, _ := s.Get(ctx, "d-dup")
	if got.Class != triage.ClassNonUrgent {
		t.Errorf("Class = %q, append must not overwrite", got.Class)
	}
	if s.count() != 1 {
		t.Errorf("count = %d, want 1", s.count())
	}
}

func TestStore_AppendRejectsEmptyID(t *testing.T) {
	t.Parallel()

	if err := New().Append(context.Background(), testDecision("")); err == nil {
		t.Fatal("expected error for empty ID")
	}
}

func TestStore_AppendRejectsPartialOverride(t *testing.T) {
	t.Parallel()

	d := testDecision("d-partial")
	d.Override.WasOverridden = true

	s := New()
	if err := s.Append(context.Background(), d); err == nil {
		t.Fatal("expected error for partial override")
	}
	if s.count() != 0 {
		t.Errorf("count = %d, want 0", s.count())
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	class := triage.ClassUrgent
	reason := "reassessed at bedside"
	d := testDecision("d-copy")
	d.Override = triage.Override{WasOverridden: true, Class: &class, Reason: &reason}
	_ = s.Append(ctx, d)

	// mutate caller's copy after append
	d.Explanation = "changed"
	class = triage.ClassEmergent

	got, _, _ := s.Get(ctx, "d-copy")
	if got.Explanation != "Stable vital signs" {
		t.Errorf("Explanation = %q, store must hold its own copy", got.Explanation)
	}
	if *got.Override.Class != triage.ClassUrgent {
		t.Errorf("Override.Class = %q, want %q", *got.Override.Class, triage.ClassUrgent)
	}

	// mutate returned copy
	*got.Override.Reason = "tampered"
	again, _, _ := s.Get(ctx, "d-copy")
	if *again.Override.Reason != "reassessed at bedside" {
		t.Errorf("Override.Reason = %q, want original", *again.Override.Reason)
	}
}

func TestStore_ListPreservesOrder(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		if err := s.Append(ctx, testDecision(id)); err != nil {
			t.Fatalf("Append %s: %v", id, err)
		}
	}

	list := s.list()
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	for i, want := range []string{"c", "a", "b"} {
		if list[i].ID != want {
			t.Errorf("list[%d].ID = %q, want %q", i, list[i].ID, want)
		}
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	const n = 100

	var wg sync.WaitGroup
	wg.Add(n * 2)

	for i := range n {
		id := fmt.Sprintf("id-%d", i)

		go func() {
			defer wg.Done()
			_ = s.Append(ctx, testDecision(id))
		}()

		go func() {
			defer wg.Done()
			_, _, _ = s.Get(ctx, id)
			_ = s.count()
		}()
	}

	wg.Wait()

	if s.count() != n {
		t.Errorf("count = %d, want %d", s.count(), n)
	}
}
