package pgstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/mediguard/internal/postgres"
	"github.com/linnemanlabs/mediguard/internal/triage"
	"github.com/linnemanlabs/mediguard/internal/triage/pgstore"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("MEDIGUARD_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("MEDIGUARD_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("postgres.NewPool: %v", err)
	}
	t.Cleanup(pool.Close)

	s, err := pgstore.New(ctx, pool)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	return s
}

func newDecision() *triage.Decision {
	return &triage.Decision{
		ID:        ulid.Make().String(),
		PatientID: "P-001",
		CreatedAt: time.Now().Truncate(time.Microsecond).UTC(),
		Vitals: triage.VitalSigns{
			BPSystolic: 180, BPDiastolic: 115, HeartRate: 105,
			Temperature: 37.2, SpO2: 95, PainScore: 9,
		},
		Symptoms:     "Severe crushing chest pain radiating to left arm",
		Class:        triage.ClassEmergent,
		Confidence:   0.94,
		Flagged:      false,
		Explanation:  "Critical vital signs detected: BP 180/115, HR 105.",
		ModelVersion: "gbm-sigmoid-v1",
	}
}

func TestAppendAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	d := newDecision()
	if err := s.Append(ctx, d); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, ok, err := s.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get returned ok=false, want true")
	}

	assertEqual(t, "ID", d.ID, got.ID)
	assertEqual(t, "PatientID", d.PatientID, got.PatientID)
	assertEqual(t, "CreatedAt", d.CreatedAt, got.CreatedAt)
	assertEqual(t, "Vitals", d.Vitals, got.Vitals)
	assertEqual(t, "Symptoms", d.Symptoms, got.Symptoms)
	assertEqual(t, "Class", d.Class, got.Class)
	assertEqual(t, "Confidence", d.Confidence, got.Confidence)
	assertEqual(t, "Flagged", d.Flagged, got.Flagged)
	assertEqual(t, "Explanation", d.Explanation, got.Explanation)
	assertEqual(t, "ModelVersion", d.ModelVersion, got.ModelVersion)
	assertEqual(t, "WasOverridden", false, got.Override.WasOverridden)
	if got.Override.Class != nil || got.Override.Reason != nil {
		t.Errorf("override fields set on fresh decision: %+v", got.Override)
	}
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)

	_, ok, err := s.Get(context.Background(), "nonexistent-id")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("Get returned ok=true for nonexistent ID")
	}
}

func TestAppendDuplicateIDFails(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	d := newDecision()
	if err := s.Append(ctx, d); err != nil {
		t.Fatalf("Append: %v", err)
	}
	d.Class = triage.ClassUrgent
	if err := s.Append(ctx, d); err == nil {
		t.Fatal("expected error appending an existing ID")
	}

	got, _, _ := s.Get(ctx, d.ID)
	assertEqual(t, "Class", triage.ClassEmergent, got.Class)
}

func TestAppendRejectsFlagMismatch(t *testing.T) {
	s := openStore(t)

	d := newDecision()
	d.Confidence = 0.5
	d.Flagged = false
	if err := s.Append(context.Background(), d); err == nil {
		t.Fatal("expected CHECK violation for flag not matching confidence")
	}
}

func TestAppendRejectsPartialOverride(t *testing.T) {
	s := openStore(t)

	d := newDecision()
	d.Override.WasOverridden = true
	if err := s.Append(context.Background(), d); err == nil {
		t.Fatal("expected error for partial override")
	}
}

func TestOverrideRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	class := triage.ClassUrgent
	reason := "symptoms resolved on reassessment"
	d := newDecision()
	d.Override = triage.Override{WasOverridden: true, Class: &class, Reason: &reason}
	if err := s.Append(ctx, d); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, ok, err := s.Get(ctx, d.ID)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if !got.Override.Consistent() {
		t.Fatalf("override not consistent after round-trip: %+v", got.Override)
	}
	assertEqual(t, "Override.Class", class, *got.Override.Class)
	assertEqual(t, "Override.Reason", reason, *got.Override.Reason)
}

func assertEqual[T comparable](t *testing.T, field string, want, got T) {
	t.Helper()
	if want != got {
		t.Errorf("%s: got %v, want %v", field, got, want)
	}
}
