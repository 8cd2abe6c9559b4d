// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/mediguard/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/mediguard/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// Store persists triage decisions in PostgreSQL. Rows are only ever inserted.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on pool and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const decisionColumns = `id, patient_id, created_at,
	bp_systolic, bp_diastolic, heart_rate, temperature, spo2, pain_score,
	symptoms_text, triage_class, confidence_score, is_flagged, explanation, model_version,
	was_overridden, override_class, override_reason`

// Append inserts one decision row. It fails if the ID already exists.
func (s *Store) Append(ctx context.Context, d *triage.Decision) error {
	ctx, span := tracer.Start(ctx, "pgstore.Append", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	if !d.Override.Consistent() {
		err := fmt.Errorf("decision %s has a partial override", d.ID)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	var overrideClass *string
	if d.Override.Class != nil {
		c := string(*d.Override.Class)
		overrideClass = &c
	}

	query := `INSERT INTO triage_decisions (` + decisionColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`

	_, err := s.pool.Exec(ctx, query,
		d.ID, d.PatientID, d.CreatedAt,
		d.Vitals.BPSystolic, d.Vitals.BPDiastolic, d.Vitals.HeartRate,
		d.Vitals.Temperature, d.Vitals.SpO2, d.Vitals.PainScore,
		d.Symptoms, string(d.Class), d.Confidence, d.Flagged, d.Explanation, d.ModelVersion,
		d.Override.WasOverridden, overrideClass, d.Override.Reason,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// Get retrieves a decision by ID.
func (s *Store) Get(ctx context.Context, id string) (*triage.Decision, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + decisionColumns + ` FROM triage_decisions WHERE id = $1`
	d, err := scanDecision(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if d == nil {
		return nil, false, nil
	}
	return d, true, nil
}

// scanDecision scans a single row into a triage.Decision.
// Returns (nil, nil) when no row is found.
func scanDecision(row pgx.Row) (*triage.Decision, error) {
	var (
		d             triage.Decision
		class         string
		overrideClass *string
	)

	err := row.Scan(
		&d.ID, &d.PatientID, &d.CreatedAt,
		&d.Vitals.BPSystolic, &d.Vitals.BPDiastolic, &d.Vitals.HeartRate,
		&d.Vitals.Temperature, &d.Vitals.SpO2, &d.Vitals.PainScore,
		&d.Symptoms, &class, &d.Confidence, &d.Flagged, &d.Explanation, &d.ModelVersion,
		&d.Override.WasOverridden, &overrideClass, &d.Override.Reason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	d.Class = triage.Class(class)
	if overrideClass != nil {
		c := triage.Class(*overrideClass)
		d.Override.Class = &c
	}
	d.CreatedAt = d.CreatedAt.UTC()

	return &d, nil
}
