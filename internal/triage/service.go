package triage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/mediguard/internal/authmw"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/linnemanlabs/mediguard/internal/triage")

// Failure stages reported through ServiceHooks.OnFailure.
const (
	StageValidate = "validate"
	StagePredict  = "predict"
	StageDecode   = "decode"
	StagePersist  = "persist"
)

// ServiceHooks are optional callbacks for instrumentation. Nil fields are skipped.
type ServiceHooks struct {
	OnInference func(duration float64)
	OnDecision  func(d *Decision, duration float64)
	OnFailure   func(stage string)
	OnNotify    func(err error)
}

// Option configures a Service.
type Option func(*Service)

// WithVitalsValidation toggles physiological range checks on incoming vitals.
func WithVitalsValidation(enabled bool) Option {
	return func(s *Service) { s.validateVitals = enabled }
}

// WithClock overrides the time source used for decision timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service is the business boundary for triage operations.
type Service struct {
	store          Store
	model          *Model
	logger         log.Logger
	hooks          ServiceHooks
	notifier       Notifier
	validateVitals bool
	now            func() time.Time

	notifyWG sync.WaitGroup
}

// NewService creates a new triage service. notifier may be nil.
func NewService(store Store, model *Model, logger log.Logger, hooks ServiceHooks, notifier Notifier, opts ...Option) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	s := &Service{
		store:          store,
		model:          model,
		logger:         logger,
		hooks:          hooks,
		notifier:       notifier,
		validateVitals: true,
		now:            time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ModelInfo returns the loaded model version and its classes ordered by code.
func (s *Service) ModelInfo() (string, []Class) {
	return s.model.Version, s.model.Labels.Classes()
}

// Triage runs the full pipeline for one request and persists the decision.
// Any failure aborts the request; nothing is persisted unless every prior step
// succeeded, and no result is returned unless the decision was persisted.
func (s *Service) Triage(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "triage.Triage", trace.WithAttributes(
		attribute.String("mediguard.model.version", s.model.Version),
	))
	defer span.End()

	L := s.logger.With("patient_id", req.PatientID)
	if caller := authmw.Caller(ctx); caller != "" {
		L = L.With("caller", caller)
		span.SetAttributes(attribute.String("mediguard.caller", caller))
	}

	fail := func(stage string, err error) (*Result, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if s.hooks.OnFailure != nil {
			s.hooks.OnFailure(stage)
		}
		return nil, err
	}

	if err := req.Validate(s.validateVitals); err != nil {
		return fail(StageValidate, err)
	}

	features := Extract(req.Vitals)
	span.SetAttributes(
		attribute.Float64("mediguard.features.pulse_pressure", features.PulsePressure()),
		attribute.Float64("mediguard.features.shock_index", features.ShockIndex()),
	)

	inferStart := time.Now()
	pred, err := s.model.Classifier.Predict(ctx, features)
	if err != nil {
		L.Error(ctx, err, "model prediction failed")
		return fail(StagePredict, fmt.Errorf("%w: %w", ErrPredict, err))
	}
	if s.hooks.OnInference != nil {
		s.hooks.OnInference(time.Since(inferStart).Seconds())
	}

	if n := s.model.Labels.Len(); len(pred.Probabilities) != n {
		err := fmt.Errorf("%w: got %d probabilities for %d classes", ErrBadDistribution, len(pred.Probabilities), n)
		L.Error(ctx, err, "model output does not match label map")
		return fail(StageDecode, err)
	}
	confidence, err := Confidence(pred.Probabilities)
	if err != nil {
		L.Error(ctx, err, "model output rejected")
		return fail(StageDecode, err)
	}
	class, err := s.model.Labels.Decode(pred.Code)
	if err != nil {
		L.Error(ctx, err, "model and label map disagree", "code", pred.Code)
		return fail(StageDecode, err)
	}

	flagged := Flag(confidence)
	explanation, known := render(req.Vitals, class, confidence)
	if !known {
		L.Error(ctx, fmt.Errorf("no explanation template for class %q", class), "explanation fallback used")
	}

	d := &Decision{
		ID:           ulid.Make().String(),
		PatientID:    req.PatientID,
		CreatedAt:    s.now().UTC(),
		Vitals:       req.Vitals,
		Symptoms:     req.Symptoms,
		Class:        class,
		Confidence:   confidence,
		Flagged:      flagged,
		Explanation:  explanation,
		ModelVersion: s.model.Version,
	}

	if err := s.store.Append(ctx, d); err != nil {
		L.Error(ctx, err, "failed to persist triage decision", "decision_id", d.ID)
		return fail(StagePersist, fmt.Errorf("%w: %w", ErrPersist, err))
	}

	span.SetAttributes(
		attribute.String("mediguard.decision.id", d.ID),
		attribute.String("mediguard.triage.class", string(class)),
		attribute.Float64("mediguard.triage.confidence", confidence),
		attribute.Bool("mediguard.triage.flagged", flagged),
	)
	if s.hooks.OnDecision != nil {
		s.hooks.OnDecision(d, time.Since(start).Seconds())
	}

	L.Info(ctx, "triage decision recorded",
		"decision_id", d.ID,
		"class", class,
		"confidence", confidence,
		"flagged", flagged,
	)

	if flagged && s.notifier != nil {
		s.notify(ctx, d)
	}

	return &Result{
		DecisionID:  d.ID,
		PatientID:   d.PatientID,
		Class:       d.Class,
		Confidence:  d.Confidence,
		Flagged:     d.Flagged,
		Explanation: d.Explanation,
		Timestamp:   d.CreatedAt.Format(TimestampFormat),
	}, nil
}

// Get retrieves a stored decision by ID.
func (s *Service) Get(ctx context.Context, id string) (*Decision, bool, error) {
	return s.store.Get(ctx, id)
}

// Wait blocks until in-flight review notifications have finished.
func (s *Service) Wait() {
	s.notifyWG.Wait()
}

// notify hands a persisted, flagged decision to the notifier in the
// background. Failures are logged and never reach the caller.
func (s *Service) notify(ctx context.Context, d *Decision) {
	cp := *d
	ctx = context.WithoutCancel(ctx)

	s.notifyWG.Add(1)
	go func() {
		defer s.notifyWG.Done()
		err := s.notifier.Notify(ctx, &cp)
		if err != nil {
			s.logger.Error(ctx, err, "review notification failed", "decision_id", cp.ID)
		}
		if s.hooks.OnNotify != nil {
			s.hooks.OnNotify(err)
		}
	}()
}
