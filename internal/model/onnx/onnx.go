// Package onnx implements triage.Classifier on top of ONNX Runtime. The model
// is expected to be a calibrated scikit-learn classifier exported with
// skl2onnx and zipmap disabled: one float32 input [1,features], an int64
// label output [1] and a float32 probability output [1,classes].
package onnx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/mediguard/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/mediguard/internal/model/onnx")

// LibraryPathEnv is consulted when Config.SharedLibraryPath is empty.
const LibraryPathEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// Config describes the model file and its tensor layout.
type Config struct {
	ModelPath         string
	SharedLibraryPath string
	Input             string
	LabelOutput       string
	ProbabilityOutput string
	NumClasses        int
}

func (c *Config) validate() error {
	var errs []error
	if c.ModelPath == "" {
		errs = append(errs, errors.New("model path is required"))
	}
	if c.Input == "" || c.LabelOutput == "" || c.ProbabilityOutput == "" {
		errs = append(errs, errors.New("input, label and probability tensor names are required"))
	}
	if c.NumClasses < 2 {
		errs = append(errs, fmt.Errorf("num classes %d (must be >= 2)", c.NumClasses))
	}
	return errors.Join(errs...)
}

// Classifier runs a single ONNX session. Tensors are pre-allocated, so
// inference is serialized with a mutex.
type Classifier struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	label   *ort.Tensor[int64]
	proba   *ort.Tensor[float32]

	mu sync.Mutex
}

// Open initializes the runtime (once per process) and creates the session.
func Open(cfg Config) (*Classifier, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("onnx config: %w", err)
	}

	libPath := cfg.SharedLibraryPath
	if libPath == "" {
		libPath = os.Getenv(LibraryPathEnv)
	}
	if libPath == "" {
		return nil, fmt.Errorf("onnxruntime shared library not configured; set %s or -onnxruntime-library", LibraryPathEnv)
	}

	if !ort.IsInitialized() {
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	c := &Classifier{}
	var err error
	if c.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, triage.NumFeatures)); err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	if c.label, err = ort.NewEmptyTensor[int64](ort.NewShape(1)); err != nil {
		c.destroy()
		return nil, fmt.Errorf("allocate label tensor: %w", err)
	}
	if c.proba, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(cfg.NumClasses))); err != nil {
		c.destroy()
		return nil, fmt.Errorf("allocate probability tensor: %w", err)
	}

	c.session, err = ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.Input},
		[]string{cfg.LabelOutput, cfg.ProbabilityOutput},
		[]ort.Value{c.input},
		[]ort.Value{c.label, c.proba},
		nil,
	)
	if err != nil {
		c.destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return c, nil
}

// Predict implements triage.Classifier.
func (c *Classifier) Predict(ctx context.Context, features triage.FeatureVector) (triage.Prediction, error) {
	_, span := tracer.Start(ctx, "onnx.Predict")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	copy(c.input.GetData(), toFloat32(features))

	if err := c.session.Run(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return triage.Prediction{}, fmt.Errorf("onnx run: %w", err)
	}

	pred := triage.Prediction{
		Code:          int(c.label.GetData()[0]),
		Probabilities: toFloat64(c.proba.GetData()),
	}
	span.SetAttributes(attribute.Int("mediguard.model.code", pred.Code))
	return pred, nil
}

// Close releases the session and tensors.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroy()
}

func (c *Classifier) destroy() error {
	var errs []error
	if c.session != nil {
		errs = append(errs, c.session.Destroy())
		c.session = nil
	}
	if c.input != nil {
		errs = append(errs, c.input.Destroy())
		c.input = nil
	}
	if c.label != nil {
		errs = append(errs, c.label.Destroy())
		c.label = nil
	}
	if c.proba != nil {
		errs = append(errs, c.proba.Destroy())
		c.proba = nil
	}
	return errors.Join(errs...)
}

// Shutdown tears down the process-wide runtime environment.
func Shutdown() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

var _ triage.Classifier = (*Classifier)(nil)

func toFloat32(f triage.FeatureVector) []float32 {
	out := make([]float32, len(f))
	for i, v := range f {
		out[i] = float32(v)
	}
	return out
}

// toFloat64 widens a copy of the probability tensor; the tensor buffer is
// reused by the next Run.
func toFloat64(p []float32) []float64 {
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = float64(v)
	}
	return out
}
