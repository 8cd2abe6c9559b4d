// Package artifact loads the model bundle the service needs at startup: the
// manifest, the canonical label map, the feature scaler and the model file.
// Any missing or inconsistent artifact is a startup error.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/linnemanlabs/mediguard/internal/triage"
)

// ManifestFile is the optional bundle manifest name.
const ManifestFile = "manifest.yaml"

// Manifest describes a bundle. Missing fields take DefaultManifest values.
type Manifest struct {
	Version  string     `yaml:"version"`
	Model    string     `yaml:"model"`
	Labels   string     `yaml:"labels"`
	Scaler   string     `yaml:"scaler"`
	Features int        `yaml:"features"`
	ONNX     ONNXTensor `yaml:"onnx"`
}

// ONNXTensor names the model's input and output tensors.
type ONNXTensor struct {
	Input             string `yaml:"input"`
	LabelOutput       string `yaml:"label_output"`
	ProbabilityOutput string `yaml:"probability_output"`
}

// DefaultManifest matches a skl2onnx export with zipmap disabled.
func DefaultManifest() Manifest {
	return Manifest{
		Version:  "unversioned",
		Model:    "triage_model.onnx",
		Labels:   "label_map.json",
		Scaler:   "scaler.json",
		Features: triage.NumFeatures,
		ONNX: ONNXTensor{
			Input:             "float_input",
			LabelOutput:       "label",
			ProbabilityOutput: "probabilities",
		},
	}
}

// Scaler holds a fitted standard scaler. It is loaded and checked but not
// applied: the model was fit on unscaled features.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Bundle is a loaded, validated artifact set.
type Bundle struct {
	Dir       string
	Manifest  Manifest
	Labels    *triage.LabelMap
	Scaler    Scaler
	ModelPath string
}

// Load reads and validates the bundle in dir.
func Load(dir string) (*Bundle, error) {
	if dir == "" {
		return nil, errors.New("artifact dir is empty")
	}

	m, err := readManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	labels, err := LoadLabelMap(filepath.Join(dir, m.Labels))
	if err != nil {
		return nil, err
	}

	scaler, err := loadScaler(filepath.Join(dir, m.Scaler), m.Features)
	if err != nil {
		return nil, err
	}

	modelPath := filepath.Join(dir, m.Model)
	if err := checkReadable(modelPath); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	return &Bundle{
		Dir:       dir,
		Manifest:  m,
		Labels:    labels,
		Scaler:    scaler,
		ModelPath: modelPath,
	}, nil
}

// LoadLabelMap reads a {"class-name": code} JSON document.
func LoadLabelMap(path string) (*triage.LabelMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label map: %w", err)
	}
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse label map %s: %w", path, err)
	}
	lm, err := triage.NewLabelMap(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lm, nil
}

// readManifest reads path, falling back to DefaultManifest when it does not
// exist. A present but malformed manifest is an error.
func readManifest(path string) (Manifest, error) {
	m := DefaultManifest()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return m, fmt.Errorf("read manifest: %w", err)
	}
	if err := parseManifest(data, &m); err != nil {
		return m, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// parseManifest decodes data over m (which carries defaults) and validates it.
func parseManifest(data []byte, m *Manifest) error {
	if err := yaml.Unmarshal(data, m); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}
	if m.Features != triage.NumFeatures {
		return fmt.Errorf("manifest declares %d features, extractor produces %d", m.Features, triage.NumFeatures)
	}
	for _, name := range []string{m.Model, m.Labels, m.Scaler} {
		if name == "" || filepath.Base(name) != name {
			return fmt.Errorf("artifact name %q must be a plain file name", name)
		}
	}
	return nil
}

func loadScaler(path string, features int) (Scaler, error) {
	var s Scaler
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read scaler: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse scaler %s: %w", path, err)
	}
	if len(s.Mean) != features || len(s.Scale) != features {
		return s, fmt.Errorf("scaler %s: mean/scale have %d/%d values, want %d", path, len(s.Mean), len(s.Scale), features)
	}
	return s, nil
}

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	if fi.IsDir() || fi.Size() == 0 {
		return fmt.Errorf("%s is not a non-empty file", path)
	}
	return nil
}
