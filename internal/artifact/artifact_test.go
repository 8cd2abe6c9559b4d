package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/linnemanlabs/mediguard/internal/triage"
)

const (
	testLabels = `{"non-urgent": 0, "urgent": 1, "emergent": 2}`
	testScaler = `{"mean":[130,85,88,37.2,96,4.5,45,0.7],"scale":[25,15,18,0.8,3,2.8,12,0.2]}`
)

// writeBundle creates a bundle in a temp dir. files maps name to content.
func writeBundle(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func defaultFiles() map[string]string {
	return map[string]string{
		"label_map.json":    testLabels,
		"scaler.json":       testScaler,
		"triage_model.onnx": "onnx-bytes",
	}
}

func TestLoad_DefaultsWithoutManifest(t *testing.T) {
	t.Parallel()

	dir := writeBundle(t, defaultFiles())
	b, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if b.Manifest.Version != "unversioned" {
		t.Errorf("Version = %q, want unversioned", b.Manifest.Version)
	}
	if b.ModelPath != filepath.Join(dir, "triage_model.onnx") {
		t.Errorf("ModelPath = %q", b.ModelPath)
	}
	if b.Labels.Len() != 3 {
		t.Errorf("Labels.Len = %d, want 3", b.Labels.Len())
	}
	c, err := b.Labels.Decode(2)
	if err != nil || c != triage.ClassEmergent {
		t.Errorf("Decode(2) = %q, %v; want emergent", c, err)
	}
	if len(b.Scaler.Mean) != triage.NumFeatures {
		t.Errorf("Scaler.Mean len = %d", len(b.Scaler.Mean))
	}
}

func TestLoad_Manifest(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"manifest.yaml": `version: gbm-sigmoid-2026-03-01
model: model-v3.onnx
labels: labels.json
onnx:
  input: X
`,
		"labels.json":   testLabels,
		"scaler.json":   testScaler,
		"model-v3.onnx": "onnx-bytes",
	}
	b, err := Load(writeBundle(t, files))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if b.Manifest.Version != "gbm-sigmoid-2026-03-01" {
		t.Errorf("Version = %q", b.Manifest.Version)
	}
	if b.Manifest.ONNX.Input != "X" {
		t.Errorf("ONNX.Input = %q, want X", b.Manifest.ONNX.Input)
	}
	// unspecified fields keep defaults
	if b.Manifest.ONNX.ProbabilityOutput != "probabilities" {
		t.Errorf("ONNX.ProbabilityOutput = %q, want default", b.Manifest.ONNX.ProbabilityOutput)
	}
	if b.Manifest.Scaler != "scaler.json" {
		t.Errorf("Scaler = %q, want default", b.Manifest.Scaler)
	}
}

func TestLoad_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(map[string]string)
		wantErr string
	}{
		{"missing model", func(f map[string]string) { delete(f, "triage_model.onnx") }, "model"},
		{"empty model", func(f map[string]string) { f["triage_model.onnx"] = "" }, "non-empty"},
		{"missing labels", func(f map[string]string) { delete(f, "label_map.json") }, "label map"},
		{"missing scaler", func(f map[string]string) { delete(f, "scaler.json") }, "scaler"},
		{"bad labels json", func(f map[string]string) { f["label_map.json"] = "{" }, "parse label map"},
		{"unknown class", func(f map[string]string) { f["label_map.json"] = `{"non-urgent":0,"urgent":1,"critical":2}` }, "unknown class"},
		{"duplicate codes", func(f map[string]string) { f["label_map.json"] = `{"non-urgent":0,"urgent":1,"emergent":1}` }, "duplicate"},
		{"code out of range", func(f map[string]string) { f["label_map.json"] = `{"non-urgent":0,"urgent":1,"emergent":5}` }, "outside"},
		{"short scaler", func(f map[string]string) { f["scaler.json"] = `{"mean":[1,2],"scale":[1,2]}` }, "want 8"},
		{"bad manifest yaml", func(f map[string]string) { f["manifest.yaml"] = "version: [" }, "parse manifest"},
		{"feature mismatch", func(f map[string]string) { f["manifest.yaml"] = "features: 6\n" }, "6 features"},
		{"path traversal", func(f map[string]string) { f["manifest.yaml"] = "model: ../../etc/passwd\n" }, "plain file name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			files := defaultFiles()
			tt.mutate(files)
			_, err := Load(writeBundle(t, files))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_EmptyDir(t *testing.T) {
	t.Parallel()

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for empty dir")
	}
}
