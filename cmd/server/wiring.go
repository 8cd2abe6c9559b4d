package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/mediguard/internal/artifact"
	vc "github.com/linnemanlabs/mediguard/internal/cfg"
	"github.com/linnemanlabs/mediguard/internal/model/onnx"
	"github.com/linnemanlabs/mediguard/internal/notify/kafka"
	"github.com/linnemanlabs/mediguard/internal/notify/slack"
	"github.com/linnemanlabs/mediguard/internal/triage"
)

// fetchBundle runs fetch into c.ArtifactDir, or into a fresh temporary
// directory when none is configured. cleanup removes the temporary directory
// and is a no-op for a configured one. On error nothing is left behind.
func fetchBundle(ctx context.Context, c *vc.Config, fetch func(ctx context.Context, dir string) error) (string, func(), error) {
	dir := c.ArtifactDir
	cleanup := func() {}
	if dir == "" {
		tmp, err := os.MkdirTemp("", "mediguard-model-")
		if err != nil {
			return "", nil, fmt.Errorf("create artifact dir: %w", err)
		}
		dir = tmp
		cleanup = func() { _ = os.RemoveAll(tmp) }
	}
	if err := fetch(ctx, dir); err != nil {
		cleanup()
		return "", nil, err
	}
	return dir, cleanup, nil
}

func fetchS3(c *vc.Config) func(ctx context.Context, dir string) error {
	return func(ctx context.Context, dir string) error {
		client, err := artifact.NewS3Client(ctx, c.ArtifactS3Endpoint)
		if err != nil {
			return err
		}
		return artifact.FetchS3(ctx, client, c.ArtifactS3Bucket, c.ArtifactS3Prefix, dir)
	}
}

// loadModel resolves the artifact bundle (downloading it from S3 when a
// bucket is configured), validates it and opens the ONNX session. The
// returned func releases the session and the runtime and removes any
// temporary download directory.
func loadModel(ctx context.Context, L log.Logger, c *vc.Config) (*triage.Model, func(), error) {
	dir := c.ArtifactDir
	cleanup := func() {}
	if c.ArtifactS3Bucket != "" {
		var err error
		dir, cleanup, err = fetchBundle(ctx, c, fetchS3(c))
		if err != nil {
			return nil, nil, err
		}
		L.Info(ctx, "fetched model bundle", "bucket", c.ArtifactS3Bucket, "prefix", c.ArtifactS3Prefix, "dir", dir)
	}

	bundle, err := artifact.Load(dir)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	cls, err := onnx.Open(onnx.Config{
		ModelPath:         bundle.ModelPath,
		SharedLibraryPath: c.ONNXLibrary,
		Input:             bundle.Manifest.ONNX.Input,
		LabelOutput:       bundle.Manifest.ONNX.LabelOutput,
		ProbabilityOutput: bundle.Manifest.ONNX.ProbabilityOutput,
		NumClasses:        bundle.Labels.Len(),
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	L.Info(ctx, "model loaded",
		"model_version", bundle.Manifest.Version,
		"model_path", bundle.ModelPath,
		"classes", bundle.Labels.Classes(),
		"scaler_features", len(bundle.Scaler.Mean),
		"scaler_applied", false,
	)

	closeFn := func() {
		if err := errors.Join(cls.Close(), onnx.Shutdown()); err != nil {
			L.Error(context.Background(), err, "failed to release onnx runtime")
		}
		cleanup()
	}
	return &triage.Model{
		Classifier: cls,
		Labels:     bundle.Labels,
		Version:    bundle.Manifest.Version,
	}, closeFn, nil
}

// buildNotifiers returns the configured review notifiers and a func that
// closes the ones holding connections.
func buildNotifiers(c *vc.Config) (triage.Notifiers, func() error, error) {
	var (
		ns      triage.Notifiers
		closers []func() error
	)
	if c.SlackWebhookURL != "" {
		ns = append(ns, slack.New(c.SlackWebhookURL))
	}
	if brokers := c.Brokers(); len(brokers) > 0 {
		p, err := kafka.New(brokers, c.KafkaTopic)
		if err != nil {
			return nil, nil, err
		}
		ns = append(ns, p)
		closers = append(closers, p.Close)
	}
	return ns, func() error {
		var errs []error
		for _, fn := range closers {
			errs = append(errs, fn())
		}
		return errors.Join(errs...)
	}, nil
}

// waitCtx runs wait and returns when it finishes or ctx expires.
func waitCtx(ctx context.Context, wait func()) error {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
