package triage

import "context"

// Prediction is the raw output of a Classifier.
type Prediction struct {
	Code          int
	Probabilities []float64
}

// Classifier is a frozen, calibrated multi-class probability model. It is
// shared across concurrent requests and must not be mutated while serving.
type Classifier interface {
	Predict(ctx context.Context, features FeatureVector) (Prediction, error)
}

// Model bundles everything loaded once at startup that the service reads on
// every request. It is constructed explicitly and never modified afterwards.
type Model struct {
	Classifier Classifier
	Labels     *LabelMap
	Version    string
}
