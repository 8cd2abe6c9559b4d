// Package triage provides the business boundary for mediguard's triage
// decision support. It defines the Service (validation, inference, flagging,
// persistence), the pure pipeline steps (feature extraction, confidence
// policy, explanation rendering), the Classifier and Store interfaces, and the
// domain models.
package triage
