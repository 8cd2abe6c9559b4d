package triage

import (
	"context"
	"errors"
)

// Store is the append-only persistence interface for triage decisions.
// Append must be durable before it returns nil.
type Store interface {
	Append(ctx context.Context, d *Decision) error
	Get(ctx context.Context, id string) (*Decision, bool, error)
}

// Notifier receives flagged decisions after they have been persisted.
type Notifier interface {
	Notify(ctx context.Context, d *Decision) error
}

// Notifiers fans a decision out to several notifiers, joining their errors.
type Notifiers []Notifier

// Notify implements Notifier.
func (ns Notifiers) Notify(ctx context.Context, d *Decision) error {
	var errs []error
	for _, n := range ns {
		if err := n.Notify(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
