package triage

import (
	"context"
	"errors"
	"testing"
)

func TestNotifiers_FanOut(t *testing.T) {
	t.Parallel()

	a := &mockNotifier{}
	b := &mockNotifier{err: errors.New("kafka down")}
	c := &mockNotifier{}
	ns := Notifiers{a, b, c}

	d := &Decision{ID: "d-1", Flagged: true}
	err := ns.Notify(context.Background(), d)
	if err == nil || err.Error() != "kafka down" {
		t.Fatalf("err = %v, want joined notifier error", err)
	}
	for i, n := range []*mockNotifier{a, b, c} {
		if n.count() != 1 {
			t.Errorf("notifier %d calls = %d, want 1", i, n.count())
		}
	}
}

func TestNotifiers_Empty(t *testing.T) {
	t.Parallel()

	if err := (Notifiers{}).Notify(context.Background(), &Decision{}); err != nil {
		t.Errorf("empty Notifiers = %v, want nil", err)
	}
}
