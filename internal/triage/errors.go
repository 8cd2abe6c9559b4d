package triage

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownLabelCode means the model emitted a code absent from the
	// label map, i.e. the model and label-map artifacts do not belong together.
	ErrUnknownLabelCode = errors.New("unknown label code")

	// ErrBadDistribution means the model returned an unusable probability
	// distribution.
	ErrBadDistribution = errors.New("invalid probability distribution")

	// ErrPersist means the decision could not be durably appended.
	ErrPersist = errors.New("persist decision")

	// ErrPredict means the classifier failed.
	ErrPredict = errors.New("model prediction")
)

// InputError reports malformed or out-of-range request fields. It is raised
// before the model is invoked.
type InputError struct {
	Problems []string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid triage request: %s", strings.Join(e.Problems, "; "))
}

// InputProblems returns the problem list when err is, or wraps, an
// *InputError.
func InputProblems(err error) ([]string, bool) {
	var ie *InputError
	if !errors.As(err, &ie) {
		return nil, false
	}
	return ie.Problems, true
}
