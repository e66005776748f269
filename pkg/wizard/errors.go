package wizard

import (
	"errors"
	"fmt"
)

var (
	// ErrNotEditing is returned for mutations or navigation while a
	// submission is in flight or after it completed.
	ErrNotEditing = errors.New("wizard: session is not editing")
	// ErrNotLastStep is returned when Submit is called before the final step.
	ErrNotLastStep = errors.New("wizard: submit is only available on the last step")
	// ErrNoSubmitter is returned when a session has no submission adapter.
	ErrNoSubmitter = errors.New("wizard: no submitter configured")
	// ErrUnknownField is returned when a path does not resolve to a field.
	ErrUnknownField = errors.New("wizard: unknown field")
	// ErrUnknownGroup is returned when a path does not resolve to a group field.
	ErrUnknownGroup = errors.New("wizard: unknown group")
)

// ValidationError reports the issues that blocked advancing or submitting.
type ValidationError struct {
	Step   int
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("wizard: step %d: %s %s", e.Step, e.Issues[0].Field, e.Issues[0].Message)
	}
	return fmt.Sprintf("wizard: step %d has %d invalid fields", e.Step, len(e.Issues))
}

// Fields groups the issue messages by field path.
func (e *ValidationError) Fields() map[string][]string {
	return Result{Issues: e.Issues}.Errors()
}
