package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-quoteforms/pkg/model"
	"github.com/goliatone/go-quoteforms/pkg/submit"
	"github.com/goliatone/go-quoteforms/pkg/visibility"
	"github.com/goliatone/go-quoteforms/pkg/visibility/expr"
)

// Phase is the submission state of a session.
type Phase string

const (
	PhaseEditing    Phase = "editing"
	PhaseSubmitting Phase = "submitting"
	PhaseSubmitted  Phase = "submitted"
)

// Submitter sends a completed form state to the backend.
type Submitter interface {
	Submit(ctx context.Context, form model.Form, values map[string]any) (submit.Receipt, error)
}

// SubmitterFunc adapts a function into a Submitter.
type SubmitterFunc func(ctx context.Context, form model.Form, values map[string]any) (submit.Receipt, error)

// Submit delegates to the wrapped function.
func (fn SubmitterFunc) Submit(ctx context.Context, form model.Form, values map[string]any) (submit.Receipt, error) {
	return fn(ctx, form, values)
}

// Option configures a Session.
type Option func(*Session)

// WithSubmitter sets the submission adapter.
func WithSubmitter(s Submitter) Option {
	return func(sess *Session) {
		sess.submitter = s
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(sess *Session) {
		if logger != nil {
			sess.logger = logger
		}
	}
}

// WithEvaluator overrides the disclosure rule evaluator.
func WithEvaluator(evaluator visibility.Evaluator) Option {
	return func(sess *Session) {
		if evaluator != nil {
			sess.evaluator = evaluator
		}
	}
}

// WithValidatorOptions forwards options to the step validator.
func WithValidatorOptions(opts ...ValidatorOption) Option {
	return func(sess *Session) {
		sess.validatorOpts = append(sess.validatorOpts, opts...)
	}
}

// Session drives one wizard instance through EDITING, SUBMITTING and
// SUBMITTED. It owns its state exclusively and is safe for concurrent use;
// at most one submission is in flight at a time.
type Session struct {
	mu sync.Mutex

	form          model.Form
	state         *State
	controller    *Controller
	disclosure    *Disclosure
	validator     *Validator
	evaluator     visibility.Evaluator
	validatorOpts []ValidatorOption
	submitter     Submitter
	logger        *zap.Logger

	phase       Phase
	fieldErrors map[string][]string
	lastErr     error
	receipt     submit.Receipt
}

// NewSession starts a session on step 0 with default values.
func NewSession(form model.Form, opts ...Option) (*Session, error) {
	if len(form.Steps) == 0 {
		return nil, fmt.Errorf("wizard: form %q has no steps", form.ID)
	}
	s := &Session{
		form:      form,
		evaluator: expr.New(),
		logger:    zap.NewNop(),
		phase:     PhaseEditing,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	validator, err := NewValidator(form, s.evaluator, s.validatorOpts...)
	if err != nil {
		return nil, err
	}
	s.validator = validator
	s.disclosure = NewDisclosure(form, s.evaluator)
	s.state = NewState(form)
	s.controller = NewController(len(form.Steps))
	s.logger = s.logger.With(zap.String("form", form.ID))
	return s, nil
}

// Form returns the definition the session runs.
func (s *Session) Form() model.Form { return s.form }

// Step returns the current step index.
func (s *Session) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.Current()
}

// Phase returns the submission phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Values returns a snapshot of the form state.
func (s *Session) Values() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot()
}

// FieldErrors returns the inline errors from the last validation or backend
// rejection, keyed by value path.
func (s *Session) FieldErrors() map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.fieldErrors) == 0 {
		return nil
	}
	out := make(map[string][]string, len(s.fieldErrors))
	for k, v := range s.fieldErrors {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// LastError returns the most recent submission failure, cleared by the next
// successful transition.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Receipt returns the backend receipt once the session is SUBMITTED.
func (s *Session) Receipt() (submit.Receipt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.receipt, s.phase == PhaseSubmitted
}

// Visible returns the value paths rendered on the current step.
func (s *Session) Visible() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disclosure.Visible(s.controller.Current(), s.state.Values())
}

// Set updates one value. The field's inline error is cleared.
func (s *Session) Set(path string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseEditing {
		return ErrNotEditing
	}
	if err := s.state.Set(path, value); err != nil {
		return err
	}
	delete(s.fieldErrors, path)
	return nil
}

// SetMany applies several updates, stopping at the first error.
func (s *Session) SetMany(values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseEditing {
		return ErrNotEditing
	}
	for path, value := range values {
		if err := s.state.Set(path, value); err != nil {
			return err
		}
		delete(s.fieldErrors, path)
	}
	return nil
}

// AppendItem adds a record to a repeated group.
func (s *Session) AppendItem(group string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseEditing {
		return -1, ErrNotEditing
	}
	return s.state.AppendItem(group)
}

// RemoveItem removes one record from a repeated group. Inline errors for the
// group's records are dropped since their indexes shift.
func (s *Session) RemoveItem(group string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseEditing {
		return ErrNotEditing
	}
	if err := s.state.RemoveItem(group, index); err != nil {
		return err
	}
	prefix := group + "."
	for path := range s.fieldErrors {
		if len(path) > len(prefix) && path[:len(prefix)] == prefix {
			delete(s.fieldErrors, path)
		}
	}
	return nil
}

// Next validates the current step and advances when it passes. On the last
// step it only validates. A *ValidationError is returned when the step is
// invalid; the cursor does not move.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseEditing {
		return ErrNotEditing
	}
	step := s.controller.Current()
	if err := s.validateLocked(step); err != nil {
		return err
	}
	s.controller.Advance()
	s.logger.Debug("step advanced", zap.Int("from", step), zap.Int("to", s.controller.Current()))
	return nil
}

// Back moves to the previous step without validating.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseEditing {
		return ErrNotEditing
	}
	s.controller.Retreat()
	s.fieldErrors = nil
	return nil
}

// Submit validates the final step and hands the state to the submitter. The
// lock is released while the request is in flight; concurrent calls observe
// SUBMITTING and get ErrNotEditing. On failure the session returns to the
// last step with its values intact and the error retained.
func (s *Session) Submit(ctx context.Context) (submit.Receipt, error) {
	s.mu.Lock()
	if s.phase != PhaseEditing {
		s.mu.Unlock()
		return submit.Receipt{}, ErrNotEditing
	}
	if !s.controller.IsLast() {
		s.mu.Unlock()
		return submit.Receipt{}, ErrNotLastStep
	}
	if s.submitter == nil {
		s.mu.Unlock()
		return submit.Receipt{}, ErrNoSubmitter
	}
	if err := s.validateLocked(s.controller.Current()); err != nil {
		s.mu.Unlock()
		return submit.Receipt{}, err
	}
	s.phase = PhaseSubmitting
	s.lastErr = nil
	values := s.state.Snapshot()
	s.mu.Unlock()

	receipt, err := s.submitter.Submit(ctx, s.form, values)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.phase = PhaseEditing
		s.lastErr = err
		var subErr *submit.Error
		if errors.As(err, &subErr) && len(subErr.Fields) > 0 {
			s.fieldErrors = subErr.Fields
		}
		s.logger.Warn("quote submission failed", zap.Error(err))
		return submit.Receipt{}, err
	}
	s.phase = PhaseSubmitted
	s.receipt = receipt
	s.fieldErrors = nil
	s.state.Reset()
	s.controller.Reset()
	s.logger.Info("quote submitted", zap.String("reference", receipt.ReferenceNumber), zap.Bool("acknowledged", receipt.Acknowledged))
	return receipt, nil
}

// Restart discards the receipt and any entered values and returns to step 0.
// It is the "submit another request" action and is rejected while a
// submission is in flight.
func (s *Session) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseSubmitting {
		return ErrNotEditing
	}
	s.state.Reset()
	s.controller.Reset()
	s.phase = PhaseEditing
	s.receipt = submit.Receipt{}
	s.fieldErrors = nil
	s.lastErr = nil
	return nil
}

// DismissError clears the retained submission error notification.
func (s *Session) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = nil
}

func (s *Session) validateLocked(step int) error {
	result := s.validator.ValidateStep(step, s.state.Values())
	if result.Valid {
		s.fieldErrors = nil
		return nil
	}
	s.fieldErrors = result.Errors()
	return &ValidationError{Step: step, Issues: result.Issues}
}
