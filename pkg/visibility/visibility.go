package visibility

// Evaluator determines whether a field should be rendered based on a rule
// expression and the current form values.
type Evaluator interface {
	Eval(fieldPath, rule string, ctx Context) (bool, error)
}

// Checker is implemented by evaluators that can validate a rule without
// evaluating it. Form definitions are linted with it at load time.
type Checker interface {
	Check(rule string) error
}

// Context provides inputs to an Evaluator. Values holds the form state. Scope,
// when set, holds the record a repeated-group field belongs to; identifiers
// resolve against Scope first so item rules can reference sibling fields.
// Extras allows callers to inject context such as feature flags.
type Context struct {
	Values map[string]any
	Scope  map[string]any
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(fieldPath, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(fieldPath, rule string, ctx Context) (bool, error) {
	return fn(fieldPath, rule, ctx)
}
