package forms

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"github.com/goliatone/go-quoteforms/pkg/model"
	"github.com/goliatone/go-quoteforms/pkg/visibility"
	"github.com/goliatone/go-quoteforms/pkg/visibility/expr"
)

// ErrNotFound is returned when a form id is not registered.
var ErrNotFound = errors.New("forms: form not found")

// Option configures a Registry.
type Option func(*Registry)

// WithDecorators applies decorators to every form on load, in order.
func WithDecorators(decorators ...model.Decorator) Option {
	return func(r *Registry) {
		r.decorators = append(r.decorators, decorators...)
	}
}

// WithChecker overrides the rule checker used by Lint.
func WithChecker(checker visibility.Checker) Option {
	return func(r *Registry) {
		if checker != nil {
			r.checker = checker
		}
	}
}

// Registry holds the loaded form definitions keyed by id. Reads are safe
// while Replace swaps the whole set.
type Registry struct {
	mu         sync.RWMutex
	forms      map[string]model.Form
	decorators []model.Decorator
	checker    visibility.Checker
}

// NewRegistry builds an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		forms:   make(map[string]model.Form),
		checker: expr.New(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Load builds a registry from fsys. Every form is decorated and linted; the
// first lint failure aborts the load.
func Load(fsys fs.FS, opts ...Option) (*Registry, error) {
	r := NewRegistry(opts...)
	if err := r.ReloadFS(fsys); err != nil {
		return nil, err
	}
	return r, nil
}

// Default loads the embedded definitions.
func Default(opts ...Option) (*Registry, error) {
	return Load(EmbeddedFS(), opts...)
}

// ReloadFS parses fsys and atomically replaces the registered forms. The
// current set is kept when anything fails.
func (r *Registry) ReloadFS(fsys fs.FS) error {
	loaded, err := LoadFS(fsys)
	if err != nil {
		return err
	}
	return r.Replace(loaded...)
}

// Replace decorates and lints forms and swaps them in as the full set.
func (r *Registry) Replace(forms ...model.Form) error {
	next := make(map[string]model.Form, len(forms))
	for _, form := range forms {
		if _, exists := next[form.ID]; exists {
			return fmt.Errorf("forms: duplicate form %q", form.ID)
		}
		for _, decorator := range r.decorators {
			if decorator == nil {
				continue
			}
			if err := decorator.Decorate(&form); err != nil {
				return fmt.Errorf("forms: decorate %s: %w", form.ID, err)
			}
		}
		if err := Lint(form, r.checker); err != nil {
			return err
		}
		next[form.ID] = form
	}

	r.mu.Lock()
	r.forms = next
	r.mu.Unlock()
	return nil
}

// Get returns the form with the given id.
func (r *Registry) Get(id string) (model.Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	form, ok := r.forms[id]
	if !ok {
		return model.Form{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return form, nil
}

// ByRoute returns the form posting to route.
func (r *Registry) ByRoute(route string) (model.Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, form := range r.forms {
		if form.Route == route {
			return form, nil
		}
	}
	return model.Form{}, fmt.Errorf("%w: route %s", ErrNotFound, route)
}

// List returns every form sorted by id.
func (r *Registry) List() []model.Form {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Form, 0, len(r.forms))
	for _, form := range r.forms {
		out = append(out, form)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len reports the number of registered forms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.forms)
}
