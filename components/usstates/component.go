package usstates

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-quoteforms/pkg/model"
)

// SourceName is the `optionsFrom` value that resolves to this list.
const SourceName = "usStates"

// Mux is the minimal interface required to register a handler. It is
// satisfied by *http.ServeMux and chi.Router.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// Component bundles the state list, its handler and routing helpers.
type Component struct {
	opts Options
}

// New constructs a component with default options plus any overrides.
func New(fns ...OptionFn) *Component {
	return &Component{opts: NewOptions(fns...)}
}

// Handler returns the JSON options handler.
func (c *Component) Handler() http.Handler {
	return HandlerWithOptions(c.opts)
}

// RegisterRoutes mounts the handler under basePath and returns the pattern.
func (c *Component) RegisterRoutes(mux Mux, basePath string) (string, error) {
	if mux == nil {
		return "", fmt.Errorf("usstates: missing mux")
	}
	pattern := mountPath(basePath, c.opts.RoutePath)
	mux.Handle(pattern, c.Handler())
	return pattern, nil
}

// Options implements the forms option source contract for `optionsFrom:
// usStates`.
func (c *Component) Options(name string) ([]model.Option, bool) {
	if name != SourceName {
		return nil, false
	}
	states, err := c.opts.states()
	if err != nil {
		return nil, false
	}
	return ToOptions(states), true
}

func mountPath(basePath, routePath string) string {
	basePath = strings.TrimSpace(basePath)
	routePath = strings.TrimSpace(routePath)

	if routePath == "" {
		routePath = "/"
	}
	if !strings.HasPrefix(routePath, "/") {
		routePath = "/" + routePath
	}
	if basePath == "" || basePath == "/" {
		return routePath
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return strings.TrimRight(basePath, "/") + routePath
}
