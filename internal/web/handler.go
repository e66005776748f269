package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/goliatone/go-quoteforms/pkg/forms"
	"github.com/goliatone/go-quoteforms/pkg/model"
	"github.com/goliatone/go-quoteforms/pkg/render"
	htmlrenderer "github.com/goliatone/go-quoteforms/pkg/renderers/html"
	"github.com/goliatone/go-quoteforms/pkg/wizard"
)

const (
	// CookieName carries the browser id that scopes wizard sessions.
	CookieName = "quoteforms_session"

	defaultMaxUpload = 32 << 20
)

// Option configures a Handler.
type Option func(*Handler)

// WithLogger attaches a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithSessions replaces the default in-memory session store.
func WithSessions(sessions *Sessions) Option {
	return func(h *Handler) {
		if sessions != nil {
			h.sessions = sessions
		}
	}
}

// WithSecureCookies marks the session cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(h *Handler) {
		h.secure = secure
	}
}

// WithMaxUpload caps the multipart body kept in memory per request.
func WithMaxUpload(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// WithSessionOptions forwards options to every wizard session created.
func WithSessionOptions(opts ...wizard.Option) Option {
	return func(h *Handler) {
		h.sessionOpts = append(h.sessionOpts, opts...)
	}
}

// Handler serves the HTML wizards.
type Handler struct {
	registry    *forms.Registry
	renderer    *htmlrenderer.Renderer
	submitter   wizard.Submitter
	sessions    *Sessions
	sessionOpts []wizard.Option
	logger      *zap.Logger
	secure      bool
	maxUpload   int64
}

// New wires the HTML front end. submitter sends completed wizards to the
// quote API.
func New(registry *forms.Registry, renderer *htmlrenderer.Renderer, submitter wizard.Submitter, opts ...Option) (*Handler, error) {
	if registry == nil {
		return nil, errors.New("web: form registry is required")
	}
	if renderer == nil {
		return nil, errors.New("web: renderer is required")
	}
	if submitter == nil {
		return nil, errors.New("web: submitter is required")
	}
	h := &Handler{
		registry:  registry,
		renderer:  renderer,
		submitter: submitter,
		logger:    zap.NewNop(),
		maxUpload: defaultMaxUpload,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.sessions == nil {
		h.sessions = NewSessions(defaultSessionTTL)
	}
	return h, nil
}

// Sessions exposes the session store, for sweeping.
func (h *Handler) Sessions() *Sessions { return h.sessions }

// Mount registers the wizard routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/", h.index)
	r.Get("/quote/{id}", h.show)
	r.Post("/quote/{id}", h.act)
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	page, err := h.renderer.RenderIndex(r.Context(), h.registry.List())
	if err != nil {
		h.fail(w, "render index", err)
		return
	}
	h.writePage(w, page)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	form, ok := h.form(w, r)
	if !ok {
		return
	}
	session, err := h.sessions.GetOrCreate(h.browserID(w, r), form, h.options()...)
	if err != nil {
		h.fail(w, "start session", err)
		return
	}
	h.renderSession(w, r, form, session)
}

func (h *Handler) act(w http.ResponseWriter, r *http.Request) {
	form, ok := h.form(w, r)
	if !ok {
		return
	}
	session, err := h.sessions.GetOrCreate(h.browserID(w, r), form, h.options()...)
	if err != nil {
		h.fail(w, "start session", err)
		return
	}

	if err := r.ParseMultipartForm(h.maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}
	action := r.PostForm.Get("action")

	if session.Phase() == wizard.PhaseEditing {
		if step := postedStep(r); step != session.Step() {
			// the page was rendered for another step; only a banner dismiss still applies
			if action == "dismiss" {
				session.DismissError()
			}
			h.logger.Debug("ignored action from a stale page",
				zap.String("form", form.ID),
				zap.String("action", action),
				zap.Int("posted_step", step),
				zap.Int("step", session.Step()),
			)
			http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
			return
		}
		if err := h.apply(r, form, session); err != nil {
			h.logger.Info("rejected posted values", zap.String("form", form.ID), zap.Error(err))
			http.Error(w, "invalid form submission", http.StatusBadRequest)
			return
		}
	}

	if err := h.dispatch(r.Context(), session, action); err != nil {
		switch {
		case errors.Is(err, errUnknownAction):
			http.Error(w, "unknown action", http.StatusBadRequest)
			return
		case errors.Is(err, wizard.ErrNotEditing):
			// a submission is in flight or already done; show whatever state it is in
		default:
			var vErr *wizard.ValidationError
			if !errors.As(err, &vErr) {
				h.logger.Debug("wizard action failed", zap.String("form", form.ID), zap.String("action", action), zap.Error(err))
			}
		}
	}
	http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
}

func (h *Handler) apply(r *http.Request, form model.Form, session *wizard.Session) error {
	visible, err := session.Visible()
	if err != nil {
		return err
	}
	values, err := postedValues(r, form, visible)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	return session.SetMany(values)
}

var errUnknownAction = errors.New("web: unknown action")

// dispatch runs one wizard action. Validation and submission failures are
// kept on the session and shown on the next render.
func (h *Handler) dispatch(ctx context.Context, session *wizard.Session, action string) error {
	switch {
	case action == "next":
		return session.Next()
	case action == "back":
		return session.Back()
	case action == "submit":
		// the backend call outlives a browser that navigates away mid-request
		_, err := session.Submit(context.WithoutCancel(ctx))
		return err
	case action == "restart":
		return session.Restart()
	case action == "dismiss":
		session.DismissError()
		return nil
	case strings.HasPrefix(action, "add:"):
		_, err := session.AppendItem(strings.TrimPrefix(action, "add:"))
		return err
	case strings.HasPrefix(action, "remove:"):
		group, index, ok := parseRemove(action)
		if !ok {
			return errUnknownAction
		}
		return session.RemoveItem(group, index)
	default:
		return errUnknownAction
	}
}

func parseRemove(action string) (string, int, bool) {
	rest := strings.TrimPrefix(action, "remove:")
	idx := strings.LastIndex(rest, ":")
	if idx <= 0 {
		return "", 0, false
	}
	index, err := strconv.Atoi(rest[idx+1:])
	if err != nil || index < 0 {
		return "", 0, false
	}
	return rest[:idx], index, true
}

func postedStep(r *http.Request) int {
	step, err := strconv.Atoi(r.PostForm.Get("step"))
	if err != nil {
		return -1
	}
	return step
}

func (h *Handler) renderSession(w http.ResponseWriter, r *http.Request, form model.Form, session *wizard.Session) {
	view, err := session.View(r.URL.Path, render.Hidden("step", session.Step()))
	if err != nil {
		h.fail(w, "build view", err)
		return
	}
	page, err := h.renderer.Render(r.Context(), view)
	if err != nil {
		h.fail(w, "render "+form.ID, err)
		return
	}
	h.writePage(w, page)
}

func (h *Handler) form(w http.ResponseWriter, r *http.Request) (model.Form, bool) {
	form, err := h.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return model.Form{}, false
	}
	return form, true
}

func (h *Handler) browserID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	id := NewBrowserID()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (h *Handler) options() []wizard.Option {
	opts := append([]wizard.Option{
		wizard.WithSubmitter(h.submitter),
		wizard.WithLogger(h.logger),
	}, h.sessionOpts...)
	return opts
}

func (h *Handler) writePage(w http.ResponseWriter, page []byte) {
	w.Header().Set("Content-Type", h.renderer.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (h *Handler) fail(w http.ResponseWriter, what string, err error) {
	h.logger.Error("web: "+what, zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
