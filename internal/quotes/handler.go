package quotes

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/goliatone/go-quoteforms/components/usstates"
	"github.com/goliatone/go-quoteforms/pkg/forms"
	"github.com/goliatone/go-quoteforms/pkg/model"
	"github.com/goliatone/go-quoteforms/pkg/openapi"
)

const defaultMaxBody = 32 << 20

// HandlerOption configures the HTTP API.
type HandlerOption func(*api)

// WithStates mounts the US state options endpoint.
func WithStates(component *usstates.Component) HandlerOption {
	return func(a *api) {
		a.states = component
	}
}

// WithMaxBody caps request bodies in bytes.
func WithMaxBody(n int64) HandlerOption {
	return func(a *api) {
		if n > 0 {
			a.maxBody = n
		}
	}
}

// WithOpenAPIServer sets the server URL advertised in /openapi.json.
func WithOpenAPIServer(url string) HandlerOption {
	return func(a *api) {
		a.serverURL = url
	}
}

type api struct {
	service   *Service
	states    *usstates.Component
	maxBody   int64
	serverURL string
	logger    *zap.Logger
}

// NewRouter returns a chi router serving the quote API.
func NewRouter(service *Service, opts ...HandlerOption) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(service.logger))
	Mount(r, service, opts...)
	return r
}

// Mount registers the API routes on an existing router.
func Mount(r chi.Router, service *Service, opts ...HandlerOption) {
	a := &api{service: service, maxBody: defaultMaxBody, logger: service.logger}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	r.Post("/api/quotes/{form}", a.submit)
	r.Get("/api/quotes/{reference}", a.getQuote)
	r.Get(openapi.FormsPath, a.listForms)
	r.Get(openapi.FormPath, a.getForm)
	r.Get("/api/forms/{id}/quotes", a.listQuotes)
	r.Get("/openapi.json", a.openAPI)
	if a.states != nil {
		_, _ = a.states.RegisterRoutes(r, "")
	}
}

// RequestLogger logs each request at debug level.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

type errorBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

type submitResponse struct {
	Reference string `json:"referenceNumber,omitempty"`
	Message   string `json:"message,omitempty"`
}

type formSummary struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	Description   string             `json:"description,omitempty"`
	InsuranceType string             `json:"insuranceType"`
	Route         string             `json:"route"`
	Response      model.ResponseMode `json:"response"`
}

func (a *api) resolveForm(r *http.Request) (model.Form, error) {
	registry := a.service.Registry()
	if form, err := registry.ByRoute(r.URL.Path); err == nil {
		return form, nil
	}
	return registry.Get(chi.URLParam(r, "form"))
}

// formLookupFailed writes the response for a failed registry lookup.
func (a *api) formLookupFailed(w http.ResponseWriter, err error) {
	if errors.Is(err, forms.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Message: "unknown quote form"})
		return
	}
	a.logger.Error("form lookup failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorBody{Message: http.StatusText(http.StatusInternalServerError)})
}

func (a *api) submit(w http.ResponseWriter, r *http.Request) {
	form, err := a.resolveForm(r)
	if err != nil {
		a.formLookupFailed(w, err)
		return
	}

	var body map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, a.maxBody))
	if err := dec.Decode(&body); err != nil || body == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "request body must be a JSON object"})
		return
	}

	quote, err := a.service.Submit(r.Context(), form, body)
	var (
		validationErr *ValidationError
		badRequest    *BadRequestError
	)
	switch {
	case err == nil:
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Message: "Please correct the highlighted fields.", Errors: validationErr.Fields})
		return
	case errors.As(err, &badRequest):
		writeJSON(w, http.StatusBadRequest, errorBody{Message: badRequest.Err.Error()})
		return
	default:
		a.logger.Error("quote submission failed", zap.String("form", form.ID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: "We could not save your request. Please try again."})
		return
	}

	resp := submitResponse{Message: form.SuccessMessage}
	if form.Mode() == model.ResponseReference {
		resp.Reference = quote.Reference
	}
	w.Header().Set("Location", "/api/quotes/"+quote.Reference)
	writeJSON(w, http.StatusCreated, resp)
}

func (a *api) getQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := a.service.Get(r.Context(), chi.URLParam(r, "reference"))
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Message: "quote request not found"})
	case err != nil:
		a.logger.Error("quote lookup failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: http.StatusText(http.StatusInternalServerError)})
	default:
		writeJSON(w, http.StatusOK, quote)
	}
}

func (a *api) listQuotes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := a.service.Registry().Get(id); err != nil {
		a.formLookupFailed(w, err)
		return
	}
	quotes, err := a.service.List(r.Context(), id)
	if err != nil {
		a.logger.Error("quote listing failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: http.StatusText(http.StatusInternalServerError)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": quotes})
}

func (a *api) listForms(w http.ResponseWriter, _ *http.Request) {
	all := a.service.Registry().List()
	out := make([]formSummary, 0, len(all))
	for _, form := range all {
		out = append(out, formSummary{
			ID:            form.ID,
			Title:         form.Title,
			Description:   form.Description,
			InsuranceType: form.InsuranceType,
			Route:         form.Route,
			Response:      form.Mode(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (a *api) getForm(w http.ResponseWriter, r *http.Request) {
	form, err := a.service.Registry().Get(chi.URLParam(r, "id"))
	if err != nil {
		a.formLookupFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (a *api) openAPI(w http.ResponseWriter, r *http.Request) {
	var opts []openapi.Option
	if a.serverURL != "" {
		opts = append(opts, openapi.WithServerURL(a.serverURL))
	}
	doc, err := openapi.Build(r.Context(), a.service.Registry().List(), opts...)
	if err != nil {
		a.logger.Error("openapi build failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: http.StatusText(http.StatusInternalServerError)})
		return
	}
	raw, err := openapi.Marshal(doc)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: http.StatusText(http.StatusInternalServerError)})
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
