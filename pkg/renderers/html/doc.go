// Package html renders wizard views as server-side HTML pages using pongo2
// templates. The bundled templates cover the step page, the success page and
// the form catalogue; callers can swap them with WithTemplatesFS or
// WithTemplatesDir as long as the same template names exist.
package html
