package web

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-quoteforms/pkg/model"
)

func documentsForm() model.Form {
	return model.Form{
		ID: "restaurants",
		Steps: []model.Step{{
			ID: "documents",
			Fields: []model.Field{
				{Name: "menu", Type: model.FieldTypeFile, Accept: []string{".pdf"}},
				{Name: "lossRuns", Type: model.FieldTypeFile, Multiple: true},
				{Name: "agreeToTerms", Type: model.FieldTypeBoolean},
				{Name: "services", Type: model.FieldTypeMultiSelect},
				{Name: "notes", Type: model.FieldTypeTextArea},
				{Name: "locations", Type: model.FieldTypeGroup, Item: []model.Field{{Name: "city", Type: model.FieldTypeText}}},
			},
		}},
	}
}

func multipartRequest(t *testing.T, fields map[string][]string, files map[string][]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, values := range fields {
		for _, v := range values {
			require.NoError(t, mw.WriteField(name, v))
		}
	}
	for name, fileNames := range files {
		for _, fileName := range fileNames {
			header := make(textproto.MIMEHeader)
			header.Set("Content-Disposition", `form-data; name="`+name+`"; filename="`+fileName+`"`)
			header.Set("Content-Type", "application/pdf")
			part, err := mw.CreatePart(header)
			require.NoError(t, err)
			_, err = part.Write([]byte("%PDF-" + fileName))
			require.NoError(t, err)
		}
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/quote/restaurants", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req
}

func TestPostedValuesReadsEveryFieldKind(t *testing.T) {
	req := multipartRequest(t,
		map[string][]string{
			"agreeToTerms":     {"false", "true"},
			"services":         {"", "delivery", "catering"},
			"notes":            {"  late night  "},
			"locations.0.city": {"Portland"},
		},
		map[string][]string{
			"menu":     {"menu.pdf"},
			"lossRuns": {"2022.pdf", "2023.pdf"},
		},
	)
	visible := []string{"menu", "lossRuns", "agreeToTerms", "services", "notes", "locations", "locations.0.city"}

	values, err := postedValues(req, documentsForm(), visible)
	require.NoError(t, err)

	assert.Equal(t, "true", values["agreeToTerms"])
	assert.Equal(t, []string{"delivery", "catering"}, values["services"])
	assert.Equal(t, "late night", values["notes"])
	assert.Equal(t, "Portland", values["locations.0.city"])
	assert.NotContains(t, values, "locations")

	menu, ok := values["menu"].(model.Attachment)
	require.True(t, ok)
	assert.Equal(t, "menu.pdf", menu.Name)
	assert.Equal(t, "application/pdf", menu.ContentType)
	assert.Equal(t, int64(len("%PDF-menu.pdf")), menu.Size)

	runs, ok := values["lossRuns"].([]model.Attachment)
	require.True(t, ok)
	require.Len(t, runs, 2)
	assert.Equal(t, "2023.pdf", runs[1].Name)
}

func TestPostedValuesLeavesAbsentFieldsAlone(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/quote/restaurants", strings.NewReader(url.Values{"notes": {"x"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.NoError(t, req.ParseForm())

	values, err := postedValues(req, documentsForm(), []string{"menu", "agreeToTerms", "notes", "services"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"notes": "x"}, values)
}
