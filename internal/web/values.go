package web

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/goliatone/go-quoteforms/pkg/model"
)

// postedValues collects the values posted for the visible paths of the
// current step. Paths the request does not mention are left untouched so a
// partial post never clears state. File inputs only replace the stored
// attachment when a file was actually chosen.
func postedValues(r *http.Request, form model.Form, visible []string) (map[string]any, error) {
	out := make(map[string]any, len(visible))
	for _, path := range visible {
		field, ok := form.Lookup(path)
		if !ok || field.Type == model.FieldTypeGroup {
			continue
		}
		if field.Type == model.FieldTypeFile {
			attachments, err := postedFiles(r, path)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			switch {
			case len(attachments) == 0:
			case field.Multiple:
				out[path] = attachments
			default:
				out[path] = attachments[0]
			}
			continue
		}

		raw, present := r.PostForm[path]
		if !present {
			continue
		}
		switch field.Type {
		case model.FieldTypeBoolean:
			// the checkbox follows a hidden "false" input, so the last value wins
			out[path] = raw[len(raw)-1]
		case model.FieldTypeMultiSelect:
			picked := make([]string, 0, len(raw))
			for _, v := range raw {
				if v = strings.TrimSpace(v); v != "" {
					picked = append(picked, v)
				}
			}
			out[path] = picked
		default:
			out[path] = strings.TrimSpace(raw[0])
		}
	}
	return out, nil
}

func postedFiles(r *http.Request, path string) ([]model.Attachment, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var out []model.Attachment
	for _, header := range r.MultipartForm.File[path] {
		if header.Filename == "" {
			continue
		}
		attachment, err := readAttachment(header)
		if err != nil {
			return nil, err
		}
		out = append(out, attachment)
	}
	return out, nil
}

func readAttachment(header *multipart.FileHeader) (model.Attachment, error) {
	file, err := header.Open()
	if err != nil {
		return model.Attachment{}, fmt.Errorf("open %q: %w", header.Filename, err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("read %q: %w", header.Filename, err)
	}
	return model.Attachment{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}
