package forms

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-quoteforms/pkg/model"
)

// LoadFS walks fsys and parses every JSON/YAML file as one form definition.
// Duplicate form ids are rejected.
func LoadFS(fsys fs.FS) ([]model.Form, error) {
	if fsys == nil {
		return nil, nil
	}
	seen := make(map[string]string)
	var out []model.Form
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("forms: read %s: %w", path, err)
		}
		form, err := parseDefinition(data, path)
		if err != nil {
			return err
		}
		if prev, exists := seen[form.ID]; exists {
			return fmt.Errorf("forms: duplicate form %q (files %s and %s)", form.ID, prev, path)
		}
		seen[form.ID] = path
		out = append(out, form)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LoadDir loads definitions from a directory on disk.
func LoadDir(dir string) ([]model.Form, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("forms: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("forms: %s is not a directory", dir)
	}
	return LoadFS(os.DirFS(dir))
}

func parseDefinition(data []byte, source string) (model.Form, error) {
	if strings.TrimSpace(string(data)) == "" {
		return model.Form{}, fmt.Errorf("forms: file %s is empty", source)
	}

	var form model.Form
	var err error
	if strings.EqualFold(filepath.Ext(source), ".json") {
		err = json.Unmarshal(data, &form)
	} else {
		err = yaml.Unmarshal(data, &form)
	}
	if err != nil {
		return model.Form{}, fmt.Errorf("forms: parse %s: %w", source, err)
	}
	return normalise(form, source), nil
}

func normalise(form model.Form, source string) model.Form {
	form.ID = strings.TrimSpace(form.ID)
	if form.ID == "" {
		form.ID = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}
	if strings.TrimSpace(form.Route) == "" {
		form.Route = "/api/quotes/" + form.ID
	}
	if form.InsuranceType == "" {
		form.InsuranceType = form.ID
	}
	form.Source = source
	for i := range form.Steps {
		if form.Steps[i].ID == "" {
			form.Steps[i].ID = fmt.Sprintf("step-%d", i+1)
		}
	}
	return form
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
