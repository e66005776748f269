package usstates

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

//go:embed data/us_states.txt
var dataFS embed.FS

const defaultListPath = "data/us_states.txt"

// State is one USPS jurisdiction.
type State struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var (
	defaultOnce   sync.Once
	defaultStates []State
	defaultErr    error
)

// DefaultStates returns the embedded list sorted by name.
func DefaultStates() ([]State, error) {
	defaultOnce.Do(func() {
		f, err := dataFS.Open(defaultListPath)
		if err != nil {
			defaultErr = err
			return
		}
		defer func() { _ = f.Close() }()

		defaultStates, defaultErr = LoadStates(f)
	})

	if defaultErr != nil {
		return nil, defaultErr
	}
	return append([]State{}, defaultStates...), nil
}

// LoadStates parses `CODE|Name` lines. Blank lines and # comments are
// skipped; duplicate codes keep the first entry.
func LoadStates(r io.Reader) ([]State, error) {
	if r == nil {
		return nil, fmt.Errorf("usstates: missing reader")
	}

	scanner := bufio.NewScanner(r)
	states := make([]State, 0, 64)
	seen := map[string]struct{}{}

	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		code, name, ok := strings.Cut(text, "|")
		code = strings.ToUpper(strings.TrimSpace(code))
		name = strings.TrimSpace(name)
		if !ok || len(code) != 2 || name == "" {
			return nil, fmt.Errorf("usstates: line %d: expected CODE|Name, got %q", line, text)
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		states = append(states, State{Code: code, Name: name})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sort.Slice(states, func(i, j int) bool { return states[i].Name < states[j].Name })
	return states, nil
}
