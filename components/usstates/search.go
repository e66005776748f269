package usstates

import (
	"sort"
	"strings"

	"github.com/goliatone/go-quoteforms/pkg/model"
)

// Search returns states whose code or name matches query. Exact code matches
// rank first, then name prefixes, then substrings.
func Search(states []State, query string, limit int, opts Options) []State {
	limit = clampLimit(limit, opts)
	if limit == 0 {
		return nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		if opts.EmptySearchMode == EmptySearchNone {
			return nil
		}
		if len(states) <= limit {
			return append([]State{}, states...)
		}
		return append([]State{}, states[:limit]...)
	}

	q := strings.ToLower(query)
	matches := make([]matchedState, 0, 8)
	for _, state := range states {
		name := strings.ToLower(state.Name)
		rank := -1
		switch {
		case strings.EqualFold(state.Code, query):
			rank = 0
		case strings.HasPrefix(name, q):
			rank = 1
		case strings.Contains(name, q):
			rank = 2
		}
		if rank < 0 {
			continue
		}
		matches = append(matches, matchedState{state: state, rank: rank})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].rank != matches[j].rank {
			return matches[i].rank < matches[j].rank
		}
		return matches[i].state.Name < matches[j].state.Name
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]State, 0, len(matches))
	for _, match := range matches {
		out = append(out, match.state)
	}
	return out
}

// ToOptions converts states into select choices keyed by USPS code.
func ToOptions(states []State) []model.Option {
	out := make([]model.Option, 0, len(states))
	for _, state := range states {
		out = append(out, model.Option{Value: state.Code, Label: state.Name})
	}
	return out
}

type matchedState struct {
	state State
	rank  int
}
