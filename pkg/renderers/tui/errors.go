package tui

import "errors"

var (
	// ErrAborted signals the user aborted the wizard (Ctrl+C or Cancel).
	ErrAborted = errors.New("tui: aborted")
)
