package tui

import "io"

// Theme captures optional message prefixes the runner prints.
type Theme struct {
	StepPrefix  string
	InfoPrefix  string
	ErrorPrefix string
}

// Option configures the runner.
type Option func(*Runner)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithOutput sets where the default survey driver prints messages.
func WithOutput(out io.Writer) Option {
	return func(r *Runner) {
		if out != nil {
			r.out = out
		}
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(r *Runner) {
		r.theme = theme
	}
}

// WithFileReader replaces how file answers are read, which defaults to
// os.ReadFile.
func WithFileReader(fn func(path string) ([]byte, error)) Option {
	return func(r *Runner) {
		if fn != nil {
			r.readFile = fn
		}
	}
}

func defaultTheme() Theme {
	return Theme{StepPrefix: "==", InfoPrefix: "", ErrorPrefix: "!"}
}
