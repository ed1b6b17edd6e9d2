package internal

import (
	"io"

	"github.com/starford/modeler/internal/llm"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	predictor llm.Predictor
	logOutput io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithPredictor replaces the predictor built from the llm config section.
func WithPredictor(p llm.Predictor) Option {
	return func(a *application) {
		a.predictor = p
	}
}

// WithLogOutput redirects the JSON log stream (stdout by default).
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}
