package driven

import "context"

// GenerateOptions holds generation parameters.
type GenerateOptions struct {
	// MaxTokens limits the response length (0 = model default).
	MaxTokens int

	// Temperature controls randomness (0 = model default).
	Temperature float64

	// StopWords terminate generation when produced.
	StopWords []string
}

// GenerationService produces text from an assembled prompt. This is an
// optional external collaborator - when nil, the ask flow is disabled while
// search keeps working.
type GenerationService interface {
	// Generate produces a completion for the prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
