// Package ai provides thin HTTP clients for external generative-model APIs.
// The rest of the application depends only on the TextGenerator interface;
// concrete providers (Gemini, any OpenAI-compatible endpoint) are selected by
// configuration at startup.
package ai

import "context"

// TextGenerator produces text from a system instruction and user prompt.
// Implementations must honor the context for cancellation and treat any
// network, timeout, or non-success API status as an error; callers decide
// whether a degraded response substitutes for a failure.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// GeneratorFunc adapts a function to the TextGenerator interface. Used mainly
// by tests to stub out the external model.
type GeneratorFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

// GenerateText implements TextGenerator.
func (f GeneratorFunc) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}
