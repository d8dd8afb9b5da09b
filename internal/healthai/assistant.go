// Package healthai answers free-text health questions through a generative
// text model.
//
// Ask never fails. Without an API key it returns NotConfiguredAnswer, and on
// a model error it logs and returns UnavailableAnswer, so the chat screen
// always has something to render.
package healthai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	NotConfiguredAnswer = "API key not configured. Please set up your Gemini API key."
	UnavailableAnswer   = "I apologize, but I am currently unable to process your request. Please try again later."
)

const healthFraming = "As a medical and health assistant, please provide accurate and helpful information about: %s. " +
	"Only answer questions related to health, medicine, and wellness. " +
	"If the question is not related to health or medicine, politely decline to answer and suggest asking about health-related topics instead."

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Assistant wraps a Generator with the health-only framing.
type Assistant struct {
	gen    Generator
	logger *slog.Logger
}

// New creates an Assistant. gen may be nil when no API key is configured.
func New(gen Generator, logger *slog.Logger) *Assistant {
	if gen == nil {
		logger.Warn("no Gemini API key found; set GEMINI_API_KEY to enable the health assistant")
	}
	return &Assistant{gen: gen, logger: logger}
}

// Configured reports whether a model is available.
func (a *Assistant) Configured() bool {
	return a.gen != nil
}

// Ask answers prompt.
func (a *Assistant) Ask(ctx context.Context, prompt string) string {
	if a.gen == nil {
		return NotConfiguredAnswer
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ""
	}

	answer, err := a.gen.Generate(ctx, fmt.Sprintf(healthFraming, prompt))
	if err != nil {
		a.logger.Error("generating health response", slog.String("error", err.Error()))
		return UnavailableAnswer
	}
	return answer
}
