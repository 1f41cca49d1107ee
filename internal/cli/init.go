// Package cli holds helpers shared by the command-line binaries: Gemini
// client setup, interactive prompts and output formatting.
package cli

import (
	"context"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/product-craft/internal/auth"
	"github.com/fpang/product-craft/internal/chat"
)

// InitGemini resolves the API key, creates a genai client and validates the
// key against textModel. It exits fatally on failure. The key is returned
// too because the image backend talks to the REST API directly.
func InitGemini(ctx context.Context, textModel string) (string, *genai.Client) {
	apiKey, err := auth.GetAPIKey()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to retrieve API key")
	}

	client, err := chat.NewGeminiClient(ctx, apiKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Gemini client")
	}
	log.Debug().Msg("Gemini client initialized")

	if err := auth.ValidateAPIKey(ctx, client.Models, textModel); err != nil {
		HandleValidationError(err)
	}
	log.Info().Msg("API key validation complete - ready for operations")

	return apiKey, client
}
