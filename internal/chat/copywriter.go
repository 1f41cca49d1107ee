package chat

// copywriter.go generates marketing text for a product: social media
// write-ups, product analysis, photography tips and background ideas.

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fpang/product-craft/internal/assets"
	"github.com/fpang/product-craft/internal/jsonutil"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// ErrEmptyResponse is returned when Gemini answers without any text.
var ErrEmptyResponse = errors.New("received empty response from Gemini API")

// ErrInvalidInput tags requests rejected before any Gemini call.
var ErrInvalidInput = errors.New("invalid input")

// FallbackBackgrounds is returned by SuggestBackgrounds when Gemini is unavailable.
var FallbackBackgrounds = []string{"Clean White", "Soft Gray", "Natural Wood", "Marble Texture", "Gradient Blue"}

// listMarker matches a leading bullet or "1." / "1)" numbering.
var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// maxBackgroundSuggestions caps SuggestBackgrounds results.
const maxBackgroundSuggestions = 5

// Write-up defaults applied when a request leaves a field empty.
const (
	DefaultPlatform  = "Instagram"
	DefaultWordLimit = 150
	DefaultTone      = "professional"
)

// WriteupRequest describes one social media post.
type WriteupRequest struct {
	Platform  string `json:"platform"`
	WordLimit int    `json:"wordLimit"`
	Tone      string `json:"tone"`
	Brief     string `json:"brief"`
}

// Copywriter produces text content with a Gemini text model.
type Copywriter struct {
	gen   ContentGenerator
	model string
}

// NewCopywriter creates a Copywriter. An empty model uses GetTextModelName.
func NewCopywriter(gen ContentGenerator, model string) *Copywriter {
	if model == "" {
		model = GetTextModelName()
	}
	return &Copywriter{gen: gen, model: model}
}

// GenerateSocialWriteup writes a platform-specific post from a short brief.
func (c *Copywriter) GenerateSocialWriteup(ctx context.Context, req WriteupRequest) (string, error) {
	brief := strings.TrimSpace(req.Brief)
	if brief == "" {
		return "", fmt.Errorf("%w: brief is required", ErrInvalidInput)
	}
	data := assets.WriteupPromptData{
		Platform:  strings.TrimSpace(req.Platform),
		WordLimit: req.WordLimit,
		Tone:      strings.TrimSpace(req.Tone),
		Brief:     brief,
	}
	if data.Platform == "" {
		data.Platform = DefaultPlatform
	}
	if data.WordLimit <= 0 {
		data.WordLimit = DefaultWordLimit
	}
	if data.Tone == "" {
		data.Tone = DefaultTone
	}
	return c.generate(ctx, "writeup", assets.RenderWriteupPrompt(data))
}

// AnalyzeProduct returns marketing insights for a product description.
func (c *Copywriter) AnalyzeProduct(ctx context.Context, description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", fmt.Errorf("%w: product description is required", ErrInvalidInput)
	}
	return c.generate(ctx, "analyze", assets.RenderAnalyzePrompt(description))
}

// SuggestEnhancements returns photography and presentation tips for a product type.
func (c *Copywriter) SuggestEnhancements(ctx context.Context, productType string) (string, error) {
	productType = strings.TrimSpace(productType)
	if productType == "" {
		return "", fmt.Errorf("%w: product type is required", ErrInvalidInput)
	}
	return c.generate(ctx, "suggestions", assets.RenderSuggestionsPrompt(productType))
}

// SuggestBackgrounds returns up to five background style names. It never
// fails: any Gemini error or empty answer yields FallbackBackgrounds.
func (c *Copywriter) SuggestBackgrounds(ctx context.Context, productType string) []string {
	text, err := c.generate(ctx, "backgrounds", assets.RenderBackgroundsPrompt(strings.TrimSpace(productType)))
	if err != nil {
		log.Warn().Err(err).Msg("Background suggestion failed, using fallback list")
		return fallbackBackgrounds()
	}

	lines, jsonErr := jsonutil.ParseJSON[[]string](text)
	if jsonErr != nil {
		lines = strings.Split(text, "\n")
	}

	var names []string
	for _, line := range lines {
		name := strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if name == "" {
			continue
		}
		names = append(names, name)
		if len(names) == maxBackgroundSuggestions {
			break
		}
	}
	if len(names) == 0 {
		return fallbackBackgrounds()
	}
	return names
}

func fallbackBackgrounds() []string {
	out := make([]string, len(FallbackBackgrounds))
	copy(out, FallbackBackgrounds)
	return out
}

func (c *Copywriter) generate(ctx context.Context, task, prompt string) (string, error) {
	log.Debug().
		Str("task", task).
		Str("model", c.model).
		Int("prompt_length", len(prompt)).
		Msg("Sending copy request to Gemini")

	start := time.Now()
	resp, err := c.gen.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		log.Error().Err(err).Str("task", task).Msg("Failed to generate content")
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		log.Warn().Str("task", task).Msg("Received empty response from Gemini")
		return "", ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}

	log.Debug().
		Str("task", task).
		Int("response_length", len(text)).
		Dur("duration", time.Since(start)).
		Msg("Received response from Gemini")
	return text, nil
}
