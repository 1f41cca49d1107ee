package chat

// gemini_image.go talks to the Gemini image model over REST. The request and
// response shapes are small enough that plain JSON structs keep the wire format
// visible and easy to fake in tests.

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fpang/product-craft/internal/assets"
	"github.com/fpang/product-craft/internal/editor"
	"github.com/rs/zerolog/log"
)

// geminiBaseURL is the Gemini REST API base URL.
const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiImageClient edits product photos with a Gemini image model. It
// implements editor.Backend.
type GeminiImageClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiImageClient creates a client for the model named by GetImageModelName.
func NewGeminiImageClient(apiKey string) *GeminiImageClient {
	return &GeminiImageClient{
		apiKey:  apiKey,
		model:   GetImageModelName(),
		baseURL: geminiBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // Image generation can take 10-30s
		},
	}
}

// WithModel overrides the image model. Empty keeps the current one.
func (c *GeminiImageClient) WithModel(model string) *GeminiImageClient {
	if model != "" {
		c.model = model
	}
	return c
}

// Model returns the image model id.
func (c *GeminiImageClient) Model() string {
	return c.model
}

// --- REST API request/response types ---

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *geminiBlobData `json:"inlineData,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiBlobData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64 encoded
}

type geminiResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
	Error          *geminiError          `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiPromptFeedback struct {
	BlockReason        string `json:"blockReason,omitempty"`
	BlockReasonMessage string `json:"blockReasonMessage,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Edit sends the source image and the operation's prompt to the model and
// returns the edited image. Failures are *editor.Error values: Refused for
// blocked prompts and non-STOP finishes, MalformedResponse when no image
// comes back, TransportFailure for network and HTTP errors.
func (c *GeminiImageClient) Edit(ctx context.Context, req editor.BackendRequest) (editor.BackendResult, error) {
	op := req.Operation
	prompt, err := c.buildPrompt(req)
	if err != nil {
		return editor.BackendResult{}, editor.NewError(editor.KindUnsupportedOperation, op, "no prompt for this operation", err)
	}

	startTime := time.Now()
	log.Info().
		Str("model", c.model).
		Str("op", string(op)).
		Int("image_bytes", req.Image.Size()).
		Str("image_mime", req.Image.MIMEType()).
		Msg("Sending image to Gemini for editing")

	body, err := json.Marshal(geminiRequest{
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: assets.EditSystemPrompt}},
		},
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{InlineData: &geminiBlobData{
					MIMEType: req.Image.MIMEType(),
					Data:     base64.StdEncoding.EncodeToString(req.Image.Bytes()),
				}},
				{Text: prompt},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	})
	if err != nil {
		return editor.BackendResult{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return editor.BackendResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return editor.BackendResult{}, err
		}
		return editor.BackendResult{}, editor.NewError(editor.KindTransportFailure, op, "HTTP request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return editor.BackendResult{}, editor.NewError(editor.KindTransportFailure, op, "failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", truncateString(string(respBody), 500)).
			Msg("Gemini image editing API returned error")
		return editor.BackendResult{}, editor.NewError(editor.KindTransportFailure, op,
			fmt.Sprintf("API returned status %d: %s", resp.StatusCode, truncateString(string(respBody), 200)), nil)
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return editor.BackendResult{}, editor.NewError(editor.KindMalformedResponse, op, "failed to parse response", err)
	}

	result, err := interpretResponse(op, &geminiResp)
	if err != nil {
		log.Warn().Err(err).Str("op", string(op)).Msg("Gemini did not return an edited image")
		return editor.BackendResult{}, err
	}

	log.Info().
		Int("output_bytes", len(result.Data)).
		Str("output_mime", result.MIMEType).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini image editing complete")
	return result, nil
}

func (c *GeminiImageClient) buildPrompt(req editor.BackendRequest) (string, error) {
	data := assets.EditPromptData{Instruction: req.Instruction}
	if req.Hotspot != nil {
		data.X, data.Y = req.Hotspot.X, req.Hotspot.Y
	}
	return assets.RenderEditPrompt(string(req.Operation), data)
}

// interpretResponse checks, in order: API error, prompt block, image part,
// abnormal finish, then text-only answers.
func interpretResponse(op editor.Operation, resp *geminiResponse) (editor.BackendResult, error) {
	if resp.Error != nil {
		return editor.BackendResult{}, editor.NewError(editor.KindTransportFailure, op,
			fmt.Sprintf("API error: %s (code: %d)", resp.Error.Message, resp.Error.Code), nil)
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		msg := "Request was blocked. Reason: " + fb.BlockReason + "."
		if fb.BlockReasonMessage != "" {
			msg += " " + fb.BlockReasonMessage
		}
		return editor.BackendResult{}, editor.NewError(editor.KindRefused, op, msg, nil)
	}

	if len(resp.Candidates) == 0 {
		return editor.BackendResult{}, editor.NewError(editor.KindMalformedResponse, op, "response contained no candidates", nil)
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.InlineData != nil {
			decoded, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return editor.BackendResult{}, editor.NewError(editor.KindMalformedResponse, op, "failed to decode image data", err)
			}
			return editor.BackendResult{Data: decoded, MIMEType: part.InlineData.MIMEType}, nil
		}
		text.WriteString(part.Text)
	}

	if reason := candidate.FinishReason; reason != "" && reason != "STOP" {
		return editor.BackendResult{}, editor.NewError(editor.KindRefused, op,
			fmt.Sprintf("Image generation stopped unexpectedly. Reason: %s. This often relates to safety settings.", reason), nil)
	}

	msg := "The AI model did not return an image. "
	if t := strings.TrimSpace(text.String()); t != "" {
		msg += fmt.Sprintf("The model responded with text: %q", truncateString(t, 200))
	} else {
		msg += "This can happen due to safety filters or if the request is too complex. Try rephrasing the request to be more direct."
	}
	return editor.BackendResult{}, editor.NewError(editor.KindMalformedResponse, op, msg, nil)
}

// truncateString truncates a string to maxLen, appending "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
