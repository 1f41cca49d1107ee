package auth

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"
)

type fakeGenerator struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f fakeGenerator) GenerateContent(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return f.resp, f.err
}

func init() {
	MetricsNamespace = ""
}

func TestValidateAPIKey(t *testing.T) {
	ok := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: "hello"}}},
	}}}

	tests := []struct {
		name     string
		gen      fakeGenerator
		wantType ValidationErrorType
		wantErr  bool
	}{
		{name: "valid", gen: fakeGenerator{resp: ok}},
		{name: "empty response", gen: fakeGenerator{resp: &genai.GenerateContentResponse{}}, wantErr: true, wantType: ErrTypeUnknown},
		{name: "unauthorized", gen: fakeGenerator{err: &genai.APIError{Code: 403, Message: "denied"}}, wantErr: true, wantType: ErrTypeInvalidKey},
		{name: "rate limited", gen: fakeGenerator{err: &genai.APIError{Code: 429, Message: "slow down"}}, wantErr: true, wantType: ErrTypeQuotaExceeded},
		{name: "server error", gen: fakeGenerator{err: &genai.APIError{Code: 503}}, wantErr: true, wantType: ErrTypeNetworkError},
		{name: "bad key text", gen: fakeGenerator{err: errors.New("API key not valid. Please pass a valid API key.")}, wantErr: true, wantType: ErrTypeInvalidKey},
		{name: "dial failure", gen: fakeGenerator{err: errors.New("dial tcp: lookup host: no such host")}, wantErr: true, wantType: ErrTypeNetworkError},
		{name: "other", gen: fakeGenerator{err: errors.New("something odd")}, wantErr: true, wantType: ErrTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(context.Background(), tt.gen, "test-model")
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected *ValidationError, got %T: %v", err, err)
			}
			if valErr.Type != tt.wantType {
				t.Errorf("expected type %d, got %d", tt.wantType, valErr.Type)
			}
		})
	}
}

func TestValidationErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &ValidationError{Type: ErrTypeUnknown, Message: "failed", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if err.Error() != "failed: root cause" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
