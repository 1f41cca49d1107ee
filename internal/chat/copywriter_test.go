package chat

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"google.golang.org/genai"
)

// fakeGenerator answers GenerateContent with a canned reply.
type fakeGenerator struct {
	reply  string
	err    error
	empty  bool
	model  string
	prompt string
	calls  int
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.empty {
		return &genai.GenerateContentResponse{}, nil
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: f.reply}}},
		}},
	}, nil
}

func TestGenerateSocialWriteup(t *testing.T) {
	gen := &fakeGenerator{reply: "  Light up your evenings ✨ #candles  "}
	cw := NewCopywriter(gen, "text-model")

	got, err := cw.GenerateSocialWriteup(context.Background(), WriteupRequest{Brief: "soy candles"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Light up your evenings ✨ #candles" {
		t.Errorf("unexpected writeup %q", got)
	}
	if gen.model != "text-model" {
		t.Errorf("model = %q", gen.model)
	}
	for _, want := range []string{"Instagram", "under 150 words", "professional"} {
		if !strings.Contains(gen.prompt, want) {
			t.Errorf("prompt missing default %q", want)
		}
	}
}

func TestCopywriterRejectsBlankInput(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	cw := NewCopywriter(gen, "text-model")
	ctx := context.Background()

	if _, err := cw.GenerateSocialWriteup(ctx, WriteupRequest{Brief: "  "}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("writeup: expected ErrInvalidInput, got %v", err)
	}
	if _, err := cw.AnalyzeProduct(ctx, ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("analyze: expected ErrInvalidInput, got %v", err)
	}
	if _, err := cw.SuggestEnhancements(ctx, "\t"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("suggestions: expected ErrInvalidInput, got %v", err)
	}
	if gen.calls != 0 {
		t.Errorf("Gemini called %d times for invalid input", gen.calls)
	}
}

func TestAnalyzeProductErrors(t *testing.T) {
	cw := NewCopywriter(&fakeGenerator{err: errors.New("boom")}, "m")
	if _, err := cw.AnalyzeProduct(context.Background(), "mug"); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected wrapped error, got %v", err)
	}

	cw = NewCopywriter(&fakeGenerator{empty: true}, "m")
	if _, err := cw.AnalyzeProduct(context.Background(), "mug"); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestSuggestBackgrounds(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
		want []string
	}{
		{
			name: "parses list",
			gen:  &fakeGenerator{reply: "1. Clean White\n- Soft Linen\n\n* Slate Stone\n4) Warm Oak\n3D Studio Gradient\nSixth Option"},
			want: []string{"Clean White", "Soft Linen", "Slate Stone", "Warm Oak", "3D Studio Gradient"},
		},
		{
			name: "json array",
			gen:  &fakeGenerator{reply: "```json\n[\"Velvet Navy\", \"Terrazzo\"]\n```"},
			want: []string{"Velvet Navy", "Terrazzo"},
		},
		{
			name: "backend error",
			gen:  &fakeGenerator{err: errors.New("unavailable")},
			want: FallbackBackgrounds,
		},
		{
			name: "blank answer",
			gen:  &fakeGenerator{reply: "\n  \n"},
			want: FallbackBackgrounds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewCopywriter(tt.gen, "m").SuggestBackgrounds(context.Background(), "jewelry")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSuggestBackgroundsFallbackIsCopy(t *testing.T) {
	got := NewCopywriter(&fakeGenerator{err: errors.New("x")}, "m").SuggestBackgrounds(context.Background(), "mug")
	got[0] = "changed"
	if FallbackBackgrounds[0] != "Clean White" {
		t.Error("fallback list was mutated through the returned slice")
	}
}

func TestNewCopywriterDefaultModel(t *testing.T) {
	t.Setenv("GEMINI_TEXT_MODEL", "")
	if cw := NewCopywriter(&fakeGenerator{}, ""); cw.model != DefaultTextModel {
		t.Errorf("model = %q, want %q", cw.model, DefaultTextModel)
	}
	t.Setenv("GEMINI_TEXT_MODEL", "custom")
	if cw := NewCopywriter(&fakeGenerator{}, ""); cw.model != "custom" {
		t.Errorf("model = %q, want custom", cw.model)
	}
}
