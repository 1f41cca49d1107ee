package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/fpang/product-craft/internal/chat"
	"github.com/fpang/product-craft/internal/editor"
)

func pngBytes(t *testing.T, w, h int, shade uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// stubBackend answers every edit with result or err.
type stubBackend struct {
	mu       sync.Mutex
	requests []editor.BackendRequest
	result   editor.BackendResult
	err      error
}

func (b *stubBackend) Edit(_ context.Context, req editor.BackendRequest) (editor.BackendResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	return b.result, b.err
}

func (b *stubBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

type stubCopywriter struct {
	text string
	err  error
	last chat.WriteupRequest
}

func (c *stubCopywriter) GenerateSocialWriteup(_ context.Context, req chat.WriteupRequest) (string, error) {
	c.last = req
	return c.text, c.err
}

func (c *stubCopywriter) AnalyzeProduct(_ context.Context, description string) (string, error) {
	return c.text, c.err
}

func (c *stubCopywriter) SuggestEnhancements(_ context.Context, productType string) (string, error) {
	return c.text, c.err
}

func (c *stubCopywriter) SuggestBackgrounds(_ context.Context, productType string) []string {
	return []string{"Clean White", "Slate"}
}

// do sends a request through the full middleware stack and decodes a JSON answer into out.
func do(t *testing.T, h http.Handler, method, path string, body interface{}, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if _, raw := body.([]byte); raw {
		req.Header.Set("Content-Type", "image/png")
	} else if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil && rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec
}
