package editor

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
)

// pngBytes encodes a w x h PNG filled with a shade, so different shades give different payloads.
func pngBytes(t *testing.T, w, h int, shade uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func mustVersion(t *testing.T, shade uint8) ImageVersion {
	t.Helper()
	v, err := NewImageVersion(pngBytes(t, 4, 3, shade), "image/png")
	if err != nil {
		t.Fatalf("NewImageVersion: %v", err)
	}
	return v
}

// fakeBackend records calls and answers from a script.
type fakeBackend struct {
	mu       sync.Mutex
	calls    atomic.Int32
	requests []BackendRequest

	result BackendResult
	err    error

	// When set, Edit signals started and waits for release before answering.
	started chan struct{}
	release chan struct{}
}

func (f *fakeBackend) Edit(ctx context.Context, req BackendRequest) (BackendResult, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return BackendResult{}, ctx.Err()
		}
	}
	return f.result, f.err
}

func (f *fakeBackend) lastRequest(t *testing.T) BackendRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("backend was never called")
	}
	return f.requests[len(f.requests)-1]
}

func succeedWith(t *testing.T, shade uint8) *fakeBackend {
	return &fakeBackend{result: BackendResult{Data: pngBytes(t, 4, 3, shade), MIMEType: "image/png"}}
}
