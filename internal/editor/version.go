package editor

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"
)

// ImageVersion is one immutable snapshot of the edited image.
// The zero value is not a valid version.
type ImageVersion struct {
	data     []byte
	mimeType string
	width    int
	height   int
}

// NewImageVersion validates and wraps an image payload. Only the image header
// is read; pixels are never decoded. When mimeType is empty or not an image
// type, it is derived from the detected format.
func NewImageVersion(data []byte, mimeType string) (ImageVersion, error) {
	if len(data) == 0 {
		return ImageVersion{}, NewError(KindInvalidVersion, "", "image payload is empty", nil)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageVersion{}, NewError(KindInvalidVersion, "", "image payload is not a decodable image", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageVersion{}, NewError(KindInvalidVersion, "", fmt.Sprintf("image has invalid dimensions %dx%d", cfg.Width, cfg.Height), nil)
	}

	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/" + format
	}

	owned := make([]byte, len(data))
	copy(owned, data)

	return ImageVersion{
		data:     owned,
		mimeType: mimeType,
		width:    cfg.Width,
		height:   cfg.Height,
	}, nil
}

// ParseDataURL decodes a "data:<mime>;base64,<payload>" string into a version.
func ParseDataURL(dataURL string) (ImageVersion, error) {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") {
		return ImageVersion{}, NewError(KindInvalidVersion, "", "invalid data URL", nil)
	}
	meta := strings.TrimPrefix(header, "data:")
	mimeType, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return ImageVersion{}, NewError(KindInvalidVersion, "", "data URL is not base64 encoded", nil)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return ImageVersion{}, NewError(KindInvalidVersion, "", "data URL payload is not valid base64", err)
	}
	return NewImageVersion(data, mimeType)
}

// IsZero reports whether v is the zero (absent) version.
func (v ImageVersion) IsZero() bool {
	return len(v.data) == 0
}

// Bytes returns a copy of the image payload.
func (v ImageVersion) Bytes() []byte {
	out := make([]byte, len(v.data))
	copy(out, v.data)
	return out
}

// Size returns the payload length in bytes.
func (v ImageVersion) Size() int {
	return len(v.data)
}

// MIMEType returns the content type tag.
func (v ImageVersion) MIMEType() string {
	return v.mimeType
}

// Resolution returns the natural pixel size read from the image header.
func (v ImageVersion) Resolution() Resolution {
	return Resolution{Width: v.width, Height: v.height}
}

// DataURL renders the version as a base64 data URL.
func (v ImageVersion) DataURL() string {
	return "data:" + v.mimeType + ";base64," + base64.StdEncoding.EncodeToString(v.data)
}

// Equal reports whether two versions carry the same payload and type.
func (v ImageVersion) Equal(other ImageVersion) bool {
	return v.mimeType == other.mimeType && bytes.Equal(v.data, other.data)
}

// Extension returns a file extension for the version's MIME type, with the dot.
func (v ImageVersion) Extension() string {
	switch v.mimeType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ".img"
}
