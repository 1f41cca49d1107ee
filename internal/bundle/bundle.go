// Package bundle exports a session's version history as a ZIP archive.
//
// Entries are compressed with Zstandard (ZIP method 93). Most unzip tools
// older than 2020 cannot read method 93; OpenZip with this package or 7-Zip can.
package bundle

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/fpang/product-craft/internal/editor"
)

// MethodZstd is the ZIP compression method ID for Zstandard (APPNOTE 6.3.7).
const MethodZstd uint16 = 93

// ManifestName is the manifest entry written after the images.
const ManifestName = "manifest.json"

// Manifest describes the exported history.
type Manifest struct {
	SessionID   string          `json:"sessionId"`
	ProjectID   string          `json:"projectId"`
	ProjectName string          `json:"projectName"`
	Cursor      int             `json:"cursor"`
	ExportedAt  time.Time       `json:"exportedAt"`
	Versions    []ManifestEntry `json:"versions"`
}

// ManifestEntry describes one exported version.
type ManifestEntry struct {
	Index    int    `json:"index"`
	File     string `json:"file"`
	MIMEType string `json:"mimeType"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Bytes    int    `json:"bytes"`
	Current  bool   `json:"current"`
}

func newZstdWriter(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(12)))
}

func newZstdReader(r io.Reader) io.ReadCloser {
	d, err := zstd.NewReader(r)
	if err != nil {
		return io.NopCloser(errReader{err})
	}
	return d.IOReadCloser()
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

// WriteHistory writes every version of snap's session, oldest first, followed
// by the manifest. It returns the manifest that was written.
func WriteHistory(w io.Writer, snap editor.Snapshot, versions []editor.ImageVersion, cursor int) (*Manifest, error) {
	if len(versions) == 0 {
		return nil, editor.NewError(editor.KindNoImageLoaded, "", "there is no history to export", nil)
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(MethodZstd, newZstdWriter)

	now := time.Now().UTC()
	manifest := &Manifest{
		SessionID:   snap.ID,
		ProjectID:   snap.ProjectID,
		ProjectName: snap.ProjectName,
		Cursor:      cursor,
		ExportedAt:  now,
		Versions:    make([]ManifestEntry, 0, len(versions)),
	}

	for i, v := range versions {
		name := fmt.Sprintf("v%03d%s", i, v.Extension())
		header := &zip.FileHeader{
			Name:   name,
			Method: MethodZstd,
		}
		header.SetModTime(now)

		entry, err := zw.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("create ZIP entry for %s: %w", name, err)
		}
		if _, err := entry.Write(v.Bytes()); err != nil {
			return nil, fmt.Errorf("write ZIP entry for %s: %w", name, err)
		}

		res := v.Resolution()
		manifest.Versions = append(manifest.Versions, ManifestEntry{
			Index:    i,
			File:     name,
			MIMEType: v.MIMEType(),
			Width:    res.Width,
			Height:   res.Height,
			Bytes:    v.Size(),
			Current:  i == cursor,
		})
	}

	// The manifest is small JSON, Deflate is fine.
	mw, err := zw.Create(ManifestName)
	if err != nil {
		return nil, fmt.Errorf("create manifest entry: %w", err)
	}
	enc := json.NewEncoder(mw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize ZIP: %w", err)
	}

	log.Debug().
		Str("session", snap.ID).
		Int("versions", len(versions)).
		Msg("History exported")
	return manifest, nil
}

// OpenZip opens an exported archive with the Zstandard decompressor registered.
func OpenZip(r io.ReaderAt, size int64) (*zip.Reader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	zr.RegisterDecompressor(MethodZstd, newZstdReader)
	return zr, nil
}
