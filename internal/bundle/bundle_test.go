package bundle

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/fpang/product-craft/internal/editor"
)

func testVersion(t *testing.T, shade uint8) editor.ImageVersion {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 5, 3))
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	img.Set(0, 0, color.Gray{Y: shade + 1})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	v, err := editor.NewImageVersion(buf.Bytes(), "image/png")
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestWriteHistory(t *testing.T) {
	versions := []editor.ImageVersion{testVersion(t, 10), testVersion(t, 80), testVersion(t, 200)}
	snap := editor.Snapshot{ID: "sess-1", ProjectID: "proj-1", ProjectName: "Mug"}

	var buf bytes.Buffer
	manifest, err := WriteHistory(&buf, snap, versions, 1)
	if err != nil {
		t.Fatalf("WriteHistory: %v", err)
	}
	if len(manifest.Versions) != 3 || !manifest.Versions[1].Current || manifest.Versions[0].Current {
		t.Fatalf("manifest versions = %+v", manifest.Versions)
	}

	zr, err := OpenZip(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("OpenZip: %v", err)
	}
	if len(zr.File) != 4 {
		t.Fatalf("archive has %d entries, want 3 images and a manifest", len(zr.File))
	}

	for i, f := range zr.File[:3] {
		if f.Method != MethodZstd {
			t.Errorf("%s method = %d, want zstd", f.Name, f.Method)
		}
		if f.Name != manifest.Versions[i].File {
			t.Errorf("entry %d = %q, want %q", i, f.Name, manifest.Versions[i].File)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		if !bytes.Equal(data, versions[i].Bytes()) {
			t.Errorf("%s does not round-trip", f.Name)
		}
	}

	mf := zr.File[3]
	if mf.Name != ManifestName {
		t.Fatalf("last entry = %q", mf.Name)
	}
	rc, err := mf.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	var decoded Manifest
	if err := json.NewDecoder(rc).Decode(&decoded); err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if decoded.SessionID != "sess-1" || decoded.Cursor != 1 || decoded.Versions[2].Width != 5 {
		t.Errorf("decoded manifest = %+v", decoded)
	}
}

func TestWriteHistoryEmpty(t *testing.T) {
	_, err := WriteHistory(io.Discard, editor.Snapshot{}, nil, -1)
	if kind, ok := editor.KindOf(err); !ok || kind != editor.KindNoImageLoaded {
		t.Errorf("err = %v, want NoImageLoaded", err)
	}
}
