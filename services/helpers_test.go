package services

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
)

// bytesReader wraps a byte slice in a bytes.Reader for use with excelize.OpenReader.
func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return data
}

// sampleModel decodes and normalizes the draft fixture.
func sampleModel(t *testing.T) ReportRenderModel {
	t.Helper()
	raw, err := DecodeReport(loadFixture(t, "report_draft.json"), SourceDraftView)
	if err != nil {
		t.Fatalf("DecodeReport() error = %v", err)
	}
	return Normalize(raw, NormalizeOptions{NABLLogo: "nabl.png", QAILogo: "qai.png"})
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(8, 8, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// stubAssets serves every reference with the same image unless it is listed in missing.
type stubAssets struct {
	image   []byte
	missing map[string]bool

	mu    sync.Mutex
	loads []string
}

func newStubAssets(t *testing.T) *stubAssets {
	return &stubAssets{image: tinyPNG(t), missing: map[string]bool{}}
}

func (s *stubAssets) Load(_ context.Context, ref string) (Asset, error) {
	s.mu.Lock()
	s.loads = append(s.loads, ref)
	s.mu.Unlock()
	if s.missing[ref] {
		return Asset{}, fmt.Errorf("failed to read asset %s: not found", ref)
	}
	return Asset{Data: s.image, MIME: "image/png"}, nil
}
