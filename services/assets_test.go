package services

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"labreports/config"
)

func TestAssetResolver_File(t *testing.T) {
	dir := t.TempDir()
	png := tinyPNG(t)
	if err := os.WriteFile(filepath.Join(dir, "logo.png"), png, 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewAssetResolver(config.AssetsConfig{Root: dir})
	a, err := r.Load(context.Background(), "logo.png")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if a.MIME != "image/png" || len(a.Data) != len(png) {
		t.Errorf("Load() = %s (%d bytes)", a.MIME, len(a.Data))
	}
}

func TestAssetResolver_FileCannotEscapeRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "assets")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(parent, "secret.png"), tinyPNG(t), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewAssetResolver(config.AssetsConfig{Root: root})
	if _, err := r.Load(context.Background(), "../secret.png"); err == nil {
		t.Error("expected traversal outside root to fail")
	}
}

func TestAssetResolver_DataURI(t *testing.T) {
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(tinyPNG(t))

	a, err := NewAssetResolver(config.AssetsConfig{}).Load(context.Background(), ref)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if a.MIME != "image/png" {
		t.Errorf("MIME = %q", a.MIME)
	}
}

func TestAssetResolver_HTTP(t *testing.T) {
	png := tinyPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sig.png":
			w.Write(png)
		case "/page.html":
			w.Write([]byte("<html><body>not an image</body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := NewAssetResolver(config.AssetsConfig{
		HTTPTimeout:          2,
		AllowedHosts:         []string{"127.0.0.1"},
		AllowPrivateNetworks: true,
	})

	if _, err := r.Load(context.Background(), srv.URL+"/sig.png"); err != nil {
		t.Errorf("Load(sig.png) error = %v", err)
	}
	if _, err := r.Load(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Error("expected error for 404")
	}
	if _, err := r.Load(context.Background(), srv.URL+"/page.html"); !errors.Is(err, ErrUnsupportedAsset) {
		t.Errorf("expected ErrUnsupportedAsset for html, got %v", err)
	}
}

func TestAssetResolver_RejectsRemoteHosts(t *testing.T) {
	png := tinyPNG(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(png)
	}))
	defer srv.Close()

	tests := []struct {
		name string
		cfg  config.AssetsConfig
		ref  string
	}{
		{"remote refs disabled by default", config.AssetsConfig{}, srv.URL + "/sig.png"},
		{"host not on allowlist", config.AssetsConfig{AllowedHosts: []string{"cdn.example.com"}}, srv.URL + "/sig.png"},
		{"allowlisted loopback", config.AssetsConfig{AllowedHosts: []string{"127.0.0.1"}}, srv.URL + "/sig.png"},
		{"metadata endpoint", config.AssetsConfig{AllowedHosts: []string{"169.254.169.254"}}, "http://169.254.169.254/latest/meta-data/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.HTTPTimeout = 2
			_, err := NewAssetResolver(tt.cfg).Load(context.Background(), tt.ref)
			if !errors.Is(err, ErrAssetHostNotAllowed) {
				t.Errorf("Load(%q) error = %v, want ErrAssetHostNotAllowed", tt.ref, err)
			}
		})
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("server received %d requests, want none", n)
	}
}

func TestAssetResolver_RedirectOffAllowlist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://169.254.169.254/latest/meta-data/", http.StatusFound)
	}))
	defer srv.Close()

	r := NewAssetResolver(config.AssetsConfig{
		HTTPTimeout:          2,
		AllowedHosts:         []string{"127.0.0.1"},
		AllowPrivateNetworks: true,
	})
	if _, err := r.Load(context.Background(), srv.URL+"/sig.png"); !errors.Is(err, ErrAssetHostNotAllowed) {
		t.Errorf("expected redirect to be refused, got %v", err)
	}
}

func TestAssetResolver_DefaultLogos(t *testing.T) {
	r := NewAssetResolver(config.AssetsConfig{Root: t.TempDir()})
	for _, ref := range []string{"nabl.png", "qai.png", "/nabl.png"} {
		a, err := r.Load(context.Background(), ref)
		if err != nil {
			t.Errorf("Load(%q) error = %v", ref, err)
			continue
		}
		if a.MIME != "image/png" {
			t.Errorf("Load(%q) MIME = %q", ref, a.MIME)
		}
	}
}

func TestAssetResolver_RootOverridesDefaultLogo(t *testing.T) {
	dir := t.TempDir()
	custom := tinyPNG(t)
	if err := os.WriteFile(filepath.Join(dir, "nabl.png"), custom, 0o644); err != nil {
		t.Fatal(err)
	}

	a, err := NewAssetResolver(config.AssetsConfig{Root: dir}).Load(context.Background(), "nabl.png")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(a.Data) != len(custom) {
		t.Errorf("expected the logo below root, got %d bytes", len(a.Data))
	}
}

func TestAssetResolver_Errors(t *testing.T) {
	r := NewAssetResolver(config.AssetsConfig{Root: t.TempDir()})
	for _, ref := range []string{"", "missing.png", "data:image/png;base64,%%%", "data:nocomma"} {
		if _, err := r.Load(context.Background(), ref); err == nil {
			t.Errorf("Load(%q) expected error", ref)
		}
	}
}

func TestShortRef(t *testing.T) {
	if got := shortRef("data:image/png;base64,AAAA"); got != "data:image/png;base64" {
		t.Errorf("shortRef() = %q", got)
	}
	if got := shortRef("logo.png"); got != "logo.png" {
		t.Errorf("shortRef() = %q", got)
	}
}
