package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	"labreports/assets"
	"labreports/config"
)

// maxAssetBytes caps a single logo or signature download.
const maxAssetBytes = 10 << 20

// maxAssetRedirects bounds redirects followed for one remote reference.
const maxAssetRedirects = 5

var (
	// ErrUnsupportedAsset is returned when a reference does not resolve to an image.
	ErrUnsupportedAsset = errors.New("asset is not a supported image")
	// ErrAssetHostNotAllowed is returned when a remote reference names a host
	// outside the allowlist or resolves to a private address.
	ErrAssetHostNotAllowed = errors.New("asset host is not allowed")
)

// Asset is a loaded image ready for the renderer.
type Asset struct {
	Data []byte
	MIME string
}

// AssetLoader resolves logo and signature references to image bytes.
type AssetLoader interface {
	Load(ctx context.Context, ref string) (Asset, error)
}

// AssetResolver loads data URIs, files below Root and http(s) URLs on
// AllowedHosts. Files missing below Root are looked up in Fallback.
type AssetResolver struct {
	Root         string
	Fallback     fs.FS
	AllowedHosts []string
	Client       *http.Client
}

// NewAssetResolver builds a resolver from the assets configuration. The
// client refuses to dial private addresses unless the config allows them.
func NewAssetResolver(cfg config.AssetsConfig) *AssetResolver {
	timeout := time.Duration(cfg.HTTPTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	r := &AssetResolver{
		Root:         cfg.Root,
		Fallback:     assets.Defaults,
		AllowedHosts: cfg.AllowedHosts,
	}

	dialer := &net.Dialer{Timeout: timeout}
	if !cfg.AllowPrivateNetworks {
		dialer.Control = rejectPrivateAddress
	}
	r.Client = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: timeout,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxAssetRedirects {
				return fmt.Errorf("stopped after %d redirects", maxAssetRedirects)
			}
			if !r.hostAllowed(req.URL.Hostname()) {
				return fmt.Errorf("%w: %s", ErrAssetHostNotAllowed, req.URL.Hostname())
			}
			return nil
		},
	}
	return r
}

// Load fetches ref and checks that it holds an image.
func (r *AssetResolver) Load(ctx context.Context, ref string) (Asset, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Asset{}, fmt.Errorf("empty asset reference")
	}

	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(ref, "data:"):
		data, err = decodeDataURI(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		data, err = r.fetch(ctx, ref)
	default:
		data, err = r.readFile(ref)
	}
	if err != nil {
		return Asset{}, err
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Asset{}, fmt.Errorf("%w: %s (%s)", ErrUnsupportedAsset, shortRef(ref), mt.String())
	}
	return Asset{Data: data, MIME: mt.String()}, nil
}

func (r *AssetResolver) fetch(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid asset url: %w", err)
	}
	if !r.hostAllowed(req.URL.Hostname()) {
		return nil, fmt.Errorf("%w: %s", ErrAssetHostNotAllowed, req.URL.Hostname())
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch asset %s: %w", shortRef(ref), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch asset %s: status %d", shortRef(ref), resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read asset %s: %w", shortRef(ref), err)
	}
	if len(data) > maxAssetBytes {
		return nil, fmt.Errorf("asset %s exceeds %d bytes", shortRef(ref), maxAssetBytes)
	}
	return data, nil
}

func (r *AssetResolver) hostAllowed(host string) bool {
	for _, h := range r.AllowedHosts {
		if strings.EqualFold(strings.TrimSpace(h), host) {
			return true
		}
	}
	return false
}

// rejectPrivateAddress runs before every dial, after name resolution.
func rejectPrivateAddress(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return fmt.Errorf("%w: %s", ErrAssetHostNotAllowed, host)
	}
	return nil
}

// readFile reads ref relative to Root. References cannot escape Root.
func (r *AssetResolver) readFile(ref string) ([]byte, error) {
	rel := path.Clean("/" + filepath.ToSlash(ref))
	data, err := os.ReadFile(filepath.Join(r.Root, filepath.FromSlash(rel)))
	if errors.Is(err, fs.ErrNotExist) && r.Fallback != nil {
		if fallback, ferr := fs.ReadFile(r.Fallback, strings.TrimPrefix(rel, "/")); ferr == nil {
			return fallback, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read asset %s: %w", ref, err)
	}
	return data, nil
}

func decodeDataURI(ref string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data uri")
	}
	if strings.HasSuffix(header, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("malformed data uri: %w", err)
		}
		return data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("malformed data uri: %w", err)
	}
	return []byte(data), nil
}

// shortRef keeps data URIs out of error messages and logs.
func shortRef(ref string) string {
	if strings.HasPrefix(ref, "data:") {
		head, _, _ := strings.Cut(ref, ",")
		return head
	}
	return ref
}

// asPNGOrJPEG returns the asset unchanged when the PDF engine can embed it,
// otherwise it is decoded and re-encoded as PNG.
func asPNGOrJPEG(a Asset) (data []byte, isPNG bool, err error) {
	switch a.MIME {
	case "image/png":
		return a.Data, true, nil
	case "image/jpeg":
		return a.Data, false, nil
	}

	img, err := imaging.Decode(bytes.NewReader(a.Data))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrUnsupportedAsset, a.MIME, err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, false, fmt.Errorf("failed to convert %s to png: %w", a.MIME, err)
	}
	return buf.Bytes(), true, nil
}
