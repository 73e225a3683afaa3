package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"labreports/config"
)

// ErrExportInProgress is returned when the same report and variant is
// already being exported.
var ErrExportInProgress = errors.New("export already in progress")

// Saver receives a finished document. The reader is only valid during the call.
type Saver interface {
	Save(filename string, r io.Reader) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(filename string, r io.Reader) error

func (f SaverFunc) Save(filename string, r io.Reader) error {
	return f(filename, r)
}

// DirSaver writes documents into a directory.
type DirSaver struct {
	Dir string
}

func (d DirSaver) Save(filename string, r io.Reader) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := os.Create(filepath.Join(d.Dir, filepath.Base(filename)))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return f.Close()
}

// ExportRequest names what to export. Key identifies the report for the
// in-flight guard, usually its record id.
type ExportRequest struct {
	Key     string
	Model   ReportRenderModel
	Variant Variant
}

// ExportResult describes a delivered document.
type ExportResult struct {
	ID       string
	Filename string
	Size     int64
}

type exportKey struct {
	key     string
	variant Variant
}

// Exporter renders certificates and hands them to a Saver. Generated
// documents are never cached; each call renders from the model it is given.
type Exporter struct {
	Assets     AssetLoader
	Letterhead config.Letterhead
	// TempDir holds the transient file. Empty means os.TempDir().
	TempDir string
	Logger  *logrus.Logger

	mu       sync.Mutex
	inFlight map[exportKey]struct{}
}

// NewExporter builds an exporter from configuration.
func NewExporter(cfg *config.Config, assets AssetLoader, logger *logrus.Logger) *Exporter {
	return &Exporter{
		Assets:     assets,
		Letterhead: cfg.Letterhead,
		TempDir:    cfg.Export.TempDir,
		Logger:     logger,
	}
}

// ExportFilename is Test_Report_<suffix>_<identifier>.pdf.
func ExportFilename(v Variant, model ReportRenderModel) string {
	return fmt.Sprintf("Test_Report_%s_%s.pdf", v.Suffix(), sanitizeFilename(model.ReportIdentifier()))
}

// ExcelFilename is Test_Results_<identifier>.xlsx.
func ExcelFilename(model ReportRenderModel) string {
	return fmt.Sprintf("Test_Results_%s.xlsx", sanitizeFilename(model.ReportIdentifier()))
}

// Export renders one variant and delivers it through saver. The transient
// file is removed whether or not delivery succeeds.
func (x *Exporter) Export(ctx context.Context, req ExportRequest, saver Saver) (ExportResult, error) {
	release, err := x.acquire(req.Key, req.Variant)
	if err != nil {
		return ExportResult{}, err
	}
	defer release()

	res := ExportResult{
		ID:       uuid.NewString(),
		Filename: ExportFilename(req.Variant, req.Model),
	}
	log := x.logger().WithFields(logrus.Fields{
		"export_id": res.ID,
		"key":       req.Key,
		"variant":   req.Variant.Suffix(),
		"filename":  res.Filename,
	})

	tree := BuildDocument(req.Model, req.Variant, x.Letterhead)
	pdf, err := RenderPDF(ctx, tree, x.Assets)
	if err != nil {
		log.WithError(err).Error("report render failed")
		return res, fmt.Errorf("failed to render %s: %w", res.Filename, err)
	}

	res.Size, err = x.handOff(res.Filename, pdf, saver)
	if err != nil {
		log.WithError(err).Error("report delivery failed")
		return res, err
	}

	log.WithField("size", res.Size).Info("report exported")
	return res, nil
}

func (x *Exporter) handOff(filename string, pdf []byte, saver Saver) (int64, error) {
	f, err := os.CreateTemp(x.TempDir, "labreport-*.pdf")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(f.Name())
	}()

	n, err := f.Write(pdf)
	if err != nil {
		return 0, fmt.Errorf("failed to write temp file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to rewind temp file: %w", err)
	}

	if err := saver.Save(filename, f); err != nil {
		return 0, fmt.Errorf("failed to save %s: %w", filename, err)
	}
	return int64(n), nil
}

func (x *Exporter) acquire(key string, v Variant) (func(), error) {
	k := exportKey{key: key, variant: v}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.inFlight == nil {
		x.inFlight = map[exportKey]struct{}{}
	}
	if _, busy := x.inFlight[k]; busy {
		return nil, ErrExportInProgress
	}
	x.inFlight[k] = struct{}{}

	return func() {
		x.mu.Lock()
		delete(x.inFlight, k)
		x.mu.Unlock()
	}, nil
}

func (x *Exporter) logger() *logrus.Logger {
	if x.Logger != nil {
		return x.Logger
	}
	return config.Logger()
}
