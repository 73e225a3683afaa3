package handlers

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/xuri/excelize/v2"

	"labreports/collections"
	"labreports/config"
	"labreports/services"
	"labreports/testhelpers"
)

func newTestExporter(t *testing.T, assets services.AssetLoader) *services.Exporter {
	t.Helper()
	logger, _ := test.NewNullLogger()
	cfg := config.Default()
	cfg.Export.TempDir = t.TempDir()
	if assets == nil {
		assets = services.NewAssetResolver(config.AssetsConfig{Root: t.TempDir()})
	}
	return services.NewExporter(cfg, assets, logger)
}

func exportRequest(app *pocketbase.PocketBase, id, variant string) (*httptest.ResponseRecorder, func(h func(*core.RequestEvent) error) error) {
	req := httptest.NewRequest(http.MethodGet, "/reports/"+id+"/export/"+variant, nil)
	req.SetPathValue("id", id)
	req.SetPathValue("variant", variant)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)
	return rec, func(h func(*core.RequestEvent) error) error { return h(e) }
}

func TestHandleReportExportPDF_Variants(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	report := testhelpers.CreateTestReport(t, app, "draft", testhelpers.MinimalPayload("KTRC/24/0200"))
	handler := HandleReportExportPDF(app, newTestExporter(t, nil), testOpts)

	tests := []struct {
		variant  string
		filename string
	}{
		{"WithLH", "Test_Report_WithLH_KTRC-24-0200.pdf"},
		{"WoLH", "Test_Report_WoLH_KTRC-24-0200.pdf"},
		{"WoLH_2Sign", "Test_Report_WoLH_2Sign_KTRC-24-0200.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			rec, run := exportRequest(app, report.Id, tt.variant)
			if err := run(handler); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
				t.Errorf("Content-Type = %q", ct)
			}
			if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, tt.filename) {
				t.Errorf("Content-Disposition = %q, want filename %q", cd, tt.filename)
			}
			if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
				t.Error("body is not a PDF")
			}
		})
	}

	logs := testhelpers.FindExportLogs(t, app, report.Id)
	if len(logs) != len(tests) {
		t.Fatalf("expected %d export logs, got %d", len(tests), len(logs))
	}
	for _, l := range logs {
		if l.GetString("outcome") != collections.OutcomeSuccess {
			t.Errorf("outcome = %q, want success", l.GetString("outcome"))
		}
		if l.GetString("export_id") == "" {
			t.Error("expected export_id to be recorded")
		}
		if l.GetInt("size") <= 0 {
			t.Error("expected size to be recorded")
		}
	}
}

func TestHandleReportExportPDF_SeededReportsWithDefaultConfig(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	if err := collections.Seed(app); err != nil {
		t.Fatalf("Seed() error: %v", err)
	}
	records, err := app.FindAllRecords("lab_reports")
	if err != nil || len(records) == 0 {
		t.Fatalf("expected seeded reports, got %d (%v)", len(records), err)
	}

	cfg := config.Default()
	opts := services.NormalizeOptions{NABLLogo: cfg.Assets.NABLLogo, QAILogo: cfg.Assets.QAILogo}
	handler := HandleReportExportPDF(app, newTestExporter(t, nil), opts)

	for _, report := range records {
		for _, v := range services.Variants {
			t.Run(report.GetString("lrn")+"/"+v.Suffix(), func(t *testing.T) {
				rec, run := exportRequest(app, report.Id, v.Suffix())
				if err := run(handler); err != nil {
					t.Fatalf("handler error: %v", err)
				}
				if rec.Code != http.StatusOK {
					t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
				}
				if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
					t.Error("body is not a PDF")
				}
			})
		}
	}
}

func TestHandleReportExportPDF_UnknownVariant(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	report := testhelpers.CreateTestReport(t, app, "draft", testhelpers.MinimalPayload("KTRC/24/0201"))

	rec, run := exportRequest(app, report.Id, "Fancy")
	if err := run(HandleReportExportPDF(app, newTestExporter(t, nil), testOpts)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleReportExportPDF_NotFound(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	rec, run := exportRequest(app, "missing", "WoLH")
	if err := run(HandleReportExportPDF(app, newTestExporter(t, nil), testOpts)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), "Report not found") {
		t.Error("expected error toast")
	}
}

func TestHandleReportExportPDF_MissingAssetFails(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	payload := testhelpers.MinimalPayload("KTRC/24/0202")
	payload["nabl"] = map[string]any{"status": 1, "logo": "does-not-exist.png"}
	report := testhelpers.CreateTestReport(t, app, "draft", payload)

	rec, run := exportRequest(app, report.Id, "WoLH")
	if err := run(HandleReportExportPDF(app, newTestExporter(t, nil), testOpts)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "Failed to generate report PDF" {
		t.Errorf("body = %q, want a single error message", got)
	}
	if rec.Header().Get("Content-Disposition") != "" {
		t.Error("failed export must not start a download")
	}

	logs := testhelpers.FindExportLogs(t, app, report.Id)
	if len(logs) != 1 {
		t.Fatalf("expected 1 export log, got %d", len(logs))
	}
	if logs[0].GetString("outcome") != collections.OutcomeFailed {
		t.Errorf("outcome = %q, want failed", logs[0].GetString("outcome"))
	}
	if !strings.Contains(logs[0].GetString("error"), "does-not-exist.png") {
		t.Errorf("error = %q, want the failing reference", logs[0].GetString("error"))
	}
}

// brokenPipe accepts headers but fails every body write.
type brokenPipe struct {
	*httptest.ResponseRecorder
	headerWrites int
}

func (b *brokenPipe) WriteHeader(code int) {
	b.headerWrites++
	b.ResponseRecorder.WriteHeader(code)
}

func (b *brokenPipe) Write([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func TestHandleReportExportPDF_FailureAfterStreamStarted(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	report := testhelpers.CreateTestReport(t, app, "draft", testhelpers.MinimalPayload("KTRC/24/0205"))

	req := httptest.NewRequest(http.MethodGet, "/reports/"+report.Id+"/export/WoLH", nil)
	req.SetPathValue("id", report.Id)
	req.SetPathValue("variant", "WoLH")
	w := &brokenPipe{ResponseRecorder: httptest.NewRecorder()}
	e := newTestRequestEvent(app, req, w.ResponseRecorder)
	e.Response = w

	if err := HandleReportExportPDF(app, newTestExporter(t, nil), testOpts)(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if w.headerWrites != 1 {
		t.Errorf("status written %d times, want once", w.headerWrites)
	}
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want the original 200", w.Code)
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Error("no error toast should follow a started download")
	}

	logs := testhelpers.FindExportLogs(t, app, report.Id)
	if len(logs) != 1 || logs[0].GetString("outcome") != collections.OutcomeFailed {
		t.Fatalf("expected one failed export log, got %d", len(logs))
	}
}

// blockingAssets holds every load until release is closed.
type blockingAssets struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	png     []byte
}

func (b *blockingAssets) Load(ctx context.Context, _ string) (services.Asset, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
	case <-ctx.Done():
		return services.Asset{}, ctx.Err()
	}
	return services.Asset{Data: b.png, MIME: "image/png"}, nil
}

func onePixelPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestHandleReportExportPDF_ConcurrentSameVariant(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	payload := testhelpers.MinimalPayload("KTRC/24/0203")
	payload["nabl"] = 1
	report := testhelpers.CreateTestReport(t, app, "draft", payload)

	assets := &blockingAssets{
		started: make(chan struct{}),
		release: make(chan struct{}),
		png:     onePixelPNG(t),
	}
	handler := HandleReportExportPDF(app, newTestExporter(t, assets), testOpts)

	firstRec, runFirst := exportRequest(app, report.Id, "WoLH")
	done := make(chan error, 1)
	go func() { done <- runFirst(handler) }()
	<-assets.started

	busyRec, runBusy := exportRequest(app, report.Id, "WoLH")
	if err := runBusy(handler); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if busyRec.Code != http.StatusConflict {
		t.Errorf("expected 409 while the first export runs, got %d", busyRec.Code)
	}

	close(assets.release)
	if err := <-done; err != nil {
		t.Fatalf("first export error: %v", err)
	}
	if firstRec.Code != http.StatusOK {
		t.Errorf("first export: expected 200, got %d", firstRec.Code)
	}

	outcomes := map[string]int{}
	for _, l := range testhelpers.FindExportLogs(t, app, report.Id) {
		outcomes[l.GetString("outcome")]++
	}
	if outcomes[collections.OutcomeBusy] != 1 || outcomes[collections.OutcomeSuccess] != 1 {
		t.Errorf("outcomes = %v, want one busy and one success", outcomes)
	}
}

func TestHandleReportExportExcel(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	report := testhelpers.CreateTestReport(t, app, "draft", testhelpers.MinimalPayload("KTRC/24/0204"))

	rec, run := exportRequest(app, report.Id, "xlsx")
	if err := run(HandleReportExportExcel(app, testOpts)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "Test_Results_KTRC-24-0204.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("response is not a workbook: %v", err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue("Results", "B6"); v != "pH" {
		t.Errorf("B6 = %q, want pH", v)
	}

	logs := testhelpers.FindExportLogs(t, app, report.Id)
	if len(logs) != 1 || logs[0].GetString("variant") != "XLSX" {
		t.Errorf("expected one XLSX export log, got %d", len(logs))
	}
}
