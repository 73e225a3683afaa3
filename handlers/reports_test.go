package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"labreports/services"
	"labreports/testhelpers"
)

var testOpts = services.NormalizeOptions{NABLLogo: "nabl.png", QAILogo: "qai.png"}

func TestHandleReportList_WithReports(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	testhelpers.CreateTestReport(t, app, "draft", testhelpers.MinimalPayload("KTRC/24/0001"))
	testhelpers.CreateTestReport(t, app, "review", testhelpers.MinimalPayload("KTRC/24/0002"))

	req := httptest.NewRequest(http.MethodGet, "/reports", nil)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)
	if err := HandleReportList(app)(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	testhelpers.AssertHTMLContains(t, rec.Body.String(),
		"<!doctype html>", "KTRC/24/0001", "KTRC/24/0002", "Test Customer", "/export/WoLH_2Sign")
}

func TestHandleReportList_Empty(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/reports", nil)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)
	if err := HandleReportList(app)(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	testhelpers.AssertHTMLContains(t, rec.Body.String(), "No reports yet.")
}

func TestHandleReportList_HTMXPartial(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	testhelpers.CreateTestReport(t, app, "draft", testhelpers.MinimalPayload("KTRC/24/0003"))

	req := httptest.NewRequest(http.MethodGet, "/reports", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)
	if err := HandleReportList(app)(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<!doctype html>") {
		t.Error("HTMX request should get content without the page shell")
	}
	testhelpers.AssertHTMLContains(t, body, "KTRC/24/0003")
}

func TestHandleReportView(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	payload := testhelpers.MinimalPayload("KTRC/24/0004")
	payload["hod_remark"] = "Tested as received."
	report := testhelpers.CreateTestReport(t, app, "draft", payload)

	req := httptest.NewRequest(http.MethodGet, "/reports/"+report.Id, nil)
	req.SetPathValue("id", report.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)
	if err := HandleReportView(app, testOpts)(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	testhelpers.AssertHTMLContains(t, rec.Body.String(),
		"Test Report KTRC/24/0004",
		`<td class="result-pass">7.1</td>`,
		"Tested as received.",
		"Test Signer, Authorized Signatory (unsigned)",
	)
}

func TestHandleReportView_NotFound(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/reports/missing", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)
	if err := HandleReportView(app, testOpts)(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleReportImport(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	body := `{"data":{"lrn":"KTRC/24/0100","customer":{"name":"Imported Co"},"report_status":{"code":9}}}`
	req := httptest.NewRequest(http.MethodPost, "/reports?stage=review", strings.NewReader(body))
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)
	if err := HandleReportImport(app)(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	saved, err := app.FindRecordById("lab_reports", resp["id"])
	if err != nil {
		t.Fatalf("imported report not found: %v", err)
	}
	if got := saved.GetString("lrn"); got != "KTRC/24/0100" {
		t.Errorf("lrn = %q", got)
	}
	if got := saved.GetString("customer_name"); got != "Imported Co" {
		t.Errorf("customer_name = %q", got)
	}
	if got := saved.GetString("stage"); got != "review" {
		t.Errorf("stage = %q", got)
	}
	if got := saved.GetInt("status_code"); got != 9 {
		t.Errorf("status_code = %d", got)
	}
}

func TestHandleReportImport_HTMXRedirect(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader(`{"lrn":"KTRC/24/0101"}`))
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)
	if err := HandleReportImport(app)(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got := rec.Header().Get("HX-Redirect"); !strings.HasPrefix(got, "/reports/") {
		t.Errorf("expected HX-Redirect to the report, got %q", got)
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), "Report imported") {
		t.Error("expected success toast")
	}
}

func TestHandleReportImport_BadPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"lrn":`},
		{"array", `[1,2,3]`},
		{"string", `"report"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testhelpers.NewTestApp(t)

			req := httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			e := newTestRequestEvent(app, req, rec)
			if err := HandleReportImport(app)(e); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			if rec.Header().Get("HX-Reswap") != "none" {
				t.Error("expected HX-Reswap: none on error")
			}
		})
	}
}
