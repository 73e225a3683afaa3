// Package testhelpers provides utilities for testing PocketBase-based applications.
package testhelpers

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"labreports/collections"
)

// NewTestApp creates a PocketBase instance backed by a temporary directory.
// It bootstraps the app and runs collections.Setup to create all tables.
// The temporary directory is cleaned up automatically when the test finishes.
func NewTestApp(t *testing.T) *pocketbase.PocketBase {
	t.Helper()

	tmpDir := t.TempDir()
	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: tmpDir,
	})

	if err := app.Bootstrap(); err != nil {
		t.Fatalf("failed to bootstrap test app: %v", err)
	}

	collections.Setup(app)

	return app
}

// CreateTestReport stores payload as a lab report of the given stage.
func CreateTestReport(t *testing.T, app *pocketbase.PocketBase, stage string, payload map[string]any) *core.Record {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal test payload: %v", err)
	}

	record, err := collections.SaveReport(app, stage, data)
	if err != nil {
		t.Fatalf("failed to save test report: %v", err)
	}
	return record
}

// MinimalPayload returns a small draft payload with one result and one signatory.
// Callers may change fields before saving it.
func MinimalPayload(lrn string) map[string]any {
	return map[string]any{
		"lrn":            lrn,
		"brn":            "B-" + lrn,
		"nabl":           0,
		"status":         4,
		"customer_name":  "Test Customer",
		"product_name":   "Test Product",
		"reporting_date": "2024-09-07",
		"test_results": []any{
			map[string]any{"parameter_name": "pH", "unit_name": "NA", "result": "7.1", "method_name": "IS 3025", "specification": "6.5 to 8.5"},
		},
		"signatories": []any{
			map[string]any{"title": "Authorized Signatory", "name": "Test Signer", "is_signed": false},
		},
	}
}

// FindExportLogs returns the export_logs entries of a report, oldest first.
func FindExportLogs(t *testing.T, app *pocketbase.PocketBase, reportID string) []*core.Record {
	t.Helper()

	records, err := app.FindRecordsByFilter("export_logs", "report = {:report}", "created", 0, 0,
		map[string]any{"report": reportID})
	if err != nil {
		t.Fatalf("failed to query export_logs: %v", err)
	}
	return records
}

// AssertHTMLContains checks that body contains all specified fragments.
func AssertHTMLContains(t *testing.T, body string, fragments ...string) {
	t.Helper()

	for _, frag := range fragments {
		if !strings.Contains(body, frag) {
			t.Errorf("expected HTML to contain %q, but it was not found\nbody (first 500 chars): %s",
				frag, truncate(body, 500))
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
