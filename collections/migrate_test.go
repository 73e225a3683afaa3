package collections_test

import (
	"testing"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"

	"labreports/collections"
	"labreports/testhelpers"
)

func TestMigrateReportColumns_FillsBareReports(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	col, _ := app.FindCollectionByNameOrId("lab_reports")

	bare := core.NewRecord(col)
	bare.Set("stage", "review")
	bare.Set("payload", types.JSONRaw(`{"lrn":"KTRC/24/0600","brn":"B-600","customer_name":"Bare Co","status":9}`))
	if err := app.Save(bare); err != nil {
		t.Fatalf("save bare report: %v", err)
	}

	if err := collections.MigrateReportColumns(app); err != nil {
		t.Fatalf("MigrateReportColumns() error: %v", err)
	}

	got, err := app.FindRecordById("lab_reports", bare.Id)
	if err != nil {
		t.Fatalf("report not found: %v", err)
	}
	if got.GetString("lrn") != "KTRC/24/0600" {
		t.Errorf("lrn = %q", got.GetString("lrn"))
	}
	if got.GetString("customer_name") != "Bare Co" {
		t.Errorf("customer_name = %q", got.GetString("customer_name"))
	}
	if got.GetInt("status_code") != 9 {
		t.Errorf("status_code = %d", got.GetInt("status_code"))
	}
	if got.GetString("stage") != "review" {
		t.Errorf("stage = %q", got.GetString("stage"))
	}
}

func TestMigrateReportColumns_LeavesFilledReports(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	report := testhelpers.CreateTestReport(t, app, "draft", testhelpers.MinimalPayload("KTRC/24/0601"))
	report.Set("customer_name", "Edited By Hand")
	if err := app.Save(report); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Run twice to check it is idempotent.
	for i := 0; i < 2; i++ {
		if err := collections.MigrateReportColumns(app); err != nil {
			t.Fatalf("run %d error: %v", i, err)
		}
	}

	got, _ := app.FindRecordById("lab_reports", report.Id)
	if got.GetString("customer_name") != "Edited By Hand" {
		t.Errorf("customer_name = %q, migration should not touch filled reports", got.GetString("customer_name"))
	}
}
