package collections_test

import (
	"testing"

	"labreports/collections"
	"labreports/testhelpers"

	"github.com/pocketbase/pocketbase/core"
)

// expectedCollections is the full list of collections that Setup() must create.
var expectedCollections = []string{
	"lab_reports",
	"export_logs",
}

func TestSetup_AllCollectionsExist(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	for _, name := range expectedCollections {
		col, err := app.FindCollectionByNameOrId(name)
		if err != nil {
			t.Errorf("collection %q not found after Setup(): %v", name, err)
			continue
		}
		if col.Name != name {
			t.Errorf("expected collection name %q, got %q", name, col.Name)
		}
	}
}

func TestSetup_Idempotent(t *testing.T) {
	app := testhelpers.NewTestApp(t) // Setup() already called once via NewTestApp

	ids := make(map[string]string)
	for _, name := range expectedCollections {
		col, _ := app.FindCollectionByNameOrId(name)
		ids[name] = col.Id
	}

	collections.Setup(app)

	for _, name := range expectedCollections {
		col, err := app.FindCollectionByNameOrId(name)
		if err != nil {
			t.Errorf("collection %q missing after second Setup(): %v", name, err)
			continue
		}
		if col.Id != ids[name] {
			t.Errorf("collection %q id changed after second Setup(): %s -> %s", name, ids[name], col.Id)
		}
	}
}

func TestSetup_Fields(t *testing.T) {
	tests := []struct {
		collection string
		fields     []string
	}{
		{"lab_reports", []string{"lrn", "brn", "customer_name", "stage", "status_code", "payload", "created", "updated"}},
		{"export_logs", []string{"report", "export_id", "variant", "filename", "size", "outcome", "error", "created"}},
	}
	app := testhelpers.NewTestApp(t)
	for _, tt := range tests {
		col, err := app.FindCollectionByNameOrId(tt.collection)
		if err != nil {
			t.Fatalf("collection %q not found: %v", tt.collection, err)
		}
		for _, f := range tt.fields {
			if col.Fields.GetByName(f) == nil {
				t.Errorf("%s: missing field %q", tt.collection, f)
			}
		}
	}
}

func TestSetup_StageSelectValues(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	col, _ := app.FindCollectionByNameOrId("lab_reports")

	field, ok := col.Fields.GetByName("stage").(*core.SelectField)
	if !ok {
		t.Fatal("stage is not a select field")
	}
	if len(field.Values) != len(collections.StageValues) {
		t.Fatalf("stage values = %v, want %v", field.Values, collections.StageValues)
	}
	for i, v := range collections.StageValues {
		if field.Values[i] != v {
			t.Errorf("stage value %d = %q, want %q", i, field.Values[i], v)
		}
	}
}

func TestSetup_ExportLogsCascadeDelete(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	reports, _ := app.FindCollectionByNameOrId("lab_reports")
	logs, _ := app.FindCollectionByNameOrId("export_logs")

	rel, ok := logs.Fields.GetByName("report").(*core.RelationField)
	if !ok {
		t.Fatal("report is not a relation field")
	}
	if rel.CollectionId != reports.Id {
		t.Errorf("report relation points to %q, want lab_reports (%s)", rel.CollectionId, reports.Id)
	}
	if !rel.CascadeDelete {
		t.Error("export logs should be deleted with their report")
	}

	report := testhelpers.CreateTestReport(t, app, "draft", testhelpers.MinimalPayload("KTRC/24/0400"))
	entry := core.NewRecord(logs)
	entry.Set("report", report.Id)
	entry.Set("variant", "WoLH")
	entry.Set("outcome", collections.OutcomeSuccess)
	if err := app.Save(entry); err != nil {
		t.Fatalf("save export log: %v", err)
	}

	if err := app.Delete(report); err != nil {
		t.Fatalf("delete report: %v", err)
	}
	if _, err := app.FindRecordById("export_logs", entry.Id); err == nil {
		t.Error("export log survived its report")
	}
}
