package collections_test

import (
	"testing"

	"labreports/collections"
	"labreports/testhelpers"
)

func TestSeed_CreatesReports(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	if err := collections.Seed(app); err != nil {
		t.Fatalf("Seed() error: %v", err)
	}

	records, err := app.FindRecordsByFilter("lab_reports", "id != ''", "lrn", 0, 0)
	if err != nil {
		t.Fatalf("query lab_reports error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(records))
	}

	tests := []struct {
		lrn      string
		stage    string
		status   int
		customer string
	}{
		{"KTRC/24/0917", "draft", 4, "Shree Polymers Pvt Ltd"},
		{"KTRC/24/1002", "review", 9, "Deccan Water Works"},
	}
	for i, tt := range tests {
		rec := records[i]
		if got := rec.GetString("lrn"); got != tt.lrn {
			t.Errorf("report %d lrn = %q, want %q", i, got, tt.lrn)
		}
		if got := rec.GetString("stage"); got != tt.stage {
			t.Errorf("%s stage = %q, want %q", tt.lrn, got, tt.stage)
		}
		if got := rec.GetInt("status_code"); got != tt.status {
			t.Errorf("%s status_code = %d, want %d", tt.lrn, got, tt.status)
		}
		if got := rec.GetString("customer_name"); got != tt.customer {
			t.Errorf("%s customer_name = %q, want %q", tt.lrn, got, tt.customer)
		}
	}
}

func TestSeed_Idempotent(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	if err := collections.Seed(app); err != nil {
		t.Fatalf("first Seed() error: %v", err)
	}
	if err := collections.Seed(app); err != nil {
		t.Fatalf("second Seed() error: %v", err)
	}

	all, err := app.FindAllRecords("lab_reports")
	if err != nil {
		t.Fatalf("query error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 reports after seeding twice, got %d", len(all))
	}
}

func TestSeed_SkipsWhenReportsExist(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	testhelpers.CreateTestReport(t, app, "draft", testhelpers.MinimalPayload("KTRC/24/0500"))

	if err := collections.Seed(app); err != nil {
		t.Fatalf("Seed() error: %v", err)
	}

	all, _ := app.FindAllRecords("lab_reports")
	if len(all) != 1 {
		t.Errorf("expected seed to skip a non-empty collection, got %d reports", len(all))
	}
}

func TestSaveReport(t *testing.T) {
	tests := []struct {
		name      string
		stage     string
		payload   string
		wantStage string
		wantLRN   string
		wantErr   bool
	}{
		{"draft view", "draft", `{"lrn":"L-1","report_status":{"code":3}}`, "draft", "L-1", false},
		{"review alias", "hod", `{"lrn_no":"L-2","status":9}`, "review", "L-2", false},
		{"unknown stage", "", `{"data":{"lrn":"L-3"}}`, "draft", "L-3", false},
		{"not an object", "draft", `[]`, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testhelpers.NewTestApp(t)
			rec, err := collections.SaveReport(app, tt.stage, []byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("SaveReport() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := rec.GetString("stage"); got != tt.wantStage {
				t.Errorf("stage = %q, want %q", got, tt.wantStage)
			}
			if got := rec.GetString("lrn"); got != tt.wantLRN {
				t.Errorf("lrn = %q, want %q", got, tt.wantLRN)
			}
		})
	}
}
