package collections

import (
	"encoding/json"
	"fmt"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"

	"labreports/config"
	"labreports/services"
)

// SaveReport stores a backend payload in lab_reports. The list columns are
// copied out of the payload so the report list never decodes payloads.
func SaveReport(app core.App, stage string, payload []byte) (*core.Record, error) {
	col, err := app.FindCollectionByNameOrId("lab_reports")
	if err != nil {
		return nil, fmt.Errorf("could not find lab_reports collection: %w", err)
	}

	record := core.NewRecord(col)
	if err := applyReportColumns(record, stage, payload); err != nil {
		return nil, err
	}
	record.Set("payload", types.JSONRaw(payload))

	if err := app.Save(record); err != nil {
		return nil, fmt.Errorf("save lab report: %w", err)
	}
	return record, nil
}

// applyReportColumns sets the list columns of record from payload.
func applyReportColumns(record *core.Record, stage string, payload []byte) error {
	source := services.ParseSource(stage)
	raw, err := services.DecodeReport(payload, source)
	if err != nil {
		return err
	}
	record.Set("lrn", raw.LRN)
	record.Set("brn", raw.BRN)
	record.Set("customer_name", raw.Customer.Name)
	record.Set("stage", source.String())
	record.Set("status_code", raw.Status.Code)
	return nil
}

type seedReport struct {
	stage   string
	payload map[string]any
}

// Seed inserts sample reports covering the draft, final, NABL and QAI
// cases. It returns early if any report already exists.
func Seed(app *pocketbase.PocketBase) error {
	col, err := app.FindCollectionByNameOrId("lab_reports")
	if err != nil {
		return fmt.Errorf("seed: could not find lab_reports collection: %w", err)
	}
	existing, err := app.FindAllRecords(col)
	if err != nil {
		return fmt.Errorf("seed: could not query lab_reports: %w", err)
	}
	if len(existing) > 0 {
		return nil // already seeded
	}

	config.Logger().Info("seed: lab_reports collection is empty, inserting sample reports")

	for _, r := range seedReports() {
		data, err := json.Marshal(r.payload)
		if err != nil {
			return fmt.Errorf("seed: marshal %v: %w", r.payload["lrn"], err)
		}
		if _, err := SaveReport(app, r.stage, data); err != nil {
			return fmt.Errorf("seed: save report %v: %w", r.payload["lrn"], err)
		}
	}
	return nil
}

func seedReports() []seedReport {
	return []seedReport{
		{
			stage: "draft",
			payload: map[string]any{
				"ulr_no":        "TC512324000001234F",
				"lrn":           "KTRC/24/0917",
				"brn":           "B-2024-0456",
				"ktrc_ref":      "KTRC-CHEM-88",
				"nabl":          map[string]any{"status": 1},
				"report_status": map[string]any{"code": 4},
				"customer": map[string]any{
					"name":           "Shree Polymers Pvt Ltd",
					"address":        "12 Peenya Industrial Estate, Bangalore",
					"contact_person": "R. Kumar",
					"show_contact":   1,
					"reference":      "PO-7781",
				},
				"product_name":       "HDPE Pipe",
				"sample_description": "Black pipe, 110 mm OD",
				"grade":              "PE 100",
				"batch_no":           "B12<br>B13",
				"quantity_received": []any{
					map[string]any{"received": 2, "unit_name": "Nos"},
				},
				"receipt_date":     "2024-09-02",
				"sample_condition": "Satisfactory",
				"packing":          "Sealed",
				"test_start_date":  "2024-09-03",
				"test_end_date":    "2024-09-06",
				"reporting_date":   "2024-09-07",
				"test_results": []any{
					map[string]any{"parameter_name": "Density", "unit_name": "g/cc", "result": "0.955", "method_name": "ISO 1183", "specification": "0.940 to 0.960", "style": "background-color:#008d4c;color:#fff"},
					map[string]any{"parameter_name": "Carbon black content", "unit_name": "%", "result": "3.1", "method_name": "ISO 6964", "specification": "max. 2.5", "style": "background-color:#dd4b39;color:#fff"},
					map[string]any{"parameter_name": "Melt flow rate", "unit_name": "g/10min", "result": "0.3", "method_name": "ISO 1133", "specification": "-"},
				},
				"hod_remark":     "Sample tested as received.",
				"witness":        "1",
				"witness_detail": "Mr. A. Rao",
				"signatories": []any{
					map[string]any{"title": "Reviewed By", "name": "Dr. S. Iyer", "is_signed": false},
					map[string]any{"title": "Authorized Signatory", "name": "M. Shetty", "authorize_for": "Chemical Testing", "is_signed": false},
				},
			},
		},
		{
			stage: "review",
			payload: map[string]any{
				"ulr_no":           "TC512324000001301F",
				"lrn":              "KTRC/24/1002",
				"brn":              "B-2024-0511",
				"nabl":             3,
				"status":           9,
				"customer_name":    "Deccan Water Works",
				"customer_address": "Survey 44, Hosur Road, Bangalore",
				"product_name":     "Drinking water",
				"grade":            "IS 10500",
				"quantity_received": []any{
					map[string]any{"received": 2, "unit_name": "L"},
					map[string]any{"received": 1, "unit_name": "NA"},
				},
				"receipt_date":   "2024-10-01",
				"reporting_date": "2024-10-05",
				"results": []any{
					map[string]any{"parameter": "pH", "unit": "NA", "result": "7.2", "method": "IS 3025 (P11)"},
					map[string]any{"parameter": "Total hardness", "unit": "mg/L", "result": "180", "method": "IS 3025 (P21)"},
				},
				"witness":        "2",
				"witness_detail": "Municipal inspector",
				"bdl_remark":     "BDL: Below detection limit.",
				"signatures": []any{
					map[string]any{"designation": "Chemist", "name": "P. Nair", "is_signed": true},
					map[string]any{"designation": "Quality Manager", "name": "K. Rao", "is_signed": true},
				},
			},
		},
	}
}
