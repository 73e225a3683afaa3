package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/sirupsen/logrus"

	"labreports/collections"
	"labreports/config"
	"labreports/services"
	"labreports/templates"
)

// maxPayloadBytes matches the payload field limit on lab_reports.
const maxPayloadBytes = 2 << 20

var errReportNotFound = errors.New("report not found")

// loadReportModel reads a stored report and normalizes it into a render model.
func loadReportModel(app core.App, id string, opts services.NormalizeOptions) (*core.Record, services.ReportRenderModel, error) {
	rec, err := app.FindRecordById("lab_reports", id)
	if err != nil {
		return nil, services.ReportRenderModel{}, fmt.Errorf("%w: %s", errReportNotFound, id)
	}

	payload, ok := rec.Get("payload").(types.JSONRaw)
	if !ok || len(payload) == 0 {
		return rec, services.ReportRenderModel{}, fmt.Errorf("report %s has no payload", id)
	}

	raw, err := services.DecodeReport(payload, services.ParseSource(rec.GetString("stage")))
	if err != nil {
		return rec, services.ReportRenderModel{}, fmt.Errorf("decode report %s: %w", id, err)
	}
	return rec, services.Normalize(raw, opts), nil
}

// HandleReportList returns a handler that renders the report list page.
func HandleReportList(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		logger := config.Logger().WithField("handler", "report_list")

		col, err := app.FindCollectionByNameOrId("lab_reports")
		if err != nil {
			logger.WithError(err).Error("could not find lab_reports collection")
			return e.String(http.StatusInternalServerError, "Internal error")
		}

		records, err := app.FindRecordsByFilter(col, "id != ''", "-created", 0, 0)
		if err != nil {
			logger.WithError(err).Error("could not query lab_reports")
			return e.String(http.StatusInternalServerError, "Internal error")
		}

		items := make([]templates.ReportListItem, 0, len(records))
		for _, rec := range records {
			created := services.Placeholder
			if dt := rec.GetDateTime("created"); !dt.IsZero() {
				created = dt.Time().Format("02 Jan 2006")
			}
			items = append(items, templates.ReportListItem{
				ID:         rec.Id,
				LRN:        rec.GetString("lrn"),
				BRN:        rec.GetString("brn"),
				Customer:   rec.GetString("customer_name"),
				Stage:      rec.GetString("stage"),
				StatusCode: rec.GetInt("status_code"),
				Created:    created,
			})
		}

		var component templ.Component
		if e.Request.Header.Get("HX-Request") == "true" {
			component = templates.ReportListContent(items)
		} else {
			component = templates.ReportListPage(items)
		}
		return component.Render(e.Request.Context(), e.Response)
	}
}

// HandleReportView returns a handler that renders the HTML preview of a report.
func HandleReportView(app *pocketbase.PocketBase, opts services.NormalizeOptions) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		id := e.Request.PathValue("id")
		logger := config.Logger().WithFields(logrus.Fields{"handler": "report_view", "report": id})

		_, model, err := loadReportModel(app, id, opts)
		if errors.Is(err, errReportNotFound) {
			return e.String(http.StatusNotFound, "Report not found")
		}
		if err != nil {
			logger.WithError(err).Error("could not load report")
			return e.String(http.StatusInternalServerError, "Failed to load report")
		}

		data := templates.ReportPreviewData{ID: id, Model: model}

		var component templ.Component
		if e.Request.Header.Get("HX-Request") == "true" {
			component = templates.ReportPreviewContent(data)
		} else {
			component = templates.ReportPreviewPage(data)
		}
		return component.Render(e.Request.Context(), e.Response)
	}
}

// HandleReportImport returns a handler that stores a backend payload posted
// as the request body. The ?stage= query names the view it came from.
func HandleReportImport(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		logger := config.Logger().WithField("handler", "report_import")

		body, err := io.ReadAll(io.LimitReader(e.Request.Body, maxPayloadBytes+1))
		if err != nil {
			logger.WithError(err).Warn("could not read request body")
			return ErrorToast(e, http.StatusBadRequest, "Could not read report payload")
		}
		if len(body) > maxPayloadBytes {
			return ErrorToast(e, http.StatusRequestEntityTooLarge, "Report payload is too large")
		}

		if !json.Valid(body) {
			return ErrorToast(e, http.StatusBadRequest, "Report payload is not valid JSON")
		}

		stage := e.Request.URL.Query().Get("stage")
		rec, err := collections.SaveReport(app, stage, body)
		if errors.Is(err, services.ErrNotJSONObject) {
			return ErrorToast(e, http.StatusBadRequest, "Report payload must be a JSON object")
		}
		if err != nil {
			logger.WithError(err).Error("could not save report")
			return ErrorToast(e, http.StatusInternalServerError, "Failed to save report")
		}

		logger.WithFields(logrus.Fields{"report": rec.Id, "lrn": rec.GetString("lrn")}).Info("report imported")

		SetToast(e, "success", "Report imported")
		if e.Request.Header.Get("HX-Request") == "true" {
			e.Response.Header().Set("HX-Redirect", "/reports/"+rec.Id)
			return e.NoContent(http.StatusCreated)
		}
		return e.JSON(http.StatusCreated, map[string]string{"id": rec.Id})
	}
}
