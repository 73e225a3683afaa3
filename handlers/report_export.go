package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/sirupsen/logrus"

	"labreports/collections"
	"labreports/config"
	"labreports/services"
)

const excelVariant = "XLSX"

// exportLog is one row of export_logs.
type exportLog struct {
	ReportID string
	ExportID string
	Variant  string
	Filename string
	Size     int64
	Outcome  string
	Err      error
}

// recordExport writes an export_logs entry. Failing to record never fails the export.
func recordExport(app core.App, l exportLog) {
	logger := config.Logger().WithFields(logrus.Fields{"report": l.ReportID, "variant": l.Variant})

	col, err := app.FindCollectionByNameOrId("export_logs")
	if err != nil {
		logger.WithError(err).Warn("could not find export_logs collection")
		return
	}

	rec := core.NewRecord(col)
	rec.Set("report", l.ReportID)
	rec.Set("export_id", l.ExportID)
	rec.Set("variant", l.Variant)
	rec.Set("filename", l.Filename)
	rec.Set("size", l.Size)
	rec.Set("outcome", l.Outcome)
	if l.Err != nil {
		rec.Set("error", l.Err.Error())
	}
	if err := app.Save(rec); err != nil {
		config.LogError(config.Logger(), "handlers", "recordExport", "save export log", l, err)
	}
}

// attachment sets the download headers for a generated document.
func attachment(e *core.RequestEvent, contentType, filename string) {
	e.Response.Header().Set("Content-Type", contentType)
	e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
}

// HandleReportExportPDF returns a handler that renders one certificate variant
// and streams it as a download. The variant comes from the {variant} path value.
func HandleReportExportPDF(app *pocketbase.PocketBase, exporter *services.Exporter, opts services.NormalizeOptions) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		id := e.Request.PathValue("id")
		logger := config.Logger().WithFields(logrus.Fields{"handler": "report_export", "report": id})

		variant, err := services.ParseVariant(e.Request.PathValue("variant"))
		if err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Unknown report variant")
		}

		_, model, err := loadReportModel(app, id, opts)
		if errors.Is(err, errReportNotFound) {
			return ErrorToast(e, http.StatusNotFound, "Report not found")
		}
		if err != nil {
			logger.WithError(err).Error("could not load report")
			return ErrorToast(e, http.StatusInternalServerError, "Failed to load report")
		}

		// Once the status line is out, a failure can only be logged.
		var streaming bool
		saver := services.SaverFunc(func(filename string, r io.Reader) error {
			attachment(e, "application/pdf", filename)
			e.Response.WriteHeader(http.StatusOK)
			streaming = true
			_, err := io.Copy(e.Response, r)
			return err
		})

		res, err := exporter.Export(e.Request.Context(), services.ExportRequest{
			Key:     id,
			Model:   model,
			Variant: variant,
		}, saver)

		entry := exportLog{
			ReportID: id,
			ExportID: res.ID,
			Variant:  variant.Suffix(),
			Filename: res.Filename,
			Size:     res.Size,
			Outcome:  collections.OutcomeSuccess,
		}
		switch {
		case errors.Is(err, services.ErrExportInProgress):
			entry.Outcome, entry.Err = collections.OutcomeBusy, err
			recordExport(app, entry)
			return ErrorToast(e, http.StatusConflict, "This report is already being exported")
		case err != nil:
			entry.Outcome, entry.Err = collections.OutcomeFailed, err
			recordExport(app, entry)
			if streaming {
				logger.WithError(err).Error("report download interrupted")
				return nil
			}
			return ErrorToast(e, http.StatusInternalServerError, "Failed to generate report PDF")
		}

		recordExport(app, entry)
		return nil
	}
}

// HandleReportExportExcel returns a handler that downloads the results table as XLSX.
func HandleReportExportExcel(app *pocketbase.PocketBase, opts services.NormalizeOptions) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		id := e.Request.PathValue("id")
		logger := config.Logger().WithFields(logrus.Fields{"handler": "report_export_excel", "report": id})

		_, model, err := loadReportModel(app, id, opts)
		if errors.Is(err, errReportNotFound) {
			return ErrorToast(e, http.StatusNotFound, "Report not found")
		}
		if err != nil {
			logger.WithError(err).Error("could not load report")
			return ErrorToast(e, http.StatusInternalServerError, "Failed to load report")
		}

		entry := exportLog{
			ReportID: id,
			ExportID: uuid.NewString(),
			Variant:  excelVariant,
			Filename: services.ExcelFilename(model),
		}

		data, err := services.GenerateResultsExcel(model)
		if err != nil {
			logger.WithError(err).Error("failed to generate excel")
			entry.Outcome, entry.Err = collections.OutcomeFailed, err
			recordExport(app, entry)
			return ErrorToast(e, http.StatusInternalServerError, "Failed to generate Excel file")
		}

		entry.Outcome, entry.Size = collections.OutcomeSuccess, int64(len(data))
		recordExport(app, entry)

		attachment(e, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", entry.Filename)
		e.Response.Write(data)
		return nil
	}
}
