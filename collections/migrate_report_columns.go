package collections

import (
	"fmt"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/sirupsen/logrus"

	"labreports/config"
)

// MigrateReportColumns fills the list columns of reports that were inserted
// with only a payload, for example through the admin UI.
// Safe to call on every startup -- returns early if nothing to migrate.
func MigrateReportColumns(app *pocketbase.PocketBase) error {
	logger := config.Logger()

	col, err := app.FindCollectionByNameOrId("lab_reports")
	if err != nil {
		return fmt.Errorf("migrate: could not find lab_reports collection: %w", err)
	}

	bare, err := app.FindRecordsByFilter(col, "lrn = '' && brn = '' && customer_name = ''", "", 0, 0, nil)
	if err != nil {
		return fmt.Errorf("migrate: could not query lab_reports: %w", err)
	}
	if len(bare) == 0 {
		return nil
	}

	logger.WithField("count", len(bare)).Info("migrate: backfilling report list columns")

	for _, rec := range bare {
		payload, _ := rec.Get("payload").(types.JSONRaw)
		if len(payload) == 0 {
			continue
		}
		if err := applyReportColumns(rec, rec.GetString("stage"), payload); err != nil {
			logger.WithFields(logrus.Fields{"report": rec.Id, "error": err}).Warn("migrate: payload could not be decoded")
			continue
		}
		if err := app.Save(rec); err != nil {
			logger.WithFields(logrus.Fields{"report": rec.Id, "error": err}).Warn("migrate: failed to save report")
			continue
		}
		logger.WithFields(logrus.Fields{"report": rec.Id, "lrn": rec.GetString("lrn")}).Info("migrate: report columns filled")
	}
	return nil
}
