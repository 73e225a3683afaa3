package collections

import (
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/sirupsen/logrus"

	"labreports/config"
)

// Stage values stored on lab_reports. They select which backend view the
// stored payload came from.
var StageValues = []string{"draft", "review"}

// Export outcomes recorded on export_logs.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeBusy    = "busy"
)

// Setup programmatically creates/ensures the lab_reports and export_logs
// collections exist.
func Setup(app *pocketbase.PocketBase) {
	reports := ensureCollection(app, "lab_reports", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "lrn", Required: false})
		c.Fields.Add(&core.TextField{Name: "brn", Required: false})
		c.Fields.Add(&core.TextField{Name: "customer_name", Required: false})
		c.Fields.Add(&core.SelectField{
			Name:      "stage",
			Required:  true,
			Values:    StageValues,
			MaxSelect: 1,
		})
		c.Fields.Add(&core.NumberField{Name: "status_code", Required: false})
		c.Fields.Add(&core.JSONField{Name: "payload", Required: true, MaxSize: 2 << 20})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	ensureCollection(app, "export_logs", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "report",
			Required:      true,
			CollectionId:  reports.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "export_id", Required: false})
		c.Fields.Add(&core.SelectField{
			Name:      "variant",
			Required:  true,
			Values:    []string{"WithLH", "WoLH", "WoLH_2Sign", "XLSX"},
			MaxSelect: 1,
		})
		c.Fields.Add(&core.TextField{Name: "filename", Required: false})
		c.Fields.Add(&core.NumberField{Name: "size", Required: false})
		c.Fields.Add(&core.SelectField{
			Name:      "outcome",
			Required:  true,
			Values:    []string{OutcomeSuccess, OutcomeFailed, OutcomeBusy},
			MaxSelect: 1,
		})
		c.Fields.Add(&core.TextField{Name: "error", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
	})
}

func ensureCollection(app *pocketbase.PocketBase, name string, addFields func(*core.Collection)) *core.Collection {
	logger := config.Logger()

	existing, err := app.FindCollectionByNameOrId(name)
	if err == nil && existing != nil {
		logger.WithField("collection", name).Debug("collection already exists, skipping creation")
		return existing
	}

	collection := core.NewBaseCollection(name)
	addFields(collection)

	if err := app.Save(collection); err != nil {
		logger.WithField("collection", name).Fatalf("failed to create collection: %v", err)
	}

	logger.WithFields(logrus.Fields{"collection": name, "id": collection.Id}).Info("created collection")
	return collection
}
