package main

import (
	"net/http"
	"os"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"labreports/collections"
	"labreports/config"
	"labreports/handlers"
	"labreports/services"
)

func main() {
	cfg, err := config.FromEnvironment()
	if err != nil {
		config.Logger().WithError(err).Fatal("failed to load config")
	}
	logger := config.SetupLogger(cfg.Logging)

	opts := normalizeOptions(cfg)
	exporter := services.NewExporter(cfg, services.NewAssetResolver(cfg.Assets), logger)

	app := pocketbase.New()
	app.RootCmd.AddCommand(renderCmd(cfg))

	// Create collections and seed data on startup
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		collections.Setup(app)
		if err := collections.Seed(app); err != nil {
			logger.WithError(err).Warn("seed data failed")
		}
		if err := collections.MigrateReportColumns(app); err != nil {
			logger.WithError(err).Warn("report column migration failed")
		}
		return se.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		se.Router.GET("/static/{path...}", apis.Static(os.DirFS("./static"), false))

		// ── Reports ──────────────────────────────────────────────
		se.Router.GET("/reports", handlers.HandleReportList(app))
		se.Router.POST("/reports", handlers.HandleReportImport(app))
		se.Router.GET("/reports/{id}", handlers.HandleReportView(app, opts))

		// ── Export (xlsx must be registered before {variant}) ───
		se.Router.GET("/reports/{id}/export/xlsx", handlers.HandleReportExportExcel(app, opts))
		se.Router.GET("/reports/{id}/export/{variant}", handlers.HandleReportExportPDF(app, exporter, opts))

		// Redirect home to the report list
		se.Router.GET("/", func(e *core.RequestEvent) error {
			return e.Redirect(http.StatusFound, "/reports")
		})

		return se.Next()
	})

	if err := app.Start(); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
