package main

import (
	"log"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimator/collections"
	"estimator/handlers"
	"estimator/services"
)

func main() {
	app := pocketbase.New()

	policy := services.DefaultCalcPolicy()

	// Create collections and materialize built-in templates on startup
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		collections.Setup(app)
		if err := collections.Seed(app); err != nil {
			log.Printf("Warning: template seed failed: %v", err)
		}
		return se.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		provider := services.NewTemplateProvider(services.NewTemplateStore(app), policy)

		// ── Estimate CRUD ────────────────────────────────────────
		se.Router.GET("/estimates", handlers.HandleEstimateList(app))
		se.Router.POST("/estimates", handlers.HandleEstimateCreate(app, provider))
		se.Router.GET("/estimates/{id}", handlers.HandleEstimateView(app, policy))
		se.Router.GET("/estimates/{id}/validate", handlers.HandleEstimateValidate(app, policy))
		se.Router.DELETE("/estimates/{id}", handlers.HandleEstimateDelete(app))

		// ── Section and item mutations ───────────────────────────
		se.Router.POST("/estimates/{id}/sections", handlers.HandleSectionAdd(app, policy))
		se.Router.DELETE("/estimates/{id}/sections/{sectionId}", handlers.HandleSectionRemove(app, policy))
		se.Router.POST("/estimates/{id}/sections/{sectionId}/items", handlers.HandleItemAdd(app, policy))
		se.Router.PATCH("/estimates/{id}/sections/{sectionId}/items/{index}", handlers.HandleItemUpdate(app, policy))
		se.Router.DELETE("/estimates/{id}/sections/{sectionId}/items/{index}", handlers.HandleItemRemove(app, policy))

		// ── Legacy flat-row save (editor bulk save) ──────────────
		se.Router.PUT("/estimates/{id}/rows", handlers.HandleRowsSave(app, policy))

		// ── Import and export ────────────────────────────────────
		se.Router.POST("/estimates/import", handlers.HandleEstimateImport(app, policy))
		se.Router.GET("/estimates/{id}/export", handlers.HandleEstimateExport(app, policy))
		se.Router.GET("/estimates/{id}/export/csv", handlers.HandleEstimateExportCSV(app, policy))
		se.Router.GET("/estimates/{id}/amount", handlers.HandleEstimateAmount(app, policy))

		return se.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
