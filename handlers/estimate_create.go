package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimator/services"
)

// HandleEstimateCreate returns a handler that creates a new estimate from
// the category's template and persists it.
func HandleEstimateCreate(app *pocketbase.PocketBase, provider *services.TemplateProvider) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var body struct {
			Title    string `json:"title"`
			Category string `json:"category"`
		}
		if err := e.BindBody(&body); err != nil {
			log.Printf("estimate_create: could not parse body: %v", err)
			return e.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		}

		title := strings.TrimSpace(body.Title)
		errors := make(map[string]string)
		if title == "" {
			errors["title"] = "Estimate title is required"
		}
		if !services.ValidCategory(body.Category) {
			errors["category"] = "Unknown estimate category"
		}
		if len(errors) > 0 {
			return e.JSON(http.StatusBadRequest, map[string]any{"errors": errors})
		}

		doc, err := provider.Get(body.Category)
		if err != nil {
			log.Printf("estimate_create: could not load template for %s: %v", body.Category, err)
			return e.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal error"})
		}

		record, revision, err := saveNewEstimate(app, title, doc)
		if err != nil {
			log.Printf("estimate_create: could not save estimate: %v", err)
			return e.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal error"})
		}

		return e.JSON(http.StatusCreated, estimateResponse(record, doc, revision, nil))
	}
}

// HandleEstimateList returns a handler that lists all estimates with their
// resolved client-facing amounts.
func HandleEstimateList(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		records, err := app.FindAllRecords("estimates")
		if err != nil {
			log.Printf("estimate_list: could not list estimates: %v", err)
			return e.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal error"})
		}

		gateway := services.NewGateway(app)

		summaries := make([]map[string]any, 0, len(records))
		for _, record := range records {
			doc, revision, err := gateway.Load(record.Id)
			if err != nil {
				log.Printf("estimate_list: could not load document %s: %v", record.Id, err)
				continue
			}
			amount := services.ResolveAmount(doc)
			summaries = append(summaries, map[string]any{
				"id":               record.Id,
				"title":            record.GetString("title"),
				"category":         record.GetString("category"),
				"revision":         revision,
				"amount":           amount,
				"amount_formatted": services.FormatRUB(amount),
			})
		}

		return e.JSON(http.StatusOK, map[string]any{"estimates": summaries})
	}
}

func saveNewEstimate(app *pocketbase.PocketBase, title string, doc *services.Document) (*core.Record, int, error) {
	col, err := app.FindCollectionByNameOrId("estimates")
	if err != nil {
		return nil, 0, err
	}

	record := core.NewRecord(col)
	record.Set("title", title)
	record.Set("category", doc.Category)
	record.Set("schema_version", doc.SchemaVersion)
	record.Set("revision", 0)

	if err := app.Save(record); err != nil {
		return nil, 0, err
	}

	gateway := services.NewGateway(app)
	revision, err := gateway.Save(record.Id, doc, services.AnyRevision)
	if err != nil {
		return nil, 0, err
	}
	return record, revision, nil
}

// estimateResponse is the common JSON shape returned after reads and
// mutations: the document plus its flat-row projection, so consumers of
// either representation stay in sync.
func estimateResponse(record *core.Record, doc *services.Document, revision int, warnings []services.Warning) map[string]any {
	resp := map[string]any{
		"id":       record.Id,
		"title":    record.GetString("title"),
		"category": doc.Category,
		"revision": revision,
		"document": doc,
		"rows":     services.SectionsToFlatRows(doc.Sections),
	}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	return resp
}
