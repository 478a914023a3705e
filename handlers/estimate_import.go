package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimator/services"
)

// HandleEstimateImport returns a handler for the one-shot legacy migration
// path: a hand-authored xlsx estimate is uploaded, parsed into flat rows,
// rebuilt into a sectioned document with fresh totals, and saved as a new
// estimate. The form may pin the category; otherwise the import's
// suggestion is used.
func HandleEstimateImport(app *pocketbase.PocketBase, policy services.CalcPolicy) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if err := e.Request.ParseMultipartForm(10 << 20); err != nil {
			log.Printf("estimate_import: could not parse form: %v", err)
			return e.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid upload"})
		}

		file, header, err := e.Request.FormFile("file")
		if err != nil {
			return e.JSON(http.StatusBadRequest, map[string]string{"error": "Missing file"})
		}
		defer file.Close()

		result, err := services.ImportSpreadsheet(file, policy)
		if err != nil {
			log.Printf("estimate_import: could not parse %s: %v", header.Filename, err)
			return e.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		}

		title := strings.TrimSpace(e.Request.FormValue("title"))
		if title == "" {
			title = strings.TrimSuffix(header.Filename, ".xlsx")
		}

		category := e.Request.FormValue("category")
		if !services.ValidCategory(category) {
			category = result.SuggestedCategory
		}
		result.Document.Category = category
		result.Document.Recompute(policy)

		record, revision, err := saveNewEstimate(app, title, result.Document)
		if err != nil {
			log.Printf("estimate_import: could not save estimate: %v", err)
			return e.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal error"})
		}

		resp := estimateResponse(record, result.Document, revision, result.Warnings)
		resp["suggested_category"] = result.SuggestedCategory
		return e.JSON(http.StatusCreated, resp)
	}
}
