package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimator/services"
)

// HandleRowsSave returns a handler for the legacy editor's bulk save: a
// full flat row list replaces the document's sections, derived fields and
// totals are recomputed, and the result is persisted. Callers that send a
// revision get optimistic conflict detection; without one the last writer
// wins.
func HandleRowsSave(app *pocketbase.PocketBase, policy services.CalcPolicy) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		estimateID := e.Request.PathValue("id")

		var body struct {
			Rows     []map[string]any `json:"rows"`
			Revision *int             `json:"revision"`
		}
		if err := e.BindBody(&body); err != nil {
			log.Printf("rows_save: could not parse body: %v", err)
			return e.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		}

		record, doc, _, errResp := loadEstimate(app, e, estimateID, policy)
		if errResp != nil {
			return errResp
		}

		var warnings []services.Warning
		rows := make([]services.FlatRow, 0, len(body.Rows))
		for _, raw := range body.Rows {
			row, rowWarnings := services.RowFromMap(raw, policy)
			warnings = append(warnings, rowWarnings...)
			rows = append(rows, row)
		}

		doc.Sections = services.FlatRowsToSections(rows)
		doc.Recompute(policy)
		warnings = append(warnings, services.ValidateStructure(doc)...)

		expected := services.AnyRevision
		if body.Revision != nil {
			expected = *body.Revision
		}

		gateway := services.NewGateway(app)
		revision, err := gateway.Save(estimateID, doc, expected)
		if err != nil {
			if errors.Is(err, services.ErrRevisionConflict) {
				return e.JSON(http.StatusConflict, map[string]any{
					"error":    "Estimate was modified by another session",
					"revision": revision,
				})
			}
			log.Printf("rows_save: could not persist %s: %v", estimateID, err)
			return e.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal error"})
		}

		return e.JSON(http.StatusOK, estimateResponse(record, doc, revision, warnings))
	}
}
