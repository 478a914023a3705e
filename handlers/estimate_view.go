package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimator/services"
)

// HandleEstimateView returns a handler that loads one estimate and returns
// its document in both representations, plus any structural warnings.
func HandleEstimateView(app *pocketbase.PocketBase, policy services.CalcPolicy) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		estimateID := e.Request.PathValue("id")
		if estimateID == "" {
			return e.JSON(http.StatusBadRequest, map[string]string{"error": "Missing estimate id"})
		}

		record, doc, revision, errResp := loadEstimate(app, e, estimateID, policy)
		if errResp != nil {
			return errResp
		}

		warnings := services.ValidateStructure(doc)
		return e.JSON(http.StatusOK, estimateResponse(record, doc, revision, warnings))
	}
}

// HandleEstimateValidate returns a handler that strict-validates a stored
// estimate without modifying it: structural defects plus a comparison of
// the cached totals against a fresh recomputation.
func HandleEstimateValidate(app *pocketbase.PocketBase, policy services.CalcPolicy) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		estimateID := e.Request.PathValue("id")
		if estimateID == "" {
			return e.JSON(http.StatusBadRequest, map[string]string{"error": "Missing estimate id"})
		}

		_, doc, revision, errResp := loadEstimate(app, e, estimateID, policy)
		if errResp != nil {
			return errResp
		}

		warnings := services.ValidateStructure(doc)
		warnings = append(warnings, services.ValidateTotals(doc, policy)...)

		return e.JSON(http.StatusOK, map[string]any{
			"id":       estimateID,
			"revision": revision,
			"valid":    len(warnings) == 0,
			"warnings": warnings,
		})
	}
}

// HandleEstimateDelete returns a handler that deletes an estimate record.
func HandleEstimateDelete(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		estimateID := e.Request.PathValue("id")
		if estimateID == "" {
			return e.JSON(http.StatusBadRequest, map[string]string{"error": "Missing estimate id"})
		}

		record, err := app.FindRecordById("estimates", estimateID)
		if err != nil {
			return e.JSON(http.StatusNotFound, map[string]string{"error": "Estimate not found"})
		}

		if err := app.Delete(record); err != nil {
			log.Printf("estimate_delete: could not delete %s: %v", estimateID, err)
			return e.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal error"})
		}

		return e.JSON(http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// loadEstimate fetches the record and its document, writing the error
// response itself when something is off. A stored estimate without a
// document yet comes back as an empty document of the record's category,
// carrying the caller's policy defaults.
func loadEstimate(app *pocketbase.PocketBase, e *core.RequestEvent, estimateID string, policy services.CalcPolicy) (*core.Record, *services.Document, int, error) {
	record, err := app.FindRecordById("estimates", estimateID)
	if err != nil {
		return nil, nil, 0, e.JSON(http.StatusNotFound, map[string]string{"error": "Estimate not found"})
	}

	gateway := services.NewGateway(app)
	doc, revision, err := gateway.Load(estimateID)
	if err != nil {
		if errors.Is(err, services.ErrMalformedDocument) {
			log.Printf("estimate_view: malformed document %s: %v", estimateID, err)
			return nil, nil, 0, e.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "Stored document is malformed"})
		}
		return nil, nil, 0, e.JSON(http.StatusNotFound, map[string]string{"error": "Estimate not found"})
	}
	if doc == nil {
		doc = services.NewDocument(record.GetString("category"), policy)
	}

	return record, doc, revision, nil
}
