package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimator/services"
)

// HandleEstimateExport returns a handler that builds the tabular export
// view of an estimate for report collaborators.
func HandleEstimateExport(app *pocketbase.PocketBase, policy services.CalcPolicy) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		_, data, errResp := buildExport(app, e, policy)
		if errResp != nil {
			return errResp
		}
		return e.JSON(http.StatusOK, data)
	}
}

// HandleEstimateExportCSV returns a handler that streams the export rows
// as a CSV download.
func HandleEstimateExportCSV(app *pocketbase.PocketBase, policy services.CalcPolicy) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		record, data, errResp := buildExport(app, e, policy)
		if errResp != nil {
			return errResp
		}

		filename := fmt.Sprintf("estimate-%s.csv", record.Id)
		e.Response.Header().Set("Content-Type", "text/csv; charset=utf-8")
		e.Response.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		e.Response.WriteHeader(http.StatusOK)

		if err := services.WriteCSV(e.Response, data); err != nil {
			log.Printf("estimate_export: could not write csv for %s: %v", record.Id, err)
		}
		return nil
	}
}

// HandleEstimateAmount returns a handler exposing the single resolved
// client-facing amount of an estimate. Report collaborators call this
// instead of re-deriving totals.
func HandleEstimateAmount(app *pocketbase.PocketBase, policy services.CalcPolicy) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		estimateID := e.Request.PathValue("id")
		_, doc, _, errResp := loadEstimate(app, e, estimateID, policy)
		if errResp != nil {
			return errResp
		}

		amount := services.ResolveAmount(doc)
		return e.JSON(http.StatusOK, map[string]any{
			"id":               estimateID,
			"amount":           amount,
			"amount_formatted": services.FormatRUB(amount),
			"amount_in_words":  services.AmountToWords(amount),
		})
	}
}

func buildExport(app *pocketbase.PocketBase, e *core.RequestEvent, policy services.CalcPolicy) (*core.Record, services.ExportData, error) {
	estimateID := e.Request.PathValue("id")

	record, doc, _, errResp := loadEstimate(app, e, estimateID, policy)
	if errResp != nil {
		return nil, services.ExportData{}, errResp
	}

	created := record.GetDateTime("created").Time().Format("2006-01-02")
	data := services.BuildExportData(record.GetString("title"), created, doc)
	return record, data, nil
}
