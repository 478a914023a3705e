package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimator/services"
)

// HandleSectionAdd returns a handler that appends or prepends a section to
// an estimate's document.
func HandleSectionAdd(app *pocketbase.PocketBase, policy services.CalcPolicy) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		estimateID := e.Request.PathValue("id")

		var body struct {
			Title    string `json:"title"`
			Position string `json:"position"`
		}
		if err := e.BindBody(&body); err != nil {
			log.Printf("section_add: could not parse body: %v", err)
			return e.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		}

		title := strings.TrimSpace(body.Title)
		if title == "" {
			return e.JSON(http.StatusBadRequest, map[string]string{"error": "Section title is required"})
		}
		position := body.Position
		if position != services.PositionStart {
			position = services.PositionEnd
		}

		record, doc, _, errResp := loadEstimate(app, e, estimateID, policy)
		if errResp != nil {
			return errResp
		}

		section := doc.AddSection(title, position)

		revision, err := persistDocument(app, e, estimateID, doc)
		if err != nil {
			return err
		}

		resp := estimateResponse(record, doc, revision, nil)
		resp["section_id"] = section.ID
		return e.JSON(http.StatusOK, resp)
	}
}

// HandleSectionRemove returns a handler that deletes a section and
// recomputes totals.
func HandleSectionRemove(app *pocketbase.PocketBase, policy services.CalcPolicy) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		estimateID := e.Request.PathValue("id")
		sectionID := e.Request.PathValue("sectionId")

		record, doc, _, errResp := loadEstimate(app, e, estimateID, policy)
		if errResp != nil {
			return errResp
		}

		if err := doc.RemoveSection(sectionID, policy); err != nil {
			if errors.Is(err, services.ErrSectionNotFound) {
				return e.JSON(http.StatusNotFound, map[string]string{"error": "Section not found"})
			}
			log.Printf("section_remove: %v", err)
			return e.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal error"})
		}

		revision, err := persistDocument(app, e, estimateID, doc)
		if err != nil {
			return err
		}

		return e.JSON(http.StatusOK, estimateResponse(record, doc, revision, nil))
	}
}

// persistDocument writes the mutated document back through the gateway,
// last writer wins. Mutation endpoints operate on the freshly loaded
// revision; conflict-checked writes go through the flat-row save.
func persistDocument(app *pocketbase.PocketBase, e *core.RequestEvent, estimateID string, doc *services.Document) (int, error) {
	gateway := services.NewGateway(app)
	revision, err := gateway.Save(estimateID, doc, services.AnyRevision)
	if err != nil {
		log.Printf("estimate_save: could not persist %s: %v", estimateID, err)
		return 0, e.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal error"})
	}
	return revision, nil
}
