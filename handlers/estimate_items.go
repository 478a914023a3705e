package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimator/services"
)

// HandleItemAdd returns a handler that appends a line item to a section.
// Omitted markup/discount fall back to the document defaults.
func HandleItemAdd(app *pocketbase.PocketBase, policy services.CalcPolicy) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		estimateID := e.Request.PathValue("id")
		sectionID := e.Request.PathValue("sectionId")

		var body struct {
			Name            string   `json:"name"`
			Unit            string   `json:"unit"`
			Quantity        float64  `json:"quantity"`
			Price           float64  `json:"price"`
			MarkupPercent   *float64 `json:"markup_percent"`
			DiscountPercent *float64 `json:"discount_percent"`
			IsHeader        bool     `json:"is_header"`
		}
		if err := e.BindBody(&body); err != nil {
			log.Printf("item_add: could not parse body: %v", err)
			return e.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		}

		record, doc, _, errResp := loadEstimate(app, e, estimateID, policy)
		if errResp != nil {
			return errResp
		}

		draft := services.ItemDraft{
			Name:            body.Name,
			Unit:            body.Unit,
			Quantity:        body.Quantity,
			Price:           body.Price,
			MarkupPercent:   body.MarkupPercent,
			DiscountPercent: body.DiscountPercent,
			IsHeader:        body.IsHeader,
		}

		if _, err := doc.AddItem(sectionID, draft, policy); err != nil {
			if errors.Is(err, services.ErrSectionNotFound) {
				return e.JSON(http.StatusNotFound, map[string]string{"error": "Section not found"})
			}
			log.Printf("item_add: %v", err)
			return e.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal error"})
		}

		revision, err := persistDocument(app, e, estimateID, doc)
		if err != nil {
			return err
		}

		return e.JSON(http.StatusOK, estimateResponse(record, doc, revision, nil))
	}
}

// HandleItemUpdate returns a handler that writes one field of one item.
// Every write recomputes the item's derived fields and the totals,
// whatever the field.
func HandleItemUpdate(app *pocketbase.PocketBase, policy services.CalcPolicy) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		estimateID := e.Request.PathValue("id")
		sectionID := e.Request.PathValue("sectionId")

		index, err := strconv.Atoi(e.Request.PathValue("index"))
		if err != nil {
			return e.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid item index"})
		}

		var body struct {
			Field string `json:"field"`
			Value any    `json:"value"`
		}
		if err := e.BindBody(&body); err != nil {
			log.Printf("item_update: could not parse body: %v", err)
			return e.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		}

		record, doc, _, errResp := loadEstimate(app, e, estimateID, policy)
		if errResp != nil {
			return errResp
		}

		if err := doc.UpdateItemField(sectionID, index, body.Field, body.Value, policy); err != nil {
			switch {
			case errors.Is(err, services.ErrSectionNotFound):
				return e.JSON(http.StatusNotFound, map[string]string{"error": "Section not found"})
			case errors.Is(err, services.ErrItemOutOfRange):
				return e.JSON(http.StatusNotFound, map[string]string{"error": "Item not found"})
			case errors.Is(err, services.ErrUnknownField):
				return e.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown item field"})
			default:
				log.Printf("item_update: %v", err)
				return e.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal error"})
			}
		}

		revision, err := persistDocument(app, e, estimateID, doc)
		if err != nil {
			return err
		}

		return e.JSON(http.StatusOK, estimateResponse(record, doc, revision, nil))
	}
}

// HandleItemRemove returns a handler that deletes one item from a section.
func HandleItemRemove(app *pocketbase.PocketBase, policy services.CalcPolicy) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		estimateID := e.Request.PathValue("id")
		sectionID := e.Request.PathValue("sectionId")

		index, err := strconv.Atoi(e.Request.PathValue("index"))
		if err != nil {
			return e.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid item index"})
		}

		record, doc, _, errResp := loadEstimate(app, e, estimateID, policy)
		if errResp != nil {
			return errResp
		}

		if err := doc.RemoveItem(sectionID, index, policy); err != nil {
			switch {
			case errors.Is(err, services.ErrSectionNotFound):
				return e.JSON(http.StatusNotFound, map[string]string{"error": "Section not found"})
			case errors.Is(err, services.ErrItemOutOfRange):
				return e.JSON(http.StatusNotFound, map[string]string{"error": "Item not found"})
			default:
				log.Printf("item_remove: %v", err)
				return e.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal error"})
			}
		}

		revision, err := persistDocument(app, e, estimateID, doc)
		if err != nil {
			return err
		}

		return e.JSON(http.StatusOK, estimateResponse(record, doc, revision, nil))
	}
}
