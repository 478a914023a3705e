package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/tools/types"
)

// Error kinds surfaced by the persistence gateway. Callers distinguish
// them with errors.Is; the gateway never retries on its own.
var (
	ErrNotFound          = errors.New("estimate not found")
	ErrRevisionConflict  = errors.New("estimate revision conflict")
	ErrMalformedDocument = errors.New("malformed estimate document")
)

// AnyRevision disables the revision check on Save: last writer wins.
const AnyRevision = -1

// Gateway loads and saves estimate documents stored as JSON on estimate
// records. It owns no computation: callers recompute totals before saving.
type Gateway struct {
	app *pocketbase.PocketBase
}

// NewGateway builds a gateway over the app's estimates collection.
func NewGateway(app *pocketbase.PocketBase) *Gateway {
	return &Gateway{app: app}
}

// Load returns the stored document and current revision of an estimate.
// An estimate that exists but has no document yet yields a nil document
// with no error, distinguishable from an empty document. A missing
// estimate yields ErrNotFound.
func (g *Gateway) Load(estimateID string) (*Document, int, error) {
	rec, err := g.app.FindRecordById("estimates", estimateID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, estimateID)
	}

	revision := rec.GetInt("revision")

	raw := rec.GetString("document")
	if raw == "" || raw == "null" {
		return nil, revision, nil
	}

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, revision, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return &doc, revision, nil
}

// Save stores the document on the estimate record and bumps its revision.
// When expectedRevision is AnyRevision the write is unconditional (last
// writer wins); otherwise a mismatch with the stored revision yields
// ErrRevisionConflict and nothing is written. Returns the new revision.
func (g *Gateway) Save(estimateID string, doc *Document, expectedRevision int) (int, error) {
	rec, err := g.app.FindRecordById("estimates", estimateID)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, estimateID)
	}

	current := rec.GetInt("revision")
	if expectedRevision != AnyRevision && expectedRevision != current {
		return current, fmt.Errorf("%w: expected %d, have %d", ErrRevisionConflict, expectedRevision, current)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return current, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	rec.Set("document", types.JSONRaw(data))
	rec.Set("category", doc.Category)
	rec.Set("revision", current+1)

	if err := g.app.Save(rec); err != nil {
		return current, fmt.Errorf("save estimate %s: %w", estimateID, err)
	}
	return current + 1, nil
}
