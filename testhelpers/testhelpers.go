// Package testhelpers provides utilities for testing PocketBase-based applications.
package testhelpers

import (
	"encoding/json"
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"

	"estimator/collections"
	"estimator/services"
)

// NewTestApp creates a PocketBase instance backed by a temporary directory.
// It bootstraps the app and runs collections.Setup to create all tables.
// The temporary directory is cleaned up automatically when the test finishes.
func NewTestApp(t *testing.T) *pocketbase.PocketBase {
	t.Helper()

	tmpDir := t.TempDir()
	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: tmpDir,
	})

	if err := app.Bootstrap(); err != nil {
		t.Fatalf("failed to bootstrap test app: %v", err)
	}

	collections.Setup(app)

	return app
}

// CreateTestEstimate creates an estimate record holding the given document
// and returns it.
func CreateTestEstimate(t *testing.T, app *pocketbase.PocketBase, title string, doc *services.Document) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("estimates")
	if err != nil {
		t.Fatalf("failed to find estimates collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("title", title)
	record.Set("category", doc.Category)
	record.Set("schema_version", doc.SchemaVersion)
	record.Set("revision", 0)

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("failed to marshal test document: %v", err)
	}
	record.Set("document", types.JSONRaw(data))

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test estimate: %v", err)
	}

	return record
}

// SampleDocument builds a small work estimate with one section of two
// priced items, recomputed and ready to persist.
func SampleDocument(t *testing.T) *services.Document {
	t.Helper()

	policy := services.DefaultCalcPolicy()
	doc := services.NewDocument(services.CategoryWork, policy)
	section := doc.AddSection("Main works", services.PositionEnd)

	if _, err := doc.AddItem(section.ID, services.ItemDraft{
		Name: "Wall plastering", Unit: "m2", Quantity: 2, Price: 350,
	}, policy); err != nil {
		t.Fatalf("failed to add test item: %v", err)
	}
	if _, err := doc.AddItem(section.ID, services.ItemDraft{
		Name: "Floor screed", Unit: "m2", Quantity: 10, Price: 120,
	}, policy); err != nil {
		t.Fatalf("failed to add test item: %v", err)
	}

	return doc
}
