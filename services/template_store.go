package services

import (
	"encoding/json"
	"fmt"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

// TemplateStore is the OverrideStore backed by the estimate_templates
// collection: one record per category, builtin records holding the
// materialized defaults and user-edited ones acting as overrides.
type TemplateStore struct {
	app *pocketbase.PocketBase
}

// NewTemplateStore builds a store over the app's estimate_templates
// collection.
func NewTemplateStore(app *pocketbase.PocketBase) *TemplateStore {
	return &TemplateStore{app: app}
}

// LoadOverride returns the persisted template for a category, or nil when
// none exists yet.
func (s *TemplateStore) LoadOverride(category string) (RawTemplate, error) {
	rec, err := s.app.FindFirstRecordByData("estimate_templates", "category", category)
	if err != nil {
		return nil, nil
	}

	raw := rec.GetString("document")
	if raw == "" || raw == "null" {
		return nil, fmt.Errorf("template record for %s has no document", category)
	}

	var tpl RawTemplate
	if err := json.Unmarshal([]byte(raw), &tpl); err != nil {
		return nil, fmt.Errorf("parse template for %s: %w", category, err)
	}
	return tpl, nil
}

// SaveDefault materializes the built-in default for a category, create-if-
// absent: when a record already exists nothing is written, so repeated or
// concurrent first requests cannot duplicate it.
func (s *TemplateStore) SaveDefault(category string, doc *Document) error {
	if _, err := s.app.FindFirstRecordByData("estimate_templates", "category", category); err == nil {
		return nil
	}

	col, err := s.app.FindCollectionByNameOrId("estimate_templates")
	if err != nil {
		return fmt.Errorf("estimate_templates collection: %w", err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal template for %s: %w", category, err)
	}

	rec := core.NewRecord(col)
	rec.Set("category", category)
	rec.Set("builtin", true)
	rec.Set("document", types.JSONRaw(data))

	if err := s.app.Save(rec); err != nil {
		// A concurrent first request may have won the race; treat an
		// existing record as success.
		if _, findErr := s.app.FindFirstRecordByData("estimate_templates", "category", category); findErr == nil {
			return nil
		}
		return fmt.Errorf("save default template for %s: %w", category, err)
	}
	return nil
}
