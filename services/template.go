package services

import (
	"encoding/json"
	"log"

	"github.com/tiendc/go-deepcopy"
)

// RawTemplate is a persisted template payload before shape validation.
type RawTemplate map[string]any

// OverrideStore supplies persisted custom templates per category. LoadOverride
// returns nil with no error when no template exists for the category.
// SaveDefault must have create-if-absent semantics: writing a default that
// already exists is a no-op, so two concurrent first requests cannot
// duplicate it.
type OverrideStore interface {
	LoadOverride(category string) (RawTemplate, error)
	SaveDefault(category string, doc *Document) error
}

// TemplateProvider produces the canonical starting document for an estimate
// category. A persisted override wins over the built-in default; a corrupt
// or unreadable override falls back to the built-in and logs, never
// propagating a broken template. The built-in default is lazily written
// back to the store the first time a category is requested.
type TemplateProvider struct {
	store    OverrideStore
	policy   CalcPolicy
	builtins map[string]*Document
}

// NewTemplateProvider builds a provider with the built-in defaults
// materialized once. The store may be nil, in which case only the built-in
// defaults are served.
func NewTemplateProvider(store OverrideStore, policy CalcPolicy) *TemplateProvider {
	builtins := make(map[string]*Document, len(Categories))
	for _, category := range Categories {
		builtins[category] = BuiltinTemplate(category, policy)
	}
	return &TemplateProvider{store: store, policy: policy, builtins: builtins}
}

// Get returns a deep copy of the template document for the category, never
// a shared mutable reference.
func (p *TemplateProvider) Get(category string) (*Document, error) {
	if p.store != nil {
		raw, err := p.store.LoadOverride(category)
		if err != nil {
			log.Printf("template: could not load override for %s: %v", category, err)
		} else if raw != nil {
			if doc, ok := parseTemplate(raw); ok {
				return doc, nil
			}
			log.Printf("template: override for %s is malformed, using built-in default", category)
		}
	}

	builtin, ok := p.builtins[category]
	if !ok {
		builtin = BuiltinTemplate(category, p.policy)
	}

	if p.store != nil {
		if err := p.store.SaveDefault(category, builtin); err != nil {
			log.Printf("template: could not materialize default for %s: %v", category, err)
		}
	}

	return CopyDocument(builtin), nil
}

// parseTemplate validates the raw shape and decodes it into a document. A
// template without structure and sections keys is considered corrupt.
func parseTemplate(raw RawTemplate) (*Document, bool) {
	if _, ok := raw["structure"]; !ok {
		return nil, false
	}
	if _, ok := raw["sections"]; !ok {
		return nil, false
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, false
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false
	}
	if doc.Structure == nil || doc.Sections == nil {
		return nil, false
	}
	return &doc, true
}

// BuiltinTemplate returns a fresh copy of the built-in default document for
// a category. Unknown categories get the work template.
func BuiltinTemplate(category string, policy CalcPolicy) *Document {
	doc := NewDocument(category, policy)
	doc.SchemaVersion = "1"

	switch category {
	case CategoryMaterials:
		doc.AddSection("Materials", PositionEnd)
	case CategorySupplemental:
		doc.AddSection("Supplemental works", PositionEnd)
	default:
		doc.AddSection("Preparatory works", PositionEnd)
		doc.AddSection("Main works", PositionEnd)
	}

	return doc
}

// DefaultColumns describes the canonical estimate grid. The derived
// columns are read-only and tagged with their formula kind.
func DefaultColumns() []Column {
	return []Column{
		{Title: "No.", Type: ColumnNumeric},
		{Title: "Name", Type: ColumnText},
		{Title: "Unit", Type: ColumnText},
		{Title: "Quantity", Type: ColumnNumeric},
		{Title: "Price", Type: ColumnCurrency},
		{Title: "Cost", Type: ColumnCurrency, ReadOnly: true, Formula: &Formula{Kind: FormulaCost}},
		{Title: "Markup %", Type: ColumnNumeric},
		{Title: "Discount %", Type: ColumnNumeric},
		{Title: "Client price", Type: ColumnCurrency, ReadOnly: true, Formula: &Formula{Kind: FormulaClientPrice}},
		{Title: "Client cost", Type: ColumnCurrency, ReadOnly: true, Formula: &Formula{Kind: FormulaClientCost}},
	}
}

// CopyDocument returns a deep copy of a document so callers can hand out
// templates and snapshots without aliasing shared state.
func CopyDocument(doc *Document) *Document {
	var out Document
	if err := deepcopy.Copy(&out, doc); err != nil {
		// Plain data copies cannot fail; fall back to a JSON round trip
		// rather than returning shared state.
		data, _ := json.Marshal(doc)
		_ = json.Unmarshal(data, &out)
	}
	return &out
}
