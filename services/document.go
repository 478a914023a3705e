package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// Errors returned by document mutation operations.
var (
	ErrSectionNotFound = errors.New("section not found")
	ErrItemOutOfRange  = errors.New("item index out of range")
	ErrUnknownField    = errors.New("unknown item field")
)

// ColumnType describes the semantic type of a structure column.
type ColumnType string

const (
	ColumnText     ColumnType = "text"
	ColumnNumeric  ColumnType = "numeric"
	ColumnCurrency ColumnType = "currency"
)

// FormulaKind enumerates the closed set of derived-column formulas. Legacy
// free-form formula strings are mapped onto this set during import; the
// engine never evaluates arbitrary expressions.
type FormulaKind string

const (
	FormulaCost        FormulaKind = "cost"
	FormulaClientPrice FormulaKind = "client_price"
	FormulaClientCost  FormulaKind = "client_cost"
	FormulaLiteral     FormulaKind = "literal"
)

// Formula tags a column as derived. Literal formulas carry a fixed value.
type Formula struct {
	Kind  FormulaKind `json:"kind"`
	Value float64     `json:"value,omitempty"`
}

// Column describes how one position of a flat row maps to field semantics.
// Columns are carried for the editor and the sync layer; the calculation
// core itself does not need them.
type Column struct {
	Title    string     `json:"title"`
	Type     ColumnType `json:"type"`
	Formula  *Formula   `json:"formula,omitempty"`
	ReadOnly bool       `json:"read_only,omitempty"`
}

// LineItem is one priced row of work or material. Cost, ClientPrice and
// ClientCost are derived and recomputed on every mutation; they are stored
// on the item only so read-only consumers see fresh values without
// recomputing.
type LineItem struct {
	Name            string  `json:"name"`
	Unit            string  `json:"unit"`
	Quantity        float64 `json:"quantity"`
	Price           float64 `json:"price"`
	MarkupPercent   float64 `json:"markup_percent"`
	DiscountPercent float64 `json:"discount_percent"`

	// IsHeader marks a visual sub-label inside a section; such rows are
	// excluded from every monetary aggregate.
	IsHeader bool `json:"is_header"`

	// IsTotal marks a legacy grand-total line imported from hand-authored
	// spreadsheets. New documents never produce such rows.
	IsTotal bool `json:"is_total,omitempty"`

	Cost        float64 `json:"cost"`
	ClientPrice float64 `json:"client_price"`
	ClientCost  float64 `json:"client_cost"`
}

// Section is a named grouping of line items. The id is generated once and
// stays stable across edits and reorders.
type Section struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Items []LineItem `json:"items"`
}

// Totals is the aggregate record cached on a document. It is always
// derivable from the sections; a cached value that disagrees with a fresh
// recomputation is a defect, not an accepted state.
type Totals struct {
	WorkTotal      float64 `json:"work_total"`
	MaterialsTotal float64 `json:"materials_total"`
	GrandTotal     float64 `json:"grand_total"`

	ClientWorkTotal      float64 `json:"client_work_total"`
	ClientMaterialsTotal float64 `json:"client_materials_total"`
	ClientGrandTotal     float64 `json:"client_grand_total"`

	// Document-level defaults for newly created rows. Never used when
	// recomputing existing rows.
	MarkupPercentDefault   float64 `json:"markup_percent_default"`
	DiscountPercentDefault float64 `json:"discount_percent_default"`
}

// Document is the full estimate payload: sections of line items plus the
// structure metadata and cached totals. It is a plain in-memory value;
// mutations on the same instance must be serialized by the caller.
type Document struct {
	Category      string         `json:"category"`
	SchemaVersion string         `json:"schema_version,omitempty"`
	Meta          map[string]any `json:"meta,omitempty"`
	Structure     []Column       `json:"structure"`
	Sections      []Section      `json:"sections"`
	Totals        Totals         `json:"totals"`
}

// ItemDraft carries caller-supplied fields for a new line item. Nil markup
// and discount take the policy defaults; explicit zero values are kept.
type ItemDraft struct {
	Name            string
	Unit            string
	Quantity        float64
	Price           float64
	MarkupPercent   *float64
	DiscountPercent *float64
	IsHeader        bool
}

// Section insertion positions for AddSection.
const (
	PositionStart = "start"
	PositionEnd   = "end"
)

// NewDocument builds an empty document of the given category with zeroed
// totals and the default row settings from the policy.
func NewDocument(category string, policy CalcPolicy) *Document {
	return &Document{
		Category:  category,
		Structure: DefaultColumns(),
		Sections:  []Section{},
		Totals: Totals{
			MarkupPercentDefault:   policy.DefaultMarkupPercent,
			DiscountPercentDefault: policy.DefaultDiscountPercent,
		},
	}
}

// AddSection inserts a new empty section at the start or end of the
// document and returns a pointer to it. Totals are untouched: an empty
// section contributes nothing.
func (d *Document) AddSection(title, position string) *Section {
	section := Section{
		ID:    newSectionID(),
		Title: title,
		Items: []LineItem{},
	}

	if position == PositionStart {
		d.Sections = append([]Section{section}, d.Sections...)
		return &d.Sections[0]
	}
	d.Sections = append(d.Sections, section)
	return &d.Sections[len(d.Sections)-1]
}

// AddItem appends a line item built from the draft to the named section,
// filling markup/discount defaults from the document, then recomputes the
// item's derived fields and the document totals.
func (d *Document) AddItem(sectionID string, draft ItemDraft, policy CalcPolicy) (*LineItem, error) {
	section, err := d.findSection(sectionID)
	if err != nil {
		return nil, err
	}

	markup := d.Totals.MarkupPercentDefault
	if draft.MarkupPercent != nil {
		markup = *draft.MarkupPercent
	}
	discount := d.Totals.DiscountPercentDefault
	if draft.DiscountPercent != nil {
		discount = *draft.DiscountPercent
	}

	item := LineItem{
		Name:            draft.Name,
		Unit:            draft.Unit,
		Quantity:        draft.Quantity,
		Price:           draft.Price,
		MarkupPercent:   markup,
		DiscountPercent: discount,
		IsHeader:        draft.IsHeader,
	}
	applyCalc(&item, policy)

	section.Items = append(section.Items, item)
	d.Totals = CalcTotals(d, policy)
	return &section.Items[len(section.Items)-1], nil
}

// UpdateItemField writes one field of an item and unconditionally recomputes
// the item's derived fields and the document totals, regardless of which
// field changed, so derived state is always fresh. Numeric values are
// coerced permissively: non-numeric input becomes zero rather than an error.
func (d *Document) UpdateItemField(sectionID string, index int, field string, value any, policy CalcPolicy) error {
	section, err := d.findSection(sectionID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(section.Items) {
		return fmt.Errorf("%w: %d in section %s", ErrItemOutOfRange, index, sectionID)
	}

	item := &section.Items[index]
	switch field {
	case "name":
		item.Name = cast.ToString(value)
	case "unit":
		item.Unit = cast.ToString(value)
	case "quantity":
		item.Quantity = cast.ToFloat64(value)
	case "price":
		item.Price = cast.ToFloat64(value)
	case "markup_percent":
		item.MarkupPercent = cast.ToFloat64(value)
	case "discount_percent":
		item.DiscountPercent = cast.ToFloat64(value)
	case "is_header":
		item.IsHeader = cast.ToBool(value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	applyCalc(item, policy)
	d.Totals = CalcTotals(d, policy)
	return nil
}

// RemoveItem deletes one item from the named section and recomputes totals.
func (d *Document) RemoveItem(sectionID string, index int, policy CalcPolicy) error {
	section, err := d.findSection(sectionID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(section.Items) {
		return fmt.Errorf("%w: %d in section %s", ErrItemOutOfRange, index, sectionID)
	}

	section.Items = append(section.Items[:index], section.Items[index+1:]...)
	d.Totals = CalcTotals(d, policy)
	return nil
}

// RemoveSection deletes a whole section and recomputes totals.
func (d *Document) RemoveSection(sectionID string, policy CalcPolicy) error {
	for i, section := range d.Sections {
		if section.ID == sectionID {
			d.Sections = append(d.Sections[:i], d.Sections[i+1:]...)
			d.Totals = CalcTotals(d, policy)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
}

// Recompute refreshes every derived item field and the cached totals. Used
// after bulk edits such as a flat-row save or a legacy import.
func (d *Document) Recompute(policy CalcPolicy) {
	for si := range d.Sections {
		for ii := range d.Sections[si].Items {
			applyCalc(&d.Sections[si].Items[ii], policy)
		}
	}
	d.Totals = CalcTotals(d, policy)
}

func (d *Document) findSection(id string) (*Section, error) {
	for i := range d.Sections {
		if d.Sections[i].ID == id {
			return &d.Sections[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, id)
}

func newSectionID() string {
	return uuid.NewString()
}

func applyCalc(item *LineItem, policy CalcPolicy) {
	calc := CalcLineItem(*item, policy)
	item.Cost = calc.Cost
	item.ClientPrice = calc.ClientPrice
	item.ClientCost = calc.ClientCost
}
