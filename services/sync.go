package services

import (
	"fmt"
	"log"

	"github.com/spf13/cast"
)

// FlatRow is one row of the legacy single-list representation of an
// estimate, where section boundaries are encoded inline. A boundary row is
// header-marked AND protected; a header-marked row without the protected
// flag is a visual label that stays inside its section.
type FlatRow struct {
	IsHeader  bool `json:"is_header"`
	Protected bool `json:"protected,omitempty"`

	Name            string  `json:"name"`
	Unit            string  `json:"unit,omitempty"`
	Quantity        float64 `json:"quantity"`
	Price           float64 `json:"price"`
	MarkupPercent   float64 `json:"markup_percent"`
	DiscountPercent float64 `json:"discount_percent"`

	IsTotal bool `json:"is_total,omitempty"`

	Cost        float64 `json:"cost"`
	ClientPrice float64 `json:"client_price"`
	ClientCost  float64 `json:"client_cost"`
}

// SectionsToFlatRows converts the sectioned representation into the legacy
// flat list: one protected header row per section carrying its title,
// followed by one row per item with all fields.
func SectionsToFlatRows(sections []Section) []FlatRow {
	var rows []FlatRow
	for _, section := range sections {
		rows = append(rows, FlatRow{
			IsHeader:  true,
			Protected: true,
			Name:      section.Title,
		})
		for _, item := range section.Items {
			rows = append(rows, FlatRow{
				IsHeader:        item.IsHeader,
				Name:            item.Name,
				Unit:            item.Unit,
				Quantity:        item.Quantity,
				Price:           item.Price,
				MarkupPercent:   item.MarkupPercent,
				DiscountPercent: item.DiscountPercent,
				IsTotal:         item.IsTotal,
				Cost:            item.Cost,
				ClientPrice:     item.ClientPrice,
				ClientCost:      item.ClientCost,
			})
		}
	}
	return rows
}

// FlatRowsToSections rebuilds sections from a flat row list. Every
// protected header row starts a new section titled after the row (unnamed
// boundaries become "Section N" by ordinal); all following rows belong to
// it until the next boundary. Rows appearing before any boundary are kept
// in a synthesized default section — rows are never dropped.
//
// Section ids are freshly generated: the flat form does not carry them.
// The result is never nil, so an empty row list marshals as [] like an
// empty document.
func FlatRowsToSections(rows []FlatRow) []Section {
	sections := []Section{}

	current := -1
	ensureSection := func(title string) {
		sections = append(sections, Section{
			ID:    newSectionID(),
			Title: title,
			Items: []LineItem{},
		})
		current = len(sections) - 1
	}

	for _, row := range rows {
		if row.IsHeader && row.Protected {
			title := row.Name
			if title == "" {
				title = fmt.Sprintf("Section %d", len(sections)+1)
			}
			ensureSection(title)
			continue
		}

		if current == -1 {
			ensureSection("Default section")
		}

		sections[current].Items = append(sections[current].Items, LineItem{
			Name:            row.Name,
			Unit:            row.Unit,
			Quantity:        row.Quantity,
			Price:           row.Price,
			MarkupPercent:   row.MarkupPercent,
			DiscountPercent: row.DiscountPercent,
			IsHeader:        row.IsHeader,
			IsTotal:         row.IsTotal,
			Cost:            row.Cost,
			ClientPrice:     row.ClientPrice,
			ClientCost:      row.ClientCost,
		})
	}

	return sections
}

// RowFromMap builds a FlatRow from a loosely-typed legacy row as produced
// by old editor payloads. Numeric fields are coerced permissively: a
// non-numeric or missing value becomes zero, by policy rather than
// accident, with a debug trace for diagnosability. Missing markup and
// discount take the policy defaults. A row without any is_header key is
// treated as a regular row, with a warning.
func RowFromMap(m map[string]any, policy CalcPolicy) (FlatRow, []Warning) {
	var warnings []Warning

	row := FlatRow{
		Name:            cast.ToString(m["name"]),
		Unit:            cast.ToString(m["unit"]),
		Quantity:        coerceFloat(m, "quantity"),
		Price:           coerceFloat(m, "price"),
		MarkupPercent:   policy.DefaultMarkupPercent,
		DiscountPercent: policy.DefaultDiscountPercent,
		Protected:       cast.ToBool(m["protected"]),
		IsTotal:         cast.ToBool(m["is_total"]),
	}

	if v, ok := m["markup_percent"]; ok {
		row.MarkupPercent = coerceFloatValue("markup_percent", v)
	}
	if v, ok := m["discount_percent"]; ok {
		row.DiscountPercent = coerceFloatValue("discount_percent", v)
	}

	if v, ok := m["is_header"]; ok {
		row.IsHeader = cast.ToBool(v)
	} else {
		warnings = append(warnings, Warning{
			Code:    WarnMissingHeaderFlag,
			Message: fmt.Sprintf("row %q has no is_header flag, treated as a regular row", row.Name),
		})
	}

	return row, warnings
}

func coerceFloat(m map[string]any, key string) float64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	return coerceFloatValue(key, v)
}

func coerceFloatValue(key string, v any) float64 {
	f, err := cast.ToFloat64E(v)
	if err != nil {
		log.Printf("sync: coerced non-numeric %s %v to 0", key, v)
		return 0
	}
	return f
}
