package services

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"
)

// ImportResult is the outcome of importing a hand-authored spreadsheet:
// the recognized flat rows, the rebuilt document with fresh totals, a
// suggested category, and any warnings collected along the way.
type ImportResult struct {
	Rows              []FlatRow `json:"rows"`
	Document          *Document `json:"document"`
	SuggestedCategory string    `json:"suggested_category"`
	Warnings          []Warning `json:"warnings,omitempty"`
}

// importField keys, in the order legacy spreadsheets lay their columns out.
const (
	fieldName     = "name"
	fieldUnit     = "unit"
	fieldQuantity = "quantity"
	fieldPrice    = "price"
	fieldMarkup   = "markup_percent"
	fieldDiscount = "discount_percent"
)

// headerAliases maps normalized spreadsheet column headers to field keys.
// Legacy files come both in English and in Russian.
var headerAliases = map[string]string{
	"name":         fieldName,
	"наименование": fieldName,
	"unit":         fieldUnit,
	"ед. изм.":     fieldUnit,
	"ед.изм.":      fieldUnit,
	"quantity":     fieldQuantity,
	"qty":          fieldQuantity,
	"кол-во":       fieldQuantity,
	"количество":   fieldQuantity,
	"price":        fieldPrice,
	"цена":         fieldPrice,
	"markup %":     fieldMarkup,
	"markup":       fieldMarkup,
	"наценка":      fieldMarkup,
	"discount %":   fieldDiscount,
	"discount":     fieldDiscount,
	"скидка":       fieldDiscount,
}

// totalMarkers are names of hand-authored grand-total lines. Rows matching
// one are tagged rather than treated as priced items.
var totalMarkers = []string{"итого", "всего", "grand total", "total"}

// ImportSpreadsheet reads the first sheet of a legacy xlsx estimate into
// flat rows and rebuilds a sectioned document with recomputed totals.
//
// Recognition rules, matching how estimators authored these files:
// a row with a name but no numeric cells starts a new section; a row whose
// name is a known total marker becomes a legacy grand-total tag; cells
// holding "=..." formula text are treated as derived and dropped, since the
// engine recomputes those columns itself. Non-numeric cells coerce to zero.
func ImportSpreadsheet(file io.Reader, policy CalcPolicy) (*ImportResult, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	sheetRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(sheetRows) < 2 {
		return nil, fmt.Errorf("file must contain a header row and at least one data row")
	}

	fields, unrecognized := mapImportHeaders(sheetRows[0])

	result := &ImportResult{}
	for _, col := range unrecognized {
		result.Warnings = append(result.Warnings, Warning{
			Code:    WarnUnknownColumn,
			Message: fmt.Sprintf("column %q not recognized, ignored", col),
		})
	}

	for _, cells := range sheetRows[1:] {
		row, warnings := parseImportRow(cells, fields, policy)
		if row == nil {
			continue
		}
		result.Warnings = append(result.Warnings, warnings...)
		result.Rows = append(result.Rows, *row)
	}

	result.SuggestedCategory = suggestCategory(result.Rows)

	doc := NewDocument(result.SuggestedCategory, policy)
	doc.Sections = FlatRowsToSections(result.Rows)
	doc.Recompute(policy)
	result.Document = doc

	return result, nil
}

// mapImportHeaders resolves each spreadsheet column to a field key, keeping
// column order. Unmatched columns come back separately.
func mapImportHeaders(headers []string) ([]string, []string) {
	fields := make([]string, len(headers))
	var unrecognized []string

	for i, h := range headers {
		norm := strings.ToLower(strings.TrimSpace(h))
		norm = strings.TrimSuffix(norm, " *")
		norm = strings.TrimSpace(norm)

		if key, ok := headerAliases[norm]; ok {
			fields[i] = key
		} else {
			fields[i] = ""
			if h != "" {
				unrecognized = append(unrecognized, h)
			}
		}
	}
	return fields, unrecognized
}

func parseImportRow(cells []string, fields []string, policy CalcPolicy) (*FlatRow, []Warning) {
	row := FlatRow{
		MarkupPercent:   policy.DefaultMarkupPercent,
		DiscountPercent: policy.DefaultDiscountPercent,
	}
	var warnings []Warning

	empty := true
	numericSeen := false
	for i, cell := range cells {
		if i >= len(fields) || fields[i] == "" {
			continue
		}
		value := strings.TrimSpace(cell)
		if value == "" {
			continue
		}
		empty = false

		switch fields[i] {
		case fieldName:
			row.Name = value
		case fieldUnit:
			row.Unit = value
		default:
			if strings.HasPrefix(value, "=") {
				// Derived-column formula text; the engine recomputes
				// these, so the cell content is ignored.
				if !knownFormula(value) {
					warnings = append(warnings, Warning{
						Code:    WarnUnknownFormula,
						Message: fmt.Sprintf("formula %q in row %q not recognized, treated as 0", value, row.Name),
					})
				}
				continue
			}
			numericSeen = true
			parsed, err := cast.ToFloat64E(strings.ReplaceAll(value, ",", "."))
			if err != nil {
				warnings = append(warnings, Warning{
					Code:    WarnNonNumeric,
					Message: fmt.Sprintf("value %q in row %q is not numeric, treated as 0", value, row.Name),
				})
				parsed = 0
			}
			switch fields[i] {
			case fieldQuantity:
				row.Quantity = parsed
			case fieldPrice:
				row.Price = parsed
			case fieldMarkup:
				row.MarkupPercent = parsed
			case fieldDiscount:
				row.DiscountPercent = parsed
			}
		}
	}

	if empty {
		return nil, nil
	}

	if isTotalMarker(row.Name) {
		row.IsTotal = true
		return &row, warnings
	}

	if row.Name != "" && !numericSeen {
		row.IsHeader = true
		row.Protected = true
	}

	return &row, warnings
}

// knownFormula reports whether a legacy formula string maps onto one of the
// closed derived-column formulas.
func knownFormula(s string) bool {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, "="), " ", ""))
	switch norm {
	case "quantity*price", "price*quantity",
		"quantity*clientprice", "clientprice*quantity":
		return true
	}
	return false
}

func isTotalMarker(name string) bool {
	norm := strings.ToLower(strings.TrimSpace(name))
	for _, marker := range totalMarkers {
		if strings.HasPrefix(norm, marker) {
			return true
		}
	}
	return false
}

// suggestCategory guesses whether an imported file is a materials estimate
// by looking for "материал"/"material" in row names. This heuristic exists
// only for one-shot legacy imports; steady-state computation partitions by
// the explicit document category alone, and the caller is free to override
// the suggestion.
func suggestCategory(rows []FlatRow) string {
	for _, row := range rows {
		norm := strings.ToLower(row.Name)
		if strings.Contains(norm, "материал") || strings.Contains(norm, "material") {
			return CategoryMaterials
		}
	}
	return CategoryWork
}
