package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// ExportRow represents a single row in the estimate export: a section
// heading, a visual label, or a priced line item.
type ExportRow struct {
	Index           string  `json:"index"` // "1" for sections, "1.1" for items
	Name            string  `json:"name"`
	Unit            string  `json:"unit,omitempty"`
	Quantity        float64 `json:"quantity"`
	Price           float64 `json:"price"`
	Cost            float64 `json:"cost"`
	MarkupPercent   float64 `json:"markup_percent"`
	DiscountPercent float64 `json:"discount_percent"`
	ClientPrice     float64 `json:"client_price"`
	ClientCost      float64 `json:"client_cost"`
	IsSection       bool    `json:"is_section,omitempty"`
	IsHeader        bool    `json:"is_header,omitempty"`
}

// ExportData holds everything a report collaborator needs to render an
// estimate. Amount comes from ResolveAmount so every rendering shows the
// same client-facing number.
type ExportData struct {
	Title           string      `json:"title"`
	Category        string      `json:"category"`
	CreatedDate     string      `json:"created_date,omitempty"`
	Columns         []Column    `json:"columns"`
	Rows            []ExportRow `json:"rows"`
	Totals          Totals      `json:"totals"`
	Amount          float64     `json:"amount"`
	AmountFormatted string      `json:"amount_formatted"`
	AmountInWords   string      `json:"amount_in_words"`
}

// BuildExportData assembles the read-only export view of a document.
// Sections are numbered "1", "2", ... and items "1.1", "1.2", ... within
// their section. The document is not modified.
func BuildExportData(title, createdDate string, doc *Document) ExportData {
	var rows []ExportRow

	for si, section := range doc.Sections {
		rows = append(rows, ExportRow{
			Index:     strconv.Itoa(si + 1),
			Name:      section.Title,
			IsSection: true,
		})
		for ii, item := range section.Items {
			rows = append(rows, ExportRow{
				Index:           fmt.Sprintf("%d.%d", si+1, ii+1),
				Name:            item.Name,
				Unit:            item.Unit,
				Quantity:        item.Quantity,
				Price:           item.Price,
				Cost:            item.Cost,
				MarkupPercent:   item.MarkupPercent,
				DiscountPercent: item.DiscountPercent,
				ClientPrice:     item.ClientPrice,
				ClientCost:      item.ClientCost,
				IsHeader:        item.IsHeader,
			})
		}
	}

	amount := ResolveAmount(doc)

	return ExportData{
		Title:           title,
		Category:        doc.Category,
		CreatedDate:     createdDate,
		Columns:         doc.Structure,
		Rows:            rows,
		Totals:          doc.Totals,
		Amount:          amount,
		AmountFormatted: FormatRUB(amount),
		AmountInWords:   AmountToWords(amount),
	}
}

// WriteCSV writes the export rows plus a totals block as CSV.
func WriteCSV(w io.Writer, data ExportData) error {
	cw := csv.NewWriter(w)

	header := []string{"No.", "Name", "Unit", "Quantity", "Price", "Cost", "Markup %", "Discount %", "Client price", "Client cost"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, row := range data.Rows {
		if row.IsSection || row.IsHeader {
			if err := cw.Write([]string{row.Index, row.Name, "", "", "", "", "", "", "", ""}); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
			continue
		}
		record := []string{
			row.Index,
			row.Name,
			row.Unit,
			formatNumber(row.Quantity),
			formatNumber(row.Price),
			formatNumber(row.Cost),
			formatNumber(row.MarkupPercent),
			formatNumber(row.DiscountPercent),
			formatNumber(row.ClientPrice),
			formatNumber(row.ClientCost),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	totalRows := [][]string{
		{"", "Work total", "", "", "", formatNumber(data.Totals.WorkTotal), "", "", "", formatNumber(data.Totals.ClientWorkTotal)},
		{"", "Materials total", "", "", "", formatNumber(data.Totals.MaterialsTotal), "", "", "", formatNumber(data.Totals.ClientMaterialsTotal)},
		{"", "Grand total", "", "", "", formatNumber(data.Totals.GrandTotal), "", "", "", formatNumber(data.Totals.ClientGrandTotal)},
		{"", "Amount in words", data.AmountInWords, "", "", "", "", "", "", ""},
	}
	for _, record := range totalRows {
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv totals: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
