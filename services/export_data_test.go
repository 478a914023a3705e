package services

import (
	"bytes"
	"strings"
	"testing"
)

func buildExportDoc(t *testing.T) *Document {
	t.Helper()

	policy := DefaultCalcPolicy()
	doc := NewDocument(CategoryWork, policy)
	prep := doc.AddSection("Preparatory works", PositionEnd)
	prepID := prep.ID
	main := doc.AddSection("Main works", PositionEnd)
	mainID := main.ID

	if _, err := doc.AddItem(prepID, ItemDraft{Name: "Scaffolding", Unit: "pcs", Quantity: 2, Price: 350}, policy); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if _, err := doc.AddItem(mainID, ItemDraft{Name: "Stage one", IsHeader: true}, policy); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if _, err := doc.AddItem(mainID, ItemDraft{Name: "Plastering", Unit: "m2", Quantity: 10, Price: 120}, policy); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}

	return doc
}

func TestBuildExportData(t *testing.T) {
	doc := buildExportDoc(t)
	data := BuildExportData("Renovation", "2026-08-30", doc)

	if data.Title != "Renovation" || data.Category != CategoryWork {
		t.Errorf("header = %q/%q", data.Title, data.Category)
	}

	if len(data.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(data.Rows))
	}

	expectIndexes := []string{"1", "1.1", "2", "2.1", "2.2"}
	for i, want := range expectIndexes {
		if data.Rows[i].Index != want {
			t.Errorf("row %d index = %q, want %q", i, data.Rows[i].Index, want)
		}
	}

	if !data.Rows[0].IsSection || data.Rows[0].Name != "Preparatory works" {
		t.Errorf("row 0 should be the first section heading, got %+v", data.Rows[0])
	}
	if !data.Rows[3].IsHeader {
		t.Errorf("row 3 should be the visual label, got %+v", data.Rows[3])
	}

	// 700 + 1200 base, 840 + 1440 client.
	if !almostEqual(data.Totals.GrandTotal, 1900) {
		t.Errorf("GrandTotal = %v, want 1900", data.Totals.GrandTotal)
	}
	if !almostEqual(data.Amount, 2280) {
		t.Errorf("Amount = %v, want the client grand total 2280", data.Amount)
	}
	if data.AmountFormatted != "2 280,00 ₽" {
		t.Errorf("AmountFormatted = %q", data.AmountFormatted)
	}
	if !strings.Contains(data.AmountInWords, "Two Thousand Two Hundred and Eighty") {
		t.Errorf("AmountInWords = %q", data.AmountInWords)
	}
}

func TestBuildExportData_UsesResolveAmountFallback(t *testing.T) {
	// A degraded document with zeroed totals still exports the walked sum.
	doc := &Document{
		Category: CategoryWork,
		Sections: []Section{{ID: "s1", Title: "Works", Items: []LineItem{{Name: "A", ClientCost: 1000}}}},
	}

	data := BuildExportData("Legacy", "", doc)
	if !almostEqual(data.Amount, 1000) {
		t.Errorf("Amount = %v, want 1000 via the manual walk", data.Amount)
	}
}

func TestWriteCSV(t *testing.T) {
	doc := buildExportDoc(t)
	data := BuildExportData("Renovation", "2026-08-30", doc)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, data); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	// header + 5 rows + 4 totals lines
	if len(lines) != 10 {
		t.Fatalf("expected 10 csv lines, got %d:\n%s", len(lines), out)
	}

	if !strings.HasPrefix(lines[0], "No.,Name,Unit") {
		t.Errorf("unexpected csv header: %q", lines[0])
	}
	if !strings.Contains(out, "Plastering") {
		t.Error("csv should contain item names")
	}
	if !strings.Contains(out, "Grand total") {
		t.Error("csv should contain the totals block")
	}
	if !strings.Contains(out, "1900") {
		t.Error("csv should contain the grand total value")
	}
}
