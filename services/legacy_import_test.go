package services

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildTestSheet(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for ri, cells := range rows {
		for ci, value := range cells {
			cell, err := excelize.CoordinatesToCellName(ci+1, ri+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue("Sheet1", cell, value); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	return buf
}

func TestImportSpreadsheet(t *testing.T) {
	policy := DefaultCalcPolicy()

	buf := buildTestSheet(t, [][]any{
		{"Наименование", "Ед. изм.", "Кол-во", "Цена"},
		{"Подготовительные работы", "", "", ""},
		{"Демонтаж перегородок", "м2", 12, 250},
		{"Вынос мусора", "м3", 3, 500},
		{"Основные работы", "", "", ""},
		{"Штукатурка стен", "м2", 40, 350},
	})

	result, err := ImportSpreadsheet(buf, policy)
	if err != nil {
		t.Fatalf("ImportSpreadsheet() error = %v", err)
	}

	if len(result.Document.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(result.Document.Sections))
	}
	first := result.Document.Sections[0]
	if first.Title != "Подготовительные работы" || len(first.Items) != 2 {
		t.Errorf("first section = %q with %d items", first.Title, len(first.Items))
	}
	second := result.Document.Sections[1]
	if second.Title != "Основные работы" || len(second.Items) != 1 {
		t.Errorf("second section = %q with %d items", second.Title, len(second.Items))
	}

	item := second.Items[0]
	if item.Quantity != 40 || item.Price != 350 {
		t.Errorf("item = %+v", item)
	}
	if item.MarkupPercent != 20 {
		t.Errorf("imported rows must take the default markup, got %v", item.MarkupPercent)
	}

	// 12*250 + 3*500 + 40*350 = 18500 base
	if !almostEqual(result.Document.Totals.WorkTotal, 18500) {
		t.Errorf("WorkTotal = %v, want 18500", result.Document.Totals.WorkTotal)
	}
	if result.SuggestedCategory != CategoryWork {
		t.Errorf("SuggestedCategory = %q, want %q", result.SuggestedCategory, CategoryWork)
	}
}

func TestImportSpreadsheet_MaterialsSuggestion(t *testing.T) {
	buf := buildTestSheet(t, [][]any{
		{"Наименование", "Кол-во", "Цена"},
		{"Материалы", "", ""},
		{"Цемент М500", 10, 420},
	})

	result, err := ImportSpreadsheet(buf, DefaultCalcPolicy())
	if err != nil {
		t.Fatalf("ImportSpreadsheet() error = %v", err)
	}
	if result.SuggestedCategory != CategoryMaterials {
		t.Errorf("SuggestedCategory = %q, want %q", result.SuggestedCategory, CategoryMaterials)
	}
	if !almostEqual(result.Document.Totals.MaterialsTotal, 4200) {
		t.Errorf("MaterialsTotal = %v, want 4200", result.Document.Totals.MaterialsTotal)
	}
}

func TestImportSpreadsheet_TotalMarkerRow(t *testing.T) {
	buf := buildTestSheet(t, [][]any{
		{"Name", "Quantity", "Price"},
		{"Works", "", ""},
		{"Painting", 2, 100},
		{"Итого", "", 88000},
	})

	result, err := ImportSpreadsheet(buf, DefaultCalcPolicy())
	if err != nil {
		t.Fatalf("ImportSpreadsheet() error = %v", err)
	}

	var marker *LineItem
	for _, section := range result.Document.Sections {
		for i := range section.Items {
			if section.Items[i].IsTotal {
				marker = &section.Items[i]
			}
		}
	}
	if marker == nil {
		t.Fatal("expected the Итого row to be tagged as a total marker")
	}

	// The marker never contributes to recomputed totals.
	if !almostEqual(result.Document.Totals.WorkTotal, 200) {
		t.Errorf("WorkTotal = %v, want 200", result.Document.Totals.WorkTotal)
	}
}

func TestImportSpreadsheet_BadValuesWarn(t *testing.T) {
	buf := buildTestSheet(t, [][]any{
		{"Name", "Quantity", "Price", "Mystery"},
		{"Works", "", "", ""},
		{"Painting", "many", 100, "x"},
	})

	result, err := ImportSpreadsheet(buf, DefaultCalcPolicy())
	if err != nil {
		t.Fatalf("ImportSpreadsheet() error = %v", err)
	}

	codes := make(map[string]bool)
	for _, w := range result.Warnings {
		codes[w.Code] = true
	}
	if !codes[WarnNonNumeric] {
		t.Errorf("expected a %s warning, got %+v", WarnNonNumeric, result.Warnings)
	}
	if !codes[WarnUnknownColumn] {
		t.Errorf("expected a %s warning, got %+v", WarnUnknownColumn, result.Warnings)
	}

	item := result.Document.Sections[0].Items[0]
	if item.Quantity != 0 || item.Price != 100 {
		t.Errorf("item = %+v, want quantity coerced to 0", item)
	}
}

func TestImportSpreadsheet_FormulaCellsIgnored(t *testing.T) {
	buf := buildTestSheet(t, [][]any{
		{"Name", "Quantity", "Price"},
		{"Works", "", ""},
		{"Painting", 2, "=quantity*price"},
	})

	result, err := ImportSpreadsheet(buf, DefaultCalcPolicy())
	if err != nil {
		t.Fatalf("ImportSpreadsheet() error = %v", err)
	}

	item := result.Document.Sections[0].Items[0]
	if item.Price != 0 {
		t.Errorf("formula cell must not parse as a price, got %v", item.Price)
	}
	if item.IsHeader {
		t.Error("a row with a quantity is not a section boundary")
	}
}

func TestImportSpreadsheet_TooShort(t *testing.T) {
	buf := buildTestSheet(t, [][]any{{"Name", "Quantity", "Price"}})

	if _, err := ImportSpreadsheet(buf, DefaultCalcPolicy()); err == nil {
		t.Error("expected an error for a header-only file")
	}
}
