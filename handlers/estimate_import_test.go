package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xuri/excelize/v2"

	"estimator/services"
	"estimator/testhelpers"
)

func buildUploadSheet(t *testing.T, rows [][]any) *bytes.Buffer {
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

func buildUploadRequest(t *testing.T, sheet *bytes.Buffer, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "old-estimate.xlsx")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(sheet.Bytes()); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write form field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/estimates/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandleEstimateImport(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	policy := services.DefaultCalcPolicy()

	sheet := buildUploadSheet(t, [][]any{
		{"Name", "Unit", "Quantity", "Price"},
		{"Preparatory works", "", "", ""},
		{"Demolition", "m2", 12, 250},
		{"Debris removal", "m3", 3, 500},
	})
	req := buildUploadRequest(t, sheet, map[string]string{"title": "Migrated estimate"})

	handler := HandleEstimateImport(app, policy)
	rec := httptest.NewRecorder()
	if err := handler(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeJSONResponse(t, rec)
	if resp["title"] != "Migrated estimate" {
		t.Errorf("title = %v", resp["title"])
	}
	if resp["category"] != "work" {
		t.Errorf("category = %v, want work suggestion", resp["category"])
	}

	id, _ := resp["id"].(string)
	stored, _, err := services.NewGateway(app).Load(id)
	if err != nil {
		t.Fatalf("failed to load imported document: %v", err)
	}
	if len(stored.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(stored.Sections))
	}
	if got := len(stored.Sections[0].Items); got != 2 {
		t.Errorf("expected 2 items, got %d", got)
	}
	// 12*250 + 3*500 = 4500, client side 5400 at the default markup
	if stored.Totals.ClientGrandTotal != 5400 {
		t.Errorf("client grand total = %v, want 5400", stored.Totals.ClientGrandTotal)
	}
}

func TestHandleEstimateImport_TitleFromFilename(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	policy := services.DefaultCalcPolicy()

	sheet := buildUploadSheet(t, [][]any{
		{"Наименование", "Ед. изм.", "Кол-во", "Цена"},
		{"Цемент М500", "мешок", 10, 420},
	})
	req := buildUploadRequest(t, sheet, map[string]string{"category": "materials"})

	handler := HandleEstimateImport(app, policy)
	rec := httptest.NewRecorder()
	if err := handler(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeJSONResponse(t, rec)
	if resp["title"] != "old-estimate" {
		t.Errorf("title = %v, want filename fallback", resp["title"])
	}
	if resp["category"] != "materials" {
		t.Errorf("category = %v, want the pinned form value", resp["category"])
	}
}

func TestHandleEstimateImport_MissingFile(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("title", "No file"); err != nil {
		t.Fatalf("write form field: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/estimates/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	handler := HandleEstimateImport(app, services.DefaultCalcPolicy())
	rec := httptest.NewRecorder()
	if err := handler(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleEstimateImport_HeaderOnlySheet(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	sheet := buildUploadSheet(t, [][]any{
		{"Name", "Unit", "Quantity", "Price"},
	})
	req := buildUploadRequest(t, sheet, nil)

	handler := HandleEstimateImport(app, services.DefaultCalcPolicy())
	rec := httptest.NewRecorder()
	if err := handler(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}
