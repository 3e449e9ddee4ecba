package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"dealscout/models"
	"dealscout/storage"
)

func TestExportCSV(t *testing.T) {
	sparse := kokomoProperty("p2")
	sparse.Price = nil
	sparse.Beds = nil
	store := &fakeStore{properties: []models.Property{kokomoProperty("p1"), sparse}}

	path := filepath.Join(t.TempDir(), "out.csv")
	got, err := NewExportService(store).Export(context.Background(), FormatCSV, path, storage.PropertyFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if got != path {
		t.Fatalf("returned path %q, want %q", got, path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header plus 2 records", len(rows))
	}
	if rows[0][0] != "id" || rows[0][5] != "price" {
		t.Fatalf("header = %v", rows[0])
	}
	if rows[1][5] != "120000" {
		t.Fatalf("price cell = %q, want 120000", rows[1][5])
	}
	// Unknown numerics export empty, not zero.
	if rows[2][5] != "" || rows[2][6] != "" {
		t.Fatalf("sparse row = %v, want empty price and beds cells", rows[2])
	}
}

func TestExportJSON(t *testing.T) {
	store := &fakeStore{properties: []models.Property{kokomoProperty("p1")}}

	path := filepath.Join(t.TempDir(), "out.json")
	if _, err := NewExportService(store).Export(context.Background(), FormatJSON, path, storage.PropertyFilter{}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded []models.Property
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 1 || decoded[0].ID != "p1" {
		t.Fatalf("decoded %+v", decoded)
	}
}

func TestExportDefaultFilename(t *testing.T) {
	store := &fakeStore{}
	svc := NewExportService(store)

	dir := t.TempDir()
	cwd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	path, err := svc.Export(context.Background(), FormatJSON, "", storage.PropertyFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(path) != ".json" {
		t.Fatalf("default filename %q lacks format extension", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not written: %v", err)
	}
}
