package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"dealscout/models"
	"dealscout/storage"
)

// ExportFormat selects the serialization for property exports.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportService writes the stored property inventory to a file for
// downstream spreadsheet or tooling consumption.
type ExportService struct {
	store storage.Store
	now   func() time.Time
}

func NewExportService(store storage.Store) *ExportService {
	return &ExportService{store: store, now: time.Now}
}

// Export writes all stored properties matching the filter. An empty path
// gets a timestamped default filename. Returns the path written.
func (s *ExportService) Export(ctx context.Context, format ExportFormat, path string, filter storage.PropertyFilter) (string, error) {
	properties, err := s.store.ListProperties(ctx, filter)
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}

	if path == "" {
		path = fmt.Sprintf("properties_%s.%s", s.now().Format("20060102_150405"), format)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	defer f.Close()

	switch format {
	case FormatCSV:
		err = writeCSV(f, properties)
	case FormatJSON:
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		err = enc.Encode(properties)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	return path, nil
}

func writeCSV(f *os.File, properties []models.Property) error {
	w := csv.NewWriter(f)
	header := []string{"id", "address", "city", "state", "zip", "price", "beds", "baths",
		"sqft", "property_type", "source", "url", "listed_at"}
	if err := w.Write(header); err != nil {
		return err
	}
	for i := range properties {
		p := &properties[i]
		row := []string{
			p.ID, p.Address, p.City, p.State, p.Zip,
			floatCell(p.Price), intCell(p.Beds), floatCell(p.Baths), intCell(p.SqFt),
			string(p.PropertyType), p.Source, p.URL,
			p.ListedAt.Format("2006-01-02"),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Unknown numerics export as empty cells, not zeroes.
func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
