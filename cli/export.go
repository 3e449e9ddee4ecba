package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"dealscout/services"
	"dealscout/storage"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		format   string
		output   string
		source   string
		city     string
		maxPrice float64
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored properties to a CSV or JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := services.ExportFormat(format)
			if f != services.FormatCSV && f != services.FormatJSON {
				return fmt.Errorf("format must be csv or json, got %q", format)
			}
			filter := storage.PropertyFilter{Source: source, City: city, MaxPrice: maxPrice}
			path, err := services.NewExportService(a.store).Export(cmd.Context(), f, output, filter)
			if err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "output format: csv or json")
	cmd.Flags().StringVar(&output, "output", "", "output path (default: timestamped filename)")
	cmd.Flags().StringVar(&source, "source", "", "only properties from this source")
	cmd.Flags().StringVar(&city, "city", "", "only properties in this city")
	cmd.Flags().Float64Var(&maxPrice, "max-price", 0, "only properties at or below this price")

	return cmd
}
