package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dealscout/identity"
	"dealscout/models"
)

func newAddBuyerCmd(a *app) *cobra.Command {
	var (
		name     string
		email    string
		minPrice float64
		maxPrice float64
		areas    []string
		types    []string
		minBeds  int
		minBaths float64
		minSqFt  int
	)

	cmd := &cobra.Command{
		Use:   "add-buyer",
		Short: "Register or update a buyer subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			propertyTypes := make([]models.PropertyType, 0, len(types))
			for _, t := range types {
				pt := models.ParsePropertyType(t)
				if pt == models.TypeUnknown {
					return fmt.Errorf("unknown property type %q", t)
				}
				propertyTypes = append(propertyTypes, pt)
			}

			now := time.Now()
			buyer := &models.Buyer{
				ID:            identity.BuyerID(email, name),
				Name:          name,
				Email:         email,
				MinPrice:      minPrice,
				MaxPrice:      maxPrice,
				Localities:    areas,
				PropertyTypes: propertyTypes,
				MinBeds:       minBeds,
				MinBaths:      minBaths,
				MinSqFt:       minSqFt,
				Active:        true,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := buyer.Validate(); err != nil {
				return err
			}
			if err := a.store.UpsertBuyer(cmd.Context(), buyer); err != nil {
				return err
			}
			fmt.Printf("buyer %s registered (%s)\n", buyer.Name, buyer.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "buyer name")
	cmd.Flags().StringVar(&email, "email", "", "buyer email (required)")
	cmd.Flags().Float64Var(&minPrice, "min-price", 0, "minimum purchase price")
	cmd.Flags().Float64Var(&maxPrice, "max-price", 0, "maximum purchase price (required)")
	cmd.Flags().StringSliceVar(&areas, "areas", nil, `preferred localities, e.g. "Kokomo, IN" (empty accepts any)`)
	cmd.Flags().StringSliceVar(&types, "types", nil, "preferred property types: foreclosure, auction, reo")
	cmd.Flags().IntVar(&minBeds, "min-beds", 0, "minimum bedrooms")
	cmd.Flags().Float64Var(&minBaths, "min-baths", 0, "minimum bathrooms")
	cmd.Flags().IntVar(&minSqFt, "min-sqft", 0, "minimum square footage")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("max-price")

	return cmd
}
