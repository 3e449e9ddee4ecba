package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dealscout/config"
	"dealscout/models"
)

// RealtyTracAdapter scrapes RealtyTrac search pages. Listings arrive as
// table rows or card divs depending on the page variant.
type RealtyTracAdapter struct {
	cfg    *config.SourceConfig
	client *http.Client
}

func (a *RealtyTracAdapter) Name() string { return a.cfg.ID }

func (a *RealtyTracAdapter) Fetch(ctx context.Context, loc models.Locality) ([]models.RawCandidate, error) {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(loc.City)), " ", "-")
	searchURL := fmt.Sprintf("%s/mapsearch/sold/in/%s-%s/", a.cfg.BaseURL, slug, strings.ToLower(loc.State))

	doc, err := fetchDocument(ctx, a.client, a.Name(), searchURL)
	if err != nil {
		return nil, err
	}
	return a.parse(doc, loc), nil
}

func (a *RealtyTracAdapter) parse(doc *goquery.Document, loc models.Locality) []models.RawCandidate {
	var candidates []models.RawCandidate

	doc.Find(`tr[class*="property"], div[class*="property-item"]`).Each(func(_ int, row *goquery.Selection) {
		cand := baseCandidate(loc, "foreclosure")

		cand[models.FieldAddress] = cleanText(row.Find(`td.address, [class*="address"]`).First().Text())
		cand[models.FieldPrice] = cleanText(row.Find(`td.price, [class*="price"]`).First().Text())
		cand[models.FieldURL] = resolveURL(a.cfg.BaseURL, row.Find("a").First().AttrOr("href", ""))

		// Table variant carries type/beds/baths/sqft as positional cells.
		cells := row.Find("td")
		if t := cleanText(cells.Eq(2).Text()); t != "" {
			cand[models.FieldPropertyType] = t
		}
		if beds := cleanText(cells.Eq(3).Text()); beds != "" {
			cand[models.FieldBeds] = beds
		}
		if baths := cleanText(cells.Eq(4).Text()); baths != "" {
			cand[models.FieldBaths] = baths
		}
		if sqft := cleanText(cells.Eq(5).Text()); sqft != "" {
			cand[models.FieldSqFt] = sqft
		}

		candidates = append(candidates, cand)
	})

	return candidates
}
