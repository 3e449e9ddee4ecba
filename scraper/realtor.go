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

// RealtorAdapter scrapes Realtor.com foreclosure search results.
type RealtorAdapter struct {
	cfg    *config.SourceConfig
	client *http.Client
}

func (a *RealtorAdapter) Name() string { return a.cfg.ID }

func (a *RealtorAdapter) Fetch(ctx context.Context, loc models.Locality) ([]models.RawCandidate, error) {
	slug := strings.ReplaceAll(strings.TrimSpace(loc.City), " ", "-")
	searchURL := fmt.Sprintf("%s/realestateandhomes-search/%s_%s/type-single-family-home/show-foreclosures",
		a.cfg.BaseURL, slug, loc.State)

	doc, err := fetchDocument(ctx, a.client, a.Name(), searchURL)
	if err != nil {
		return nil, err
	}
	return a.parse(doc, loc), nil
}

func (a *RealtorAdapter) parse(doc *goquery.Document, loc models.Locality) []models.RawCandidate {
	var candidates []models.RawCandidate

	doc.Find(`li[data-testid*="result-card"], div[class*="PropertyCard"]`).Each(func(_ int, card *goquery.Selection) {
		cand := baseCandidate(loc, "foreclosure")

		addr := card.Find(`div[data-testid="card-address"]`).First()
		if addr.Length() == 0 {
			addr = card.Find(`[class*="address"]`).First()
		}
		cand[models.FieldAddress] = cleanText(addr.Text())

		price := card.Find(`div[data-testid="card-price"]`).First()
		if price.Length() == 0 {
			price = card.Find(`[class*="price"]`).First()
		}
		cand[models.FieldPrice] = cleanText(price.Text())

		link := card.Find(`a[data-testid="property-anchor"]`).First()
		if link.Length() == 0 {
			link = card.Find("a").First()
		}
		cand[models.FieldURL] = resolveURL(a.cfg.BaseURL, link.AttrOr("href", ""))

		card.Find(`ul[data-testid="property-meta"] li`).Each(func(_ int, li *goquery.Selection) {
			text := cleanText(li.Text())
			switch lower := strings.ToLower(text); {
			case strings.Contains(lower, "bed"):
				cand[models.FieldBeds] = text
			case strings.Contains(lower, "bath"):
				cand[models.FieldBaths] = text
			case strings.Contains(lower, "sqft"):
				cand[models.FieldSqFt] = text
			}
		})

		candidates = append(candidates, cand)
	})

	return candidates
}
