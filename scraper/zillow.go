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

// ZillowAdapter scrapes Zillow search result pages for foreclosure
// candidates.
type ZillowAdapter struct {
	cfg    *config.SourceConfig
	client *http.Client
}

func (a *ZillowAdapter) Name() string { return a.cfg.ID }

func (a *ZillowAdapter) Fetch(ctx context.Context, loc models.Locality) ([]models.RawCandidate, error) {
	slug := strings.ReplaceAll(strings.TrimSpace(loc.City), " ", "-")
	searchURL := fmt.Sprintf("%s/homes/%s-%s_rb/", a.cfg.BaseURL, slug, loc.State)

	doc, err := fetchDocument(ctx, a.client, a.Name(), searchURL)
	if err != nil {
		return nil, err
	}
	return a.parse(doc, loc), nil
}

func (a *ZillowAdapter) parse(doc *goquery.Document, loc models.Locality) []models.RawCandidate {
	var candidates []models.RawCandidate

	doc.Find(`article[class*="list-card"], div[data-test="property-card"]`).Each(func(_ int, card *goquery.Selection) {
		cand := baseCandidate(loc, "foreclosure")

		addr := card.Find(`address, a[data-test="property-card-addr"]`).First()
		cand[models.FieldAddress] = cleanText(addr.Text())

		price := card.Find(`span[data-test="property-card-price"], div[class*="list-card-price"]`).First()
		cand[models.FieldPrice] = cleanText(price.Text())

		link := card.Find(`a[data-test="property-card-link"], a[class*="list-card-link"]`).First()
		cand[models.FieldURL] = resolveURL(a.cfg.BaseURL, link.AttrOr("href", ""))

		card.Find(`ul[class*="list-card-details"] li`).Each(func(_ int, li *goquery.Selection) {
			text := cleanText(li.Text())
			switch lower := strings.ToLower(text); {
			case strings.Contains(lower, "bd"):
				cand[models.FieldBeds] = text
			case strings.Contains(lower, "ba"):
				cand[models.FieldBaths] = text
			case strings.Contains(lower, "sqft"):
				cand[models.FieldSqFt] = text
			}
		})

		candidates = append(candidates, cand)
	})

	return candidates
}
