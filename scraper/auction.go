package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"dealscout/config"
	"dealscout/models"
)

var (
	bedsRegex  = regexp.MustCompile(`(?i)(\d+)\s*bed`)
	bathsRegex = regexp.MustCompile(`(?i)([\d.]+)\s*bath`)
	sqftRegex  = regexp.MustCompile(`(?i)([\d,]+)\s*sq`)
)

// AuctionAdapter scrapes Auction.com residential search results.
type AuctionAdapter struct {
	cfg    *config.SourceConfig
	client *http.Client
}

func (a *AuctionAdapter) Name() string { return a.cfg.ID }

func (a *AuctionAdapter) Fetch(ctx context.Context, loc models.Locality) ([]models.RawCandidate, error) {
	searchURL := fmt.Sprintf("%s/residential/search?searchType=Residential&state=%s&city=%s",
		a.cfg.BaseURL, url.QueryEscape(loc.State), url.QueryEscape(loc.City))

	doc, err := fetchDocument(ctx, a.client, a.Name(), searchURL)
	if err != nil {
		return nil, err
	}
	return a.parse(doc, loc), nil
}

func (a *AuctionAdapter) parse(doc *goquery.Document, loc models.Locality) []models.RawCandidate {
	var candidates []models.RawCandidate

	doc.Find(`div[class*="property-card"], article[class*="property"]`).Each(func(_ int, card *goquery.Selection) {
		cand := baseCandidate(loc, "auction")

		cand[models.FieldAddress] = cleanText(card.Find(`[class*="address"]`).First().Text())
		cand[models.FieldPrice] = cleanText(card.Find(`[class*="price"]`).First().Text())
		cand[models.FieldURL] = resolveURL(a.cfg.BaseURL, card.Find("a").First().AttrOr("href", ""))

		// Bed/bath/sqft live in one free-text details blob.
		details := card.Find(`[class*="details"]`).First().Text()
		if m := bedsRegex.FindStringSubmatch(details); m != nil {
			cand[models.FieldBeds] = m[1]
		}
		if m := bathsRegex.FindStringSubmatch(details); m != nil {
			cand[models.FieldBaths] = m[1]
		}
		if m := sqftRegex.FindStringSubmatch(details); m != nil {
			cand[models.FieldSqFt] = m[1]
		}

		candidates = append(candidates, cand)
	})

	return candidates
}
