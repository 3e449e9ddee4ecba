package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dealscout/config"
	"dealscout/models"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Adapter turns a locality query into raw candidate records for one
// remote source. Adapters signal rate limiting and server trouble as
// transient FetchErrors so the retry envelope can back off.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, loc models.Locality) ([]models.RawCandidate, error)
}

// NewAdapter builds the adapter for a configured source.
func NewAdapter(cfg *config.SourceConfig, client *http.Client) (Adapter, error) {
	switch cfg.ID {
	case "zillow":
		return &ZillowAdapter{cfg: cfg, client: client}, nil
	case "realtytrac":
		return &RealtyTracAdapter{cfg: cfg, client: client}, nil
	case "auction_com":
		return &AuctionAdapter{cfg: cfg, client: client}, nil
	case "realtor_com":
		return &RealtorAdapter{cfg: cfg, client: client}, nil
	default:
		return nil, fmt.Errorf("unknown source: %s", cfg.ID)
	}
}

// fetchDocument issues a GET and parses the body. Network failures and
// retryable statuses come back as transient FetchErrors.
func fetchDocument(ctx context.Context, client *http.Client, source, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Source: source, Kind: KindTerminal, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &FetchError{Source: source, Kind: KindTransient, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{
			Source: source,
			Status: resp.StatusCode,
			Kind:   classifyStatus(resp.StatusCode),
			Err:    fmt.Errorf("unexpected status"),
		}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &FetchError{Source: source, Kind: KindTerminal, Err: err}
	}
	return doc, nil
}

// resolveURL turns a relative listing link into an absolute one.
func resolveURL(base, href string) string {
	if href == "" || href == "#" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// baseCandidate seeds a raw candidate with the locality and source URL
// fields every adapter fills the same way.
func baseCandidate(loc models.Locality, propertyType string) models.RawCandidate {
	return models.RawCandidate{
		models.FieldCity:         loc.City,
		models.FieldState:        loc.State,
		models.FieldPropertyType: propertyType,
	}
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
