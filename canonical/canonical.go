package canonical

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"dealscout/identity"
	"dealscout/models"
)

// Canonicalization failures are structural and never retried.
var (
	ErrMissingAddress = errors.New("candidate has no usable address")
	ErrPriceOverLimit = errors.New("price above configured ceiling")
)

// DefaultPriceCeiling matches the acquisition strategy: anything above it
// is not a wholesaling candidate and is filtered before persistence.
const DefaultPriceCeiling = 200000

const dateLayout = "2006-01-02"

var nonNumericRegex = regexp.MustCompile(`[^\d.]`)

// Canonicalizer turns raw source candidates into Property records with a
// deterministic identity. Safe for concurrent use by fetch workers.
type Canonicalizer struct {
	priceCeiling float64
	now          func() time.Time

	canonicalized atomic.Int64
	dropped       atomic.Int64
	filtered      atomic.Int64
}

// Stats is a point-in-time snapshot of canonicalizer counters.
type Stats struct {
	Canonicalized int64
	Dropped       int64 // missing address
	Filtered      int64 // price over ceiling
}

func New(priceCeiling float64) *Canonicalizer {
	if priceCeiling <= 0 {
		priceCeiling = DefaultPriceCeiling
	}
	return &Canonicalizer{priceCeiling: priceCeiling, now: time.Now}
}

func (c *Canonicalizer) Stats() Stats {
	return Stats{
		Canonicalized: c.canonicalized.Load(),
		Dropped:       c.dropped.Load(),
		Filtered:      c.filtered.Load(),
	}
}

// Canonicalize interprets a raw candidate from the named source. A
// candidate without an address fails with ErrMissingAddress; one priced
// above the ceiling fails with ErrPriceOverLimit (counted, dropped
// silently by callers). Unparseable numeric fields become nil, never an
// error.
func (c *Canonicalizer) Canonicalize(raw models.RawCandidate, sourceName string) (*models.Property, error) {
	address := strings.TrimSpace(raw[models.FieldAddress])
	if address == "" || strings.EqualFold(address, "n/a") {
		c.dropped.Add(1)
		return nil, fmt.Errorf("canonicalize %s candidate: %w", sourceName, ErrMissingAddress)
	}

	listedAt := c.parseDate(raw[models.FieldDate])
	price := ParseFloat(raw[models.FieldPrice])
	if price != nil && *price > c.priceCeiling {
		c.filtered.Add(1)
		return nil, fmt.Errorf("canonicalize %s candidate %q: %w", sourceName, address, ErrPriceOverLimit)
	}

	now := c.now()
	prop := &models.Property{
		ID:           identity.PropertyID(address, sourceName, listedAt.Format(dateLayout)),
		Address:      address,
		City:         strings.TrimSpace(raw[models.FieldCity]),
		State:        strings.TrimSpace(raw[models.FieldState]),
		Zip:          strings.TrimSpace(raw[models.FieldZip]),
		Price:        price,
		Beds:         ParseInt(raw[models.FieldBeds]),
		Baths:        ParseFloat(raw[models.FieldBaths]),
		SqFt:         ParseInt(raw[models.FieldSqFt]),
		PropertyType: models.ParsePropertyType(raw[models.FieldPropertyType]),
		Source:       sourceName,
		URL:          strings.TrimSpace(raw[models.FieldURL]),
		ListedAt:     listedAt,
		RepairCost:   ParseFloat(raw[models.FieldRepairCost]),
		ARV:          ParseFloat(raw[models.FieldARV]),
		DaysOnMarket: ParseInt(raw[models.FieldDaysOnMarket]),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	c.canonicalized.Add(1)
	return prop, nil
}

func (c *Canonicalizer) parseDate(s string) time.Time {
	if t, err := time.Parse(dateLayout, strings.TrimSpace(s)); err == nil {
		return t
	}
	return c.now().Truncate(24 * time.Hour)
}

// ParseFloat extracts a numeric value from free text, tolerating currency
// symbols, thousands separators, and trailing units ("$120,000", "2.5 ba").
// Returns nil when nothing parseable remains.
func ParseFloat(s string) *float64 {
	cleaned := nonNumericRegex.ReplaceAllString(s, "")
	if cleaned == "" || cleaned == "." {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ParseInt is ParseFloat truncated to an int ("3 bd" -> 3, "1,200 sqft" -> 1200).
func ParseInt(s string) *int {
	f := ParseFloat(s)
	if f == nil {
		return nil
	}
	v := int(*f)
	return &v
}
