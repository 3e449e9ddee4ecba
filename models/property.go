package models

import (
	"fmt"
	"strings"
	"time"
)

// PropertyType classifies the distress category of a listing.
type PropertyType string

const (
	TypeForeclosure PropertyType = "foreclosure"
	TypeAuction     PropertyType = "auction"
	TypeREO         PropertyType = "reo"
	TypeUnknown     PropertyType = "unknown"
)

// ParsePropertyType maps free-text source labels onto the known categories.
// Anything unrecognized collapses to TypeUnknown rather than failing.
func ParsePropertyType(s string) PropertyType {
	switch t := strings.ToLower(strings.TrimSpace(s)); {
	case strings.Contains(t, "foreclos"):
		return TypeForeclosure
	case strings.Contains(t, "auction"):
		return TypeAuction
	case strings.Contains(t, "reo"), strings.Contains(t, "bank owned"), strings.Contains(t, "bank-owned"):
		return TypeREO
	default:
		return TypeUnknown
	}
}

// Property is a canonical listing record. Numeric fields are pointers:
// nil means the source text did not parse ("unknown"), which scores
// differently from zero.
type Property struct {
	ID           string       `json:"id" db:"id"`
	Address      string       `json:"address" db:"address"`
	City         string       `json:"city" db:"city"`
	State        string       `json:"state" db:"state"`
	Zip          string       `json:"zip" db:"zip"`
	Price        *float64     `json:"price" db:"price"`
	Beds         *int         `json:"beds" db:"beds"`
	Baths        *float64     `json:"baths" db:"baths"`
	SqFt         *int         `json:"sqft" db:"sqft"`
	PropertyType PropertyType `json:"property_type" db:"property_type"`
	Source       string       `json:"source" db:"source"`
	URL          string       `json:"url" db:"url"`
	ListedAt     time.Time    `json:"listed_at" db:"listed_at"`
	RepairCost   *float64     `json:"repair_cost" db:"repair_cost"`
	ARV          *float64     `json:"arv" db:"arv"`
	DaysOnMarket *int         `json:"days_on_market" db:"days_on_market"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// Locality returns the (city, state) matching unit for this property.
func (p *Property) Locality() Locality {
	return Locality{City: p.City, State: p.State}
}

// Locality is a (city, state) pair used as the geographic matching unit.
type Locality struct {
	City  string `yaml:"city"`
	State string `yaml:"state"`
}

func (l Locality) String() string {
	if l.State == "" {
		return l.City
	}
	return fmt.Sprintf("%s, %s", l.City, l.State)
}

// Key is a normalized form for set membership and map keys.
func (l Locality) Key() string {
	return strings.ToLower(strings.TrimSpace(l.City)) + "|" + strings.ToLower(strings.TrimSpace(l.State))
}

// RawCandidate is an unstructured field-name to free-text mapping produced
// by source adapters. The canonicalizer is solely responsible for
// interpreting it.
type RawCandidate map[string]string

// Well-known RawCandidate keys. Adapters fill what they can; everything
// is optional except the address.
const (
	FieldAddress      = "address"
	FieldPrice        = "price"
	FieldBeds         = "beds"
	FieldBaths        = "baths"
	FieldSqFt         = "sqft"
	FieldPropertyType = "property_type"
	FieldURL          = "url"
	FieldCity         = "city"
	FieldState        = "state"
	FieldZip          = "zip"
	FieldDate         = "date"
	FieldRepairCost   = "repair_cost"
	FieldARV          = "arv"
	FieldDaysOnMarket = "days_on_market"
)
