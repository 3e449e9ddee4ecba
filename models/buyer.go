package models

import (
	"fmt"
	"strings"
	"time"
)

// Buyer is a standing subscription with acquisition criteria. Empty
// preference slices mean "no preference" (accept any), not "accept none".
type Buyer struct {
	ID            string         `json:"id" db:"id"`
	Name          string         `json:"name" db:"name"`
	Email         string         `json:"email" db:"email"`
	MinPrice      float64        `json:"min_price" db:"min_price"`
	MaxPrice      float64        `json:"max_price" db:"max_price"`
	Localities    []string       `json:"localities" db:"localities"`
	PropertyTypes []PropertyType `json:"property_types" db:"property_types"`
	MinBeds       int            `json:"min_beds" db:"min_beds"`
	MinBaths      float64        `json:"min_baths" db:"min_baths"`
	MinSqFt       int            `json:"min_sqft" db:"min_sqft"`
	Active        bool           `json:"active" db:"active"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// Validate checks the invariants enforced at registration time.
func (b *Buyer) Validate() error {
	if strings.TrimSpace(b.Email) == "" {
		return fmt.Errorf("buyer %q: email is required", b.Name)
	}
	if b.MinPrice < 0 {
		return fmt.Errorf("buyer %q: min price %v is negative", b.Name, b.MinPrice)
	}
	if b.MaxPrice < b.MinPrice {
		return fmt.Errorf("buyer %q: price band [%v, %v] is inverted", b.Name, b.MinPrice, b.MaxPrice)
	}
	return nil
}

// WantsLocality reports whether the property's locality is acceptable.
// An empty preference set accepts any locality. A buyer entry without a
// state ("Kokomo") matches on city alone; with one ("Kokomo, IN") the
// state must match too.
func (b *Buyer) WantsLocality(loc Locality) bool {
	if len(b.Localities) == 0 {
		return true
	}
	city := strings.ToLower(strings.TrimSpace(loc.City))
	state := strings.ToLower(strings.TrimSpace(loc.State))
	for _, pref := range b.Localities {
		prefCity, prefState := splitLocality(pref)
		if prefCity != city {
			continue
		}
		if prefState == "" || prefState == state {
			return true
		}
	}
	return false
}

// WantsType reports whether the property type is in the preferred set.
// Callers treat an empty set as "no preference"; this returns false for
// it so the scorer can award the distinct no-preference credit.
func (b *Buyer) WantsType(t PropertyType) bool {
	for _, pt := range b.PropertyTypes {
		if pt == t {
			return true
		}
	}
	return false
}

func splitLocality(s string) (city, state string) {
	parts := strings.SplitN(s, ",", 2)
	city = strings.ToLower(strings.TrimSpace(parts[0]))
	if len(parts) == 2 {
		state = strings.ToLower(strings.TrimSpace(parts[1]))
	}
	return city, state
}
