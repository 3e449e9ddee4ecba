package canonical

import (
	"errors"
	"testing"

	"dealscout/models"
)

func baseRaw() models.RawCandidate {
	return models.RawCandidate{
		models.FieldAddress:      "123 Main Street",
		models.FieldCity:         "Kokomo",
		models.FieldState:        "IN",
		models.FieldPrice:        "$120,000",
		models.FieldBeds:         "3 bds",
		models.FieldBaths:        "2.5 ba",
		models.FieldSqFt:         "1,200 sqft",
		models.FieldPropertyType: "Foreclosure",
		models.FieldDate:         "2026-01-15",
	}
}

func TestCanonicalizeIdentityIsStable(t *testing.T) {
	c := New(0)

	a, err := c.Canonicalize(baseRaw(), "zillow")
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Canonicalize(baseRaw(), "zillow")
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != b.ID {
		t.Fatalf("same candidate produced different identities: %s vs %s", a.ID, b.ID)
	}

	// A cosmetically different rendering of the same address collides.
	varied := baseRaw()
	varied[models.FieldAddress] = "123 MAIN ST."
	v, err := c.Canonicalize(varied, "zillow")
	if err != nil {
		t.Fatal(err)
	}
	if v.ID != a.ID {
		t.Fatalf("equivalent addresses produced different identities: %s vs %s", v.ID, a.ID)
	}

	// The same address from another source is a distinct record.
	other, err := c.Canonicalize(baseRaw(), "realtor_com")
	if err != nil {
		t.Fatal(err)
	}
	if other.ID == a.ID {
		t.Fatal("different sources must not collide")
	}
}

func TestCanonicalizeFields(t *testing.T) {
	c := New(0)
	p, err := c.Canonicalize(baseRaw(), "zillow")
	if err != nil {
		t.Fatal(err)
	}

	if p.Price == nil || *p.Price != 120000 {
		t.Fatalf("price = %v, want 120000", p.Price)
	}
	if p.Beds == nil || *p.Beds != 3 {
		t.Fatalf("beds = %v, want 3", p.Beds)
	}
	if p.Baths == nil || *p.Baths != 2.5 {
		t.Fatalf("baths = %v, want 2.5", p.Baths)
	}
	if p.SqFt == nil || *p.SqFt != 1200 {
		t.Fatalf("sqft = %v, want 1200", p.SqFt)
	}
	if p.PropertyType != models.TypeForeclosure {
		t.Fatalf("type = %s, want foreclosure", p.PropertyType)
	}
	if p.ListedAt.Format("2006-01-02") != "2026-01-15" {
		t.Fatalf("listed at = %s, want 2026-01-15", p.ListedAt)
	}
}

func TestCanonicalizeMissingAddress(t *testing.T) {
	c := New(0)

	for _, addr := range []string{"", "  ", "N/A", "n/a"} {
		raw := baseRaw()
		raw[models.FieldAddress] = addr
		_, err := c.Canonicalize(raw, "zillow")
		if !errors.Is(err, ErrMissingAddress) {
			t.Fatalf("address %q: expected ErrMissingAddress, got %v", addr, err)
		}
	}
	if got := c.Stats().Dropped; got != 4 {
		t.Fatalf("dropped = %d, want 4", got)
	}
}

func TestCanonicalizePriceCeiling(t *testing.T) {
	c := New(200000)

	raw := baseRaw()
	raw[models.FieldPrice] = "$250,000"
	_, err := c.Canonicalize(raw, "zillow")
	if !errors.Is(err, ErrPriceOverLimit) {
		t.Fatalf("expected ErrPriceOverLimit, got %v", err)
	}
	if got := c.Stats().Filtered; got != 1 {
		t.Fatalf("filtered = %d, want 1", got)
	}

	// An unknown price passes the ceiling; the ceiling only filters
	// records it can prove are over it.
	raw = baseRaw()
	raw[models.FieldPrice] = "Contact agent"
	p, err := c.Canonicalize(raw, "zillow")
	if err != nil {
		t.Fatal(err)
	}
	if p.Price != nil {
		t.Fatalf("price = %v, want nil for unparseable text", p.Price)
	}
}

func TestParseFloat(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		wantNil bool
	}{
		{"$120,000", 120000, false},
		{"2.5 ba", 2.5, false},
		{"1,200 sqft", 1200, false},
		{"$89,900+", 89900, false},
		{"N/A", 0, true},
		{"", 0, true},
		{"price on request", 0, true},
	}
	for _, tc := range cases {
		got := ParseFloat(tc.in)
		if tc.wantNil {
			if got != nil {
				t.Fatalf("ParseFloat(%q) = %v, want nil", tc.in, *got)
			}
			continue
		}
		if got == nil || *got != tc.want {
			t.Fatalf("ParseFloat(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseInt(t *testing.T) {
	if got := ParseInt("3 bds"); got == nil || *got != 3 {
		t.Fatalf("ParseInt(3 bds) = %v, want 3", got)
	}
	if got := ParseInt("--"); got != nil {
		t.Fatalf("ParseInt(--) = %v, want nil", *got)
	}
}
