package services

import (
	"context"
	"errors"
	"testing"

	"dealscout/models"
	"dealscout/storage"
)

func fp(v float64) *float64 { return &v }
func ip(v int) *int         { return &v }

func kokomoProperty(id string) models.Property {
	return models.Property{
		ID:           id,
		Address:      "123 Main St",
		City:         "Kokomo",
		State:        "IN",
		Price:        fp(120000),
		Beds:         ip(3),
		Baths:        fp(2),
		SqFt:         ip(1200),
		PropertyType: models.TypeForeclosure,
		Source:       "zillow",
	}
}

func standardBuyer() models.Buyer {
	return models.Buyer{
		ID:         "buyer-1",
		Name:       "Jane Doe",
		Email:      "jane@example.com",
		MinPrice:   50000,
		MaxPrice:   150000,
		Localities: []string{"Kokomo"},
		MinBeds:    2,
		Active:     true,
	}
}

func TestScoreWorkedExample(t *testing.T) {
	p := kokomoProperty("p1")
	b := standardBuyer()

	eligible, score := Score(&p, &b)
	if !eligible {
		t.Fatal("expected eligible")
	}
	// 30 locality + 10 type (no preference) + 15 beds + 15 baths + 10 sqft.
	if score != 80 {
		t.Fatalf("score = %d, want 80", score)
	}
}

func TestScoreLocalityMismatchDisqualifies(t *testing.T) {
	p := kokomoProperty("p1")
	p.City = "Logansport"
	b := standardBuyer()

	eligible, score := Score(&p, &b)
	if eligible || score != 0 {
		t.Fatalf("expected (false, 0), got (%v, %d)", eligible, score)
	}
}

func TestScorePriceGate(t *testing.T) {
	b := standardBuyer()

	under := kokomoProperty("p1")
	under.Price = fp(40000)
	if eligible, score := Score(&under, &b); eligible || score != 0 {
		t.Fatalf("price below band: got (%v, %d)", eligible, score)
	}

	over := kokomoProperty("p2")
	over.Price = fp(200000)
	if eligible, score := Score(&over, &b); eligible || score != 0 {
		t.Fatalf("price above band: got (%v, %d)", eligible, score)
	}

	unknown := kokomoProperty("p3")
	unknown.Price = nil
	if eligible, score := Score(&unknown, &b); eligible || score != 0 {
		t.Fatalf("unknown price: got (%v, %d)", eligible, score)
	}
}

func TestScoreTypePreference(t *testing.T) {
	p := kokomoProperty("p1")
	b := standardBuyer()
	b.PropertyTypes = []models.PropertyType{models.TypeForeclosure}

	if _, score := Score(&p, &b); score != 90 {
		t.Fatalf("matching type preference: score = %d, want 90", score)
	}

	b.PropertyTypes = []models.PropertyType{models.TypeAuction}
	if eligible, score := Score(&p, &b); !eligible || score != 80 {
		t.Fatalf("non-matching type is partial credit, not disqualifying: got (%v, %d)", eligible, score)
	}
}

func TestScoreNoLocalityPreference(t *testing.T) {
	p := kokomoProperty("p1")
	p.City = "Anywhere"
	b := standardBuyer()
	b.Localities = nil

	eligible, score := Score(&p, &b)
	if !eligible {
		t.Fatal("expected eligible with no locality preference")
	}
	// 10 no-preference locality instead of 30.
	if score != 60 {
		t.Fatalf("score = %d, want 60", score)
	}
}

func TestScoreUnknownNumericsGetPartialCredit(t *testing.T) {
	p := kokomoProperty("p1")
	p.Beds = nil
	p.Baths = nil
	p.SqFt = nil
	b := standardBuyer()

	eligible, score := Score(&p, &b)
	if !eligible {
		t.Fatal("expected eligible")
	}
	// 30 + 10 + 5 + 5 + 5.
	if score != 55 {
		t.Fatalf("score = %d, want 55", score)
	}
}

func TestScoreBounds(t *testing.T) {
	p := kokomoProperty("p1")
	b := standardBuyer()
	b.PropertyTypes = []models.PropertyType{models.TypeForeclosure}

	_, score := Score(&p, &b)
	if score < 0 || score > 100 {
		t.Fatalf("score %d out of bounds", score)
	}
}

// fakeStore records match writes and can fail them per buyer.
type fakeStore struct {
	storage.Store

	properties []models.Property
	buyers     []models.Buyer
	written    []models.Match
	failBuyer  string
}

func (s *fakeStore) ListProperties(ctx context.Context, f storage.PropertyFilter) ([]models.Property, error) {
	return s.properties, nil
}

func (s *fakeStore) ListBuyers(ctx context.Context, activeOnly bool) ([]models.Buyer, error) {
	return s.buyers, nil
}

func (s *fakeStore) UpsertMatch(ctx context.Context, m *models.Match) error {
	if m.BuyerID == s.failBuyer {
		return errors.New("disk full")
	}
	s.written = append(s.written, *m)
	return nil
}

func (s *fakeStore) ListMatches(ctx context.Context, buyerID string) ([]models.Match, error) {
	var out []models.Match
	for _, m := range s.written {
		if m.BuyerID == buyerID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	for i := range s.properties {
		if s.properties[i].ID == id {
			return &s.properties[i], nil
		}
	}
	return nil, nil
}

func TestMatchServicePersistenceFloor(t *testing.T) {
	strong := kokomoProperty("p-strong") // scores 80
	weak := kokomoProperty("p-weak")
	weak.City = "Anywhere"
	weak.Beds = nil
	weak.Baths = nil
	weak.SqFt = nil // 10 + 10 + 5 + 5 + 5 = 35 with no locality preference

	buyer := standardBuyer()
	buyer.Localities = nil

	store := &fakeStore{
		properties: []models.Property{strong, weak},
		buyers:     []models.Buyer{buyer},
	}

	result, err := NewMatchService(store).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.PairsScored != 2 {
		t.Fatalf("pairs scored = %d, want 2", result.PairsScored)
	}
	if len(store.written) != 1 {
		t.Fatalf("persisted %d matches, want 1 (floor at 50)", len(store.written))
	}
	if store.written[0].PropertyID != "p-strong" {
		t.Fatalf("persisted %s, want p-strong", store.written[0].PropertyID)
	}
}

func TestMatchServiceDeterministicTieBreak(t *testing.T) {
	// Identical properties under different IDs score equally; writes must
	// come out in ascending property ID order.
	store := &fakeStore{
		properties: []models.Property{
			kokomoProperty("p-zz"),
			kokomoProperty("p-aa"),
			kokomoProperty("p-mm"),
		},
		buyers: []models.Buyer{standardBuyer()},
	}

	if _, err := NewMatchService(store).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []string{"p-aa", "p-mm", "p-zz"}
	if len(store.written) != len(want) {
		t.Fatalf("persisted %d matches, want %d", len(store.written), len(want))
	}
	for i, id := range want {
		if store.written[i].PropertyID != id {
			t.Fatalf("write %d = %s, want %s", i, store.written[i].PropertyID, id)
		}
	}
}

func TestMatchServiceBuyerFailureIsolation(t *testing.T) {
	healthy := standardBuyer()
	broken := standardBuyer()
	broken.ID = "buyer-broken"
	broken.Email = "broken@example.com"

	store := &fakeStore{
		properties: []models.Property{kokomoProperty("p1")},
		buyers:     []models.Buyer{broken, healthy},
		failBuyer:  "buyer-broken",
	}

	result, err := NewMatchService(store).Run(context.Background())
	if err != nil {
		t.Fatalf("one failing buyer must not fail the pass: %v", err)
	}
	if result.Persisted != 1 {
		t.Fatalf("persisted = %d, want 1 for the healthy buyer", result.Persisted)
	}

	// When every buyer fails, the pass itself fails.
	store = &fakeStore{
		properties: []models.Property{kokomoProperty("p1")},
		buyers:     []models.Buyer{broken},
		failBuyer:  "buyer-broken",
	}
	if _, err := NewMatchService(store).Run(context.Background()); err == nil {
		t.Fatal("expected error when all buyers fail to persist")
	}
}
