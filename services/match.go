package services

import (
	"context"
	"fmt"
	"log"
	"sort"

	"dealscout/models"
	"dealscout/storage"
)

// PersistenceFloor is the minimum score a pair must reach to be stored as
// a Match. Enforced here, at the persistence boundary, so Score stays
// usable for diagnostics below the floor.
const PersistenceFloor = 50

// Score evaluates one (property, buyer) pair against the fixed rubric.
// The price gate and a locality mismatch against a stated preference are
// disqualifying; every other criterion awards partial credit. Unknown
// numeric fields never meet a minimum.
//
// Returned score is always in [0, 100]; a disqualified pair is (false, 0).
func Score(p *models.Property, b *models.Buyer) (bool, int) {
	if p.Price == nil || *p.Price < b.MinPrice || *p.Price > b.MaxPrice {
		return false, 0
	}

	score := 0

	if len(b.Localities) > 0 {
		if !b.WantsLocality(p.Locality()) {
			return false, 0
		}
		score += 30
	} else {
		score += 10
	}

	if b.WantsType(p.PropertyType) {
		score += 20
	} else {
		score += 10
	}

	if p.Beds != nil && *p.Beds >= b.MinBeds {
		score += 15
	} else {
		score += 5
	}

	if p.Baths != nil && *p.Baths >= b.MinBaths {
		score += 15
	} else {
		score += 5
	}

	if p.SqFt != nil && *p.SqFt >= b.MinSqFt {
		score += 10
	} else {
		score += 5
	}

	if score > 100 {
		score = 100
	}
	return true, score
}

// RankedMatch pairs a persisted Match with its property for reporting.
type RankedMatch struct {
	Match    models.Match
	Property models.Property
}

// MatchResult summarizes one matching pass.
type MatchResult struct {
	PairsScored int
	Persisted   int
	ByBuyer     map[string][]RankedMatch
}

// MatchService scores the property inventory against the buyer registry
// and persists every pair at or above the floor.
type MatchService struct {
	store storage.Store
}

func NewMatchService(store storage.Store) *MatchService {
	return &MatchService{store: store}
}

// Run scores all stored properties against all active buyers. A store
// failure for one buyer is logged and skips that buyer; the pass fails
// outright only when no buyer's matches could be written at all.
func (s *MatchService) Run(ctx context.Context) (*MatchResult, error) {
	properties, err := s.store.ListProperties(ctx, storage.PropertyFilter{})
	if err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}
	buyers, err := s.store.ListBuyers(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}

	result := &MatchResult{ByBuyer: make(map[string][]RankedMatch)}
	propsByID := make(map[string]models.Property, len(properties))
	for _, p := range properties {
		propsByID[p.ID] = p
	}

	failedBuyers := 0
	for i := range buyers {
		buyer := &buyers[i]
		if err := s.matchBuyer(ctx, buyer, properties, result); err != nil {
			log.Printf("warn: matching buyer %s (%s): %v", buyer.Name, buyer.ID, err)
			failedBuyers++
		}
	}
	if len(buyers) > 0 && failedBuyers == len(buyers) {
		return nil, fmt.Errorf("match: all %d buyers failed to persist", len(buyers))
	}

	// Ranked lists are re-read from the store so they reflect what was
	// actually persisted, including matches from earlier passes.
	for i := range buyers {
		matches, err := s.store.ListMatches(ctx, buyers[i].ID)
		if err != nil {
			log.Printf("warn: listing matches for buyer %s: %v", buyers[i].ID, err)
			continue
		}
		ranked := make([]RankedMatch, 0, len(matches))
		for _, m := range matches {
			prop, ok := propsByID[m.PropertyID]
			if !ok {
				got, err := s.store.GetProperty(ctx, m.PropertyID)
				if err != nil || got == nil {
					continue
				}
				prop = *got
			}
			ranked = append(ranked, RankedMatch{Match: m, Property: prop})
		}
		if len(ranked) > 0 {
			result.ByBuyer[buyers[i].ID] = ranked
		}
	}

	return result, nil
}

func (s *MatchService) matchBuyer(ctx context.Context, buyer *models.Buyer, properties []models.Property, result *MatchResult) error {
	type scored struct {
		propertyID string
		score      int
	}
	var qualifying []scored

	for i := range properties {
		eligible, score := Score(&properties[i], buyer)
		result.PairsScored++
		if !eligible || score < PersistenceFloor {
			continue
		}
		qualifying = append(qualifying, scored{propertyID: properties[i].ID, score: score})
	}

	// Deterministic write order: score descending, property ID ascending.
	sort.Slice(qualifying, func(i, j int) bool {
		if qualifying[i].score != qualifying[j].score {
			return qualifying[i].score > qualifying[j].score
		}
		return qualifying[i].propertyID < qualifying[j].propertyID
	})

	var firstErr error
	written := 0
	for _, q := range qualifying {
		m := &models.Match{PropertyID: q.propertyID, BuyerID: buyer.ID, Score: q.score}
		if err := s.store.UpsertMatch(ctx, m); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		written++
		result.Persisted++
	}
	if firstErr != nil && written == 0 && len(qualifying) > 0 {
		return firstErr
	}
	if firstErr != nil {
		log.Printf("warn: buyer %s: %d of %d match writes failed: %v",
			buyer.ID, len(qualifying)-written, len(qualifying), firstErr)
	}
	return nil
}
