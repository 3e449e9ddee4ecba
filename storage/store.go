package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"dealscout/models"
)

// Store is the record store consumed by the pipeline. All upserts are
// keyed by entity identity and idempotent: re-submitting an identical
// entity is observationally a no-op.
type Store interface {
	UpsertProperty(ctx context.Context, p *models.Property) error
	GetProperty(ctx context.Context, id string) (*models.Property, error)
	ListProperties(ctx context.Context, f PropertyFilter) ([]models.Property, error)

	UpsertBuyer(ctx context.Context, b *models.Buyer) error
	ListBuyers(ctx context.Context, activeOnly bool) ([]models.Buyer, error)

	UpsertMatch(ctx context.Context, m *models.Match) error
	ListMatches(ctx context.Context, buyerID string) ([]models.Match, error)
	MarkMatchNotified(ctx context.Context, propertyID, buyerID string) error

	CreateRun(ctx context.Context, run *models.CrawlRun) error
	UpdateRun(ctx context.Context, run *models.CrawlRun) error
	LogActivity(ctx context.Context, level models.LogLevel, source, message string) error

	Close() error
}

// PropertyFilter narrows ListProperties. Zero values mean "no constraint".
type PropertyFilter struct {
	Source   string
	City     string
	MaxPrice float64
	Limit    int
}

// StoreError wraps a persistence failure with the operation that caused
// it. Store failures are always surfaced, never silently dropped.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// Buyer preference sets are persisted as JSON text columns.
func marshalStrings(vals []string) string {
	if vals == nil {
		vals = []string{}
	}
	b, _ := json.Marshal(vals)
	return string(b)
}

func unmarshalStrings(s string) []string {
	var vals []string
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), &vals); err != nil {
		return nil
	}
	if len(vals) == 0 {
		return nil
	}
	return vals
}

func marshalTypes(vals []models.PropertyType) string {
	ss := make([]string, len(vals))
	for i, v := range vals {
		ss[i] = string(v)
	}
	return marshalStrings(ss)
}

func unmarshalTypes(s string) []models.PropertyType {
	ss := unmarshalStrings(s)
	if ss == nil {
		return nil
	}
	vals := make([]models.PropertyType, len(ss))
	for i, v := range ss {
		vals[i] = models.PropertyType(v)
	}
	return vals
}
