package models

import (
	"time"

	"github.com/google/uuid"
)

// Match is a scored association between one property and one buyer.
// At most one exists per (PropertyID, BuyerID); re-scoring overwrites.
type Match struct {
	ID         uuid.UUID `json:"id" db:"id"`
	PropertyID string    `json:"property_id" db:"property_id"`
	BuyerID    string    `json:"buyer_id" db:"buyer_id"`
	Score      int       `json:"score" db:"score"`
	Notified   bool      `json:"notified" db:"notified"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
