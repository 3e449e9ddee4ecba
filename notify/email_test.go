package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"dealscout/models"
	"dealscout/retry"
	"dealscout/services"
	"dealscout/storage"
)

func fp(v float64) *float64 { return &v }

type notifyStore struct {
	storage.Store

	notified [][2]string
}

func (s *notifyStore) MarkMatchNotified(ctx context.Context, propertyID, buyerID string) error {
	s.notified = append(s.notified, [2]string{propertyID, buyerID})
	return nil
}

func testRanked(buyerID string, n int) []services.RankedMatch {
	out := make([]services.RankedMatch, n)
	for i := range out {
		out[i] = services.RankedMatch{
			Match: models.Match{PropertyID: string(rune('a' + i)), BuyerID: buyerID, Score: 90 - i},
			Property: models.Property{
				ID:      string(rune('a' + i)),
				Address: "123 Main St",
				City:    "Kokomo",
				State:   "IN",
				Price:   fp(95000),
			},
		}
	}
	return out
}

func testDispatcher(store storage.Store, send sendFunc) *Dispatcher {
	d := NewDispatcher(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "deals@example.com"},
		store, retry.Policy{MaxRetries: 2, BaseDelay: time.Millisecond, Factor: 2})
	d.send = send
	return d
}

func TestDispatchSendsAndMarks(t *testing.T) {
	store := &notifyStore{}
	var sentTo []string
	var sentBody string
	d := testDispatcher(store, func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sentTo = to
		sentBody = string(msg)
		return nil
	})

	buyer := models.Buyer{ID: "b1", Name: "Jane", Email: "jane@example.com"}
	result, err := d.Dispatch(context.Background(), []models.Buyer{buyer},
		map[string][]services.RankedMatch{"b1": testRanked("b1", 3)})
	if err != nil {
		t.Fatal(err)
	}
	if result.Sent != 1 {
		t.Fatalf("sent = %d, want 1", result.Sent)
	}
	if len(sentTo) != 1 || sentTo[0] != "jane@example.com" {
		t.Fatalf("sent to %v", sentTo)
	}
	if !strings.Contains(sentBody, "123 Main St") || !strings.Contains(sentBody, "$95000") {
		t.Fatalf("digest body missing property details:\n%s", sentBody)
	}
	if len(store.notified) != 3 {
		t.Fatalf("marked %d matches notified, want 3", len(store.notified))
	}
}

func TestDispatchCapsDigest(t *testing.T) {
	store := &notifyStore{}
	d := testDispatcher(store, func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		return nil
	})

	buyer := models.Buyer{ID: "b1", Name: "Jane", Email: "jane@example.com"}
	_, err := d.Dispatch(context.Background(), []models.Buyer{buyer},
		map[string][]services.RankedMatch{"b1": testRanked("b1", 15)})
	if err != nil {
		t.Fatal(err)
	}
	if len(store.notified) != DigestSize {
		t.Fatalf("marked %d matches, want digest cap of %d", len(store.notified), DigestSize)
	}
}

func TestDispatchSkipsAlreadyNotified(t *testing.T) {
	store := &notifyStore{}
	sends := 0
	d := testDispatcher(store, func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sends++
		return nil
	})

	ranked := testRanked("b1", 2)
	ranked[0].Match.Notified = true
	ranked[1].Match.Notified = true

	buyer := models.Buyer{ID: "b1", Name: "Jane", Email: "jane@example.com"}
	result, err := d.Dispatch(context.Background(), []models.Buyer{buyer},
		map[string][]services.RankedMatch{"b1": ranked})
	if err != nil {
		t.Fatal(err)
	}
	if sends != 0 || result.Sent != 0 {
		t.Fatalf("sends = %d, result.Sent = %d; nothing pending should mean no email", sends, result.Sent)
	}
}

func TestDispatchFailureDoesNotMark(t *testing.T) {
	store := &notifyStore{}
	d := testDispatcher(store, func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		return errors.New("connection refused")
	})

	buyer := models.Buyer{ID: "b1", Name: "Jane", Email: "jane@example.com"}
	result, err := d.Dispatch(context.Background(), []models.Buyer{buyer},
		map[string][]services.RankedMatch{"b1": testRanked("b1", 2)})
	if err != nil {
		t.Fatal(err)
	}
	if result.Failed != 1 {
		t.Fatalf("failed = %d, want 1", result.Failed)
	}
	if len(store.notified) != 0 {
		t.Fatal("matches must not be marked notified after a failed send")
	}
}

func TestDispatchDisabledWithoutSMTP(t *testing.T) {
	store := &notifyStore{}
	d := NewDispatcher(SMTPConfig{}, store, retry.DefaultPolicy)
	d.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		t.Fatal("send must not be called when SMTP is unconfigured")
		return nil
	}

	buyer := models.Buyer{ID: "b1", Name: "Jane", Email: "jane@example.com"}
	result, err := d.Dispatch(context.Background(), []models.Buyer{buyer},
		map[string][]services.RankedMatch{"b1": testRanked("b1", 2)})
	if err != nil {
		t.Fatal(err)
	}
	if result.Skipped != 2 {
		t.Fatalf("skipped = %d, want 2", result.Skipped)
	}
}
