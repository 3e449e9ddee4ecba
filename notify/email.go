package notify

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"strings"

	"dealscout/models"
	"dealscout/retry"
	"dealscout/services"
	"dealscout/storage"
)

// DigestSize caps how many ranked matches appear in one buyer's email.
const DigestSize = 10

// SMTPConfig carries the mail relay settings. A config with no Host
// disables dispatch entirely.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c SMTPConfig) Enabled() bool { return c.Host != "" && c.From != "" }

func (c SMTPConfig) addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// sendFunc is swapped out in tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Dispatcher emails each buyer their ranked match digest and records the
// confirmed sends so no match is delivered twice.
type Dispatcher struct {
	cfg    SMTPConfig
	store  storage.Store
	policy retry.Policy
	send   sendFunc
}

func NewDispatcher(cfg SMTPConfig, store storage.Store, policy retry.Policy) *Dispatcher {
	return &Dispatcher{cfg: cfg, store: store, policy: policy, send: smtp.SendMail}
}

// DispatchResult summarizes one notification pass.
type DispatchResult struct {
	Sent    int
	Skipped int
	Failed  int
}

// Dispatch emails every buyer that has unnotified matches in the ranked
// lists. One buyer's send failure never blocks another's. Matches are
// marked notified only after a confirmed send.
func (d *Dispatcher) Dispatch(ctx context.Context, buyers []models.Buyer, byBuyer map[string][]services.RankedMatch) (*DispatchResult, error) {
	result := &DispatchResult{}

	if !d.cfg.Enabled() {
		log.Printf("warn: notifications disabled, SMTP is not configured")
		for _, ranked := range byBuyer {
			result.Skipped += len(ranked)
		}
		return result, nil
	}

	for i := range buyers {
		buyer := &buyers[i]
		ranked := pending(byBuyer[buyer.ID])
		if len(ranked) == 0 {
			continue
		}
		if len(ranked) > DigestSize {
			ranked = ranked[:DigestSize]
		}

		if err := d.sendDigest(ctx, buyer, ranked); err != nil {
			log.Printf("warn: notifying buyer %s (%s): %v", buyer.Name, buyer.Email, err)
			result.Failed++
			continue
		}

		for _, rm := range ranked {
			if err := d.store.MarkMatchNotified(ctx, rm.Match.PropertyID, rm.Match.BuyerID); err != nil {
				log.Printf("warn: marking match %s/%s notified: %v", rm.Match.PropertyID, rm.Match.BuyerID, err)
			}
		}
		result.Sent++
	}

	return result, nil
}

// pending drops matches that were already delivered in a prior pass.
func pending(ranked []services.RankedMatch) []services.RankedMatch {
	out := make([]services.RankedMatch, 0, len(ranked))
	for _, rm := range ranked {
		if !rm.Match.Notified {
			out = append(out, rm)
		}
	}
	return out
}

func (d *Dispatcher) sendDigest(ctx context.Context, buyer *models.Buyer, ranked []services.RankedMatch) error {
	body, err := renderDigest(buyer, ranked)
	if err != nil {
		return fmt.Errorf("render digest: %w", err)
	}

	subject := fmt.Sprintf("%d new property matches", len(ranked))
	msg := buildMessage(d.cfg.From, buyer.Email, subject, body)

	var auth smtp.Auth
	if d.cfg.Username != "" {
		auth = smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)
	}

	return retry.Do(ctx, d.policy, func(ctx context.Context) error {
		err := d.send(d.cfg.addr(), auth, d.cfg.From, []string{buyer.Email}, msg)
		if err != nil {
			// Relay hiccups are worth retrying; auth or address problems
			// would also recur but the envelope caps total attempts anyway.
			return retry.MarkTransient(err)
		}
		return nil
	})
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

var digestTemplate = template.Must(template.New("digest").Parse(`<html>
<body>
<h2>Property matches for {{.Name}}</h2>
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Score</th><th>Address</th><th>Price</th><th>Beds</th><th>Baths</th><th>SqFt</th><th>Type</th><th>Link</th></tr>
{{range .Rows}}<tr>
<td>{{.Score}}</td><td>{{.Address}}</td><td>{{.Price}}</td><td>{{.Beds}}</td><td>{{.Baths}}</td><td>{{.SqFt}}</td><td>{{.Type}}</td>
<td>{{if .URL}}<a href="{{.URL}}">listing</a>{{end}}</td>
</tr>{{end}}
</table>
</body>
</html>`))

type digestRow struct {
	Score   int
	Address string
	Price   string
	Beds    string
	Baths   string
	SqFt    string
	Type    string
	URL     string
}

func renderDigest(buyer *models.Buyer, ranked []services.RankedMatch) (string, error) {
	rows := make([]digestRow, 0, len(ranked))
	for _, rm := range ranked {
		p := rm.Property
		rows = append(rows, digestRow{
			Score:   rm.Match.Score,
			Address: fmt.Sprintf("%s, %s, %s", p.Address, p.City, p.State),
			Price:   money(p.Price),
			Beds:    orDash(p.Beds == nil, intStr(p.Beds)),
			Baths:   orDash(p.Baths == nil, floatStr(p.Baths)),
			SqFt:    orDash(p.SqFt == nil, intStr(p.SqFt)),
			Type:    string(p.PropertyType),
			URL:     p.URL,
		})
	}

	var b strings.Builder
	err := digestTemplate.Execute(&b, struct {
		Name string
		Rows []digestRow
	}{Name: buyer.Name, Rows: rows})
	return b.String(), err
}

func money(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("$%.0f", *v)
}

func intStr(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func floatStr(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%g", *v)
}

func orDash(missing bool, s string) string {
	if missing {
		return "-"
	}
	return s
}
