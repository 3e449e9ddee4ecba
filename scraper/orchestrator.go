package scraper

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"dealscout/canonical"
	"dealscout/config"
	"dealscout/models"
	"dealscout/notify"
	"dealscout/retry"
	"dealscout/services"
	"dealscout/storage"
	"dealscout/throttle"
)

// Orchestrator wires the fetch, match, and notify stages together around
// the record store. Each Run* entry point is one pipeline stage; RunCycle
// is the full pass the scheduler drives.
type Orchestrator struct {
	cfg    *config.Config
	store  storage.Store
	client *http.Client
}

func NewOrchestrator(cfg *config.Config, store storage.Store, client *http.Client) *Orchestrator {
	return &Orchestrator{cfg: cfg, store: store, client: client}
}

func (o *Orchestrator) retryPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries: o.cfg.Retry.MaxRetries,
		BaseDelay:  o.cfg.Retry.BaseDelay,
		Factor:     o.cfg.Retry.Factor,
	}
}

// RunFetch executes one crawl over localities × sources, upserting every
// canonical property and recording the run outcome. Partial failure is
// normal operation: the run is marked partial, not failed, as long as
// anything was stored.
func (o *Orchestrator) RunFetch(ctx context.Context, sequential bool) (*models.CrawlRun, error) {
	run := &models.CrawlRun{StartedAt: time.Now(), Status: models.RunStatusRunning}
	if err := o.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	adapters := make([]Adapter, 0, len(o.cfg.Sources))
	for _, src := range o.cfg.EnabledSources() {
		ad, err := NewAdapter(src, o.client)
		if err != nil {
			log.Printf("warn: skipping source %s: %v", src.ID, err)
			continue
		}
		adapters = append(adapters, ad)
	}

	canon := canonical.New(o.cfg.Fetch.PriceCeiling)
	th := throttle.New(o.cfg.Fetch.RequestsPerMinute)
	for _, src := range o.cfg.EnabledSources() {
		th.SetSourceLimit(src.ID, src.RequestsPerMinute)
	}
	coord := NewCoordinator(th, canon, o.retryPolicy(), o.cfg.Fetch.Workers)
	if sequential {
		coord = coord.Sequential()
	}

	log.Printf("fetch: %d localities x %d sources, %d workers",
		len(o.cfg.Localities), len(adapters), coord.workers)

	properties, failures := coord.Fetch(ctx, o.cfg.Localities, adapters)
	for _, f := range failures {
		log.Printf("warn: fetch %s %s: %v", f.Source, f.Locality, f.Err)
		_ = o.store.LogActivity(ctx, models.LogLevelWarn, f.Source,
			fmt.Sprintf("fetch failed for %s: %v", f.Locality, f.Err))
	}

	stored := 0
	var storeErr error
	for i := range properties {
		if err := o.store.UpsertProperty(ctx, &properties[i]); err != nil {
			log.Printf("warn: storing property %s: %v", properties[i].ID, err)
			if storeErr == nil {
				storeErr = err
			}
			continue
		}
		stored++
	}

	stats := canon.Stats()
	now := time.Now()
	run.FinishedAt = &now
	run.Found = int(stats.Canonicalized + stats.Dropped + stats.Filtered)
	run.Stored = stored
	run.PriceFiltered = int(stats.Filtered)
	run.Dropped = int(stats.Dropped)
	run.FetchFailures = len(failures)

	switch {
	case stored == 0 && storeErr != nil:
		run.Status = models.RunStatusFailed
		run.ErrorMessage = storeErr.Error()
	case len(failures) > 0 || storeErr != nil:
		run.Status = models.RunStatusPartial
	default:
		run.Status = models.RunStatusCompleted
	}

	if err := o.store.UpdateRun(ctx, run); err != nil {
		log.Printf("warn: updating run %d: %v", run.ID, err)
	}
	_ = o.store.LogActivity(ctx, models.LogLevelInfo, "fetch",
		fmt.Sprintf("run %d %s: stored %d of %d found", run.ID, run.Status, run.Stored, run.Found))

	log.Printf("fetch: run %d %s: found=%d stored=%d filtered=%d dropped=%d failures=%d",
		run.ID, run.Status, run.Found, run.Stored, run.PriceFiltered, run.Dropped, run.FetchFailures)

	if run.Status == models.RunStatusFailed {
		return run, fmt.Errorf("fetch: no properties stored: %w", storeErr)
	}
	return run, nil
}

// RunMatch scores the stored inventory against all active buyers.
func (o *Orchestrator) RunMatch(ctx context.Context) (*services.MatchResult, error) {
	matcher := services.NewMatchService(o.store)
	result, err := matcher.Run(ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("match: scored %d pairs, persisted %d matches for %d buyers",
		result.PairsScored, result.Persisted, len(result.ByBuyer))
	return result, nil
}

// RunNotify emails each buyer their pending ranked digest.
func (o *Orchestrator) RunNotify(ctx context.Context, result *services.MatchResult) error {
	buyers, err := o.store.ListBuyers(ctx, true)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}

	smtpCfg := notify.SMTPConfig{
		Host:     o.cfg.SMTP.Host,
		Port:     o.cfg.SMTP.Port,
		Username: o.cfg.SMTP.Username,
		Password: o.cfg.SMTP.Password,
		From:     o.cfg.SMTP.From,
	}
	dispatcher := notify.NewDispatcher(smtpCfg, o.store, o.retryPolicy())

	sent, err := dispatcher.Dispatch(ctx, buyers, result.ByBuyer)
	if err != nil {
		return err
	}
	log.Printf("notify: sent=%d skipped=%d failed=%d", sent.Sent, sent.Skipped, sent.Failed)
	return nil
}

// RunCycle is one full pipeline pass: fetch, match, notify.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	if _, err := o.RunFetch(ctx, false); err != nil {
		return err
	}
	result, err := o.RunMatch(ctx)
	if err != nil {
		return err
	}
	return o.RunNotify(ctx, result)
}
