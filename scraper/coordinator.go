package scraper

import (
	"context"
	"errors"
	"log"
	"sync"

	"dealscout/canonical"
	"dealscout/models"
	"dealscout/retry"
	"dealscout/throttle"
)

// FetchFailure records one (locality, source) work item that exhausted
// its retries. Failures never abort sibling work items.
type FetchFailure struct {
	Locality models.Locality
	Source   string
	Err      error
}

// workItem is one (locality, adapter) fetch task.
type workItem struct {
	loc     models.Locality
	adapter Adapter
}

// Coordinator fans the localities × sources cross-product out to a bounded
// pool of workers. Each worker throttles per source key, wraps the remote
// call in the retry envelope, and canonicalizes the raw results. The
// returned slices are complete: every work item resolved to either
// properties or a failure before Fetch returns.
type Coordinator struct {
	throttle *throttle.Throttle
	canon    *canonical.Canonicalizer
	policy   retry.Policy
	workers  int
}

const DefaultWorkers = 4

func NewCoordinator(th *throttle.Throttle, canon *canonical.Canonicalizer, policy retry.Policy, workers int) *Coordinator {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Coordinator{throttle: th, canon: canon, policy: policy, workers: workers}
}

// Sequential returns a copy of the coordinator with the pool width forced
// to 1, for operators wanting maximal politeness to remote sources.
func (c *Coordinator) Sequential() *Coordinator {
	seq := *c
	seq.workers = 1
	return &seq
}

// Fetch resolves every (locality, adapter) pair. Output ordering is not
// guaranteed; callers must not depend on it.
func (c *Coordinator) Fetch(ctx context.Context, localities []models.Locality, adapters []Adapter) ([]models.Property, []FetchFailure) {
	items := make(chan workItem, len(localities)*len(adapters))
	for _, loc := range localities {
		for _, ad := range adapters {
			items <- workItem{loc: loc, adapter: ad}
		}
	}
	close(items)

	var (
		mu         sync.Mutex
		properties []models.Property
		failures   []FetchFailure
		wg         sync.WaitGroup
	)

	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range items {
				// Cancellation is observed between work items; the
				// remaining items resolve as failures, never silently.
				if err := ctx.Err(); err != nil {
					mu.Lock()
					failures = append(failures, FetchFailure{Locality: item.loc, Source: item.adapter.Name(), Err: err})
					mu.Unlock()
					continue
				}

				props, err := c.runItem(ctx, item)
				mu.Lock()
				if err != nil {
					failures = append(failures, FetchFailure{Locality: item.loc, Source: item.adapter.Name(), Err: err})
				} else {
					properties = append(properties, props...)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return properties, failures
}

func (c *Coordinator) runItem(ctx context.Context, item workItem) ([]models.Property, error) {
	var raw []models.RawCandidate

	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		if err := c.throttle.Acquire(ctx, item.adapter.Name()); err != nil {
			return err
		}
		var ferr error
		raw, ferr = item.adapter.Fetch(ctx, item.loc)
		return ferr
	})
	if err != nil {
		return nil, err
	}

	props := make([]models.Property, 0, len(raw))
	for _, cand := range raw {
		prop, err := c.canon.Canonicalize(cand, item.adapter.Name())
		if err != nil {
			// Price-filtered candidates are dropped silently (counted by
			// the canonicalizer); address-less ones warrant a warning.
			if !errors.Is(err, canonical.ErrPriceOverLimit) {
				log.Printf("warn: %s %s: dropping candidate: %v", item.adapter.Name(), item.loc, err)
			}
			continue
		}
		props = append(props, *prop)
	}
	return props, nil
}
