package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Fetch.Workers != 4 {
		t.Fatalf("workers = %d, want 4", cfg.Fetch.Workers)
	}
	if cfg.Fetch.PriceCeiling != 200000 {
		t.Fatalf("price ceiling = %v, want 200000", cfg.Fetch.PriceCeiling)
	}
	if cfg.Retry.MaxRetries != 3 || cfg.Retry.BaseDelay != time.Second || cfg.Retry.Factor != 2 {
		t.Fatalf("retry = %+v", cfg.Retry)
	}
	if len(cfg.Localities) != 4 {
		t.Fatalf("localities = %v, want the 4 defaults", cfg.Localities)
	}
	if cfg.Localities[0].City != "Kokomo" || cfg.Localities[0].State != "IN" {
		t.Fatalf("first locality = %+v", cfg.Localities[0])
	}

	sources := cfg.EnabledSources()
	if len(sources) != 4 {
		t.Fatalf("enabled sources = %d, want 4", len(sources))
	}
	if sources[0].ID != "zillow" {
		t.Fatalf("first source = %s, want zillow (stable order)", sources[0].ID)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FETCH_WORKERS", "2")
	t.Setenv("PRICE_CEILING", "150000")
	t.Setenv("TARGET_LOCALITIES", "Muncie,IN;Anderson")
	t.Setenv("SCRAPE_INTERVAL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Fetch.Workers != 2 {
		t.Fatalf("workers = %d, want 2", cfg.Fetch.Workers)
	}
	if cfg.Fetch.PriceCeiling != 150000 {
		t.Fatalf("price ceiling = %v, want 150000", cfg.Fetch.PriceCeiling)
	}
	if cfg.Scheduler.Interval != 30*time.Minute {
		t.Fatalf("interval = %v, want 30m", cfg.Scheduler.Interval)
	}

	if len(cfg.Localities) != 2 {
		t.Fatalf("localities = %v, want 2", cfg.Localities)
	}
	if cfg.Localities[1].City != "Anderson" || cfg.Localities[1].State != "" {
		t.Fatalf("stateless locality parsed as %+v", cfg.Localities[1])
	}
}
