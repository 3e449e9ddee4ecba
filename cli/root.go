package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"dealscout/config"
	"dealscout/httputil"
	"dealscout/logging"
	"dealscout/scraper"
	"dealscout/storage"
)

// app carries the shared wiring built once before any subcommand runs.
type app struct {
	cfg    *config.Config
	store  storage.Store
	client *http.Client
}

func (a *app) orchestrator() *scraper.Orchestrator {
	return scraper.NewOrchestrator(a.cfg, a.store, a.client)
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

// Execute is the CLI entry point.
func Execute() {
	a := &app{}

	root := &cobra.Command{
		Use:           "dealscout",
		Short:         "Distressed-property ingestion and buyer matching pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	root.AddCommand(
		newRunCmd(a),
		newScrapeCmd(a),
		newMatchCmd(a),
		newAddBuyerCmd(a),
		newExportCmd(a),
		newStatsCmd(a),
		newDaemonCmd(a),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		log.Fatalf("dealscout: %v", err)
	}
}

func (a *app) setup(ctx context.Context) error {
	if _, err := logging.Setup(os.Getenv("LOG_FILE")); err != nil {
		log.Printf("warn: file logging unavailable: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	a.client = httputil.NewScrapingClient(cfg.Fetch.ProxyURL)

	if cfg.DatabaseURL != "" {
		store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		a.store = store
		log.Printf("store: postgres %s", maskConnectionString(cfg.DatabaseURL))
		return nil
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	a.store = store
	log.Printf("store: sqlite %s", cfg.DBPath)
	return nil
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one full cycle: fetch, match, notify",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.orchestrator().RunCycle(cmd.Context())
		},
	}
}

func newScrapeCmd(a *app) *cobra.Command {
	var sequential bool
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch and store listings without matching",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.orchestrator().RunFetch(cmd.Context(), sequential)
			return err
		},
	}
	cmd.Flags().BoolVar(&sequential, "sequential", false, "process work items one at a time")
	return cmd
}

func newMatchCmd(a *app) *cobra.Command {
	var doNotify bool
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Score stored properties against active buyers",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch := a.orchestrator()
			result, err := orch.RunMatch(cmd.Context())
			if err != nil {
				return err
			}
			if doNotify {
				return orch.RunNotify(cmd.Context(), result)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&doNotify, "notify", false, "email buyers their ranked digests")
	return cmd
}

// maskConnectionString hides the password portion of a connection URL
// before it reaches the logs.
func maskConnectionString(connStr string) string {
	schemeEnd := strings.Index(connStr, "://")
	if schemeEnd < 0 {
		return connStr
	}
	rest := connStr[schemeEnd+3:]
	at := strings.Index(rest, "@")
	if at < 0 {
		return connStr
	}
	colon := strings.Index(rest[:at], ":")
	if colon < 0 {
		return connStr
	}
	return connStr[:schemeEnd+3] + rest[:colon+1] + "****" + rest[at:]
}
