package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"dealscout/scheduler"
	"dealscout/storage"
)

func newDaemonCmd(a *app) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run pipeline cycles on a schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sched := scheduler.New(a.cfg, a.orchestrator())
			if err := sched.Start(ctx); err != nil {
				return err
			}
			defer sched.Stop()

			if runNow {
				if err := sched.TriggerNow(ctx); err != nil {
					log.Printf("warn: initial cycle failed: %v", err)
				}
			}

			log.Println("daemon running, interrupt to stop")
			<-ctx.Done()
			log.Println("shutting down")
			return nil
		},
	}

	cmd.Flags().BoolVar(&runNow, "run-now", false, "run one cycle immediately on startup")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show inventory and match counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			properties, err := a.store.ListProperties(ctx, storage.PropertyFilter{})
			if err != nil {
				return err
			}
			buyers, err := a.store.ListBuyers(ctx, false)
			if err != nil {
				return err
			}

			bySource := map[string]int{}
			for i := range properties {
				bySource[properties[i].Source]++
			}

			fmt.Printf("properties: %d\n", len(properties))
			for source, n := range bySource {
				fmt.Printf("  %-14s %d\n", source, n)
			}
			fmt.Printf("buyers: %d\n", len(buyers))

			totalMatches := 0
			for i := range buyers {
				matches, err := a.store.ListMatches(ctx, buyers[i].ID)
				if err != nil {
					return err
				}
				unnotified := 0
				for _, m := range matches {
					if !m.Notified {
						unnotified++
					}
				}
				totalMatches += len(matches)
				fmt.Printf("  %-24s %d matches (%d pending)\n", buyers[i].Name, len(matches), unnotified)
			}
			fmt.Printf("matches: %d\n", totalMatches)
			return nil
		},
	}
}
