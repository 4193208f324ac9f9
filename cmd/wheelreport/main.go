package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/mwagner-dev/wheelengine/config"
	"github.com/mwagner-dev/wheelengine/internal/adapters/storage"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	days := flag.Int("days", 7, "how many days of cycle history to report")
	kind := flag.String("kind", "", "filter to one cycle kind: scan|run|monitor (default: all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	db, err := storage.OpenCycleStore(cfg.Storage.CycleLogPath)
	if err != nil {
		slog.Error("failed to open cycle history store", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	to := time.Now().UTC()
	from := to.Add(-time.Duration(*days) * 24 * time.Hour)

	history, err := db.GetHistory(ctx, from, to)
	if err != nil {
		slog.Error("failed to query cycle history", "err", err)
		os.Exit(1)
	}

	totalPlaced, totalSkipped := 0, 0
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Time (UTC)", "Kind", "Considered", "Placed", "Skipped", "Best Score")
	for _, c := range history {
		if *kind != "" && c.Kind != *kind {
			continue
		}
		totalPlaced += c.OrdersPlaced
		totalSkipped += c.OrdersSkipped
		table.Append(
			c.ScannedAt.Format("2006-01-02 15:04:05"),
			c.Kind,
			fmt.Sprintf("%d", c.UnderlyingsConsidered),
			fmt.Sprintf("%d", c.OrdersPlaced),
			fmt.Sprintf("%d", c.OrdersSkipped),
			fmt.Sprintf("%.4f", c.BestScore),
		)
	}
	table.Render()

	fmt.Printf("\n%d cycles, %d orders placed, %d skipped, window %s to %s\n",
		len(history), totalPlaced, totalSkipped, from.Format(time.RFC3339), to.Format(time.RFC3339))
}
