package commands

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"MarketPulse/internal/pipeline"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch data once, rebuild the snapshot and history, and exit",
	RunE:  runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.pipeline.Refresh(context.Background(), pipeline.TriggerManual)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	snap := report.Snapshot
	fmt.Fprintf(out, "Date:      %s\n", snap.Date)
	fmt.Fprintf(out, "Sentiment: %+.2f (%s)\n", snap.Sentiment.Score, snap.Sentiment.Label)

	keys := make([]string, 0, len(snap.Indices))
	for k := range snap.Indices {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q := snap.Indices[k]
		fmt.Fprintf(out, "  %-10s %10.2f %+8.2f%%  score %+7.2f\n", q.Name, q.Current, q.ChangePercent, snap.Sentiment.PerIndex[k].Score)
	}
	for k, ferr := range report.Failed {
		fmt.Fprintf(out, "  %-10s unavailable: %v\n", k, ferr)
	}
	fmt.Fprintf(out, "History:   %d points in %s\n", report.Points, report.Duration.Round(time.Millisecond))
	return nil
}
