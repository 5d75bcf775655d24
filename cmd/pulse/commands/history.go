package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyLast int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the stored daily sentiment history",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLast, "last", 20, "number of most recent points to print (0 = all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	points, err := a.store.LoadHistory()
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if historyLast > 0 && len(points) > historyLast {
		points = points[len(points)-historyLast:]
	}

	out := cmd.OutOrStdout()
	for _, p := range points {
		fmt.Fprintf(out, "%s  %+7.2f  %-13s %s\n", p.Date, p.Sentiment, p.SentimentLabel, p.Headline)
	}
	return nil
}
