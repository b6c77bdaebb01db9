package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/dhikr/internal/history"
	"github.com/verte-zerg/dhikr/internal/model"
	"github.com/verte-zerg/dhikr/internal/store"
)

const historyPlotDays = 30

var (
	historySince string
	historyLast  int
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show completed sessions",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N sessions")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := historyConfig(historySince, historyLast)
	if err != nil {
		return err
	}
	lang := displayLang()
	return withStore(func(ctx context.Context, st *store.Store) error {
		records, err := st.ListSessions(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		out := cmd.OutOrStdout()
		if err := history.RenderSummary(out, history.Summarize(records, time.Now())); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		width := history.TerminalWidth(os.Stdout)
		if len(records) > 0 {
			daily := history.DailyReps(records, time.Now(), historyPlotDays)
			title := fmt.Sprintf("Reps per day (last %d days)", historyPlotDays)
			if err := history.PlotDaily(out, title, daily, width, 0); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		if err := history.RenderSessions(out, records, lang, width); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	})
}

func historyConfig(since string, last int) (model.HistoryConfig, error) {
	if last < 0 {
		return model.HistoryConfig{}, fmt.Errorf("--last must be >= 0")
	}
	cfg := model.HistoryConfig{Last: last}
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.HistoryConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		cfg.Since = &parsed
	}
	return cfg, nil
}
