// Command gincana-report prints drive standings, goals and headline
// figures from the configured workbook.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	app "github.com/okian/gincana/internal/app"
	"github.com/okian/gincana/internal/config"
	"github.com/okian/gincana/internal/domain/filter"
	"github.com/okian/gincana/internal/report"
	"github.com/okian/gincana/pkg/logger"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// Logs go to stderr so reports can be piped.
	if err := logger.Init(logger.WithOutput(os.Stderr), logger.WithLevel("warn")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// flags shared by every subcommand.
type flags struct {
	source string
	group  string
	sprint string
	format string
	demo   bool
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:          "gincana-report",
		Short:        "Print donation drive standings",
		Long:         "Reads the drive workbook (GINCANA_SOURCE or --source) and prints the ranking, the category goals or the overview.",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&f.source, "source", "", "workbook path or http(s) URL; overrides GINCANA_SOURCE")
	pf.StringVar(&f.group, "group", filter.All, "group filter")
	pf.StringVar(&f.sprint, "sprint", filter.All, "sprint filter")
	pf.StringVarP(&f.format, "format", "f", report.FormatText, "output format: text, json or yaml")
	pf.BoolVar(&f.demo, "demo", false, "use the built-in demo drive")

	root.AddCommand(
		&cobra.Command{
			Use:   "leaderboard",
			Short: "Rank every participant with podium and summary",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, w, err := f.setup(cmd)
				if err != nil {
					return err
				}
				lb, err := svc.Leaderboard(cmd.Context(), f.selection())
				if err != nil {
					return err
				}
				return w.Leaderboard(lb)
			},
		},
		&cobra.Command{
			Use:   "goals",
			Short: "Show donated quantity against each category goal",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, w, err := f.setup(cmd)
				if err != nil {
					return err
				}
				g, err := svc.Goals(cmd.Context(), f.selection())
				if err != nil {
					return err
				}
				return w.Goals(g)
			},
		},
		&cobra.Command{
			Use:   "overview",
			Short: "Show total points, items and active groups",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, w, err := f.setup(cmd)
				if err != nil {
					return err
				}
				o, err := svc.Overview(cmd.Context(), f.selection())
				if err != nil {
					return err
				}
				return w.Overview(o)
			},
		},
	)
	return root
}

func (f *flags) selection() filter.Selection {
	return filter.Selection{Group: f.group, Sprint: f.sprint}
}

// setup loads configuration, applies the flags and builds the service and
// the report writer.
func (f *flags) setup(cmd *cobra.Command) (*app.Service, *report.Writer, error) {
	w, err := report.New(cmd.OutOrStdout(), f.format)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	switch {
	case f.demo:
		cfg.Source = ""
	case f.source != "":
		cfg.Source = f.source
	}
	// One-shot run: no background refresh or watching.
	cfg.WatchSource = false
	cfg.RefreshIntervalSeconds = 0
	return app.FromConfig(cfg), w, nil
}
