package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"PumpWatch/internal/di"
	"PumpWatch/internal/domain/models"
	"PumpWatch/internal/usecase"
	applogger "PumpWatch/pkg/logger"
	"PumpWatch/pkg/util"
)

var scanTiers string

var analyzeCmd = &cobra.Command{
	Use:   "analyze [tickers...]",
	Short: "Score full history, label outcomes and build watch tiers",
	Long: `Fetch the full daily history of every ticker, score each bar, backtest and
label the flagged days, then group them into episodes and per-ticker intervals.
Tickers come from the arguments, then tickers_file, then tickers in the config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer closeRuntime(rt)

		tickers, err := rt.Config.ResolveTickers(args)
		if err != nil {
			return err
		}
		res, err := rt.Analyzer.Run(cmd.Context(), tickers)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "processed %d tickers, %d signals, %d episodes, %d intervals\n",
			res.Processed, res.Signals, res.Episodes, res.Intervals)
		fmt.Fprintf(out, "pump rate %.1f%% (%s)\n", res.PumpRate, res.Rating)
		if len(res.HighRisk) > 0 {
			fmt.Fprintf(out, "high risk: %s\n", strings.Join(res.HighRisk, ", "))
		}
		printSkipped(cmd, reasons(res.Skipped))
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Score the latest bar of monitored tickers and record new alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		var tiers []models.Tier
		if scanTiers != "" {
			var err error
			if tiers, err = usecase.ParseTiers(scanTiers); err != nil {
				return err
			}
		}
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer closeRuntime(rt)

		res, err := rt.Scanner.Run(cmd.Context(), tiers)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "scanned %d tickers in %v, %d flagged, %d new alerts\n",
			res.Scanned, res.Tiers, len(res.Alerts), res.Inserted)
		for _, a := range res.Alerts {
			fmt.Fprintf(out, "  %-6s %s score=%d status=%s\n", a.Ticker, a.AlertDate.Format("2006-01-02"), a.PumpScore, a.Status)
		}
		printSkipped(cmd, res.Skipped)
		return nil
	},
}

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Classify ledger alerts against their realized forward prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer closeRuntime(rt)

		res, err := rt.Tracker.Run(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "checked %d alerts, updated %d\n", res.Checked, res.Updated)
		outcomes := make([]string, 0, len(res.Outcomes))
		for o := range res.Outcomes {
			outcomes = append(outcomes, string(o))
		}
		sort.Strings(outcomes)
		for _, o := range outcomes {
			fmt.Fprintf(out, "  %-17s %d\n", o, res.Outcomes[models.Outcome(o)])
		}
		printSkipped(cmd, res.Skipped)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the precision report for the alert ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer closeRuntime(rt)

		path, rep, err := rt.Reporter.Run(cmd.Context())
		if err != nil {
			return err
		}
		precision := "n/a"
		if rep.Summary.Precision.Valid {
			precision = fmt.Sprintf("%.1f%%", rep.Summary.Precision.Float64)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d alerts, %d classified, precision %s\nreport written to %s\n",
			rep.Summary.Total, rep.Summary.Classified, precision, path)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard API and the scheduled scan, track and report jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		app, err := di.ProvideApp(rt)
		if err != nil {
			closeRuntime(rt)
			return err
		}
		rt.Logger.Info("starting daemon",
			applogger.String("addr", fmt.Sprintf("%s:%d", rt.Config.Server.Host, rt.Config.Server.Port)),
			applogger.String("source", rt.Config.MarketData.Source))
		// App closes the runtime clients on shutdown.
		return app.Run(cmd.Context())
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanTiers, "tiers", "", "comma separated tiers to scan (default: tiers due today)")
	rootCmd.AddCommand(analyzeCmd, scanCmd, trackCmd, reportCmd, serveCmd)
}

func closeRuntime(rt *di.Runtime) {
	if err := rt.Close(); err != nil {
		rt.Logger.Warn("close error", applogger.Error(err))
	}
}

func reasons(m map[string]models.FetchReason) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = string(v)
	}
	return out
}

func printSkipped(cmd *cobra.Command, skipped map[string]string) {
	if len(skipped) == 0 {
		return
	}
	keys := util.SortedKeys(skipped)
	fmt.Fprintf(cmd.ErrOrStderr(), "skipped %d:\n", len(keys))
	for _, k := range keys {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", k, skipped[k])
	}
}
