package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"PumpWatch/internal/domain/models"
	domrepo "PumpWatch/internal/domain/repository"
	"PumpWatch/internal/services/analytics"
	applogger "PumpWatch/pkg/logger"
	"PumpWatch/pkg/util"
)

// ReportConfig controls the statistics report.
type ReportConfig struct {
	TopN   int                    `yaml:"top_n" default:"10" validate:"gte=1"`
	Advice analytics.AdviceConfig `yaml:"advice"`
}

// Backtest is the historical section of the report, present once analyze has run.
type Backtest struct {
	Signals    int
	PumpRate   float64
	Rating     string
	Clustering models.WeekdayClustering
}

type reportView struct {
	Date      string
	Threshold int
	models.Report
	Backtest *Backtest
}

// Reporter aggregates the ledger into precision statistics and writes the report.
type Reporter struct {
	ledger    domrepo.AlertLedger
	store     domrepo.ArtifactStore
	l         *applogger.Logger
	threshold int
	cfg       ReportConfig

	Now func() time.Time
}

func NewReporter(ledger domrepo.AlertLedger, store domrepo.ArtifactStore, l *applogger.Logger, threshold int, cfg ReportConfig) *Reporter {
	return &Reporter{ledger: ledger, store: store, l: l, threshold: threshold, cfg: cfg, Now: time.Now}
}

// Build computes the report without writing it.
func (r *Reporter) Build(ctx context.Context) (models.Report, *Backtest, error) {
	alerts, err := r.ledger.Load(ctx)
	if err != nil {
		return models.Report{}, nil, fmt.Errorf("load ledger: %w", err)
	}
	rep := analytics.BuildReport(alerts, r.threshold, r.cfg.TopN, r.cfg.Advice)

	master, err := r.store.LoadMaster(ctx)
	var cfgErr *models.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		r.l.Debug("report without backtest section", applogger.Error(err))
		return rep, nil, nil
	case err != nil:
		return rep, nil, fmt.Errorf("load master: %w", err)
	}
	rate := analytics.BacktestPumpRate(master)
	return rep, &Backtest{
		Signals:    len(master),
		PumpRate:   rate,
		Rating:     analytics.DetectorRating(rate),
		Clustering: analytics.WeekdayClustering(master),
	}, nil
}

// Run builds the report and stores it as markdown, returning the written path.
func (r *Reporter) Run(ctx context.Context) (string, models.Report, error) {
	rep, bt, err := r.Build(ctx)
	if err != nil {
		return "", rep, err
	}
	today := util.TruncateDay(r.Now())
	body, err := renderReport(reportView{
		Date:      util.FormatDate(today),
		Threshold: r.threshold,
		Report:    rep,
		Backtest:  bt,
	})
	if err != nil {
		return "", rep, err
	}
	path, err := r.store.SaveReport(ctx, today, body)
	if err != nil {
		return "", rep, fmt.Errorf("save report: %w", err)
	}
	r.l.Info("report written",
		applogger.String("path", path),
		applogger.Int("alerts", rep.Summary.Total),
		applogger.String("advice", rep.Advice.Action))
	return path, rep, nil
}

var reportFuncs = template.FuncMap{
	"pct": func(v models.NullFloat) string {
		if !v.Valid {
			return "n/a"
		}
		return fmt.Sprintf("%.1f%%", v.Float64)
	},
	"ret": func(v models.NullFloat) string {
		if !v.Valid {
			return "n/a"
		}
		return fmt.Sprintf("%+.1f%%", v.Float64*100)
	},
	"f1":   func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"date": util.FormatDate,
	"days": func(v models.NullInt) string {
		if !v.Valid {
			return "-"
		}
		return fmt.Sprint(v.Int)
	},
	"upper": strings.ToUpper,
}

var reportTmpl = template.Must(template.New("report").Funcs(reportFuncs).Parse(`# Pump detector report {{.Date}}

## Summary

| metric | value |
|---|---|
| alerts | {{.Summary.Total}} |
| classified | {{.Summary.Classified}} |
| pending | {{.Summary.Pending}} |
| confirmed pumps | {{.Summary.Confirmed}} |
| likely pumps | {{.Summary.Likely}} |
| false positives | {{.Summary.FalsePositive}} |
| uncertain | {{.Summary.Uncertain}} |
| precision | {{pct .Summary.Precision}} |
| 95% CI | {{pct .Summary.CILow}} to {{pct .Summary.CIHigh}} |
| coverage | {{f1 .Summary.Coverage}}% |
| false positive rate | {{pct .Summary.FPRate}} |

## Score bins

| bin | classified | pumps | precision | FP rate |
|---|---|---|---|---|
{{range .ScoreBins}}| {{.Bin}} | {{.Count}} | {{.Pumps}} | {{pct .Precision}} | {{pct .FPRate}} |
{{end}}
## Tiers

| tier | classified | pumps | precision |
|---|---|---|---|
{{range .Tiers}}| {{.Tier}} | {{.Classified}} | {{.Pumps}} | {{pct .Precision}} |
{{end}}
## Returns by outcome

| outcome | alerts | avg 5d | avg 10d |
|---|---|---|---|
{{range .ReturnsByOutcome}}| {{.Outcome}} | {{.Count}} | {{ret .AvgReturn}} | {{ret .AvgRet10}} |
{{end}}
## Most alerted tickers

| ticker | alerts | pumps | precision | avg score |
|---|---|---|---|---|
{{range .TopTickers}}| {{upper .Ticker}} | {{.Alerts}} | {{.Pumps}} | {{pct .Precision}} | {{f1 .AvgPumpScore}} |
{{end}}
## Threshold

Current threshold {{.Threshold}}: **{{.Advice.Action}}**{{if ne .Advice.Action "keep"}} to {{.Advice.Threshold}}{{end}} ({{.Advice.Reason}}).
{{with .Backtest}}
## Backtest

{{.Signals}} historical signals, {{f1 .PumpRate}}% labelled as pumps. Detector rating: **{{.Rating}}**.

| day | pump signals |
|---|---|
| Mon | {{index .Clustering.Counts "Mon"}} |
| Tue | {{index .Clustering.Counts "Tue"}} |
| Wed | {{index .Clustering.Counts "Wed"}} |
| Thu | {{index .Clustering.Counts "Thu"}} |
| Fri | {{index .Clustering.Counts "Fri"}} |

Chi-square {{f1 .Clustering.ChiSquare}} (p = {{printf "%.4f" .Clustering.PValue}}){{if .Clustering.Significant}}: pumps cluster on {{.Clustering.PeakDay}}{{else}}: no weekday clustering{{end}}.
{{end}}
## Pending alerts
{{if .Pending}}
| ticker | alert date | score | days since alert |
|---|---|---|---|
{{range .Pending}}| {{upper .Ticker}} | {{date .AlertDate}} | {{.PumpScore}} | {{days .DaysSinceAlert}} |
{{end}}{{else}}
None.
{{end}}`))

// renderReport renders the markdown report.
func renderReport(v reportView) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}
