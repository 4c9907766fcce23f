package analytics

import (
	"sort"
	"strings"
	"time"

	"PumpWatch/internal/domain/models"
	"PumpWatch/pkg/util"
)

// EpisodeConfig sets the calendar-day gap that splits two campaigns.
type EpisodeConfig struct {
	GapDays        int     `yaml:"gap_days" default:"7" validate:"gte=1"`
	PennyPrice     float64 `yaml:"penny_price" default:"1.0" validate:"gt=0"`
	HighRiskMinEps int     `yaml:"high_risk_min_episodes" default:"3" validate:"gte=1"`
}

// GroupEpisodes folds one ticker's flagged records into episodes. A new episode
// starts at the first record or when more than gapDays calendar days passed since
// the previous record. The returned records are sorted by date and carry their
// episode id; the input slice is not modified.
func GroupEpisodes(ticker string, records []models.BacktestRecord, gapDays int) ([]models.BacktestRecord, []models.Episode) {
	if len(records) == 0 {
		return nil, nil
	}
	sorted := make([]models.BacktestRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SignalDate.Before(sorted[j].SignalDate) })

	var (
		episodes []models.Episode
		acc      *episodeAcc
		id       int
	)
	for i := range sorted {
		r := &sorted[i]
		if acc == nil || util.DaysBetween(acc.last, r.SignalDate) > gapDays {
			if acc != nil {
				episodes = append(episodes, acc.episode())
			}
			id++
			acc = &episodeAcc{ep: models.Episode{Ticker: ticker, EpisodeID: id, StartDate: r.SignalDate}}
		}
		r.EpisodeID = id
		acc.add(*r)
	}
	episodes = append(episodes, acc.episode())
	return sorted, episodes
}

type episodeAcc struct {
	ep    models.Episode
	last  time.Time
	score float64
	price float64
	dd    meanAcc
	ret20 meanAcc
}

func (a *episodeAcc) add(r models.BacktestRecord) {
	a.last = r.SignalDate
	a.ep.EndDate = r.SignalDate
	a.ep.SignalCount++
	a.score += float64(r.PumpScore)
	a.price += r.EntryPrice
	a.dd.add(r.MaxDrawdown)
	a.ret20.add(r.Return20d)
	if r.Classification.IsPump() {
		a.ep.PumpCount++
	}
}

func (a *episodeAcc) episode() models.Episode {
	ep := a.ep
	n := float64(ep.SignalCount)
	ep.AvgPumpScore = a.score / n
	ep.AvgPrice = a.price / n
	ep.AvgDrawdown = a.dd.mean()
	ep.AvgReturn20d = a.ret20.mean()
	ep.DurationDays = util.DaysBetween(ep.StartDate, ep.EndDate)
	ep.EpisodePumpRate = float64(ep.PumpCount) / n * 100
	return ep
}

// meanAcc averages defined values only.
type meanAcc struct {
	sum float64
	n   int
}

func (m *meanAcc) add(v models.NullFloat) {
	if v.Valid {
		m.sum += v.Float64
		m.n++
	}
}

func (m meanAcc) mean() models.NullFloat {
	if m.n == 0 {
		return models.NullFloat{}
	}
	return models.Float(m.sum / float64(m.n))
}

// GroupAll groups every ticker of a master signal set. Episodes are ranked by
// pump count, most pumped first.
func GroupAll(records []models.BacktestRecord, gapDays int) ([]models.BacktestRecord, []models.Episode) {
	byTicker := make(map[string][]models.BacktestRecord)
	for _, r := range records {
		t := strings.ToUpper(r.Ticker)
		byTicker[t] = append(byTicker[t], r)
	}
	tickers := make([]string, 0, len(byTicker))
	for t := range byTicker {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	var (
		labeled  []models.BacktestRecord
		episodes []models.Episode
	)
	for _, t := range tickers {
		recs, eps := GroupEpisodes(t, byTicker[t], gapDays)
		labeled = append(labeled, recs...)
		episodes = append(episodes, eps...)
	}
	sort.SliceStable(episodes, func(i, j int) bool { return episodes[i].PumpCount > episodes[j].PumpCount })
	return labeled, episodes
}

// SummarizeTickers aggregates episodes per ticker, most episodes first.
func SummarizeTickers(episodes []models.Episode, pennyPrice float64) []models.TickerSummary {
	type agg struct {
		s     models.TickerSummary
		price float64
		dd    meanAcc
	}
	by := make(map[string]*agg)
	var order []string
	for _, ep := range episodes {
		a, ok := by[ep.Ticker]
		if !ok {
			a = &agg{s: models.TickerSummary{Ticker: ep.Ticker}}
			by[ep.Ticker] = a
			order = append(order, ep.Ticker)
		}
		a.s.TotalEpisodes++
		a.s.TotalSignals += ep.SignalCount
		a.s.TotalPumps += ep.PumpCount
		a.price += ep.AvgPrice
		a.dd.add(ep.AvgDrawdown)
	}
	out := make([]models.TickerSummary, 0, len(order))
	for _, t := range order {
		a := by[t]
		s := a.s
		if s.TotalSignals > 0 {
			s.PumpRate = float64(s.TotalPumps) / float64(s.TotalSignals) * 100
		}
		s.AvgPrice = a.price / float64(s.TotalEpisodes)
		s.AvgDrawdown = a.dd.mean()
		s.IsPennyStock = s.AvgPrice < pennyPrice
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalEpisodes > out[j].TotalEpisodes })
	return out
}
