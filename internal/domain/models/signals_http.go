package models

import "strings"

// Requests for dashboard HTTP endpoints. Defined in domain for reuse by the usecase filter.

type AlertsRequest struct {
	Tier     []string `query:"tier" json:"tier" validate:"dive,oneof=tier1 tier2 tier3"`
	Outcome  []string `query:"outcome" json:"outcome" validate:"dive,oneof=pending confirmed_pump likely_pump false_positive uncertain"`
	Ticker   []string `query:"ticker" json:"ticker" validate:"dive,min=1,max=10"`
	ScoreBin string   `query:"score_bin" json:"score_bin" validate:"omitempty,oneof=≤55 55-60 60-70 70+"`
	From     string   `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To       string   `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	Limit    int      `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=5000"`
}

// Normalize expands comma separated list values and accepts bare tier numbers.
func (r *AlertsRequest) Normalize() {
	r.Tier = splitLower(r.Tier)
	for i, t := range r.Tier {
		if len(t) == 1 && t[0] >= '1' && t[0] <= '3' {
			r.Tier[i] = "tier" + t
		}
	}
	r.Outcome = splitLower(r.Outcome)
	r.Ticker = splitLower(r.Ticker)
	for i := range r.Ticker {
		r.Ticker[i] = strings.ToUpper(r.Ticker[i])
	}
	r.ScoreBin = strings.TrimSpace(r.ScoreBin)
}

type EpisodesRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"omitempty,min=1,max=10"`
	Limit  int    `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=5000"`
}

type StatsRequest struct {
	AlertsRequest
	Top int `query:"top" json:"top" default:"10" validate:"gte=1,lte=50"`
}

func splitLower(vals []string) []string {
	var out []string
	for _, v := range vals {
		for _, p := range strings.Split(v, ",") {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
