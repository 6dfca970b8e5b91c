// Package stats aggregates finished matches into per-category tables, KPIs
// and a win-percentage bar chart, and exports the raw records.
package stats

import (
	"math"
	"strconv"

	"github.com/brensch/broadside/api"
)

// Placeholder is displayed instead of a number when there is nothing to
// divide by.
const Placeholder = "–"

// Contestant is one possible winner of a category. Aliases lists every
// winner string the server may record for it.
type Contestant struct {
	Name    string
	Aliases []string
	Series  string
	Color   string
}

func (c Contestant) matches(winner string) bool {
	for _, a := range c.Aliases {
		if a == winner {
			return true
		}
	}
	return false
}

// Category is one competitive mode with its fixed contestants.
type Category struct {
	Mode        api.GameMode
	Title       string
	Contestants []Contestant
}

var (
	userContestant   = Contestant{Name: "user", Aliases: []string{"user"}, Series: "User wins %", Color: "#4e79a7"}
	mctsContestant   = Contestant{Name: "MCTS", Aliases: []string{"MCTS"}, Series: "MCTS wins %", Color: "#f28e2b"}
	mlMCTSContestant = Contestant{Name: "ML-MCTS", Aliases: []string{"NeuralMCTS", "ML-MCTS"}, Series: "ML-MCTS wins %", Color: "#59a14f"}
)

// Categories lists the two competitive modes in display order.
var Categories = []Category{
	{Mode: api.ModeUserVsMCTS, Title: "User vs MCTS", Contestants: []Contestant{userContestant, mctsContestant}},
	{Mode: api.ModeMCTSVsMLMCTS, Title: "MCTS vs ML-MCTS", Contestants: []Contestant{mctsContestant, mlMCTSContestant}},
}

// Row is one table line.
type Row struct {
	Winner   string
	Duration string
}

// WinnerKPI summarises one contestant of a category.
type WinnerKPI struct {
	Name         string
	Wins         int
	WinPct       float64
	MeanDuration float64

	total int
}

// HasPct reports whether the category had any match.
func (w WinnerKPI) HasPct() bool { return w.total > 0 }

// HasMean reports whether the contestant won any match.
func (w WinnerKPI) HasMean() bool { return w.Wins > 0 }

// PctText is the win percentage with one decimal, or the placeholder.
func (w WinnerKPI) PctText() string {
	if !w.HasPct() {
		return Placeholder
	}
	return strconv.FormatFloat(w.WinPct, 'f', 1, 64) + "%"
}

// MeanText is the mean duration of the contestant's wins with two decimals,
// or the placeholder.
func (w WinnerKPI) MeanText() string {
	if !w.HasMean() {
		return Placeholder
	}
	return strconv.FormatFloat(w.MeanDuration, 'f', 2, 64)
}

// CategoryKPI holds the totals of one category.
type CategoryKPI struct {
	Mode    api.GameMode
	Title   string
	Total   int
	Winners []WinnerKPI
}

// TotalText is the match count, or the placeholder when there is none.
func (k CategoryKPI) TotalText() string {
	if k.Total == 0 {
		return Placeholder
	}
	return strconv.Itoa(k.Total)
}

// Winner looks up a contestant by name.
func (k CategoryKPI) Winner(name string) (WinnerKPI, bool) {
	for _, w := range k.Winners {
		if w.Name == name {
			return w, true
		}
	}
	return WinnerKPI{}, false
}

// Series is one bar group of the chart, one value per category.
type Series struct {
	Label  string
	Values []float64
	Color  string
}

// ChartData is the complete input of a chart instance.
type ChartData struct {
	Labels []string
	Series []Series
	YMax   float64
}

// Report is the full result of one aggregation.
type Report struct {
	Tables map[api.GameMode][]Row
	KPIs   []CategoryKPI
	Chart  ChartData
}

// Records returns the list of a category from a /stats reply.
func Records(resp api.StatsResponse, mode api.GameMode) []api.MatchRecord {
	switch mode {
	case api.ModeUserVsMCTS:
		return resp.UserVsMCTS
	case api.ModeMCTSVsMLMCTS:
		return resp.MCTSVsMLMCTS
	}
	return nil
}

// Aggregate computes tables, KPIs and chart data for every category.
func Aggregate(resp api.StatsResponse) Report {
	rep := Report{Tables: make(map[api.GameMode][]Row, len(Categories))}
	for _, cat := range Categories {
		recs := Records(resp, cat.Mode)
		rows := make([]Row, 0, len(recs))
		for _, r := range recs {
			rows = append(rows, Row{Winner: r.Winner, Duration: strconv.FormatFloat(r.Duration, 'f', 2, 64)})
		}
		rep.Tables[cat.Mode] = rows
		rep.KPIs = append(rep.KPIs, categoryKPI(cat, recs))
	}
	rep.Chart = chart(rep.KPIs)
	return rep
}

func categoryKPI(cat Category, recs []api.MatchRecord) CategoryKPI {
	k := CategoryKPI{Mode: cat.Mode, Title: cat.Title, Total: len(recs)}
	for _, c := range cat.Contestants {
		w := WinnerKPI{Name: c.Name, total: len(recs)}
		var sum float64
		for _, r := range recs {
			if c.matches(r.Winner) {
				w.Wins++
				sum += r.Duration
			}
		}
		if w.total > 0 {
			w.WinPct = float64(w.Wins) / float64(w.total) * 100
		}
		if w.Wins > 0 {
			w.MeanDuration = sum / float64(w.Wins)
		}
		k.Winners = append(k.Winners, w)
	}
	return k
}

// chart lays out one series per distinct contestant and one value per
// category; a contestant absent from a category scores 0 there.
func chart(kpis []CategoryKPI) ChartData {
	data := ChartData{YMax: 100}
	for _, k := range kpis {
		data.Labels = append(data.Labels, k.Title)
	}
	for _, c := range []Contestant{userContestant, mctsContestant, mlMCTSContestant} {
		s := Series{Label: c.Series, Color: c.Color, Values: make([]float64, len(kpis))}
		for i, k := range kpis {
			if w, ok := k.Winner(c.Name); ok && w.HasPct() {
				s.Values[i] = math.Round(w.WinPct*10) / 10
			}
		}
		data.Series = append(data.Series, s)
	}
	return data
}
