package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/brensch/broadside/api"
)

// Source yields every recorded match, partitioned by category.
type Source interface {
	Stats(ctx context.Context) (*api.StatsResponse, error)
}

// Chart is a live chart instance. It is destroyed before a replacement is
// created.
type Chart interface {
	Destroy()
}

// View is the rendering backend of the dashboard.
type View interface {
	ReplaceTable(mode api.GameMode, rows []Row)
	ShowKPIs(kpis []CategoryKPI)
	NewChart(data ChartData) Chart
}

// Dashboard loads records and redraws the statistics view.
type Dashboard struct {
	src    Source
	view   View
	logger *slog.Logger

	mu     sync.Mutex
	chart  Chart
	last   *Report
	lastRS *api.StatsResponse
}

func NewDashboard(src Source, view View, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{src: src, view: view, logger: logger.With("component", "stats")}
}

// SetView swaps the rendering backend. The current chart, if any, is
// destroyed.
func (d *Dashboard) SetView(v View) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.chart != nil {
		d.chart.Destroy()
		d.chart = nil
	}
	d.view = v
}

// Load fetches the records, replaces both tables and the KPIs, and
// recreates the chart. On failure the previous content stays on screen.
func (d *Dashboard) Load(ctx context.Context) (*Report, error) {
	resp, err := d.src.Stats(ctx)
	if err != nil {
		d.logger.Error("load statistics", "error", err)
		return nil, fmt.Errorf("load statistics: %w", err)
	}
	rep := Aggregate(*resp)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = &rep
	d.lastRS = resp
	if d.view == nil {
		return &rep, nil
	}
	for _, cat := range Categories {
		d.view.ReplaceTable(cat.Mode, rep.Tables[cat.Mode])
	}
	d.view.ShowKPIs(rep.KPIs)
	if d.chart != nil {
		d.chart.Destroy()
	}
	d.chart = d.view.NewChart(rep.Chart)
	d.logger.Debug("statistics loaded", "uservsmcts", len(resp.UserVsMCTS), "mcts_vs_ml_mcts", len(resp.MCTSVsMLMCTS))
	return &rep, nil
}

// Last returns the report of the most recent successful Load.
func (d *Dashboard) Last() (*Report, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, d.last != nil
}

// LastRecords returns the flattened records of the most recent successful
// Load, in export order.
func (d *Dashboard) LastRecords() []Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastRS == nil {
		return nil
	}
	return Flatten(*d.lastRS)
}
