package handlers

import (
	"context"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	ds "github.com/starfederation/datastar-go/datastar"

	"scrollchart/engine"
	"scrollchart/models"
	"scrollchart/utils"
	"scrollchart/web"
)

const (
	SVG_WIDTH  = 1000.0
	SVG_HEIGHT = 300.0
	GRID_LINES = 4
	VALUE_DP   = 1
	POINT_DP   = 2
	PAGE_TITLE = "scrollchart"
)

type Dashboard struct {
	templates *template.Template
	charts    Charts
	logger    *slog.Logger

	mu           sync.Mutex
	activeSeries map[string]map[string]int // clientID -> chartKey -> series index
}

type chartKeySig struct {
	Chart struct {
		Key string `json:"key"`
	} `json:"chart"`
}

type chartView struct {
	Key        string
	Title      string
	AutoScroll bool
	Width      float64
	Height     float64
	GridLines  []float64
	XMin       string
	XMax       string
	YMin       string
	YMax       string
	Series     []seriesView
	Active     *seriesView
}

type seriesView struct {
	ID        string
	Key       string
	Colour    string
	Unit      string
	Points    string
	Latest    string
	HasLatest bool
}

func NewDashboard(charts Charts, logger *slog.Logger) (dashboard *Dashboard, err error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	dashboard = &Dashboard{
		charts:       charts,
		logger:       logger,
		activeSeries: make(map[string]map[string]int),
	}
	templates := template.New("").Funcs(template.FuncMap{
		"keyToTitle": keyToTitle,
	})
	dashboard.templates, err = templates.ParseFS(web.Templates, "templates/*.gohtml")
	return dashboard, err
}

func (d *Dashboard) Templates() *template.Template {
	return d.templates
}

func (d *Dashboard) Handlers() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"/clear":         d.ClearHandler,
		"/toggle-scroll": d.ToggleScrollHandler,
		"/cycle-series":  d.CycleSeriesHandler,
	}
}

func (d *Dashboard) Data(ctx context.Context, clientID string) (map[string]any, error) {
	frames, err := d.charts.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]chartView, 0, len(frames))
	for _, frame := range frames {
		views = append(views, d.view(frame, clientID))
	}
	return map[string]any{
		"title":  PAGE_TITLE,
		"charts": views,
	}, nil
}

// OnFrame patches the chart a frame belongs to.
func (d *Dashboard) OnFrame(sse *ds.ServerSentEventGenerator, frame *engine.Frame, clientID string) error {
	var writer strings.Builder
	if err := d.templates.ExecuteTemplate(&writer, "chart", d.view(frame, clientID)); err != nil {
		return err
	}
	return sse.PatchElements(writer.String())
}

// ClearHandler drops every point of the chart named by the chart.key signal.
func (d *Dashboard) ClearHandler(w http.ResponseWriter, r *http.Request) {
	key, ok := d.readChartKey(w, r)
	if !ok {
		return
	}
	if err := d.charts.ClearChart(r.Context(), key); err != nil {
		d.writeCommandError(w, key, err)
		return
	}
	d.patchChart(w, r, key)
}

// ToggleScrollHandler pauses or resumes the chart named by the chart.key signal.
func (d *Dashboard) ToggleScrollHandler(w http.ResponseWriter, r *http.Request) {
	key, ok := d.readChartKey(w, r)
	if !ok {
		return
	}
	scrolling, err := d.charts.ToggleScroll(r.Context(), key)
	if err != nil {
		d.writeCommandError(w, key, err)
		return
	}
	d.logger.Debug("toggled scroll", "chart", key, "scrolling", scrolling)
	d.patchChart(w, r, key)
}

// CycleSeriesHandler is called when the client clicks the headline to show the next series' value
func (d *Dashboard) CycleSeriesHandler(w http.ResponseWriter, r *http.Request) {
	key, ok := d.readChartKey(w, r)
	if !ok {
		return
	}
	clientID := getClientID(w, r)

	frame, err := d.frame(r.Context(), key)
	if err != nil {
		d.writeCommandError(w, key, err)
		return
	}
	if len(frame.Series) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	idx := (d.activeSeriesIndex(clientID, key) + 1) % len(frame.Series)
	d.setActiveSeriesIndex(clientID, key, idx)

	var buf strings.Builder
	if err := d.templates.ExecuteTemplate(&buf, "chart.headline", d.view(frame, clientID)); err != nil {
		d.logger.Error("couldn't execute headline template", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	sse := ds.NewSSE(w, r)
	if err := sse.PatchElements(buf.String()); err != nil {
		d.logger.Warn("couldn't patch headline", "error", err)
	}
}

func (d *Dashboard) readChartKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	// Read signals sent from the client
	var sig chartKeySig
	if err := ds.ReadSignals(r, &sig); err != nil {
		d.logger.Warn("error reading signals", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return "", false
	}
	if sig.Chart.Key == "" {
		w.WriteHeader(http.StatusBadRequest)
		return "", false
	}
	return sig.Chart.Key, true
}

func (d *Dashboard) writeCommandError(w http.ResponseWriter, key string, err error) {
	if errors.Is(err, models.ErrInvalidArgument) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	d.logger.Warn("couldn't run chart command", "chart", key, "error", err)
	w.WriteHeader(http.StatusServiceUnavailable)
}

// patchChart answers a command with the chart's new state straight away.
func (d *Dashboard) patchChart(w http.ResponseWriter, r *http.Request, key string) {
	clientID := getClientID(w, r)
	frame, err := d.frame(r.Context(), key)
	if err != nil {
		d.writeCommandError(w, key, err)
		return
	}
	sse := ds.NewSSE(w, r)
	if err := d.OnFrame(sse, frame, clientID); err != nil {
		d.logger.Warn("couldn't patch chart", "chart", key, "error", err)
	}
}

func (d *Dashboard) frame(ctx context.Context, key string) (*engine.Frame, error) {
	frames, err := d.charts.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for _, frame := range frames {
		if frame.ChartKey == key {
			return frame, nil
		}
	}
	return nil, models.ErrInvalidArgument
}

func (d *Dashboard) view(frame *engine.Frame, clientID string) chartView {
	r := frame.Range
	view := chartView{
		Key:        frame.ChartKey,
		Title:      frame.Title,
		AutoScroll: frame.AutoScroll,
		Width:      SVG_WIDTH,
		Height:     SVG_HEIGHT,
		XMin:       formatValue(r.XMin),
		XMax:       formatValue(r.XMax),
		YMin:       formatValue(r.YMin),
		YMax:       formatValue(r.YMax),
	}
	for i := 1; i < GRID_LINES; i++ {
		view.GridLines = append(view.GridLines, SVG_HEIGHT*float64(i)/GRID_LINES)
	}
	for i, s := range frame.Series {
		sv := seriesView{
			ID:        strconv.Itoa(i),
			Key:       s.Key,
			Colour:    s.Colour,
			Unit:      s.Unit,
			Points:    polylinePoints(s.Points, r, SVG_WIDTH, SVG_HEIGHT),
			HasLatest: s.HasLatest,
		}
		if s.HasLatest {
			sv.Latest = formatValue(s.Latest.Y())
		}
		view.Series = append(view.Series, sv)
	}
	if len(view.Series) > 0 {
		idx := d.activeSeriesIndex(clientID, frame.ChartKey) % len(view.Series)
		view.Active = &view.Series[idx]
	}
	return view
}

// polylinePoints maps data coordinates into an SVG box with y pointing down.
func polylinePoints(points []models.DataPoint, r models.Range, width, height float64) string {
	if r.Width() <= 0 || r.Height() <= 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range points {
		if i > 0 {
			b.WriteByte(' ')
		}
		px := (p.X() - r.XMin) / r.Width() * width
		py := height - (p.Y()-r.YMin)/r.Height()*height
		b.WriteString(strconv.FormatFloat(utils.RoundToXDp(px, POINT_DP), 'f', -1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(utils.RoundToXDp(py, POINT_DP), 'f', -1, 64))
	}
	return b.String()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(utils.RoundToXDp(v, VALUE_DP), 'f', -1, 64)
}

func keyToTitle(s string) string {
	return strings.NewReplacer("-", " ", "_", " ").Replace(s)
}

func (d *Dashboard) activeSeriesIndex(clientID, chartKey string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.activeSeries[clientID][chartKey]
}

func (d *Dashboard) setActiveSeriesIndex(clientID, chartKey string, idx int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.activeSeries[clientID]; !ok {
		d.activeSeries[clientID] = make(map[string]int)
	}
	d.activeSeries[clientID][chartKey] = idx
}
