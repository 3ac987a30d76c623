package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"LayerSentinel/internal/model"
	"LayerSentinel/internal/news"
	"LayerSentinel/internal/pipeline"
	"LayerSentinel/internal/strategy"
)

const defaultHistoryLimit = 30

// LayerView is one layer outcome with its error flattened to text.
type LayerView struct {
	Layer  string             `json:"layer"`
	ETF    string             `json:"etf"`
	Stock  string             `json:"stock"`
	Result *model.ScoreResult `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
	Reason string             `json:"reason,omitempty"`
}

// ReportView is the JSON shape of a scoring run.
type ReportView struct {
	RunID      string                 `json:"run_id"`
	StartedAt  time.Time              `json:"started_at"`
	DurationMS int64                  `json:"duration_ms"`
	Top        string                 `json:"top,omitempty"`
	Layers     []LayerView            `json:"layers"`
	News       news.Result            `json:"news"`
	Tagged     []model.TaggedNewsItem `json:"tagged"`
}

// NewsView is the JSON shape of a news request.
type NewsView struct {
	Ticker string                 `json:"ticker"`
	Tier   news.Tier              `json:"tier"`
	Live   bool                   `json:"live"`
	Items  []model.TaggedNewsItem `json:"items"`
}

type layerConfigView struct {
	model.LayerConfig
	FundamentalActive bool `json:"fundamental_active"`
}

// NewReportView flattens a report for JSON output.
func NewReportView(rep *pipeline.Report) ReportView {
	v := ReportView{
		RunID:      rep.RunID,
		StartedAt:  rep.StartedAt,
		DurationMS: rep.Duration.Milliseconds(),
		Layers:     make([]LayerView, 0, len(rep.Outcomes)),
		News:       rep.News,
		Tagged:     rep.Tagged,
	}
	if rep.Top != nil {
		v.Top = rep.Top.Layer.Name
	}
	for _, o := range rep.Outcomes {
		lv := LayerView{Layer: o.Layer.Name, ETF: o.Layer.ETF, Stock: o.Layer.Stock, Result: o.Result}
		if o.Err != nil {
			lv.Error = o.Err.Error()
			lv.Reason = strategy.Reason(o.Err)
		}
		v.Layers = append(v.Layers, lv)
	}
	return v
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// runOptions applies the demo/max/layers query parameters on top of the
// configured defaults.
func (s *Server) runOptions(r *http.Request) (pipeline.Options, error) {
	opts := s.opts
	q := r.URL.Query()
	if v := q.Get("demo"); v != "" {
		demo, err := strconv.ParseBool(v)
		if err != nil {
			return opts, err
		}
		opts.UseDemoNews = demo
	}
	if v := q.Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, err
		}
		if n <= 0 {
			return opts, fmt.Errorf("max must be positive, got %d", n)
		}
		opts.MaxNewsItems = n
	}
	if v := q.Get("layers"); v != "" {
		opts.Layers = nil
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				opts.Layers = append(opts.Layers, name)
			}
		}
	}
	return opts, nil
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	opts, err := s.runOptions(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid query: "+err.Error())
		return
	}
	rep, err := s.runner.Run(r.Context(), opts)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, NewReportView(rep))
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "ticker")))
	if ticker == "" {
		s.writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	opts, err := s.runOptions(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid query: "+err.Error())
		return
	}
	res, tagged := s.runner.News(r.Context(), ticker, opts)
	if tagged == nil {
		tagged = []model.TaggedNewsItem{}
	}
	s.writeJSON(w, http.StatusOK, NewsView{Ticker: ticker, Tier: res.Tier, Live: res.Live, Items: tagged})
}

func (s *Server) handleMacro(w http.ResponseWriter, r *http.Request) {
	rep, err := s.runner.Macro(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleLayers(w http.ResponseWriter, r *http.Request) {
	var flags map[string]bool
	if s.flags != nil {
		flags = s.flags.Snapshot()
	}
	layers := s.runner.Layers()
	out := make([]layerConfigView, 0, len(layers))
	for _, l := range layers {
		active := l.Fundamental
		if flags != nil {
			active = flags[l.Name]
		}
		out = append(out, layerConfigView{LayerConfig: l, FundamentalActive: active})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusNotImplemented, "history is not recorded")
		return
	}
	layer := chi.URLParam(r, "layer")
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	points, err := s.history.LayerHistory(r.Context(), layer, limit)
	if err != nil {
		s.log.Error().Err(err).Str("layer", layer).Msg("Failed to read layer history")
		s.writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	s.writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "no cache"})
		return
	}
	if err := s.cache.Clear(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("Failed to clear cache")
		s.writeError(w, http.StatusInternalServerError, "failed to clear cache")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
