// Package api exposes the engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MRamiBalles/CellularAutomata3D/internal/domain/grid"
	"github.com/MRamiBalles/CellularAutomata3D/internal/domain/rules"
	"github.com/MRamiBalles/CellularAutomata3D/internal/engine"
	"github.com/MRamiBalles/CellularAutomata3D/internal/infra/storage"
	"github.com/MRamiBalles/CellularAutomata3D/internal/network"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/logger"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/metrics"
)

// MaxStepsPerRequest bounds POST /api/step?n=.
const MaxStepsPerRequest = 1000

// Server holds the HTTP handlers' dependencies.
type Server struct {
	engine  *engine.Engine
	presets storage.PresetRepository
	runs    storage.RunRepository
	ticker  *engine.Ticker
	logger  *logger.Logger
	metrics *metrics.Collector
}

// NewServer wires the handlers. ticker and collector may be nil.
func NewServer(eng *engine.Engine, presets storage.PresetRepository, runs storage.RunRepository,
	ticker *engine.Ticker, log *logger.Logger, collector *metrics.Collector) *Server {
	if collector == nil {
		collector = metrics.Get()
	}
	return &Server{
		engine:  eng,
		presets: presets,
		runs:    runs,
		ticker:  ticker,
		logger:  log,
		metrics: collector,
	}
}

// StartRequest is the body of POST /api/run: either a preset name, optionally
// with pinned seeds, or a complete run description.
type StartRequest struct {
	Preset string `json:"preset,omitempty"`
	engine.RunRequest
}

// Start begins a run from req, resolving a preset when one is named.
func (s *Server) Start(ctx context.Context, req StartRequest) (string, error) {
	runReq := req.RunRequest
	if req.Preset != "" {
		p, err := s.presets.Get(ctx, req.Preset)
		if err != nil {
			return "", err
		}
		runReq = p.RunRequest()
		runReq.SeedRNG, runReq.StepRNG = req.SeedRNG, req.StepRNG
		runReq.Cells = req.Cells
		if req.SeedProbability != nil {
			runReq.SeedProbability = req.SeedProbability
		}
	}
	spec, err := runReq.Spec()
	if err != nil {
		return "", err
	}
	return s.engine.Start(spec)
}

// Routes returns the full HTTP surface. hub may be nil to serve without /ws.
func (s *Server) Routes(hub *network.Hub) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/run", allow(http.MethodPost, s.handleRun))
	mux.HandleFunc("/api/step", allow(http.MethodPost, s.handleStep))
	mux.HandleFunc("/api/pause", allow(http.MethodPost, s.simple(s.engine.Pause)))
	mux.HandleFunc("/api/resume", allow(http.MethodPost, s.simple(s.engine.Resume)))
	mux.HandleFunc("/api/reseed", allow(http.MethodPost, s.simple(s.engine.Reseed)))
	mux.HandleFunc("/api/stop", allow(http.MethodPost, s.handleStop))
	mux.HandleFunc("/api/interval", allow(http.MethodPost, s.handleInterval))
	mux.HandleFunc("/api/cell", allow(http.MethodGet, s.handleCell))
	mux.HandleFunc("/api/snapshot", allow(http.MethodGet, s.handleSnapshot))
	mux.HandleFunc("/api/census", allow(http.MethodGet, s.handleCensus))
	mux.HandleFunc("/api/presets", s.handlePresets)
	mux.HandleFunc("/api/runs", allow(http.MethodGet, s.handleRuns))

	if hub != nil {
		mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
			network.ServeWs(hub, w, r)
		})
	}
	mux.HandleFunc("/metrics", s.metrics.Handler())
	mux.HandleFunc("/metrics/prometheus", s.metrics.PrometheusHandler())
	return mux
}

func allow(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, grid.ErrInvalidConfiguration), errors.Is(err, rules.ErrParse):
		return http.StatusBadRequest
	case errors.Is(err, grid.ErrOutOfRange), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrNoRun), errors.Is(err, storage.ErrBuiltIn):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.Errorf("%s %s failed: %v", r.Method, r.URL.Path, err)
	}
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}
	runID, err := s.Start(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	report, _ := s.engine.Census()
	writeJSON(w, map[string]interface{}{
		"status":     "ok",
		"run_id":     runID,
		"population": report.Population,
	})
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	n := 1
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > MaxStepsPerRequest {
			http.Error(w, fmt.Sprintf("n must be between 1 and %d", MaxStepsPerRequest), http.StatusBadRequest)
			return
		}
		n = parsed
	}

	var last grid.Transitions
	for i := 0; i < n; i++ {
		tr, err := s.engine.Advance()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		last = tr
	}
	writeJSON(w, map[string]interface{}{
		"generation":  s.engine.Generation(),
		"transitions": last,
	})
}

func (s *Server) simple(op func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := op(); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, map[string]interface{}{
			"status":     "ok",
			"generation": s.engine.Generation(),
			"paused":     s.engine.Paused(),
		})
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.Stop()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, report)
}

func (s *Server) handleInterval(w http.ResponseWriter, r *http.Request) {
	if s.ticker == nil {
		http.Error(w, "No ticker configured", http.StatusConflict)
		return
	}
	var req struct {
		Interval string `json:"interval"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}
	d, err := time.ParseDuration(req.Interval)
	if err != nil || d <= 0 {
		http.Error(w, "interval must be a positive duration such as 250ms", http.StatusBadRequest)
		return
	}
	s.ticker.SetInterval(d)
	writeJSON(w, map[string]string{"status": "ok", "interval": d.String()})
}

func (s *Server) handleCell(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var coords [3]int
	for i, key := range []string{"x", "y", "z"} {
		v, err := strconv.Atoi(q.Get(key))
		if err != nil {
			http.Error(w, "x, y and z must be integers", http.StatusBadRequest)
			return
		}
		coords[i] = v
	}
	c, err := s.engine.StateAt(coords[0], coords[1], coords[2])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"x":          coords[0],
		"y":          coords[1],
		"z":          coords[2],
		"cell":       c,
		"active":     !c.IsDead(),
		"life_ratio": c.LifeRatio(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Snapshot()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleCensus(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.Census()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"run_id":  s.engine.RunID(),
		"report":  report,
		"history": s.engine.History(),
	})
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		if name := r.URL.Query().Get("name"); name != "" {
			p, err := s.presets.Get(ctx, name)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, p)
			return
		}
		list, err := s.presets.List(ctx)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, list)

	case http.MethodPost:
		var p storage.Preset
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Name == "" {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		if existing, err := s.presets.Get(ctx, p.Name); err == nil && existing.BuiltIn {
			s.fail(w, r, fmt.Errorf("preset %s: %w", p.Name, storage.ErrBuiltIn))
			return
		}
		if err := validatePreset(p); err != nil {
			s.fail(w, r, err)
			return
		}
		p.BuiltIn = false
		start := time.Now()
		err := s.presets.Upsert(ctx, p)
		s.metrics.RecordStoreWrite(time.Since(start), err)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.logger.Infof("Preset %s saved (R%s/S%s/D%s)", p.Name, p.Reproduce, p.Survive, p.Dying)
		writeJSON(w, map[string]string{"status": "ok", "name": p.Name})

	case http.MethodDelete:
		if err := s.presets.Delete(ctx, r.URL.Query().Get("name")); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// validatePreset rejects presets that could never start a run.
func validatePreset(p storage.Preset) error {
	spec, err := p.RunRequest().Spec()
	if err != nil {
		return err
	}
	if missing := spec.Rules.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: empty threshold set(s): %s", grid.ErrInvalidConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if id := q.Get("id"); id != "" {
		run, err := s.runs.Get(r.Context(), id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, run)
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	list, err := s.runs.ListRecent(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, list)
}
