package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MRamiBalles/CellularAutomata3D/internal/domain/cell"
	"github.com/MRamiBalles/CellularAutomata3D/internal/engine"
	"github.com/MRamiBalles/CellularAutomata3D/internal/events"
	"github.com/MRamiBalles/CellularAutomata3D/internal/infra/storage"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/logger"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/metrics"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/optimization"
)

type fixture struct {
	srv    *httptest.Server
	engine *engine.Engine
	ticker *engine.Ticker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.InitSQLite(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	log := logger.NewLoggerWithWriter(io.Discard)
	collector := metrics.NewCollector()
	presets := storage.NewSQLitePresetRepository(db)
	runs := storage.NewSQLiteRunRepository(db)
	if err := storage.SeedBuiltInPresets(context.Background(), presets); err != nil {
		t.Fatal(err)
	}

	el := events.NewEventLog(0, storage.NewRunRecorder(runs, log, collector))
	eng := engine.NewEngine(el, log, optimization.LowResourceConfig(), engine.WithCollector(collector))
	ticker := engine.NewTicker(eng, log, time.Hour)

	srv := httptest.NewServer(NewServer(eng, presets, runs, ticker, log, collector).Routes(nil))
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, engine: eng, ticker: ticker}
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

const centreRun = `{"width":3,"height":3,"depth":3,"reproduce":"3","survive":"2,3","dying":"1","cells":[{"x":1,"y":1,"z":1}]}`

func TestRunStepAndInspect(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodPost, "/api/run", centreRun)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", code, body)
	}
	var started struct {
		RunID string `json:"run_id"`
	}
	json.Unmarshal(body, &started)
	if started.RunID == "" {
		t.Fatalf("Expected run id in %s", body)
	}

	if code, body = f.do(t, http.MethodPost, "/api/step", ""); code != http.StatusOK {
		t.Fatalf("Step failed: %d %s", code, body)
	}

	code, body = f.do(t, http.MethodGet, "/api/cell?x=1&y=1&z=1", "")
	if code != http.StatusOK {
		t.Fatalf("Cell failed: %d %s", code, body)
	}
	var got struct {
		Cell      cell.Cell `json:"cell"`
		Active    bool      `json:"active"`
		LifeRatio float64   `json:"life_ratio"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got.Cell != cell.Dying(1) || !got.Active || got.LifeRatio != 1 {
		t.Errorf("Unexpected centre cell %s", body)
	}

	code, body = f.do(t, http.MethodGet, "/api/snapshot", "")
	var snap engine.Snapshot
	json.Unmarshal(body, &snap)
	if code != http.StatusOK || snap.Generation != 1 || len(snap.Cells) != 1 {
		t.Errorf("Unexpected snapshot %d %s", code, body)
	}

	if code, _ = f.do(t, http.MethodPost, "/api/step?n=2", ""); code != http.StatusOK {
		t.Errorf("Multi-step failed: %d", code)
	}
	code, body = f.do(t, http.MethodGet, "/api/census", "")
	var census struct {
		Report engine.CensusReport `json:"report"`
	}
	json.Unmarshal(body, &census)
	if code != http.StatusOK || census.Report.Generation != 3 || !census.Report.Extinct {
		t.Errorf("Unexpected census %d %s", code, body)
	}

	if code, _ = f.do(t, http.MethodPost, "/api/stop", ""); code != http.StatusOK {
		t.Errorf("Stop failed: %d", code)
	}
	code, body = f.do(t, http.MethodGet, "/api/runs?id="+started.RunID, "")
	var rec storage.RunRecord
	json.Unmarshal(body, &rec)
	if code != http.StatusOK || rec.Generations != 3 || rec.FinishedAt == nil {
		t.Errorf("Unexpected run record %d %s", code, body)
	}
}

func TestErrorStatusCodes(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"step without run", http.MethodPost, "/api/step", "", http.StatusConflict},
		{"cell without run", http.MethodGet, "/api/cell?x=0&y=0&z=0", "", http.StatusConflict},
		{"bad thresholds", http.MethodPost, "/api/run", `{"width":3,"height":3,"depth":3,"reproduce":"x","survive":"1","dying":"1"}`, http.StatusBadRequest},
		{"empty dying set", http.MethodPost, "/api/run", `{"width":3,"height":3,"depth":3,"reproduce":"3","survive":"1","dying":""}`, http.StatusBadRequest},
		{"zero depth", http.MethodPost, "/api/run", `{"width":3,"height":3,"depth":0,"reproduce":"3","survive":"1","dying":"1"}`, http.StatusBadRequest},
		{"huge range", http.MethodPost, "/api/run", `{"width":3,"height":3,"depth":3,"reproduce":"0-20000000","survive":"1","dying":"1"}`, http.StatusBadRequest},
		{"countdown too long", http.MethodPost, "/api/run", `{"width":3,"height":3,"depth":3,"reproduce":"3","survive":"1","dying":"4294967296"}`, http.StatusBadRequest},
		{"grid too large", http.MethodPost, "/api/run", `{"width":3000000,"height":3000000,"depth":3000000,"reproduce":"3","survive":"1","dying":"1"}`, http.StatusBadRequest},
		{"preset with huge range", http.MethodPost, "/api/presets", `{"name":"big","width":6,"height":6,"depth":6,"reproduce":"3","survive":"2","dying":"1-99999999"}`, http.StatusBadRequest},
		{"unknown preset", http.MethodPost, "/api/run", `{"preset":"nope"}`, http.StatusNotFound},
		{"bad json", http.MethodPost, "/api/run", `{`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, "/api/run", "", http.StatusMethodNotAllowed},
		{"start for later cases", http.MethodPost, "/api/run", centreRun, http.StatusOK},
		{"cell out of range", http.MethodGet, "/api/cell?x=3&y=0&z=0", "", http.StatusNotFound},
		{"cell not numeric", http.MethodGet, "/api/cell?x=a&y=0&z=0", "", http.StatusBadRequest},
		{"too many steps", http.MethodPost, "/api/step?n=5000", "", http.StatusBadRequest},
		{"delete built-in", http.MethodDelete, "/api/presets?name=amoeba", "", http.StatusConflict},
		{"bad interval", http.MethodPost, "/api/interval", `{"interval":"soon"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if code, body := f.do(t, tc.method, tc.path, tc.body); code != tc.want {
				t.Errorf("Expected %d, got %d: %s", tc.want, code, body)
			}
		})
	}
}

func TestPresetsEndpoints(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodGet, "/api/presets", "")
	var list []storage.Preset
	json.Unmarshal(body, &list)
	if code != http.StatusOK || len(list) != len(storage.BuiltInPresets()) {
		t.Fatalf("Expected built-in presets, got %d %s", code, body)
	}

	mine := `{"name":"mine","width":6,"height":6,"depth":6,"reproduce":"3","survive":"2-3","dying":"1,2","topology":"moore","seed_mode":"center","seed_probability":1}`
	if code, body = f.do(t, http.MethodPost, "/api/presets", mine); code != http.StatusOK {
		t.Fatalf("Save failed: %d %s", code, body)
	}
	if code, _ = f.do(t, http.MethodPost, "/api/presets", `{"name":"broken","width":6,"height":6,"depth":6,"reproduce":"3","survive":"","dying":"1"}`); code != http.StatusBadRequest {
		t.Errorf("Expected preset with empty survive set to be rejected, got %d", code)
	}
	if code, _ = f.do(t, http.MethodPost, "/api/presets", `{"name":"amoeba","width":6,"height":6,"depth":6,"reproduce":"3","survive":"2","dying":"1"}`); code != http.StatusConflict {
		t.Errorf("Expected built-in overwrite to be refused, got %d", code)
	}

	if code, body = f.do(t, http.MethodPost, "/api/run", `{"preset":"mine","seed_rng":5,"step_rng":6}`); code != http.StatusOK {
		t.Fatalf("Run from preset failed: %d %s", code, body)
	}
	report, _ := f.engine.Census()
	if report.Population.Alive != 27 {
		t.Errorf("Expected the 27-cell centre block, got %+v", report.Population)
	}

	if code, _ = f.do(t, http.MethodDelete, "/api/presets?name=mine", ""); code != http.StatusOK {
		t.Errorf("Delete failed: %d", code)
	}
	if code, _ = f.do(t, http.MethodGet, "/api/presets?name=mine", ""); code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", code)
	}
}

func TestPauseResumeAndInterval(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/run", centreRun)

	if code, _ := f.do(t, http.MethodPost, "/api/pause", ""); code != http.StatusOK || !f.engine.Paused() {
		t.Errorf("Pause failed: %d", code)
	}
	if code, _ := f.do(t, http.MethodPost, "/api/resume", ""); code != http.StatusOK || f.engine.Paused() {
		t.Errorf("Resume failed: %d", code)
	}
	if code, _ := f.do(t, http.MethodPost, "/api/reseed", ""); code != http.StatusOK {
		t.Errorf("Reseed failed: %d", code)
	}
	if code, _ := f.do(t, http.MethodPost, "/api/interval", `{"interval":"250ms"}`); code != http.StatusOK || f.ticker.Interval() != 250*time.Millisecond {
		t.Errorf("Interval change failed: %d %s", code, f.ticker.Interval())
	}
}

func TestMetricsEndpoints(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/run", centreRun)
	f.do(t, http.MethodPost, "/api/step", "")

	code, body := f.do(t, http.MethodGet, "/metrics/prometheus", "")
	if code != http.StatusOK || !strings.Contains(string(body), "automata_generations_total 1") {
		t.Errorf("Unexpected prometheus output %d:\n%s", code, body)
	}
	code, body = f.do(t, http.MethodGet, "/metrics", "")
	var snap map[string]interface{}
	if code != http.StatusOK || json.Unmarshal(body, &snap) != nil || snap["step"] == nil {
		t.Errorf("Unexpected metrics output %d %s", code, body)
	}
}
