// Package metrics provides observability for the automaton server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance metrics.
type Collector struct {
	// Generation metrics
	Generations    int64
	StepLatencySum int64 // nanoseconds
	StepLatencyMax int64
	LastStepTime   time.Time

	// Population after the latest generation
	AliveCells int64
	DyingCells int64
	Births     int64 // cumulative
	Deaths     int64 // cumulative

	// Run lifecycle
	RunsStarted int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// Persistence metrics
	StoreWrites      int64
	StoreWriteLatSum int64
	StoreWriteErrors int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = NewCollector()

// NewCollector creates an empty collector. Most callers want Get.
func NewCollector() *Collector {
	return &Collector{StartTime: time.Now()}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordStep records one generation and the population it produced.
func (c *Collector) RecordStep(latency time.Duration, alive, dying, births, deaths int) {
	atomic.AddInt64(&c.Generations, 1)
	atomic.AddInt64(&c.StepLatencySum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.StepLatencyMax) {
		atomic.StoreInt64(&c.StepLatencyMax, int64(latency))
	}

	atomic.StoreInt64(&c.AliveCells, int64(alive))
	atomic.StoreInt64(&c.DyingCells, int64(dying))
	atomic.AddInt64(&c.Births, int64(births))
	atomic.AddInt64(&c.Deaths, int64(deaths))

	c.mu.Lock()
	c.LastStepTime = time.Now()
	c.mu.Unlock()
}

// RecordRunStarted records a fresh run and its seeded population.
func (c *Collector) RecordRunStarted(alive int) {
	atomic.AddInt64(&c.RunsStarted, 1)
	atomic.StoreInt64(&c.AliveCells, int64(alive))
	atomic.StoreInt64(&c.DyingCells, 0)
}

// RecordStoreWrite records a write to the database.
func (c *Collector) RecordStoreWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.StoreWrites, 1)
	atomic.AddInt64(&c.StoreWriteLatSum, int64(latency))
	if err != nil {
		atomic.AddInt64(&c.StoreWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	generations := atomic.LoadInt64(&c.Generations)
	writes := atomic.LoadInt64(&c.StoreWrites)

	var stepAvg, writeAvg float64
	if generations > 0 {
		stepAvg = float64(atomic.LoadInt64(&c.StepLatencySum)) / float64(generations) / 1e6 // ms
	}
	if writes > 0 {
		writeAvg = float64(atomic.LoadInt64(&c.StoreWriteLatSum)) / float64(writes) / 1e6
	}

	lastStep := ""
	if !c.LastStepTime.IsZero() {
		lastStep = c.LastStepTime.Format(time.RFC3339)
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"step": map[string]interface{}{
			"generations":    generations,
			"avg_latency_ms": stepAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.StepLatencyMax)) / 1e6,
			"last_step":      lastStep,
			"runs_started":   atomic.LoadInt64(&c.RunsStarted),
		},

		"population": map[string]interface{}{
			"alive":  atomic.LoadInt64(&c.AliveCells),
			"dying":  atomic.LoadInt64(&c.DyingCells),
			"births": atomic.LoadInt64(&c.Births),
			"deaths": atomic.LoadInt64(&c.Deaths),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},

		"store": map[string]interface{}{
			"writes":           writes,
			"avg_write_lat_ms": writeAvg,
			"errors":           atomic.LoadInt64(&c.StoreWriteErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return collector.Handler()
}

// Handler serves this collector's snapshot as JSON.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns the global metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return collector.PrometheusHandler()
}

// PrometheusHandler serves this collector in Prometheus text format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		fmt.Fprintf(w, "# HELP automata_generations_total Total generations stepped\n")
		fmt.Fprintf(w, "# TYPE automata_generations_total counter\n")
		fmt.Fprintf(w, "automata_generations_total %d\n\n", atomic.LoadInt64(&c.Generations))

		fmt.Fprintf(w, "# HELP automata_step_latency_max_ms Maximum step latency\n")
		fmt.Fprintf(w, "# TYPE automata_step_latency_max_ms gauge\n")
		fmt.Fprintf(w, "automata_step_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.StepLatencyMax))/1e6)

		fmt.Fprintf(w, "# HELP automata_cells Cells by state after the latest generation\n")
		fmt.Fprintf(w, "# TYPE automata_cells gauge\n")
		fmt.Fprintf(w, "automata_cells{state=\"alive\"} %d\n", atomic.LoadInt64(&c.AliveCells))
		fmt.Fprintf(w, "automata_cells{state=\"dying\"} %d\n\n", atomic.LoadInt64(&c.DyingCells))

		fmt.Fprintf(w, "# HELP automata_transitions_total Cell transitions\n")
		fmt.Fprintf(w, "# TYPE automata_transitions_total counter\n")
		fmt.Fprintf(w, "automata_transitions_total{kind=\"birth\"} %d\n", atomic.LoadInt64(&c.Births))
		fmt.Fprintf(w, "automata_transitions_total{kind=\"death\"} %d\n\n", atomic.LoadInt64(&c.Deaths))

		fmt.Fprintf(w, "# HELP automata_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE automata_ws_connections gauge\n")
		fmt.Fprintf(w, "automata_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP automata_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE automata_ws_messages_total counter\n")
		fmt.Fprintf(w, "automata_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "automata_ws_messages_total{direction=\"out\"} %d\n\n", atomic.LoadInt64(&c.WSMessagesOut))

		fmt.Fprintf(w, "# HELP automata_store_write_errors Total store write errors\n")
		fmt.Fprintf(w, "# TYPE automata_store_write_errors counter\n")
		fmt.Fprintf(w, "automata_store_write_errors %d\n", atomic.LoadInt64(&c.StoreWriteErrors))
	}
}
