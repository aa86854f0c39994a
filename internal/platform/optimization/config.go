// Package optimization provides concurrency tuning for large grids and many viewers.
package optimization

import (
	"fmt"
	"runtime"
	"strings"
)

// Config holds tuned parameters for high-load scenarios.
type Config struct {
	// Goroutines sharing one generation's scan
	StepWorkers int

	// Channel buffer sizes
	EventLogCapacity       int
	BroadcastChannelBuffer int
	ClientSendBuffer       int

	// Connection pools
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Viewers
	MaxClients int

	// Cells above which snapshots are not pushed on every generation
	SnapshotCellLimit int
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		StepWorkers: numCPU, // One slab per CPU

		EventLogCapacity:       4096,
		BroadcastChannelBuffer: 256,
		ClientSendBuffer:       64,

		// SQLite serialises writers anyway
		DBMaxOpenConns: 4,
		DBMaxIdleConns: 2,

		MaxClients:        200,
		SnapshotCellLimit: 32768,
	}
}

// StressTestConfig returns aggressive settings for stress testing.
func StressTestConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		StepWorkers: numCPU * 2,

		EventLogCapacity:       16384,
		BroadcastChannelBuffer: 512,
		ClientSendBuffer:       128,

		DBMaxOpenConns: 8,
		DBMaxIdleConns: 4,

		MaxClients:        500,
		SnapshotCellLimit: 8192,
	}
}

// LowResourceConfig returns minimal settings for development.
func LowResourceConfig() *Config {
	return &Config{
		StepWorkers: 1,

		EventLogCapacity:       256,
		BroadcastChannelBuffer: 16,
		ClientSendBuffer:       8,

		DBMaxOpenConns: 1,
		DBMaxIdleConns: 1,

		MaxClients:        20,
		SnapshotCellLimit: 4096,
	}
}

// Profile returns the named tuning profile: "default", "stress" or "low".
func Profile(name string) (*Config, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return DefaultConfig(), nil
	case "stress":
		return StressTestConfig(), nil
	case "low", "dev":
		return LowResourceConfig(), nil
	default:
		return nil, fmt.Errorf("unknown tuning profile %q", name)
	}
}

// Recommendations provides suggestions based on observed metrics.
type Recommendations struct {
	IncreaseWorkers         bool
	IncreaseBroadcastBuffer bool
	IncreaseDBConnections   bool
	Notes                   []string
}

// Analyze examines a metrics snapshot and returns optimization recommendations.
// interval is the cadence the ticker is driving generations at, in milliseconds.
func Analyze(metrics map[string]interface{}, intervalMS float64) *Recommendations {
	rec := &Recommendations{
		Notes: make([]string, 0),
	}

	// A step that eats most of the interval leaves no room for broadcasting
	if step, ok := metrics["step"].(map[string]interface{}); ok {
		if maxLat, ok := step["max_latency_ms"].(float64); ok && intervalMS > 0 && maxLat > intervalMS/2 {
			rec.IncreaseWorkers = true
			rec.Notes = append(rec.Notes, "Step latency exceeds half the tick interval - increase step workers")
		}
	}

	if store, ok := metrics["store"].(map[string]interface{}); ok {
		if errors, ok := store["errors"].(int64); ok && errors > 0 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Store write errors detected - check DB connection pool")
		}
	}

	// Check WebSocket backpressure
	if ws, ok := metrics["websocket"].(map[string]interface{}); ok {
		if errors, ok := ws["errors"].(int64); ok && errors > 0 {
			rec.IncreaseBroadcastBuffer = true
			rec.Notes = append(rec.Notes, "WebSocket errors detected - increase client send buffer")
		}
	}

	return rec
}

// ApplyRecommendations modifies config based on recommendations.
func ApplyRecommendations(config *Config, rec *Recommendations) *Config {
	if rec.IncreaseWorkers {
		config.StepWorkers *= 2
	}
	if rec.IncreaseBroadcastBuffer {
		config.BroadcastChannelBuffer *= 2
		config.ClientSendBuffer *= 2
	}
	if rec.IncreaseDBConnections {
		config.DBMaxOpenConns = int(float64(config.DBMaxOpenConns)*1.5) + 1
		config.DBMaxIdleConns = int(float64(config.DBMaxIdleConns)*1.5) + 1
	}
	return config
}
