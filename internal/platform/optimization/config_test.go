package optimization

import "testing"

func TestProfiles(t *testing.T) {
	for _, name := range []string{"", "default", "stress", "low"} {
		cfg, err := Profile(name)
		if err != nil {
			t.Fatalf("Profile(%q) failed: %v", name, err)
		}
		if cfg.StepWorkers < 1 || cfg.ClientSendBuffer < 1 || cfg.EventLogCapacity < 1 {
			t.Errorf("Profile(%q) has non-positive sizes: %+v", name, cfg)
		}
	}
	if _, err := Profile("turbo"); err == nil {
		t.Error("Expected error for unknown profile")
	}
}

func TestAnalyzeSlowSteps(t *testing.T) {
	snapshot := map[string]interface{}{
		"step":      map[string]interface{}{"max_latency_ms": 700.0},
		"websocket": map[string]interface{}{"errors": int64(3)},
		"store":     map[string]interface{}{"errors": int64(0)},
	}
	rec := Analyze(snapshot, 1000)
	if !rec.IncreaseWorkers || !rec.IncreaseBroadcastBuffer || rec.IncreaseDBConnections {
		t.Fatalf("Unexpected recommendations %+v", rec)
	}

	cfg := LowResourceConfig()
	cfg = ApplyRecommendations(cfg, rec)
	if cfg.StepWorkers != 2 || cfg.ClientSendBuffer != 16 {
		t.Errorf("Expected doubled workers and buffers, got %+v", cfg)
	}
}

func TestAnalyzeHealthy(t *testing.T) {
	snapshot := map[string]interface{}{
		"step": map[string]interface{}{"max_latency_ms": 10.0},
	}
	if rec := Analyze(snapshot, 1000); rec.IncreaseWorkers || len(rec.Notes) != 0 {
		t.Errorf("Expected no recommendations, got %+v", rec)
	}
}
