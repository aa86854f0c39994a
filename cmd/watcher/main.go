// Package main - watcher
// Connects one or more viewers to an automata server, prints what they see,
// and optionally loads the server by sending commands on an interval.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/CellularAutomata3D/internal/events"
	"github.com/MRamiBalles/CellularAutomata3D/internal/network"
)

// Config for the watcher
type Config struct {
	ServerURL       string
	NumClients      int
	Command         string
	CommandInterval time.Duration
	Duration        time.Duration
	Verbose         bool
	ResultsPath     string
}

// Stats tracks what the viewers received.
type Stats struct {
	FramesReceived int64
	Snapshots      int64
	Generations    int64
	CommandsSent   int64
	ServerErrors   int64
	Errors         int64
	Latencies      []time.Duration
	mu             sync.Mutex
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 1, "Number of concurrent viewers")
	command := flag.String("command", "", "Command each viewer sends on an interval: STEP, SNAPSHOT, PAUSE, RESUME or RESEED")
	interval := flag.Duration("interval", 500*time.Millisecond, "Command interval per viewer")
	duration := flag.Duration("duration", 30*time.Second, "How long to watch")
	verbose := flag.Bool("v", false, "Print every event seen by the first viewer")
	results := flag.String("out", "", "Write results as JSON to this file")
	flag.Parse()

	config := Config{
		ServerURL:       *serverURL,
		NumClients:      *numClients,
		Command:         *command,
		CommandInterval: *interval,
		Duration:        *duration,
		Verbose:         *verbose,
		ResultsPath:     *results,
	}

	fmt.Println("=========================================")
	fmt.Println("AUTOMATA WATCHER")
	fmt.Println("=========================================")
	fmt.Printf("Server:   %s\n", config.ServerURL)
	fmt.Printf("Viewers:  %d\n", config.NumClients)
	if config.Command != "" {
		fmt.Printf("Command:  %s every %v\n", config.Command, config.CommandInterval)
	}
	fmt.Printf("Duration: %v\n", config.Duration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), config.Duration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupt received, stopping...")
		cancel()
	}()

	start := time.Now()
	stats := watch(ctx, config)
	printResults(stats, config, time.Since(start))
}

func watch(ctx context.Context, config Config) *Stats {
	stats := &Stats{Latencies: make([]time.Duration, 0, 1024)}

	var wg sync.WaitGroup
	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runViewer(ctx, clientID, config, stats)
		}(i)

		// Stagger viewer starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("Progress: frames=%s generations=%s errors=%d\n",
					humanize.Comma(atomic.LoadInt64(&stats.FramesReceived)),
					humanize.Comma(atomic.LoadInt64(&stats.Generations)),
					atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	wg.Wait()
	return stats
}

func runViewer(ctx context.Context, clientID int, config Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		log.Printf("Viewer %d: connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	// Unblock the reader when the run ends.
	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	}()

	if config.Command != "" {
		go sendCommands(ctx, conn, config, stats)
	}

	for {
		var frame network.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() == nil {
				atomic.AddInt64(&stats.Errors, 1)
				log.Printf("Viewer %d: read failed: %v", clientID, err)
			}
			return
		}
		atomic.AddInt64(&stats.FramesReceived, 1)

		switch frame.Kind {
		case network.FrameSnapshot:
			atomic.AddInt64(&stats.Snapshots, 1)
		case network.FrameError:
			atomic.AddInt64(&stats.ServerErrors, 1)
		case network.FrameEvent:
			if frame.Event == nil {
				continue
			}
			if frame.Event.Type == events.EventTypeGenerationAdvanced {
				atomic.AddInt64(&stats.Generations, 1)
				stats.mu.Lock()
				stats.Latencies = append(stats.Latencies, time.Since(frame.Event.Timestamp))
				stats.mu.Unlock()
			}
			if config.Verbose && clientID == 0 {
				fmt.Printf("%s run=%s gen=%d\n", frame.Event.Type, frame.Event.RunID, frame.Event.Generation)
			}
		}
	}
}

func sendCommands(ctx context.Context, conn *websocket.Conn, config Config, stats *Stats) {
	ticker := time.NewTicker(config.CommandInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteJSON(network.Command{Type: config.Command}); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.CommandsSent, 1)
		}
	}
}

func printResults(stats *Stats, config Config, elapsed time.Duration) {
	fmt.Println("\n=========================================")
	fmt.Println("WATCH RESULTS")
	fmt.Println("=========================================")

	frames := atomic.LoadInt64(&stats.FramesReceived)
	gens := atomic.LoadInt64(&stats.Generations)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Frames Received:   %s\n", humanize.Comma(frames))
	fmt.Printf("Generations Seen:  %s\n", humanize.Comma(gens))
	fmt.Printf("Snapshots:         %s\n", humanize.Comma(atomic.LoadInt64(&stats.Snapshots)))
	fmt.Printf("Commands Sent:     %s\n", humanize.Comma(atomic.LoadInt64(&stats.CommandsSent)))
	fmt.Printf("Server Errors:     %d\n", atomic.LoadInt64(&stats.ServerErrors))
	fmt.Printf("Errors:            %d\n", errs)

	throughput := float64(frames) / elapsed.Seconds()
	fmt.Printf("Throughput:        %s frames/sec\n", humanize.FormatFloat("#,###.##", throughput))

	// Event age on arrival: generation time to viewer receipt
	stats.mu.Lock()
	latencies := stats.Latencies
	stats.mu.Unlock()
	if len(latencies) > 0 {
		var total time.Duration
		lo, hi := latencies[0], latencies[0]
		for _, l := range latencies {
			total += l
			lo = min(lo, l)
			hi = max(hi, l)
		}
		fmt.Printf("\nDelivery latency:\n")
		fmt.Printf("  Min: %v\n", lo)
		fmt.Printf("  Avg: %v\n", total/time.Duration(len(latencies)))
		fmt.Printf("  Max: %v\n", hi)
	}
	fmt.Println("=========================================")

	if config.ResultsPath == "" {
		return
	}
	results := map[string]interface{}{
		"frames_received":    frames,
		"generations_seen":   gens,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"elapsed_seconds":    elapsed.Seconds(),
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"command":  config.Command,
			"interval": config.CommandInterval.String(),
			"duration": config.Duration.String(),
		},
	}
	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile(config.ResultsPath, jsonData, 0644); err != nil {
		log.Printf("Failed to write results: %v", err)
		return
	}
	fmt.Printf("Results saved to %s\n", config.ResultsPath)
}
