// Package network streams a run to WebSocket viewers and accepts their
// control commands.
package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/MRamiBalles/CellularAutomata3D/internal/domain/grid"
	"github.com/MRamiBalles/CellularAutomata3D/internal/engine"
	"github.com/MRamiBalles/CellularAutomata3D/internal/events"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/logger"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/metrics"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/optimization"
)

// Controller is the part of the engine viewers may drive. *engine.Engine implements it.
type Controller interface {
	Pause() error
	Resume() error
	Advance() (grid.Transitions, error)
	Reseed() error
	Snapshot() (engine.Snapshot, error)
}

// Frame kinds sent to viewers.
const (
	FrameEvent    = "event"
	FrameSnapshot = "snapshot"
	FrameError    = "error"
)

// Frame is one outgoing WebSocket message.
type Frame struct {
	Kind     string           `json:"kind"`
	Event    *events.SimEvent `json:"event,omitempty"`
	Snapshot *engine.Snapshot `json:"snapshot,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type unicast struct {
	client  *Client
	message []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	direct     chan unicast
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex

	controller Controller
	logger     *logger.Logger
	metrics    *metrics.Collector
	tuning     *optimization.Config

	// PollInterval is how often StartEventPoller reads the event log.
	PollInterval time.Duration
	// PushSnapshots sends a snapshot after each batch of generations
	// when the grid is no larger than tuning.SnapshotCellLimit.
	PushSnapshots bool
}

// NewHub initializes a new WebSocket Hub. tuning and collector may be nil.
func NewHub(ctrl Controller, log *logger.Logger, tuning *optimization.Config, collector *metrics.Collector) *Hub {
	if tuning == nil {
		tuning = optimization.DefaultConfig()
	}
	if collector == nil {
		collector = metrics.Get()
	}
	return &Hub{
		broadcast:     make(chan []byte, tuning.BroadcastChannelBuffer),
		direct:        make(chan unicast, tuning.BroadcastChannelBuffer),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		done:          make(chan struct{}),
		clients:       make(map[*Client]bool),
		controller:    ctrl,
		logger:        log,
		metrics:       collector,
		tuning:        tuning,
		PollInterval:  200 * time.Millisecond,
		PushSnapshots: true,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			if h.tuning.MaxClients > 0 && len(h.clients) >= h.tuning.MaxClients {
				close(client.send)
				h.mu.Unlock()
				h.logger.Warnf("Rejecting WebSocket client, %d already connected", h.tuning.MaxClients)
				continue
			}
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.metrics.RecordWSConnection(-1)
				h.logger.Info("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case u := <-h.direct:
			h.mu.Lock()
			if _, ok := h.clients[u.client]; ok {
				h.deliver(u.client, u.message)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				h.deliver(client, message)
			}
			h.mu.Unlock()
		}
	}
}

// deliver queues message for one client, dropping clients that cannot keep up.
// Callers hold h.mu.
func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.send <- message:
		h.metrics.RecordWSMessage(false)
	default:
		close(client.send)
		delete(h.clients, client)
		h.metrics.RecordWSConnection(-1)
		h.metrics.RecordWSError()
		h.logger.Warn("Dropping slow WebSocket client")
	}
}

// ClientCount is the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// BroadcastEvent serializes an event frame and sends it to every client.
func (h *Hub) BroadcastEvent(event events.SimEvent) {
	h.BroadcastFrame(Frame{Kind: FrameEvent, Event: &event})
}

// BroadcastFrame sends any frame to every client.
func (h *Hub) BroadcastFrame(frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.logger.Errorf("Failed to serialize %s frame for WebSocket broadcast: %v", frame.Kind, err)
		return
	}
	select {
	case h.broadcast <- payload:
	case <-h.done:
	}
}

func (h *Hub) sendTo(client *Client, frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.logger.Errorf("Failed to serialize %s frame: %v", frame.Kind, err)
		return
	}
	select {
	case h.direct <- unicast{client: client, message: payload}:
	case <-h.done:
	}
}

// StartEventPoller spawns a goroutine to poll the EventLog and push new events to the Hub.
// This allows the Hub to run independently from the engine while picking up the same events.
func (h *Hub) StartEventPoller(ctx context.Context, eventLog *events.EventLog) {
	go func() {
		pollInterval := time.NewTicker(h.PollInterval)
		defer pollInterval.Stop()

		cursor := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-pollInterval.C:
				var batch []events.SimEvent
				batch, cursor = eventLog.Since(cursor)

				advanced := false
				for _, event := range batch {
					h.BroadcastEvent(event)
					if event.Type == events.EventTypeGenerationAdvanced {
						advanced = true
					}
				}
				if advanced && h.PushSnapshots {
					h.pushSnapshot()
				}
			}
		}
	}()
}

func (h *Hub) pushSnapshot() {
	snap, err := h.controller.Snapshot()
	if err != nil {
		return
	}
	if limit := h.tuning.SnapshotCellLimit; limit > 0 && snap.Dimensions.Volume() > limit {
		return
	}
	h.BroadcastFrame(Frame{Kind: FrameSnapshot, Snapshot: &snap})
}
