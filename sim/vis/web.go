// Package vis provides the visualization engines selectable with
// --visualize. The web engine serves the shared visualization regions as
// JSON and streams new frames over websockets.
package vis

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/halo-sim/halo-sim/sim"
)

// pollInterval is how often a websocket stream checks for a new frame.
const pollInterval = 50 * time.Millisecond

// Web is the HTTP visualization engine.
type Web struct {
	log logrus.FieldLogger

	mu   sync.Mutex
	addr string
}

// NewWeb creates the web engine.
func NewWeb(log logrus.FieldLogger) sim.VisEngine {
	return &Web{log: log.WithField("engine", "web")}
}

func (w *Web) Name() string { return "web" }

// Addr returns the bound listen address once Run has started serving.
func (w *Web) Addr() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.addr
}

// Run serves until visQuit is set or ctx is done.
func (w *Web) Run(ctx context.Context, cfg *sim.Config, blocks []*sim.Block, visQuit, simQuit *sim.Signal, shared *sim.VisConfig) error {
	ln, err := net.Listen("tcp", cfg.VisAddr)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.addr = ln.Addr().String()
	w.mu.Unlock()
	w.log.WithField("addr", w.addr).Info("Visualization server listening")

	srv := &http.Server{
		Handler:           NewHandler(blocks, visQuit, simQuit, shared, w.log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	select {
	case <-visQuit.Done():
	case <-ctx.Done():
	case err := <-served:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		srv.Close()
	}
	if err := <-served; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type handler struct {
	blocks  map[int]*sim.Block
	order   []*sim.Block
	visQuit *sim.Signal
	simQuit *sim.Signal
	shared  *sim.VisConfig
	log     logrus.FieldLogger

	upgrader websocket.Upgrader
}

// NewHandler builds the router of the web engine:
//
//	GET  /api/config       current VisSettings
//	PUT  /api/config       change field_name and/or all_blocks
//	GET  /api/blocks       block topology
//	GET  /api/blocks/{id}  latest frame of one block
//	GET  /ws/blocks/{id}   frame stream of one block
//	POST /api/quit         ask the simulation to stop
func NewHandler(blocks []*sim.Block, visQuit, simQuit *sim.Signal, shared *sim.VisConfig, log logrus.FieldLogger) http.Handler {
	h := &handler{
		blocks:  make(map[int]*sim.Block, len(blocks)),
		order:   blocks,
		visQuit: visQuit,
		simQuit: simQuit,
		shared:  shared,
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, b := range blocks {
		h.blocks[b.ID] = b
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/config", h.getConfig).Methods(http.MethodGet)
	r.HandleFunc("/api/config", h.putConfig).Methods(http.MethodPut)
	r.HandleFunc("/api/blocks", h.listBlocks).Methods(http.MethodGet)
	r.HandleFunc("/api/blocks/{id:[0-9]+}", h.getFrame).Methods(http.MethodGet)
	r.HandleFunc("/ws/blocks/{id:[0-9]+}", h.streamFrames).Methods(http.MethodGet)
	r.HandleFunc("/api/quit", h.quit).Methods(http.MethodPost)
	return r
}

// BlockInfo describes one block in GET /api/blocks.
type BlockInfo struct {
	ID        int   `json:"id"`
	Location  []int `json:"location"`
	Size      []int `json:"size"`
	Neighbors []int `json:"neighbors"`
}

// Frame is the visualization data of one block.
type Frame struct {
	Block     int       `json:"block"`
	Iteration int       `json:"iteration"`
	Values    []float32 `json:"values"`
	Tags      []uint8   `json:"tags"`
}

// settingsUpdate is the body of PUT /api/config; absent fields are kept.
type settingsUpdate struct {
	FieldName *string `json:"field_name"`
	AllBlocks *bool   `json:"all_blocks"`
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Debug("writing response")
	}
}

func (h *handler) getConfig(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.shared.Settings())
}

func (h *handler) putConfig(w http.ResponseWriter, r *http.Request) {
	var upd settingsUpdate
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&upd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if upd.FieldName != nil {
		h.shared.SetField(*upd.FieldName)
	}
	if upd.AllBlocks != nil {
		h.shared.SetAllBlocks(*upd.AllBlocks)
	}
	h.writeJSON(w, http.StatusOK, h.shared.Settings())
}

func (h *handler) listBlocks(w http.ResponseWriter, _ *http.Request) {
	infos := make([]BlockInfo, 0, len(h.order))
	for _, b := range h.order {
		neighbors := []int{}
		for _, fn := range b.ConnectingBlocks() {
			neighbors = append(neighbors, fn.Neighbor)
		}
		infos = append(infos, BlockInfo{ID: b.ID, Location: b.Location, Size: b.Size, Neighbors: neighbors})
	}
	h.writeJSON(w, http.StatusOK, infos)
}

func (h *handler) lookup(w http.ResponseWriter, r *http.Request) (*sim.Block, bool) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	b, ok := h.blocks[id]
	if !ok || b.VisRegion() == nil {
		http.Error(w, "block not found", http.StatusNotFound)
		return nil, false
	}
	return b, true
}

func frameOf(b *sim.Block) Frame {
	it, values, tags := b.VisRegion().Snapshot()
	return Frame{Block: b.ID, Iteration: it, Values: values, Tags: tags}
}

func (h *handler) getFrame(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, frameOf(b))
}

// streamFrames pushes a frame whenever the block's region holds a newer
// iteration than the last one sent.
func (h *handler) streamFrames(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookup(w, r)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Reader goroutine: detects the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	last := -2
	for {
		if f := frameOf(b); f.Iteration != last {
			last = f.Iteration
			data, _ := json.Marshal(f)
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
		select {
		case <-ticker.C:
		case <-gone:
			return
		case <-h.visQuit.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "simulation finished"))
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *handler) quit(w http.ResponseWriter, _ *http.Request) {
	h.log.Info("Shutdown requested by visualization client")
	h.simQuit.Set()
	w.WriteHeader(http.StatusAccepted)
}
