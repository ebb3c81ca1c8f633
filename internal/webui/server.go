// Package webui serves an embedded live view over the telemetry
// service. It is a pure snapshot consumer: every request and every
// WebSocket push reads the immutable per-cycle snapshot, never the
// live store, so rendering load cannot slow producers down.
package webui

import (
	"context"
	"embed"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/buzzcola3/teleview/internal/service"
)

//go:embed static/index.html
var staticFiles embed.FS

// Server serves the embedded web UI and WebSocket updates.
type Server struct {
	svc     *service.Service
	started time.Time
}

// New creates a web UI server reading from the given service.
func New(svc *service.Service) *Server {
	return &Server{svc: svc, started: time.Now()}
}

// RegisterRoutes attaches web UI routes to an existing ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ui/", s.handleUI)
	mux.HandleFunc("GET /ui", s.handleUIRedirect)
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/tiles", s.handleTiles)
	mux.HandleFunc("GET /api/tab", s.handleTab)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
}

// ListenAndServe starts a standalone HTTP server for the web UI.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// handleUIRedirect redirects /ui to /ui/ for consistent routing.
func (s *Server) handleUIRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/ui/", http.StatusMovedPermanently)
}

// handleUI serves the embedded index.html.
func (s *Server) handleUI(w http.ResponseWriter, r *http.Request) {
	data, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "UI not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// handleSnapshot returns the latest full snapshot. 204 until the first
// service cycle has published one.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.svc.Snapshot()
	if snap == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, snap)
}

// tileSummary is the JSON shape for one entry of /api/tiles.
type tileSummary struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Visible bool     `json:"visible"`
	Tabs    []string `json:"tabs"`
}

// handleTiles returns ids, titles, and tab lists of all tiles.
func (s *Server) handleTiles(w http.ResponseWriter, r *http.Request) {
	snap := s.svc.Snapshot()
	tiles := []tileSummary{}
	if snap != nil {
		for _, tile := range snap.Tiles {
			summary := tileSummary{
				ID:      tile.ID,
				Title:   tile.Store.WindowTitle,
				Visible: tile.Store.Visible,
				Tabs:    []string{},
			}
			for _, tab := range tile.Store.Tabs {
				summary.Tabs = append(summary.Tabs, tab.ID)
			}
			tiles = append(tiles, summary)
		}
	}
	writeJSON(w, tiles)
}

// handleTab returns one tab's snapshot, addressed by ?tile= and ?tab=.
func (s *Server) handleTab(w http.ResponseWriter, r *http.Request) {
	snap := s.svc.Snapshot()
	if snap == nil {
		http.Error(w, "no snapshot yet", http.StatusNotFound)
		return
	}
	q := r.URL.Query()
	tileID := q.Get("tile")
	if tileID == "" {
		tileID = snap.DefaultTile
	}
	store, ok := snap.Tile(tileID)
	if !ok {
		http.Error(w, "tile not found", http.StatusNotFound)
		return
	}
	tabID := q.Get("tab")
	if tabID == "" {
		tabID = snap.DefaultTab
	}
	tab, ok := store.Tab(tabID)
	if !ok {
		http.Error(w, "tab not found", http.StatusNotFound)
		return
	}
	writeJSON(w, tab)
}

// statusResponse is the JSON shape for /api/status.
type statusResponse struct {
	Generation uint64  `json:"generation"`
	State      string  `json:"state"`
	Tiles      int     `json:"tiles"`
	Uptime     float64 `json:"uptime_seconds"`
}

// handleStatus returns the publish generation, service state, and
// uptime of the UI server.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Generation: s.svc.Generation(),
		State:      s.svc.State().String(),
		Uptime:     time.Since(s.started).Seconds(),
	}
	if snap := s.svc.Snapshot(); snap != nil {
		resp.Tiles = len(snap.Tiles)
	}
	writeJSON(w, resp)
}

// wsFilter is the client-sent filter message on the WebSocket.
type wsFilter struct {
	Tile   string `json:"tile"`
	Paused bool   `json:"paused"`
}

// wsUpdate is the server-sent update message on the WebSocket. The
// snapshot is omitted when the filter names a tile, in which case only
// that tile rides along.
type wsUpdate struct {
	Generation uint64                   `json:"generation"`
	Snapshot   *service.SessionSnapshot `json:"snapshot,omitempty"`
	Tile       any                      `json:"tile,omitempty"`
}

// handleWebSocket upgrades to WebSocket and streams a fresh snapshot
// whenever the service publishes one. Coalescing: a slow client skips
// generations instead of queueing them.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow any origin for localhost dev
	})
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	notifyCh, unsubscribe := s.svc.Subscribe()
	defer unsubscribe()

	var filter wsFilter
	var lastSent uint64

	// Read filter messages from the client in a goroutine.
	filterCh := make(chan wsFilter, 4)
	go func() {
		defer close(filterCh)
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var f wsFilter
			if json.Unmarshal(data, &f) == nil {
				select {
				case filterCh <- f:
				default:
				}
			}
		}
	}()

	// Send whatever exists immediately so the page renders on connect.
	s.sendWSUpdate(ctx, conn, &lastSent, filter, true)

	// Keepalive so the client can tell a quiet service from a dead one.
	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server shutting down")
			return

		case f, ok := <-filterCh:
			if !ok {
				// Client disconnected
				return
			}
			filter = f
			s.sendWSUpdate(ctx, conn, &lastSent, filter, true)

		case <-notifyCh:
			if filter.Paused {
				continue
			}
			s.sendWSUpdate(ctx, conn, &lastSent, filter, false)

		case <-keepalive.C:
			if filter.Paused {
				continue
			}
			s.sendWSUpdate(ctx, conn, &lastSent, filter, true)
		}
	}
}

// sendWSUpdate pushes the current snapshot if its generation is newer
// than the last one this client saw, or unconditionally when forced.
func (s *Server) sendWSUpdate(ctx context.Context, conn *websocket.Conn,
	lastSent *uint64, filter wsFilter, force bool) {

	snap := s.svc.Snapshot()
	if snap == nil {
		return
	}
	if !force && snap.Generation <= *lastSent {
		return
	}

	update := wsUpdate{Generation: snap.Generation}
	if filter.Tile != "" {
		if store, ok := snap.Tile(filter.Tile); ok {
			update.Tile = store
		}
	} else {
		update.Snapshot = snap
	}

	data, err := json.Marshal(update)
	if err != nil {
		log.Printf("webui: failed to marshal update: %v", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		// Connection closed; the main loop will handle cleanup.
		return
	}
	*lastSent = snap.Generation
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "")
	if err := enc.Encode(v); err != nil {
		log.Printf("webui: failed to write JSON: %v", err)
	}
}
