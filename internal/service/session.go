// Package service hosts the telemetry tree on a single owner goroutine
// and lets any number of producer goroutines publish into it through a
// deferred command queue. Producers never hold a reference into the
// live store: they enqueue closures, and the owner drains the queue
// once per update cycle: swap under a short lock, apply outside it.
// External readers consume immutable snapshots published per cycle.
package service

import (
	"time"

	"github.com/buzzcola3/teleview/internal/telemetry"
)

// Update is a deferred command applied to the owner-resident session
// on the next drained cycle.
type Update func(*Session)

// sessionTile pairs a top-level store with its addressing id.
type sessionTile struct {
	id    string
	store *telemetry.Store
}

// Session is the owner-goroutine-resident root of the telemetry tree:
// an ordered collection of named tiles, each a full telemetry.Store.
// Sessions are created by the owner goroutine and must only be touched
// from inside Update closures or the per-cycle OnFrame callback.
type Session struct {
	opts           Options
	tiles          []sessionTile
	closeRequested bool
}

func newSession(opts Options) *Session {
	sess := &Session{opts: opts}
	// The configured tile and tab exist before the first command is
	// applied, so the first published snapshot is never empty-shaped.
	sess.Tab("")
	return sess
}

// Tile returns the store with the given tile id, creating a fully
// initialized store if absent. When the tile exists, a non-empty title
// that differs from its window title renames it.
func (sess *Session) Tile(id string, title ...string) *telemetry.Store {
	name := ""
	if len(title) > 0 {
		name = title[0]
	}
	for _, tile := range sess.tiles {
		if tile.id == id {
			if name != "" && tile.store.WindowTitle() != name {
				tile.store.SetWindowTitle(name)
			}
			return tile.store
		}
	}
	if name == "" {
		name = id
	}
	store := telemetry.NewStore()
	store.SetWindowTitle(name)
	sess.tiles = append(sess.tiles, sessionTile{id: id, store: store})
	return store
}

// FindTile returns the store with the given id, or nil.
func (sess *Session) FindTile(id string) *telemetry.Store {
	for _, tile := range sess.tiles {
		if tile.id == id {
			return tile.store
		}
	}
	return nil
}

// RemoveTile removes the tile with the given id and reports whether a
// tile was removed.
func (sess *Session) RemoveTile(id string) bool {
	for i, tile := range sess.tiles {
		if tile.id == id {
			sess.tiles = append(sess.tiles[:i], sess.tiles[i+1:]...)
			return true
		}
	}
	return false
}

// TileIDs returns tile ids in creation order.
func (sess *Session) TileIDs() []string {
	ids := make([]string, len(sess.tiles))
	for i, tile := range sess.tiles {
		ids[i] = tile.id
	}
	return ids
}

// DefaultTile returns the tile configured at start.
func (sess *Session) DefaultTile() *telemetry.Store {
	return sess.Tile(sess.opts.TileID, sess.opts.WindowTitle)
}

// Tab returns the tab with the given id on the default tile, creating
// it if absent. An empty id targets the configured default tab.
func (sess *Session) Tab(tabID string) *telemetry.Tab {
	if tabID == "" {
		tabID = sess.opts.TabID
	}
	return sess.DefaultTile().EnsureTab(tabID, "")
}

// RequestClose asks the owner loop to shut down at the next cycle
// boundary. In-flight frame logic is never interrupted.
func (sess *Session) RequestClose() { sess.closeRequested = true }

// graphConfig resolves an optional explicit config against the
// session's configured graph defaults.
func (sess *Session) graphConfig(config []telemetry.GraphConfig) telemetry.GraphConfig {
	if len(config) > 0 {
		return config[0]
	}
	return sess.opts.GraphDefaults
}

// SessionSnapshot is the immutable per-cycle view handed to readers on
// other goroutines. It shares no memory with the live session.
// DefaultTile and DefaultTab carry the configured defaults so readers
// can resolve unqualified addresses the same way producers do.
type SessionSnapshot struct {
	Generation  uint64                   `json:"generation"`
	TakenAt     time.Time                `json:"taken_at"`
	DefaultTile string                   `json:"default_tile"`
	DefaultTab  string                   `json:"default_tab"`
	Tiles       []telemetry.TileSnapshot `json:"tiles,omitempty"`
}

// Tile returns the snapshot of the tile with the given id, if present.
func (s *SessionSnapshot) Tile(id string) (telemetry.StoreSnapshot, bool) {
	for _, tile := range s.Tiles {
		if tile.ID == id {
			return tile.Store, true
		}
	}
	return telemetry.StoreSnapshot{}, false
}

func (sess *Session) snapshot(generation uint64) SessionSnapshot {
	snap := SessionSnapshot{
		Generation:  generation,
		TakenAt:     time.Now(),
		DefaultTile: sess.opts.TileID,
		DefaultTab:  sess.opts.TabID,
	}
	for _, tile := range sess.tiles {
		snap.Tiles = append(snap.Tiles, telemetry.TileSnapshot{
			ID:    tile.id,
			Store: tile.store.Snapshot(),
		})
	}
	return snap
}
