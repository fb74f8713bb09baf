package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// StreamManager handles active SSE connections and the workspace diffs they receive.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // WorkspaceID -> Set of Channels
	last        map[string]*domain.Workspace          // WorkspaceID -> last published snapshot
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		last:        make(map[string]*domain.Workspace),
		logger:      logger,
	}
}

func (sm *StreamManager) Subscribe(workspaceID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[workspaceID]; !ok {
		sm.subscribers[workspaceID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[workspaceID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[workspaceID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, workspaceID)
				}
			}
		})
	}
}

// Publish diffs ws against the previously published snapshot of the same workspace
// and broadcasts the diff when anything changed.
// Snapshots reach Publish after the workspace lock is released, so one whose revision
// is not newer than the last published is dropped.
func (sm *StreamManager) Publish(ws *domain.Workspace) {
	if ws == nil {
		return
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	prev := sm.last[ws.ID]
	if prev != nil && ws.Revision <= prev.Revision {
		sm.logger.Debug("StreamManager: Stale snapshot dropped", "workspace_id", ws.ID, "revision", ws.Revision, "published", prev.Revision)
		return
	}
	sm.last[ws.ID] = ws

	diff := domain.Diff(prev, ws)
	if diff == nil {
		sm.logger.Debug("StreamManager: No diff calculated", "workspace_id", ws.ID)
		return
	}
	bytes, err := json.Marshal(diff)
	if err != nil {
		sm.logger.Error("StreamManager: Diff encode failed", "error", err)
		return
	}
	sm.broadcast(ws.ID, string(bytes))
}

// Forget drops the last published snapshot of a workspace.
func (sm *StreamManager) Forget(workspaceID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.last, workspaceID)
}

func (sm *StreamManager) Broadcast(workspaceID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.broadcast(workspaceID, msg)
}

// broadcast requires sm.mu to be held.
func (sm *StreamManager) broadcast(workspaceID string, msg string) {
	sm.logger.Debug("StreamManager: Broadcasting", "workspace_id", workspaceID, "payload_size", len(msg))

	for ch := range sm.subscribers[workspaceID] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "workspace_id", workspaceID)
		}
	}
}

// SubscribeEvents handles the GET /workspaces/{id}/events request (SSE).
//
// Two event kinds are sent: "record" for every console record appended by a run,
// and "diff" for the workspace changes made through this handler.
// The watch query parameter restricts the stream to a comma separated subset.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.Logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	workspaceID := chi.URLParam(r, "id")
	wantRecords, wantDiffs := parseWatch(r.URL.Query().Get("watch"))

	var records <-chan domain.ConsoleRecord
	if wantRecords {
		ch, cancel := s.Service.Subscribe(workspaceID)
		defer cancel()
		records = ch
	}
	var diffs <-chan string
	if wantDiffs {
		ch, cancel := s.Streams.Subscribe(workspaceID)
		defer cancel()
		diffs = ch
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.Logger.Info("SSE: Subscribing to workspace", "workspace_id", workspaceID, "records", wantRecords, "diffs", wantDiffs)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Info("SSE Client Disconnected", "workspace_id", workspaceID)
			return
		case rec, ok := <-records:
			if !ok {
				return
			}
			bytes, err := json.Marshal(rec)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: record\ndata: %s\n\n", bytes)
			flusher.Flush()
		case msg, ok := <-diffs:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: diff\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func parseWatch(raw string) (records, diffs bool) {
	if strings.TrimSpace(raw) == "" {
		return true, true
	}
	for _, field := range strings.Split(raw, ",") {
		switch strings.TrimSpace(field) {
		case "record", "records", "console":
			records = true
		case "diff", "diffs":
			diffs = true
		}
	}
	return records, diffs
}
