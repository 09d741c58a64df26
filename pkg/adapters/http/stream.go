package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"

	"github.com/aretw0/gameflow/pkg/domain"
)

// StreamManager fans state diffs out to SSE subscribers, keyed by instance id.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- []byte]struct{}
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- []byte]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a buffered channel for instanceID. The returned
// function unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(instanceID string) (<-chan []byte, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan []byte, 16)
	if _, ok := sm.subscribers[instanceID]; !ok {
		sm.subscribers[instanceID] = make(map[chan<- []byte]struct{})
	}
	sm.subscribers[instanceID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[instanceID]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, instanceID)
			}
		}
	}
}

// Broadcast sends msg to every subscriber of instanceID. Slow subscribers
// with a full buffer miss the message.
func (sm *StreamManager) Broadcast(instanceID string, msg []byte) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[instanceID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("sse buffer full, dropping message", "instance", instanceID)
		}
	}
}

// CommitHook broadcasts the diff of every persisted state change. Register
// it with session.WithCommitHook.
func (sm *StreamManager) CommitHook(_ context.Context, prev, next *domain.FlowState) {
	diff := domain.DiffStates(prev, next)
	if diff == nil {
		return
	}
	data, err := sonic.ConfigStd.Marshal(diff)
	if err != nil {
		sm.logger.Error("diff encode failed", "instance", next.InstanceID, "error", err)
		return
	}
	sm.Broadcast(next.InstanceID, data)
}

// streamInstance serves GET /instances/{id}/stream. The optional "watch"
// query parameter (comma separated: current, status, variables, history)
// drops diffs that touch none of the listed fields.
func (s *Server) streamInstance(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.Sessions.Load(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}

	var watch []string
	if q := r.URL.Query().Get("watch"); q != "" {
		watch = strings.Split(q, ",")
	}

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watch) > 0 && !matchesWatch(msg, watch) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func matchesWatch(msg []byte, watch []string) bool {
	var diff domain.StateDiff
	if err := sonic.ConfigStd.Unmarshal(msg, &diff); err != nil {
		return true
	}
	for _, field := range watch {
		switch strings.TrimSpace(field) {
		case "current":
			if diff.Current != nil {
				return true
			}
		case "status":
			if diff.Status != nil {
				return true
			}
		case "variables":
			if len(diff.Variables) > 0 {
				return true
			}
		case "history":
			if len(diff.History) > 0 {
				return true
			}
		}
	}
	return false
}
