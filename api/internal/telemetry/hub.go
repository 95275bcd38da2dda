package telemetry

import (
	"sync"
)

// ProgressEvent is one snapshot of how far an evaluation has come: how many
// responses exist versus how many the full roster will eventually produce.
type ProgressEvent struct {
	EvaluationID string `json:"evaluation_id"`
	Submitted    int    `json:"submitted"`
	Expected     int    `json:"expected"`
}

// Hub fans progress events out to manager dashboards watching an evaluation.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string][]chan ProgressEvent // evaluationID -> client channels
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string][]chan ProgressEvent),
	}
}

// Subscribe adds a new dashboard client to an evaluation's progress stream.
func (h *Hub) Subscribe(evaluationID string) chan ProgressEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan ProgressEvent, 16) // buffer so slow clients don't block submitters
	h.subscribers[evaluationID] = append(h.subscribers[evaluationID], ch)
	return ch
}

// Unsubscribe removes a client channel and closes it.
func (h *Hub) Unsubscribe(evaluationID string, ch chan ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[evaluationID]
	for i, sub := range subs {
		if sub == ch {
			h.subscribers[evaluationID] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}
	if len(h.subscribers[evaluationID]) == 0 {
		delete(h.subscribers, evaluationID)
	}
}

// Broadcast sends a progress snapshot to all listeners of an evaluation.
// Full client buffers drop the event; the next snapshot supersedes it anyway.
func (h *Hub) Broadcast(event ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers[event.EvaluationID] {
		select {
		case ch <- event:
		default:
		}
	}
}
