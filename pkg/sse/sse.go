package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Client is one open caregiver stream.
type Client struct {
	id      string
	subject string
	ch      chan string
	done    chan struct{}
}

// Hub fans subject events out to the caregiver streams watching that subject.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	subjects map[string]map[string]bool // subject -> clientID set
	interval time.Duration
	retryMs  int
}

func NewHub(interval time.Duration) *Hub {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Hub{
		clients:  make(map[string]*Client),
		subjects: make(map[string]map[string]bool),
		interval: interval,
		retryMs:  5000,
	}
}

// Subscribe registers a stream for subject. The returned func unsubscribes.
func (h *Hub) Subscribe(subject string) (*Client, func()) {
	c := &Client{id: uuid.NewString(), subject: subject, ch: make(chan string, 64), done: make(chan struct{})}
	h.mu.Lock()
	h.clients[c.id] = c
	if h.subjects[subject] == nil {
		h.subjects[subject] = make(map[string]bool)
	}
	h.subjects[subject][c.id] = true
	h.mu.Unlock()
	return c, func() { h.remove(c.id) }
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[id]
	if !ok {
		return
	}
	close(c.done)
	delete(h.subjects[c.subject], id)
	if len(h.subjects[c.subject]) == 0 {
		delete(h.subjects, c.subject)
	}
	delete(h.clients, id)
}

// Subscribers counts open streams for subject.
func (h *Hub) Subscribers(subject string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subjects[subject])
}

// Publish sends a named event to every stream of subject and returns how many
// accepted it. Slow streams with a full buffer are skipped.
func (h *Hub) Publish(subject, event string, v any) (int, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	msg := formatEvent(event, string(b))

	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for id := range h.subjects[subject] {
		c := h.clients[id]
		if c == nil {
			continue
		}
		select {
		case c.ch <- msg:
			delivered++
		default:
		}
	}
	return delivered, nil
}

func formatEvent(event, data string) string {
	if event == "" {
		return fmt.Sprintf("data: %s\n\n", data)
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)
}

// Serve streams subject events to the response until the client goes away.
func (h *Hub) Serve(c *gin.Context, subject string) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	fmt.Fprintf(c.Writer, "retry: %d\n\n", h.retryMs)
	flusher.Flush()

	client, unsubscribe := h.Subscribe(subject)
	defer unsubscribe()

	ping := time.NewTicker(h.interval)
	defer ping.Stop()

	for {
		select {
		case <-client.done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			fmt.Fprint(c.Writer, "event: ping\ndata: {}\n\n")
			flusher.Flush()
		case msg := <-client.ch:
			_, _ = c.Writer.Write([]byte(msg))
			flusher.Flush()
		}
	}
}
