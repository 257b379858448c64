// Package sse streams task progress to clients over Server-Sent Events.
package sse

import (
	"sync"

	"github.com/google/uuid"

	"github.com/skillsenselab/voiceclip/logger"
)

// Client is one connected event stream, subscribed to a single task.
type Client struct {
	id     string
	taskID string
	events chan []byte
}

// NewClient creates a client subscribed to the given task.
func NewClient(taskID string) *Client {
	return &Client{
		id:     uuid.NewString(),
		taskID: taskID,
		events: make(chan []byte, 64),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() string { return c.id }

// TaskID returns the task this client is subscribed to.
func (c *Client) TaskID() string { return c.taskID }

// Events returns the channel the client reads events from.
func (c *Client) Events() <-chan []byte { return c.events }

// send queues data for the client. Returns false if the buffer is full.
func (c *Client) send(data []byte) bool {
	select {
	case c.events <- data:
		return true
	default:
		return false
	}
}

// Hub fans task progress events out to subscribed clients.
type Hub struct {
	clients    map[string]map[string]*Client // task ID -> client ID -> client
	register   chan *Client
	unregister chan *Client
	publish    chan message
	done       chan struct{}
	stopped    bool
	mu         sync.RWMutex
	log        *logger.Logger
}

type message struct {
	taskID string
	data   []byte
}

// NewHub creates a progress event hub. Call Run in a goroutine to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan message, 256),
		done:       make(chan struct{}),
		log:        logger.WithComponent("sse"),
	}
}

// Run drives the hub's event loop until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.taskID] == nil {
				h.clients[c.taskID] = make(map[string]*Client)
			}
			h.clients[c.taskID][c.id] = c
			h.mu.Unlock()
			h.log.Debug("client subscribed", logger.Fields(
				logger.FieldTaskID, c.taskID,
				"client_id", c.id,
			))

		case c := <-h.unregister:
			h.mu.Lock()
			if subs, ok := h.clients[c.taskID]; ok {
				if _, ok := subs[c.id]; ok {
					delete(subs, c.id)
					close(c.events)
				}
				if len(subs) == 0 {
					delete(h.clients, c.taskID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.publish:
			h.deliver(msg)
		}
	}
}

// Stop shuts down the hub and closes every client stream.
// Safe to call more than once.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.stopped {
		h.stopped = true
		close(h.done)
	}
}

// Register subscribes a client to its task's events.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister removes a client and closes its event channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues an event for every client subscribed to taskID.
// Drops the event if the hub is stopped or its queue is full.
func (h *Hub) Publish(taskID string, data []byte) {
	select {
	case h.publish <- message{taskID: taskID, data: data}:
	default:
		h.log.Warn("event queue full, dropping progress event", logger.Fields(
			logger.FieldTaskID, taskID,
		))
	}
}

// SubscriberCount returns the number of clients subscribed to taskID.
func (h *Hub) SubscriberCount(taskID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[taskID])
}

func (h *Hub) deliver(msg message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients[msg.taskID] {
		if !c.send(msg.data) {
			h.log.Warn("client buffer full, dropping event", logger.Fields(
				logger.FieldTaskID, msg.taskID,
				"client_id", c.id,
			))
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for taskID, subs := range h.clients {
		for id, c := range subs {
			close(c.events)
			delete(subs, id)
		}
		delete(h.clients, taskID)
	}
}
