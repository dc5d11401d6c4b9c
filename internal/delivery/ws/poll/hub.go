package ws_poll

import (
	"log/slog"
	"sync"

	infra_redis_pubsub "github.com/gatherhub/polls/core/internal/infra/redis/pubsub"
	"github.com/google/uuid"
)

const EventPollChanged = "POLL_CHANGED"

// Event is what viewer sessions receive. It never carries tally data;
// clients react by re-fetching the poll with a fresh tally, which makes
// duplicate and reordered signals harmless.
type Event struct {
	Type    string    `json:"type"`
	PollID  uuid.UUID `json:"poll_id"`
	EventID uuid.UUID `json:"event_id"`
}

// Bus is the subscription side of the notification fan-out.
type Bus interface {
	Subscribe() (<-chan infra_redis_pubsub.Message, func() error)
}

// Hub relays invalidation signals from the notification bus to websocket
// viewers. Viewers subscribe to a single topic: either one poll's channel or
// an event's aggregate channel.
type Hub struct {
	bus    Bus
	logger *slog.Logger

	topics     map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex
}

type Option func(*Hub)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

func NewHub(bus Bus, opts ...Option) *Hub {
	h := &Hub{
		bus:        bus,
		logger:     slog.Default(),
		topics:     make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) Run() {
	signals, closeBus := h.bus.Subscribe()
	defer func() { _ = closeBus() }()

	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case msg, ok := <-signals:
			if !ok {
				h.logger.Error("notification bus subscription closed")
				return
			}
			h.broadcastToTopic(msg.Channel, Event{
				Type:    EventPollChanged,
				PollID:  msg.Signal.PollID,
				EventID: msg.Signal.EventID,
			})
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.topics[client.topic]; !exists {
		h.topics[client.topic] = make(map[*Client]bool)
	}
	h.topics[client.topic][client] = true

	h.logger.Info("viewer registered", "topic", client.topic)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if topicClients, exists := h.topics[client.topic]; exists {
		if _, ok := topicClients[client]; ok {
			delete(topicClients, client)
			close(client.send)
			if len(topicClients) == 0 {
				delete(h.topics, client.topic)
			}
		}
	}

	h.logger.Info("viewer unregistered", "topic", client.topic)
}

func (h *Hub) broadcastToTopic(topic string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if topicClients, exists := h.topics[topic]; exists {
		for client := range topicClients {
			select {
			case client.send <- event:
			default:
				// Slow viewer: drop it, the client reconnects and
				// re-fetches anyway.
				close(client.send)
				delete(h.topics[topic], client)
			}
		}
	}
}
