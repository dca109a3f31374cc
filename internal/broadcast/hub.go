package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/vicente3000/Sistema-de-sensores/internal/models"
)

// Hub fans sensor data and alerts out to websocket subscribers. Delivery is
// fire-and-forget: there is no ordering guarantee across clients and a slow
// client is dropped rather than queued against.
type Hub struct {
	clients map[*Client]bool
	// rooms key is "<plantId>:<sensorType>"
	rooms map[string]map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	unsubscribe chan subscription
	outbound    chan envelope

	logger *zap.Logger
}

type subscription struct {
	client *Client
	room   string
}

// envelope is a pending emission; room "" targets every connected client.
type envelope struct {
	room    string
	message []byte
}

// message is the wire format sent to clients.
type message struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// NewHub creates the fan-out hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		rooms:       make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		outbound:    make(chan envelope, 256),
		logger:      logger,
	}
}

// RoomName builds the channel key for a plant/sensor-type pair.
func RoomName(plantID, sensorType string) string {
	return fmt.Sprintf("%s:%s", plantID, sensorType)
}

// Run owns all hub state; it exits when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
			}
			return

		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.dropClient(client)
			}

		case sub := <-h.subscribe:
			if h.rooms[sub.room] == nil {
				h.rooms[sub.room] = make(map[*Client]bool)
			}
			h.rooms[sub.room][sub.client] = true

		case sub := <-h.unsubscribe:
			if room, ok := h.rooms[sub.room]; ok {
				delete(room, sub.client)
				if len(room) == 0 {
					delete(h.rooms, sub.room)
				}
			}

		case env := <-h.outbound:
			h.deliver(env)
		}
	}
}

// deliver sends to the room members, or to everyone when room is empty.
func (h *Hub) deliver(env envelope) {
	targets := h.clients
	if env.room != "" {
		targets = h.rooms[env.room]
	}

	for client := range targets {
		select {
		case client.send <- env.message:
		default:
			// send buffer full: the client is stalled, drop it
			h.logger.Warn("Dropping slow websocket client")
			h.dropClient(client)
		}
	}
}

func (h *Hub) dropClient(client *Client) {
	delete(h.clients, client)
	for name, room := range h.rooms {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, name)
		}
	}
	close(client.send)
}

func (h *Hub) emit(room, event string, payload interface{}) {
	data, err := json.Marshal(message{Event: event, Payload: payload})
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message",
			zap.String("event", event),
			zap.Error(err),
		)
		return
	}

	select {
	case h.outbound <- envelope{room: room, message: data}:
	default:
		// hub backlog full; fire-and-forget means we drop, not block
		h.logger.Warn("Broadcast backlog full, dropping event",
			zap.String("event", event),
		)
	}
}

// EmitSensorData publishes a data point to the plant/sensor room and, for
// legacy clients that never joined a room, as a direct event whose name
// embeds the channel.
func (h *Hub) EmitSensorData(plantID, sensorType, tsISO string, value float64) {
	payload := models.SensorDataEvent{
		PlantID: plantID,
		Sensor:  sensorType,
		TsISO:   tsISO,
		Value:   value,
	}
	h.emit(RoomName(plantID, sensorType), "sensor:data", payload)
	h.emit("", fmt.Sprintf("sensor:data:%s:%s", plantID, sensorType), payload)
}

// EmitAlert publishes a new alert to every connected client.
func (h *Hub) EmitAlert(event models.AlertEvent) {
	h.emit("", "alerts:new", event)
}
