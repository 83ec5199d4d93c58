package main

import (
	"encoding/json"

	"luma-live/stagepass/ticket-queue-server/pkg/config"
	"luma-live/stagepass/ticket-queue-server/pkg/engine"
	"luma-live/stagepass/ticket-queue-server/pkg/infra"
	"luma-live/stagepass/ticket-queue-server/pkg/msg"
	"luma-live/stagepass/ticket-queue-server/pkg/notify"

	"github.com/emirpasic/gods/maps/hashmap"
	"go.uber.org/zap"
)

// Hub fans engine events out to connected websocket clients, forwards
// allocation outcomes to the webhook notifier and writes availability
// back to redis.
type Hub struct {
	// Registered clients. Key value: client.id -> client.
	clients *hashmap.Map

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	engine     *engine.Engine
	notifier   *notify.Notifier
	liveConfig *config.LiveConfig
	logger     *zap.SugaredLogger
}

func ProvideHub(engine *engine.Engine, notifier *notify.Notifier, liveConfig *config.LiveConfig, loggerFactory *infra.LoggerFactory) *Hub {
	return &Hub{
		clients: hashmap.New(),

		register:   make(chan *Client, 1024),
		unregister: make(chan *Client, 1024),

		engine:     engine,
		notifier:   notifier,
		liveConfig: liveConfig,
		logger:     loggerFactory.Create("Hub").Sugar(),
	}
}

func (h *Hub) Run() {
	go h.handleClient()
	go h.handleEngine()
}

func (h *Hub) handleClient() {
	for {
		select {
		case client := <-h.register:
			h.logger.Debugf("register client id[%v]", client.id)
			h.clients.Put(client.id, client)

			// New clients start from a fresh availability snapshot.
			if wsMessage, ok := h.availabilityMessage(); ok {
				client.sendWsMessage <- wsMessage
			}

		case client := <-h.unregister:
			h.logger.Debugf("unregister client id[%v]", client.id)

			_, ok := h.clients.Get(client.id)
			if !ok {
				continue
			}
			h.removeClient(client)
		}
	}
}

func (h *Hub) handleEngine() {
	for {
		select {
		case entry := <-h.engine.NotifyEntry:
			h.logger.Debugf("notifyEntry registrant[%v]", entry.Registrant.FullName())
			h.broadcastEvent(msg.RegisteredCode, &msg.RegisteredServerEvent{
				FirstName:  entry.Registrant.FirstName,
				LastName:   entry.Registrant.LastName,
				TicketType: string(entry.TicketType),
				Position:   entry.Position,
			})

		case result := <-h.engine.NotifyResult:
			h.logger.Debugf("notifyResult registrant[%v] status[%v]", result.Registrant.FullName(), result.Status)
			h.broadcastEvent(msg.AllocationCode, &msg.AllocationServerEvent{
				FirstName:  result.Registrant.FirstName,
				LastName:   result.Registrant.LastName,
				TicketType: string(result.TicketType),
				Status:     string(result.Status),
				Remaining:  result.Remaining,
			})
			h.publishAvailability()
			go h.notifier.AllocationResolved(result)

		case result := <-h.engine.NotifyCancel:
			h.logger.Debugf("notifyCancel registrant[%v]", result.Registrant.FullName())
			h.broadcastEvent(msg.CancelledCode, &msg.CancelledServerEvent{
				FirstName:    result.Registrant.FirstName,
				LastName:     result.Registrant.LastName,
				TicketType:   string(result.TicketType),
				WasConfirmed: result.WasConfirmed,
				Remaining:    result.Remaining,
			})
			h.publishAvailability()
			go h.notifier.TicketCancelled(result)

		case stats := <-h.engine.NotifyStats:
			for ticketType, snapshot := range stats {
				h.broadcastEvent(msg.QueueStatsCode, &msg.QueueStatsServerEvent{
					TicketType:   string(ticketType),
					QueueLength:  snapshot.QueueLength,
					HeadPosition: snapshot.HeadPosition,
					TailPosition: snapshot.TailPosition,
					AvgWaitMsec:  snapshot.AvgWaitMsec,
				})
			}
		}
	}
}

func (h *Hub) publishAvailability() {
	availability := h.engine.Availability()
	h.liveConfig.PublishAvailability(availability)

	if wsMessage, ok := h.availabilityMessage(); ok {
		h.broadcast(wsMessage)
	}
}

func (h *Hub) availabilityMessage() (*msg.WsMessage, bool) {
	availability := h.engine.Availability()
	event := &msg.AvailabilityServerEvent{
		Availability: make(map[string]int, len(availability)),
	}
	for ticketType, remaining := range availability {
		event.Availability[string(ticketType)] = remaining
	}

	rawEvent, err := json.Marshal(event)
	if err != nil {
		h.logger.Errorf("cannot marshal AvailabilityServerEvent %v", err)
		return nil, false
	}
	return &msg.WsMessage{EventCode: msg.AvailabilityCode, EventData: rawEvent}, true
}

func (h *Hub) broadcastEvent(code msg.EventCode, event interface{}) {
	rawEvent, err := json.Marshal(event)
	if err != nil {
		h.logger.Errorf("cannot marshal event code[%v] %v", code, err)
		return
	}
	h.broadcast(&msg.WsMessage{EventCode: code, EventData: rawEvent})
}

// If a client's send buffer is full the hub assumes it is dead or
// stuck, unregisters it and closes the connection.
func (h *Hub) broadcast(wsMessage *msg.WsMessage) {
	for _, value := range h.clients.Values() {
		client := value.(*Client)
		select {
		case client.sendWsMessage <- wsMessage:
		default:
			h.logger.Warnf("client id[%v] send channel is full, closing it", client.id)
			h.removeClient(client)
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.clients.Remove(client.id)
	client.TryClose(false) // Notify client it should close now.
}
