package main

import (
	"errors"
	"fmt"
	"net/http"

	"luma-live/stagepass/ticket-queue-server/pkg/config"
	"luma-live/stagepass/ticket-queue-server/pkg/engine"
	"luma-live/stagepass/ticket-queue-server/pkg/infra"
	"luma-live/stagepass/ticket-queue-server/pkg/msg"
	"luma-live/stagepass/ticket-queue-server/pkg/ticket"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Application struct {
	liveConfig *config.LiveConfig
	engine     *engine.Engine
	hub        *Hub
	wsUpgrader *websocket.Upgrader
	logger     *zap.SugaredLogger
}

func ProvideApplication(liveConfig *config.LiveConfig, engine *engine.Engine, hub *Hub, loggerFactory *infra.LoggerFactory) *Application {
	return &Application{
		liveConfig: liveConfig,
		engine:     engine,
		hub:        hub,
		wsUpgrader: &websocket.Upgrader{},
		logger:     loggerFactory.Create("Application").Sugar(),
	}
}

func (a *Application) Run() {
	go a.liveConfig.Run()
	a.engine.Run()
	a.hub.Run()
}

type errorResponse struct {
	Error string `json:"error"`
}

type registerRequest struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	TicketType string `json:"ticket_type"`
}

type registerResponse struct {
	Message            string `json:"message"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	TicketType         string `json:"ticket_type"`
	QueuePosition      int    `json:"queue_position"`
	CurrentQueueLength int    `json:"current_queue_length"`
}

func (a *Application) HandleRegister(c echo.Context) error {
	req := &registerRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	if !a.liveConfig.IsRegistrationOpen {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "registration is closed"})
	}

	entry, err := a.engine.Register(req.FirstName, req.LastName, ticket.Type(req.TicketType))
	if err != nil {
		switch {
		case errors.Is(err, ticket.ErrNameRequired):
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "First name and last name are required"})
		case errors.Is(err, ticket.ErrUnknownTicketType):
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid ticket type"})
		case errors.Is(err, ticket.ErrDuplicateRegistration):
			return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
		default:
			a.logger.Errorf("register failed %v", err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
	}

	return c.JSON(http.StatusOK, registerResponse{
		Message:            fmt.Sprintf("%v added to %v queue.", entry.Registrant.FullName(), entry.TicketType),
		FirstName:          entry.Registrant.FirstName,
		LastName:           entry.Registrant.LastName,
		TicketType:         string(entry.TicketType),
		QueuePosition:      entry.Position,
		CurrentQueueLength: len(a.engine.QueueSnapshot()[entry.TicketType]),
	})
}

type processRequest struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	TicketType string `json:"ticket_type"`
}

type allocationUpdate struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	TicketType string `json:"ticket_type"`
	Status     string `json:"status"`
	Remaining  int    `json:"remaining"`
}

type processUserResponse struct {
	Updates          []allocationUpdate  `json:"updates"`
	Processed        string              `json:"processed"`
	TicketType       string              `json:"ticket_type"`
	FinalStatus      string              `json:"final_status"`
	RemainingTickets map[ticket.Type]int `json:"remaining_tickets"`
}

// HandleProcessUser resolves every entry ahead of the requesting
// registrant in FIFO order and reports each step, ending with the
// registrant's own outcome.
func (a *Application) HandleProcessUser(c echo.Context) error {
	req := &processRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	ticketType := ticket.Type(req.TicketType)
	if req.TicketType == "" {
		// Older clients do not send the type, locate the registrant
		// in priority order.
		found, ok := a.engine.FindType(req.FirstName, req.LastName)
		if !ok {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "User not found in queue"})
		}
		ticketType = found
	}

	results, err := a.engine.ProcessRegistrant(req.FirstName, req.LastName, ticketType)
	if err != nil {
		switch {
		case errors.Is(err, ticket.ErrNameRequired):
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "First name and last name are required"})
		case errors.Is(err, ticket.ErrUnknownTicketType):
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid ticket type"})
		case errors.Is(err, ticket.ErrUnknownRegistrant):
			return c.JSON(http.StatusNotFound, errorResponse{Error: "User not found in queue"})
		default:
			a.logger.Errorf("process user failed %v", err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
	}

	updates := make([]allocationUpdate, 0, len(results))
	for _, result := range results {
		updates = append(updates, allocationUpdate{
			FirstName:  result.Registrant.FirstName,
			LastName:   result.Registrant.LastName,
			TicketType: string(result.TicketType),
			Status:     string(result.Status),
			Remaining:  result.Remaining,
		})
	}

	final := results[len(results)-1]
	return c.JSON(http.StatusOK, processUserResponse{
		Updates:          updates,
		Processed:        final.Registrant.FullName(),
		TicketType:       string(final.TicketType),
		FinalStatus:      string(final.Status),
		RemainingTickets: a.engine.Availability(),
	})
}

type processNextResponse struct {
	Processed        string              `json:"processed"`
	TicketType       string              `json:"ticket_type"`
	Status           string              `json:"status"`
	RemainingTickets map[ticket.Type]int `json:"remaining_tickets"`
}

// HandleProcessNext resolves the oldest pending entry. With a
// ticket_type query parameter only that queue is considered, otherwise
// types are tried in configured priority order.
func (a *Application) HandleProcessNext(c echo.Context) error {
	var (
		result *ticket.AllocationResult
		err    error
	)

	if ticketType := c.QueryParam("ticket_type"); ticketType != "" {
		result, err = a.engine.ProcessNext(ticket.Type(ticketType))
	} else {
		result, err = a.engine.ProcessNextAny()
	}

	if err != nil {
		switch {
		case errors.Is(err, ticket.ErrEmptyQueue):
			return c.JSON(http.StatusOK, map[string]string{"message": "No users in queue."})
		case errors.Is(err, ticket.ErrUnknownTicketType):
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid ticket type"})
		default:
			a.logger.Errorf("process next failed %v", err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
	}

	return c.JSON(http.StatusOK, processNextResponse{
		Processed:        result.Registrant.FullName(),
		TicketType:       string(result.TicketType),
		Status:           string(result.Status),
		RemainingTickets: a.engine.Availability(),
	})
}

type cancelRequest struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	TicketType string `json:"ticket_type"`
}

type cancelResponse struct {
	Message          string              `json:"message"`
	RemainingTickets map[ticket.Type]int `json:"remaining_tickets"`
}

func (a *Application) HandleCancel(c echo.Context) error {
	req := &cancelRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	result, err := a.engine.Cancel(req.FirstName, req.LastName, ticket.Type(req.TicketType))
	if err != nil {
		switch {
		case errors.Is(err, ticket.ErrNameRequired):
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "First name and last name are required"})
		case errors.Is(err, ticket.ErrUnknownTicketType):
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid ticket type"})
		case errors.Is(err, ticket.ErrNotFound):
			return c.JSON(http.StatusNotFound, errorResponse{Error: "No ticket or pending registration found"})
		default:
			a.logger.Errorf("cancel failed %v", err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
	}

	return c.JSON(http.StatusOK, cancelResponse{
		Message:          fmt.Sprintf("Ticket for %v cancelled.", result.Registrant.FullName()),
		RemainingTickets: a.engine.Availability(),
	})
}

func (a *Application) HandleAvailability(c echo.Context) error {
	return c.JSON(http.StatusOK, a.engine.Availability())
}

func (a *Application) HandleQueue(c echo.Context) error {
	return c.JSON(http.StatusOK, a.engine.QueueSnapshot())
}

func (a *Application) HandleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, a.engine.Stats())
}

func (a *Application) HandleSummary(c echo.Context) error {
	return c.JSON(http.StatusOK, a.engine.SalesSummary())
}

func (a *Application) HandleWs(c echo.Context) error {
	conn, err := a.wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		id:            uuid.NewString(),
		conn:          conn,
		sendWsMessage: make(chan *msg.WsMessage, 64),
		close:         make(chan []byte, 1),
		hub:           a.hub,
		logger:        a.logger,
	}
	a.hub.register <- client
	go client.Run()

	return nil
}
