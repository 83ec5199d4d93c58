package notify

import (
	"os"

	"luma-live/stagepass/ticket-queue-server/pkg/config"
	"luma-live/stagepass/ticket-queue-server/pkg/infra"
	"luma-live/stagepass/ticket-queue-server/pkg/ticket"

	"github.com/imroc/req/v3"
	"go.uber.org/zap"
)

// Notifier posts allocation outcomes and cancellations to an external
// webhook so downstream systems (mailer, CRM) can react. The target
// URL comes from LiveConfig with WEBHOOK_URL as the fallback; an empty
// URL disables delivery.
type Notifier struct {
	liveConfig *config.LiveConfig
	httpClient *req.Client
	logger     *zap.SugaredLogger
}

func ProvideNotifier(liveConfig *config.LiveConfig, loggerFactory *infra.LoggerFactory) *Notifier {
	return &Notifier{
		liveConfig: liveConfig,
		httpClient: infra.HttpClient,
		logger:     loggerFactory.Create("Notifier").Sugar(),
	}
}

type allocationPayload struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	TicketType string `json:"ticket_type"`
	Status     string `json:"status"`
	Remaining  int    `json:"remaining"`
}

type cancellationPayload struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	TicketType   string `json:"ticket_type"`
	Status       string `json:"status"`
	WasConfirmed bool   `json:"was_confirmed"`
	Remaining    int    `json:"remaining"`
}

// AllocationResolved delivers one Confirmed or Sold Out outcome.
// Callers run it in its own goroutine, delivery must not block the
// hub.
func (n *Notifier) AllocationResolved(result *ticket.AllocationResult) {
	url := n.webhookUrl()
	if url == "" {
		return
	}

	resp, err := n.httpClient.R().
		SetBodyJsonMarshal(&allocationPayload{
			FirstName:  result.Registrant.FirstName,
			LastName:   result.Registrant.LastName,
			TicketType: string(result.TicketType),
			Status:     string(result.Status),
			Remaining:  result.Remaining,
		}).
		Post(url)

	if err != nil {
		n.logger.Errorf("webhook request failed %v", err)
		return
	}
	if resp.IsError() {
		n.logger.Errorf("webhook request failed with status[%v]", resp.Status)
	}
}

func (n *Notifier) TicketCancelled(result *ticket.CancellationResult) {
	url := n.webhookUrl()
	if url == "" {
		return
	}

	resp, err := n.httpClient.R().
		SetBodyJsonMarshal(&cancellationPayload{
			FirstName:    result.Registrant.FirstName,
			LastName:     result.Registrant.LastName,
			TicketType:   string(result.TicketType),
			Status:       string(ticket.StatusCancelled),
			WasConfirmed: result.WasConfirmed,
			Remaining:    result.Remaining,
		}).
		Post(url)

	if err != nil {
		n.logger.Errorf("webhook request failed %v", err)
		return
	}
	if resp.IsError() {
		n.logger.Errorf("webhook request failed with status[%v]", resp.Status)
	}
}

func (n *Notifier) webhookUrl() string {
	if n.liveConfig != nil && n.liveConfig.WebhookUrl != "" {
		return n.liveConfig.WebhookUrl
	}
	return os.Getenv("WEBHOOK_URL")
}
