package apiexternal

import (
	"context"

	"github.com/cloudfinch-harshad/rampart/config"
	"github.com/cloudfinch-harshad/rampart/logger"
	"github.com/gregdel/pushover"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Notifier delivers invitations and reminders.
type Notifier interface {
	SendMessage(ctx context.Context, messagetext string, title string) error
}

type PushOverClient struct {
	ApiKey    string
	Recipient string
	Limiter   *rate.Limiter
}

func NewPushOverClient(apikey string, recipient string, limiter *rate.Limiter) *PushOverClient {
	return &PushOverClient{ApiKey: apikey, Recipient: recipient, Limiter: limiter}
}

func (p *PushOverClient) SendMessage(ctx context.Context, messagetext string, title string) error {
	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx); err != nil {
			return err
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}
	app := pushover.New(p.ApiKey)

	// Create a new recipient
	recipient := pushover.NewRecipient(p.Recipient)

	// Create the message to send
	message := pushover.NewMessageWithTitle(messagetext, title)

	// Send the message to the recipient
	if _, err := app.SendMessage(message, recipient); err != nil {
		return errors.Wrap(err, "pushover")
	}
	return nil
}

// LogNotifier writes the messages to the log. Used when pushover is not
// configured.
type LogNotifier struct{}

func (LogNotifier) SendMessage(ctx context.Context, messagetext string, title string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Log.WithField("title", title).Infoln(messagetext)
	return nil
}

// NewNotifier returns pushover when an app key and recipient are configured
// and the log notifier otherwise.
func NewNotifier(cfg config.NotificationConfig) Notifier {
	if cfg.PushoverAppKey == "" || cfg.PushoverRecipient == "" {
		return LogNotifier{}
	}
	return NewPushOverClient(cfg.PushoverAppKey, cfg.PushoverRecipient, Limiter(cfg.PushoverLimiterCalls, cfg.PushoverLimiterSeconds))
}
