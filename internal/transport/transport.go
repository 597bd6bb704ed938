package transport

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"theftalert/internal/config"
	"theftalert/internal/domain"
	"theftalert/internal/logging"
)

var (
	// ErrRejected marks a definitive refusal to deliver. Retrying the same
	// message will not succeed.
	ErrRejected = errors.New("rejected")
	// ErrUncertain marks a failure where the gateway may have delivered the
	// message.
	ErrUncertain = errors.New("delivery uncertain")
)

// Message is one outbound delivery.
type Message struct {
	Channel   domain.Channel
	Key       string
	Recipient string
	Subject   string
	Body      string
	Link      string
}

// FromIntent builds a Message for an external channel intent.
func FromIntent(intent domain.NotificationIntent) Message {
	return Message{
		Channel:   intent.Channel,
		Key:       intent.Key().String(),
		Recipient: strings.TrimSpace(intent.Payload.Recipient),
		Subject:   intent.Payload.Subject,
		Body:      intent.Payload.Body,
		Link:      intent.Payload.Link,
	}
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// IsRejected reports whether err is a definitive delivery failure.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}

// Set maps external channels to their senders.
type Set map[domain.Channel]Sender

// Sender returns the sender for channel, if configured.
func (s Set) Sender(channel domain.Channel) (Sender, bool) {
	sender, ok := s[channel]
	return sender, ok && sender != nil
}

// NewSet builds senders for email, sms and whatsapp. Channels without an
// endpoint, and every channel when dryRun is set, log instead of sending.
func NewSet(cfg *config.Config, logger *slog.Logger, dryRun bool) Set {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "transport")

	channels := []struct {
		channel domain.Channel
		conf    config.Channel
	}{
		{domain.ChannelEmail, cfg.Transport.Email},
		{domain.ChannelSMS, cfg.Transport.SMS},
		{domain.ChannelWhatsApp, cfg.Transport.WhatsApp},
	}

	set := make(Set, len(channels))
	for _, c := range channels {
		var sender Sender
		if dryRun || strings.TrimSpace(c.conf.Endpoint) == "" {
			sender = NewLogSender(logger, dryRun)
		} else {
			sender = NewGateway(GatewayOptions{
				Endpoint: c.conf.Endpoint,
				Token:    c.conf.Token,
				Timeout:  cfg.ChannelTimeout(),
			})
		}
		set[c.channel] = NewLimited(sender, c.conf.RatePerMinute)
	}
	return set
}
