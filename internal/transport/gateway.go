package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const userAgent = "TheftAlert-Go/0.1.0"

// GatewayOptions configures an HTTP gateway sender.
type GatewayOptions struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
	Client   *http.Client
}

// Gateway posts messages to an HTTP delivery gateway.
type Gateway struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewGateway builds a gateway sender. A zero timeout defaults to 10 seconds.
func NewGateway(opts GatewayOptions) *Gateway {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Gateway{
		endpoint: strings.TrimSpace(opts.Endpoint),
		token:    strings.TrimSpace(opts.Token),
		client:   client,
	}
}

type gatewayRequest struct {
	Channel string `json:"channel"`
	To      string `json:"to"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
	Link    string `json:"link,omitempty"`
}

func (g *Gateway) Send(ctx context.Context, msg Message) error {
	if msg.Recipient == "" {
		return fmt.Errorf("%s gateway: %w: recipient is empty", msg.Channel, ErrRejected)
	}

	payload, err := json.Marshal(gatewayRequest{
		Channel: string(msg.Channel),
		To:      msg.Recipient,
		Subject: msg.Subject,
		Body:    msg.Body,
		Link:    msg.Link,
	})
	if err != nil {
		return fmt.Errorf("%s gateway: encode request: %w", msg.Channel, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s gateway: %w: build request: %v", msg.Channel, ErrRejected, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	if msg.Key != "" {
		req.Header.Set("Idempotency-Key", msg.Key)
	}
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s gateway: %w: %w", msg.Channel, ErrUncertain, ctxErr)
		}
		return fmt.Errorf("%s gateway: %w: %v", msg.Channel, ErrUncertain, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	detail := strings.TrimSpace(string(body))
	marker := classifyStatus(resp.StatusCode)
	return fmt.Errorf("%s gateway: %w: status %d: %s", msg.Channel, marker, resp.StatusCode, detail)
}

func classifyStatus(code int) error {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return ErrUncertain
	case code >= 500:
		return ErrUncertain
	default:
		return ErrRejected
	}
}

// IsTimeout reports whether err came from a deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
