package transport

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limited throttles a sender to a per-minute budget.
type Limited struct {
	next    Sender
	limiter *rate.Limiter
}

// NewLimited wraps next with a token bucket allowing perMinute sends with a
// burst of one second's worth. A non-positive budget returns next unchanged.
func NewLimited(next Sender, perMinute int) Sender {
	if perMinute <= 0 {
		return next
	}
	burst := perMinute / 60
	if burst < 1 {
		burst = 1
	}
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst),
	}
}

func (l *Limited) Send(ctx context.Context, msg Message) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limit: %w: %w", msg.Channel, ErrUncertain, err)
	}
	return l.next.Send(ctx, msg)
}
