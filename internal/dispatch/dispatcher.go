package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"theftalert/internal/domain"
	"theftalert/internal/ledger"
	"theftalert/internal/logging"
	"theftalert/internal/metrics"
	"theftalert/internal/transport"
)

const (
	defaultWorkers        = 16
	defaultChannelTimeout = 10 * time.Second
	releaseTimeout        = 5 * time.Second
)

// WebSink persists web notifications. Deliver reports whether a new record
// was written.
type WebSink interface {
	Deliver(ctx context.Context, intent domain.NotificationIntent) (bool, error)
}

// Options tunes the dispatcher.
type Options struct {
	Workers        int
	ChannelTimeout time.Duration
}

// Dependencies are the collaborators a Dispatcher drives.
type Dependencies struct {
	Guard   ledger.Guard
	Senders transport.Set
	Web     WebSink
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Dispatcher executes intents against transports behind the guard.
type Dispatcher struct {
	guard   ledger.Guard
	senders transport.Set
	web     WebSink
	metrics *metrics.Metrics
	logger  *slog.Logger
	opts    Options
}

// New constructs a dispatcher. Zero options fall back to defaults.
func New(deps Dependencies, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.ChannelTimeout <= 0 {
		opts.ChannelTimeout = defaultChannelTimeout
	}
	return &Dispatcher{
		guard:   deps.Guard,
		senders: deps.Senders,
		web:     deps.Web,
		metrics: deps.Metrics,
		logger:  logging.NewComponentLogger(deps.Logger, "dispatcher"),
		opts:    opts,
	}
}

// Workers returns the configured pool size.
func (d *Dispatcher) Workers() int {
	return d.opts.Workers
}

// Dispatch executes intents for any number of users. Users run on the bounded
// pool; outcomes are returned in the order of intents.
func (d *Dispatcher) Dispatch(ctx context.Context, intents []domain.NotificationIntent) []domain.DispatchOutcome {
	outcomes := make([]domain.DispatchOutcome, len(intents))

	byUser := make(map[string][]int)
	var order []string
	for i, intent := range intents {
		if _, ok := byUser[intent.UserID]; !ok {
			order = append(order, intent.UserID)
		}
		byUser[intent.UserID] = append(byUser[intent.UserID], i)
	}

	var g errgroup.Group
	g.SetLimit(d.opts.Workers)
	for _, userID := range order {
		indexes := byUser[userID]
		g.Go(func() error {
			batch := make([]domain.NotificationIntent, len(indexes))
			for j, idx := range indexes {
				batch[j] = intents[idx]
			}
			for j, outcome := range d.DispatchUser(ctx, batch) {
				outcomes[indexes[j]] = outcome
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// DispatchUser executes one user's intents concurrently, one goroutine per
// channel. Outcomes are returned in the order of intents.
func (d *Dispatcher) DispatchUser(ctx context.Context, intents []domain.NotificationIntent) []domain.DispatchOutcome {
	outcomes := make([]domain.DispatchOutcome, len(intents))
	if len(intents) == 1 {
		outcomes[0] = d.deliver(ctx, intents[0])
		return outcomes
	}

	var g errgroup.Group
	for i, intent := range intents {
		g.Go(func() error {
			outcomes[i] = d.deliver(ctx, intent)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (d *Dispatcher) deliver(ctx context.Context, intent domain.NotificationIntent) domain.DispatchOutcome {
	key := intent.Key()
	logger := logging.WithContext(ctx, d.logger).With(
		logging.String(logging.FieldUserID, key.UserID),
		logging.String(logging.FieldChannel, string(key.Channel)),
	)

	if err := ctx.Err(); err != nil {
		return d.finish(logger, failed(key, domain.FailCancelled, err), 0)
	}

	claim, err := d.guard.Claim(ctx, key)
	if err != nil {
		wrapped := domain.Wrap(domain.ErrTransportFailure, "dispatcher", "claim", key.String(), err)
		return d.finish(logger, failed(key, domain.FailGuard, wrapped), 0)
	}
	switch claim.Status {
	case ledger.StatusDuplicate:
		suppressed := domain.Wrap(domain.ErrDuplicateSuppressed, "dispatcher", "claim", key.String(), nil)
		return d.finish(logger, skipped(key, domain.SkipDuplicate, suppressed), 0)
	case ledger.StatusInFlight:
		return d.finish(logger, skipped(key, domain.SkipInFlight, nil), 0)
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, d.opts.ChannelTimeout)
	sendErr := d.perform(callCtx, intent)
	cancel()
	elapsed := time.Since(start)

	if sendErr == nil {
		if err := d.guard.Complete(context.WithoutCancel(ctx), claim, ledger.ResultSent); err != nil {
			logging.WarnWithContext(logger, "ledger completion failed after send", "ledger_complete_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "a redelivery may repeat this notification"),
			)
		}
		return d.finish(logger, domain.DispatchOutcome{Key: key, Kind: domain.OutcomeSent}, elapsed)
	}

	wrapped := domain.Wrap(domain.ErrTransportFailure, "dispatcher", string(key.Channel), "deliver", sendErr)
	if transport.IsRejected(sendErr) {
		if err := d.guard.Complete(context.WithoutCancel(ctx), claim, ledger.ResultFailed); err != nil {
			logger.Warn("ledger completion failed after rejection", logging.Error(err))
		}
		return d.finish(logger, failed(key, domain.FailRejected, wrapped), elapsed)
	}

	d.release(ctx, logger, claim)
	switch {
	case ctx.Err() != nil:
		return d.finish(logger, failed(key, domain.FailCancelled, wrapped), elapsed)
	case errors.Is(sendErr, context.DeadlineExceeded):
		return d.finish(logger, failed(key, domain.FailTimeout, wrapped), elapsed)
	default:
		return d.finish(logger, failed(key, domain.FailUncertain, wrapped), elapsed)
	}
}

func (d *Dispatcher) perform(ctx context.Context, intent domain.NotificationIntent) error {
	if intent.Channel == domain.ChannelWeb {
		if d.web == nil {
			return transport.ErrRejected
		}
		_, err := d.web.Deliver(ctx, intent)
		if err != nil && ctx.Err() != nil {
			return errors.Join(err, ctx.Err())
		}
		return err
	}
	sender, ok := d.senders.Sender(intent.Channel)
	if !ok {
		return transport.ErrRejected
	}
	return sender.Send(ctx, transport.FromIntent(intent))
}

// release drops a claim using a context detached from caller cancellation so
// a cancelled invocation still frees its keys.
func (d *Dispatcher) release(ctx context.Context, logger *slog.Logger, claim ledger.Claim) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := d.guard.Release(releaseCtx, claim); err != nil {
		logging.WarnWithContext(logger, "ledger release failed", "ledger_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "key stays claimed until its lease expires"),
		)
	}
}

func (d *Dispatcher) finish(logger *slog.Logger, outcome domain.DispatchOutcome, elapsed time.Duration) domain.DispatchOutcome {
	d.metrics.ObserveOutcome(outcome, elapsed)
	attrs := []logging.Attr{
		logging.String(logging.FieldOutcome, string(outcome.Kind)),
		logging.Duration("elapsed", elapsed),
	}
	if outcome.Reason != "" {
		attrs = append(attrs, logging.String(logging.FieldReason, outcome.Reason))
	}
	switch outcome.Kind {
	case domain.OutcomeFailed:
		attrs = append(attrs, logging.Error(outcome.Err))
		logger.Warn("intent failed", logging.Args(attrs...)...)
	case domain.OutcomeSkipped:
		logger.Debug("intent skipped", logging.Args(attrs...)...)
	default:
		logger.Info("intent sent", logging.Args(attrs...)...)
	}
	return outcome
}

func skipped(key domain.Key, reason string, err error) domain.DispatchOutcome {
	return domain.DispatchOutcome{Key: key, Kind: domain.OutcomeSkipped, Reason: reason, Err: err}
}

func failed(key domain.Key, reason string, err error) domain.DispatchOutcome {
	return domain.DispatchOutcome{Key: key, Kind: domain.OutcomeFailed, Reason: reason, Err: err}
}
