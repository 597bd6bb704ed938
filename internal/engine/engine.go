package engine

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"theftalert/internal/compose"
	"theftalert/internal/directory"
	"theftalert/internal/dispatch"
	"theftalert/internal/domain"
	"theftalert/internal/logging"
	"theftalert/internal/metrics"
	"theftalert/internal/preference"
)

// Invocation results recorded in metrics.
const (
	resultCompleted = "completed"
	resultNoop      = "noop"
	resultCancelled = "cancelled"
	resultFailed    = "failed"
)

const defaultWorkers = 16

// Dependencies are the collaborators an Engine drives.
type Dependencies struct {
	Directory  directory.Directory
	Composer   *compose.Composer
	Dispatcher *dispatch.Dispatcher
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Options tunes an Engine.
type Options struct {
	// Workers bounds how many users are processed at once.
	Workers int
	// InvocationTimeout caps a whole invocation. Zero means no cap beyond
	// the caller's context.
	InvocationTimeout time.Duration
}

// Engine is the report-created orchestrator.
type Engine struct {
	directory  directory.Directory
	composer   *compose.Composer
	dispatcher *dispatch.Dispatcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	opts       Options
}

// New constructs an Engine.
func New(deps Dependencies, opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	composer := deps.Composer
	if composer == nil {
		composer = compose.New(compose.Options{})
	}
	return &Engine{
		directory:  deps.Directory,
		composer:   composer,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logging.NewComponentLogger(deps.Logger, "engine"),
		opts:       opts,
	}
}

// OnReportCreated handles one report-created event. The returned summary is
// always populated; the error is non-nil only when the directory could not
// be enumerated or ctx ended first, in which case the summary is partial.
func (e *Engine) OnReportCreated(ctx context.Context, report domain.VehicleReport) (domain.Summary, error) {
	start := time.Now()
	inv := &invocation{
		summary: domain.Summary{
			ReportID:      report.ID,
			CorrelationID: uuid.NewString(),
			State:         domain.StateReceived,
		},
	}

	ctx = logging.WithCorrelationID(logging.WithReportID(ctx, report.ID), inv.summary.CorrelationID)
	if e.opts.InvocationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.InvocationTimeout)
		defer cancel()
	}
	logger := logging.WithContext(ctx, e.logger)
	logger.Info("report received",
		logging.String(logging.FieldEventType, "report_received"),
		logging.String("status", string(report.Status)),
	)

	if reason := noopReason(report); reason != "" {
		inv.summary.State = domain.StateCompleted
		inv.summary.NoOpReason = reason
		inv.summary.Duration = time.Since(start)
		e.metrics.ObserveInvocation(resultNoop)
		logger.Info("report ignored", logging.String(logging.FieldReason, reason))
		return inv.summary, nil
	}
	inv.summary.State = domain.StateValidated

	scanErr := e.scan(ctx, logger, report, inv)

	summary := inv.finish(time.Since(start))
	switch {
	case scanErr != nil && errors.Is(scanErr, domain.ErrDirectoryUnavailable):
		e.metrics.ObserveInvocation(resultFailed)
		logger.Error("directory scan failed",
			logging.Error(scanErr),
			logging.String(logging.FieldEventType, "directory_unavailable"),
			logging.String(logging.FieldErrorHint, "check directory connectivity; the event should be redelivered"),
			logging.Int("users_scanned", summary.UsersScanned),
		)
		return summary, scanErr
	case ctx.Err() != nil:
		summary.Cancelled = true
		e.metrics.ObserveInvocation(resultCancelled)
		logging.WarnWithContext(logger, "invocation cancelled", "invocation_cancelled",
			logging.Error(ctx.Err()),
			logging.Int("users_scanned", summary.UsersScanned),
			logging.String(logging.FieldImpact, "remaining users were not notified; redelivery resumes from unconsumed keys"),
		)
		return summary, ctx.Err()
	case scanErr != nil:
		err := domain.Wrap(domain.ErrDirectoryUnavailable, "engine", "scan", "directory scan aborted", scanErr)
		e.metrics.ObserveInvocation(resultFailed)
		logger.Error("directory scan aborted", logging.Error(err))
		return summary, err
	}

	summary.State = domain.StateCompleted
	e.metrics.ObserveInvocation(resultCompleted)
	logger.Info("report processed",
		logging.String(logging.FieldEventType, "report_processed"),
		logging.Int("users_scanned", summary.UsersScanned),
		logging.Int("users_matched", summary.UsersMatched),
		logging.Int("intents_sent", summary.IntentsSent),
		logging.Int("intents_skipped", summary.IntentsSkipped),
		logging.Int("intents_failed", summary.IntentsFailed),
		logging.Int("region_faults", len(summary.RegionFaults)),
		logging.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// scan streams the directory into the worker pool and waits for every
// started user to settle before returning.
func (e *Engine) scan(ctx context.Context, logger *slog.Logger, report domain.VehicleReport, inv *invocation) error {
	inv.setState(domain.StateScanning)

	var g errgroup.Group
	g.SetLimit(e.opts.Workers)

	scanErr := e.directory.Scan(ctx, func(user domain.User) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		inv.scanned()
		g.Go(func() error {
			e.processUser(ctx, logger, report, user, inv)
			return nil
		})
		return nil
	})

	inv.setState(domain.StateDispatching)
	_ = g.Wait()
	return scanErr
}

func (e *Engine) processUser(ctx context.Context, logger *slog.Logger, report domain.VehicleReport, user domain.User, inv *invocation) {
	decision := preference.ResolveUser(report, user)
	if len(decision.Faults) > 0 {
		e.metrics.ObserveRegionFaults(len(decision.Faults))
		for _, fault := range decision.Faults {
			logging.WarnWithContext(logger, "region skipped", "region_invalid",
				logging.String(logging.FieldUserID, fault.UserID),
				logging.String("region", fault.Region),
				logging.String("error", fault.Error),
				logging.String(logging.FieldErrorHint, "fix or delete the stored region"),
				logging.String(logging.FieldImpact, "user not matched by this region"),
			)
		}
	}
	inv.decided(decision)
	if !decision.Matched {
		return
	}
	e.metrics.ObserveMatch(decision.Reason)

	intents := e.composer.Compose(decision, report, user)
	if len(intents) == 0 {
		logger.Debug("matched user has no deliverable channels", logging.String(logging.FieldUserID, user.ID))
		return
	}
	inv.record(e.dispatcher.DispatchUser(ctx, intents))
}

func noopReason(report domain.VehicleReport) string {
	if err := report.Validate(); err != nil {
		return err.Error()
	}
	if !report.IsActive() {
		return "report status is " + string(report.Status)
	}
	return ""
}

// invocation guards the summary shared by workers.
type invocation struct {
	mu      sync.Mutex
	summary domain.Summary
}

func (i *invocation) setState(state domain.State) {
	i.mu.Lock()
	i.summary.State = state
	i.mu.Unlock()
}

func (i *invocation) scanned() {
	i.mu.Lock()
	i.summary.UsersScanned++
	i.mu.Unlock()
}

func (i *invocation) decided(decision domain.MatchDecision) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.summary.RegionFaults = append(i.summary.RegionFaults, decision.Faults...)
	if decision.Matched {
		i.summary.RecordMatch(decision.Reason)
	}
}

func (i *invocation) record(outcomes []domain.DispatchOutcome) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, o := range outcomes {
		i.summary.Record(o)
	}
}

// finish returns a copy of the summary with a deterministic ordering of
// outcomes and faults.
func (i *invocation) finish(elapsed time.Duration) domain.Summary {
	i.mu.Lock()
	defer i.mu.Unlock()
	s := i.summary
	s.Duration = elapsed
	sort.SliceStable(s.Outcomes, func(a, b int) bool {
		return s.Outcomes[a].Key.String() < s.Outcomes[b].Key.String()
	})
	sort.SliceStable(s.RegionFaults, func(a, b int) bool {
		if s.RegionFaults[a].UserID != s.RegionFaults[b].UserID {
			return s.RegionFaults[a].UserID < s.RegionFaults[b].UserID
		}
		return s.RegionFaults[a].Region < s.RegionFaults[b].Region
	})
	return s
}
