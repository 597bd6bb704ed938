// Package ingest adapts inbound report-created events onto the engine.
//
// Two transports are supported: an HTTP endpoint served with chi, and an
// AMQP queue consumer. Both decode a JSON vehicle report and call the same
// Processor. Directory failures map to a retryable response (HTTP 503 or a
// requeued delivery) so the upstream at-least-once delivery retries the
// event; everything else is acknowledged because per-intent failures are
// already recorded on the summary.
package ingest

import (
	"context"

	"theftalert/internal/domain"
)

// Processor handles one report-created event.
type Processor interface {
	OnReportCreated(ctx context.Context, report domain.VehicleReport) (domain.Summary, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, report domain.VehicleReport) (domain.Summary, error)

func (f ProcessorFunc) OnReportCreated(ctx context.Context, report domain.VehicleReport) (domain.Summary, error) {
	return f(ctx, report)
}
