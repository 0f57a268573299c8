package progress

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Dispatcher delivers each event to every sink before Emit returns.
type Dispatcher struct {
	ctx    context.Context
	sinks  []Sink
	logger *zap.Logger
}

// NewDispatcher fans events out to sinks. Sink failures are logged, never
// returned, so observability cannot abort a crawl.
func NewDispatcher(ctx context.Context, logger *zap.Logger, sinks ...Sink) *Dispatcher {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		ctx:    ctx,
		sinks:  append([]Sink(nil), sinks...),
		logger: logger,
	}
}

// Emit validates evt and hands it to each sink in registration order.
func (d *Dispatcher) Emit(evt Event) {
	if d == nil {
		return
	}
	if err := evt.Validate(); err != nil {
		d.logger.Debug("discarding invalid progress event", zap.Error(err))
		return
	}
	batch := []Event{evt}
	for _, sink := range d.sinks {
		if err := sink.Consume(d.ctx, batch); err != nil {
			d.logger.Warn("progress sink failed", zap.String("stage", string(evt.Stage)), zap.Error(err))
		}
	}
}

// Close closes every sink and joins their errors.
func (d *Dispatcher) Close(ctx context.Context) error {
	if d == nil {
		return nil
	}
	var errs []error
	for _, sink := range d.sinks {
		if err := sink.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
