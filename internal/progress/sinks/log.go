package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/jorei-crawler/internal/progress"
)

// LogSink writes one human-readable line per progress event.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		runID := zap.Stringer("run_id", evt.RunUUID())
		switch evt.Stage {
		case progress.StageRunStart:
			s.logger.Info("number of all jorei", runID, zap.Int("total", evt.Total))
		case progress.StageRecordDone:
			s.logger.Info("done",
				runID,
				zap.String("title", evt.Title),
				zap.String("id", evt.RecordID),
				zap.String("date", evt.Date),
				zap.Int64("bytes", evt.Bytes),
			)
		case progress.StagePageSleep:
			s.logger.Info("sleep", runID, zap.Int("page", evt.Page), zap.Duration("dur", evt.Dur))
		case progress.StageRunDone:
			s.logger.Info("all done", runID, zap.Int("records", evt.Total), zap.Duration("dur", evt.Dur))
		case progress.StageRunError:
			s.logger.Error("crawl aborted", runID, zap.String("error", evt.Note), zap.Duration("dur", evt.Dur))
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
