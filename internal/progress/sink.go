package progress

import "context"

// Sink consumes batches of progress events.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter publishes individual events; the crawl engine depends only on
// this interface so tests can capture events directly.
type Emitter interface {
	Emit(evt Event)
}
