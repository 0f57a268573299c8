package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/jorei-crawler/internal/jorei"
	"github.com/JakeFAU/jorei-crawler/internal/progress"
)

// API fetches list and detail responses.
type API interface {
	FetchList(ctx context.Context, url string) (jorei.ListPage, error)
	FetchDetail(ctx context.Context, url string) (jorei.Doc, error)
}

// URLBuilder renders query URLs.
type URLBuilder interface {
	List(r jorei.DateRange, page, pageSize int) string
	Detail(id string) string
}

// Sink persists records and the index.
type Sink interface {
	WriteRecord(ctx context.Context, id string, rec jorei.Record) (int64, error)
	Append(entry jorei.IndexEntry)
	Flush(ctx context.Context, runID uuid.UUID) error
}

// Throttler is the pause taken after each page.
type Throttler interface {
	Throttle(ctx context.Context) error
	Duration() time.Duration
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewRunID() (uuid.UUID, error)
}

// Config holds the settings for a crawl run.
type Config struct {
	Range jorei.DateRange
	// Rows is the page size.
	Rows int
}

// Deps groups the collaborators of an Engine.
type Deps struct {
	API      API
	URLs     URLBuilder
	Sink     Sink
	Pause    Throttler
	Clock    Clock
	IDs      IDGenerator
	Progress progress.Emitter
}

// Summary describes a finished run.
type Summary struct {
	RunID   uuid.UUID
	Total   int
	Pages   int
	Records int
}

// Engine drives a single sequential crawl: one bootstrap list query for the
// total, then every page in order, one detail query per listed record.
type Engine struct {
	cfg  Config
	deps Deps
}

// New validates cfg and deps and returns an Engine.
func New(cfg Config, deps Deps) (*Engine, error) {
	if cfg.Rows <= 0 {
		return nil, fmt.Errorf("rows must be positive, got %d", cfg.Rows)
	}
	if err := cfg.Range.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.API == nil:
		return nil, errors.New("api client is required")
	case deps.URLs == nil:
		return nil, errors.New("url builder is required")
	case deps.Sink == nil:
		return nil, errors.New("sink is required")
	case deps.Pause == nil:
		return nil, errors.New("pause is required")
	case deps.Clock == nil:
		return nil, errors.New("clock is required")
	case deps.IDs == nil:
		return nil, errors.New("id generator is required")
	}
	if deps.Progress == nil {
		deps.Progress = nopEmitter{}
	}
	return &Engine{cfg: cfg, deps: deps}, nil
}

// Run crawls every page of the configured range. Any error aborts the run
// without flushing the index.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	runID, err := e.deps.IDs.NewRunID()
	if err != nil {
		return Summary{}, err
	}
	r := &run{Engine: e, summary: Summary{RunID: runID}, started: e.deps.Clock.Now()}
	if err := r.execute(ctx); err != nil {
		r.emit(progress.Event{
			Stage: progress.StageRunError,
			Total: r.summary.Records,
			Dur:   r.elapsed(),
			Note:  err.Error(),
		})
		return r.summary, err
	}
	return r.summary, nil
}

type run struct {
	*Engine
	summary Summary
	started time.Time
}

func (r *run) execute(ctx context.Context) error {
	first, err := r.deps.API.FetchList(ctx, r.deps.URLs.List(r.cfg.Range, 0, r.cfg.Rows))
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	r.summary.Total = first.TotalCount()
	r.emit(progress.Event{Stage: progress.StageRunStart, Total: r.summary.Total})

	// Inclusive: a total that is an exact multiple of rows costs one extra
	// empty page.
	lastPage := r.summary.Total / r.cfg.Rows
	for page := 0; page <= lastPage; page++ {
		if err := r.crawlPage(ctx, page); err != nil {
			return err
		}
		r.summary.Pages++
		r.emit(progress.Event{Stage: progress.StagePageSleep, Page: page, Dur: r.deps.Pause.Duration()})
		if err := r.deps.Pause.Throttle(ctx); err != nil {
			return fmt.Errorf("pause after page %d: %w", page, err)
		}
	}

	if err := r.deps.Sink.Flush(ctx, r.summary.RunID); err != nil {
		return fmt.Errorf("flush index: %w", err)
	}
	r.emit(progress.Event{Stage: progress.StageRunDone, Total: r.summary.Records, Dur: r.elapsed()})
	return nil
}

func (r *run) crawlPage(ctx context.Context, page int) error {
	list, err := r.deps.API.FetchList(ctx, r.deps.URLs.List(r.cfg.Range, page, r.cfg.Rows))
	if err != nil {
		return fmt.Errorf("page %d: %w", page, err)
	}
	for _, id := range list.IDs() {
		if err := r.crawlRecord(ctx, id); err != nil {
			return fmt.Errorf("page %d: record %s: %w", page, id, err)
		}
	}
	return nil
}

func (r *run) crawlRecord(ctx context.Context, id string) error {
	doc, err := r.deps.API.FetchDetail(ctx, r.deps.URLs.Detail(id))
	if err != nil {
		return err
	}
	rec, err := jorei.Normalize(doc)
	if err != nil {
		return err
	}
	n, err := r.deps.Sink.WriteRecord(ctx, id, rec)
	if err != nil {
		return err
	}
	r.deps.Sink.Append(jorei.Summarize(doc))
	r.summary.Records++

	date := "None"
	if doc.AnnouncementDateS != nil {
		date = *doc.AnnouncementDateS
	}
	r.emit(progress.Event{
		Stage:    progress.StageRecordDone,
		RecordID: id,
		Title:    doc.Title,
		Date:     date,
		Bytes:    n,
	})
	return nil
}

func (r *run) emit(evt progress.Event) {
	evt.RunID = progress.UUIDToBytes(r.summary.RunID)
	evt.TS = r.deps.Clock.Now()
	r.deps.Progress.Emit(evt)
}

func (r *run) elapsed() time.Duration {
	d := r.deps.Clock.Now().Sub(r.started)
	if d < 0 {
		return 0
	}
	return d
}

type nopEmitter struct{}

func (nopEmitter) Emit(progress.Event) {}
