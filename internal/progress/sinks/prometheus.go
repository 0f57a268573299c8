package sinks

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/jorei-crawler/internal/metrics"
	"github.com/JakeFAU/jorei-crawler/internal/progress"
)

// PrometheusSink exports crawl progress via Prometheus.
type PrometheusSink struct {
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	recordsFound  prometheus.Gauge
	records       prometheus.Counter
	recordBytes   prometheus.Counter
	pages         prometheus.Counter
	rateLimitWait *prometheus.HistogramVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jorei_runs_started_total",
			Help: "Total crawl runs that have started.",
		}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jorei_runs_completed_total",
			Help: "Total crawl runs completed partitioned by result.",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jorei_run_duration_seconds",
			Help:    "Wall time per completed run.",
			Buckets: []float64{10, 60, 300, 900, 1800, 3600, 7200, 21600, 86400},
		}, []string{"result"}),
		recordsFound: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jorei_records_found",
			Help: "Records matching the current run's query.",
		}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jorei_records_written_total",
			Help: "Records fetched, normalized and written.",
		}),
		recordBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jorei_record_bytes_total",
			Help: "Bytes of record JSON written.",
		}),
		pages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jorei_pages_total",
			Help: "Result pages fully processed.",
		}),
		rateLimitWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jorei_rate_limit_delays_seconds",
			Help:    "Histogram of request rate limit wait durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"host"}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runDuration,
		s.recordsFound,
		s.records,
		s.recordBytes,
		s.pages,
		s.rateLimitWait,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			s.runsStarted.Inc()
			s.recordsFound.Set(float64(evt.Total))
		case progress.StageRecordDone:
			s.records.Inc()
			if evt.Bytes > 0 {
				s.recordBytes.Add(float64(evt.Bytes))
			}
		case progress.StagePageSleep:
			s.pages.Inc()
		case progress.StageRunDone:
			s.completeRun(evt, "success")
		case progress.StageRunError:
			s.completeRun(evt, "error")
		}
	}
	return nil
}

func (s *PrometheusSink) completeRun(evt progress.Event, result string) {
	s.runsCompleted.WithLabelValues(result).Inc()
	if evt.Dur > 0 {
		s.runDuration.WithLabelValues(result).Observe(evt.Dur.Seconds())
	}
}

// ObserveRateLimitDelay records a request limiter wait.
func (s *PrometheusSink) ObserveRateLimitDelay(host string, d time.Duration) {
	s.rateLimitWait.WithLabelValues(metrics.SanitizeSite(host)).Observe(d.Seconds())
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
