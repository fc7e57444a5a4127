package sink

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/PratikDhanave/iap-event-logger/internal/metrics"
	"github.com/PratikDhanave/iap-event-logger/internal/models"
)

const shutdownFlushTimeout = 10 * time.Second

// EventWriter persists a batch of analytics events and returns how many were
// newly written.
type EventWriter interface {
	InsertEvents(ctx context.Context, events []models.AnalyticsEvent) (int, error)
}

// Options configures a BufferedSink.
type Options struct {
	Behavior  FlushBehavior
	Interval  time.Duration
	BatchSize int
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
}

// BufferedSink queues events in memory and writes them in batches.
type BufferedSink struct {
	writer    EventWriter
	behavior  FlushBehavior
	interval  time.Duration
	batchSize int
	metrics   *metrics.Metrics
	log       zerolog.Logger
	now       func() time.Time

	// flushMu serializes writes so batches reach the writer in order.
	flushMu sync.Mutex

	mu  sync.Mutex
	buf []models.AnalyticsEvent

	kick chan struct{}
}

var _ Sink = (*BufferedSink)(nil)

func NewBufferedSink(w EventWriter, opts Options) *BufferedSink {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	return &BufferedSink{
		writer:    w,
		behavior:  opts.Behavior,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		now:       time.Now,
		kick:      make(chan struct{}, 1),
	}
}

// FlushBehavior implements Sink.
func (s *BufferedSink) FlushBehavior() FlushBehavior {
	return s.behavior
}

// LogEvent implements Sink. It only buffers; writing happens on Flush.
func (s *BufferedSink) LogEvent(ctx context.Context, name string, valueToSum float64, params map[string]string) {
	ev := models.AnalyticsEvent{
		ID:         uuid.New(),
		Name:       name,
		ValueToSum: valueToSum,
		Parameters: params,
		LoggedAt:   s.now().UTC(),
	}

	s.mu.Lock()
	s.buf = append(s.buf, ev)
	full := len(s.buf) >= s.batchSize
	s.mu.Unlock()

	if full && s.behavior == Auto {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
}

// Flush implements Sink. A failed batch is put back at the head of the
// buffer and written by the next flush.
func (s *BufferedSink) Flush(ctx context.Context, reason FlushReason) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	batch := s.buf
	s.buf = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	n, err := s.writer.InsertEvents(ctx, batch)
	if err != nil {
		s.mu.Lock()
		s.buf = append(batch, s.buf...)
		s.mu.Unlock()

		s.metrics.IncrementFlushError()
		s.log.Error().Err(err).
			Str("reason", string(reason)).
			Int("events", len(batch)).
			Msg("sink flush failed")
		return
	}

	s.metrics.IncrementFlush(string(reason), n)
	s.log.Debug().
		Str("reason", string(reason)).
		Int("events", len(batch)).
		Int("written", n).
		Msg("sink flushed")
}

// Pending returns the number of buffered events.
func (s *BufferedSink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

// Run drives automatic flushing until ctx is done, then flushes whatever
// is still buffered. With ExplicitOnly it only performs the final flush.
func (s *BufferedSink) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if s.behavior == Auto && s.interval > 0 {
		t := time.NewTicker(s.interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
			s.Flush(fctx, FlushReasonShutdown)
			cancel()
			return nil
		case <-tick:
			s.Flush(ctx, FlushReasonTimer)
		case <-s.kick:
			s.Flush(ctx, FlushReasonEventThreshold)
		}
	}
}
