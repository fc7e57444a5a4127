package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikDhanave/iap-event-logger/internal/metrics"
	"github.com/PratikDhanave/iap-event-logger/internal/models"
)

type fakeWriter struct {
	mu      sync.Mutex
	batches [][]models.AnalyticsEvent
	err     error
}

func (w *fakeWriter) InsertEvents(_ context.Context, events []models.AnalyticsEvent) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return 0, w.err
	}
	w.batches = append(w.batches, append([]models.AnalyticsEvent(nil), events...))
	return len(events), nil
}

func (w *fakeWriter) setErr(err error) {
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()
}

func (w *fakeWriter) written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, b := range w.batches {
		n += len(b)
	}
	return n
}

func newTestSink(w EventWriter, opts Options) (*BufferedSink, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry())
	opts.Metrics = m
	opts.Logger = zerolog.Nop()
	return NewBufferedSink(w, opts), m
}

func TestParseFlushBehavior(t *testing.T) {
	b, err := ParseFlushBehavior("explicit_only")
	require.NoError(t, err)
	assert.Equal(t, ExplicitOnly, b)
	assert.Equal(t, "explicit_only", b.String())

	b, err = ParseFlushBehavior("")
	require.NoError(t, err)
	assert.Equal(t, Auto, b)

	_, err = ParseFlushBehavior("sometimes")
	assert.Error(t, err)
}

func TestHolder(t *testing.T) {
	var h Holder
	_, ok := h.Get()
	assert.False(t, ok)

	s, _ := newTestSink(&fakeWriter{}, Options{})
	h.Set(s)
	got, ok := h.Get()
	require.True(t, ok)
	assert.Same(t, s, got)

	h.Set(nil)
	_, ok = h.Get()
	assert.False(t, ok)

	var nilHolder *Holder
	_, ok = nilHolder.Get()
	assert.False(t, ok)
}

func TestBufferedSink_LogAndFlush(t *testing.T) {
	w := &fakeWriter{}
	s, m := newTestSink(w, Options{Behavior: ExplicitOnly})

	s.LogEvent(context.Background(), "fb_mobile_purchase", 0.99, map[string]string{"fb_content_id": "coins"})
	s.LogEvent(context.Background(), "Subscribe", 9.99, map[string]string{"fb_content_id": "pro"})
	assert.Equal(t, 2, s.Pending())
	assert.Equal(t, 0, w.written())

	s.Flush(context.Background(), FlushReasonExplicit)

	assert.Equal(t, 0, s.Pending())
	require.Len(t, w.batches, 1)
	batch := w.batches[0]
	require.Len(t, batch, 2)
	assert.Equal(t, "fb_mobile_purchase", batch[0].Name)
	assert.Equal(t, 0.99, batch[0].ValueToSum)
	assert.Equal(t, "coins", batch[0].Parameters["fb_content_id"])
	assert.NotEqual(t, batch[0].ID, batch[1].ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Flushes.WithLabelValues("explicit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FlushedEvents))
}

func TestBufferedSink_EmptyFlushIsNoop(t *testing.T) {
	w := &fakeWriter{}
	s, m := newTestSink(w, Options{})

	s.Flush(context.Background(), FlushReasonExplicit)

	assert.Empty(t, w.batches)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Flushes.WithLabelValues("explicit")))
}

func TestBufferedSink_FailedFlushRequeues(t *testing.T) {
	w := &fakeWriter{}
	s, m := newTestSink(w, Options{})
	ctx := context.Background()

	s.LogEvent(ctx, "first", 1, nil)
	w.setErr(errors.New("db down"))
	s.Flush(ctx, FlushReasonExplicit)

	assert.Equal(t, 1, s.Pending())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FlushErrors))

	s.LogEvent(ctx, "second", 2, nil)
	w.setErr(nil)
	s.Flush(ctx, FlushReasonExplicit)

	require.Len(t, w.batches, 1)
	require.Len(t, w.batches[0], 2)
	assert.Equal(t, "first", w.batches[0][0].Name)
	assert.Equal(t, "second", w.batches[0][1].Name)
}

func TestBufferedSink_RunFlushesOnThreshold(t *testing.T) {
	w := &fakeWriter{}
	s, _ := newTestSink(w, Options{Behavior: Auto, BatchSize: 2})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	s.LogEvent(ctx, "a", 1, nil)
	s.LogEvent(ctx, "b", 1, nil)

	require.Eventually(t, func() bool { return w.written() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestBufferedSink_RunFlushesOnTimer(t *testing.T) {
	w := &fakeWriter{}
	s, _ := newTestSink(w, Options{Behavior: Auto, Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	s.LogEvent(ctx, "a", 1, nil)

	require.Eventually(t, func() bool { return w.written() == 1 }, time.Second, 5*time.Millisecond)
}

func TestBufferedSink_ExplicitOnlyFlushesAtShutdown(t *testing.T) {
	w := &fakeWriter{}
	s, _ := newTestSink(w, Options{Behavior: ExplicitOnly, Interval: time.Millisecond, BatchSize: 1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	s.LogEvent(ctx, "a", 1, nil)
	s.LogEvent(ctx, "b", 1, nil)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, w.written())

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 2, w.written())
}
