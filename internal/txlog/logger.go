// Package txlog reports storefront purchase and subscription events to the
// analytics sink exactly once per meaningful occurrence.
//
// A purchase can reach the service several times: as a new transaction, as
// a replay of an unfinished transaction after relaunch, through an explicit
// restore, or as a renewal in a subscription chain. The Logger classifies
// each delivery, consults the shared dedup ledger keyed by lineage
// (original transaction ID), and only reports first sightings.
package txlog

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/PratikDhanave/iap-event-logger/internal/classifier"
	"github.com/PratikDhanave/iap-event-logger/internal/dedup"
	"github.com/PratikDhanave/iap-event-logger/internal/event"
	"github.com/PratikDhanave/iap-event-logger/internal/metrics"
	"github.com/PratikDhanave/iap-event-logger/internal/models"
	"github.com/PratikDhanave/iap-event-logger/internal/sink"
)

const (
	pathNew      = "new"
	pathRestored = "restored"
)

// Logger decides whether a transaction is reported and hands reported
// events to the sink. Methods are safe for concurrent use and never fail:
// logging is best-effort telemetry.
type Logger struct {
	cache    *dedup.Cache
	resolver classifier.Resolver
	sinks    *sink.Holder
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// New wires a Logger. The sink is read from sinks on every call; while the
// holder is empty every call is a no-op that leaves the cache untouched.
func New(cache *dedup.Cache, resolver classifier.Resolver, sinks *sink.Holder, m *metrics.Metrics, log zerolog.Logger) *Logger {
	return &Logger{
		cache:    cache,
		resolver: resolver,
		sinks:    sinks,
		metrics:  m,
		log:      log,
	}
}

// LogNewTransaction handles a transaction from the regular purchase stream.
func (l *Logger) LogNewTransaction(ctx context.Context, tx models.RawTransaction) {
	ev, ok := l.resolver.ResolveNewEvent(ctx, tx)
	if !ok {
		l.unresolved(pathNew, tx)
		return
	}
	s, ok := l.sinks.Get()
	if !ok {
		l.noSink(pathNew, ev)
		return
	}

	report := false
	l.cache.Update(func(c *dedup.Tx) {
		switch {
		case ev.IsSubscription &&
			(c.Contains(ev.OriginalTransactionID, ev.Name) || c.Contains(ev.OriginalTransactionID, event.SubscribeRestore)):
			// Renewal or trial of a lineage already reported, or already
			// restored as a subscription.
			c.Add(ev.TransactionID, ev.Name)
		case ev.Name == event.Purchased && c.Contains(ev.OriginalTransactionID):
			// One-time purchase redelivered on relaunch.
			c.Add(ev.TransactionID, ev.Name)
		default:
			c.Add(ev.OriginalTransactionID, ev.Name)
			report = true
		}
	})

	l.finish(ctx, pathNew, s, ev, report)
}

// LogRestoredTransaction handles a transaction surfaced by a restore flow.
// Only the same kind already recorded for the lineage suppresses it.
func (l *Logger) LogRestoredTransaction(ctx context.Context, tx models.RawTransaction) {
	ev, ok := l.resolver.ResolveRestoredEvent(ctx, tx)
	if !ok {
		l.unresolved(pathRestored, tx)
		return
	}
	s, ok := l.sinks.Get()
	if !ok {
		l.noSink(pathRestored, ev)
		return
	}

	report := false
	l.cache.Update(func(c *dedup.Tx) {
		if c.Contains(ev.OriginalTransactionID, ev.Name) {
			return
		}
		c.Add(ev.OriginalTransactionID, ev.Name)
		report = true
	})

	l.finish(ctx, pathRestored, s, ev, report)
}

func (l *Logger) finish(ctx context.Context, path string, s sink.Sink, ev *event.Event, report bool) {
	l.metrics.SetDedupEntries(l.cache.Len())

	if !report {
		l.metrics.IncrementTransaction(path, metrics.OutcomeSuppressed)
		l.decision(ev).Str("path", path).Msg("transaction suppressed")
		return
	}

	value, params := BuildParameters(ev)
	s.LogEvent(ctx, ev.Name.String(), value, params)
	if s.FlushBehavior() != sink.ExplicitOnly {
		s.Flush(ctx, sink.FlushReasonEagerlyFlushingEvent)
	}

	l.metrics.IncrementTransaction(path, metrics.OutcomeReported)
	l.decision(ev).Str("path", path).Float64("value_to_sum", value).Msg("transaction reported")
}

func (l *Logger) unresolved(path string, tx models.RawTransaction) {
	l.metrics.IncrementTransaction(path, metrics.OutcomeUnresolved)
	l.log.Debug().
		Str("path", path).
		Str("transaction_id", tx.TransactionID).
		Str("product_id", tx.ProductID).
		Str("state", tx.State).
		Msg("transaction not reportable")
}

func (l *Logger) noSink(path string, ev *event.Event) {
	l.metrics.IncrementTransaction(path, metrics.OutcomeNoSink)
	l.log.Warn().
		Str("path", path).
		Str("transaction_id", ev.TransactionID).
		Str("event_name", ev.Name.String()).
		Msg("no analytics sink configured, dropping transaction")
}

func (l *Logger) decision(ev *event.Event) *zerolog.Event {
	return l.log.Debug().
		Str("transaction_id", ev.TransactionID).
		Str("original_transaction_id", ev.OriginalTransactionID).
		Str("event_name", ev.Name.String())
}
