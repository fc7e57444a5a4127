// Package sink is the analytics transport that reported purchase events are
// handed to.
package sink

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// FlushBehavior controls whether the sink writes on its own schedule.
type FlushBehavior int

const (
	// Auto flushes on a timer, when the buffer fills, and eagerly after
	// implicitly logged purchase events.
	Auto FlushBehavior = iota
	// ExplicitOnly writes only when Flush is called by the application.
	ExplicitOnly
)

func (b FlushBehavior) String() string {
	if b == ExplicitOnly {
		return "explicit_only"
	}
	return "auto"
}

// ParseFlushBehavior parses "auto" or "explicit_only".
func ParseFlushBehavior(s string) (FlushBehavior, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "explicit_only", "explicit-only", "explicitonly":
		return ExplicitOnly, nil
	}
	return Auto, fmt.Errorf("unknown flush behavior %q", s)
}

// FlushReason is recorded with every flush.
type FlushReason string

const (
	FlushReasonExplicit             FlushReason = "explicit"
	FlushReasonTimer                FlushReason = "timer"
	FlushReasonEventThreshold       FlushReason = "event_threshold"
	FlushReasonEagerlyFlushingEvent FlushReason = "eagerly_flushing_event"
	FlushReasonShutdown             FlushReason = "shutdown"
)

// Sink accepts named analytics events with a numeric value and string
// parameters.
type Sink interface {
	LogEvent(ctx context.Context, name string, valueToSum float64, params map[string]string)
	Flush(ctx context.Context, reason FlushReason)
	FlushBehavior() FlushBehavior
}

// Holder is the process-wide slot the active sink is installed into.
// The zero value is empty and ready to use.
type Holder struct {
	p atomic.Pointer[entry]
}

type entry struct {
	s Sink
}

// NewHolder returns a holder containing s. A nil s leaves it empty.
func NewHolder(s Sink) *Holder {
	h := &Holder{}
	h.Set(s)
	return h
}

// Set installs s. Passing nil clears the holder.
func (h *Holder) Set(s Sink) {
	if s == nil {
		h.p.Store(nil)
		return
	}
	h.p.Store(&entry{s: s})
}

// Get returns the installed sink, if any.
func (h *Holder) Get() (Sink, bool) {
	if h == nil {
		return nil, false
	}
	e := h.p.Load()
	if e == nil {
		return nil, false
	}
	return e.s, true
}
