// Package timing measures how long operations take and logs the result.
package timing

import (
	"time"

	"github.com/rs/zerolog"
)

// Span measures one operation. It is not safe for concurrent use.
type Span struct {
	logger zerolog.Logger
	op     string
	start  time.Time
	last   time.Time
	now    func() time.Time
}

// Start begins a span for op.
func Start(logger zerolog.Logger, op string) *Span {
	return StartAt(logger, op, time.Now)
}

// StartAt begins a span using now as its time source.
func StartAt(logger zerolog.Logger, op string, now func() time.Time) *Span {
	t := now()
	return &Span{logger: logger, op: op, start: t, last: t, now: now}
}

// Checkpoint logs the time since the previous checkpoint at debug level.
func (s *Span) Checkpoint(msg string) time.Duration {
	t := s.now()
	d := t.Sub(s.last)
	s.last = t
	s.logger.Debug().
		Str("op", s.op).
		Dur("duration", d).
		Msg(msg)
	return d
}

// Stop logs the total duration at debug level and returns it.
func (s *Span) Stop() time.Duration {
	d := s.now().Sub(s.start)
	s.logger.Debug().
		Str("op", s.op).
		Dur("duration", d).
		Msg("completed")
	return d
}
