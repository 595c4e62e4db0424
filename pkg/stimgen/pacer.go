package stimgen

import (
	"context"
	"time"
)

// Pacer turns a target rate into an absolute send schedule bounded by
// the session duration: slot n opens at start + n*interval, so time
// lost in one slot is not inherited by the next.
type Pacer struct {
	interval time.Duration
	start    time.Time
	deadline time.Time
	n        int64
}

func NewPacer(rate int, duration time.Duration) *Pacer {
	start := time.Now()
	return &Pacer{
		interval: time.Second / time.Duration(rate),
		start:    start,
		deadline: start.Add(duration),
	}
}

// Wait blocks until the next send slot opens. It reports false once the
// deadline has passed or ctx is cancelled; a duration of zero therefore
// admits no slots at all.
func (p *Pacer) Wait(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	next := p.start.Add(time.Duration(p.n) * p.interval)
	if !next.Before(p.deadline) || time.Now().After(p.deadline) {
		return false
	}
	p.n++

	d := time.Until(next)
	if d <= 0 {
		// Behind schedule; send immediately to catch up.
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
