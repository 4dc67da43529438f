package detector

import "sync/atomic"

// progressTracker reports training progress as a percentage. Progress is
// monotone within a run: it starts at 0 when a run begins and reaches 100
// only when every target has been processed.
type progressTracker struct {
	total int
	done  atomic.Int64
}

func newProgressTracker(total int) *progressTracker {
	return &progressTracker{total: total}
}

// step records one completed target.
func (p *progressTracker) step() {
	p.done.Add(1)
}

func (p *progressTracker) value() float64 {
	if p.total <= 0 {
		return 100
	}
	done := p.done.Load()
	if done > int64(p.total) {
		done = int64(p.total)
	}
	return float64(done) / float64(p.total) * 100
}
