package mbuf

import "github.com/puzpuzpuz/xsync/v4"

// Stats is a point-in-time snapshot of a Pool's counters.
type Stats struct {
	Hits     int64 // Take served from an idle buffer
	Misses   int64 // Take served by a fresh allocation
	Rejected int64 // Take with no class for the size
	Returns  int64 // Give filed the buffer in a bucket
	Drops    int64 // Give released a buffer whose capacity left the ladder

	// Idle is the number of idle buffers per class, indexed like Classes.
	Idle [NumClasses]int64
}

// counters are striped xsync counters, so a monitoring goroutine can read them
// while the pool's owner keeps updating them.
type counters struct {
	hits     *xsync.Counter
	misses   *xsync.Counter
	rejected *xsync.Counter
	returns  *xsync.Counter
	drops    *xsync.Counter
	idle     [NumClasses]*xsync.Counter
}

func newCounters() *counters {
	c := &counters{
		hits:     xsync.NewCounter(),
		misses:   xsync.NewCounter(),
		rejected: xsync.NewCounter(),
		returns:  xsync.NewCounter(),
		drops:    xsync.NewCounter(),
	}
	for i := range c.idle {
		c.idle[i] = xsync.NewCounter()
	}
	return c
}

// Stats returns a snapshot of the pool's counters. Unlike the rest of the
// Pool API it is safe to call from any goroutine.
func (p *Pool) Stats() Stats {
	if p.stats == nil {
		return Stats{}
	}
	s := Stats{
		Hits:     p.stats.hits.Value(),
		Misses:   p.stats.misses.Value(),
		Rejected: p.stats.rejected.Value(),
		Returns:  p.stats.returns.Value(),
		Drops:    p.stats.drops.Value(),
	}
	for i, c := range p.stats.idle {
		s.Idle[i] = c.Value()
	}
	return s
}

// HitRatio returns the share of served Take calls that reused a buffer.
func (s Stats) HitRatio() float64 {
	served := s.Hits + s.Misses
	if served == 0 {
		return 0
	}
	return float64(s.Hits) / float64(served)
}
