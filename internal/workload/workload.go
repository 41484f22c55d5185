// Package workload drives an mbuf.Pool with a synthetic message mix, the way a
// packet or message processing loop would.
package workload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/oy3o/mbuf"
)

// ErrCorrupt indicates a buffer's data view did not match what was written into it.
var ErrCorrupt = errors.New("workload: buffer data corrupted")

// maxOvershoot bounds how many extra bytes a growing message appends.
const maxOvershoot = 64

// Options configures a Runner.
type Options struct {
	Iterations int
	MinSize    int
	MaxSize    int
	GrowRatio  float64 // share of messages that append past their requested size
	Seed       uint64
}

// Result summarizes a finished run.
type Result struct {
	Iterations int           // messages processed
	Fallbacks  int           // messages the pool had no class for
	Grown      int           // buffers that grew while in use
	Bytes      int64         // payload bytes written
	Elapsed    time.Duration // wall time of the run
}

// Runner takes, fills, checks and gives back one buffer per message.
// It owns the pool for the duration of Run.
type Runner struct {
	pool    *mbuf.Pool
	opts    Options
	logger  *zap.Logger
	rng     *rand.Rand
	pattern []byte
}

// NewRunner creates a Runner over pool.
func NewRunner(pool *mbuf.Pool, opts Options, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	pattern := make([]byte, opts.MaxSize+maxOvershoot)
	for i := range pattern {
		pattern[i] = byte(i % 251)
	}
	return &Runner{
		pool:    pool,
		opts:    opts,
		logger:  logger,
		rng:     rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		pattern: pattern,
	}
}

// Run processes Options.Iterations messages. It stops early, returning the
// partial result and ctx.Err(), when ctx is cancelled.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	var res Result
	start := time.Now()

	progressEvery := max(r.opts.Iterations/10, 1)

	for i := 0; i < r.opts.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			res.Elapsed = time.Since(start)
			return res, err
		}

		if err := r.message(&res); err != nil {
			res.Elapsed = time.Since(start)
			return res, fmt.Errorf("message %d: %w", i, err)
		}
		res.Iterations++

		if res.Iterations%progressEvery == 0 {
			st := r.pool.Stats()
			r.logger.Debug("Workload progress",
				zap.Int("iterations", res.Iterations),
				zap.Int64("hits", st.Hits),
				zap.Int64("misses", st.Misses),
				zap.Int64("drops", st.Drops),
			)
		}
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

// message runs one take/fill/check/give cycle.
func (r *Runner) message(res *Result) error {
	size := r.opts.MinSize
	if span := r.opts.MaxSize - r.opts.MinSize; span > 0 {
		size += r.rng.IntN(span + 1)
	}

	buf, ok := r.pool.Take(size)
	if ok {
		defer r.pool.Give(buf)
	} else {
		// The pool only serves sizes up to mbuf.MaxClass and never saw
		// this buffer, so it is released rather than given back.
		buf = mbuf.New(max(size, 1))
		res.Fallbacks++
		defer buf.Release()
	}

	n := size
	if r.opts.GrowRatio > 0 && r.rng.Float64() < r.opts.GrowRatio {
		n += 1 + r.rng.IntN(maxOvershoot)
	}

	capacity := buf.Cap()
	if err := buf.Append(r.pattern[:size]); err != nil {
		return err
	}
	if err := buf.Append(r.pattern[size:n]); err != nil {
		return err
	}
	if buf.Cap() != capacity {
		res.Grown++
	}

	if !bytes.Equal(buf.Data(), r.pattern[:n]) {
		return fmt.Errorf("%w: %d bytes in a %d byte buffer", ErrCorrupt, buf.Len(), buf.Cap())
	}
	res.Bytes += int64(n)
	return nil
}
