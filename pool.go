package mbuf

// Capacity classes the Pool buckets buffers by.
const (
	Class1K  = 1 << 10
	Class2K  = 2 << 10
	Class4K  = 4 << 10
	Class8K  = 8 << 10
	Class16K = 16 << 10
	Class32K = 32 << 10

	// MaxClass is the largest size Take can serve.
	MaxClass = Class32K

	// NumClasses is the number of rungs on the ladder.
	NumClasses = 6
)

var ladder = [NumClasses]int{Class1K, Class2K, Class4K, Class8K, Class16K, Class32K}

// defaultQuotas is how many buffers Initialize preallocates per class.
var defaultQuotas = [NumClasses]int{100, 100, 20, 10, 5, 2}

// Classes returns the capacity ladder in ascending order.
func Classes() [NumClasses]int { return ladder }

// ClassFor returns the smallest class that can hold size bytes.
// It reports false if size is negative or larger than MaxClass.
func ClassFor(size int) (int, bool) {
	i, ok := classIndex(size)
	if !ok {
		return 0, false
	}
	return ladder[i], true
}

func classIndex(size int) (int, bool) {
	if size < 0 {
		return -1, false
	}
	for i, class := range ladder {
		if size <= class {
			return i, true
		}
	}
	return -1, false
}

// exactIndex returns the ladder index of a capacity that is exactly a class.
func exactIndex(capacity int) (int, bool) {
	for i, class := range ladder {
		if capacity == class {
			return i, true
		}
	}
	return -1, false
}

// Pool caches idle Buffers keyed by capacity class.
//
// Every buffer in the bucket for class k has capacity k. Buffers are taken
// last-in first-out. A Pool has a single owner and no internal locking;
// callers sharing one across goroutines must serialize access themselves.
// Only the counters behind Stats may be read concurrently.
//
// The zero value is an empty pool with the default quotas, set up on first
// use. Use NewPool when Stats will be read by another goroutine before the
// owner has touched the pool.
type Pool struct {
	buckets [NumClasses][]*Buffer
	quotas  [NumClasses]int
	stats   *counters
}

// NewPool returns an empty pool with an empty bucket per class and the
// default warm-up quotas.
func NewPool() *Pool {
	p := &Pool{}
	p.lazyInit()
	return p
}

func (p *Pool) lazyInit() {
	if p.stats == nil {
		p.quotas = defaultQuotas
		p.stats = newCounters()
	}
}

// WithQuota sets how many buffers Initialize keeps ready for class and
// returns the pool for chaining. Sizes that are not a class are ignored.
func (p *Pool) WithQuota(class, n int) *Pool {
	p.lazyInit()
	if i, ok := exactIndex(class); ok {
		p.quotas[i] = max(n, 0)
	}
	return p
}

// Quota returns the warm-up quota for class, or 0 if it is not a class.
func (p *Pool) Quota(class int) int {
	p.lazyInit()
	if i, ok := exactIndex(class); ok {
		return p.quotas[i]
	}
	return 0
}

// Initialize warms the pool up, topping each bucket up to its quota with
// freshly allocated buffers. Buckets already at or above quota are left alone,
// so calling it again only replaces what has been taken.
func (p *Pool) Initialize() {
	p.lazyInit()
	for i, class := range ladder {
		for len(p.buckets[i]) < p.quotas[i] {
			p.buckets[i] = append(p.buckets[i], New(class))
			p.stats.idle[i].Inc()
		}
	}
}

// Take returns an empty buffer whose capacity is the smallest class >= size.
// An idle buffer is reused when the bucket has one, otherwise a new one is
// allocated. Take reports false, and allocates nothing, when size is negative
// or larger than MaxClass; callers fall back to New for those.
func (p *Pool) Take(size int) (*Buffer, bool) {
	p.lazyInit()
	i, ok := classIndex(size)
	if !ok {
		p.stats.rejected.Inc()
		return nil, false
	}

	bucket := p.buckets[i]
	if last := len(bucket) - 1; last >= 0 {
		b := bucket[last]
		bucket[last] = nil
		p.buckets[i] = bucket[:last]
		p.stats.idle[i].Dec()
		p.stats.hits.Inc()
		return b, true
	}

	p.stats.misses.Inc()
	return New(ladder[i]), true
}

// Give hands b back to the pool. The pool takes ownership of the storage:
// b itself is left released, so a stale handle can neither touch pooled
// memory nor be given twice.
//
// The data is cleared and the storage is filed under its current capacity.
// If growth moved that capacity off the ladder the storage is dropped.
// Giving nil or an already released buffer does nothing.
func (p *Pool) Give(b *Buffer) {
	if b == nil || b.buf == nil {
		return
	}
	p.lazyInit()

	i, ok := exactIndex(len(b.buf))
	if !ok {
		b.Release()
		p.stats.drops.Inc()
		return
	}

	pooled := &Buffer{buf: b.buf}
	b.Release()
	p.buckets[i] = append(p.buckets[i], pooled)
	p.stats.idle[i].Inc()
	p.stats.returns.Inc()
}

// Idle returns the number of idle buffers held for class.
func (p *Pool) Idle(class int) int {
	if i, ok := exactIndex(class); ok {
		return len(p.buckets[i])
	}
	return 0
}
