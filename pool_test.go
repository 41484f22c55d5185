package mbuf

import (
	"bytes"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// --- Pool Test Suite ---

type PoolTestSuite struct {
	suite.Suite
	pool *Pool
}

// SetupTest runs before each test in the suite, ensuring a clean state.
func (s *PoolTestSuite) SetupTest() {
	s.pool = NewPool()
	s.pool.Initialize()
}

func (s *PoolTestSuite) TestInitialize() {
	want := map[int]int{Class1K: 100, Class2K: 100, Class4K: 20, Class8K: 10, Class16K: 5, Class32K: 2}
	for class, n := range want {
		s.Assert().Equal(n, s.pool.Idle(class), "class %d", class)
		s.Assert().Equal(n, s.pool.Quota(class), "class %d", class)
	}
	for i, bucket := range s.pool.buckets {
		for _, b := range bucket {
			s.Require().Equal(ladder[i], b.Cap())
			s.Require().Zero(b.Len())
		}
	}

	s.T().Run("TopsUpOnly", func(t *testing.T) {
		b, ok := s.pool.Take(Class32K)
		require.True(t, ok)
		require.Equal(t, 1, s.pool.Idle(Class32K))

		s.pool.Initialize()
		assert.Equal(t, 2, s.pool.Idle(Class32K))
		assert.Equal(t, 100, s.pool.Idle(Class1K))

		s.pool.Give(b)
		assert.Equal(t, 3, s.pool.Idle(Class32K), "a returned buffer may exceed the quota")
	})
}

func (s *PoolTestSuite) TestTakeResolvesClass() {
	cases := []struct {
		size  int
		class int
	}{
		{0, Class1K},
		{1, Class1K},
		{1023, Class1K},
		{1024, Class1K},
		{1025, Class2K},
		{2048, Class2K},
		{4000, Class4K},
		{8192, Class8K},
		{8193, Class16K},
		{32767, Class32K},
		{32768, Class32K},
	}
	for _, c := range cases {
		b, ok := s.pool.Take(c.size)
		s.Require().True(ok, "size %d", c.size)
		s.Assert().Equal(c.class, b.Cap(), "size %d", c.size)
		s.Assert().Zero(b.Len())

		class, ok := ClassFor(c.size)
		s.Assert().True(ok)
		s.Assert().Equal(c.class, class)
	}
}

func (s *PoolTestSuite) TestTakeRejectsUnsupportedSizes() {
	for _, size := range []int{MaxClass + 1, 1 << 20, -1} {
		b, ok := s.pool.Take(size)
		s.Assert().False(ok, "size %d", size)
		s.Assert().Nil(b)

		_, ok = ClassFor(size)
		s.Assert().False(ok)
	}
	s.Assert().EqualValues(3, s.pool.Stats().Rejected)
}

func (s *PoolTestSuite) TestTakeIsLIFO() {
	a, _ := s.pool.Take(Class4K)
	b, _ := s.pool.Take(Class4K)
	aData, bData := unsafe.SliceData(a.buf), unsafe.SliceData(b.buf)

	s.pool.Give(a)
	s.pool.Give(b)

	got, ok := s.pool.Take(Class4K)
	s.Require().True(ok)
	s.Assert().Same(bData, unsafe.SliceData(got.buf))
	got, ok = s.pool.Take(Class4K)
	s.Require().True(ok)
	s.Assert().Same(aData, unsafe.SliceData(got.buf))
}

func (s *PoolTestSuite) TestMissAllocates() {
	for range 2 {
		_, ok := s.pool.Take(Class32K)
		s.Require().True(ok)
	}
	s.Require().Zero(s.pool.Idle(Class32K))

	b, ok := s.pool.Take(Class32K)
	s.Require().True(ok, "an empty bucket is not an error")
	s.Assert().Equal(Class32K, b.Cap())

	st := s.pool.Stats()
	s.Assert().EqualValues(2, st.Hits)
	s.Assert().EqualValues(1, st.Misses)
}

func (s *PoolTestSuite) TestGiveClearsAndTransfersOwnership() {
	b, _ := s.pool.Take(100)
	s.Require().NoError(b.Append(hello))
	idle := s.pool.Idle(Class1K)

	s.pool.Give(b)
	s.Assert().Equal(idle+1, s.pool.Idle(Class1K))
	s.Assert().True(b.Released(), "the giver's handle no longer owns the storage")
	s.Assert().ErrorIs(b.Append(hello), ErrReleased)

	s.pool.Give(b)
	s.Assert().Equal(idle+1, s.pool.Idle(Class1K), "giving twice files the storage once")

	again, ok := s.pool.Take(100)
	s.Require().True(ok)
	s.Assert().Equal(Class1K, again.Cap())
	s.Assert().Empty(again.Data(), "pooled buffers come back cleared")
	s.Assert().Zero(again.Pos())

	s.pool.Give(nil)
	s.Assert().EqualValues(1, s.pool.Stats().Returns)
}

func (s *PoolTestSuite) TestGiveFilesByCurrentCapacity() {
	s.T().Run("GrowthOntoTheLadder", func(t *testing.T) {
		b, _ := s.pool.Take(1000)
		require.NoError(t, b.Append(bytes.Repeat([]byte{'a'}, Class1K)))
		require.Equal(t, Class1K, b.Cap())
		require.NoError(t, b.Append(bytes.Repeat([]byte{'b'}, Class1K)))
		require.Equal(t, Class2K, b.Cap())

		idle := s.pool.Idle(Class2K)
		s.pool.Give(b)
		assert.Equal(t, idle+1, s.pool.Idle(Class2K))
	})

	s.T().Run("GrowthOffTheLadder", func(t *testing.T) {
		b, _ := s.pool.Take(Class1K)
		require.NoError(t, b.Append(make([]byte, Class1K+1)))
		require.Equal(t, 2*Class1K+1, b.Cap())

		before := s.pool.Stats()
		s.pool.Give(b)
		after := s.pool.Stats()

		assert.True(t, b.Released())
		assert.Equal(t, before.Idle, after.Idle)
		assert.Equal(t, before.Drops+1, after.Drops)
	})

	s.T().Run("ForeignBuffer", func(t *testing.T) {
		idle := s.pool.Idle(Class8K)
		s.pool.Give(New(Class8K))
		assert.Equal(t, idle+1, s.pool.Idle(Class8K))
		s.pool.Give(New(5000))
		assert.Equal(t, idle+1, s.pool.Idle(Class8K))
	})
}

func (s *PoolTestSuite) TestRoundTrip() {
	buf1, ok := s.pool.Take(1024)
	s.Require().True(ok)
	buf2, ok := s.pool.Take(2048)
	s.Require().True(ok)
	for _, size := range []int{4096, 8192, 16384} {
		_, ok := s.pool.Take(size)
		s.Require().True(ok)
	}

	s.pool.Give(buf1)
	s.pool.Give(buf2)

	buf6, ok := s.pool.Take(1023)
	s.Require().True(ok)
	s.Assert().Equal(Class1K, buf6.Cap())
	s.Assert().Equal([]byte{}, buf6.Data())
	s.Require().NoError(buf6.Append(hello))
	s.Assert().Equal(hello, buf6.Data())
}

func (s *PoolTestSuite) TestStats() {
	st := s.pool.Stats()
	s.Assert().Equal([NumClasses]int64{100, 100, 20, 10, 5, 2}, st.Idle)
	s.Assert().Zero(st.HitRatio())

	b, _ := s.pool.Take(10)
	s.pool.Give(b)
	for range 3 {
		_, _ = s.pool.Take(Class32K)
	}

	st = s.pool.Stats()
	s.Assert().EqualValues(3, st.Hits)
	s.Assert().EqualValues(1, st.Misses)
	s.Assert().EqualValues(1, st.Returns)
	s.Assert().InDelta(0.75, st.HitRatio(), 1e-9)
	s.Assert().Equal([NumClasses]int64{100, 100, 20, 10, 5, 0}, st.Idle)
}

// TestPool runs the PoolTestSuite.
func TestPool(t *testing.T) {
	suite.Run(t, new(PoolTestSuite))
}

// --- Standalone Pool Tests ---

func TestPool_Uninitialized(t *testing.T) {
	p := NewPool()
	for _, class := range Classes() {
		assert.Zero(t, p.Idle(class))
	}

	b, ok := p.Take(Class2K)
	require.True(t, ok)
	assert.Equal(t, Class2K, b.Cap())
	assert.EqualValues(t, 1, p.Stats().Misses)
}

func TestPool_ZeroValue(t *testing.T) {
	var p Pool
	assert.Equal(t, Stats{}, p.Stats())
	assert.Zero(t, p.Idle(Class1K))
	assert.Equal(t, 100, p.Quota(Class1K))

	b, ok := p.Take(10)
	require.True(t, ok)
	assert.Equal(t, Class1K, b.Cap())
	p.Give(b)
	assert.Equal(t, 1, p.Idle(Class1K))

	st := p.Stats()
	assert.EqualValues(t, 1, st.Misses)
	assert.EqualValues(t, 1, st.Returns)
	assert.EqualValues(t, 1, st.Idle[0])

	var q Pool
	q.WithQuota(Class32K, 1).Initialize()
	assert.Equal(t, 1, q.Idle(Class32K))
	assert.Equal(t, 100, q.Idle(Class1K), "unset quotas keep their defaults")
}

func TestPool_WithQuota(t *testing.T) {
	p := NewPool().
		WithQuota(Class4K, 3).
		WithQuota(Class1K, -5).
		WithQuota(999, 7)
	p.Initialize()

	assert.Equal(t, 3, p.Idle(Class4K))
	assert.Zero(t, p.Idle(Class1K))
	assert.Equal(t, 100, p.Idle(Class2K))
	assert.Zero(t, p.Quota(999))
	assert.Zero(t, p.Idle(999))
}

func TestClasses(t *testing.T) {
	classes := Classes()
	assert.Equal(t, [NumClasses]int{1024, 2048, 4096, 8192, 16384, 32768}, classes)

	classes[0] = 1
	assert.Equal(t, Class1K, Classes()[0], "the ladder is not mutable through Classes")
}

func TestPool_StatsReadableConcurrently(t *testing.T) {
	p := NewPool()
	p.Initialize()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				st := p.Stats()
				assert.GreaterOrEqual(t, st.Hits+st.Misses, int64(0))
			}
		}
	}()

	for i := range 1000 {
		b, ok := p.Take(i * 32)
		require.True(t, ok)
		require.NoError(t, b.Append(hello))
		p.Give(b)
	}
	close(done)
	wg.Wait()

	st := p.Stats()
	assert.EqualValues(t, 1000, st.Hits+st.Misses)
	assert.EqualValues(t, 1000, st.Returns)
}
