package flow

import "time"

func (s *UnitTestSuite) TestTTLCache() {
	c := NewTTL[string, string]()
	c.Set("key1", "value1", 200*time.Millisecond)
	v, ok := c.Get("key1")
	s.True(ok)
	s.Equal("value1", v)

	s.now = s.now.Add(250 * time.Millisecond)
	v, ok = c.Get("key1")
	s.False(ok)
	s.Equal("", v)
}

func (s *UnitTestSuite) TestTTLSetIfAbsent() {
	c := NewTTL[string, struct{}]()
	s.True(c.SetIfAbsent("u1", struct{}{}, time.Minute))
	s.False(c.SetIfAbsent("u1", struct{}{}, time.Minute))

	s.now = s.now.Add(2 * time.Minute)
	s.True(c.SetIfAbsent("u1", struct{}{}, time.Minute))

	c.Delete("u1")
	s.True(c.SetIfAbsent("u1", struct{}{}, time.Minute))
}

func (s *UnitTestSuite) TestTTLSweepsExpiredEntries() {
	c := NewTTL[int, int]()
	for i := 0; i < purgeAbove; i++ {
		c.Set(i, i, time.Second)
	}
	s.Equal(purgeAbove, c.Len())

	s.now = s.now.Add(time.Minute)
	c.Set(-1, -1, time.Second)
	s.Equal(1, c.Len())
}
