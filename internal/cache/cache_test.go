package cache

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	c := New[string, int](10, time.Minute)

	c.Set("key1", 42)

	value, ok := c.Get("key1")
	if !ok {
		t.Fatal("Get returned ok=false for existing key")
	}
	if value != 42 {
		t.Errorf("Get returned wrong value: got %d, want 42", value)
	}

	if _, ok := c.Get("nonexistent"); ok {
		t.Error("Get returned ok=true for non-existent key")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Stats = %+v, want 1 hit and 1 miss", stats)
	}
}

func TestExpiry(t *testing.T) {
	c := New[string, int](10, 50*time.Millisecond)
	c.Set("key1", 1)

	if _, ok := c.Get("key1"); !ok {
		t.Fatal("Initial Get failed")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("key1"); ok {
		t.Error("Get returned ok=true for expired entry")
	}
}

func TestEviction(t *testing.T) {
	c := New[int, int](2, time.Minute)
	c.Set(1, 1)
	c.Set(2, 2)
	c.Get(1)
	c.Set(3, 3)

	if _, ok := c.Get(2); ok {
		t.Error("least recently used entry was not evicted")
	}
	if _, ok := c.Get(1); !ok {
		t.Error("recently used entry was evicted")
	}
	if c.Stats().Size != 2 {
		t.Errorf("Size = %d, want 2", c.Stats().Size)
	}
	if c.Stats().Evictions < 1 {
		t.Errorf("Evictions = %d, want at least 1", c.Stats().Evictions)
	}
}

func TestStatsReportsLimits(t *testing.T) {
	c := New[string, string](5, 10*time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	stats := c.Stats()
	if stats.Size != 2 || stats.MaxSize != 5 {
		t.Errorf("Stats = %+v, want Size 2 and MaxSize 5", stats)
	}
	if stats.TTL != "10m0s" {
		t.Errorf("TTL = %q, want 10m0s", stats.TTL)
	}
}

func TestGetOrCompute(t *testing.T) {
	c := New[string, int](10, time.Minute)
	calls := 0
	compute := func() (int, error) {
		calls++
		return 7, nil
	}

	v, cached, err := c.GetOrCompute("k", compute)
	if err != nil || v != 7 || cached {
		t.Fatalf("first GetOrCompute = %d, %v, %v", v, cached, err)
	}
	v, cached, err = c.GetOrCompute("k", compute)
	if err != nil || v != 7 || !cached {
		t.Fatalf("second GetOrCompute = %d, %v, %v", v, cached, err)
	}
	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}

	boom := errors.New("boom")
	if _, _, err := c.GetOrCompute("bad", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Errorf("GetOrCompute error = %v, want boom", err)
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("failed computation was cached")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int, int](100, time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set(id*100+j, j)
				c.Get(id*100 + j)
			}
		}(i)
	}
	wg.Wait()

	if c.Stats().Size > 100 {
		t.Errorf("Size = %d, exceeds max size", c.Stats().Size)
	}
}

func TestKey(t *testing.T) {
	k1 := Key([]byte("ab"), []byte("c"))
	k2 := Key([]byte("a"), []byte("bc"))
	if k1 == k2 {
		t.Error("Key does not delimit parts")
	}
	if len(k1) != 64 {
		t.Errorf("Key length = %d, want 64", len(k1))
	}
	if Key([]byte("x")) != Key([]byte("x")) {
		t.Error("Key is not deterministic")
	}
}
