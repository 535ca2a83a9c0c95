package cache

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryCache_GetSetDelete(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if val, ok := c.Get(ctx, "missing"); ok || val != nil {
		t.Fatalf("Get on empty cache = %q, %v", val, ok)
	}

	value := []byte(`{"registration":"ABC123"}`)
	if err := c.Set(ctx, "k", value, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok := c.Get(ctx, "k")
	if !ok || !bytes.Equal(got, value) {
		t.Fatalf("Get() = %q, %v", got, ok)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("Get after Delete should miss")
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete of missing key error = %v", err)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	c := NewMemoryCacheWithClock(clock.Now)
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("v"), time.Minute)

	clock.Advance(59 * time.Second)
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Fatal("entry expired early")
	}

	clock.Advance(time.Second)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("entry served at its expiry instant")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, expired entry not removed", c.Len())
	}
}

func TestMemoryCache_NonPositiveTTLStoresNothing(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_ = c.Set(ctx, "zero", []byte("v"), 0)
	_ = c.Set(ctx, "negative", []byte("v"), -time.Second)

	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestMemoryCache_StoresCopy(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	value := []byte("abc")
	_ = c.Set(ctx, "k", value, time.Minute)
	value[0] = 'x'

	got, _ := c.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("Get() = %q, caller mutation leaked into cache", got)
	}
}

func TestMemoryCache_ReturnsCopy(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("abc"), time.Minute)

	first, _ := c.Get(ctx, "k")
	first[0] = 'x'

	second, ok := c.Get(ctx, "k")
	if !ok || string(second) != "abc" {
		t.Errorf("Get() = %q, %v, want \"abc\" after mutating an earlier result", second, ok)
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want error
	}{
		{"valid", "lookup:GET:0123456789abcdef", nil},
		{"empty", "", ErrInvalidKey},
		{"whitespace", "   ", ErrInvalidKey},
		{"newline", "a\nb", ErrInvalidKey},
		{"too long", string(bytes.Repeat([]byte("k"), MaxKeyLength+1)), ErrKeyTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateKey(tt.key); !errors.Is(err, tt.want) {
				t.Errorf("ValidateKey() = %v, want %v", err, tt.want)
			}
		})
	}

	if err := NewMemoryCache().Set(context.Background(), "", []byte("v"), time.Minute); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Set with empty key error = %v, want ErrInvalidKey", err)
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Set(ctx, "shared", []byte("v"), time.Minute)
			c.Get(ctx, "shared")
			_ = c.Delete(ctx, "shared")
		}()
	}
	wg.Wait()
}
