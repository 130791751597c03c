package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetOrFetch_CachesSuccessfulResult(t *testing.T) {
	c := New[string](time.Minute)
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		return "louvre", nil
	}

	for i := 0; i < 3; i++ {
		got, err := c.GetOrFetch(ctx, "paris", fetch)
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if got != "louvre" {
			t.Fatalf("call %d: got %q", i, got)
		}
	}
	if calls != 1 {
		t.Errorf("fetch ran %d times, want 1", calls)
	}
}

func TestGetOrFetch_SingleFlight(t *testing.T) {
	c := New[int](time.Minute)
	ctx := context.Background()

	var calls atomic.Int64
	release := make(chan struct{})
	fetch := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	const waiters = 20
	var wg sync.WaitGroup
	results := make([]int, waiters)
	errs := make([]error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrFetch(ctx, "same-key", fetch)
		}(i)
	}

	// Give all waiters time to pile onto the in-flight fetch, then let it
	// finish.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("fetch ran %d times under %d concurrent callers, want 1", got, waiters)
	}
	for i := 0; i < waiters; i++ {
		if errs[i] != nil {
			t.Fatalf("waiter %d: unexpected error: %v", i, errs[i])
		}
		if results[i] != 42 {
			t.Fatalf("waiter %d: got %d", i, results[i])
		}
	}
}

func TestGetOrFetch_AbandoningCallerDoesNotCancelFlight(t *testing.T) {
	c := New[string](time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	var fetchErr atomic.Value
	fetch := func(ctx context.Context) (string, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			fetchErr.Store(err)
			return "", err
		}
		return "louvre", nil
	}

	initCtx, cancelInit := context.WithCancel(context.Background())
	initErrs := make(chan error, 1)
	go func() {
		_, err := c.GetOrFetch(initCtx, "k", fetch)
		initErrs <- err
	}()
	<-started

	// A second waiter with a live context joins the same flight.
	waiterDone := make(chan struct{})
	var waiterVal string
	var waiterErr error
	go func() {
		defer close(waiterDone)
		waiterVal, waiterErr = c.GetOrFetch(context.Background(), "k", fetch)
	}()
	time.Sleep(50 * time.Millisecond)

	// The initiator walks away; it gets its own cancellation back.
	cancelInit()
	if err := <-initErrs; !errors.Is(err, context.Canceled) {
		t.Fatalf("initiator got %v, want context.Canceled", err)
	}

	close(release)
	<-waiterDone

	if waiterErr != nil {
		t.Fatalf("waiter got %v after initiator abandoned the flight", waiterErr)
	}
	if waiterVal != "louvre" {
		t.Fatalf("waiter got %q", waiterVal)
	}
	if err := fetchErr.Load(); err != nil {
		t.Errorf("fetch context was canceled: %v", err)
	}

	// The completed fetch was stored despite the abandoned initiator.
	calls := 0
	got, err := c.GetOrFetch(context.Background(), "k", func(context.Context) (string, error) {
		calls++
		return "refetched", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "louvre" || calls != 0 {
		t.Errorf("got %q with %d extra fetches, want cached louvre", got, calls)
	}
}

func TestGetOrFetch_DistinctKeysDoNotCoalesce(t *testing.T) {
	c := New[string](time.Minute)
	ctx := context.Background()

	var calls atomic.Int64
	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		return "v", nil
	}

	var wg sync.WaitGroup
	for _, key := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			if _, err := c.GetOrFetch(ctx, key, fetch); err != nil {
				t.Errorf("key %s: %v", key, err)
			}
		}(key)
	}
	wg.Wait()

	if got := calls.Load(); got != 3 {
		t.Errorf("fetch ran %d times for 3 distinct keys, want 3", got)
	}
}

func TestGetOrFetch_TTLExpiry(t *testing.T) {
	c := New[string](time.Hour)

	current := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return current }

	ctx := context.Background()
	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		return "v", nil
	}

	if _, err := c.GetOrFetch(ctx, "k", fetch); err != nil {
		t.Fatal(err)
	}

	// Just inside the TTL: served from cache.
	current = current.Add(time.Hour - time.Second)
	if _, err := c.GetOrFetch(ctx, "k", fetch); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("fetch ran %d times before expiry, want 1", calls)
	}

	// Just past the TTL: entry is dead, a fresh fetch runs.
	current = current.Add(2 * time.Second)
	if _, err := c.GetOrFetch(ctx, "k", fetch); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("fetch ran %d times after expiry, want 2", calls)
	}
}

func TestGetOrFetch_ExpiredEntryEvictedLazily(t *testing.T) {
	c := New[string](time.Minute)

	current := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return current }

	ctx := context.Background()
	if _, err := c.GetOrFetch(ctx, "k", func(context.Context) (string, error) { return "v", nil }); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}

	// The entry stays in the map after expiry until its key is looked up
	// again.
	current = current.Add(2 * time.Minute)
	if c.Len() != 1 {
		t.Fatalf("Len = %d before lookup, want 1", c.Len())
	}
	if _, err := c.GetOrFetch(ctx, "k", func(context.Context) (string, error) { return "v2", nil }); err != nil {
		t.Fatal(err)
	}
	got, err := c.GetOrFetch(ctx, "k", func(context.Context) (string, error) { return "v3", nil })
	if err != nil {
		t.Fatal(err)
	}
	if got != "v2" {
		t.Errorf("got %q after refetch, want v2", got)
	}
}

func TestGetOrFetch_FailureNotMemoized(t *testing.T) {
	c := New[string](time.Minute)
	ctx := context.Background()

	boom := errors.New("upstream down")
	calls := 0
	failing := func(context.Context) (string, error) {
		calls++
		return "", boom
	}

	if _, err := c.GetOrFetch(ctx, "k", failing); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("failure was stored, Len = %d", c.Len())
	}

	// Next call hits the network again and can succeed.
	got, err := c.GetOrFetch(ctx, "k", func(context.Context) (string, error) { return "ok", nil })
	if err != nil {
		t.Fatal(err)
	}
	if got != "ok" {
		t.Errorf("got %q, want ok", got)
	}
	if calls != 1 {
		t.Errorf("failing fetch ran %d times, want 1", calls)
	}
}

func TestGetOrFetch_FailureSharedByAllWaiters(t *testing.T) {
	c := New[int](time.Minute)
	ctx := context.Background()

	boom := errors.New("quota exceeded")
	var calls atomic.Int64
	release := make(chan struct{})
	fetch := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 0, boom
	}

	const waiters = 8
	var wg sync.WaitGroup
	errs := make([]error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.GetOrFetch(ctx, "k", fetch)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("fetch ran %d times, want 1", got)
	}
	for i, err := range errs {
		if !errors.Is(err, boom) {
			t.Errorf("waiter %d: got %v, want boom", i, err)
		}
	}
}
