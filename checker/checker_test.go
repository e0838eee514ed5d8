package checker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProber routes each URL to a scripted response and counts attempts.
type fakeProber struct {
	mu       sync.Mutex
	attempts map[string]int
	respond  func(url string, attempt int) error
	delay    time.Duration
}

func newFakeProber(respond func(url string, attempt int) error) *fakeProber {
	return &fakeProber{attempts: make(map[string]int), respond: respond}
}

func (p *fakeProber) Probe(ctx context.Context, url string) error {
	p.mu.Lock()
	p.attempts[url]++
	attempt := p.attempts[url]
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.delay):
		}
	}
	return p.respond(url, attempt)
}

func (p *fakeProber) attemptCount(url string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts[url]
}

func TestVerifyCoversEveryURL(t *testing.T) {
	prober := newFakeProber(func(url string, _ int) error {
		if url == "http://bad/stream" {
			return errors.New("connection refused")
		}
		return nil
	})

	urls := []string{"http://good/1", "http://bad/stream", "http://good/2"}
	results := Verify(context.Background(), urls, prober, Options{Concurrency: 4})

	require.Len(t, results, 3)
	assert.True(t, results["http://good/1"].Valid)
	assert.True(t, results["http://good/2"].Valid)

	bad := results["http://bad/stream"]
	assert.False(t, bad.Valid)
	assert.Contains(t, bad.Reason, "connection refused")
	assert.Zero(t, bad.Latency)
}

func TestVerifyDeduplicatesInput(t *testing.T) {
	prober := newFakeProber(func(string, int) error { return nil })

	results := Verify(context.Background(), []string{"http://a/1", "http://a/1", "http://a/1"}, prober, Options{})
	require.Len(t, results, 1)
	assert.Equal(t, 1, prober.attemptCount("http://a/1"))
}

func TestVerifyRetriesTransientFailures(t *testing.T) {
	prober := newFakeProber(func(url string, attempt int) error {
		if attempt == 1 {
			return errors.New("timeout")
		}
		return nil
	})

	results := Verify(context.Background(), []string{"http://flaky/1"}, prober,
		Options{MaxAttempts: 3, Timeout: time.Second})

	assert.True(t, results["http://flaky/1"].Valid)
	assert.Equal(t, 2, prober.attemptCount("http://flaky/1"))
}

func TestVerifyDoesNotRetryTerminalFailures(t *testing.T) {
	prober := newFakeProber(func(string, int) error { return ErrNoVideoStream })

	results := Verify(context.Background(), []string{"http://radio/1"}, prober,
		Options{MaxAttempts: 3, Timeout: time.Second})

	res := results["http://radio/1"]
	assert.False(t, res.Valid)
	assert.Contains(t, res.Reason, "no video stream")
	assert.Equal(t, 1, prober.attemptCount("http://radio/1"))
}

func TestVerifyBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	prober := newFakeProber(func(string, int) error {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return nil
	})

	var urls []string
	for i := 0; i < 30; i++ {
		urls = append(urls, fmt.Sprintf("http://host/%d", i))
	}

	Verify(context.Background(), urls, prober, Options{Concurrency: 3})
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestVerifyTimesOutSlowProbes(t *testing.T) {
	prober := newFakeProber(func(string, int) error { return nil })
	prober.delay = time.Second

	start := time.Now()
	results := Verify(context.Background(), []string{"http://slow/1"}, prober,
		Options{Timeout: 50 * time.Millisecond, MaxAttempts: 1})

	res := results["http://slow/1"]
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Reason)
	assert.Less(t, time.Since(start), time.Second)
}

func TestVerifyHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prober := newFakeProber(func(string, int) error { return nil })
	results := Verify(ctx, []string{"http://a/1"}, prober, Options{})

	assert.False(t, results["http://a/1"].Valid)
	assert.Equal(t, 0, prober.attemptCount("http://a/1"))
}

func TestResultBetter(t *testing.T) {
	valid := Result{Valid: true, Latency: 100 * time.Millisecond}
	faster := Result{Valid: true, Latency: 50 * time.Millisecond}
	invalid := Result{Valid: false}

	assert.True(t, valid.Better(invalid))
	assert.False(t, invalid.Better(valid))
	assert.True(t, faster.Better(valid))
	assert.False(t, valid.Better(faster))
	assert.False(t, invalid.Better(invalid))
}

func TestBackoffDoublesUpToMax(t *testing.T) {
	b := NewBackoffStrategy(100*time.Millisecond, 350*time.Millisecond)

	assert.Equal(t, 100*time.Millisecond, b.Next())
	assert.Equal(t, 200*time.Millisecond, b.Next())
	assert.Equal(t, 350*time.Millisecond, b.Next())
	assert.Equal(t, 350*time.Millisecond, b.Next())

	b.Reset()
	assert.Equal(t, 100*time.Millisecond, b.Next())
}
