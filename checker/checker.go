package checker

import (
	"context"
	"sync"
	"time"

	"iptv-curator/logger"
	"iptv-curator/utils/safemap"
)

// Result is the outcome of probing one URL. Latency is meaningful only
// when Valid is true; invalid results carry no latency and sort after
// every valid one.
type Result struct {
	URL     string        `json:"url"`
	Valid   bool          `json:"valid"`
	Latency time.Duration `json:"latency"`
	Reason  string        `json:"reason,omitempty"`
}

// Better reports whether r should rank before other: valid before invalid,
// then ascending latency.
func (r Result) Better(other Result) bool {
	if r.Valid != other.Valid {
		return r.Valid
	}
	if !r.Valid {
		return false
	}
	return r.Latency < other.Latency
}

type Options struct {
	Concurrency int
	Timeout     time.Duration
	MaxAttempts int
}

func (o Options) withDefaults() Options {
	if o.Concurrency < 1 {
		o.Concurrency = 10
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 1
	}
	return o
}

// Verify probes every distinct URL once under a bounded worker pool and
// returns a complete mapping covering each input URL, including failed
// ones. Probe failures are local: they produce an invalid result for that
// URL only and never abort the batch. Verify returns only after every
// submitted probe has finished.
func Verify(ctx context.Context, urls []string, prober Prober, opts Options) map[string]Result {
	opts = opts.withDefaults()

	distinct := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, url := range urls {
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		distinct = append(distinct, url)
	}

	logger.Default.Logf("Checking %d distinct stream URLs (concurrency %d, timeout %s, attempts %d)",
		len(distinct), opts.Concurrency, opts.Timeout, opts.MaxAttempts)

	// Each URL is claimed by exactly one worker, so every key of the
	// result map is written at most once.
	results := safemap.New[string, Result]()
	sem := make(chan struct{}, opts.Concurrency)
	var wg sync.WaitGroup

	for _, url := range distinct {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results.Set(u, probeWithRetry(ctx, u, prober, opts))
		}(url)
	}

	// Stage barrier: selection must not start until every probe is done.
	wg.Wait()

	out := make(map[string]Result, len(distinct))
	results.ForEach(func(url string, res Result) bool {
		out[url] = res
		return true
	})

	valid := 0
	for _, res := range out {
		if res.Valid {
			valid++
		}
	}
	logger.Default.Logf("Stream check finished: %d/%d URLs valid", valid, len(out))

	return out
}

// probeWithRetry runs the retry loop for a single URL inside its own
// worker. Retries never re-enter the pool, so peak concurrency stays
// bounded by the semaphore.
func probeWithRetry(ctx context.Context, url string, prober Prober, opts Options) Result {
	backoff := NewBackoffStrategy(500*time.Millisecond, opts.Timeout)

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			break
		}
		if attempt > 1 {
			backoff.Sleep(ctx)
			if ctx.Err() != nil {
				break
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		start := time.Now()
		err := prober.Probe(attemptCtx, url)
		latency := time.Since(start)
		cancel()

		if err == nil {
			logger.Default.Debugf("Valid stream: %s (%s)", url, latency)
			return Result{URL: url, Valid: true, Latency: latency}
		}

		lastErr = err
		if !isRetryable(err) {
			logger.Default.Debugf("Invalid stream, not retrying: %s (%v)", url, err)
			break
		}
		logger.Default.Debugf("Probe attempt %d/%d failed: %s (%v)", attempt, opts.MaxAttempts, url, err)
	}

	res := Result{URL: url, Valid: false}
	if lastErr != nil {
		res.Reason = lastErr.Error()
	} else if ctx.Err() != nil {
		res.Reason = ctx.Err().Error()
	}
	return res
}
