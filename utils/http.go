package utils

import (
	"context"
	"net/http"
	"time"
)

// HTTPClient is shared by the collector, the EPG fetcher and the transport
// prober. Redirects are followed; the timeout bounds a whole download.
var HTTPClient = &http.Client{
	Timeout: 120 * time.Second,
}

func CustomHttpRequest(ctx context.Context, method string, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", GetEnv("USER_AGENT"))
	req.Header.Set("Accept", "*/*")

	resp, err := HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}
