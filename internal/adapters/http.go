package adapters

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"

	"github.com/starnote/ai-gateway/internal/config"
)

// NewStreamingClient returns an HTTP client suited to long-lived streams.
// There is no overall timeout: the request context bounds the call.
func NewStreamingClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: config.DefaultDialTimeout,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConnsPerHost:   32,
			IdleConnTimeout:       config.DefaultStaleTimeout,
			TLSHandshakeTimeout:   config.DefaultDialTimeout,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			ResponseHeaderTimeout: config.DefaultServerReadTimeout * 4,
		},
	}
}

// postStream issues a JSON POST and returns the raw response.
// A transport failure wraps ErrProviderUnreachable.
func postStream(ctx context.Context, client *http.Client, provider Provider, url string, body []byte, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderUnreachable, provider, err)
	}
	return resp, nil
}

// authMissing wraps ErrProviderAuthMissing with the provider name.
func authMissing(p Provider) error {
	return fmt.Errorf("%s: %w", p, ErrProviderAuthMissing)
}
