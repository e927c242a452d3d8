package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/oukeidos/bisrt/internal/version"
)

const (
	// DefaultTimeout bounds one translation request, including a whole batch
	// reply from an LLM backend.
	DefaultTimeout = 3 * time.Minute
	// MaxResponseBytes caps response bodies read into memory.
	MaxResponseBytes = 8 * 1024 * 1024

	MaxIdleConns          = 20
	MaxIdleConnsPerHost   = 4
	IdleConnTimeout       = 90 * time.Second
	TLSHandshakeTimeout   = 30 * time.Second
	ExpectContinueTimeout = 2 * time.Second
)

// ErrBodyTooLarge is wrapped into DoAndRead errors when a response exceeds
// MaxResponseBytes.
var ErrBodyTooLarge = errors.New("response body too large")

var (
	defaultClient     *http.Client
	defaultClientOnce sync.Once
	overrideClient    *http.Client
)

// NewClient returns an http.Client that honours HTTPS_PROXY/NO_PROXY and
// keeps a small idle pool per translation host.
func NewClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          MaxIdleConns,
		MaxIdleConnsPerHost:   MaxIdleConnsPerHost,
		IdleConnTimeout:       IdleConnTimeout,
		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ExpectContinueTimeout: ExpectContinueTimeout,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// GetDefaultClient returns the process-wide client shared by the HTTP backends.
func GetDefaultClient() *http.Client {
	if overrideClient != nil {
		return overrideClient
	}
	defaultClientOnce.Do(func() {
		defaultClient = NewClient(DefaultTimeout)
	})
	return defaultClient
}

// SetDefaultClientForTesting overrides the shared client and returns a restore func.
func SetDefaultClientForTesting(client *http.Client) func() {
	prev := overrideClient
	overrideClient = client
	return func() {
		overrideClient = prev
	}
}

// UserAgent identifies bisrt to translation services.
func UserAgent() string {
	return version.Name + "/" + version.Version
}

// NewJSONRequest builds a POST with payload encoded as the JSON body.
func NewJSONRequest(ctx context.Context, endpoint string, payload any) (*http.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// NewFormRequest builds a url-encoded POST.
func NewFormRequest(ctx context.Context, endpoint string, form url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

// DoAndRead performs req, reads at most MaxResponseBytes of the body and
// always closes it. A missing User-Agent is filled in.
func DoAndRead(client *http.Client, req *http.Request) ([]byte, *http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent())
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.ContentLength > MaxResponseBytes {
		return nil, resp, fmt.Errorf("%w (limit %d bytes)", ErrBodyTooLarge, MaxResponseBytes)
	}

	limited := &io.LimitedReader{R: resp.Body, N: MaxResponseBytes + 1}
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, resp, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > MaxResponseBytes {
		return nil, resp, fmt.Errorf("%w (limit %d bytes)", ErrBodyTooLarge, MaxResponseBytes)
	}

	return body, resp, nil
}
