package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestDefaultClient_Settings(t *testing.T) {
	client := GetDefaultClient()
	if client.Timeout != 3*time.Minute {
		t.Errorf("Timeout = %v, want 3m", client.Timeout)
	}
	if GetDefaultClient() != client {
		t.Errorf("expected a shared client instance")
	}

	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("Transport is %T, want *http.Transport", client.Transport)
	}
	if transport.Proxy == nil ||
		reflect.ValueOf(transport.Proxy).Pointer() != reflect.ValueOf(http.ProxyFromEnvironment).Pointer() {
		t.Errorf("expected proxy settings to come from the environment")
	}
	if transport.MaxIdleConnsPerHost != MaxIdleConnsPerHost || transport.TLSHandshakeTimeout != TLSHandshakeTimeout {
		t.Errorf("unexpected pool settings: per-host=%d tls=%v", transport.MaxIdleConnsPerHost, transport.TLSHandshakeTimeout)
	}
}

func TestSetDefaultClientForTesting(t *testing.T) {
	custom := &http.Client{Timeout: time.Second}
	restore := SetDefaultClientForTesting(custom)
	if GetDefaultClient() != custom {
		t.Fatalf("expected overridden client")
	}
	restore()
	if GetDefaultClient() == custom {
		t.Fatalf("restore did not reinstate the shared client")
	}
}

func TestNewJSONRequest(t *testing.T) {
	var seen map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %q", r.Method, r.Header.Get("Content-Type"))
		}
		if r.Header.Get("User-Agent") != UserAgent() {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &seen); err != nil {
			t.Errorf("bad body: %v", err)
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	req, err := NewJSONRequest(context.Background(), server.URL, map[string]any{"input": []string{"Hallo", "Welt"}})
	if err != nil {
		t.Fatalf("NewJSONRequest: %v", err)
	}
	body, resp, err := DoAndRead(GetDefaultClient(), req)
	if err != nil {
		t.Fatalf("DoAndRead: %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(body) != `{"ok":true}` {
		t.Fatalf("unexpected response %d %q", resp.StatusCode, body)
	}
	if in, _ := seen["input"].([]any); len(in) != 2 {
		t.Fatalf("server saw %v", seen)
	}

	if _, err := NewJSONRequest(context.Background(), server.URL, func() {}); err == nil {
		t.Fatalf("expected marshal error")
	}
}

func TestNewFormRequest_KeepsCallerUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if r.PostForm.Get("text") != "Tschüss" {
			t.Errorf("form = %v", r.PostForm)
		}
		if r.Header.Get("User-Agent") != "custom/1" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
	}))
	defer server.Close()

	req, err := NewFormRequest(context.Background(), server.URL, url.Values{"text": {"Tschüss"}})
	if err != nil {
		t.Fatalf("NewFormRequest: %v", err)
	}
	req.Header.Set("User-Agent", "custom/1")
	if _, _, err := DoAndRead(GetDefaultClient(), req); err != nil {
		t.Fatalf("DoAndRead: %v", err)
	}
}

func TestDoAndRead_BodyCap(t *testing.T) {
	tests := []struct {
		name          string
		size          int
		contentLength bool
		wantErr       bool
	}{
		{"at limit", MaxResponseBytes, false, false},
		{"declared too large", MaxResponseBytes + 1, true, true},
		{"streamed too large", MaxResponseBytes + 1, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.contentLength {
					w.Header().Set("Content-Length", fmt.Sprint(tt.size))
				} else {
					w.(http.Flusher).Flush()
				}
				w.Write(make([]byte, tt.size))
			}))
			defer server.Close()

			req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
			body, _, err := DoAndRead(GetDefaultClient(), req)
			if tt.wantErr {
				if !errors.Is(err, ErrBodyTooLarge) {
					t.Fatalf("expected ErrBodyTooLarge, got %v", err)
				}
				return
			}
			if err != nil || len(body) != tt.size {
				t.Fatalf("DoAndRead = %d bytes, %v", len(body), err)
			}
		})
	}
}

func TestDoAndRead_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	req, _ := http.NewRequest(http.MethodGet, addr, nil)
	if _, _, err := DoAndRead(GetDefaultClient(), req); err == nil || strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected connection error, got %v", err)
	}
}
