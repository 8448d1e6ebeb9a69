package unlock

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestHTTPTransport_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("expected form content type, got %s", ct)
		}
		r.ParseForm()
		if r.PostForm.Get("product") != "test-synth" {
			t.Errorf("expected product test-synth, got %s", r.PostForm.Get("product"))
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	tr := NewHTTPTransport()
	code, body, err := tr.Send(context.Background(), server.URL, url.Values{"product": {"test-synth"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
	if string(body) != "ok" {
		t.Errorf("expected body ok, got %q", body)
	}
}

func TestHTTPTransport_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tr := NewHTTPTransport(WithTimeout(50 * time.Millisecond))
	if _, _, err := tr.Send(context.Background(), server.URL, nil); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestHTTPTransport_CustomUserAgent(t *testing.T) {
	var receivedUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tr := NewHTTPTransport(WithUserAgent("my-synth/2.0"))
	tr.Send(context.Background(), server.URL, nil)

	if receivedUA != "my-synth/2.0" {
		t.Errorf("expected User-Agent 'my-synth/2.0', got %q", receivedUA)
	}
}
