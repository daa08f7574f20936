package genai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGenerateContent_Success(t *testing.T) {
	var gotPath, gotKey, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hello "},{"text":"there"}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "gemini-pro", 5*time.Second, 0, 0)
	got, err := c.GenerateContent(context.Background(), "key123", "hi")
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if got != "Hello there" {
		t.Fatalf("answer = %q", got)
	}
	if gotPath != "/v1beta/models/gemini-pro:generateContent" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKey != "key123" {
		t.Fatalf("api key header = %q", gotKey)
	}
	if !strings.Contains(gotBody, `"text":"hi"`) {
		t.Fatalf("request body = %q", gotBody)
	}
}

func TestGenerateContent_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"API key invalid"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "gemini-pro", 5*time.Second, 0, 0)
	_, err := c.GenerateContent(context.Background(), "bad", "hi")

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Status != http.StatusForbidden {
		t.Fatalf("status = %d", ue.Status)
	}
	if !strings.Contains(ue.Body, "API key invalid") {
		t.Fatalf("body = %q", ue.Body)
	}
}

func TestGenerateContent_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "gemini-pro", 5*time.Second, 0, 0)
	_, err := c.GenerateContent(context.Background(), "k", "hi")

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if !strings.Contains(ue.Body, "no candidates") {
		t.Fatalf("body = %q", ue.Body)
	}
}

func TestGenerateContent_ErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"quota exhausted"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "gemini-pro", 5*time.Second, 0, 0)
	_, err := c.GenerateContent(context.Background(), "k", "hi")

	var ue *UpstreamError
	if !errors.As(err, &ue) || !strings.Contains(ue.Body, "quota exhausted") {
		t.Fatalf("expected quota error, got %v", err)
	}
}

func TestGenerateContent_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "gemini-pro", 20*time.Millisecond, 0, 0)
	_, err := c.GenerateContent(context.Background(), "k", "hi")

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError on timeout, got %v", err)
	}
	if ue.Status != 0 {
		t.Fatalf("timeout should carry no status, got %d", ue.Status)
	}
}

func TestGenerateContent_InputValidation(t *testing.T) {
	c := NewClient("http://localhost:0", "gemini-pro", time.Second, 0, 0)
	if _, err := c.GenerateContent(context.Background(), "", "hi"); err == nil {
		t.Fatalf("expected error for empty api key")
	}
	c.Model = " "
	if _, err := c.GenerateContent(context.Background(), "k", "hi"); err == nil {
		t.Fatalf("expected error for empty model")
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("", "m", 0, 2, 0)
	if c.BaseURL != DefaultBaseURL {
		t.Fatalf("BaseURL = %q", c.BaseURL)
	}
	if c.HTTPClient.Timeout != 60*time.Second {
		t.Fatalf("Timeout = %v", c.HTTPClient.Timeout)
	}
	if c.Limiter == nil {
		t.Fatalf("limiter not configured for rps > 0")
	}
	if NewClient("", "m", 0, 0, 0).Limiter != nil {
		t.Fatalf("limiter should be nil for rps = 0")
	}
}
