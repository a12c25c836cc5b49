package kugou

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestSearchPath(t *testing.T) {
	got := SearchPath("ABC 123")
	if got != "/search/lyric?hash=ABC+123" {
		t.Errorf("unexpected search path %q", got)
	}
}

func TestLyricPath(t *testing.T) {
	got := LyricPath("99", "k&y")
	want := "/lyric?accesskey=k%26y&decode=true&id=99"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestIDAcceptsStringsAndNumbers(t *testing.T) {
	cases := []struct {
		name string
		body string
		want ID
	}{
		{"string", `{"id":"123"}`, "123"},
		{"number", `{"id":456}`, "456"},
		{"null", `{"id":null}`, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var c Candidate
			if err := json.Unmarshal([]byte(tc.body), &c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.ID != tc.want {
				t.Errorf("expected %q, got %q", tc.want, c.ID)
			}
		})
	}
}

func TestNewClientValidatesURL(t *testing.T) {
	if _, err := NewClient("not a url", 0); err == nil {
		t.Error("expected error for url without scheme")
	}

	c, err := NewClient("", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("expected default base url, got %s", c.BaseURL())
	}
}

func TestClientSearchAndLyric(t *testing.T) {
	var seen []*url.URL
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL)
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing user agent")
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/search/lyric":
			w.Write([]byte(`{"status":200,"candidates":[{"id":7,"accesskey":"key","song":"s","singer":"a"}]}`))
		case "/api/lyric":
			w.Write([]byte(`{"status":200,"fmt":"krc","decodeContent":"[0,100]x"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c, err := NewClient(server.URL+"/api/", time.Second)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	search, err := c.Search(context.Background(), "H")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(search.Candidates) != 1 || search.Candidates[0].ID != "7" {
		t.Fatalf("unexpected candidates: %+v", search.Candidates)
	}

	lyric, err := c.Lyric(context.Background(), string(search.Candidates[0].ID), search.Candidates[0].AccessKey)
	if err != nil {
		t.Fatalf("lyric failed: %v", err)
	}
	if lyric.DecodeContent != "[0,100]x" || lyric.Format != "krc" {
		t.Errorf("unexpected lyric response: %+v", lyric)
	}

	if len(seen) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(seen))
	}
	if seen[0].Query().Get("hash") != "H" {
		t.Errorf("search query lost the hash: %s", seen[0].RawQuery)
	}
	if seen[1].Query().Get("decode") != "true" || seen[1].Query().Get("id") != "7" {
		t.Errorf("unexpected lyric query: %s", seen[1].RawQuery)
	}
}

func TestClientGetRejectsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	c, err := NewClient(server.URL, time.Second)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	var out SearchResponse
	err = c.Get(context.Background(), SearchPath("x"), &out)
	if !errors.Is(err, ErrStatus) {
		t.Errorf("expected ErrStatus, got %v", err)
	}
}

func TestClientGetRejectsBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":`))
	}))
	defer server.Close()

	c, err := NewClient(server.URL, time.Second)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	var out SearchResponse
	if err := c.Get(context.Background(), SearchPath("x"), &out); err == nil {
		t.Error("expected decode error")
	}
}

func TestClientGetHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	c, err := NewClient(server.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var out SearchResponse
	err = c.Get(ctx, SearchPath("x"), &out)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
