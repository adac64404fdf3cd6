package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestIsAllowed_RespectsDisallow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
	}))
	defer server.Close()

	checker := NewRobotsChecker("test-agent", 5*time.Second)
	if !checker.IsAllowed(context.Background(), server.URL+"/public/feed.txt") {
		t.Error("Expected public path to be allowed")
	}
	if checker.IsAllowed(context.Background(), server.URL+"/private/feed.txt") {
		t.Error("Expected private path to be disallowed")
	}
}

func TestIsAllowed_CachesPerHost(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "User-agent: *\nAllow: /\n")
	}))
	defer server.Close()

	checker := NewRobotsChecker("test-agent", 5*time.Second)
	checker.IsAllowed(context.Background(), server.URL+"/a")
	checker.IsAllowed(context.Background(), server.URL+"/b")
	if hits.Load() != 1 {
		t.Errorf("Expected robots.txt fetched once per host, got %d", hits.Load())
	}
}

func TestIsAllowed_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := NewRobotsChecker("test-agent", 5*time.Second)
	if !checker.IsAllowed(context.Background(), server.URL+"/feed.txt") {
		t.Error("Expected missing robots.txt to allow fetches")
	}
}
