package wikidata

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestCache_PutGet(t *testing.T) {
	cache := NewCache(t.TempDir(), ".json.gz")

	if _, ok := cache.Get("Q42"); ok {
		t.Fatal("Expected miss on empty cache")
	}

	payload := []byte(`{"id":"Q42"}`)
	if err := cache.Put("Q42", payload); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := cache.Get("Q42")
	if !ok {
		t.Fatal("Expected hit after Put")
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Round-trip mismatch: %s", got)
	}
}

func TestCache_PutCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	cache := NewCache(dir, ".info.gz")

	if err := cache.Put("Some file.tif", []byte("[]")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Some file.tif.info.gz")); err != nil {
		t.Errorf("Expected cache artifact on disk: %v", err)
	}
}

func TestCache_Overwrite(t *testing.T) {
	cache := NewCache(t.TempDir(), ".json.gz")

	if err := cache.Put("Q1", []byte("old")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := cache.Put("Q1", []byte("new")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, ok := cache.Get("Q1")
	if !ok || string(got) != "new" {
		t.Errorf("Expected replacement, got %q (ok=%v)", got, ok)
	}
}
