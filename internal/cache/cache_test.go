package cache

import (
	"context"
	"testing"
	"time"

	"pathmind/pkg/common"
)

func TestKeyDependsOnParams(t *testing.T) {
	defaults := common.DefaultParams()
	tightened := defaults
	tightened.PotencyThreshold = 7.0

	if Key("CHEMBL25", defaults) == Key("CHEMBL25", tightened) {
		t.Fatalf("expected different keys for different params")
	}
	if Key("CHEMBL25", defaults) != Key("CHEMBL25", defaults) {
		t.Fatalf("expected stable keys")
	}
	if Key("CHEMBL25", defaults) == Key("CHEMBL26", defaults) {
		t.Fatalf("expected different keys for different compounds")
	}
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	memoryCache := NewMemoryCache()
	ctx := context.Background()

	if _, ok := memoryCache.Get(ctx, "k"); ok {
		t.Fatalf("expected miss on empty cache")
	}

	memoryCache.Set(ctx, "k", []byte("payload"), time.Minute)
	payload, ok := memoryCache.Get(ctx, "k")
	if !ok || string(payload) != "payload" {
		t.Fatalf("expected hit, got %q ok=%v", payload, ok)
	}

	stats := memoryCache.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	memoryCache := NewMemoryCache()
	current := time.Now()
	memoryCache.now = func() time.Time { return current }
	ctx := context.Background()

	memoryCache.Set(ctx, "k", []byte("payload"), time.Minute)
	current = current.Add(2 * time.Minute)

	if _, ok := memoryCache.Get(ctx, "k"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestMemoryCacheCopiesPayload(t *testing.T) {
	memoryCache := NewMemoryCache()
	ctx := context.Background()

	payload := []byte("payload")
	memoryCache.Set(ctx, "k", payload, time.Minute)
	payload[0] = 'X'

	stored, ok := memoryCache.Get(ctx, "k")
	if !ok || string(stored) != "payload" {
		t.Fatalf("expected stored copy to be untouched, got %q", stored)
	}
}
