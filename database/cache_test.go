package database

import (
	"testing"
	"time"
)

func TestQueryCacheTTL(t *testing.T) {
	cache, err := NewQueryCache(30 * time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	cache.now = func() time.Time { return now }

	result := &QueryResult{DatabaseID: "db1", Query: "SELECT 1", RowCount: 1}
	cache.Put("db1", "SELECT 1", result)

	if _, hit := cache.Get("db1", "SELECT 2"); hit {
		t.Error("different query should miss")
	}
	if _, hit := cache.Get("db2", "SELECT 1"); hit {
		t.Error("different database should miss")
	}

	got, hit := cache.Get("db1", "SELECT 1")
	if !hit || got.RowCount != 1 {
		t.Fatalf("expected fresh hit, got hit=%v result=%+v", hit, got)
	}

	now = now.Add(31 * time.Minute)
	if _, hit := cache.Get("db1", "SELECT 1"); hit {
		t.Error("entry should expire after TTL")
	}
}

func TestQueryCacheGetReturnsIsolatedCopy(t *testing.T) {
	cache, err := NewQueryCache(30 * time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	cache.Put("db1", "SELECT region FROM sales", &QueryResult{
		DatabaseID: "db1",
		Purpose:    "original purpose",
		Tables:     []string{"sales"},
	})

	first, hit := cache.Get("db1", "SELECT region FROM sales")
	if !hit {
		t.Fatal("expected hit")
	}
	// Decorate the hit the way the executor does for its intent.
	first.FromCache = true
	first.Purpose = "second intent purpose"
	first.Tables = []string{"other"}

	second, hit := cache.Get("db1", "SELECT region FROM sales")
	if !hit {
		t.Fatal("expected second hit")
	}
	if second.FromCache {
		t.Error("stored entry picked up FromCache from a previous caller")
	}
	if second.Purpose != "original purpose" {
		t.Errorf("stored Purpose = %q, want original", second.Purpose)
	}
	if len(second.Tables) != 1 || second.Tables[0] != "sales" {
		t.Errorf("stored Tables = %v, want [sales]", second.Tables)
	}
}
