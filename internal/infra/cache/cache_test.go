package cache_test

import (
	"testing"
	"time"

	"github.com/mahin/bachelor-expenses-go/internal/infra/cache"
)

type analysisStub struct {
	Summary string
	Score   float64
}

func TestCache_HoldsAnalysisPerAccount(t *testing.T) {
	c := cache.New[analysisStub](5 * time.Minute)

	c.Set("acct-1", analysisStub{Summary: "June looks tight", Score: 62})
	c.Set("acct-2", analysisStub{Summary: "Comfortable month", Score: 85})

	got, ok := c.Get("acct-1")
	if !ok {
		t.Fatal("expected cached analysis for acct-1")
	}
	if got.Score != 62 {
		t.Errorf("expected score 62, got %v", got.Score)
	}
	if other, _ := c.Get("acct-2"); other.Score != 85 {
		t.Errorf("accounts must not share entries, got %v", other.Score)
	}
}

func TestCache_MissBeforeFirstAnalysis(t *testing.T) {
	c := cache.New[analysisStub](5 * time.Minute)

	if _, ok := c.Get("acct-never-analyzed"); ok {
		t.Fatal("expected miss for account with no analysis yet")
	}
}

func TestCache_EntryExpires(t *testing.T) {
	c := cache.New[analysisStub](50 * time.Millisecond)

	c.Set("acct-1", analysisStub{Summary: "stale soon"})
	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("acct-1"); ok {
		t.Fatal("expected entry to expire after TTL")
	}
}

func TestCache_DeleteOnLogout(t *testing.T) {
	c := cache.New[analysisStub](5 * time.Minute)

	c.Set("acct-1", analysisStub{Summary: "about to log out"})
	c.Delete("acct-1")

	if _, ok := c.Get("acct-1"); ok {
		t.Fatal("expected entry gone after delete")
	}
}

func TestCache_NewAnalysisReplacesOld(t *testing.T) {
	c := cache.New[analysisStub](5 * time.Minute)

	c.Set("acct-1", analysisStub{Summary: "before new expenses", Score: 70})
	c.Set("acct-1", analysisStub{Summary: "after new expenses", Score: 55})

	got, ok := c.Get("acct-1")
	if !ok || got.Score != 55 {
		t.Errorf("expected replacement entry (score 55), got %+v (ok=%v)", got, ok)
	}
}
