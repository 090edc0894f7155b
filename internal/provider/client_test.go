package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lbarreto/live-odds-engine/internal/cache"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := cache.NewStore(cache.NewMemoryBackend(), 1024, zap.NewNop())
	client := NewClient(Config{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		RPS:        0, // sem atraso entre requisições nos testes
		MaxRetries: 3,
		MaxBackoff: 50 * time.Millisecond,
	}, store, zap.NewNop())

	// sem dormir de verdade nos testes de backoff
	client.sleep = func(context.Context, time.Duration) error { return nil }
	return client
}

const liveFixturesBody = `{
	"response": [
		{
			"fixture": {"id": 42, "date": "2026-08-28T19:30:00+00:00", "status": {"short": "1H", "elapsed": 23}},
			"league": {"name": "Serie A", "country": "Brazil"},
			"teams": {"home": {"name": "Flamengo"}, "away": {"name": "Palmeiras"}},
			"goals": {"home": 1, "away": 0}
		}
	],
	"errors": {}
}`

func TestClient_CachesSuccessfulResponses(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(liveFixturesBody))
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		fixtures, err := client.LiveFixtures(ctx)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if len(fixtures) != 1 || fixtures[0].ID != 42 {
			t.Fatalf("call %d: unexpected fixtures %+v", i, fixtures)
		}
	}

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected 1 upstream call, got %d", n)
	}
}

func TestClient_NormalizesFixture(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(liveFixturesBody))
	})

	fixtures, err := client.LiveFixtures(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	f := fixtures[0]
	if !f.IsLive || f.Status != "1H" || f.Elapsed != 23 {
		t.Errorf("status not normalized: %+v", f)
	}
	if f.Score != "1-0" || f.HomeTeam != "Flamengo" {
		t.Errorf("teams/score not normalized: %+v", f)
	}
}

func TestClient_RetriesOn429(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(liveFixturesBody))
	})

	fixtures, err := client.LiveFixtures(context.Background())
	if err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if len(fixtures) != 1 {
		t.Errorf("got %d fixtures", len(fixtures))
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.LiveFixtures(context.Background())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected UpstreamError with 429, got %v", err)
	}
}

func TestClient_DailyLimitFlagIsSticky(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"response": [], "errors": {"requests": "You have reached the request limit for the day, upgrade your plan"}}`))
	})

	ctx := context.Background()
	if _, err := client.LiveFixtures(ctx); err == nil {
		t.Fatal("expected daily limit error")
	}
	if !client.DailyLimitReached() {
		t.Fatal("daily limit flag should be set")
	}

	// chamadas seguintes curto-circuitam sem rede
	if _, err := client.LiveOdds(ctx, 42); err == nil {
		t.Fatal("expected short-circuit error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected 1 upstream call, got %d", n)
	}

	// flag limpa (cron da meia-noite) volta a ir à rede
	client.ClearDailyLimit()
	if client.DailyLimitReached() {
		t.Error("flag should be cleared")
	}
	_, _ = client.LiveFixtures(ctx)
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("expected network call after clear, got %d calls", n)
	}
}

func TestClient_ServerErrorPropagates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.LiveFixtures(context.Background())
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected UpstreamError with 500, got %v", err)
	}
}

func TestClient_EmptyResponseIsNotCached(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"response": [], "errors": {}}`))
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		markets, err := client.LiveOdds(ctx, 42)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if markets != nil {
			t.Fatalf("call %d: expected no markets", i)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("empty responses must not be cached, got %d calls", n)
	}
}

func TestSplitHandicap(t *testing.T) {
	tests := []struct {
		in           string
		wantLabel    string
		wantHandicap string
	}{
		{"Home", "Home", ""},
		{"Over 2.5", "Over", "2.5"},
		{"Home -1.5", "Home", "-1.5"},
		{"Exact Score", "Exact Score", ""},
	}
	for _, tt := range tests {
		label, handicap := splitHandicap(tt.in)
		if label != tt.wantLabel || handicap != tt.wantHandicap {
			t.Errorf("splitHandicap(%q) = (%q, %q), want (%q, %q)",
				tt.in, label, handicap, tt.wantLabel, tt.wantHandicap)
		}
	}
}

func TestIsDailyLimitMessage(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{`{"requests": "You have reached the request limit for the day"}`, true},
		{`["Daily quota exceeded"]`, true},
		{`"you have reached the request limit for the day"`, true},
		{`{"token": "invalid api key"}`, false},
		{`{}`, false},
		{``, false},
	}
	for _, tt := range tests {
		if got := isDailyLimitMessage([]byte(tt.raw)); got != tt.want {
			t.Errorf("isDailyLimitMessage(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
