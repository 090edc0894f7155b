package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type payload struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

func TestStore_RoundTripSmallValue(t *testing.T) {
	store := NewStore(NewMemoryBackend(), 1024, nil)
	ctx := context.Background()

	in := payload{Name: "match-winner", Values: []string{"1.85", "3.40", "4.20"}}
	if err := store.Set(ctx, "odds:1", in, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out payload
	ok, err := store.Get(ctx, "odds:1", &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if out.Name != in.Name || len(out.Values) != len(in.Values) {
		t.Errorf("round trip mismatch: got %+v want %+v", out, in)
	}
}

func TestStore_RoundTripCompressedValue(t *testing.T) {
	backend := NewMemoryBackend()
	store := NewStore(backend, 64, nil)
	ctx := context.Background()

	// payload repetitivo bem acima do limiar, comprime com folga
	in := payload{Name: strings.Repeat("goals-over-under ", 200)}
	if err := store.Set(ctx, "odds:2", in, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	raw, ok, _ := backend.Get(ctx, "odds:2")
	if !ok {
		t.Fatal("value not stored")
	}
	if !strings.HasPrefix(raw, compressedPrefix) {
		t.Errorf("expected compressed form, got %q...", raw[:20])
	}

	var out payload
	ok, err := store.Get(ctx, "odds:2", &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if out.Name != in.Name {
		t.Error("decompressed value differs from original")
	}
}

func TestStore_IncompressiblePayloadStaysPlain(t *testing.T) {
	backend := NewMemoryBackend()
	store := NewStore(backend, 16, nil)
	ctx := context.Background()

	// strings curtas e distintas comprimem mal; ganho < 10% mantém o plano
	in := payload{Name: "ab12cd34ef56gh78", Values: []string{"xq", "zw", "kv"}}
	if err := store.Set(ctx, "odds:3", in, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	raw, ok, _ := backend.Get(ctx, "odds:3")
	if !ok {
		t.Fatal("value not stored")
	}
	if strings.HasPrefix(raw, compressedPrefix) {
		t.Error("incompressible payload should be stored plain")
	}
}

func TestStore_Expiration(t *testing.T) {
	backend := NewMemoryBackend()
	now := time.Now()
	backend.now = func() time.Time { return now }
	store := NewStore(backend, 1024, nil)
	ctx := context.Background()

	_ = store.Set(ctx, "k", "v", 10*time.Second)

	now = now.Add(11 * time.Second)
	var out string
	if ok, _ := store.Get(ctx, "k", &out); ok {
		t.Error("expired key should be a miss")
	}
}

type failingBackend struct{}

func (failingBackend) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}
func (failingBackend) Set(context.Context, string, string, time.Duration) error {
	return errors.New("connection refused")
}
func (failingBackend) Del(context.Context, string) error { return errors.New("connection refused") }

func TestStore_UnavailableBackendIsAMiss(t *testing.T) {
	store := NewStore(failingBackend{}, 1024, nil)

	var out string
	ok, err := store.Get(context.Background(), "k", &out)
	if err != nil {
		t.Fatalf("unavailable backend must not surface an error, got %v", err)
	}
	if ok {
		t.Error("unavailable backend must read as a miss")
	}
}

func TestBuildKey_SortsParams(t *testing.T) {
	tests := []struct {
		prefix string
		params map[string]string
		want   string
	}{
		{"api:fixtures", nil, "api:fixtures"},
		{"api:fixtures", map[string]string{"live": "all"}, "api:fixtures|live:all"},
		{"api:odds", map[string]string{"fixture": "42", "bookmaker": "8"}, "api:odds|bookmaker:8|fixture:42"},
	}
	for _, tt := range tests {
		if got := BuildKey(tt.prefix, tt.params); got != tt.want {
			t.Errorf("BuildKey(%q, %v) = %q, want %q", tt.prefix, tt.params, got, tt.want)
		}
	}
}

func TestBuildKey_OrderIndependent(t *testing.T) {
	a := BuildKey("api:odds", map[string]string{"fixture": "42", "page": "1"})
	b := BuildKey("api:odds", map[string]string{"page": "1", "fixture": "42"})
	if a != b {
		t.Errorf("same params must build the same key: %q vs %q", a, b)
	}
}
