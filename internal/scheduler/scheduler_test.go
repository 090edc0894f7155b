package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lbarreto/live-odds-engine/internal/cache"
	"github.com/lbarreto/live-odds-engine/internal/detector"
	"github.com/lbarreto/live-odds-engine/internal/odds"
	"github.com/lbarreto/live-odds-engine/pkg/contracts/events"
)

type fakeFixtureSource struct {
	mu       sync.Mutex
	live     []odds.Fixture
	upcoming []odds.Fixture
	liveOdds map[int64][]odds.Market
	prematch map[int64][]odds.BookmakerOdds
	oddsErr  map[int64]error
	fetches  int
}

func (f *fakeFixtureSource) LiveFixtures(context.Context) ([]odds.Fixture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live, nil
}

func (f *fakeFixtureSource) UpcomingFixtures(context.Context) ([]odds.Fixture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upcoming, nil
}

func (f *fakeFixtureSource) LiveOdds(_ context.Context, id int64) ([]odds.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if err := f.oddsErr[id]; err != nil {
		return nil, err
	}
	return f.liveOdds[id], nil
}

func (f *fakeFixtureSource) PrematchOdds(_ context.Context, id int64) ([]odds.BookmakerOdds, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return f.prematch[id], nil
}

func (f *fakeFixtureSource) setLiveOdds(id int64, markets []odds.Market) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.liveOdds[id] = markets
}

func (f *fakeFixtureSource) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

type recordingPub struct {
	mu     sync.Mutex
	odds   []events.OddsChange
	status []events.StatusChange
}

func (p *recordingPub) PublishOddsChange(_ context.Context, _ int64, ev events.OddsChange) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.odds = append(p.odds, ev)
}

func (p *recordingPub) PublishStatusChange(_ context.Context, _ int64, ev events.StatusChange) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = append(p.status, ev)
}

func (p *recordingPub) oddsEvents() []events.OddsChange {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.OddsChange(nil), p.odds...)
}

func (p *recordingPub) statusEvents() []events.StatusChange {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.StatusChange(nil), p.status...)
}

func liveFixture(id int64, status, score string) odds.Fixture {
	return odds.Fixture{ID: id, Status: status, Score: score, IsLive: true}
}

func winnerMarket(homeOdd float64) []odds.Market {
	return []odds.Market{{Name: "Match Winner", Values: []odds.SelectionValue{
		{Label: "Home", Odd: homeOdd},
		{Label: "Away", Odd: 4.20},
	}}}
}

func newTestScheduler(src *fakeFixtureSource, pub *recordingPub, cfg Config) (*Scheduler, *cache.Store) {
	if cfg.LiveInterval == 0 {
		cfg.LiveInterval = 5 * time.Second
	}
	if cfg.UpcomingInterval == 0 {
		cfg.UpcomingInterval = 300 * time.Second
	}
	store := cache.NewStore(cache.NewMemoryBackend(), 1024, zap.NewNop())
	sel := odds.NewSelector([]string{"Bet365"})
	return New(zap.NewNop(), src, sel, detector.New(), store, pub, cfg), store
}

func TestTick_EmitsChangesOnSecondCycle(t *testing.T) {
	src := &fakeFixtureSource{
		live:     []odds.Fixture{liveFixture(1, "1H", "0-0")},
		liveOdds: map[int64][]odds.Market{1: winnerMarket(1.85)},
	}
	pub := &recordingPub{}
	s, _ := newTestScheduler(src, pub, Config{})
	ctx := context.Background()

	if err := s.tick(ctx, odds.ModeLive); err != nil {
		t.Fatal(err)
	}
	if n := len(pub.oddsEvents()); n != 0 {
		t.Fatalf("first cycle must not publish, got %d events", n)
	}

	src.setLiveOdds(1, winnerMarket(2.00))
	if err := s.tick(ctx, odds.ModeLive); err != nil {
		t.Fatal(err)
	}

	evs := pub.oddsEvents()
	if len(evs) != 1 {
		t.Fatalf("expected 1 odds change event, got %d", len(evs))
	}
	ev := evs[0]
	if ev.FixtureID != 1 || len(ev.AllChanges) != 1 {
		t.Errorf("event = %+v", ev)
	}
	if ev.AllChanges[0].OldValue != 1.85 || ev.AllChanges[0].NewValue != 2.00 {
		t.Errorf("change = %+v", ev.AllChanges[0])
	}
	if len(ev.Changes["Match Winner"]) != 1 {
		t.Errorf("changes must be grouped by market: %+v", ev.Changes)
	}
}

func TestTick_FixtureFailureIsIsolated(t *testing.T) {
	src := &fakeFixtureSource{
		live: []odds.Fixture{
			liveFixture(1, "1H", "0-0"),
			liveFixture(2, "1H", "0-0"),
		},
		liveOdds: map[int64][]odds.Market{1: winnerMarket(1.85)},
		oddsErr:  map[int64]error{2: errors.New("upstream down")},
	}
	pub := &recordingPub{}
	s, store := newTestScheduler(src, pub, Config{})

	var failures int
	var mu sync.Mutex
	s.OnFixtureError = func(string) {
		mu.Lock()
		failures++
		mu.Unlock()
	}

	ctx := context.Background()
	if err := s.tick(ctx, odds.ModeLive); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if failures != 1 {
		t.Errorf("expected 1 fixture failure, got %d", failures)
	}

	// o jogo saudável ainda entra no conjunto persistido
	var snaps []*odds.OddsSnapshot
	ok, err := store.Get(ctx, SnapshotsLiveKey, &snaps)
	if err != nil || !ok {
		t.Fatalf("snapshot set not persisted: ok=%v err=%v", ok, err)
	}
	if len(snaps) != 1 || snaps[0].FixtureID != 1 {
		t.Errorf("persisted set = %+v", snaps)
	}
}

func TestTick_CapsFixturesPerTick(t *testing.T) {
	src := &fakeFixtureSource{
		live: []odds.Fixture{
			liveFixture(1, "1H", "0-0"),
			liveFixture(2, "1H", "0-0"),
			liveFixture(3, "1H", "0-0"),
		},
		liveOdds: map[int64][]odds.Market{
			1: winnerMarket(1.85),
			2: winnerMarket(2.10),
			3: winnerMarket(3.00),
		},
	}
	s, _ := newTestScheduler(src, &recordingPub{}, Config{MaxPerTick: 2})

	if err := s.tick(context.Background(), odds.ModeLive); err != nil {
		t.Fatal(err)
	}
	if n := src.fetchCount(); n != 2 {
		t.Errorf("expected 2 odds fetches with cap 2, got %d", n)
	}
}

func TestTick_EmitsStatusChanges(t *testing.T) {
	src := &fakeFixtureSource{
		live:     []odds.Fixture{liveFixture(1, "1H", "0-0")},
		liveOdds: map[int64][]odds.Market{1: winnerMarket(1.85)},
	}
	pub := &recordingPub{}
	s, _ := newTestScheduler(src, pub, Config{})
	ctx := context.Background()

	if err := s.tick(ctx, odds.ModeLive); err != nil {
		t.Fatal(err)
	}
	if n := len(pub.statusEvents()); n != 0 {
		t.Fatalf("first sighting must not emit status change, got %d", n)
	}

	// gol muda o placar entre os ciclos
	src.mu.Lock()
	src.live = []odds.Fixture{liveFixture(1, "1H", "1-0")}
	src.mu.Unlock()

	if err := s.tick(ctx, odds.ModeLive); err != nil {
		t.Fatal(err)
	}
	evs := pub.statusEvents()
	if len(evs) != 1 {
		t.Fatalf("expected 1 status change, got %d", len(evs))
	}
	if evs[0].FixtureID != 1 || evs[0].Score != "1-0" {
		t.Errorf("status event = %+v", evs[0])
	}
}

func TestTick_UpcomingUsesBookmakerPriority(t *testing.T) {
	src := &fakeFixtureSource{
		upcoming: []odds.Fixture{{ID: 7, Status: "NS"}},
		prematch: map[int64][]odds.BookmakerOdds{7: {
			{Name: "Unknown", Markets: winnerMarket(2.50)},
			{Name: "Bet365", Markets: winnerMarket(1.85)},
		}},
	}
	s, store := newTestScheduler(src, &recordingPub{}, Config{})
	ctx := context.Background()

	if err := s.tick(ctx, odds.ModeUpcoming); err != nil {
		t.Fatal(err)
	}

	var snaps []*odds.OddsSnapshot
	ok, _ := store.Get(ctx, SnapshotsUpcomingKey, &snaps)
	if !ok || len(snaps) != 1 {
		t.Fatalf("expected 1 upcoming snapshot, got ok=%v n=%d", ok, len(snaps))
	}
	if snaps[0].Source != "Bet365" {
		t.Errorf("snapshot source = %q, want the priority bookmaker", snaps[0].Source)
	}
}
