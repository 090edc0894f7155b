package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lbarreto/live-odds-engine/internal/cache"
	"github.com/lbarreto/live-odds-engine/internal/detector"
	"github.com/lbarreto/live-odds-engine/internal/odds"
	"github.com/lbarreto/live-odds-engine/pkg/contracts/events"
)

// Chaves bem conhecidas com o conjunto completo de snapshots de cada ciclo,
// para consumidores de leitura não precisarem re-buscar jogo a jogo
const (
	SnapshotsLiveKey     = "odds:snapshots:live"
	SnapshotsUpcomingKey = "odds:snapshots:upcoming"
)

// FixtureSource é o recorte do cliente do provedor usado pelos loops
type FixtureSource interface {
	LiveFixtures(ctx context.Context) ([]odds.Fixture, error)
	UpcomingFixtures(ctx context.Context) ([]odds.Fixture, error)
	LiveOdds(ctx context.Context, fixtureID int64) ([]odds.Market, error)
	PrematchOdds(ctx context.Context, fixtureID int64) ([]odds.BookmakerOdds, error)
}

// Publisher recebe os eventos detectados em cada ciclo
type Publisher interface {
	PublishOddsChange(ctx context.Context, fixtureID int64, ev events.OddsChange)
	PublishStatusChange(ctx context.Context, fixtureID int64, ev events.StatusChange)
}

type Config struct {
	LiveInterval     time.Duration
	UpcomingInterval time.Duration
	MaxPerTick       int
	BatchSize        int
	BatchTimeout     time.Duration
	BatchPause       time.Duration
}

// Scheduler dirige os ciclos fetch→select→diff→broadcast em duas cadências:
// rápida para jogos ao vivo, lenta para pré-jogo. Falha de um jogo nunca
// derruba o lote; falha de um ciclo nunca derruba o loop.
type Scheduler struct {
	log      *zap.Logger
	source   FixtureSource
	selector *odds.Selector
	detector *detector.Detector
	store    *cache.Store
	pub      Publisher
	cfg      Config

	// status+placar do último tick, para emitir status-change
	statusMu   sync.Mutex
	lastStatus map[int64]string

	// Callbacks de métricas, ligadas no main
	OnTick           func(mode string)
	OnFixtureDone    func(mode string)
	OnFixtureError   func(mode string)
	OnChangesEmitted func(n int)
	OnBatchTimeout   func()
}

func New(log *zap.Logger, src FixtureSource, sel *odds.Selector, det *detector.Detector, store *cache.Store, pub Publisher, cfg Config) *Scheduler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 4
	}
	if cfg.MaxPerTick <= 0 {
		cfg.MaxPerTick = 40
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Second
	}
	return &Scheduler{
		log:        log,
		source:     src,
		selector:   sel,
		detector:   det,
		store:      store,
		pub:        pub,
		cfg:        cfg,
		lastStatus: make(map[int64]string),
	}
}

// Run inicia os dois loops periódicos e bloqueia até o contexto encerrar
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		s.runLoop(ctx, odds.ModeLive, s.cfg.LiveInterval)
	}()
	go func() {
		defer wg.Done()
		s.runLoop(ctx, odds.ModeUpcoming, s.cfg.UpcomingInterval)
	}()

	wg.Wait()
}

func (s *Scheduler) runLoop(ctx context.Context, mode odds.Mode, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// primeiro ciclo imediato, sem esperar o primeiro tick
	s.safeTick(ctx, mode)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.safeTick(ctx, mode)
		}
	}
}

// safeTick isola o ciclo: erro é logado e o loop segue no próximo tick
func (s *Scheduler) safeTick(ctx context.Context, mode odds.Mode) {
	if s.OnTick != nil {
		s.OnTick(string(mode))
	}
	if err := s.tick(ctx, mode); err != nil && ctx.Err() == nil {
		s.log.Warn("refresh tick failed", zap.String("mode", string(mode)), zap.Error(err))
	}
}

func (s *Scheduler) tick(ctx context.Context, mode odds.Mode) error {
	fixtures, err := s.listFixtures(ctx, mode)
	if err != nil {
		return err
	}
	if len(fixtures) == 0 {
		return nil
	}

	// Teto por ciclo para conter o volume de requisições
	if len(fixtures) > s.cfg.MaxPerTick {
		fixtures = fixtures[:s.cfg.MaxPerTick]
	}

	if mode == odds.ModeLive {
		s.emitStatusChanges(ctx, fixtures)
	}

	var snapshots []*odds.OddsSnapshot
	for start := 0; start < len(fixtures); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(fixtures) {
			end = len(fixtures)
		}

		snapshots = append(snapshots, s.processBatch(ctx, mode, fixtures[start:end])...)

		// pausa entre lotes para respeitar o orçamento compartilhado
		if end < len(fixtures) && s.cfg.BatchPause > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.BatchPause):
			}
		}
	}

	return s.persistSnapshots(ctx, mode, snapshots)
}

func (s *Scheduler) listFixtures(ctx context.Context, mode odds.Mode) ([]odds.Fixture, error) {
	if mode == odds.ModeLive {
		return s.source.LiveFixtures(ctx)
	}
	return s.source.UpcomingFixtures(ctx)
}

// processBatch roda fetch+select+diff concorrente por jogo, com timeout do
// lote propagado até a chamada de rede: lote estourado é abandonado e as
// requisições em voo são canceladas, não vazadas
func (s *Scheduler) processBatch(ctx context.Context, mode odds.Mode, batch []odds.Fixture) []*odds.OddsSnapshot {
	bctx, cancel := context.WithTimeout(ctx, s.cfg.BatchTimeout)
	defer cancel()

	var (
		mu        sync.Mutex
		snapshots []*odds.OddsSnapshot
		wg        sync.WaitGroup
	)

	for _, f := range batch {
		wg.Add(1)
		go func(f odds.Fixture) {
			defer wg.Done()
			snap, err := s.processFixture(bctx, mode, f)
			if err != nil {
				if s.OnFixtureError != nil {
					s.OnFixtureError(string(mode))
				}
				if bctx.Err() == nil {
					s.log.Warn("fixture refresh failed",
						zap.Int64("fixture", f.ID),
						zap.String("mode", string(mode)),
						zap.Error(err))
				}
				return
			}
			if s.OnFixtureDone != nil {
				s.OnFixtureDone(string(mode))
			}
			if snap == nil {
				return
			}
			mu.Lock()
			snapshots = append(snapshots, snap)
			mu.Unlock()
		}(f)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-bctx.Done():
		if s.OnBatchTimeout != nil {
			s.OnBatchTimeout()
		}
		s.log.Warn("batch timed out, skipping remaining fixtures",
			zap.String("mode", string(mode)),
			zap.Int("batch_size", len(batch)))
		<-done // goroutines retornam rápido com o contexto cancelado
	}

	mu.Lock()
	defer mu.Unlock()
	return snapshots
}

// processFixture é a unidade isolada de trabalho: busca odds, seleciona o
// snapshot canônico, diffa contra a geração anterior e publica as mudanças
// imediatamente (sem acumular entre jogos)
func (s *Scheduler) processFixture(ctx context.Context, mode odds.Mode, f odds.Fixture) (*odds.OddsSnapshot, error) {
	var snap *odds.OddsSnapshot

	switch mode {
	case odds.ModeLive:
		markets, err := s.source.LiveOdds(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		snap = s.selector.SelectLive(f.ID, markets)
	default:
		books, err := s.source.PrematchOdds(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		snap = s.selector.SelectUpcoming(f.ID, books)
	}

	if snap == nil {
		// sem odds utilizáveis: jogo ignorado neste ciclo
		return nil, nil
	}

	changes := s.detector.Compare(snap)
	if len(changes) > 0 {
		if s.OnChangesEmitted != nil {
			s.OnChangesEmitted(len(changes))
		}
		s.pub.PublishOddsChange(ctx, f.ID, buildOddsChange(f.ID, changes, snap))
	}
	return snap, nil
}

// emitStatusChanges compara status+placar com o tick anterior e publica
// mudanças de estado do jogo
func (s *Scheduler) emitStatusChanges(ctx context.Context, fixtures []odds.Fixture) {
	now := time.Now()
	for _, f := range fixtures {
		sig := f.Status + "|" + f.Score

		s.statusMu.Lock()
		prev, seen := s.lastStatus[f.ID]
		s.lastStatus[f.ID] = sig
		s.statusMu.Unlock()

		if !seen || prev == sig {
			continue
		}
		s.pub.PublishStatusChange(ctx, f.ID, events.StatusChange{
			FixtureID: f.ID,
			Timestamp: now,
			Status:    f.Status,
			Elapsed:   f.Elapsed,
			Score:     f.Score,
		})
	}
}

// persistSnapshots grava o conjunto completo do ciclo na chave bem conhecida
func (s *Scheduler) persistSnapshots(ctx context.Context, mode odds.Mode, snapshots []*odds.OddsSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	key := SnapshotsLiveKey
	ttl := 6 * s.cfg.LiveInterval
	if mode == odds.ModeUpcoming {
		key = SnapshotsUpcomingKey
		ttl = 2 * s.cfg.UpcomingInterval
	}
	return s.store.Set(ctx, key, snapshots, ttl)
}

// buildOddsChange agrupa os registros por mercado e anexa o snapshot completo
func buildOddsChange(fixtureID int64, changes []odds.ChangeRecord, snap *odds.OddsSnapshot) events.OddsChange {
	items := make([]events.ChangeItem, 0, len(changes))
	grouped := make(map[string][]events.ChangeItem)
	for _, c := range changes {
		item := events.ChangeItem{
			ID:            c.ID,
			Market:        c.Market,
			Option:        c.Option,
			Handicap:      c.Handicap,
			OldValue:      c.OldValue,
			NewValue:      c.NewValue,
			Direction:     c.Direction,
			ChangePercent: c.ChangePercent,
		}
		items = append(items, item)
		grouped[c.Market] = append(grouped[c.Market], item)
	}
	return events.OddsChange{
		FixtureID:  fixtureID,
		Timestamp:  time.Now(),
		Changes:    grouped,
		AllChanges: items,
		Snapshot:   snap,
	}
}
