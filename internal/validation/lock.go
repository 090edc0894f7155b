package validation

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/lbarreto/live-odds-engine/internal/cache"
	"github.com/lbarreto/live-odds-engine/internal/odds"
)

// observedRegistryTTL mantém o registro de lances vistos até bem depois do
// fim do jogo
const observedRegistryTTL = 3 * time.Hour

// Lock é o trava-apostas criado quando um lance crítico (gol, pênalti,
// cartão vermelho) é observado dentro da janela. Expira sozinho pelo TTL do
// cache; ninguém o apaga explicitamente.
type Lock struct {
	FixtureID        int64             `json:"fixtureId"`
	LockUntil        time.Time         `json:"lockUntil"`
	TriggeringEvents []odds.MatchEvent `json:"triggeringEvents"`
}

// CriticalGuard cria e consulta o lock de eventos críticos. É um guarda de
// melhor esforço: duas validações concorrentes podem ambas criar o lock, o
// que só repete a rejeição — nunca usar como exclusão mútua.
type CriticalGuard struct {
	store  *cache.Store
	window time.Duration
	now    func() time.Time
}

func NewCriticalGuard(store *cache.Store, window time.Duration) *CriticalGuard {
	if window <= 0 {
		window = 60 * time.Second
	}
	return &CriticalGuard{store: store, window: window, now: time.Now}
}

func lockKey(fixtureID int64) string {
	return "lock:critical:" + strconv.FormatInt(fixtureID, 10)
}

func registryKey(fixtureID int64) string {
	return "events:observed:" + strconv.FormatInt(fixtureID, 10)
}

// Check consulta o lock ativo do jogo; sem lock, varre os lances recentes e
// cria um se houver lance crítico observado dentro da janela. Retorna o tempo
// restante quando o jogo está travado.
func (g *CriticalGuard) Check(ctx context.Context, fixtureID int64, matchEvents []odds.MatchEvent) (time.Duration, bool) {
	now := g.now()

	var lk Lock
	if ok, _ := g.store.Get(ctx, lockKey(fixtureID), &lk); ok {
		if remaining := lk.LockUntil.Sub(now); remaining > 0 {
			return remaining, true
		}
	}

	observed := g.observeEvents(ctx, fixtureID, matchEvents, now)

	var trigger []odds.MatchEvent
	var newest time.Time
	for _, ev := range matchEvents {
		if !isCriticalEvent(ev) {
			continue
		}
		seenAt, ok := observed[ev.Key()]
		if !ok || now.Sub(seenAt) >= g.window {
			continue
		}
		trigger = append(trigger, ev)
		if seenAt.After(newest) {
			newest = seenAt
		}
	}
	if len(trigger) == 0 {
		return 0, false
	}

	until := newest.Add(g.window)
	remaining := until.Sub(now)
	lk = Lock{FixtureID: fixtureID, LockUntil: until, TriggeringEvents: trigger}
	_ = g.store.Set(ctx, lockKey(fixtureID), lk, remaining)
	return remaining, true
}

// observeEvents registra quando cada lance foi visto pela primeira vez.
// O provedor só informa o minuto de jogo; a janela do lock é de relógio de
// parede, então o instante de observação é o que conta.
func (g *CriticalGuard) observeEvents(ctx context.Context, fixtureID int64, matchEvents []odds.MatchEvent, now time.Time) map[string]time.Time {
	observed := make(map[string]time.Time)

	var stored map[string]time.Time
	if ok, _ := g.store.Get(ctx, registryKey(fixtureID), &stored); ok {
		observed = stored
	}

	changed := false
	for _, ev := range matchEvents {
		if !isCriticalEvent(ev) {
			continue
		}
		if _, ok := observed[ev.Key()]; !ok {
			observed[ev.Key()] = now
			changed = true
		}
	}
	if changed {
		_ = g.store.Set(ctx, registryKey(fixtureID), observed, observedRegistryTTL)
	}
	return observed
}

// isCriticalEvent reconhece os lances que travam apostas: gol válido,
// cartão vermelho e pênalti marcado
func isCriticalEvent(ev odds.MatchEvent) bool {
	detail := strings.ToLower(ev.Detail)
	switch strings.ToLower(ev.Type) {
	case "goal":
		return !strings.Contains(detail, "missed")
	case "card":
		return strings.Contains(detail, "red")
	case "var":
		return strings.Contains(detail, "penalty") || strings.Contains(detail, "goal")
	}
	return strings.Contains(detail, "penalty")
}
