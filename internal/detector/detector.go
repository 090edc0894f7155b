package detector

import (
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/lbarreto/live-odds-engine/internal/odds"
)

// Limiares de emissão: variação absoluta mínima OU percentual mínima.
// Abaixo de ambos a oscilação é ruído do provedor.
const (
	minAbsDelta = 0.01
	minPctDelta = 1.0
)

// Detector compara snapshots sucessivos de odds do mesmo jogo e emite um
// ChangeRecord por seleção que se moveu. Mantém uma geração anterior por
// jogo; o processo é o único dono do cache, então o estado fica em memória.
type Detector struct {
	mu       sync.Mutex
	previous map[int64]*odds.OddsSnapshot
}

func New() *Detector {
	return &Detector{previous: make(map[int64]*odds.OddsSnapshot)}
}

// Compare diffa o snapshot novo contra o anterior do jogo e o promove a
// "anterior" incondicionalmente. Primeiro snapshot de um jogo (cold start)
// só armazena, sem emitir mudanças.
func (d *Detector) Compare(snapshot *odds.OddsSnapshot) []odds.ChangeRecord {
	if snapshot == nil {
		return nil
	}

	d.mu.Lock()
	prev := d.previous[snapshot.FixtureID]
	d.previous[snapshot.FixtureID] = snapshot
	d.mu.Unlock()

	if prev == nil {
		return nil
	}
	return diff(prev, snapshot)
}

// Forget descarta o snapshot anterior de um jogo (ex: jogo encerrado)
func (d *Detector) Forget(fixtureID int64) {
	d.mu.Lock()
	delete(d.previous, fixtureID)
	d.mu.Unlock()
}

// selectionKey identifica a seleção por (handicap, label) — nunca por posição
// no array, porque o provedor reordena e insere linhas entre fetches
type selectionKey struct {
	handicap string
	label    string
}

func diff(prev, next *odds.OddsSnapshot) []odds.ChangeRecord {
	prevMarkets := make(map[string]odds.Market, len(prev.Markets))
	for _, m := range prev.Markets {
		prevMarkets[m.Name] = m
	}

	var changes []odds.ChangeRecord
	for _, market := range next.Markets {
		old, ok := prevMarkets[market.Name]
		if !ok {
			continue
		}

		oldValues := make(map[selectionKey]odds.SelectionValue, len(old.Values))
		for _, v := range old.Values {
			oldValues[selectionKey{v.Handicap, v.Label}] = v
		}

		for _, v := range market.Values {
			o, ok := oldValues[selectionKey{v.Handicap, v.Label}]
			if !ok || o.Suspended || v.Suspended {
				continue
			}

			delta := math.Abs(v.Odd - o.Odd)
			percent := 0.0
			if o.Odd != 0 {
				percent = delta / o.Odd * 100
			}
			if delta < minAbsDelta && percent < minPctDelta {
				continue
			}

			direction := odds.DirectionIncreased
			if v.Odd < o.Odd {
				direction = odds.DirectionDecreased
			}
			changes = append(changes, odds.ChangeRecord{
				ID:            uuid.NewString(),
				Market:        market.Name,
				Option:        v.Label,
				Handicap:      v.Handicap,
				OldValue:      o.Odd,
				NewValue:      v.Odd,
				Direction:     direction,
				ChangePercent: round2(percent),
			})
		}
	}
	return changes
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
