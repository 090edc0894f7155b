package odds

import "time"

// Selector normaliza as odds cruas do provedor em um snapshot canônico por
// jogo. Para pré-jogo aplica a lista de prioridade de bookmakers; ao vivo a
// estrutura do provedor passa direto.
type Selector struct {
	priority []string
	now      func() time.Time
}

func NewSelector(bookmakerPriority []string) *Selector {
	return &Selector{priority: bookmakerPriority, now: time.Now}
}

// SelectLive monta o snapshot de um jogo ao vivo. Sem odds ao vivo o jogo
// não gera snapshot: o chamador deve ignorá-lo, não tratar como erro.
func (s *Selector) SelectLive(fixtureID int64, markets []Market) *OddsSnapshot {
	if len(markets) == 0 {
		return nil
	}
	return &OddsSnapshot{
		FixtureID:  fixtureID,
		Mode:       ModeLive,
		Markets:    markets,
		CapturedAt: s.now(),
	}
}

// SelectUpcoming escolhe o bookmaker de maior prioridade presente na oferta
// e emite apenas os mercados dele. Nenhum bookmaker da lista presente →
// jogo descartado (nil).
func (s *Selector) SelectUpcoming(fixtureID int64, offered []BookmakerOdds) *OddsSnapshot {
	for _, want := range s.priority {
		for _, bk := range offered {
			if bk.Name != want || len(bk.Markets) == 0 {
				continue
			}
			return &OddsSnapshot{
				FixtureID:  fixtureID,
				Mode:       ModeUpcoming,
				Source:     bk.Name,
				Markets:    bk.Markets,
				CapturedAt: s.now(),
			}
		}
	}
	return nil
}
