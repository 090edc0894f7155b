package events

import "time"

// ChangeItem representa a variação de uma seleção entre dois snapshots de odds
type ChangeItem struct {
	ID            string  `json:"id"`
	Market        string  `json:"market"`
	Option        string  `json:"option"`
	Handicap      string  `json:"handicap,omitempty"`
	OldValue      float64 `json:"oldValue"`
	NewValue      float64 `json:"newValue"`
	Direction     string  `json:"direction"` // "increased" | "decreased"
	ChangePercent float64 `json:"changePercent"`
}

// OddsChange é o evento publicado nos canais de broadcast quando odds se movem
// Changes agrupa por mercado; AllChanges mantém a ordem de detecção
type OddsChange struct {
	FixtureID  int64                   `json:"fixtureId"`
	Timestamp  time.Time               `json:"timestamp"`
	Changes    map[string][]ChangeItem `json:"changes"`
	AllChanges []ChangeItem            `json:"allChanges"`
	Snapshot   interface{}             `json:"fullOddsSnapshot,omitempty"`
}
