package events

import "time"

// StatusChange é o evento publicado quando o status ou placar de um jogo muda
type StatusChange struct {
	FixtureID int64     `json:"fixtureId"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"` // short code do provedor (NS, 1H, HT, FT...)
	Elapsed   int       `json:"elapsed,omitempty"`
	Score     string    `json:"score,omitempty"` // "2-1"
}
