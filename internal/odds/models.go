package odds

import (
	"strconv"
	"time"
)

// Mode indica a origem do snapshot: jogo ao vivo ou pré-jogo
type Mode string

const (
	ModeLive     Mode = "live"
	ModeUpcoming Mode = "upcoming"
)

// SelectionValue é uma opção apostável dentro de um mercado.
// Odd de seleção não suspensa é sempre > 1.
type SelectionValue struct {
	Label     string  `json:"label"`
	Odd       float64 `json:"odd"`
	Suspended bool    `json:"suspended"`
	Handicap  string  `json:"handicap,omitempty"`
}

// Market agrupa as seleções de um mesmo tipo de aposta (ex: "Match Winner")
type Market struct {
	ID        int64            `json:"id"`
	Name      string           `json:"name"`
	Suspended bool             `json:"suspended"`
	Values    []SelectionValue `json:"values"`
}

// OddsSnapshot é a visão canônica das odds de um jogo em um instante.
// Nunca é mutado: cada ciclo de fetch produz um novo snapshot e o anterior
// é mantido apenas uma geração para o diff.
type OddsSnapshot struct {
	FixtureID  int64     `json:"fixtureId"`
	Mode       Mode      `json:"mode"`
	Source     string    `json:"source,omitempty"` // bookmaker escolhido no pré-jogo
	Markets    []Market  `json:"markets"`
	CapturedAt time.Time `json:"capturedAt"`
}

// BookmakerOdds é a lista de mercados oferecida por um bookmaker no pré-jogo
type BookmakerOdds struct {
	Name    string   `json:"name"`
	Markets []Market `json:"markets"`
}

// ChangeRecord descreve a variação de uma seleção entre dois snapshots
type ChangeRecord struct {
	ID            string  `json:"id"`
	Market        string  `json:"market"`
	Option        string  `json:"option"`
	Handicap      string  `json:"handicap,omitempty"`
	OldValue      float64 `json:"oldValue"`
	NewValue      float64 `json:"newValue"`
	Direction     string  `json:"direction"` // "increased" | "decreased"
	ChangePercent float64 `json:"changePercent"`
}

const (
	DirectionIncreased = "increased"
	DirectionDecreased = "decreased"
)

// MatchStatus é o estado corrente de um jogo, com TTL curto no cache
type MatchStatus struct {
	FixtureID  int64     `json:"fixtureId"`
	ShortCode  string    `json:"shortCode"` // NS, 1H, HT, 2H, FT, CANC...
	Elapsed    int       `json:"elapsed"`
	IsLive     bool      `json:"isLive"`
	Score      string    `json:"score"` // "2-1"
	HomeTeam   string    `json:"homeTeam"`
	AwayTeam   string    `json:"awayTeam"`
	League     string    `json:"league"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Fixture é a entrada mínima das listas de jogos do provedor
type Fixture struct {
	ID        int64     `json:"id"`
	Status    string    `json:"status"`
	Elapsed   int       `json:"elapsed,omitempty"`
	IsLive    bool      `json:"isLive"`
	Score     string    `json:"score,omitempty"`
	HomeTeam  string    `json:"homeTeam"`
	AwayTeam  string    `json:"awayTeam"`
	League    string    `json:"league"`
	KickoffAt time.Time `json:"kickoffAt"`
}

// MatchEvent é um lance do jogo (gol, cartão, pênalti...)
type MatchEvent struct {
	FixtureID int64  `json:"fixtureId"`
	Elapsed   int    `json:"elapsed"`
	Type      string `json:"type"`   // "Goal", "Card", "Var"
	Detail    string `json:"detail"` // "Normal Goal", "Red Card", "Penalty"...
	Team      string `json:"team"`
	Player    string `json:"player,omitempty"`
}

// Key identifica o lance de forma estável entre fetches sucessivos
func (e MatchEvent) Key() string {
	return e.Type + "|" + e.Detail + "|" + e.Team + "|" + e.Player + "|" + strconv.Itoa(e.Elapsed)
}
