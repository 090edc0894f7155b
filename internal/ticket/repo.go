package ticket

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = errors.New("ticket not found")

// Slip é o bilhete compartilhado persistido pelo serviço de apostas.
// Este pacote só lê; escrita e housekeeping são de outro serviço.
type Slip struct {
	Code      string    `json:"code"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
	Bets      []SlipBet `json:"bets"`
}

type SlipBet struct {
	FixtureID int64   `json:"fixtureId"`
	Market    string  `json:"market"`
	Selection string  `json:"selection"`
	Odd       float64 `json:"odd"`
	Handicap  string  `json:"handicap,omitempty"`
}

// Expired considera expirado um bilhete vencido ou já marcado como tal
func (s *Slip) Expired(now time.Time) bool {
	if s.Status == "EXPIRED" {
		return true
	}
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Repo dá acesso read-only aos bilhetes no Postgres
type Repo struct{ db *sql.DB }

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

// FindByCode carrega o bilhete e suas apostas pelo código compartilhado
func (r *Repo) FindByCode(ctx context.Context, code string) (*Slip, error) {
	var s Slip
	err := r.db.QueryRowContext(ctx, `
		SELECT code, status, expires_at FROM bet_slips WHERE code=$1`, code,
	).Scan(&s.Code, &s.Status, &s.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT fixture_id, market, selection, odd_value, COALESCE(handicap,'')
		FROM bet_slip_items WHERE slip_code=$1 ORDER BY id`, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var b SlipBet
		if err := rows.Scan(&b.FixtureID, &b.Market, &b.Selection, &b.Odd, &b.Handicap); err != nil {
			return nil, err
		}
		s.Bets = append(s.Bets, b)
	}
	return &s, rows.Err()
}
