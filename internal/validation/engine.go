package validation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/lbarreto/live-odds-engine/internal/odds"
	"github.com/lbarreto/live-odds-engine/internal/ticket"
)

// ErrNoBets indica entrada malformada do chamador; retorna direto, sem retry
var ErrNoBets = errors.New("validation request has no bets")

// Bet é a aposta cotada anteriormente, produzida por um colaborador externo
type Bet struct {
	FixtureID int64   `json:"fixtureId"`
	Market    string  `json:"market"`
	Selection string  `json:"selection"`
	Odd       float64 `json:"odd"`
	Handicap  string  `json:"handicap,omitempty"`
	Bookmaker string  `json:"bookmaker,omitempty"`
}

type Request struct {
	Bets       []Bet  `json:"bets"`
	TicketCode string `json:"ticketCode,omitempty"`
}

// BetOutcome é o desfecho individual de uma aposta validada
type BetOutcome struct {
	Bet                  Bet     `json:"bet"`
	Code                 Code    `json:"code"`
	Message              string  `json:"message,omitempty"`
	CurrentOdd           float64 `json:"currentOdd,omitempty"`
	ChangePercent        float64 `json:"changePercent,omitempty"`
	RemainingLockSeconds int     `json:"remainingLockSeconds,omitempty"`
}

// MatchInfo é o resumo do jogo devolvido para exibição pelo chamador
type MatchInfo struct {
	FixtureID int64  `json:"fixtureId"`
	Status    string `json:"status"`
	Elapsed   int    `json:"elapsed,omitempty"`
	Score     string `json:"score,omitempty"`
	HomeTeam  string `json:"homeTeam,omitempty"`
	AwayTeam  string `json:"awayTeam,omitempty"`
}

// Result agrega os desfechos: válido só quando toda aposta foi aceita e não
// houve rejeição de bilhete
type Result struct {
	Valid     bool         `json:"valid"`
	Code      Code         `json:"code"`
	Message   string       `json:"message"`
	Accepted  []BetOutcome `json:"accepted"`
	Changes   []BetOutcome `json:"changes"`
	Closed    []BetOutcome `json:"closed"`
	Rejected  []BetOutcome `json:"rejected"`
	Errors    []BetOutcome `json:"errors"`
	MatchInfo []MatchInfo  `json:"matchInfo"`
}

// OddsSource é o recorte do cliente do provedor usado na validação
type OddsSource interface {
	FixtureStatus(ctx context.Context, fixtureID int64) (*odds.MatchStatus, error)
	LiveOdds(ctx context.Context, fixtureID int64) ([]odds.Market, error)
	PrematchOdds(ctx context.Context, fixtureID int64) ([]odds.BookmakerOdds, error)
	FixtureEvents(ctx context.Context, fixtureID int64) ([]odds.MatchEvent, error)
}

// TicketStore dá acesso read-only ao bilhete compartilhado
type TicketStore interface {
	FindByCode(ctx context.Context, code string) (*ticket.Slip, error)
}

type Tolerance struct {
	Abs float64 // diferença absoluta tolerada
	Pct float64 // diferença percentual tolerada
}

// Engine valida um conjunto de apostas contra o estado corrente do mercado.
// Os gates por jogo rodam em ordem fixa e o primeiro que falhar corta os
// demais para aquele jogo.
type Engine struct {
	log      *zap.Logger
	source   OddsSource
	tickets  TicketStore
	guard    *CriticalGuard
	selector *odds.Selector
	tol      Tolerance
	now      func() time.Time

	// Callback de métrica, ligado no main
	OnValidated func(code string)
}

func NewEngine(log *zap.Logger, src OddsSource, tickets TicketStore, guard *CriticalGuard, sel *odds.Selector, tol Tolerance) *Engine {
	if tol.Abs <= 0 {
		tol.Abs = 0.01
	}
	if tol.Pct <= 0 {
		tol.Pct = 1.0
	}
	return &Engine{
		log:      log,
		source:   src,
		tickets:  tickets,
		guard:    guard,
		selector: sel,
		tol:      tol,
		now:      time.Now,
	}
}

// Validate roda a máquina de estados completa sobre a requisição.
// Erro só para entrada malformada; desfechos de negócio sempre viram Result.
func (e *Engine) Validate(ctx context.Context, req Request) (*Result, error) {
	if len(req.Bets) == 0 {
		return nil, ErrNoBets
	}

	res := &Result{}
	defer func() {
		if e.OnValidated != nil {
			e.OnValidated(string(res.Code))
		}
	}()

	// 1. Expiração do bilhete, quando um código foi informado. Bilhete
	// expirado encerra tudo antes de qualquer fetch de odds.
	if req.TicketCode != "" {
		if expired, err := e.ticketExpired(ctx, req.TicketCode); err != nil {
			res.Code = CodeError
			res.Message = codeMessages[CodeError]
			for _, b := range req.Bets {
				res.Errors = append(res.Errors, BetOutcome{Bet: b, Code: CodeError, Message: "ticket lookup failed"})
			}
			return res, nil
		} else if expired {
			res.Code = CodeRejectedTicketExpired
			res.Message = codeMessages[CodeRejectedTicketExpired]
			for _, b := range req.Bets {
				res.Rejected = append(res.Rejected, BetOutcome{Bet: b, Code: CodeRejectedTicketExpired})
			}
			return res, nil
		}
	}

	// Apostas agrupadas por jogo; a falha de um jogo não derruba os outros
	order, grouped := groupByFixture(req.Bets)
	for _, fixtureID := range order {
		e.validateFixture(ctx, fixtureID, grouped[fixtureID], res)
	}

	e.finalize(res)
	return res, nil
}

func (e *Engine) ticketExpired(ctx context.Context, code string) (bool, error) {
	slip, err := e.tickets.FindByCode(ctx, code)
	if errors.Is(err, ticket.ErrNotFound) {
		// código desconhecido recebe o mesmo tratamento de bilhete vencido
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return slip.Expired(e.now()), nil
}

// validateFixture aplica os gates 2-5 na ordem fixa para um jogo
func (e *Engine) validateFixture(ctx context.Context, fixtureID int64, bets []Bet, res *Result) {
	// 2. Gate de status
	status, err := e.source.FixtureStatus(ctx, fixtureID)
	if err != nil || status == nil {
		e.log.Warn("fixture status unavailable", zap.Int64("fixture", fixtureID), zap.Error(err))
		appendAll(&res.Errors, bets, CodeError, "match status unavailable")
		return
	}
	res.MatchInfo = append(res.MatchInfo, MatchInfo{
		FixtureID: status.FixtureID,
		Status:    status.ShortCode,
		Elapsed:   status.Elapsed,
		Score:     status.Score,
		HomeTeam:  status.HomeTeam,
		AwayTeam:  status.AwayTeam,
	})

	switch {
	case odds.IsFinishedStatus(status.ShortCode):
		appendAll(&res.Rejected, bets, CodeRejectedMatchFinished, codeMessages[CodeRejectedMatchFinished])
		return
	case odds.IsCancelledStatus(status.ShortCode):
		appendAll(&res.Rejected, bets, CodeRejectedMatchCancelled, codeMessages[CodeRejectedMatchCancelled])
		return
	case odds.IsPostponedStatus(status.ShortCode):
		appendAll(&res.Rejected, bets, CodeRejectedMatchPostponed, codeMessages[CodeRejectedMatchPostponed])
		return
	}

	// 3. Lock de evento crítico, só relevante com o jogo em andamento
	if status.IsLive {
		matchEvents, err := e.source.FixtureEvents(ctx, fixtureID)
		if err != nil {
			// sem lances o guard decide apenas pelo lock já existente
			e.log.Debug("fixture events unavailable", zap.Int64("fixture", fixtureID), zap.Error(err))
		}
		if remaining, locked := e.guard.Check(ctx, fixtureID, matchEvents); locked {
			secs := int(math.Ceil(remaining.Seconds()))
			for _, b := range bets {
				res.Rejected = append(res.Rejected, BetOutcome{
					Bet:                  b,
					Code:                 CodeRejectedCriticalEvent,
					Message:              codeMessages[CodeRejectedCriticalEvent],
					RemainingLockSeconds: secs,
				})
			}
			return
		}
	}

	// 4. Disponibilidade de odds. Jogo ao vivo sem odds ao vivo é
	// inapostável: nunca cai para odds de pré-jogo.
	markets, err := e.currentMarkets(ctx, fixtureID, status.IsLive)
	if err != nil {
		appendAll(&res.Errors, bets, CodeError, "odds unavailable")
		return
	}
	if len(markets) == 0 {
		appendAll(&res.Closed, bets, CodeRejectedMarketClosed, codeMessages[CodeRejectedMarketClosed])
		return
	}

	// 5. Resolução e comparação por aposta, com isolamento por item
	for _, b := range bets {
		outcome := e.compareBet(b, markets)
		switch outcome.Code {
		case CodeAccepted:
			res.Accepted = append(res.Accepted, outcome)
		case CodeOddsChanged:
			res.Changes = append(res.Changes, outcome)
		case CodeRejectedMarketClosed, CodeRejectedMarketSusp:
			res.Closed = append(res.Closed, outcome)
		default:
			res.Errors = append(res.Errors, outcome)
		}
	}
}

func (e *Engine) currentMarkets(ctx context.Context, fixtureID int64, live bool) ([]odds.Market, error) {
	if live {
		return e.source.LiveOdds(ctx, fixtureID)
	}
	books, err := e.source.PrematchOdds(ctx, fixtureID)
	if err != nil {
		return nil, err
	}
	snap := e.selector.SelectUpcoming(fixtureID, books)
	if snap == nil {
		return nil, nil
	}
	return snap.Markets, nil
}

// compareBet resolve mercado e seleção via tabelas de alias e compara a odd
// cotada com a corrente dentro da tolerância
func (e *Engine) compareBet(b Bet, markets []odds.Market) BetOutcome {
	var market *odds.Market
	for i := range markets {
		if sameMarket(markets[i].Name, b.Market) {
			market = &markets[i]
			break
		}
	}
	if market == nil {
		return BetOutcome{Bet: b, Code: CodeRejectedMarketClosed, Message: "market not offered"}
	}
	if market.Suspended {
		return BetOutcome{Bet: b, Code: CodeRejectedMarketSusp, Message: codeMessages[CodeRejectedMarketSusp]}
	}

	var sel *odds.SelectionValue
	for i := range market.Values {
		v := &market.Values[i]
		if v.Suspended {
			continue
		}
		if sameSelection(v.Label, b.Selection) && v.Handicap == b.Handicap {
			sel = v
			break
		}
	}
	if sel == nil {
		return BetOutcome{Bet: b, Code: CodeRejectedMarketClosed, Message: "selection not offered"}
	}

	// percentual relativo à odd corrente, que é a base do novo preço
	delta := math.Abs(sel.Odd - b.Odd)
	percent := 0.0
	if sel.Odd != 0 {
		percent = delta / sel.Odd * 100
	}
	if delta > e.tol.Abs || percent > e.tol.Pct {
		return BetOutcome{
			Bet:           b,
			Code:          CodeOddsChanged,
			Message:       fmt.Sprintf("odd moved from %.2f to %.2f", b.Odd, sel.Odd),
			CurrentOdd:    sel.Odd,
			ChangePercent: math.Round(percent*100) / 100,
		}
	}
	return BetOutcome{Bet: b, Code: CodeAccepted, CurrentOdd: sel.Odd}
}

// finalize calcula validade geral e o código dominante da resposta
func (e *Engine) finalize(res *Result) {
	if len(res.Changes) == 0 && len(res.Closed) == 0 && len(res.Rejected) == 0 && len(res.Errors) == 0 {
		res.Valid = true
		res.Code = CodeAccepted
		res.Message = codeMessages[CodeAccepted]
		return
	}

	var codes []Code
	for _, group := range [][]BetOutcome{res.Rejected, res.Closed, res.Changes, res.Errors} {
		for _, o := range group {
			codes = append(codes, o.Code)
		}
	}
	res.Code = dominantCode(codes)
	res.Message = codeMessages[res.Code]
}

func groupByFixture(bets []Bet) ([]int64, map[int64][]Bet) {
	var order []int64
	grouped := make(map[int64][]Bet)
	for _, b := range bets {
		if _, ok := grouped[b.FixtureID]; !ok {
			order = append(order, b.FixtureID)
		}
		grouped[b.FixtureID] = append(grouped[b.FixtureID], b)
	}
	return order, grouped
}

func appendAll(dst *[]BetOutcome, bets []Bet, code Code, msg string) {
	for _, b := range bets {
		*dst = append(*dst, BetOutcome{Bet: b, Code: code, Message: msg})
	}
}
