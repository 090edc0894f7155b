package validation

// Code é o desfecho de negócio de uma validação. Nenhuma operação de usuário
// estoura erro cru além desta fronteira: tudo vira um código, e ERROR fica
// reservado para causas não classificáveis.
type Code string

const (
	CodeAccepted               Code = "ACCEPTED"
	CodeRejectedMatchFinished  Code = "REJECTED_MATCH_FINISHED"
	CodeRejectedMatchCancelled Code = "REJECTED_MATCH_CANCELLED"
	CodeRejectedMatchPostponed Code = "REJECTED_MATCH_POSTPONED"
	CodeRejectedMarketClosed   Code = "REJECTED_MARKET_CLOSED"
	CodeRejectedMarketSusp     Code = "REJECTED_MARKET_SUSPENDED"
	CodeOddsChanged            Code = "ODDS_CHANGED"
	CodeRejectedCriticalEvent  Code = "REJECTED_CRITICAL_EVENT"
	CodeRejectedLiveDelay      Code = "REJECTED_LIVE_DELAY"
	CodeRejectedTicketExpired  Code = "REJECTED_TICKET_EXPIRED"
	CodeError                  Code = "ERROR"
)

// codePriority ordena os códigos para escolher o dominante de uma resposta
// inválida: quanto menor, mais dominante
var codePriority = map[Code]int{
	CodeRejectedMatchFinished:  0,
	CodeRejectedMatchCancelled: 0,
	CodeRejectedMatchPostponed: 0,
	CodeRejectedCriticalEvent:  1,
	CodeRejectedLiveDelay:      1,
	CodeRejectedMarketClosed:   2,
	CodeRejectedMarketSusp:     2,
	CodeOddsChanged:            3,
	CodeRejectedTicketExpired:  4,
	CodeError:                  5,
}

// dominantCode escolhe o código de resposta de um resultado inválido
func dominantCode(codes []Code) Code {
	best := CodeError
	bestPrio := codePriority[CodeError] + 1
	for _, c := range codes {
		p, ok := codePriority[c]
		if !ok {
			continue
		}
		if p < bestPrio {
			best = c
			bestPrio = p
		}
	}
	return best
}

var codeMessages = map[Code]string{
	CodeAccepted:               "all bets accepted at current odds",
	CodeRejectedMatchFinished:  "match already finished",
	CodeRejectedMatchCancelled: "match cancelled or interrupted",
	CodeRejectedMatchPostponed: "match postponed",
	CodeRejectedMarketClosed:   "market closed or unavailable",
	CodeRejectedMarketSusp:     "market suspended",
	CodeOddsChanged:            "odds changed since the quote",
	CodeRejectedCriticalEvent:  "critical match event in progress",
	CodeRejectedLiveDelay:      "live bet delayed",
	CodeRejectedTicketExpired:  "shared ticket expired",
	CodeError:                  "validation error",
}
