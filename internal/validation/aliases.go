package validation

import "strings"

// O provedor e a cotação original nomeiam o mesmo mercado de formas
// diferentes ("Match Winner" ≡ "Fulltime Result" ≡ "1X2"). A resolução usa
// grupos de aliases; nomes fora de qualquer grupo casam por igualdade
// normalizada.

var marketAliasGroups = [][]string{
	{"Match Winner", "Fulltime Result", "1X2", "Match Result", "Full Time Result"},
	{"Second Half Winner", "2nd Half Winner"},
	{"First Half Winner", "1st Half Winner", "Halftime Result", "Half Time Result"},
	{"Goals Over/Under", "Over/Under", "Total Goals", "Over/Under Line"},
	{"Both Teams Score", "Both Teams To Score", "BTTS"},
	{"Asian Handicap", "Handicap"},
	{"Double Chance"},
	{"Exact Score", "Correct Score"},
}

var selectionAliasGroups = [][]string{
	{"Home", "1"},
	{"Draw", "X"},
	{"Away", "2"},
	{"Over"},
	{"Under"},
	{"Yes"},
	{"No"},
}

var (
	marketAliasIndex    = buildAliasIndex(marketAliasGroups)
	selectionAliasIndex = buildAliasIndex(selectionAliasGroups)
)

func buildAliasIndex(groups [][]string) map[string]int {
	idx := make(map[string]int)
	for i, group := range groups {
		for _, name := range group {
			idx[normalizeName(name)] = i
		}
	}
	return idx
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// sameMarket decide se dois nomes de mercado se referem ao mesmo mercado
func sameMarket(a, b string) bool {
	na, nb := normalizeName(a), normalizeName(b)
	if na == nb {
		return true
	}
	ga, okA := marketAliasIndex[na]
	gb, okB := marketAliasIndex[nb]
	return okA && okB && ga == gb
}

// sameSelection decide se dois rótulos apontam para a mesma seleção
func sameSelection(a, b string) bool {
	na, nb := normalizeName(a), normalizeName(b)
	if na == nb {
		return true
	}
	ga, okA := selectionAliasIndex[na]
	gb, okB := selectionAliasIndex[nb]
	return okA && okB && ga == gb
}
