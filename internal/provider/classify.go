package provider

import (
	"encoding/json"
	"strings"
)

// O provedor sinaliza esgotamento do limite diário só com texto humano dentro
// de "errors", sem código estruturado. O casamento por substring fica isolado
// aqui para ser trocado quando o fornecedor mudar a redação.
var dailyLimitFragments = []string{
	"request limit for the day",
	"daily quota",
	"limit of requests per day",
}

// isDailyLimitMessage identifica a mensagem de limite diário no campo errors,
// que pode vir como objeto, array ou string dependendo do endpoint
func isDailyLimitMessage(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}

	for _, msg := range errorMessages(raw) {
		lower := strings.ToLower(msg)
		for _, frag := range dailyLimitFragments {
			if strings.Contains(lower, frag) {
				return true
			}
		}
	}
	return false
}

// errorMessages achata as formas conhecidas do campo errors em uma lista de
// strings. Formas desconhecidas são ignoradas.
func errorMessages(raw json.RawMessage) []string {
	var asMap map[string]string
	if err := json.Unmarshal(raw, &asMap); err == nil {
		out := make([]string, 0, len(asMap))
		for _, v := range asMap {
			out = append(out, v)
		}
		return out
	}

	var asList []string
	if err := json.Unmarshal(raw, &asList); err == nil {
		return asList
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil && asString != "" {
		return []string{asString}
	}

	return nil
}
