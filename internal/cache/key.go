package cache

import (
	"sort"
	"strings"
)

// BuildKey monta a chave canônica "prefix|k1:v1|k2:v2|..." com parâmetros
// ordenados por nome, para que chamadas equivalentes compartilhem a mesma entrada
func BuildKey(prefix string, params map[string]string) string {
	if len(params) == 0 {
		return prefix
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(prefix)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(params[k])
	}
	return b.String()
}
