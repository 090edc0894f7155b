package cache

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

// compressedPrefix marca valores armazenados em forma comprimida (gzip + base64).
// Valores sem o prefixo são JSON puro.
const compressedPrefix = "gz64:"

// DefaultCompressionThreshold é o tamanho serializado a partir do qual vale
// tentar compressão
const DefaultCompressionThreshold = 1024

// minCompressionGain: só mantém a forma comprimida se ela economizar mais de 10%,
// senão o custo de CPU não compensa em payloads pouco compressíveis
const minCompressionGain = 0.10

// Backend é a superfície mínima de um armazenamento chave-valor com TTL.
// A implementação de produção usa Redis; testes usam a versão em memória.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Store serializa valores em JSON e comprime payloads grandes de forma
// transparente. Indisponibilidade do backend nunca é propagada como erro de
// leitura: consumidores tratam "indisponível" e "miss" da mesma forma.
type Store struct {
	backend   Backend
	threshold int
	log       *zap.Logger
}

func NewStore(b Backend, threshold int, log *zap.Logger) *Store {
	if threshold <= 0 {
		threshold = DefaultCompressionThreshold
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{backend: b, threshold: threshold, log: log}
}

// Get busca e desserializa o valor em dst. Retorna (false, nil) tanto para
// chave ausente quanto para backend fora do ar.
func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.log.Debug("cache unavailable, treating as miss", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	if !ok {
		return false, nil
	}

	data, err := decode(raw)
	if err != nil {
		// entrada corrompida vale menos que um miss
		_ = s.backend.Del(ctx, key)
		return false, nil
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// GetRaw busca o valor sem desserializar (JSON bruto)
func (s *Store) GetRaw(ctx context.Context, key string) (json.RawMessage, bool) {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	data, err := decode(raw)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set serializa e grava o valor. Payloads acima do limiar são comprimidos e a
// forma comprimida só é mantida quando o ganho supera 10%
func (s *Store) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.backend.Set(ctx, key, encode(data, s.threshold), ttl)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.backend.Del(ctx, key)
}

// TTL expõe o tempo restante de uma chave quando o backend suporta consulta
// de expiração (usado pelo lock de eventos críticos)
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, bool) {
	type ttlBackend interface {
		TTL(ctx context.Context, key string) (time.Duration, error)
	}
	tb, ok := s.backend.(ttlBackend)
	if !ok {
		return 0, false
	}
	d, err := tb.TTL(ctx, key)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// encode decide entre JSON puro e gzip+base64 com prefixo marcador
func encode(data []byte, threshold int) string {
	if len(data) < threshold {
		return string(data)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return string(data)
	}
	if err := gz.Close(); err != nil {
		return string(data)
	}

	compressed := buf.Bytes()
	if float64(len(compressed)) > float64(len(data))*(1-minCompressionGain) {
		return string(data)
	}
	return compressedPrefix + base64.StdEncoding.EncodeToString(compressed)
}

// decode identifica a forma armazenada pelo prefixo e devolve o JSON original
func decode(raw string) ([]byte, error) {
	if len(raw) < len(compressedPrefix) || raw[:len(compressedPrefix)] != compressedPrefix {
		return []byte(raw), nil
	}

	compressed, err := base64.StdEncoding.DecodeString(raw[len(compressedPrefix):])
	if err != nil {
		return nil, err
	}
	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	return io.ReadAll(gz)
}
