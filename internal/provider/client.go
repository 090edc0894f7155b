package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lbarreto/live-odds-engine/internal/cache"
)

// Endpoints voláteis: resultado vazio em cache não vale como resposta, força
// refetch (o provedor costuma demorar a preencher estatísticas e escalações)
var volatileEndpoints = map[string]bool{
	"fixtures/statistics": true,
	"fixtures/lineups":    true,
}

type Config struct {
	BaseURL    string
	APIKey     string
	RPS        float64
	Timeout    time.Duration
	MaxRetries int
	MaxBackoff time.Duration
}

// Client consome a API do provedor de odds respeitando o orçamento de
// requisições. Toda chamada é cache-first pela chave canônica de endpoint +
// parâmetros; falha de rede devolve o último valor cacheado quando existe.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	store      *cache.Store
	log        *zap.Logger
	pacer      *pacer
	maxRetries int
	maxBackoff time.Duration
	sleep      func(ctx context.Context, d time.Duration) error

	// Flag pegajosa de esgotamento do limite diário: uma vez ligada, as
	// chamadas curto-circuitam sem ir à rede até alguém limpar (cron da meia-noite)
	dailyExhausted atomic.Bool

	// Callbacks de métricas, ligadas no main de cada serviço
	OnRequest    func(endpoint string)
	OnCacheHit   func(endpoint string)
	OnRetry429   func()
	OnDailyLimit func()
}

func NewClient(cfg Config, store *cache.Store, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 60 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		store:      store,
		log:        log,
		pacer:      newPacer(cfg.RPS),
		maxRetries: cfg.MaxRetries,
		maxBackoff: cfg.MaxBackoff,
		sleep:      sleepCtx,
	}
}

// DailyLimitReached informa se a flag de esgotamento diário está ativa
func (c *Client) DailyLimitReached() bool { return c.dailyExhausted.Load() }

// ClearDailyLimit limpa a flag; chamado pelo cron na virada do dia
func (c *Client) ClearDailyLimit() {
	if c.dailyExhausted.Swap(false) {
		c.log.Info("daily rate limit flag cleared")
	}
}

// envelope é o formato de resposta do provedor. errors vem em formatos
// diferentes conforme o endpoint (objeto, array ou string).
type envelope struct {
	Response json.RawMessage `json:"response"`
	Errors   json.RawMessage `json:"errors"`
}

// getJSON executa o fluxo completo de uma chamada: cache → rate limit →
// rede com retry de 429 → classificação de limite diário → cache do resultado.
// Retorna o array "response" cru e se veio do cache.
func (c *Client) getJSON(ctx context.Context, endpoint string, params map[string]string, ttl time.Duration) (json.RawMessage, bool, error) {
	key := cache.BuildKey("api:"+endpoint, params)

	cached, hasCached := c.store.GetRaw(ctx, key)
	if hasCached && !(volatileEndpoints[endpoint] && isEmptyResponse(cached)) {
		if c.OnCacheHit != nil {
			c.OnCacheHit(endpoint)
		}
		return cached, true, nil
	}

	if c.dailyExhausted.Load() {
		if hasCached {
			return cached, true, nil
		}
		return nil, false, ErrDailyLimitReached
	}

	if err := c.pacer.wait(ctx); err != nil {
		return nil, false, err
	}

	body, err := c.doWithRetry(ctx, endpoint, params)
	if err != nil {
		if hasCached {
			c.log.Warn("upstream call failed, serving cached value",
				zap.String("endpoint", endpoint), zap.Error(err))
			return cached, true, nil
		}
		return nil, false, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if hasCached {
			return cached, true, nil
		}
		return nil, false, &UpstreamError{Endpoint: endpoint, Err: err}
	}

	if isEmptyResponse(env.Response) && isDailyLimitMessage(env.Errors) {
		c.dailyExhausted.Store(true)
		if c.OnDailyLimit != nil {
			c.OnDailyLimit()
		}
		c.log.Warn("provider daily request limit exhausted", zap.String("endpoint", endpoint))
		if hasCached {
			return cached, true, nil
		}
		return nil, false, ErrDailyLimitReached
	}

	if !isEmptyResponse(env.Response) {
		_ = c.store.Set(ctx, key, env.Response, ttl)
	}
	if env.Response == nil {
		return json.RawMessage("[]"), false, nil
	}
	return env.Response, false, nil
}

// doWithRetry faz a requisição com até maxRetries tentativas extras em 429,
// respeitando Retry-After quando presente e backoff exponencial limitado
func (c *Client) doWithRetry(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		body, status, retryAfter, err := c.doRequest(ctx, endpoint, params)
		if err != nil {
			return nil, &UpstreamError{Endpoint: endpoint, Err: err}
		}

		if status == http.StatusTooManyRequests {
			if attempt >= c.maxRetries {
				return nil, &UpstreamError{Endpoint: endpoint, StatusCode: status}
			}
			if c.OnRetry429 != nil {
				c.OnRetry429()
			}
			delay := c.backoffDelay(attempt, retryAfter)
			c.log.Warn("provider rate limited, backing off",
				zap.String("endpoint", endpoint),
				zap.Duration("delay", delay),
				zap.Int("attempt", attempt+1))
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		if status < 200 || status > 299 {
			return nil, &UpstreamError{Endpoint: endpoint, StatusCode: status}
		}
		return body, nil
	}
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params map[string]string) (body []byte, status int, retryAfter string, err error) {
	u, err := url.Parse(c.baseURL + "/" + endpoint)
	if err != nil {
		return nil, 0, "", err
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, "", err
	}
	req.Header.Set("x-apisports-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	if c.OnRequest != nil {
		c.OnRequest(endpoint)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, "", err
	}
	return b, resp.StatusCode, resp.Header.Get("Retry-After"), nil
}

// backoffDelay prefere o atraso sugerido pelo provedor (Retry-After) e cai
// para exponencial 2^n segundos, sempre limitado a maxBackoff
func (c *Client) backoffDelay(attempt int, retryAfter string) time.Duration {
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
			d := time.Duration(secs) * time.Second
			if d > c.maxBackoff {
				return c.maxBackoff
			}
			return d
		}
	}
	d := time.Duration(1<<uint(attempt+1)) * time.Second
	if d > c.maxBackoff {
		return c.maxBackoff
	}
	return d
}

// isEmptyResponse reconhece as formas vazias do array response
func isEmptyResponse(raw json.RawMessage) bool {
	switch string(raw) {
	case "", "null", "[]", "{}":
		return true
	}
	return false
}
