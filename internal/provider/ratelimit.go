package provider

import (
	"context"
	"sync"
	"time"
)

// pacer impõe o atraso mínimo entre requisições derivado do orçamento de
// requisições por segundo. O relógio da última chamada é protegido por mutex:
// sob goroutines concorrentes o check-then-act com campo simples deixaria
// rajadas estourarem o orçamento.
type pacer struct {
	mu       sync.Mutex
	minDelay time.Duration
	lastReq  time.Time
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

func newPacer(rps float64) *pacer {
	var delay time.Duration
	if rps > 0 {
		delay = time.Duration(float64(time.Second) / rps)
	}
	return &pacer{
		minDelay: delay,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// wait bloqueia até o atraso mínimo desde a última requisição ter passado e
// reserva o próximo slot. A reserva acontece dentro do lock, então chamadores
// concorrentes enfileiram em vez de disparar juntos.
func (p *pacer) wait(ctx context.Context) error {
	if p.minDelay <= 0 {
		return nil
	}

	for {
		p.mu.Lock()
		elapsed := p.now().Sub(p.lastReq)
		if elapsed >= p.minDelay {
			p.lastReq = p.now()
			p.mu.Unlock()
			return nil
		}
		remaining := p.minDelay - elapsed
		p.mu.Unlock()

		if err := p.sleep(ctx, remaining); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
