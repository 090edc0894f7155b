package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	sharedkafka "github.com/lbarreto/live-odds-engine/internal/shared/kafka"
	"github.com/lbarreto/live-odds-engine/pkg/contracts/events"
	"github.com/lbarreto/live-odds-engine/pkg/contracts/topics"
)

// publishTimeout limita cada publish; broadcast é fire-and-forget e não pode
// segurar o loop de refresh
const publishTimeout = 500 * time.Millisecond

// Broadcaster faz fan-out de eventos de odds e status para dois grupos:
// o canal do jogo específico e o canal global de jogos ao vivo. Entrega é
// at-most-once, sem confirmação nem retry; a ordem só é preservada dentro
// do stream de um mesmo jogo.
type Broadcaster struct {
	rdb   *redis.Client
	kafka *sharedkafka.Writer // histórico de mudanças; opcional
	log   *zap.Logger
}

func New(rdb *redis.Client, kw *sharedkafka.Writer, log *zap.Logger) *Broadcaster {
	return &Broadcaster{rdb: rdb, kafka: kw, log: log}
}

// PublishOddsChange publica o evento nos dois canais Pub/Sub e anexa ao
// tópico Kafka de histórico quando configurado
func (b *Broadcaster) PublishOddsChange(ctx context.Context, fixtureID int64, ev events.OddsChange) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.log.Warn("odds change marshal failed", zap.Error(err))
		return
	}

	b.publish(ctx, fixtureID, payload)

	if b.kafka != nil {
		kctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := sharedkafka.WriteJSON(kctx, b.kafka, topics.FixtureChannel(fixtureID), payload); err != nil {
			b.log.Warn("kafka odds change write failed", zap.Int64("fixture", fixtureID), zap.Error(err))
		}
	}
}

// PublishStatusChange publica mudança de status/placar nos dois canais
func (b *Broadcaster) PublishStatusChange(ctx context.Context, fixtureID int64, ev events.StatusChange) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.log.Warn("status change marshal failed", zap.Error(err))
		return
	}
	b.publish(ctx, fixtureID, payload)
}

func (b *Broadcaster) publish(ctx context.Context, fixtureID int64, payload []byte) {
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := b.rdb.Publish(pctx, topics.FixtureChannel(fixtureID), payload).Err(); err != nil {
		b.log.Warn("fixture channel publish failed", zap.Int64("fixture", fixtureID), zap.Error(err))
	}
	if err := b.rdb.Publish(pctx, topics.LiveChannel, payload).Err(); err != nil {
		b.log.Warn("live channel publish failed", zap.Error(err))
	}
}
