package stream

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lbarreto/live-odds-engine/pkg/contracts/topics"
)

// StartRedisSubscriber inicia uma goroutine que escuta os canais de broadcast
// e repassa os eventos para o Hub
//
// Funcionamento:
// - PSUBSCRIBE em odds:fixture:* alimenta os inscritos do jogo específico
// - SUBSCRIBE em odds:live:all alimenta o grupo global
func StartRedisSubscriber(ctx context.Context, r *redis.Client, hub *Hub, log *zap.Logger) {
	sub := r.PSubscribe(ctx, topics.FixtureChannelPattern)
	if err := sub.Subscribe(ctx, topics.LiveChannel); err != nil {
		log.Warn("live channel subscribe failed", zap.Error(err))
	}
	ch := sub.Channel()

	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close() // encerra a inscrição ao finalizar o contexto
				return
			case msg := <-ch:
				if msg == nil {
					continue
				}
				hub.Broadcast(topicFor(msg.Channel), json.RawMessage(msg.Payload))
			}
		}
	}()
}

// topicFor traduz o canal Redis para o tópico interno do Hub
func topicFor(channel string) string {
	if channel == topics.LiveChannel {
		return TopicLive
	}
	if id, ok := strings.CutPrefix(channel, "odds:fixture:"); ok {
		return id
	}
	return channel
}
