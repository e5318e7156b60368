package redisrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/periodic-tables/internal/domain"
	redisx "github.com/kirinyoku/periodic-tables/internal/redis"
	"github.com/redis/go-redis/v9"
)

type ChangesPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewChangesPubSub(rdb *redis.Client) *ChangesPubSub {
	return &ChangesPubSub{
		rdb:     rdb,
		channel: redisx.ChannelChanges(),
	}
}

// ChangeMessage is the wire form of a domain.Change on the channel.
type ChangeMessage struct {
	ID     string        `json:"id"`
	TsUnix int64         `json:"ts_unix"`
	Change domain.Change `json:"change"`
}

func (p *ChangesPubSub) Publish(ctx context.Context, ch domain.Change) error {
	msg := ChangeMessage{
		ID:     uuid.NewString(),
		TsUnix: time.Now().Unix(),
		Change: ch,
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe blocks delivering messages to handler until ctx is done.
func (p *ChangesPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, msg ChangeMessage)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg ChangeMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err == nil &&
				msg.Change.Kind != "" {
				handler(ctx, msg)
			}
		}
	}
}
