// Gateway event consumer: subscribes to the platform's websocket event
// stream and feeds normalized events into the moderation engine.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/semaphore"

	"github.com/warden-bot/warden/automod/engine"
)

type GatewayConsumer struct {
	Logger *slog.Logger
	Engine *engine.Engine
	// gateway hostname, with optional scheme (defaults to wss)
	Host string
	// max concurrent event executions
	Parallelism int
}

// wire envelope for gateway events
type gatewayEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	eventMessageCreate = "message_create"
	eventMessageUpdate = "message_update"
	eventMemberJoin    = "member_join"
)

// Run connects to the gateway and consumes events until the context is
// canceled, reconnecting with backoff on stream failure.
func (gc *GatewayConsumer) Run(ctx context.Context) error {
	dialURL, err := gc.dialURL()
	if err != nil {
		return err
	}

	sem := semaphore.NewWeighted(int64(gc.Parallelism))
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		gc.Logger.Info("connecting to event gateway", "url", dialURL)
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, dialURL, nil)
		if err != nil {
			gc.Logger.Warn("gateway dial failed", "err", err, "backoff", backoff)
		} else {
			backoff = time.Second
			err = gc.consume(ctx, conn, sem)
			_ = conn.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			gc.Logger.Warn("gateway stream ended", "err", err, "backoff", backoff)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > time.Minute {
			backoff = time.Minute
		}
	}
}

func (gc *GatewayConsumer) dialURL() (string, error) {
	u, err := url.Parse(gc.Host)
	if err != nil {
		return "", fmt.Errorf("invalid gateway host: %w", err)
	}
	if u.Scheme == "" {
		u, err = url.Parse("wss://" + gc.Host)
		if err != nil {
			return "", fmt.Errorf("invalid gateway host: %w", err)
		}
	}
	u.Path = "/api/v1/events"
	return u.String(), nil
}

func (gc *GatewayConsumer) consume(ctx context.Context, conn *websocket.Conn, sem *semaphore.Weighted) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var env gatewayEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			gc.Logger.Warn("malformed gateway frame", "err", err)
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		go func(env gatewayEnvelope) {
			defer sem.Release(1)
			gc.dispatch(ctx, env)
		}(env)
	}
}

// dispatch decodes and runs one event. Errors are logged, never fatal to the
// stream: one bad event must not take the consumer down.
func (gc *GatewayConsumer) dispatch(ctx context.Context, env gatewayEnvelope) {
	switch env.Type {
	case eventMessageCreate, eventMessageUpdate:
		var evt engine.MessageEvent
		if err := json.Unmarshal(env.Data, &evt); err != nil {
			gc.Logger.Warn("malformed message event", "err", err)
			return
		}
		var err error
		if env.Type == eventMessageUpdate {
			err = gc.Engine.ProcessMessageEdit(ctx, evt)
		} else {
			err = gc.Engine.ProcessMessage(ctx, evt)
		}
		if err != nil {
			gc.Logger.Error("processing message event", "err", err, "community", evt.CommunityID, "message", evt.MessageID)
		}
	case eventMemberJoin:
		var evt engine.JoinEvent
		if err := json.Unmarshal(env.Data, &evt); err != nil {
			gc.Logger.Warn("malformed join event", "err", err)
			return
		}
		if err := gc.Engine.ProcessMemberJoin(ctx, evt); err != nil {
			gc.Logger.Error("processing join event", "err", err, "community", evt.CommunityID, "member", evt.MemberID)
		}
	default:
		// ignore event types we don't moderate on
	}
}
