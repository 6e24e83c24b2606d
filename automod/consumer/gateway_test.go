package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warden-bot/warden/automod/engine"
	"github.com/warden-bot/warden/automod/policystore"
)

func TestDispatchRoutesEventTypes(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fix := engine.NewEngineTestFixture()
	var messages, joins int
	fix.Engine.Rules = engine.RuleSet{
		MessageRules: []engine.MessageRuleFunc{func(c *engine.MessageContext) error {
			messages++
			return nil
		}},
		JoinRules: []engine.JoinRuleFunc{func(c *engine.JoinContext) error {
			joins++
			return nil
		}},
	}
	fix.SimpleMember("alice", "alice")
	fix.Policies.SetRaidMode("c1", &policystore.RaidPolicy{Action: policystore.RaidKickAll})

	gc := GatewayConsumer{
		Logger: slog.New(slog.NewJSONHandler(os.Stdout, nil)),
		Engine: fix.Engine,
	}

	frame := func(typ string, data any) gatewayEnvelope {
		raw, err := json.Marshal(data)
		assert.NoError(err)
		return gatewayEnvelope{Type: typ, Data: raw}
	}

	gc.dispatch(ctx, frame(eventMessageCreate, engine.MessageEvent{
		CommunityID: "c1", ChannelID: "general", MessageID: "m1", AuthorID: "alice", Content: "hi",
	}))
	assert.Equal(1, messages)

	gc.dispatch(ctx, frame(eventMemberJoin, engine.JoinEvent{
		CommunityID: "c1", EventID: "b1", MemberID: "newbie",
	}))
	assert.Equal(1, joins)

	// unknown types and malformed payloads are dropped quietly
	gc.dispatch(ctx, frame("presence_update", map[string]string{"user": "alice"}))
	gc.dispatch(ctx, gatewayEnvelope{Type: eventMessageCreate, Data: json.RawMessage(`{broken`)})
	assert.Equal(1, messages)
	assert.Equal(1, joins)
}

func TestDialURLDefaultsScheme(t *testing.T) {
	assert := assert.New(t)

	gc := GatewayConsumer{Host: "gateway.chat.example.com"}
	u, err := gc.dialURL()
	assert.NoError(err)
	assert.Equal("wss://gateway.chat.example.com/api/v1/events", u)

	gc.Host = "ws://localhost:9000"
	u, err = gc.dialURL()
	assert.NoError(err)
	assert.Equal("ws://localhost:9000/api/v1/events", u)
}
