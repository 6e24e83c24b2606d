package engine

import (
	"log/slog"
	"os"
	"time"

	"github.com/warden-bot/warden/automod/errorreport"
	"github.com/warden-bot/warden/automod/platform"
	"github.com/warden-bot/warden/automod/policystore"
	"github.com/warden-bot/warden/automod/raidflood"
	"github.com/warden-bot/warden/automod/ratewindow"
	"github.com/warden-bot/warden/automod/scheduler"
	"github.com/warden-bot/warden/automod/setstore"
)

type EngineTestFixture struct {
	Engine    *Engine
	Client    *platform.MockClient
	Policies  *policystore.MemStore
	Windows   *ratewindow.MemStore
	Sets      *setstore.MemSetStore
	Scheduler *scheduler.MemScheduler
}

// NewEngineTestFixture assembles an engine over in-memory backends and a mock
// platform client, pre-seeded with one community ("c1"), an enforcement-capable
// bot, and a moderation log channel. Rules default to empty; tests install
// whichever detectors they exercise.
func NewEngineTestFixture() EngineTestFixture {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	client := platform.NewMockClient()
	client.Bots["c1"] = &platform.Member{
		ID:              "bot",
		Handle:          "warden",
		TopRolePosition: 50,
	}
	client.Perms["c1/bot"] = platform.Permissions{
		ManageRoles:    true,
		ManageMessages: true,
		KickMembers:    true,
		BanMembers:     true,
		SendMessages:   true,
	}

	policies := policystore.NewMemStore()
	policies.SetAutomod("c1", &policystore.AutomodConfig{
		LogChannelID:   "log",
		DeleteMessages: true,
	})

	windows := ratewindow.NewMemStore()
	sets := setstore.NewMemSetStore()
	sched := scheduler.NewMemScheduler(logger, client)

	eng := &Engine{
		Logger:     logger,
		Rules:      RuleSet{},
		Policies:   policies,
		Windows:    windows,
		Whitelists: sets,
		Raids:      raidflood.NewTracker(),
		Platform:   client,
		Scheduler:  sched,
		Reporter:   &errorreport.LogReporter{Logger: logger},
	}
	return EngineTestFixture{
		Engine:    eng,
		Client:    client,
		Policies:  policies,
		Windows:   windows,
		Sets:      sets,
		Scheduler: sched,
	}
}

// SimpleMember registers a plain member of "c1" with message-send permissions
// and returns it.
func (f *EngineTestFixture) SimpleMember(id, handle string) *platform.Member {
	m := &platform.Member{
		ID:        id,
		Handle:    handle,
		CreatedAt: time.Now().Add(-365 * 24 * time.Hour),
	}
	f.Client.AddMember("c1", m, platform.Permissions{SendMessages: true})
	return m
}

// ExtractEffects returns the accumulated effects of a context, for tests
// driving rules directly rather than through the engine entrypoints.
func ExtractEffects(c *BaseContext) Effects {
	return *c.effects
}
