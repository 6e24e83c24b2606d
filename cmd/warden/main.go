package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cli "github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/warden-bot/warden/automod/consumer"
	"github.com/warden-bot/warden/automod/engine"
	"github.com/warden-bot/warden/automod/errorreport"
	"github.com/warden-bot/warden/automod/platform"
	"github.com/warden-bot/warden/automod/policystore"
	"github.com/warden-bot/warden/automod/raidflood"
	"github.com/warden-bot/warden/automod/ratewindow"
	"github.com/warden-bot/warden/automod/rules"
	"github.com/warden-bot/warden/automod/scheduler"
	"github.com/warden-bot/warden/automod/setstore"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "warden",
		Usage:   "chat moderation daemon",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "gateway-host",
			Usage:   "hostname and port of the event gateway to subscribe to",
			Value:   "wss://gateway.chat.example.com",
			EnvVars: []string{"WARDEN_GATEWAY_HOST"},
		},
		&cli.StringFlag{
			Name:    "platform-host",
			Usage:   "method, hostname, and port of the platform REST API",
			Value:   "https://api.chat.example.com",
			EnvVars: []string{"WARDEN_PLATFORM_HOST"},
		},
		&cli.StringFlag{
			Name:    "platform-token",
			Usage:   "bot auth token for the platform REST API",
			EnvVars: []string{"WARDEN_PLATFORM_TOKEN"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for rate windows, policy, and whitelists; empty means in-memory",
			EnvVars: []string{"WARDEN_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "error-webhook-url",
			Usage:   "incoming-webhook URL for operator error reports",
			EnvVars: []string{"WARDEN_ERROR_WEBHOOK_URL"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3989",
			EnvVars: []string{"WARDEN_METRICS_LISTEN"},
		},
		&cli.IntFlag{
			Name:    "platform-rate-limit",
			Usage:   "max number of requests per second to the platform REST API",
			Value:   40,
			EnvVars: []string{"WARDEN_PLATFORM_RATE_LIMIT"},
		},
		&cli.IntFlag{
			Name:    "parallelism",
			Usage:   "max concurrent event executions",
			Value:   16,
			EnvVars: []string{"WARDEN_PARALLELISM"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		// Enable OTLP HTTP exporter
		// For relevant environment variables:
		// https://pkg.go.dev/go.opentelemetry.io/otel/exporters/otlp/otlptrace#readme-environment-variables
		// At a minimum, you need to set
		// OTEL_EXPORTER_OTLP_ENDPOINT=http://localhost:4318
		if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
			slog.Info("setting up trace exporter", "endpoint", ep)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			exp, err := otlptracehttp.New(ctx)
			if err != nil {
				log.Fatal("failed to create trace exporter", "error", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := exp.Shutdown(ctx); err != nil {
					slog.Error("failed to shutdown trace exporter", "error", err)
				}
			}()

			tp := tracesdk.NewTracerProvider(
				tracesdk.WithBatcher(exp),
				tracesdk.WithResource(resource.NewWithAttributes(
					semconv.SchemaURL,
					semconv.ServiceNameKey.String("warden"),
					attribute.String("env", os.Getenv("ENVIRONMENT")),         // DataDog
					attribute.String("environment", os.Getenv("ENVIRONMENT")), // Others
					attribute.Int64("ID", 1),
				)),
			)
			otel.SetTracerProvider(tp)
		}

		client := platform.NewHTTPClient(
			cctx.String("platform-host"),
			cctx.String("platform-token"),
			cctx.Int("platform-rate-limit"),
		)

		windows, policies, whitelists, err := setupStores(ctx, cctx.String("redis-url"))
		if err != nil {
			return err
		}

		var reporter errorreport.Reporter = &errorreport.LogReporter{Logger: logger}
		if url := cctx.String("error-webhook-url"); url != "" {
			reporter = &errorreport.WebhookReporter{Logger: logger, WebhookURL: url}
		}

		eng := &engine.Engine{
			Logger:     logger,
			Rules:      rules.DefaultRules(),
			Policies:   policies,
			Windows:    windows,
			Whitelists: whitelists,
			Raids:      raidflood.NewTracker(),
			Platform:   client,
			Scheduler:  scheduler.NewMemScheduler(logger, client),
			Reporter:   reporter,
		}

		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cctx.String("metrics-listen"), mux); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		gc := consumer.GatewayConsumer{
			Logger:      logger,
			Engine:      eng,
			Host:        cctx.String("gateway-host"),
			Parallelism: cctx.Int("parallelism"),
		}
		if err := gc.Run(ctx); err != nil {
			return fmt.Errorf("failed to run moderation service: %w", err)
		}
		return nil
	},
}

// setupStores wires the engine's backing stores: redis when a URL is
// configured, process-local memory otherwise (suitable for single-instance
// deployments and development).
func setupStores(ctx context.Context, redisURL string) (ratewindow.Store, policystore.Store, setstore.SetStore, error) {
	if redisURL == "" {
		windows := ratewindow.NewMemStore()
		// StartJanitor blocks until ctx is done; it gets its own goroutine
		go windows.StartJanitor(ctx, time.Minute, 10*time.Minute)
		return windows, policystore.NewMemStore(), setstore.NewMemSetStore(), nil
	}

	windows, err := ratewindow.NewRedisStore(redisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connecting rate window store: %w", err)
	}
	policies, err := policystore.NewRedisStore(redisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connecting policy store: %w", err)
	}
	whitelists, err := setstore.NewRedisSetStore(redisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connecting whitelist store: %w", err)
	}
	// policy reads happen on every event; cache them briefly
	cached := policystore.NewCachedStore(policies, 20_000, 30*time.Second)
	return windows, cached, whitelists, nil
}
