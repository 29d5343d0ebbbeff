package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/R-Kotenko/ImbalanceTracker/api"
	"github.com/R-Kotenko/ImbalanceTracker/internal/config"
	"github.com/R-Kotenko/ImbalanceTracker/internal/exchange/binance"
	"github.com/R-Kotenko/ImbalanceTracker/internal/gateway"
	"github.com/R-Kotenko/ImbalanceTracker/internal/imbalance"
	"github.com/R-Kotenko/ImbalanceTracker/internal/infrastructure"
	"github.com/R-Kotenko/ImbalanceTracker/internal/sink"
	"github.com/R-Kotenko/ImbalanceTracker/internal/store"
	"github.com/R-Kotenko/ImbalanceTracker/internal/trigger"
)

// App defines the application structure and its dependencies.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	NC *nats.Conn
	JS nats.JetStreamContext

	Store      *store.Store
	Sinks      *sink.Fanout
	Gateway    *gateway.Gateway
	Client     *binance.Client
	HTTPServer *http.Server
}

// NewApp loads configuration and sets up logging.
func NewApp(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	infrastructure.Init(cfg.LogLevel)

	return &App{
		Config: &cfg,
		Logger: infrastructure.Logger,
	}, nil
}

// Init wires all application components. Configuration errors (bad trigger
// operator, unknown volume mode) fail here, before anything connects.
func (a *App) Init(ctx context.Context) error {
	mode, err := imbalance.ParseMode(a.Config.Metrics.VolumeMode)
	if err != nil {
		return fmt.Errorf("failed to configure metrics: %w", err)
	}

	engine, err := trigger.NewEngine(a.triggerRules(), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to build trigger engine: %w", err)
	}

	if a.Config.NATS.URL != "" {
		nc, js, err := infrastructure.InitNATS(a.Config.NATS.URL, a.Logger)
		if err != nil {
			a.Logger.Warn("nats unavailable, bus sink disabled", zap.Error(err))
		} else {
			a.NC = nc
			a.JS = js
		}
	}

	a.Store = store.New()
	a.Sinks = sink.NewFanout(a.Logger, a.buildSinks()...)

	a.Gateway = gateway.New(
		a.Logger,
		a.Config.Gateway.QueueSize,
		[]gateway.Middleware{
			gateway.DropSubscribeAcks(),
			gateway.OnlyDepthStreams(),
		},
		[]gateway.DepthHandler{a.depthHandler(mode, engine)},
	)

	client, err := binance.NewClient(a.Logger, binance.Options{
		URL:                a.Config.Binance.WSURL,
		Pairs:              a.Config.Pairs,
		DepthStream:        a.Config.Binance.DepthStream,
		PingInterval:       secondsToDuration(a.Config.Binance.PingIntervalSec),
		PingTimeout:        secondsToDuration(a.Config.Binance.PingTimeoutSec),
		ReconnectMinDelay:  secondsToDuration(a.Config.Binance.ReconnectMinDelaySec),
		ReconnectMaxDelay:  secondsToDuration(a.Config.Binance.ReconnectMaxDelaySec),
		ReconnectBackoff:   a.Config.Binance.ReconnectBackoff,
		ReconnectJitter:    a.Config.Binance.ReconnectJitter,
		SubscribeBatchSize: a.Config.Binance.SubscribeBatchSize,
	})
	if err != nil {
		return fmt.Errorf("failed to build websocket client: %w", err)
	}
	a.Client = client

	return nil
}

// Run starts the dispatch loop, the streaming client and the HTTP server,
// then blocks until a shutdown signal.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.Gateway.Run(ctx)
	go a.Client.Run(ctx, a.Gateway.Push)

	a.Logger.Info("runner started",
		zap.Strings("pairs", a.Config.Pairs),
		zap.String("stream", a.Config.Binance.DepthStream))

	if a.Config.HTTP.Port != "" {
		a.HTTPServer = &http.Server{
			Addr:    ":" + a.Config.HTTP.Port,
			Handler: a.setupRouter(),
		}

		go func() {
			a.Logger.Info("starting http server", zap.String("port", a.Config.HTTP.Port))
			if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.Logger.Fatal("http server failed", zap.Error(err))
			}
		}()
	}

	return a.waitForShutdown(cancel)
}

// waitForShutdown handles graceful shutdown: stop enqueueing, tear down the
// connection, drain in-flight work, then close the HTTP server and the bus.
func (a *App) waitForShutdown(cancel context.CancelFunc) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	a.Logger.Info("shutting down...")

	a.Gateway.Stop()
	cancel()

	if a.HTTPServer != nil {
		sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer scancel()
		if err := a.HTTPServer.Shutdown(sctx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
	}

	if a.NC != nil {
		a.NC.Close()
	}

	return nil
}

// triggerRules converts configured rules into engine configs, applying the
// documented defaults for omitted fields.
func (a *App) triggerRules() []trigger.Config {
	rules := make([]trigger.Config, 0, len(a.Config.Triggers))
	for _, t := range a.Config.Triggers {
		rules = append(rules, trigger.Config{
			Name:     t.Name,
			Metric:   defaultString(t.Metric, imbalance.DefaultMetricName),
			Op:       trigger.Op(defaultString(t.Op, string(trigger.OpGTE))),
			Value:    decimal.NewFromFloat(t.Value),
			Cooldown: secondsToDuration(t.CooldownSec),
			Emit:     trigger.EmitMode(defaultString(t.Emit, string(trigger.EmitEdge))),
		})
	}
	return rules
}

// buildSinks resolves the configured sinks once; the pipeline only ever sees
// the Sink interface.
func (a *App) buildSinks() []sink.Sink {
	var sinks []sink.Sink

	for _, s := range a.Config.Sinks {
		switch strings.ToLower(s.Type) {
		case "logger":
			sinks = append(sinks, sink.NewLoggerSink(a.Logger, s.LogMetrics))
		default:
			a.Logger.Warn("unknown sink type", zap.String("type", s.Type))
		}
	}

	tg := a.Config.Telegram
	if tg.Enabled {
		if tg.BotToken != "" && tg.ChatID != "" {
			sinks = append(sinks, sink.NewTelegramSink(tg.BotToken, tg.ChatID))
		} else {
			a.Logger.Warn("telegram enabled, but bot_token/chat_id missing -> telegram sink disabled")
		}
	}

	if a.JS != nil {
		sinks = append(sinks, sink.NewNATSSink(a.JS))
	}

	if len(sinks) == 0 {
		sinks = append(sinks, sink.NewLoggerSink(a.Logger, false))
	}
	return sinks
}

// setupRouter configures the Gin router and its routes.
func (a *App) setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	apiHandler := api.NewHandler(a.Store, a.Logger)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/pairs", apiHandler.GetPairs)
		v1.GET("/imbalance/:pair", apiHandler.GetImbalance)
		v1.GET("/book/:pair", apiHandler.GetBook)
	}

	return r
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
