package main

import (
	"context"
	"errors"
	"menu-service/config"
	"menu-service/internal/auth"
	"menu-service/internal/broadcast"
	"menu-service/internal/changefeed"
	"menu-service/internal/events"
	"menu-service/internal/metrics"
	"menu-service/internal/migrate"
	"menu-service/internal/realtime"
	"menu-service/internal/repository"
	"menu-service/internal/service"
	"menu-service/internal/sweeper"
	"menu-service/internal/transport/http/handlers"
	"menu-service/internal/transport/http/router"
	"menu-service/internal/transport/http/ws"
	"menu-service/pkg/database"
	"menu-service/pkg/logger"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type hintBus interface {
	service.Broadcaster
	broadcast.Subscriber
	Close() error
}

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	if !isDev {
		gin.SetMode(gin.ReleaseMode)
	}

	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collectors := metrics.New()
	repo := repository.New(db)
	repos := service.ReposFrom(repo)

	var bus service.EventBus
	switch cfg.EventBus {
	case "kafka":
		kb := events.NewKafkaBus(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kb.Close()
		bus = kb
	case "amqp":
		ab, err := events.NewAMQPBus(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			log.Fatal("failed to connect to rabbitmq", zap.Error(err))
		}
		defer ab.Close()
		bus = ab
	}

	var hints hintBus
	switch cfg.BroadcastDriver {
	case "redis":
		rb, err := broadcast.NewRedisBroadcaster(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		hints = rb
	case "nats":
		nb, err := broadcast.NewNATSBroadcaster(cfg.NATSURL, log)
		if err != nil {
			log.Fatal("failed to connect to nats", zap.Error(err))
		}
		hints = nb
	}

	opts := []service.Option{
		service.WithStoreTimeout(cfg.StoreTimeout),
		service.WithObserver(collectors),
	}
	if hints != nil {
		defer hints.Close()
		opts = append(opts, service.WithBroadcaster(hints))
	}

	orders := service.NewOrderService(repos, service.NewCatalogPricing(repo.Products), bus, log, opts...)
	coupons := service.NewCouponService(repos, log, cfg.StoreTimeout)
	insights := service.NewInsightsService(repos, cfg.StoreTimeout)

	hub := ws.NewHub(collectors, log)
	introspector := auth.NewJWTIntrospector(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience)

	r := router.Router(router.Deps{
		Orders:       handlers.NewOrderHandler(orders, log),
		Coupons:      handlers.NewCouponHandler(coupons, log),
		Insights:     handlers.NewInsightsHandler(insights, log),
		WS:           hub.Handle,
		Metrics:      collectors.Handler(),
		Introspector: introspector,
		Log:          log,
	})
	srv := &http.Server{
		Addr:              ":" + strings.TrimPrefix(cfg.Port, ":"),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener := changefeed.NewListener(cfg.DB.URL(), migrate.ChangeFeedChannel,
		changefeed.All(changefeed.ForTable("orders"), changefeed.StatusChanged),
		hub.PublishChange, log)
	feed := realtime.NewConnectionManager(listener, realtime.ConnectionConfig{
		BaseDelay:   time.Second,
		MaxDelay:    cfg.ChangeFeedMaxDelay,
		MaxAttempts: 3,
		AutoRetry:   true,
		OnState: func(s realtime.State, attempts int) {
			log.Info("change feed state", zap.String("state", string(s)), zap.Int("attempts", attempts))
		},
	}, log)

	sched := sweeper.NewScheduler(
		sweeper.New(repo.Orders, cfg.OrphanGrace, collectors, log),
		cfg.SweepInterval, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		log.Info("Starting menu HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down menu HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return feed.Run(gctx)
	})

	if hints != nil {
		g.Go(func() error {
			unsubscribe, err := hints.Subscribe(gctx, hub.PublishHint)
			if err != nil {
				log.Warn("hint relay disabled", zap.Error(err))
				return nil
			}
			<-gctx.Done()
			unsubscribe()
			return nil
		})
	}

	g.Go(func() error {
		sched.Start(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("menu service stopped with error", zap.Error(err))
		return
	}
	log.Info("menu service stopped gracefully")
}
