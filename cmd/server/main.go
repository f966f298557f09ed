package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/localgroup/localgroup-server/internal/api"
	"github.com/localgroup/localgroup-server/internal/auth"
	"github.com/localgroup/localgroup-server/internal/config"
	"github.com/localgroup/localgroup-server/internal/events"
	"github.com/localgroup/localgroup-server/internal/group"
	"github.com/localgroup/localgroup-server/internal/logger"
	"github.com/localgroup/localgroup-server/internal/place"
	"github.com/localgroup/localgroup-server/internal/relay"
	"github.com/localgroup/localgroup-server/internal/safety"
	"github.com/localgroup/localgroup-server/internal/session"
	"github.com/localgroup/localgroup-server/internal/store"
	"github.com/localgroup/localgroup-server/internal/store/memory"
	"github.com/localgroup/localgroup-server/internal/store/mongodb"
	"github.com/localgroup/localgroup-server/internal/user"
	"github.com/localgroup/localgroup-server/internal/ws"
)

func main() {
	cfgPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zlog, err := logger.New(logger.Config{Development: cfg.App.Env != "production"})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer zlog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// stores: mongo when configured, in-process otherwise
	var (
		users   store.UserStore
		groups  store.GroupStore
		places  store.PlaceStore
		safetyS store.SafetyStore
	)
	if cfg.Mongo.URI != "" {
		ms, err := mongodb.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			zlog.Fatalw("mongo connect", "err", err)
		}
		defer ms.Close(context.Background())
		users, groups, places, safetyS = ms.Users, ms.Groups, ms.Places, ms.Safety
		zlog.Infow("mongo store ready", "database", cfg.Mongo.Database)
	} else {
		users = memory.NewUserStore()
		groups = memory.NewGroupStore()
		places = memory.NewPlaceStore()
		safetyS = memory.NewSafetyStore()
		zlog.Warn("no mongo configured, using in-memory stores")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			zlog.Fatalw("redis connect", "err", err)
		}
	}

	var pub events.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
		zlog.Infow("kafka publisher ready", "topic", cfg.Kafka.TopicEvents)
	} else {
		pub = events.NewLogPublisher(zlog)
		zlog.Warn("no kafka brokers configured, events go to the log")
	}
	defer pub.Close()

	var otps auth.OTPStore
	var presence session.Presence
	if redisClient != nil {
		otps = auth.NewRedisOTPStore(redisClient, cfg.Redis.Prefix)
		presence = session.NewRedisPresence(redisClient, cfg.Redis.Prefix)
	} else {
		otps = auth.NewMemoryOTPStore()
	}

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWTTTL)
	authSvc := auth.NewService(users, otps, tokens, zlog)
	userSvc := user.NewService(users, zlog)

	var nearby place.NearbySource
	if cfg.Overpass.Enabled {
		nearby = place.NewOverpassClient(cfg.Overpass.URL, cfg.OverpassTimeout)
	}
	placeSvc := place.NewService(places, groups, nearby, zlog)

	groupSvc := group.NewService(groups, users, pub, group.Config{
		ConfirmationWindow:  cfg.ConfirmationWindow,
		ExpireBuffer:        cfg.ExpireBuffer,
		MaxActivePerCreator: cfg.Group.MaxActivePerCreator,
	}, zlog)

	registry := session.NewRegistry(presence, zlog)
	hub := relay.NewHub()
	chat := relay.NewChat(hub, groupSvc, users, zlog)
	safetySvc := safety.NewService(groupSvc, safetyS, registry, pub, zlog)

	wsHandler := ws.NewHandler(tokens, registry, chat, ws.Config{
		PingInterval:   cfg.PingInterval,
		WriteDeadline:  cfg.WriteDeadline,
		ReadDeadline:   cfg.ReadDeadline,
		MaxMessageSize: cfg.WS.MaxMessageSizeBytes,
	}, zlog)

	go group.NewScheduler(groupSvc, cfg.SchedulerInterval).Run(ctx)

	app := api.NewServer(api.Deps{
		Auth:           authSvc,
		Tokens:         tokens,
		Users:          userSvc,
		Places:         placeSvc,
		Groups:         groupSvc,
		Safety:         safetySvc,
		WS:             wsHandler,
		Redis:          redisClient,
		RedisPrefix:    cfg.Redis.Prefix,
		AuthRatePerMin: cfg.RateLimit.AuthPerMinute,
		Log:            zlog,
	})

	errs := make(chan error, 1)
	go func() {
		addr := ":" + cfg.App.Port
		zlog.Infow("server starting", "addr", addr)
		errs <- app.Listen(addr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errs:
		zlog.Fatalw("server error", "err", err)
	case s := <-sig:
		zlog.Infow("signal received", "signal", s)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zlog.Warnw("shutdown", "err", err)
	}
	zlog.Info("shut down")
}
