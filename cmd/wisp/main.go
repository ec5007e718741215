package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gofiber/fiber/v2"
	fiberredis "github.com/gofiber/storage/redis/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sraza0098/wisp-backend/internal/api"
	"github.com/sraza0098/wisp-backend/internal/auth"
	"github.com/sraza0098/wisp-backend/internal/config"
	"github.com/sraza0098/wisp-backend/internal/logging"
	"github.com/sraza0098/wisp-backend/internal/presence"
	"github.com/sraza0098/wisp-backend/internal/relay"
	"github.com/sraza0098/wisp-backend/internal/store"
	"github.com/sraza0098/wisp-backend/internal/upload"
	"github.com/sraza0098/wisp-backend/internal/ws"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// --- Store + Redis ---
	var (
		st  store.Store
		rdb *redis.Client
	)
	g, gctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		s, err := openStore(gctx, cfg.Database, logger.Named("store"))
		st = s
		return err
	})
	if cfg.Redis.Enabled {
		g.Go(func() error {
			c, err := connectRedis(gctx, cfg.Redis, logger.Named("redis"))
			rdb = c
			return err
		})
	}
	if err := g.Wait(); err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}

	// --- Auth ---
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	if err != nil {
		logger.Fatal("token manager", zap.Error(err))
	}
	var revoker auth.Revoker = auth.NopRevoker{}
	if rdb != nil {
		revoker = auth.NewRedisRevoker(rdb)
	}
	var verifiers []auth.Verifier
	if cfg.OAuth.GoogleClientID != "" {
		verifiers = append(verifiers, auth.NewGoogleVerifier(cfg.OAuth.GoogleClientID, ""))
	}
	if cfg.OAuth.FacebookAppID != "" {
		verifiers = append(verifiers, auth.NewFacebookVerifier(cfg.OAuth.FacebookAppID, ""))
	}
	authSvc := auth.NewService(st, auth.NewHasher(cfg.Auth.BcryptCost), tokens, revoker, logger.Named("auth"), verifiers...)

	// --- Relay + presence ---
	typing := presence.NewTyping(time.Duration(cfg.Realtime.TypingTTLSeconds) * time.Second)
	opts := []relay.Option{relay.WithObserver(typing)}

	mirrorCtx, stopMirror := context.WithCancel(context.Background())
	mirrorDone := make(chan struct{})
	var mirror *presence.Mirror
	if rdb != nil {
		mirror = presence.NewMirror(rdb, cfg.Presence.TTL(), cfg.Presence.Tick(), logger.Named("presence"))
		opts = append(opts, relay.WithObserver(mirror))
		go func() {
			defer close(mirrorDone)
			mirror.Run(mirrorCtx)
		}()
	} else {
		close(mirrorDone)
	}
	hub := relay.New(logger.Named("relay"), opts...)

	// --- HTTP ---
	var uploader upload.Uploader = upload.Nop{}
	if cfg.Cloudinary.Enabled() {
		uploader = upload.NewCloudinary(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret, cfg.Cloudinary.Folder)
	}
	deps := api.Deps{
		Config:   cfg,
		Store:    st,
		Auth:     authSvc,
		Relay:    hub,
		Typing:   typing,
		Uploader: uploader,
		WS: ws.NewHandler(hub, authSvc, ws.Config{
			RequireToken: cfg.Realtime.RequireToken,
			SendBuffer:   cfg.Realtime.SendBuffer,
		}, logger.Named("ws")),
		Log: logger.Named("api"),
	}
	var limiterStore *fiberredis.Storage
	if rdb != nil {
		deps.LastSeen = mirror
		limiterStore = newLimiterStorage(cfg.Redis)
		deps.LimiterStorage = limiterStore
	}
	app := api.New(deps)

	go func() {
		addr := ":" + strconv.Itoa(cfg.Server.Port)
		logger.Info("listening", zap.String("addr", addr), zap.String("version", cfg.Server.Version))
		if err := app.Listen(addr); err != nil {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	// ---- Shutdown ----
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"wisp": func(ctx context.Context) error {
				logger.Info("shutting down")
				return shutdown(ctx, app, hub, stopMirror, mirrorDone, st, rdb, limiterStore)
			},
		},
	)

	code := <-wait
	logger.Info("exited", zap.Int("code", code))
	_ = logger.Sync()
	os.Exit(code)
}

// shutdown stops intake first, then drains state, then closes backends.
func shutdown(ctx context.Context, app *fiber.App, hub *relay.Relay, stopMirror context.CancelFunc,
	mirrorDone <-chan struct{}, st store.Store, rdb *redis.Client, limiterStore *fiberredis.Storage) error {
	var errs []string
	hub.Close()
	if err := app.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, "http: "+err.Error())
	}

	stopMirror()
	select {
	case <-mirrorDone:
	case <-ctx.Done():
		errs = append(errs, "presence: flush timed out")
	}

	if err := st.Close(); err != nil {
		errs = append(errs, "store: "+err.Error())
	}
	if limiterStore != nil {
		if err := limiterStore.Close(); err != nil {
			errs = append(errs, "limiter: "+err.Error())
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			errs = append(errs, "redis: "+err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown: %s", strings.Join(errs, "; "))
	}
	return nil
}

// newLimiterStorage backs the auth rate limiter with Redis so limits hold across instances.
func newLimiterStorage(cfg config.RedisConfig) *fiberredis.Storage {
	return fiberredis.New(fiberredis.Config{
		Addrs:    []string{cfg.Addr},
		Password: cfg.Password,
		Database: cfg.DB,
	})
}
