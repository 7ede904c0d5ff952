package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ecs-league/draftboard/internal/auth"
	"github.com/ecs-league/draftboard/internal/board"
	"github.com/ecs-league/draftboard/internal/config"
	"github.com/ecs-league/draftboard/internal/httpapi"
	"github.com/ecs-league/draftboard/internal/hub"
	"github.com/ecs-league/draftboard/internal/locks"
	"github.com/ecs-league/draftboard/internal/room"
	"github.com/ecs-league/draftboard/internal/store"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistence is optional: without a database the rooms live purely
	// in memory, which is enough for a single draft night.
	var st *store.Store
	var boards hub.BoardLoader
	var persist room.Persister
	if cfg.DatabaseURL != "" {
		db, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("open database", zap.Error(err))
		}
		st = store.New(db)
		boards = st
		persist = st
	} else {
		logger.Warn("DATABASE_URL not set, running without persistence")
		boards = hub.LoaderFunc(func(context.Context, string) (board.State, error) {
			return board.NewState(board.Rules{}), nil
		})
	}

	var lockMgr locks.Manager = locks.NewMemory()
	var kv auth.KV
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("connect to redis", zap.Error(err))
		}
		lockMgr = locks.NewRedis(rdb)
		kv = auth.NewRedisKV(rdb)
	}
	authsvc := auth.New(cfg.JWTSecret, kv)

	h := hub.NewHub(ctx, room.Deps{
		Locks:   lockMgr,
		Persist: persist,
		Log:     logger,
	})

	api := &httpapi.API{
		Hub:    h,
		Boards: boards,
		Store:  st,
		Auth:   authsvc,
		Creds:  map[string]string{cfg.AdminUser: cfg.AdminPassword},
		Log:    logger,
	}

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.Routes(cfg.AllowedOrigins),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
