package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"Circle_Community/internal/config"
	"Circle_Community/internal/pkg"
	"Circle_Community/internal/realtime"
	"Circle_Community/internal/repository/mysql"
	"Circle_Community/internal/repository/redis"
	"Circle_Community/internal/repository/sqlite"
	"Circle_Community/internal/router"
	"Circle_Community/internal/service"
)

// stores 按配置选择 MySQL 或 SQLite，Redis 或进程内 miniredis
type stores struct {
	*mysql.Stores
	sessions service.SessionStore
	lock     service.Locker
	unread   service.UnreadCache
	closers  []func() error
}

func (s *stores) close(logger *slog.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.Warn("close store", "err", err)
		}
	}
}

func openDB(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		return sqlite.Open(cfg.Database.SQLitePath)
	case config.DriverMemory:
		logger.Warn("using in-memory sqlite; data is lost on restart")
		return sqlite.Open(sqlite.MemoryDSN)
	}
	return mysql.Open(cfg.Database.DSN)
}

func openStores(cfg *config.Config, logger *slog.Logger) (*stores, error) {
	s := &stores{}
	db, err := openDB(cfg, logger)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func() error { return mysql.Close(db) })
	// 自动建表
	if err := mysql.Migrate(db); err != nil {
		s.close(logger)
		return nil, err
	}
	s.Stores = mysql.NewStores(db)

	var rdb *goredis.Client
	if cfg.Redis.Addr == "" {
		client, closeEmbedded, err := redis.NewEmbedded()
		if err != nil {
			s.close(logger)
			return nil, err
		}
		rdb = client
		s.closers = append(s.closers, closeEmbedded)
		logger.Warn("REDIS_ADDR not set; using embedded miniredis")
	} else {
		client, err := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			s.close(logger)
			return nil, err
		}
		rdb = client
		s.closers = append(s.closers, rdb.Close)
	}
	s.sessions = redis.NewSessionRepository(rdb)
	s.lock = redis.NewDistLock(rdb)
	s.unread = redis.NewUnreadCache(rdb)
	return s, nil
}

// outboxSender 配置了 broker 就发 kafka，否则只打日志
func outboxSender(cfg *config.Config, logger *slog.Logger) (service.Sender, func() error, error) {
	if len(cfg.Outbox.Brokers) == 0 {
		return service.LogSender(logger), func() error { return nil }, nil
	}
	producer, err := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.Outbox.Brokers, Topic: cfg.Outbox.Topic})
	if err != nil {
		return nil, nil, err
	}
	return service.KafkaSender(producer), producer.Close, nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := pkg.NewLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}

	st, err := openStores(cfg, logger)
	if err != nil {
		return err
	}
	defer st.close(logger)

	hub := realtime.NewRegistry(logger)
	notes := service.NewNotificationService(st.Notifications, st.Communities, st.Users, st.lock, st.unread, logger)
	notes.SetPusher(hub)
	if cfg.MailEnabled() {
		notes.SetMailer(pkg.NewSMTPMailer(cfg.SMTP))
	}
	chats := service.NewChatService(st.Chats, st.Users, logger)
	chats.SetPusher(hub)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	engine := router.New(router.Deps{
		Users:          service.NewUserService(st.Users, st.sessions, pkg.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL), logger),
		Communities:    service.NewCommunityService(st.Communities, st.Posts, st.Users, logger),
		Posts:          service.NewPostService(st.Posts, st.Communities, logger),
		Comments:       service.NewCommentService(st.Comments, st.Posts, notes, logger),
		Votes:          service.NewVoteService(st.Votes, logger),
		Notifications:  notes,
		Chats:          chats,
		Realtime:       hub,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Registry:       registry,
		Logger:         logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sender, closeSender, err := outboxSender(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSender(); err != nil {
			logger.Warn("close outbox sender", "err", err)
		}
	}()
	go service.NewOutboxRelayer(st.Outbox, sender, cfg.Outbox.Interval, cfg.Outbox.Batch, logger).Run(ctx)
	go service.NewVoteCountReconciler(st.Votes, logger).Run(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}
