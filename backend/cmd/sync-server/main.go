package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"sync-service/backend/config"
	"sync-service/backend/internal/cache"
	"sync-service/backend/internal/events"
	"sync-service/backend/internal/handler"
	"sync-service/backend/internal/httpapi/middleware"
	"sync-service/backend/internal/identity"
	"sync-service/backend/internal/mutation"
	"sync-service/backend/internal/mysqldb"
	"sync-service/backend/internal/syncservice"
	"sync-service/backend/internal/ws"
)

func main() {
	devToken := flag.Uint64("dev-token", 0, "print an access token for the given user id and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("init config failed: %v", err)
	}

	if *devToken != 0 {
		token, err := identity.SignAccessToken(cfg.Auth.JWTSecret, *devToken, fmt.Sprintf("dev-%d", *devToken), 24*time.Hour)
		if err != nil {
			log.Fatalf("sign token failed: %v", err)
		}
		fmt.Println(token)
		return
	}

	// === 租户库 ===
	opener, err := mysqldb.MySQLOpener(mysqldb.MySQLOptions{
		DSN:           cfg.Mysql.DSN,
		DBNameFormat:  cfg.Mysql.TenantDBFormat,
		AutoProvision: cfg.Mysql.AutoProvision,
		MaxOpenConns:  cfg.Mysql.MaxOpenConns,
	})
	if err != nil {
		log.Fatalf("init mysql failed: %v", err)
	}
	stores := mysqldb.NewTenantStores(opener)
	defer stores.Close()

	versions := mysqldb.NewVersionStore()
	opt := syncservice.Options{
		Stores:     stores,
		Versions:   versions,
		Clients:    mysqldb.NewClientRegistry(),
		Changes:    mysqldb.NewChangeReader(),
		Dispatcher: mutation.NewDispatcher(versions, mysqldb.NewTombstoneLog()),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// === 鉴权 ===
	var verifier identity.Verifier
	if cfg.Auth.Path != "" {
		verifier = identity.NewRemoteVerifier(cfg.Auth.Path, nil)
	} else {
		log.Printf("auth.path is empty, verifying tokens locally")
		verifier = identity.NewJWTVerifier(cfg.Auth.JWTSecret)
	}

	// === Redis：poke 广播 + token 缓存；没配置就只在本机生效 ===
	hub := ws.NewHub()
	if len(cfg.Redis.Addrs) > 0 {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    cfg.Redis.Addrs,
			Password: cfg.Redis.Password,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatalf("ping redis failed: %v", err)
		}
		defer rdb.Close()

		broker := cache.NewPokeBroker(rdb)
		if err := hub.Start(ctx, broker); err != nil {
			log.Fatalf("subscribe poke failed: %v", err)
		}
		opt.Poker = broker
		verifier = cache.NewCachedVerifier(verifier, rdb, cfg.Auth.CacheTTL)
	} else {
		opt.Poker = localPoker{hub: hub}
	}

	// === Kafka 提交事件，可选 ===
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaCfg := sarama.NewConfig()
		// SyncProducer 必须开启 Return.Successes
		kafkaCfg.Producer.Return.Successes = true
		kafkaCfg.Producer.RequiredAcks = sarama.WaitForLocal
		producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, kafkaCfg)
		if err != nil {
			log.Fatalf("connect kafka failed: %v", err)
		}
		defer producer.Close()

		dispatcher := events.NewKafkaDispatcher(producer, cfg.Kafka.Topic, events.KafkaDispatcherOptions{
			QueueSize:   10_000,
			Workers:     4,
			MaxInFlight: 8,
			MaxRetry:    3,
			BaseBackoff: 50 * time.Millisecond,
			MaxBackoff:  time.Second,
		})
		// 先于 producer.Close 执行
		defer dispatcher.Close()
		opt.Events = dispatcher
	}

	svc := syncservice.NewService(opt)
	h := handler.NewSyncHandler(svc)
	manager := ws.NewManager(hub)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// 经网关访问时网关已经加了 CORS，直连调试时再打开
	if os.Getenv("SYNC_ENABLE_CORS") == "1" {
		router.Use(cors.New(cors.Config{
			AllowOriginFunc: func(origin string) bool { return true },
			AllowMethods:    []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:   []string{"Content-Length"},
			MaxAge:          12 * time.Hour,
		}))
	}

	router.GET("/healthz", handler.Healthz)
	r := router.Group("/sync")
	r.Use(middleware.AuthMiddleware(verifier))
	{
		r.POST("/push", h.Push())
		r.POST("/pull", h.Pull())
		r.GET("/poke", manager.PokeConnect)
	}

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Running.Port), Handler: router}
	go func() {
		log.Printf("sync-server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// localPoker 单实例部署时直接推给本机的连接
type localPoker struct {
	hub *ws.Hub
}

func (p localPoker) Poke(ctx context.Context, userID uint64, version uint64) error {
	p.hub.Broadcast(userID, ws.ServerMessage{Type: ws.TypePoke, Version: version})
	return nil
}
