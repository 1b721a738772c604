package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"raft_chat_server/internal/config"
	"raft_chat_server/internal/dao/memory"
	dao "raft_chat_server/internal/dao/mysql"
	myredis "raft_chat_server/internal/dao/redis"
	"raft_chat_server/internal/dao/repository"
	"raft_chat_server/internal/handler"
	"raft_chat_server/internal/https_server"
	"raft_chat_server/internal/infrastructure/feed"
	"raft_chat_server/internal/infrastructure/logger"
	"raft_chat_server/internal/infrastructure/mq"
	"raft_chat_server/internal/infrastructure/notify"
	"raft_chat_server/internal/infrastructure/storage"
	"raft_chat_server/internal/service"
	"raft_chat_server/pkg/util/jwt"
	"raft_chat_server/pkg/util/snowflake"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. 加载配置
	conf := config.GetConfig()

	// 2. 初始化日志
	if err := logger.Init(&conf.LogConfig, conf.MainConfig.Mode); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer zap.L().Sync()
	zap.L().Info("日志初始化成功")
	if err := handler.InitTrans("zh"); err != nil {
		zap.L().Fatal("参数校验翻译器初始化失败", zap.Error(err))
	}

	// 3. 初始化 ID 生成器与 JWT
	snowflake.Init(conf.SnowflakeConfig.MachineID)
	jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry, conf.JWTConfig.RefreshTokenExpiry)
	zap.L().Info("JWT 初始化成功")

	// 4. 初始化数据库
	repos, err := openRepositories(&conf.DatabaseConfig)
	if err != nil {
		zap.L().Fatal("数据库初始化失败", zap.Error(err))
	}
	zap.L().Info("数据库初始化成功", zap.String("driver", conf.DatabaseConfig.Driver))

	// 5. 初始化 Redis（缓存可选，redis 推送模式下必需）
	var (
		redisClient *redis.Client
		cache       myredis.AsyncCacheService
		redisCache  *myredis.RedisCache
	)
	redisClient, err = myredis.Init(&conf.RedisConfig)
	if err != nil {
		if conf.FeedConfig.Mode == "redis" {
			zap.L().Fatal("Redis 初始化失败", zap.Error(err))
		}
		zap.L().Warn("Redis 不可用，房间列表缓存关闭", zap.Error(err))
	} else {
		redisCache = myredis.NewRedisCache(redisClient, 15, 1000)
		cache = redisCache
		zap.L().Info("Redis 初始化成功")
	}

	// 6. 初始化实时推送与通知渠道
	var changeFeed feed.Feed
	if conf.FeedConfig.Mode == "redis" {
		changeFeed = feed.NewRedisFeed(redisClient, conf.MainConfig.AppName)
	} else {
		changeFeed = feed.NewChannelFeed()
	}
	notifier, err := openNotifier(conf)
	if err != nil {
		zap.L().Fatal("通知渠道初始化失败", zap.Error(err))
	}
	zap.L().Info("推送与通知初始化成功",
		zap.String("feed", conf.FeedConfig.Mode), zap.String("notify", conf.NotifyConfig.Mode))

	// 7. 初始化 Service 与 Handler 层 (依赖注入)
	services := service.NewServices(service.Deps{
		Repos:    repos,
		Cache:    cache,
		Feed:     changeFeed,
		Notifier: notifier,
		Blobs:    storage.NewLocalStore(conf.StaticSrcConfig.StagingFilePath, conf.StaticSrcConfig.StaticFilePath, conf.StaticSrcConfig.PublicBaseUrl),
		Room:     conf.RoomConfig,
	})
	engine := https_server.Init(handler.NewHandlers(services), conf)
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port),
		Handler: engine,
	}

	// 8. 启动服务
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info("HTTP 服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if conf.KafkaConfig.Enabled {
		consumer := mq.NewTriggerConsumer(&conf.KafkaConfig, services.Room)
		g.Go(func() error {
			defer consumer.Close()
			return consumer.Start(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("关闭服务器...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zap.L().Error("服务异常退出", zap.Error(err))
	}

	// 9. 释放资源，缓存 Worker 需在 HTTP 停止后关闭
	_ = changeFeed.Close()
	_ = notifier.Close()
	if redisCache != nil {
		redisCache.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	zap.L().Info("服务器已关闭")
}

// openRepositories 按 driver 选择存储，memory 只用于本地调试
func openRepositories(conf *config.DatabaseConfig) (*repository.Repositories, error) {
	if conf.Driver == "memory" {
		return memory.NewStore().Repositories(), nil
	}
	repos, _, err := dao.Init(conf)
	return repos, err
}

func openNotifier(conf *config.Config) (notify.Notifier, error) {
	switch conf.NotifyConfig.Mode {
	case "kafka":
		return notify.NewKafkaNotifier(&conf.KafkaConfig), nil
	case "rabbitmq":
		return notify.NewRabbitMQNotifier(conf.RabbitMQConfig.Url, conf.RabbitMQConfig.Exchange, conf.MainConfig.AppName)
	default:
		return notify.NewLogNotifier(), nil
	}
}
