// Package redis 提供 Redis 缓存操作的封装
// 使用 github.com/redis/go-redis/v9 作为底层客户端
package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"thera_chat_server/internal/config"
	"thera_chat_server/pkg/errorx"

	"github.com/redis/go-redis/v9"
)

// redisClient 全局 Redis 客户端实例
var redisClient *redis.Client

// Init 初始化 Redis 连接
// 从配置文件读取连接参数并创建客户端实例
func Init() {
	conf := config.GetConfig()
	addr := conf.RedisConfig.Host + ":" + strconv.Itoa(conf.RedisConfig.Port)

	redisClient = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: conf.RedisConfig.Password,
		DB:       conf.RedisConfig.Db,

		// 连接池配置
		PoolSize:     50, // 最大连接数
		MinIdleConns: 15, // 最小空闲连接，与 Worker 数量匹配
	})

	// 初始化缓存更新 Worker Pool
	// 启动 15 个 Worker，缓冲区大小 3000
	InitCacheWorker(15, 3000)
}

// AsyncCacheService 异步缓存服务接口
// Service 层通过该接口做旁路缓存和异步失效，实例为 nil 时各调用方直接跳过缓存
type AsyncCacheService interface {
	// SubmitTask 提交异步缓存任务
	SubmitTask(action func())
	// GetOrError 获取键对应的值，键不存在返回 CodeNotFound 错误
	GetOrError(ctx context.Context, key string) (string, error)
	// Set 设置键值对并指定过期时间
	Set(ctx context.Context, key string, value string, timeout time.Duration) error
	// Delete 删除键（如果存在）
	Delete(ctx context.Context, key string) error
}

// cacheService AsyncCacheService 的 go-redis 实现
type cacheService struct{}

// NewAsyncCacheService 创建缓存服务实例
// 必须在 Init 之后调用
func NewAsyncCacheService() AsyncCacheService {
	return &cacheService{}
}

// SubmitTask 提交异步缓存任务（Worker Pool 入口）
func (c *cacheService) SubmitTask(action func()) {
	SubmitCacheTask(action)
}

// GetOrError 获取键对应的值（键不存在视为错误）
func (c *cacheService) GetOrError(ctx context.Context, key string) (string, error) {
	value, err := redisClient.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", errorx.Wrapf(err, errorx.CodeNotFound, "redis key %s not found", key)
		}
		return "", errorx.Wrapf(err, errorx.CodeCacheError, "redis get key %s", key)
	}
	return value, nil
}

// Set 设置键值对并指定过期时间
func (c *cacheService) Set(ctx context.Context, key string, value string, timeout time.Duration) error {
	if err := redisClient.Set(ctx, key, value, timeout).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis set key %s", key)
	}
	return nil
}

// Delete 删除键（如果存在）
// 使用 UNLINK 而非 DEL，在后台线程释放内存，不阻塞主线程
func (c *cacheService) Delete(ctx context.Context, key string) error {
	if err := redisClient.Unlink(ctx, key).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis unlink key %s", key)
	}
	return nil
}
