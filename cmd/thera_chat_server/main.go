package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"thera_chat_server/internal/config"
	dao "thera_chat_server/internal/dao/mysql"
	myredis "thera_chat_server/internal/dao/redis"
	"thera_chat_server/internal/handler"
	"thera_chat_server/internal/https_server"
	"thera_chat_server/internal/infrastructure/filestore"
	"thera_chat_server/internal/infrastructure/logger"
	"thera_chat_server/internal/service"
	"thera_chat_server/pkg/util/snowflake"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	conf := config.GetConfig()

	// 2. 初始化日志
	if err := logger.Init(&conf.LogConfig, "dev"); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	zap.L().Info("日志初始化成功")

	// 3. 初始化雪花 ID 节点
	snowflake.Init()
	zap.L().Info("雪花节点初始化成功")

	// 4. 初始化数据库
	repos := dao.Init()
	zap.L().Info("数据库初始化成功")

	// 5. 初始化 Redis 与缓存服务
	myredis.Init()
	cacheService := myredis.NewAsyncCacheService()
	zap.L().Info("Redis 初始化成功")

	// 6. 初始化 Service 层（按 messageMode 选择事件总线）
	svc := service.NewServices(repos, cacheService, conf.KafkaConfig.MessageMode)
	svc.Bus.Start()
	zap.L().Info("Service 层初始化成功", zap.String("messageMode", conf.KafkaConfig.MessageMode))

	// 7. 初始化文件存储
	store, err := filestore.NewLocalStore(conf.StaticSrcConfig.StaticFilePath)
	if err != nil {
		zap.L().Fatal("文件存储初始化失败", zap.Error(err))
	}
	zap.L().Info("文件存储初始化成功")

	// 8. 初始化参数校验翻译器
	if err := handler.InitTrans("zh"); err != nil {
		zap.L().Fatal("validator 翻译器初始化失败", zap.Error(err))
	}

	// 9. 初始化 HTTP 服务器
	handlers := handler.NewHandlers(svc, store)
	engine := https_server.Init(handlers)
	zap.L().Info("HTTP 服务器初始化成功")

	go func() {
		addr := fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port)
		if err := engine.Run(addr); err != nil {
			zap.L().Fatal("server running fault", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zap.L().Info("关闭服务器...")
	svc.Bus.Close()
	if conf.KafkaConfig.MessageMode == "kafka" {
		// kafka 模式下总线和 Hub 是两个对象，连接也要一并关闭
		svc.Hub.Close()
	}
	zap.L().Info("服务器已关闭")
}
