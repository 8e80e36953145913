// Package chat 实现实时聊天的核心服务层
// kafka_bus.go
// 核心职责：Kafka 模式的事件总线
// 1. 封装 Kafka 底层连接 (Writer/Reader)，发布序列化后的事件信封
// 2. 消费协程把事件交回本地 Hub 扇出
// 3. 每个实例使用独立的消费组，保证事件广播到所有实例
package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	myconfig "thera_chat_server/internal/config"
)

// KafkaBus Kafka 事件总线
type KafkaBus struct {
	Producer *kafka.Writer
	Consumer *kafka.Reader

	hub    *Hub
	cancel context.CancelFunc
}

// NewKafkaBus 创建 Kafka 事件总线并初始化连接
// 消费组带实例随机后缀：每个实例都完整消费一遍事件流，
// 各自向本地在线连接扇出，实现跨实例广播
func NewKafkaBus(hub *Hub) *KafkaBus {
	kafkaConfig := myconfig.GetConfig().KafkaConfig
	return &KafkaBus{
		Producer: &kafka.Writer{
			Addr:                   kafka.TCP(kafkaConfig.HostPort),
			Topic:                  kafkaConfig.ChatTopic,
			Balancer:               &kafka.Hash{},
			WriteTimeout:           kafkaConfig.Timeout * time.Second,
			RequiredAcks:           kafka.RequireNone,
			AllowAutoTopicCreation: false,
		},
		Consumer: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        []string{kafkaConfig.HostPort},
			Topic:          kafkaConfig.ChatTopic,
			CommitInterval: kafkaConfig.Timeout * time.Second,
			GroupID:        "thera_chat_" + uuid.NewString(),
			StartOffset:    kafka.LastOffset,
		}),
		hub: hub,
	}
}

// Publish 把事件信封写入 Kafka
// Key 为频道名：同一频道的事件落在同一分区，保持频道内有序
func (b *KafkaBus) Publish(ctx context.Context, channel, event string, payload any) error {
	data, err := NewEnvelope(channel, event, payload)
	if err != nil {
		return err
	}
	return b.Producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(channel),
		Value: data,
	})
}

// Start 启动消费循环
func (b *KafkaBus) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	go func() {
		zap.L().Info("kafka 消费循环启动")
		for {
			msg, err := b.Consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				zap.L().Error("kafka 读取消息失败", zap.Error(err))
				continue
			}
			b.hub.Deliver(string(msg.Key), msg.Value)
		}
	}()
}

// Close 关闭 Kafka 资源
func (b *KafkaBus) Close() {
	if b.cancel != nil {
		b.cancel()
	}
	if err := b.Producer.Close(); err != nil {
		zap.L().Error(err.Error())
	}
	if err := b.Consumer.Close(); err != nil {
		zap.L().Error(err.Error())
	}
}
