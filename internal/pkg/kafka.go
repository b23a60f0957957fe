package pkg

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// DefaultModerationTopic 社区治理事件的默认 topic
const DefaultModerationTopic = "community.moderation"

// 消息头：消费方不用解包 value 就能按事件类型路由、按 outbox id 去重
const (
	HeaderEventType = "event-type"
	HeaderOutboxID  = "outbox-id"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// ModerationMessage 一条 outbox 记录对应的 kafka 消息
type ModerationMessage struct {
	OutboxID    uint64
	CommunityID uint64
	EventType   string
	Body        []byte
}

// KafkaProducer 治理事件生产者，按社区 id 分区，同一社区的事件有序
type KafkaProducer struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaProducer(cfg KafkaConfig) (*KafkaProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultModerationTopic
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond, // relayer 同步逐条发送，默认 1s 攒批太慢
		Async:        false,
	}
	return &KafkaProducer{writer: w, topic: cfg.Topic}, nil
}

func (p *KafkaProducer) Topic() string {
	return p.topic
}

func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// Publish 同步写入，全部副本确认才返回
func (p *KafkaProducer) Publish(ctx context.Context, msgs ...ModerationMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.kafkaMessage())
	}
	return p.writer.WriteMessages(ctx, out...)
}

func (m ModerationMessage) kafkaMessage() kafka.Message {
	return kafka.Message{
		Key:   []byte(strconv.FormatUint(m.CommunityID, 10)),
		Value: m.Body,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(m.EventType)},
			{Key: HeaderOutboxID, Value: []byte(strconv.FormatUint(m.OutboxID, 10))},
		},
	}
}
