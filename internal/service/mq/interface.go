package mq

import "context"

// Producer 生产者接口
// 结算引擎只生产事件 (Outbox Relay)，消费端在下游独立部署。
type Producer interface {
	// Publish 发送消息
	// key: 用于分区排序 (Partition Key)，例如 UserID。传空字符串则随机分区。
	Publish(ctx context.Context, topic string, key string, payload []byte) error

	// Close 关闭底层连接
	Close() error
}
