package service

import (
	"context"
	"time"

	"github.com/Gpcode233/Ajently/internal/model"
	"github.com/Gpcode233/Ajently/internal/service/mq"
	"github.com/Gpcode233/Ajently/internal/store"
	"github.com/Gpcode233/Ajently/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RelayService 负责将本地消息表的消息搬运到 MQ
// 发送走网络，必须在写锁外做: 先 Read 捞一批 PENDING，逐条 Publish，
// 成功的 ID 再用一个写事务批量标记 SENT。
// 标记失败下次还会再发 => At-least-once，消费端按事件引用做幂等。
type RelayService struct {
	store    *store.Store
	producer mq.Producer
	interval time.Duration
}

func NewRelayService(s *store.Store, producer mq.Producer) *RelayService {
	return &RelayService{
		store:    s,
		producer: producer,
		interval: 500 * time.Millisecond, // 500ms 轮询一次
	}
}

func (s *RelayService) Start(ctx context.Context) {
	logger.Info("[Relay] 启动消息中继服务")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[Relay] 停止服务")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *RelayService) processPendingMessages(ctx context.Context) {
	// 1. 获取一批 Pending 消息，每次取 50 条
	var messages []model.OutboxMessage
	err := s.store.Read(func(db *gorm.DB) error {
		return db.Where("status = ?", "PENDING").Order("id ASC").Limit(50).Find(&messages).Error
	})
	if err != nil {
		logger.Error("[Relay] 查询消息失败", zap.Error(err))
		return
	}
	if len(messages) == 0 {
		return
	}

	// 2. 逐条发送 (写锁外的网络 I/O)
	var sentIDs []uint64
	for _, msg := range messages {
		if err := s.producer.Publish(ctx, msg.Topic, msg.Key, msg.Payload); err != nil {
			logger.Error("[Relay] 发送消息失败", zap.Uint64("id", msg.ID), zap.Error(err))
			continue
		}
		sentIDs = append(sentIDs, msg.ID)
	}
	if len(sentIDs) == 0 {
		return
	}

	// 3. 一个写事务批量标记 SENT
	err = s.store.Write(func(tx *gorm.DB) error {
		return tx.Model(&model.OutboxMessage{}).
			Where("id IN ?", sentIDs).Update("status", "SENT").Error
	})
	if err != nil {
		logger.Error("[Relay] 更新投递状态失败", zap.Error(err))
		return
	}
	logger.Info("[Relay] 消息已投递", zap.Int("count", len(sentIDs)))
}
