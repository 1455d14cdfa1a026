package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gpcode233/Ajently/internal/event"
	"github.com/Gpcode233/Ajently/internal/model"
	"github.com/Gpcode233/Ajently/internal/service/chain"
	"github.com/Gpcode233/Ajently/internal/store"
	"github.com/Gpcode233/Ajently/pkg/errno"
	"github.com/Gpcode233/Ajently/pkg/monitor"
	"github.com/Gpcode233/Ajently/pkg/safe_random"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TopupService 充值订单状态机
// pending -> completed | failed，终态不可再变。
// ProviderReference 是幂等键: webhook 重放、链上交易重复提交都落到同一张订单。
type TopupService struct {
	store    *store.Store
	verifier *chain.Verifier // 可为 nil (未配置金库地址时链上充值不可用)
}

func NewTopupService(s *store.Store, verifier *chain.Verifier) *TopupService {
	return &TopupService{store: s, verifier: verifier}
}

// CreateTopupOrder 创建一张 pending 订单并生成唯一的对外引用号
func (s *TopupService) CreateTopupOrder(userID uint64, rail, currency string, amount, credits decimal.Decimal) (*model.TopupOrder, error) {
	ref, err := safe_random.GenerateRandomHexString(12)
	if err != nil {
		return nil, err
	}

	order := model.TopupOrder{
		UserID:            userID,
		Rail:              rail,
		Currency:          currency,
		Amount:            amount,
		Credits:           credits,
		Status:            model.TopupStatusPending,
		ProviderReference: "topup_" + ref,
	}
	err = s.store.Write(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return errno.ErrUserNotFound
		}
		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Reconcile 按支付方回执推进订单状态 (webhook / 模拟入口共用)。
// 幂等: 订单已在终态时不做任何变更，原样返回。
// completed 时入账与状态推进在同一事务; failed 只改状态，不动余额。
func (s *TopupService) Reconcile(providerReference, outcome, note string) (*model.TopupOrder, error) {
	var order model.TopupOrder
	transitioned := false
	err := s.store.Write(func(tx *gorm.DB) error {
		transitioned = false
		if err := tx.Where("provider_reference = ?", providerReference).
			First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errno.ErrOrderNotFound
			}
			return err
		}

		// 终态订单: 重放回执是正常现象，直接返回当前状态
		if order.Status != model.TopupStatusPending {
			return nil
		}
		transitioned = true

		now := time.Now()
		if note != "" {
			order.Note = note
		}
		switch outcome {
		case model.TopupStatusCompleted:
			if _, err := applyLedger(tx, order.UserID, model.LedgerKindTopup,
				order.Credits, model.ReferenceTypeTopup, order.ID, order.Rail); err != nil {
				return err
			}
			order.Status = model.TopupStatusCompleted
			order.CompletedAt = &now
			if err := tx.Save(&order).Error; err != nil {
				return err
			}
			return appendOutbox(tx, event.SettlementEvent{
				Type:          event.TypeTopupCompleted,
				UserID:        order.UserID,
				Amount:        order.Credits.String(),
				ReferenceType: model.ReferenceTypeTopup,
				ReferenceID:   order.ID,
			})
		case model.TopupStatusFailed:
			order.Status = model.TopupStatusFailed
			order.CompletedAt = &now
			if err := tx.Save(&order).Error; err != nil {
				return err
			}
			return appendOutbox(tx, event.SettlementEvent{
				Type:          event.TypeTopupFailed,
				UserID:        order.UserID,
				ReferenceType: model.ReferenceTypeTopup,
				ReferenceID:   order.ID,
			})
		default:
			return fmt.Errorf("未知的回执结果: %q", outcome)
		}
	})
	if err != nil {
		return nil, err
	}

	if transitioned && monitor.Business != nil {
		switch order.Status {
		case model.TopupStatusCompleted:
			monitor.Business.TopupsCompletedTotal.WithLabelValues(order.Rail).Inc()
		case model.TopupStatusFailed:
			monitor.Business.TopupsFailedTotal.WithLabelValues(order.Rail).Inc()
		}
	}
	return &order, nil
}

// CompleteOnchain 用一笔链上原生转账直接完成充值。
// 交易哈希就是幂等键: 同一笔交易重复提交返回已有订单，不再入账。
// 核验走 RPC，必须在进入写事务之前做完。
func (s *TopupService) CompleteOnchain(ctx context.Context, userID uint64, txHash string, chainID int64, fromAddress, currency string, expectedAmount decimal.Decimal) (*model.TopupOrder, bool, error) {
	if s.verifier == nil {
		return nil, false, errno.ErrVerificationFailed.WithMessage("Onchain top-up is not configured")
	}

	// 先核验，后进队列。核验失败不产生任何状态变更。
	transfer, err := s.verifier.Verify(ctx, chain.VerifyParams{
		TxHash:         txHash,
		ChainID:        chainID,
		FromAddress:    fromAddress,
		ExpectedAmount: expectedAmount,
	})
	if err != nil {
		return nil, false, err
	}

	var order model.TopupOrder
	created := false
	err = s.store.Write(func(tx *gorm.DB) error {
		created = false
		// 队列里排在前面的提交可能已经记过这笔交易
		if err := tx.Where("provider_reference = ?", txHash).
			First(&order).Error; err == nil {
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// 申报币种透传到订单；没报就按主网原生币记
		if currency == "" {
			currency = "ETH"
		}

		now := time.Now()
		order = model.TopupOrder{
			UserID:            userID,
			Rail:              model.TopupRailOnchain,
			Currency:          currency,
			Amount:            transfer.Amount,
			Credits:           transfer.Amount, // 原生转账 1 ether = 1 credit
			Status:            model.TopupStatusCompleted,
			ProviderReference: txHash,
			Note:              transfer.From,
			CompletedAt:       &now,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		created = true

		if _, err := applyLedger(tx, userID, model.LedgerKindTopup,
			order.Credits, model.ReferenceTypeTopup, order.ID, order.Rail); err != nil {
			return err
		}
		return appendOutbox(tx, event.SettlementEvent{
			Type:          event.TypeTopupCompleted,
			UserID:        userID,
			Amount:        order.Credits.String(),
			ReferenceType: model.ReferenceTypeTopup,
			ReferenceID:   order.ID,
		})
	})
	if err != nil {
		return nil, false, err
	}

	if created && monitor.Business != nil {
		monitor.Business.TopupsCompletedTotal.WithLabelValues(model.TopupRailOnchain).Inc()
	}
	return &order, created, nil
}

// GetOrderByID 查询订单
func (s *TopupService) GetOrderByID(orderID uint64) (*model.TopupOrder, error) {
	var order model.TopupOrder
	err := s.store.Read(func(db *gorm.DB) error {
		return db.First(&order, orderID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errno.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// ListOrders 用户的充值订单，按时间倒序
func (s *TopupService) ListOrders(userID uint64, limit int) ([]model.TopupOrder, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var orders []model.TopupOrder
	err := s.store.Read(func(db *gorm.DB) error {
		return db.Where("user_id = ?", userID).
			Order("id DESC").Limit(limit).Find(&orders).Error
	})
	return orders, err
}
