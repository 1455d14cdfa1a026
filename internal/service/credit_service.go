package service

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/Gpcode233/Ajently/internal/event"
	"github.com/Gpcode233/Ajently/internal/model"
	"github.com/Gpcode233/Ajently/internal/store"
	"github.com/Gpcode233/Ajently/pkg/errno"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreditService 信用账本服务
// applyLedger 是全系统唯一的余额变更入口: 充值、扣费、人工调整都经过它，
// 余额缓存与账本流水在同一写事务内落库，任何路径都不允许把余额扣成负数。
type CreditService struct {
	store *store.Store
}

func NewCreditService(s *store.Store) *CreditService {
	return &CreditService{store: s}
}

// CreditStats 余额汇总视图
type CreditStats struct {
	Remaining decimal.Decimal `json:"remaining"`
	Used      decimal.Decimal `json:"used"`      // 累计扣费 (绝对值)
	ToppedUp  decimal.Decimal `json:"topped_up"` // 累计充值入账
}

// applyLedger 在事务 tx 内给用户记一笔流水并同步余额缓存。
// amount 正数入账，负数扣费。扣到负数直接拒绝，事务回滚。
// 只能在 store.Write 的闭包内调用。
func applyLedger(tx *gorm.DB, userID uint64, kind string, amount decimal.Decimal, refType string, refID uint64, note string) (decimal.Decimal, error) {
	var user model.User
	if err := tx.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, errno.ErrUserNotFound
		}
		return decimal.Zero, err
	}

	newBalance := user.Credits.Add(amount)
	if newBalance.IsNegative() {
		return decimal.Zero, errno.ErrInsufficientCredits
	}

	entry := model.LedgerEntry{
		UserID:        userID,
		Kind:          kind,
		Amount:        amount,
		ReferenceType: refType,
		ReferenceID:   refID,
		Note:          note,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return decimal.Zero, err
	}

	if err := tx.Model(&model.User{}).Where("id = ?", userID).
		Update("credits", newBalance).Error; err != nil {
		return decimal.Zero, err
	}

	return newBalance, nil
}

// appendOutbox 在同一事务内落一条待投递的结算事件
func appendOutbox(tx *gorm.DB, evt event.SettlementEvent) error {
	evt.OccurredAt = time.Now()
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := model.OutboxMessage{
		Topic:   event.TopicCreditEvents,
		Key:     strconv.FormatUint(evt.UserID, 10),
		Payload: payload,
		Status:  "PENDING",
	}
	return tx.Create(&msg).Error
}

// GetUserByID 查询用户
func (s *CreditService) GetUserByID(userID uint64) (*model.User, error) {
	var user model.User
	err := s.store.Read(func(db *gorm.DB) error {
		return db.First(&user, userID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errno.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByWallet 按钱包地址查询用户
func (s *CreditService) GetUserByWallet(walletAddress string) (*model.User, error) {
	var user model.User
	err := s.store.Read(func(db *gorm.DB) error {
		return db.Where("wallet_address = ?", walletAddress).First(&user).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errno.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetOrCreateUserByWallet 连接钱包即开户，返回 (用户, 是否新建)
func (s *CreditService) GetOrCreateUserByWallet(walletAddress string) (*model.User, bool, error) {
	if user, err := s.GetUserByWallet(walletAddress); err == nil {
		return user, false, nil
	} else if !errors.Is(err, errno.ErrUserNotFound) {
		return nil, false, err
	}

	var user model.User
	created := false
	err := s.store.Write(func(tx *gorm.DB) error {
		created = false
		// 队列里前一条写入可能已经建了同一个地址，事务内再查一次
		if err := tx.Where("wallet_address = ?", walletAddress).First(&user).Error; err == nil {
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		user = model.User{WalletAddress: walletAddress, Credits: decimal.Zero}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &user, created, nil
}

// Stats 汇总余额 / 累计消耗 / 累计充值
// 金额在 Go 侧用 decimal 逐条累加，不在 SQL 里 SUM (SQLite 会转浮点丢精度)。
func (s *CreditService) Stats(userID uint64) (*CreditStats, error) {
	var user model.User
	var entries []model.LedgerEntry
	err := s.store.Read(func(db *gorm.DB) error {
		if err := db.First(&user, userID).Error; err != nil {
			return err
		}
		return db.Where("user_id = ?", userID).Find(&entries).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errno.ErrUserNotFound
		}
		return nil, err
	}

	// 按流水种类归集: Used 只算执行扣费，负向的人工调整不算用户消耗
	stats := &CreditStats{Remaining: user.Credits, Used: decimal.Zero, ToppedUp: decimal.Zero}
	for _, e := range entries {
		switch e.Kind {
		case model.LedgerKindTopup:
			stats.ToppedUp = stats.ToppedUp.Add(e.Amount)
		case model.LedgerKindRunDebit:
			stats.Used = stats.Used.Add(e.Amount.Neg())
		}
	}
	return stats, nil
}

// SumByKind 按流水种类求和 (充值总额 / 扣费总额 / 调整净额)
func (s *CreditService) SumByKind(userID uint64, kind string) (decimal.Decimal, error) {
	var entries []model.LedgerEntry
	err := s.store.Read(func(db *gorm.DB) error {
		return db.Where("user_id = ? AND kind = ?", userID, kind).Find(&entries).Error
	})
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	return sum, nil
}

// SumLedger 全表流水求和，用于校验 sum(amount) == credits 的账本不变式
func (s *CreditService) SumLedger(userID uint64) (decimal.Decimal, error) {
	var entries []model.LedgerEntry
	err := s.store.Read(func(db *gorm.DB) error {
		return db.Where("user_id = ?", userID).Find(&entries).Error
	})
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	return sum, nil
}

// RecentEntries 最近的流水，按时间倒序
func (s *CreditService) RecentEntries(userID uint64, limit int) ([]model.LedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []model.LedgerEntry
	err := s.store.Read(func(db *gorm.DB) error {
		return db.Where("user_id = ?", userID).
			Order("id DESC").Limit(limit).Find(&entries).Error
	})
	return entries, err
}

// ManualAdjust 人工调整 (运营补偿 / 纠错)，正负都允许，负数同样不能把余额打穿
func (s *CreditService) ManualAdjust(userID uint64, amount decimal.Decimal, note string) (decimal.Decimal, error) {
	var newBalance decimal.Decimal
	err := s.store.Write(func(tx *gorm.DB) error {
		balance, err := applyLedger(tx, userID, model.LedgerKindManualAdjustment, amount, "", 0, note)
		if err != nil {
			return err
		}
		newBalance = balance
		return appendOutbox(tx, event.SettlementEvent{
			Type:   event.TypeManualAdjustment,
			UserID: userID,
			Amount: amount.String(),
		})
	})
	if err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}
