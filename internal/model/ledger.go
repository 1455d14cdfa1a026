package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 账本流水类型
const (
	LedgerKindTopup            = "topup"
	LedgerKindRunDebit         = "run_debit"
	LedgerKindManualAdjustment = "manual_adjustment"
)

// 流水引用类型
const (
	ReferenceTypeRun   = "run"
	ReferenceTypeTopup = "topup_order"
)

// 充值订单状态机: pending -> completed | failed (终态不可再变)
const (
	TopupStatusPending   = "pending"
	TopupStatusCompleted = "completed"
	TopupStatusFailed    = "failed"
)

// 充值渠道
const (
	TopupRailFiat       = "fiat"
	TopupRailStablecoin = "stablecoin"
	TopupRailOnchain    = "native"
)

// LedgerEntry 信用账本 (append-only)
// 不变式: 任意时刻 sum(amount) == users.credits，因此流水和余额必须在
// 同一个写事务内落库。流水只增不改不删。
type LedgerEntry struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint64          `gorm:"not null;index" json:"user_id"`
	Kind          string          `gorm:"type:varchar(32);not null;index" json:"kind"`
	Amount        decimal.Decimal `gorm:"type:decimal(32,18);not null" json:"amount"` // 正数入账，负数扣费
	ReferenceType string          `gorm:"type:varchar(32)" json:"reference_type,omitempty"`
	ReferenceID   uint64          `json:"reference_id,omitempty"`
	Note          string          `gorm:"type:varchar(255)" json:"note,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TopupOrder 充值订单表
// ProviderReference 全局唯一，是外部支付确认 (webhook / 链上交易) 的幂等键。
// 链上充值直接以交易哈希作为 reference，重复提交自然落在同一张订单上。
type TopupOrder struct {
	ID                uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            uint64          `gorm:"not null;index" json:"user_id"`
	Rail              string          `gorm:"type:varchar(20);not null" json:"rail"`
	Currency          string          `gorm:"type:varchar(12);not null" json:"currency"`
	Amount            decimal.Decimal `gorm:"type:decimal(32,18);not null" json:"amount"`
	Credits           decimal.Decimal `gorm:"type:decimal(32,18);not null" json:"credits"`
	Status            string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ProviderReference string          `gorm:"type:varchar(128);not null;unique" json:"provider_reference"`
	Note              string          `gorm:"type:varchar(255)" json:"note,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
}

// Run 付费执行记录表，与对应的 run_debit 流水在同一事务内创建
type Run struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint64          `gorm:"not null;index" json:"user_id"`
	AgentID     uint64          `gorm:"not null;index" json:"agent_id"`
	Input       string          `gorm:"type:text;not null" json:"input"`
	Output      string          `gorm:"type:text;not null" json:"output"`
	Cost        decimal.Decimal `gorm:"type:decimal(32,18);not null" json:"cost"`
	ComputeMode string          `gorm:"type:varchar(20);not null;default:'mock'" json:"compute_mode"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OutboxMessage 本地消息表 (Transactional Outbox)
// 结算事件在写事务内落表，由 Relay 服务异步投递 MQ，
// 保证写锁内不做任何网络 I/O。
type OutboxMessage struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Topic     string    `gorm:"type:varchar(255);not null" json:"topic"`
	Key       string    `gorm:"type:varchar(64)" json:"key"`
	Payload   []byte    `gorm:"type:text;not null" json:"payload"`
	Status    string    `gorm:"type:varchar(50);not null;default:'PENDING';index" json:"status"` // PENDING, SENT
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (LedgerEntry) TableName() string {
	return "credit_ledger"
}

func (TopupOrder) TableName() string {
	return "topup_orders"
}

func (Run) TableName() string {
	return "runs"
}

func (OutboxMessage) TableName() string {
	return "outbox_messages"
}
