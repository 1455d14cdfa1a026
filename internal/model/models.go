package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User 用户表
// Credits 是账本 (credit_ledger) 的派生缓存值，只允许 Settlement 事务修改，
// 且必须与账本流水在同一个写事务内变更。
type User struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	WalletAddress string          `gorm:"type:varchar(64);not null;unique" json:"wallet_address"`
	Credits       decimal.Decimal `gorm:"type:decimal(32,18);not null;default:0" json:"credits"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Agent 商品表 (AI Agent 列表项)
// PricePerRun 是结算时的权威价格：Debit-for-Run 在写事务内读取最新值，
// 不使用请求到达时缓存的价格。
type Agent struct {
	ID             uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string          `gorm:"type:varchar(80);not null" json:"name"`
	Description    string          `gorm:"type:varchar(400);not null" json:"description"`
	Category       string          `gorm:"type:varchar(32);not null" json:"category"`
	Model          string          `gorm:"type:varchar(128);not null;default:'openrouter/free'" json:"model"`
	SystemPrompt   string          `gorm:"type:text;not null" json:"system_prompt"`
	CreatorID      uint64          `gorm:"not null;index" json:"creator_id"`
	PricePerRun    decimal.Decimal `gorm:"type:decimal(32,18);not null;default:0" json:"price_per_run"`
	Published      bool            `gorm:"not null;default:false" json:"published"`
	CardGradient   string          `gorm:"type:varchar(20)" json:"card_gradient,omitempty"`
	StorageHash    string          `gorm:"type:varchar(128)" json:"storage_hash,omitempty"`
	ManifestURI    string          `gorm:"type:varchar(255)" json:"manifest_uri,omitempty"`
	ManifestTxHash string          `gorm:"type:varchar(128)" json:"manifest_tx_hash,omitempty"`
	KnowledgeURI   string          `gorm:"type:varchar(255)" json:"knowledge_uri,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (Agent) TableName() string {
	return "agents"
}
