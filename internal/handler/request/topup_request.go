package request

import "github.com/shopspring/decimal"

type CreateTopupRequest struct {
	Rail     string          `json:"rail" binding:"required,oneof=fiat stablecoin"`
	Currency string          `json:"currency" binding:"required,min=2,max=12"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
}

// OnchainTopupRequest 链上充值: 交易已经由用户钱包发出，提交哈希来入账
type OnchainTopupRequest struct {
	TxHash         string `json:"tx_hash" binding:"required,len=66,startswith=0x"`
	ChainID        int64  `json:"chain_id" binding:"required,gt=0"`
	FromAddress    string `json:"from_address" binding:"required,len=42,startswith=0x"`
	Currency       string `json:"currency" binding:"required,min=1,max=12"`
	ExpectedAmount string `json:"expected_amount" binding:"omitempty"`
}

// PaymentWebhookRequest 支付方回调
type PaymentWebhookRequest struct {
	ProviderReference string `json:"provider_reference" binding:"required"`
	Status            string `json:"status" binding:"required,oneof=completed failed"`
	Note              string `json:"note" binding:"omitempty,max=255"`
}

// ManualAdjustRequest 运营人工调整
type ManualAdjustRequest struct {
	UserID uint64          `json:"user_id" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Note   string          `json:"note" binding:"required,max=255"`
}
