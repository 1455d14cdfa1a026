package event

import "time"

// Topic 结算事件统一投递到这个主题 (Kafka Topic / Redis Stream)
const TopicCreditEvents = "credit_events"

// 事件类型
const (
	TypeRunSettled       = "run_settled"
	TypeTopupCompleted   = "topup_completed"
	TypeTopupFailed      = "topup_failed"
	TypeManualAdjustment = "manual_adjustment"
)

// SettlementEvent 结算事件 (Outbox Payload)
// 在写事务内落 outbox_messages 表，由 Relay 服务异步投递，
// 下游至少收到一次，消费端需按 (Type, ReferenceType, ReferenceID) 做幂等。
type SettlementEvent struct {
	Type          string    `json:"type"`
	UserID        uint64    `json:"user_id"`
	Amount        string    `json:"amount"` // decimal 字符串，避免 JSON float 精度问题
	ReferenceType string    `json:"reference_type,omitempty"`
	ReferenceID   uint64    `json:"reference_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
