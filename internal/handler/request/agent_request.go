package request

import "github.com/shopspring/decimal"

type CreateAgentRequest struct {
	Name         string          `json:"name" binding:"required,min=3,max=80"`
	Description  string          `json:"description" binding:"required,min=10,max=400"`
	Category     string          `json:"category" binding:"required,max=32"`
	Model        string          `json:"model" binding:"omitempty,max=128"`
	SystemPrompt string          `json:"system_prompt" binding:"required,min=10,max=5000"`
	PricePerRun  decimal.Decimal `json:"price_per_run"`
	CardGradient string          `json:"card_gradient" binding:"omitempty,oneof=aurora sunset ember ocean cosmic"`
	PublishNow   bool            `json:"publish_now"`
}

type RunAgentRequest struct {
	Message string `json:"message" binding:"required,min=1,max=4000"`
}

type AttachKnowledgeRequest struct {
	Content string `json:"content" binding:"required,max=200000"`
}
