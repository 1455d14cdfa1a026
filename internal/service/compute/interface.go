package compute

import "context"

// 推理执行模式
const (
	ModeOpenRouter = "openrouter"
	ModeMock       = "mock"
)

// Result 一次推理的结果
type Result struct {
	Output          string `json:"output"`
	Mode            string `json:"mode"`
	Model           string `json:"model"`
	ProviderAddress string `json:"provider_address"`
}

// Provider 推理协作方
// 结算引擎不重试推理失败，错误原样上抛；推理必须在扣费事务之前完成。
type Provider interface {
	RunInference(ctx context.Context, systemPrompt, knowledge, userInput, model string) (*Result, error)
}
