package compute

import (
	"context"
	"fmt"
	"strings"
)

// MockProvider 本地开发用，不出网，输出确定性结果
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) RunInference(ctx context.Context, systemPrompt, knowledge, userInput, model string) (*Result, error) {
	preview := userInput
	if len(preview) > 80 {
		preview = preview[:80] + "..."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[mock:%s] %s", model, preview)
	if knowledge != "" {
		b.WriteString(" (with knowledge context)")
	}

	return &Result{
		Output:          b.String(),
		Mode:            ModeMock,
		Model:           model,
		ProviderAddress: "mock",
	}, nil
}
