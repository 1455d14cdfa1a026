package service

import (
	"github.com/Gpcode233/Ajently/internal/service/chain"
	"github.com/Gpcode233/Ajently/internal/service/compute"
	"github.com/Gpcode233/Ajently/internal/service/storage"
	"github.com/Gpcode233/Ajently/internal/store"
	"github.com/Gpcode233/Ajently/pkg/cache"
)

// Services 聚合各业务服务，供路由层统一注入
type Services struct {
	Credit  *CreditService
	Run     *RunService
	Topup   *TopupService
	Agent   *AgentService
	Compute compute.Provider
	Storage storage.Provider
}

// New 组装服务层。verifier 为 nil 时链上充值入口不可用。
func New(s *store.Store, verifier *chain.Verifier, cp compute.Provider, sp storage.Provider, c cache.Cache) *Services {
	return &Services{
		Credit:  NewCreditService(s),
		Run:     NewRunService(s),
		Topup:   NewTopupService(s, verifier),
		Agent:   NewAgentService(s, sp, c),
		Compute: cp,
		Storage: sp,
	}
}
