package handler

import (
	"github.com/Gpcode233/Ajently/internal/handler/request"
	"github.com/Gpcode233/Ajently/internal/handler/response"
	"github.com/Gpcode233/Ajently/internal/model"
	"github.com/Gpcode233/Ajently/internal/service"
	"github.com/Gpcode233/Ajently/pkg/errno"
	"github.com/Gpcode233/Ajently/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CreditHandler struct {
	svc *service.Services
}

func NewCreditHandler(svc *service.Services) *CreditHandler {
	return &CreditHandler{svc: svc}
}

// Summary 余额总览: 用户 + 汇总 + 最近流水 + 充值订单
// @Summary 信用总览
// @Tags Credit
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/credits [get]
func (h *CreditHandler) Summary(c *gin.Context) {
	userID := demoUserID(c)

	user, err := h.svc.Credit.GetUserByID(userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	stats, err := h.svc.Credit.Stats(userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	ledger, err := h.svc.Credit.RecentEntries(userID, 100)
	if err != nil {
		response.Error(c, err)
		return
	}
	topups, err := h.svc.Topup.ListOrders(userID, 100)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"user":   user,
		"stats":  stats,
		"ledger": ledger,
		"topups": topups,
	})
}

// CreateTopup 创建充值订单 (法币 / 稳定币渠道)
// 订单创建后等支付方 webhook 回执来入账，1 单位支付金额兑 1 credit。
// @Summary 创建充值订单
// @Tags Credit
// @Accept json
// @Produce json
// @Param request body request.CreateTopupRequest true "Top-up Request"
// @Success 200 {object} response.Response
// @Router /api/v1/credits/topup [post]
func (h *CreditHandler) CreateTopup(c *gin.Context) {
	var req request.CreateTopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}
	if req.Amount.LessThan(decimal.NewFromInt(1)) || req.Amount.GreaterThan(decimal.NewFromInt(10000)) {
		response.Error(c, errno.ErrBind.WithMessage("Amount must be between 1 and 10000"))
		return
	}

	order, err := h.svc.Topup.CreateTopupOrder(demoUserID(c), req.Rail, req.Currency, req.Amount, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"order": order,
		"checkout": gin.H{
			"message":            "Top-up order created. Complete payment and send webhook to reconcile credits.",
			"provider_reference": order.ProviderReference,
		},
	})
}

// Onchain 链上原生转账充值
// 六项核验 (RPC) 在写事务外完成，交易哈希做幂等键。
// @Summary 链上充值
// @Tags Credit
// @Accept json
// @Produce json
// @Param request body request.OnchainTopupRequest true "Onchain Top-up Request"
// @Success 200 {object} response.Response
// @Router /api/v1/credits/onchain [post]
func (h *CreditHandler) Onchain(c *gin.Context) {
	var req request.OnchainTopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	expected := decimal.Zero
	if req.ExpectedAmount != "" {
		var err error
		expected, err = decimal.NewFromString(req.ExpectedAmount)
		if err != nil || expected.IsNegative() {
			response.Error(c, errno.ErrBind.WithMessage("Invalid expected_amount"))
			return
		}
	}

	order, created, err := h.svc.Topup.CompleteOnchain(c.Request.Context(),
		demoUserID(c), req.TxHash, req.ChainID, req.FromAddress, req.Currency, expected)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"order": order, "created": created})
}

// Simulate 模拟支付方回执: 直接把指定订单推进到 completed
// 开发联调用，幂等语义与真实 webhook 完全一致。
// @Summary 模拟充值回执
// @Tags Credit
// @Produce json
// @Param id path int true "Top-up Order ID"
// @Success 200 {object} response.Response
// @Router /api/v1/credits/{id}/simulate [post]
func (h *CreditHandler) Simulate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	order, err := h.svc.Topup.GetOrderByID(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	updated, err := h.svc.Topup.Reconcile(order.ProviderReference,
		model.TopupStatusCompleted, "Simulated webhook reconciliation")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"order": updated, "simulated": true})
}

// ManualAdjust 运营人工调整余额
// @Summary 人工调整
// @Tags Credit
// @Accept json
// @Produce json
// @Param request body request.ManualAdjustRequest true "Manual Adjust Request"
// @Success 200 {object} response.Response
// @Router /api/v1/credits/adjust [post]
func (h *CreditHandler) ManualAdjust(c *gin.Context) {
	var req request.ManualAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}
	balance, err := h.svc.Credit.ManualAdjust(req.UserID, req.Amount, req.Note)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"balance": balance})
}

// ListRuns 当前用户最近的执行记录
// @Summary 最近执行记录
// @Tags Credit
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/runs [get]
func (h *CreditHandler) ListRuns(c *gin.Context) {
	runs, err := h.svc.Run.ListRecentRuns(demoUserID(c), 40)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"runs": runs})
}

// ConnectWallet 连接钱包即开户: 地址已存在返回老账户，否则零余额开新户
// @Summary 连接钱包
// @Tags Credit
// @Accept json
// @Produce json
// @Param request body request.ConnectWalletRequest true "Connect Wallet Request"
// @Success 200 {object} response.Response
// @Router /api/v1/wallet/connect [post]
func (h *CreditHandler) ConnectWallet(c *gin.Context) {
	var req request.ConnectWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}
	user, created, err := h.svc.Credit.GetOrCreateUserByWallet(req.WalletAddress)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"user": user, "created": created})
}

// Profile 当前用户信息 (连接钱包即开户)
// @Summary 用户信息
// @Tags Credit
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/profile [get]
func (h *CreditHandler) Profile(c *gin.Context) {
	user, err := h.svc.Credit.GetUserByID(demoUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"user": user})
}
