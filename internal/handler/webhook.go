package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/Gpcode233/Ajently/internal/handler/request"
	"github.com/Gpcode233/Ajently/internal/handler/response"
	"github.com/Gpcode233/Ajently/internal/service"
	"github.com/Gpcode233/Ajently/pkg/errno"
	"github.com/Gpcode233/Ajently/pkg/validator"

	"github.com/gin-gonic/gin"
)

type WebhookHandler struct {
	svc    *service.Services
	secret string
}

func NewWebhookHandler(svc *service.Services, secret string) *WebhookHandler {
	return &WebhookHandler{svc: svc, secret: secret}
}

// PaymentWebhook 支付方回调入口
// 密钥校验在任何业务逻辑之前; 未配置密钥时跳过校验 (本地联调)。
// 回调天然会重放，幂等由订单状态机保证。
// @Summary 支付回调
// @Tags Webhook
// @Accept json
// @Produce json
// @Param request body request.PaymentWebhookRequest true "Webhook Payload"
// @Success 200 {object} response.Response
// @Router /webhooks/payments [post]
func (h *WebhookHandler) PaymentWebhook(c *gin.Context) {
	if h.secret != "" {
		signature := c.GetHeader("x-webhook-secret")
		if subtle.ConstantTimeCompare([]byte(signature), []byte(h.secret)) != 1 {
			c.JSON(http.StatusUnauthorized, response.Response{
				Code:    errno.ErrWebhookSecret.Code,
				Message: errno.ErrWebhookSecret.Message,
				Data:    gin.H{},
			})
			return
		}
	}

	var req request.PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	order, err := h.svc.Topup.Reconcile(req.ProviderReference, req.Status, req.Note)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true, "order": order})
}
