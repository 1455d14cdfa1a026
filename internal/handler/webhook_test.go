package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/Gpcode233/Ajently/internal/model"
	"github.com/Gpcode233/Ajently/internal/service"
	"github.com/Gpcode233/Ajently/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newWebhookRouter(t *testing.T, secret string) (*gin.Engine, *service.Services, uint64) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	svc := service.New(s, nil, nil, nil, nil)

	var userID uint64
	err = s.Write(func(tx *gorm.DB) error {
		user := model.User{WalletAddress: "0xhook", Credits: decimal.Zero}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		userID = user.ID
		return nil
	})
	require.NoError(t, err)

	r := gin.New()
	r.POST("/webhooks/payments", NewWebhookHandler(svc, secret).PaymentWebhook)
	return r, svc, userID
}

func postWebhook(r *gin.Engine, secret string, payload map[string]interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("x-webhook-secret", secret)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	r, _, _ := newWebhookRouter(t, "topsecret")

	payload := map[string]interface{}{
		"provider_reference": "topup_abc",
		"status":             "completed",
	}

	// 密钥缺失
	w := postWebhook(r, "", payload)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 密钥错误
	w = postWebhook(r, "wrong", payload)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookReconcilesOrder(t *testing.T) {
	r, svc, userID := newWebhookRouter(t, "topsecret")

	order, err := svc.Topup.CreateTopupOrder(userID, model.TopupRailFiat, "USD",
		decimal.NewFromInt(25), decimal.NewFromInt(25))
	require.NoError(t, err)

	w := postWebhook(r, "topsecret", map[string]interface{}{
		"provider_reference": order.ProviderReference,
		"status":             "completed",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			Order model.TopupOrder `json:"order"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, model.TopupStatusCompleted, resp.Data.Order.Status)

	user, err := svc.Credit.GetUserByID(userID)
	require.NoError(t, err)
	assert.True(t, user.Credits.Equal(decimal.NewFromInt(25)), "credits = %s", user.Credits)
}

func TestWebhookUnknownReference(t *testing.T) {
	r, _, _ := newWebhookRouter(t, "")

	w := postWebhook(r, "", map[string]interface{}{
		"provider_reference": "topup_missing",
		"status":             "failed",
	})
	// 信封风格: 业务错误也是 HTTP 200，错误码在 body 里
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEqual(t, 0, resp.Code)
}
