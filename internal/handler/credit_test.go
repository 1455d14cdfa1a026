package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/Gpcode233/Ajently/internal/service"
	"github.com/Gpcode233/Ajently/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCreditRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	svc := service.New(s, nil, nil, nil, nil)
	r := gin.New()
	r.POST("/api/v1/wallet/connect", NewCreditHandler(svc).ConnectWallet)
	return r
}

func postConnect(r *gin.Engine, wallet string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]string{"wallet_address": wallet})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wallet/connect", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestConnectWalletProvisionsUser(t *testing.T) {
	r := newCreditRouter(t)
	wallet := "0x1111111111111111111111111111111111111111"

	w := postConnect(r, wallet)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			Created bool `json:"created"`
			User    struct {
				ID            uint64 `json:"id"`
				WalletAddress string `json:"wallet_address"`
			} `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.True(t, resp.Data.Created)
	assert.Equal(t, wallet, resp.Data.User.WalletAddress)
	firstID := resp.Data.User.ID

	// 同一个地址重复连接: 返回老账户，不再开新户
	w = postConnect(r, wallet)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Data.Created)
	assert.Equal(t, firstID, resp.Data.User.ID)
}

func TestConnectWalletRejectsBadAddress(t *testing.T) {
	r := newCreditRouter(t)

	w := postConnect(r, "not-an-address")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEqual(t, 0, resp.Code)
}
