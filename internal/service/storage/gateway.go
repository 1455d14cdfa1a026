package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Gpcode233/Ajently/pkg/crypto_util"
)

const gatewayScheme = "storage://"

// GatewayProvider 对接 HTTP 存储网关
// 上传前本地先算好 Blake3 根哈希，网关返回的 txHash 用于链上留痕
type GatewayProvider struct {
	baseURL    string
	httpClient *http.Client
}

func NewGatewayProvider(baseURL string) *GatewayProvider {
	return &GatewayProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type gatewayUploadResponse struct {
	RootHash string `json:"rootHash"`
	TxHash   string `json:"txHash"`
}

func (p *GatewayProvider) Upload(ctx context.Context, data []byte) (*UploadResult, error) {
	rootHash := crypto_util.CalculateBlake3(data)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/upload", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Root-Hash", rootHash)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("上传到存储网关失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("存储网关返回 %d: %s", resp.StatusCode, string(body))
	}

	var out gatewayUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("解析网关响应失败: %w", err)
	}
	if out.RootHash == "" {
		out.RootHash = rootHash
	}

	return &UploadResult{
		RootHash: out.RootHash,
		URI:      gatewayScheme + out.RootHash,
		TxHash:   out.TxHash,
		Mode:     ModeGateway,
	}, nil
}

func (p *GatewayProvider) Download(ctx context.Context, uri string) ([]byte, error) {
	rootHash := strings.TrimPrefix(uri, gatewayScheme)
	if rootHash == uri {
		return nil, fmt.Errorf("不是网关存储 URI: %q", uri)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/download/"+rootHash, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("从存储网关下载失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("存储网关返回 %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
