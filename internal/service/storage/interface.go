package storage

import "context"

// 存储模式
const (
	ModeLocal   = "local"
	ModeGateway = "gateway"
)

// UploadResult 一次上传的结果
type UploadResult struct {
	RootHash string `json:"root_hash"` // 内容寻址哈希
	URI      string `json:"uri"`
	TxHash   string `json:"tx_hash,omitempty"` // 网关模式下的上链哈希
	Mode     string `json:"mode"`
}

// Provider 内容寻址存储协作方，用于发布 Agent manifest 和拉取知识库。
// 上传下载都可能出网，必须在进入写事务之前完成。
type Provider interface {
	Upload(ctx context.Context, data []byte) (*UploadResult, error)
	Download(ctx context.Context, uri string) ([]byte, error)
}
