package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Gpcode233/Ajently/pkg/crypto_util"
)

const localScheme = "local://"

// LocalProvider 把内容按 Blake3 哈希寻址存到本地目录
// 开发环境替代远端存储网关，URI 形如 local://<blake3>
type LocalProvider struct {
	dir string
}

func NewLocalProvider(dir string) (*LocalProvider, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	return &LocalProvider{dir: dir}, nil
}

func (p *LocalProvider) Upload(ctx context.Context, data []byte) (*UploadResult, error) {
	rootHash := crypto_util.CalculateBlake3(data)
	path := filepath.Join(p.dir, rootHash)

	// 内容寻址: 同一份内容重复上传是天然幂等的
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("写入存储文件失败: %w", err)
		}
	}

	return &UploadResult{
		RootHash: rootHash,
		URI:      localScheme + rootHash,
		Mode:     ModeLocal,
	}, nil
}

func (p *LocalProvider) Download(ctx context.Context, uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, localScheme) {
		return nil, fmt.Errorf("不是本地存储 URI: %q", uri)
	}
	rootHash := strings.TrimPrefix(uri, localScheme)
	if rootHash == "" || strings.ContainsAny(rootHash, "/\\.") {
		return nil, fmt.Errorf("非法的存储哈希: %q", rootHash)
	}

	data, err := os.ReadFile(filepath.Join(p.dir, rootHash))
	if err != nil {
		return nil, fmt.Errorf("读取存储文件失败: %w", err)
	}
	return data, nil
}
