package chain

import (
	"context"
	"math/big"
)

// Transaction 链上交易的最小投影，够核验用
type Transaction struct {
	Hash    string
	From    string // 从签名恢复出的发送方
	To      string // 收款地址，合约创建交易为空
	Value   *big.Int
	ChainID *big.Int
}

// Receipt 交易回执
type Receipt struct {
	Status uint64 // 1 = success, 0 = reverted
}

// Client 链上 RPC 协作方 (只读)
// 实现方负责按 chainID 选择节点。核验逻辑只依赖这个接口，测试用假实现。
type Client interface {
	TransactionByHash(ctx context.Context, chainID int64, txHash string) (*Transaction, error)
	TransactionReceipt(ctx context.Context, chainID int64, txHash string) (*Receipt, error)
}
