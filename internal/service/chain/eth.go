package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/Gpcode233/Ajently/pkg/errno"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// EthClient 基于 go-ethereum ethclient 的 Client 实现
// 按 chainID 懒连接并复用，RPC 地址来自配置
type EthClient struct {
	rpcByChain map[int64]string

	mu    sync.Mutex
	conns map[int64]*ethclient.Client
}

func NewEthClient(rpcByChain map[int64]string) *EthClient {
	return &EthClient{
		rpcByChain: rpcByChain,
		conns:      make(map[int64]*ethclient.Client),
	}
}

func (c *EthClient) dial(chainID int64) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if conn, ok := c.conns[chainID]; ok {
		return conn, nil
	}

	rpcURL, ok := c.rpcByChain[chainID]
	if !ok {
		return nil, errno.ErrUnsupportedChain
	}

	conn, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接链 %d RPC 失败: %w", chainID, err)
	}
	c.conns[chainID] = conn
	return conn, nil
}

func (c *EthClient) TransactionByHash(ctx context.Context, chainID int64, txHash string) (*Transaction, error) {
	conn, err := c.dial(chainID)
	if err != nil {
		return nil, err
	}

	tx, isPending, err := conn.TransactionByHash(ctx, common.HexToHash(txHash))
	if err != nil {
		return nil, fmt.Errorf("查询交易失败: %w", err)
	}
	if isPending {
		return nil, fmt.Errorf("交易尚未上链: %s", txHash)
	}

	// 从签名恢复发送方地址
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return nil, fmt.Errorf("恢复交易发送方失败: %w", err)
	}

	out := &Transaction{
		Hash:    tx.Hash().Hex(),
		From:    from.Hex(),
		Value:   tx.Value(),
		ChainID: tx.ChainId(),
	}
	if to := tx.To(); to != nil {
		out.To = to.Hex()
	}
	return out, nil
}

func (c *EthClient) TransactionReceipt(ctx context.Context, chainID int64, txHash string) (*Receipt, error) {
	conn, err := c.dial(chainID)
	if err != nil {
		return nil, err
	}

	receipt, err := conn.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return nil, fmt.Errorf("查询回执失败: %w", err)
	}
	return &Receipt{Status: receipt.Status}, nil
}
