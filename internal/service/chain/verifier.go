package chain

import (
	"context"
	"fmt"

	"github.com/Gpcode233/Ajently/pkg/errno"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

// VerifyParams 调用方声称的转账信息
type VerifyParams struct {
	TxHash         string
	ChainID        int64
	FromAddress    string          // 连接钱包的地址
	ExpectedAmount decimal.Decimal // 期望最小金额 (ether)，零值表示不限
}

// VerifiedTransfer 核验通过后的事实
type VerifiedTransfer struct {
	From   string
	Amount decimal.Decimal // 单位 ether (credits 1:1)
}

// Verifier 在入账前核验一笔链上转账
// 六项检查全部通过才放行，任何一项失败都不产生状态变更。
// 注意: 核验涉及 RPC 调用，必须在进入写事务之前完成。
type Verifier struct {
	client   Client
	treasury common.Address
}

func NewVerifier(client Client, treasuryAddress string) (*Verifier, error) {
	if !common.IsHexAddress(treasuryAddress) {
		return nil, fmt.Errorf("金库地址非法: %q", treasuryAddress)
	}
	return &Verifier{
		client:   client,
		treasury: common.HexToAddress(treasuryAddress),
	}, nil
}

// Verify 入账前对交易做六项核验:
// 收款地址是金库 -> 发送方匹配 -> chainID 匹配 -> 回执成功 -> 金额为正 -> 金额达到期望
func (v *Verifier) Verify(ctx context.Context, p VerifyParams) (*VerifiedTransfer, error) {
	tx, err := v.client.TransactionByHash(ctx, p.ChainID, p.TxHash)
	if err != nil {
		return nil, err
	}
	receipt, err := v.client.TransactionReceipt(ctx, p.ChainID, p.TxHash)
	if err != nil {
		return nil, err
	}

	// 1. 收款地址必须是金库 (HexToAddress 归一化，天然大小写不敏感)
	if tx.To == "" || common.HexToAddress(tx.To) != v.treasury {
		return nil, errno.ErrVerificationFailed.WithMessage("Transaction does not pay the treasury address")
	}

	// 2. 发送方必须与连接钱包一致
	if !common.IsHexAddress(p.FromAddress) || common.HexToAddress(tx.From) != common.HexToAddress(p.FromAddress) {
		return nil, errno.ErrVerificationFailed.WithMessage("Transaction sender does not match connected wallet")
	}

	// 3. chainID 必须与声称一致
	if tx.ChainID == nil || tx.ChainID.Int64() != p.ChainID {
		return nil, errno.ErrVerificationFailed.WithMessage("Transaction chain id mismatch")
	}

	// 4. 回执必须是成功 (reverted 的交易不能入账)
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, errno.ErrVerificationFailed.WithMessage("Transaction failed onchain")
	}

	// 5. 金额必须严格为正
	if tx.Value == nil || tx.Value.Sign() <= 0 {
		return nil, errno.ErrVerificationFailed.WithMessage("Transaction has zero value")
	}

	// wei -> ether，定点数，不走浮点
	amount := decimal.NewFromBigInt(tx.Value, -18)

	// 6. 指定了期望金额时，实际金额不能低于期望
	if !p.ExpectedAmount.IsZero() && amount.LessThan(p.ExpectedAmount) {
		return nil, errno.ErrVerificationFailed.WithMessage("Transaction value is below requested top-up amount")
	}

	return &VerifiedTransfer{
		From:   common.HexToAddress(tx.From).Hex(),
		Amount: amount,
	}, nil
}
