package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/Gpcode233/Ajently/pkg/errno"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	treasury = "0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa"
	sender   = "0xBbBbbBbbBBbbbBbBbBbbBBbBbbbBbBbBbbBBbBbB"
	someHash = "0x1234567890123456789012345678901234567890123456789012345678901234"
)

type stubClient struct {
	tx      *Transaction
	receipt *Receipt
	txErr   error
}

func (s *stubClient) TransactionByHash(context.Context, int64, string) (*Transaction, error) {
	return s.tx, s.txErr
}

func (s *stubClient) TransactionReceipt(context.Context, int64, string) (*Receipt, error) {
	return s.receipt, nil
}

func okTx() *Transaction {
	return &Transaction{
		Hash:    someHash,
		From:    sender,
		To:      treasury,
		Value:   big.NewInt(2e18), // 2 ether
		ChainID: big.NewInt(1),
	}
}

func okParams() VerifyParams {
	return VerifyParams{
		TxHash:         someHash,
		ChainID:        1,
		FromAddress:    sender,
		ExpectedAmount: decimal.NewFromInt(2),
	}
}

func TestNewVerifierRejectsBadTreasury(t *testing.T) {
	_, err := NewVerifier(&stubClient{}, "not-an-address")
	assert.Error(t, err)
}

func TestVerifySuccess(t *testing.T) {
	v, err := NewVerifier(&stubClient{tx: okTx(), receipt: &Receipt{Status: 1}}, treasury)
	require.NoError(t, err)

	transfer, err := v.Verify(context.Background(), okParams())
	require.NoError(t, err)
	assert.True(t, transfer.Amount.Equal(decimal.NewFromInt(2)), "amount = %s", transfer.Amount)
}

func TestVerifyRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(tx *Transaction, receipt *Receipt, p *VerifyParams)
		wantMsg string
	}{
		{
			name:    "wrong recipient",
			mutate:  func(tx *Transaction, _ *Receipt, _ *VerifyParams) { tx.To = sender },
			wantMsg: "Transaction does not pay the treasury address",
		},
		{
			name:    "contract creation",
			mutate:  func(tx *Transaction, _ *Receipt, _ *VerifyParams) { tx.To = "" },
			wantMsg: "Transaction does not pay the treasury address",
		},
		{
			name:    "sender mismatch",
			mutate:  func(tx *Transaction, _ *Receipt, _ *VerifyParams) { tx.From = treasury },
			wantMsg: "Transaction sender does not match connected wallet",
		},
		{
			name:    "chain id mismatch",
			mutate:  func(tx *Transaction, _ *Receipt, _ *VerifyParams) { tx.ChainID = big.NewInt(137) },
			wantMsg: "Transaction chain id mismatch",
		},
		{
			name:    "reverted transaction",
			mutate:  func(_ *Transaction, r *Receipt, _ *VerifyParams) { r.Status = 0 },
			wantMsg: "Transaction failed onchain",
		},
		{
			name:    "zero value",
			mutate:  func(tx *Transaction, _ *Receipt, _ *VerifyParams) { tx.Value = big.NewInt(0) },
			wantMsg: "Transaction has zero value",
		},
		{
			name: "value below expectation",
			mutate: func(_ *Transaction, _ *Receipt, p *VerifyParams) {
				p.ExpectedAmount = decimal.NewFromInt(3)
			},
			wantMsg: "Transaction value is below requested top-up amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := okTx()
			receipt := &Receipt{Status: 1}
			params := okParams()
			tt.mutate(tx, receipt, &params)

			v, err := NewVerifier(&stubClient{tx: tx, receipt: receipt}, treasury)
			require.NoError(t, err)

			_, err = v.Verify(context.Background(), params)
			require.Error(t, err)
			assert.ErrorIs(t, err, errno.ErrVerificationFailed)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

// 大小写不同的同一地址必须能对上 (地址归一化比较)
func TestVerifyAddressComparisonIsCaseInsensitive(t *testing.T) {
	tx := okTx()
	tx.To = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	tx.From = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

	v, err := NewVerifier(&stubClient{tx: tx, receipt: &Receipt{Status: 1}}, treasury)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), okParams())
	assert.NoError(t, err)
}

// RPC 层错误原样上抛，不包装成核验失败
func TestVerifyPropagatesRPCError(t *testing.T) {
	rpcErr := errors.New("connection refused")
	v, err := NewVerifier(&stubClient{txErr: rpcErr}, treasury)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), okParams())
	assert.ErrorIs(t, err, rpcErr)
	assert.NotErrorIs(t, err, errno.ErrVerificationFailed)
}
