package service

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/Gpcode233/Ajently/internal/model"
	"github.com/Gpcode233/Ajently/internal/service/chain"
	"github.com/Gpcode233/Ajently/pkg/errno"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testTreasury = "0x00000000000000000000000000000000000Ea570"
	testSender   = "0x1111111111111111111111111111111111111111"
)

// fakeChainClient 内存中的链上交易表
type fakeChainClient struct {
	txs      map[string]*chain.Transaction
	receipts map[string]*chain.Receipt
}

func (f *fakeChainClient) TransactionByHash(_ context.Context, _ int64, txHash string) (*chain.Transaction, error) {
	tx, ok := f.txs[txHash]
	if !ok {
		return nil, fmt.Errorf("transaction %s not found", txHash)
	}
	return tx, nil
}

func (f *fakeChainClient) TransactionReceipt(_ context.Context, _ int64, txHash string) (*chain.Receipt, error) {
	r, ok := f.receipts[txHash]
	if !ok {
		return nil, fmt.Errorf("receipt %s not found", txHash)
	}
	return r, nil
}

// ether 转 wei
func etherToWei(ether string) *big.Int {
	d := decimal.RequireFromString(ether).Shift(18)
	return d.BigInt()
}

func testTxHash(n int) string {
	return "0x" + strings.Repeat(fmt.Sprintf("%x", n%16), 64)
}

func newTestVerifier(t *testing.T, client chain.Client) *chain.Verifier {
	t.Helper()
	v, err := chain.NewVerifier(client, testTreasury)
	require.NoError(t, err)
	return v
}

func TestTopupLifecycle(t *testing.T) {
	s := newTestStore(t)
	credit := NewCreditService(s)
	topups := NewTopupService(s, nil)
	userID := seedUser(t, s, "0xtopup", "100")

	order, err := topups.CreateTopupOrder(userID, model.TopupRailFiat, "USD",
		decimal.NewFromInt(25), decimal.NewFromInt(25))
	require.NoError(t, err)
	assert.Equal(t, model.TopupStatusPending, order.Status)
	assert.True(t, strings.HasPrefix(order.ProviderReference, "topup_"))
	assert.Nil(t, order.CompletedAt)

	// 回执推进到 completed: 入账 + 状态 + 完成时间，一个事务
	updated, err := topups.Reconcile(order.ProviderReference, model.TopupStatusCompleted, "")
	require.NoError(t, err)
	assert.Equal(t, model.TopupStatusCompleted, updated.Status)
	require.NotNil(t, updated.CompletedAt)

	user, err := credit.GetUserByID(userID)
	require.NoError(t, err)
	assert.True(t, user.Credits.Equal(decimal.NewFromInt(125)), "credits = %s", user.Credits)
	assertInvariant(t, credit, userID)
}

func TestReconcileIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	credit := NewCreditService(s)
	topups := NewTopupService(s, nil)
	userID := seedUser(t, s, "0xreplay", "0")

	order, err := topups.CreateTopupOrder(userID, model.TopupRailStablecoin, "USDC",
		decimal.NewFromInt(50), decimal.NewFromInt(50))
	require.NoError(t, err)

	// 同一条回执重放三次，只入账一次
	for i := 0; i < 3; i++ {
		updated, err := topups.Reconcile(order.ProviderReference, model.TopupStatusCompleted, "")
		require.NoError(t, err)
		assert.Equal(t, model.TopupStatusCompleted, updated.Status)
	}

	user, err := credit.GetUserByID(userID)
	require.NoError(t, err)
	assert.True(t, user.Credits.Equal(decimal.NewFromInt(50)), "credits = %s", user.Credits)
	assertInvariant(t, credit, userID)
}

func TestReconcileTerminalStateIsImmutable(t *testing.T) {
	s := newTestStore(t)
	credit := NewCreditService(s)
	topups := NewTopupService(s, nil)
	userID := seedUser(t, s, "0xterminal", "0")

	order, err := topups.CreateTopupOrder(userID, model.TopupRailFiat, "USD",
		decimal.NewFromInt(10), decimal.NewFromInt(10))
	require.NoError(t, err)

	failed, err := topups.Reconcile(order.ProviderReference, model.TopupStatusFailed, "card declined")
	require.NoError(t, err)
	assert.Equal(t, model.TopupStatusFailed, failed.Status)
	require.NotNil(t, failed.CompletedAt)

	// failed 之后补发 completed 回执: 终态不动，不入账
	still, err := topups.Reconcile(order.ProviderReference, model.TopupStatusCompleted, "")
	require.NoError(t, err)
	assert.Equal(t, model.TopupStatusFailed, still.Status)

	user, err := credit.GetUserByID(userID)
	require.NoError(t, err)
	assert.True(t, user.Credits.IsZero())
	assertInvariant(t, credit, userID)
}

func TestReconcileUnknownReference(t *testing.T) {
	s := newTestStore(t)
	topups := NewTopupService(s, nil)

	_, err := topups.Reconcile("topup_deadbeef", model.TopupStatusCompleted, "")
	assert.ErrorIs(t, err, errno.ErrOrderNotFound)
}

// 场景: 100 起步，跑一次 0.02 的 Agent，再充 25 => 124.98
func TestBalanceScenario(t *testing.T) {
	s := newTestStore(t)
	credit := NewCreditService(s)
	runs := NewRunService(s)
	topups := NewTopupService(s, nil)
	userID := seedUser(t, s, "0xscenario", "100")
	agentID := seedAgent(t, s, userID, "0.02")

	_, err := runs.SettleRun(userID, agentID, "in", "out", "mock")
	require.NoError(t, err)

	user, err := credit.GetUserByID(userID)
	require.NoError(t, err)
	assert.True(t, user.Credits.Equal(decimal.RequireFromString("99.98")), "credits = %s", user.Credits)

	order, err := topups.CreateTopupOrder(userID, model.TopupRailFiat, "USD",
		decimal.NewFromInt(25), decimal.NewFromInt(25))
	require.NoError(t, err)
	_, err = topups.Reconcile(order.ProviderReference, model.TopupStatusCompleted, "")
	require.NoError(t, err)

	user, err = credit.GetUserByID(userID)
	require.NoError(t, err)
	assert.True(t, user.Credits.Equal(decimal.RequireFromString("124.98")), "credits = %s", user.Credits)
	assertInvariant(t, credit, userID)
}

func TestCompleteOnchain(t *testing.T) {
	txHash := testTxHash(7)
	client := &fakeChainClient{
		txs: map[string]*chain.Transaction{
			txHash: {
				Hash:    txHash,
				From:    testSender,
				To:      testTreasury,
				Value:   etherToWei("1.5"),
				ChainID: big.NewInt(1),
			},
		},
		receipts: map[string]*chain.Receipt{
			txHash: {Status: 1},
		},
	}

	s := newTestStore(t)
	credit := NewCreditService(s)
	topups := NewTopupService(s, newTestVerifier(t, client))
	userID := seedUser(t, s, "0xonchain", "0")

	order, created, err := topups.CompleteOnchain(context.Background(),
		userID, txHash, 1, testSender, "ETH", decimal.Zero)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.TopupStatusCompleted, order.Status)
	assert.Equal(t, model.TopupRailOnchain, order.Rail)
	assert.Equal(t, txHash, order.ProviderReference)
	assert.True(t, order.Credits.Equal(decimal.RequireFromString("1.5")), "credits = %s", order.Credits)

	user, err := credit.GetUserByID(userID)
	require.NoError(t, err)
	assert.True(t, user.Credits.Equal(decimal.RequireFromString("1.5")))

	// 同一笔交易再提交: 返回原订单，不再入账
	again, created, err := topups.CompleteOnchain(context.Background(),
		userID, txHash, 1, testSender, "ETH", decimal.Zero)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, order.ID, again.ID)

	user, err = credit.GetUserByID(userID)
	require.NoError(t, err)
	assert.True(t, user.Credits.Equal(decimal.RequireFromString("1.5")), "credits = %s", user.Credits)
	assertInvariant(t, credit, userID)
}

func TestCompleteOnchainRecordsClaimedCurrency(t *testing.T) {
	txHash := testTxHash(9)
	client := &fakeChainClient{
		txs: map[string]*chain.Transaction{
			txHash: {
				Hash:    txHash,
				From:    testSender,
				To:      testTreasury,
				Value:   etherToWei("2"),
				ChainID: big.NewInt(137),
			},
		},
		receipts: map[string]*chain.Receipt{
			txHash: {Status: 1},
		},
	}

	s := newTestStore(t)
	topups := NewTopupService(s, newTestVerifier(t, client))
	userID := seedUser(t, s, "0xpolygon", "0")

	order, _, err := topups.CompleteOnchain(context.Background(),
		userID, txHash, 137, testSender, "POL", decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "POL", order.Currency)

	// 没申报币种时回落到 ETH
	other := testTxHash(10)
	client.txs[other] = &chain.Transaction{
		Hash: other, From: testSender, To: testTreasury,
		Value: etherToWei("1"), ChainID: big.NewInt(1),
	}
	client.receipts[other] = &chain.Receipt{Status: 1}

	fallback, _, err := topups.CompleteOnchain(context.Background(),
		userID, other, 1, testSender, "", decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "ETH", fallback.Currency)
}

func TestCompleteOnchainVerificationFailureLeavesNoState(t *testing.T) {
	txHash := testTxHash(3)
	client := &fakeChainClient{
		txs: map[string]*chain.Transaction{
			txHash: {
				Hash:    txHash,
				From:    testSender,
				To:      testSender, // 没打给金库
				Value:   etherToWei("1"),
				ChainID: big.NewInt(1),
			},
		},
		receipts: map[string]*chain.Receipt{
			txHash: {Status: 1},
		},
	}

	s := newTestStore(t)
	topups := NewTopupService(s, newTestVerifier(t, client))
	userID := seedUser(t, s, "0xbadtx", "0")

	_, _, err := topups.CompleteOnchain(context.Background(),
		userID, txHash, 1, testSender, "ETH", decimal.Zero)
	assert.ErrorIs(t, err, errno.ErrVerificationFailed)

	var count int64
	err = s.Read(func(db *gorm.DB) error {
		return db.Model(&model.TopupOrder{}).Count(&count).Error
	})
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestCompleteOnchainWithoutVerifier(t *testing.T) {
	s := newTestStore(t)
	topups := NewTopupService(s, nil)
	userID := seedUser(t, s, "0xnochain", "0")

	_, _, err := topups.CompleteOnchain(context.Background(),
		userID, testTxHash(1), 1, testSender, "ETH", decimal.Zero)
	assert.ErrorIs(t, err, errno.ErrVerificationFailed)
}
