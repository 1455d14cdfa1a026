package service

import (
	"context"
	"testing"
	"time"

	"github.com/Gpcode233/Ajently/internal/model"
	"github.com/Gpcode233/Ajently/internal/service/storage"
	"github.com/Gpcode233/Ajently/pkg/cache"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEnsureSeedDataIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	credit := NewCreditService(s)
	agents := NewAgentService(s, nil, nil)

	require.NoError(t, agents.EnsureSeedData("0xdemo", decimal.NewFromInt(100)))
	// 二次执行不重复灌数据
	require.NoError(t, agents.EnsureSeedData("0xdemo", decimal.NewFromInt(100)))

	user, err := credit.GetUserByWallet("0xdemo")
	require.NoError(t, err)
	assert.True(t, user.Credits.Equal(decimal.NewFromInt(100)), "credits = %s", user.Credits)

	// 初始余额必须有对应的账本流水，不变式从第一笔就成立
	assertInvariant(t, credit, user.ID)

	list, err := agents.ListPublished(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 8)
}

func TestCreateAndPublishAgent(t *testing.T) {
	s := newTestStore(t)
	userID := seedUser(t, s, "0xcreator", "0")

	local, err := storage.NewLocalProvider(t.TempDir())
	require.NoError(t, err)
	agents := NewAgentService(s, local, nil)

	agent := &model.Agent{
		Name:         "Draft Agent",
		Description:  "a draft agent used by the publish test",
		Category:     "General",
		SystemPrompt: "You answer briefly.",
		CreatorID:    userID,
		PricePerRun:  decimal.RequireFromString("0.01"),
	}
	require.NoError(t, agents.CreateAgent(context.Background(), agent))
	assert.False(t, agent.Published)
	assert.Equal(t, "openrouter/free", agent.Model)

	// 草稿不出现在目录里
	list, err := agents.ListPublished(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)

	published, err := agents.PublishAgent(context.Background(), agent.ID)
	require.NoError(t, err)
	assert.True(t, published.Published)
	assert.NotEmpty(t, published.StorageHash)
	assert.NotEmpty(t, published.ManifestURI)

	// manifest 能按 URI 取回
	data, err := local.Download(context.Background(), published.ManifestURI)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Draft Agent")
}

func TestAttachKnowledge(t *testing.T) {
	s := newTestStore(t)
	userID := seedUser(t, s, "0xknow", "0")
	agentID := seedAgent(t, s, userID, "0.01")

	local, err := storage.NewLocalProvider(t.TempDir())
	require.NoError(t, err)
	agents := NewAgentService(s, local, nil)

	upload, err := agents.AttachKnowledge(context.Background(), agentID, []byte("domain facts"))
	require.NoError(t, err)

	agent, err := agents.GetAgent(agentID)
	require.NoError(t, err)
	assert.Equal(t, upload.URI, agent.KnowledgeURI)

	data, err := local.Download(context.Background(), agent.KnowledgeURI)
	require.NoError(t, err)
	assert.Equal(t, "domain facts", string(data))
}

func TestCatalogCacheInvalidation(t *testing.T) {
	s := newTestStore(t)
	userID := seedUser(t, s, "0xcache", "0")
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	agents := NewAgentService(s, nil, c)

	list, err := agents.ListPublished(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)

	// 直接落一条上架 Agent，缓存里还是旧的空目录
	err = s.Write(func(tx *gorm.DB) error {
		return tx.Create(&model.Agent{
			Name:         "Fresh Agent",
			Description:  "appears after cache invalidation",
			Category:     "General",
			Model:        "openrouter/free",
			SystemPrompt: "hi",
			CreatorID:    userID,
			Published:    true,
		}).Error
	})
	require.NoError(t, err)

	list, err = agents.ListPublished(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list, "stale cache expected before invalidation")

	// 通过服务写路径建 Agent 会失效缓存
	agent := &model.Agent{
		Name:         "Another Agent",
		Description:  "created through the service write path",
		Category:     "General",
		SystemPrompt: "hi",
		CreatorID:    userID,
	}
	require.NoError(t, agents.CreateAgent(context.Background(), agent))

	list, err = agents.ListPublished(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
