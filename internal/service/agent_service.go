package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Gpcode233/Ajently/internal/model"
	"github.com/Gpcode233/Ajently/internal/service/storage"
	"github.com/Gpcode233/Ajently/internal/store"
	"github.com/Gpcode233/Ajently/pkg/cache"
	"github.com/Gpcode233/Ajently/pkg/errno"
	"github.com/Gpcode233/Ajently/pkg/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	catalogCacheKey = "agents:catalog"
	catalogCacheTTL = 30 * time.Second
)

// AgentService 商品目录
// 目录读路径走缓存 (列表页高频)，写路径失效缓存。
// 结算路径绕开这里，价格必须在写事务内取权威值。
type AgentService struct {
	store   *store.Store
	storage storage.Provider
	cache   cache.Cache
}

func NewAgentService(s *store.Store, sp storage.Provider, c cache.Cache) *AgentService {
	return &AgentService{store: s, storage: sp, cache: c}
}

// ListPublished 上架中的 Agent 列表
func (s *AgentService) ListPublished(ctx context.Context) ([]model.Agent, error) {
	var agents []model.Agent
	if s.cache != nil {
		if err := s.cache.Get(ctx, catalogCacheKey, &agents); err == nil {
			return agents, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn("读取目录缓存失败", zap.Error(err))
		}
	}

	err := s.store.Read(func(db *gorm.DB) error {
		return db.Where("published = ?", true).Order("id ASC").Find(&agents).Error
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, catalogCacheKey, agents, catalogCacheTTL); err != nil {
			logger.Warn("写入目录缓存失败", zap.Error(err))
		}
	}
	return agents, nil
}

// GetAgent 查询单个 Agent
func (s *AgentService) GetAgent(agentID uint64) (*model.Agent, error) {
	var agent model.Agent
	err := s.store.Read(func(db *gorm.DB) error {
		return db.First(&agent, agentID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errno.ErrAgentNotFound
		}
		return nil, err
	}
	return &agent, nil
}

// CreateAgent 创建 Agent (未上架)
func (s *AgentService) CreateAgent(ctx context.Context, agent *model.Agent) error {
	if agent.Model == "" {
		agent.Model = "openrouter/free"
	}
	err := s.store.Write(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Where("id = ?", agent.CreatorID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return errno.ErrUserNotFound
		}
		return tx.Create(agent).Error
	})
	if err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

// agentManifest 发布时上传到内容寻址存储的清单
type agentManifest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Model        string `json:"model"`
	SystemPrompt string `json:"system_prompt"`
	PricePerRun  string `json:"price_per_run"`
	CreatorID    uint64 `json:"creator_id"`
	PublishedAt  string `json:"published_at"`
}

// PublishAgent 上架: 先把 manifest 上传到存储 (出网，在写事务外)，
// 再在写事务内落上架状态和存储引用。
func (s *AgentService) PublishAgent(ctx context.Context, agentID uint64) (*model.Agent, error) {
	agent, err := s.GetAgent(agentID)
	if err != nil {
		return nil, err
	}

	var upload *storage.UploadResult
	if s.storage != nil {
		manifest := agentManifest{
			Name:         agent.Name,
			Description:  agent.Description,
			Category:     agent.Category,
			Model:        agent.Model,
			SystemPrompt: agent.SystemPrompt,
			PricePerRun:  agent.PricePerRun.String(),
			CreatorID:    agent.CreatorID,
			PublishedAt:  time.Now().UTC().Format(time.RFC3339),
		}
		data, err := json.Marshal(manifest)
		if err != nil {
			return nil, err
		}
		upload, err = s.storage.Upload(ctx, data)
		if err != nil {
			return nil, err
		}
	}

	err = s.store.Write(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"published": true}
		if upload != nil {
			updates["storage_hash"] = upload.RootHash
			updates["manifest_uri"] = upload.URI
			updates["manifest_tx_hash"] = upload.TxHash
		}
		res := tx.Model(&model.Agent{}).Where("id = ?", agentID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errno.ErrAgentNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx)
	return s.GetAgent(agentID)
}

// AttachKnowledge 把知识库内容上传到存储并挂到 Agent 上，
// 推理时由 Handler 下载后拼进上下文。
func (s *AgentService) AttachKnowledge(ctx context.Context, agentID uint64, data []byte) (*storage.UploadResult, error) {
	if s.storage == nil {
		return nil, errors.New("存储协作方未配置")
	}
	if _, err := s.GetAgent(agentID); err != nil {
		return nil, err
	}

	upload, err := s.storage.Upload(ctx, data)
	if err != nil {
		return nil, err
	}

	err = s.store.Write(func(tx *gorm.DB) error {
		return tx.Model(&model.Agent{}).Where("id = ?", agentID).
			Update("knowledge_uri", upload.URI).Error
	})
	if err != nil {
		return nil, err
	}
	return upload, nil
}

func (s *AgentService) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, catalogCacheKey); err != nil {
		logger.Warn("失效目录缓存失败", zap.Error(err))
	}
}

// demoAgent 首次启动的演示目录
type demoAgent struct {
	Name         string
	Description  string
	Category     string
	Model        string
	SystemPrompt string
	PricePerRun  string
	CardGradient string
}

var demoAgents = []demoAgent{
	{
		Name:         "Viral Hook Architect",
		Description:  "Crafts viral hooks, CTAs, and launch copy in seconds.",
		Category:     "Marketing",
		Model:        "meta-llama/llama-3.2-3b-instruct:free",
		SystemPrompt: "You are a marketing copywriter who creates punchy hooks and CTAs tailored to the user's audience.",
		PricePerRun:  "0.02",
		CardGradient: "sunset",
	},
	{
		Name:         "Pull Request Reviewer",
		Description:  "Reviews diffs, flags risks, and suggests fixes.",
		Category:     "Coding",
		Model:        "meta-llama/llama-3.3-70b-instruct:free",
		SystemPrompt: "You are a senior engineer reviewing pull requests for correctness, security, and clarity.",
		PricePerRun:  "0.03",
		CardGradient: "ember",
	},
	{
		Name:         "Socratic Tutor",
		Description:  "Guides learners with questions, explanations, and quizzes.",
		Category:     "Education",
		Model:        "google/gemma-3-27b-it:free",
		SystemPrompt: "You are a patient tutor who teaches by asking guiding questions and giving concise explanations.",
		PricePerRun:  "0.02",
		CardGradient: "aurora",
	},
	{
		Name:         "Focus Sprint Coach",
		Description:  "Turns goals into focused 25-minute sprint plans.",
		Category:     "Productivity",
		Model:        "mistralai/mistral-small-3.1-24b-instruct:free",
		SystemPrompt: "You are a productivity coach who turns goals into time-boxed action plans and checklists.",
		PricePerRun:  "0.015",
		CardGradient: "ocean",
	},
	{
		Name:         "Market Intel Scout",
		Description:  "Summarizes competitor moves and trend signals.",
		Category:     "Research",
		Model:        "deepseek/deepseek-r1:free",
		SystemPrompt: "You are a research analyst summarizing market signals, competitor activity, and key takeaways.",
		PricePerRun:  "0.04",
		CardGradient: "cosmic",
	},
	{
		Name:         "Brand Moodboarder",
		Description:  "Generates visual style directions and moodboard prompts.",
		Category:     "Design",
		Model:        "black-forest-labs/flux.2-flex",
		SystemPrompt: "You are a creative director who defines moodboards, palettes, and visual directions for brands.",
		PricePerRun:  "0.05",
		CardGradient: "sunset",
	},
	{
		Name:         "Receipt Vision Auditor",
		Description:  "Inspects receipts and flags anomalies or missing fields.",
		Category:     "Finance",
		Model:        "qwen/qwen2.5-vl-32b-instruct:free",
		SystemPrompt: "You analyze receipts and invoices, extracting key fields and spotting inconsistencies.",
		PricePerRun:  "0.03",
		CardGradient: "ember",
	},
	{
		Name:         "All-Purpose Concierge",
		Description:  "Handles everyday tasks, brainstorming, and quick answers.",
		Category:     "General",
		Model:        "openrouter/free",
		SystemPrompt: "You are a versatile assistant who handles daily requests with clarity and brevity.",
		PricePerRun:  "0.01",
		CardGradient: "aurora",
	},
}

// EnsureSeedData 首次启动时灌入演示用户和演示目录。
// 演示用户的初始余额以 manual_adjustment 流水入账，
// 保证 sum(ledger) == credits 的不变式从第一笔起就成立。幂等，可重复调用。
func (s *AgentService) EnsureSeedData(walletAddress string, initialCredits decimal.Decimal) error {
	return s.store.Write(func(tx *gorm.DB) error {
		var user model.User
		err := tx.Where("wallet_address = ?", walletAddress).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = model.User{WalletAddress: walletAddress, Credits: decimal.Zero}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			if !initialCredits.IsZero() {
				if _, err := applyLedger(tx, user.ID, model.LedgerKindManualAdjustment,
					initialCredits, "", 0, "welcome credits"); err != nil {
					return err
				}
			}
			logger.Info("已创建演示用户",
				zap.Uint64("user_id", user.ID),
				zap.String("wallet", walletAddress))
		} else if err != nil {
			return err
		}

		for _, d := range demoAgents {
			var count int64
			if err := tx.Model(&model.Agent{}).Where("name = ?", d.Name).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			price, err := decimal.NewFromString(d.PricePerRun)
			if err != nil {
				return err
			}
			agent := model.Agent{
				Name:         d.Name,
				Description:  d.Description,
				Category:     d.Category,
				Model:        d.Model,
				SystemPrompt: d.SystemPrompt,
				CreatorID:    user.ID,
				PricePerRun:  price,
				Published:    true,
				CardGradient: d.CardGradient,
			}
			if err := tx.Create(&agent).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
