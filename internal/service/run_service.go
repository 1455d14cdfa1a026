package service

import (
	"errors"

	"github.com/Gpcode233/Ajently/internal/event"
	"github.com/Gpcode233/Ajently/internal/model"
	"github.com/Gpcode233/Ajently/internal/store"
	"github.com/Gpcode233/Ajently/pkg/errno"
	"github.com/Gpcode233/Ajently/pkg/monitor"

	"gorm.io/gorm"
)

// RunService 付费执行结算
// 推理本身在 Handler 层完成 (出网调用不进写锁)，这里只做原子结算:
// 同一个写事务内完成 余额校验 -> 建 Run 记录 -> 记扣费流水 -> 落结算事件。
type RunService struct {
	store *store.Store
}

func NewRunService(s *store.Store) *RunService {
	return &RunService{store: s}
}

// SettleRun 结算一次已完成的推理。
// 价格以事务内读到的 Agent.PricePerRun 为准，不信任请求里带的价格；
// 余额不足整体拒绝，Run 记录也不会留下。
func (s *RunService) SettleRun(userID, agentID uint64, input, output, computeMode string) (*model.Run, error) {
	var run model.Run
	err := s.store.Write(func(tx *gorm.DB) error {
		var agent model.Agent
		if err := tx.First(&agent, agentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errno.ErrAgentNotFound
			}
			return err
		}

		// 免费路径不走 applyLedger，用户校验要在这里做，不能留孤儿 Run
		var user model.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errno.ErrUserNotFound
			}
			return err
		}

		run = model.Run{
			UserID:      userID,
			AgentID:     agentID,
			Input:       input,
			Output:      output,
			Cost:        agent.PricePerRun,
			ComputeMode: computeMode,
		}
		if err := tx.Create(&run).Error; err != nil {
			return err
		}

		// 免费 Agent 不记流水，只留 Run 记录
		if agent.PricePerRun.IsZero() {
			return nil
		}

		if _, err := applyLedger(tx, userID, model.LedgerKindRunDebit,
			agent.PricePerRun.Neg(), model.ReferenceTypeRun, run.ID, agent.Name); err != nil {
			return err
		}

		return appendOutbox(tx, event.SettlementEvent{
			Type:          event.TypeRunSettled,
			UserID:        userID,
			Amount:        agent.PricePerRun.Neg().String(),
			ReferenceType: model.ReferenceTypeRun,
			ReferenceID:   run.ID,
		})
	})
	if err != nil {
		if errors.Is(err, errno.ErrInsufficientCredits) && monitor.Business != nil {
			monitor.Business.InsufficientCreditsTotal.Inc()
		}
		return nil, err
	}

	if monitor.Business != nil {
		monitor.Business.RunsSettledTotal.WithLabelValues(computeMode).Inc()
		if !run.Cost.IsZero() {
			monitor.Business.CreditsDebitedTotal.Inc()
		}
	}
	return &run, nil
}

// GetRun 查询单条执行记录
func (s *RunService) GetRun(runID uint64) (*model.Run, error) {
	var run model.Run
	err := s.store.Read(func(db *gorm.DB) error {
		return db.First(&run, runID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errno.ErrRunNotFound
		}
		return nil, err
	}
	return &run, nil
}

// ListRecentRuns 用户最近的执行记录，按时间倒序
func (s *RunService) ListRecentRuns(userID uint64, limit int) ([]model.Run, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var runs []model.Run
	err := s.store.Read(func(db *gorm.DB) error {
		return db.Where("user_id = ?", userID).
			Order("id DESC").Limit(limit).Find(&runs).Error
	})
	return runs, err
}

// ListRunsForAgent 某个 Agent 的执行记录
func (s *RunService) ListRunsForAgent(agentID uint64, limit int) ([]model.Run, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var runs []model.Run
	err := s.store.Read(func(db *gorm.DB) error {
		return db.Where("agent_id = ?", agentID).
			Order("id DESC").Limit(limit).Find(&runs).Error
	})
	return runs, err
}
