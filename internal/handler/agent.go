package handler

import (
	"errors"
	"strconv"

	"github.com/Gpcode233/Ajently/internal/handler/request"
	"github.com/Gpcode233/Ajently/internal/handler/response"
	"github.com/Gpcode233/Ajently/internal/model"
	"github.com/Gpcode233/Ajently/internal/service"
	"github.com/Gpcode233/Ajently/pkg/errno"
	"github.com/Gpcode233/Ajently/pkg/validator"

	"github.com/gin-gonic/gin"
)

type AgentHandler struct {
	svc *service.Services
}

func NewAgentHandler(svc *service.Services) *AgentHandler {
	return &AgentHandler{svc: svc}
}

func parseIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, errno.ErrBind.WithMessage("Invalid id parameter"))
		return 0, false
	}
	return id, true
}

// List Agent 目录
// @Summary 上架中的 Agent 列表
// @Tags Agent
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/agents [get]
func (h *AgentHandler) List(c *gin.Context) {
	agents, err := h.svc.Agent.ListPublished(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"agents": agents})
}

// Get 单个 Agent 详情
// @Summary Agent 详情
// @Tags Agent
// @Produce json
// @Param id path int true "Agent ID"
// @Success 200 {object} response.Response
// @Router /api/v1/agents/{id} [get]
func (h *AgentHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	agent, err := h.svc.Agent.GetAgent(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"agent": agent})
}

// Create 创建 Agent
// @Summary 创建 Agent
// @Tags Agent
// @Accept json
// @Produce json
// @Param request body request.CreateAgentRequest true "Create Agent Request"
// @Success 200 {object} response.Response
// @Router /api/v1/agents [post]
func (h *AgentHandler) Create(c *gin.Context) {
	var req request.CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	agent := &model.Agent{
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		Model:        req.Model,
		SystemPrompt: req.SystemPrompt,
		CreatorID:    demoUserID(c),
		PricePerRun:  req.PricePerRun,
		CardGradient: req.CardGradient,
	}
	if agent.CardGradient == "" {
		agent.CardGradient = "aurora"
	}
	if err := h.svc.Agent.CreateAgent(c.Request.Context(), agent); err != nil {
		response.Error(c, err)
		return
	}

	if req.PublishNow {
		published, err := h.svc.Agent.PublishAgent(c.Request.Context(), agent.ID)
		if err != nil {
			response.Error(c, err)
			return
		}
		agent = published
	}
	response.Success(c, gin.H{"agent": agent})
}

// Publish 上架 (manifest 上传 + 状态推进)
// @Summary 上架 Agent
// @Tags Agent
// @Produce json
// @Param id path int true "Agent ID"
// @Success 200 {object} response.Response
// @Router /api/v1/agents/{id}/publish [post]
func (h *AgentHandler) Publish(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	agent, err := h.svc.Agent.PublishAgent(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"agent": agent})
}

// AttachKnowledge 上传知识库并挂到 Agent
// @Summary 上传知识库
// @Tags Agent
// @Accept json
// @Produce json
// @Param id path int true "Agent ID"
// @Param request body request.AttachKnowledgeRequest true "Knowledge Content"
// @Success 200 {object} response.Response
// @Router /api/v1/agents/{id}/knowledge [post]
func (h *AgentHandler) AttachKnowledge(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req request.AttachKnowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}
	upload, err := h.svc.Agent.AttachKnowledge(c.Request.Context(), id, []byte(req.Content))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"upload": upload})
}

// Run 执行一次付费推理
// 顺序是铁律: 先取知识库 (下载)、再推理 (出网)，最后才进扣费事务。
// 推理成功但余额不足时，这次输出不落库也不收费。
// @Summary 执行 Agent
// @Tags Agent
// @Accept json
// @Produce json
// @Param id path int true "Agent ID"
// @Param request body request.RunAgentRequest true "Run Request"
// @Success 200 {object} response.Response
// @Router /api/v1/agents/{id}/run [post]
func (h *AgentHandler) Run(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req request.RunAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	agent, err := h.svc.Agent.GetAgent(id)
	if err != nil {
		response.Error(c, err)
		return
	}

	// 1. 知识库 (可选)
	knowledge := ""
	if agent.KnowledgeURI != "" && h.svc.Storage != nil {
		data, err := h.svc.Storage.Download(c.Request.Context(), agent.KnowledgeURI)
		if err != nil {
			response.Error(c, errno.InternalServerError.WithMessage("Failed to load knowledge from storage"))
			return
		}
		knowledge = string(data)
	}

	// 2. 推理
	inference, err := h.svc.Compute.RunInference(c.Request.Context(),
		agent.SystemPrompt, knowledge, req.Message, agent.Model)
	if err != nil {
		response.Error(c, errno.InternalServerError.WithMessage(err.Error()))
		return
	}

	// 3. 原子结算
	userID := demoUserID(c)
	run, err := h.svc.Run.SettleRun(userID, id, req.Message, inference.Output, inference.Mode)
	if err != nil {
		if errors.Is(err, errno.ErrInsufficientCredits) {
			response.Error(c, errno.ErrInsufficientCredits)
			return
		}
		response.Error(c, err)
		return
	}

	user, err := h.svc.Credit.GetUserByID(userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"output":            inference.Output,
		"run":               run,
		"remaining_credits": user.Credits,
		"compute": gin.H{
			"mode":             inference.Mode,
			"model":            inference.Model,
			"provider_address": inference.ProviderAddress,
		},
	})
}

// ListRuns 某个 Agent 的执行历史
// @Summary Agent 执行历史
// @Tags Agent
// @Produce json
// @Param id path int true "Agent ID"
// @Success 200 {object} response.Response
// @Router /api/v1/agents/{id}/runs [get]
func (h *AgentHandler) ListRuns(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	runs, err := h.svc.Run.ListRunsForAgent(id, 40)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"runs": runs})
}
