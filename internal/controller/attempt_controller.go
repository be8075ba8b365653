package controller

import (
	"unigest_backend/internal/model"
	"unigest_backend/internal/service"
	"unigest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	Sessions    *service.AttemptSessionManager
	Submissions *service.SubmissionService
	AuthService *service.AuthService
}

func NewAttemptController(sessions *service.AttemptSessionManager, submissions *service.SubmissionService, authService *service.AuthService) *AttemptController {
	return &AttemptController{
		Sessions:    sessions,
		Submissions: submissions,
		AuthService: authService,
	}
}

// StartAttempt godoc
// @Summary 开始作答
// @Description 每人每份测验只能作答一次。进行中重复调用返回当前会话状态。
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response{data=service.AttemptState}
// @Failure 409 {object} util.Response "已提交过"
// @Router /api/student/quizzes/{id}/attempt [post]
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	state, err := c.Sessions.StartAttempt(user, ctx.Param("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// RecordAnswer godoc
// @Summary 记录单题作答
// @Description 只写内存缓冲，同题覆盖旧答案，提交时一并落库
// @Tags 作答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "尝试ID"
// @Param body body service.AnswerInput true "作答内容"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response "已提交"
// @Router /api/student/attempts/{id}/answers [put]
func (c *AttemptController) RecordAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var in service.AnswerInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Sessions.RecordAnswer(claims.UserID, ctx.Param("id"), in); err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// SubmitAttempt godoc
// @Summary 提交作答
// @Description 客观题立即判分。撞上计时器或清扫收卷时按成功返回已落库的尝试。
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Param id path string true "尝试ID"
// @Success 200 {object} util.Response{data=model.Attempt}
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/student/attempts/{id}/submit [post]
func (c *AttemptController) SubmitAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attempt, err := c.Sessions.Submit(claims.UserID, ctx.Param("id"), model.SubmitManual)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// CloseAttempt godoc
// @Summary 离开作答但不提交
// @Description 会话销毁，计时继续，超时由服务端兜底收卷
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Param id path string true "尝试ID"
// @Success 200 {object} util.Response
// @Router /api/student/attempts/{id}/close [post]
func (c *AttemptController) CloseAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.Sessions.Close(claims.UserID, ctx.Param("id")); err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Remaining godoc
// @Summary 剩余作答秒数
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Param id path string true "尝试ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/student/attempts/{id}/remaining [get]
func (c *AttemptController) Remaining(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	remaining, err := c.Sessions.Remaining(claims.UserID, ctx.Param("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"remainingSeconds": remaining})
}

// AttachSocket godoc
// @Summary 倒计时 WebSocket
// @Description 每秒推一帧剩余时间，提交后推 submitted 帧并断开
// @Tags 作答
// @Security BearerAuth
// @Param id path string true "尝试ID"
// @Router /api/student/attempts/{id}/ws [get]
func (c *AttemptController) AttachSocket(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.Sessions.AttachSocket(ctx.Writer, ctx.Request, claims.UserID, ctx.Param("id")); err != nil {
		handleServiceError(ctx, err)
		return
	}
}

// ListMyAttempts godoc
// @Summary 我的历次作答
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]repository.StudentAttemptRow}
// @Router /api/student/attempts [get]
func (c *AttemptController) ListMyAttempts(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	rows, err := c.Submissions.ListMyAttempts(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// GetMyAttempt godoc
// @Summary 我的作答明细
// @Description 提交后才可见，含逐题判分
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Param id path string true "尝试ID"
// @Success 200 {object} util.Response{data=model.Attempt}
// @Failure 404 {object} util.Response
// @Router /api/student/attempts/{id} [get]
func (c *AttemptController) GetMyAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attempt, err := c.Submissions.GetMyAttempt(claims.UserID, ctx.Param("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}
