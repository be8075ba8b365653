package controller

import (
	"unigest_backend/internal/service"
	"unigest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	Authoring   *service.AuthoringService
	AuthService *service.AuthService
}

func NewQuizController(authoring *service.AuthoringService, authService *service.AuthService) *QuizController {
	return &QuizController{Authoring: authoring, AuthService: authService}
}

// CreateQuiz godoc
// @Summary 创建限时测验
// @Description 单选题必须恰好一个正确选项，多选题至少一个，问答题不带选项
// @Tags 测验
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.QuizReq true "测验内容"
// @Success 201 {object} util.Response{data=model.Quiz}
// @Failure 400 {object} util.Response "校验失败"
// @Router /api/assistant/quizzes [post]
func (c *QuizController) CreateQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.QuizReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.Authoring.CreateQuiz(claims.UserID, req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// ListMyQuizzes godoc
// @Summary 我创建的测验列表
// @Description 新建未查看的测验带 isNew 角标
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.QuizSummary}
// @Router /api/assistant/quizzes [get]
func (c *QuizController) ListMyQuizzes(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	quizzes, err := c.Authoring.ListMyQuizzes(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// GetQuiz godoc
// @Summary 测验详情（出题人视角，含答案）
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 404 {object} util.Response
// @Router /api/assistant/quizzes/{id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	quiz, err := c.Authoring.GetQuizForAuthor(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// UpdateQuiz godoc
// @Summary 修改测验元信息
// @Description 已有学生作答的测验冻结，返回 409
// @Tags 测验
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Param body body service.QuizUpdateReq true "可改字段"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 409 {object} util.Response "测验已有作答"
// @Router /api/assistant/quizzes/{id} [put]
func (c *QuizController) UpdateQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.QuizUpdateReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.Authoring.UpdateQuiz(claims.UserID, ctx.Param("id"), req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// DeleteQuiz godoc
// @Summary 删除测验
// @Description 题目、选项和全部作答记录一并删除
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/assistant/quizzes/{id} [delete]
func (c *QuizController) DeleteQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.Authoring.DeleteQuiz(claims.UserID, ctx.Param("id")); err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ListAvailable godoc
// @Summary 本班可作答的测验
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.QuizView}
// @Router /api/student/quizzes [get]
func (c *QuizController) ListAvailable(ctx *gin.Context) {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	if user.AuditoriumID == nil {
		util.Success(ctx, []service.QuizView{})
		return
	}

	quizzes, err := c.Authoring.ListQuizzesForStudent(*user.AuditoriumID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// Preview godoc
// @Summary 作答前预览
// @Description 只给标题、时长和满分，不给题目
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response{data=service.QuizView}
// @Failure 404 {object} util.Response
// @Router /api/student/quizzes/{id} [get]
func (c *QuizController) Preview(ctx *gin.Context) {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil || user.AuditoriumID == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.Authoring.GetQuizForStudent(*user.AuditoriumID, ctx.Param("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, view)
}
