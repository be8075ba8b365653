package controller

import (
	"unigest_backend/internal/service"
	"unigest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GradeController struct {
	Grading  *service.GradingService
	Worklist *service.WorklistService
}

func NewGradeController(grading *service.GradingService, worklist *service.WorklistService) *GradeController {
	return &GradeController{Grading: grading, Worklist: worklist}
}

// GetWorklist godoc
// @Summary 待批改工作台
// @Description 名下所有未批改项按系、班级、课程、评估四级分组
// @Tags 批改
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.DepartmentGroup}
// @Router /api/assistant/worklist [get]
func (c *GradeController) GetWorklist(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	tree, err := c.Worklist.BuildWorklist(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, tree)
}

// GetAttempt godoc
// @Summary 作答批改视图
// @Description 含题目、正确答案和学生逐题作答
// @Tags 批改
// @Produce json
// @Security BearerAuth
// @Param id path string true "尝试ID"
// @Success 200 {object} util.Response{data=model.Attempt}
// @Failure 404 {object} util.Response
// @Router /api/assistant/attempts/{id} [get]
func (c *GradeController) GetAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attempt, err := c.Grading.GetAttemptForGrader(claims.UserID, ctx.Param("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// GradeAttempt godoc
// @Summary 补判主观题
// @Description 总分重算为客观小计加主观小计，负分或超满分整单拒绝
// @Tags 批改
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "尝试ID"
// @Param body body service.GradeAttemptReq true "逐题给分和评语"
// @Success 200 {object} util.Response{data=model.Attempt}
// @Failure 422 {object} util.Response "分数越界"
// @Router /api/assistant/attempts/{id}/grade [post]
func (c *GradeController) GradeAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.GradeAttemptReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	attempt, err := c.Grading.GradeAttempt(claims.UserID, ctx.Param("id"), req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// GetSubmission godoc
// @Summary 作业提交批改视图
// @Tags 批改
// @Produce json
// @Security BearerAuth
// @Param id path string true "提交ID"
// @Success 200 {object} util.Response{data=model.Submission}
// @Failure 404 {object} util.Response
// @Router /api/assistant/submissions/{id} [get]
func (c *GradeController) GetSubmission(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	submission, err := c.Grading.GetSubmissionForGrader(claims.UserID, ctx.Param("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, submission)
}

// GradeSubmission godoc
// @Summary 批改作业提交
// @Description 分数限定在 [0, 满分]，越界返回 422
// @Tags 批改
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "提交ID"
// @Param body body service.GradeSubmissionReq true "分数和评语"
// @Success 200 {object} util.Response{data=model.Submission}
// @Failure 422 {object} util.Response "分数越界"
// @Router /api/assistant/submissions/{id}/grade [post]
func (c *GradeController) GradeSubmission(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.GradeSubmissionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	submission, err := c.Grading.GradeSubmission(claims.UserID, ctx.Param("id"), req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, submission)
}
