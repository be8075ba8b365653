package controller

import (
	"unigest_backend/internal/model"
	"unigest_backend/internal/service"
	"unigest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssignmentController struct {
	Authoring   *service.AuthoringService
	AuthService *service.AuthService
}

func NewAssignmentController(authoring *service.AuthoringService, authService *service.AuthService) *AssignmentController {
	return &AssignmentController{Authoring: authoring, AuthService: authService}
}

// CreateAssignment godoc
// @Summary 创建 TP/TD 作业
// @Tags 作业
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.AssignmentReq true "作业内容"
// @Success 201 {object} util.Response{data=model.Assignment}
// @Failure 400 {object} util.Response
// @Router /api/assistant/assignments [post]
func (c *AssignmentController) CreateAssignment(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.AssignmentReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	assignment, err := c.Authoring.CreateAssignment(claims.UserID, req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Created(ctx, assignment)
}

// ListMyAssignments godoc
// @Summary 我布置的作业列表
// @Tags 作业
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Assignment}
// @Router /api/assistant/assignments [get]
func (c *AssignmentController) ListMyAssignments(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	assignments, err := c.Authoring.ListMyAssignments(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, assignments)
}

// DeleteAssignment godoc
// @Summary 删除作业
// @Tags 作业
// @Produce json
// @Security BearerAuth
// @Param id path string true "作业ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/assistant/assignments/{id} [delete]
func (c *AssignmentController) DeleteAssignment(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.Authoring.DeleteAssignment(claims.UserID, ctx.Param("id")); err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ListAvailable godoc
// @Summary 本班的作业，按截止时间排序
// @Tags 作业
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Assignment}
// @Router /api/student/assignments [get]
func (c *AssignmentController) ListAvailable(ctx *gin.Context) {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	if user.AuditoriumID == nil {
		util.Success(ctx, []model.Assignment{})
		return
	}

	assignments, err := c.Authoring.ListAssignmentsForStudent(*user.AuditoriumID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, assignments)
}

// GetAssignment godoc
// @Summary 作业详情
// @Tags 作业
// @Produce json
// @Security BearerAuth
// @Param id path string true "作业ID"
// @Success 200 {object} util.Response{data=model.Assignment}
// @Failure 404 {object} util.Response
// @Router /api/student/assignments/{id} [get]
// @Router /api/assistant/assignments/{id} [get]
func (c *AssignmentController) GetAssignment(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	assignment, err := c.Authoring.GetAssignment(ctx.Param("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, assignment)
}
