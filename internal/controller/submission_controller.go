package controller

import (
	"unigest_backend/internal/service"
	"unigest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	Submissions *service.SubmissionService
	AuthService *service.AuthService
}

func NewSubmissionController(submissions *service.SubmissionService, authService *service.AuthService) *SubmissionController {
	return &SubmissionController{Submissions: submissions, AuthService: authService}
}

// SubmitAssignment godoc
// @Summary 提交 TP/TD 作业
// @Description 文本和附件至少一样。截止时间仅作提示，过期仍可提交，每人只收一次。
// @Tags 作业提交
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "作业ID"
// @Param content formData string false "文本内容"
// @Param file formData file false "附件，最大 20MB"
// @Success 201 {object} util.Response{data=model.Submission}
// @Failure 409 {object} util.Response "已提交过"
// @Router /api/student/assignments/{id}/submit [post]
func (c *SubmissionController) SubmitAssignment(ctx *gin.Context) {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	content := ctx.PostForm("content")
	file, err := ctx.FormFile("file")
	if err != nil {
		file = nil
	}

	submission, err := c.Submissions.SubmitAssignment(ctx.Request.Context(), user, ctx.Param("id"), content, file)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Created(ctx, submission)
}

// ListMySubmissions godoc
// @Summary 我的作业提交
// @Tags 作业提交
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]repository.StudentSubmissionRow}
// @Router /api/student/submissions [get]
func (c *SubmissionController) ListMySubmissions(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	rows, err := c.Submissions.ListMySubmissions(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// GetMySubmission godoc
// @Summary 我的提交明细
// @Tags 作业提交
// @Produce json
// @Security BearerAuth
// @Param id path string true "提交ID"
// @Success 200 {object} util.Response{data=model.Submission}
// @Failure 404 {object} util.Response
// @Router /api/student/submissions/{id} [get]
func (c *SubmissionController) GetMySubmission(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	submission, err := c.Submissions.GetMySubmission(claims.UserID, ctx.Param("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	util.Success(ctx, submission)
}
