package controller

import (
	"unigest_backend/internal/repository"
	"unigest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseRepo *repository.CourseRepository
}

func NewCourseController(courseRepo *repository.CourseRepository) *CourseController {
	return &CourseController{CourseRepo: courseRepo}
}

// ListCourses godoc
// @Summary 课程列表
// @Description 可按班级过滤
// @Tags 学籍
// @Produce json
// @Security BearerAuth
// @Param auditoriumId query int false "班级ID"
// @Success 200 {object} util.Response{data=[]model.Course}
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	if raw := ctx.Query("auditoriumId"); raw != "" {
		id := util.MustParseUint(raw)
		if id == 0 {
			util.BadRequest(ctx, "invalid auditorium id")
			return
		}
		courses, err := c.CourseRepo.ListByAuditorium(id)
		if err != nil {
			util.LogInternalError(ctx, err)
			return
		}
		util.Success(ctx, courses)
		return
	}

	courses, err := c.CourseRepo.ListAll()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// ListAuditoriums godoc
// @Summary 班级列表，注册时选择用
// @Tags 学籍
// @Produce json
// @Success 200 {object} util.Response{data=[]model.Auditorium}
// @Router /api/auditoriums [get]
func (c *CourseController) ListAuditoriums(ctx *gin.Context) {
	auditoriums, err := c.CourseRepo.ListAuditoriums()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, auditoriums)
}
