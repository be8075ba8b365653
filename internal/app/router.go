package app

import (
	"unigest_backend/docs"
	"unigest_backend/internal/config"
	"unigest_backend/internal/middleware"
	"unigest_backend/internal/model"
	"unigest_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由（无需登录）
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.GET("/auditoriums", c.course.ListAuditoriums)
	}

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/me", c.auth.Me)
		authGroup.GET("/courses", c.course.ListCourses)

		// 学生：作答测验、提交作业、查询成绩
		student := authGroup.Group("/student")
		student.Use(middleware.RoleMiddleware(model.Student))
		{
			student.GET("/quizzes", c.quiz.ListAvailable)
			student.GET("/quizzes/:id", c.quiz.Preview)
			student.POST("/quizzes/:id/attempt", c.attempt.StartAttempt)

			student.GET("/attempts", c.attempt.ListMyAttempts)
			student.GET("/attempts/:id", c.attempt.GetMyAttempt)
			student.PUT("/attempts/:id/answers", c.attempt.RecordAnswer)
			student.POST("/attempts/:id/submit", c.attempt.SubmitAttempt)
			student.POST("/attempts/:id/close", c.attempt.CloseAttempt)
			student.GET("/attempts/:id/remaining", c.attempt.Remaining)
			student.GET("/attempts/:id/ws", c.attempt.AttachSocket)

			student.GET("/assignments", c.assignment.ListAvailable)
			student.GET("/assignments/:id", c.assignment.GetAssignment)
			student.POST("/assignments/:id/submit", c.submission.SubmitAssignment)

			student.GET("/submissions", c.submission.ListMySubmissions)
			student.GET("/submissions/:id", c.submission.GetMySubmission)
		}

		// 助教：出题与批改
		assistant := authGroup.Group("/assistant")
		assistant.Use(middleware.RoleMiddleware(model.Assistant))
		{
			assistant.POST("/quizzes", c.quiz.CreateQuiz)
			assistant.GET("/quizzes", c.quiz.ListMyQuizzes)
			assistant.GET("/quizzes/:id", c.quiz.GetQuiz)
			assistant.PUT("/quizzes/:id", c.quiz.UpdateQuiz)
			assistant.DELETE("/quizzes/:id", c.quiz.DeleteQuiz)

			assistant.POST("/assignments", c.assignment.CreateAssignment)
			assistant.GET("/assignments", c.assignment.ListMyAssignments)
			assistant.GET("/assignments/:id", c.assignment.GetAssignment)
			assistant.DELETE("/assignments/:id", c.assignment.DeleteAssignment)

			assistant.GET("/worklist", c.grade.GetWorklist)
			assistant.GET("/attempts/:id", c.grade.GetAttempt)
			assistant.POST("/attempts/:id/grade", c.grade.GradeAttempt)
			assistant.GET("/submissions/:id", c.grade.GetSubmission)
			assistant.POST("/submissions/:id/grade", c.grade.GradeSubmission)
		}

		// 管理员
		admin := authGroup.Group("/admin")
		admin.Use(middleware.RoleMiddleware(model.Admin))
		{
			admin.GET("/users", c.user.ListUsers)
		}
	}
}
